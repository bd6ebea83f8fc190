package latency

import "github.com/hsgwa/trace-analysis/pkg/record"

// Samples is the result of composing a path: the complete traversal rows
// under their per-hop column names, plus the latency series between the
// first and last column.
type Samples struct {
	// Columns lists the per-hop column names in chronological order.
	Columns []string

	// Records holds the complete traversals, one row per sample.
	Records *record.Records

	// Latencies is the raw series: last column minus first column per row.
	Latencies []uint64

	// Dropped counts traversals that never reached the end of the path.
	Dropped int
}

// newSamples keeps the rows carrying every ordered column and reduces them
// to the latency series. Rows with holes are messages lost along the path;
// they count as dropped but contribute no sample.
func newSamples(records *record.Records, ordered []string) *Samples {
	s := &Samples{Columns: ordered, Records: record.NewRecords()}
	s.Records.SetColumns(ordered...)

	if len(ordered) == 0 {
		return s
	}
	first, last := ordered[0], ordered[len(ordered)-1]

	for _, r := range records.Items() {
		complete := true
		for _, col := range ordered {
			if !r.Has(col) {
				complete = false
				break
			}
		}
		if !complete {
			s.Dropped++
			continue
		}
		s.Records.Append(r.Clone())
		s.Latencies = append(s.Latencies, r.MustGet(last)-r.MustGet(first))
	}
	return s
}

// Count returns the number of complete traversals.
func (s *Samples) Count() int {
	return len(s.Latencies)
}

// Min returns the smallest latency sample, zero when empty.
func (s *Samples) Min() uint64 {
	var min uint64
	for i, v := range s.Latencies {
		if i == 0 || v < min {
			min = v
		}
	}
	return min
}

// Max returns the largest latency sample, zero when empty.
func (s *Samples) Max() uint64 {
	var max uint64
	for _, v := range s.Latencies {
		if v > max {
			max = v
		}
	}
	return max
}

// Mean returns the average latency, zero when empty.
func (s *Samples) Mean() float64 {
	if len(s.Latencies) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.Latencies {
		sum += float64(v)
	}
	return sum / float64(len(s.Latencies))
}
