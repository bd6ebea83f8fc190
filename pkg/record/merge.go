package record

import "sort"

// MergeHow selects which unmatched rows survive a merge.
type MergeHow string

const (
	MergeInner MergeHow = "inner"
	MergeLeft  MergeHow = "left"
	MergeRight MergeHow = "right"
	MergeOuter MergeHow = "outer"
)

func (h MergeHow) keepLeft() bool {
	return h == MergeLeft || h == MergeOuter
}

func (h MergeHow) keepRight() bool {
	return h == MergeRight || h == MergeOuter
}

// Merge joins two tables on equality of joinKey. Each left row is combined
// with the first right row carrying the same key; a right row can serve
// several left rows. Unmatched rows survive according to how. Input tables
// are not modified; matched output rows are fresh copies.
func Merge(left, right *Records, joinKey string, how MergeHow) *Records {
	merged := NewRecords()
	matched := make(map[*Record]struct{})

	for _, l := range left.items {
		key, ok := l.Get(joinKey)
		if !ok {
			if how.keepLeft() {
				merged.Append(l.Clone())
			}
			continue
		}

		var hit *Record
		for _, r := range right.items {
			rkey, ok := r.Get(joinKey)
			if ok && rkey == key {
				hit = r
				break
			}
		}
		if hit != nil {
			matched[hit] = struct{}{}
			row := hit.Clone()
			row.Merge(l)
			merged.Append(row)
			continue
		}
		if how.keepLeft() {
			merged.Append(l.Clone())
		}
	}

	if how.keepRight() {
		for _, r := range right.items {
			if _, ok := matched[r]; !ok {
				merged.Append(r.Clone())
			}
		}
	}

	merged.SetColumns(unionColumns(left, right)...)
	return merged
}

type mergeSide int

const (
	sideLeft mergeSide = iota
	sideRight
)

type seqEntry struct {
	rec     *Record
	side    mergeSide
	sortVal uint64
	hasSort bool
	hasKey  bool
	keyVal  uint64
}

// SequentialOptions tunes MergeSequential. JoinKey empty means every pair of
// rows is key-compatible. Sort keys default to the stamp keys.
type SequentialOptions struct {
	LeftStampKey  string
	RightStampKey string
	JoinKey       string
	How           MergeHow
	LeftSortKey   string
	RightSortKey  string
}

// MergeSequential correlates each left row with the nearest subsequent right
// row (by stamp) that shares its join key. The match is rejected when another
// left row with the same key sits strictly between the two, since the closer
// left owns that right. Each row is consumed at most once.
func MergeSequential(left, right *Records, opts SequentialOptions) *Records {
	leftSort := opts.LeftSortKey
	if leftSort == "" {
		leftSort = opts.LeftStampKey
	}
	rightSort := opts.RightSortKey
	if rightSort == "" {
		rightSort = opts.RightStampKey
	}

	entries := make([]*seqEntry, 0, left.Len()+right.Len())
	appendEntries := func(rs *Records, side mergeSide, sortKey string) {
		for _, r := range rs.items {
			e := &seqEntry{rec: r, side: side}
			e.sortVal, e.hasSort = r.Get(sortKey)
			if opts.JoinKey == "" {
				e.hasKey = true
			} else {
				e.keyVal, e.hasKey = r.Get(opts.JoinKey)
			}
			entries = append(entries, e)
		}
	}
	appendEntries(left, sideLeft, leftSort)
	appendEntries(right, sideRight, rightSort)

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].hasSort != entries[j].hasSort {
			return !entries[i].hasSort
		}
		return entries[i].sortVal < entries[j].sortVal
	})

	merged := NewRecords()
	consumed := make(map[*seqEntry]struct{})

	keyMatched := func(a, b *seqEntry) bool {
		if opts.JoinKey == "" {
			return true
		}
		return a.hasKey && b.hasKey && a.keyVal == b.keyVal
	}

	for i, cur := range entries {
		if _, done := consumed[cur]; done {
			continue
		}

		if !cur.hasSort || !cur.hasKey {
			if cur.side == sideRight && opts.How.keepRight() ||
				cur.side == sideLeft && opts.How.keepLeft() {
				merged.Append(cur.rec.Clone())
				consumed[cur] = struct{}{}
			}
			continue
		}

		if cur.side == sideRight {
			if opts.How.keepRight() {
				merged.Append(cur.rec.Clone())
				consumed[cur] = struct{}{}
			}
			continue
		}

		var nextLeft, sub *seqEntry
		for _, cand := range entries[i+1:] {
			if nextLeft != nil && sub != nil {
				break
			}
			if !cand.hasSort || !keyMatched(cand, cur) {
				continue
			}
			if cand.side == sideLeft && nextLeft == nil {
				nextLeft = cand
			}
			if cand.side == sideRight && sub == nil {
				sub = cand
			}
		}

		interceptingLeft := nextLeft != nil && sub != nil && nextLeft.sortVal < sub.sortVal
		if sub == nil || interceptingLeft {
			if opts.How.keepLeft() {
				merged.Append(cur.rec.Clone())
				consumed[cur] = struct{}{}
			}
			continue
		}
		if _, done := consumed[sub]; done {
			if opts.How.keepLeft() {
				merged.Append(cur.rec.Clone())
				consumed[cur] = struct{}{}
			}
			continue
		}

		row := cur.rec.Clone()
		row.Merge(sub.rec)
		merged.Append(row)
		consumed[cur] = struct{}{}
		consumed[sub] = struct{}{}
	}

	merged.SetColumns(unionColumns(left, right)...)
	return merged
}

// CopyOptions names the columns MergeSequentialWithCopy works over. Source
// rows own an address, copy rows duplicate one address to another, sink rows
// consume an address.
type CopyOptions struct {
	SourceStampKey string
	SourceKey      string
	CopyStampKey   string
	CopyFromKey    string
	CopyToKey      string
	SinkStampKey   string
	SinkFromKey    string
}

type copyKind int

const (
	kindSource copyKind = iota
	kindCopy
	kindSink
)

type copyEntry struct {
	rec   *Record
	kind  copyKind
	stamp uint64
	addrs map[uint64]struct{}
}

// MergeSequentialWithCopy correlates source rows with the sink rows that
// later consumed the source's address, following copy rows that re-address
// the data in between. The scan runs in reverse chronological order so that
// sinks whose source never shows up are simply abandoned instead of
// accumulating. Each output row is the sink row overlaid with its source.
func MergeSequentialWithCopy(source, copies, sink *Records, opts CopyOptions) *Records {
	entries := make([]*copyEntry, 0, source.Len()+copies.Len()+sink.Len())
	appendEntries := func(rs *Records, kind copyKind, stampKey string) {
		for _, r := range rs.items {
			entries = append(entries, &copyEntry{
				rec:   r,
				kind:  kind,
				stamp: r.MustGet(stampKey),
			})
		}
	}
	appendEntries(source, kindSource, opts.SourceStampKey)
	appendEntries(copies, kindCopy, opts.CopyStampKey)
	appendEntries(sink, kindSink, opts.SinkStampKey)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].stamp > entries[j].stamp
	})

	merged := NewRecords()
	var processing []*copyEntry

	// Two sinks reached through a shared copy are aliases of the same data
	// and must track the same address set from then on.
	mergeAliases := func(p *copyEntry) {
		for _, q := range processing {
			if q == p {
				continue
			}
			if !intersects(q.addrs, p.addrs) || setsEqual(q.addrs, p.addrs) {
				continue
			}
			union := unionSets(p.addrs, q.addrs)
			p.addrs = union
			q.addrs = union
		}
	}

	for _, e := range entries {
		switch e.kind {
		case kindSink:
			e.addrs = map[uint64]struct{}{e.rec.MustGet(opts.SinkFromKey): {}}
			processing = append(processing, e)

		case kindCopy:
			to := e.rec.MustGet(opts.CopyToKey)
			for _, p := range processing {
				if _, ok := p.addrs[to]; ok {
					p.addrs[e.rec.MustGet(opts.CopyFromKey)] = struct{}{}
					mergeAliases(p)
					break
				}
			}

		case kindSource:
			addr := e.rec.MustGet(opts.SourceKey)
			remaining := processing[:0]
			for _, p := range processing {
				if _, ok := p.addrs[addr]; ok {
					row := p.rec.Clone()
					row.Merge(e.rec)
					merged.Append(row)
					continue
				}
				remaining = append(remaining, p)
			}
			processing = remaining
		}
	}

	merged.SetColumns(unionColumns(source, sink)...)
	return merged
}

func unionColumns(tables ...*Records) []string {
	set := map[string]struct{}{}
	for _, t := range tables {
		for c := range t.columns {
			set[c] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func unionSets(a, b map[uint64]struct{}) map[uint64]struct{} {
	union := make(map[uint64]struct{}, len(a)+len(b))
	for k := range a {
		union[k] = struct{}{}
	}
	for k := range b {
		union[k] = struct{}{}
	}
	return union
}

func intersects(a, b map[uint64]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func setsEqual(a, b map[uint64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
