package latency

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hsgwa/trace-analysis/pkg/arch"
	"github.com/hsgwa/trace-analysis/pkg/model"
	"github.com/hsgwa/trace-analysis/pkg/record"
)

type elementKind int

const (
	elemCallback elementKind = iota
	elemCommunication
	elemVariablePassing
)

// pathElement is one link of a composed path: a callback or one of the two
// edge types between callbacks.
type pathElement struct {
	kind elementKind
	cb   *arch.Callback
	comm *arch.Communication
	vp   *arch.VariablePassing
}

// Path is an alternating chain of callbacks and edges, ready for latency
// composition. Build one with NewPath.
type Path struct {
	composer  *Composer
	callbacks []*arch.Callback
	elements  []*pathElement

	// gaps lists adjacent callback pairs no edge connects. A path with gaps
	// can still be inspected but not composed.
	gaps []string
}

// NewPath chains the given callbacks with the communication or variable
// passing edges the architecture holds between each adjacent pair.
func NewPath(a *arch.Architecture, callbacks []*arch.Callback, composer *Composer) *Path {
	p := &Path{composer: composer, callbacks: callbacks}
	for i, cb := range callbacks {
		if i > 0 {
			prev := callbacks[i-1]
			switch {
			case edgeComm(a, prev, cb) != nil:
				p.elements = append(p.elements, &pathElement{kind: elemCommunication, comm: edgeComm(a, prev, cb)})
			case edgeVP(a, prev, cb) != nil:
				p.elements = append(p.elements, &pathElement{kind: elemVariablePassing, vp: edgeVP(a, prev, cb)})
			default:
				p.gaps = append(p.gaps, prev.UniqueName()+" -> "+cb.UniqueName())
			}
		}
		p.elements = append(p.elements, &pathElement{kind: elemCallback, cb: cb})
	}
	return p
}

func edgeComm(a *arch.Architecture, from, to *arch.Callback) *arch.Communication {
	comm, ok := a.CommunicationBetween(from, to)
	if !ok {
		return nil
	}
	return comm
}

func edgeVP(a *arch.Architecture, from, to *arch.Callback) *arch.VariablePassing {
	vp, ok := a.VariablePassingBetween(from, to)
	if !ok {
		return nil
	}
	return vp
}

// Callbacks returns the chained callbacks in order.
func (p *Path) Callbacks() []*arch.Callback {
	return p.callbacks
}

// CallbackNames returns the unique names of the chained callbacks.
func (p *Path) CallbackNames() []string {
	names := make([]string, len(p.callbacks))
	for i, cb := range p.callbacks {
		names[i] = cb.UniqueName()
	}
	return names
}

// Connected reports whether every adjacent callback pair has an edge.
func (p *Path) Connected() bool {
	return len(p.gaps) == 0
}

// Compose walks the chain left to right, merging each element's records into
// the accumulated table under per-hop column names, and reduces the result
// to latency samples.
func (p *Path) Compose() (*Samples, error) {
	if p.composer == nil {
		return nil, fmt.Errorf("latency: path has no trace bound: %w", ErrNoRuntimeData)
	}
	start := time.Now()
	if len(p.gaps) > 0 {
		p.composer.metrics.RecordCompose("path", "disconnected", time.Since(start))
		return nil, fmt.Errorf("latency: %s: %w", p.gaps[0], ErrDisconnectedPath)
	}
	if len(p.elements) == 0 {
		p.composer.metrics.RecordCompose("path", "empty", time.Since(start))
		return nil, fmt.Errorf("latency: empty path: %w", ErrDisconnectedPath)
	}

	m := &pathMerger{composer: p.composer, counter: columnCounter{}}
	if err := m.run(p.elements); err != nil {
		p.composer.metrics.RecordCompose("path", "error", time.Since(start))
		return nil, err
	}

	samples := newSamples(m.records, m.ordered)
	p.composer.metrics.RecordDroppedTraversals(samples.Dropped)
	p.composer.metrics.RecordCompose("path", "ok", time.Since(start))
	return samples, nil
}

// binding attributes one tracepoint column of an element to the callback it
// belongs to, in chronological order within the element.
type binding struct {
	tracepoint string
	owner      *arch.Callback
}

// columnCounter numbers repeated (callback, tracepoint) pairs along a path
// so every hop gets a distinct column name.
type columnCounter map[string]int

func (c columnCounter) increment(owner *arch.Callback, tracepoint string) {
	key := owner.UniqueName() + "/" + tracepoint
	if _, ok := c[key]; !ok {
		c[key] = 0
		return
	}
	c[key]++
}

func (c columnCounter) name(owner *arch.Callback, tracepoint string) string {
	key := owner.UniqueName() + "/" + tracepoint
	return key + "/" + strconv.Itoa(c[key])
}

type pathMerger struct {
	composer *Composer
	counter  columnCounter
	records  *record.Records
	ordered  []string
}

func (m *pathMerger) run(elements []*pathElement) error {
	first := elements[0]
	bindings, records, err := m.materialize(first)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		m.counter.increment(b.owner, b.tracepoint)
	}
	m.records = m.rename(records, bindings)
	m.appendOrdered(bindings)

	for i := 1; i < len(elements); i++ {
		prev, cur := elements[i-1], elements[i]
		if err := m.step(prev, cur); err != nil {
			return err
		}
	}
	return nil
}

// step merges the next element into the accumulated table. Edges leading
// into a callback join on the shared callback start column; callbacks
// leading into an edge correlate sequentially from the callback start to the
// edge's publish stamp; callbacks leading into a variable passing join on
// the shared callback end column.
func (m *pathMerger) step(prev, cur *pathElement) error {
	bindings, records, err := m.materialize(cur)
	if err != nil {
		return err
	}

	switch {
	case cur.kind == elemCallback:
		var joinTp string
		switch prev.kind {
		case elemCommunication, elemVariablePassing:
			joinTp = model.ColCallbackStartTimestamp
		default:
			return fmt.Errorf("latency: adjacent callbacks without an edge: %w", ErrDisconnectedPath)
		}
		m.merge(bindings, records, cur.cb, joinTp)

	case cur.kind == elemCommunication:
		intra, err := m.composer.IsIntraProcess(cur.comm)
		if err != nil {
			return err
		}
		rightTp := model.ColAppPublishTimestamp
		if intra {
			rightTp = model.ColIntraPublishTimestamp
		}
		m.mergeSequential(bindings, records,
			prev.cb, model.ColCallbackStartTimestamp,
			cur.comm.Publish, rightTp)

	case cur.kind == elemVariablePassing:
		m.merge(bindings, records, cur.vp.Write, model.ColCallbackEndTimestamp)
	}
	return nil
}

// merge joins on a column both sides already share: every binding except the
// join tracepoint is a new occurrence, the join column keeps its count.
func (m *pathMerger) merge(bindings []binding, records *record.Records, joinOwner *arch.Callback, joinTp string) {
	for _, b := range bindings {
		if b.owner == joinOwner && b.tracepoint == joinTp {
			continue
		}
		m.counter.increment(b.owner, b.tracepoint)
	}
	joinColumn := m.counter.name(joinOwner, joinTp)
	m.records = record.Merge(m.records, m.rename(records, bindings), joinColumn, record.MergeLeft)
	m.appendOrdered(bindings)
}

// mergeSequential correlates rows across a boundary with no shared column:
// every binding of the incoming element is a new occurrence and the left
// stamp is the previous callback's start column.
func (m *pathMerger) mergeSequential(bindings []binding, records *record.Records,
	leftOwner *arch.Callback, leftTp string, rightOwner *arch.Callback, rightTp string) {
	for _, b := range bindings {
		m.counter.increment(b.owner, b.tracepoint)
	}
	m.records = record.MergeSequential(m.records, m.rename(records, bindings),
		record.SequentialOptions{
			LeftStampKey:  m.counter.name(leftOwner, leftTp),
			RightStampKey: m.counter.name(rightOwner, rightTp),
			How:           record.MergeLeft,
		})
	m.appendOrdered(bindings)
}

// materialize fetches an element's records and the chronological bindings of
// its columns.
func (m *pathMerger) materialize(e *pathElement) ([]binding, *record.Records, error) {
	switch e.kind {
	case elemCallback:
		records, err := m.composer.CallbackRecords(e.cb)
		if err != nil {
			return nil, nil, err
		}
		return []binding{
			{model.ColCallbackStartTimestamp, e.cb},
			{model.ColCallbackEndTimestamp, e.cb},
		}, records, nil

	case elemCommunication:
		records, intra, err := m.composer.CommunicationRecords(e.comm)
		if err != nil {
			return nil, nil, err
		}
		if intra {
			return []binding{
				{model.ColIntraPublishTimestamp, e.comm.Publish},
				{model.ColCallbackStartTimestamp, e.comm.Subscribe},
			}, records, nil
		}
		return []binding{
			{model.ColAppPublishTimestamp, e.comm.Publish},
			{model.ColMidPublishTimestamp, e.comm.Publish},
			{model.ColTransportWriteTimestamp, e.comm.Publish},
			{model.ColTransportAvailTimestamp, e.comm.Subscribe},
			{model.ColCallbackStartTimestamp, e.comm.Subscribe},
		}, records, nil

	default:
		records, err := m.composer.VariablePassingRecords(e.vp)
		if err != nil {
			return nil, nil, err
		}
		return []binding{
			{model.ColCallbackEndTimestamp, e.vp.Write},
			{model.ColCallbackStartTimestamp, e.vp.Read},
		}, records, nil
	}
}

// rename maps an element's global column names onto their per-hop names
// under the current counts.
func (m *pathMerger) rename(records *record.Records, bindings []binding) *record.Records {
	renames := make(map[string]string, len(bindings))
	for _, b := range bindings {
		renames[b.tracepoint] = m.counter.name(b.owner, b.tracepoint)
	}
	return records.RenameColumns(renames)
}

// appendOrdered extends the chronological column list, skipping columns
// already present: the join column of a hop appears once.
func (m *pathMerger) appendOrdered(bindings []binding) {
	for _, b := range bindings {
		name := m.counter.name(b.owner, b.tracepoint)
		dup := false
		for _, existing := range m.ordered {
			if existing == name {
				dup = true
				break
			}
		}
		if !dup {
			m.ordered = append(m.ordered, name)
		}
	}
}
