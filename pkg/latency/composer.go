// Package latency correlates the instance tables of a processed trace along
// architecture edges, producing per-callback, per-communication and
// per-path latency records.
package latency

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/elastic/go-freelru"

	"github.com/hsgwa/trace-analysis/pkg/arch"
	"github.com/hsgwa/trace-analysis/pkg/logging"
	"github.com/hsgwa/trace-analysis/pkg/metrics"
	"github.com/hsgwa/trace-analysis/pkg/model"
	"github.com/hsgwa/trace-analysis/pkg/record"
)

// Sentinel errors for latency composition.
var (
	// ErrNoRuntimeData is returned when composition is asked about an
	// architecture element carrying no trace handles, typically one imported
	// from YAML.
	ErrNoRuntimeData = errors.New("no runtime data for architecture element")

	// ErrDisconnectedPath is returned when adjacent callbacks of a path share
	// no communication or variable passing edge.
	ErrDisconnectedPath = errors.New("no edge connects adjacent callbacks")
)

// commCacheSize bounds the per-edge record cache. Node all-pairs path
// collections revisit the same edges repeatedly, so hit rates are high even
// with a modest capacity.
const commCacheSize = 512

type commCacheKey struct {
	publisherHandle uint64
	callbackObject  uint64
	intra           bool
}

// hashCommCacheKey returns a 32 bit hash of the cache key.
func hashCommCacheKey(k commCacheKey) uint32 {
	var buf [17]byte
	binary.LittleEndian.PutUint64(buf[0:], k.publisherHandle)
	binary.LittleEndian.PutUint64(buf[8:], k.callbackObject)
	if k.intra {
		buf[16] = 1
	}
	h := fnv.New32a()
	h.Write(buf[:])
	return h.Sum32()
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger overrides the default logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Composer) { c.metrics = m }
}

// Composer holds the globally composed communication tables of one trace and
// slices per-edge views out of them on demand. The global composition runs
// once at construction; per-edge slices are memoized in an LRU cache.
//
// A Composer is not safe for concurrent use.
type Composer struct {
	logger  logging.Logger
	metrics *metrics.Registry

	timerRecords    *record.Records
	subInterRecords *record.Records
	subIntraRecords *record.Records

	// interComm and intraComm still carry the publisher handle and callback
	// object columns so per-edge slices can be cut from them.
	interComm *record.Records
	intraComm *record.Records

	cache *freelru.LRU[commCacheKey, *record.Records]
}

// NewComposer pre-composes the global communication tables from a processed
// trace.
func NewComposer(data *model.DataModel, opts ...Option) (*Composer, error) {
	c := &Composer{
		logger:  logging.DefaultLogger().With(logging.Component("latency")),
		metrics: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}

	cache, err := freelru.New[commCacheKey, *record.Records](commCacheSize, hashCommCacheKey)
	if err != nil {
		return nil, fmt.Errorf("latency: building edge cache: %w", err)
	}
	c.cache = cache

	c.splitCallbackInstances(data)
	c.interComm = composeInterRecords(data, c.subInterRecords)
	c.intraComm = composeIntraRecords(data, c.subIntraRecords)

	c.logger.Info("communication tables composed",
		logging.Int("inter_rows", c.interComm.Len()),
		logging.Int("intra_rows", c.intraComm.Len()))
	return c, nil
}

// splitCallbackInstances partitions the paired callback instances by owner
// type: timer callbacks, and subscription callbacks split by the
// intra-process flag.
func (c *Composer) splitCallbackInstances(data *model.DataModel) {
	timerObjects := map[uint64]struct{}{}
	subObjects := map[uint64]struct{}{}
	data.CallbackObjects.Each(func(owner, _ uint64, obj model.CallbackObject) bool {
		switch {
		case data.Timers.Generations(owner) > 0:
			timerObjects[obj.CallbackObject] = struct{}{}
		case data.Subscriptions.Generations(owner) > 0:
			subObjects[obj.CallbackObject] = struct{}{}
		}
		return true
	})

	isObject := func(set map[uint64]struct{}) func(*record.Record) bool {
		return func(r *record.Record) bool {
			obj, ok := r.Get(model.ColCallbackObject)
			if !ok {
				return false
			}
			_, hit := set[obj]
			return hit
		}
	}

	c.timerRecords = data.CallbackInstances.Filter(isObject(timerObjects))

	subs := data.CallbackInstances.Filter(isObject(subObjects))
	c.subIntraRecords = subs.Filter(func(r *record.Record) bool {
		return r.MustGet(model.ColIsIntraProcess) != 0
	})
	c.subInterRecords = subs.Filter(func(r *record.Record) bool {
		return r.MustGet(model.ColIsIntraProcess) == 0
	})
}

// composeInterRecords builds the global inter-process table: application
// publish through the transport layer to the subscription callback start.
// The message pointer joins each side of the serialization boundary, the
// source timestamp joins across it.
func composeInterRecords(data *model.DataModel, subCallbacks *record.Records) *record.Records {
	// The transport write is bound to its source timestamp through address
	// re-binding rows.
	write := record.MergeSequentialWithCopy(
		data.TransportWrites, data.AddressBinds, data.StampBinds,
		record.CopyOptions{
			SourceStampKey: model.ColTransportWriteTimestamp,
			SourceKey:      model.ColMessage,
			CopyStampKey:   model.ColAddrBindTimestamp,
			CopyFromKey:    model.ColAddrFrom,
			CopyToKey:      model.ColAddrTo,
			SinkStampKey:   model.ColStampBindTimestamp,
			SinkFromKey:    model.ColAddr,
		})

	publish := record.MergeSequential(data.ApplicationPublishes, data.MiddlewarePublishes,
		record.SequentialOptions{
			LeftStampKey:  model.ColAppPublishTimestamp,
			RightStampKey: model.ColMidPublishTimestamp,
			JoinKey:       model.ColMessage,
			How:           record.MergeLeft,
		})
	publish = record.MergeSequential(publish, write,
		record.SequentialOptions{
			LeftStampKey:  model.ColMidPublishTimestamp,
			RightStampKey: model.ColTransportWriteTimestamp,
			JoinKey:       model.ColMessage,
			How:           record.MergeLeft,
		})

	sub := record.MergeSequential(data.TransportTakes, data.Dispatches,
		record.SequentialOptions{
			LeftStampKey:  model.ColTransportTakeTimestamp,
			RightStampKey: model.ColDispatchTimestamp,
			JoinKey:       model.ColMessage,
			How:           record.MergeLeft,
		})
	sub = record.MergeSequential(sub, subCallbacks.DropColumns(model.ColCallbackEndTimestamp),
		record.SequentialOptions{
			LeftStampKey:  model.ColDispatchTimestamp,
			RightStampKey: model.ColCallbackStartTimestamp,
			JoinKey:       model.ColCallbackObject,
			How:           record.MergeLeft,
		})

	comm := record.Merge(publish, data.TransportAvailables, model.ColSourceTimestamp, record.MergeLeft)
	comm = record.Merge(comm, sub, model.ColSourceTimestamp, record.MergeLeft)

	return comm.DropColumns(
		model.ColAddr,
		model.ColMessage,
		model.ColSourceTimestamp,
		model.ColStampBindTimestamp,
		model.ColTransportTakeTimestamp,
		model.ColDispatchTimestamp,
		model.ColIsIntraProcess,
	)
}

// composeIntraRecords builds the global intra-process table: intra publish
// through in-process dispatch to the callback start, short-circuiting the
// transport layer. Message construction rows re-address the payload the same
// way address binds do on the transport side.
func composeIntraRecords(data *model.DataModel, subCallbacks *record.Records) *record.Records {
	publish := record.MergeSequentialWithCopy(
		data.IntraProcessPublishes, data.MessageConstructs, data.IntraProcessDispatches,
		record.CopyOptions{
			SourceStampKey: model.ColIntraPublishTimestamp,
			SourceKey:      model.ColMessage,
			CopyStampKey:   model.ColMessageConstructTimestamp,
			CopyFromKey:    model.ColOriginalMessage,
			CopyToKey:      model.ColConstructedMessage,
			SinkStampKey:   model.ColIntraDispatchTimestamp,
			SinkFromKey:    model.ColMessage,
		})

	intra := record.MergeSequential(publish, subCallbacks,
		record.SequentialOptions{
			LeftStampKey:  model.ColIntraDispatchTimestamp,
			RightStampKey: model.ColCallbackStartTimestamp,
			JoinKey:       model.ColCallbackObject,
			How:           record.MergeLeft,
		})

	return intra.DropColumns(
		model.ColIntraDispatchTimestamp,
		model.ColMessage,
		model.ColCallbackEndTimestamp,
		model.ColIsIntraProcess,
	)
}

// CallbackRecords returns the paired start/end instances of one callback,
// sorted by start time.
func (c *Composer) CallbackRecords(cb *arch.Callback) (*record.Records, error) {
	start := time.Now()
	if cb.Object == 0 {
		c.metrics.RecordCompose("callback", "no_runtime_data", time.Since(start))
		return nil, fmt.Errorf("latency: callback %s: %w", cb.UniqueName(), ErrNoRuntimeData)
	}

	byObject := func(r *record.Record) bool {
		obj, ok := r.Get(model.ColCallbackObject)
		return ok && obj == cb.Object
	}

	var out *record.Records
	if cb.IsSubscription() {
		out = c.subInterRecords.Filter(byObject)
		out.Concat(c.subIntraRecords.Filter(byObject))
	} else {
		out = c.timerRecords.Filter(byObject)
	}
	out = out.DropColumns(model.ColCallbackObject, model.ColIsIntraProcess)
	out.SortByColumn(model.ColCallbackStartTimestamp)

	c.metrics.RecordCompose("callback", "ok", time.Since(start))
	return out, nil
}

// InterProcessRecords returns the transport-layer records of one
// communication edge.
func (c *Composer) InterProcessRecords(comm *arch.Communication) (*record.Records, error) {
	return c.commRecords(comm, false)
}

// IntraProcessRecords returns the in-process records of one communication
// edge.
func (c *Composer) IntraProcessRecords(comm *arch.Communication) (*record.Records, error) {
	return c.commRecords(comm, true)
}

// IsIntraProcess reports whether the edge carried any in-process traffic.
// Edges publishing in-process never touch the transport layer, so a single
// observed intra record decides.
func (c *Composer) IsIntraProcess(comm *arch.Communication) (bool, error) {
	intra, err := c.IntraProcessRecords(comm)
	if err != nil {
		return false, err
	}
	return intra.Len() > 0, nil
}

// CommunicationRecords picks the in-process or transport-layer records of an
// edge, whichever the trace shows the edge used.
func (c *Composer) CommunicationRecords(comm *arch.Communication) (*record.Records, bool, error) {
	intra, err := c.IsIntraProcess(comm)
	if err != nil {
		return nil, false, err
	}
	var recs *record.Records
	if intra {
		recs, err = c.IntraProcessRecords(comm)
	} else {
		recs, err = c.InterProcessRecords(comm)
	}
	return recs, intra, err
}

func (c *Composer) commRecords(comm *arch.Communication, intra bool) (*record.Records, error) {
	edgeType := "inter"
	sortColumn := model.ColAppPublishTimestamp
	base := c.interComm
	if intra {
		edgeType = "intra"
		sortColumn = model.ColIntraPublishTimestamp
		base = c.intraComm
	}

	start := time.Now()
	if len(comm.PublisherHandles) == 0 || comm.Subscribe.Object == 0 {
		c.metrics.RecordCompose(edgeType, "no_runtime_data", time.Since(start))
		return nil, fmt.Errorf("latency: communication on %s: %w", comm.TopicName, ErrNoRuntimeData)
	}

	out := record.NewRecords()
	for _, handle := range comm.PublisherHandles {
		part := c.edgeSlice(base, handle, comm.Subscribe.Object, intra)
		out.Concat(part.Clone())
	}
	out.SetColumns(base.Columns()...)
	out = out.DropColumns(model.ColCallbackObject, model.ColPublisherHandle)
	out.SortByColumn(sortColumn)

	c.metrics.RecordCompose(edgeType, "ok", time.Since(start))
	return out, nil
}

// edgeSlice cuts one (publisher handle, subscription callback) slice out of
// a global communication table. Rows that never reached any callback keep no
// callback object and stay attributed to the publisher, so dropped messages
// remain visible per edge.
func (c *Composer) edgeSlice(base *record.Records, handle, object uint64, intra bool) *record.Records {
	key := commCacheKey{publisherHandle: handle, callbackObject: object, intra: intra}
	if part, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit()
		return part
	}
	c.metrics.RecordCacheMiss()

	part := base.Filter(func(r *record.Record) bool {
		ph, ok := r.Get(model.ColPublisherHandle)
		if !ok || ph != handle {
			return false
		}
		obj, ok := r.Get(model.ColCallbackObject)
		return !ok || obj == object
	})
	c.cache.Add(key, part)
	return part
}

// VariablePassingRecords correlates each write callback end with the nearest
// following read callback start.
func (c *Composer) VariablePassingRecords(vp *arch.VariablePassing) (*record.Records, error) {
	start := time.Now()

	write, err := c.CallbackRecords(vp.Write)
	if err != nil {
		c.metrics.RecordCompose("variable_passing", "no_runtime_data", time.Since(start))
		return nil, err
	}
	read, err := c.CallbackRecords(vp.Read)
	if err != nil {
		c.metrics.RecordCompose("variable_passing", "no_runtime_data", time.Since(start))
		return nil, err
	}

	out := record.MergeSequential(
		write.DropColumns(model.ColCallbackStartTimestamp),
		read.DropColumns(model.ColCallbackEndTimestamp),
		record.SequentialOptions{
			LeftStampKey:  model.ColCallbackEndTimestamp,
			RightStampKey: model.ColCallbackStartTimestamp,
			How:           record.MergeLeft,
		})
	out.SortByColumn(model.ColCallbackEndTimestamp)

	c.metrics.RecordCompose("variable_passing", "ok", time.Since(start))
	return out, nil
}
