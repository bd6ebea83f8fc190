// Package processor turns a time-ordered event sequence into a model.DataModel.
package processor

import (
	"errors"
	"fmt"

	"github.com/hsgwa/trace-analysis/pkg/logging"
	"github.com/hsgwa/trace-analysis/pkg/metrics"
	"github.com/hsgwa/trace-analysis/pkg/model"
	"github.com/hsgwa/trace-analysis/pkg/record"
	"github.com/hsgwa/trace-analysis/pkg/trace"
)

// ErrMissingRequiredKind reports that the input lacks an event kind the model
// cannot be built without.
var ErrMissingRequiredKind = errors.New("required event kind missing")

// requiredKinds must each appear at least once in any processable trace.
var requiredKinds = []trace.Kind{
	trace.KindContextInit,
}

type openStart struct {
	startTime uint64
	intra     bool
}

// Processor consumes instrumentation events and populates a DataModel.
// Events must arrive in non-decreasing timestamp order. A Processor is not
// safe for concurrent use.
type Processor struct {
	logger  logging.Logger
	metrics *metrics.Registry

	data *model.DataModel

	// open callback starts per callback object, innermost last
	open map[uint64][]openStart

	unmatchedEnds int
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger overrides the default logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(p *Processor) { p.metrics = m }
}

// New creates a Processor.
func New(opts ...Option) *Processor {
	p := &Processor{
		logger:  logging.DefaultLogger().With(logging.Component("processor")),
		metrics: metrics.DefaultRegistry(),
		data:    model.NewDataModel(),
		open:    map[uint64][]openStart{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the whole event sequence and returns the finished model.
// Missing required kinds fail before any event is handled.
func (p *Processor) Process(events []trace.Event) (*model.DataModel, error) {
	if err := checkRequiredKinds(events); err != nil {
		return nil, err
	}

	for _, ev := range events {
		p.handle(ev)
	}
	p.finalize()

	p.logger.Info("trace processed",
		logging.Count(len(events)),
		logging.Int("paired_instances", p.data.CallbackInstances.Len()),
		logging.Int("open_instances", p.data.OpenInstances().Len()),
		logging.Int("unmatched_ends", p.unmatchedEnds),
	)

	return p.data, nil
}

func checkRequiredKinds(events []trace.Event) error {
	seen := map[trace.Kind]struct{}{}
	for _, ev := range events {
		seen[ev.EventKind()] = struct{}{}
	}
	for _, kind := range requiredKinds {
		if _, ok := seen[kind]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredKind, kind)
		}
	}
	return nil
}

func (p *Processor) handle(ev trace.Event) {
	switch e := ev.(type) {
	case trace.ContextInit:
		p.data.Contexts.Insert(e.ContextHandle, e.Timestamp, model.Context{
			Handle:   e.ContextHandle,
			InitTime: e.Timestamp,
			PID:      e.PID,
			Version:  e.Version,
		})

	case trace.NodeInit:
		p.data.Nodes.Insert(e.NodeHandle, e.Timestamp, model.Node{
			Handle:    e.NodeHandle,
			InitTime:  e.Timestamp,
			TID:       e.TID,
			RMWHandle: e.RMWHandle,
			Name:      e.Name,
			Namespace: e.Namespace,
		})

	case trace.PublisherInit:
		p.data.Publishers.Insert(e.PublisherHandle, e.Timestamp, model.Publisher{
			Handle:     e.PublisherHandle,
			InitTime:   e.Timestamp,
			NodeHandle: e.NodeHandle,
			RMWHandle:  e.RMWHandle,
			TopicName:  e.TopicName,
			QueueDepth: e.QueueDepth,
		})

	case trace.SubscriptionInit:
		p.data.Subscriptions.Insert(e.SubscriptionHandle, e.Timestamp, model.Subscription{
			Handle:     e.SubscriptionHandle,
			InitTime:   e.Timestamp,
			NodeHandle: e.NodeHandle,
			RMWHandle:  e.RMWHandle,
			TopicName:  e.TopicName,
			QueueDepth: e.QueueDepth,
		})

	case trace.ServiceInit:
		p.data.Services.Insert(e.ServiceHandle, e.Timestamp, model.Service{
			Handle:      e.ServiceHandle,
			InitTime:    e.Timestamp,
			NodeHandle:  e.NodeHandle,
			RMWHandle:   e.RMWHandle,
			ServiceName: e.ServiceName,
		})

	case trace.ClientInit:
		p.data.Clients.Insert(e.ClientHandle, e.Timestamp, model.Client{
			Handle:      e.ClientHandle,
			InitTime:    e.Timestamp,
			NodeHandle:  e.NodeHandle,
			RMWHandle:   e.RMWHandle,
			ServiceName: e.ServiceName,
		})

	case trace.TimerInit:
		p.data.Timers.Insert(e.TimerHandle, e.Timestamp, model.Timer{
			Handle:   e.TimerHandle,
			InitTime: e.Timestamp,
			Period:   e.Period,
			TID:      e.TID,
		})

	case trace.TimerNodeLink:
		p.data.TimerNodeLinks.Insert(e.TimerHandle, e.Timestamp, model.TimerNodeLink{
			TimerHandle: e.TimerHandle,
			InitTime:    e.Timestamp,
			NodeHandle:  e.NodeHandle,
		})

	case trace.CallbackObjectLink:
		p.data.CallbackObjects.Insert(e.OwnerHandle, e.Timestamp, model.CallbackObject{
			OwnerHandle:    e.OwnerHandle,
			InitTime:       e.Timestamp,
			CallbackObject: e.CallbackObject,
		})

	case trace.CallbackSymbolLink:
		p.data.CallbackSymbols.Insert(e.CallbackObject, e.Timestamp, model.CallbackSymbol{
			CallbackObject: e.CallbackObject,
			InitTime:       e.Timestamp,
			Symbol:         e.Symbol,
		})

	case trace.LifecycleStateMachineInit:
		p.data.LifecycleStateMachines.Insert(e.StateMachineHandle, e.Timestamp, model.LifecycleStateMachine{
			Handle:     e.StateMachineHandle,
			InitTime:   e.Timestamp,
			NodeHandle: e.NodeHandle,
		})

	case trace.LifecycleTransition:
		p.data.LifecycleTransitions = append(p.data.LifecycleTransitions, model.LifecycleTransition{
			StateMachineHandle: e.StateMachineHandle,
			Timestamp:          e.Timestamp,
			StartLabel:         e.StartLabel,
			GoalLabel:          e.GoalLabel,
		})

	case trace.CallbackStart:
		p.open[e.CallbackObject] = append(p.open[e.CallbackObject], openStart{
			startTime: e.Timestamp,
			intra:     e.IsIntraProcess,
		})

	case trace.CallbackEnd:
		p.closeInstance(e)

	case trace.ApplicationPublish:
		p.data.ApplicationPublishes.Append(record.New(map[string]uint64{
			model.ColAppPublishTimestamp: e.Timestamp,
			model.ColPublisherHandle:     e.PublisherHandle,
			model.ColMessage:             e.Message,
		}))

	case trace.MiddlewarePublish:
		p.data.MiddlewarePublishes.Append(record.New(map[string]uint64{
			model.ColMidPublishTimestamp: e.Timestamp,
			model.ColPublisherHandle:     e.PublisherHandle,
			model.ColMessage:             e.Message,
		}))

	case trace.IntraProcessPublish:
		p.data.IntraProcessPublishes.Append(record.New(map[string]uint64{
			model.ColIntraPublishTimestamp: e.Timestamp,
			model.ColPublisherHandle:       e.PublisherHandle,
			model.ColMessage:               e.Message,
		}))

	case trace.MessageConstruct:
		p.data.MessageConstructs.Append(record.New(map[string]uint64{
			model.ColMessageConstructTimestamp: e.Timestamp,
			model.ColOriginalMessage:           e.OriginalMessage,
			model.ColConstructedMessage:        e.ConstructedMessage,
		}))

	case trace.Dispatch:
		p.data.Dispatches.Append(record.New(map[string]uint64{
			model.ColDispatchTimestamp: e.Timestamp,
			model.ColCallbackObject:    e.CallbackObject,
			model.ColMessage:           e.Message,
		}))

	case trace.IntraProcessDispatch:
		p.data.IntraProcessDispatches.Append(record.New(map[string]uint64{
			model.ColIntraDispatchTimestamp: e.Timestamp,
			model.ColCallbackObject:         e.CallbackObject,
			model.ColMessage:                e.Message,
		}))

	case trace.TransportWrite:
		p.data.TransportWrites.Append(record.New(map[string]uint64{
			model.ColTransportWriteTimestamp: e.Timestamp,
			model.ColMessage:                 e.Message,
		}))

	case trace.TransportAvailable:
		p.data.TransportAvailables.Append(record.New(map[string]uint64{
			model.ColTransportAvailTimestamp: e.Timestamp,
			model.ColSourceTimestamp:         e.SourceTimestamp,
		}))

	case trace.TransportTake:
		p.data.TransportTakes.Append(record.New(map[string]uint64{
			model.ColTransportTakeTimestamp: e.Timestamp,
			model.ColSourceTimestamp:        e.SourceTimestamp,
			model.ColMessage:                e.Message,
		}))

	case trace.AddressToStampBind:
		p.data.StampBinds.Append(record.New(map[string]uint64{
			model.ColStampBindTimestamp: e.Timestamp,
			model.ColAddr:               e.Address,
			model.ColSourceTimestamp:    e.SourceTimestamp,
		}))

	case trace.AddressToAddressBind:
		p.data.AddressBinds.Append(record.New(map[string]uint64{
			model.ColAddrBindTimestamp: e.Timestamp,
			model.ColAddrFrom:          e.AddressFrom,
			model.ColAddrTo:            e.AddressTo,
		}))

	case trace.Unknown:
		p.metrics.RecordUnknownEvent()
		p.logger.Debug("skipping unknown event", logging.Kind(e.Name), logging.Timestamp(e.Timestamp))
		return

	default:
		p.metrics.RecordUnknownEvent()
		p.logger.Debug("skipping unhandled event", logging.Kind(string(ev.EventKind())))
		return
	}

	p.metrics.RecordEvent(string(ev.EventKind()))
}

// closeInstance pairs an end event with the most recent still-open start of
// the same callback object.
func (p *Processor) closeInstance(e trace.CallbackEnd) {
	stack := p.open[e.CallbackObject]
	if len(stack) == 0 {
		p.unmatchedEnds++
		p.logger.Warn("callback end without open start",
			logging.Handle(e.CallbackObject),
			logging.Timestamp(e.Timestamp),
		)
		return
	}

	start := stack[len(stack)-1]
	p.open[e.CallbackObject] = stack[:len(stack)-1]

	p.data.CallbackInstances.Append(record.New(map[string]uint64{
		model.ColCallbackObject:         e.CallbackObject,
		model.ColCallbackStartTimestamp: start.startTime,
		model.ColCallbackEndTimestamp:   e.Timestamp,
		model.ColIsIntraProcess:         boolToUint(start.intra),
	}))
}

// finalize moves still-open starts into the model's open-instance table and
// sorts the paired instances by start time, since pairing emits them in end
// order.
func (p *Processor) finalize() {
	for object, stack := range p.open {
		for _, start := range stack {
			p.data.AddOpenInstance(record.New(map[string]uint64{
				model.ColCallbackObject:         object,
				model.ColCallbackStartTimestamp: start.startTime,
				model.ColIsIntraProcess:         boolToUint(start.intra),
			}))
		}
	}
	p.data.OpenInstances().SortByColumn(model.ColCallbackStartTimestamp)
	p.data.CallbackInstances.SortByColumn(model.ColCallbackStartTimestamp)

	p.metrics.RecordProcessingResult(
		p.data.CallbackInstances.Len(),
		p.data.OpenInstances().Len(),
	)
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
