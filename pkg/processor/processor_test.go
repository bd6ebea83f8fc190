package processor

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsgwa/trace-analysis/pkg/logging"
	"github.com/hsgwa/trace-analysis/pkg/metrics"
	"github.com/hsgwa/trace-analysis/pkg/model"
	"github.com/hsgwa/trace-analysis/pkg/trace"
)

func newProcessor() *Processor {
	return New(
		WithLogger(logging.NewNopLogger()),
		WithMetrics(metrics.NewRegistry()),
	)
}

func TestProcessRequiresContextInit(t *testing.T) {
	p := newProcessor()

	_, err := p.Process([]trace.Event{
		trace.NodeInit{Timestamp: 10, NodeHandle: 0x10, Name: "talker"},
	})

	require.ErrorIs(t, err, ErrMissingRequiredKind)
}

func TestProcessEmptyInputFailsPrecondition(t *testing.T) {
	p := newProcessor()

	_, err := p.Process(nil)

	require.ErrorIs(t, err, ErrMissingRequiredKind)
}

func TestProcessBuildsEntityTables(t *testing.T) {
	p := newProcessor()

	data, err := p.Process([]trace.Event{
		trace.ContextInit{Timestamp: 1, ContextHandle: 0x1, PID: 42, Version: "1.0"},
		trace.NodeInit{Timestamp: 2, NodeHandle: 0x10, Name: "talker", Namespace: "/"},
		trace.PublisherInit{Timestamp: 3, PublisherHandle: 0x20, NodeHandle: 0x10, TopicName: "/chatter", QueueDepth: 10},
		trace.SubscriptionInit{Timestamp: 4, SubscriptionHandle: 0x30, NodeHandle: 0x10, TopicName: "/chatter", QueueDepth: 10},
		trace.TimerInit{Timestamp: 5, TimerHandle: 0x40, Period: 1000000},
		trace.TimerNodeLink{Timestamp: 6, TimerHandle: 0x40, NodeHandle: 0x10},
		trace.CallbackObjectLink{Timestamp: 7, OwnerHandle: 0x30, CallbackObject: 0xcb1},
		trace.CallbackSymbolLink{Timestamp: 8, CallbackObject: 0xcb1, Symbol: "Talker::onMsg"},
		trace.ServiceInit{Timestamp: 9, ServiceHandle: 0x50, NodeHandle: 0x10, ServiceName: "/set_params"},
		trace.ClientInit{Timestamp: 10, ClientHandle: 0x60, NodeHandle: 0x10, ServiceName: "/set_params"},
		trace.LifecycleStateMachineInit{Timestamp: 11, StateMachineHandle: 0x70, NodeHandle: 0x10},
		trace.LifecycleTransition{Timestamp: 12, StateMachineHandle: 0x70, StartLabel: "unconfigured", GoalLabel: "configuring"},
	})
	require.NoError(t, err)

	node, err := data.Nodes.Resolve(0x10, 100)
	require.NoError(t, err)
	assert.Equal(t, "talker", node.Name)

	pub, err := data.Publishers.Resolve(0x20, 100)
	require.NoError(t, err)
	assert.Equal(t, "/chatter", pub.TopicName)

	link, err := data.TimerNodeLinks.Resolve(0x40, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10), link.NodeHandle)

	obj, err := data.CallbackObjects.Resolve(0x30, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xcb1), obj.CallbackObject)

	sym, err := data.CallbackSymbols.ResolveFollowing(0xcb1, 7)
	require.NoError(t, err)
	assert.Equal(t, "Talker::onMsg", sym.Symbol)

	require.Len(t, data.LifecycleTransitions, 1)
	assert.Equal(t, "configuring", data.LifecycleTransitions[0].GoalLabel)
}

func TestCallbackPairingIsLIFO(t *testing.T) {
	p := newProcessor()

	// nested instances of the same callback object: the end at 50 closes the
	// start at 40, the end at 60 closes the start at 30
	data, err := p.Process([]trace.Event{
		trace.ContextInit{Timestamp: 1, ContextHandle: 0x1},
		trace.CallbackStart{Timestamp: 30, CallbackObject: 0xcb1},
		trace.CallbackStart{Timestamp: 40, CallbackObject: 0xcb1},
		trace.CallbackEnd{Timestamp: 50, CallbackObject: 0xcb1},
		trace.CallbackEnd{Timestamp: 60, CallbackObject: 0xcb1},
	})
	require.NoError(t, err)

	require.Equal(t, 2, data.CallbackInstances.Len())

	first := data.CallbackInstances.At(0)
	assert.Equal(t, uint64(30), first.MustGet(model.ColCallbackStartTimestamp))
	assert.Equal(t, uint64(60), first.MustGet(model.ColCallbackEndTimestamp))

	second := data.CallbackInstances.At(1)
	assert.Equal(t, uint64(40), second.MustGet(model.ColCallbackStartTimestamp))
	assert.Equal(t, uint64(50), second.MustGet(model.ColCallbackEndTimestamp))

	assert.Equal(t, 0, data.OpenInstances().Len())
}

func TestOpenInstancesAreKeptNotFailed(t *testing.T) {
	p := newProcessor()

	data, err := p.Process([]trace.Event{
		trace.ContextInit{Timestamp: 1, ContextHandle: 0x1},
		trace.CallbackStart{Timestamp: 10, CallbackObject: 0xcb1, IsIntraProcess: true},
		trace.CallbackStart{Timestamp: 20, CallbackObject: 0xcb2},
		trace.CallbackEnd{Timestamp: 30, CallbackObject: 0xcb2},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, data.CallbackInstances.Len())
	require.Equal(t, 1, data.OpenInstances().Len())

	open := data.OpenInstances().At(0)
	assert.Equal(t, uint64(0xcb1), open.MustGet(model.ColCallbackObject))
	assert.Equal(t, uint64(10), open.MustGet(model.ColCallbackStartTimestamp))
	assert.Equal(t, uint64(1), open.MustGet(model.ColIsIntraProcess))
	assert.False(t, open.Has(model.ColCallbackEndTimestamp))
}

func TestEndWithoutStartIsSkipped(t *testing.T) {
	p := newProcessor()

	data, err := p.Process([]trace.Event{
		trace.ContextInit{Timestamp: 1, ContextHandle: 0x1},
		trace.CallbackEnd{Timestamp: 10, CallbackObject: 0xcb1},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, data.CallbackInstances.Len())
	assert.Equal(t, 0, data.OpenInstances().Len())
}

func TestInstanceTablesArePopulated(t *testing.T) {
	p := newProcessor()

	data, err := p.Process([]trace.Event{
		trace.ContextInit{Timestamp: 1, ContextHandle: 0x1},
		trace.ApplicationPublish{Timestamp: 100, PublisherHandle: 0x20, Message: 0xaaa},
		trace.MiddlewarePublish{Timestamp: 101, PublisherHandle: 0x20, Message: 0xaaa},
		trace.TransportWrite{Timestamp: 102, Message: 0xbbb},
		trace.AddressToAddressBind{Timestamp: 103, AddressFrom: 0xaaa, AddressTo: 0xbbb},
		trace.AddressToStampBind{Timestamp: 104, Address: 0xbbb, SourceTimestamp: 9000},
		trace.TransportAvailable{Timestamp: 110, SourceTimestamp: 9000},
		trace.TransportTake{Timestamp: 111, Message: 0xccc, SourceTimestamp: 9000},
		trace.Dispatch{Timestamp: 112, CallbackObject: 0xcb1, Message: 0xccc},
		trace.IntraProcessPublish{Timestamp: 120, PublisherHandle: 0x20, Message: 0xddd},
		trace.MessageConstruct{Timestamp: 121, OriginalMessage: 0xddd, ConstructedMessage: 0xeee},
		trace.IntraProcessDispatch{Timestamp: 122, CallbackObject: 0xcb1, Message: 0xeee},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, data.ApplicationPublishes.Len())
	assert.Equal(t, 1, data.MiddlewarePublishes.Len())
	assert.Equal(t, 1, data.TransportWrites.Len())
	assert.Equal(t, 1, data.AddressBinds.Len())
	assert.Equal(t, 1, data.StampBinds.Len())
	assert.Equal(t, 1, data.TransportAvailables.Len())
	assert.Equal(t, 1, data.TransportTakes.Len())
	assert.Equal(t, 1, data.Dispatches.Len())
	assert.Equal(t, 1, data.IntraProcessPublishes.Len())
	assert.Equal(t, 1, data.MessageConstructs.Len())
	assert.Equal(t, 1, data.IntraProcessDispatches.Len())

	take := data.TransportTakes.At(0)
	assert.Equal(t, uint64(9000), take.MustGet(model.ColSourceTimestamp))
	assert.Equal(t, uint64(0xccc), take.MustGet(model.ColMessage))
}

func TestUnknownEventsAreCountedAndSkipped(t *testing.T) {
	reg := metrics.NewRegistry()
	p := New(WithLogger(logging.NewNopLogger()), WithMetrics(reg))

	data, err := p.Process([]trace.Event{
		trace.ContextInit{Timestamp: 1, ContextHandle: 0x1},
		trace.Unknown{Timestamp: 2, Name: "vendor_specific"},
		trace.Unknown{Timestamp: 3, Name: "vendor_specific"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, data.Contexts.Len())
}

// Whatever the start/end interleaving, paired plus open plus unmatched ends
// accounts for every instance event.
func TestCallbackAccountingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("paired + open + unmatched = starts + ends", prop.ForAll(
		func(isStart []bool) bool {
			events := []trace.Event{trace.ContextInit{Timestamp: 0, ContextHandle: 1}}
			starts, ends := 0, 0
			depth := 0
			expectedPaired, expectedUnmatched := 0, 0
			for i, s := range isStart {
				ts := uint64(i + 1)
				if s {
					events = append(events, trace.CallbackStart{Timestamp: ts, CallbackObject: 0xcb})
					starts++
					depth++
				} else {
					events = append(events, trace.CallbackEnd{Timestamp: ts, CallbackObject: 0xcb})
					ends++
					if depth > 0 {
						depth--
						expectedPaired++
					} else {
						expectedUnmatched++
					}
				}
			}

			p := newProcessor()
			data, err := p.Process(events)
			if err != nil {
				return false
			}

			return data.CallbackInstances.Len() == expectedPaired &&
				data.OpenInstances().Len() == depth &&
				expectedPaired+depth == starts &&
				expectedPaired+expectedUnmatched == ends
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
