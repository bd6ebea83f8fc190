package arch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsgwa/trace-analysis/pkg/logging"
	"github.com/hsgwa/trace-analysis/pkg/metrics"
	"github.com/hsgwa/trace-analysis/pkg/model"
)

func quietOpts(extra ...Option) []Option {
	opts := []Option{
		WithLogger(logging.NewNopLogger()),
		WithMetrics(metrics.NewRegistry()),
	}
	return append(opts, extra...)
}

// talkerListenerModel builds the smallest two-node model: a timer-driven
// publisher node and a subscribing node on /chatter.
func talkerListenerModel() *model.DataModel {
	data := model.NewDataModel()

	data.Nodes.Insert(1, 0, model.Node{Handle: 1, InitTime: 0, Name: "talker", Namespace: "/"})
	data.Nodes.Insert(2, 1, model.Node{Handle: 2, InitTime: 1, Name: "listener", Namespace: "/"})

	data.Publishers.Insert(20, 4, model.Publisher{Handle: 20, InitTime: 4, NodeHandle: 1, TopicName: "/chatter"})

	data.Timers.Insert(10, 5, model.Timer{Handle: 10, InitTime: 5, Period: 100000000})
	data.TimerNodeLinks.Insert(10, 6, model.TimerNodeLink{TimerHandle: 10, InitTime: 6, NodeHandle: 1})
	data.CallbackObjects.Insert(10, 7, model.CallbackObject{OwnerHandle: 10, InitTime: 7, CallbackObject: 100})
	data.CallbackSymbols.Insert(100, 8, model.CallbackSymbol{CallbackObject: 100, InitTime: 8, Symbol: "Talker::on_timer"})

	data.Subscriptions.Insert(30, 9, model.Subscription{Handle: 30, InitTime: 9, NodeHandle: 2, TopicName: "/chatter"})
	data.CallbackObjects.Insert(30, 10, model.CallbackObject{OwnerHandle: 30, InitTime: 10, CallbackObject: 200})
	data.CallbackSymbols.Insert(200, 11, model.CallbackSymbol{CallbackObject: 200, InitTime: 11, Symbol: "Listener::on_msg"})

	return data
}

func TestFromModelBuildsNodesAndCallbacks(t *testing.T) {
	arch, err := FromModel(talkerListenerModel(), quietOpts()...)
	require.NoError(t, err)

	require.Len(t, arch.Nodes, 2)
	assert.Equal(t, "/listener", arch.Nodes[0].Name)
	assert.Equal(t, "/talker", arch.Nodes[1].Name)

	talker, ok := arch.FindNode("/talker")
	require.True(t, ok)
	require.Len(t, talker.Callbacks, 1)
	timerCb := talker.Callbacks[0]
	assert.Equal(t, "timer_callback_0", timerCb.Name)
	assert.Equal(t, "/talker/timer_callback_0", timerCb.UniqueName())
	assert.Equal(t, CallbackTimer, timerCb.Type)
	assert.Equal(t, uint64(100000000), timerCb.Period)
	assert.Equal(t, uint64(100), timerCb.Object)
	assert.Equal(t, "Talker::on_timer", timerCb.Symbol)

	listener, ok := arch.FindNode("/listener")
	require.True(t, ok)
	require.Len(t, listener.Callbacks, 1)
	subCb := listener.Callbacks[0]
	assert.Equal(t, "subscription_callback_0", subCb.Name)
	assert.Equal(t, CallbackSubscription, subCb.Type)
	assert.Equal(t, "/chatter", subCb.TopicName)
	assert.Equal(t, uint64(200), subCb.Object)
	assert.True(t, subCb.IsSubscription())
}

func TestFromModelAdoptsPublisherOnSingleCallbackNode(t *testing.T) {
	arch, err := FromModel(talkerListenerModel(), quietOpts()...)
	require.NoError(t, err)

	talker, _ := arch.FindNode("/talker")
	require.Len(t, talker.Callbacks[0].Publishes, 1)
	pub := talker.Callbacks[0].Publishes[0]
	assert.Equal(t, "/chatter", pub.TopicName)
	assert.Equal(t, "timer_callback_0", pub.CallbackName)
	assert.Equal(t, []uint64{20}, pub.Handles)
	assert.Empty(t, talker.UnlinkedPublishers)
}

func TestFromModelCreatesCommunications(t *testing.T) {
	arch, err := FromModel(talkerListenerModel(), quietOpts()...)
	require.NoError(t, err)

	require.Len(t, arch.Communications, 1)
	comm := arch.Communications[0]
	assert.Equal(t, "/chatter", comm.TopicName)
	assert.Equal(t, "/talker/timer_callback_0", comm.Publish.UniqueName())
	assert.Equal(t, "/listener/subscription_callback_0", comm.Subscribe.UniqueName())
	assert.Equal(t, []uint64{20}, comm.PublisherHandles)

	found, ok := arch.CommunicationBetween(comm.Publish, comm.Subscribe)
	require.True(t, ok)
	assert.Same(t, comm, found)
}

func TestFromModelIgnoresHousekeepingTopics(t *testing.T) {
	data := talkerListenerModel()
	data.Subscriptions.Insert(31, 12, model.Subscription{Handle: 31, InitTime: 12, NodeHandle: 2, TopicName: "/rosout"})
	data.CallbackObjects.Insert(31, 13, model.CallbackObject{OwnerHandle: 31, InitTime: 13, CallbackObject: 201})
	data.CallbackSymbols.Insert(201, 14, model.CallbackSymbol{CallbackObject: 201, InitTime: 14, Symbol: "rclcpp::rosout"})

	arch, err := FromModel(data, quietOpts()...)
	require.NoError(t, err)

	listener, _ := arch.FindNode("/listener")
	require.Len(t, listener.Callbacks, 1)
	assert.Equal(t, "/chatter", listener.Callbacks[0].TopicName)
}

func TestFromModelSubscriptionNamingIsSortedAndDeduplicated(t *testing.T) {
	data := model.NewDataModel()
	data.Nodes.Insert(1, 0, model.Node{Handle: 1, InitTime: 0, Name: "filter", Namespace: "/ns"})

	// Two handles for the same handler on /beta, one handler on /alpha. The
	// duplicate collapses and the survivors are named in (symbol, topic)
	// order.
	data.Subscriptions.Insert(30, 1, model.Subscription{Handle: 30, InitTime: 1, NodeHandle: 1, TopicName: "/beta"})
	data.CallbackObjects.Insert(30, 2, model.CallbackObject{OwnerHandle: 30, InitTime: 2, CallbackObject: 300})
	data.CallbackSymbols.Insert(300, 3, model.CallbackSymbol{CallbackObject: 300, InitTime: 3, Symbol: "Filter::on_beta"})

	data.Subscriptions.Insert(31, 4, model.Subscription{Handle: 31, InitTime: 4, NodeHandle: 1, TopicName: "/beta"})
	data.CallbackObjects.Insert(31, 5, model.CallbackObject{OwnerHandle: 31, InitTime: 5, CallbackObject: 301})
	data.CallbackSymbols.Insert(301, 6, model.CallbackSymbol{CallbackObject: 301, InitTime: 6, Symbol: "Filter::on_beta"})

	data.Subscriptions.Insert(32, 7, model.Subscription{Handle: 32, InitTime: 7, NodeHandle: 1, TopicName: "/alpha"})
	data.CallbackObjects.Insert(32, 8, model.CallbackObject{OwnerHandle: 32, InitTime: 8, CallbackObject: 302})
	data.CallbackSymbols.Insert(302, 9, model.CallbackSymbol{CallbackObject: 302, InitTime: 9, Symbol: "Filter::on_alpha"})

	arch, err := FromModel(data, quietOpts()...)
	require.NoError(t, err)

	node, ok := arch.FindNode("/ns/filter")
	require.True(t, ok)
	require.Len(t, node.Callbacks, 2)
	assert.Equal(t, "subscription_callback_0", node.Callbacks[0].Name)
	assert.Equal(t, "/alpha", node.Callbacks[0].TopicName)
	assert.Equal(t, "subscription_callback_1", node.Callbacks[1].Name)
	assert.Equal(t, "/beta", node.Callbacks[1].TopicName)
	assert.Equal(t, uint64(300), node.Callbacks[1].Object)
}

func TestFromModelKeepsPublisherUnlinkedOnMultiCallbackNode(t *testing.T) {
	data := talkerListenerModel()

	// A second timer on the talker makes publisher attribution ambiguous.
	data.Timers.Insert(11, 20, model.Timer{Handle: 11, InitTime: 20, Period: 200000000})
	data.TimerNodeLinks.Insert(11, 21, model.TimerNodeLink{TimerHandle: 11, InitTime: 21, NodeHandle: 1})
	data.CallbackObjects.Insert(11, 22, model.CallbackObject{OwnerHandle: 11, InitTime: 22, CallbackObject: 101})
	data.CallbackSymbols.Insert(101, 23, model.CallbackSymbol{CallbackObject: 101, InitTime: 23, Symbol: "Talker::on_slow_timer"})

	arch, err := FromModel(data, quietOpts()...)
	require.NoError(t, err)

	talker, _ := arch.FindNode("/talker")
	require.Len(t, talker.Callbacks, 2)
	require.Len(t, talker.UnlinkedPublishers, 1)
	assert.Equal(t, "/chatter", talker.UnlinkedPublishers[0].TopicName)
	assert.Empty(t, talker.UnlinkedPublishers[0].CallbackName)
	assert.Empty(t, arch.Communications)
}

func TestFromModelExcludesAmbiguousHandles(t *testing.T) {
	data := talkerListenerModel()

	// Two listener generations initialized at the same instant make the
	// subscription's node resolution ambiguous.
	data.Nodes.Insert(2, 1, model.Node{Handle: 2, InitTime: 1, Name: "listener2", Namespace: "/"})

	arch, err := FromModel(data, quietOpts()...)
	require.NoError(t, err)

	require.Len(t, arch.Exclusions, 1)
	assert.Equal(t, "subscription", arch.Exclusions[0].Entity)
	assert.Equal(t, uint64(30), arch.Exclusions[0].Handle)

	_, ok := arch.FindNode("/listener")
	assert.False(t, ok)
}

func TestFromModelAliasMustResolve(t *testing.T) {
	alias := PathAlias{
		Name:          "broken",
		CallbackNames: []string{"/talker/timer_callback_0", "/nowhere/subscription_callback_0"},
	}
	_, err := FromModel(talkerListenerModel(), quietOpts(WithAliases(alias))...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallbackNotFound)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "/nowhere/subscription_callback_0")
}

func TestFromModelAttachesResolvableAliases(t *testing.T) {
	alias := PathAlias{
		Name:          "e2e",
		CallbackNames: []string{"/talker/timer_callback_0", "/listener/subscription_callback_0"},
	}
	arch, err := FromModel(talkerListenerModel(), quietOpts(WithAliases(alias))...)
	require.NoError(t, err)

	got, ok := arch.Alias("e2e")
	require.True(t, ok)
	assert.Equal(t, alias.CallbackNames, got.CallbackNames)
}

func TestFromModelDeclaredDependenciesBecomeVariablePassings(t *testing.T) {
	data := talkerListenerModel()

	// Give the listener a timer so there are two callbacks to connect.
	data.Timers.Insert(12, 30, model.Timer{Handle: 12, InitTime: 30, Period: 50000000})
	data.TimerNodeLinks.Insert(12, 31, model.TimerNodeLink{TimerHandle: 12, InitTime: 31, NodeHandle: 2})
	data.CallbackObjects.Insert(12, 32, model.CallbackObject{OwnerHandle: 12, InitTime: 32, CallbackObject: 210})
	data.CallbackSymbols.Insert(210, 33, model.CallbackSymbol{CallbackObject: 210, InitTime: 33, Symbol: "Listener::on_timer"})

	deps := []Dependency{
		{From: "/listener/subscription_callback_0", To: "/listener/timer_callback_0"},
		{From: "/listener/missing", To: "/listener/timer_callback_0"},
	}
	arch, err := FromModel(data, quietOpts(WithDependencies(deps...))...)
	require.NoError(t, err)

	require.Len(t, arch.VariablePassings, 1)
	vp := arch.VariablePassings[0]
	assert.Equal(t, "/listener/subscription_callback_0", vp.Write.UniqueName())
	assert.Equal(t, "/listener/timer_callback_0", vp.Read.UniqueName())

	found, ok := arch.VariablePassingBetween(vp.Write, vp.Read)
	require.True(t, ok)
	assert.Same(t, vp, found)
}

func TestFindCallbackUnknownName(t *testing.T) {
	arch, err := FromModel(talkerListenerModel(), quietOpts()...)
	require.NoError(t, err)

	_, err = arch.FindCallback("/talker/timer_callback_9")
	assert.ErrorIs(t, err, ErrCallbackNotFound)
}
