// Package trace defines the instrumentation event vocabulary. Every event the
// processor understands is one of the structs below; anything else arrives as
// Unknown and is counted, then skipped.
package trace

// Kind identifies an event type on the wire.
type Kind string

const (
	KindContextInit               Kind = "context_init"
	KindNodeInit                  Kind = "node_init"
	KindPublisherInit             Kind = "publisher_init"
	KindSubscriptionInit          Kind = "subscription_init"
	KindServiceInit               Kind = "service_init"
	KindClientInit                Kind = "client_init"
	KindTimerInit                 Kind = "timer_init"
	KindTimerNodeLink             Kind = "timer_node_link"
	KindCallbackObjectLink        Kind = "callback_object_link"
	KindCallbackSymbolLink        Kind = "callback_symbol_link"
	KindCallbackStart             Kind = "callback_start"
	KindCallbackEnd               Kind = "callback_end"
	KindLifecycleStateMachineInit Kind = "lifecycle_state_machine_init"
	KindLifecycleTransition       Kind = "lifecycle_transition"
	KindApplicationPublish        Kind = "application_publish"
	KindMiddlewarePublish         Kind = "middleware_publish"
	KindIntraProcessPublish       Kind = "intra_process_publish"
	KindMessageConstruct          Kind = "message_construct"
	KindDispatch                  Kind = "dispatch"
	KindIntraProcessDispatch      Kind = "intra_process_dispatch"
	KindTransportWrite            Kind = "transport_write"
	KindTransportAvailable        Kind = "transport_available"
	KindTransportTake             Kind = "transport_take"
	KindAddressToStampBind        Kind = "address_to_stamp_bind"
	KindAddressToAddressBind      Kind = "address_to_address_bind"
	KindUnknown                   Kind = "unknown"
)

// Event is the closed union of instrumentation events. Timestamps are
// monotonic nanoseconds assigned by the capture layer.
type Event interface {
	EventKind() Kind
	EventTime() uint64
}

// ContextInit records middleware context creation. At least one must appear
// in any processable trace.
type ContextInit struct {
	Timestamp     uint64
	ContextHandle uint64
	PID           uint64
	Version       string
}

// NodeInit records creation of a node.
type NodeInit struct {
	Timestamp  uint64
	NodeHandle uint64
	TID        uint64
	RMWHandle  uint64
	Name       string
	Namespace  string
}

// PublisherInit records creation of a publisher owned by a node.
type PublisherInit struct {
	Timestamp       uint64
	PublisherHandle uint64
	NodeHandle      uint64
	RMWHandle       uint64
	TopicName       string
	QueueDepth      uint64
}

// SubscriptionInit records creation of a subscription owned by a node.
type SubscriptionInit struct {
	Timestamp          uint64
	SubscriptionHandle uint64
	NodeHandle         uint64
	RMWHandle          uint64
	TopicName          string
	QueueDepth         uint64
}

// ServiceInit records creation of a service server owned by a node.
type ServiceInit struct {
	Timestamp     uint64
	ServiceHandle uint64
	NodeHandle    uint64
	RMWHandle     uint64
	ServiceName   string
}

// ClientInit records creation of a service client owned by a node.
type ClientInit struct {
	Timestamp    uint64
	ClientHandle uint64
	NodeHandle   uint64
	RMWHandle    uint64
	ServiceName  string
}

// TimerInit records creation of a timer. The owning node arrives separately
// via TimerNodeLink.
type TimerInit struct {
	Timestamp   uint64
	TimerHandle uint64
	Period      uint64
	TID         uint64
}

// TimerNodeLink attaches a timer to its owning node.
type TimerNodeLink struct {
	Timestamp   uint64
	TimerHandle uint64
	NodeHandle  uint64
}

// CallbackObjectLink is the first registration stage: an owner entity
// (subscription, service or timer handle) is bound to a callback object.
type CallbackObjectLink struct {
	Timestamp      uint64
	OwnerHandle    uint64
	CallbackObject uint64
}

// CallbackSymbolLink is the second registration stage: a callback object is
// bound to its demangled source symbol.
type CallbackSymbolLink struct {
	Timestamp      uint64
	CallbackObject uint64
	Symbol         string
}

// CallbackStart marks the dispatch of a callback instance. IsIntraProcess
// distinguishes instances fed through the in-process short circuit.
type CallbackStart struct {
	Timestamp      uint64
	CallbackObject uint64
	IsIntraProcess bool
}

// CallbackEnd marks completion of the most recently started still-open
// instance of the callback object.
type CallbackEnd struct {
	Timestamp      uint64
	CallbackObject uint64
}

// LifecycleStateMachineInit attaches a lifecycle state machine to a node.
type LifecycleStateMachineInit struct {
	Timestamp          uint64
	StateMachineHandle uint64
	NodeHandle         uint64
}

// LifecycleTransition records a state change of a lifecycle state machine.
type LifecycleTransition struct {
	Timestamp          uint64
	StateMachineHandle uint64
	StartLabel         string
	GoalLabel          string
}

// ApplicationPublish marks a publish call entering the client library.
// Message is the address of the message, valid within the publish layer.
type ApplicationPublish struct {
	Timestamp       uint64
	PublisherHandle uint64
	Message         uint64
}

// MiddlewarePublish marks the publish crossing into the middleware.
type MiddlewarePublish struct {
	Timestamp       uint64
	PublisherHandle uint64
	Message         uint64
}

// IntraProcessPublish marks a publish into the in-process buffer.
type IntraProcessPublish struct {
	Timestamp       uint64
	PublisherHandle uint64
	Message         uint64
}

// MessageConstruct records a copy or move of a message, linking the new
// address to the original.
type MessageConstruct struct {
	Timestamp          uint64
	OriginalMessage    uint64
	ConstructedMessage uint64
}

// Dispatch hands a received message to a callback object.
type Dispatch struct {
	Timestamp      uint64
	CallbackObject uint64
	Message        uint64
}

// IntraProcessDispatch hands an in-process message to a callback object.
type IntraProcessDispatch struct {
	Timestamp      uint64
	CallbackObject uint64
	Message        uint64
}

// TransportWrite marks the message buffer entering the transport writer.
type TransportWrite struct {
	Timestamp uint64
	Message   uint64
}

// TransportAvailable signals the reader side that data with the given source
// timestamp arrived.
type TransportAvailable struct {
	Timestamp       uint64
	SourceTimestamp uint64
}

// TransportTake records the reader pulling a message out of the transport.
// SourceTimestamp is the transport-assigned identity that survives
// serialization; Message is the address on the reader side.
type TransportTake struct {
	Timestamp       uint64
	Message         uint64
	SourceTimestamp uint64
}

// AddressToStampBind ties a writer-side buffer address to the source
// timestamp the transport assigned to it.
type AddressToStampBind struct {
	Timestamp       uint64
	Address         uint64
	SourceTimestamp uint64
}

// AddressToAddressBind records the transport re-addressing a buffer, e.g. a
// copy into a serialization scratch buffer.
type AddressToAddressBind struct {
	Timestamp   uint64
	AddressFrom uint64
	AddressTo   uint64
}

// Unknown wraps an event kind this vocabulary does not cover. Processing
// counts and skips it.
type Unknown struct {
	Timestamp uint64
	Name      string
}

func (e ContextInit) EventKind() Kind               { return KindContextInit }
func (e NodeInit) EventKind() Kind                  { return KindNodeInit }
func (e PublisherInit) EventKind() Kind             { return KindPublisherInit }
func (e SubscriptionInit) EventKind() Kind          { return KindSubscriptionInit }
func (e ServiceInit) EventKind() Kind               { return KindServiceInit }
func (e ClientInit) EventKind() Kind                { return KindClientInit }
func (e TimerInit) EventKind() Kind                 { return KindTimerInit }
func (e TimerNodeLink) EventKind() Kind             { return KindTimerNodeLink }
func (e CallbackObjectLink) EventKind() Kind        { return KindCallbackObjectLink }
func (e CallbackSymbolLink) EventKind() Kind        { return KindCallbackSymbolLink }
func (e CallbackStart) EventKind() Kind             { return KindCallbackStart }
func (e CallbackEnd) EventKind() Kind               { return KindCallbackEnd }
func (e LifecycleStateMachineInit) EventKind() Kind { return KindLifecycleStateMachineInit }
func (e LifecycleTransition) EventKind() Kind       { return KindLifecycleTransition }
func (e ApplicationPublish) EventKind() Kind        { return KindApplicationPublish }
func (e MiddlewarePublish) EventKind() Kind         { return KindMiddlewarePublish }
func (e IntraProcessPublish) EventKind() Kind       { return KindIntraProcessPublish }
func (e MessageConstruct) EventKind() Kind          { return KindMessageConstruct }
func (e Dispatch) EventKind() Kind                  { return KindDispatch }
func (e IntraProcessDispatch) EventKind() Kind      { return KindIntraProcessDispatch }
func (e TransportWrite) EventKind() Kind            { return KindTransportWrite }
func (e TransportAvailable) EventKind() Kind        { return KindTransportAvailable }
func (e TransportTake) EventKind() Kind             { return KindTransportTake }
func (e AddressToStampBind) EventKind() Kind        { return KindAddressToStampBind }
func (e AddressToAddressBind) EventKind() Kind      { return KindAddressToAddressBind }
func (e Unknown) EventKind() Kind                   { return KindUnknown }

func (e ContextInit) EventTime() uint64               { return e.Timestamp }
func (e NodeInit) EventTime() uint64                  { return e.Timestamp }
func (e PublisherInit) EventTime() uint64             { return e.Timestamp }
func (e SubscriptionInit) EventTime() uint64          { return e.Timestamp }
func (e ServiceInit) EventTime() uint64               { return e.Timestamp }
func (e ClientInit) EventTime() uint64                { return e.Timestamp }
func (e TimerInit) EventTime() uint64                 { return e.Timestamp }
func (e TimerNodeLink) EventTime() uint64             { return e.Timestamp }
func (e CallbackObjectLink) EventTime() uint64        { return e.Timestamp }
func (e CallbackSymbolLink) EventTime() uint64        { return e.Timestamp }
func (e CallbackStart) EventTime() uint64             { return e.Timestamp }
func (e CallbackEnd) EventTime() uint64               { return e.Timestamp }
func (e LifecycleStateMachineInit) EventTime() uint64 { return e.Timestamp }
func (e LifecycleTransition) EventTime() uint64       { return e.Timestamp }
func (e ApplicationPublish) EventTime() uint64        { return e.Timestamp }
func (e MiddlewarePublish) EventTime() uint64         { return e.Timestamp }
func (e IntraProcessPublish) EventTime() uint64       { return e.Timestamp }
func (e MessageConstruct) EventTime() uint64          { return e.Timestamp }
func (e Dispatch) EventTime() uint64                  { return e.Timestamp }
func (e IntraProcessDispatch) EventTime() uint64      { return e.Timestamp }
func (e TransportWrite) EventTime() uint64            { return e.Timestamp }
func (e TransportAvailable) EventTime() uint64        { return e.Timestamp }
func (e TransportTake) EventTime() uint64             { return e.Timestamp }
func (e AddressToStampBind) EventTime() uint64        { return e.Timestamp }
func (e AddressToAddressBind) EventTime() uint64      { return e.Timestamp }
func (e Unknown) EventTime() uint64                   { return e.Timestamp }
