package model

// Context is a middleware context created by a context-init event.
type Context struct {
	Handle   uint64
	InitTime uint64
	PID      uint64
	Version  string
}

// Node is an execution container owning publishers, subscriptions, services
// and timers.
type Node struct {
	Handle    uint64
	InitTime  uint64
	TID       uint64
	RMWHandle uint64
	Name      string
	Namespace string
}

// Publisher is a topic writer owned by a node.
type Publisher struct {
	Handle     uint64
	InitTime   uint64
	NodeHandle uint64
	RMWHandle  uint64
	TopicName  string
	QueueDepth uint64
}

// Subscription is a topic reader owned by a node.
type Subscription struct {
	Handle     uint64
	InitTime   uint64
	NodeHandle uint64
	RMWHandle  uint64
	TopicName  string
	QueueDepth uint64
}

// Service is a request/response server owned by a node.
type Service struct {
	Handle      uint64
	InitTime    uint64
	NodeHandle  uint64
	RMWHandle   uint64
	ServiceName string
}

// Client is the request side of a service owned by a node.
type Client struct {
	Handle      uint64
	InitTime    uint64
	NodeHandle  uint64
	RMWHandle   uint64
	ServiceName string
}

// Timer fires a callback at a fixed period. Its owning node arrives through
// a separate link event.
type Timer struct {
	Handle   uint64
	InitTime uint64
	Period   uint64
	TID      uint64
}

// TimerNodeLink attaches a timer to its owning node, keyed by timer handle.
type TimerNodeLink struct {
	TimerHandle uint64
	InitTime    uint64
	NodeHandle  uint64
}

// CallbackObject is the first registration stage, keyed by the owning
// entity's handle (subscription, service or timer).
type CallbackObject struct {
	OwnerHandle    uint64
	InitTime       uint64
	CallbackObject uint64
}

// CallbackSymbol is the second registration stage, keyed by callback object.
type CallbackSymbol struct {
	CallbackObject uint64
	InitTime       uint64
	Symbol         string
}

// LifecycleStateMachine attaches a managed-state machine to a node.
type LifecycleStateMachine struct {
	Handle     uint64
	InitTime   uint64
	NodeHandle uint64
}
