// Package arch models the static structure of a traced application: nodes,
// their callbacks, the topic edges between them, and named paths through the
// resulting graph. An Architecture is built either from a processed trace
// (FromModel) or from a declarative YAML description (FromYAML).
package arch

// CallbackType distinguishes the two callback variants.
type CallbackType string

const (
	// CallbackTimer is a callback fired periodically by a timer.
	CallbackTimer CallbackType = "timer_callback"
	// CallbackSubscription is a callback fired by message arrival on a topic.
	CallbackSubscription CallbackType = "subscription_callback"
)

// Callback is one callback owned by a node. Timer callbacks carry a period,
// subscription callbacks carry a topic name. Object is the runtime callback
// object handle and stays zero for architectures imported from YAML.
type Callback struct {
	NodeName  string
	Name      string
	Symbol    string
	Type      CallbackType
	TopicName string
	Period    uint64
	Object    uint64

	// Publishes lists the publishers attributed to this callback, either by
	// declaration or by the single-callback adoption rule.
	Publishes []*Publisher
}

// UniqueName identifies the callback across the whole architecture.
func (c *Callback) UniqueName() string {
	return c.NodeName + "/" + c.Name
}

// IsSubscription reports whether the callback is message-driven.
func (c *Callback) IsSubscription() bool {
	return c.Type == CallbackSubscription
}

// Publisher is a topic writer owned by a node. CallbackName is empty while
// the writing callback is unknown. Handles lists the runtime publisher
// handles behind this writer and is empty for declared architectures.
type Publisher struct {
	NodeName     string
	TopicName    string
	CallbackName string
	Handles      []uint64
}

// Subscription is a topic reader bound to a subscription callback.
type Subscription struct {
	NodeName     string
	TopicName    string
	CallbackName string
}

// Node is an execution container grouping callbacks and publishers.
type Node struct {
	Name      string
	Callbacks []*Callback

	// UnlinkedPublishers could not be attributed to any callback.
	UnlinkedPublishers []*Publisher
}

// FindCallback returns the node's callback with the given short name.
func (n *Node) FindCallback(name string) (*Callback, bool) {
	for _, cb := range n.Callbacks {
		if cb.Name == name {
			return cb, true
		}
	}
	return nil, false
}

// Publishers returns every publisher on the node, linked and unlinked.
func (n *Node) Publishers() []*Publisher {
	var pubs []*Publisher
	for _, cb := range n.Callbacks {
		pubs = append(pubs, cb.Publishes...)
	}
	pubs = append(pubs, n.UnlinkedPublishers...)
	return pubs
}

// Subscriptions returns one entry per subscription callback on the node.
func (n *Node) Subscriptions() []*Subscription {
	var subs []*Subscription
	for _, cb := range n.Callbacks {
		if !cb.IsSubscription() {
			continue
		}
		subs = append(subs, &Subscription{
			NodeName:     n.Name,
			TopicName:    cb.TopicName,
			CallbackName: cb.Name,
		})
	}
	return subs
}

// Communication is a topic edge from a publishing callback to a subscription
// callback. PublisherHandles carries the runtime handles the publish side
// writes through, for correlating dispatch records later.
type Communication struct {
	TopicName        string
	Publish          *Callback
	Subscribe        *Callback
	PublisherHandles []uint64
}

// VariablePassing is an intra-node edge: the write callback leaves state the
// read callback picks up on its next run.
type VariablePassing struct {
	Write *Callback
	Read  *Callback
}

// PathAlias names a fixed sequence of callbacks by their unique names.
type PathAlias struct {
	Name          string
	CallbackNames []string
}

// Exclusion records an entity dropped during import because its handle could
// not be resolved unambiguously.
type Exclusion struct {
	Entity string
	Handle uint64
	Reason string
}

// Architecture is the static structure reconstructed from a trace or
// declared in YAML.
type Architecture struct {
	Nodes            []*Node
	Communications   []*Communication
	VariablePassings []*VariablePassing
	Aliases          []*PathAlias

	// Exclusions lists entities dropped during FromModel. Empty for YAML
	// imports.
	Exclusions []Exclusion
}

// FindNode returns the node with the given name.
func (a *Architecture) FindNode(name string) (*Node, bool) {
	for _, n := range a.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Callbacks returns every callback across all nodes, in node order.
func (a *Architecture) Callbacks() []*Callback {
	var cbs []*Callback
	for _, n := range a.Nodes {
		cbs = append(cbs, n.Callbacks...)
	}
	return cbs
}

// FindCallback resolves a callback by its unique name.
func (a *Architecture) FindCallback(uniqueName string) (*Callback, error) {
	for _, cb := range a.Callbacks() {
		if cb.UniqueName() == uniqueName {
			return cb, nil
		}
	}
	return nil, &ArchError{Op: "FindCallback", Entity: "callback", Name: uniqueName, Cause: ErrCallbackNotFound}
}

// Alias returns the path alias with the given name.
func (a *Architecture) Alias(name string) (*PathAlias, bool) {
	for _, al := range a.Aliases {
		if al.Name == name {
			return al, true
		}
	}
	return nil, false
}

// CommunicationBetween returns the topic edge connecting two callbacks, if
// one exists.
func (a *Architecture) CommunicationBetween(from, to *Callback) (*Communication, bool) {
	for _, comm := range a.Communications {
		if comm.Publish == from && comm.Subscribe == to {
			return comm, true
		}
	}
	return nil, false
}

// VariablePassingBetween returns the intra-node edge connecting two
// callbacks, if one exists.
func (a *Architecture) VariablePassingBetween(from, to *Callback) (*VariablePassing, bool) {
	for _, vp := range a.VariablePassings {
		if vp.Write == from && vp.Read == to {
			return vp, true
		}
	}
	return nil, false
}
