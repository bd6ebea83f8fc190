package arch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hsgwa/trace-analysis/pkg/logging"
	"github.com/hsgwa/trace-analysis/pkg/metrics"
	"github.com/hsgwa/trace-analysis/pkg/model"
)

// DefaultIgnoreTopics lists housekeeping topics skipped during import.
var DefaultIgnoreTopics = []string{"/rosout", "/parameter_events"}

// Dependency declares a variable passing edge between two callbacks,
// identified by unique name.
type Dependency struct {
	From string
	To   string
}

// Option configures architecture construction.
type Option func(*builder)

// WithLogger overrides the default logger.
func WithLogger(l logging.Logger) Option {
	return func(b *builder) { b.logger = l }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(b *builder) { b.metrics = m }
}

// WithIgnoreTopics replaces the default ignore list.
func WithIgnoreTopics(topics ...string) Option {
	return func(b *builder) {
		b.ignore = map[string]struct{}{}
		for _, t := range topics {
			b.ignore[t] = struct{}{}
		}
	}
}

// WithAliases declares named callback paths. Every callback name must
// resolve once the graph is built.
func WithAliases(aliases ...PathAlias) Option {
	return func(b *builder) { b.aliases = append(b.aliases, aliases...) }
}

// WithDependencies declares variable passing edges between callbacks of the
// same node.
func WithDependencies(deps ...Dependency) Option {
	return func(b *builder) { b.deps = append(b.deps, deps...) }
}

type builder struct {
	logger  logging.Logger
	metrics *metrics.Registry
	ignore  map[string]struct{}
	aliases []PathAlias
	deps    []Dependency

	arch  *Architecture
	nodes map[string]*Node
}

func newBuilder(opts []Option) *builder {
	b := &builder{
		logger:  logging.DefaultLogger().With(logging.Component("arch")),
		metrics: metrics.DefaultRegistry(),
		ignore:  map[string]struct{}{},
		arch:    &Architecture{},
		nodes:   map[string]*Node{},
	}
	for _, t := range DefaultIgnoreTopics {
		b.ignore[t] = struct{}{}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromModel reconstructs the architecture graph from a processed trace.
// Entities whose handle resolution is ambiguous are excluded and listed on
// the result instead of being guessed.
func FromModel(data *model.DataModel, opts ...Option) (*Architecture, error) {
	b := newBuilder(opts)

	b.collectTimerCallbacks(data)
	b.collectSubscriptionCallbacks(data)
	b.collectPublishers(data)

	for _, name := range b.nodeNames() {
		b.arch.Nodes = append(b.arch.Nodes, b.nodes[name])
	}

	b.buildCommunications()
	b.buildVariablePassings()
	if err := b.attachAliases("FromModel"); err != nil {
		return nil, err
	}

	b.finish()
	return b.arch, nil
}

type callbackCandidate struct {
	symbol string
	topic  string
	period uint64
	object uint64
}

func (b *builder) collectTimerCallbacks(data *model.DataModel) {
	perNode := map[*Node][]callbackCandidate{}

	data.Timers.Each(func(handle, init uint64, t model.Timer) bool {
		link, err := data.TimerNodeLinks.ResolveFollowing(handle, init)
		if err != nil {
			b.skip("timer", handle, err)
			return true
		}
		node, ok := b.resolveNode(data, link.NodeHandle, link.InitTime, "timer")
		if !ok {
			return true
		}
		obj, err := data.CallbackObjects.ResolveFollowing(handle, init)
		if err != nil {
			b.skip("timer", handle, err)
			return true
		}
		sym, err := data.CallbackSymbols.ResolveFollowing(obj.CallbackObject, obj.InitTime)
		if err != nil {
			b.skip("timer", handle, err)
			return true
		}
		perNode[node] = append(perNode[node], callbackCandidate{
			symbol: sym.Symbol,
			period: t.Period,
			object: obj.CallbackObject,
		})
		return true
	})

	for node, cands := range perNode {
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].symbol != cands[j].symbol {
				return cands[i].symbol < cands[j].symbol
			}
			if cands[i].period != cands[j].period {
				return cands[i].period < cands[j].period
			}
			return cands[i].object < cands[j].object
		})
		for i, c := range cands {
			node.Callbacks = append(node.Callbacks, &Callback{
				NodeName: node.Name,
				Name:     fmt.Sprintf("timer_callback_%d", i),
				Symbol:   c.symbol,
				Type:     CallbackTimer,
				Period:   c.period,
				Object:   c.object,
			})
		}
	}
}

func (b *builder) collectSubscriptionCallbacks(data *model.DataModel) {
	perNode := map[*Node][]callbackCandidate{}
	seen := map[*Node]map[[2]string]struct{}{}

	data.Subscriptions.Each(func(handle, init uint64, s model.Subscription) bool {
		if _, ignored := b.ignore[s.TopicName]; ignored {
			return true
		}
		node, ok := b.resolveNode(data, s.NodeHandle, init, "subscription")
		if !ok {
			return true
		}
		obj, err := data.CallbackObjects.ResolveFollowing(handle, init)
		if err != nil {
			b.skip("subscription", handle, err)
			return true
		}
		sym, err := data.CallbackSymbols.ResolveFollowing(obj.CallbackObject, obj.InitTime)
		if err != nil {
			b.skip("subscription", handle, err)
			return true
		}

		// The same handler can register under several subscription handles.
		// One callback per (symbol, topic) pair is kept.
		key := [2]string{sym.Symbol, s.TopicName}
		if seen[node] == nil {
			seen[node] = map[[2]string]struct{}{}
		}
		if _, dup := seen[node][key]; dup {
			return true
		}
		seen[node][key] = struct{}{}

		perNode[node] = append(perNode[node], callbackCandidate{
			symbol: sym.Symbol,
			topic:  s.TopicName,
			object: obj.CallbackObject,
		})
		return true
	})

	for node, cands := range perNode {
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].symbol != cands[j].symbol {
				return cands[i].symbol < cands[j].symbol
			}
			return cands[i].topic < cands[j].topic
		})
		for i, c := range cands {
			node.Callbacks = append(node.Callbacks, &Callback{
				NodeName:  node.Name,
				Name:      fmt.Sprintf("subscription_callback_%d", i),
				Symbol:    c.symbol,
				Type:      CallbackSubscription,
				TopicName: c.topic,
				Object:    c.object,
			})
		}
	}
}

func (b *builder) collectPublishers(data *model.DataModel) {
	type nodeTopics struct {
		order []string
		byTop map[string]*Publisher
	}
	perNode := map[*Node]*nodeTopics{}

	data.Publishers.Each(func(handle, init uint64, p model.Publisher) bool {
		if _, ignored := b.ignore[p.TopicName]; ignored {
			return true
		}
		node, ok := b.resolveNode(data, p.NodeHandle, init, "publisher")
		if !ok {
			return true
		}
		nt := perNode[node]
		if nt == nil {
			nt = &nodeTopics{byTop: map[string]*Publisher{}}
			perNode[node] = nt
		}
		pub := nt.byTop[p.TopicName]
		if pub == nil {
			pub = &Publisher{NodeName: node.Name, TopicName: p.TopicName}
			nt.byTop[p.TopicName] = pub
			nt.order = append(nt.order, p.TopicName)
		}
		pub.Handles = append(pub.Handles, handle)
		return true
	})

	for node, nt := range perNode {
		for _, topic := range nt.order {
			pub := nt.byTop[topic]
			sort.Slice(pub.Handles, func(i, j int) bool { return pub.Handles[i] < pub.Handles[j] })
			b.attachPublisher(node, pub)
		}
	}
}

// attachPublisher links a publisher to the node's single callback when there
// is exactly one, otherwise keeps it on the node unlinked.
func (b *builder) attachPublisher(node *Node, pub *Publisher) {
	if pub.CallbackName == "" && len(node.Callbacks) == 1 {
		pub.CallbackName = node.Callbacks[0].Name
	}
	if pub.CallbackName == "" {
		node.UnlinkedPublishers = append(node.UnlinkedPublishers, pub)
		return
	}
	cb, ok := node.FindCallback(pub.CallbackName)
	if !ok {
		b.logger.Warn("publisher references unknown callback",
			logging.Topic(pub.TopicName),
			logging.Callback(pub.CallbackName),
			logging.String("node", node.Name))
		node.UnlinkedPublishers = append(node.UnlinkedPublishers, pub)
		return
	}
	cb.Publishes = append(cb.Publishes, pub)
}

// buildCommunications crosses every attributed publisher with every
// subscription callback reading the same topic.
func (b *builder) buildCommunications() {
	for _, pubNode := range b.arch.Nodes {
		for _, cb := range pubNode.Callbacks {
			for _, pub := range cb.Publishes {
				for _, subNode := range b.arch.Nodes {
					for _, subCb := range subNode.Callbacks {
						if !subCb.IsSubscription() || subCb.TopicName != pub.TopicName {
							continue
						}
						b.arch.Communications = append(b.arch.Communications, &Communication{
							TopicName:        pub.TopicName,
							Publish:          cb,
							Subscribe:        subCb,
							PublisherHandles: pub.Handles,
						})
					}
				}
			}
		}
	}
}

func (b *builder) buildVariablePassings() {
	for _, dep := range b.deps {
		from, err := b.arch.FindCallback(dep.From)
		if err != nil {
			b.logger.Warn("dependency references unknown callback", logging.Callback(dep.From))
			continue
		}
		to, err := b.arch.FindCallback(dep.To)
		if err != nil {
			b.logger.Warn("dependency references unknown callback", logging.Callback(dep.To))
			continue
		}
		b.arch.VariablePassings = append(b.arch.VariablePassings, &VariablePassing{Write: from, Read: to})
	}
}

// attachAliases validates each alias against the built graph. An
// unresolvable callback name is fatal.
func (b *builder) attachAliases(op string) error {
	for i := range b.aliases {
		alias := b.aliases[i]
		for _, name := range alias.CallbackNames {
			if _, err := b.arch.FindCallback(name); err != nil {
				return &ArchError{
					Op:     op,
					Entity: "alias " + alias.Name,
					Name:   name,
					Cause:  ErrCallbackNotFound,
				}
			}
		}
		b.arch.Aliases = append(b.arch.Aliases, &alias)
	}
	return nil
}

func (b *builder) finish() {
	callbacks := len(b.arch.Callbacks())
	b.metrics.RecordGraphSize(len(b.arch.Nodes), callbacks,
		len(b.arch.Communications), len(b.arch.VariablePassings))
	b.logger.Info("architecture built",
		logging.Int("nodes", len(b.arch.Nodes)),
		logging.Int("callbacks", callbacks),
		logging.Int("communications", len(b.arch.Communications)),
		logging.Int("variable_passings", len(b.arch.VariablePassings)),
		logging.Int("exclusions", len(b.arch.Exclusions)))
}

// resolveNode maps a node handle at a point in time onto the named node,
// creating the node on first sight.
func (b *builder) resolveNode(data *model.DataModel, handle, at uint64, entity string) (*Node, bool) {
	ent, err := data.Nodes.Resolve(handle, at)
	if err != nil {
		b.skip(entity, handle, err)
		return nil, false
	}
	name := qualifiedNodeName(ent)
	node := b.nodes[name]
	if node == nil {
		node = &Node{Name: name}
		b.nodes[name] = node
	}
	return node, true
}

// skip drops an entity from the import. Ambiguous handles are reported on
// the architecture, missing links only logged: a subscription without a
// callback object is a normal partial-trace condition.
func (b *builder) skip(entity string, handle uint64, err error) {
	if model.IsAmbiguous(err) {
		b.arch.Exclusions = append(b.arch.Exclusions, Exclusion{
			Entity: entity,
			Handle: handle,
			Reason: err.Error(),
		})
		b.metrics.RecordAmbiguousHandle(entity)
		b.logger.Warn("excluding entity with ambiguous handle",
			logging.String("entity", entity),
			logging.Handle(handle),
			logging.Error(err))
		return
	}
	b.logger.Debug("skipping entity",
		logging.String("entity", entity),
		logging.Handle(handle),
		logging.Error(err))
}

func (b *builder) nodeNames() []string {
	names := make([]string, 0, len(b.nodes))
	for name := range b.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func qualifiedNodeName(n model.Node) string {
	ns := n.Namespace
	if ns == "" {
		ns = "/"
	}
	if strings.HasSuffix(ns, "/") {
		return ns + n.Name
	}
	return ns + "/" + n.Name
}
