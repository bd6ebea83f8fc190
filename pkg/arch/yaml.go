package arch

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

type yamlDocument struct {
	PathNameAlias []yamlAlias `yaml:"path_name_alias" validate:"omitempty,dive"`
	Nodes         []yamlNode  `yaml:"nodes" validate:"required,min=1,dive"`
}

type yamlAlias struct {
	PathName  string   `yaml:"path_name" validate:"required"`
	Callbacks []string `yaml:"callbacks" validate:"required,min=1,dive,required"`
}

type yamlNode struct {
	NodeName             string           `yaml:"node_name" validate:"required"`
	Callbacks            []yamlCallback   `yaml:"callbacks" validate:"omitempty,dive"`
	CallbackDependencies []yamlDependency `yaml:"callback_dependencies" validate:"omitempty,dive"`
	Publish              []yamlPublish    `yaml:"publish" validate:"omitempty,dive"`
}

type yamlCallback struct {
	CallbackName string `yaml:"callback_name" validate:"required"`
	Type         string `yaml:"type" validate:"required,oneof=timer_callback subscription_callback"`
	PeriodNS     uint64 `yaml:"period_ns"`
	TopicName    string `yaml:"topic_name" validate:"required_if=Type subscription_callback"`
	Symbol       string `yaml:"symbol"`
}

type yamlDependency struct {
	CallbackNameFrom string `yaml:"callback_name_from" validate:"required"`
	CallbackNameTo   string `yaml:"callback_name_to" validate:"required"`
}

type yamlPublish struct {
	TopicName    string `yaml:"topic_name" validate:"required"`
	CallbackName string `yaml:"callback_name"`
}

// FromYAML imports a declarative architecture description. The resulting
// graph supports structural queries only: callbacks carry no runtime object
// handles and publishers carry no runtime publisher handles.
func FromYAML(r io.Reader, opts ...Option) (*Architecture, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &ArchError{Op: "FromYAML", Entity: "document", Cause: err}
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, &ArchError{Op: "FromYAML", Entity: "document", Cause: formatValidationError(err)}
	}

	b := newBuilder(opts)

	for i := range doc.Nodes {
		decl := &doc.Nodes[i]
		node := b.nodes[decl.NodeName]
		if node == nil {
			node = &Node{Name: decl.NodeName}
			b.nodes[decl.NodeName] = node
		}
		b.declareCallbacks(node, decl.Callbacks)
	}

	// Publishers and dependencies reference callbacks by name, so every
	// callback must exist first.
	for i := range doc.Nodes {
		decl := &doc.Nodes[i]
		node := b.nodes[decl.NodeName]
		for _, p := range decl.Publish {
			if _, ignored := b.ignore[p.TopicName]; ignored {
				continue
			}
			b.attachPublisher(node, &Publisher{
				NodeName:     node.Name,
				TopicName:    p.TopicName,
				CallbackName: p.CallbackName,
			})
		}
		for _, d := range decl.CallbackDependencies {
			b.deps = append(b.deps, Dependency{
				From: node.Name + "/" + d.CallbackNameFrom,
				To:   node.Name + "/" + d.CallbackNameTo,
			})
		}
	}

	for _, name := range b.nodeNames() {
		b.arch.Nodes = append(b.arch.Nodes, b.nodes[name])
	}

	b.buildCommunications()
	b.buildVariablePassings()

	for _, a := range doc.PathNameAlias {
		b.aliases = append(b.aliases, PathAlias{Name: a.PathName, CallbackNames: a.Callbacks})
	}
	if err := b.attachAliases("FromYAML"); err != nil {
		return nil, err
	}

	b.finish()
	return b.arch, nil
}

// FromYAMLFile imports a declarative architecture description from a file.
func FromYAMLFile(path string, opts ...Option) (*Architecture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ArchError{Op: "FromYAMLFile", Entity: "document", Name: path, Cause: err}
	}
	defer f.Close()
	return FromYAML(f, opts...)
}

func (b *builder) declareCallbacks(node *Node, decls []yamlCallback) {
	for _, decl := range decls {
		if decl.Type == string(CallbackSubscription) {
			if _, ignored := b.ignore[decl.TopicName]; ignored {
				continue
			}
		}
		node.Callbacks = append(node.Callbacks, &Callback{
			NodeName:  node.Name,
			Name:      decl.CallbackName,
			Symbol:    decl.Symbol,
			Type:      CallbackType(decl.Type),
			TopicName: decl.TopicName,
			Period:    decl.PeriodNS,
		})
	}
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%w: %s: field is required", ErrInvalidDocument, field)
		case "required_if":
			return fmt.Errorf("%w: %s: field is required for this callback type", ErrInvalidDocument, field)
		case "min":
			return fmt.Errorf("%w: %s: must have at least %s entries", ErrInvalidDocument, field, param)
		case "oneof":
			return fmt.Errorf("%w: %s: must be one of [%s]", ErrInvalidDocument, field, param)
		default:
			return fmt.Errorf("%w: %s: validation failed (%s)", ErrInvalidDocument, field, tag)
		}
	}

	return err
}
