// Package rules loads declarative transformation documents and applies them
// to pipeline data. A document is YAML (or JSON) with a single top-level
// transformations sequence of filter, map, and calculate rules, applied
// strictly in document order.
package rules

import (
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/rowbridge/rowbridge/internal/pipeline"
)

// Rule kinds. The kind discriminator is required: a rule that names no known
// kind is rejected at load time instead of being silently inert.
const (
	KindFilter    = "filter"
	KindMap       = "map"
	KindCalculate = "calculate"
)

// Rule is one transformation step.
type Rule struct {
	Kind    string `mapstructure:"kind"`
	Name    string `mapstructure:"name"`
	Enabled *bool  `mapstructure:"enabled"`

	// Condition is the filter expression; records it evaluates falsy for are
	// dropped.
	Condition string `mapstructure:"condition"`

	// Mapping maps new field name to existing field name. The source field
	// is never deleted; it may be consumed by a later rule.
	Mapping map[string]string `mapstructure:"mapping"`

	// Field and Expression define a calculated field, evaluated per record
	// after all earlier rules' effects on that record.
	Field      string `mapstructure:"field"`
	Expression string `mapstructure:"expression"`
}

// IsEnabled reports whether the rule participates. Enabled defaults to true;
// disabled rules are skipped entirely, their expressions never compiled.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

func (r *Rule) label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Kind
}

func (r *Rule) validate() error {
	switch r.Kind {
	case KindFilter:
		if r.Condition == "" {
			return fmt.Errorf("filter rule %q has no condition", r.label())
		}
	case KindMap:
		if len(r.Mapping) == 0 {
			return fmt.Errorf("map rule %q has no mapping", r.label())
		}
	case KindCalculate:
		if r.Field == "" || r.Expression == "" {
			return fmt.Errorf("calculate rule %q needs both field and expression", r.label())
		}
	case "":
		return fmt.Errorf("rule %q is missing the kind discriminator", r.label())
	default:
		return fmt.Errorf("rule %q has unknown kind %q", r.label(), r.Kind)
	}
	return nil
}

// Document is a parsed rule file.
type Document struct {
	Transformations []Rule
}

// Load reads and parses a rule document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pipeline.IOError{Op: "read", Path: path, Err: err}
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a rule document. A missing or non-sequence transformations
// key fails fast, before any rule runs.
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &pipeline.ValidationError{Msg: "invalid rule document", Err: err}
	}
	trans, ok := raw["transformations"]
	if !ok {
		return nil, &pipeline.ValidationError{Msg: `rule document is missing a top-level "transformations" sequence`}
	}
	list, ok := trans.([]any)
	if !ok {
		return nil, &pipeline.ValidationError{Msg: `"transformations" must be a sequence of rules`}
	}

	doc := &Document{Transformations: make([]Rule, 0, len(list))}
	for i, item := range list {
		var rule Rule
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &rule,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(item); err != nil {
			return nil, &pipeline.ValidationError{Msg: fmt.Sprintf("rule %d", i+1), Err: err}
		}
		if err := rule.validate(); err != nil {
			return nil, &pipeline.ValidationError{Msg: fmt.Sprintf("rule %d", i+1), Err: err}
		}
		doc.Transformations = append(doc.Transformations, rule)
	}
	return doc, nil
}
