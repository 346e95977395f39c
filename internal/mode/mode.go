// Package mode defines document modes: named, inheritable bundles of
// structural validation rules representing a target document standard.
package mode

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
)

// RuleKind enumerates the closed set of rule variants. New checks are added
// by extending this set, not by special-casing the evaluator.
type RuleKind string

const (
	// RuleRequiredSection requires a section whose normalized title matches
	// Title or one of Aliases, at Level if Level > 0.
	RuleRequiredSection RuleKind = "required_section"
	// RuleMinSections requires at least Min sections in the document.
	RuleMinSections RuleKind = "min_sections"
	// RuleRequiredResource requires at least one resource of the named kind
	// (image, code, diagram).
	RuleRequiredResource RuleKind = "required_resource"
	// RuleRequiredTags requires non-empty document tags metadata.
	RuleRequiredTags RuleKind = "required_tags"
)

// Rule is one structural validation rule. Severity defaults to error.
type Rule struct {
	Kind     RuleKind         `yaml:"kind"`
	Title    string           `yaml:"title,omitempty"`
	Aliases  []string         `yaml:"aliases,omitempty"`
	Level    int              `yaml:"level,omitempty"`
	Min      int              `yaml:"min,omitempty"`
	Resource string           `yaml:"resource,omitempty"`
	Severity doctree.Severity `yaml:"severity,omitempty"`
}

// Key is the rule's override identity: a derived mode redefining a rule with
// the same key replaces the base's rule in place.
func (r Rule) Key() string {
	switch r.Kind {
	case RuleRequiredSection:
		return fmt.Sprintf("%s/%s", r.Kind, doctree.NormalizeTitle(r.Title))
	case RuleRequiredResource:
		return fmt.Sprintf("%s/%s", r.Kind, r.Resource)
	default:
		return string(r.Kind)
	}
}

// EffectiveSeverity returns the rule's severity, defaulting to error.
func (r Rule) EffectiveSeverity() doctree.Severity {
	if r.Severity == doctree.SeverityWarning {
		return doctree.SeverityWarning
	}
	return doctree.SeverityError
}

func (r Rule) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required,
			validation.In(RuleRequiredSection, RuleMinSections, RuleRequiredResource, RuleRequiredTags)),
		validation.Field(&r.Title, validation.Required.When(r.Kind == RuleRequiredSection)),
		validation.Field(&r.Resource, validation.Required.When(r.Kind == RuleRequiredResource),
			validation.When(r.Kind == RuleRequiredResource, validation.In("image", "code", "diagram"))),
		validation.Field(&r.Level, validation.Min(0), validation.Max(6)),
		validation.Field(&r.Min, validation.Min(0)),
		validation.Field(&r.Severity, validation.In(doctree.SeverityError, doctree.SeverityWarning)),
	)
}

// Mode is a named rule bundle. A mode with an empty Base is a root mode.
type Mode struct {
	Name  string `yaml:"name"`
	Base  string `yaml:"base,omitempty"`
	Rules []Rule `yaml:"rules"`
}

func (m Mode) Validate() error {
	if err := validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.Length(1, 64)),
	); err != nil {
		return err
	}
	for i, r := range m.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// Resolved is a mode with its inheritance chain flattened into an
// order-stable effective rule list. Resolution happens once at lookup, never
// per validation call.
type Resolved struct {
	Name  string
	Rules []Rule
}
