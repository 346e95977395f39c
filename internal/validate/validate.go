// Package validate evaluates a mode's effective rule set against a canonical
// section tree. Evaluation is pure: it never mutates the tree and never
// fails, it returns a result object with ordered findings.
package validate

import (
	"fmt"
	"strings"

	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
	"github.com/lxcxjxhx/HOS-M2F/internal/mode"
)

// Result is the outcome of validating one document against one mode.
// Valid is true iff Errors is empty; warnings never block.
type Result struct {
	Valid    bool              `json:"valid"`
	Errors   []doctree.Finding `json:"errors"`
	Warnings []doctree.Finding `json:"warnings"`
}

// Validate evaluates each rule in declaration order; finding order follows
// rule order, so results diff stably across runs.
func Validate(t *canonical.Tree, m mode.Resolved) Result {
	res := Result{
		Errors:   []doctree.Finding{},
		Warnings: []doctree.Finding{},
	}
	for _, rule := range m.Rules {
		for _, f := range evalRule(t, rule) {
			if f.Severity == doctree.SeverityError {
				res.Errors = append(res.Errors, f)
			} else {
				res.Warnings = append(res.Warnings, f)
			}
		}
	}
	res.Valid = len(res.Errors) == 0
	return res
}

// evalRule dispatches on the rule variant. Each evaluator is a pure function
// from tree to findings.
func evalRule(t *canonical.Tree, r mode.Rule) []doctree.Finding {
	switch r.Kind {
	case mode.RuleRequiredSection:
		return evalRequiredSection(t, r)
	case mode.RuleMinSections:
		return evalMinSections(t, r)
	case mode.RuleRequiredResource:
		return evalRequiredResource(t, r)
	case mode.RuleRequiredTags:
		return evalRequiredTags(t, r)
	}
	return nil
}

func evalRequiredSection(t *canonical.Tree, r mode.Rule) []doctree.Finding {
	want := make(map[string]bool, len(r.Aliases)+1)
	want[normalize(r.Title)] = true
	for _, a := range r.Aliases {
		want[normalize(a)] = true
	}

	for _, s := range t.Flatten() {
		if !want[normalize(s.Title)] {
			continue
		}
		if r.Level > 0 && s.Level != r.Level {
			continue
		}
		return nil
	}

	msg := fmt.Sprintf("required section %q not found", r.Title)
	if r.Level > 0 {
		msg = fmt.Sprintf("required section %q not found at level %d", r.Title, r.Level)
	}
	return []doctree.Finding{finding(r, msg)}
}

func evalMinSections(t *canonical.Tree, r mode.Rule) []doctree.Finding {
	if n := len(t.Flatten()); n < r.Min {
		return []doctree.Finding{finding(r, fmt.Sprintf("document has %d sections, at least %d required", n, r.Min))}
	}
	return nil
}

func evalRequiredResource(t *canonical.Tree, r mode.Rule) []doctree.Finding {
	found := false
	for _, s := range t.Flatten() {
		for _, n := range s.Content {
			doctree.Walk(n, func(c *doctree.Node) bool {
				switch {
				case c.Kind == doctree.KindPlaceholder && c.RefKind == r.Resource:
					found = true
				case string(c.Kind) == r.Resource:
					// Unextracted trees still satisfy the check.
					found = true
				}
				return !found
			})
			if found {
				return nil
			}
		}
	}
	return []doctree.Finding{finding(r, fmt.Sprintf("document contains no %s resource", r.Resource))}
}

func evalRequiredTags(t *canonical.Tree, r mode.Rule) []doctree.Finding {
	if len(t.Meta.Tags) == 0 {
		return []doctree.Finding{finding(r, "document metadata has no tags")}
	}
	return nil
}

func finding(r mode.Rule, msg string) doctree.Finding {
	return doctree.Finding{
		Severity: r.EffectiveSeverity(),
		Code:     r.Key(),
		Message:  msg,
	}
}

func normalize(s string) string {
	return strings.ToLower(doctree.NormalizeTitle(s))
}
