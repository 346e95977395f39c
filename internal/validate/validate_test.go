package validate

import (
	"testing"

	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
	"github.com/lxcxjxhx/HOS-M2F/internal/mode"
)

func treeOf(nodes ...*doctree.Node) *canonical.Tree {
	return canonical.Build(&doctree.Document{
		Path: "doc.md",
		Root: &doctree.Node{Kind: doctree.KindDocument, Children: nodes},
	})
}

func heading(level int, title string) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindHeading, Level: level, Title: title}
}

func resolve(t *testing.T, name string) mode.Resolved {
	t.Helper()
	r, err := mode.NewRegistry().Resolve(name)
	if err != nil {
		t.Fatalf("resolve %s: %v", name, err)
	}
	return r
}

func TestValidate_PatentMissingAbstract(t *testing.T) {
	tree := treeOf(
		heading(1, "My Invention"),
		heading(2, "Claims"),
	)
	res := Validate(tree, resolve(t, "patent"))

	if res.Valid {
		t.Fatal("missing Abstract must fail patent validation")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %d: %v", len(res.Errors), res.Errors)
	}
	if res.Errors[0].Code != "required_section/Abstract" {
		t.Errorf("unexpected error code %q", res.Errors[0].Code)
	}
}

func TestValidate_ChineseAliasMatches(t *testing.T) {
	tree := treeOf(
		heading(1, "摘要"),
		heading(1, "权利要求"),
	)
	res := Validate(tree, resolve(t, "patent"))
	if !res.Valid {
		t.Errorf("Chinese section titles must satisfy the alias list: %v", res.Errors)
	}
}

func TestValidate_TitleMatchingIsNormalized(t *testing.T) {
	tree := treeOf(
		heading(1, "  references "),
		heading(1, "Body"),
	)
	res := Validate(tree, resolve(t, "paper"))
	if !res.Valid {
		t.Errorf("matching must be case- and whitespace-insensitive: %v", res.Errors)
	}
}

func TestValidate_LevelConstraint(t *testing.T) {
	reg := mode.NewRegistry()
	if err := reg.Register(mode.Mode{
		Name:  "strict",
		Rules: []mode.Rule{{Kind: mode.RuleRequiredSection, Title: "Summary", Level: 2}},
	}); err != nil {
		t.Fatal(err)
	}
	resolved, _ := reg.Resolve("strict")

	wrongLevel := treeOf(heading(1, "Summary"))
	if Validate(wrongLevel, resolved).Valid {
		t.Error("a level-1 Summary must not satisfy a level-2 requirement")
	}
	rightLevel := treeOf(heading(1, "Doc"), heading(2, "Summary"))
	if res := Validate(rightLevel, resolved); !res.Valid {
		t.Errorf("level-2 Summary must satisfy the rule: %v", res.Errors)
	}
}

func TestValidate_DeepSectionSatisfiesWithoutLevel(t *testing.T) {
	// book requires Copyright anywhere in the tree.
	tree := treeOf(
		heading(1, "Front Matter"),
		heading(2, "Copyright"),
	)
	tree.Meta.Tags = []string{"fiction"}
	res := Validate(tree, resolve(t, "book"))
	if !res.Valid {
		t.Errorf("nested Copyright section must satisfy the rule: %v", res.Errors)
	}
}

func TestValidate_WarningsDoNotBlock(t *testing.T) {
	// book's tag rule is warning severity.
	tree := treeOf(heading(1, "Copyright"))
	res := Validate(tree, resolve(t, "book"))
	if !res.Valid {
		t.Fatalf("warnings must not invalidate: %v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != string(mode.RuleRequiredTags) {
		t.Errorf("expected one required_tags warning, got %v", res.Warnings)
	}
}

func TestValidate_MinSections(t *testing.T) {
	reg := mode.NewRegistry()
	if err := reg.Register(mode.Mode{
		Name:  "long",
		Rules: []mode.Rule{{Kind: mode.RuleMinSections, Min: 3}},
	}); err != nil {
		t.Fatal(err)
	}
	resolved, _ := reg.Resolve("long")

	short := treeOf(heading(1, "Only"))
	if Validate(short, resolved).Valid {
		t.Error("one section must fail a min of three")
	}
	long := treeOf(heading(1, "A"), heading(1, "B"), heading(1, "C"))
	if res := Validate(long, resolved); !res.Valid {
		t.Errorf("three sections must pass: %v", res.Errors)
	}
}

func TestValidate_RequiredResource(t *testing.T) {
	reg := mode.NewRegistry()
	if err := reg.Register(mode.Mode{
		Name:  "illustrated",
		Rules: []mode.Rule{{Kind: mode.RuleRequiredResource, Resource: "image"}},
	}); err != nil {
		t.Fatal(err)
	}
	resolved, _ := reg.Resolve("illustrated")

	without := treeOf(heading(1, "Text only"))
	if Validate(without, resolved).Valid {
		t.Error("document without images must fail")
	}

	withPlaceholder := treeOf(
		heading(1, "Pics"),
		&doctree.Node{Kind: doctree.KindPlaceholder, RefKind: "image", RefID: "img_000"},
	)
	if res := Validate(withPlaceholder, resolved); !res.Valid {
		t.Errorf("extracted image placeholder must satisfy the rule: %v", res.Errors)
	}

	withRaw := treeOf(
		heading(1, "Pics"),
		&doctree.Node{Kind: doctree.KindImage, Src: "a.png"},
	)
	if res := Validate(withRaw, resolved); !res.Valid {
		t.Errorf("unextracted image node must also satisfy the rule: %v", res.Errors)
	}
}

func TestValidate_FindingOrderFollowsRuleOrder(t *testing.T) {
	tree := treeOf(heading(1, "Neither"))
	res := Validate(tree, resolve(t, "patent"))
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", res.Errors)
	}
	if res.Errors[0].Code != "required_section/Abstract" || res.Errors[1].Code != "required_section/Claims" {
		t.Errorf("finding order must follow rule order: %v", res.Errors)
	}
}
