package mode

import "github.com/lxcxjxhx/HOS-M2F/internal/doctree"

// builtins returns the four root modes. Section titles carry both English and
// Chinese forms; matching is normalized and case-insensitive.
func builtins() []Mode {
	return []Mode{
		{
			Name: "paper",
			Rules: []Rule{
				{Kind: RuleRequiredSection, Title: "References", Aliases: []string{"参考文献"}},
				{Kind: RuleMinSections, Min: 1},
			},
		},
		{
			Name: "patent",
			Rules: []Rule{
				{Kind: RuleRequiredSection, Title: "Abstract", Aliases: []string{"摘要"}},
				{Kind: RuleRequiredSection, Title: "Claims", Aliases: []string{"权利要求"}},
			},
		},
		{
			Name: "book",
			Rules: []Rule{
				{Kind: RuleRequiredSection, Title: "Copyright", Aliases: []string{"版权", "版权页", "Copyright Page"}},
				{Kind: RuleRequiredTags, Severity: doctree.SeverityWarning},
			},
		},
		{
			Name: "sop",
			Rules: []Rule{
				{Kind: RuleRequiredSection, Title: "Conclusion", Aliases: []string{"结论"}},
				{Kind: RuleRequiredSection, Title: "Steps", Aliases: []string{"步骤"}, Severity: doctree.SeverityWarning},
			},
		},
	}
}
