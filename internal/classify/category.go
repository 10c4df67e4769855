package classify

import "strings"

// Category is a tagged value: either one of the built-in categories or a
// project-defined one. Structural behavior (protected, synthesis-eligible)
// hangs off capability flags, never off name pattern-matching.
type Category struct {
	Name           string `json:"name"`
	ProjectDefined bool   `json:"project_defined,omitempty"`
}

type CategoryFlags struct {
	// Protected categories cannot be emptied by regroup dispositions.
	Protected bool
	// SynthesisEligible categories contribute nodes to the visualization pass.
	SynthesisEligible bool
}

// UnclassifiedName is the reserved bucket the parser backfills missing
// assignments into.
const UnclassifiedName = "Unclassified"

var builtinFlags = map[string]CategoryFlags{
	"Work":          {SynthesisEligible: true},
	"Development":   {SynthesisEligible: true},
	"Research":      {SynthesisEligible: true},
	"Reading":       {SynthesisEligible: true},
	"Reference":     {SynthesisEligible: true},
	"Media":         {SynthesisEligible: true},
	"Shopping":      {},
	"Communication": {},
	UnclassifiedName: {Protected: true},
}

// Unclassified is the reserved backfill bucket.
var Unclassified = Category{Name: UnclassifiedName}

// BuiltinNames returns the built-in category set in a stable order.
func BuiltinNames() []string {
	return []string{
		"Work", "Development", "Research", "Reading",
		"Reference", "Media", "Shopping", "Communication",
		UnclassifiedName,
	}
}

// CategoryFor resolves a model-assigned name against the built-in set plus
// any project-defined categories. Unknown names become project-defined so the
// category set stays open.
func CategoryFor(name string, projectDefined []string) Category {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return Unclassified
	}

	for builtin := range builtinFlags {
		if strings.EqualFold(clean, builtin) {
			return Category{Name: builtin}
		}
	}
	for _, pd := range projectDefined {
		if strings.EqualFold(clean, pd) {
			return Category{Name: pd, ProjectDefined: true}
		}
	}
	return Category{Name: clean, ProjectDefined: true}
}

// Flags returns capability flags. Project-defined categories are
// synthesis-eligible and never protected.
func (c Category) Flags() CategoryFlags {
	if c.ProjectDefined {
		return CategoryFlags{SynthesisEligible: true}
	}
	if f, ok := builtinFlags[c.Name]; ok {
		return f
	}
	return CategoryFlags{}
}
