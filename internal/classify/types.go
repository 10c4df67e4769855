package classify

import (
	"time"

	"github.com/tabwarden/tabwarden/internal/capture"
)

// SchemaVersion is carried in Meta and checked on artifact load. Minor bumps
// add optional fields only; fields are never repurposed.
const SchemaVersion = "1.1"

type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// NormalizeTier maps arbitrary model output onto the three tiers, defaulting
// to low.
func NormalizeTier(s string) ConfidenceTier {
	switch ConfidenceTier(s) {
	case ConfidenceHigh, ConfidenceMedium:
		return ConfidenceTier(s)
	default:
		return ConfidenceLow
	}
}

// Group is one category with its items in capture order. Groups is the single
// canonical ordered representation of the session's categorization.
type Group struct {
	Category Category      `json:"category"`
	Items    []capture.Tab `json:"items"`
}

// ItemReasoning explains one assignment.
type ItemReasoning struct {
	Category   string         `json:"category"`
	Signals    []string       `json:"signals,omitempty"`
	Confidence ConfidenceTier `json:"confidence"`
}

// Reasoning is per-item assignments plus session-level confidence.
type Reasoning struct {
	Items         map[string]ItemReasoning `json:"items"`
	Uncertainties []string                 `json:"uncertainties,omitempty"`
	Overall       ConfidenceTier           `json:"overall"`
}

// DeepDiveResult is one item's extended analysis. Err marks a per-item
// failure without aborting the sibling analyses.
type DeepDiveResult struct {
	Summary   string   `json:"summary,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`
	Entities  []string `json:"entities,omitempty"`
	Relevance string   `json:"relevance,omitempty"`
	Err       string   `json:"error,omitempty"`
}

// Visualization is the declarative diagram artifact from the synthesis pass.
type Visualization struct {
	Format     string `json:"format"`
	Definition string `json:"definition"`
}

// SupportLink is one cross-category support relationship surfaced by the
// thematic pass.
type SupportLink struct {
	From string `json:"from"`
	To   string `json:"to"`
	Note string `json:"note,omitempty"`
}

// ThematicAnalysis cross-references categorized items against active-project
// context.
type ThematicAnalysis struct {
	Throughlines   []string      `json:"throughlines,omitempty"`
	Support        []SupportLink `json:"support,omitempty"`
	SessionPattern string        `json:"session_pattern,omitempty"`
	NextActions    []string      `json:"next_actions,omitempty"`
}

// PassMeta is timing and token accounting for one pipeline pass.
type PassMeta struct {
	Name         string `json:"name"`
	DurationMS   int64  `json:"duration_ms"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Err          string `json:"error,omitempty"`
}

// Diagnostics records partial-failure recovery without turning it into an
// error.
type Diagnostics struct {
	MissingTabs    []int `json:"missing_tabs,omitempty"`
	RepairApplied  bool  `json:"repair_applied,omitempty"`
	FallbackUsed   bool  `json:"fallback_used,omitempty"`
	RecallConsults int   `json:"recall_consults,omitempty"`
}

// Meta is the session artifact's bookkeeping.
type Meta struct {
	SchemaVersion string      `json:"schema_version"`
	EngineID      string      `json:"engine_id"`
	StartedAt     time.Time   `json:"started_at"`
	Passes        []PassMeta  `json:"passes"`
	InputTokens   int         `json:"input_tokens"`
	OutputTokens  int         `json:"output_tokens"`
	Diagnostics   Diagnostics `json:"diagnostics"`
}

// Result is the per-session classification artifact. Immutable once produced;
// user decisions accrue in the separate disposition log.
type Result struct {
	Narrative     string                     `json:"narrative"`
	SessionIntent string                     `json:"session_intent"`
	Groups        []Group                    `json:"groups"`
	Reasoning     Reasoning                  `json:"reasoning"`
	DeepDive      map[string]*DeepDiveResult `json:"deep_dive,omitempty"`
	Visualization *Visualization             `json:"visualization,omitempty"`
	Thematic      *ThematicAnalysis          `json:"thematic,omitempty"`
	Meta          Meta                       `json:"meta"`
}

// TotalItems counts items across all groups.
func (r *Result) TotalItems() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Items)
	}
	return n
}

// ClassifiedCount counts items outside the Unclassified bucket.
func (r *Result) ClassifiedCount() int {
	n := 0
	for _, g := range r.Groups {
		if g.Category.Name == UnclassifiedName {
			continue
		}
		n += len(g.Items)
	}
	return n
}

// Group returns the named group, or nil.
func (r *Result) Group(name string) *Group {
	for i := range r.Groups {
		if r.Groups[i].Category.Name == name {
			return &r.Groups[i]
		}
	}
	return nil
}

// Items returns every item in group order.
func (r *Result) Items() []capture.Tab {
	out := make([]capture.Tab, 0, r.TotalItems())
	for _, g := range r.Groups {
		out = append(out, g.Items...)
	}
	return out
}
