package classify

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	twErrors "github.com/tabwarden/tabwarden/internal/errors"

	"github.com/kaptinlin/jsonrepair"
)

// Triage is the validated first-pass structure. After parsing, Assignments
// covers every index 1..N: the model's incompleteness degrades coverage into
// the Unclassified bucket, never correctness.
type Triage struct {
	Narrative     string
	SessionIntent string
	Assignments   map[int]ItemReasoning
	Overall       ConfidenceTier
	Uncertainties []string
	DeepDive      []int
	MissingTabs   []int
	Repaired      bool
}

type triagePayload struct {
	Narrative         string                     `json:"narrative"`
	SessionIntent     string                     `json:"session_intent"`
	Assignments       map[string]json.RawMessage `json:"assignments"`
	OverallConfidence string                     `json:"overall_confidence"`
	Uncertainties     []string                   `json:"uncertainties"`
	DeepDive          []int                      `json:"deep_dive"`
}

type richAssignment struct {
	Category   string   `json:"category"`
	Signals    []string `json:"signals"`
	Confidence string   `json:"confidence"`
}

var ansiPattern = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[ -/]*[@-~]|\][^\x07\x1b]*(?:\x07|\x1b\\))`)

// stripControlSequences removes incidental terminal formatting some engines
// leak into their output.
func stripControlSequences(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// braceSpan isolates the first-to-last brace span as the JSON payload.
func braceSpan(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// decodePayload unmarshals the isolated payload into v. One deterministic
// structural repair is attempted; beyond that the payload is undecodable and
// the error propagates so the pipeline can fall back.
func decodePayload(raw string, v any) (repaired bool, err error) {
	payload := braceSpan(stripFences(stripControlSequences(raw)))
	if payload == "" {
		return false, twErrors.InvalidModelOutput("no JSON object in model response")
	}

	if err := json.Unmarshal([]byte(payload), v); err == nil {
		return false, nil
	}

	fixed, repairErr := jsonrepair.JSONRepair(payload)
	if repairErr != nil {
		return false, twErrors.InvalidModelOutput("undecodable model response: " + repairErr.Error())
	}
	if err := json.Unmarshal([]byte(fixed), v); err != nil {
		return false, twErrors.InvalidModelOutput("undecodable model response: " + err.Error())
	}
	return true, nil
}

// ParseTriage converts raw triage output for n items into a complete Triage.
// projectCategories widens the open category set for normalization.
func ParseTriage(raw string, n int, projectCategories []string) (*Triage, error) {
	var payload triagePayload
	repaired, err := decodePayload(raw, &payload)
	if err != nil {
		return nil, err
	}

	triage := &Triage{
		Narrative:     strings.TrimSpace(payload.Narrative),
		SessionIntent: strings.TrimSpace(payload.SessionIntent),
		Assignments:   make(map[int]ItemReasoning, n),
		Overall:       NormalizeTier(payload.OverallConfidence),
		Uncertainties: payload.Uncertainties,
		Repaired:      repaired,
	}

	for key, rawAssignment := range payload.Assignments {
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || idx < 1 || idx > n {
			// Out-of-range indices are a model hallucination, not our items.
			continue
		}
		triage.Assignments[idx] = normalizeAssignment(rawAssignment, projectCategories)
	}

	// Coverage completeness: synthesize Unclassified assignments for every
	// index the model skipped, and record the gap for diagnostics.
	for i := 1; i <= n; i++ {
		if _, ok := triage.Assignments[i]; ok {
			continue
		}
		triage.Assignments[i] = ItemReasoning{
			Category:   UnclassifiedName,
			Signals:    []string{"missing from model assignment set"},
			Confidence: ConfidenceLow,
		}
		triage.MissingTabs = append(triage.MissingTabs, i)
	}
	sort.Ints(triage.MissingTabs)

	for _, idx := range payload.DeepDive {
		if idx >= 1 && idx <= n {
			triage.DeepDive = append(triage.DeepDive, idx)
		}
	}
	sort.Ints(triage.DeepDive)

	return triage, nil
}

// normalizeAssignment folds the legacy shorthand (a bare category string) and
// the rich form into one shape.
func normalizeAssignment(raw json.RawMessage, projectCategories []string) ItemReasoning {
	var shorthand string
	if err := json.Unmarshal(raw, &shorthand); err == nil {
		return ItemReasoning{
			Category:   CategoryFor(shorthand, projectCategories).Name,
			Confidence: ConfidenceMedium,
		}
	}

	var rich richAssignment
	if err := json.Unmarshal(raw, &rich); err != nil {
		return ItemReasoning{
			Category:   UnclassifiedName,
			Signals:    []string{"unreadable assignment"},
			Confidence: ConfidenceLow,
		}
	}
	return ItemReasoning{
		Category:   CategoryFor(rich.Category, projectCategories).Name,
		Signals:    rich.Signals,
		Confidence: NormalizeTier(rich.Confidence),
	}
}

type deepDivePayload struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Entities  []string `json:"entities"`
	Relevance string   `json:"relevance"`
}

// ParseDeepDive converts one item's deep-analysis output.
func ParseDeepDive(raw string) (*DeepDiveResult, error) {
	var payload deepDivePayload
	if _, err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return nil, twErrors.InvalidModelOutput("deep analysis missing summary")
	}
	return &DeepDiveResult{
		Summary:   strings.TrimSpace(payload.Summary),
		KeyPoints: payload.KeyPoints,
		Entities:  payload.Entities,
		Relevance: strings.TrimSpace(payload.Relevance),
	}, nil
}

var mermaidFence = regexp.MustCompile("(?s)```(?:mermaid)?\\s*(.*?)```")

// ParseVisualization extracts the diagram definition from the synthesis pass.
// A fenced block wins; otherwise the whole trimmed response is the diagram.
func ParseVisualization(raw string) (*Visualization, error) {
	clean := strings.TrimSpace(stripControlSequences(raw))
	if m := mermaidFence.FindStringSubmatch(clean); m != nil {
		clean = strings.TrimSpace(m[1])
	}
	if clean == "" {
		return nil, twErrors.InvalidModelOutput("empty visualization response")
	}
	return &Visualization{Format: "mermaid", Definition: clean}, nil
}

type thematicPayload struct {
	Throughlines   []string `json:"throughlines"`
	Support        []struct {
		From string `json:"from"`
		To   string `json:"to"`
		Note string `json:"note"`
	} `json:"support"`
	SessionPattern string   `json:"session_pattern"`
	NextActions    []string `json:"next_actions"`
}

// ParseThematic converts the cross-referencing pass output.
func ParseThematic(raw string) (*ThematicAnalysis, error) {
	var payload thematicPayload
	if _, err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}

	analysis := &ThematicAnalysis{
		Throughlines:   payload.Throughlines,
		SessionPattern: strings.TrimSpace(payload.SessionPattern),
		NextActions:    payload.NextActions,
	}
	for _, s := range payload.Support {
		if s.From == "" || s.To == "" {
			continue
		}
		analysis.Support = append(analysis.Support, SupportLink{From: s.From, To: s.To, Note: s.Note})
	}
	if analysis.SessionPattern == "" && len(analysis.Throughlines) == 0 && len(analysis.Support) == 0 {
		return nil, twErrors.InvalidModelOutput("thematic analysis carried no content")
	}
	return analysis, nil
}
