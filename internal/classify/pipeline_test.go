package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabwarden/tabwarden/internal/capture"
	"github.com/tabwarden/tabwarden/internal/errors"
	"github.com/tabwarden/tabwarden/internal/model/contract"
	"github.com/tabwarden/tabwarden/internal/project"
)

// scriptedGateway answers each pass by matching on the system prompt.
type scriptedGateway struct {
	triage    string
	triageErr error
	deepDive  map[int]string // by call order within the pass
	deepErr   map[int]error
	synthesis string
	synthErr  error
	thematic  string
	themErr   error

	deepCalls int
	invokes   []string
}

func (g *scriptedGateway) Invoke(ctx context.Context, req contract.InvokeRequest) (*contract.InvokeResult, error) {
	usage := contract.Usage{InputTokens: 100, OutputTokens: 50}
	switch req.System {
	case triageSystemPrompt:
		g.invokes = append(g.invokes, "triage")
		if g.triageErr != nil {
			return nil, g.triageErr
		}
		return &contract.InvokeResult{Text: g.triage, Usage: usage}, nil
	case deepDiveSystemPrompt:
		g.deepCalls++
		g.invokes = append(g.invokes, "deep_dive")
		if err := g.deepErr[g.deepCalls]; err != nil {
			return nil, err
		}
		return &contract.InvokeResult{Text: g.deepDive[g.deepCalls], Usage: usage}, nil
	case synthesisSystemPrompt:
		g.invokes = append(g.invokes, "synthesis")
		if g.synthErr != nil {
			return nil, g.synthErr
		}
		return &contract.InvokeResult{Text: g.synthesis, Usage: usage}, nil
	case thematicSystemPrompt:
		g.invokes = append(g.invokes, "thematic")
		if g.themErr != nil {
			return nil, g.themErr
		}
		return &contract.InvokeResult{Text: g.thematic, Usage: usage}, nil
	}
	return nil, errors.Internal("unexpected system prompt")
}

func fiveTabs() []capture.Tab {
	return []capture.Tab{
		{URL: "https://github.com/x/y/pull/1", Title: "PR"},
		{URL: "https://pkg.go.dev/sync", Title: "sync docs"},
		{URL: "https://arxiv.org/abs/1706.03762", Title: "Attention"},
		{URL: "https://youtube.com/watch?v=z", Title: "talk"},
		{URL: "https://example.com/misc", Title: "misc"},
	}
}

const happyTriage = `{
	"narrative": "debugging plus background reading",
	"session_intent": "ship the fix",
	"assignments": {
		"1": {"category": "Development", "signals": ["PR"], "confidence": "high"},
		"2": {"category": "Reference", "confidence": "high"},
		"3": {"category": "Research", "confidence": "medium"},
		"4": "Media",
		"5": {"category": "Reading", "confidence": "low"}
	},
	"overall_confidence": "high",
	"deep_dive": [3]
}`

const happyDeepDive = `{"summary": "transformer paper", "key_points": ["attention"], "entities": ["Vaswani"], "relevance": "background for the fix"}`

func TestPipelineHappyPath(t *testing.T) {
	gw := &scriptedGateway{
		triage:    happyTriage,
		deepDive:  map[int]string{1: happyDeepDive},
		synthesis: "```mermaid\nflowchart TD\n A-->B\n```",
	}
	p := NewPipeline(gw, nil, Config{})

	result, err := p.Classify(context.Background(), fiveTabs(), "gpt-4o-mini", Options{})
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalItems())
	assert.Equal(t, 5, result.ClassifiedCount())
	assert.False(t, result.Meta.Diagnostics.FallbackUsed)
	assert.Equal(t, "ship the fix", result.SessionIntent)

	dd := result.DeepDive["https://arxiv.org/abs/1706.03762"]
	require.NotNil(t, dd)
	assert.Equal(t, "transformer paper", dd.Summary)
	assert.Empty(t, dd.Err)

	require.NotNil(t, result.Visualization)
	assert.Contains(t, result.Visualization.Definition, "flowchart")

	// triage + 1 deep dive + synthesis, no thematic without context
	assert.Equal(t, []string{"triage", "deep_dive", "synthesis"}, gw.invokes)
	assert.Len(t, result.Meta.Passes, 3)
	assert.Equal(t, 300, result.Meta.InputTokens)
	assert.Equal(t, 150, result.Meta.OutputTokens)
}

func TestPipelineMissingAssignmentsScenario(t *testing.T) {
	// Model assigns only 1-4 out of 5.
	partial := `{
		"assignments": {
			"1": "Development", "2": "Reference", "3": "Research", "4": "Media"
		}
	}`
	gw := &scriptedGateway{triage: partial, synthesis: "flowchart TD\n A-->B"}
	p := NewPipeline(gw, nil, Config{})

	result, err := p.Classify(context.Background(), fiveTabs(), "e", Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, result.ClassifiedCount())
	assert.Equal(t, []int{5}, result.Meta.Diagnostics.MissingTabs)

	unclassified := result.Group(UnclassifiedName)
	require.NotNil(t, unclassified)
	require.Len(t, unclassified.Items, 1)
	assert.Equal(t, "https://example.com/misc", unclassified.Items[0].URL)
}

func TestPipelineTriageExhaustionFallsBack(t *testing.T) {
	gw := &scriptedGateway{triageErr: errors.Transient("engine down")}
	p := NewPipeline(gw, NewRuleClassifier(nil), Config{})

	result, err := p.Classify(context.Background(), fiveTabs(), "e", Options{})
	require.NoError(t, err)

	assert.True(t, result.Meta.Diagnostics.FallbackUsed)
	assert.Equal(t, 5, result.TotalItems())
	assert.NotNil(t, result.Group("Development"))
	// Only the triage attempt hit the gateway; later passes never run on fallback.
	assert.Equal(t, []string{"triage"}, gw.invokes)
}

func TestPipelineUndecodableTriageFallsBack(t *testing.T) {
	gw := &scriptedGateway{triage: "I refuse to answer in JSON."}
	p := NewPipeline(gw, NewRuleClassifier(nil), Config{})

	result, err := p.Classify(context.Background(), fiveTabs(), "e", Options{})
	require.NoError(t, err)
	assert.True(t, result.Meta.Diagnostics.FallbackUsed)
}

func TestPipelineDeepDivePartialFailure(t *testing.T) {
	triage := strings.Replace(happyTriage, `"deep_dive": [3]`, `"deep_dive": [1, 3]`, 1)
	gw := &scriptedGateway{
		triage:    triage,
		deepDive:  map[int]string{2: happyDeepDive},
		deepErr:   map[int]error{1: errors.Transient("timeout")},
		synthesis: "flowchart TD\n A-->B",
	}
	p := NewPipeline(gw, nil, Config{})

	result, err := p.Classify(context.Background(), fiveTabs(), "e", Options{})
	require.NoError(t, err)

	failed := result.DeepDive["https://github.com/x/y/pull/1"]
	require.NotNil(t, failed)
	assert.NotEmpty(t, failed.Err)

	ok := result.DeepDive["https://arxiv.org/abs/1706.03762"]
	require.NotNil(t, ok)
	assert.Empty(t, ok.Err)
	assert.Equal(t, 2, gw.deepCalls)
}

func TestPipelineSynthesisFailureDegrades(t *testing.T) {
	gw := &scriptedGateway{
		triage:   happyTriage,
		deepDive: map[int]string{1: happyDeepDive},
		synthErr: errors.Transient("down"),
	}
	p := NewPipeline(gw, nil, Config{})

	result, err := p.Classify(context.Background(), fiveTabs(), "e", Options{})
	require.NoError(t, err)
	assert.Nil(t, result.Visualization)
	assert.False(t, result.Meta.Diagnostics.FallbackUsed)
}

func TestPipelineThematicPass(t *testing.T) {
	ctx := &project.Context{Projects: []project.Project{{Name: "thesis", Keywords: []string{"attention"}}}}
	gw := &scriptedGateway{
		triage:    happyTriage,
		deepDive:  map[int]string{1: happyDeepDive},
		synthesis: "flowchart TD\n A-->B",
		thematic:  `{"session_pattern": "research-heavy", "throughlines": ["thesis"], "next_actions": ["write"]}`,
	}
	p := NewPipeline(gw, nil, Config{})

	result, err := p.Classify(context.Background(), fiveTabs(), "e", Options{Context: ctx})
	require.NoError(t, err)

	require.NotNil(t, result.Thematic)
	assert.Equal(t, "research-heavy", result.Thematic.SessionPattern)
	assert.Equal(t, []string{"triage", "deep_dive", "synthesis", "thematic"}, gw.invokes)
}

func TestPipelineThematicFailureDegrades(t *testing.T) {
	ctx := &project.Context{Projects: []project.Project{{Name: "thesis"}}}
	gw := &scriptedGateway{
		triage:    happyTriage,
		deepDive:  map[int]string{1: happyDeepDive},
		synthesis: "flowchart TD\n A-->B",
		themErr:   errors.Transient("down"),
	}
	p := NewPipeline(gw, nil, Config{})

	result, err := p.Classify(context.Background(), fiveTabs(), "e", Options{Context: ctx})
	require.NoError(t, err)
	assert.Nil(t, result.Thematic)
}

func TestPipelineDeepDiveMaxCap(t *testing.T) {
	triage := strings.Replace(happyTriage, `"deep_dive": [3]`, `"deep_dive": [1, 2, 3]`, 1)
	gw := &scriptedGateway{
		triage:    triage,
		deepDive:  map[int]string{1: happyDeepDive, 2: happyDeepDive},
		synthesis: "flowchart TD\n A-->B",
	}
	p := NewPipeline(gw, nil, Config{DeepDiveMax: 2})

	result, err := p.Classify(context.Background(), fiveTabs(), "e", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, gw.deepCalls)
	assert.Len(t, result.DeepDive, 2)
}

func TestPipelineEmptyInput(t *testing.T) {
	p := NewPipeline(&scriptedGateway{}, nil, Config{})
	_, err := p.Classify(context.Background(), nil, "e", Options{})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestPipelineSchemaVersionStamped(t *testing.T) {
	gw := &scriptedGateway{triage: happyTriage, deepDive: map[int]string{1: happyDeepDive}, synthesis: "flowchart"}
	p := NewPipeline(gw, nil, Config{})

	result, err := p.Classify(context.Background(), fiveTabs(), "gpt-4o-mini", Options{})
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, result.Meta.SchemaVersion)
	assert.Equal(t, "gpt-4o-mini", result.Meta.EngineID)
	assert.False(t, result.Meta.StartedAt.IsZero())
}
