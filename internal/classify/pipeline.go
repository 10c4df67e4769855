package classify

import (
	"context"
	"log/slog"
	"time"

	"github.com/tabwarden/tabwarden/internal/capture"
	twErrors "github.com/tabwarden/tabwarden/internal/errors"
	"github.com/tabwarden/tabwarden/internal/logger"
	"github.com/tabwarden/tabwarden/internal/model/contract"
	"github.com/tabwarden/tabwarden/internal/project"
)

// Gateway is the slice of the model layer the pipeline consumes. Retries and
// engine fallback happen behind it; here a returned error means exhausted.
type Gateway interface {
	Invoke(ctx context.Context, req contract.InvokeRequest) (*contract.InvokeResult, error)
}

// Config tunes prompt sizes. Zero values take the package defaults.
type Config struct {
	MaxExcerptChars int
	DeepDiveMax     int
	MaxTokens       int
}

func (c Config) withDefaults() Config {
	if c.MaxExcerptChars <= 0 {
		c.MaxExcerptChars = 2000
	}
	if c.DeepDiveMax <= 0 {
		c.DeepDiveMax = 5
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	return c
}

// Options carries per-call knobs.
type Options struct {
	// Context enables the thematic pass and widens the category set.
	Context *project.Context
	// Debug logs raw prompts and responses.
	Debug bool
}

// Pipeline turns N captured tabs into one classification Result. The triage
// pass is the only fatal one: its exhaustion falls back wholesale to the rule
// classifier, so callers always receive a well-formed Result. Later passes
// degrade individually.
type Pipeline struct {
	gw       Gateway
	fallback *RuleClassifier
	cfg      Config
}

func NewPipeline(gw Gateway, fallback *RuleClassifier, cfg Config) *Pipeline {
	if fallback == nil {
		fallback = NewRuleClassifier(nil)
	}
	return &Pipeline{gw: gw, fallback: fallback, cfg: cfg.withDefaults()}
}

// Classify runs the full pass sequence. The returned Result is always
// complete; err is only non-nil for unusable input.
func (p *Pipeline) Classify(ctx context.Context, items []capture.Tab, engineID string, opts Options) (*Result, error) {
	if len(items) == 0 {
		return nil, twErrors.InvalidInput("no items to classify")
	}

	started := time.Now()
	traceID := logger.GetTraceID(ctx)
	sessionID := logger.GetSessionID(ctx)
	projectCategories := opts.Context.CategoryNames()

	slog.Info("Classification started",
		"items", len(items),
		"engine", engineID,
		"project_categories", len(projectCategories),
		"session_id", sessionID,
		"trace_id", traceID,
	)

	result, triage := p.runTriage(ctx, items, engineID, projectCategories, opts)
	if triage == nil {
		// Triage exhausted: wholesale rule-based fallback.
		fb := p.fallback.Classify(ctx, items)
		fb.Meta.Passes = append(result.Meta.Passes, fb.Meta.Passes...)
		fb.Meta.InputTokens = result.Meta.InputTokens
		fb.Meta.OutputTokens = result.Meta.OutputTokens
		fb.Meta.StartedAt = started.UTC()
		slog.Warn("Triage exhausted, rule fallback produced result",
			"items", len(items), "trace_id", traceID)
		return fb, nil
	}

	if len(triage.DeepDive) > 0 {
		p.runDeepDive(ctx, result, items, engineID, triage.DeepDive)
	}

	p.runSynthesis(ctx, result, engineID)

	if opts.Context != nil && len(opts.Context.Projects) > 0 {
		p.runThematic(ctx, result, engineID, opts.Context.Projects)
	}

	slog.Info("Classification finished",
		"classified", result.ClassifiedCount(),
		"total", result.TotalItems(),
		"passes", len(result.Meta.Passes),
		"duration_ms", time.Since(started).Milliseconds(),
		"session_id", sessionID,
		"trace_id", traceID,
	)

	return result, nil
}

// runTriage returns a skeletal Result carrying pass accounting, and the
// parsed triage (nil when the pass is exhausted).
func (p *Pipeline) runTriage(ctx context.Context, items []capture.Tab, engineID string, projectCategories []string, opts Options) (*Result, *Triage) {
	result := &Result{
		Meta: Meta{
			SchemaVersion: SchemaVersion,
			EngineID:      engineID,
			StartedAt:     time.Now().UTC(),
		},
	}

	prompt := buildTriagePrompt(items, projectCategories, p.cfg.MaxExcerptChars)
	raw, pass := p.invoke(ctx, engineID, triageSystemPrompt, prompt, "triage", opts.Debug)
	defer func() {
		result.Meta.Passes = append(result.Meta.Passes, pass)
		result.Meta.InputTokens += pass.InputTokens
		result.Meta.OutputTokens += pass.OutputTokens
	}()
	if pass.Err != "" {
		return result, nil
	}

	triage, err := ParseTriage(raw, len(items), projectCategories)
	if err != nil {
		pass.Err = err.Error()
		slog.Warn("Triage response undecodable", "error", err)
		return result, nil
	}

	result.Narrative = triage.Narrative
	result.SessionIntent = triage.SessionIntent
	result.Reasoning = Reasoning{
		Items:         make(map[string]ItemReasoning, len(items)),
		Uncertainties: triage.Uncertainties,
		Overall:       triage.Overall,
	}
	result.Meta.Diagnostics.MissingTabs = triage.MissingTabs
	result.Meta.Diagnostics.RepairApplied = triage.Repaired

	groupIndex := make(map[string]int)
	for i, item := range items {
		assignment := triage.Assignments[i+1]
		result.Reasoning.Items[item.ID()] = assignment

		gi, ok := groupIndex[assignment.Category]
		if !ok {
			gi = len(result.Groups)
			groupIndex[assignment.Category] = gi
			result.Groups = append(result.Groups, Group{Category: CategoryFor(assignment.Category, projectCategories)})
		}
		result.Groups[gi].Items = append(result.Groups[gi].Items, item)
	}

	if len(triage.MissingTabs) > 0 {
		slog.Warn("Triage assignments incomplete, backfilled to Unclassified",
			"missing", triage.MissingTabs, "total", len(items))
	}

	return result, triage
}

// runDeepDive analyses nominated items one at a time. A failure in one item
// records an error marker in its slot and the siblings proceed.
func (p *Pipeline) runDeepDive(ctx context.Context, result *Result, items []capture.Tab, engineID string, nominated []int) {
	if len(nominated) > p.cfg.DeepDiveMax {
		nominated = nominated[:p.cfg.DeepDiveMax]
	}

	result.DeepDive = make(map[string]*DeepDiveResult, len(nominated))

	for _, idx := range nominated {
		item := items[idx-1]
		prompt := buildDeepDivePrompt(item, p.cfg.MaxExcerptChars)
		raw, pass := p.invoke(ctx, engineID, deepDiveSystemPrompt, prompt, "deep_dive", false)

		if pass.Err == "" {
			dd, err := ParseDeepDive(raw)
			if err != nil {
				pass.Err = err.Error()
			} else {
				result.DeepDive[item.ID()] = dd
			}
		}
		if pass.Err != "" {
			result.DeepDive[item.ID()] = &DeepDiveResult{Err: pass.Err}
			slog.Warn("Deep analysis failed for item", "item", item.ID(), "error", pass.Err)
		}

		result.Meta.Passes = append(result.Meta.Passes, pass)
		result.Meta.InputTokens += pass.InputTokens
		result.Meta.OutputTokens += pass.OutputTokens
	}
}

// runSynthesis requests the session diagram. Failure degrades to
// "visualization unavailable".
func (p *Pipeline) runSynthesis(ctx context.Context, result *Result, engineID string) {
	prompt := buildSynthesisPrompt(result.Groups, result.DeepDive)
	raw, pass := p.invoke(ctx, engineID, synthesisSystemPrompt, prompt, "synthesis", false)

	if pass.Err == "" {
		viz, err := ParseVisualization(raw)
		if err != nil {
			pass.Err = err.Error()
		} else {
			result.Visualization = viz
		}
	}
	if pass.Err != "" {
		slog.Warn("Synthesis pass degraded, visualization unavailable", "error", pass.Err)
	}

	result.Meta.Passes = append(result.Meta.Passes, pass)
	result.Meta.InputTokens += pass.InputTokens
	result.Meta.OutputTokens += pass.OutputTokens
}

func (p *Pipeline) runThematic(ctx context.Context, result *Result, engineID string, projects []project.Project) {
	prompt := buildThematicPrompt(result.Groups, projects)
	raw, pass := p.invoke(ctx, engineID, thematicSystemPrompt, prompt, "thematic", false)

	if pass.Err == "" {
		thematic, err := ParseThematic(raw)
		if err != nil {
			pass.Err = err.Error()
		} else {
			result.Thematic = thematic
		}
	}
	if pass.Err != "" {
		slog.Warn("Thematic pass degraded", "error", pass.Err)
	}

	result.Meta.Passes = append(result.Meta.Passes, pass)
	result.Meta.InputTokens += pass.InputTokens
	result.Meta.OutputTokens += pass.OutputTokens
}

// invoke runs one gateway call and packages its accounting.
func (p *Pipeline) invoke(ctx context.Context, engineID, system, prompt, passName string, debug bool) (string, PassMeta) {
	pass := PassMeta{Name: passName}
	passStart := time.Now()

	if debug {
		slog.Debug("Pass prompt", "pass", passName, "prompt", prompt)
	}

	res, err := p.gw.Invoke(ctx, contract.InvokeRequest{
		Engine:    engineID,
		System:    system,
		Prompt:    prompt,
		MaxTokens: p.cfg.MaxTokens,
	})
	pass.DurationMS = time.Since(passStart).Milliseconds()

	if err != nil {
		pass.Err = err.Error()
		return "", pass
	}

	pass.InputTokens = res.Usage.InputTokens
	pass.OutputTokens = res.Usage.OutputTokens

	if debug {
		slog.Debug("Pass response", "pass", passName, "response", res.Text)
	}

	return res.Text, pass
}
