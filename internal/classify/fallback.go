package classify

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tabwarden/tabwarden/internal/capture"
)

// RecallIndex is the optional memory of past classifications the fallback
// consults before resorting to static rules.
type RecallIndex interface {
	Nearest(ctx context.Context, text string) (category string, score float32, err error)
}

// recallMinScore is the similarity floor below which a past classification is
// not trusted.
const recallMinScore = 0.82

type hostRule struct {
	fragment string
	category string
}

type keywordRule struct {
	keyword  string
	category string
}

// Deterministic placement rules, checked in order. First match wins.
var hostRules = []hostRule{
	{"github.com", "Development"},
	{"gitlab.com", "Development"},
	{"stackoverflow.com", "Development"},
	{"localhost", "Development"},
	{"pkg.go.dev", "Reference"},
	{"developer.mozilla.org", "Reference"},
	{"wikipedia.org", "Reference"},
	{"docs.", "Reference"},
	{"arxiv.org", "Research"},
	{"scholar.google", "Research"},
	{"youtube.com", "Media"},
	{"netflix.com", "Media"},
	{"spotify.com", "Media"},
	{"twitch.tv", "Media"},
	{"amazon.", "Shopping"},
	{"ebay.", "Shopping"},
	{"etsy.com", "Shopping"},
	{"mail.google.com", "Communication"},
	{"outlook.", "Communication"},
	{"slack.com", "Communication"},
	{"discord.com", "Communication"},
	{"calendar.google.com", "Work"},
	{"notion.so", "Work"},
	{"linear.app", "Work"},
	{"jira.", "Work"},
	{"medium.com", "Reading"},
	{"substack.com", "Reading"},
	{"news.ycombinator.com", "Reading"},
}

var keywordRules = []keywordRule{
	{"tutorial", "Reading"},
	{"documentation", "Reference"},
	{"api reference", "Reference"},
	{"paper", "Research"},
	{"cart", "Shopping"},
	{"checkout", "Shopping"},
	{"inbox", "Communication"},
	{"pull request", "Development"},
	{"issue #", "Development"},
}

// RuleClassifier is the wholesale fallback when the triage pass itself fails:
// a deterministic URL/keyword classifier that always yields a well-formed
// Result. It never calls a model.
type RuleClassifier struct {
	recall RecallIndex
}

func NewRuleClassifier(recall RecallIndex) *RuleClassifier {
	return &RuleClassifier{recall: recall}
}

// Classify places every item deterministically. Recall matches (past
// classifications of similar items) outrank static rules when available.
func (rc *RuleClassifier) Classify(ctx context.Context, items []capture.Tab) *Result {
	started := time.Now()

	result := &Result{
		Narrative:     "Session classified by deterministic rules; the model triage pass was unavailable.",
		SessionIntent: "unknown (rule-based classification)",
		Reasoning: Reasoning{
			Items:   make(map[string]ItemReasoning, len(items)),
			Overall: ConfidenceLow,
		},
		Meta: Meta{
			SchemaVersion: SchemaVersion,
			EngineID:      "rules",
			StartedAt:     started.UTC(),
			Diagnostics:   Diagnostics{FallbackUsed: true},
		},
	}

	groupIndex := make(map[string]int)
	recallConsults := 0

	for _, item := range items {
		category, signals, confidence := rc.place(ctx, item, &recallConsults)

		result.Reasoning.Items[item.ID()] = ItemReasoning{
			Category:   category,
			Signals:    signals,
			Confidence: confidence,
		}

		gi, ok := groupIndex[category]
		if !ok {
			gi = len(result.Groups)
			groupIndex[category] = gi
			result.Groups = append(result.Groups, Group{Category: CategoryFor(category, nil)})
		}
		result.Groups[gi].Items = append(result.Groups[gi].Items, item)
	}

	result.Meta.Diagnostics.RecallConsults = recallConsults
	result.Meta.Passes = []PassMeta{{
		Name:       "rule_fallback",
		DurationMS: time.Since(started).Milliseconds(),
	}}

	return result
}

func (rc *RuleClassifier) place(ctx context.Context, item capture.Tab, recallConsults *int) (string, []string, ConfidenceTier) {
	if rc.recall != nil {
		*recallConsults++
		category, score, err := rc.recall.Nearest(ctx, item.Title+"\n"+item.ContentExcerpt)
		if err == nil && category != "" && score >= recallMinScore {
			return category, []string{"similar to a previously classified item"}, ConfidenceMedium
		}
		if err != nil {
			slog.Debug("Recall lookup failed, using static rules", "item", item.ID(), "error", err)
		}
	}

	host := hostOf(item.URL)
	for _, rule := range hostRules {
		if strings.Contains(host, rule.fragment) {
			return rule.category, []string{"url matches " + rule.fragment}, ConfidenceMedium
		}
	}

	haystack := strings.ToLower(item.Title + " " + item.ContentExcerpt)
	for _, rule := range keywordRules {
		if strings.Contains(haystack, rule.keyword) {
			return rule.category, []string{"title/content mentions " + strconv.Quote(rule.keyword)}, ConfidenceLow
		}
	}

	return UnclassifiedName, []string{"no rule matched"}, ConfidenceLow
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}
	return strings.ToLower(u.Host)
}
