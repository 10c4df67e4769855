package classify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tabwarden/tabwarden/internal/capture"
	"github.com/tabwarden/tabwarden/internal/project"
)

const triageSystemPrompt = `You are a browser session analyst. You receive a numbered list of open tabs and classify every one of them. Respond with a single JSON object and nothing else.`

const deepDiveSystemPrompt = `You analyze a single web page capture in depth. Respond with a single JSON object and nothing else.`

const synthesisSystemPrompt = `You turn a categorized browser session into one declarative mermaid diagram. Respond with a single fenced mermaid block and nothing else.`

const thematicSystemPrompt = `You cross-reference a categorized browser session against the user's active projects. Respond with a single JSON object and nothing else.`

func buildTriagePrompt(items []capture.Tab, projectCategories []string, maxExcerpt int) string {
	var sb strings.Builder

	sb.WriteString("Classify each of the following tabs into exactly one category.\n\n")
	sb.WriteString("Categories: ")
	sb.WriteString(strings.Join(BuiltinNames(), ", "))
	if len(projectCategories) > 0 {
		sb.WriteString(", ")
		sb.WriteString(strings.Join(projectCategories, ", "))
	}
	sb.WriteString("\n\nTabs:\n")

	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s\n   URL: %s\n", i+1, item.Title, item.URL))
		if excerpt := clip(item.ContentExcerpt, maxExcerpt); excerpt != "" {
			sb.WriteString("   Excerpt: " + excerpt + "\n")
		}
	}

	sb.WriteString(fmt.Sprintf(`
Return JSON with this shape:
{
  "narrative": "one paragraph describing the session",
  "session_intent": "your hypothesis of what the user was doing",
  "assignments": {
    "1": {"category": "...", "signals": ["..."], "confidence": "high|medium|low"}
  },
  "overall_confidence": "high|medium|low",
  "uncertainties": ["..."],
  "deep_dive": [indices of tabs worth deeper analysis]
}
The assignments object MUST contain an entry for every index 1 through %d.
`, len(items)))

	return sb.String()
}

func buildDeepDivePrompt(item capture.Tab, maxExcerpt int) string {
	var sb strings.Builder

	sb.WriteString("Analyze this captured page.\n\n")
	sb.WriteString("Title: " + item.Title + "\n")
	sb.WriteString("URL: " + item.URL + "\n")
	if excerpt := clip(item.ContentExcerpt, maxExcerpt*4); excerpt != "" {
		sb.WriteString("Content:\n" + excerpt + "\n")
	}
	sb.WriteString(`
Return JSON: {"summary": "...", "key_points": ["..."], "entities": ["..."], "relevance": "why this page mattered in the session"}
`)

	return sb.String()
}

func buildSynthesisPrompt(groups []Group, deepDive map[string]*DeepDiveResult) string {
	var sb strings.Builder

	sb.WriteString("Draw one mermaid flowchart of this browser session. One node per item, grouped by category subgraphs. Cross-link items whose deep analysis relates them. Flag failed analyses with a distinct style.\n\n")

	for _, g := range groups {
		if !g.Category.Flags().SynthesisEligible {
			continue
		}
		sb.WriteString("Category " + g.Category.Name + ":\n")
		for _, item := range g.Items {
			sb.WriteString("- " + item.Title + "\n")
			if dd, ok := deepDive[item.ID()]; ok {
				if dd.Err != "" {
					sb.WriteString("  (analysis failed)\n")
				} else if dd.Summary != "" {
					sb.WriteString("  insight: " + clip(dd.Summary, 200) + "\n")
				}
			}
		}
	}

	return sb.String()
}

func buildThematicPrompt(groups []Group, projects []project.Project) string {
	var sb strings.Builder

	sb.WriteString("Active projects:\n")
	for _, p := range projects {
		sb.WriteString("- " + p.Name)
		if p.Description != "" {
			sb.WriteString(": " + p.Description)
		}
		sb.WriteString("\n")
		if len(p.Keywords) > 0 {
			sb.WriteString("  keywords: " + strings.Join(p.Keywords, ", ") + "\n")
		}
	}

	sb.WriteString("\nCategorized session:\n")
	for _, g := range groups {
		sb.WriteString("Category " + g.Category.Name + ":\n")
		for _, item := range g.Items {
			sb.WriteString("- " + item.Title + " (" + item.URL + ")\n")
		}
	}

	sb.WriteString(`
Cross-reference the session against the projects. Return JSON:
{
  "throughlines": ["themes that span categories"],
  "support": [{"from": "item url or title", "to": "project name", "note": "how it supports it"}],
  "session_pattern": "research-heavy | output-focused | scattered | maintenance",
  "next_actions": ["suggested next steps"]
}
`)

	return sb.String()
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
