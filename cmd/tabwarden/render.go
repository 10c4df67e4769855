package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/tabwarden/tabwarden/internal/classify"
	"github.com/tabwarden/tabwarden/internal/disposition"
	"github.com/tabwarden/tabwarden/internal/launchpad"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			Padding(0, 1)
	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func renderResult(sessionID string, result *classify.Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Session " + sessionID))
	b.WriteString("\n")
	if result.Narrative != "" {
		b.WriteString(result.Narrative + "\n")
	}
	if result.SessionIntent != "" {
		b.WriteString(dimStyle.Render("intent: "+result.SessionIntent) + "\n")
	}

	t := newTable("Category", "Item", "Confidence")
	for _, group := range result.Groups {
		for _, item := range group.Items {
			confidence := ""
			if r, ok := result.Reasoning.Items[item.ID()]; ok {
				confidence = string(r.Confidence)
			}
			t.Row(group.Category.Name, truncate(item.ID(), 60), confidence)
		}
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%d/%d classified", result.ClassifiedCount(), result.TotalItems()))
	if result.Meta.Diagnostics.FallbackUsed {
		b.WriteString(dimStyle.Render("  (rule fallback)"))
	}
	if len(result.Meta.Diagnostics.MissingTabs) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  missing from model output: %v", result.Meta.Diagnostics.MissingTabs)))
	}
	b.WriteString("\n")

	if result.Visualization != nil {
		b.WriteString("\n" + titleStyle.Render("Visualization") + "\n")
		b.WriteString(result.Visualization.Definition + "\n")
	}
	if result.Thematic != nil && result.Thematic.SessionPattern != "" {
		b.WriteString(dimStyle.Render("session pattern: "+result.Thematic.SessionPattern) + "\n")
	}
	return b.String()
}

func renderView(sessionID string, view *disposition.View) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Session " + sessionID))
	b.WriteString("\n")

	t := newTable("Item", "Category", "Status", "Priority")
	for _, id := range view.Order {
		state := view.Items[id]
		status := string(state.Status)
		if state.Status == disposition.StatusPromoted && state.PromotedTo != "" {
			status += " → " + state.PromotedTo
		}
		t.Row(truncate(id, 60), state.Category, status, state.Priority)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	if view.AllResolved {
		b.WriteString("all items resolved; the launchpad can be cleared\n")
	} else {
		b.WriteString(fmt.Sprintf("%d of %d items unresolved\n", view.UnresolvedCount, view.Total))
	}
	return b.String()
}

func renderLock(rec *launchpad.Record) string {
	if rec == nil {
		return "launchpad is unlocked"
	}

	t := newTable("Field", "Value")
	t.Row("session", rec.SessionID)
	t.Row("locked at", rec.LockedAt.Format("2006-01-02 15:04:05"))
	t.Row("items remaining", fmt.Sprintf("%d", rec.ItemsRemaining))
	if rec.Resume.Goal != "" {
		t.Row("goal", rec.Resume.Goal)
	}
	if rec.Resume.FocusCategory != "" {
		t.Row("focus", rec.Resume.FocusCategory)
	}
	if !rec.Resume.LastActivity.IsZero() {
		t.Row("last activity", rec.Resume.LastActivity.Format("2006-01-02 15:04:05"))
	}
	return t.String()
}
