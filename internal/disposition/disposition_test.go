package disposition

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabwarden/tabwarden/internal/capture"
	"github.com/tabwarden/tabwarden/internal/classify"
	"github.com/tabwarden/tabwarden/internal/errors"
)

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		ok    bool
	}{
		{"trash", Entry{Action: ActionTrash, ItemID: "a"}, true},
		{"complete", Entry{Action: ActionComplete, ItemID: "a"}, true},
		{"promote", Entry{Action: ActionPromote, ItemID: "a", Target: "thesis"}, true},
		{"promote without target", Entry{Action: ActionPromote, ItemID: "a"}, false},
		{"regroup", Entry{Action: ActionRegroup, ItemID: "a", From: "Reading", To: "Research"}, true},
		{"regroup without destination", Entry{Action: ActionRegroup, ItemID: "a", From: "Reading"}, false},
		{"regroup without source", Entry{Action: ActionRegroup, ItemID: "a", To: "Research"}, false},
		{"regroup with neither end", Entry{Action: ActionRegroup, ItemID: "a"}, false},
		{"reprioritize", Entry{Action: ActionReprioritize, ItemID: "a", Priority: "high"}, true},
		{"reprioritize without priority", Entry{Action: ActionReprioritize, ItemID: "a"}, false},
		{"undo", Entry{Action: ActionUndo, Undoes: "01ABC"}, true},
		{"undo without target entry", Entry{Action: ActionUndo}, false},
		{"missing item id", Entry{Action: ActionTrash}, false},
		{"unknown action", Entry{Action: "shred", ItemID: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errors.ErrInvalidInput)
			}
		})
	}
}

func TestLogAppendAndRead(t *testing.T) {
	log := NewLog(t.TempDir())

	first, err := log.Append("s1", Entry{Action: ActionTrash, ItemID: "https://a"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.At.IsZero())

	second, err := log.Append("s1", Entry{Action: ActionComplete, ItemID: "https://b"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	entries, err := log.Read("s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, ActionTrash, entries[0].Action)
	assert.Equal(t, ActionComplete, entries[1].Action)
}

func TestLogReadEmptySession(t *testing.T) {
	log := NewLog(t.TempDir())
	entries, err := log.Read("nobody")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogBatchRejectsWholeBatch(t *testing.T) {
	log := NewLog(t.TempDir())

	_, err := log.AppendBatch("s1", []Entry{
		{Action: ActionTrash, ItemID: "https://a"},
		{Action: ActionPromote, ItemID: "https://b"}, // no target
	})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	entries, err := log.Read("s1")
	require.NoError(t, err)
	assert.Empty(t, entries, "invalid batch must not land partially")
}

func TestLogLargeBatchLandsWhole(t *testing.T) {
	log := NewLog(t.TempDir())

	// Well past any internal write buffer once encoded.
	batch := make([]Entry, 64)
	for i := range batch {
		batch[i] = Entry{
			Action: ActionTrash,
			ItemID: fmt.Sprintf("https://example.com/%d/%s", i, strings.Repeat("p", 200)),
		}
	}

	stamped, err := log.AppendBatch("s1", batch)
	require.NoError(t, err)
	require.Len(t, stamped, len(batch))

	entries, err := log.Read("s1")
	require.NoError(t, err)
	require.Len(t, entries, len(batch))
	for i, e := range entries {
		assert.Equal(t, stamped[i].ID, e.ID)
		assert.Equal(t, batch[i].ItemID, e.ItemID)
	}
}

func TestLogSessionsAreIsolated(t *testing.T) {
	log := NewLog(t.TempDir())

	_, err := log.Append("s1", Entry{Action: ActionTrash, ItemID: "https://a"})
	require.NoError(t, err)

	entries, err := log.Read("s2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func twoGroups() []classify.Group {
	return []classify.Group{
		{
			Category: classify.Category{Name: "Development"},
			Items: []capture.Tab{
				{URL: "https://github.com/x/pr/1"},
				{URL: "https://pkg.go.dev/sync"},
			},
		},
		{
			Category: classify.Category{Name: "Reading"},
			Items: []capture.Tab{
				{URL: "https://example.com/essay"},
			},
		},
	}
}

func TestReconstructEmptyLog(t *testing.T) {
	view := Reconstruct(twoGroups(), nil)

	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 3, view.UnresolvedCount)
	assert.False(t, view.AllResolved)
	assert.Equal(t, StatusPending, view.Items["https://github.com/x/pr/1"].Status)
	assert.Equal(t, "Development", view.Items["https://pkg.go.dev/sync"].Category)
	assert.Equal(t, "Reading", view.Items["https://example.com/essay"].Category)
}

func TestReconstructRegroupThenTrash(t *testing.T) {
	entries := []Entry{
		{ID: "e1", Action: ActionRegroup, ItemID: "https://example.com/essay", From: "Reading", To: "Research"},
		{ID: "e2", Action: ActionTrash, ItemID: "https://example.com/essay"},
	}
	view := Reconstruct(twoGroups(), entries)

	state := view.Items["https://example.com/essay"]
	assert.Equal(t, StatusTrashed, state.Status)
	assert.Equal(t, "Research", state.Category, "regroup survives the later trash")
}

func TestReconstructUndoYieldsPending(t *testing.T) {
	entries := []Entry{
		{ID: "e1", Action: ActionPromote, ItemID: "https://github.com/x/pr/1", Target: "thesis"},
		{ID: "e2", Action: ActionUndo, Undoes: "e1"},
	}
	view := Reconstruct(twoGroups(), entries)

	state := view.Items["https://github.com/x/pr/1"]
	assert.Equal(t, StatusPending, state.Status)
	assert.Empty(t, state.PromotedTo)
}

func TestReconstructUndoAnyActionYieldsPending(t *testing.T) {
	for _, action := range []Action{ActionTrash, ActionComplete, ActionDefer, ActionLater} {
		entries := []Entry{
			{ID: "e1", Action: action, ItemID: "https://pkg.go.dev/sync"},
			{ID: "e2", Action: ActionUndo, Undoes: "e1"},
		}
		view := Reconstruct(twoGroups(), entries)
		assert.Equal(t, StatusPending, view.Items["https://pkg.go.dev/sync"].Status,
			"undo of %s", action)
	}
}

func TestReconstructAllResolved(t *testing.T) {
	entries := []Entry{
		{ID: "e1", Action: ActionTrash, ItemID: "https://github.com/x/pr/1"},
		{ID: "e2", Action: ActionComplete, ItemID: "https://pkg.go.dev/sync"},
		{ID: "e3", Action: ActionPromote, ItemID: "https://example.com/essay", Target: "reading-list"},
	}
	view := Reconstruct(twoGroups(), entries)

	assert.True(t, view.AllResolved)
	assert.Zero(t, view.UnresolvedCount)
	assert.Empty(t, view.Unresolved())
	assert.Equal(t, "reading-list", view.Items["https://example.com/essay"].PromotedTo)
}

func TestReconstructRegroupDoesNotResolve(t *testing.T) {
	entries := []Entry{
		{ID: "e1", Action: ActionRegroup, ItemID: "https://pkg.go.dev/sync", To: "Reference"},
		{ID: "e2", Action: ActionReprioritize, ItemID: "https://pkg.go.dev/sync", Priority: "high"},
	}
	view := Reconstruct(twoGroups(), entries)

	state := view.Items["https://pkg.go.dev/sync"]
	assert.Equal(t, StatusPending, state.Status)
	assert.Equal(t, "Reference", state.Category)
	assert.Equal(t, "high", state.Priority)
	assert.Equal(t, 3, view.UnresolvedCount)
}

func TestReconstructSkipsUnknownItems(t *testing.T) {
	entries := []Entry{
		{ID: "e1", Action: ActionTrash, ItemID: "https://gone"},
		{ID: "e2", Action: ActionUndo, Undoes: "missing"},
	}
	view := Reconstruct(twoGroups(), entries)
	assert.Equal(t, 3, view.UnresolvedCount)
}

func TestReconstructDeterminism(t *testing.T) {
	entries := []Entry{
		{ID: "e1", Action: ActionTrash, ItemID: "https://github.com/x/pr/1"},
		{ID: "e2", Action: ActionRegroup, ItemID: "https://example.com/essay", To: "Research"},
	}
	a := Reconstruct(twoGroups(), entries)
	b := Reconstruct(twoGroups(), entries)
	assert.Equal(t, a, b)
}

func TestReconstructLogRoundTrip(t *testing.T) {
	log := NewLog(t.TempDir())

	promoted, err := log.Append("s1", Entry{Action: ActionPromote, ItemID: "https://example.com/essay", Target: "thesis"})
	require.NoError(t, err)
	_, err = log.Append("s1", Entry{Action: ActionUndo, Undoes: promoted.ID})
	require.NoError(t, err)
	_, err = log.Append("s1", Entry{Action: ActionComplete, ItemID: "https://example.com/essay"})
	require.NoError(t, err)

	entries, err := log.Read("s1")
	require.NoError(t, err)
	view := Reconstruct(twoGroups(), entries)

	state := view.Items["https://example.com/essay"]
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Empty(t, state.PromotedTo)
}
