package disposition

import (
	"github.com/tabwarden/tabwarden/internal/classify"
)

// Status is an item's current resolution state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusTrashed   Status = "trashed"
	StatusCompleted Status = "completed"
	StatusPromoted  Status = "promoted"
	StatusDeferred  Status = "deferred"
	StatusLater     Status = "later"
)

// ItemState is one item's folded state after replaying the log.
type ItemState struct {
	Status     Status `json:"status"`
	Category   string `json:"category"`
	Priority   string `json:"priority,omitempty"`
	PromotedTo string `json:"promoted_to,omitempty"`
}

// View is the current session state: the immutable classification artifact
// folded with every disposition event.
type View struct {
	Items           map[string]ItemState `json:"items"`
	Order           []string             `json:"order"`
	UnresolvedCount int                  `json:"unresolved_count"`
	AllResolved     bool                 `json:"all_resolved"`
	Total           int                  `json:"total"`
}

// Unresolved returns the still-pending item IDs in capture order.
func (v *View) Unresolved() []string {
	var out []string
	for _, id := range v.Order {
		if v.Items[id].Status == StatusPending {
			out = append(out, id)
		}
	}
	return out
}

// Reconstruct folds the disposition entries over the classified groups. It is
// a pure function of its inputs: same artifact plus same log always yields the
// same view. Entries naming unknown items or undoing unknown entries are
// skipped; the log is append-only and may legitimately outlive a re-capture.
func Reconstruct(groups []classify.Group, entries []Entry) *View {
	view := &View{Items: make(map[string]ItemState)}
	for _, g := range groups {
		for _, item := range g.Items {
			id := item.ID()
			if _, seen := view.Items[id]; seen {
				continue
			}
			view.Items[id] = ItemState{Status: StatusPending, Category: g.Category.Name}
			view.Order = append(view.Order, id)
		}
	}
	view.Total = len(view.Order)

	// byEntry lets undo find which item an earlier entry touched.
	byEntry := make(map[string]string, len(entries))

	for _, e := range entries {
		itemID := e.ItemID
		if e.Action == ActionUndo {
			itemID = byEntry[e.Undoes]
		}
		state, ok := view.Items[itemID]
		if !ok {
			continue
		}

		switch e.Action {
		case ActionTrash:
			state.Status = StatusTrashed
		case ActionComplete:
			state.Status = StatusCompleted
		case ActionPromote:
			state.Status = StatusPromoted
			state.PromotedTo = e.Target
		case ActionDefer:
			state.Status = StatusDeferred
		case ActionLater:
			state.Status = StatusLater
		case ActionRegroup:
			state.Category = e.To
		case ActionReprioritize:
			state.Priority = e.Priority
		case ActionUndo:
			state.Status = StatusPending
			state.PromotedTo = ""
		default:
			continue
		}

		view.Items[itemID] = state
		if e.ID != "" {
			byEntry[e.ID] = itemID
		}
	}

	for _, state := range view.Items {
		if state.Status == StatusPending {
			view.UnresolvedCount++
		}
	}
	view.AllResolved = view.UnresolvedCount == 0
	return view
}
