package disposition

import (
	"fmt"
	"strings"
	"time"

	"github.com/tabwarden/tabwarden/internal/errors"
)

// Action is one disposition verb applied to a classified item.
type Action string

const (
	ActionTrash        Action = "trash"
	ActionComplete     Action = "complete"
	ActionPromote      Action = "promote"
	ActionRegroup      Action = "regroup"
	ActionReprioritize Action = "reprioritize"
	ActionLater        Action = "later"
	ActionDefer        Action = "defer"
	ActionUndo         Action = "undo"
)

var validActions = map[Action]struct{}{
	ActionTrash:        {},
	ActionComplete:     {},
	ActionPromote:      {},
	ActionRegroup:      {},
	ActionReprioritize: {},
	ActionLater:        {},
	ActionDefer:        {},
	ActionUndo:         {},
}

// Entry is one immutable disposition event. ID and At are stamped by the log
// on append; callers fill the rest.
type Entry struct {
	ID     string    `json:"id"`
	Action Action    `json:"action"`
	ItemID string    `json:"item_id,omitempty"`
	At     time.Time `json:"at"`

	// Target names the promotion destination (a project or list).
	Target string `json:"target,omitempty"`
	// From and To carry the regroup source and destination categories.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	// Priority is the reprioritize value.
	Priority string `json:"priority,omitempty"`
	// Undoes holds the ID of the entry being reversed.
	Undoes string `json:"undoes,omitempty"`
}

// Validate checks the per-action required fields. Entries are validated
// before they reach the sink; a malformed entry never lands in the log.
func (e Entry) Validate() error {
	if _, ok := validActions[e.Action]; !ok {
		return errors.InvalidInput(fmt.Sprintf("unknown disposition action %q", e.Action))
	}

	switch e.Action {
	case ActionUndo:
		if strings.TrimSpace(e.Undoes) == "" {
			return errors.InvalidInput("undo requires the entry id being reversed")
		}
		return nil
	case ActionPromote:
		if strings.TrimSpace(e.Target) == "" {
			return errors.InvalidInput("promote requires a target")
		}
	case ActionRegroup:
		if strings.TrimSpace(e.From) == "" {
			return errors.InvalidInput("regroup requires a source category")
		}
		if strings.TrimSpace(e.To) == "" {
			return errors.InvalidInput("regroup requires a destination category")
		}
	case ActionReprioritize:
		if strings.TrimSpace(e.Priority) == "" {
			return errors.InvalidInput("reprioritize requires a priority")
		}
	}

	if strings.TrimSpace(e.ItemID) == "" {
		return errors.InvalidInput(fmt.Sprintf("%s requires an item id", e.Action))
	}
	return nil
}
