// Package capture holds the input unit of a classification session: the
// snapshot of open browser tabs exported by the capture agent. The agent
// itself lives outside this repo; this package only reads its output.
package capture

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/tabwarden/tabwarden/internal/errors"
)

// Tab is one captured item. Identity is the URL; a tab without a URL (e.g. a
// new-tab page with an edited title) falls back to the title. There is no
// synthetic id.
type Tab struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	ContentExcerpt string `json:"content_excerpt,omitempty"`
}

// ID returns the item identity used by the disposition log and reconstructor.
func (t Tab) ID() string {
	if u := strings.TrimSpace(t.URL); u != "" {
		return u
	}
	return strings.TrimSpace(t.Title)
}

// Snapshot is the capture agent's export format.
type Snapshot struct {
	CapturedAt time.Time `json:"captured_at"`
	Tabs       []Tab     `json:"tabs"`
}

// LoadSnapshot reads a capture export from disk. Both the full snapshot shape
// and a bare tab array are accepted.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("capture file " + path)
		}
		return nil, errors.Wrap(err, "read capture file")
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err == nil && len(snap.Tabs) > 0 {
		return &snap, nil
	}

	var tabs []Tab
	if err := json.Unmarshal(data, &tabs); err != nil {
		return nil, errors.InvalidInput("capture file is neither a snapshot nor a tab array")
	}
	return &Snapshot{Tabs: tabs}, nil
}
