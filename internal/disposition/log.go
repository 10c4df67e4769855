package disposition

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tabwarden/tabwarden/internal/errors"
)

// Log is the append-only disposition sink. One JSONL file per session;
// entries are stamped and appended, never rewritten in place. Per-session
// mutexes serialize appends from concurrent callers in the same process.
type Log struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLog(dir string) *Log {
	return &Log{dir: dir, locks: make(map[string]*sync.Mutex)}
}

func (l *Log) path(sessionID string) string {
	return filepath.Join(l.dir, sessionID+".dispositions.jsonl")
}

func (l *Log) sessionMu(sessionID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	return m
}

// Append validates, stamps, and appends one entry. The stamped entry is
// returned so callers can reference its ID (undo needs it).
func (l *Log) Append(sessionID string, entry Entry) (*Entry, error) {
	stamped, err := l.AppendBatch(sessionID, []Entry{entry})
	if err != nil {
		return nil, err
	}
	return &stamped[0], nil
}

// AppendBatch appends several entries in one locked open-write-sync cycle.
// All entries are validated and encoded before any byte is written, and the
// whole batch goes down in a single write call.
func (l *Log) AppendBatch(sessionID string, entries []Entry) ([]Entry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.InvalidInput("session id is required")
	}
	if len(entries) == 0 {
		return nil, errors.InvalidInput("no entries to append")
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("entry %d", i))
		}
	}

	mu := l.sessionMu(sessionID)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()
	stamped := make([]Entry, len(entries))
	var buf bytes.Buffer
	for i, e := range entries {
		e.ID = ulid.Make().String()
		e.At = now
		line, err := json.Marshal(e)
		if err != nil {
			return nil, errors.Internal("encode disposition entry: " + err.Error())
		}
		buf.Write(line)
		buf.WriteByte('\n')
		stamped[i] = e
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.MapError(err), "create disposition dir")
	}

	f, err := os.OpenFile(l.path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(errors.MapError(err), "open disposition log")
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return nil, errors.Wrap(errors.MapError(err), "append disposition entries")
	}
	if err := f.Sync(); err != nil {
		return nil, errors.Wrap(errors.MapError(err), "sync disposition log")
	}

	slog.Debug("Disposition entries appended",
		"session_id", sessionID, "count", len(stamped))
	return stamped, nil
}

// Read returns the session's entries in append order. A session with no
// dispositions yet reads as empty, not as an error.
func (l *Log) Read(sessionID string) ([]Entry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.InvalidInput("session id is required")
	}

	f, err := os.Open(l.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.MapError(err), "open disposition log")
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			// A torn tail line from a crashed append is skipped, not fatal.
			slog.Warn("Skipping undecodable disposition line",
				"session_id", sessionID, "line", lineNo, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.MapError(err), "read disposition log")
	}
	return entries, nil
}
