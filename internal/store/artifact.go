package store

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/oklog/ulid/v2"

	"github.com/tabwarden/tabwarden/internal/classify"
	"github.com/tabwarden/tabwarden/internal/errors"
)

// Artifact is one persisted classification result. Immutable after save;
// later user decisions live in the session's disposition log, never here.
type Artifact struct {
	SessionID string           `json:"session_id"`
	CreatedAt time.Time        `json:"created_at"`
	Result    *classify.Result `json:"result"`
}

// NewSessionID mints a sortable session identifier.
func NewSessionID() string {
	return strings.ToLower(ulid.Make().String())
}

type ArtifactStore struct {
	paths Paths
}

func NewArtifactStore(paths Paths) *ArtifactStore {
	return &ArtifactStore{paths: paths}
}

// Save persists the artifact with an atomic rename so readers never observe
// a torn file.
func (s *ArtifactStore) Save(artifact *Artifact) error {
	if artifact == nil || strings.TrimSpace(artifact.SessionID) == "" {
		return errors.InvalidInput("artifact requires a session id")
	}
	if artifact.Result == nil {
		return errors.InvalidInput("artifact requires a result")
	}
	if err := s.paths.EnsureDirs(); err != nil {
		return errors.Wrap(errors.MapError(err), "create data dirs")
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return errors.Internal("encode artifact: " + err.Error())
	}
	if err := atomic.WriteFile(s.paths.ArtifactPath(artifact.SessionID), bytes.NewReader(data)); err != nil {
		return errors.Wrap(errors.MapError(err), "write artifact")
	}

	slog.Debug("Session artifact saved",
		"session_id", artifact.SessionID,
		"items", artifact.Result.TotalItems(),
	)
	return nil
}

// Load reads one artifact. An unknown session maps to not-found; an artifact
// written by an incompatible schema is rejected rather than misread.
func (s *ArtifactStore) Load(sessionID string) (*Artifact, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.InvalidInput("session id is required")
	}

	data, err := os.ReadFile(s.paths.ArtifactPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("session " + sessionID)
		}
		return nil, errors.Wrap(errors.MapError(err), "read artifact")
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, errors.Internal("decode artifact: " + err.Error())
	}
	if artifact.Result == nil {
		return nil, errors.Internal("artifact has no result")
	}
	if !compatibleSchema(artifact.Result.Meta.SchemaVersion) {
		return nil, errors.InvalidInput(
			"artifact schema " + artifact.Result.Meta.SchemaVersion +
				" is incompatible with " + classify.SchemaVersion)
	}
	return &artifact, nil
}

// List returns the known session IDs, newest first. Session IDs are ULIDs,
// so reverse-lexical order is reverse-chronological.
func (s *ArtifactStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.paths.SessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.MapError(err), "list sessions")
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.Contains(name, ".dispositions.") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Latest returns the most recent session's artifact.
func (s *ArtifactStore) Latest() (*Artifact, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.NotFound("no sessions")
	}
	return s.Load(ids[0])
}

// compatibleSchema accepts any minor revision of the current major version.
// Minor bumps only add optional fields.
func compatibleSchema(version string) bool {
	major := func(v string) string {
		if i := strings.IndexByte(v, '.'); i >= 0 {
			return v[:i]
		}
		return v
	}
	return version != "" && major(version) == major(classify.SchemaVersion)
}
