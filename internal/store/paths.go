// Package store owns the on-disk layout under the data directory and the
// session artifact lifecycle.
package store

import (
	"os"
	"path/filepath"
	"strings"
)

// Paths maps logical locations onto the data directory:
//
//	<data>/sessions/<id>.json                  classification artifact
//	<data>/sessions/<id>.dispositions.jsonl    disposition event log
//	<data>/launchpad.lock.json                 session lock record
//	<data>/recall/                             persistent recall index
type Paths struct {
	root string
}

// NewPaths expands a leading ~ against the home directory. Empty falls back
// to ~/.tabwarden.
func NewPaths(dataDir string) Paths {
	dir := strings.TrimSpace(dataDir)
	home, _ := os.UserHomeDir()
	switch {
	case dir == "":
		dir = filepath.Join(home, ".tabwarden")
	case dir == "~":
		dir = home
	case strings.HasPrefix(dir, "~/"):
		dir = filepath.Join(home, dir[2:])
	}
	return Paths{root: dir}
}

func (p Paths) Root() string        { return p.root }
func (p Paths) SessionsDir() string { return filepath.Join(p.root, "sessions") }
func (p Paths) RecallDir() string   { return filepath.Join(p.root, "recall") }

func (p Paths) ArtifactPath(sessionID string) string {
	return filepath.Join(p.SessionsDir(), sessionID+".json")
}

// EnsureDirs creates the layout. Idempotent.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.root, p.SessionsDir(), p.RecallDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
