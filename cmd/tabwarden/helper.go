package main

import (
	"log/slog"

	"github.com/tabwarden/tabwarden/internal/classify"
	"github.com/tabwarden/tabwarden/internal/config"
	"github.com/tabwarden/tabwarden/internal/disposition"
	"github.com/tabwarden/tabwarden/internal/errors"
	"github.com/tabwarden/tabwarden/internal/launchpad"
	"github.com/tabwarden/tabwarden/internal/model"
	"github.com/tabwarden/tabwarden/internal/notify"
	"github.com/tabwarden/tabwarden/internal/project"
	"github.com/tabwarden/tabwarden/internal/recall"
	"github.com/tabwarden/tabwarden/internal/store"
	"github.com/tabwarden/tabwarden/internal/warden"
)

// components is the wired application graph for one command invocation.
type components struct {
	warden   *warden.Warden
	lock     *launchpad.Manager
	notifier *notify.Registry
	paths    store.Paths
	context  *project.Context
}

func buildComponents(c *config.Config) (*components, error) {
	paths := store.NewPaths(c.Store.DataDir)
	if err := paths.EnsureDirs(); err != nil {
		return nil, errors.Wrap(err, "prepare data directory")
	}

	router, err := model.NewRouter(c.Engines, model.PolicyFromConfig(c.Call))
	if err != nil {
		return nil, err
	}

	lock := launchpad.NewManager(paths.Root(), lockConfig(c.Lock))
	notifier := notify.FromConfig(c.Notify)

	var memory warden.Memory
	var index classify.RecallIndex
	if c.Recall.Enabled {
		idx, err := recall.Open(paths.RecallDir(), router, c.Engines.Embedding)
		if err != nil {
			slog.Warn("Recall index unavailable, continuing without it", "error", err)
		} else {
			memory = idx
			index = idx
		}
	}

	pipeline := classify.NewPipeline(router, classify.NewRuleClassifier(index), classify.Config{
		MaxExcerptChars: c.Classify.MaxExcerptChars,
		DeepDiveMax:     c.Classify.DeepDiveMax,
		MaxTokens:       c.Classify.MaxTokens,
	})

	projectContext, err := loadProjectContext(c.Project.Path)
	if err != nil {
		return nil, err
	}

	w := warden.New(warden.Options{
		Classifier: pipeline,
		Artifacts:  store.NewArtifactStore(paths),
		Log:        disposition.NewLog(paths.SessionsDir()),
		Lock:       lock,
		Memory:     memory,
		Notifier:   notifier,
		Engine:     c.Engines.Default,
	})

	return &components{
		warden:   w,
		lock:     lock,
		notifier: notifier,
		paths:    paths,
		context:  projectContext,
	}, nil
}

func lockConfig(c config.LockConfig) launchpad.Config {
	retry, _ := config.DurationOrDefault(c.FlockRetry, config.DefaultLockFlockRetry)
	stale, _ := config.DurationOrDefault(c.StaleAfter, config.DefaultLockStaleAfter)
	return launchpad.Config{
		FlockRetry:    retry,
		FlockMaxRetry: c.FlockMaxRetry,
		StaleAfter:    stale,
	}
}

// loadProjectContext is optional: no path means no thematic pass.
func loadProjectContext(path string) (*project.Context, error) {
	if path == "" {
		return nil, nil
	}
	ctx, err := project.Load(path)
	if err != nil {
		if errors.IsCategory(err, errors.ErrNotFound) {
			slog.Warn("Project context file not found, thematic pass disabled", "path", path)
			return nil, nil
		}
		return nil, err
	}
	return ctx, nil
}
