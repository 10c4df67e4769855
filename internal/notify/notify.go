// Package notify announces session milestones (all items resolved, stale
// locks) to the user's configured channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tabwarden/tabwarden/internal/config"
	"github.com/tabwarden/tabwarden/internal/errors"
)

// Notifier is one outbound channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, subject, body string) error
	Health(ctx context.Context) error
}

// Registry fans announcements out to every registered notifier. A failed
// channel is logged and skipped; announcements are best-effort.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{notifiers: make(map[string]Notifier)}
}

// FromConfig builds a registry with every channel the configuration enables.
// No configured channels yields an empty registry, not an error.
func FromConfig(cfg config.NotifyConfig) *Registry {
	r := NewRegistry()
	if cfg.Slack.Token != "" && cfg.Slack.Channel != "" {
		_ = r.Register(NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel))
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		_ = r.Register(NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID))
	}
	return r
}

func (r *Registry) Register(n Notifier) error {
	if n == nil {
		return errors.InvalidInput("notifier cannot be nil")
	}
	name := n.Name()
	if name == "" {
		return errors.InvalidInput("notifier name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notifiers[name]; exists {
		return errors.ErrConflict
	}
	r.notifiers[name] = n
	slog.Info("Notifier registered", "name", name)
	return nil
}

func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notifiers[name]; !exists {
		return errors.NotFound("notifier not found: " + name)
	}
	delete(r.notifiers, name)
	return nil
}

// Announce sends to every channel. The returned error reports how many
// channels failed; partial delivery is not rolled back.
func (r *Registry) Announce(ctx context.Context, subject, body string) error {
	r.mu.RLock()
	targets := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		targets = append(targets, n)
	}
	r.mu.RUnlock()

	var failed []string
	for _, n := range targets {
		if err := n.Send(ctx, subject, body); err != nil {
			failed = append(failed, n.Name())
			slog.Warn("Notification failed", "channel", n.Name(), "error", err)
		}
	}
	if len(failed) > 0 {
		return errors.Transient(fmt.Sprintf("%d channel(s) failed: %v", len(failed), failed))
	}
	return nil
}

func (r *Registry) Health(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var unhealthy []string
	for name, n := range r.notifiers {
		if err := n.Health(ctx); err != nil {
			unhealthy = append(unhealthy, name)
			slog.Warn("Notifier unhealthy", "name", name, "error", err)
		}
	}
	if len(unhealthy) > 0 {
		return errors.Transient(fmt.Sprintf("%d notifier(s) unhealthy: %v", len(unhealthy), unhealthy))
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}
