package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/tabwarden/tabwarden/internal/config"
	twErrors "github.com/tabwarden/tabwarden/internal/errors"
	"github.com/tabwarden/tabwarden/internal/logger"
	"github.com/tabwarden/tabwarden/internal/model/contract"
	anthropicProvider "github.com/tabwarden/tabwarden/internal/model/providers/anthropic"
	geminiProvider "github.com/tabwarden/tabwarden/internal/model/providers/gemini"
	openaiProvider "github.com/tabwarden/tabwarden/internal/model/providers/openai"
)

// Router implements Gateway over a registry of providers keyed by engine id.
// Every call goes through the configured CallPolicy; when the requested
// engine is exhausted the fallback engine gets one policy cycle of its own.
type Router struct {
	cfg       config.EnginesConfig
	policy    CallPolicy
	providers map[string]Provider
	mu        sync.RWMutex
}

func NewRouter(cfg config.EnginesConfig, policy CallPolicy) (*Router, error) {
	r := &Router{
		cfg:       cfg,
		policy:    policy,
		providers: make(map[string]Provider),
	}

	for _, entry := range cfg.Registry {
		provider, err := createProvider(entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "engine", entry.Name, "error", err)
			continue
		}
		r.providers[entry.Name] = provider
		slog.Info("Engine registered", "name", entry.Name, "provider", entry.Provider)
	}

	if len(r.providers) == 0 && len(cfg.Registry) > 0 {
		return nil, twErrors.Internal("no engines initialized")
	}

	return r, nil
}

func createProvider(entry config.EngineRegistry) (Provider, error) {
	switch entry.Provider {
	case "openai":
		return openaiProvider.New(entry.APIKey, entry.BaseURL, entry.Model), nil
	case "anthropic":
		return anthropicProvider.New(entry.APIKey, entry.Model), nil
	case "gemini":
		return geminiProvider.New(entry.APIKey, entry.Model)
	default:
		return nil, fmt.Errorf("unknown provider type %q", entry.Provider)
	}
}

// RegisterProvider adds or replaces an engine. Tests and embedders use this.
func (r *Router) RegisterProvider(engine string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[engine] = p
}

func (r *Router) Invoke(ctx context.Context, req contract.InvokeRequest) (*contract.InvokeResult, error) {
	traceID := logger.GetTraceID(ctx)

	engine := req.Engine
	if engine == "" {
		engine = r.cfg.Default
	}

	tried := make([]string, 0, 2)
	for _, candidate := range r.tryOrder(engine) {
		r.mu.RLock()
		provider, exists := r.providers[candidate]
		r.mu.RUnlock()
		if !exists {
			continue
		}
		tried = append(tried, candidate)

		slog.Info("Invoking engine", "engine", candidate, "trace_id", traceID)

		var result *contract.InvokeResult
		err := r.policy.Do(ctx, func(ctx context.Context) error {
			var invokeErr error
			result, invokeErr = provider.Invoke(ctx, req)
			return invokeErr
		})
		if err == nil {
			return result, nil
		}

		slog.Warn("Engine exhausted", "engine", candidate, "error", err, "trace_id", traceID)
		if !twErrors.IsRetryable(err) && !twErrors.IsCategory(err, twErrors.ErrInternal) {
			return nil, err
		}
	}

	if len(tried) == 0 {
		return nil, twErrors.NotFound(fmt.Sprintf("engine %s not found", engine))
	}
	return nil, twErrors.Transient(fmt.Sprintf("all engines exhausted: %v", tried))
}

func (r *Router) tryOrder(engine string) []string {
	order := []string{engine}
	if r.cfg.Fallback != "" && r.cfg.Fallback != engine {
		order = append(order, r.cfg.Fallback)
	}
	return order
}

func (r *Router) Embed(ctx context.Context, engine string, text string) ([]float32, error) {
	if engine == "" {
		engine = r.cfg.Embedding
	}
	if engine == "" {
		return nil, twErrors.NotFound("no embedding engine configured")
	}

	r.mu.RLock()
	provider, exists := r.providers[engine]
	r.mu.RUnlock()
	if !exists {
		return nil, twErrors.NotFound(fmt.Sprintf("engine %s not found", engine))
	}

	var vec []float32
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = provider.Embed(ctx, text)
		return embedErr
	})
	if err != nil {
		return nil, twErrors.Wrap(err, "embedding failed")
	}
	return vec, nil
}

func (r *Router) ListEngines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engines := make([]string, 0, len(r.providers))
	for name := range r.providers {
		engines = append(engines, name)
	}
	sort.Strings(engines)
	return engines
}

func (r *Router) Health(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, provider := range r.providers {
		if err := provider.Health(ctx); err != nil {
			slog.Warn("Provider unhealthy", "engine", name, "error", err)
			return twErrors.Transient(fmt.Sprintf("engine %s unhealthy", name))
		}
	}
	return nil
}
