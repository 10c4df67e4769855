package model

import (
	"context"

	"github.com/tabwarden/tabwarden/internal/model/contract"
)

// Gateway is what the classification pipeline consumes: one prompt in, raw
// text plus usage out. Retries and fallback live behind this interface.
type Gateway interface {
	Invoke(ctx context.Context, req contract.InvokeRequest) (*contract.InvokeResult, error)
	Embed(ctx context.Context, engine string, text string) ([]float32, error)
	ListEngines() []string
	Health(ctx context.Context) error
}

// Provider is a single model backend.
type Provider interface {
	Invoke(ctx context.Context, req contract.InvokeRequest) (*contract.InvokeResult, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
	Health(ctx context.Context) error
}
