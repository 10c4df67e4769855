// Package recall remembers past classification outcomes so the rule fallback
// can reuse them: an item similar to one the user already categorized lands
// in the same category without a model call.
package recall

import (
	"context"
	"log/slog"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/tabwarden/tabwarden/internal/capture"
	"github.com/tabwarden/tabwarden/internal/classify"
	"github.com/tabwarden/tabwarden/internal/errors"
)

const collectionName = "classified_items"

// Embedder is the slice of the model gateway the index needs.
type Embedder interface {
	Embed(ctx context.Context, engine string, text string) ([]float32, error)
}

// Index is a persistent vector store of previously classified items keyed by
// their embedding. It satisfies the fallback classifier's recall interface.
type Index struct {
	db       *chromem.DB
	embedder Embedder
	engine   string
}

// Open loads or creates the persistent index under dir.
func Open(dir string, embedder Embedder, engine string) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, errors.Wrap(errors.MapError(err), "open recall index")
	}
	return &Index{db: db, embedder: embedder, engine: engine}, nil
}

// key builds the document text an item is remembered by.
func key(item capture.Tab) string {
	return strings.TrimSpace(item.Title + " " + item.URL)
}

// Remember upserts every classified item of the result, skipping the
// Unclassified bucket. Best-effort: an embed failure skips the item.
func (x *Index) Remember(ctx context.Context, result *classify.Result) (int, error) {
	col, err := x.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return 0, errors.Wrap(errors.MapError(err), "open recall collection")
	}

	stored := 0
	for _, group := range result.Groups {
		if group.Category.Name == classify.UnclassifiedName {
			continue
		}
		for _, item := range group.Items {
			text := key(item)
			if text == "" {
				continue
			}
			vec, err := x.embedder.Embed(ctx, x.engine, text)
			if err != nil {
				slog.Warn("Recall embed failed, item skipped",
					"item", item.ID(), "error", err)
				continue
			}
			// AddDocuments upserts on ID, so a re-classified item moves
			// to its latest category.
			err = col.AddDocuments(ctx, []chromem.Document{{
				ID:        item.ID(),
				Metadata:  map[string]string{"category": group.Category.Name},
				Embedding: vec,
				Content:   text,
			}}, 1)
			if err != nil {
				return stored, errors.Wrap(errors.MapError(err), "upsert recall document")
			}
			stored++
		}
	}

	if stored > 0 {
		slog.Debug("Recall index updated", "stored", stored)
	}
	return stored, nil
}

// Nearest returns the category of the most similar remembered item and its
// similarity. An empty index answers with zero score, not an error.
func (x *Index) Nearest(ctx context.Context, text string) (string, float32, error) {
	col := x.db.GetCollection(collectionName, nil)
	if col == nil || col.Count() == 0 {
		return "", 0, nil
	}

	vec, err := x.embedder.Embed(ctx, x.engine, text)
	if err != nil {
		return "", 0, err
	}

	docs, err := col.QueryEmbedding(ctx, vec, 1, nil, nil)
	if err != nil {
		return "", 0, errors.Wrap(errors.MapError(err), "query recall index")
	}
	if len(docs) == 0 {
		return "", 0, nil
	}
	return docs[0].Metadata["category"], docs[0].Similarity, nil
}
