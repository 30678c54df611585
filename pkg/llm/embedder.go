package llm

import (
	"context"
	"fmt"

	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/internal/types"
)

// EmbeddingModel is the subset of the langchaingo openai and ollama clients
// used for embeddings.
type EmbeddingModel interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder turns texts into vectors through a langchaingo client.
type Embedder struct {
	model EmbeddingModel
	name  string
}

var _ types.Embedder = (*Embedder)(nil)

func NewEmbedder(model EmbeddingModel, name string) *Embedder {
	return &Embedder{model: model, name: name}
}

func (e *Embedder) Model() string {
	return e.name
}

// CreateEmbedding returns one vector per input text, in input order.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([]models.Embedding, error) {
	if len(texts) == 0 {
		return nil, ErrNoInput
	}

	vectors, err := e.model.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCount, len(vectors), len(texts))
	}

	embeddings := make([]models.Embedding, len(vectors))
	for i, v := range vectors {
		embeddings[i] = models.Embedding(v)
	}
	return embeddings, nil
}
