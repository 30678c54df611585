package types

import (
	"context"

	"github.com/xhad/ragask/internal/models"
)

// Core interfaces
type ChatClient interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
	Model() string
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([]models.Embedding, error)
}

type SimilarityStore interface {
	Query(ctx context.Context, embedding models.Embedding, limit int) ([]models.ScoredResult, error)
	Close() error
}

type DocumentWriter interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, rows []models.DocumentRow) error
}

type Scraper interface {
	Scrape(ctx context.Context, url string) ([]models.Document, error)
}

type Processor interface {
	Process(docs []models.Document) ([]models.ProcessedDocument, error)
}

type TokenCounter interface {
	CountMessages(messages []models.Message) int
}
