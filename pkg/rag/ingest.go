package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/internal/types"
	"go.uber.org/zap"
)

const DefaultBatchSize = 100

// Ingester builds the (text, embedding) table that Orchestrator reads.
type Ingester struct {
	Scraper   types.Scraper
	Processor types.Processor
	Embedder  types.Embedder
	Writer    types.DocumentWriter

	BatchSize   int
	CreateTable bool
	Logger      *zap.Logger
	Metrics     *Metrics

	// OnBatch reports progress after each batch is written.
	OnBatch func(written, total int)
}

// Ingest scrapes url, chunks the pages, embeds the chunks in batches and
// writes them. It returns the number of rows written, which is also valid
// alongside an error.
func (in *Ingester) Ingest(ctx context.Context, url string) (int, error) {
	start := time.Now()
	n, err := in.ingest(ctx, url)
	in.Metrics.observeStage(StageIngest, start, err)
	return n, err
}

func (in *Ingester) ingest(ctx context.Context, url string) (int, error) {
	logger := in.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if in.CreateTable {
		if err := in.Writer.EnsureSchema(ctx); err != nil {
			return 0, stageErr(StageIngest, err)
		}
	}

	docs, err := in.Scraper.Scrape(ctx, url)
	if err != nil {
		return 0, stageErr(StageIngest, fmt.Errorf("failed to scrape %s: %w", url, err))
	}

	processed, err := in.Processor.Process(docs)
	if err != nil {
		return 0, stageErr(StageIngest, fmt.Errorf("failed to process documents: %w", err))
	}

	chunks := collectChunks(processed)
	logger.Info("prepared chunks",
		zap.String("url", url),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))

	batchSize := in.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	written := 0
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]

		vectors, err := in.Embedder.CreateEmbedding(ctx, batch)
		if err != nil {
			return written, stageErr(StageIngest, fmt.Errorf("failed to embed batch at %d: %w", start, err))
		}
		if len(vectors) != len(batch) {
			return written, stageErr(StageIngest,
				fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch)))
		}

		rows := make([]models.DocumentRow, len(batch))
		for i, text := range batch {
			rows[i] = models.DocumentRow{Text: text, Embedding: vectors[i]}
		}
		if err := in.Writer.Insert(ctx, rows); err != nil {
			return written, stageErr(StageIngest, fmt.Errorf("failed to insert batch at %d: %w", start, err))
		}

		written += len(rows)
		in.Metrics.addIngested(len(rows))
		if in.OnBatch != nil {
			in.OnBatch(written, len(chunks))
		}
		logger.Debug("batch written", zap.Int("written", written), zap.Int("total", len(chunks)))
	}

	return written, nil
}

func collectChunks(docs []models.ProcessedDocument) []string {
	var chunks []string
	for _, doc := range docs {
		for _, c := range doc.Chunks {
			if strings.TrimSpace(c) == "" {
				continue
			}
			chunks = append(chunks, c)
		}
	}
	return chunks
}
