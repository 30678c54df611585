package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/ragask/internal/models"
	"go.uber.org/zap"
)

// PGVectorStore keeps rows in PostgreSQL with the pgvector extension and
// ranks them by inner product. Without an index the ranking is exact.
type PGVectorStore struct {
	config Config
	pool   *pgxpool.Pool
}

var _ Store = (*PGVectorStore)(nil)

func NewPGVectorStore(ctx context.Context, cfg Config) (*PGVectorStore, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres requires a database url")
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cfg.Logger.Debug("connected to postgres", zap.String("table", cfg.TableName))
	return &PGVectorStore{config: cfg, pool: pool}, nil
}

func (vs *PGVectorStore) EnsureSchema(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			text TEXT NOT NULL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)
	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if !vs.config.HNSWIndex {
		return nil
	}
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING hnsw (embedding vector_ip_ops)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Insert writes rows in a single transaction.
func (vs *PGVectorStore) Insert(ctx context.Context, rows []models.DocumentRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf("INSERT INTO %s (text, embedding) VALUES ($1, $2)", vs.config.TableName)
	for _, row := range rows {
		if _, err := tx.Exec(ctx, stmt, sanitizeText(row.Text), pgvector.NewVector(row.Embedding)); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query ranks rows by inner product. <#> yields the negated inner product, so
// ascending order on it is descending score.
func (vs *PGVectorStore) Query(ctx context.Context, embedding models.Embedding, limit int) ([]models.ScoredResult, error) {
	if limit <= 0 {
		limit = vs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT text, (embedding <#> $1) * -1 AS score
		FROM %s
		ORDER BY embedding <#> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	results := make([]models.ScoredResult, 0, limit)
	for rows.Next() {
		var r models.ScoredResult
		if err := rows.Scan(&r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return results, nil
}

func (vs *PGVectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}

// sanitizeText drops invalid UTF-8 and NUL bytes, both of which PostgreSQL
// rejects in text columns.
func sanitizeText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
}
