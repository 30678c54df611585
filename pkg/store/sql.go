package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xhad/ragask/internal/models"
	"go.uber.org/zap"
)

// sqlStore serves the backends that speak the JSON_ARRAY_PACK / DOT_PRODUCT
// dialect through database/sql: SingleStore natively, SQLite through
// functions registered on the driver.
type sqlStore struct {
	db          *sql.DB
	table       string
	searchLimit int
	createTable string
	logger      *zap.Logger
}

var _ Store = (*sqlStore)(nil)

func newSQLStore(db *sql.DB, cfg Config, createTable string) *sqlStore {
	return &sqlStore{
		db:          db,
		table:       cfg.TableName,
		searchLimit: cfg.SearchLimit,
		createTable: fmt.Sprintf(createTable, cfg.TableName),
		logger:      cfg.Logger,
	}
}

func (s *sqlStore) queryStatement() string {
	return fmt.Sprintf(
		"SELECT text, DOT_PRODUCT(JSON_ARRAY_PACK(?), embedding) AS score FROM %s ORDER BY score DESC LIMIT ?",
		s.table)
}

// Query returns the rows with the highest dot product against embedding.
func (s *sqlStore) Query(ctx context.Context, embedding models.Embedding, limit int) ([]models.ScoredResult, error) {
	if limit <= 0 {
		limit = s.searchLimit
	}
	vector, err := jsonVector(embedding)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.queryStatement(), vector, limit)
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

	s.logger.Debug("similarity query", zap.String("table", s.table), zap.Int("rows", len(results)))
	return results, nil
}

func (s *sqlStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Insert writes rows in a single transaction.
func (s *sqlStore) Insert(ctx context.Context, rows []models.DocumentRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s (text, embedding) VALUES (?, JSON_ARRAY_PACK(?))", s.table))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		vector, err := jsonVector(row.Embedding)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row.Text, vector); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// classify maps backend errors onto package sentinels where possible.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range dimensionMismatchMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
		}
	}
	return fmt.Errorf("failed to query documents: %w", err)
}

// Messages the backends use for vectors of unequal length.
var dimensionMismatchMarkers = []string{
	ErrDimensionMismatch.Error(),   // sqlite dot_product
	"different vector dimensions",  // pgvector
	"vectors of different lengths", // singlestore
}
