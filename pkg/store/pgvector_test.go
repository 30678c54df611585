package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/pkg/store"
)

// startPGVector runs a throwaway pgvector container and returns its URL.
func startPGVector(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping pgvector integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=ragask",
			"POSTGRES_PASSWORD=ragask",
			"POSTGRES_DB=winter_wikipedia",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Purge(resource) })
	resource.Expire(120)

	url := fmt.Sprintf("postgres://ragask:ragask@%s/winter_wikipedia?sslmode=disable", resource.GetHostPort("5432/tcp"))

	pool.MaxWait = 60 * time.Second
	require.NoError(t, pool.Retry(func() error {
		conn, err := pgx.Connect(context.Background(), url)
		if err != nil {
			return err
		}
		defer conn.Close(context.Background())
		return conn.Ping(context.Background())
	}))
	return url
}

func TestPGVectorStore(t *testing.T) {
	url := startPGVector(t)
	ctx := context.Background()

	s, err := store.Open(ctx, store.Config{
		Driver:    store.DriverPostgres,
		URL:       url,
		VectorDim: 3,
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.Insert(ctx, []models.DocumentRow{
		{Text: "Curling: Sweden won the men's tournament.", Embedding: models.Embedding{0.9, 0.1, 0}},
		{Text: "Ski jumping", Embedding: models.Embedding{0, 0, 1}},
		{Text: "Curling: Italy won mixed doubles.", Embedding: models.Embedding{0.8, 0, 0.1}},
	}))

	results, err := s.Query(ctx, models.Embedding{1, 0.5, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Curling: Sweden won the men's tournament.", results[0].Text)
	assert.InDelta(t, 0.95, results[0].Score, 1e-5)
	assert.Equal(t, "Curling: Italy won mixed doubles.", results[1].Text)
	assert.InDelta(t, 0.8, results[1].Score, 1e-5)
	assert.Equal(t, "Ski jumping", results[2].Text)

	_, err = s.Query(ctx, models.Embedding{1, 0}, 5)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)

	// Exact search by default; the hnsw index is opt-in.
	assert.Equal(t, 0, embeddingIndexes(t, url, store.DefaultTableName))

	indexed, err := store.Open(ctx, store.Config{
		Driver:    store.DriverPostgres,
		URL:       url,
		TableName: "indexed_docs",
		VectorDim: 3,
		HNSWIndex: true,
	})
	require.NoError(t, err)
	defer indexed.Close()

	require.NoError(t, indexed.EnsureSchema(ctx))
	assert.Equal(t, 1, embeddingIndexes(t, url, "indexed_docs"))
}

func embeddingIndexes(t *testing.T, url, table string) int {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	defer conn.Close(ctx)

	var n int
	require.NoError(t, conn.QueryRow(ctx,
		"SELECT count(*) FROM pg_indexes WHERE tablename = $1 AND indexdef LIKE '%hnsw%'", table).Scan(&n))
	return n
}
