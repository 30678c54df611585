package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/internal/types"
	"go.uber.org/zap"
)

const (
	DriverSingleStore = "singlestore"
	DriverPostgres    = "postgres"
	DriverSQLite      = "sqlite"

	DefaultTableName   = "winter_olympics_2022"
	DefaultSearchLimit = 5
	DefaultVectorDim   = 1536
)

var (
	ErrUnknownDriver     = errors.New("unknown database driver")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidTableName  = errors.New("invalid table name")
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects a backend and describes how to reach it. URL takes
// precedence over the discrete SingleStore fields when set. HNSWIndex makes
// the postgres backend build an approximate index, so queries no longer scan
// every row.
type Config struct {
	Driver      string
	URL         string
	Host        string
	Port        int
	Name        string
	User        string
	Password    string
	TableName   string
	VectorDim   int
	SearchLimit int
	HNSWIndex   bool
	Logger      *zap.Logger
}

// Store is a similarity store that can also be written to.
type Store interface {
	types.SimilarityStore
	types.DocumentWriter
}

func (c *Config) setDefaults() error {
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if !tableNamePattern.MatchString(c.TableName) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, c.TableName)
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	if c.VectorDim <= 0 {
		c.VectorDim = DefaultVectorDim
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return nil
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverSingleStore, "":
		return openSingleStore(ctx, cfg)
	case DriverPostgres:
		return NewPGVectorStore(ctx, cfg)
	case DriverSQLite:
		return openSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Lazy defers opening the underlying store until it is first used, so that
// connection failures surface from Query rather than from construction.
type Lazy struct {
	open func(context.Context) (Store, error)

	mu    sync.Mutex
	store Store
}

var _ Store = (*Lazy)(nil)

// NewLazy returns a store that calls Open(ctx, cfg) on first use.
func NewLazy(cfg Config) *Lazy {
	return NewLazyFunc(func(ctx context.Context) (Store, error) {
		return Open(ctx, cfg)
	})
}

// NewLazyFunc is NewLazy with a custom opener.
func NewLazyFunc(open func(context.Context) (Store, error)) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) get(ctx context.Context) (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		return l.store, nil
	}
	s, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	l.store = s
	return s, nil
}

func (l *Lazy) Query(ctx context.Context, embedding models.Embedding, limit int) ([]models.ScoredResult, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, embedding, limit)
}

func (l *Lazy) EnsureSchema(ctx context.Context) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.EnsureSchema(ctx)
}

func (l *Lazy) Insert(ctx context.Context, rows []models.DocumentRow) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.Insert(ctx, rows)
}

// Close releases the underlying store if it was ever opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return nil
	}
	err := l.store.Close()
	l.store = nil
	return err
}
