package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/viterin/vek/vek32"
	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	embedding BLOB NOT NULL
)`

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions installs json_array_pack and dot_product on the driver.
// The driver rejects duplicate registrations, so this runs once per process.
func registerFunctions() error {
	registerOnce.Do(func() {
		if err := sqlite.RegisterDeterministicScalarFunction("json_array_pack", 1, jsonArrayPack); err != nil {
			registerErr = fmt.Errorf("failed to register json_array_pack: %w", err)
			return
		}
		if err := sqlite.RegisterDeterministicScalarFunction("dot_product", 2, dotProduct); err != nil {
			registerErr = fmt.Errorf("failed to register dot_product: %w", err)
		}
	})
	return registerErr
}

func jsonArrayPack(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	var text string
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return nil, fmt.Errorf("json_array_pack: unsupported argument type %T", v)
	}

	vector, err := parseJSONVector(text)
	if err != nil {
		return nil, err
	}
	return packVector(vector), nil
}

func dotProduct(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	vectors := make([][]float32, 2)
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
			return nil, nil
		case []byte:
			vec, err := unpackVector(v)
			if err != nil {
				return nil, err
			}
			vectors[i] = vec
		default:
			return nil, fmt.Errorf("dot_product: unsupported argument type %T", v)
		}
	}

	a, b := vectors[0], vectors[1]
	if len(a) != len(b) {
		return nil, fmt.Errorf("%s: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0.0, nil
	}
	return float64(vek32.Dot(a, b)), nil
}

func openSQLite(ctx context.Context, cfg Config) (*sqlStore, error) {
	if err := registerFunctions(); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("sqlite requires a database url")
	}

	db, err := sql.Open("sqlite", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	cfg.Logger.Debug("opened sqlite database", zap.String("url", cfg.URL))
	return newSQLStore(db, cfg, sqliteSchema), nil
}
