package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const singleStoreSchema = `CREATE TABLE IF NOT EXISTS %s (
	text TEXT,
	embedding BLOB
)`

// singleStoreConfig builds the driver configuration for cfg. A non-empty URL
// is parsed as a go-sql-driver DSN.
func singleStoreConfig(cfg Config) (*mysql.Config, error) {
	if cfg.URL != "" {
		mc, err := mysql.ParseDSN(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid database url: %w", err)
		}
		return mc, nil
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	mc.Timeout = 10 * time.Second
	return mc, nil
}

func openSingleStore(ctx context.Context, cfg Config) (*sqlStore, error) {
	mc, err := singleStoreConfig(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", mc.Addr, err)
	}

	cfg.Logger.Debug("connected to singlestore",
		zap.String("addr", mc.Addr),
		zap.String("database", mc.DBName))
	return newSQLStore(db, cfg, singleStoreSchema), nil
}
