package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bluescreen10/storefront"
	"github.com/bluescreen10/storefront/config"
	"github.com/bluescreen10/storefront/gormstore"
	"github.com/bluescreen10/storefront/memstore"
	"github.com/bluescreen10/storefront/mysqlstore"
	"github.com/bluescreen10/storefront/redisstore"
)

// openStore opens the configured backend. The returned function releases
// its connections.
func openStore(cfg config.StoreConfig, log zerolog.Logger) (storefront.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return memstore.New(), noop, nil

	case config.BackendSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
			Logger: gormlogger.Discard,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite %s: %w", cfg.DSN, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		store, err := gormstore.New(db, gormstore.WithLogger(log))
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return store, sqlDB.Close, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return redisstore.New(rdb, redisstore.WithPrefix(cfg.Prefix)), rdb.Close, nil

	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open mysql: %w", err)
		}
		store, err := mysqlstore.New(db, mysqlstore.WithLogger(log))
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
