package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tutorui/internal/gateway/config"
	"tutorui/internal/gateway/repository/eventlog"
	"tutorui/internal/gateway/repository/pagearchive"
)

// memoryHistoryPerUser bounds the in-memory event log.
const memoryHistoryPerUser = 500

type gatewayStores struct {
	events  eventlog.Store
	archive pagearchive.Store
	db      *sql.DB
}

func (s *gatewayStores) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gatewayStores, error) {
	stores := &gatewayStores{}

	var origin eventlog.Store
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := eventlog.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		stores.db = db
		origin = eventlog.NewPostgresStore(db)
		logger.Info("event log: postgres")
	} else {
		origin = eventlog.NewMemoryStore(memoryHistoryPerUser)
		logger.Info("event log: in-memory")
	}
	cached, err := eventlog.NewCachedStore(origin, cfg.Activity.CacheEntries)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("failed to initialize event log cache: %w", err)
	}
	stores.events = cached

	archive, err := newArchiveStore(cfg, logger)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	stores.archive = archive
	return stores, nil
}

func newArchiveStore(cfg *config.Config, logger *zap.Logger) (pagearchive.Store, error) {
	if !cfg.Archive.Enabled {
		logger.Info("page archive: in-memory")
		return pagearchive.NewMemoryStore(), nil
	}
	s3Cfg := pagearchive.S3Config{
		Endpoint:  cfg.Archive.Endpoint,
		Region:    cfg.Archive.Region,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
		Bucket:    cfg.Archive.Bucket,
		UseSSL:    cfg.Archive.UseSSL,
	}
	store, err := pagearchive.NewS3Store(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize page archive s3 store: %w", err)
	}
	logger.Info("page archive: s3", zap.String("bucket", s3Cfg.Bucket), zap.String("endpoint", s3Cfg.Endpoint))
	return store, nil
}
