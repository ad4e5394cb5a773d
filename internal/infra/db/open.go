package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"masterclass-reconciler/internal/config"
	"masterclass-reconciler/internal/domain/ports/repository"
	"masterclass-reconciler/internal/infra/db/docstore"
	"masterclass-reconciler/internal/infra/db/memory"
	mdb "masterclass-reconciler/internal/infra/db/mongo"
	"masterclass-reconciler/internal/infra/db/postgres"
)

// Open connects the configured document store and wraps it with metrics.
// The returned closer releases the connection and stops background reporters.
func Open(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (repository.DocumentStore, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		statsCtx, stop := context.WithCancel(context.Background())
		go postgres.ReportPoolStats(statsCtx, pool, 30*time.Second, logger)
		logger.Info().Msg("connected to postgres")
		return docstore.NewInstrumented(postgres.NewDocumentStore(pool)), func() {
			stop()
			pool.Close()
		}, nil

	case "mongo":
		client, err := mdb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
		return docstore.NewInstrumented(mdb.NewDocumentStore(client.Database(cfg.Mongo.Database))), func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(cctx); err != nil {
				logger.Warn().Err(err).Msg("mongo disconnect")
			}
		}, nil

	case "memory":
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return docstore.NewInstrumented(memory.NewDocumentStore()), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
