package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/apilogin/auth-api/internal/api/handler"
	"github.com/apilogin/auth-api/internal/core/ports"
	"github.com/apilogin/auth-api/internal/infrastructure/config"
	mongodb "github.com/apilogin/auth-api/internal/infrastructure/db/mongo"
	"github.com/apilogin/auth-api/internal/infrastructure/db/postgres"
)

// backend is an opened credential store together with its readiness check
// and the function releasing its connections.
type backend struct {
	store   ports.CredentialStore
	name    string
	ping    handler.Pinger
	migrate func(ctx context.Context) error
	close   func()
}

func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
		return &backend{
			store:   mongodb.NewStore(client, db),
			name:    "mongo",
			ping:    func(ctx context.Context) error { return client.Ping(ctx, nil) },
			migrate: func(ctx context.Context) error { return mongodb.EnsureSchema(ctx, db) },
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Warn().Err(err).Msg("mongo disconnect")
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN(), MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			return nil, err
		}
		log.Info().Str("host", cfg.Postgres.Host).Msg("connected to postgres")
		return &backend{
			store:   postgres.NewStore(pool),
			name:    "postgres",
			ping:    pool.Ping,
			migrate: func(ctx context.Context) error { return postgres.Migrate(ctx, pool) },
			close:   pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
