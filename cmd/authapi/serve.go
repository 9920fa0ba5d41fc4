package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/apilogin/auth-api/internal/api"
	"github.com/apilogin/auth-api/internal/api/handler"
	"github.com/apilogin/auth-api/internal/core/domain"
	"github.com/apilogin/auth-api/internal/core/ports"
	"github.com/apilogin/auth-api/internal/core/service"
	"github.com/apilogin/auth-api/internal/infrastructure/config"
	redisdb "github.com/apilogin/auth-api/internal/infrastructure/db/redis"
	"github.com/apilogin/auth-api/internal/infrastructure/mail"
	"github.com/apilogin/auth-api/internal/infrastructure/queue"
	"github.com/apilogin/auth-api/internal/pkg/password"
	"github.com/apilogin/auth-api/internal/pkg/resetcode"
	"github.com/apilogin/auth-api/internal/pkg/token"
	"github.com/apilogin/auth-api/pkg/logger"
)

type serveConfig struct {
	autoMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. The process shuts down gracefully on SIGINT
or SIGTERM, waiting for in-flight requests and queued mail.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.autoMigrate, "auto-migrate", true, "apply schema migrations before serving")

	return cmd
}

func runServe(ctx context.Context, sc *serveConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: serviceName, Version: version})

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
		return err
	}
	defer b.close()

	if sc.autoMigrate {
		if err := b.migrate(ctx); err != nil {
			log.Error().Err(err).Msg("migration failed")
			return err
		}
	}

	checks := map[string]handler.Pinger{b.name: b.ping}

	var roles ports.RoleLookup = b.store
	if cfg.Redis.RoleCacheTTL > 0 {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Error().Err(err).Msg("failed to connect to redis")
			return err
		}
		defer rdb.Close()
		roles = redisdb.NewRoleCache(rdb, b.store, cfg.Redis.RoleCacheTTL, log)
		checks["redis"] = redisdb.Ping(rdb)
		log.Info().Dur("ttl", cfg.Redis.RoleCacheTTL).Msg("role cache enabled")
	}

	tokens, err := token.NewService(cfg.JWTSecret, domain.TokenTTL)
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	svc := service.NewAuthService(service.Deps{
		Store:         b.store,
		Hasher:        password.NewBcryptHasher(password.DefaultCost),
		Tokens:        tokens,
		Codes:         resetcode.NewGenerator(),
		Notifier:      notifier,
		Roles:         roles,
		AdminRoleName: cfg.AdminRoleName,
	}, log)

	if err := svc.EnsureAdmin(ctx, service.BootstrapAdmin{
		Username: cfg.Bootstrap.Username,
		Email:    cfg.Bootstrap.Email,
		Password: cfg.Bootstrap.Password,
	}); err != nil {
		log.Error().Err(err).Msg("bootstrap admin failed")
		return err
	}

	e := api.NewRouter(api.RouterDeps{
		Auth:   svc,
		Tokens: tokens,
		Checks: checks,
		Log:    log,
	})

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// newNotifier picks SMTP delivery when credentials are configured and a
// logging sink otherwise, optionally behind the async dispatcher. Config
// validation only admits the logging sink in development.
func newNotifier(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.Notifier, func(), error) {
	var next ports.Notifier
	if cfg.Mail.Enabled() {
		smtp, err := mail.NewSMTPNotifier(mail.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.Sender(),
		})
		if err != nil {
			return nil, nil, err
		}
		next = smtp
	} else {
		log.Warn().Msg("SMTP credentials not set, reset codes will only be logged")
		next = mail.NewLogNotifier(log)
	}

	if !cfg.Mail.Async {
		return next, func() {}, nil
	}

	d := queue.NewDispatcher(cfg.Mail.Workers, next, log)
	// workers outlive the signal context so Close can drain the queues
	d.Start(context.WithoutCancel(ctx))
	return d, d.Close, nil
}
