package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/counseling-diary/internal/application"
	"github.com/example/counseling-diary/internal/auth"
	"github.com/example/counseling-diary/internal/config"
	httptransport "github.com/example/counseling-diary/internal/http"
	"github.com/example/counseling-diary/internal/logging"
	"github.com/example/counseling-diary/internal/metrics"
	"github.com/example/counseling-diary/internal/persistence"
	"github.com/example/counseling-diary/internal/persistence/memory"
	"github.com/example/counseling-diary/internal/persistence/sqlstore"
	"github.com/example/counseling-diary/internal/persistence/sqlstore/dialect"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("counseling API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// app holds the wired HTTP handler and the resources it must release.
type app struct {
	handler http.Handler
	closers []func() error
	logger  *zap.Logger
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", zap.Error(err))
		}
	}
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	now := time.Now
	idGenerator := uuid.NewString

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL(), now)
	if err != nil {
		return nil, err
	}

	var revocations application.RevocationList
	if cfg.Redis.Addr != "" {
		rdb, err := auth.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		revocations = auth.NewRedisRevocationList(rdb, "", now)
		logger.Info("using redis revocation list", zap.String("addr", cfg.Redis.Addr))
	} else {
		revocations = auth.NewMemoryRevocationList(now)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	repo := newStoreAdapter(store)
	invites := application.NewInviteCodeAllocator(repo,
		application.WithCollisionHook(m.InviteCodeCollision),
		application.WithAllocatorLogger(logger),
	)

	authService := application.NewAuthServiceWithLogger(repo, application.NewArgon2idHasher(), tokenIssuerAdapter{issuer: issuer}, revocations, idGenerator, now, logger)
	roomService := application.NewRoomServiceWithLogger(repo, repo, repo, invites, idGenerator, now, logger)
	cardService := application.NewCardServiceWithLogger(repo, repo, repo, repo, idGenerator, now, logger)
	profileService := application.NewProfileServiceWithLogger(repo, repo, repo, repo, now, logger)

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, logger),
		Rooms:         httptransport.NewRoomHandler(roomService, logger),
		Cards:         httptransport.NewCardHandler(cardService, logger),
		Profile:       httptransport.NewProfileHandler(profileService, logger),
		Authenticator: authService,
		Health:        store,
		Metrics:       m,
		Logger:        logger,
	})
	return a, nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (persistence.Store, error) {
	if cfg.Driver == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	}

	d, err := dialect.Parse(cfg.Driver)
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(ctx, sqlstore.DefaultOptions(d, cfg.DSN), logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", d, err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("database ready", zap.String("driver", string(d)))
	return store, nil
}
