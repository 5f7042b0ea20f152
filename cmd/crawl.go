package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catalog-crawler/internal/api"
	"catalog-crawler/internal/catalog"
	"catalog-crawler/internal/clock/system"
	"catalog-crawler/internal/config"
	"catalog-crawler/internal/id/uuid"
	"catalog-crawler/internal/orchestrator"
	"catalog-crawler/internal/reconcile"
	"catalog-crawler/internal/source"
	"catalog-crawler/internal/storage/memory"
	"catalog-crawler/internal/storage/postgres"
	"catalog-crawler/internal/storage/redis"
	"catalog-crawler/internal/transform"
)

// newCrawlCmd creates and configures the 'crawl' subcommand. It runs one
// full crawl session to completion, then reconciles the stored catalog
// against what the session saw.
func newCrawlCmd() *cobra.Command {
	var resumeSession string
	var skipReconcile bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl session against the catalog API",
		Long: `Walks the product and store listings, crawls every discovered entity,
and upserts the normalized records. Pass --session to resume a crawl
from its last checkpoint instead of starting a new one.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), resumeSession, skipReconcile)
		},
	}
	cmd.Flags().StringVar(&resumeSession, "session", "", "session ID to resume from its last checkpoint")
	cmd.Flags().BoolVar(&skipReconcile, "skip-reconcile", false, "leave absent entities alone after the crawl")
	return cmd
}

func runCrawl(ctx context.Context, resumeSession string, skipReconcile bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	if cfg.Ops.ListenAddr != "" {
		go serveOps(cfg.Ops.ListenAddr, deps.sessions, logger)
	}

	clock := system.New()
	session, err := resolveSession(ctx, deps.sessions, resumeSession, clock)
	if err != nil {
		return err
	}

	engine, err := transform.NewCatalogEngine()
	if err != nil {
		return fmt.Errorf("build transform engine: %w", err)
	}

	orch := orchestrator.New(deps.source, deps.entities, deps.sessions, engine, clock, logger)
	if err := orch.Run(ctx, session); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("crawl interrupted; resume with --session",
				zap.String("session_id", session.ID))
		}
		return fmt.Errorf("run crawl %s: %w", session.ID, err)
	}

	if skipReconcile {
		logger.Info("reconciliation skipped", zap.String("session_id", session.ID))
		return nil
	}
	if err := reconcile.New(deps.entities, logger).Run(ctx, session); err != nil {
		return fmt.Errorf("reconcile crawl %s: %w", session.ID, err)
	}
	return nil
}

// deps bundles the stores and source client a crawl needs, with a single
// close for whatever was actually opened.
type deps struct {
	source   catalog.Source
	entities catalog.EntityStore
	sessions catalog.SessionStore
	closers  []func()
}

func (d *deps) close() {
	for _, c := range d.closers {
		c()
	}
}

func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{}

	client, err := source.New(source.Config{
		BaseURL:           cfg.Source.BaseURL,
		UserAgent:         cfg.Source.UserAgent,
		Timeout:           cfg.RequestTimeout(),
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Burst:             cfg.Source.Burst,
		RetryMaxAttempts:  cfg.Source.RetryMaxAttempts,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init source client: %w", err)
	}
	d.source = client

	if cfg.Database.DSN != "" {
		entities, err := postgres.NewEntityStore(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		d.entities = entities
		d.closers = append(d.closers, entities.Close)
	} else {
		logger.Warn("no database.dsn configured; entities are held in memory only")
		d.entities = memory.NewEntityStore()
	}

	switch {
	case cfg.Redis.Addr != "":
		sessions := redis.NewSessionStore(cfg.Redis.Addr, cfg.Redis.Prefix, cfg.RedisTTL())
		d.sessions = sessions
		d.closers = append(d.closers, func() { _ = sessions.Close() })
	case cfg.Database.DSN != "":
		sessions, err := postgres.NewSessionStore(ctx, cfg.Database.DSN)
		if err != nil {
			d.close()
			return nil, err
		}
		d.sessions = sessions
		d.closers = append(d.closers, sessions.Close)
	default:
		d.sessions = memory.NewSessionStore()
	}

	return d, nil
}

func resolveSession(
	ctx context.Context,
	sessions catalog.SessionStore,
	resumeID string,
	clock catalog.Clock,
) (*catalog.Session, error) {
	if resumeID != "" {
		session, ok, err := sessions.Load(ctx, resumeID)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", resumeID, err)
		}
		if !ok {
			return nil, fmt.Errorf("session %s has no checkpoint", resumeID)
		}
		logger.Info("resuming session",
			zap.String("session_id", session.ID),
			zap.String("status", string(session.Status)),
			zap.Int("queued_jobs", session.Queue.Len()))
		return session, nil
	}

	id, err := uuid.New().NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	logger.Info("starting session", zap.String("session_id", id))
	return catalog.NewSession(id, clock.Now()), nil
}

func serveOps(addr string, sessions catalog.SessionStore, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(sessions, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("ops server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("ops server stopped", zap.Error(err))
	}
}
