// Command grimoire is the main entry point for the Grimoire game-master
// assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/spielleiter/grimoire/internal/campaign"
	"github.com/spielleiter/grimoire/internal/chat"
	"github.com/spielleiter/grimoire/internal/config"
	"github.com/spielleiter/grimoire/internal/generate"
	"github.com/spielleiter/grimoire/internal/httpapi"
	"github.com/spielleiter/grimoire/internal/observe"
	"github.com/spielleiter/grimoire/pkg/provider/llm"
	"github.com/spielleiter/grimoire/pkg/provider/llm/anyllm"
	oaiprovider "github.com/spielleiter/grimoire/pkg/provider/llm/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "grimoire: config file %q not found — copy config.example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "grimoire: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("grimoire starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "grimoire"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	// ── LLM provider ──────────────────────────────────────────────────────────
	provider, err := buildProvider(cfg.Provider)
	if err != nil {
		slog.Error("failed to build LLM provider", "err", err)
		return 1
	}
	slog.Info("provider created", "backend", cfg.Provider.Backend, "model", cfg.Provider.Model)

	// ── Campaign store ────────────────────────────────────────────────────────
	store, closeStore, err := buildStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to initialise storage", "err", err)
		return 1
	}
	defer closeStore()

	// ── Chat and generation engines ───────────────────────────────────────────
	genTimeout := time.Duration(cfg.Chat.GenerationTimeoutSeconds) * time.Second

	orchestrator, err := chat.NewOrchestrator(chat.Config{
		Store:              store,
		Provider:           provider,
		MaxRecentMessages:  cfg.Chat.MaxRecentMessages,
		SummarizeThreshold: cfg.Chat.SummarizeThreshold,
		GenerationTimeout:  genTimeout,
		Metrics:            metrics,
	})
	if err != nil {
		slog.Error("failed to initialise chat engine", "err", err)
		return 1
	}

	generator, err := generate.New(generate.Config{
		Provider: provider,
		Timeout:  genTimeout,
		Metrics:  metrics,
	})
	if err != nil {
		slog.Error("failed to initialise generator", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	api := httpapi.New(store, orchestrator, generator, metrics)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			slog.Info("server ready (https) — press Ctrl+C to shut down", "addr", srv.Addr)
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			slog.Info("server ready — press Ctrl+C to shut down", "addr", srv.Addr)
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		slog.Info("shutdown signal received, stopping…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildProvider constructs the configured LLM backend.
func buildProvider(cfg config.ProviderConfig) (llm.Provider, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		var opts []oaiprovider.Option
		if cfg.BaseURL != "" {
			opts = append(opts, oaiprovider.WithBaseURL(cfg.BaseURL))
		}
		return oaiprovider.New(cfg.APIKey, cfg.Model, opts...)

	default:
		var opts []anyllmlib.Option
		if cfg.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
		}
		return anyllm.New(cfg.Name, cfg.Model, opts...)
	}
}

// ── Storage wiring ────────────────────────────────────────────────────────────

// buildStore constructs the configured campaign store. The returned close
// function releases any held resources (a no-op for the file driver).
func buildStore(ctx context.Context, cfg config.StorageConfig) (campaign.Store, func(), error) {
	switch cfg.Driver {
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		store := campaign.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("storage ready", "driver", "postgres")
		return store, pool.Close, nil

	default:
		store, err := campaign.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("storage ready", "driver", "file", "path", cfg.Path)
		return store, func() {}, nil
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
