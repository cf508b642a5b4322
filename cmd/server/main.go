package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/classbot/internal/agent"
	"github.com/p-n-ai/classbot/internal/ai"
	"github.com/p-n-ai/classbot/internal/chat"
	"github.com/p-n-ai/classbot/internal/content"
	"github.com/p-n-ai/classbot/internal/platform/cache"
	"github.com/p-n-ai/classbot/internal/platform/config"
	"github.com/p-n-ai/classbot/internal/platform/database"
	"github.com/p-n-ai/classbot/internal/platform/metrics"
	"github.com/p-n-ai/classbot/internal/session"
	"github.com/p-n-ai/classbot/internal/web"
)

const sweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	loader, err := content.NewLoader(content.Paths{
		ClassData:       cfg.Content.ClassDataFile,
		CourseInfo:      cfg.Content.CourseInfoFile,
		WorkbookDir:     cfg.Content.WorkbookDir,
		WorkbookPattern: cfg.Content.WorkbookPattern,
	})
	if err != nil {
		return err
	}

	router := newRouter(cfg.AI)
	if !router.HasProvider() {
		slog.Warn("no AI provider configured, chat answers are disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	checks := map[string]web.HealthChecker{}
	if router.HasProvider() {
		checks["ai"] = router
	}

	memSessions := session.NewMemoryStore(cfg.Session.TTL)
	var (
		sessions session.Store     = memSessions
		answers  agent.AnswerCache = agent.NewMemoryAnswerCache(cfg.Cache.AnswerTTL)
		budget   ai.BudgetChecker
		events   agent.EventLogger = agent.NopEventLogger{}
	)
	if cfg.AI.SessionBudget > 0 {
		budget = ai.NewInMemoryBudget(cfg.AI.SessionBudget)
	}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL, cfg.Cache.Password)
		if err != nil {
			return fmt.Errorf("connecting to cache: %w", err)
		}
		defer c.Close()

		memSessions = nil
		sessions = session.NewRedisStore(c.Client, cfg.Session.TTL)
		answers = agent.NewRedisAnswerCache(c.Client, cfg.Cache.AnswerTTL)
		if cfg.AI.SessionBudget > 0 {
			budget = ai.NewRedisBudget(c.Client, cfg.AI.SessionBudget, cfg.Session.TTL)
		}
		checks["cache"] = c
		slog.Info("using redis for sessions and answers")
	}

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		events = agent.NewPostgresEventLogger(db.Pool)
		checks["database"] = db
		slog.Info("event logging to postgres enabled")
	}

	engine := newEngine(cfg.AI, agent.EngineConfig{
		AIRouter: router,
		Content:  loader,
		Budget:   budget,
		Cache:    answers,
		Events:   events,
		Metrics:  m,
	})

	srv := web.NewServer(web.Config{
		Engine:       engine,
		Sessions:     sessions,
		Channel:      chat.NewWebSocketChannel(cfg.Server.AllowedOrigins...),
		Metrics:      m,
		Checks:       checks,
		SessionTTL:   cfg.Session.TTL,
		CookieSecure: cfg.Session.CookieSecure,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		// No write timeout: websocket connections stay open.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if memSessions != nil {
		g.Go(func() error {
			sweepSessions(gctx, memSessions, sweepInterval)
			return nil
		})
	}

	return g.Wait()
}

// newRouter registers every configured provider. The order is the fallback order.
func newRouter(cfg config.AIConfig) *ai.Router {
	router := ai.NewRouter()
	if cfg.OpenAI.APIKey != "" {
		opts := []ai.OpenAIOption{ai.WithDefaultModel(cfg.Model)}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey, opts...))
	}
	if cfg.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey))
	}
	if cfg.DeepSeek.APIKey != "" {
		var opts []ai.OpenAIOption
		if cfg.DeepSeek.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.DeepSeek.BaseURL))
		}
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey, opts...))
	}
	if cfg.Ollama.Enabled {
		var opts []ai.OpenAIOption
		if cfg.Ollama.Model != "" {
			opts = append(opts, ai.WithDefaultModel(cfg.Ollama.Model))
		}
		router.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL, opts...))
	}
	return router
}

// newEngine applies the AI settings to deps. The request model is left empty
// so each provider in the fallback chain sends its own default; the configured
// model reaches OpenAI through newRouter.
func newEngine(cfg config.AIConfig, deps agent.EngineConfig) *agent.Engine {
	deps.Model = ""
	deps.Temperature = cfg.Temperature
	deps.MaxTokens = cfg.MaxTokens
	return agent.NewEngine(deps)
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func sweepSessions(ctx context.Context, store *session.MemoryStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
