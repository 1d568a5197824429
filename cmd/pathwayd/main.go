package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lernio/pathway/internal/notify"
	"github.com/lernio/pathway/internal/path"
	"github.com/lernio/pathway/internal/platform/cache"
	"github.com/lernio/pathway/internal/platform/config"
	"github.com/lernio/pathway/internal/platform/database"
	"github.com/lernio/pathway/internal/progress"
	"github.com/lernio/pathway/internal/quiz"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	loader, err := path.NewLoader(cfg.PathsDir)
	if err != nil {
		slog.Error("failed to load learning paths", "dir", cfg.PathsDir, "error", err)
		os.Exit(1)
	}
	var db *database.DB
	if cfg.HasDatabase() {
		db, err = database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database connected")
	}

	var c *cache.Cache
	if cfg.HasCache() {
		c, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		slog.Info("cache connected")
	}

	events, outbox := buildJournal(ctx, db)
	quizzes := buildQuizChain(cfg.Quiz, c)

	wsChannel := notify.NewWebSocketChannel()
	gateway := notify.NewGateway()
	gateway.Register("websocket", wsChannel)
	defer gateway.Close()

	srv := newServer(serverDeps{
		cfg:       cfg,
		loader:    loader,
		events:    events,
		outbox:    outbox,
		quizzes:   quizzes,
		notifier:  gateway,
		wsChannel: wsChannel,
		db:        db,
		cache:     c,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.mux(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// buildJournal picks durable event/outbox storage when the database is
// configured, in-memory otherwise.
func buildJournal(ctx context.Context, db *database.DB) (progress.EventLogger, progress.Outbox) {
	if db == nil {
		return progress.NewMemoryEventLogger(), progress.NewMemoryOutbox()
	}

	events := progress.NewPostgresEventLogger(db.Pool)
	outbox, err := progress.NewPostgresOutbox(ctx, db.Pool)
	if err != nil {
		slog.Error("failed to initialize push outbox, falling back to memory", "error", err)
		return events, progress.NewMemoryOutbox()
	}
	return events, outbox
}

// buildQuizChain assembles the quiz provider chain: configured assessment
// services in order (cached when a cache is available), the local
// generator last.
func buildQuizChain(cfg config.QuizConfig, c *cache.Cache) quiz.Provider {
	chain := quiz.NewChain()
	for i, endpoint := range cfg.Endpoints {
		var p quiz.Provider = quiz.NewHTTPProvider(endpoint,
			quiz.WithToken(cfg.Token),
			quiz.WithProviderName(fmt.Sprintf("assessment-%d", i+1)),
		)
		if c != nil {
			p = quiz.NewCachingProvider(p, c)
		}
		chain.Register(p)
	}
	chain.Register(quiz.NewFallbackGenerator(quiz.WithQuestionCount(cfg.QuestionCount)))
	return chain
}
