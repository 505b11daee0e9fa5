package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/walljourney/mindset/internal/ai"
	"github.com/walljourney/mindset/internal/compositor"
	"github.com/walljourney/mindset/internal/config"
	"github.com/walljourney/mindset/internal/discord"
	"github.com/walljourney/mindset/internal/logger"
	"github.com/walljourney/mindset/internal/store"
	"github.com/walljourney/mindset/internal/studio"
)

type historyBackend interface {
	studio.HistoryStore
	Close() error
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiSvc, err := ai.NewClient(ctx, cfg.GeminiAPIKey, cfg.TextModel, cfg.ImageModel)
	if err != nil {
		return fmt.Errorf("failed to init ai: %w", err)
	}
	defer aiSvc.Close()

	comp, err := newCompositor(cfg)
	if err != nil {
		return fmt.Errorf("failed to init compositor: %w", err)
	}

	history, err := newHistory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init history: %w", err)
	}
	defer history.Close()

	var opts []studio.Option
	if cfg.SharingEnabled() {
		dc, err := discord.NewClient(cfg.DiscordBotToken)
		if err != nil {
			return fmt.Errorf("failed to init discord: %w", err)
		}
		opts = append(opts, studio.WithSharer(dc, cfg.DiscordShareChannelID))
	} else {
		logger.Info(ctx, "Discord sharing disabled")
	}

	svc := studio.NewService(aiSvc, comp, history, opts...)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.TrimSchedule, func() {
		trimCtx, cancel := context.WithTimeout(logger.WithRequestID(context.Background(), fmt.Sprintf("cron-%d", time.Now().UnixNano())), 2*time.Minute)
		defer cancel()
		if _, err := svc.TrimHistory(trimCtx, cfg.HistoryKeep); err != nil {
			logger.Error(trimCtx, "History trim failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid TRIM_SCHEDULE %q: %w", cfg.TrimSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           studio.NewHandler(svc).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Listening", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newCompositor(cfg *config.Config) (*compositor.Compositor, error) {
	opts := []compositor.Option{
		// The server only composes images it can fetch from public addresses, never local files.
		compositor.WithLoader(compositor.NewLoader(cfg.SourceTimeout, false, compositor.WithMaxPixels(cfg.MaxSourcePixels))),
	}
	if cfg.FontPath != "" {
		fonts, err := compositor.LoadFonts(cfg.FontPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, compositor.WithFonts(fonts))
	}
	return compositor.New(opts...)
}

func newHistory(ctx context.Context, cfg *config.Config) (historyBackend, error) {
	if cfg.GCPProjectID == "" {
		logger.Info(ctx, "Using in-memory history", "ttl", cfg.HistoryTTL.String())
		return store.NewMemory(cfg.HistoryTTL), nil
	}
	logger.Info(ctx, "Using Firestore history", "project_id", cfg.GCPProjectID)
	fs, err := store.NewFirestore(ctx, cfg.GCPProjectID)
	if err != nil {
		return nil, err
	}
	return fs, nil
}
