package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/catalog-comb/app/api"
	"github.com/lysyi3m/catalog-comb/app/catalog"
	"github.com/lysyi3m/catalog-comb/app/cfg"
	"github.com/lysyi3m/catalog-comb/app/database"
	"github.com/lysyi3m/catalog-comb/app/feed"
	"github.com/lysyi3m/catalog-comb/app/page"
	"github.com/lysyi3m/catalog-comb/app/source"
	"github.com/lysyi3m/catalog-comb/app/summarizer"
)

func main() {
	loaded, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if loaded == nil {
		// Help was shown
		return
	}

	setupLogger(loaded.Debug)

	switch loaded.Command {
	case cfg.CommandServe:
		err = serve()
	default:
		err = build()
	}

	if err != nil {
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func build() error {
	appCfg := cfg.Get()

	template, err := page.LoadTemplate(appCfg.TemplatePath)
	if err != nil {
		slog.Error("Failed to load page template", "path", appCfg.TemplatePath, "error", err)
		return err
	}

	truncator := summarizer.NewTruncator(appCfg.DescriptionWidth)
	var summarize summarizer.Summarizer = truncator
	if appCfg.SummarizerKey != "" {
		slog.Debug("AI summarizer enabled", "model", appCfg.SummarizerModel)
		summarize = summarizer.NewChatSummarizer(appCfg.SummarizerURL, appCfg.SummarizerKey,
			appCfg.SummarizerModel, appCfg.FetchTimeout, truncator)
	}

	pipeline := catalog.NewPipeline(
		source.NewFetcher(appCfg.FeedURL, appCfg.FeedFile, appCfg.UserAgent, appCfg.FetchTimeout),
		feed.NewValidator(appCfg.Profile.RequiredFields, appCfg.DefaultCurrency, appCfg.Profile.DefaultCondition),
		summarize,
		feed.NewGenerator(appCfg.SiteBase, appCfg.Profile.Channel),
		feed.NewSitemap(appCfg.SiteBase),
		page.NewRenderer(appCfg.SiteBase, template),
		catalog.Options{OutputDir: appCfg.OutputDir, Profile: appCfg.Profile.Name},
	)

	if history, closeHistory := openHistory(appCfg.HistoryDB); history != nil {
		defer closeHistory()
		pipeline.WithHistory(history)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.Run(ctx)
	report.WriteSummary(os.Stdout, appCfg.SummaryLimit)

	if err != nil && !errors.Is(err, catalog.ErrNoProducts) {
		slog.Error("Catalog build failed", "error", err, "duration", report.Duration)
	}

	return err
}

func serve() error {
	appCfg := cfg.Get()

	slog.Info("Starting Catalog Comb preview server", "version", appCfg.Version, "output_dir", appCfg.OutputDir)

	history, closeHistory := openHistory(appCfg.HistoryDB)
	if history != nil {
		defer closeHistory()
	}

	handler := api.NewHandler(appCfg.OutputDir, appCfg.Version, history)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "history", history != nil, "api_key", appCfg.APIAccessKey != "")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serverErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case serverErr = <-serverErrChan:
		slog.Error("Server error", "error", serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serverErr
}

// openHistory opens the run history database when a path is configured.
// Failures disable history without failing the command.
func openHistory(path string) (database.RunRepository, func()) {
	if path == "" {
		return nil, nil
	}

	db, err := database.NewConnection(path)
	if err != nil {
		slog.Warn("Run history disabled", "path", path, "error", err)
		return nil, nil
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Warn("Run history disabled", "path", path, "error", err)
		db.Close()
		return nil, nil
	}

	slog.Debug("Run history ready", "path", path, "schema_version", version, "dirty", dirty)

	return database.NewRunRepository(db), func() { db.Close() }
}
