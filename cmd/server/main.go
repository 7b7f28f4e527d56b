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

	"github.com/spf13/pflag"

	"github.com/obaidtambo/doc-struct/internal/api"
	"github.com/obaidtambo/doc-struct/internal/config"
	"github.com/obaidtambo/doc-struct/internal/files"
	"github.com/obaidtambo/doc-struct/internal/pipeline"
	"github.com/obaidtambo/doc-struct/internal/store"
)

func main() {
	fs := pflag.NewFlagSet("docstruct-server", pflag.ExitOnError)
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.DBPath, log.With("component", "store"))
	if err != nil {
		return err
	}
	defer st.Close()

	fm, err := files.NewManager(cfg.InputDir, cfg.CacheDir, cfg.OutputDir, log.With("component", "files"))
	if err != nil {
		return err
	}

	// Initialize clients.
	provider := pipeline.NewProvider(cfg, fm, log)
	corrector, oracle, err := pipeline.NewCorrector(cfg, log)
	if err != nil {
		return err
	}
	if oracle != nil {
		defer oracle.Close()
	}

	// Initialize pipeline.
	worker := pipeline.NewWorker(provider, corrector, st, fm, log.With("component", "worker"))
	orch := pipeline.NewOrchestrator(cfg, worker, log.With("component", "orchestrator"))
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Documents: st,
		Uploads:   fm,
		Queue:     orch,
		Oracle:    oracle,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. The HTTP server stops first so nothing is
	// submitted once the queue closes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		orch.Stop()
	}()

	log.Info("starting docstruct",
		"port", cfg.Port,
		"db", cfg.DBPath,
		"workers", cfg.WorkerCount,
		"correction", cfg.CorrectionEnabled,
		"oracle", cfg.OracleProvider,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
