package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/config"
	"github.com/lazypower/keepsake/internal/engine"
	"github.com/lazypower/keepsake/internal/llm"
	"github.com/lazypower/keepsake/internal/logging"
	"github.com/lazypower/keepsake/internal/server"
	"github.com/lazypower/keepsake/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logDir := cfg.Logging.Dir
	if logDir == "" {
		if dir, err := config.DataDir(); err == nil {
			logDir = dir
		}
	}
	logger, err := logging.New(level, logDir, true)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Sync()

	dbPath := cfg.Database.Path
	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eng := engine.New(db, logger)
	eng.BriefMaxChars = cfg.Brief.MaxChars
	eng.SessionMaxBytes = cfg.Sessions.MaxBytes

	if client, err := llm.NewClient(cfg.LLM); err != nil {
		logger.Warn("llm not configured, audit disabled", zap.Error(err))
	} else {
		eng.SetLLM(client)
		logger.Info("llm ready",
			zap.String("provider", cfg.LLM.Provider), zap.String("model", cfg.LLM.Model))
	}

	// One decay pass at startup; after that decay runs on demand. There
	// are no background timers.
	if updated, err := eng.RunDecay(); err != nil {
		logger.Warn("startup decay failed", zap.Error(err))
	} else if updated > 0 {
		logger.Info("startup decay", zap.Int("updated", updated))
	}

	srv := server.New(db, eng, logger, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("keepsake serving",
			zap.String("addr", addr), zap.String("db", dbPath))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
