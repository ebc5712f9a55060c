package cmd

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

	"github.com/spf13/cobra"

	"github.com/viafoto/viafoto/internal/classify"
	"github.com/viafoto/viafoto/internal/ocr"
	"github.com/viafoto/viafoto/internal/queue"
	"github.com/viafoto/viafoto/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the web frontend",
	Long: `Start an HTTP server exposing the classification queue as a REST API.

Endpoints:
  POST   /classify     - Submit photos for classification
  GET    /jobs/current - Live queue statistics
  GET    /results      - Incremental run results
  POST   /abort        - Abort the active run
  GET    /cache/stats  - Result cache statistics
  DELETE /cache        - Clear the result cache
  GET    /ws/progress  - WebSocket progress stream
  GET    /metrics      - Prometheus metrics
  GET    /health       - Health check

Examples:
  viafoto serve
  viafoto serve --port 8080
  viafoto serve --host 0.0.0.0 --port 3000`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}

	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
	}

	corsOrigin := cfg.Server.CORSOrigin
	if cmd.Flags().Changed("cors-origin") {
		corsOrigin, _ = cmd.Flags().GetString("cors-origin")
	}

	maxUploadMB := cfg.Server.MaxUploadMB
	if cmd.Flags().Changed("max-upload-size") {
		maxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
	}

	timeout := cfg.Server.TimeoutSec
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetInt("timeout")
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if cmd.Flags().Changed("shutdown-timeout") {
		shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}

	if cfg.Classifier.Endpoint == "" {
		return fmt.Errorf("no gateway endpoint configured (set classifier.endpoint)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.Default()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	client := classify.NewClient(classify.Config{
		Endpoint: cfg.Classifier.Endpoint,
		APIKey:   cfg.Classifier.APIKey,
		Model:    cfg.Classifier.Model,
		Timeout:  cfg.ClassifierTimeout(),
	}, logger)

	catalog := ocr.DefaultFrontCatalog()

	var extractor *ocr.Extractor
	if cfg.Queue.LocalOCR {
		engine, err := ocr.NewTesseractEngine(ocr.TesseractConfig{
			Binary:    cfg.OCR.TesseractPath,
			Languages: cfg.OCR.Languages,
			PSM:       cfg.OCR.PSM,
		}, logger)
		if err != nil {
			logger.Warn("local OCR unavailable, serving without it", "error", err)
		} else {
			extractor = ocr.NewExtractor(engine, catalog, logger)
		}
	}

	orch := queue.New(store, client, extractor, queue.Config{
		BatchSize:           cfg.Queue.BatchSize,
		PacingDelay:         cfg.PacingDelay(),
		EnrichWorkers:       cfg.Queue.EnrichWorkers,
		LocalOCR:            extractor != nil,
		FallbackDelayFactor: cfg.Queue.FallbackDelayFactor,
		Retry: classify.RetryConfig{
			MaxAttempts: cfg.Classifier.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay(),
		},
		Context: classify.RequestContext{
			KnownFronts: catalog.Names(),
			Model:       cfg.Classifier.Model,
		},
	}, logger)

	srv := server.NewServer(orch, store, server.Config{
		Host:        host,
		Port:        port,
		CORSOrigin:  corsOrigin,
		MaxUploadMB: int64(maxUploadMB),
		TimeoutSec:  timeout,
	}, logger)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(timeout) * time.Second,
		WriteTimeout:      time.Duration(timeout) * time.Second,
	}

	go func() {
		slog.Info("Starting viafoto server", "host", host, "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	// Stop any active run before closing the listener so partial results
	// land in the cache.
	orch.Abort()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	slog.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("Graceful shutdown completed")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 100, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 300, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
}
