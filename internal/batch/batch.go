// Package batch wires the classification queue into a command line run:
// it discovers photo files, loads them, drives the orchestrator and
// renders the results.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/viafoto/viafoto/internal/cache"
	"github.com/viafoto/viafoto/internal/classify"
	"github.com/viafoto/viafoto/internal/ocr"
	"github.com/viafoto/viafoto/internal/queue"
)

// ProcessBatch classifies every photo found under paths.
//
// An aborted or credit-stopped run is not an error at this level; the
// partial results are returned with Result.Aborted set so the caller can
// still render them.
func ProcessBatch(ctx context.Context, paths []string, cfg *Config, store cache.Store, logger *slog.Logger) (*Result, error) {
	files, err := DiscoverPhotos(paths, cfg)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files found in the given paths")
	}

	photos := make([]queue.Photo, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		photos = append(photos, queue.Photo{Filename: file, Data: data})
	}

	client := classify.NewClient(classify.Config{
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
	}, logger)

	catalog := ocr.DefaultFrontCatalog()

	var extractor *ocr.Extractor
	if cfg.LocalOCR {
		engine, err := ocr.NewTesseractEngine(ocr.TesseractConfig{
			Binary:    cfg.TesseractPath,
			Languages: cfg.OCRLanguages,
			PSM:       cfg.OCRPSM,
		}, logger)
		if err != nil {
			logger.Warn("local OCR unavailable, continuing without it", "error", err)
		} else {
			extractor = ocr.NewExtractor(engine, catalog, logger)
		}
	}

	orch := queue.New(store, client, extractor, queue.Config{
		BatchSize:           cfg.BatchSize,
		PacingDelay:         cfg.PacingDelay,
		EnrichWorkers:       cfg.EnrichWorkers,
		LocalOCR:            extractor != nil,
		FallbackDelayFactor: cfg.FallbackDelayFactor,
		Retry: classify.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseDelay,
		},
		Context: classify.RequestContext{
			Contract:    cfg.Contract,
			KnownFronts: catalog.Names(),
			Model:       cfg.Model,
		},
	}, logger)

	var progress queue.ProgressCallback = queue.NoOpProgress{}
	if !cfg.Quiet {
		progress = queue.NewConsoleProgress(os.Stderr, "classificando")
	}

	start := time.Now()
	results, err := orch.Run(ctx, photos, queue.Hooks{Progress: progress})
	run := &Result{
		Results:  results,
		Duration: time.Since(start),
		Aborted:  errors.Is(err, queue.ErrAborted),
	}
	if err != nil && !run.Aborted {
		return nil, err
	}
	return run, nil
}
