package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/viafoto/viafoto/internal/batch"
)

// classifyCmd represents the classify command.
var classifyCmd = &cobra.Command{
	Use:   "classify [flags] <photo-or-directory> ...",
	Short: "Classify site photos in batches",
	Long: `Classify construction site photos using the remote AI gateway.

Photos are deduplicated by content hash against the result cache, enriched
with local OCR when tesseract is available, and submitted in paced batches.
Directories are scanned for image files; pass --recursive to descend into
subdirectories.

Examples:
  viafoto classify ./fotos
  viafoto classify ./fotos --recursive --contract BR-101-LOTE2
  viafoto classify foto.jpg --format csv -o resultado.csv
  viafoto classify ./fotos --no-ocr --batch-size 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	batchSize := cfg.Queue.BatchSize
	if cmd.Flags().Changed("batch-size") {
		batchSize, _ = cmd.Flags().GetInt("batch-size")
	}

	pacingDelay := cfg.PacingDelay()
	if cmd.Flags().Changed("pacing-delay") {
		pacingDelay, _ = cmd.Flags().GetDuration("pacing-delay")
	}

	localOCR := cfg.Queue.LocalOCR
	if noOCR, _ := cmd.Flags().GetBool("no-ocr"); noOCR {
		localOCR = false
	}

	endpoint := cfg.Classifier.Endpoint
	if cmd.Flags().Changed("endpoint") {
		endpoint, _ = cmd.Flags().GetString("endpoint")
	}
	if endpoint == "" {
		return fmt.Errorf("no gateway endpoint configured (set classifier.endpoint or --endpoint)")
	}

	model := cfg.Classifier.Model
	if cmd.Flags().Changed("model") {
		model, _ = cmd.Flags().GetString("model")
	}

	contract, _ := cmd.Flags().GetString("contract")
	recursive, _ := cmd.Flags().GetBool("recursive")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	format, _ := cmd.Flags().GetString("format")
	outputFile, _ := cmd.Flags().GetString("output")
	quiet, _ := cmd.Flags().GetBool("quiet")
	showStats, _ := cmd.Flags().GetBool("stats")

	runCfg := &batch.Config{
		Endpoint:            endpoint,
		APIKey:              cfg.Classifier.APIKey,
		Model:               model,
		Timeout:             cfg.ClassifierTimeout(),
		MaxAttempts:         cfg.Classifier.MaxAttempts,
		BaseDelay:           cfg.RetryBaseDelay(),
		BatchSize:           batchSize,
		PacingDelay:         pacingDelay,
		EnrichWorkers:       cfg.Queue.EnrichWorkers,
		LocalOCR:            localOCR,
		FallbackDelayFactor: cfg.Queue.FallbackDelayFactor,
		TesseractPath:       cfg.OCR.TesseractPath,
		OCRLanguages:        cfg.OCR.Languages,
		OCRPSM:              cfg.OCR.PSM,
		Contract:            contract,
		Recursive:           recursive,
		IncludePatterns:     include,
		ExcludePatterns:     exclude,
		Format:              format,
		OutputFile:          outputFile,
		Quiet:               quiet,
		ShowStats:           showStats,
	}

	// Ctrl-C aborts the run; the partial results are still rendered.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	start := time.Now()
	result, err := batch.ProcessBatch(ctx, args, runCfg, store, slog.Default())
	if err != nil {
		return err
	}

	if err := result.SaveResults(runCfg.Format, runCfg.OutputFile, runCfg.Quiet); err != nil {
		return err
	}
	if runCfg.ShowStats {
		result.PrintStats(runCfg.Quiet)
	}

	slog.Debug("classification run finished",
		"photos", len(result.Results),
		"duration", time.Since(start),
		"aborted", result.Aborted)

	if result.Aborted {
		_, _ = fmt.Fprintln(os.Stderr, "run aborted")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().String("endpoint", "", "AI gateway endpoint URL")
	classifyCmd.Flags().String("model", "", "override the gateway model")
	classifyCmd.Flags().String("contract", "", "contract identifier forwarded to the gateway")
	classifyCmd.Flags().Int("batch-size", 0, "photos per gateway request")
	classifyCmd.Flags().Duration("pacing-delay", 0, "delay between batch submissions")
	classifyCmd.Flags().Bool("no-ocr", false, "disable local OCR enrichment")
	classifyCmd.Flags().BoolP("recursive", "r", false, "scan directories recursively")
	classifyCmd.Flags().StringSlice("include", nil, "glob patterns files must match (e.g. 'IMG_*.jpg')")
	classifyCmd.Flags().StringSlice("exclude", nil, "glob patterns to skip")
	classifyCmd.Flags().StringP("format", "f", "text", "output format (text, json, csv)")
	classifyCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	classifyCmd.Flags().BoolP("quiet", "q", false, "suppress progress output")
	classifyCmd.Flags().Bool("stats", true, "print processing statistics")
}
