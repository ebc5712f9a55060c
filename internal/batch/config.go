package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/viafoto/viafoto/internal/classify"
)

// Config holds all configuration for a CLI classification run.
type Config struct {
	// Remote classifier settings
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration

	// Queue settings
	BatchSize           int
	PacingDelay         time.Duration
	EnrichWorkers       int
	LocalOCR            bool
	FallbackDelayFactor int

	// Local OCR settings
	TesseractPath string
	OCRLanguages  string
	OCRPSM        string

	// Contract context forwarded to the gateway
	Contract string

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format     string
	OutputFile string
	Quiet      bool
	ShowStats  bool
}

// Result holds the outcome of a CLI classification run.
type Result struct {
	Results  []classify.Result
	Duration time.Duration
	Aborted  bool
}

// FormatResults renders the run results in the requested format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatResults(r.Results, format)
}

// SaveResults writes the formatted results to a file or stdout.
func (r *Result) SaveResults(format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(os.Stdout, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(os.Stdout, output)
	}
	return nil
}

// PrintStats prints run statistics.
func (r *Result) PrintStats(quiet bool) {
	if quiet {
		return
	}

	var success, failed, skipped int
	for _, res := range r.Results {
		switch {
		case res.IsError():
			failed++
		case res.IsSkipped():
			skipped++
		default:
			success++
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(os.Stdout, "  Total photos: %d\n", len(r.Results))
	_, _ = fmt.Fprintf(os.Stdout, "  Classified: %d\n", success)
	_, _ = fmt.Fprintf(os.Stdout, "  Failed: %d\n", failed)
	_, _ = fmt.Fprintf(os.Stdout, "  Skipped: %d\n", skipped)
	_, _ = fmt.Fprintf(os.Stdout, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if success > 0 {
		_, _ = fmt.Fprintf(os.Stdout, "  Avg per photo: %v\n",
			(r.Duration / time.Duration(len(r.Results))).Round(time.Millisecond))
	}
	if r.Aborted {
		_, _ = fmt.Fprintf(os.Stdout, "  Run aborted; results above are partial.\n")
	}
}
