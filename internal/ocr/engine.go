// Package ocr runs local text recognition on site photos and extracts
// structured fields (highway, km markers, dates, service front) from the
// recognized text. Local OCR is an optimization that reduces remote AI
// cost; every caller must handle its absence.
package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

// Engine recognizes text in an image. Confidence is normalized to [0,1].
// Implementations must be safe for concurrent use; the queue calls
// Recognize from several enrichment workers at once.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (text string, confidence float64, err error)
}

// minRecognizeWidth is the width below which photos are upscaled before
// recognition; board text in thumbnails is unreadable for tesseract.
const minRecognizeWidth = 1000

// TesseractConfig holds settings for the exec-based tesseract engine.
type TesseractConfig struct {
	Binary    string
	Languages string
	PSM       string
}

// DefaultTesseractConfig returns defaults tuned for Brazilian site boards.
func DefaultTesseractConfig() TesseractConfig {
	return TesseractConfig{
		Binary:    "tesseract",
		Languages: "por+eng",
		PSM:       "6",
	}
}

// TesseractEngine shells out to the tesseract binary. Worker state is the
// temp directory, reused across calls and torn down by Close.
type TesseractEngine struct {
	cfg     TesseractConfig
	tmpDir  string
	logger  *slog.Logger
	counter atomic.Int64
}

// NewTesseractEngine creates an engine and verifies the binary is reachable.
func NewTesseractEngine(cfg TesseractConfig, logger *slog.Logger) (*TesseractEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultTesseractConfig().Binary
	}
	if cfg.Languages == "" {
		cfg.Languages = DefaultTesseractConfig().Languages
	}
	if cfg.PSM == "" {
		cfg.PSM = DefaultTesseractConfig().PSM
	}

	if _, err := exec.LookPath(cfg.Binary); err != nil {
		return nil, fmt.Errorf("tesseract binary not found: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "viafoto-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("creating ocr temp dir: %w", err)
	}

	return &TesseractEngine{cfg: cfg, tmpDir: tmpDir, logger: logger}, nil
}

// Recognize pre-processes the photo (grayscale, upscale small images),
// writes it to a temp file and runs tesseract in TSV mode so word-level
// confidences are available.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, float64, error) {
	prepared := imaging.Grayscale(img)
	if prepared.Bounds().Dx() < minRecognizeWidth {
		prepared = imaging.Resize(prepared, minRecognizeWidth, 0, imaging.Lanczos)
	}

	path := filepath.Join(e.tmpDir, fmt.Sprintf("frame-%d.png", e.counter.Add(1)))
	if err := imaging.Save(prepared, path); err != nil {
		return "", 0, fmt.Errorf("writing ocr input: %w", err)
	}
	defer func() { _ = os.Remove(path) }()

	cmd := exec.CommandContext(ctx, e.cfg.Binary, path, "stdout",
		"-l", e.cfg.Languages,
		"--psm", e.cfg.PSM,
		"--oem", "3",
		"-c", "preserve_interword_spaces=1",
		"tsv",
	)
	output, err := cmd.Output()
	if ctx.Err() != nil {
		return "", 0, ctx.Err()
	}
	if err != nil {
		return "", 0, fmt.Errorf("tesseract: %w", err)
	}

	text, confidence := parseTSV(string(output))
	return text, confidence, nil
}

// Close removes the engine's temp directory.
func (e *TesseractEngine) Close() error {
	return os.RemoveAll(e.tmpDir)
}

// parseTSV extracts recognized words and the mean word confidence from
// tesseract TSV output, normalized to [0,1].
func parseTSV(tsv string) (string, float64) {
	var (
		words []string
		sum   float64
		n     int
	)

	for _, line := range strings.Split(tsv, "\n") {
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		words = append(words, word)
		sum += conf
		n++
	}

	if n == 0 {
		return "", 0
	}
	return strings.Join(words, " "), sum / float64(n) / 100
}
