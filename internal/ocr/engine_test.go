package ocr

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStubTesseract creates an executable that emits fixed TSV output,
// standing in for the real binary.
func writeStubTesseract(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub script needs a unix shell")
	}
	script := "#!/bin/sh\n" +
		"printf 'level\\tpage_num\\tblock_num\\tpar_num\\tline_num\\tword_num\\tleft\\ttop\\twidth\\theight\\tconf\\ttext\\n'\n" +
		"printf '5\\t1\\t1\\t1\\t1\\t1\\t0\\t0\\t10\\t10\\t91\\tBR-101\\n'\n" +
		"printf '5\\t1\\t1\\t1\\t1\\t2\\t0\\t0\\t10\\t10\\t87\\tKM\\n'\n"
	path := filepath.Join(t.TempDir(), "tesseract-stub")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700))
	return path
}

func TestNewTesseractEngine_MissingBinary(t *testing.T) {
	_, err := NewTesseractEngine(TesseractConfig{Binary: "viafoto-no-such-binary"}, nil)
	assert.ErrorContains(t, err, "tesseract binary not found")
}

func TestTesseractEngine_Recognize(t *testing.T) {
	engine, err := NewTesseractEngine(TesseractConfig{Binary: writeStubTesseract(t)}, nil)
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	text, conf, err := engine.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	assert.Equal(t, "BR-101 KM", text)
	assert.InDelta(t, 0.89, conf, 1e-9)
}

func TestTesseractEngine_RecognizeConcurrent(t *testing.T) {
	engine, err := NewTesseractEngine(TesseractConfig{Binary: writeStubTesseract(t)}, nil)
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	// The queue fans enrichment out across workers; every call must keep
	// its own temp file and come back with the full text.
	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, _, err := engine.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
			if err != nil {
				errs <- err
				return
			}
			if text != "BR-101 KM" {
				errs <- fmt.Errorf("unexpected text %q", text)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
