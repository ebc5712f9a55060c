package queue

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleProgress_Output(t *testing.T) {
	var sb strings.Builder
	p := NewConsoleProgress(&sb, "fotos: ")

	p.OnStart(4)
	p.OnProgress(4, 4)
	p.OnComplete()

	out := sb.String()
	assert.Contains(t, out, "fotos: 0/4")
	assert.Contains(t, out, "4/4")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "done in")
}

func TestConsoleProgress_Error(t *testing.T) {
	var sb strings.Builder
	p := NewConsoleProgress(&sb, "")

	p.OnStart(2)
	p.OnError(1, errors.New("imagem corrompida"))

	assert.Contains(t, sb.String(), "photo 1: imagem corrompida")
}

func TestConsoleProgress_ThrottlesIntermediateUpdates(t *testing.T) {
	var sb strings.Builder
	p := NewConsoleProgress(&sb, "")

	p.OnStart(1000)
	for i := 1; i < 1000; i++ {
		p.OnProgress(i, 1000)
	}

	// Far fewer bar redraws than updates.
	assert.Less(t, strings.Count(sb.String(), "\r"), 50)
}

func TestMultiProgress_FansOut(t *testing.T) {
	var a, b int
	m := NewMultiProgress(
		&recordingProgress{
			onStart:    func(int) { a++ },
			onProgress: func(int, int) { a++ },
			onComplete: func() { a++ },
		},
		&recordingProgress{
			onStart:    func(int) { b++ },
			onProgress: func(int, int) { b++ },
			onComplete: func() { b++ },
		},
	)

	m.OnStart(5)
	m.OnProgress(1, 5)
	m.OnComplete()
	m.OnError(0, errors.New("x"))

	assert.Equal(t, 3, a)
	assert.Equal(t, 3, b)
}

func TestNoOpProgress_Implements(t *testing.T) {
	var _ ProgressCallback = NoOpProgress{}
	var _ ProgressCallback = (*ConsoleProgress)(nil)
	var _ ProgressCallback = (*LogProgress)(nil)
	var _ ProgressCallback = (*MultiProgress)(nil)
}
