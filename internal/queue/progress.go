package queue

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives live progress while a run is active.
type ProgressCallback interface {
	// OnStart is called once with the total photo count.
	OnStart(total int)

	// OnProgress is called after each processed photo or batch.
	OnProgress(current, total int)

	// OnComplete is called when the run finishes, including aborts.
	OnComplete()

	// OnError is called for per-photo failures.
	OnError(current int, err error)
}

// NoOpProgress implements ProgressCallback and does nothing.
type NoOpProgress struct{}

func (NoOpProgress) OnStart(int)         {}
func (NoOpProgress) OnProgress(int, int) {}
func (NoOpProgress) OnComplete()         {}
func (NoOpProgress) OnError(int, error)  {}

// ConsoleProgress draws a progress bar with rate and ETA.
type ConsoleProgress struct {
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration
	lastUpdate     time.Time
	startTime      time.Time
	mutex          sync.Mutex
}

// NewConsoleProgress creates a console progress reporter.
func NewConsoleProgress(writer io.Writer, prefix string) *ConsoleProgress {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgress{
		writer:         writer,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
	}
}

func (c *ConsoleProgress) OnStart(total int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.startTime = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.writer, "%s0/%d (0.0%%)\n", c.prefix, total)
}

func (c *ConsoleProgress) OnProgress(current, total int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval && current < total {
		return
	}
	c.lastUpdate = now

	if total == 0 {
		return
	}
	percent := float64(current) / float64(total) * 100
	filled := c.width * current / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)
	status := fmt.Sprintf("\r%s[%s] %d/%d (%.1f%%)", c.prefix, bar, current, total, percent)

	if elapsed := now.Sub(c.startTime); elapsed > 0 && current > 0 && current < total {
		perItem := elapsed / time.Duration(current)
		eta := perItem * time.Duration(total-current)
		status += fmt.Sprintf(" ETA: %v", eta.Round(time.Second))
	}
	_, _ = fmt.Fprint(c.writer, status)
}

func (c *ConsoleProgress) OnComplete() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%sdone in %v\n", c.prefix, time.Since(c.startTime).Round(time.Millisecond))
}

func (c *ConsoleProgress) OnError(current int, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%sphoto %d: %v\n", c.prefix, current, err)
}

// LogProgress reports progress through slog every interval photos.
type LogProgress struct {
	logger    *slog.Logger
	interval  int
	lastLog   int
	startTime time.Time
}

// NewLogProgress creates a log-based progress reporter.
func NewLogProgress(logger *slog.Logger, interval int) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10
	}
	return &LogProgress{logger: logger, interval: interval}
}

func (l *LogProgress) OnStart(total int) {
	l.startTime = time.Now()
	l.lastLog = 0
	l.logger.Info("processing started", "total", total)
}

func (l *LogProgress) OnProgress(current, total int) {
	if current-l.lastLog < l.interval && current != total {
		return
	}
	l.lastLog = current
	l.logger.Info("processing progress",
		"current", current,
		"total", total,
		"elapsed", time.Since(l.startTime).Round(time.Millisecond),
	)
}

func (l *LogProgress) OnComplete() {
	l.logger.Info("processing finished", "elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgress) OnError(current int, err error) {
	l.logger.Error("processing error", "current", current, "error", err)
}

// MultiProgress fans progress out to several callbacks.
type MultiProgress struct {
	callbacks []ProgressCallback
}

// NewMultiProgress combines callbacks into one.
func NewMultiProgress(callbacks ...ProgressCallback) *MultiProgress {
	return &MultiProgress{callbacks: callbacks}
}

func (m *MultiProgress) OnStart(total int) {
	for _, cb := range m.callbacks {
		cb.OnStart(total)
	}
}

func (m *MultiProgress) OnProgress(current, total int) {
	for _, cb := range m.callbacks {
		cb.OnProgress(current, total)
	}
}

func (m *MultiProgress) OnComplete() {
	for _, cb := range m.callbacks {
		cb.OnComplete()
	}
}

func (m *MultiProgress) OnError(current int, err error) {
	for _, cb := range m.callbacks {
		cb.OnError(current, err)
	}
}
