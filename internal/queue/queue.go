// Package queue drives the photo classification pipeline: hashing, cache
// lookup, local OCR enrichment, paced batch submission to the remote
// classifier, and incremental result delivery.
package queue

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/sync/errgroup"

	"github.com/viafoto/viafoto/internal/cache"
	"github.com/viafoto/viafoto/internal/classify"
	"github.com/viafoto/viafoto/internal/hashing"
	"github.com/viafoto/viafoto/internal/ocr"
)

// Defaults balance per-request overhead against timeout risk on the
// gateway side.
const (
	DefaultBatchSize     = 5
	DefaultPacingDelay   = 3 * time.Second
	DefaultEnrichWorkers = 3
)

// ErrAlreadyRunning is returned when Run is called while another run is in
// flight on the same orchestrator.
var ErrAlreadyRunning = errors.New("a classification run is already active")

// ErrAborted is returned when a run was cancelled. Results produced before
// the abort are final and returned alongside it.
var ErrAborted = errors.New("classification run aborted")

// State names for stats reporting.
const (
	StateIdle        = "idle"
	StateHashing     = "hashing"
	StateCacheLookup = "cache_lookup"
	StateBatching    = "batching"
	StateSubmitting  = "submitting"
	StateDelaying    = "delaying"
	StateRetrying    = "retrying"
	StateCompleted   = "completed"
	StateAborted     = "aborted"
)

// Classifier is the remote classification boundary consumed by the queue.
type Classifier interface {
	ClassifyBatch(ctx context.Context, images []classify.BatchImage, reqCtx classify.RequestContext) (*classify.BatchResponse, error)
}

// Config tunes one orchestrator.
type Config struct {
	BatchSize     int
	PacingDelay   time.Duration
	EnrichWorkers int
	LocalOCR      bool

	// FallbackDelayFactor scales the pacing delay for the degraded
	// per-item path after a batch-level failure. Tunable; 2 by default.
	FallbackDelayFactor int

	Retry   classify.RetryConfig
	Context classify.RequestContext
}

// DefaultConfig returns orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:           DefaultBatchSize,
		PacingDelay:         DefaultPacingDelay,
		EnrichWorkers:       DefaultEnrichWorkers,
		LocalOCR:            true,
		FallbackDelayFactor: 2,
		Retry:               classify.DefaultRetryConfig(),
	}
}

// Hooks deliver incremental and final results to the presentation layer.
// OnBatchDone receives only the finished batch's results, in submission
// order, so consumers append rather than replace.
type Hooks struct {
	OnBatchDone func(results []classify.Result)
	OnDone      func(results []classify.Result)
	Progress    ProgressCallback
}

// Orchestrator owns one classification pipeline. Only one run may be
// active per instance; a second Run is rejected, not queued.
type Orchestrator struct {
	cfg       Config
	store     cache.Store
	client    Classifier
	extractor *ocr.Extractor
	logger    *slog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	cancel  context.CancelFunc
	stats   Stats
}

// New creates an orchestrator. extractor may be nil; local OCR then simply
// never enriches.
func New(store cache.Store, client Classifier, extractor *ocr.Extractor, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.EnrichWorkers <= 0 {
		cfg.EnrichWorkers = DefaultEnrichWorkers
	}
	if cfg.FallbackDelayFactor <= 0 {
		cfg.FallbackDelayFactor = 2
	}
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		client:    client,
		extractor: extractor,
		logger:    logger,
		stats:     Stats{State: StateIdle},
	}
}

// Stats returns a snapshot of the current run.
func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.stats
	s.Queued = s.Total - s.Processed
	return s
}

// Abort cancels the active run. Work already completed is kept; the run
// stops submitting new batches at the next loop boundary.
func (o *Orchestrator) Abort() {
	o.mu.RLock()
	cancel := o.cancel
	o.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Running reports whether a run is in flight.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// Run processes photos end to end and returns the cumulative result list.
// Every photo yields exactly one result unless the run is aborted, in
// which case the partial list is returned together with ErrAborted.
func (o *Orchestrator) Run(ctx context.Context, photos []Photo, hooks Hooks) ([]classify.Result, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancel = cancel
	o.stats = Stats{
		Total:     len(photos),
		Active:    true,
		State:     StateHashing,
		StartedAt: time.Now(),
	}
	o.mu.Unlock()

	progress := hooks.Progress
	if progress == nil {
		progress = NoOpProgress{}
	}
	progress.OnStart(len(photos))

	results, err := o.run(ctx, photos, hooks, progress)

	finalState := StateCompleted
	if err != nil {
		finalState = StateAborted
	}
	o.mu.Lock()
	o.cancel = nil
	o.stats.Active = false
	o.stats.State = finalState
	o.stats.CurrentFile = ""
	o.mu.Unlock()

	if hooks.OnDone != nil {
		hooks.OnDone(results)
	}
	progress.OnComplete()

	return results, err
}

func (o *Orchestrator) run(ctx context.Context, photos []Photo, hooks Hooks, progress ProgressCallback) ([]classify.Result, error) {
	// Hash phase. Output order stays stable regardless of how hashing is
	// scheduled.
	hashes := make([]string, len(photos))
	for i, p := range photos {
		if ctx.Err() != nil {
			return nil, ErrAborted
		}
		o.setCurrentFile(p.Filename)
		hashes[i] = hashing.Sum(p.Data)
	}

	// Cache split. Hits are emitted immediately as a completed batch, before
	// any network activity, so duplicate uploads get instant feedback.
	o.setState(StateCacheLookup)
	var (
		cumulative []classify.Result
		cachedOut  []classify.Result
		toProcess  []Photo
		missHashes []string
	)
	for i, p := range photos {
		if ctx.Err() != nil {
			return cumulative, ErrAborted
		}
		hit, err := o.store.Get(ctx, hashes[i])
		if err != nil {
			o.logger.Warn("cache lookup failed, treating as miss", "file", p.Filename, "error", err)
		}
		if hit != nil {
			cachedOut = append(cachedOut, hit.Rebind(p.Filename))
			continue
		}
		toProcess = append(toProcess, p)
		missHashes = append(missHashes, hashes[i])
	}

	if len(cachedOut) > 0 {
		cumulative = append(cumulative, cachedOut...)
		o.advanceProcessed(len(cachedOut), progress)
		if hooks.OnBatchDone != nil {
			hooks.OnBatchDone(cachedOut)
		}
	}

	if len(toProcess) == 0 {
		return cumulative, nil
	}

	// Enrichment: eager payload encoding plus optional local OCR, with a
	// small bounded fan-out. All enrichment finishes before submission.
	o.setState(StateBatching)
	items, err := o.enrich(ctx, toProcess, missHashes)
	if err != nil {
		return cumulative, ErrAborted
	}

	batches := Assemble(items, o.cfg.BatchSize)
	o.mu.Lock()
	o.stats.TotalBatches = len(batches)
	o.mu.Unlock()

	return o.submitBatches(ctx, batches, cumulative, hooks, progress)
}

// enrich builds submission items. OCR failures are non-fatal; the item
// simply carries no OCR fields.
func (o *Orchestrator) enrich(ctx context.Context, photos []Photo, hashes []string) ([]Item, error) {
	items := make([]Item, len(photos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.EnrichWorkers)
	for i := range photos {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			item := NewItem(photos[i], hashes[i])
			if o.cfg.LocalOCR && o.extractor != nil {
				if img, _, err := image.Decode(bytes.NewReader(photos[i].Data)); err == nil {
					item.OCR = o.extractor.Extract(gctx, img)
				}
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// submitBatches runs the serialized batch loop: submit, merge, pace. No
// parallel submission; the gateway rate limiter is a shared resource and
// pacing is the point.
func (o *Orchestrator) submitBatches(ctx context.Context, batches [][]Item, cumulative []classify.Result, hooks Hooks, progress ProgressCallback) ([]classify.Result, error) {
	creditStop := false

	for bi, batch := range batches {
		if ctx.Err() != nil {
			return cumulative, ErrAborted
		}
		if creditStop {
			skipped := o.skipBatch(batch)
			cumulative = append(cumulative, skipped...)
			o.advanceProcessed(len(skipped), progress)
			if hooks.OnBatchDone != nil {
				hooks.OnBatchDone(skipped)
			}
			continue
		}

		o.setBatch(bi + 1)
		o.setState(StateSubmitting)
		o.setCurrentFile(batch[0].Filename)

		var resp *classify.BatchResponse
		err := classify.Retry(ctx, o.cfg.Retry, func(ctx context.Context) error {
			var cerr error
			resp, cerr = o.client.ClassifyBatch(ctx, batchImages(batch), o.cfg.Context)
			return cerr
		})

		var batchOut []classify.Result
		switch {
		case err == nil:
			batchOut = o.mergeBatch(ctx, batch, resp, progress, o.processedCount())

		case classify.IsCreditExhausted(err):
			// Hard stop: every photo not yet submitted is skipped so no
			// further metered calls happen, but earlier results are kept.
			o.logger.Warn("credit exhaustion signalled, skipping remaining photos",
				"batch", bi+1, "total_batches", len(batches))
			creditStop = true
			batchOut = o.skipBatch(batch)

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return cumulative, ErrAborted

		default:
			// Degraded path: one photo at a time so a single bad item does
			// not sacrifice its batch-mates.
			o.logger.Warn("batch submission failed, retrying items individually",
				"batch", bi+1, "error", err)
			o.setState(StateRetrying)
			var aborted bool
			batchOut, creditStop, aborted = o.submitItemsIndividually(ctx, batch, progress)
			if aborted {
				cumulative = append(cumulative, batchOut...)
				return cumulative, ErrAborted
			}
		}

		cumulative = append(cumulative, batchOut...)
		o.advanceProcessed(len(batchOut), progress)
		if hooks.OnBatchDone != nil {
			hooks.OnBatchDone(batchOut)
		}

		if bi < len(batches)-1 && !creditStop {
			o.setState(StateDelaying)
			if !sleepCtx(ctx, o.cfg.PacingDelay) {
				return cumulative, ErrAborted
			}
		}
	}

	return cumulative, nil
}

// mergeBatch orders a batch response by submission order, caches the
// successes and converts per-item errors into error records. base is the
// run-global index of the batch's first item, used for progress reporting.
func (o *Orchestrator) mergeBatch(ctx context.Context, batch []Item, resp *classify.BatchResponse, progress ProgressCallback, base int) []classify.Result {
	byHash := make(map[string]classify.Result, len(resp.Results))
	for _, r := range resp.Results {
		byHash[r.Hash] = r
	}
	errByHash := make(map[string]string, len(resp.Errors))
	for _, ie := range resp.Errors {
		errByHash[ie.Hash] = ie.Message
	}

	out := make([]classify.Result, 0, len(batch))
	for i, item := range batch {
		if r, ok := byHash[item.Hash]; ok {
			if r.Cacheable() {
				if err := o.store.Put(ctx, item.Hash, r); err != nil {
					o.logger.Warn("cache write failed", "file", item.Filename, "error", err)
				}
			}
			// Byte-identical photos share a hash, so the response record may
			// carry a duplicate's filename. Each item keeps its own.
			out = append(out, r.Rebind(item.Filename))
			continue
		}

		msg, ok := errByHash[item.Hash]
		if !ok {
			msg = "resposta sem resultado para a foto"
		}
		progress.OnError(base+i, errors.New(msg))
		out = append(out, classify.ErrorResult(item.Filename, item.Hash, msg))
	}
	return out
}

// submitItemsIndividually is the fallback after a batch-level failure. The
// inter-item delay is the pacing delay scaled by FallbackDelayFactor.
func (o *Orchestrator) submitItemsIndividually(ctx context.Context, batch []Item, progress ProgressCallback) (out []classify.Result, creditStop, aborted bool) {
	delay := o.cfg.PacingDelay * time.Duration(o.cfg.FallbackDelayFactor)
	base := o.processedCount()

	for i, item := range batch {
		if ctx.Err() != nil {
			return out, creditStop, true
		}
		if creditStop {
			out = append(out, classify.SkippedResult(item.Filename, item.Hash, classify.SkipReasonCreditLimit))
			continue
		}

		o.setCurrentFile(item.Filename)
		var resp *classify.BatchResponse
		err := classify.Retry(ctx, o.cfg.Retry, func(ctx context.Context) error {
			var cerr error
			resp, cerr = o.client.ClassifyBatch(ctx, batchImages(batch[i:i+1]), o.cfg.Context)
			return cerr
		})

		switch {
		case err == nil:
			out = append(out, o.mergeBatch(ctx, batch[i:i+1], resp, progress, base+i)...)
		case classify.IsCreditExhausted(err):
			creditStop = true
			out = append(out, classify.SkippedResult(item.Filename, item.Hash, classify.SkipReasonCreditLimit))
			continue
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return out, creditStop, true
		default:
			progress.OnError(base+i, err)
			out = append(out, classify.ErrorResult(item.Filename, item.Hash, err.Error()))
		}

		if i < len(batch)-1 {
			if !sleepCtx(ctx, delay) {
				return out, creditStop, true
			}
		}
	}
	return out, creditStop, false
}

func (o *Orchestrator) skipBatch(batch []Item) []classify.Result {
	out := make([]classify.Result, 0, len(batch))
	for _, item := range batch {
		out = append(out, classify.SkippedResult(item.Filename, item.Hash, classify.SkipReasonCreditLimit))
	}
	return out
}

func (o *Orchestrator) setState(state string) {
	o.mu.Lock()
	o.stats.State = state
	o.mu.Unlock()
}

func (o *Orchestrator) setBatch(n int) {
	o.mu.Lock()
	o.stats.CurrentBatch = n
	o.mu.Unlock()
}

func (o *Orchestrator) setCurrentFile(name string) {
	o.mu.Lock()
	o.stats.CurrentFile = name
	o.mu.Unlock()
}

// processedCount is the run-global index of the next photo to finish.
func (o *Orchestrator) processedCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stats.Processed
}

func (o *Orchestrator) advanceProcessed(n int, progress ProgressCallback) {
	o.mu.Lock()
	o.stats.Processed += n
	current, total := o.stats.Processed, o.stats.Total
	o.mu.Unlock()
	progress.OnProgress(current, total)
}

// sleepCtx sleeps for d unless the context is cancelled first. Returns
// false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
