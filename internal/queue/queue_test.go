package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viafoto/viafoto/internal/cache"
	"github.com/viafoto/viafoto/internal/classify"
	"github.com/viafoto/viafoto/internal/hashing"
)

// fakeClassifier scripts per-call behavior and records submissions.
type fakeClassifier struct {
	mu    sync.Mutex
	calls [][]classify.BatchImage
	fn    func(call int, images []classify.BatchImage) (*classify.BatchResponse, error)
}

func (f *fakeClassifier) ClassifyBatch(ctx context.Context, images []classify.BatchImage, _ classify.RequestContext) (*classify.BatchResponse, error) {
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, images)
	f.mu.Unlock()

	if f.fn == nil {
		return successResponse(images), nil
	}
	return f.fn(call, images)
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func successResponse(images []classify.BatchImage) *classify.BatchResponse {
	resp := &classify.BatchResponse{}
	for _, img := range images {
		resp.Results = append(resp.Results, classify.Result{
			Filename:   img.Filename,
			Hash:       img.Hash,
			Status:     classify.StatusSuccess,
			Discipline: "PAVIMENTACAO",
			Confidence: 0.9,
		})
	}
	return resp
}

func makePhotos(n int) []Photo {
	photos := make([]Photo, n)
	for i := range photos {
		photos[i] = Photo{
			Filename: fmt.Sprintf("foto-%03d.jpg", i),
			Data:     []byte(fmt.Sprintf("conteudo da foto %03d", i)),
		}
	}
	return photos
}

func testConfig() Config {
	return Config{
		BatchSize:           3,
		PacingDelay:         0,
		EnrichWorkers:       2,
		LocalOCR:            false,
		FallbackDelayFactor: 1,
		Retry:               classify.RetryConfig{MaxAttempts: 1},
	}
}

func newTestOrchestrator(client Classifier) (*Orchestrator, *cache.Memory) {
	store := cache.NewMemory()
	return New(store, client, nil, testConfig(), nil), store
}

func TestRun_HappyPath(t *testing.T) {
	client := &fakeClassifier{}
	orch, store := newTestOrchestrator(client)

	photos := makePhotos(7)
	var batchCalls int
	results, err := orch.Run(context.Background(), photos, Hooks{
		OnBatchDone: func([]classify.Result) { batchCalls++ },
	})
	require.NoError(t, err)

	// 7 photos, batch size 3: three submissions, one result per photo in
	// input order.
	require.Len(t, results, 7)
	assert.Equal(t, 3, client.callCount())
	assert.Equal(t, 3, batchCalls)
	for i, r := range results {
		assert.Equal(t, photos[i].Filename, r.Filename)
		assert.True(t, r.IsSuccess())
	}

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Count)

	assert.False(t, orch.Running())
	assert.Equal(t, StateCompleted, orch.Stats().State)
}

func TestRun_AllCacheHits(t *testing.T) {
	client := &fakeClassifier{}
	orch, store := newTestOrchestrator(client)

	photos := makePhotos(10)
	ctx := context.Background()
	for _, p := range photos {
		require.NoError(t, store.Put(ctx, hashing.Sum(p.Data), classify.Result{
			Filename:   "upload-antigo.jpg",
			Hash:       hashing.Sum(p.Data),
			Status:     classify.StatusSuccess,
			Discipline: "DRENAGEM",
		}))
	}

	var batches [][]classify.Result
	results, err := orch.Run(ctx, photos, Hooks{
		OnBatchDone: func(b []classify.Result) { batches = append(batches, b) },
	})
	require.NoError(t, err)

	// One instant batch with every photo, no remote calls at all.
	require.Len(t, results, 10)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 10)
	assert.Zero(t, client.callCount())

	// Hits are rebound to the current filename.
	for i, r := range results {
		assert.Equal(t, photos[i].Filename, r.Filename)
		assert.Equal(t, "DRENAGEM", r.Discipline)
	}
}

func TestRun_SecondRunUsesCache(t *testing.T) {
	client := &fakeClassifier{}
	orch, _ := newTestOrchestrator(client)

	photos := makePhotos(4)
	_, err := orch.Run(context.Background(), photos, Hooks{})
	require.NoError(t, err)
	firstCalls := client.callCount()

	results, err := orch.Run(context.Background(), photos, Hooks{})
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.Equal(t, firstCalls, client.callCount(), "second run must be served from cache")
}

func TestRun_PartialBatchFailure(t *testing.T) {
	client := &fakeClassifier{
		fn: func(_ int, images []classify.BatchImage) (*classify.BatchResponse, error) {
			resp := successResponse(images[:len(images)-1])
			resp.Errors = append(resp.Errors, classify.ItemError{
				Hash:    images[len(images)-1].Hash,
				Message: "imagem corrompida",
			})
			return resp, nil
		},
	}
	orch, store := newTestOrchestrator(client)

	photos := makePhotos(3)
	results, err := orch.Run(context.Background(), photos, Hooks{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].IsSuccess())
	assert.True(t, results[1].IsSuccess())
	assert.Equal(t, "Erro: imagem corrompida", results[2].Status)

	// Errors are never cached so the photo is retried next run.
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
}

func TestRun_CreditExhaustionSkipsRemaining(t *testing.T) {
	client := &fakeClassifier{
		fn: func(call int, images []classify.BatchImage) (*classify.BatchResponse, error) {
			if call == 0 {
				return successResponse(images), nil
			}
			return nil, classify.ErrCreditExhausted
		},
	}
	orch, _ := newTestOrchestrator(client)

	photos := makePhotos(9) // 3 batches
	results, err := orch.Run(context.Background(), photos, Hooks{})
	require.NoError(t, err)
	require.Len(t, results, 9)

	for i := 0; i < 3; i++ {
		assert.True(t, results[i].IsSuccess(), "batch 1 stays classified")
	}
	for i := 3; i < 9; i++ {
		assert.Equal(t, "Ignorado: limite de créditos", results[i].Status)
	}

	// Batch 3 was never submitted: the stop cascades without network calls.
	assert.Equal(t, 2, client.callCount())
}

func TestRun_BatchFailureFallsBackToIndividual(t *testing.T) {
	client := &fakeClassifier{
		fn: func(call int, images []classify.BatchImage) (*classify.BatchResponse, error) {
			if len(images) > 1 {
				return nil, errors.New("payload rejected")
			}
			if images[0].Filename == "foto-001.jpg" {
				return nil, errors.New("imagem inválida")
			}
			return successResponse(images), nil
		},
	}
	orch, _ := newTestOrchestrator(client)

	photos := makePhotos(3)
	results, err := orch.Run(context.Background(), photos, Hooks{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 1 batch call + 3 individual calls.
	assert.Equal(t, 4, client.callCount())
	assert.True(t, results[0].IsSuccess())
	assert.Equal(t, "Erro: imagem inválida", results[1].Status)
	assert.True(t, results[2].IsSuccess())
}

func TestRun_AbortMidRun(t *testing.T) {
	var orch *Orchestrator
	client := &fakeClassifier{
		fn: func(call int, images []classify.BatchImage) (*classify.BatchResponse, error) {
			if call == 0 {
				return successResponse(images), nil
			}
			orch.Abort()
			return nil, context.Canceled
		},
	}
	orch, _ = newTestOrchestrator(client)

	photos := makePhotos(9)
	results, err := orch.Run(context.Background(), photos, Hooks{})
	require.ErrorIs(t, err, ErrAborted)

	// The first batch's results survive the abort.
	assert.Len(t, results, 3)
	assert.Equal(t, StateAborted, orch.Stats().State)
	assert.False(t, orch.Running())
}

func TestRun_SecondRunRejectedWhileActive(t *testing.T) {
	block := make(chan struct{})
	client := &fakeClassifier{
		fn: func(int, []classify.BatchImage) (*classify.BatchResponse, error) {
			<-block
			return nil, context.Canceled
		},
	}
	orch, _ := newTestOrchestrator(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orch.Run(context.Background(), makePhotos(3), Hooks{})
	}()

	require.Eventually(t, orch.Running, time.Second, time.Millisecond)

	_, err := orch.Run(context.Background(), makePhotos(1), Hooks{})
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(block)
	<-done
}

func TestRun_OutOfOrderResponseReordered(t *testing.T) {
	client := &fakeClassifier{
		fn: func(_ int, images []classify.BatchImage) (*classify.BatchResponse, error) {
			resp := successResponse(images)
			for i, j := 0, len(resp.Results)-1; i < j; i, j = i+1, j-1 {
				resp.Results[i], resp.Results[j] = resp.Results[j], resp.Results[i]
			}
			return resp, nil
		},
	}
	orch, _ := newTestOrchestrator(client)

	photos := makePhotos(3)
	results, err := orch.Run(context.Background(), photos, Hooks{})
	require.NoError(t, err)
	for i, r := range results {
		assert.Equal(t, photos[i].Filename, r.Filename)
	}
}

func TestRun_DuplicatePhotosKeepOwnFilenames(t *testing.T) {
	client := &fakeClassifier{}
	orch, store := newTestOrchestrator(client)

	// Same bytes under two names: both miss the cache, share a hash, and
	// land in the same batch.
	photos := []Photo{
		{Filename: "frente-a.jpg", Data: []byte("mesma foto")},
		{Filename: "frente-b.jpg", Data: []byte("mesma foto")},
	}

	results, err := orch.Run(context.Background(), photos, Hooks{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "frente-a.jpg", results[0].Filename)
	assert.Equal(t, "frente-b.jpg", results[1].Filename)
	assert.True(t, results[0].IsSuccess())
	assert.True(t, results[1].IsSuccess())
	assert.Equal(t, results[0].Hash, results[1].Hash)

	// One hash, one cache entry.
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
}

func TestRun_ProgressErrorIndexIsGlobal(t *testing.T) {
	// 4 photos, batch size 3: the second batch's only item fails, so the
	// reported index must be the run-global 3, not the batch-local 0.
	client := &fakeClassifier{
		fn: func(call int, images []classify.BatchImage) (*classify.BatchResponse, error) {
			if call == 0 {
				return successResponse(images), nil
			}
			return &classify.BatchResponse{
				Errors: []classify.ItemError{{Hash: images[0].Hash, Message: "imagem corrompida"}},
			}, nil
		},
	}
	orch, _ := newTestOrchestrator(client)

	var mu sync.Mutex
	var errorIndexes []int
	cb := &recordingProgress{
		onError: func(i int, _ error) { mu.Lock(); errorIndexes = append(errorIndexes, i); mu.Unlock() },
	}

	results, err := orch.Run(context.Background(), makePhotos(4), Hooks{Progress: cb})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "Erro: imagem corrompida", results[3].Status)
	assert.Equal(t, []int{3}, errorIndexes)
}

func TestRun_EmptyInput(t *testing.T) {
	client := &fakeClassifier{}
	orch, _ := newTestOrchestrator(client)

	results, err := orch.Run(context.Background(), nil, Hooks{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, client.callCount())
}

func TestRun_HooksFireOnAbort(t *testing.T) {
	var orch *Orchestrator
	client := &fakeClassifier{
		fn: func(int, []classify.BatchImage) (*classify.BatchResponse, error) {
			orch.Abort()
			return nil, context.Canceled
		},
	}
	orch, _ = newTestOrchestrator(client)

	doneCalled := false
	_, err := orch.Run(context.Background(), makePhotos(2), Hooks{
		OnDone: func([]classify.Result) { doneCalled = true },
	})
	require.ErrorIs(t, err, ErrAborted)
	assert.True(t, doneCalled, "OnDone fires even for aborted runs")
}

func TestRun_ProgressReporting(t *testing.T) {
	client := &fakeClassifier{}
	orch, _ := newTestOrchestrator(client)

	var mu sync.Mutex
	var started, completed int
	var progress []int
	cb := &recordingProgress{
		onStart:    func(total int) { mu.Lock(); started = total; mu.Unlock() },
		onProgress: func(cur, _ int) { mu.Lock(); progress = append(progress, cur); mu.Unlock() },
		onComplete: func() { mu.Lock(); completed++; mu.Unlock() },
	}

	_, err := orch.Run(context.Background(), makePhotos(7), Hooks{Progress: cb})
	require.NoError(t, err)

	assert.Equal(t, 7, started)
	assert.Equal(t, 1, completed)
	require.NotEmpty(t, progress)
	assert.Equal(t, 7, progress[len(progress)-1])
}

type recordingProgress struct {
	onStart    func(int)
	onProgress func(int, int)
	onComplete func()
	onError    func(int, error)
}

func (r *recordingProgress) OnStart(total int) {
	if r.onStart != nil {
		r.onStart(total)
	}
}

func (r *recordingProgress) OnProgress(current, total int) {
	if r.onProgress != nil {
		r.onProgress(current, total)
	}
}

func (r *recordingProgress) OnComplete() {
	if r.onComplete != nil {
		r.onComplete()
	}
}

func (r *recordingProgress) OnError(current int, err error) {
	if r.onError != nil {
		r.onError(current, err)
	}
}

func TestSleepCtx(t *testing.T) {
	assert.True(t, sleepCtx(context.Background(), 0))
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, 0))
	assert.False(t, sleepCtx(ctx, time.Minute))
}
