package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/viafoto/viafoto/internal/ocr"
)

// placeholderConfidence is assigned when the remote service returns content
// that cannot be parsed; the photo still gets a usable (low-trust) record.
const placeholderConfidence = 0.3

// Config holds settings for the remote classification client.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// DefaultConfig returns client defaults.
func DefaultConfig() Config {
	return Config{
		Model:   "vision-default",
		Timeout: 120 * time.Second,
	}
}

// Client talks to the AI classification gateway.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a classification client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// BatchImage is one photo in a classification request.
type BatchImage struct {
	Base64   string      `json:"base64"`
	Filename string      `json:"filename"`
	Hash     string      `json:"hash"`
	OCR      *ocr.Fields `json:"ocr,omitempty"`
}

// RequestContext carries contract-level hints forwarded to the gateway. The
// server side consults its knowledge base with these; the client only sees
// the final normalized fields.
type RequestContext struct {
	Contract    string   `json:"contract,omitempty"`
	KnownFronts []string `json:"known_fronts,omitempty"`
	Model       string   `json:"model,omitempty"`
}

// ItemError is a per-photo failure reported inside an otherwise successful
// batch response.
type ItemError struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
}

// BatchResponse is the normalized outcome of one batch submission.
type BatchResponse struct {
	Results []Result
	Errors  []ItemError
}

type batchRequest struct {
	Images  []BatchImage   `json:"images"`
	Context RequestContext `json:"context"`
}

// rawResult mirrors the gateway's loosely typed result payload.
type rawResult struct {
	Hash          string  `json:"hash"`
	Portico       string  `json:"portico"`
	Discipline    string  `json:"disciplina"`
	Service       string  `json:"servico"`
	Confidence    any     `json:"confianca"`
	Date          string  `json:"data"`
	TechnicalNote string  `json:"observacao"`
	Method        string  `json:"metodo"`
	Highway       string  `json:"rodovia"`
	KMStart       string  `json:"km_inicio"`
	KMEnd         string  `json:"km_fim"`
	Heading       string  `json:"sentido"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

type batchResponseBody struct {
	Results []json.RawMessage `json:"results"`
	Errors  []ItemError       `json:"errors"`
}

// ClassifyBatch submits one batch and normalizes the heterogeneous response
// into canonical results. Per-item errors are partitioned from per-item
// successes; a single failing photo never discards its batch-mates.
func (c *Client) ClassifyBatch(ctx context.Context, images []BatchImage, reqCtx RequestContext) (*BatchResponse, error) {
	if len(images) == 0 {
		return &BatchResponse{}, nil
	}
	if reqCtx.Model == "" {
		reqCtx.Model = c.cfg.Model
	}

	body, err := json.Marshal(batchRequest{Images: images, Context: reqCtx})
	if err != nil {
		return nil, fmt.Errorf("encoding batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	var decoded batchResponseBody
	if err := json.Unmarshal(payload, &decoded); err != nil {
		// Degrade instead of failing the whole batch: every photo gets a
		// low-confidence placeholder so one bad AI response never blocks it.
		c.logger.Warn("unparseable classification response, using placeholders",
			"batch_size", len(images),
			"error", &MalformedResponseError{Detail: err.Error()})
		return placeholderResponse(images), nil
	}

	return c.normalizeResponse(images, decoded), nil
}

// checkStatus translates HTTP status codes into the named error taxonomy.
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrCreditExhausted
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= http.StatusInternalServerError,
		resp.StatusCode == http.StatusRequestTimeout:
		return &TransientError{Err: fmt.Errorf("gateway returned %s", resp.Status)}
	default:
		return fmt.Errorf("gateway returned %s", resp.Status)
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// normalizeResponse matches raw results and errors back to the submitted
// photos by content hash and fills canonical records.
func (c *Client) normalizeResponse(images []BatchImage, decoded batchResponseBody) *BatchResponse {
	byHash := make(map[string]BatchImage, len(images))
	for _, img := range images {
		byHash[img.Hash] = img
	}

	out := &BatchResponse{}
	seen := make(map[string]bool, len(images))

	for _, raw := range decoded.Results {
		var rr rawResult
		if err := json.Unmarshal(raw, &rr); err != nil {
			c.logger.Warn("skipping malformed result item", "error", err)
			continue
		}
		img, ok := byHash[rr.Hash]
		if !ok {
			c.logger.Warn("result for unknown hash", "hash", rr.Hash)
			continue
		}
		seen[rr.Hash] = true
		out.Results = append(out.Results, c.normalizeResult(img, rr))
	}

	for _, ie := range decoded.Errors {
		if _, ok := byHash[ie.Hash]; !ok {
			continue
		}
		seen[ie.Hash] = true
		out.Errors = append(out.Errors, ie)
	}

	// Photos the gateway neither classified nor rejected become per-item
	// errors so the queue's one-result-per-photo invariant holds.
	for _, img := range images {
		if !seen[img.Hash] {
			out.Errors = append(out.Errors, ItemError{
				Hash:    img.Hash,
				Message: "resposta sem resultado para a foto",
			})
		}
	}

	return out
}

func (c *Client) normalizeResult(img BatchImage, rr rawResult) Result {
	method := rr.Method
	if method == "" {
		if img.OCR != nil {
			method = MethodOCRAssistedAI
		} else {
			method = MethodForcedAI
		}
	}

	r := Result{
		Filename:      img.Filename,
		Hash:          img.Hash,
		Status:        StatusSuccess,
		Portico:       SanitizeField(rr.Portico),
		Discipline:    SanitizeField(rr.Discipline),
		Service:       SanitizeField(rr.Service),
		Confidence:    coerceConfidence(rr.Confidence),
		Date:          NormalizeDate(rr.Date),
		TechnicalNote: rr.TechnicalNote,
		Method:        method,
		Highway:       SanitizeField(rr.Highway),
		KMStart:       rr.KMStart,
		KMEnd:         rr.KMEnd,
		Heading:       SanitizeField(rr.Heading),
		Latitude:      rr.Latitude,
		Longitude:     rr.Longitude,
	}
	r.DestPath = BuildDestPath(r)
	return r
}

// coerceConfidence accepts the number-or-string confidence encodings the
// gateway is known to emit.
func coerceConfidence(v any) float64 {
	switch t := v.(type) {
	case float64:
		return NormalizeConfidence(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return NormalizeConfidence(f)
		}
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return NormalizeConfidence(f)
		}
	}
	return 0
}

// placeholderResponse synthesizes low-confidence results for every photo in
// a batch whose response body could not be parsed.
func placeholderResponse(images []BatchImage) *BatchResponse {
	out := &BatchResponse{Results: make([]Result, 0, len(images))}
	for _, img := range images {
		r := Result{
			Filename:      img.Filename,
			Hash:          img.Hash,
			Status:        StatusSuccess,
			Confidence:    placeholderConfidence,
			TechnicalNote: "resposta da IA não estruturada",
			Method:        MethodForcedAI,
		}
		if img.OCR != nil {
			r.Method = MethodOCRAssistedAI
			r.Highway = SanitizeField(img.OCR.Highway)
			r.KMStart = img.OCR.KMStart
			r.KMEnd = img.OCR.KMEnd
			r.Date = NormalizeDate(img.OCR.Date)
			r.Portico = SanitizeField(img.OCR.Front)
		}
		r.DestPath = BuildDestPath(r)
		out.Results = append(out.Results, r)
	}
	return out
}
