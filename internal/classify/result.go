// Package classify defines the canonical classification record and the
// client for the remote AI classification endpoint.
package classify

import "strings"

// StatusSuccess marks a fully classified photo. Error and skip statuses
// carry a reason after the prefix, e.g. "Erro: timeout".
const (
	StatusSuccess       = "Sucesso"
	StatusErrorPrefix   = "Erro: "
	StatusSkippedPrefix = "Ignorado: "

	// SkipReasonCreditLimit is used for every photo left unsubmitted after
	// the provider signals credit exhaustion.
	SkipReasonCreditLimit = "limite de créditos"
)

// Classification method provenance tags.
const (
	MethodHeuristic     = "heuristica"
	MethodOCRAssistedAI = "ocr_ia"
	MethodForcedAI      = "ia_forcada"
	MethodKnowledgeBase = "base_conhecimento"
)

// Result is the canonical per-photo classification record. It is created
// by the remote client or synthesized locally (cache hit, error, skip) and
// never field-patched afterwards; edits replace the record wholesale.
type Result struct {
	Filename string `json:"filename"`
	Hash     string `json:"hash"`
	Status   string `json:"status"`

	// Classification outputs.
	Portico       string  `json:"portico,omitempty"`
	Discipline    string  `json:"discipline,omitempty"`
	Service       string  `json:"service,omitempty"`
	Confidence    float64 `json:"confidence"`
	Date          string  `json:"date,omitempty"`
	TechnicalNote string  `json:"technical_note,omitempty"`
	Method        string  `json:"method,omitempty"`

	// Location.
	Highway   string  `json:"highway,omitempty"`
	KMStart   string  `json:"km_start,omitempty"`
	KMEnd     string  `json:"km_end,omitempty"`
	Heading   string  `json:"heading,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`

	// Destination path for the organized archive.
	DestPath string `json:"dest_path,omitempty"`
}

// ErrorResult builds an error record for a single photo.
func ErrorResult(filename, hash, reason string) Result {
	return Result{
		Filename: filename,
		Hash:     hash,
		Status:   StatusErrorPrefix + reason,
	}
}

// SkippedResult builds a skipped record for a single photo.
func SkippedResult(filename, hash, reason string) Result {
	return Result{
		Filename: filename,
		Hash:     hash,
		Status:   StatusSkippedPrefix + reason,
	}
}

// IsSuccess reports whether r represents a completed classification.
func (r Result) IsSuccess() bool { return r.Status == StatusSuccess }

// IsError reports whether r represents a per-photo failure.
func (r Result) IsError() bool { return strings.HasPrefix(r.Status, StatusErrorPrefix) }

// IsSkipped reports whether r was skipped without being classified.
func (r Result) IsSkipped() bool { return strings.HasPrefix(r.Status, StatusSkippedPrefix) }

// Cacheable reports whether r may be written to the result cache. Errors
// and skips are never cached so failed photos are retried on the next run.
func (r Result) Cacheable() bool { return r.IsSuccess() }

// Rebind returns a copy of r bound to a different filename. Used when a
// cache hit from a previous upload is reused for a renamed duplicate.
func (r Result) Rebind(filename string) Result {
	c := r
	c.Filename = filename
	return c
}
