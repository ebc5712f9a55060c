package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"regexp"
	"strings"
)

// Fields holds the structured data pulled from a photo's recognized text.
// Created once per photo and never mutated afterwards.
type Fields struct {
	RawText    string  `json:"raw_text,omitempty"`
	Highway    string  `json:"highway,omitempty"`
	KMStart    string  `json:"km_start,omitempty"`
	KMEnd      string  `json:"km_end,omitempty"`
	Direction  string  `json:"direction,omitempty"`
	Date       string  `json:"date,omitempty"`
	Time       string  `json:"time,omitempty"`
	Contract   string  `json:"contract,omitempty"`
	Front      string  `json:"front,omitempty"`
	HasPlate   bool    `json:"has_plate,omitempty"`
	Confidence float64 `json:"confidence"`
}

var (
	// Letter-prefixed 2-3 digit highway codes: BR-101, SP 280, MG040.
	highwayRe = regexp.MustCompile(`\b([A-Z]{2,3})[-\s]?(\d{2,3})\b`)

	// Kilometer markers, including composite notation like "km 94+050".
	kmRe = regexp.MustCompile(`(?i)\bkm\.?\s*:?\s*(\d{1,3}(?:\+\d{1,3})?)`)

	directionRe = regexp.MustCompile(`\b(NORTE|SUL|LESTE|OESTE|NORDESTE|NOROESTE|SUDESTE|SUDOESTE|CRESCENTE|DECRESCENTE)\b`)

	dateNumericRe = regexp.MustCompile(`\b(\d{1,2}[/.-]\d{1,2}[/.-]\d{4})\b`)
	dateISORe     = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	dateLongRe    = regexp.MustCompile(`(?i)\b(\d{1,2}\s+de\s+[\p{L}.]+\s+de\s+\d{4})\b`)

	timeRe = regexp.MustCompile(`\b([01]?\d|2[0-3]):[0-5]\d(?::[0-5]\d)?\b`)

	contractRe = regexp.MustCompile(`(?i)contrato\s*(?:n[ºo°.]*\s*)?([0-9][0-9./-]{2,})`)

	// Mercosur and legacy Brazilian plate formats.
	plateRe = regexp.MustCompile(`\b[A-Z]{3}[-\s]?\d[A-Z0-9]\d{2}\b`)
)

// ExtractFields runs the pattern battery over recognized text. Pure and
// deterministic; the catalog may be nil when front matching is disabled.
func ExtractFields(text string, catalog *FrontCatalog) Fields {
	f := Fields{RawText: text}
	upper := strings.ToUpper(text)

	// Kilometer markers ("KM 57") satisfy the highway shape; skip them.
	for _, m := range highwayRe.FindAllStringSubmatch(upper, -1) {
		if m[1] == "KM" {
			continue
		}
		f.Highway = fmt.Sprintf("%s-%s", m[1], m[2])
		break
	}

	if kms := kmRe.FindAllStringSubmatch(upper, -1); len(kms) > 0 {
		f.KMStart = kms[0][1]
		last := kms[len(kms)-1][1]
		if last != f.KMStart {
			f.KMEnd = last
		}
	}

	if m := directionRe.FindStringSubmatch(upper); m != nil {
		f.Direction = m[1]
	}

	f.Date = firstDate(text)

	if m := timeRe.FindString(upper); m != "" {
		f.Time = m
	}

	if m := contractRe.FindStringSubmatch(text); m != nil {
		f.Contract = strings.TrimRight(m[1], "./-")
	}

	f.HasPlate = plateRe.MatchString(upper)

	if catalog != nil {
		if entry, ok := catalog.Match(text); ok {
			f.Front = entry.Name
		}
	}

	return f
}

// firstDate returns the first date-looking token in any accepted format.
// Normalization to DD/MM/YYYY happens downstream.
func firstDate(text string) string {
	if m := dateNumericRe.FindString(text); m != "" {
		return strings.NewReplacer(".", "/", "-", "/").Replace(m)
	}
	if m := dateISORe.FindString(text); m != "" {
		return m
	}
	if m := dateLongRe.FindString(text); m != "" {
		return strings.ToLower(m)
	}
	return ""
}

// Extractor combines an OCR engine with the pattern battery.
type Extractor struct {
	engine  Engine
	catalog *FrontCatalog
	logger  *slog.Logger
}

// NewExtractor creates an extractor. The catalog may be nil.
func NewExtractor(engine Engine, catalog *FrontCatalog, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{engine: engine, catalog: catalog, logger: logger}
}

// Extract recognizes text in the photo and returns structured fields. It
// returns nil on any failure so the queue proceeds without OCR data; local
// OCR degrades gracefully by policy.
func (e *Extractor) Extract(ctx context.Context, img image.Image) *Fields {
	if e == nil || e.engine == nil {
		return nil
	}

	text, confidence, err := e.engine.Recognize(ctx, img)
	if err != nil {
		e.logger.Debug("local ocr failed, continuing without it", "error", err)
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	f := ExtractFields(text, e.catalog)
	f.Confidence = confidence
	return &f
}
