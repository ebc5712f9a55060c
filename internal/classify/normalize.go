package classify

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// NormalizeConfidence coerces a remote confidence value into [0,1]. Values
// above 1 are treated as percentages before clamping, so 95 becomes 0.95
// and 150 clamps to 1.0. Negative values clamp to 0.
func NormalizeConfidence(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	dateSlashRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dateISORe   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	// Portuguese long form, e.g. "24 de nov. de 2025" or "3 de março de 2025".
	dateLongRe = regexp.MustCompile(`^(\d{1,2})\s+de\s+([\p{L}.]+)\s+de\s+(\d{4})$`)
)

var ptMonths = map[string]int{
	"jan": 1, "janeiro": 1,
	"fev": 2, "fevereiro": 2,
	"mar": 3, "marco": 3, "março": 3,
	"abr": 4, "abril": 4,
	"mai": 5, "maio": 5,
	"jun": 6, "junho": 6,
	"jul": 7, "julho": 7,
	"ago": 8, "agosto": 8,
	"set": 9, "setembro": 9,
	"out": 10, "outubro": 10,
	"nov": 11, "novembro": 11,
	"dez": 12, "dezembro": 12,
}

// NormalizeDate reparses a date from the formats the remote service is
// known to emit (DD/MM/YYYY, YYYY-MM-DD, and Portuguese long form) into a
// canonical DD/MM/YYYY string. Unparseable input returns "".
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if m := dateSlashRe.FindStringSubmatch(s); m != nil {
		return formatDate(m[1], m[2], m[3])
	}
	if m := dateISORe.FindStringSubmatch(s); m != nil {
		return formatDate(m[3], m[2], m[1])
	}
	if m := dateLongRe.FindStringSubmatch(s); m != nil {
		month := strings.ToLower(strings.Trim(m[2], "."))
		num, ok := ptMonths[month]
		if !ok {
			return ""
		}
		return formatDate(m[1], fmt.Sprintf("%02d", num), m[3])
	}
	return ""
}

// formatDate validates day/month/year strings against the calendar and
// renders DD/MM/YYYY.
func formatDate(day, month, year string) string {
	parsed, err := time.Parse("2/1/2006", fmt.Sprintf("%s/%s/%s",
		strings.TrimLeft(day, "0"), strings.TrimLeft(month, "0"), year))
	if err != nil {
		return ""
	}
	return parsed.Format("02/01/2006")
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	unsafePathRe = regexp.MustCompile(`[^A-ZÀ-Ü0-9_+.-]`)
)

// SanitizeField normalizes a free-text remote field for path safety:
// upper-cased, whitespace collapsed to underscores, and characters outside
// the safe set removed.
func SanitizeField(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = whitespaceRe.ReplaceAllString(s, "_")
	return unsafePathRe.ReplaceAllString(s, "")
}
