package ocr

import (
	"regexp"
	"sort"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FrontEntry is one known service front in the catalog. Entries with a
// subcategory are more specific than generic ones and must match first.
type FrontEntry struct {
	Name        string
	Category    string
	Subcategory string
	Patterns    []string

	compiled []*regexp.Regexp
}

// Specificity returns a sortable priority for catalog ordering: entries
// with a subcategory rank above generic ones, longer names win ties. The
// ordering rule is explicit so it can be tested, instead of depending on
// registration order.
func (e FrontEntry) Specificity() int {
	s := len(e.Name)
	if e.Subcategory != "" {
		s += 1000
	}
	return s
}

// FrontCatalog matches recognized text against known service fronts.
type FrontCatalog struct {
	entries []FrontEntry
}

// NewFrontCatalog compiles the entries and orders them by specificity.
func NewFrontCatalog(entries []FrontEntry) *FrontCatalog {
	compiled := make([]FrontEntry, 0, len(entries))
	for _, e := range entries {
		e.compiled = make([]*regexp.Regexp, 0, len(e.Patterns))
		for _, p := range e.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				continue
			}
			e.compiled = append(e.compiled, re)
		}
		if len(e.compiled) > 0 {
			compiled = append(compiled, e)
		}
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		si, sj := compiled[i].Specificity(), compiled[j].Specificity()
		if si != sj {
			return si > sj
		}
		return compiled[i].Name < compiled[j].Name
	})

	return &FrontCatalog{entries: compiled}
}

// Match returns the most specific entry whose pattern appears in text.
// Matching is diacritic-insensitive: "pórtico" and "portico" are the same.
func (c *FrontCatalog) Match(text string) (FrontEntry, bool) {
	folded := FoldDiacritics(text)
	for _, e := range c.entries {
		for _, re := range e.compiled {
			if re.MatchString(folded) {
				return e, true
			}
		}
	}
	return FrontEntry{}, false
}

// Entries returns the catalog entries in matching order.
func (c *FrontCatalog) Entries() []FrontEntry { return c.entries }

// Names returns the front names in matching order, for forwarding to the
// gateway as classification hints.
func (c *FrontCatalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDiacritics strips combining marks so pattern matching survives the
// accent soup tesseract produces on painted boards.
func FoldDiacritics(s string) string {
	out, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		return s
	}
	return out
}

// DefaultFrontCatalog returns the built-in catalog of front-name patterns
// for highway construction sites.
func DefaultFrontCatalog() *FrontCatalog {
	return NewFrontCatalog([]FrontEntry{
		{
			Name:     "PORTICO",
			Category: "ESTRUTURAS",
			Patterns: []string{`\bportico\b`},
		},
		{
			Name:        "PORTICO METALICO",
			Category:    "ESTRUTURAS",
			Subcategory: "METALICO",
			Patterns:    []string{`\bportico\s+metalico\b`},
		},
		{
			Name:     "OAE",
			Category: "ESTRUTURAS",
			Patterns: []string{`\boae\b`, `\bobra\s+de\s+arte\s+especial\b`},
		},
		{
			Name:        "OAE VIADUTO",
			Category:    "ESTRUTURAS",
			Subcategory: "VIADUTO",
			Patterns:    []string{`\bviaduto\b`},
		},
		{
			Name:        "OAE PONTE",
			Category:    "ESTRUTURAS",
			Subcategory: "PONTE",
			Patterns:    []string{`\bponte\b`},
		},
		{
			Name:        "OAE PASSARELA",
			Category:    "ESTRUTURAS",
			Subcategory: "PASSARELA",
			Patterns:    []string{`\bpassarela\b`},
		},
		{
			Name:     "TUNEL",
			Category: "ESTRUTURAS",
			Patterns: []string{`\btunel\b`},
		},
		{
			Name:     "TERRAPLENAGEM",
			Category: "TERRAPLENAGEM",
			Patterns: []string{`\bterraplenagem\b`, `\bcorte\s+e\s+aterro\b`},
		},
		{
			Name:     "PAVIMENTACAO",
			Category: "PAVIMENTACAO",
			Patterns: []string{`\bpavimentacao\b`, `\bcapa\s+asfaltica\b`, `\bcbuq\b`},
		},
		{
			Name:        "PAVIMENTACAO FRESAGEM",
			Category:    "PAVIMENTACAO",
			Subcategory: "FRESAGEM",
			Patterns:    []string{`\bfresagem\b`},
		},
		{
			Name:     "DRENAGEM",
			Category: "DRENAGEM",
			Patterns: []string{`\bdrenagem\b`, `\bbueiro\b`, `\bsarjeta\b`},
		},
		{
			Name:     "SINALIZACAO",
			Category: "SINALIZACAO",
			Patterns: []string{`\bsinalizacao\b`, `\bdefensa\s+metalica\b`},
		},
		{
			Name:     "CANTEIRO DE OBRAS",
			Category: "APOIO",
			Patterns: []string{`\bcanteiro\s+de\s+obras?\b`},
		},
		{
			Name:     "CONTENCAO",
			Category: "ESTRUTURAS",
			Patterns: []string{`\bcontencao\b`, `\bmuro\s+de\s+arrimo\b`, `\bsolo\s+grampeado\b`},
		},
	})
}
