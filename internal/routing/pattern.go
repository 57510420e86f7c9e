package routing

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/scriptotek/rt-triage/internal/domain"
)

var (
	barcodeRe  = regexp.MustCompile(`\b[0-9a-zA-Z]{9}\b`)
	digitRunRe = regexp.MustCompile(`[0-9]{4}`)
	longCodeRe = regexp.MustCompile(`\bRS-47BIBSYSUBO[0-9]+\b`)
)

// MatchPatterns tests text against every pattern table entry in declared
// order and returns a suggestion for each match. No early exit: several
// patterns may fire.
func MatchPatterns(tables *Tables, text string) []domain.Suggestion {
	var out []domain.Suggestion
	for _, entry := range tables.Patterns {
		re, err := regexp.Compile(entry.Pattern)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			out = append(out, domain.Suggestion{
				Rule:    domain.RulePatternMatch,
				Queue:   entry.Queue,
				Comment: fmt.Sprintf("- Meldingen inneholder teksten \"%s\"", entry.Pattern),
			})
		}
	}
	return out
}

// ExtractBarcodes returns candidate item barcodes found in text, sorted
// and deduplicated. A 9-character alphanumeric token only counts when it
// contains a run of four consecutive digits, which filters out incidental
// short tokens. Long-form resource sharing codes are included as-is.
func ExtractBarcodes(text string) []string {
	seen := make(map[string]struct{})
	for _, candidate := range barcodeRe.FindAllString(text, -1) {
		if digitRunRe.MatchString(candidate) {
			seen[candidate] = struct{}{}
		}
	}
	for _, candidate := range longCodeRe.FindAllString(text, -1) {
		seen[candidate] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for barcode := range seen {
		out = append(out, barcode)
	}
	sort.Strings(out)
	return out
}
