package parsing

import (
	"regexp"
	"strings"
	"unicode"
)

// dateRegex matches 2- or 4-digit-year dates with ./-/ separators, year-first
// or day-first. The first match in document order wins and the raw token is
// kept verbatim.
var dateRegex = regexp.MustCompile(`(\d{4}[./-]\d{1,2}[./-]\d{1,2})|(\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`)

// inferStore searches the header region for a line matching the configured
// retail keywords, then falls back to the first capitalized proper-noun-ish
// line. Absence is acceptable.
func (p *Parser) inferStore(lines []string) string {
	header := lines
	if len(header) > p.config.HeaderLines {
		header = header[:p.config.HeaderLines]
	}

	for _, line := range header {
		if p.storeKeywords.MatchString(line) {
			return line
		}
	}
	for _, line := range header {
		if looksLikeStoreName(line) {
			return line
		}
	}
	return ""
}

// looksLikeStoreName accepts capitalized, letter-heavy header lines while
// rejecting lines dominated by digits (phone numbers, tax ids).
func looksLikeStoreName(line string) bool {
	runes := []rune(line)
	if len(runes) < 3 || !unicode.IsUpper(runes[0]) {
		return false
	}
	var letters, digits int
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return letters >= 3 && letters > digits*2
}

// inferDate returns the first raw date token found in document order.
func inferDate(lines []string) string {
	for _, line := range lines {
		if match := dateRegex.FindString(line); match != "" {
			return match
		}
	}
	return ""
}

// inferTotal resolves the grand total. Totals are printed near the end, so
// the scan runs bottom-up: first a keyword/classified-Total pass taking the
// last price-shaped number on the matching line, then the maximum
// price-shaped number among the tail lines, then the rounded sum of item
// totals.
func (p *Parser) inferTotal(lines []string, labels []LineClass, items []ParsedItem) *float64 {
	for i := len(lines) - 1; i >= 0; i-- {
		if labelAt(labels, i) != LineTotal && !p.totalKeywords.MatchString(lines[i]) {
			continue
		}
		numbers := pricePattern.FindAllString(lines[i], -1)
		for j := len(numbers) - 1; j >= 0; j-- {
			if value, ok := NormalizeNumber(numbers[j]); ok {
				return &value
			}
		}
	}

	tailStart := len(lines) - p.config.TailLines
	if tailStart < 0 {
		tailStart = 0
	}
	var best *float64
	for _, line := range lines[tailStart:] {
		for _, number := range pricePattern.FindAllString(line, -1) {
			if value, ok := NormalizeNumber(number); ok && (best == nil || value > *best) {
				v := value
				best = &v
			}
		}
	}
	if best != nil {
		return best
	}

	if len(items) > 0 {
		var sum float64
		seen := false
		for _, item := range items {
			if item.Total != nil {
				sum += *item.Total
				seen = true
			}
		}
		if seen {
			total := round2(sum)
			return &total
		}
	}
	return nil
}

// keywordPattern compiles a keyword list into one case-insensitive
// alternation. Spaces inside a keyword match any whitespace run so "za
// platiti" still hits OCR output with doubled spaces.
func keywordPattern(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return regexp.MustCompile(`$^`)
	}
	quoted := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(keyword), " ", `\s*`))
	}
	if len(quoted) == 0 {
		return regexp.MustCompile(`$^`)
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
}
