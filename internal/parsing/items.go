package parsing

import (
	"regexp"
	"strings"
	"unicode"
)

// itemRule pairs a name with a structural line pattern. Patterns use the
// capture groups desc, qty, price and total; missing groups leave the
// corresponding item field absent.
type itemRule struct {
	name    string
	pattern *regexp.Regexp
}

// itemRules is the ordered pattern cascade. Rules are tried top to bottom and
// the first match wins; there is no scoring across rules.
var itemRules = []itemRule{
	{
		// description, quantity, x marker, unit price, line total
		name:    "desc-qty-marker-price-total",
		pattern: regexp.MustCompile(`(?i)^(?P<desc>.+?)\s+(?P<qty>\d+[.,]?\d*)\s*[x×]\s*(?P<price>\d+[.,]\d{2})\s+(?P<total>\d+[.,]\d{2})`),
	},
	{
		// value-first variant with the description trailing
		name:    "qty-marker-price-total-desc",
		pattern: regexp.MustCompile(`(?i)^(?P<qty>\d+[.,]?\d*)\s*[x×*]\s*(?P<price>\d+[.,]\d{2})\s+(?P<total>\d+[.,]\d{2})\s+(?P<desc>.+)$`),
	},
	{
		// space-delimited quantity without an explicit marker
		name:    "desc-qty-price-total",
		pattern: regexp.MustCompile(`(?i)^(?P<desc>.+?)\s+(?P<qty>\d+[.,]?\d*)\s+(?P<price>\d+[.,]\d{2})\s+(?P<total>\d+[.,]\d{2})`),
	},
	{
		// two trailing numbers only, quantity left absent
		name:    "desc-price-total",
		pattern: regexp.MustCompile(`(?i)^(?P<desc>[\p{L}\p{N} .,'"-]{3,}?)\s+(?P<price>\d+[.,]\d{2})\s+(?P<total>\d+[.,]\d{2})$`),
	},
	{
		// degenerate: a single trailing number, only a total is recoverable
		name:    "desc-total",
		pattern: regexp.MustCompile(`(?i)^(?P<desc>.*\p{L}.*?)\s+(?P<total>\d+[.,]\d{2})$`),
	},
}

// continuationPattern matches a pure numeric run that OCR split off from its
// description on the previous line.
var continuationPattern = regexp.MustCompile(`(?i)^(?P<qty>\d+[.,]?\d*)\s*[x×]\s*(?P<price>\d+[.,]\d{2})\s+(?P<total>\d+[.,]\d{2})$`)

// descSanitizer strips everything outside letters, digits, space, '.', "'"
// and '-'.
var descSanitizer = regexp.MustCompile(`[^\p{L}\p{N}\s.'-]`)

// ExtractItems recovers line items from segmented lines. The primary pass is
// gated by classification: a line is eligible when labeled Item or when it
// carries at least one price-shaped substring. Lines matching the skip filter
// (total and noise keywords) or labeled Total are never item candidates.
// When the gated pass yields nothing, the cascade is re-run over every line
// unconditionally so total classifier failure still produces best-effort
// items.
func ExtractItems(lines []string, labels []LineClass, skip *regexp.Regexp) []ParsedItem {
	items := extractPass(lines, labels, skip, true)
	if len(items) == 0 {
		items = extractPass(lines, labels, skip, false)
	}
	return items
}

func extractPass(lines []string, labels []LineClass, skip *regexp.Regexp, gated bool) []ParsedItem {
	items := make([]ParsedItem, 0)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if labelAt(labels, i) == LineTotal || (skip != nil && skip.MatchString(line)) {
			continue
		}

		// OCR sometimes splits the description onto its own line with the
		// numeric run following on the next. Merge such pairs.
		if i+1 < len(lines) && isPureText(line) {
			if item, ok := matchContinuation(lines[i+1]); ok {
				item.Description = sanitizeDescription(line)
				if item.Description != "" {
					items = append(items, item)
					i++
					continue
				}
			}
		}

		if gated && !eligibleItemLine(line, labelAt(labels, i)) {
			continue
		}
		if item, ok := matchItemLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// eligibleItemLine reports whether a line may be tried against the cascade in
// the classification-gated pass.
func eligibleItemLine(line string, label LineClass) bool {
	if label == LineItem {
		return true
	}
	return pricePattern.MatchString(line)
}

// isPureText reports whether a line looks like a bare description: letters
// present, no price-shaped substring.
func isPureText(line string) bool {
	return !pricePattern.MatchString(line) && containsLetter(line)
}

func containsLetter(s string) bool {
	return strings.ContainsFunc(s, unicode.IsLetter)
}

// matchItemLine runs the ordered cascade against one line, falling back to
// the loose numeric-pair heuristic when no structural pattern fits.
func matchItemLine(line string) (ParsedItem, bool) {
	for _, rule := range itemRules {
		groups, ok := matchGroups(rule.pattern, line)
		if !ok {
			continue
		}
		if item, ok := buildItem(groups); ok {
			return item, true
		}
	}
	return matchNumericPair(line)
}

func matchContinuation(line string) (ParsedItem, bool) {
	groups, ok := matchGroups(continuationPattern, line)
	if !ok {
		return ParsedItem{}, false
	}
	return buildItem(groups)
}

// matchNumericPair handles lines carrying two or more price-shaped numbers
// that fit none of the structural patterns. The smaller number is read as the
// unit price, the larger as the line total, and quantity is derived as
// max(1, round(total/price, 2)).
func matchNumericPair(line string) (ParsedItem, bool) {
	numbers := pricePattern.FindAllString(line, -1)
	if len(numbers) < 2 {
		return ParsedItem{}, false
	}

	first, ok1 := NormalizeNumber(numbers[0])
	second, ok2 := NormalizeNumber(numbers[1])
	if !ok1 || !ok2 {
		return ParsedItem{}, false
	}

	description := sanitizeDescription(pricePattern.ReplaceAllString(line, ""))
	if !containsLetter(description) {
		return ParsedItem{}, false
	}

	price := minFloat(first, second)
	total := maxFloat(first, second)
	if price <= 0 || total <= 0 {
		return ParsedItem{}, false
	}
	quantity := maxFloat(1, round2(total/price))

	return ParsedItem{
		Description: description,
		Quantity:    &quantity,
		Price:       &price,
		Total:       &total,
	}, true
}

// buildItem turns matched capture groups into a ParsedItem. A matched total
// is taken literally; otherwise it is derived as round(quantity*price, 2)
// when both factors are present. Quantity is never defaulted here: absent
// stays absent.
func buildItem(groups map[string]string) (ParsedItem, bool) {
	item := ParsedItem{
		Description: sanitizeDescription(groups["desc"]),
	}
	if item.Description == "" {
		return ParsedItem{}, false
	}

	if qty, ok := NormalizeNumber(groups["qty"]); ok {
		item.Quantity = &qty
	}
	if price, ok := NormalizeNumber(groups["price"]); ok {
		item.Price = &price
	}
	if total, ok := NormalizeNumber(groups["total"]); ok {
		item.Total = &total
	}

	if item.Total == nil && item.Quantity != nil && item.Price != nil {
		derived := round2(*item.Quantity * *item.Price)
		item.Total = &derived
	}
	return item, true
}

func sanitizeDescription(text string) string {
	cleaned := descSanitizer.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(cleaned, " "))
}

// matchGroups runs a pattern and names its captures. Empty captures are
// omitted so NormalizeNumber sees absence, not an empty string.
func matchGroups(pattern *regexp.Regexp, line string) (map[string]string, bool) {
	match := pattern.FindStringSubmatch(line)
	if match == nil {
		return nil, false
	}
	groups := make(map[string]string)
	for i, name := range pattern.SubexpNames() {
		if name != "" && i < len(match) && match[i] != "" {
			groups[name] = match[i]
		}
	}
	return groups, true
}

func labelAt(labels []LineClass, i int) LineClass {
	if i < len(labels) {
		return labels[i]
	}
	return LineOther
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
