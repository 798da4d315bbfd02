package parsing

import (
	"regexp"
	"strings"
	"unicode"
)

// FeatureNames lists the feature vector columns in order. The layout is fixed;
// classifier models are trained against exactly these eleven dimensions.
var FeatureNames = []string{
	"length",
	"digit_count",
	"alpha_count",
	"space_count",
	"digit_ratio",
	"alpha_ratio",
	"has_x",
	"has_star",
	"has_percent",
	"has_currency",
	"price_like_count",
}

var (
	// pricePattern matches a price-shaped substring: digits, separator,
	// exactly two decimal digits.
	pricePattern    = regexp.MustCompile(`\d+[.,]\d{2}`)
	currencyCodes   = regexp.MustCompile(`(?i)\b(eur|usd|gbp|chf|hrk|rsd|bam|uah|kn|um)\b`)
	currencySymbols = "€$£¥₴₽₸₼₺₩₦₱₫₡"
)

// ExtractLineFeatures computes the fixed 11-dimensional feature vector for a
// single line. Ratios use a guarded divide: an empty line yields 0, not NaN.
func ExtractLineFeatures(line string) []float64 {
	var length, digits, alphas, spaces float64
	for _, r := range line {
		length++
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			alphas++
		case unicode.IsSpace(r):
			spaces++
		}
	}

	var digitRatio, alphaRatio float64
	if length > 0 {
		digitRatio = digits / length
		alphaRatio = alphas / length
	}

	return []float64{
		length,
		digits,
		alphas,
		spaces,
		digitRatio,
		alphaRatio,
		boolFeature(strings.ContainsAny(line, "xX×")),
		boolFeature(strings.Contains(line, "*")),
		boolFeature(strings.Contains(line, "%")),
		boolFeature(strings.ContainsAny(line, currencySymbols) || currencyCodes.MatchString(line)),
		float64(len(pricePattern.FindAllString(line, -1))),
	}
}

// ExtractFeatureMatrix computes one feature vector per line, preserving line
// order. Rows are lines, columns are the FeatureNames dimensions.
func ExtractFeatureMatrix(lines []string) [][]float64 {
	matrix := make([][]float64, len(lines))
	for i, line := range lines {
		matrix[i] = ExtractLineFeatures(line)
	}
	return matrix
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
