package parsing

import (
	"regexp"
	"strings"
	"time"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// SegmentLines splits raw receipt text into logical lines: split on any
// CR/LF sequence, trim each line, collapse internal whitespace runs to single
// spaces, and drop lines that end up empty. Total function; running it on its
// own output yields the same sequence.
func SegmentLines(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// NewRawInput builds the ingestion artifact for a parse invocation.
func NewRawInput(text string, source Source) RawReceiptInput {
	if source.UploadedAt.IsZero() {
		source.UploadedAt = time.Now()
	}
	return RawReceiptInput{
		RawText: text,
		Lines:   SegmentLines(text),
		Source:  source,
	}
}
