package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxItemLength is the longest item, in characters, the extractor returns.
const MaxItemLength = 150

const (
	// a cut is only taken at a boundary when it keeps more than this many characters
	minBoundaryCut = 40
	ellipsis       = "..."
)

var (
	edgePunctuation = regexp.MustCompile("^[\\[\\]\"'`,;:\\s]+|[\\[\\]\"'`,;:\\s]+$")
	bulletMarker    = regexp.MustCompile(`^[-*•]\s*`)
	numberMarker    = regexp.MustCompile(`^\d+[.):\s]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Sanitize cleans a single extracted item: it trims bracket, quote and list
// punctuation from both ends, drops a leading bullet or number marker,
// collapses whitespace and caps the length at MaxItemLength characters.
// Sanitize is idempotent.
func Sanitize(text string) string {
	s := norm.NFC.String(text)
	// Stripping one marker can expose another ("- 1. foo"), so clean until stable.
	for i := 0; i < 8; i++ {
		next := clean(s)
		if next == s {
			break
		}
		s = next
	}
	return truncate(s)
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	s = edgePunctuation.ReplaceAllString(s, "")
	s = bulletMarker.ReplaceAllString(s, "")
	s = numberMarker.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// truncate prefers a sentence end, then a word boundary, then a hard cut.
// Word and hard cuts carry an ellipsis and still fit within MaxItemLength.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxItemLength {
		return s
	}

	head := runes[:MaxItemLength]
	if i := lastIndexRune(head, '.'); i > minBoundaryCut {
		return strings.TrimSpace(string(head[:i+1]))
	}

	budget := MaxItemLength - len(ellipsis)
	head = runes[:budget]
	if i := lastIndexRune(head, ' '); i > minBoundaryCut {
		return trimCut(string(head[:i])) + ellipsis
	}
	return trimCut(string(head)) + ellipsis
}

// trimCut removes trailing whitespace and edge punctuation so that the
// ellipsis attaches directly to a word.
func trimCut(s string) string {
	s = strings.TrimRight(s, " \t\n\r,;:")
	return strings.TrimSpace(s)
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
