// Package extract turns free-form model output into validated, bounded values.
// It never invents content: when nothing usable can be recovered it returns
// an error.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultExpectedCount is used when a caller passes a non-positive count.
const DefaultExpectedCount = 3

const (
	// items from a parsed array must be longer than this
	minArrayItemLength = 5
	// lines from the plain-text fallback must be longer than this
	minLineLength = 10
	previewLength = 100
)

var (
	// ErrNoArray means no strategy produced a usable item.
	ErrNoArray = errors.New("failed to extract valid JSON array from response")
	// ErrTooShort means a single-text result was below the minimum length.
	ErrTooShort = errors.New("extracted text is too short")
	// ErrEmptyInput means the raw model output was blank.
	ErrEmptyInput = errors.New("invalid or empty response")
)

var (
	openingFence = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	closingFence = regexp.MustCompile("\\s*```$")

	lazyArray    = regexp.MustCompile(`\[[\s\S]*?\]`)
	greedyArray  = regexp.MustCompile(`\[[\s\S]*\]`)
	lazyObject   = regexp.MustCompile(`\{[\s\S]*?\}`)
	greedyObject = regexp.MustCompile(`\{[\s\S]*\}`)
	doubleQuoted = regexp.MustCompile(`"(\[[\s\S]*?\])"`)
	singleQuoted = regexp.MustCompile(`'(\[[\s\S]*?\])'`)

	numberedItem = regexp.MustCompile(`(?:^|\s)\d+[.)]\s`)
	newlineRun   = regexp.MustCompile(`\n+`)
)

// candidate patterns, tried in order
var candidates = []*regexp.Regexp{
	lazyArray,
	greedyArray,
	lazyObject,
	greedyObject,
	doubleQuoted,
	singleQuoted,
}

// Array extracts an ordered list of sanitized strings from raw model output.
// It looks for a JSON array, then a JSON object (taking its first array-valued
// property or else its values), then an array wrapped in quotes. If none of
// those parse into usable items it falls back to splitting the text into
// lines. The fallback is capped at expected items.
func Array(raw string, expected int) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}
	if expected <= 0 {
		expected = DefaultExpectedCount
	}

	cleaned := stripArtifacts(raw)

	for _, pattern := range candidates {
		match := pattern.FindStringSubmatch(cleaned)
		if match == nil {
			continue
		}
		content := match[0]
		if len(match) > 1 && match[1] != "" {
			content = match[1]
		}
		if items := parseItems(content); len(items) > 0 {
			return items, nil
		}
	}

	if lines := splitLines(cleaned); len(lines) > 0 {
		if len(lines) > expected {
			lines = lines[:expected]
		}
		return lines, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrNoArray, preview(raw))
}

// Single extracts one block of text, such as a story sentence. The result is
// trimmed, unquoted and flattened onto one line.
func Single(raw string, minLength int) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyInput
	}

	s := strings.TrimSpace(raw)
	s = trimOneQuote(s)
	s = newlineRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if n := len([]rune(s)); n < minLength {
		return "", fmt.Errorf("%w (%d chars, minimum %d)", ErrTooShort, n, minLength)
	}
	return s, nil
}

func stripArtifacts(raw string) string {
	s := strings.TrimSpace(raw)
	s = openingFence.ReplaceAllString(s, "")
	s = closingFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return trimOneQuote(s)
}

func trimOneQuote(s string) string {
	const quotes = "\"'`"
	if s != "" && strings.ContainsRune(quotes, rune(s[0])) {
		s = s[1:]
	}
	if s != "" && strings.ContainsRune(quotes, rune(s[len(s)-1])) {
		s = s[:len(s)-1]
	}
	return s
}

func parseItems(content string) []string {
	if !gjson.Valid(content) {
		// Arrays quoted as a string literal carry escaped quotes.
		unescaped := strings.ReplaceAll(content, `\"`, `"`)
		if unescaped == content || !gjson.Valid(unescaped) {
			return nil
		}
		content = unescaped
	}

	parsed := gjson.Parse(content)
	var values []gjson.Result
	switch {
	case parsed.IsArray():
		values = parsed.Array()
	case parsed.IsObject():
		values = objectValues(parsed)
	default:
		return nil
	}

	items := make([]string, 0, len(values))
	for _, v := range values {
		if v.Type == gjson.Null {
			continue
		}
		text := v.String()
		if text == "" {
			continue
		}
		item := Sanitize(text)
		if len([]rune(item)) > minArrayItemLength {
			items = append(items, item)
		}
	}
	return items
}

// objectValues returns the first array-valued property, or every value in
// document order when there is none.
func objectValues(obj gjson.Result) []gjson.Result {
	var all []gjson.Result
	var firstArray *gjson.Result
	obj.ForEach(func(_, value gjson.Result) bool {
		if value.IsArray() {
			v := value
			firstArray = &v
			return false
		}
		all = append(all, value)
		return true
	})
	if firstArray != nil {
		return firstArray.Array()
	}
	return all
}

func splitLines(text string) []string {
	text = newlineRun.ReplaceAllString(text, "\n")
	// Break before inline numbered markers such as "1) ... 2) ...".
	text = numberedItem.ReplaceAllStringFunc(text, func(m string) string {
		return "\n" + strings.TrimLeft(m, " \t")
	})

	var lines []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ';' }) {
		line := Sanitize(part)
		if len([]rune(line)) > minLineLength {
			lines = append(lines, line)
		}
	}
	return lines
}

func preview(raw string) string {
	runes := []rune(raw)
	if len(runes) <= previewLength {
		return raw
	}
	return string(runes[:previewLength]) + "..."
}
