// Command extract runs saved model output through the same extraction the
// API uses, which makes it easy to check why a reply was rejected.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jwebster45206/story-reel/pkg/extract"
	"github.com/jwebster45206/story-reel/pkg/textfilter"
)

const usage = `Usage: %s <array|single|sanitize> <file|-> [count|min-length] [rating]

  array     extract a list of items (count defaults to 3)
  single    extract one block of text (min-length defaults to 1)
  sanitize  clean and truncate one option
  rating    optional content rating (G, PG, PG-13, R) applied to the result
`

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, out io.Writer) error {
	mode, source := args[0], args[1]

	raw, err := readSource(source, stdin)
	if err != nil {
		return err
	}

	n := 0
	if len(args) > 2 {
		n, err = strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", args[2], err)
		}
	}

	var filter *textfilter.Filter
	if len(args) > 3 {
		filter = textfilter.New(textfilter.ParseRating(args[3]))
	}

	switch mode {
	case "array":
		items, err := extract.Array(raw, n)
		if err != nil {
			return err
		}
		for i, item := range items {
			fmt.Fprintf(out, "%d. %s\n", i+1, filter.Clean(item))
		}
	case "single":
		if n <= 0 {
			n = 1
		}
		text, err := extract.Single(raw, n)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, filter.Clean(text))
	case "sanitize":
		fmt.Fprintln(out, filter.Clean(extract.Sanitize(raw)))
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	return nil
}

func readSource(source string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
