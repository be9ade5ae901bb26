/*
Package segment splits free-form LLM output into discrete items.

Two conventions are supported, each as a named Strategy:

  - NumberedLines: items start on lines of the form "1. text".
  - DelimiterTagged: items start on lines carrying a "--n--" tag.

Lines are trimmed and blank lines are ignored. Lines that do not open an
item are joined, space-separated, onto the item that is currently open.
Text that appears before the first item boundary is discarded.
*/
package segment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseEmpty is returned when the input produced no non-empty items.
// It is advisory: callers warn and continue rather than fail.
var ErrParseEmpty = errors.New("no items could be parsed from the response")

// Strategy splits a block of text into ordered items.
type Strategy interface {
	// Name is the short identifier used on the command line.
	Name() string

	// Split returns the items in encounter order. It never returns
	// empty or whitespace-only items.
	Split(text string) []string
}

// Split runs s over text and reports ErrParseEmpty when nothing was found.
func Split(s Strategy, text string) ([]string, error) {
	items := s.Split(text)
	if len(items) == 0 {
		return nil, ErrParseEmpty
	}
	return items, nil
}

// ByName returns the strategy registered under name.
func ByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NumberedLines{}.Name():
		return NumberedLines{}, nil
	case DelimiterTagged{}.Name():
		return DelimiterTagged{}, nil
	default:
		return nil, fmt.Errorf("unknown segmentation format %q (want %q or %q)",
			name, NumberedLines{}.Name(), DelimiterTagged{}.Name())
	}
}

// numberedPrefix matches a leading "12.". A digit right after the dot
// makes it a decimal such as "2.5% of teams", which does not open an item.
var numberedPrefix = regexp.MustCompile(`^(\d+)\.`)

// NumberedLines treats every line starting with "<n>." as a new item.
type NumberedLines struct{}

// Name implements Strategy.
func (NumberedLines) Name() string { return "numbered" }

// Split implements Strategy.
func (NumberedLines) Split(text string) []string {
	return collect(text, func(line string) (string, bool) {
		loc := numberedPrefix.FindStringIndex(line)
		if loc == nil {
			return "", false
		}
		if rest := line[loc[1]:]; rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			return "", false
		}
		return line[loc[1]:], true
	})
}

// tagToken is the two-character marker used by DelimiterTagged.
const tagToken = "--"

// DelimiterTagged treats every line holding at least two "--" tokens as
// a new item. The tag, from the first token through the end of the
// second, is removed from the line.
type DelimiterTagged struct{}

// Name implements Strategy.
func (DelimiterTagged) Name() string { return "tagged" }

// Split implements Strategy.
func (DelimiterTagged) Split(text string) []string {
	return collect(text, func(line string) (string, bool) {
		if strings.Count(line, tagToken) < 2 {
			return "", false
		}
		return stripTag(line), true
	})
}

// stripTag removes the first "--...--" span from line.
func stripTag(line string) string {
	first := strings.Index(line, tagToken)
	rest := line[first+len(tagToken):]
	second := strings.Index(rest, tagToken)
	before := strings.TrimSpace(line[:first])
	after := strings.TrimSpace(rest[second+len(tagToken):])
	return strings.TrimSpace(before + " " + after)
}

// boundaryFunc reports whether line opens a new item and, if so, the
// text that starts it.
type boundaryFunc func(line string) (string, bool)

// collect drives a boundary function over the lines of text.
func collect(text string, boundary boundaryFunc) []string {
	var items []string
	var current []string
	open := false

	flush := func() {
		if !open {
			return
		}
		item := strings.TrimSpace(strings.Join(current, " "))
		if item != "" {
			items = append(items, item)
		}
		current = current[:0]
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if start, ok := boundary(line); ok {
			flush()
			open = true
			if start = strings.TrimSpace(start); start != "" {
				current = append(current, start)
			}
			continue
		}

		// Preamble before the first boundary belongs to no item.
		if open {
			current = append(current, line)
		}
	}
	flush()

	return items
}
