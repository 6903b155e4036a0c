// Package textcodec reads and writes the plain-text form of transcript lines and notes:
//
//	[<timestamp>] <speaker>: <text>
//
// Transcript entries use one line each. Notes are blocks whose first line carries the
// header and whose remaining lines continue the body; blocks are separated by a blank line.
package textcodec

import (
	"regexp"
	"strings"
)

// Entry is one parsed line or block.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
}

// speaker stops at the first colon, so text may itself contain ": ".
var headerPattern = regexp.MustCompile(`^\[(.*?)\]\s+([^:]+):[ ]?(.*)$`)

// FormatLine renders e on a single line.
func FormatLine(e Entry) string {
	return "[" + e.Timestamp + "] " + e.Speaker + ": " + e.Text
}

// ParseLine parses a single line. ok is false when the line does not match.
func ParseLine(line string) (Entry, bool) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	speaker := strings.TrimSpace(m[2])
	if speaker == "" {
		return Entry{}, false
	}
	return Entry{Timestamp: m[1], Speaker: speaker, Text: m[3]}, true
}

// FormatLines renders one line per entry.
func FormatLines(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(FormatLine(e))
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseLines parses every matching line and skips the rest.
func ParseLines(s string) []Entry {
	var out []Entry
	for _, line := range splitLines(s) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if e, ok := ParseLine(line); ok {
			out = append(out, e)
		}
	}
	return out
}

// FormatBlocks renders entries as blank-line separated blocks. A blank line inside a
// body would end its block early, so body lines that are empty or only whitespace are
// left out.
func FormatBlocks(entries []Entry) string {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		e.Text = dropBlankLines(e.Text)
		blocks = append(blocks, FormatLine(e))
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// ParseBlocks recovers entries from FormatBlocks output. Body lines after the header are
// kept verbatim; blocks whose first line is not a header are skipped.
func ParseBlocks(s string) []Entry {
	var out []Entry
	for _, block := range splitBlocks(s) {
		e, ok := ParseLine(block[0])
		if !ok {
			continue
		}
		if len(block) > 1 {
			e.Text = strings.Join(append([]string{e.Text}, block[1:]...), "\n")
		}
		out = append(out, e)
	}
	return out
}

// dropBlankLines keeps the first line, which shares the header line, as is.
func dropBlankLines(text string) string {
	lines := splitLines(text)
	kept := lines[:1]
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func splitBlocks(s string) [][]string {
	var blocks [][]string
	var current []string
	for _, line := range splitLines(s) {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
