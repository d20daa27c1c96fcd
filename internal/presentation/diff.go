package presentation

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType classifies a diffed line.
type LineType int

const (
	LineContext LineType = iota
	LineAddition
	LineDeletion
)

// DiffLine is one line of a line-level diff.
type DiffLine struct {
	Type LineType
	Text string
}

// DiffLines computes a line-level diff from before to after.
func DiffLines(before, after string) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var result []DiffLine
	for _, d := range diffs {
		var lineType LineType
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			lineType = LineAddition
		case diffmatchpatch.DiffDelete:
			lineType = LineDeletion
		default:
			lineType = LineContext
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			result = append(result, DiffLine{Type: lineType, Text: strings.TrimSuffix(line, "\n")})
		}
	}
	return result
}

// HasChanges reports whether any line was added or deleted.
func HasChanges(lines []DiffLine) bool {
	for _, l := range lines {
		if l.Type != LineContext {
			return true
		}
	}
	return false
}
