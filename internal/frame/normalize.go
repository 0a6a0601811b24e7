package frame

import (
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeLabel canonicalizes a column label. Surrounding whitespace is
// trimmed, a single interior space survives, any longer whitespace run or one
// containing a tab or newline collapses to "_", and hyphens become "_".
// Applying it twice yields the same result as applying it once.
func NormalizeLabel(label string) string {
	s := strings.TrimSpace(label)
	s = whitespaceRun.ReplaceAllStringFunc(s, func(run string) string {
		if run == " " {
			return run
		}
		return "_"
	})
	return strings.ReplaceAll(s, "-", "_")
}

// Normalize returns a frame whose labels are normalized. When two labels
// normalize to the same string only the leftmost column survives. Labels that
// normalize to nothing become "Unnamed: i".
func Normalize(f *Frame) *Frame {
	out := &Frame{index: make(map[string]int, len(f.cols)), rows: f.rows}
	for i, col := range f.cols {
		label := NormalizeLabel(col.Name)
		if label == "" {
			label = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := out.index[label]; dup {
			continue
		}
		c := col.clone()
		c.Name = label
		out.index[label] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// MatchKey folds a label for table lookups: lower case with "_" read as a
// space.
func MatchKey(label string) string {
	return strings.ToLower(strings.ReplaceAll(label, "_", " "))
}
