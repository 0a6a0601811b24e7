package reader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
)

const sniffBytes = 4096

// candidateDelimiters in retry order.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

func readCSV(data []byte) (*frame.Frame, *Layout, error) {
	text, encoding, err := decodeText(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	delim := sniffDelimiter(text)
	labels, rows := parseDelimited(text, delim)
	if len(labels) == 1 {
		for _, alt := range candidateDelimiters {
			if alt == delim {
				continue
			}
			l, r := parseDelimited(text, alt)
			if len(l) >= 2 {
				delim, labels, rows = alt, l, r
				break
			}
		}
	}

	if len(labels) == 0 {
		return nil, nil, fmt.Errorf("%w: no header row found", ErrUnreadableFile)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: file contains no data rows", ErrUnreadableFile)
	}

	layout := &Layout{
		Format:          FormatCSV,
		Delimiter:       string(delim),
		Encoding:        encoding,
		HeaderRow:       1,
		UnnamedFraction: unnamedFraction(labels),
	}
	return frame.New(labels, rows), layout, nil
}

// decodeText honours a byte-order mark and converts to UTF-8. Input without
// a BOM that is not valid UTF-8 is decoded as Windows-1252, which accepts
// every byte.
func decodeText(data []byte) ([]byte, string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err == nil && utf8.Valid(out) {
		return out, "utf-8", nil
	}

	out, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, "", fmt.Errorf("decode text: %w", err)
	}
	return out, "windows-1252", nil
}

// sniffDelimiter scores each candidate over the leading lines by how
// consistently it splits them into more than one field.
func sniffDelimiter(text []byte) rune {
	probe := text
	if len(probe) > sniffBytes {
		probe = probe[:sniffBytes]
		if i := bytes.LastIndexByte(probe, '\n'); i > 0 {
			probe = probe[:i]
		}
	}

	best, bestScore, bestWidth := ',', 0.0, 1
	for _, d := range candidateDelimiters {
		counts := fieldCounts(probe, d)
		if len(counts) == 0 {
			continue
		}
		width, share := modeCount(counts)
		if width < 2 {
			continue
		}
		if share > bestScore || (share == bestScore && width > bestWidth) {
			best, bestScore, bestWidth = d, share, width
		}
	}
	return best
}

func fieldCounts(probe []byte, delim rune) []int {
	r := newCSVReader(probe, delim)
	var counts []int
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if blankRow(rec) {
			continue
		}
		counts = append(counts, len(rec))
	}
	return counts
}

// modeCount returns the most frequent field count and the share of lines
// that have it. Ties prefer the wider count.
func modeCount(counts []int) (int, float64) {
	freq := make(map[int]int)
	for _, c := range counts {
		freq[c]++
	}
	mode, n := 0, 0
	for c, k := range freq {
		if k > n || (k == n && c > mode) {
			mode, n = c, k
		}
	}
	return mode, float64(n) / float64(len(counts))
}

// parseDelimited treats the first non-blank record as the header. Records
// wider than the header or with broken quoting are skipped.
func parseDelimited(text []byte, delim rune) ([]string, [][]string) {
	r := newCSVReader(text, delim)

	var (
		labels []string
		rows   [][]string
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			break
		}
		if blankRow(rec) {
			continue
		}
		if labels == nil {
			labels = headerLabels(rec, len(rec))
			continue
		}
		if len(rec) > len(labels) {
			continue
		}
		rows = append(rows, rec)
	}
	return labels, rows
}

func newCSVReader(text []byte, delim rune) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = false
	return r
}
