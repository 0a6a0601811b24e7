// Package reader decodes uploaded sales files into frames. It recovers from
// delimiter, encoding, header-row and worksheet ambiguity before giving up
// with ErrUnreadableFile.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
)

// ErrUnreadableFile is returned when no non-empty frame can be produced.
var ErrUnreadableFile = errors.New("unreadable file")

// Format is the physical file family.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatSpreadsheet Format = "spreadsheet"
)

// Layout describes how a file was decoded.
type Layout struct {
	Format          Format  `json:"format"`
	Delimiter       string  `json:"delimiter,omitempty"`
	Encoding        string  `json:"encoding,omitempty"`
	Sheet           string  `json:"sheet,omitempty"`
	HeaderRow       int     `json:"header_row"`
	UnnamedFraction float64 `json:"unnamed_fraction"`
	PromotedHeader  bool    `json:"promoted_header,omitempty"`
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Reader turns file bytes into frames.
type Reader struct {
	logger *observability.Logger
}

// New creates a Reader.
func New(logger *observability.Logger) *Reader {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Reader{logger: logger}
}

// ReadFile reads a materialized upload. name supplies the declared extension
// and may differ from path.
func (r *Reader) ReadFile(path, name string) (*frame.Frame, *Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	return r.Read(data, name)
}

// Read decodes data according to the extension of name, falling back to
// content sniffing when the extension is unknown.
func (r *Reader) Read(data []byte, name string) (*frame.Frame, *Layout, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, fmt.Errorf("%w: %s is empty", ErrUnreadableFile, name)
	}

	var (
		f      *frame.Frame
		layout *Layout
		err    error
	)
	switch DetectFormat(data, name) {
	case FormatSpreadsheet:
		f, layout, err = readSpreadsheet(data)
	default:
		f, layout, err = readCSV(data)
	}
	if err != nil {
		r.logger.Warn().Str("file", name).Err(err).Msg("file could not be decoded")
		return nil, nil, err
	}

	r.logger.Debug().
		Str("file", name).
		Str("format", string(layout.Format)).
		Str("delimiter", layout.Delimiter).
		Str("sheet", layout.Sheet).
		Int("header_row", layout.HeaderRow).
		Int("rows", f.Len()).
		Int("columns", f.Width()).
		Msg("file decoded")
	return f, layout, nil
}

// DetectFormat picks the decoder for a file.
func DetectFormat(data []byte, name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	case ".xlsx", ".xlsm", ".xltx", ".xltm", ".xls":
		return FormatSpreadsheet
	}
	if bytes.HasPrefix(data, zipMagic) || bytes.HasPrefix(data, oleMagic) {
		return FormatSpreadsheet
	}
	return FormatCSV
}

// unnamedFraction is the share of labels that carry no real header text.
func unnamedFraction(labels []string) float64 {
	if len(labels) == 0 {
		return 1
	}
	n := 0
	for _, l := range labels {
		if isUnnamed(l) {
			n++
		}
	}
	return float64(n) / float64(len(labels))
}

func isUnnamed(label string) bool {
	return strings.HasPrefix(label, "Unnamed:") || strings.HasPrefix(label, "Column_")
}

// headerLabels fills blank header cells with positional placeholders.
func headerLabels(row []string, width int) []string {
	labels := make([]string, width)
	for i := range labels {
		if i < len(row) {
			labels[i] = strings.TrimSpace(row[i])
		}
		if labels[i] == "" {
			labels[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	return labels
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		if !blankRow(row) {
			out = append(out, row)
		}
	}
	return out
}
