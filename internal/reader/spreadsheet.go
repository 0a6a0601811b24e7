package reader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/frame"
)

// maxHeaderProbe is the number of leading rows tried as the header.
const maxHeaderProbe = 10

// badHeaderFraction is the unnamed share at which a header guess is rejected.
const badHeaderFraction = 0.5

type sheetGuess struct {
	sheet   string
	header  int // zero-based row index
	labels  []string
	rows    [][]string
	unnamed float64
}

func readSpreadsheet(data []byte) (*frame.Frame, *Layout, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open workbook: %v", ErrUnreadableFile, err)
	}
	defer wb.Close()

	var (
		best     *sheetGuess
		fallback [][]string
		fbSheet  string
		dates    = newDateCells(wb)
	)
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil || len(dropBlankRows(rows)) == 0 {
			continue
		}
		dates.convert(sheet, rows)
		if fallback == nil {
			fallback, fbSheet = rows, sheet
		}

		g := probeHeaders(sheet, rows)
		if g != nil && (best == nil || g.unnamed < best.unnamed) {
			best = g
		}
		if best != nil && best.unnamed < badHeaderFraction {
			break
		}
	}

	if best != nil && best.unnamed < 1 {
		layout := &Layout{
			Format:          FormatSpreadsheet,
			Sheet:           best.sheet,
			HeaderRow:       best.header + 1,
			UnnamedFraction: best.unnamed,
		}
		return frame.New(best.labels, best.rows), layout, nil
	}

	if fallback == nil {
		return nil, nil, fmt.Errorf("%w: workbook has no data", ErrUnreadableFile)
	}
	return promoteFirstRow(fbSheet, fallback)
}

// probeHeaders tries the default header row, then rows 2..10, and keeps the
// guess with the lowest unnamed fraction. Earlier rows win ties.
func probeHeaders(sheet string, rows [][]string) *sheetGuess {
	var best *sheetGuess
	for h := 0; h < maxHeaderProbe && h < len(rows); h++ {
		g := guessAt(sheet, rows, h)
		if g == nil {
			continue
		}
		if best == nil || g.unnamed < best.unnamed {
			best = g
		}
		if h == 0 && g.unnamed < badHeaderFraction {
			break
		}
	}
	return best
}

func guessAt(sheet string, rows [][]string, h int) *sheetGuess {
	body := dropBlankRows(rows[h+1:])
	if len(body) == 0 {
		return nil
	}

	width := len(rows[h])
	for _, r := range body {
		if len(r) > width {
			width = len(r)
		}
	}
	labels := headerLabels(rows[h], width)
	return &sheetGuess{
		sheet:   sheet,
		header:  h,
		labels:  labels,
		rows:    body,
		unnamed: unnamedFraction(labels),
	}
}

// promoteFirstRow uses the first non-blank row as the header, naming blank
// cells Column_i.
func promoteFirstRow(sheet string, rows [][]string) (*frame.Frame, *Layout, error) {
	rows = dropBlankRows(rows)
	head := rows[0]
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	labels := make([]string, width)
	for i := range labels {
		if i < len(head) {
			labels[i] = strings.TrimSpace(head[i])
		}
		if labels[i] == "" {
			labels[i] = fmt.Sprintf("Column_%d", i)
		}
	}

	body := rows[1:]
	if len(body) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has a header but no data rows", ErrUnreadableFile)
	}
	layout := &Layout{
		Format:          FormatSpreadsheet,
		Sheet:           sheet,
		HeaderRow:       1,
		UnnamedFraction: unnamedFraction(labels),
		PromotedHeader:  true,
	}
	return frame.New(labels, body), layout, nil
}
