package reader

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type cellKind int

const (
	cellPlain cellKind = iota
	cellDate
	cellTime
)

// dateCells turns date-styled serial numbers into ISO text. Rows must come
// from GetRows with RawCellValue set, so numbers arrive unformatted.
type dateCells struct {
	wb       *excelize.File
	date1904 bool
	kinds    map[int]cellKind // by style index
}

func newDateCells(wb *excelize.File) *dateCells {
	d := &dateCells{wb: wb, kinds: make(map[int]cellKind)}
	if props, err := wb.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// convert rewrites rows in place.
func (d *dateCells) convert(sheet string, rows [][]string) {
	for r, row := range rows {
		for c, v := range row {
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			kind := d.kindAt(sheet, c+1, r+1)
			if kind == cellPlain {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, d.date1904)
			if err != nil {
				continue
			}
			row[c] = formatCellTime(t, kind)
		}
	}
}

func (d *dateCells) kindAt(sheet string, col, row int) cellKind {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return cellPlain
	}
	idx, err := d.wb.GetCellStyle(sheet, ref)
	if err != nil {
		return cellPlain
	}
	if k, ok := d.kinds[idx]; ok {
		return k
	}

	k := cellPlain
	if style, err := d.wb.GetStyle(idx); err == nil && style != nil {
		k = styleKind(style)
	}
	d.kinds[idx] = k
	return k
}

func styleKind(style *excelize.Style) cellKind {
	if style.CustomNumFmt != nil {
		return formatKind(*style.CustomNumFmt)
	}
	switch id := style.NumFmt; {
	case id >= 14 && id <= 17, id == 22, id >= 27 && id <= 36, id >= 50 && id <= 58:
		return cellDate
	case id >= 18 && id <= 21, id >= 45 && id <= 47:
		return cellTime
	}
	return cellPlain
}

// formatKind classifies a custom number format code such as "dd/mm/yyyy"
// or "[$-409]mmm d, yyyy h:mm".
func formatKind(code string) cellKind {
	code = strings.ToLower(stripLiterals(code))
	if strings.ContainsAny(code, "#0?") {
		return cellPlain
	}
	switch {
	case strings.ContainsAny(code, "yd"):
		return cellDate
	case strings.ContainsAny(code, "hs"):
		return cellTime
	case strings.Contains(code, "m"):
		return cellDate
	}
	return cellPlain
}

// stripLiterals drops quoted text, escaped characters and bracketed locale
// or color sections, keeping elapsed-time markers like [h].
func stripLiterals(code string) string {
	var b strings.Builder
	quoted := false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		case ch == '[':
			end := strings.IndexByte(code[i:], ']')
			if end < 0 {
				return b.String()
			}
			if inner := strings.ToLower(code[i+1 : i+end]); inner == "h" || inner == "hh" || inner == "m" || inner == "mm" || inner == "s" || inner == "ss" {
				b.WriteString(inner)
			}
			i += end
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func formatCellTime(t time.Time, kind cellKind) string {
	t = t.Round(time.Second)
	if kind == cellTime {
		return t.Format("15:04:05")
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
