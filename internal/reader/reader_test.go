package reader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSVDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		delim string
	}{
		{"comma", "Date,Item,Revenue\n2024-01-01,Widget,10\n2024-01-02,Widget,20\n", ","},
		{"semicolon", "Date;Item;Revenue\n2024-01-01;Widget;10,5\n2024-01-02;Widget;20\n", ";"},
		{"tab", "Date\tItem\tRevenue\n2024-01-01\tWidget\t10\n", "\t"},
		{"pipe", "Date|Item|Revenue\n2024-01-01|Widget, large|10\n", "|"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, layout, err := New(nil).Read([]byte(tt.input), "sales.csv")
			require.NoError(t, err)
			assert.Equal(t, tt.delim, layout.Delimiter)
			assert.Equal(t, []string{"Date", "Item", "Revenue"}, f.Labels())
			assert.Equal(t, "2024-01-01", f.Column("Date").Text[0])
		})
	}
}

func TestReadCSVStripsBOM(t *testing.T) {
	f, layout, err := New(nil).Read([]byte("\xEF\xBB\xBFDate,Amount\n2024-01-01,5\n"), "bom.csv")
	require.NoError(t, err)
	assert.Equal(t, "utf-8", layout.Encoding)
	assert.Equal(t, "Date", f.Labels()[0])
}

func TestReadCSVSingleByteFallback(t *testing.T) {
	f, layout, err := New(nil).Read([]byte("name,city\nJos\xe9,Pune\n"), "latin.csv")
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", layout.Encoding)
	assert.Equal(t, "José", f.Column("name").Text[0])
}

func TestReadCSVSkipsMalformedAndPadsShortRows(t *testing.T) {
	input := "id,product,amount\n1,A,10\n2,B,20,extra,fields\n3,C\n\n4,D,40\n"
	f, _, err := New(nil).Read([]byte(input), "rows.csv")
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"1", "3", "4"}, f.Column("id").Text)
	assert.Equal(t, []string{"10", "", "40"}, f.Column("amount").Text)
}

func TestReadCSVBlankHeaderCells(t *testing.T) {
	f, _, err := New(nil).Read([]byte("a,,c\n1,2,3\n"), "blank.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Unnamed: 1", "c"}, f.Labels())
}

func TestReadRejectsEmptyInput(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"whitespace":  "  \n\n",
		"header only": "a,b,c\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := New(nil).Read([]byte(input), "x.csv")
			assert.ErrorIs(t, err, ErrUnreadableFile)
		})
	}
}

func TestReadCorruptWorkbook(t *testing.T) {
	_, _, err := New(nil).Read([]byte("PK\x03\x04not really a zip"), "broken.xlsx")
	assert.ErrorIs(t, err, ErrUnreadableFile)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat(nil, "a.CSV"))
	assert.Equal(t, FormatSpreadsheet, DetectFormat(nil, "a.xlsx"))
	assert.Equal(t, FormatSpreadsheet, DetectFormat([]byte("PK\x03\x04"), "upload"))
	assert.Equal(t, FormatCSV, DetectFormat([]byte("a,b"), "upload"))
}

// sheetRows writes rows starting at the given one-based row.
type sheetRows struct {
	name  string
	start int
	rows  [][]any
}

func buildWorkbook(t *testing.T, sheets ...sheetRows) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, wb.SetSheetName("Sheet1", s.name))
		} else {
			_, err := wb.NewSheet(s.name)
			require.NoError(t, err)
		}
		for j, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, s.start+j)
			require.NoError(t, err)
			r := row
			require.NoError(t, wb.SetSheetRow(s.name, cell, &r))
		}
	}

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadSpreadsheetHeaderOnRowFive(t *testing.T) {
	data := buildWorkbook(t, sheetRows{name: "Report", start: 1, rows: [][]any{
		{"Monthly sales report"},
		{"Generated for seller 42"},
		{},
		{},
		{"Order Date", "Product", "State", "Amount"},
		{"2024-01-01", "Kurta", "Delhi", 450},
		{"2024-01-02", "Saree", "Goa", 1200},
		{"2024-01-03", "Kurta", "Delhi", 300},
	}})

	f, layout, err := New(nil).Read(data, "report.xlsx")
	require.NoError(t, err)

	assert.Equal(t, 5, layout.HeaderRow)
	assert.Less(t, layout.UnnamedFraction, 0.5)
	assert.Equal(t, []string{"Order Date", "Product", "State", "Amount"}, f.Labels())
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, "1200", f.Column("Amount").Text[1])
}

func TestReadSpreadsheetFallsThroughToLaterSheet(t *testing.T) {
	junk := make([][]any, 0, 12)
	for i := 0; i < 12; i++ {
		junk = append(junk, []any{nil, nil, "note"})
	}
	data := buildWorkbook(t,
		sheetRows{name: "Notes", start: 1, rows: junk},
		sheetRows{name: "Orders", start: 1, rows: [][]any{
			{"order id", "amount"},
			{"A-1", 10},
			{"A-2", 20},
		}},
	)

	f, layout, err := New(nil).Read(data, "book.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Orders", layout.Sheet)
	assert.Equal(t, []string{"order id", "amount"}, f.Labels())
}

func TestReadSpreadsheetPromotesFirstDataRow(t *testing.T) {
	data := buildWorkbook(t,
		sheetRows{name: "Data", start: 12, rows: [][]any{
			{"Date", nil, "Amount"},
			{"2024-01-01", "x", 10},
		}},
	)

	f, layout, err := New(nil).Read(data, "late.xlsx")
	require.NoError(t, err)
	assert.True(t, layout.PromotedHeader)
	assert.Equal(t, []string{"Date", "Column_1", "Amount"}, f.Labels())
	assert.Equal(t, 1, f.Len())
}

func TestReadSpreadsheetDateCells(t *testing.T) {
	data := buildWorkbook(t, sheetRows{name: "Orders", start: 1, rows: [][]any{
		{"Order Date", "Shipped At", "Amount"},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 3, 10, 30, 0, 0, time.UTC), 450},
		{time.Date(2024, 2, 17, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 18, 18, 5, 9, 0, time.UTC), 1200.5},
	}})

	f, _, err := New(nil).Read(data, "orders.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-01", "2024-02-17"}, f.Column("Order Date").Text)
	assert.Equal(t, []string{"2024-01-03 10:30:00", "2024-02-18 18:05:09"}, f.Column("Shipped At").Text)
	assert.Equal(t, []string{"450", "1200.5"}, f.Column("Amount").Text)
}

func TestReadSpreadsheetCustomDateFormat(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()

	format := "dd/mm/yyyy"
	style, err := wb.NewStyle(&excelize.Style{CustomNumFmt: &format})
	require.NoError(t, err)

	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]any{"Invoice Date", "Qty"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]any{45306, 3}))
	require.NoError(t, wb.SetCellStyle("Sheet1", "A2", "A2", style))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	f, _, err := New(nil).Read(buf.Bytes(), "invoices.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", f.Column("Invoice Date").Text[0])
	assert.Equal(t, "3", f.Column("Qty").Text[0])
}

func TestFormatKind(t *testing.T) {
	tests := []struct {
		code string
		want cellKind
	}{
		{"dd/mm/yyyy", cellDate},
		{"mmm-yy", cellDate},
		{"[$-409]mmmm d, yyyy h:mm AM/PM", cellDate},
		{"hh:mm:ss", cellTime},
		{"[h]:mm", cellTime},
		{"#,##0.00", cellPlain},
		{`[$₹-4009] #,##0.00`, cellPlain},
		{`0.0 "days"`, cellPlain},
		{"General", cellPlain},
		{"@", cellPlain},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, formatKind(tt.code))
		})
	}
}
