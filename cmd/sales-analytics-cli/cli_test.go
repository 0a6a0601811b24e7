package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = "Date,Item,Revenue\n2024-01-01,Widget,10\n2024-01-02,Gadget,20\n2024-01-03,Widget,5\n"

// setup points the record store at a fresh SQLite file and returns a
// scratch directory.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "sqlite:"+filepath.Join(dir, "analyses.db"))
	t.Setenv("REDIS_URL", "")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(s), v), s)
}

func TestVersion(t *testing.T) {
	setup(t)

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sales-analytics-cli v"+version+"\n", out)

	out, err = run(t, "version", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"`+version+`"}`, out)
}

func TestAnalyzeHumanOutput(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "sales.csv", salesCSV)

	out, err := run(t, "analyze", path, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "━━━ KEY METRICS ━━━")
	assert.Contains(t, out, "Total Sales")
	assert.Contains(t, out, "35.00")
	assert.Contains(t, out, "sales_amount")
	assert.Contains(t, out, "✓ Analyzed sales.csv")
}

func TestAnalyzeRecordLifecycle(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "sales.csv", salesCSV)
	outPath := filepath.Join(dir, "out.json")

	out, err := run(t, "analyze", path, "--save", "--json", "--tenant", "acme", "--out", outPath)
	require.NoError(t, err)

	var created struct {
		ID       string         `json:"id"`
		Success  bool           `json:"success"`
		Platform string         `json:"platform"`
		Analysis map[string]any `json:"analysis"`
	}
	decodeJSON(t, out, &created)
	require.NotEmpty(t, created.ID)
	assert.True(t, created.Success)
	assert.Equal(t, "generic", created.Platform)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.JSONEq(t, out, string(written))

	out, err = run(t, "list", "--json", "--tenant", "acme")
	require.NoError(t, err)
	var list []map[string]any
	decodeJSON(t, out, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0]["id"])
	assert.Equal(t, "sales.csv", list[0]["filename"])

	out, err = run(t, "list", "--json", "--tenant", "globex")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	out, err = run(t, "show", created.ID, "--json", "--tenant", "acme")
	require.NoError(t, err)
	var rec struct {
		Document map[string]any `json:"document"`
	}
	decodeJSON(t, out, &rec)
	assert.Equal(t, created.Analysis, rec.Document["analysis"])

	_, err = run(t, "delete", created.ID, "--tenant", "acme")
	require.NoError(t, err)

	_, err = run(t, "show", created.ID, "--tenant", "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAnalyzeFailures(t *testing.T) {
	dir := setup(t)
	sales := writeFile(t, dir, "sales.csv", salesCSV)
	returns := writeFile(t, dir, "returns.csv", "Date,Item\n2024-01-01,Widget\n")

	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"missing file", []string{"analyze", filepath.Join(dir, "nope.csv")}, "open"},
		{"bad mapping", []string{"analyze", sales, "--map", "sales_amount"}, "invalid mapping"},
		{"mismatched returns", []string{"analyze", sales, "--returns", returns}, "same columns"},
		{"no arguments", []string{"analyze"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAnalyzeFailureJSON(t *testing.T) {
	dir := setup(t)
	empty := writeFile(t, dir, "empty.csv", "")

	out, err := run(t, "analyze", empty, "--json")
	require.Error(t, err)
	assert.JSONEq(t, `{"success":false,"error":"no file uploaded"}`, out)
}

func TestBatch(t *testing.T) {
	dir := setup(t)
	a := writeFile(t, dir, "a.csv", salesCSV)
	b := writeFile(t, dir, "b.csv", "Date,Item,Revenue\n2024-02-01,Widget,100\n2024-02-02,Gadget,50\n2024-02-03,Gizmo,25\n")
	empty := writeFile(t, dir, "empty.csv", "")

	out, err := run(t, "batch", a, b, empty, "--json", "--workers", "2", "--save")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 files failed")

	var results []batchResult
	decodeJSON(t, out, &results)
	require.Len(t, results, 3)

	assert.Equal(t, "a.csv", results[0].File)
	assert.True(t, results[0].Success)
	assert.Equal(t, 35.0, results[0].TotalSales)
	assert.Equal(t, 3, results[0].Rows)
	assert.NotEmpty(t, results[0].ID)

	assert.Equal(t, 175.0, results[1].TotalSales)

	assert.False(t, results[2].Success)
	assert.Equal(t, "no file uploaded", results[2].Error)

	out, err = run(t, "list", "--json")
	require.NoError(t, err)
	var list []map[string]any
	decodeJSON(t, out, &list)
	assert.Len(t, list, 2)
}

func TestDetect(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "sales.csv", salesCSV)

	out, err := run(t, "detect", path, "--json", "--platform", "meesho", "--map", "product_name=Item")
	require.NoError(t, err)

	var got struct {
		Platform      string            `json:"platform"`
		Detection     string            `json:"detection_source"`
		Rows          int               `json:"rows"`
		ColumnMapping map[string]string `json:"column_mapping"`
		Layout        map[string]any    `json:"layout"`
	}
	decodeJSON(t, out, &got)
	assert.Equal(t, "meesho", got.Platform)
	assert.Equal(t, "hint", got.Detection)
	assert.Equal(t, 3, got.Rows)
	assert.Equal(t, "Item", got.ColumnMapping["product_name"])
	assert.Equal(t, "csv", got.Layout["format"])

	out, err = run(t, "detect", path, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "━━━ COLUMN ROLES ━━━")
	assert.Contains(t, out, "Revenue")
}

func TestParseMappings(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    map[string]string
		wantErr bool
	}{
		{name: "none", in: nil, want: nil},
		{name: "pairs", in: []string{"sales_amount=Invoice Amount", " order_date = Date "}, want: map[string]string{"sales_amount": "Invoice Amount", "order_date": "Date"}},
		{name: "empty label unbinds", in: []string{"region="}, want: map[string]string{"region": ""}},
		{name: "value with equals", in: []string{"sku=a=b"}, want: map[string]string{"sku": "a=b"}},
		{name: "missing equals", in: []string{"sales_amount"}, wantErr: true},
		{name: "missing role", in: []string{"=Date"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMappings(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "-", formatValue(nil, ""))
	assert.Equal(t, "12.50", formatValue(12.5, "currency"))
	assert.Equal(t, "40.00%", formatValue(40.0, "percentage"))
	assert.Equal(t, "7", formatValue(7.0, ""))
	assert.Equal(t, "7", formatValue(7, ""))
	assert.Equal(t, "low", formatValue("low", ""))
}
