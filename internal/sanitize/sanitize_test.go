package sanitize

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quarter struct{ year, q int }

func (q quarter) String() string { return fmt.Sprintf("%dQ%d", q.year, q.q) }

type exploding struct{}

func (exploding) String() string { panic(errors.New("no string form")) }

func TestDocument(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	doc := map[string]any{
		"flag":     true,
		"off":      false,
		"nan":      math.NaN(),
		"inf":      math.Inf(-1),
		"count":    3,
		"rate":     float32(0.5),
		"when":     ts,
		"never":    time.Time{},
		"period":   quarter{2024, 2},
		"missing":  nil,
		"series":   []float64{1, math.NaN(), 3},
		"labels":   []string{"a", "b"},
		"counts":   map[string]int{"x": 1},
		"byPeriod": map[quarter]float64{{2024, 1}: 5, {2024, 2}: math.Inf(1)},
		"nested":   map[string]any{"ok": 1.5, "bad": math.NaN(), "list": []any{math.Inf(1), "x"}},
		"struct":   struct{ A int }{A: 1},
	}

	out := Document(doc)

	assert.Equal(t, "true", out["flag"])
	assert.Equal(t, "false", out["off"])
	assert.NotContains(t, out, "nan")
	assert.NotContains(t, out, "inf")
	assert.NotContains(t, out, "never")
	assert.NotContains(t, out, "missing")
	assert.Equal(t, 3, out["count"])
	assert.Equal(t, 0.5, out["rate"])
	assert.Equal(t, "2024-03-01T10:30:00Z", out["when"])
	assert.Equal(t, "2024Q2", out["period"])
	assert.Equal(t, []any{1.0, nil, 3.0}, out["series"])
	assert.Equal(t, []any{"a", "b"}, out["labels"])
	assert.Equal(t, map[string]any{"x": 1}, out["counts"])
	assert.Equal(t, map[string]any{"2024Q1": 5.0}, out["byPeriod"])
	assert.Equal(t, map[string]any{"ok": 1.5, "list": []any{nil, "x"}}, out["nested"])
	assert.Equal(t, "{1}", out["struct"])
}

func TestDocumentFallsBackToStringForm(t *testing.T) {
	out := Document(map[string]any{
		"bad":  []any{1, exploding{}},
		"good": 2.0,
	})
	assert.Equal(t, 2.0, out["good"])
	assert.IsType(t, "", out["bad"])
}

func TestCanonical(t *testing.T) {
	a, err := Canonical(map[string]any{"b": 1.0, "a": []any{true, "<x>"}, "c": math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["true","<x>"],"b":1}`, string(a))

	b, err := Canonical(map[string]any{"a": []any{true, "<x>"}, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)
}

// leaf maps a generated code onto a value the sanitizer has to handle.
func leaf(code int) any {
	switch code % 9 {
	case 0:
		return math.NaN()
	case 1:
		return math.Inf(1)
	case 2:
		return code%2 == 0
	case 3:
		return float64(code) / 3
	case 4:
		return code
	case 5:
		return "v" + string(rune('a'+code%26))
	case 6:
		return time.Date(2024, 1, 1+code%28, 0, 0, 0, 0, time.UTC)
	case 7:
		return nil
	default:
		return []float64{float64(code), math.NaN()}
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	build := func(codes []int) map[string]any {
		doc := map[string]any{}
		list := make([]any, 0, len(codes))
		for i, c := range codes {
			doc["k"+string(rune('a'+i%26))] = leaf(c)
			list = append(list, leaf(c+i))
		}
		doc["list"] = list
		doc["nested"] = map[string]any{"inner": list}
		return doc
	}

	properties.Property("sanitizing twice equals sanitizing once", prop.ForAll(
		func(codes []int) bool {
			once := Document(build(codes))
			return reflect.DeepEqual(once, Document(once))
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("canonical bytes are stable", prop.ForAll(
		func(codes []int) bool {
			a, err := Canonical(build(codes))
			if err != nil {
				return false
			}
			b, err := Canonical(Document(build(codes)))
			return err == nil && string(a) == string(b)
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}
