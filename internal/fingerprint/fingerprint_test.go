package fingerprint_test

import (
	"testing"
	"time"

	. "github.com/tobsdb/tdbstore/internal/fingerprint"
	"gotest.tools/assert"
)

func TestKeyOrderIndependence(t *testing.T) {
	a := map[string]any{"first": "John", "last": "Doe", "tags": []any{"x", 1}}
	b := map[string]any{"tags": []any{"x", 1.0}, "last": "Doe", "first": "John"}

	assert.Equal(t, Of(a), Of(b))
	assert.Equal(t, Sum(a), Sum(b))
	assert.Assert(t, Equal(a, b))
}

func TestDifferentDataDiffers(t *testing.T) {
	a := map[string]any{"first": "John"}
	b := map[string]any{"first": "Jane"}
	assert.Assert(t, Of(a) != Of(b))

	// element order of arrays matters
	assert.Assert(t, Of([]any{1, 2}) != Of([]any{2, 1}))
}

func TestNoTypeConfusion(t *testing.T) {
	assert.Assert(t, Key("1") != Key(1))
	assert.Assert(t, Key(nil) != Key(""))
	assert.Assert(t, Key(true) != Key("t"))
	assert.Assert(t, Key([]any{"ab"}) != Key([]any{"a", "b"}))
}

func TestNumbersAreNormalized(t *testing.T) {
	assert.Equal(t, Key(1), Key(1.0))
	assert.Equal(t, Key(int64(7)), Key(float32(7)))
}

func TestTimesAreNormalized(t *testing.T) {
	utc := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("x", 3600))
	assert.Equal(t, Key(utc), Key(local))
}

func TestTypedCollections(t *testing.T) {
	assert.Equal(t, Key([]string{"a", "b"}), Key([]any{"a", "b"}))
	assert.Equal(t, Key(map[string]int{"a": 1}), Key(map[string]any{"a": 1.0}))
}

func TestStructsUseJSONForm(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	assert.Equal(t, Key(point{1, 2}), Key(map[string]any{"y": 2, "x": 1}))
	assert.Equal(t, Key(&point{1, 2}), Key(point{1, 2}))
}

func TestOfLength(t *testing.T) {
	assert.Equal(t, len(Of(map[string]any{})), 32)
}
