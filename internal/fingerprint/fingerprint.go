// Package fingerprint hashes arbitrary record data in a way that does not
// depend on map iteration or key insertion order.
package fingerprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/tobsdb/tdbstore/pkg"
	"github.com/zeebo/xxh3"
)

// Of returns the hex encoded 128-bit xxh3 hash of the canonical form of v.
func Of(v any) string {
	h := xxh3.Hash128(Canonical(v))
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

// Sum is the 64-bit variant of Of.
func Sum(v any) uint64 {
	return xxh3.Hash(Canonical(v))
}

// Key returns the canonical form of v as a string. Two values share a key iff
// they are canonically equal; unlike Of there are no collisions.
func Key(v any) string {
	return string(Canonical(v))
}

func Equal(a, b any) bool {
	return bytes.Equal(Canonical(a), Canonical(b))
}

// Canonical serializes v deterministically: map keys are sorted, every
// number is written as a float64 and times are normalized to UTC.
func Canonical(v any) []byte {
	var buf bytes.Buffer
	write(&buf, v)
	return buf.Bytes()
}

func write(buf *bytes.Buffer, v any) {
	switch v := v.(type) {
	case nil:
		buf.WriteByte('n')
		return
	case bool:
		if v {
			buf.WriteByte('t')
		} else {
			buf.WriteByte('f')
		}
		return
	case string:
		writeString(buf, v)
		return
	case []byte:
		writeString(buf, string(v))
		return
	case time.Time:
		buf.WriteByte('T')
		buf.WriteString(v.UTC().Format(time.RFC3339Nano))
		buf.WriteByte(';')
		return
	case json.Number:
		if f, err := v.Float64(); err == nil {
			writeNumber(buf, f)
			return
		}
		writeString(buf, v.String())
		return
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		writeMap(buf, keys, func(k string) any { return v[k] })
		return
	case []any:
		buf.WriteByte('a')
		buf.WriteString(strconv.Itoa(len(v)))
		buf.WriteByte('[')
		for _, item := range v {
			write(buf, item)
		}
		buf.WriteByte(']')
		return
	}

	if f, ok := pkg.NumToFloat(v); ok {
		writeNumber(buf, f)
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			keys := make([]string, 0, rv.Len())
			for _, k := range rv.MapKeys() {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			writeMap(buf, keys, func(k string) any {
				return rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
			})
			return
		}
	case reflect.Slice, reflect.Array:
		buf.WriteByte('a')
		buf.WriteString(strconv.Itoa(rv.Len()))
		buf.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			write(buf, rv.Index(i).Interface())
		}
		buf.WriteByte(']')
		return
	case reflect.Pointer:
		if rv.IsNil() {
			buf.WriteByte('n')
			return
		}
		write(buf, rv.Elem().Interface())
		return
	}

	// anything else goes through its json form, decoded back into plain
	// values so struct field order does not matter either
	raw, err := json.Marshal(v)
	if err != nil {
		writeString(buf, fmt.Sprintf("%#v", v))
		return
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		writeString(buf, string(raw))
		return
	}
	write(buf, plain)
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('s')
	buf.WriteString(strconv.Itoa(len(s)))
	buf.WriteByte(':')
	buf.WriteString(s)
}

func writeNumber(buf *bytes.Buffer, f float64) {
	buf.WriteByte('d')
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	buf.WriteByte(';')
}

func writeMap(buf *bytes.Buffer, keys []string, get func(string) any) {
	buf.WriteByte('m')
	buf.WriteString(strconv.Itoa(len(keys)))
	buf.WriteByte('{')
	for _, k := range keys {
		writeString(buf, k)
		write(buf, get(k))
	}
	buf.WriteByte('}')
}
