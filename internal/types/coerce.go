package types

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/tobsdb/tdbstore/pkg"
)

// Coerce converts input to the Go representation used for t:
//
//	string  -> string
//	number  -> float64
//	boolean -> bool
//	date    -> time.Time
//	object  -> map[string]any
//	array   -> []any
//
// nil is always accepted and returned as nil.
func Coerce(t FieldType, input any) (any, error) {
	if input == nil {
		return nil, nil
	}

	switch t {
	case FieldTypeString:
		return coerceString(input)
	case FieldTypeNumber:
		return coerceNumber(input)
	case FieldTypeBoolean:
		return coerceBoolean(input)
	case FieldTypeDate:
		return coerceDate(input)
	case FieldTypeObject:
		return coerceObject(input)
	case FieldTypeArray:
		return coerceArray(input)
	}
	return nil, fmt.Errorf("Unsupported field type %s", t)
}

func coerceString(input any) (any, error) {
	switch input := input.(type) {
	case string:
		return input, nil
	case []byte:
		return string(input), nil
	}
	return nil, invalidTypeError(FieldTypeString, input)
}

func coerceNumber(input any) (any, error) {
	if f, ok := pkg.NumToFloat(input); ok {
		return f, nil
	}
	if n, ok := input.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return nil, invalidTypeError(FieldTypeNumber, input)
		}
		return f, nil
	}
	return nil, invalidTypeError(FieldTypeNumber, input)
}

func coerceBoolean(input any) (any, error) {
	switch input := input.(type) {
	case bool:
		return input, nil
	case string:
		val, err := strconv.ParseBool(input)
		if err != nil {
			return nil, invalidTypeError(FieldTypeBoolean, input)
		}
		return val, nil
	}
	return nil, invalidTypeError(FieldTypeBoolean, input)
}

func coerceDate(input any) (any, error) {
	switch input := input.(type) {
	case time.Time:
		return input, nil
	case *time.Time:
		if input == nil {
			return nil, nil
		}
		return *input, nil
	case string:
		val, err := time.Parse(time.RFC3339Nano, input)
		if err != nil {
			return nil, invalidTypeError(FieldTypeDate, input)
		}
		return val, nil
	}
	// numbers are unix milliseconds
	if f, ok := pkg.NumToFloat(input); ok {
		return time.UnixMilli(int64(f)), nil
	}
	return nil, invalidTypeError(FieldTypeDate, input)
}

func coerceObject(input any) (any, error) {
	if m, ok := input.(map[string]any); ok {
		return m, nil
	}
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		m := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, nil
	}
	return nil, invalidTypeError(FieldTypeObject, input)
}

func coerceArray(input any) (any, error) {
	if a, ok := input.([]any); ok {
		return a, nil
	}
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		a := make([]any, v.Len())
		for i := range a {
			a[i] = v.Index(i).Interface()
		}
		return a, nil
	}
	return nil, invalidTypeError(FieldTypeArray, input)
}

type InvalidTypeError struct {
	Type  FieldType
	Input any
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("Invalid value for type %s: %T", e.Type, e.Input)
}

func invalidTypeError(t FieldType, input any) error {
	return &InvalidTypeError{Type: t, Input: input}
}

// ParseDefault converts the textual default of the schema language into a
// value of type t. Strings may be wrapped in single or double quotes.
func ParseDefault(t FieldType, raw string) (any, error) {
	switch t {
	case FieldTypeString:
		if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') && raw[len(raw)-1] == raw[0] {
			return raw[1 : len(raw)-1], nil
		}
		return raw, nil
	case FieldTypeNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("default(%s) is not a valid number", raw)
		}
		return f, nil
	case FieldTypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("default(%s) is not a valid boolean", raw)
		}
		return b, nil
	case FieldTypeDate:
		if raw == "now" {
			return time.Now(), nil
		}
		d, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("default(%s) is not a valid date", raw)
		}
		return d, nil
	case FieldTypeObject, FieldTypeArray:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("default(%s) is not valid json", raw)
		}
		return Coerce(t, v)
	}
	return nil, fmt.Errorf("Unsupported field type %s", t)
}
