package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/tobsdb/tdbstore/internal/fingerprint"
	"github.com/tobsdb/tdbstore/pkg"
)

type ValidatorKind int

const (
	ValidatorPredicate ValidatorKind = iota
	ValidatorPattern
	ValidatorEnum
	ValidatorExact
)

func (k ValidatorKind) String() string {
	switch k {
	case ValidatorPredicate:
		return "predicate"
	case ValidatorPattern:
		return "pattern"
	case ValidatorEnum:
		return "enum"
	case ValidatorExact:
		return "exact"
	}
	return "unknown"
}

// Validator is one rule tested against a non-nil field value. Exactly one of
// the variant payloads is set, selected by Kind.
type Validator struct {
	Kind ValidatorKind
	Name string

	predicate func(any) bool
	pattern   *regexp.Regexp
	enum      []any
	exact     any
}

func Predicate(name string, fn func(value any) bool) Validator {
	return Validator{Kind: ValidatorPredicate, Name: name, predicate: fn}
}

func Pattern(re *regexp.Regexp) Validator {
	return Validator{Kind: ValidatorPattern, Name: "pattern", pattern: re}
}

// PatternString compiles expr into a Pattern validator.
func PatternString(expr string) (Validator, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Validator{}, err
	}
	return Pattern(re), nil
}

func Enum(values ...any) Validator {
	return Validator{Kind: ValidatorEnum, Name: "enum", enum: values}
}

func Exact(value any) Validator {
	return Validator{Kind: ValidatorExact, Name: "exact", exact: value}
}

// Min checks numbers by value, dates by unix milliseconds and strings,
// arrays and objects by length.
func Min(n float64) Validator {
	return Predicate("min", func(value any) bool {
		size, ok := measure(value)
		return ok && size >= n
	})
}

func Max(n float64) Validator {
	return Predicate("max", func(value any) bool {
		size, ok := measure(value)
		return ok && size <= n
	})
}

func measure(value any) (float64, bool) {
	if f, ok := pkg.NumToFloat(value); ok {
		return f, true
	}
	switch value := value.(type) {
	case string:
		return float64(len([]rune(value))), true
	case time.Time:
		return float64(value.UnixMilli()), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return float64(rv.Len()), true
	}
	return 0, false
}

func (v Validator) check() error {
	switch v.Kind {
	case ValidatorPredicate:
		if v.predicate == nil {
			return fmt.Errorf("%s validator is not a function", v.Name)
		}
	case ValidatorPattern:
		if v.pattern == nil {
			return fmt.Errorf("pattern validator has no expression")
		}
	case ValidatorEnum:
		if len(v.enum) == 0 {
			return fmt.Errorf("enum validator has no values")
		}
	case ValidatorExact:
	default:
		return fmt.Errorf("unknown validator kind %d", v.Kind)
	}
	return nil
}

func (v Validator) Test(value any) bool {
	switch v.Kind {
	case ValidatorPredicate:
		return v.predicate(value)
	case ValidatorPattern:
		s, ok := value.(string)
		return ok && v.pattern.MatchString(s)
	case ValidatorEnum:
		for _, member := range v.enum {
			if fingerprint.Equal(member, value) {
				return true
			}
		}
		return false
	case ValidatorExact:
		return fingerprint.Equal(v.exact, value)
	}
	return false
}
