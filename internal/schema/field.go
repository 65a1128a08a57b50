package schema

import (
	"github.com/tobsdb/tdbstore/internal/types"
)

// FieldConfig declares one data field. Pattern, Min, Max, Enum and Validate
// are shorthands that are compiled into Validators.
type FieldConfig struct {
	Name     string
	Type     types.FieldType
	Required bool
	Default  any
	Hidden   bool

	Pattern  string
	Min      *float64
	Max      *float64
	Enum     []any
	Validate func(value any) bool

	Validators []Validator
}

type Field struct {
	Name       string
	Type       types.FieldType
	Required   bool
	Default    any
	Hidden     bool
	Validators []Validator
}

func newField(model string, cfg FieldConfig) (*Field, error) {
	invalid := func(reason string) error {
		return &InvalidFieldError{Model: model, Field: cfg.Name, Reason: reason}
	}
	invalidValidator := func(reason string) error {
		return &InvalidValidatorError{Model: model, Field: cfg.Name, Reason: reason}
	}

	if len(cfg.Name) == 0 {
		return nil, invalid("field name cannot be empty")
	}
	if len(cfg.Type) == 0 {
		cfg.Type = types.FieldTypeString
	}
	if !cfg.Type.IsValid() {
		return nil, invalid("unknown type " + string(cfg.Type))
	}

	field := &Field{
		Name:     cfg.Name,
		Type:     cfg.Type,
		Required: cfg.Required,
		Hidden:   cfg.Hidden,
	}

	if cfg.Default != nil {
		def, err := types.Coerce(cfg.Type, cfg.Default)
		if err != nil {
			return nil, invalid("default " + err.Error())
		}
		field.Default = def
	}

	if len(cfg.Pattern) > 0 {
		v, err := PatternString(cfg.Pattern)
		if err != nil {
			return nil, invalidValidator(err.Error())
		}
		field.Validators = append(field.Validators, v)
	}
	if cfg.Min != nil {
		field.Validators = append(field.Validators, Min(*cfg.Min))
	}
	if cfg.Max != nil {
		field.Validators = append(field.Validators, Max(*cfg.Max))
	}
	if cfg.Enum != nil {
		field.Validators = append(field.Validators, Enum(cfg.Enum...))
	}
	if cfg.Validate != nil {
		field.Validators = append(field.Validators, Predicate("validate", cfg.Validate))
	}

	for _, v := range cfg.Validators {
		if err := v.check(); err != nil {
			return nil, invalidValidator(err.Error())
		}
		field.Validators = append(field.Validators, v)
	}

	for _, v := range field.Validators {
		if err := v.check(); err != nil {
			return nil, invalidValidator(err.Error())
		}
	}

	return field, nil
}

// NewField builds a standalone field, e.g. for Record.AddField.
func NewField(cfg FieldConfig) (*Field, error) {
	return newField("", cfg)
}

// Validate reports whether value satisfies the field. nil is valid unless the
// field is required; validators only run on non-nil values.
func (f *Field) Validate(value any) bool {
	if value == nil {
		return !f.Required
	}
	if _, err := types.Coerce(f.Type, value); err != nil {
		return false
	}
	for _, v := range f.Validators {
		if !v.Test(value) {
			return false
		}
	}
	return true
}

// DefaultValue returns a copy of the default so object and array defaults
// are never shared between records.
func (f *Field) DefaultValue() any {
	return CloneValue(f.Default)
}

func CloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[k] = CloneValue(item)
		}
		return m
	case []any:
		a := make([]any, len(v))
		for i, item := range v {
			a[i] = CloneValue(item)
		}
		return a
	}
	return v
}
