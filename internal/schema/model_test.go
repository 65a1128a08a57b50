package schema_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/pkg/errors"
	. "github.com/tobsdb/tdbstore/internal/schema"
	"github.com/tobsdb/tdbstore/internal/types"
	"gotest.tools/assert"
)

func num(f float64) *float64 { return &f }

func TestNewModel(t *testing.T) {
	m, err := NewModel(ModelConfig{
		Name: "person",
		Fields: []FieldConfig{
			{Name: "firstname", Type: types.FieldTypeString, Required: true},
			{Name: "age", Type: types.FieldTypeNumber, Default: 0, Min: num(0)},
			{Name: "secret", Hidden: true},
		},
		Virtuals: []Virtual{
			{Name: "adult", Get: func(r Getter) any { return r.Get("age").(float64) >= 18 }},
		},
	})
	assert.NilError(t, err)
	assert.Equal(t, m.IDAttribute, "id")
	assert.DeepEqual(t, m.FieldNames(), []string{"firstname", "age", "secret", "id"})

	age, _ := m.Field("age")
	assert.Equal(t, age.Default, 0.0)

	secret, _ := m.Field("secret")
	assert.Equal(t, secret.Type, types.FieldTypeString)

	_, ok := m.Virtual("adult")
	assert.Assert(t, ok)
	assert.Assert(t, m.Has("adult"))
	assert.Assert(t, !m.Has("nothing"))
}

func TestDuplicateNames(t *testing.T) {
	other := MustModel(ModelConfig{Name: "other"})

	for name, cfg := range map[string]ModelConfig{
		"field": {
			Fields: []FieldConfig{{Name: "a"}, {Name: "a"}},
		},
		"virtual": {
			Fields:   []FieldConfig{{Name: "a"}},
			Virtuals: []Virtual{{Name: "a", Get: func(Getter) any { return nil }}},
		},
		"relationship": {
			Fields:        []FieldConfig{{Name: "a"}},
			Relationships: []Relationship{{Name: "a", Model: other}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			cfg.Name = "m"
			_, err := NewModel(cfg)
			var derr *DuplicateFieldError
			assert.Assert(t, errors.As(err, &derr))
			assert.Equal(t, derr.Name, "a")
			assert.Equal(t, derr.Kind, name)
			assert.ErrorContains(t, err, "Duplicate "+name+" a on model m")
		})
	}
}

func TestInvalidValidators(t *testing.T) {
	t.Run("nil predicate", func(t *testing.T) {
		_, err := NewModel(ModelConfig{Name: "m", Fields: []FieldConfig{
			{Name: "a", Validators: []Validator{Predicate("custom", nil)}},
		}})
		assert.ErrorContains(t, err, "custom validator is not a function")
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := NewModel(ModelConfig{Name: "m", Fields: []FieldConfig{
			{Name: "a", Pattern: "("},
		}})
		var verr *InvalidValidatorError
		assert.Assert(t, errors.As(err, &verr))
	})

	t.Run("nil pattern", func(t *testing.T) {
		_, err := NewModel(ModelConfig{Name: "m", Fields: []FieldConfig{
			{Name: "a", Validators: []Validator{Pattern(nil)}},
		}})
		assert.ErrorContains(t, err, "pattern validator has no expression")
	})

	t.Run("empty enum", func(t *testing.T) {
		_, err := NewModel(ModelConfig{Name: "m", Fields: []FieldConfig{
			{Name: "a", Validators: []Validator{Enum()}},
		}})
		assert.ErrorContains(t, err, "enum validator has no values")
	})

	t.Run("virtual without function", func(t *testing.T) {
		_, err := NewModel(ModelConfig{Name: "m", Virtuals: []Virtual{{Name: "v"}}})
		assert.ErrorContains(t, err, "virtual has no derivation function")
	})
}

func TestInvalidFields(t *testing.T) {
	_, err := NewModel(ModelConfig{Name: "m", Fields: []FieldConfig{
		{Name: "a", Type: "vector"},
	}})
	assert.ErrorContains(t, err, "unknown type vector")

	_, err = NewModel(ModelConfig{Name: "m", Fields: []FieldConfig{
		{Name: "a", Type: types.FieldTypeNumber, Default: "x"},
	}})
	assert.ErrorContains(t, err, "Invalid field a on model m; default")

	_, err = NewModel(ModelConfig{
		Name:        "m",
		IDAttribute: "v",
		Virtuals:    []Virtual{{Name: "v", Get: func(Getter) any { return 1 }}},
	})
	assert.ErrorContains(t, err, "id attribute must be a data field")
}

func TestInvalidRelationship(t *testing.T) {
	_, err := NewModel(ModelConfig{Name: "m", Relationships: []Relationship{{Name: "r"}}})
	var rerr *InvalidRelationshipError
	assert.Assert(t, errors.As(err, &rerr))
	assert.ErrorContains(t, err, "no model given")
}

func TestValidatorVariants(t *testing.T) {
	t.Run("predicate", func(t *testing.T) {
		v := Predicate("upper", func(value any) bool {
			s, ok := value.(string)
			return ok && s == strings.ToUpper(s)
		})
		assert.Equal(t, v.Kind, ValidatorPredicate)
		assert.Assert(t, v.Test("ABC"))
		assert.Assert(t, !v.Test("abc"))
	})

	t.Run("pattern", func(t *testing.T) {
		v := Pattern(regexp.MustCompile(`^\d+$`))
		assert.Assert(t, v.Test("123"))
		assert.Assert(t, !v.Test("12a"))
		assert.Assert(t, !v.Test(123))
	})

	t.Run("enum", func(t *testing.T) {
		v := Enum("a", 1)
		assert.Assert(t, v.Test("a"))
		assert.Assert(t, v.Test(1.0))
		assert.Assert(t, !v.Test("b"))
	})

	t.Run("exact", func(t *testing.T) {
		v := Exact(map[string]any{"a": 1})
		assert.Assert(t, v.Test(map[string]any{"a": 1.0}))
		assert.Assert(t, !v.Test(map[string]any{"a": 2}))
	})

	t.Run("min max by length", func(t *testing.T) {
		assert.Assert(t, Min(2).Test("ab"))
		assert.Assert(t, !Min(2).Test("a"))
		assert.Assert(t, Max(1).Test([]any{1}))
		assert.Assert(t, !Max(1).Test([]any{1, 2}))
		assert.Assert(t, !Min(0).Test(true))
	})
}

func TestFieldValidate(t *testing.T) {
	f, err := NewField(FieldConfig{Name: "n", Type: types.FieldTypeNumber, Max: num(10)})
	assert.NilError(t, err)

	assert.Assert(t, f.Validate(nil))
	assert.Assert(t, f.Validate(3))
	assert.Assert(t, !f.Validate("3"), "wrong type")
	assert.Assert(t, !f.Validate(11))
}

func TestDefaultValueIsCopied(t *testing.T) {
	f, err := NewField(FieldConfig{Name: "tags", Type: types.FieldTypeArray, Default: []any{"a"}})
	assert.NilError(t, err)

	a := f.DefaultValue().([]any)
	a[0] = "b"
	assert.DeepEqual(t, f.DefaultValue(), []any{"a"})
}
