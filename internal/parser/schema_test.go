package parser_test

import (
	"testing"

	. "github.com/tobsdb/tdbstore/internal/parser"
	"github.com/tobsdb/tdbstore/internal/props"
	"github.com/tobsdb/tdbstore/internal/types"
	"gotest.tools/assert"
)

func TestLineParser(t *testing.T) {
	t.Run("model declaration", func(t *testing.T) {
		state, data, err := LineParser("$MODEL a {")

		assert.NilError(t, err)
		assert.Equal(t, state, ParserStateModelStart)
		assert.Equal(t, data.Name, "a")
	})

	t.Run("model missing name", func(t *testing.T) {
		state, _, err := LineParser("$MODEL {")

		assert.ErrorContains(t, err, "Invalid line")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("model declaration missing opening bracket", func(t *testing.T) {
		state, _, err := LineParser("$MODEL a")

		assert.ErrorContains(t, err, "Invalid line")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("model name with space", func(t *testing.T) {
		state, _, err := LineParser("$MODEL a b {")

		assert.ErrorContains(t, err, "Model name cannot include space")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("model name invalid character", func(t *testing.T) {
		state, _, err := LineParser("$MODEL a-b {")

		assert.ErrorContains(t, err, "Model name contains invalid characters")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("model declaration end", func(t *testing.T) {
		state, _, err := LineParser("}")

		assert.NilError(t, err)
		assert.Equal(t, state, ParserStateModelEnd)
	})

	t.Run("field declaration", func(t *testing.T) {
		state, data, err := LineParser("a Number required(true) min(1)")

		assert.NilError(t, err)
		assert.Equal(t, state, ParserStateNewField)
		assert.Equal(t, data.Name, "a")
		assert.Equal(t, data.Builtin_type, types.FieldTypeNumber)
		assert.Equal(t, data.Properties[props.FieldPropRequired], "true")
		assert.Equal(t, data.Properties[props.FieldPropMin], "1")
	})

	t.Run("pattern with parentheses", func(t *testing.T) {
		_, data, err := LineParser(`email String pattern(^(a|b)+@x\)$)`)

		assert.NilError(t, err)
		assert.Equal(t, data.Properties[props.FieldPropPattern], `^(a|b)+@x)$`)
	})

	t.Run("enum with spaces", func(t *testing.T) {
		_, data, err := LineParser(`role String enum(admin, member)`)

		assert.NilError(t, err)
		assert.Equal(t, data.Properties[props.FieldPropEnum], "admin, member")
	})

	t.Run("field name invalid character", func(t *testing.T) {
		state, _, err := LineParser("a-b Number")

		assert.ErrorContains(t, err, "Field name contains invalid characters")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("field declaration without type", func(t *testing.T) {
		state, _, err := LineParser("a")

		assert.ErrorContains(t, err, "Field a does not have a type")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("field declaration with unknown type", func(t *testing.T) {
		state, _, err := LineParser("a Vector")

		assert.ErrorContains(t, err, "Invalid field type: Vector")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("unknown field prop", func(t *testing.T) {
		state, _, err := LineParser("a Number x(true)")

		assert.ErrorContains(t, err, "Invalid field prop: x")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("field prop with no value", func(t *testing.T) {
		state, _, err := LineParser("a Number required()")

		assert.ErrorContains(t, err, "No value for prop: required")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("invalid field prop value", func(t *testing.T) {
		state, _, err := LineParser("a Number hidden(x)")

		assert.ErrorContains(t, err, "hidden(x) is not a valid prop")
		assert.Equal(t, state, ParserStateIdle)
	})

	t.Run("unclosed field prop", func(t *testing.T) {
		_, _, err := LineParser("a String pattern(^a(")

		assert.ErrorContains(t, err, "Unclosed field prop: pattern")
	})

	t.Run("duplicate field prop", func(t *testing.T) {
		_, _, err := LineParser("a Number min(1) min(2)")

		assert.ErrorContains(t, err, "Duplicate field prop: min")
	})

	t.Run("single relationship", func(t *testing.T) {
		state, data, err := LineParser("profile -> profile")

		assert.NilError(t, err)
		assert.Equal(t, state, ParserStateNewRelation)
		assert.Equal(t, data.Name, "profile")
		assert.Equal(t, data.Relation, "profile")
		assert.Assert(t, !data.Many)
	})

	t.Run("collection relationship", func(t *testing.T) {
		state, data, err := LineParser("posts -> []post")

		assert.NilError(t, err)
		assert.Equal(t, state, ParserStateNewRelation)
		assert.Equal(t, data.Relation, "post")
		assert.Assert(t, data.Many)
	})
}

func TestLineParserArrowInsidePattern(t *testing.T) {
	state, data, err := LineParser("a String pattern(x->y)")

	assert.NilError(t, err)
	assert.Equal(t, state, ParserStateNewField)
	assert.Equal(t, data.Properties[props.FieldPropPattern], "x->y")
}
