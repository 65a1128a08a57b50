package props

import "slices"

type FieldProp string

var VALID_BUILTIN_PROPS = []FieldProp{
	FieldPropRequired, FieldPropDefault, FieldPropHidden, FieldPropPattern,
	FieldPropMin, FieldPropMax, FieldPropEnum, FieldPropExact, FieldPropId,
}

const (
	FieldPropRequired FieldProp = "required" // required(true/false)
	FieldPropDefault  FieldProp = "default"
	FieldPropHidden   FieldProp = "hidden" // hidden(true/false)
	FieldPropPattern  FieldProp = "pattern"
	FieldPropMin      FieldProp = "min"
	FieldPropMax      FieldProp = "max"
	FieldPropEnum     FieldProp = "enum" // enum(a, b, c)
	FieldPropExact    FieldProp = "exact"
	FieldPropId       FieldProp = "id" // id(true) marks the id attribute
)

func (p FieldProp) IsValid() bool {
	return slices.Contains(VALID_BUILTIN_PROPS, p)
}

// IsBool reports whether the prop only takes true/false.
func (p FieldProp) IsBool() bool {
	return p == FieldPropRequired || p == FieldPropHidden || p == FieldPropId
}
