package types

import (
	"slices"
	"strings"
)

var VALID_BUILTIN_TYPES = []FieldType{
	FieldTypeString, FieldTypeNumber, FieldTypeBoolean,
	FieldTypeDate, FieldTypeObject, FieldTypeArray,
}

type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeDate    FieldType = "date"
	FieldTypeObject  FieldType = "object"
	FieldTypeArray   FieldType = "array"
)

func (t FieldType) IsValid() bool {
	return slices.Contains(VALID_BUILTIN_TYPES, t)
}

// ParseFieldType accepts both the schema language spelling ("String")
// and the canonical lower case names.
func ParseFieldType(s string) (FieldType, bool) {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "bool":
		t = FieldTypeBoolean
	case "int", "float":
		t = FieldTypeNumber
	}
	return t, t.IsValid()
}
