package schema

import "fmt"

// DuplicateFieldError is returned when a name is declared twice across the
// fields, virtuals and relationships of one model.
type DuplicateFieldError struct {
	Model string
	Name  string
	// Kind of the second declaration: "field", "virtual" or "relationship".
	Kind string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("Duplicate %s %s on model %s", e.Kind, e.Name, e.Model)
}

type InvalidValidatorError struct {
	Model  string
	Field  string
	Reason string
}

func (e *InvalidValidatorError) Error() string {
	return fmt.Sprintf("Invalid validator on %s.%s; %s", e.Model, e.Field, e.Reason)
}

type InvalidFieldError struct {
	Model  string
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("Invalid field %s on model %s; %s", e.Field, e.Model, e.Reason)
}

type InvalidRelationshipError struct {
	Model  string
	Name   string
	Reason string
}

func (e *InvalidRelationshipError) Error() string {
	return fmt.Sprintf("Invalid relationship %s on model %s; %s", e.Name, e.Model, e.Reason)
}

// ParseError carries the line of the schema source that failed.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error parsing line %d: %s", e.Line, e.Reason)
}

func ParseLineError(line int, reason string) error {
	return &ParseError{Line: line, Reason: reason}
}
