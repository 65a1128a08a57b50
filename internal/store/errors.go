package store

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrRecordDestroyed     = errors.New("record is destroyed")
	ErrMissingModel        = errors.New("collection requires a model")
	ErrConflictingEviction = errors.New("fifo and lifo eviction are mutually exclusive")
	ErrRecordInCollection  = errors.New("record is already in the collection")
)

type UnknownFieldError struct {
	Model string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s is not a field of model %s", e.Field, e.Model)
}

type RecordLimitExceededError struct {
	Max int
}

func (e *RecordLimitExceededError) Error() string {
	return fmt.Sprintf("Maximum record count of %d exceeded", e.Max)
}

type MinimumRecordCountError struct {
	Min int
}

func (e *MinimumRecordCountError) Error() string {
	return fmt.Sprintf("Removing a record would drop below the minimum record count of %d", e.Min)
}

type DuplicateRecordError struct {
	Fingerprint string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("Duplicate record %s", e.Fingerprint)
}

type RecordNotFoundError struct {
	Position int
	Query    any
}

func (e *RecordNotFoundError) Error() string {
	if e.Query != nil {
		return fmt.Sprintf("record not found for %v", e.Query)
	}
	return fmt.Sprintf("record not found at position %d", e.Position)
}

type ModelMismatchError struct {
	Expected string
	Got      string
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("record of model %s cannot be stored in a collection of %s", e.Got, e.Expected)
}
