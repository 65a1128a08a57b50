package store

import (
	"time"

	"github.com/tobsdb/tdbstore/internal/schema"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change is one changelog entry. Sequence increases monotonically per record
// and is never reused, even after an undo.
type Change struct {
	Action   Action
	Field    string
	Old      any
	New      any
	Sequence int
	Time     time.Time

	// definition of a deleted field, needed to undo the delete
	def *schema.Field
}
