package store

import "github.com/tobsdb/tdbstore/internal/event"

// record level events
const (
	EventFieldUpdate        = "field.update"
	EventFieldCreate        = "field.create"
	EventFieldRemove        = "field.remove"
	EventFieldInvalid       = "field.invalid"
	EventFieldValid         = "field.valid"
	EventRelationshipUpdate = "relationship.update"
	EventExpired            = "expired"
	EventDeleted            = "deleted"
	EventSchemaMismatch     = "schema.mismatch"
)

// collection level events
const (
	EventRecordCreate    = "record.create"
	EventRecordUpdate    = "record.update"
	EventRecordDelete    = "record.delete"
	EventRecordDuplicate = "record.duplicate"
	EventRecordMove      = "record.move"
	EventRecordRestored  = "record.restored"
	EventRecordPurged    = "record.purged"
	EventRecordInvalid   = "record.invalid"
	EventRecordValid     = "record.valid"
	EventRecordExpired   = "record.expired"
	EventReload          = "reload"
	EventClear           = "clear"
	EventSort            = "sort"
	EventSnapshot        = "snapshot"
	EventIndexCreate     = "index.create"
)

// EventLoad is raised by both records and collections after a bulk load.
const EventLoad = "load"

// Event is the payload of every record and collection event. Only the
// members relevant to an event are set.
type Event struct {
	Record *Record
	Field  string
	Old    any
	New    any
	Change *Change

	// Index is the record position; for record.delete the position it
	// was removed from.
	Index int
	From  int
	To    int

	Records  []*Record
	Snapshot *Snapshot
	// Keys lists unknown data keys for schema.mismatch.
	Keys []string
}

type Handler = event.Handler[Event]

// Observable is anything a proxy can subscribe to.
type Observable interface {
	On(name string, fn Handler) func()
}

// Proxy is the persistence boundary. It is handed the record or collection
// once and learns about every change through events; the store itself never
// performs I/O.
type Proxy interface {
	Init(target Observable) error
}
