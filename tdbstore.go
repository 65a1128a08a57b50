// Package tdbstore is an indexed, typed, in-memory record store.
//
// Records are bound to a Model and validate every field on write. A
// Collection keeps records in order, maintains value indexes, supports soft
// delete with a purge timer, FIFO/LIFO eviction and snapshots. Every change
// is published as an event; persistence is left to a Proxy.
package tdbstore

import (
	"github.com/tobsdb/tdbstore/internal/config"
	"github.com/tobsdb/tdbstore/internal/proxy"
	"github.com/tobsdb/tdbstore/internal/schema"
	"github.com/tobsdb/tdbstore/internal/store"
	"github.com/tobsdb/tdbstore/internal/types"
)

type (
	Model        = schema.Model
	ModelConfig  = schema.ModelConfig
	FieldConfig  = schema.FieldConfig
	Field        = schema.Field
	Validator    = schema.Validator
	Virtual      = schema.Virtual
	Relationship = schema.Relationship
	Getter       = schema.Getter
	Schema       = schema.Schema
	FieldType    = types.FieldType

	Record     = store.Record
	Collection = store.Collection
	Options    = store.Options
	Event      = store.Event
	Handler    = store.Handler
	Change     = store.Change
	Snapshot   = store.Snapshot
	SortKey    = store.SortKey
	Filter     = store.Filter
	Proxy      = store.Proxy
	Observable = store.Observable

	Journal   = proxy.Journal
	WebSocket = proxy.WebSocket
	Config    = config.Config
)

const (
	String  = types.FieldTypeString
	Number  = types.FieldTypeNumber
	Boolean = types.FieldTypeBoolean
	Date    = types.FieldTypeDate
	Object  = types.FieldTypeObject
	Array   = types.FieldTypeArray

	EvictNone = store.EvictNone
	EvictFIFO = store.EvictFIFO
	EvictLIFO = store.EvictLIFO
)

var (
	NewModel        = schema.NewModel
	MustModel       = schema.MustModel
	ParseSchema     = schema.ParseSchema
	ParseSchemaFile = schema.ParseSchemaFile

	Predicate     = schema.Predicate
	Pattern       = schema.Pattern
	PatternString = schema.PatternString
	Enum          = schema.Enum
	Exact         = schema.Exact
	Min           = schema.Min
	Max           = schema.Max

	NewRecord     = store.NewRecord
	NewCollection = store.NewCollection
	Asc           = store.Asc
	Desc          = store.Desc

	NewJournal   = proxy.NewJournal
	NewWebSocket = proxy.NewWebSocket

	// Open builds the collection described by a TOML config file.
	Open = config.Open
)
