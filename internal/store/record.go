package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tobsdb/tdbstore/internal/event"
	"github.com/tobsdb/tdbstore/internal/fingerprint"
	"github.com/tobsdb/tdbstore/internal/schema"
	"github.com/tobsdb/tdbstore/internal/types"
	"github.com/tobsdb/tdbstore/pkg"
)

// nested is a record relationship: a single child Record or a child
// Collection for many-relationships.
type nested interface {
	nestedData() any
	loadNested(data any) error
	nestedValid() bool
	observe(fn func()) func()
}

// Record is a single schema-bound entity. All methods are safe for
// concurrent use; events are always raised after the record lock is
// released.
type Record struct {
	locker sync.RWMutex
	model  *schema.Model
	cid    string

	fields        *pkg.InsertSortMap[string, *schema.Field]
	raw           map[string]any
	relationships map[string]nested
	invalid       map[string]struct{}

	changelog []Change
	sequence  int
	baseline  string

	is_new       bool
	is_destroyed bool
	// relationship.update is not raised while > 0
	suppress int

	ignore_ttl   bool
	expired      bool
	expires_at   time.Time
	expire_timer *time.Timer
	expire_gen   int

	events *event.Bus[Event]
}

// NewRecord builds a record of model, seeded from data. A record without
// seed data is new; a seeded record is treated as loaded.
func NewRecord(model *schema.Model, data map[string]any) (*Record, error) {
	if model == nil {
		return nil, ErrMissingModel
	}

	r := &Record{
		model:         model,
		cid:           uuid.NewString(),
		fields:        pkg.NewInsertSortMap[string, *schema.Field](),
		raw:           make(map[string]any),
		relationships: make(map[string]nested),
		invalid:       make(map[string]struct{}),
		is_new:        true,
		events:        event.NewBus[Event](),
	}

	for _, f := range model.Fields() {
		r.fields.Push(f.Name, f)
		r.raw[f.Name] = f.DefaultValue()
	}

	for _, rel := range model.Relationships() {
		var n nested
		if rel.Many {
			c, err := NewCollection(Options{Model: rel.Model})
			if err != nil {
				return nil, errors.Wrapf(err, "relationship %s", rel.Name)
			}
			n = c
		} else {
			child, err := NewRecord(rel.Model, nil)
			if err != nil {
				return nil, errors.Wrapf(err, "relationship %s", rel.Name)
			}
			n = child
		}
		name := rel.Name
		n.observe(func() { r.childChanged(name) })
		r.relationships[name] = n
	}

	if data != nil {
		if err := r.Load(data); err != nil {
			return nil, err
		}
		return r, nil
	}

	r.validateAll()
	r.baseline = fingerprint.Of(r.Data())
	return r, nil
}

func (r *Record) GetLocker() *sync.RWMutex { return &r.locker }

func (r *Record) Model() *schema.Model { return r.model }

// ClientID is a process-unique identity assigned at construction, independent
// of the id attribute.
func (r *Record) ClientID() string { return r.cid }

func (r *Record) ID() any { return r.Get(r.model.IDAttribute) }

func (r *Record) IsNew() bool {
	return pkg.RLockRead(r, func() bool { return r.is_new })
}

func (r *Record) IsDestroyed() bool {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return r.is_destroyed
}

func (r *Record) On(name string, fn Handler) func() { return r.events.On(name, fn) }

func (r *Record) Once(name string, fn Handler) func() { return r.events.Once(name, fn) }

// Attach hands the record to a persistence proxy.
func (r *Record) Attach(p Proxy) error { return p.Init(r) }

func (r *Record) emit(name string, e Event) {
	e.Record = r
	r.events.Emit(name, e)
}

// Get reads a data field, a virtual field or a relationship. Relationships
// return the nested *Record or *Collection.
func (r *Record) Get(name string) any {
	if v, ok := r.model.Virtual(name); ok {
		return v.Get(r)
	}

	r.locker.RLock()
	defer r.locker.RUnlock()
	if n, ok := r.relationships[name]; ok {
		return n
	}
	return r.raw[name]
}

// Related returns the nested record of a single relationship.
func (r *Record) Related(name string) (*Record, bool) {
	r.locker.RLock()
	defer r.locker.RUnlock()
	child, ok := r.relationships[name].(*Record)
	return child, ok
}

// RelatedCollection returns the nested collection of a many relationship.
func (r *Record) RelatedCollection(name string) (*Collection, bool) {
	r.locker.RLock()
	defer r.locker.RUnlock()
	c, ok := r.relationships[name].(*Collection)
	return c, ok
}

func (r *Record) HasField(name string) bool {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return r.fields.Has(name)
}

// FieldNames lists data fields in declaration order, dynamic fields last.
func (r *Record) FieldNames() []string {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return r.fields.Keys()
}

// Set assigns a data field or replaces the content of a relationship. The
// value is coerced to the field type; a value that cannot be coerced is
// stored as given and leaves the field invalid. Validation failures are
// reported through field.invalid, never as an error.
func (r *Record) Set(name string, value any) error {
	r.locker.Lock()
	if r.is_destroyed {
		r.locker.Unlock()
		return ErrRecordDestroyed
	}

	if n, ok := r.relationships[name]; ok {
		r.locker.Unlock()
		return n.loadNested(value)
	}

	field, ok := r.fields.Idx[name]
	if !ok {
		r.locker.Unlock()
		return &UnknownFieldError{Model: r.model.Name, Field: name}
	}

	coerced, err := types.Coerce(field.Type, value)
	if err != nil {
		coerced = value
	}

	old := r.raw[name]
	if fingerprint.Equal(old, coerced) {
		r.locker.Unlock()
		return nil
	}

	r.raw[name] = coerced
	change := r.appendChange(ActionUpdate, name, old, coerced, nil)
	_, was_invalid := r.invalid[name]
	valid := r.validateField(field)
	r.locker.Unlock()

	r.emit(EventFieldUpdate, Event{Field: name, Old: old, New: coerced, Change: &change})
	r.emitValidity(name, valid, was_invalid)
	return nil
}

func (r *Record) emitValidity(name string, valid, was_invalid bool) {
	if !valid {
		r.emit(EventFieldInvalid, Event{Field: name})
	} else if was_invalid {
		r.emit(EventFieldValid, Event{Field: name})
	}
}

// must hold lock
func (r *Record) appendChange(action Action, field string, old, new any, def *schema.Field) Change {
	r.sequence++
	change := Change{
		Action:   action,
		Field:    field,
		Old:      old,
		New:      new,
		Sequence: r.sequence,
		Time:     time.Now(),
		def:      def,
	}
	r.changelog = append(r.changelog, change)
	return change
}

// must hold lock
func (r *Record) validateField(f *schema.Field) bool {
	if f.Validate(r.raw[f.Name]) {
		delete(r.invalid, f.Name)
		return true
	}
	r.invalid[f.Name] = struct{}{}
	return false
}

func (r *Record) validateAll() {
	r.locker.Lock()
	defer r.locker.Unlock()
	for _, f := range r.fields.Values() {
		r.validateField(f)
	}
}

// Validate re-checks the named fields, or every field when none are given,
// and reports whether all of them are valid.
func (r *Record) Validate(fields ...string) bool {
	r.locker.Lock()
	defer r.locker.Unlock()
	if len(fields) == 0 {
		fields = r.fields.Keys()
	}

	valid := true
	for _, name := range fields {
		f, ok := r.fields.Idx[name]
		if !ok {
			continue
		}
		if !r.validateField(f) {
			valid = false
		}
	}
	return valid
}

// Valid reports whether every data field and every nested relationship is
// valid.
func (r *Record) Valid() bool {
	r.locker.RLock()
	invalid := len(r.invalid)
	rels := r.relationshipList()
	r.locker.RUnlock()

	if invalid > 0 {
		return false
	}
	for _, n := range rels {
		if !n.nestedValid() {
			return false
		}
	}
	return true
}

// InvalidDataAttributes lists the invalid fields in field order.
func (r *Record) InvalidDataAttributes() []string {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return pkg.Filter(r.fields.Keys(), func(name string) bool {
		_, ok := r.invalid[name]
		return ok
	})
}

// must hold lock
func (r *Record) relationshipList() []nested {
	names := make([]string, 0, len(r.relationships))
	for name := range r.relationships {
		names = append(names, name)
	}
	sort.Strings(names)
	rels := make([]nested, len(names))
	for i, name := range names {
		rels[i] = r.relationships[name]
	}
	return rels
}

// Data is the JSON-compatible view of the record: data fields minus hidden
// ones, plus nested relationship data. Virtual fields are not included.
func (r *Record) Data() map[string]any {
	r.locker.RLock()
	data := make(map[string]any, r.fields.Len()+len(r.relationships))
	for _, f := range r.fields.Values() {
		if f.Hidden {
			continue
		}
		data[f.Name] = schema.CloneValue(r.raw[f.Name])
	}
	rels := make(map[string]nested, len(r.relationships))
	for name, n := range r.relationships {
		rels[name] = n
	}
	r.locker.RUnlock()

	for name, n := range rels {
		data[name] = n.nestedData()
	}
	return data
}

// Representation is Data plus the evaluated virtual fields.
func (r *Record) Representation() map[string]any {
	data := r.Data()
	for _, v := range r.model.Virtuals() {
		data[v.Name] = v.Get(r)
	}
	return data
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Data())
}

func (r *Record) String() string {
	return fmt.Sprintf("%s(%v)", r.model.Name, r.ID())
}

// Fingerprint is a stable checksum of Data, independent of map ordering.
func (r *Record) Fingerprint() string {
	return fingerprint.Of(r.Data())
}

// Modified reports whether Data differs from the last load, or from the
// construction state of a new record.
func (r *Record) Modified() bool {
	fp := r.Fingerprint()
	r.locker.RLock()
	defer r.locker.RUnlock()
	return fp != r.baseline
}

// Changelog returns a copy of the undo history, oldest first.
func (r *Record) Changelog() []Change {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return slices.Clone(r.changelog)
}

// Undo reverts the last n changes, newest first, raising the inverse field
// event for each. Undone changes are dropped from the changelog.
func (r *Record) Undo(n int) error {
	if n < 1 {
		n = 1
	}

	r.locker.Lock()
	if r.is_destroyed {
		r.locker.Unlock()
		return ErrRecordDestroyed
	}

	type pending struct {
		name string
		e    Event
	}
	var events []pending
	validity := map[string][2]bool{}

	for i := 0; i < n && len(r.changelog) > 0; i++ {
		c := r.changelog[len(r.changelog)-1]
		r.changelog = r.changelog[:len(r.changelog)-1]

		switch c.Action {
		case ActionUpdate:
			f, ok := r.fields.Idx[c.Field]
			if !ok {
				continue
			}
			cur := r.raw[c.Field]
			r.raw[c.Field] = c.Old
			_, was_invalid := r.invalid[c.Field]
			valid := r.validateField(f)
			validity[c.Field] = [2]bool{valid, was_invalid}
			events = append(events, pending{EventFieldUpdate, Event{Field: c.Field, Old: cur, New: c.Old}})
		case ActionCreate:
			cur := r.raw[c.Field]
			r.fields.Delete(c.Field)
			delete(r.raw, c.Field)
			delete(r.invalid, c.Field)
			delete(validity, c.Field)
			events = append(events, pending{EventFieldRemove, Event{Field: c.Field, Old: cur}})
		case ActionDelete:
			if c.def == nil {
				continue
			}
			r.fields.Push(c.Field, c.def)
			r.raw[c.Field] = c.Old
			r.validateField(c.def)
			events = append(events, pending{EventFieldCreate, Event{Field: c.Field, New: c.Old}})
		}
	}
	r.locker.Unlock()

	for _, p := range events {
		r.emit(p.name, p.e)
	}
	for name, v := range validity {
		r.emitValidity(name, v[0], v[1])
	}
	return nil
}

// AddField attaches a data field that is not part of the model.
func (r *Record) AddField(cfg schema.FieldConfig) error {
	field, err := schema.NewField(cfg)
	if err != nil {
		return err
	}

	r.locker.Lock()
	if r.is_destroyed {
		r.locker.Unlock()
		return ErrRecordDestroyed
	}
	if r.fields.Has(field.Name) || r.relationships[field.Name] != nil {
		r.locker.Unlock()
		return &schema.DuplicateFieldError{Model: r.model.Name, Name: field.Name, Kind: "field"}
	}
	if _, ok := r.model.Virtual(field.Name); ok {
		r.locker.Unlock()
		return &schema.DuplicateFieldError{Model: r.model.Name, Name: field.Name, Kind: "virtual"}
	}

	value := field.DefaultValue()
	r.fields.Push(field.Name, field)
	r.raw[field.Name] = value
	change := r.appendChange(ActionCreate, field.Name, nil, value, nil)
	valid := r.validateField(field)
	r.locker.Unlock()

	r.emit(EventFieldCreate, Event{Field: field.Name, New: value, Change: &change})
	r.emitValidity(field.Name, valid, false)
	return nil
}

// RemoveField detaches a data field. The id attribute cannot be removed.
func (r *Record) RemoveField(name string) error {
	r.locker.Lock()
	if r.is_destroyed {
		r.locker.Unlock()
		return ErrRecordDestroyed
	}
	field, ok := r.fields.Idx[name]
	if !ok {
		r.locker.Unlock()
		return &UnknownFieldError{Model: r.model.Name, Field: name}
	}
	if name == r.model.IDAttribute {
		r.locker.Unlock()
		return errors.Errorf("cannot remove id attribute %s", name)
	}

	old := r.raw[name]
	r.fields.Delete(name)
	delete(r.raw, name)
	delete(r.invalid, name)
	change := r.appendChange(ActionDelete, name, old, nil, field)
	r.locker.Unlock()

	r.emit(EventFieldRemove, Event{Field: name, Old: old, Change: &change})
	return nil
}

// Load replaces field values in bulk without recording changes. Unknown keys
// are ignored and reported through schema.mismatch. Afterwards the changelog
// is empty and the record is no longer new or modified.
func (r *Record) Load(data map[string]any) error {
	r.locker.Lock()
	if r.is_destroyed {
		r.locker.Unlock()
		return ErrRecordDestroyed
	}
	r.suppress++
	was_invalid := maps.Clone(r.invalid)

	var unknown []string
	rels := map[string]any{}
	for k, v := range data {
		if f, ok := r.fields.Idx[k]; ok {
			coerced, err := types.Coerce(f.Type, v)
			if err != nil {
				coerced = v
			}
			r.raw[k] = coerced
			continue
		}
		if _, ok := r.relationships[k]; ok {
			rels[k] = v
			continue
		}
		if _, ok := r.model.Virtual(k); ok {
			continue
		}
		unknown = append(unknown, k)
	}
	nodes := make(map[string]nested, len(rels))
	for k := range rels {
		nodes[k] = r.relationships[k]
	}
	r.locker.Unlock()

	var load_err error
	for k, v := range rels {
		if err := nodes[k].loadNested(v); err != nil && load_err == nil {
			load_err = errors.Wrapf(err, "relationship %s", k)
		}
	}

	fp := r.Fingerprint()
	r.locker.Lock()
	r.suppress--
	var invalid, repaired []string
	for _, f := range r.fields.Values() {
		if !r.validateField(f) {
			invalid = append(invalid, f.Name)
		} else if _, ok := was_invalid[f.Name]; ok {
			repaired = append(repaired, f.Name)
		}
	}
	r.changelog = nil
	r.is_new = false
	r.baseline = fp
	r.locker.Unlock()

	if len(unknown) > 0 {
		sort.Strings(unknown)
		pkg.WarnLog("model", r.model.Name, "ignored unknown keys", unknown)
		r.emit(EventSchemaMismatch, Event{Keys: unknown})
	}
	r.emit(EventLoad, Event{})
	for _, name := range invalid {
		r.emit(EventFieldInvalid, Event{Field: name})
	}
	for _, name := range repaired {
		r.emit(EventFieldValid, Event{Field: name})
	}
	return load_err
}

func (r *Record) childChanged(name string) {
	r.locker.RLock()
	skip := r.suppress > 0 || r.is_destroyed
	r.locker.RUnlock()
	if skip {
		return
	}
	r.emit(EventRelationshipUpdate, Event{Field: name})
}

// Destroy marks the record deleted and raises deleted. Collections destroy
// their records on removal.
func (r *Record) Destroy() {
	if fn := r.destroy(); fn != nil {
		fn()
	}
}

// destroy flips the record state and returns the deferred deleted event, or
// nil if the record was already destroyed.
func (r *Record) destroy() func() {
	r.locker.Lock()
	defer r.locker.Unlock()
	if r.is_destroyed {
		return nil
	}
	r.is_destroyed = true
	r.stopExpireTimer()
	return func() { r.emit(EventDeleted, Event{}) }
}

func (r *Record) revive() {
	r.locker.Lock()
	defer r.locker.Unlock()
	r.is_destroyed = false
}

func (r *Record) nestedData() any { return r.Data() }

func (r *Record) nestedValid() bool { return r.Valid() }

func (r *Record) loadNested(data any) error {
	switch data := data.(type) {
	case nil:
		return nil
	case *Record:
		return r.Load(data.Data())
	case map[string]any:
		return r.Load(data)
	}
	return errors.Errorf("cannot load %T into %s", data, r.model.Name)
}

var recordChangeEvents = map[string]bool{
	EventFieldUpdate:        true,
	EventFieldCreate:        true,
	EventFieldRemove:        true,
	EventRelationshipUpdate: true,
	EventLoad:               true,
}

func (r *Record) observe(fn func()) func() {
	return r.events.On(event.Wildcard, func(name string, _ Event) {
		if recordChangeEvents[name] {
			fn()
		}
	})
}
