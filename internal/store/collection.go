package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tobsdb/tdbstore/internal/event"
	"github.com/tobsdb/tdbstore/internal/fingerprint"
	"github.com/tobsdb/tdbstore/internal/index"
	"github.com/tobsdb/tdbstore/internal/schema"
	"github.com/tobsdb/tdbstore/pkg"
	sorted "github.com/tobshub/go-sortedmap"
)

type EvictionPolicy string

const (
	EvictNone EvictionPolicy = ""
	// EvictFIFO removes the oldest record to make room for a new one.
	EvictFIFO EvictionPolicy = "fifo"
	// EvictLIFO removes the newest record to make room for a new one.
	EvictLIFO EvictionPolicy = "lifo"
)

func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	switch EvictionPolicy(s) {
	case EvictNone, "none":
		return EvictNone, nil
	case EvictFIFO, EvictLIFO:
		return EvictionPolicy(s), nil
	}
	return EvictNone, errors.Errorf("Invalid eviction policy: %s", s)
}

type Options struct {
	Model *schema.Model

	// zero means unbounded
	MaxRecords int
	MinRecords int

	Eviction EvictionPolicy
	// EvictionLimit is the size that triggers eviction. Defaults to
	// MaxRecords.
	EvictionLimit int

	RejectDuplicates bool

	SoftDelete bool
	// SoftDeleteTTL purges soft deleted records after the duration. Zero
	// keeps them until purged or restored.
	SoftDeleteTTL time.Duration

	// AutoRemoveExpired removes records as soon as they expire.
	AutoRemoveExpired bool

	Indexes []string
	Proxy   Proxy
}

func (o *Options) evictionLimit() int {
	if o.EvictionLimit > 0 {
		return o.EvictionLimit
	}
	return o.MaxRecords
}

func (o *Options) validate() error {
	if o.Model == nil {
		return ErrMissingModel
	}
	if _, err := ParseEvictionPolicy(string(o.Eviction)); err != nil {
		return ErrConflictingEviction
	}
	if o.MaxRecords < 0 || o.MinRecords < 0 || o.EvictionLimit < 0 {
		return errors.New("record limits cannot be negative")
	}
	if o.MaxRecords > 0 && o.MinRecords > o.MaxRecords {
		return errors.Errorf("minimum record count %d exceeds maximum %d", o.MinRecords, o.MaxRecords)
	}
	if o.Eviction != EvictNone && o.evictionLimit() == 0 {
		return errors.Errorf("%s eviction requires a record limit", o.Eviction)
	}
	if o.MaxRecords > 0 && o.EvictionLimit > o.MaxRecords {
		return errors.Errorf("eviction limit %d exceeds maximum %d", o.EvictionLimit, o.MaxRecords)
	}
	return nil
}

type archived struct {
	record      *Record
	fingerprint string
	deleted_at  time.Time
	expires_at  time.Time
	seq         int
	timer       *time.Timer
}

// Collection is an ordered list of records of one model.
//
// Every mutation runs under the collection lock. Events raised during a
// mutation are queued and dispatched after the lock is released, so handlers
// may call back into the collection.
type Collection struct {
	locker sync.RWMutex
	opts   Options
	model  *schema.Model

	items   []*Record
	index   *index.Index
	created map[*Record]struct{}
	relays  map[*Record]func()

	filters   []filter
	filter_id int

	// soft deleted entries by deletion sequence, and the sequences under
	// each fingerprint oldest first
	archive     *sorted.SortedMap[int, *archived]
	archive_fps map[string][]int
	archive_seq int
	snapshots   []*Snapshot

	events  *event.Bus[Event]
	pending []func()
	// set while a bulk load runs; evictions stay quiet
	loading bool
}

func NewCollection(opts Options) (*Collection, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	c := &Collection{
		opts:    opts,
		model:   opts.Model,
		index:   index.New(),
		created: make(map[*Record]struct{}),
		relays:  make(map[*Record]func()),
		archive: sorted.New[int, *archived](0, func(a, b *archived) bool {
			return a.seq < b.seq
		}),
		archive_fps: make(map[string][]int),
		events:      event.NewBus[Event](),
	}

	for _, field := range opts.Indexes {
		c.CreateIndex(field)
	}

	if opts.Proxy != nil {
		if err := opts.Proxy.Init(c); err != nil {
			return nil, errors.Wrap(err, "proxy")
		}
	}
	return c, nil
}

func (c *Collection) GetLocker() *sync.RWMutex { return &c.locker }

func (c *Collection) Model() *schema.Model { return c.model }

func (c *Collection) Options() Options { return c.opts }

func (c *Collection) On(name string, fn Handler) func() { return c.events.On(name, fn) }

func (c *Collection) Once(name string, fn Handler) func() { return c.events.Once(name, fn) }

func (c *Collection) lock() { c.locker.Lock() }

// unlock releases the collection and dispatches queued events.
func (c *Collection) unlock() {
	pending := c.pending
	c.pending = nil
	c.locker.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// must hold lock
func (c *Collection) emit(name string, e Event) {
	c.pending = append(c.pending, func() { c.events.Emit(name, e) })
}

func (c *Collection) Len() int {
	return pkg.RLockRead(c, func() int { return len(c.items) })
}

// At returns the record at position, or nil when out of range.
func (c *Collection) At(position int) *Record {
	c.locker.RLock()
	defer c.locker.RUnlock()
	if position < 0 || position >= len(c.items) {
		return nil
	}
	return c.items[position]
}

func (c *Collection) First() *Record { return c.At(0) }

func (c *Collection) Last() *Record {
	c.locker.RLock()
	defer c.locker.RUnlock()
	if len(c.items) == 0 {
		return nil
	}
	return c.items[len(c.items)-1]
}

// Records returns the members in order.
func (c *Collection) Records() []*Record {
	var records []*Record
	pkg.RLockWrap(c, func() { records = slices.Clone(c.items) })
	return records
}

// IndexOf returns the position of r, or -1.
func (c *Collection) IndexOf(r *Record) int {
	c.locker.RLock()
	defer c.locker.RUnlock()
	return c.indexOf(r)
}

// must hold lock
func (c *Collection) indexOf(r *Record) int {
	return slices.Index(c.items, r)
}

// Created returns the records added individually since the last bulk load.
func (c *Collection) Created() []*Record {
	c.locker.RLock()
	defer c.locker.RUnlock()
	return pkg.Filter(c.items, func(r *Record) bool {
		_, ok := c.created[r]
		return ok
	})
}

// Data returns the data of every member, in order.
func (c *Collection) Data() []map[string]any {
	records := c.Records()
	data := make([]map[string]any, len(records))
	for i, r := range records {
		data[i] = r.Data()
	}
	return data
}

// Fingerprint is a checksum over the ordered member fingerprints.
func (c *Collection) Fingerprint() string {
	records := c.Records()
	fps := make([]any, len(records))
	for i, r := range records {
		fps[i] = r.Fingerprint()
	}
	return fingerprint.Of(fps)
}

// Valid reports whether every member is valid.
func (c *Collection) Valid() bool {
	for _, r := range c.Records() {
		if !r.Valid() {
			return false
		}
	}
	return true
}

// InvalidRecords lists the members that fail validation.
func (c *Collection) InvalidRecords() []*Record {
	return pkg.Filter(c.Records(), func(r *Record) bool { return !r.Valid() })
}

// toRecord accepts a *Record of the collection model or a data map.
func (c *Collection) toRecord(data any) (*Record, error) {
	switch data := data.(type) {
	case *Record:
		if data.model != c.model {
			return nil, &ModelMismatchError{Expected: c.model.Name, Got: data.model.Name}
		}
		return data, nil
	case map[string]any:
		r, err := NewRecord(c.model, data)
		if err != nil {
			return nil, err
		}
		r.locker.Lock()
		r.is_new = true
		r.locker.Unlock()
		return r, nil
	case nil:
		return NewRecord(c.model, nil)
	}
	return nil, errors.Errorf("cannot add %T to collection of %s", data, c.model.Name)
}

// IsDuplicate reports whether a member has the same fingerprint as data.
func (c *Collection) IsDuplicate(data any) bool {
	r, err := c.toRecord(data)
	if err != nil {
		return false
	}
	c.locker.RLock()
	defer c.locker.RUnlock()
	return c.findDuplicate(r.Fingerprint(), r) >= 0
}

// must hold lock
func (c *Collection) findDuplicate(fp string, self *Record) int {
	for i, r := range c.items {
		if r != self && r.Fingerprint() == fp {
			return i
		}
	}
	return -1
}

// Add appends a record, given as a *Record or a data map.
func (c *Collection) Add(data any) (*Record, error) {
	r, err := c.toRecord(data)
	if err != nil {
		return nil, err
	}
	c.lock()
	defer c.unlock()
	if _, err := c.add(r, false); err != nil {
		return nil, err
	}
	return r, nil
}

// must hold lock
func (c *Collection) add(r *Record, quiet bool) (int, error) {
	if r.IsDestroyed() {
		return -1, ErrRecordDestroyed
	}
	if c.indexOf(r) >= 0 {
		return -1, ErrRecordInCollection
	}

	fp := r.Fingerprint()
	if c.findDuplicate(fp, r) >= 0 {
		c.emit(EventRecordDuplicate, Event{Record: r})
		if c.opts.RejectDuplicates {
			return -1, &DuplicateRecordError{Fingerprint: fp}
		}
	}

	if c.opts.Eviction != EvictNone && len(c.items) > 0 && len(c.items) >= c.opts.evictionLimit() {
		victim := 0
		if c.opts.Eviction == EvictLIFO {
			victim = len(c.items) - 1
		}
		pkg.DebugLog("evicting record", victim, "from", c.model.Name)
		if _, err := c.remove(victim, c.loading, true); err != nil {
			return -1, err
		}
	}

	if c.opts.MaxRecords > 0 && len(c.items) >= c.opts.MaxRecords {
		return -1, &RecordLimitExceededError{Max: c.opts.MaxRecords}
	}

	position := len(c.items)
	c.items = append(c.items, r)
	c.index.Apply(r, position)
	c.created[r] = struct{}{}
	c.relays[r] = r.On(event.Wildcard, func(name string, e Event) { c.relay(r, name, e) })

	if !quiet {
		c.emit(EventRecordCreate, Event{Record: r, Index: position})
	}
	return position, nil
}

// relay turns record events into collection events and keeps the indices
// in step with field changes.
func (c *Collection) relay(r *Record, name string, e Event) {
	switch name {
	case EventFieldUpdate, EventFieldCreate, EventFieldRemove, EventRelationshipUpdate, EventLoad:
	case EventFieldInvalid, EventFieldValid:
		c.lock()
		defer c.unlock()
		pos := c.indexOf(r)
		if pos < 0 {
			return
		}
		out := EventRecordInvalid
		if name == EventFieldValid {
			out = EventRecordValid
		}
		c.emit(out, Event{Record: r, Field: e.Field, Index: pos})
		return
	case EventExpired:
		c.recordExpired(r)
		return
	default:
		return
	}

	c.lock()
	defer c.unlock()
	pos := c.indexOf(r)
	if pos < 0 {
		return
	}
	switch {
	case name == EventLoad:
		c.reindex()
	case c.index.Has(e.Field):
		c.index.Update(e.Field, e.Old, e.New, pos)
	}
	c.emit(EventRecordUpdate, Event{
		Record: r,
		Field:  e.Field,
		Old:    e.Old,
		New:    e.New,
		Change: e.Change,
		Index:  pos,
	})
}

func (c *Collection) recordExpired(r *Record) {
	c.lock()
	defer c.unlock()
	pos := c.indexOf(r)
	if pos < 0 {
		return
	}
	c.emit(EventRecordExpired, Event{Record: r, Index: pos})
	if c.opts.AutoRemoveExpired {
		if _, err := c.remove(pos, false, false); err != nil {
			pkg.WarnLog("failed to remove expired record:", err)
		}
	}
}

// Insert adds a record at position. Positions past the end append.
func (c *Collection) Insert(position int, data any) (*Record, error) {
	r, err := c.toRecord(data)
	if err != nil {
		return nil, err
	}
	c.lock()
	defer c.unlock()
	c.warnEviction()
	from, err := c.add(r, true)
	if err != nil {
		return nil, err
	}
	to := min(max(position, 0), len(c.items)-1)
	c.move(from, to, true)
	c.emit(EventRecordCreate, Event{Record: r, Index: to})
	return r, nil
}

// InsertBefore adds a record directly before target.
func (c *Collection) InsertBefore(target, data any) (*Record, error) {
	return c.insertRelative(target, data, 0)
}

// InsertAfter adds a record directly after target.
func (c *Collection) InsertAfter(target, data any) (*Record, error) {
	return c.insertRelative(target, data, 1)
}

func (c *Collection) insertRelative(target, data any, offset int) (*Record, error) {
	r, err := c.toRecord(data)
	if err != nil {
		return nil, err
	}
	c.lock()
	defer c.unlock()
	c.warnEviction()

	tpos, err := c.resolve(target)
	if err != nil {
		return nil, err
	}
	anchor := c.items[tpos]

	from, err := c.add(r, true)
	if err != nil {
		return nil, err
	}
	to := from
	if tpos = c.indexOf(anchor); tpos >= 0 {
		to = tpos + offset
		if to > from {
			to = from
		}
		c.move(from, to, true)
	} else {
		pkg.WarnLog("insert target was evicted; record appended to", c.model.Name)
	}
	c.emit(EventRecordCreate, Event{Record: r, Index: to})
	return r, nil
}

// must hold lock
func (c *Collection) warnEviction() {
	if c.opts.Eviction != EvictNone {
		pkg.WarnLog("positional insert into", c.model.Name, "with", c.opts.Eviction, "eviction may shift positions")
	}
}

// resolve finds the position of target: a position, a *Record, an id string
// or a data map matched by fingerprint. Must hold lock.
func (c *Collection) resolve(target any) (int, error) {
	switch t := target.(type) {
	case int:
		if t < 0 || t >= len(c.items) {
			return -1, &RecordNotFoundError{Position: t}
		}
		return t, nil
	case *Record:
		if pos := c.indexOf(t); pos >= 0 {
			return pos, nil
		}
		if pos := c.findFingerprint(t.Fingerprint()); pos >= 0 {
			return pos, nil
		}
	case string:
		if pos := c.findByID(t); pos >= 0 {
			return pos, nil
		}
	case map[string]any:
		probe, err := NewRecord(c.model, t)
		if err != nil {
			return -1, err
		}
		if pos := c.findFingerprint(probe.Fingerprint()); pos >= 0 {
			return pos, nil
		}
	default:
		if pkg.IsWholeNumber(t) {
			return c.resolve(pkg.NumToInt(t))
		}
		return -1, errors.Errorf("cannot locate a record by %T", target)
	}
	return -1, &RecordNotFoundError{Position: -1, Query: describe(target)}
}

func describe(target any) any {
	if r, ok := target.(*Record); ok {
		return r.String()
	}
	return target
}

// must hold lock
func (c *Collection) findFingerprint(fp string) int {
	return slices.IndexFunc(c.items, func(r *Record) bool { return r.Fingerprint() == fp })
}

// must hold lock
func (c *Collection) findByID(id string) int {
	attr := c.model.IDAttribute
	if c.index.Has(attr) {
		if positions := c.index.Lookup(attr, id); len(positions) > 0 {
			return positions[0]
		}
	}
	return slices.IndexFunc(c.items, func(r *Record) bool {
		v := r.ID()
		return v != nil && fmt.Sprint(v) == id
	})
}

// Remove deletes the record identified by target and returns it. The record
// is destroyed, or archived when soft delete is enabled.
func (c *Collection) Remove(target any) (*Record, error) {
	return c.removeTarget(target, false)
}

// RemoveQuiet is Remove without the record.delete event.
func (c *Collection) RemoveQuiet(target any) (*Record, error) {
	return c.removeTarget(target, true)
}

func (c *Collection) removeTarget(target any, quiet bool) (*Record, error) {
	c.lock()
	defer c.unlock()
	pos, err := c.resolve(target)
	if err != nil {
		return nil, err
	}
	return c.remove(pos, quiet, false)
}

// must hold lock
func (c *Collection) remove(position int, quiet, bypass_min bool) (*Record, error) {
	if !bypass_min && c.opts.MinRecords > 0 && len(c.items)-1 < c.opts.MinRecords {
		return nil, &MinimumRecordCountError{Min: c.opts.MinRecords}
	}

	r := c.items[position]
	c.detach(position)
	if c.opts.SoftDelete {
		c.archiveRecord(r)
	}
	if fn := r.destroy(); fn != nil {
		c.pending = append(c.pending, fn)
	}
	if !quiet {
		c.emit(EventRecordDelete, Event{Record: r, Index: position})
	}
	return r, nil
}

// detach drops the record at position from the list, indices and relays.
// Must hold lock.
func (c *Collection) detach(position int) {
	r := c.items[position]
	c.items = slices.Delete(c.items, position, position+1)
	c.index.Remove(position)
	delete(c.created, r)
	if off, ok := c.relays[r]; ok {
		off()
		delete(c.relays, r)
	}
}

// Move relocates source to the position of target.
func (c *Collection) Move(source, target any) error {
	c.lock()
	defer c.unlock()
	from, err := c.resolve(source)
	if err != nil {
		return err
	}
	var to int
	if pos, ok := target.(int); ok {
		to = min(max(pos, 0), len(c.items)-1)
	} else if to, err = c.resolve(target); err != nil {
		return err
	}
	c.move(from, to, false)
	return nil
}

// must hold lock
func (c *Collection) move(from, to int, quiet bool) {
	if from == to {
		return
	}
	r := c.items[from]
	c.items = slices.Delete(c.items, from, from+1)
	c.items = slices.Insert(c.items, to, r)
	c.reindex()
	if !quiet {
		c.emit(EventRecordMove, Event{Record: r, From: from, To: to, Index: to})
	}
}

// CreateIndex indexes field and raises index.create. Indexing a field the
// model does not declare is allowed but logged.
func (c *Collection) CreateIndex(field string) {
	c.lock()
	defer c.unlock()
	if !c.model.Has(field) {
		pkg.WarnLog("index on", field, "which is not a field of", c.model.Name)
	}
	if !c.index.Create(field) {
		return
	}
	c.reindex()
	c.emit(EventIndexCreate, Event{Field: field})
}

func (c *Collection) DropIndex(field string) {
	c.lock()
	defer c.unlock()
	c.index.Drop(field)
}

func (c *Collection) Indexes() []string {
	c.locker.RLock()
	defer c.locker.RUnlock()
	return c.index.Fields()
}

// Lookup returns the positions whose indexed field equals value.
func (c *Collection) Lookup(field string, value any) []int {
	c.locker.RLock()
	defer c.locker.RUnlock()
	return c.index.Lookup(field, value)
}

// Buckets exposes the index of field.
func (c *Collection) Buckets(field string) []index.Bucket {
	c.locker.RLock()
	defer c.locker.RUnlock()
	return c.index.Buckets(field)
}

func (c *Collection) Reindex() {
	c.lock()
	defer c.unlock()
	c.reindex()
}

// must hold lock
func (c *Collection) reindex() {
	c.index.Reindex(len(c.items), func(i int) index.Record { return c.items[i] })
}

func (c *Collection) nestedData() any {
	data := c.Data()
	out := make([]any, len(data))
	for i, d := range data {
		out[i] = d
	}
	return out
}

func (c *Collection) nestedValid() bool { return c.Valid() }

func (c *Collection) loadNested(data any) error {
	switch data := data.(type) {
	case nil:
		return c.Reload(nil)
	case *Collection:
		return c.loadNested(data.nestedData())
	case []map[string]any:
		items := make([]any, len(data))
		for i, d := range data {
			items[i] = d
		}
		return c.Reload(items)
	case []any:
		return c.Reload(data)
	}
	return errors.Errorf("cannot load %T into collection of %s", data, c.model.Name)
}

var collectionChangeEvents = map[string]bool{
	EventRecordCreate: true,
	EventRecordUpdate: true,
	EventRecordDelete: true,
	EventRecordMove:   true,
	EventSort:         true,
	EventLoad:         true,
	EventReload:       true,
	EventClear:        true,
}

func (c *Collection) observe(fn func()) func() {
	return c.events.On(event.Wildcard, func(name string, _ Event) {
		if collectionChangeEvents[name] {
			fn()
		}
	})
}
