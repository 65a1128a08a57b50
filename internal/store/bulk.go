package store

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/tobsdb/tdbstore/pkg"
)

// Load appends items in bulk, raising a single load event instead of one
// record.create per item. Invalid records are accepted and reported through
// record.invalid. On the first rejected item Load stops and returns the
// error; items added before it stay.
func (c *Collection) Load(items []any) ([]*Record, error) {
	records, err := c.toRecords(items)
	if err != nil {
		return nil, err
	}

	c.lock()
	defer c.unlock()
	added, err := c.load(records)
	c.emit(EventLoad, Event{Records: added})
	return added, err
}

func (c *Collection) toRecords(items []any) ([]*Record, error) {
	records := make([]*Record, len(items))
	for i, item := range items {
		r, err := c.toRecord(item)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		if m, ok := item.(map[string]any); ok && m != nil {
			r.locker.Lock()
			r.is_new = false
			r.locker.Unlock()
		}
		records[i] = r
	}
	return records, nil
}

// load adds records quietly. Records evicted by later ones in the same
// batch are left out of the result. Must hold lock.
func (c *Collection) load(records []*Record) ([]*Record, error) {
	c.loading = true
	defer func() { c.loading = false }()

	added := []*Record{}
	var err error
	for i, r := range records {
		if _, err = c.add(r, true); err != nil {
			err = errors.Wrapf(err, "item %d", i)
			break
		}
		added = append(added, r)
	}
	clear(c.created)

	members := make(map[*Record]struct{}, len(c.items))
	for _, r := range c.items {
		members[r] = struct{}{}
	}
	added = pkg.Filter(added, func(r *Record) bool {
		_, ok := members[r]
		return ok
	})
	for _, r := range added {
		if !r.Valid() {
			c.emit(EventRecordInvalid, Event{Record: r, Index: c.indexOf(r)})
		}
	}
	return added, err
}

// Reload replaces every member with items and raises reload. Removed
// members are destroyed without being archived.
func (c *Collection) Reload(items []any) error {
	if c.opts.MinRecords > 0 && len(items) < c.opts.MinRecords {
		return &MinimumRecordCountError{Min: c.opts.MinRecords}
	}
	records, err := c.toRecords(items)
	if err != nil {
		return err
	}

	c.lock()
	defer c.unlock()
	c.clear(false)
	added, err := c.load(records)
	c.emit(EventReload, Event{Records: added})
	return err
}

// Clear removes every member and raises clear. Unless purge is set, a
// collection with soft delete archives the removed records.
func (c *Collection) Clear(purge bool) error {
	c.lock()
	defer c.unlock()
	if c.opts.MinRecords > 0 {
		return &MinimumRecordCountError{Min: c.opts.MinRecords}
	}
	removed := c.clear(c.opts.SoftDelete && !purge)
	c.emit(EventClear, Event{Records: removed})
	return nil
}

// must hold lock
func (c *Collection) clear(archive bool) []*Record {
	removed := slices.Clone(c.items)
	for len(c.items) > 0 {
		r := c.items[len(c.items)-1]
		c.detach(len(c.items) - 1)
		if archive {
			c.archiveRecord(r)
		}
		if fn := r.destroy(); fn != nil {
			c.pending = append(c.pending, fn)
		}
	}
	c.index.Clear()
	return removed
}
