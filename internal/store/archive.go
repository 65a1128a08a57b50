package store

import (
	"slices"
	"time"

	"github.com/tobsdb/tdbstore/pkg"
)

// must hold lock
func (c *Collection) archiveRecord(r *Record) {
	c.archive_seq++
	now := time.Now()
	a := &archived{record: r, fingerprint: r.Fingerprint(), deleted_at: now, seq: c.archive_seq}
	if c.opts.SoftDeleteTTL > 0 {
		a.expires_at = now.Add(c.opts.SoftDeleteTTL)
		a.timer = time.AfterFunc(c.opts.SoftDeleteTTL, func() { c.purgeArchived(a) })
	}
	c.insertArchived(a)
}

// must hold lock
func (c *Collection) insertArchived(a *archived) {
	c.archive.Insert(a.seq, a)
	seqs := c.archive_fps[a.fingerprint]
	i, _ := slices.BinarySearch(seqs, a.seq)
	c.archive_fps[a.fingerprint] = slices.Insert(seqs, i, a.seq)
}

// must hold lock
func (c *Collection) dropArchived(a *archived) {
	if a.timer != nil {
		a.timer.Stop()
	}
	c.archive.Delete(a.seq)
	seqs := slices.DeleteFunc(c.archive_fps[a.fingerprint], func(seq int) bool { return seq == a.seq })
	if len(seqs) == 0 {
		delete(c.archive_fps, a.fingerprint)
		return
	}
	c.archive_fps[a.fingerprint] = seqs
}

// latestArchived returns the most recently deleted entry under fingerprint.
// Must hold lock.
func (c *Collection) latestArchived(fingerprint string) (*archived, bool) {
	seqs := c.archive_fps[fingerprint]
	if len(seqs) == 0 {
		return nil, false
	}
	return c.archive.Get(seqs[len(seqs)-1])
}

// archivedEntries lists the archive oldest deletion first. Must hold lock.
func (c *Collection) archivedEntries() []*archived {
	entries := []*archived{}
	if c.archive.Len() == 0 {
		return entries
	}
	iterCh, err := c.archive.IterCh()
	if err != nil {
		return entries
	}
	for rec := range iterCh.Records() {
		entries = append(entries, rec.Val)
	}
	return entries
}

func (c *Collection) purgeArchived(a *archived) {
	c.lock()
	defer c.unlock()
	if cur, ok := c.archive.Get(a.seq); !ok || cur != a {
		return
	}
	c.dropArchived(a)
	c.emit(EventRecordPurged, Event{Record: a.record})
}

// Deleted returns the soft deleted records, oldest deletion first. Records
// sharing a fingerprint are all listed.
func (c *Collection) Deleted() []*Record {
	c.locker.RLock()
	defer c.locker.RUnlock()
	entries := c.archivedEntries()
	records := make([]*Record, len(entries))
	for i, a := range entries {
		records[i] = a.record
	}
	return records
}

// DeletedAt reports when the latest soft deleted record with fingerprint was
// removed, and when it will be purged if a TTL applies.
func (c *Collection) DeletedAt(fingerprint string) (deleted time.Time, purge time.Time, ok bool) {
	c.locker.RLock()
	defer c.locker.RUnlock()
	a, ok := c.latestArchived(fingerprint)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return a.deleted_at, a.expires_at, true
}

// Restore re-adds a soft deleted record, found by the fingerprint it had
// when removed, and raises record.restored. When several archived records
// share the fingerprint the most recently deleted one comes back first. It
// returns nil when nothing is archived under fingerprint.
func (c *Collection) Restore(fingerprint string) (*Record, error) {
	c.lock()
	defer c.unlock()
	a, ok := c.latestArchived(fingerprint)
	if !ok {
		return nil, nil
	}
	c.dropArchived(a)

	a.record.revive()
	position, err := c.add(a.record, true)
	if err != nil {
		a.record.destroy()
		c.rearchive(a)
		return nil, err
	}
	c.emit(EventRecordRestored, Event{Record: a.record, Index: position})
	return a.record, nil
}

// rearchive puts back an entry whose restore failed, keeping its place and
// its first purge deadline. Must hold lock.
func (c *Collection) rearchive(a *archived) {
	b := &archived{
		record:      a.record,
		fingerprint: a.fingerprint,
		deleted_at:  a.deleted_at,
		expires_at:  a.expires_at,
		seq:         a.seq,
	}
	if !b.expires_at.IsZero() {
		remaining := time.Until(b.expires_at)
		if remaining <= 0 {
			c.emit(EventRecordPurged, Event{Record: b.record})
			return
		}
		b.timer = time.AfterFunc(remaining, func() { c.purgeArchived(b) })
	}
	c.insertArchived(b)
}

// PurgeDeletedRecord drops the latest soft deleted record with fingerprint
// for good and raises record.purged. It returns nil when nothing is archived
// under fingerprint.
func (c *Collection) PurgeDeletedRecord(fingerprint string) *Record {
	c.lock()
	defer c.unlock()
	a, ok := c.latestArchived(fingerprint)
	if !ok {
		return nil
	}
	c.dropArchived(a)
	c.emit(EventRecordPurged, Event{Record: a.record})
	return a.record
}

// PurgeAllDeleted empties the soft delete archive.
func (c *Collection) PurgeAllDeleted() []*Record {
	c.lock()
	defer c.unlock()
	entries := c.archivedEntries()
	purged := make([]*Record, len(entries))
	for i, a := range entries {
		c.dropArchived(a)
		c.emit(EventRecordPurged, Event{Record: a.record})
		purged[i] = a.record
	}
	pkg.DebugLog("purged", len(purged), "deleted records from", c.model.Name)
	return purged
}
