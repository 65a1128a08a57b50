package store

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/tobsdb/tdbstore/internal/fingerprint"
)

// Snapshot is a point-in-time copy of a collection.
type Snapshot struct {
	ID        string
	Timestamp time.Time
	// Checksum is the collection fingerprint at snapshot time.
	Checksum string
	// RecordChecksums holds one fingerprint per record, in order.
	RecordChecksums []string
	Data            []map[string]any
}

// Changed lists the positions whose record fingerprint differs between
// prev and s, including positions only one of them has.
func (s *Snapshot) Changed(prev *Snapshot) []int {
	changed := []int{}
	n := max(len(s.RecordChecksums), len(prev.RecordChecksums))
	for i := range n {
		if i >= len(s.RecordChecksums) || i >= len(prev.RecordChecksums) ||
			s.RecordChecksums[i] != prev.RecordChecksums[i] {
			changed = append(changed, i)
		}
	}
	return changed
}

// Snapshot captures the collection, keeps it newest first and raises
// snapshot.
func (c *Collection) Snapshot() *Snapshot {
	c.lock()
	defer c.unlock()

	s := &Snapshot{
		ID:              uuid.NewString(),
		Timestamp:       time.Now(),
		RecordChecksums: make([]string, len(c.items)),
		Data:            make([]map[string]any, len(c.items)),
	}
	fps := make([]any, len(c.items))
	for i, r := range c.items {
		s.Data[i] = r.Data()
		s.RecordChecksums[i] = r.Fingerprint()
		fps[i] = s.RecordChecksums[i]
	}
	s.Checksum = fingerprint.Of(fps)

	c.snapshots = slices.Insert(c.snapshots, 0, s)
	c.emit(EventSnapshot, Event{Snapshot: s})
	return s
}

// Snapshots returns the captured snapshots, newest first.
func (c *Collection) Snapshots() []*Snapshot {
	c.locker.RLock()
	defer c.locker.RUnlock()
	return slices.Clone(c.snapshots)
}

func (c *Collection) ClearSnapshots() {
	c.lock()
	defer c.unlock()
	c.snapshots = nil
}
