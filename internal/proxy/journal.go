// Package proxy holds the persistence proxies a record or collection can be
// handed. A proxy only observes; it never mutates the store.
package proxy

import (
	"sync"
	"time"

	"github.com/tobsdb/tdbstore/internal/event"
	"github.com/tobsdb/tdbstore/internal/store"
	"github.com/tobsdb/tdbstore/pkg"
)

type Entry struct {
	Name  string
	Event store.Event
	Time  time.Time
}

// Journal keeps the events of its target in memory, oldest first. With a
// positive limit only the newest limit entries are kept.
type Journal struct {
	locker  sync.RWMutex
	limit   int
	entries []Entry
	off     []func()
}

func NewJournal(limit int) *Journal {
	return &Journal{limit: limit}
}

func (j *Journal) GetLocker() *sync.RWMutex { return &j.locker }

func (j *Journal) Init(target store.Observable) error {
	off := target.On(event.Wildcard, j.append)
	j.locker.Lock()
	defer j.locker.Unlock()
	j.off = append(j.off, off)
	return nil
}

func (j *Journal) append(name string, e store.Event) {
	j.locker.Lock()
	defer j.locker.Unlock()
	j.entries = append(j.entries, Entry{Name: name, Event: e, Time: time.Now()})
	if j.limit > 0 && len(j.entries) > j.limit {
		j.entries = j.entries[len(j.entries)-j.limit:]
	}
}

func (j *Journal) Entries() []Entry {
	j.locker.RLock()
	defer j.locker.RUnlock()
	entries := make([]Entry, len(j.entries))
	copy(entries, j.entries)
	return entries
}

func (j *Journal) Names() []string {
	j.locker.RLock()
	defer j.locker.RUnlock()
	names := make([]string, len(j.entries))
	for i, e := range j.entries {
		names[i] = e.Name
	}
	return names
}

func (j *Journal) Len() int {
	return pkg.RLockRead(j, func() int { return len(j.entries) })
}

func (j *Journal) Reset() {
	pkg.LockWrap(j, func() { j.entries = nil })
}

// Close detaches the journal from every target.
func (j *Journal) Close() {
	j.locker.Lock()
	off := j.off
	j.off = nil
	j.locker.Unlock()
	for _, fn := range off {
		fn()
	}
}
