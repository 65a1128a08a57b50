// Package index maps field values to the positions of the records holding
// them. Positions are absolute offsets into the owning collection.
package index

import (
	"slices"
	"sync"

	"github.com/tobsdb/tdbstore/internal/fingerprint"
	"github.com/tobsdb/tdbstore/pkg"
)

type Record interface {
	Get(field string) any
}

type Bucket struct {
	Value any
	// ascending
	Positions []int
}

type fieldIndex struct {
	buckets *pkg.InsertSortMap[string, *Bucket]
}

func newFieldIndex() *fieldIndex {
	return &fieldIndex{buckets: pkg.NewInsertSortMap[string, *Bucket]()}
}

func (fi *fieldIndex) add(value any, position int) {
	key := fingerprint.Key(value)
	b := fi.buckets.Get(key)
	if b == nil {
		b = &Bucket{Value: value}
		fi.buckets.Push(key, b)
	}
	i, found := slices.BinarySearch(b.Positions, position)
	if !found {
		b.Positions = slices.Insert(b.Positions, i, position)
	}
}

func (fi *fieldIndex) remove(value any, position int) bool {
	key := fingerprint.Key(value)
	b := fi.buckets.Get(key)
	if b == nil {
		return false
	}
	i, found := slices.BinarySearch(b.Positions, position)
	if !found {
		return false
	}
	b.Positions = slices.Delete(b.Positions, i, i+1)
	if len(b.Positions) == 0 {
		fi.buckets.Delete(key)
	}
	return true
}

// Index holds one fieldIndex per indexed field.
type Index struct {
	locker sync.RWMutex
	fields *pkg.InsertSortMap[string, *fieldIndex]
}

func New() *Index {
	return &Index{fields: pkg.NewInsertSortMap[string, *fieldIndex]()}
}

func (idx *Index) GetLocker() *sync.RWMutex { return &idx.locker }

// Create registers field for indexing. It returns false when the field is
// already indexed. The new index is empty until Apply or Reindex fill it.
func (idx *Index) Create(field string) bool {
	idx.locker.Lock()
	defer idx.locker.Unlock()
	if idx.fields.Has(field) {
		return false
	}
	idx.fields.Push(field, newFieldIndex())
	return true
}

func (idx *Index) Drop(field string) {
	idx.locker.Lock()
	defer idx.locker.Unlock()
	idx.fields.Delete(field)
}

func (idx *Index) Has(field string) bool {
	idx.locker.RLock()
	defer idx.locker.RUnlock()
	return idx.fields.Has(field)
}

func (idx *Index) Fields() []string {
	idx.locker.RLock()
	defer idx.locker.RUnlock()
	return idx.fields.Keys()
}

// Apply adds the record at position to every field index.
func (idx *Index) Apply(r Record, position int) {
	idx.locker.Lock()
	defer idx.locker.Unlock()
	for _, field := range idx.fields.Sorted {
		idx.fields.Get(field).add(r.Get(field), position)
	}
}

// Update moves position from the bucket of old to the bucket of new.
func (idx *Index) Update(field string, old, new any, position int) {
	if fingerprint.Equal(old, new) {
		return
	}
	idx.locker.Lock()
	defer idx.locker.Unlock()
	fi := idx.fields.Get(field)
	if fi == nil {
		return
	}
	fi.remove(old, position)
	fi.add(new, position)
}

// Remove drops position from every bucket of every field and shifts every
// later position down by one, matching a splice of the collection.
func (idx *Index) Remove(position int) {
	idx.locker.Lock()
	defer idx.locker.Unlock()
	for _, fi := range idx.fields.Values() {
		for _, key := range fi.buckets.Keys() {
			b := fi.buckets.Get(key)
			kept := b.Positions[:0]
			for _, p := range b.Positions {
				switch {
				case p < position:
					kept = append(kept, p)
				case p > position:
					kept = append(kept, p-1)
				}
			}
			b.Positions = kept
			if len(b.Positions) == 0 {
				fi.buckets.Delete(key)
			}
		}
	}
}

// Lookup returns the positions holding value for field, ascending. The
// result is empty when field is not indexed or no record holds value.
func (idx *Index) Lookup(field string, value any) []int {
	idx.locker.RLock()
	defer idx.locker.RUnlock()
	fi := idx.fields.Get(field)
	if fi == nil {
		return []int{}
	}
	b := fi.buckets.Get(fingerprint.Key(value))
	if b == nil {
		return []int{}
	}
	return slices.Clone(b.Positions)
}

// Buckets returns a copy of the buckets of field in creation order.
func (idx *Index) Buckets(field string) []Bucket {
	idx.locker.RLock()
	defer idx.locker.RUnlock()
	fi := idx.fields.Get(field)
	if fi == nil {
		return nil
	}
	buckets := make([]Bucket, 0, fi.buckets.Len())
	for _, b := range fi.buckets.Values() {
		buckets = append(buckets, Bucket{Value: b.Value, Positions: slices.Clone(b.Positions)})
	}
	return buckets
}

// Positions returns every position held by the index of field, sorted.
func (idx *Index) Positions(field string) []int {
	positions := []int{}
	for _, b := range idx.Buckets(field) {
		positions = append(positions, b.Positions...)
	}
	slices.Sort(positions)
	return positions
}

// Reindex clears every bucket and rebuilds them from position 0 to n-1.
func (idx *Index) Reindex(n int, at func(position int) Record) {
	idx.locker.Lock()
	defer idx.locker.Unlock()
	for _, field := range idx.fields.Sorted {
		fi := newFieldIndex()
		for i := 0; i < n; i++ {
			fi.add(at(i).Get(field), i)
		}
		idx.fields.Push(field, fi)
	}
}

// Clear empties every bucket but keeps the indexed fields.
func (idx *Index) Clear() {
	idx.Reindex(0, nil)
}
