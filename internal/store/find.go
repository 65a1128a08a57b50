package store

import (
	"slices"

	"github.com/tobsdb/tdbstore/internal/fingerprint"
	"github.com/tobsdb/tdbstore/internal/types"
	"github.com/tobsdb/tdbstore/pkg"
)

// Filter keeps the records it returns true for.
type Filter func(r *Record) bool

type filter struct {
	id int
	fn Filter
}

// AddFilter registers a filter applied by Find and Filtered and returns its
// id.
func (c *Collection) AddFilter(fn Filter) int {
	c.lock()
	defer c.unlock()
	c.filter_id++
	c.filters = append(c.filters, filter{c.filter_id, fn})
	return c.filter_id
}

func (c *Collection) RemoveFilter(id int) {
	c.lock()
	defer c.unlock()
	c.filters = slices.DeleteFunc(c.filters, func(f filter) bool { return f.id == id })
}

func (c *Collection) ClearFilters() {
	c.lock()
	defer c.unlock()
	c.filters = nil
}

// ApplyFilters returns the records that pass every registered filter.
func (c *Collection) ApplyFilters(records []*Record) []*Record {
	c.locker.RLock()
	filters := slices.Clone(c.filters)
	c.locker.RUnlock()

	for _, f := range filters {
		records = pkg.Filter(records, f.fn)
	}
	return records
}

// Filtered is ApplyFilters over all members.
func (c *Collection) Filtered() []*Record {
	return c.ApplyFilters(c.Records())
}

// Find returns the members matching query, in collection order:
//
//	whole number         the record at that position
//	string               the record whose id attribute matches
//	map[string]any       records whose fields equal every given value
//	func(*Record) bool   records the predicate accepts
//
// Predicates run without the collection lock held.
//
// Registered filters apply unless ignoreFilters is set.
func (c *Collection) Find(query any, ignoreFilters bool) []*Record {
	var found []*Record
	switch q := query.(type) {
	case string:
		c.locker.RLock()
		if pos := c.findByID(q); pos >= 0 {
			found = []*Record{c.items[pos]}
		}
		c.locker.RUnlock()
	case map[string]any:
		c.locker.RLock()
		found = c.findWhere(q)
		c.locker.RUnlock()
	case Filter:
		found = pkg.Filter(c.Records(), q)
	case func(*Record) bool:
		found = pkg.Filter(c.Records(), q)
	default:
		if pkg.IsWholeNumber(q) {
			if r := c.At(pkg.NumToInt(q)); r != nil {
				found = []*Record{r}
			}
		}
	}

	if found == nil {
		found = []*Record{}
	}
	if ignoreFilters {
		return found
	}
	return c.ApplyFilters(found)
}

// FindOne returns the first filtered match, or nil.
func (c *Collection) FindOne(query any) *Record {
	found := c.Find(query, false)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// findWhere narrows candidates through the indexed keys of q and compares
// the remaining keys on the candidates only. Must hold lock.
func (c *Collection) findWhere(q map[string]any) []*Record {
	want := make(map[string]any, len(q))
	for k, v := range q {
		if f, ok := c.model.Field(k); ok {
			if coerced, err := types.Coerce(f.Type, v); err == nil {
				v = coerced
			}
		}
		want[k] = v
	}

	var candidates []int
	narrowed := false
	for k, v := range want {
		if !c.index.Has(k) {
			continue
		}
		positions := c.index.Lookup(k, v)
		if !narrowed {
			candidates = positions
			narrowed = true
		} else {
			candidates = intersect(candidates, positions)
		}
		if len(candidates) == 0 {
			return []*Record{}
		}
	}
	if !narrowed {
		candidates = make([]int, len(c.items))
		for i := range candidates {
			candidates[i] = i
		}
	}

	found := []*Record{}
	for _, pos := range candidates {
		r := c.items[pos]
		if matches(r, want) {
			found = append(found, r)
		}
	}
	return found
}

func matches(r *Record, want map[string]any) bool {
	for k, v := range want {
		if !fingerprint.Equal(r.Get(k), v) {
			return false
		}
	}
	return true
}

// intersect merges two ascending position lists.
func intersect(a, b []int) []int {
	out := []int{}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
