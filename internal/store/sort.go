package store

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tobsdb/tdbstore/internal/fingerprint"
	"github.com/tobsdb/tdbstore/pkg"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortKey orders by one field. Compare, when set, replaces the default
// ordering and Order is ignored.
type SortKey struct {
	Field   string
	Order   SortOrder
	Compare func(a, b any) int
}

func Asc(field string) SortKey  { return SortKey{Field: field, Order: SortAsc} }
func Desc(field string) SortKey { return SortKey{Field: field, Order: SortDesc} }

// SortBy orders the collection by keys, the first key taking precedence.
// Records without a value for a key sort after those that have one, in
// either direction. The sort is stable.
func (c *Collection) SortBy(keys ...SortKey) error {
	for _, k := range keys {
		switch strings.ToLower(string(k.Order)) {
		case "", string(SortAsc), string(SortDesc):
		default:
			return errors.Errorf("Invalid sort order %s for %s", k.Order, k.Field)
		}
	}
	return c.sort(func(a, b *Record) int { return compareRecords(a, b, keys) })
}

// SortFunc orders the collection with a comparator.
func (c *Collection) SortFunc(fn func(a, b *Record) int) error {
	if fn == nil {
		return errors.New("sort comparator cannot be nil")
	}
	return c.sort(fn)
}

func (c *Collection) sort(fn func(a, b *Record) int) error {
	c.lock()
	defer c.unlock()
	slices.SortStableFunc(c.items, fn)
	c.reindex()
	c.emit(EventSort, Event{Records: slices.Clone(c.items)})
	return nil
}

func compareRecords(a, b *Record, keys []SortKey) int {
	for _, k := range keys {
		av, bv := a.Get(k.Field), b.Get(k.Field)
		switch {
		case av == nil && bv == nil:
			continue
		case av == nil:
			return 1
		case bv == nil:
			return -1
		}

		var n int
		if k.Compare != nil {
			n = k.Compare(av, bv)
		} else {
			n = CompareValues(av, bv)
			if strings.EqualFold(string(k.Order), string(SortDesc)) {
				n = -n
			}
		}
		if n != 0 {
			return n
		}
	}
	return 0
}

// CompareValues orders two field values: numbers numerically, strings
// lexically, false before true, dates chronologically. Mixed or composite
// values fall back to comparing their canonical encoding.
func CompareValues(a, b any) int {
	if af, ok := pkg.NumToFloat(a); ok {
		if bf, ok := pkg.NumToFloat(b); ok {
			return cmp.Compare(af, bf)
		}
	}
	switch a := a.(type) {
	case string:
		if b, ok := b.(string); ok {
			return strings.Compare(a, b)
		}
	case bool:
		if b, ok := b.(bool); ok {
			switch {
			case a == b:
				return 0
			case !a:
				return -1
			}
			return 1
		}
	case time.Time:
		if b, ok := b.(time.Time); ok {
			return a.Compare(b)
		}
	}
	return strings.Compare(fingerprint.Key(a), fingerprint.Key(b))
}
