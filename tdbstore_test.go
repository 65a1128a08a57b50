package tdbstore_test

import (
	"testing"

	. "github.com/tobsdb/tdbstore"
	"gotest.tools/assert"
)

const peopleSchema = `
$MODEL person {
    id        String required(true)
    lastname  String
    age       Number default(0)
}
`

func TestFacade(t *testing.T) {
	s, err := ParseSchema(peopleSchema)
	assert.NilError(t, err)
	model, ok := s.Model("person")
	assert.Assert(t, ok)

	journal := NewJournal(0)
	c, err := NewCollection(Options{
		Model:      model,
		MaxRecords: 2,
		Eviction:   EvictFIFO,
		Indexes:    []string{"lastname"},
		Proxy:      journal,
	})
	assert.NilError(t, err)

	for _, data := range []map[string]any{
		{"id": "a", "lastname": "Doe", "age": 30},
		{"id": "b", "lastname": "Butler", "age": 20},
		{"id": "c", "lastname": "Doe", "age": 40},
	} {
		_, err := c.Add(data)
		assert.NilError(t, err)
	}

	t.Run("eviction", func(t *testing.T) {
		assert.Equal(t, c.Len(), 2)
		assert.Equal(t, c.First().ID(), "b")
		assert.Equal(t, c.Last().ID(), "c")
	})

	t.Run("sort and lookup", func(t *testing.T) {
		assert.NilError(t, c.SortBy(Asc("lastname"), Desc("age")))
		assert.DeepEqual(t, c.Lookup("lastname", "Doe"), []int{1})
	})

	t.Run("journal", func(t *testing.T) {
		assert.Assert(t, journal.Len() > 0)
		assert.Equal(t, journal.Names()[journal.Len()-1], "sort")
	})
}
