package proxy_test

import (
	"testing"

	. "github.com/tobsdb/tdbstore/internal/proxy"
	"github.com/tobsdb/tdbstore/internal/schema"
	"github.com/tobsdb/tdbstore/internal/store"
	"gotest.tools/assert"
)

func testModel() *schema.Model {
	return schema.MustModel(schema.ModelConfig{
		Name:   "note",
		Fields: []schema.FieldConfig{{Name: "title", Required: true}},
	})
}

func TestJournal(t *testing.T) {
	j := NewJournal(0)
	c, err := store.NewCollection(store.Options{Model: testModel(), Proxy: j})
	assert.NilError(t, err)

	r, err := c.Add(map[string]any{"title": "a"})
	assert.NilError(t, err)
	assert.NilError(t, r.Set("title", "b"))
	_, err = c.Remove(0)
	assert.NilError(t, err)

	assert.DeepEqual(t, j.Names(), []string{
		store.EventRecordCreate,
		store.EventRecordUpdate,
		store.EventRecordDelete,
	})
	assert.Equal(t, j.Entries()[1].Event.New, "b")

	t.Run("limit", func(t *testing.T) {
		j := NewJournal(2)
		r, err := store.NewRecord(testModel(), nil)
		assert.NilError(t, err)
		assert.NilError(t, r.Attach(j))
		for _, title := range []string{"a", "b", "c"} {
			assert.NilError(t, r.Set("title", title))
		}
		assert.Equal(t, j.Len(), 2)
		assert.Equal(t, j.Entries()[1].Event.New, "c")
	})

	t.Run("close", func(t *testing.T) {
		j.Close()
		j.Reset()
		_, err := c.Add(map[string]any{"title": "c"})
		assert.NilError(t, err)
		assert.Equal(t, j.Len(), 0)
	})
}
