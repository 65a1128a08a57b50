package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/tobsdb/tdbstore/internal/config"
	"github.com/tobsdb/tdbstore/internal/store"
	"gotest.tools/assert"
)

const testSchema = `
$MODEL user {
    id    String required(true)
    email String required(true)
    age   Number default(0)
}
`

const testConfig = `
schema = "schema.tdb"
model = "user"
log_level = "debug"

[collection]
max_records = 3
eviction = "fifo"
reject_duplicates = true
soft_delete = true
soft_delete_ttl = "10m"
indexes = ["email"]
`

func writeFiles(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "schema.tdb"), []byte(testSchema), 0644))
	path := filepath.Join(dir, "tdbstore.toml")
	assert.NilError(t, os.WriteFile(path, []byte(config), 0644))
	return path
}

func TestRead(t *testing.T) {
	cfg, err := Read(strings.NewReader(testConfig))
	assert.NilError(t, err)
	assert.Equal(t, cfg.Model, "user")
	assert.Equal(t, cfg.Collection.MaxRecords, 3)
	assert.Equal(t, cfg.Collection.SoftDeleteTTL.Duration, 10*time.Minute)
	assert.DeepEqual(t, cfg.Collection.Indexes, []string{"email"})

	t.Run("round trip", func(t *testing.T) {
		var buf bytes.Buffer
		assert.NilError(t, Write(&buf, cfg))
		got, err := Read(&buf)
		assert.NilError(t, err)
		assert.DeepEqual(t, got, cfg)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Read(strings.NewReader("[collection]\nsoft_delete_ttl = \"soon\""))
		assert.ErrorContains(t, err, "invalid duration")
	})
}

func TestValidate(t *testing.T) {
	cfg := &Config{Model: "user"}
	assert.ErrorContains(t, cfg.Validate(), "schema is required")

	cfg = &Config{Schema: "s.tdb"}
	assert.ErrorContains(t, cfg.Validate(), "model is required")

	cfg = &Config{Schema: "s.tdb", Model: "user", Collection: CollectionConfig{Eviction: "random"}}
	assert.ErrorContains(t, cfg.Validate(), "Invalid eviction policy")
}

func TestOpen(t *testing.T) {
	path := writeFiles(t, testConfig)
	c, cfg, err := Open(path, nil)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Schema, filepath.Join(filepath.Dir(path), "schema.tdb"))

	opts := c.Options()
	assert.Equal(t, opts.Model.Name, "user")
	assert.Equal(t, opts.Eviction, store.EvictFIFO)
	assert.Equal(t, opts.SoftDeleteTTL, 10*time.Minute)
	assert.Assert(t, opts.RejectDuplicates)
	assert.DeepEqual(t, c.Indexes(), []string{"email"})

	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := c.Add(map[string]any{"id": id, "email": id + "@x.y"})
		assert.NilError(t, err)
	}
	assert.Equal(t, c.Len(), 3)

	t.Run("unknown model", func(t *testing.T) {
		path := writeFiles(t, "schema = \"schema.tdb\"\nmodel = \"post\"")
		_, _, err := Open(path, nil)
		assert.ErrorContains(t, err, "model post is not declared")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := Open(filepath.Join(t.TempDir(), "nope.toml"), nil)
		assert.ErrorContains(t, err, "failed to open config file")
	})
}
