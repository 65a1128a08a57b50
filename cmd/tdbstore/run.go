package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tobsdb/tdbstore/internal/config"
	"github.com/tobsdb/tdbstore/internal/proxy"
	"github.com/tobsdb/tdbstore/internal/schema"
	"github.com/tobsdb/tdbstore/internal/store"
	"github.com/tobsdb/tdbstore/pkg"
)

func runValidate(w io.Writer, schema_path string) error {
	if !filepath.IsAbs(schema_path) {
		cwd, _ := os.Getwd()
		schema_path = filepath.Join(cwd, schema_path)
	}

	fmt.Fprintf(w, "Checking %s for errors\n", schema_path)

	s, err := schema.ParseSchemaFile(schema_path)
	if err != nil {
		fmt.Fprintf(w, "Invalid schema; %s\n", err.Error())
		return err
	}

	for _, name := range s.Names {
		m, _ := s.Model(name)
		fmt.Fprintf(w, "  %s: %d fields, %d relationships\n", name, len(m.Fields()), len(m.Relationships()))
	}
	fmt.Fprintln(w, "Schema checks successful: Schema is valid")
	return nil
}

// openWithData builds the configured collection, journals its events and
// bulk loads the data file into it.
func openWithData(config_path, data_path string) (*store.Collection, *proxy.Journal, error) {
	journal := proxy.NewJournal(0)
	c, _, err := config.Open(config_path, journal)
	if err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(data_path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading data")
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, errors.Wrapf(err, "data %s must be a JSON array", data_path)
	}
	if _, err := c.Load(items); err != nil {
		return nil, nil, errors.Wrapf(err, "loading %s", data_path)
	}

	for _, r := range c.InvalidRecords() {
		pkg.WarnLog("invalid record", c.IndexOf(r), "fields:", r.InvalidDataAttributes())
	}
	return c, journal, nil
}

type snapshotOutput struct {
	ID       string           `json:"id"`
	Checksum string           `json:"checksum"`
	Count    int              `json:"count"`
	Invalid  int              `json:"invalid"`
	Events   []string         `json:"events"`
	Records  []map[string]any `json:"records"`
}

func runSnapshot(w io.Writer, config_path, data_path string) error {
	c, journal, err := openWithData(config_path, data_path)
	if err != nil {
		return err
	}
	s := c.Snapshot()
	return writeJSON(w, snapshotOutput{
		ID:       s.ID,
		Checksum: s.Checksum,
		Count:    len(s.Data),
		Invalid:  len(c.InvalidRecords()),
		Events:   journal.Names(),
		Records:  s.Data,
	})
}

func runFind(w io.Writer, config_path, data_path string, where, sort_by []string) error {
	query, err := parseWhere(where)
	if err != nil {
		return err
	}
	keys, err := parseSort(sort_by)
	if err != nil {
		return err
	}

	c, _, err := openWithData(config_path, data_path)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := c.SortBy(keys...); err != nil {
			return err
		}
	}

	found := c.Find(query, false)
	out := make([]map[string]any, len(found))
	for i, r := range found {
		out[i] = r.Representation()
	}
	return writeJSON(w, out)
}

// parseWhere reads field=value pairs. Values are decoded as JSON when
// possible and kept as strings otherwise.
func parseWhere(where []string) (map[string]any, error) {
	query := map[string]any{}
	for _, pair := range where {
		field, raw, ok := strings.Cut(pair, "=")
		if !ok || len(field) == 0 {
			return nil, errors.Errorf("Invalid where clause %q; expected field=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		query[field] = value
	}
	return query, nil
}

func parseSort(sort_by []string) ([]store.SortKey, error) {
	keys := []store.SortKey{}
	for _, s := range sort_by {
		field, order, _ := strings.Cut(s, ":")
		key := store.SortKey{Field: field, Order: store.SortOrder(strings.ToLower(order))}
		switch key.Order {
		case "", store.SortAsc, store.SortDesc:
		default:
			return nil, errors.Errorf("Invalid sort order %q for %s", order, field)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
