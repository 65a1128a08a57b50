package schema

import (
	"fmt"

	"github.com/tobsdb/tdbstore/pkg"
)

const DefaultIDAttribute = "id"

// Getter is the read side of a record, handed to virtual field derivations.
type Getter interface {
	Get(name string) any
}

type Virtual struct {
	Name string
	Get  func(r Getter) any
}

type Relationship struct {
	Name  string
	Model *Model
	// Many makes the relationship a nested collection instead of a record.
	Many bool
}

type ModelConfig struct {
	Name          string
	IDAttribute   string
	Fields        []FieldConfig
	Virtuals      []Virtual
	Relationships []Relationship
}

// Model is the immutable schema records are bound to.
type Model struct {
	Name        string
	IDAttribute string

	fields        *pkg.InsertSortMap[string, *Field]
	virtuals      *pkg.InsertSortMap[string, *Virtual]
	relationships *pkg.InsertSortMap[string, *Relationship]
}

func NewModel(cfg ModelConfig) (*Model, error) {
	m := &Model{Name: cfg.Name}
	if err := m.define(cfg); err != nil {
		return nil, err
	}
	if err := checkRelationCycles(m); err != nil {
		return nil, err
	}
	return m, nil
}

// MustModel is NewModel for configurations known to be valid.
func MustModel(cfg ModelConfig) *Model {
	m, err := NewModel(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) define(cfg ModelConfig) error {
	m.IDAttribute = cfg.IDAttribute
	if len(m.IDAttribute) == 0 {
		m.IDAttribute = DefaultIDAttribute
	}
	m.fields = pkg.NewInsertSortMap[string, *Field]()
	m.virtuals = pkg.NewInsertSortMap[string, *Virtual]()
	m.relationships = pkg.NewInsertSortMap[string, *Relationship]()

	for _, f_cfg := range cfg.Fields {
		if m.Has(f_cfg.Name) {
			return &DuplicateFieldError{Model: m.Name, Name: f_cfg.Name, Kind: "field"}
		}
		field, err := newField(m.Name, f_cfg)
		if err != nil {
			return err
		}
		m.fields.Push(field.Name, field)
	}

	for _, v := range cfg.Virtuals {
		v := v
		if m.Has(v.Name) {
			return &DuplicateFieldError{Model: m.Name, Name: v.Name, Kind: "virtual"}
		}
		if len(v.Name) == 0 {
			return &InvalidFieldError{Model: m.Name, Reason: "virtual name cannot be empty"}
		}
		if v.Get == nil {
			return &InvalidFieldError{Model: m.Name, Field: v.Name, Reason: "virtual has no derivation function"}
		}
		m.virtuals.Push(v.Name, &v)
	}

	for _, r := range cfg.Relationships {
		r := r
		if m.Has(r.Name) {
			return &DuplicateFieldError{Model: m.Name, Name: r.Name, Kind: "relationship"}
		}
		if len(r.Name) == 0 {
			return &InvalidRelationshipError{Model: m.Name, Reason: "relationship name cannot be empty"}
		}
		if r.Model == nil {
			return &InvalidRelationshipError{Model: m.Name, Name: r.Name, Reason: "no model given"}
		}
		m.relationships.Push(r.Name, &r)
	}

	if m.virtuals.Has(m.IDAttribute) || m.relationships.Has(m.IDAttribute) {
		return &InvalidFieldError{
			Model:  m.Name,
			Field:  m.IDAttribute,
			Reason: "id attribute must be a data field",
		}
	}
	if !m.fields.Has(m.IDAttribute) {
		id, _ := newField(m.Name, FieldConfig{Name: m.IDAttribute})
		m.fields.Push(id.Name, id)
	}

	return nil
}

// checkRelationCycles rejects models that nest themselves through single
// record relationships, which would never finish instantiating. Collection
// relationships start empty and may be recursive.
func checkRelationCycles(root *Model) error {
	visiting := map[*Model]bool{}
	var visit func(m *Model, path string) error
	visit = func(m *Model, path string) error {
		if visiting[m] {
			return &InvalidRelationshipError{
				Model:  root.Name,
				Name:   path,
				Reason: fmt.Sprintf("model %s nests itself", m.Name),
			}
		}
		if m.relationships == nil {
			return nil
		}
		visiting[m] = true
		defer delete(visiting, m)
		for _, r := range m.relationships.Values() {
			if r.Many {
				continue
			}
			next := r.Name
			if len(path) > 0 {
				next = path + "." + r.Name
			}
			if err := visit(r.Model, next); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(root, "")
}

// Has reports whether name is taken by a field, virtual or relationship.
func (m *Model) Has(name string) bool {
	return m.fields.Has(name) || m.virtuals.Has(name) || m.relationships.Has(name)
}

func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.fields.Idx[name]
	return f, ok
}

func (m *Model) Fields() []*Field { return m.fields.Values() }

func (m *Model) FieldNames() []string { return m.fields.Keys() }

func (m *Model) Virtual(name string) (*Virtual, bool) {
	v, ok := m.virtuals.Idx[name]
	return v, ok
}

func (m *Model) Virtuals() []*Virtual { return m.virtuals.Values() }

func (m *Model) Relationship(name string) (*Relationship, bool) {
	r, ok := m.relationships.Idx[name]
	return r, ok
}

func (m *Model) Relationships() []*Relationship { return m.relationships.Values() }
