package schema

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/tobsdb/tdbstore/internal/parser"
	"github.com/tobsdb/tdbstore/internal/props"
	"github.com/tobsdb/tdbstore/internal/types"
)

// Schema is the set of models declared in one schema source.
type Schema struct {
	Models map[string]*Model
	// declaration order
	Names []string
}

func (s *Schema) Model(name string) (*Model, bool) {
	m, ok := s.Models[name]
	return m, ok
}

type pendingRelation struct {
	line  int
	model string
	data  *parser.ParserData
}

func ParseSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading schema")
	}
	s, err := ParseSchema(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "schema %s", path)
	}
	return s, nil
}

func ParseSchema(schema_data string) (*Schema, error) {
	schema := &Schema{Models: make(map[string]*Model)}
	configs := map[string]*ModelConfig{}
	relations := []pendingRelation{}

	scanner := bufio.NewScanner(strings.NewReader(schema_data))
	line_idx := 0

	var current *ModelConfig
	declared := map[string]bool{}

	for scanner.Scan() {
		line_idx++
		line := strings.TrimSpace(scanner.Text())

		// Ignore empty lines & comments
		if len(line) == 0 || strings.HasPrefix(line, "//") {
			continue
		}

		state, data, err := parser.LineParser(line)
		if err != nil {
			return nil, ParseLineError(line_idx, err.Error())
		}

		switch state {
		case parser.ParserStateModelStart:
			if current != nil {
				return nil, ParseLineError(line_idx, fmt.Sprintf("Model %s is not closed", current.Name))
			}
			if _, exists := configs[data.Name]; exists {
				return nil, ParseLineError(line_idx, fmt.Sprintf("Duplicate model %s", data.Name))
			}
			current = &ModelConfig{Name: data.Name}
			declared = map[string]bool{}
		case parser.ParserStateModelEnd:
			if current == nil {
				return nil, ParseLineError(line_idx, "Unexpected }")
			}
			configs[current.Name] = current
			schema.Names = append(schema.Names, current.Name)
			current = nil
		case parser.ParserStateNewField:
			if current == nil {
				return nil, ParseLineError(line_idx, "Field declared outside of a model")
			}
			if declared[data.Name] {
				return nil, ParseLineError(line_idx, fmt.Sprintf("Duplicate field %s", data.Name))
			}
			declared[data.Name] = true

			f_cfg, is_id, err := fieldConfigFromProps(data)
			if err != nil {
				return nil, ParseLineError(line_idx, err.Error())
			}
			if is_id {
				if len(current.IDAttribute) > 0 {
					return nil, ParseLineError(line_idx, "Model can't have multiple id attributes")
				}
				current.IDAttribute = f_cfg.Name
			}
			current.Fields = append(current.Fields, f_cfg)
		case parser.ParserStateNewRelation:
			if current == nil {
				return nil, ParseLineError(line_idx, "Relationship declared outside of a model")
			}
			if declared[data.Name] {
				return nil, ParseLineError(line_idx, fmt.Sprintf("Duplicate field %s", data.Name))
			}
			declared[data.Name] = true
			relations = append(relations, pendingRelation{line_idx, current.Name, data})
		}
	}
	if current != nil {
		return nil, ParseLineError(line_idx, fmt.Sprintf("Model %s is not closed", current.Name))
	}

	// models are allocated up front so relationships can point at models
	// declared further down, or at themselves
	for name := range configs {
		schema.Models[name] = &Model{Name: name}
	}

	for _, rel := range relations {
		target, ok := schema.Models[rel.data.Relation]
		if !ok {
			return nil, ParseLineError(rel.line, (&InvalidRelationshipError{
				Model:  rel.model,
				Name:   rel.data.Name,
				Reason: fmt.Sprintf("%s is not a valid model", rel.data.Relation),
			}).Error())
		}
		cfg := configs[rel.model]
		cfg.Relationships = append(cfg.Relationships, Relationship{
			Name:  rel.data.Name,
			Model: target,
			Many:  rel.data.Many,
		})
	}

	for _, name := range schema.Names {
		if err := schema.Models[name].define(*configs[name]); err != nil {
			return nil, err
		}
	}

	for _, name := range schema.Names {
		if err := checkRelationCycles(schema.Models[name]); err != nil {
			return nil, err
		}
	}

	return schema, nil
}

func fieldConfigFromProps(data *parser.ParserData) (FieldConfig, bool, error) {
	cfg := FieldConfig{Name: data.Name, Type: data.Builtin_type}
	is_id := false

	for prop, value := range data.Properties {
		switch prop {
		case props.FieldPropRequired:
			cfg.Required, _ = props.ParseBoolPropSafe(prop, value)
		case props.FieldPropHidden:
			cfg.Hidden, _ = props.ParseBoolPropSafe(prop, value)
		case props.FieldPropId:
			is_id, _ = props.ParseBoolPropSafe(prop, value)
		case props.FieldPropDefault:
			def, err := types.ParseDefault(cfg.Type, value)
			if err != nil {
				return cfg, false, err
			}
			cfg.Default = def
		case props.FieldPropPattern:
			cfg.Pattern = value
		case props.FieldPropMin:
			n, err := props.ParseNumberPropSafe(prop, value)
			if err != nil {
				return cfg, false, err
			}
			cfg.Min = &n
		case props.FieldPropMax:
			n, err := props.ParseNumberPropSafe(prop, value)
			if err != nil {
				return cfg, false, err
			}
			cfg.Max = &n
		case props.FieldPropEnum:
			members, err := props.ParseEnumPropSafe(value)
			if err != nil {
				return cfg, false, err
			}
			for _, member := range members {
				v, err := types.ParseDefault(cfg.Type, member)
				if err != nil {
					return cfg, false, fmt.Errorf("enum(%s) member %s does not match type %s", value, member, cfg.Type)
				}
				cfg.Enum = append(cfg.Enum, v)
			}
		case props.FieldPropExact:
			v, err := types.ParseDefault(cfg.Type, value)
			if err != nil {
				return cfg, false, err
			}
			cfg.Validators = append(cfg.Validators, Exact(v))
		}
	}

	if is_id && cfg.Hidden {
		return cfg, false, fmt.Errorf("field(%s) id attribute cannot be hidden", cfg.Name)
	}

	return cfg, is_id, nil
}
