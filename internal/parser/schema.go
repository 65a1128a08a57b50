package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tobsdb/tdbstore/internal/props"
	"github.com/tobsdb/tdbstore/internal/types"
	"github.com/tobsdb/tdbstore/pkg"
)

type LineParserState int

const (
	ParserStateModelStart LineParserState = iota
	ParserStateModelEnd
	ParserStateNewField
	ParserStateNewRelation
	ParserStateIdle
)

type ParserData struct {
	Name         string
	Builtin_type types.FieldType
	Properties   map[props.FieldProp]string

	// set for ParserStateNewRelation
	Relation string
	Many     bool
}

const (
	model_prefix     = "$MODEL "
	model_prefix_len = len(model_prefix)
	relation_arrow   = "->"
)

var name_regexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func LineParser(line string) (LineParserState, *ParserData, error) {
	if strings.HasPrefix(line, model_prefix) {
		line := strings.TrimSpace(line[model_prefix_len:])
		name_end := strings.Index(line, " ")

		if name_end > 0 {
			open_bracket := strings.TrimSpace(line[name_end:])
			if open_bracket != "{" {
				return ParserStateIdle, nil, errors.New("Model name cannot include space")
			}
			name := line[:name_end]
			if !name_regexp.MatchString(name) {
				return ParserStateIdle, nil, errors.New("Model name contains invalid characters")
			}
			return ParserStateModelStart, &ParserData{Name: name}, nil
		}
	} else if line == "}" {
		return ParserStateModelEnd, nil, nil
	} else if arrow := strings.Index(line, relation_arrow); arrow > 0 && isRelationName(line[:arrow]) {
		name := strings.TrimSpace(line[:arrow])
		target, many, err := props.ParseRelationTargetSafe(line[arrow+len(relation_arrow):])
		if err != nil {
			return ParserStateIdle, nil, err
		}
		return ParserStateNewRelation, &ParserData{Name: name, Relation: target, Many: many}, nil
	} else if !strings.HasPrefix(line, "$") {
		splits := strings.Fields(line)
		splits = pkg.Filter(splits, func(s string) bool { return len(s) > 0 })
		if len(splits) == 0 {
			return ParserStateIdle, nil, errors.New("Invalid line")
		}
		if !name_regexp.MatchString(splits[0]) {
			return ParserStateIdle, nil, errors.New("Field name contains invalid characters")
		}
		if len(splits) < 2 {
			return ParserStateIdle, nil, fmt.Errorf("Field %s does not have a type", splits[0])
		}

		builtin_type, ok := types.ParseFieldType(splits[1])
		if !ok {
			return ParserStateIdle, nil, fmt.Errorf("Invalid field type: %s", splits[1])
		}

		// props are taken from the raw line so values keep their spacing
		after_name := strings.Index(line, splits[0]) + len(splits[0])
		after_type := after_name + strings.Index(line[after_name:], splits[1]) + len(splits[1])
		rest := strings.TrimSpace(line[after_type:])
		field_props, err := parseRawFieldProps(rest)
		if err != nil {
			return ParserStateIdle, nil, err
		}

		return ParserStateNewField, &ParserData{
			Name:         splits[0],
			Builtin_type: builtin_type,
			Properties:   field_props,
		}, nil
	}
	return ParserStateIdle, nil, errors.New("Invalid line")
}

// parseRawFieldProps reads `name(value)` pairs. Values may contain balanced
// parentheses and `\)` escapes so that patterns survive intact.
func parseRawFieldProps(raw string) (map[props.FieldProp]string, error) {
	field_props := make(map[props.FieldProp]string)

	i := 0
	for i < len(raw) {
		if raw[i] == ' ' || raw[i] == '\t' {
			i++
			continue
		}

		start := i
		for i < len(raw) && isPropNameChar(raw[i]) {
			i++
		}
		if i == start || i >= len(raw) || raw[i] != '(' {
			return nil, fmt.Errorf("Invalid field prop syntax: %s", raw[start:])
		}
		prop := props.FieldProp(raw[start:i])
		if !prop.IsValid() {
			return nil, fmt.Errorf("Invalid field prop: %s", prop)
		}

		i++ // (
		var value strings.Builder
		depth := 1
		for ; i < len(raw); i++ {
			c := raw[i]
			if c == '\\' && i+1 < len(raw) {
				i++
				value.WriteByte(raw[i])
				continue
			}
			if c == '(' {
				depth++
			} else if c == ')' {
				depth--
				if depth == 0 {
					break
				}
			}
			value.WriteByte(c)
		}
		if depth != 0 {
			return nil, fmt.Errorf("Unclosed field prop: %s", prop)
		}
		i++ // )

		v := strings.TrimSpace(value.String())
		if len(v) == 0 {
			return nil, fmt.Errorf("No value for prop: %s", prop)
		}
		if _, exists := field_props[prop]; exists {
			return nil, fmt.Errorf("Duplicate field prop: %s", prop)
		}
		if prop.IsBool() {
			if _, err := props.ParseBoolPropSafe(prop, v); err != nil {
				return nil, err
			}
		}
		field_props[prop] = v
	}

	return field_props, nil
}

func isRelationName(s string) bool {
	return name_regexp.MatchString(strings.TrimSpace(s))
}

func isPropNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
