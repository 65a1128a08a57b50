package props

import (
	"fmt"
	"strconv"
	"strings"
)

func ParseBoolPropSafe(prop FieldProp, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s(%s) is not a valid prop", prop, value)
	}
	return b, nil
}

func ParseNumberPropSafe(prop FieldProp, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s(%s) is not a valid prop; %s", prop, value, err.Error())
	}
	return f, nil
}

// ParseEnumPropSafe splits enum(a, b, "c d") into its members.
// Quotes are optional and stripped.
func ParseEnumPropSafe(value string) ([]string, error) {
	members := []string{}
	for _, raw := range strings.Split(value, ",") {
		m := strings.TrimSpace(raw)
		if len(m) >= 2 && (m[0] == '"' || m[0] == '\'') && m[len(m)-1] == m[0] {
			m = m[1 : len(m)-1]
		}
		if len(m) == 0 {
			return nil, fmt.Errorf("Invalid syntax: enum(%s)", value)
		}
		members = append(members, m)
	}
	return members, nil
}

// ParseRelationTargetSafe parses the right hand side of a relationship
// line: "model" for a single record, "[]model" for a collection.
func ParseRelationTargetSafe(target string) (string, bool, error) {
	target = strings.TrimSpace(target)
	many := strings.HasPrefix(target, "[]")
	if many {
		target = strings.TrimSpace(target[2:])
	}
	if len(target) == 0 || strings.ContainsAny(target, " \t[]") {
		return "", false, fmt.Errorf("Invalid syntax: relation(%s)", target)
	}
	return target, many, nil
}
