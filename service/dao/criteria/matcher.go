package criteria

import (
	"strings"

	"github.com/viant/signoff/service/dao"
)

// Fields exposes filterable record fields by name.
type Fields interface {
	Field(name string) (string, bool)
}

// Match reports whether record satisfies every parameter. Names are case-insensitive;
// a parameter naming an unknown field never matches.
func Match(record Fields, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		value, ok := record.Field(strings.ToLower(parameter.Name))
		if !ok {
			return false
		}
		if !matchValue(value, parameter.Value) {
			return false
		}
	}
	return true
}

func matchValue(value string, expect interface{}) bool {
	switch actual := expect.(type) {
	case string:
		return value == actual
	case []string:
		if len(actual) == 0 {
			return true
		}
		for _, candidate := range actual {
			if value == candidate {
				return true
			}
		}
		return false
	}
	return true
}
