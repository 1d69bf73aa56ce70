package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"taskweave/schema"
)

// Var is a realized, named value: a solver input it read or an output it produced.
type Var struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Value       any    `json:"value"`
}

// Param is a declared contract slot without a value.
type Param struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Text renders the value for prompts and progress output.
func (v Var) Text() string {
	switch val := v.Value.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case bool, int, int64, float64:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// Params lists the declared slots of a schema in name order.
func Params(s schema.Schema) []Param {
	names := s.Names()
	params := make([]Param, 0, len(names))
	for _, name := range names {
		params = append(params, Param{Name: name, Description: s.Properties[name].Description})
	}
	return params
}

// VarMap indexes vars by name.
func VarMap(vars []Var) map[string]any {
	m := make(map[string]any, len(vars))
	for _, v := range vars {
		m[v.Name] = v.Value
	}
	return m
}

// FormatVars renders vars as "name=value" pairs on one line.
func FormatVars(vars []Var) string {
	parts := make([]string, 0, len(vars))
	for _, v := range vars {
		parts = append(parts, fmt.Sprintf("%s=%s", v.Name, v.Text()))
	}
	return strings.Join(parts, ", ")
}
