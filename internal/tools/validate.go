package tools

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var schemas = compileSchemas(descriptors)

// advisoryEnums lists enum constraints offered to the model but not enforced.
// An unknown dateRange preset falls through to the epoch lower bound.
var advisoryEnums = map[string][]string{
	NameQueryOrders: {"dateRange"},
}

func compileSchemas(ds []Descriptor) map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, len(ds))
	for _, d := range ds {
		params := withoutEnums(d.Parameters, advisoryEnums[d.Name])
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(params))
		if err != nil {
			panic(fmt.Sprintf("tools: invalid schema for %s: %v", d.Name, err))
		}
		out[d.Name] = s
	}
	return out
}

func validateArgs(schema *gojsonschema.Schema, args map[string]interface{}) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(msgs, "; "))
}

// withoutEnums returns a copy of params with the enum removed from each named
// property. params itself is left untouched.
func withoutEnums(params map[string]interface{}, names []string) map[string]interface{} {
	props, ok := params["properties"].(map[string]interface{})
	if len(names) == 0 || !ok {
		return params
	}

	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	copied := make(map[string]interface{}, len(props))
	for k, v := range props {
		copied[k] = v
	}
	for _, name := range names {
		prop, ok := copied[name].(map[string]interface{})
		if !ok {
			continue
		}
		relaxed := make(map[string]interface{}, len(prop))
		for k, v := range prop {
			if k != "enum" {
				relaxed[k] = v
			}
		}
		copied[name] = relaxed
	}
	out["properties"] = copied
	return out
}
