package jsonschema

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

var (
	metaKeys    = []string{"title", "description"}
	numericKeys = []string{"minimum", "exclusiveMinimum", "maximum", "exclusiveMaximum", "multipleOf"}
	stringKeys  = []string{"minLength", "maxLength", "pattern"}
	objectKeys  = []string{
		"properties", "required", "patternProperties", "additionalProperties",
		"dependencies", "minProperties", "maxProperties",
	}
	arrayKeys = []string{"items", "additionalItems", "minItems", "maxItems", "uniqueItems"}
)

// FromMap decodes a declarative schema (as produced by YAML or JSON
// decoding into map[string]any) into a Node. The variant is chosen by
// "bsonType"/"type", then "enum", then the logical combinators. Unknown
// keywords are rejected.
func FromMap(m map[string]any) (Node, error) {
	n, err := decode(m, "$")
	if err != nil {
		return nil, err
	}
	if err := Validate(n); err != nil {
		return nil, err
	}
	return n, nil
}

func decode(raw any, path string) (Node, error) {
	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, invalid(path, "expected a document")
	}

	_, hasBSON := m["bsonType"]
	_, hasJSON := m["type"]
	switch {
	case hasBSON && hasJSON:
		return nil, invalid(path, "type and bsonType are mutually exclusive")
	case hasBSON:
		return decodeTyped(m, path, KeywordBSON, "bsonType")
	case hasJSON:
		return decodeTyped(m, path, KeywordJSON, "type")
	}

	meta, err := decodeMeta(m, path)
	if err != nil {
		return nil, err
	}

	if v, ok := m["enum"]; ok {
		if err := onlyKeys(m, path, "enum"); err != nil {
			return nil, err
		}
		values, err := cast.ToSliceE(v)
		if err != nil {
			return nil, invalid(path+".enum", "expected a list")
		}
		return Enum{Meta: meta, Values: values}, nil
	}

	for _, kw := range []string{"allOf", "anyOf", "oneOf"} {
		v, ok := m[kw]
		if !ok {
			continue
		}
		if err := onlyKeys(m, path, kw); err != nil {
			return nil, err
		}
		nodes, err := decodeList(v, path+"."+kw)
		if err != nil {
			return nil, err
		}
		switch kw {
		case "allOf":
			return AllOf{Meta: meta, Of: nodes}, nil
		case "anyOf":
			return AnyOf{Meta: meta, Of: nodes}, nil
		default:
			return OneOf{Meta: meta, Of: nodes}, nil
		}
	}

	if v, ok := m["not"]; ok {
		if err := onlyKeys(m, path, "not"); err != nil {
			return nil, err
		}
		inner, err := decode(v, path+".not")
		if err != nil {
			return nil, err
		}
		return Not{Meta: meta, Schema: inner}, nil
	}

	return nil, invalid(path, "schema needs bsonType, type, enum or a logical combinator")
}

func decodeTyped(m map[string]any, path string, kw Keyword, key string) (Node, error) {
	name, err := cast.ToStringE(m[key])
	if err != nil {
		return nil, invalid(path+"."+key, "expected a string")
	}
	meta, err := decodeMeta(m, path)
	if err != nil {
		return nil, err
	}

	switch {
	case kw == KeywordJSON && name == string(JSONBoolean), kw == KeywordBSON && name == string(BSONBool):
		if err := onlyKeys(m, path, key); err != nil {
			return nil, err
		}
		return Boolean{Meta: meta, Keyword: kw}, nil

	case name == string(JSONNull):
		if err := onlyKeys(m, path, key); err != nil {
			return nil, err
		}
		return Null{Meta: meta, Keyword: kw}, nil

	case kw == KeywordJSON && name == string(JSONNumber), kw == KeywordBSON && BSONType(name).IsNumeric():
		if err := onlyKeys(m, path, append([]string{key}, numericKeys...)...); err != nil {
			return nil, err
		}
		n := Number{Meta: meta, Keyword: kw}
		if kw == KeywordBSON && BSONType(name) != BSONNumber {
			n.BSONType = BSONType(name)
		}
		if n.Minimum, err = optFloat(m, path, "minimum"); err != nil {
			return nil, err
		}
		if n.Maximum, err = optFloat(m, path, "maximum"); err != nil {
			return nil, err
		}
		if n.MultipleOf, err = optFloat(m, path, "multipleOf"); err != nil {
			return nil, err
		}
		if n.ExclusiveMinimum, err = optBool(m, path, "exclusiveMinimum"); err != nil {
			return nil, err
		}
		if n.ExclusiveMaximum, err = optBool(m, path, "exclusiveMaximum"); err != nil {
			return nil, err
		}
		return n, nil

	case name == string(JSONString):
		if err := onlyKeys(m, path, append([]string{key}, stringKeys...)...); err != nil {
			return nil, err
		}
		s := String{Meta: meta, Keyword: kw}
		if s.MinLength, err = optInt(m, path, "minLength"); err != nil {
			return nil, err
		}
		if s.MaxLength, err = optInt(m, path, "maxLength"); err != nil {
			return nil, err
		}
		if v, ok := m["pattern"]; ok {
			if s.Pattern, err = cast.ToStringE(v); err != nil {
				return nil, invalid(path+".pattern", "expected a string")
			}
		}
		return s, nil

	case name == string(JSONObject):
		if err := onlyKeys(m, path, append([]string{key}, objectKeys...)...); err != nil {
			return nil, err
		}
		return decodeObject(m, path, meta, kw)

	case name == string(JSONArray):
		if err := onlyKeys(m, path, append([]string{key}, arrayKeys...)...); err != nil {
			return nil, err
		}
		return decodeArray(m, path, meta, kw)

	case kw == KeywordBSON && BSONType(name).IsUnique():
		if err := onlyKeys(m, path, key); err != nil {
			return nil, err
		}
		return BSON{Meta: meta, Type: BSONType(name)}, nil
	}

	return nil, invalid(path+"."+key, fmt.Sprintf("unknown %s %q", key, name))
}

func decodeObject(m map[string]any, path string, meta Meta, kw Keyword) (Node, error) {
	o := Object{Meta: meta, Keyword: kw}
	var err error

	if o.Properties, err = decodeNodeMap(m, path, "properties"); err != nil {
		return nil, err
	}
	if o.PatternProperties, err = decodeNodeMap(m, path, "patternProperties"); err != nil {
		return nil, err
	}
	if v, ok := m["required"]; ok {
		if o.Required, err = cast.ToStringSliceE(v); err != nil {
			return nil, invalid(path+".required", "expected a list of strings")
		}
	}
	if o.AdditionalProperties, err = decodeAdditional(m, path, "additionalProperties"); err != nil {
		return nil, err
	}
	if v, ok := m["dependencies"]; ok {
		deps, err := cast.ToStringMapE(v)
		if err != nil {
			return nil, invalid(path+".dependencies", "expected a document")
		}
		o.Dependencies = make(map[string][]string, len(deps))
		for k, list := range deps {
			names, err := cast.ToStringSliceE(list)
			if err != nil {
				return nil, invalid(path+".dependencies."+k, "expected a list of strings")
			}
			o.Dependencies[k] = names
		}
	}
	if o.MinProperties, err = optInt(m, path, "minProperties"); err != nil {
		return nil, err
	}
	if o.MaxProperties, err = optInt(m, path, "maxProperties"); err != nil {
		return nil, err
	}
	return o, nil
}

func decodeArray(m map[string]any, path string, meta Meta, kw Keyword) (Node, error) {
	a := Array{Meta: meta, Keyword: kw}
	var err error

	if v, ok := m["items"]; ok {
		if list, isList := v.([]any); isList {
			if a.TupleItems, err = decodeList(list, path+".items"); err != nil {
				return nil, err
			}
		} else if a.Items, err = decode(v, path+".items"); err != nil {
			return nil, err
		}
	}
	if a.AdditionalItems, err = decodeAdditional(m, path, "additionalItems"); err != nil {
		return nil, err
	}
	if a.MinItems, err = optInt(m, path, "minItems"); err != nil {
		return nil, err
	}
	if a.MaxItems, err = optInt(m, path, "maxItems"); err != nil {
		return nil, err
	}
	if a.UniqueItems, err = optBool(m, path, "uniqueItems"); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeMeta(m map[string]any, path string) (Meta, error) {
	var meta Meta
	var err error
	if v, ok := m["title"]; ok {
		if meta.Title, err = cast.ToStringE(v); err != nil {
			return meta, invalid(path+".title", "expected a string")
		}
	}
	if v, ok := m["description"]; ok {
		if meta.Description, err = cast.ToStringE(v); err != nil {
			return meta, invalid(path+".description", "expected a string")
		}
	}
	return meta, nil
}

func decodeList(raw any, path string) ([]Node, error) {
	items, err := cast.ToSliceE(raw)
	if err != nil {
		return nil, invalid(path, "expected a list")
	}
	nodes := make([]Node, 0, len(items))
	for i, it := range items {
		n, err := decode(it, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func decodeNodeMap(m map[string]any, path, key string) (map[string]Node, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	raw, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, invalid(path+"."+key, "expected a document")
	}
	out := make(map[string]Node, len(raw))
	for _, k := range sortedKeys(raw) {
		n, err := decode(raw[k], path+"."+key+"."+k)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}

func decodeAdditional(m map[string]any, path, key string) (*Additional, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	if b, isBool := v.(bool); isBool {
		return Allow(b), nil
	}
	n, err := decode(v, path+"."+key)
	if err != nil {
		return nil, err
	}
	return AdditionalSchema(n), nil
}

func optInt(m map[string]any, path, key string) (*int, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return nil, invalid(path+"."+key, "expected an integer")
	}
	return &n, nil
}

func optFloat(m map[string]any, path, key string) (*float64, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, invalid(path+"."+key, "expected a number")
	}
	return &f, nil
}

func optBool(m map[string]any, path, key string) (bool, error) {
	v, ok := m[key]
	if !ok {
		return false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, invalid(path+"."+key, "expected a boolean")
	}
	return b, nil
}

func onlyKeys(m map[string]any, path string, allowed ...string) error {
	allowed = append(allowed, metaKeys...)
	extra := lo.Without(lo.Keys(m), allowed...)
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return invalid(path, fmt.Sprintf("unsupported keywords %v", extra))
}
