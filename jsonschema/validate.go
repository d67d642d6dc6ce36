package jsonschema

import "fmt"

// Validate checks n and every nested node for structural errors that the
// server would reject or silently misinterpret. Errors wrap ErrInvalidSchema
// and name the offending path.
func Validate(n Node) error {
	return validate(n, "$")
}

func validate(n Node, path string) error {
	switch v := n.(type) {
	case nil:
		return invalid(path, "node is nil")
	case Boolean, *Boolean, Null, *Null:
		return nil
	case Number:
		return validateNumber(&v, path)
	case *Number:
		return validateNumber(v, path)
	case String:
		return validateString(&v, path)
	case *String:
		return validateString(v, path)
	case Object:
		return validateObject(&v, path)
	case *Object:
		return validateObject(v, path)
	case Array:
		return validateArray(&v, path)
	case *Array:
		return validateArray(v, path)
	case BSON:
		return validateBSON(&v, path)
	case *BSON:
		return validateBSON(v, path)
	case Enum:
		return validateEnum(&v, path)
	case *Enum:
		return validateEnum(v, path)
	case AllOf:
		return validateList(v.Of, path, "allOf")
	case *AllOf:
		return validateList(v.Of, path, "allOf")
	case AnyOf:
		return validateList(v.Of, path, "anyOf")
	case *AnyOf:
		return validateList(v.Of, path, "anyOf")
	case OneOf:
		return validateList(v.Of, path, "oneOf")
	case *OneOf:
		return validateList(v.Of, path, "oneOf")
	case Not:
		return validate(v.Schema, path+".not")
	case *Not:
		return validate(v.Schema, path+".not")
	default:
		return invalid(path, fmt.Sprintf("unsupported node type %T", n))
	}
}

func validateNumber(n *Number, path string) error {
	if n.BSONType != "" {
		if n.Keyword == KeywordJSON {
			return invalid(path, "bsonType alias requires the bsonType keyword")
		}
		if !n.BSONType.IsNumeric() {
			return invalid(path, fmt.Sprintf("%q is not a numeric bsonType", n.BSONType))
		}
	}
	if n.Minimum != nil && n.Maximum != nil && *n.Minimum > *n.Maximum {
		return invalid(path, "minimum is greater than maximum")
	}
	if n.ExclusiveMinimum && n.Minimum == nil {
		return invalid(path, "exclusiveMinimum requires minimum")
	}
	if n.ExclusiveMaximum && n.Maximum == nil {
		return invalid(path, "exclusiveMaximum requires maximum")
	}
	if n.MultipleOf != nil && *n.MultipleOf <= 0 {
		return invalid(path, "multipleOf must be positive")
	}
	return nil
}

func validateString(n *String, path string) error {
	return validateRange(path, "Length", n.MinLength, n.MaxLength)
}

func validateObject(n *Object, path string) error {
	seen := make(map[string]bool, len(n.Required))
	for i, r := range n.Required {
		if r == "" {
			return invalid(fmt.Sprintf("%s.required[%d]", path, i), "empty property name")
		}
		if seen[r] {
			return invalid(fmt.Sprintf("%s.required[%d]", path, i), fmt.Sprintf("duplicate property %q", r))
		}
		seen[r] = true
	}
	for _, k := range sortedKeys(n.Properties) {
		if k == "" {
			return invalid(path+".properties", "empty property name")
		}
		if err := validate(n.Properties[k], path+".properties."+k); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(n.PatternProperties) {
		if err := validate(n.PatternProperties[k], path+".patternProperties."+k); err != nil {
			return err
		}
	}
	if err := validateAdditional(n.AdditionalProperties, path+".additionalProperties"); err != nil {
		return err
	}
	for _, k := range sortedKeys(n.Dependencies) {
		if len(n.Dependencies[k]) == 0 {
			return invalid(path+".dependencies."+k, "dependency list is empty")
		}
	}
	return validateRange(path, "Properties", n.MinProperties, n.MaxProperties)
}

func validateArray(n *Array, path string) error {
	if n.Items != nil && len(n.TupleItems) > 0 {
		return invalid(path, "items and tuple items are mutually exclusive")
	}
	if n.Items != nil {
		if err := validate(n.Items, path+".items"); err != nil {
			return err
		}
	}
	for i, it := range n.TupleItems {
		if err := validate(it, fmt.Sprintf("%s.items[%d]", path, i)); err != nil {
			return err
		}
	}
	if err := validateAdditional(n.AdditionalItems, path+".additionalItems"); err != nil {
		return err
	}
	return validateRange(path, "Items", n.MinItems, n.MaxItems)
}

func validateBSON(n *BSON, path string) error {
	if !n.Type.IsUnique() {
		return invalid(path, fmt.Sprintf("%q is not a BSON-only type", n.Type))
	}
	return nil
}

func validateEnum(n *Enum, path string) error {
	if len(n.Values) == 0 {
		return invalid(path, "enum requires at least one value")
	}
	return nil
}

func validateList(nodes []Node, path, keyword string) error {
	if len(nodes) == 0 {
		return invalid(path, keyword+" requires at least one schema")
	}
	for i, n := range nodes {
		if err := validate(n, fmt.Sprintf("%s.%s[%d]", path, keyword, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateAdditional(a *Additional, path string) error {
	if a == nil || a.schema == nil {
		return nil
	}
	return validate(a.schema, path)
}

func validateRange(path, suffix string, lower, upper *int) error {
	if lower != nil && *lower < 0 {
		return invalid(path, "min"+suffix+" must not be negative")
	}
	if upper != nil && *upper < 0 {
		return invalid(path, "max"+suffix+" must not be negative")
	}
	if lower != nil && upper != nil && *lower > *upper {
		return invalid(path, "min"+suffix+" is greater than max"+suffix)
	}
	return nil
}

func invalid(path, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidSchema, path, msg)
}
