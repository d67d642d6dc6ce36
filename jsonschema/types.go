// Package jsonschema models MongoDB $jsonSchema validator documents as a
// closed set of Go types. Each variant renders itself into an ordered BSON
// document, so a Node can be handed to the driver directly.
package jsonschema

import "errors"

// ErrInvalidSchema signals a structurally invalid schema node.
var ErrInvalidSchema = errors.New("invalid schema")

// Keyword selects which type keyword a typed variant renders.
type Keyword int

const (
	// KeywordBSON renders "bsonType" (the zero value, as MongoDB prefers it).
	KeywordBSON Keyword = iota
	// KeywordJSON renders "type".
	KeywordJSON
)

// Key returns the document key for the keyword.
func (k Keyword) Key() string {
	if k == KeywordJSON {
		return "type"
	}
	return "bsonType"
}

// JSONType is a value of the JSON "type" keyword.
type JSONType string

// JSON types accepted by $jsonSchema.
const (
	JSONArray   JSONType = "array"
	JSONBoolean JSONType = "boolean"
	JSONNull    JSONType = "null"
	JSONNumber  JSONType = "number"
	JSONObject  JSONType = "object"
	JSONString  JSONType = "string"
)

// BSONType is a value of the "bsonType" keyword.
type BSONType string

// Generic BSON types.
const (
	BSONArray  BSONType = "array"
	BSONBool   BSONType = "bool"
	BSONNull   BSONType = "null"
	BSONObject BSONType = "object"
	BSONString BSONType = "string"
)

// Numeric BSON types.
const (
	BSONNumber  BSONType = "number"
	BSONInt     BSONType = "int"
	BSONDecimal BSONType = "decimal"
	BSONDouble  BSONType = "double"
	BSONLong    BSONType = "long"
)

// BSON types with no JSON counterpart.
const (
	BSONObjectID   BSONType = "objectId"
	BSONTimestamp  BSONType = "timestamp"
	BSONDate       BSONType = "date"
	BSONBinData    BSONType = "binData"
	BSONRegex      BSONType = "regex"
	BSONMinKey     BSONType = "minKey"
	BSONMaxKey     BSONType = "maxKey"
	BSONJavascript BSONType = "javascript"
)

// IsNumeric reports whether t is one of the numeric BSON aliases.
func (t BSONType) IsNumeric() bool {
	switch t {
	case BSONNumber, BSONInt, BSONDecimal, BSONDouble, BSONLong:
		return true
	}
	return false
}

// IsUnique reports whether t is a BSON-only type.
func (t BSONType) IsUnique() bool {
	switch t {
	case BSONObjectID, BSONTimestamp, BSONDate, BSONBinData,
		BSONRegex, BSONMinKey, BSONMaxKey, BSONJavascript:
		return true
	}
	return false
}

// Meta carries the annotation keywords shared by every variant.
type Meta struct {
	Title       string
	Description string
}
