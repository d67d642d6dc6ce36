package jsonschema

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

const usersSchema = `
bsonType: object
title: user
required: [name, age]
additionalProperties: false
properties:
  _id:
    bsonType: objectId
  name:
    bsonType: string
    minLength: 1
  age:
    bsonType: int
    minimum: 0
  score:
    type: number
    maximum: 1.5
    exclusiveMaximum: true
  tags:
    bsonType: array
    items:
      bsonType: string
    uniqueItems: true
  status:
    enum: [active, banned]
  contact:
    oneOf:
      - bsonType: string
      - bsonType: "null"
`

func decodeYAML(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := yaml.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	return m
}

func TestFromMap_Users(t *testing.T) {
	n, err := FromMap(decodeYAML(t, usersSchema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o, ok := n.(Object)
	if !ok {
		t.Fatalf("got %T, want Object", n)
	}
	if o.Title != "user" {
		t.Errorf("title = %q, want user", o.Title)
	}
	if !reflect.DeepEqual(o.Required, []string{"name", "age"}) {
		t.Errorf("required = %v", o.Required)
	}
	if o.AdditionalProperties == nil || o.AdditionalProperties.Allowed() || o.AdditionalProperties.Schema() != nil {
		t.Errorf("additionalProperties = %+v, want false", o.AdditionalProperties)
	}

	if _, ok := o.Properties["_id"].(BSON); !ok {
		t.Errorf("_id: got %T, want BSON", o.Properties["_id"])
	}
	age, ok := o.Properties["age"].(Number)
	if !ok || age.BSONType != BSONInt || age.Minimum == nil || *age.Minimum != 0 {
		t.Errorf("age = %+v", o.Properties["age"])
	}
	score, ok := o.Properties["score"].(Number)
	if !ok || score.Keyword != KeywordJSON || !score.ExclusiveMaximum || *score.Maximum != 1.5 {
		t.Errorf("score = %+v", o.Properties["score"])
	}
	tags, ok := o.Properties["tags"].(Array)
	if !ok || !tags.UniqueItems {
		t.Fatalf("tags = %+v", o.Properties["tags"])
	}
	if _, ok := tags.Items.(String); !ok {
		t.Errorf("tags.items: got %T, want String", tags.Items)
	}
	status, ok := o.Properties["status"].(Enum)
	if !ok || !reflect.DeepEqual(status.Values, []any{"active", "banned"}) {
		t.Errorf("status = %+v", o.Properties["status"])
	}
	contact, ok := o.Properties["contact"].(OneOf)
	if !ok || len(contact.Of) != 2 {
		t.Fatalf("contact = %+v", o.Properties["contact"])
	}
	if _, ok := contact.Of[1].(Null); !ok {
		t.Errorf("contact[1]: got %T, want Null", contact.Of[1])
	}
}

func TestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"both keywords", "{type: string, bsonType: string}", "mutually exclusive"},
		{"unknown type", "{bsonType: uuid}", `unknown bsonType "uuid"`},
		{"json unique", "{type: date}", `unknown type "date"`},
		{"foreign keyword", "{bsonType: string, minimum: 1}", "unsupported keywords [minimum]"},
		{"no discriminator", "{title: x}", "needs bsonType"},
		{"bad length", "{bsonType: string, minLength: abc}", "expected an integer"},
		{"bad bool", "{bsonType: array, uniqueItems: yes-please}", "expected a boolean"},
		{"nested", "{bsonType: object, properties: {a: {bsonType: nope}}}", "$.properties.a.bsonType"},
		{"validated", "{bsonType: string, minLength: 5, maxLength: 1}", "minLength is greater"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(decodeYAML(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("error %v does not wrap ErrInvalidSchema", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFromMap_RoundTripDocument(t *testing.T) {
	n, err := FromMap(decodeYAML(t, "{bsonType: object, properties: {n: {bsonType: long, multipleOf: 2}}}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "properties", Value: bson.D{
			{Key: "n", Value: bson.D{{Key: "bsonType", Value: "long"}, {Key: "multipleOf", Value: 2.0}}},
		}},
	}
	if got := n.Document(); !reflect.DeepEqual(got, want) {
		t.Errorf("got  %v\nwant %v", got, want)
	}
}
