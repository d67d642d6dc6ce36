package mongoly

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/mongoly/internal/db"
	"github.com/kailas-cloud/mongoly/jsonschema"
)

// Sentinel errors raised by the helpers themselves. Driver and server
// errors are never translated; use errors.As with the driver's types.
var (
	ErrInvalidOperator    = errors.New("mongoly: invalid update operator")
	ErrMissingID          = errors.New("mongoly: document has no _id")
	ErrInvalidPopulation  = errors.New("mongoly: invalid population")
	ErrInvalidSchema      = jsonschema.ErrInvalidSchema
	ErrInvalidIndex       = db.ErrInvalidIndex
	ErrCollectionNotFound = db.ErrCollectionNotFound
)

// DocumentValidationFailure is the server error code for a write rejected by
// the collection validator.
const DocumentValidationFailure = 121

// ValidationFailure is the decoded errInfo of a document validation error.
type ValidationFailure struct {
	FailingDocumentID any              `bson:"failingDocumentId"`
	Details           ValidationDetail `bson:"details"`
	Raw               bson.Raw         `bson:"-"`
}

// ValidationDetail names the operator that rejected the document.
type ValidationDetail struct {
	OperatorName string            `bson:"operatorName"`
	SchemaRules  []SchemaRuleError `bson:"schemaRulesNotSatisfied"`
}

// SchemaRuleError is one unsatisfied schema rule.
type SchemaRuleError struct {
	OperatorName string          `bson:"operatorName"`
	Properties   []PropertyError `bson:"propertiesNotSatisfied"`
	Missing      []string        `bson:"missingProperties"`
}

// PropertyError reports why a single property failed.
type PropertyError struct {
	PropertyName string         `bson:"propertyName"`
	Details      []ReasonDetail `bson:"details"`
}

// ReasonDetail is the innermost failure description.
type ReasonDetail struct {
	OperatorName    string `bson:"operatorName"`
	Reason          string `bson:"reason"`
	ConsideredValue any    `bson:"consideredValue"`
	ConsideredType  string `bson:"consideredType"`
	SpecifiedAs     any    `bson:"specifiedAs"`
}

// Reasons flattens the failure into "property: reason" lines.
func (f *ValidationFailure) Reasons() []string {
	var out []string
	for _, rule := range f.Details.SchemaRules {
		for _, m := range rule.Missing {
			out = append(out, m+": missing required property")
		}
		for _, p := range rule.Properties {
			for _, d := range p.Details {
				out = append(out, p.PropertyName+": "+d.Reason)
			}
		}
	}
	return out
}

// IsDocumentValidationError reports whether err is a server rejection with
// code 121 that carries a structured errInfo document.
func IsDocumentValidationError(err error) bool {
	return errInfo(err) != nil
}

// IsSchemaValidationError reports whether err is a document validation
// error raised by the $jsonSchema operator specifically.
func IsSchemaValidationError(err error) bool {
	info := errInfo(err)
	if info == nil {
		return false
	}
	v, err := info.LookupErr("details", "operatorName")
	if err != nil {
		return false
	}
	name, ok := v.StringValueOK()
	return ok && name == "$jsonSchema"
}

// ValidationDetails decodes the errInfo of a document validation error.
// ok is false when err is not one.
func ValidationDetails(err error) (*ValidationFailure, bool) {
	info := errInfo(err)
	if info == nil {
		return nil, false
	}
	var f ValidationFailure
	if uerr := bson.Unmarshal(info, &f); uerr != nil {
		return &ValidationFailure{Raw: info}, true
	}
	f.Raw = info
	return &f, true
}

func errInfo(err error) bson.Raw {
	if err == nil {
		return nil
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		if d := writeErrorDetails(we.WriteErrors); d != nil {
			return d
		}
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == DocumentValidationFailure && hasElements(e.Details) {
				return e.Details
			}
		}
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == DocumentValidationFailure && len(ce.Raw) > 0 {
		if v, lerr := ce.Raw.LookupErr("errInfo"); lerr == nil {
			if doc, ok := v.DocumentOK(); ok && hasElements(doc) {
				return doc
			}
		}
	}
	return nil
}

func writeErrorDetails(errs mongo.WriteErrors) bson.Raw {
	for _, e := range errs {
		if e.Code == DocumentValidationFailure && hasElements(e.Details) {
			return e.Details
		}
	}
	return nil
}

func hasElements(doc bson.Raw) bool {
	elems, err := doc.Elements()
	return err == nil && len(elems) > 0
}
