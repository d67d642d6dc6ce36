package mongoly

import (
	"fmt"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
)

// Operator is a top-level update operator.
type Operator string

// Update operators accepted by UpdateBuilder.
const (
	OpSet         Operator = "$set"
	OpUnset       Operator = "$unset"
	OpInc         Operator = "$inc"
	OpMul         Operator = "$mul"
	OpMin         Operator = "$min"
	OpMax         Operator = "$max"
	OpAddToSet    Operator = "$addToSet"
	OpPush        Operator = "$push"
	OpPull        Operator = "$pull"
	OpPullAll     Operator = "$pullAll"
	OpPop         Operator = "$pop"
	OpRename      Operator = "$rename"
	OpSetOnInsert Operator = "$setOnInsert"
	OpCurrentDate Operator = "$currentDate"
	OpBit         Operator = "$bit"
)

var operators = []Operator{
	OpSet, OpUnset, OpInc, OpMul, OpMin, OpMax, OpAddToSet, OpPush,
	OpPull, OpPullAll, OpPop, OpRename, OpSetOnInsert, OpCurrentDate, OpBit,
}

// Valid reports whether op is a known update operator.
func (op Operator) Valid() bool {
	return lo.Contains(operators, op)
}

// Strategy controls how repeated Add calls for one operator combine.
type Strategy int

const (
	// StrategyMerge merges new fields into the stored payload; last write
	// wins per field.
	StrategyMerge Strategy = iota
	// StrategyReplace discards the stored payload for the operator.
	StrategyReplace
)

func (s Strategy) String() string {
	if s == StrategyReplace {
		return "replace"
	}
	return "merge"
}

// UpdateBuilder accumulates per-operator payloads and renders a single
// update document. It is not safe for concurrent use.
type UpdateBuilder struct {
	strategy Strategy
	order    []Operator
	payloads map[Operator]bson.M
	err      error
}

// NewUpdate starts an empty update using StrategyMerge.
func NewUpdate() *UpdateBuilder {
	return &UpdateBuilder{payloads: make(map[Operator]bson.M)}
}

// SetStrategy changes how subsequent Add calls combine payloads.
func (b *UpdateBuilder) SetStrategy(s Strategy) *UpdateBuilder {
	b.strategy = s
	return b
}

// Strategy returns the active combination strategy.
func (b *UpdateBuilder) Strategy() Strategy { return b.strategy }

// Add records payload under op. An unknown operator is remembered as the
// builder's error and reported by Build; later calls still apply.
func (b *UpdateBuilder) Add(op Operator, payload bson.M) *UpdateBuilder {
	if !op.Valid() {
		if b.err == nil {
			b.err = fmt.Errorf("%w: %q", ErrInvalidOperator, string(op))
		}
		return b
	}

	current, seen := b.payloads[op]
	if !seen {
		b.order = append(b.order, op)
	}
	if b.strategy == StrategyMerge && seen {
		b.payloads[op] = bson.M(lo.Assign(current, payload))
	} else {
		b.payloads[op] = bson.M(lo.Assign(payload))
	}
	return b
}

// Set adds {$set: {field: value}}.
func (b *UpdateBuilder) Set(field string, value any) *UpdateBuilder {
	return b.Add(OpSet, bson.M{field: value})
}

// Unset adds {$unset: {field: ""}} for each field.
func (b *UpdateBuilder) Unset(fields ...string) *UpdateBuilder {
	return b.Add(OpUnset, fieldsTo(fields, ""))
}

// Inc adds {$inc: {field: by}}.
func (b *UpdateBuilder) Inc(field string, by any) *UpdateBuilder {
	return b.Add(OpInc, bson.M{field: by})
}

// Push adds {$push: {field: value}}.
func (b *UpdateBuilder) Push(field string, value any) *UpdateBuilder {
	return b.Add(OpPush, bson.M{field: value})
}

// AddToSet adds {$addToSet: {field: value}}.
func (b *UpdateBuilder) AddToSet(field string, value any) *UpdateBuilder {
	return b.Add(OpAddToSet, bson.M{field: value})
}

// SetOnInsert adds {$setOnInsert: {field: value}}.
func (b *UpdateBuilder) SetOnInsert(field string, value any) *UpdateBuilder {
	return b.Add(OpSetOnInsert, bson.M{field: value})
}

// CurrentDate adds {$currentDate: {field: true}} for each field.
func (b *UpdateBuilder) CurrentDate(fields ...string) *UpdateBuilder {
	return b.Add(OpCurrentDate, fieldsTo(fields, true))
}

// Rename adds {$rename: {from: to}}.
func (b *UpdateBuilder) Rename(from, to string) *UpdateBuilder {
	return b.Add(OpRename, bson.M{from: to})
}

// Len returns the number of distinct operators recorded.
func (b *UpdateBuilder) Len() int { return len(b.order) }

// Has reports whether op has a recorded payload.
func (b *UpdateBuilder) Has(op Operator) bool {
	_, ok := b.payloads[op]
	return ok
}

// Build renders the update document with operators in first-insertion
// order. Payloads are copies, so the builder may keep accumulating.
func (b *UpdateBuilder) Build() (bson.D, error) {
	if b.err != nil {
		return nil, b.err
	}
	d := make(bson.D, 0, len(b.order))
	for _, op := range b.order {
		d = append(d, bson.E{Key: string(op), Value: bson.M(lo.Assign(b.payloads[op]))})
	}
	return d, nil
}

// MustBuild calls Build and panics on error.
func (b *UpdateBuilder) MustBuild() bson.D {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

func fieldsTo(fields []string, v any) bson.M {
	m := make(bson.M, len(fields))
	for _, f := range fields {
		m[f] = v
	}
	return m
}

// MarshalBSON implements bson.Marshaler, so a builder can be passed to the
// driver wherever an update document is expected.
func (b *UpdateBuilder) MarshalBSON() ([]byte, error) {
	d, err := b.Build()
	if err != nil {
		return nil, err
	}
	return bson.Marshal(d)
}
