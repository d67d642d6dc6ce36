package mongoly

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Cardinality tells Populate whether a join yields one document or many.
type Cardinality int

const (
	// Many keeps the joined documents as an array.
	Many Cardinality = iota
	// One unwinds the joined array into a single embedded document, or
	// leaves the field absent when nothing matched.
	One
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return fmt.Sprintf("Cardinality(%d)", int(c))
	}
}

// Population describes one $lookup join.
type Population struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Cardinality  Cardinality
}

// Validate checks that every field needed to render the join is set.
func (p Population) Validate() error {
	switch {
	case p.From == "":
		return fmt.Errorf("%w: from is required", ErrInvalidPopulation)
	case p.LocalField == "":
		return fmt.Errorf("%w: %s: local field is required", ErrInvalidPopulation, p.From)
	case p.ForeignField == "":
		return fmt.Errorf("%w: %s: foreign field is required", ErrInvalidPopulation, p.From)
	case p.As == "":
		return fmt.Errorf("%w: %s: as is required", ErrInvalidPopulation, p.From)
	case strings.HasPrefix(p.As, "$"):
		return fmt.Errorf("%w: %s: as must not start with $", ErrInvalidPopulation, p.From)
	case p.Cardinality != One && p.Cardinality != Many:
		return fmt.Errorf("%w: %s: unknown cardinality %d", ErrInvalidPopulation, p.From, int(p.Cardinality))
	}
	return nil
}

// PopulatePipeline renders $match followed by one $lookup per population,
// plus an $unwind for each One. Populations keep the caller's order.
func PopulatePipeline(match bson.D, pops []Population) (mongo.Pipeline, error) {
	pipeline := make(mongo.Pipeline, 0, 1+2*len(pops))
	pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})

	for _, p := range pops {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: p.From},
			{Key: "localField", Value: p.LocalField},
			{Key: "foreignField", Value: p.ForeignField},
			{Key: "as", Value: p.As},
		}}})
		if p.Cardinality == One {
			pipeline = append(pipeline, bson.D{{Key: "$unwind", Value: bson.D{
				{Key: "path", Value: "$" + p.As},
				{Key: "preserveNullAndEmptyArrays", Value: true},
			}}})
		}
	}
	return pipeline, nil
}

// Populate loads the document with the given _id with every population
// joined in. It returns (nil, nil) when the document does not exist.
//
//nolint:nilnil // absent document is not an error
func Populate[T any](ctx context.Context, coll Collection, id any, pops ...Population) (*T, error) {
	pipeline, err := PopulatePipeline(byID(id), pops)
	if err != nil {
		return nil, err
	}

	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("populate %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, fmt.Errorf("populate %s: %w", coll.Name(), err)
		}
		return nil, nil
	}
	var out T
	if err := cur.Decode(&out); err != nil {
		return nil, fmt.Errorf("populate %s: decode: %w", coll.Name(), err)
	}
	return &out, nil
}

// PopulateMany loads every document whose _id is in ids with every
// population joined in. Result order is whatever the server returns.
func PopulateMany[T, ID any](ctx context.Context, coll Collection, ids []ID, pops ...Population) ([]T, error) {
	match := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	pipeline, err := PopulatePipeline(match, pops)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []T{}, nil
	}

	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("populate %s: %w", coll.Name(), err)
	}
	out := make([]T, 0, len(ids))
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("populate %s: %w", coll.Name(), err)
	}
	return out, nil
}
