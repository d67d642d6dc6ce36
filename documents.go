package mongoly

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindByID returns the document with the given _id decoded into T, or
// (nil, nil) when none matches.
func FindByID[T any](
	ctx context.Context, coll Collection, id any, opts ...*options.FindOneOptions,
) (*T, error) {
	doc, err := decodeOne[T](coll.FindOne(ctx, byID(id), opts...))
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", coll.Name(), err)
	}
	return doc, nil
}

// FindByIDAndUpdate atomically applies update to the document with the
// given _id. Whether the pre- or post-image is returned follows the
// ReturnDocument option. update may be an *UpdateBuilder.
func FindByIDAndUpdate[T any](
	ctx context.Context, coll Collection, id, update any, opts ...*options.FindOneAndUpdateOptions,
) (*T, error) {
	u, err := resolveUpdate(update)
	if err != nil {
		return nil, err
	}
	doc, err := decodeOne[T](coll.FindOneAndUpdate(ctx, byID(id), u, opts...))
	if err != nil {
		return nil, fmt.Errorf("find and update %s by id: %w", coll.Name(), err)
	}
	return doc, nil
}

// FindByIDAndDelete atomically removes the document with the given _id and
// returns it, or (nil, nil) when none matched.
func FindByIDAndDelete[T any](
	ctx context.Context, coll Collection, id any, opts ...*options.FindOneAndDeleteOptions,
) (*T, error) {
	doc, err := decodeOne[T](coll.FindOneAndDelete(ctx, byID(id), opts...))
	if err != nil {
		return nil, fmt.Errorf("find and delete %s by id: %w", coll.Name(), err)
	}
	return doc, nil
}

// UpdateByID applies update to the document with the given _id.
// update may be an *UpdateBuilder.
func UpdateByID(
	ctx context.Context, coll Collection, id, update any, opts ...*options.UpdateOptions,
) (*mongo.UpdateResult, error) {
	u, err := resolveUpdate(update)
	if err != nil {
		return nil, err
	}
	res, err := coll.UpdateOne(ctx, byID(id), u, opts...)
	if err != nil {
		return nil, fmt.Errorf("update %s by id: %w", coll.Name(), err)
	}
	return res, nil
}

// DeleteByID removes the document with the given _id.
func DeleteByID(
	ctx context.Context, coll Collection, id any, opts ...*options.DeleteOptions,
) (*mongo.DeleteResult, error) {
	res, err := coll.DeleteOne(ctx, byID(id), opts...)
	if err != nil {
		return nil, fmt.Errorf("delete %s by id: %w", coll.Name(), err)
	}
	return res, nil
}

// Save writes doc under its own _id as {$set: doc}. Upsert is enabled
// unless a caller option turns it off.
func Save(
	ctx context.Context, coll Collection, doc any, opts ...*options.UpdateOptions,
) (*mongo.UpdateResult, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("save %s: marshal: %w", coll.Name(), err)
	}
	id, err := bson.Raw(raw).LookupErr("_id")
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", coll.Name(), ErrMissingID)
	}

	all := append([]*options.UpdateOptions{options.Update().SetUpsert(true)}, opts...)
	res, err := coll.UpdateOne(ctx, byID(id), bson.D{{Key: string(OpSet), Value: bson.Raw(raw)}}, all...)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", coll.Name(), err)
	}
	return res, nil
}

func byID(id any) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func resolveUpdate(update any) (any, error) {
	if b, ok := update.(*UpdateBuilder); ok {
		return b.Build()
	}
	return update, nil
}

//nolint:nilnil // absent document is not an error
func decodeOne[T any](res *mongo.SingleResult) (*T, error) {
	var out T
	if err := res.Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
