// Package mongoly is a thin convenience layer over the official MongoDB Go
// driver.
//
// It offers by-id document helpers, an update-operator accumulator, an
// aggregation based populate helper for foreign-key style joins and
// idempotent schema and index provisioning. Every helper is a single
// delegation to the driver; errors from the server are returned unchanged.
//
// # Helpers over a collection handle
//
//	coll := mongoly.WrapCollection(client.Database("app").Collection("users"))
//
//	upd := mongoly.NewUpdate().
//	    Set("name", "Jane").
//	    Inc("age", 1).
//	    CurrentDate("lastModified")
//	_, _ = mongoly.UpdateByID(ctx, coll, id, upd)
//
//	user, _ := mongoly.FindByID[User](ctx, coll, id)
//
// # Populate
//
//	post, _ := mongoly.Populate[Post](ctx, posts, id, mongoly.Population{
//	    From: "users", LocalField: "author", ForeignField: "_id",
//	    As: "author", Cardinality: mongoly.One,
//	})
//
// # Provisioning
//
//	action, _ := mongoly.EnsureSchema(ctx, database, "users", jsonschema.Object{
//	    Required:   []string{"name"},
//	    Properties: map[string]jsonschema.Node{"name": jsonschema.String{}},
//	})
//	_, _ = mongoly.EnsureIndexes(ctx, coll, false, []mongo.IndexModel{
//	    mongoly.NewIndex().Asc("email").Unique().MustBuild(),
//	})
package mongoly
