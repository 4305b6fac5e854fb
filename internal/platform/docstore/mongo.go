package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo dials uri and verifies the connection before returning the
// named database.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client.Database(database), nil
}

type mongoCollection[T Document] struct {
	coll *mongo.Collection
}

func (c *mongoCollection[T]) Insert(ctx context.Context, doc *T) error {
	if (*doc).DocumentID().IsZero() {
		return errNoID
	}
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return mongoErr(err)
	}
	return nil
}

func (c *mongoCollection[T]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	var doc T
	if err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	return &doc, nil
}

func (c *mongoCollection[T]) FindOne(ctx context.Context, f Filter) (*T, error) {
	var doc T
	if err := c.coll.FindOne(ctx, mongoFilter(f)).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	return &doc, nil
}

func (c *mongoCollection[T]) Find(ctx context.Context, f Filter, opts FindOptions) ([]*T, error) {
	fo := options.Find()
	if opts.SortField != "" {
		order := 1
		if opts.SortOrder == Descending {
			order = -1
		}
		fo.SetSort(bson.D{{Key: opts.SortField, Value: order}})
	}
	if opts.Offset > 0 {
		fo.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}

	cur, err := c.coll.Find(ctx, mongoFilter(f), fo)
	if err != nil {
		return nil, mongoErr(err)
	}
	defer cur.Close(ctx)

	out := []*T{}
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, &doc)
	}
	if err := cur.Err(); err != nil {
		return nil, mongoErr(err)
	}
	return out, nil
}

func (c *mongoCollection[T]) Count(ctx context.Context, f Filter) (int, error) {
	n, err := c.coll.CountDocuments(ctx, mongoFilter(f))
	if err != nil {
		return 0, mongoErr(err)
	}
	return int(n), nil
}

func (c *mongoCollection[T]) Replace(ctx context.Context, doc *T) error {
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": (*doc).DocumentID()}, doc)
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection[T]) Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*T, error) {
	return c.UpdateWhere(ctx, id, nil, fields)
}

func (c *mongoCollection[T]) UpdateWhere(ctx context.Context, id primitive.ObjectID, where Filter, fields map[string]any) (*T, error) {
	filter := mongoFilter(where)
	filter["_id"] = id

	set := bson.M{}
	for k, v := range fields {
		if k != "_id" {
			set[k] = v
		}
	}
	if len(set) == 0 {
		var doc T
		if err := c.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
			return nil, mongoErr(err)
		}
		return &doc, nil
	}

	var doc T
	err := c.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &doc, nil
}

func (c *mongoCollection[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func mongoFilter(f Filter) bson.M {
	out := bson.M{}
	for k, v := range f {
		if cond, ok := v.(Cond); ok {
			out[k] = bson.M{string(cond.Op): cond.Value}
			continue
		}
		out[k] = v
	}
	return out
}

func mongoErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func ensureMongoIndexes(ctx context.Context, coll *mongo.Collection, spec Spec) error {
	var models []mongo.IndexModel
	for _, field := range spec.Unique {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	}
	for _, field := range spec.Geo {
		models = append(models, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: "2dsphere"}},
		})
	}
	if len(models) == 0 {
		return nil
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}
