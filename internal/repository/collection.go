package repository

import (
	"context"
	"errors"
	"time"

	"fleet-manager/internal/errs"
	"fleet-manager/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Collection is the data access primitive for one named collection. Every
// method acquires a database handle, runs a single operation and releases the
// handle before returning.
type Collection[T any] struct {
	conn    database.Connector
	name    string
	label   string
	timeout time.Duration
}

func NewCollection[T any](conn database.Connector, name, label string) *Collection[T] {
	return &Collection[T]{conn: conn, name: name, label: label, timeout: defaultTimeout}
}

// WithTimeout overrides the per-operation timeout.
func (c *Collection[T]) WithTimeout(d time.Duration) *Collection[T] {
	if d > 0 {
		c.timeout = d
	}
	return c
}

func (c *Collection[T]) Name() string {
	return c.name
}

func (c *Collection[T]) do(ctx context.Context, fn func(ctx context.Context, coll *mongo.Collection) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	db, release, err := c.conn.Acquire(ctx)
	if err != nil {
		return errs.DataAccess("database unavailable", err)
	}
	defer release()

	return fn(ctx, db.Collection(c.name))
}

// ObjectID parses a hex id, classifying failures as invalid arguments.
func (c *Collection[T]) ObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errs.InvalidArgument("invalid " + c.label + " ID")
	}
	return oid, nil
}

func (c *Collection[T]) FindAll(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	if filter == nil {
		filter = bson.M{}
	}

	docs := make([]*T, 0)
	err := c.do(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		cursor, err := coll.Find(ctx, filter, opts...)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc T
			if err := cursor.Decode(&doc); err != nil {
				return err
			}
			docs = append(docs, &doc)
		}
		return cursor.Err()
	})
	if err != nil {
		return nil, c.classify("failed to list "+c.label+"s", err)
	}

	return docs, nil
}

func (c *Collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := c.ObjectID(id)
	if err != nil {
		return nil, err
	}
	return c.FindOne(ctx, bson.M{"_id": oid})
}

func (c *Collection[T]) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	err := c.do(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		return coll.FindOne(ctx, filter, opts...).Decode(&doc)
	})
	if err != nil {
		return nil, c.classify("failed to find "+c.label, err)
	}
	return &doc, nil
}

func (c *Collection[T]) Insert(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	var oid primitive.ObjectID
	err := c.do(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		result, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return err
		}
		oid, _ = result.InsertedID.(primitive.ObjectID)
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, c.classify("failed to create "+c.label, err)
	}
	return oid, nil
}

// UpdateByID applies an update document and returns the document as it is
// after the update.
func (c *Collection[T]) UpdateByID(ctx context.Context, id string, update interface{}) (*T, error) {
	oid, err := c.ObjectID(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc T
	err = c.do(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		return coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	})
	if err != nil {
		return nil, c.classify("failed to update "+c.label, err)
	}
	return &doc, nil
}

// UpdateOne applies an update to the first document matching filter and
// returns NotFound when nothing matched.
func (c *Collection[T]) UpdateOne(ctx context.Context, filter, update interface{}) error {
	var matched int64
	err := c.do(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		result, err := coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return err
		}
		matched = result.MatchedCount
		return nil
	})
	if err != nil {
		return c.classify("failed to update "+c.label, err)
	}
	if matched == 0 {
		return errs.NotFound(c.label + " not found")
	}
	return nil
}

func (c *Collection[T]) DeleteByID(ctx context.Context, id string) error {
	oid, err := c.ObjectID(id)
	if err != nil {
		return err
	}

	var deleted int64
	err = c.do(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		result, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		deleted = result.DeletedCount
		return nil
	})
	if err != nil {
		return c.classify("failed to delete "+c.label, err)
	}
	if deleted == 0 {
		return errs.NotFound(c.label + " not found")
	}
	return nil
}

func (c *Collection[T]) DeleteMany(ctx context.Context, filter interface{}) (int64, error) {
	var deleted int64
	err := c.do(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		result, err := coll.DeleteMany(ctx, filter)
		if err != nil {
			return err
		}
		deleted = result.DeletedCount
		return nil
	})
	if err != nil {
		return 0, c.classify("failed to delete "+c.label+"s", err)
	}
	return deleted, nil
}

func (c *Collection[T]) classify(msg string, err error) error {
	var classified *errs.Error
	switch {
	case errors.As(err, &classified):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return errs.NotFound(c.label + " not found")
	case mongo.IsDuplicateKeyError(err):
		return errs.Conflict(c.label + " already exists")
	default:
		return errs.DataAccess(msg, err)
	}
}
