package repository

import (
	"context"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var caseInsensitive = database.CaseInsensitive

type MongoTripRepository struct {
	coll *Collection[models.Trip]
}

func NewTripRepository(conn database.Connector, timeout time.Duration) *MongoTripRepository {
	return &MongoTripRepository{
		coll: NewCollection[models.Trip](conn, "trips", "trip").WithTimeout(timeout),
	}
}

func (r *MongoTripRepository) FindAll(ctx context.Context) ([]*models.Trip, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.coll.FindAll(ctx, bson.M{}, opts)
}

func (r *MongoTripRepository) FindByID(ctx context.Context, id string) (*models.Trip, error) {
	return r.coll.FindByID(ctx, id)
}

func (r *MongoTripRepository) Find(ctx context.Context, filter TripFilter) ([]*models.Trip, error) {
	query := bson.M{}
	if filter.Truck != nil {
		query["truck"] = *filter.Truck
	}
	if filter.Year != "" {
		query["year"] = filter.Year
	}
	if filter.Month != "" {
		query["month"] = filter.Month
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().
		SetCollation(caseInsensitive).
		SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.coll.FindAll(ctx, query, opts)
}

func (r *MongoTripRepository) Create(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	now := time.Now()
	trip.CreatedAt = now
	trip.UpdatedAt = now

	id, err := r.coll.Insert(ctx, trip)
	if err != nil {
		return nil, err
	}
	trip.ID = id
	return trip, nil
}

func (r *MongoTripRepository) Update(ctx context.Context, id string, fields bson.M) (*models.Trip, error) {
	fields["updated_at"] = time.Now()
	return r.coll.UpdateByID(ctx, id, bson.M{"$set": fields})
}

func (r *MongoTripRepository) Delete(ctx context.Context, id string) error {
	return r.coll.DeleteByID(ctx, id)
}

func (r *MongoTripRepository) DeleteByTruck(ctx context.Context, truckID primitive.ObjectID) (int64, error) {
	return r.coll.DeleteMany(ctx, bson.M{"truck": truckID})
}
