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

type MongoTruckRepository struct {
	coll *Collection[models.Truck]
}

func NewTruckRepository(conn database.Connector, timeout time.Duration) *MongoTruckRepository {
	return &MongoTruckRepository{
		coll: NewCollection[models.Truck](conn, "trucks", "truck").WithTimeout(timeout),
	}
}

func (r *MongoTruckRepository) FindAll(ctx context.Context) ([]*models.Truck, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.coll.FindAll(ctx, bson.M{}, opts)
}

func (r *MongoTruckRepository) FindByID(ctx context.Context, id string) (*models.Truck, error) {
	return r.coll.FindByID(ctx, id)
}

func (r *MongoTruckRepository) FindByExpense(ctx context.Context, kind models.ExpenseKind, expenseID primitive.ObjectID) (*models.Truck, error) {
	return r.coll.FindOne(ctx, bson.M{kind.TruckField(): expenseID})
}

func (r *MongoTruckRepository) Create(ctx context.Context, truck *models.Truck) (*models.Truck, error) {
	now := time.Now()
	truck.CreatedAt = now
	truck.UpdatedAt = now
	if truck.Trips == nil {
		truck.Trips = []primitive.ObjectID{}
	}
	if truck.Expenses.MonthlyExpenses == nil {
		truck.Expenses.MonthlyExpenses = []primitive.ObjectID{}
	}
	if truck.Expenses.YearlyExpenses == nil {
		truck.Expenses.YearlyExpenses = []primitive.ObjectID{}
	}

	id, err := r.coll.Insert(ctx, truck)
	if err != nil {
		return nil, err
	}
	truck.ID = id
	return truck, nil
}

func (r *MongoTruckRepository) Update(ctx context.Context, id string, fields bson.M) (*models.Truck, error) {
	fields["updated_at"] = time.Now()
	return r.coll.UpdateByID(ctx, id, bson.M{"$set": fields})
}

func (r *MongoTruckRepository) Delete(ctx context.Context, id string) error {
	return r.coll.DeleteByID(ctx, id)
}

func (r *MongoTruckRepository) AddTrip(ctx context.Context, truckID, tripID primitive.ObjectID) error {
	return r.coll.UpdateOne(ctx, bson.M{"_id": truckID}, bson.M{
		"$addToSet": bson.M{"trips": tripID},
		"$set":      bson.M{"updated_at": time.Now()},
	})
}

func (r *MongoTruckRepository) SetTrips(ctx context.Context, truckID primitive.ObjectID, trips []primitive.ObjectID) error {
	return r.coll.UpdateOne(ctx, bson.M{"_id": truckID}, bson.M{
		"$set": bson.M{"trips": nonNil(trips), "updated_at": time.Now()},
	})
}

func (r *MongoTruckRepository) AddExpense(ctx context.Context, kind models.ExpenseKind, truckID, expenseID primitive.ObjectID) error {
	return r.coll.UpdateOne(ctx, bson.M{"_id": truckID}, bson.M{
		"$addToSet": bson.M{kind.TruckField(): expenseID},
		"$set":      bson.M{"updated_at": time.Now()},
	})
}

func (r *MongoTruckRepository) SetExpenses(ctx context.Context, kind models.ExpenseKind, truckID primitive.ObjectID, ids []primitive.ObjectID) error {
	return r.coll.UpdateOne(ctx, bson.M{"_id": truckID}, bson.M{
		"$set": bson.M{kind.TruckField(): nonNil(ids), "updated_at": time.Now()},
	})
}

func (r *MongoTruckRepository) PullTrips(ctx context.Context, truckID primitive.ObjectID, ids []primitive.ObjectID) error {
	return r.coll.UpdateOne(ctx, bson.M{"_id": truckID}, bson.M{
		"$pullAll": bson.M{"trips": nonNil(ids)},
		"$set":     bson.M{"updated_at": time.Now()},
	})
}

func (r *MongoTruckRepository) PullExpenses(ctx context.Context, kind models.ExpenseKind, truckID primitive.ObjectID, ids []primitive.ObjectID) error {
	return r.coll.UpdateOne(ctx, bson.M{"_id": truckID}, bson.M{
		"$pullAll": bson.M{kind.TruckField(): nonNil(ids)},
		"$set":     bson.M{"updated_at": time.Now()},
	})
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
