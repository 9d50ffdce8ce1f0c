package repository

import (
	"context"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoExpenseRepository struct {
	kind models.ExpenseKind
	coll *Collection[models.Expense]
}

func NewExpenseRepository(conn database.Connector, kind models.ExpenseKind, timeout time.Duration) *MongoExpenseRepository {
	return &MongoExpenseRepository{
		kind: kind,
		coll: NewCollection[models.Expense](conn, kind.Collection(), string(kind)+" expense").WithTimeout(timeout),
	}
}

func (r *MongoExpenseRepository) Kind() models.ExpenseKind {
	return r.kind
}

func (r *MongoExpenseRepository) FindAll(ctx context.Context) ([]*models.Expense, error) {
	opts := options.Find().SetSort(bson.D{{Key: "year", Value: 1}, {Key: "created_at", Value: 1}})
	return r.coll.FindAll(ctx, bson.M{}, opts)
}

func (r *MongoExpenseRepository) FindByID(ctx context.Context, id string) (*models.Expense, error) {
	return r.coll.FindByID(ctx, id)
}

func (r *MongoExpenseRepository) Create(ctx context.Context, expense *models.Expense) (*models.Expense, error) {
	now := time.Now()
	expense.CreatedAt = now
	expense.UpdatedAt = now

	id, err := r.coll.Insert(ctx, expense)
	if err != nil {
		return nil, err
	}
	expense.ID = id
	return expense, nil
}

func (r *MongoExpenseRepository) Update(ctx context.Context, id string, fields bson.M) (*models.Expense, error) {
	fields["updated_at"] = time.Now()
	return r.coll.UpdateByID(ctx, id, bson.M{"$set": fields})
}

func (r *MongoExpenseRepository) Delete(ctx context.Context, id string) error {
	return r.coll.DeleteByID(ctx, id)
}
