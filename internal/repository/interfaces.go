package repository

import (
	"context"

	"fleet-manager/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TruckRepository interface {
	FindAll(ctx context.Context) ([]*models.Truck, error)
	FindByID(ctx context.Context, id string) (*models.Truck, error)
	// FindByExpense returns the truck whose expense array of the given kind
	// contains expenseID.
	FindByExpense(ctx context.Context, kind models.ExpenseKind, expenseID primitive.ObjectID) (*models.Truck, error)
	Create(ctx context.Context, truck *models.Truck) (*models.Truck, error)
	Update(ctx context.Context, id string, fields bson.M) (*models.Truck, error)
	Delete(ctx context.Context, id string) error
	AddTrip(ctx context.Context, truckID, tripID primitive.ObjectID) error
	SetTrips(ctx context.Context, truckID primitive.ObjectID, trips []primitive.ObjectID) error
	AddExpense(ctx context.Context, kind models.ExpenseKind, truckID, expenseID primitive.ObjectID) error
	SetExpenses(ctx context.Context, kind models.ExpenseKind, truckID primitive.ObjectID, ids []primitive.ObjectID) error
	// PullTrips and PullExpenses remove only the given ids and leave
	// concurrent additions to the array intact.
	PullTrips(ctx context.Context, truckID primitive.ObjectID, ids []primitive.ObjectID) error
	PullExpenses(ctx context.Context, kind models.ExpenseKind, truckID primitive.ObjectID, ids []primitive.ObjectID) error
}

// TripFilter narrows trip queries. Zero fields are ignored. Month and status
// comparisons are case-insensitive.
type TripFilter struct {
	Truck  *primitive.ObjectID
	Year   string
	Month  string
	Status string
}

type TripRepository interface {
	FindAll(ctx context.Context) ([]*models.Trip, error)
	FindByID(ctx context.Context, id string) (*models.Trip, error)
	Find(ctx context.Context, filter TripFilter) ([]*models.Trip, error)
	Create(ctx context.Context, trip *models.Trip) (*models.Trip, error)
	Update(ctx context.Context, id string, fields bson.M) (*models.Trip, error)
	Delete(ctx context.Context, id string) error
	DeleteByTruck(ctx context.Context, truckID primitive.ObjectID) (int64, error)
}

type ExpenseRepository interface {
	Kind() models.ExpenseKind
	FindAll(ctx context.Context) ([]*models.Expense, error)
	FindByID(ctx context.Context, id string) (*models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) (*models.Expense, error)
	Update(ctx context.Context, id string, fields bson.M) (*models.Expense, error)
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}
