package repository

import (
	"context"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
)

type MongoUserRepository struct {
	coll *Collection[models.User]
}

func NewUserRepository(conn database.Connector, timeout time.Duration) *MongoUserRepository {
	return &MongoUserRepository{
		coll: NewCollection[models.User](conn, "users", "user").WithTimeout(timeout),
	}
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.coll.FindByID(ctx, id)
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.coll.FindOne(ctx, bson.M{"username": username})
}

// Create inserts a user. A duplicate username surfaces as a conflict through
// the unique index on username.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	id, err := r.coll.Insert(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}
