package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TripStatusPending   = "Pending"
	TripStatusCompleted = "Completed"
)

type Trip struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Truck       *primitive.ObjectID `bson:"truck,omitempty" json:"truck,omitempty"`
	Origin      string              `bson:"origin" json:"origin"`
	Destination string              `bson:"destination" json:"destination"`
	Driver      string              `bson:"driver" json:"driver"`
	Cargo       string              `bson:"cargo" json:"cargo"`
	Distance    float64             `bson:"distance" json:"distance"`
	Revenue     float64             `bson:"revenue" json:"revenue"`
	Year        string              `bson:"year" json:"year"`
	Month       string              `bson:"month" json:"month"`
	Status      string              `bson:"status" json:"status"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updatedAt"`
}
