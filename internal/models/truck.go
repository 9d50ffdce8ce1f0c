package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Truck struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	PlateNumber string               `bson:"plate_number" json:"plateNumber"`
	Make        string               `bson:"make" json:"make"`
	Model       string               `bson:"model" json:"model"`
	Year        int                  `bson:"year" json:"year"`
	Driver      string               `bson:"driver" json:"driver"`
	Capacity    float64              `bson:"capacity" json:"capacity"`
	Status      string               `bson:"status" json:"status"`
	Trips       []primitive.ObjectID `bson:"trips" json:"trips"`
	Expenses    TruckExpenses        `bson:"expenses" json:"expenses"`
	CreatedAt   time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updatedAt"`
}

// TruckExpenses holds the back-references to expense documents owned by a
// truck.
type TruckExpenses struct {
	MonthlyExpenses []primitive.ObjectID `bson:"monthlyExpenses" json:"monthlyExpenses"`
	YearlyExpenses  []primitive.ObjectID `bson:"yearlyExpenses" json:"yearlyExpenses"`
}

// IDs returns the back-reference array for the given expense kind.
func (e TruckExpenses) IDs(kind ExpenseKind) []primitive.ObjectID {
	if kind == ExpenseMonthly {
		return e.MonthlyExpenses
	}
	return e.YearlyExpenses
}

// TruckWithTrips is a truck with its trip documents expanded.
type TruckWithTrips struct {
	*Truck
	TripDetails []*Trip `json:"tripDetails"`
}
