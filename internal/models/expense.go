package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExpenseKind selects between the monthly and yearly expense collections.
type ExpenseKind string

const (
	ExpenseMonthly ExpenseKind = "monthly"
	ExpenseYearly  ExpenseKind = "yearly"
)

// Collection returns the Mongo collection that stores expenses of this kind.
func (k ExpenseKind) Collection() string {
	return string(k) + "expenses"
}

// TruckField returns the dotted path of the truck array that references
// expenses of this kind.
func (k ExpenseKind) TruckField() string {
	return "expenses." + string(k) + "Expenses"
}

func (k ExpenseKind) Valid() bool {
	return k == ExpenseMonthly || k == ExpenseYearly
}

type Expense struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Truck       *primitive.ObjectID `bson:"truck,omitempty" json:"truck,omitempty"`
	Year        string              `bson:"year" json:"year"`
	Month       string              `bson:"month,omitempty" json:"month,omitempty"`
	Fuel        float64             `bson:"fuel" json:"fuel"`
	Maintenance float64             `bson:"maintenance" json:"maintenance"`
	Tolls       float64             `bson:"tolls" json:"tolls"`
	Wages       float64             `bson:"wages" json:"wages"`
	Insurance   float64             `bson:"insurance" json:"insurance"`
	Permits     float64             `bson:"permits" json:"permits"`
	Other       float64             `bson:"other" json:"other"`
	Total       float64             `bson:"total" json:"total"`
	Notes       string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updatedAt"`
}

// ComputeTotal sums the cost fields into Total.
func (e *Expense) ComputeTotal() {
	e.Total = e.Fuel + e.Maintenance + e.Tolls + e.Wages + e.Insurance + e.Permits + e.Other
}
