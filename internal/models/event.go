package models

import "time"

const (
	ResourceTruck   = "truck"
	ResourceTrip    = "trip"
	ResourceExpense = "expense"
)

type ChangeAction string

const (
	ChangeCreated ChangeAction = "created"
	ChangeUpdated ChangeAction = "updated"
	ChangeDeleted ChangeAction = "deleted"
)

// ChangeEvent describes a committed write. Data carries the document after
// the write, or the cascade summary for a deleted truck.
type ChangeEvent struct {
	Resource  string       `json:"resource"`
	Kind      ExpenseKind  `json:"kind,omitempty"`
	Action    ChangeAction `json:"action"`
	ID        string       `json:"id"`
	Truck     string       `json:"truck,omitempty"`
	Data      interface{}  `json:"data,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
