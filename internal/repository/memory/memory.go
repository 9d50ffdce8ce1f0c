// Package memory is an in-process implementation of the repository
// interfaces. It mirrors the Mongo repositories' error classification and
// merge-on-update behaviour and backs the handler and service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fleet-manager/internal/errs"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu       sync.RWMutex
	trucks   map[primitive.ObjectID]*models.Truck
	trips    map[primitive.ObjectID]*models.Trip
	expenses map[models.ExpenseKind]map[primitive.ObjectID]*models.Expense
	users    map[primitive.ObjectID]*models.User
}

func NewStore() *Store {
	return &Store{
		trucks: make(map[primitive.ObjectID]*models.Truck),
		trips:  make(map[primitive.ObjectID]*models.Trip),
		expenses: map[models.ExpenseKind]map[primitive.ObjectID]*models.Expense{
			models.ExpenseMonthly: make(map[primitive.ObjectID]*models.Expense),
			models.ExpenseYearly:  make(map[primitive.ObjectID]*models.Expense),
		},
		users: make(map[primitive.ObjectID]*models.User),
	}
}

func (s *Store) Trucks() *Trucks { return &Trucks{s} }

func (s *Store) Trips() *Trips { return &Trips{s} }

func (s *Store) Expenses(kind models.ExpenseKind) *Expenses { return &Expenses{s, kind} }

func (s *Store) Users() *Users { return &Users{s} }

var (
	_ repository.TruckRepository   = (*Trucks)(nil)
	_ repository.TripRepository    = (*Trips)(nil)
	_ repository.ExpenseRepository = (*Expenses)(nil)
	_ repository.UserRepository    = (*Users)(nil)
)

func parseID(id, label string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errs.InvalidArgument("invalid " + label + " ID")
	}
	return oid, nil
}

// clone deep-copies a document through BSON so callers never share state
// with the store.
func clone[T any](src *T) *T {
	data, err := bson.Marshal(src)
	if err != nil {
		panic(err)
	}
	var dst T
	if err := bson.Unmarshal(data, &dst); err != nil {
		panic(err)
	}
	return &dst
}

// merge applies $set semantics: fields present in the update replace the
// stored values, everything else is kept.
func merge[T any](doc *T, fields bson.M) (*T, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	current := bson.M{}
	if err := bson.Unmarshal(data, &current); err != nil {
		return nil, err
	}
	for k, v := range fields {
		current[k] = v
	}
	data, err = bson.Marshal(current)
	if err != nil {
		return nil, err
	}
	var out T
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func sortedIDs[T any](m map[primitive.ObjectID]*T) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type Trucks struct{ s *Store }

func (r *Trucks) FindAll(context.Context) ([]*models.Truck, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Truck, 0, len(r.s.trucks))
	for _, id := range sortedIDs(r.s.trucks) {
		out = append(out, clone(r.s.trucks[id]))
	}
	return out, nil
}

func (r *Trucks) FindByID(_ context.Context, id string) (*models.Truck, error) {
	oid, err := parseID(id, "truck")
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	truck, ok := r.s.trucks[oid]
	if !ok {
		return nil, errs.NotFound("truck not found")
	}
	return clone(truck), nil
}

func (r *Trucks) FindByExpense(_ context.Context, kind models.ExpenseKind, expenseID primitive.ObjectID) (*models.Truck, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range sortedIDs(r.s.trucks) {
		truck := r.s.trucks[id]
		if contains(truck.Expenses.IDs(kind), expenseID) {
			return clone(truck), nil
		}
	}
	return nil, errs.NotFound("truck not found")
}

func (r *Trucks) Create(_ context.Context, truck *models.Truck) (*models.Truck, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	truck.ID = primitive.NewObjectID()
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
	r.s.trucks[truck.ID] = clone(truck)
	return truck, nil
}

func (r *Trucks) Update(_ context.Context, id string, fields bson.M) (*models.Truck, error) {
	oid, err := parseID(id, "truck")
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	truck, ok := r.s.trucks[oid]
	if !ok {
		return nil, errs.NotFound("truck not found")
	}
	fields["updated_at"] = time.Now()
	updated, err := merge(truck, fields)
	if err != nil {
		return nil, errs.DataAccess("failed to update truck", err)
	}
	r.s.trucks[oid] = updated
	return clone(updated), nil
}

func (r *Trucks) Delete(_ context.Context, id string) error {
	oid, err := parseID(id, "truck")
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trucks[oid]; !ok {
		return errs.NotFound("truck not found")
	}
	delete(r.s.trucks, oid)
	return nil
}

func (r *Trucks) AddTrip(_ context.Context, truckID, tripID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	truck, ok := r.s.trucks[truckID]
	if !ok {
		return errs.NotFound("truck not found")
	}
	if !contains(truck.Trips, tripID) {
		truck.Trips = append(truck.Trips, tripID)
	}
	return nil
}

func (r *Trucks) SetTrips(_ context.Context, truckID primitive.ObjectID, trips []primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	truck, ok := r.s.trucks[truckID]
	if !ok {
		return errs.NotFound("truck not found")
	}
	truck.Trips = append([]primitive.ObjectID{}, trips...)
	return nil
}

func (r *Trucks) AddExpense(_ context.Context, kind models.ExpenseKind, truckID, expenseID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	truck, ok := r.s.trucks[truckID]
	if !ok {
		return errs.NotFound("truck not found")
	}
	if contains(truck.Expenses.IDs(kind), expenseID) {
		return nil
	}
	if kind == models.ExpenseMonthly {
		truck.Expenses.MonthlyExpenses = append(truck.Expenses.MonthlyExpenses, expenseID)
	} else {
		truck.Expenses.YearlyExpenses = append(truck.Expenses.YearlyExpenses, expenseID)
	}
	return nil
}

func (r *Trucks) SetExpenses(_ context.Context, kind models.ExpenseKind, truckID primitive.ObjectID, ids []primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	truck, ok := r.s.trucks[truckID]
	if !ok {
		return errs.NotFound("truck not found")
	}
	cp := append([]primitive.ObjectID{}, ids...)
	if kind == models.ExpenseMonthly {
		truck.Expenses.MonthlyExpenses = cp
	} else {
		truck.Expenses.YearlyExpenses = cp
	}
	return nil
}

func (r *Trucks) PullTrips(_ context.Context, truckID primitive.ObjectID, ids []primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	truck, ok := r.s.trucks[truckID]
	if !ok {
		return errs.NotFound("truck not found")
	}
	truck.Trips = without(truck.Trips, ids)
	return nil
}

func (r *Trucks) PullExpenses(_ context.Context, kind models.ExpenseKind, truckID primitive.ObjectID, ids []primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	truck, ok := r.s.trucks[truckID]
	if !ok {
		return errs.NotFound("truck not found")
	}
	if kind == models.ExpenseMonthly {
		truck.Expenses.MonthlyExpenses = without(truck.Expenses.MonthlyExpenses, ids)
	} else {
		truck.Expenses.YearlyExpenses = without(truck.Expenses.YearlyExpenses, ids)
	}
	return nil
}

func without(ids, drop []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !contains(drop, id) {
			out = append(out, id)
		}
	}
	return out
}

type Trips struct{ s *Store }

func (r *Trips) FindAll(ctx context.Context) ([]*models.Trip, error) {
	return r.Find(ctx, repository.TripFilter{})
}

func (r *Trips) FindByID(_ context.Context, id string) (*models.Trip, error) {
	oid, err := parseID(id, "trip")
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	trip, ok := r.s.trips[oid]
	if !ok {
		return nil, errs.NotFound("trip not found")
	}
	return clone(trip), nil
}

func (r *Trips) Find(_ context.Context, filter repository.TripFilter) ([]*models.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Trip, 0)
	for _, id := range sortedIDs(r.s.trips) {
		trip := r.s.trips[id]
		if filter.Truck != nil && (trip.Truck == nil || *trip.Truck != *filter.Truck) {
			continue
		}
		if filter.Year != "" && !strings.EqualFold(trip.Year, filter.Year) {
			continue
		}
		if filter.Month != "" && !strings.EqualFold(trip.Month, filter.Month) {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(trip.Status, filter.Status) {
			continue
		}
		out = append(out, clone(trip))
	}
	return out, nil
}

func (r *Trips) Create(_ context.Context, trip *models.Trip) (*models.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	trip.ID = primitive.NewObjectID()
	trip.CreatedAt = now
	trip.UpdatedAt = now
	r.s.trips[trip.ID] = clone(trip)
	return trip, nil
}

func (r *Trips) Update(_ context.Context, id string, fields bson.M) (*models.Trip, error) {
	oid, err := parseID(id, "trip")
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	trip, ok := r.s.trips[oid]
	if !ok {
		return nil, errs.NotFound("trip not found")
	}
	fields["updated_at"] = time.Now()
	updated, err := merge(trip, fields)
	if err != nil {
		return nil, errs.DataAccess("failed to update trip", err)
	}
	r.s.trips[oid] = updated
	return clone(updated), nil
}

func (r *Trips) Delete(_ context.Context, id string) error {
	oid, err := parseID(id, "trip")
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[oid]; !ok {
		return errs.NotFound("trip not found")
	}
	delete(r.s.trips, oid)
	return nil
}

func (r *Trips) DeleteByTruck(_ context.Context, truckID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, trip := range r.s.trips {
		if trip.Truck != nil && *trip.Truck == truckID {
			delete(r.s.trips, id)
			n++
		}
	}
	return n, nil
}

type Expenses struct {
	s    *Store
	kind models.ExpenseKind
}

func (r *Expenses) label() string {
	return string(r.kind) + " expense"
}

func (r *Expenses) Kind() models.ExpenseKind {
	return r.kind
}

func (r *Expenses) FindAll(context.Context) ([]*models.Expense, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	docs := r.s.expenses[r.kind]
	out := make([]*models.Expense, 0, len(docs))
	for _, id := range sortedIDs(docs) {
		out = append(out, clone(docs[id]))
	}
	return out, nil
}

func (r *Expenses) FindByID(_ context.Context, id string) (*models.Expense, error) {
	oid, err := parseID(id, r.label())
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	expense, ok := r.s.expenses[r.kind][oid]
	if !ok {
		return nil, errs.NotFound(r.label() + " not found")
	}
	return clone(expense), nil
}

func (r *Expenses) Create(_ context.Context, expense *models.Expense) (*models.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	expense.ID = primitive.NewObjectID()
	expense.CreatedAt = now
	expense.UpdatedAt = now
	r.s.expenses[r.kind][expense.ID] = clone(expense)
	return expense, nil
}

func (r *Expenses) Update(_ context.Context, id string, fields bson.M) (*models.Expense, error) {
	oid, err := parseID(id, r.label())
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	expense, ok := r.s.expenses[r.kind][oid]
	if !ok {
		return nil, errs.NotFound(r.label() + " not found")
	}
	fields["updated_at"] = time.Now()
	updated, err := merge(expense, fields)
	if err != nil {
		return nil, errs.DataAccess("failed to update "+r.label(), err)
	}
	r.s.expenses[r.kind][oid] = updated
	return clone(updated), nil
}

func (r *Expenses) Delete(_ context.Context, id string) error {
	oid, err := parseID(id, r.label())
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.expenses[r.kind][oid]; !ok {
		return errs.NotFound(r.label() + " not found")
	}
	delete(r.s.expenses[r.kind], oid)
	return nil
}

type Users struct{ s *Store }

func (r *Users) FindByID(_ context.Context, id string) (*models.User, error) {
	oid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[oid]
	if !ok {
		return nil, errs.NotFound("user not found")
	}
	return clone(user), nil
}

func (r *Users) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if user.Username == username {
			return clone(user), nil
		}
	}
	return nil, errs.NotFound("user not found")
}

func (r *Users) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == user.Username {
			return nil, errs.Conflict("user already exists")
		}
	}

	now := time.Now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = clone(user)
	return user, nil
}
