package services

import (
	"context"
	"fmt"

	"fleet-manager/internal/errs"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IntegrityService keeps trucks and their back-reference arrays consistent
// with the trip and expense collections. The store has no multi-document
// transactions: each operation runs its cascade step, then its repair step,
// and stops at the first data-access failure without rolling back.
//
// A missing parent never blocks the child operation. It is logged as an
// orphan and skipped.
type IntegrityService struct {
	trucks   repository.TruckRepository
	trips    repository.TripRepository
	expenses map[models.ExpenseKind]repository.ExpenseRepository
}

func NewIntegrityService(trucks repository.TruckRepository, trips repository.TripRepository, expenses ...repository.ExpenseRepository) *IntegrityService {
	s := &IntegrityService{
		trucks:   trucks,
		trips:    trips,
		expenses: make(map[models.ExpenseKind]repository.ExpenseRepository, len(expenses)),
	}
	for _, repo := range expenses {
		s.expenses[repo.Kind()] = repo
	}
	return s
}

// CascadeResult reports what a truck delete removed.
type CascadeResult struct {
	TruckID                string   `json:"truckId"`
	TripsDeleted           int64    `json:"tripsDeleted"`
	MonthlyExpensesDeleted int      `json:"monthlyExpensesDeleted"`
	YearlyExpensesDeleted  int      `json:"yearlyExpensesDeleted"`
	Orphans                []string `json:"orphans,omitempty"`
}

// DeleteTruck removes the truck, its trips and every expense listed in its
// expense arrays. The truck is read first so an unknown id deletes nothing.
func (s *IntegrityService) DeleteTruck(ctx context.Context, id string) (*CascadeResult, error) {
	truck, err := s.trucks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	log := logrus.WithField("truck_id", truck.ID.Hex())
	result := &CascadeResult{TruckID: truck.ID.Hex()}

	result.TripsDeleted, err = s.trips.DeleteByTruck(ctx, truck.ID)
	if err != nil {
		return nil, fmt.Errorf("cascade trips of truck %s: %w", truck.ID.Hex(), err)
	}

	for _, kind := range []models.ExpenseKind{models.ExpenseMonthly, models.ExpenseYearly} {
		repo, ok := s.expenses[kind]
		if !ok {
			continue
		}
		for _, expenseID := range truck.Expenses.IDs(kind) {
			err := repo.Delete(ctx, expenseID.Hex())
			switch {
			case errs.IsNotFound(err):
				logOrphan(log.WithField("expense_id", expenseID.Hex()).WithField("kind", kind),
					"truck references a missing expense")
				result.Orphans = append(result.Orphans, expenseID.Hex())
			case err != nil:
				return nil, fmt.Errorf("cascade %s expense %s: %w", kind, expenseID.Hex(), err)
			case kind == models.ExpenseMonthly:
				result.MonthlyExpensesDeleted++
			default:
				result.YearlyExpensesDeleted++
			}
		}
	}

	if err := s.trucks.Delete(ctx, truck.ID.Hex()); err != nil {
		return nil, fmt.Errorf("delete truck %s: %w", truck.ID.Hex(), err)
	}

	log.WithFields(logrus.Fields{
		"trips":            result.TripsDeleted,
		"monthly_expenses": result.MonthlyExpensesDeleted,
		"yearly_expenses":  result.YearlyExpensesDeleted,
		"orphans":          len(result.Orphans),
	}).Info("truck deleted with dependents")

	return result, nil
}

// DeleteTrip removes the trip id from its truck and then deletes the trip.
func (s *IntegrityService) DeleteTrip(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.trips.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if trip.Truck != nil {
		if err := s.detachTrip(ctx, *trip.Truck, trip.ID); err != nil {
			return nil, err
		}
	}

	if err := s.trips.Delete(ctx, trip.ID.Hex()); err != nil {
		return nil, err
	}
	return trip, nil
}

// DeleteExpense removes the expense id from the truck that lists it and then
// deletes the expense.
func (s *IntegrityService) DeleteExpense(ctx context.Context, kind models.ExpenseKind, id string) (*models.Expense, error) {
	repo, err := s.expenseRepo(kind)
	if err != nil {
		return nil, err
	}

	expense, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.detachExpense(ctx, kind, expense); err != nil {
		return nil, err
	}

	if err := repo.Delete(ctx, expense.ID.Hex()); err != nil {
		return nil, err
	}
	return expense, nil
}

// CreateTrip inserts the trip and adds it to its truck. If the attach fails
// the inserted trip is deleted again.
func (s *IntegrityService) CreateTrip(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	if trip.Truck != nil {
		if err := s.EnsureTruck(ctx, *trip.Truck); err != nil {
			return nil, err
		}
	}

	created, err := s.trips.Create(ctx, trip)
	if err != nil {
		return nil, err
	}

	if created.Truck != nil {
		if err := s.trucks.AddTrip(ctx, *created.Truck, created.ID); err != nil {
			s.compensate("trip", created.ID, func() error {
				return s.trips.Delete(ctx, created.ID.Hex())
			})
			return nil, attachError(err)
		}
	}

	return created, nil
}

// CreateExpense inserts the expense and adds it to its truck, with the same
// compensation as CreateTrip.
func (s *IntegrityService) CreateExpense(ctx context.Context, expense *models.Expense, kind models.ExpenseKind) (*models.Expense, error) {
	repo, err := s.expenseRepo(kind)
	if err != nil {
		return nil, err
	}

	if expense.Truck != nil {
		if err := s.EnsureTruck(ctx, *expense.Truck); err != nil {
			return nil, err
		}
	}

	created, err := repo.Create(ctx, expense)
	if err != nil {
		return nil, err
	}

	if created.Truck != nil {
		if err := s.trucks.AddExpense(ctx, kind, *created.Truck, created.ID); err != nil {
			s.compensate(string(kind)+" expense", created.ID, func() error {
				return repo.Delete(ctx, created.ID.Hex())
			})
			return nil, attachError(err)
		}
	}

	return created, nil
}

// MoveTrip re-parents a trip whose truck reference changed.
func (s *IntegrityService) MoveTrip(ctx context.Context, tripID primitive.ObjectID, from, to *primitive.ObjectID) error {
	if sameRef(from, to) {
		return nil
	}
	if from != nil {
		if err := s.detachTrip(ctx, *from, tripID); err != nil {
			return err
		}
	}
	if to != nil {
		if err := s.trucks.AddTrip(ctx, *to, tripID); err != nil {
			return attachError(err)
		}
	}
	return nil
}

// MoveExpense re-parents an expense whose truck reference changed. The old
// owner is found by array membership.
func (s *IntegrityService) MoveExpense(ctx context.Context, kind models.ExpenseKind, expense *models.Expense, from *primitive.ObjectID) error {
	if sameRef(from, expense.Truck) {
		return nil
	}
	if err := s.detachExpense(ctx, kind, &models.Expense{ID: expense.ID, Truck: from}); err != nil {
		return err
	}
	if expense.Truck != nil {
		if err := s.trucks.AddExpense(ctx, kind, *expense.Truck, expense.ID); err != nil {
			return attachError(err)
		}
	}
	return nil
}

// EnsureTruck returns InvalidArgument when the referenced truck is missing.
func (s *IntegrityService) EnsureTruck(ctx context.Context, truckID primitive.ObjectID) error {
	_, err := s.trucks.FindByID(ctx, truckID.Hex())
	return attachError(err)
}

func (s *IntegrityService) detachTrip(ctx context.Context, truckID, tripID primitive.ObjectID) error {
	log := logrus.WithFields(logrus.Fields{"truck_id": truckID.Hex(), "trip_id": tripID.Hex()})

	truck, err := s.trucks.FindByID(ctx, truckID.Hex())
	if errs.IsNotFound(err) {
		logOrphan(log, "trip references a missing truck")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load truck of trip %s: %w", tripID.Hex(), err)
	}

	trips, removed := removeFirst(truck.Trips, tripID)
	if !removed {
		logOrphan(log, "truck does not list trip")
		return nil
	}

	err = s.trucks.SetTrips(ctx, truck.ID, trips)
	if errs.IsNotFound(err) {
		logOrphan(log, "truck removed during trip detach")
		return nil
	}
	if err != nil {
		return fmt.Errorf("detach trip %s: %w", tripID.Hex(), err)
	}
	return nil
}

func (s *IntegrityService) detachExpense(ctx context.Context, kind models.ExpenseKind, expense *models.Expense) error {
	log := logrus.WithFields(logrus.Fields{"expense_id": expense.ID.Hex(), "kind": kind})

	truck, err := s.trucks.FindByExpense(ctx, kind, expense.ID)
	if errs.IsNotFound(err) {
		if expense.Truck != nil {
			logOrphan(log.WithField("truck_id", expense.Truck.Hex()), "no truck lists expense")
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load truck of %s expense %s: %w", kind, expense.ID.Hex(), err)
	}

	ids, _ := removeFirst(truck.Expenses.IDs(kind), expense.ID)
	err = s.trucks.SetExpenses(ctx, kind, truck.ID, ids)
	if errs.IsNotFound(err) {
		logOrphan(log.WithField("truck_id", truck.ID.Hex()), "truck removed during expense detach")
		return nil
	}
	if err != nil {
		return fmt.Errorf("detach %s expense %s: %w", kind, expense.ID.Hex(), err)
	}
	return nil
}

func (s *IntegrityService) expenseRepo(kind models.ExpenseKind) (repository.ExpenseRepository, error) {
	repo, ok := s.expenses[kind]
	if !ok {
		return nil, errs.InvalidArgument("unknown expense kind")
	}
	return repo, nil
}

func (s *IntegrityService) compensate(label string, id primitive.ObjectID, undo func() error) {
	if err := undo(); err != nil {
		logOrphan(logrus.WithField("id", id.Hex()).WithError(err), "failed to remove unattached "+label)
	}
}

// removeFirst drops the first occurrence of id, keeping the order of the
// remaining ids.
func removeFirst(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	for i, v := range ids {
		if v == id {
			out := make([]primitive.ObjectID, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			return append(out, ids[i+1:]...), true
		}
	}
	return ids, false
}

func sameRef(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// attachError reports a missing truck as a client error.
func attachError(err error) error {
	if errs.IsNotFound(err) {
		return errs.InvalidArgument("truck does not exist")
	}
	return err
}

func logOrphan(entry *logrus.Entry, msg string) {
	entry.WithField("orphan", true).Warn(msg)
}
