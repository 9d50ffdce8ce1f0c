package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Report summarises one sweep.
type Report struct {
	TrucksScanned      int                        `json:"trucksScanned"`
	DanglingTripRefs   int                        `json:"danglingTripRefs"`
	DanglingExpenseRef map[models.ExpenseKind]int `json:"danglingExpenseRefs"`
	ReattachedTrips    int                        `json:"reattachedTrips"`
	ReattachedExpenses int                        `json:"reattachedExpenses"`
	OrphanTrips        int                        `json:"orphanTrips"`
	OrphanExpenses     int                        `json:"orphanExpenses"`
	Duration           time.Duration              `json:"duration"`
}

// Changed reports whether the sweep repaired anything.
func (r *Report) Changed() bool {
	dangling := r.DanglingTripRefs
	for _, n := range r.DanglingExpenseRef {
		dangling += n
	}
	return dangling+r.ReattachedTrips+r.ReattachedExpenses > 0
}

// Sweeper reconciles truck back-references with the trip and expense
// collections. It drops references to documents that no longer exist and
// re-attaches documents whose truck does not list them. Children pointing at
// a missing truck are counted and logged but left alone.
type Sweeper struct {
	trucks   repository.TruckRepository
	trips    repository.TripRepository
	expenses []repository.ExpenseRepository
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(trucks repository.TruckRepository, trips repository.TripRepository, interval time.Duration, expenses ...repository.ExpenseRepository) *Sweeper {
	return &Sweeper{
		trucks:   trucks,
		trips:    trips,
		expenses: expenses,
		interval: interval,
	}
}

type snapshot struct {
	trucks   []*models.Truck
	trips    []*models.Trip
	expenses map[models.ExpenseKind][]*models.Expense
}

// load reads trucks before their children. A child created after the truck
// read then shows up as unattached and gets re-added, instead of a fresh
// back-reference looking dangling.
func (s *Sweeper) load(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{expenses: make(map[models.ExpenseKind][]*models.Expense, len(s.expenses))}

	trucks, err := s.trucks.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	snap.trucks = trucks

	results := make([][]*models.Expense, len(s.expenses))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.trips, err = s.trips.FindAll(gctx)
		return err
	})
	for i, repo := range s.expenses {
		i, repo := i, repo
		g.Go(func() (err error) {
			results[i], err = repo.FindAll(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, repo := range s.expenses {
		snap.expenses[repo.Kind()] = results[i]
	}
	return snap, nil
}

// Sweep runs one reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{DanglingExpenseRef: make(map[models.ExpenseKind]int)}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	report.TrucksScanned = len(snap.trucks)

	trucks := make(map[primitive.ObjectID]*models.Truck, len(snap.trucks))
	for _, truck := range snap.trucks {
		trucks[truck.ID] = truck
	}

	// Trips
	tripIDs := make(map[primitive.ObjectID]bool, len(snap.trips))
	for _, trip := range snap.trips {
		tripIDs[trip.ID] = true
	}
	for _, truck := range snap.trucks {
		kept, dangling := splitIDs(truck.Trips, tripIDs)
		if len(dangling) == 0 {
			continue
		}
		if err := s.trucks.PullTrips(ctx, truck.ID, dangling); err != nil {
			return nil, fmt.Errorf("failed to prune trips of truck %s: %w", truck.ID.Hex(), err)
		}
		truck.Trips = kept
		report.DanglingTripRefs += len(dangling)
	}
	for _, trip := range snap.trips {
		if trip.Truck == nil {
			continue
		}
		truck, ok := trucks[*trip.Truck]
		if !ok {
			report.OrphanTrips++
			logrus.WithFields(logrus.Fields{"trip_id": trip.ID.Hex(), "truck_id": trip.Truck.Hex(), "orphan": true}).
				Warn("trip references a missing truck")
			continue
		}
		if containsID(truck.Trips, trip.ID) {
			continue
		}
		if err := s.trucks.AddTrip(ctx, truck.ID, trip.ID); err != nil {
			return nil, fmt.Errorf("failed to attach trip %s: %w", trip.ID.Hex(), err)
		}
		truck.Trips = append(truck.Trips, trip.ID)
		report.ReattachedTrips++
	}

	// Expenses
	for _, repo := range s.expenses {
		kind := repo.Kind()
		expenses := snap.expenses[kind]

		expenseIDs := make(map[primitive.ObjectID]bool, len(expenses))
		for _, e := range expenses {
			expenseIDs[e.ID] = true
		}

		attached := make(map[primitive.ObjectID][]primitive.ObjectID, len(snap.trucks))
		for _, truck := range snap.trucks {
			kept, dangling := splitIDs(truck.Expenses.IDs(kind), expenseIDs)
			attached[truck.ID] = kept
			if len(dangling) == 0 {
				continue
			}
			if err := s.trucks.PullExpenses(ctx, kind, truck.ID, dangling); err != nil {
				return nil, fmt.Errorf("failed to prune %s expenses of truck %s: %w", kind, truck.ID.Hex(), err)
			}
			report.DanglingExpenseRef[kind] += len(dangling)
		}

		for _, e := range expenses {
			if e.Truck == nil {
				continue
			}
			if _, ok := trucks[*e.Truck]; !ok {
				report.OrphanExpenses++
				logrus.WithFields(logrus.Fields{"expense_id": e.ID.Hex(), "kind": kind, "truck_id": e.Truck.Hex(), "orphan": true}).
					Warn("expense references a missing truck")
				continue
			}
			if containsID(attached[*e.Truck], e.ID) {
				continue
			}
			if err := s.trucks.AddExpense(ctx, kind, *e.Truck, e.ID); err != nil {
				return nil, fmt.Errorf("failed to attach %s expense %s: %w", kind, e.ID.Hex(), err)
			}
			attached[*e.Truck] = append(attached[*e.Truck], e.ID)
			report.ReattachedExpenses++
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

// Start runs a sweep immediately and then on every interval until Stop is
// called or ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	logrus.WithField("interval", s.interval.String()).Info("starting reference sweeper")

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)
		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-ctx.Done():
				logrus.Info("stopping reference sweeper")
				return
			}
		}
	}()
}

// Stop cancels the loop and waits for the running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) runOnce(ctx context.Context) {
	report, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logrus.WithError(err).Error("reference sweep failed")
		}
		return
	}

	entry := logrus.WithFields(logrus.Fields{
		"trucks":              report.TrucksScanned,
		"dangling_trips":      report.DanglingTripRefs,
		"dangling_expenses":   report.DanglingExpenseRef,
		"reattached_trips":    report.ReattachedTrips,
		"reattached_expenses": report.ReattachedExpenses,
		"orphan_trips":        report.OrphanTrips,
		"orphan_expenses":     report.OrphanExpenses,
		"duration_ms":         report.Duration.Milliseconds(),
	})
	if report.Changed() {
		entry.Info("reference sweep repaired documents")
	} else {
		entry.Debug("reference sweep found nothing to repair")
	}
}

func splitIDs(ids []primitive.ObjectID, existing map[primitive.ObjectID]bool) (kept, dangling []primitive.ObjectID) {
	kept = make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if existing[id] {
			kept = append(kept, id)
		} else {
			dangling = append(dangling, id)
		}
	}
	return kept, dangling
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
