package cleanup

import (
	"context"
	"testing"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newSweeper(store *memory.Store, interval time.Duration) *Sweeper {
	return NewSweeper(store.Trucks(), store.Trips(), interval,
		store.Expenses(models.ExpenseMonthly), store.Expenses(models.ExpenseYearly))
}

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	truck, err := store.Trucks().Create(ctx, &models.Truck{PlateNumber: "KBX 123A"})
	require.NoError(t, err)

	// Attached trip, unattached trip, dangling reference.
	attached, err := store.Trips().Create(ctx, &models.Trip{Truck: &truck.ID, Year: "2024", Month: "March"})
	require.NoError(t, err)
	require.NoError(t, store.Trucks().AddTrip(ctx, truck.ID, attached.ID))

	unattached, err := store.Trips().Create(ctx, &models.Trip{Truck: &truck.ID, Year: "2024", Month: "April"})
	require.NoError(t, err)

	require.NoError(t, store.Trucks().AddTrip(ctx, truck.ID, primitive.NewObjectID()))

	missingTruck := primitive.NewObjectID()
	_, err = store.Trips().Create(ctx, &models.Trip{Truck: &missingTruck, Year: "2024", Month: "May"})
	require.NoError(t, err)

	expense, err := store.Expenses(models.ExpenseMonthly).Create(ctx, &models.Expense{Truck: &truck.ID, Year: "2024", Month: "March"})
	require.NoError(t, err)
	require.NoError(t, store.Trucks().AddExpense(ctx, models.ExpenseYearly, truck.ID, primitive.NewObjectID()))

	report, err := newSweeper(store, time.Minute).Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TrucksScanned)
	assert.Equal(t, 1, report.DanglingTripRefs)
	assert.Equal(t, 1, report.ReattachedTrips)
	assert.Equal(t, 1, report.OrphanTrips)
	assert.Equal(t, 1, report.DanglingExpenseRef[models.ExpenseYearly])
	assert.Equal(t, 1, report.ReattachedExpenses)
	assert.True(t, report.Changed())

	got, err := store.Trucks().FindByID(ctx, truck.ID.Hex())
	require.NoError(t, err)
	assert.ElementsMatch(t, []primitive.ObjectID{attached.ID, unattached.ID}, got.Trips)
	assert.Equal(t, []primitive.ObjectID{expense.ID}, got.Expenses.MonthlyExpenses)
	assert.Empty(t, got.Expenses.YearlyExpenses)

	// A second pass has nothing left to repair.
	report, err = newSweeper(store, time.Minute).Sweep(ctx)
	require.NoError(t, err)
	assert.False(t, report.Changed())
	assert.Equal(t, 1, report.OrphanTrips)
}

// afterFindAll runs hook once the trip snapshot has been read, standing in
// for a write that lands while the sweep is in progress.
type afterFindAll struct {
	repository.TripRepository
	hook func()
}

func (a *afterFindAll) FindAll(ctx context.Context) ([]*models.Trip, error) {
	trips, err := a.TripRepository.FindAll(ctx)
	if err == nil && a.hook != nil {
		a.hook()
	}
	return trips, err
}

func TestSweeper_ConcurrentAttachSurvives(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	truck, err := store.Trucks().Create(ctx, &models.Truck{PlateNumber: "KDA 442C"})
	require.NoError(t, err)
	dangling := primitive.NewObjectID()
	require.NoError(t, store.Trucks().AddTrip(ctx, truck.ID, dangling))

	var live *models.Trip
	trips := &afterFindAll{TripRepository: store.Trips(), hook: func() {
		live, err = store.Trips().Create(ctx, &models.Trip{Truck: &truck.ID, Year: "2024", Month: "June"})
		require.NoError(t, err)
		require.NoError(t, store.Trucks().AddTrip(ctx, truck.ID, live.ID))
	}}

	sweeper := NewSweeper(store.Trucks(), trips, time.Minute,
		store.Expenses(models.ExpenseMonthly), store.Expenses(models.ExpenseYearly))
	report, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DanglingTripRefs)

	got, err := store.Trucks().FindByID(ctx, truck.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{live.ID}, got.Trips)
}

func TestSweeper_StartStop(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	truck, err := store.Trucks().Create(ctx, &models.Truck{PlateNumber: "KCA 001B"})
	require.NoError(t, err)
	require.NoError(t, store.Trucks().AddTrip(ctx, truck.ID, primitive.NewObjectID()))

	sweeper := newSweeper(store, 10*time.Millisecond)
	sweeper.Start(ctx)
	sweeper.Start(ctx)

	assert.Eventually(t, func() bool {
		got, err := store.Trucks().FindByID(ctx, truck.ID.Hex())
		return err == nil && len(got.Trips) == 0
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()
}
