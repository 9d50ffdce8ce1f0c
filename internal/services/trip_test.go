package services

import (
	"context"
	"testing"

	"fleet-manager/internal/errs"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTripServices(store *memory.Store) (*TruckService, *TripService, *ExpenseService, *ExpenseService) {
	monthly := store.Expenses(models.ExpenseMonthly)
	yearly := store.Expenses(models.ExpenseYearly)
	integrity := NewIntegrityService(store.Trucks(), store.Trips(), monthly, yearly)
	return NewTruckService(store.Trucks(), store.Trips(), integrity),
		NewTripService(store.Trips(), integrity),
		NewExpenseService(monthly, integrity),
		NewExpenseService(yearly, integrity)
}

func ptr[T any](v T) *T { return &v }

func TestTripService_CreateNormalizes(t *testing.T) {
	store := memory.NewStore()
	trucks, trips, _, _ := newTripServices(store)
	ctx := context.Background()

	truck, err := trucks.CreateTruck(ctx, &CreateTruckRequest{PlateNumber: "KBX 123A"})
	require.NoError(t, err)

	trip, err := trips.CreateTrip(ctx, &CreateTripRequest{
		Truck: ptr(truck.ID.Hex()),
		Year:  "2024",
		Month: "mARCH",
	})
	require.NoError(t, err)
	assert.Equal(t, "March", trip.Month)
	assert.Equal(t, models.TripStatusPending, trip.Status)

	fresh, err := trucks.GetTruckByID(ctx, truck.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{trip.ID}, fresh.Trips)
}

func TestTripService_Queries(t *testing.T) {
	store := memory.NewStore()
	trucks, trips, _, _ := newTripServices(store)
	ctx := context.Background()

	truck, err := trucks.CreateTruck(ctx, &CreateTruckRequest{PlateNumber: "KBX 123A"})
	require.NoError(t, err)
	truckID := truck.ID.Hex()

	pending, err := trips.CreateTrip(ctx, &CreateTripRequest{Truck: &truckID, Year: "2024", Month: "March"})
	require.NoError(t, err)
	completed, err := trips.CreateTrip(ctx, &CreateTripRequest{Truck: &truckID, Year: "2024", Month: "march", Status: "completed"})
	require.NoError(t, err)
	_, err = trips.CreateTrip(ctx, &CreateTripRequest{Year: "2023", Month: "April", Status: "Completed"})
	require.NoError(t, err)

	got, err := trips.GetPendingTrips(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)

	got, err = trips.GetCompletedTrips(ctx, "MARCH", "2024")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, completed.ID, got[0].ID)

	got, err = trips.GetCompletedTrips(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = trips.GetCompletedTrips(ctx, "", "2023")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = trips.GetTripsByTruckPeriod(ctx, truckID, "2024", "march")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = trips.GetTripsByTruckPeriod(ctx, "bogus", "2024", "march")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestTripService_UpdateMovesTrip(t *testing.T) {
	store := memory.NewStore()
	trucks, trips, _, _ := newTripServices(store)
	ctx := context.Background()

	from, err := trucks.CreateTruck(ctx, &CreateTruckRequest{PlateNumber: "A"})
	require.NoError(t, err)
	to, err := trucks.CreateTruck(ctx, &CreateTruckRequest{PlateNumber: "B"})
	require.NoError(t, err)

	trip, err := trips.CreateTrip(ctx, &CreateTripRequest{Truck: ptr(from.ID.Hex()), Year: "2024", Month: "May"})
	require.NoError(t, err)

	t.Run("missing target truck", func(t *testing.T) {
		_, err := trips.UpdateTrip(ctx, trip.ID.Hex(), &UpdateTripRequest{Truck: ptr(primitive.NewObjectID().Hex())})
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)

		// Nothing moved.
		fresh, err := trucks.GetTruckByID(ctx, from.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{trip.ID}, fresh.Trips)
	})

	t.Run("move", func(t *testing.T) {
		updated, err := trips.UpdateTrip(ctx, trip.ID.Hex(), &UpdateTripRequest{
			Truck:  ptr(to.ID.Hex()),
			Status: ptr("completed"),
		})
		require.NoError(t, err)
		assert.Equal(t, to.ID, *updated.Truck)
		assert.Equal(t, models.TripStatusCompleted, updated.Status)
		assert.Equal(t, "May", updated.Month)

		oldTruck, err := trucks.GetTruckByID(ctx, from.ID.Hex())
		require.NoError(t, err)
		assert.Empty(t, oldTruck.Trips)

		newTruck, err := trucks.GetTruckByID(ctx, to.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{trip.ID}, newTruck.Trips)
	})
}

func TestTripService_Delete(t *testing.T) {
	store := memory.NewStore()
	trucks, trips, _, _ := newTripServices(store)
	ctx := context.Background()

	truck, err := trucks.CreateTruck(ctx, &CreateTruckRequest{PlateNumber: "A"})
	require.NoError(t, err)
	trip, err := trips.CreateTrip(ctx, &CreateTripRequest{Truck: ptr(truck.ID.Hex()), Year: "2024", Month: "May"})
	require.NoError(t, err)

	require.NoError(t, trips.DeleteTrip(ctx, trip.ID.Hex()))

	_, err = trips.GetTripByID(ctx, trip.ID.Hex())
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, trips.DeleteTrip(ctx, trip.ID.Hex()), errs.ErrNotFound)
}

func TestExpenseService(t *testing.T) {
	store := memory.NewStore()
	trucks, _, monthly, yearly := newTripServices(store)
	ctx := context.Background()

	truck, err := trucks.CreateTruck(ctx, &CreateTruckRequest{PlateNumber: "A"})
	require.NoError(t, err)
	truckID := truck.ID.Hex()

	t.Run("monthly requires month", func(t *testing.T) {
		_, err := monthly.CreateExpense(ctx, &CreateExpenseRequest{Truck: &truckID, Year: "2024"})
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("yearly rejects month", func(t *testing.T) {
		_, err := yearly.CreateExpense(ctx, &CreateExpenseRequest{Truck: &truckID, Year: "2024", Month: "May"})
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("total computed and recomputed", func(t *testing.T) {
		created, err := monthly.CreateExpense(ctx, &CreateExpenseRequest{
			Truck: &truckID, Year: "2024", Month: "june", Fuel: 100, Tolls: 20.5,
		})
		require.NoError(t, err)
		assert.Equal(t, 120.5, created.Total)
		assert.Equal(t, "June", created.Month)

		updated, err := monthly.UpdateExpense(ctx, created.ID.Hex(), &UpdateExpenseRequest{Wages: ptr(50.0)})
		require.NoError(t, err)
		assert.Equal(t, 170.5, updated.Total)
		assert.Equal(t, 100.0, updated.Fuel)

		fresh, err := trucks.GetTruckByID(ctx, truckID)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{created.ID}, fresh.Expenses.MonthlyExpenses)

		require.NoError(t, monthly.DeleteExpense(ctx, created.ID.Hex()))
		fresh, err = trucks.GetTruckByID(ctx, truckID)
		require.NoError(t, err)
		assert.Empty(t, fresh.Expenses.MonthlyExpenses)
	})

	t.Run("update moves between trucks", func(t *testing.T) {
		other, err := trucks.CreateTruck(ctx, &CreateTruckRequest{PlateNumber: "B"})
		require.NoError(t, err)

		created, err := yearly.CreateExpense(ctx, &CreateExpenseRequest{Truck: &truckID, Year: "2024", Insurance: 900})
		require.NoError(t, err)

		_, err = yearly.UpdateExpense(ctx, created.ID.Hex(), &UpdateExpenseRequest{Truck: ptr(other.ID.Hex())})
		require.NoError(t, err)

		fresh, err := trucks.GetTruckByID(ctx, truckID)
		require.NoError(t, err)
		assert.Empty(t, fresh.Expenses.YearlyExpenses)

		fresh, err = trucks.GetTruckByID(ctx, other.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{created.ID}, fresh.Expenses.YearlyExpenses)
	})
}
