package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"fleet-manager/internal/errs"
	"fleet-manager/internal/models"
	"fleet-manager/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// newTestConnector connects to MONGO_URI with a throwaway database that is
// dropped when the test ends.
func newTestConnector(t *testing.T) database.Connector {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping MongoDB integration test")
	}

	ctx := context.Background()
	dbName := "fleet_manager_test_" + primitive.NewObjectID().Hex()
	conn, err := database.NewPooledConnector(ctx, uri, dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		db, release, err := conn.Acquire(ctx)
		if err == nil {
			_ = db.Drop(ctx)
			release()
		}
		_ = conn.Close(ctx)
	})

	require.NoError(t, database.EnsureIndexes(ctx, conn))
	return conn
}

func TestMongoRepositories(t *testing.T) {
	conn := newTestConnector(t)
	ctx := context.Background()

	trucks := NewTruckRepository(conn, 5*time.Second)
	trips := NewTripRepository(conn, 5*time.Second)
	monthly := NewExpenseRepository(conn, models.ExpenseMonthly, 5*time.Second)
	users := NewUserRepository(conn, 5*time.Second)

	truck, err := trucks.Create(ctx, &models.Truck{PlateNumber: "KBX 123A"})
	require.NoError(t, err)
	require.False(t, truck.ID.IsZero())

	t.Run("truck lookups", func(t *testing.T) {
		_, err := trucks.FindByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)

		_, err = trucks.FindByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, errs.ErrNotFound)

		updated, err := trucks.Update(ctx, truck.ID.Hex(), bson.M{"driver": "Jane Doe"})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", updated.Driver)
		assert.Equal(t, "KBX 123A", updated.PlateNumber)
	})

	t.Run("trip arrays and filters", func(t *testing.T) {
		trip, err := trips.Create(ctx, &models.Trip{Truck: &truck.ID, Year: "2024", Month: "March", Status: models.TripStatusCompleted})
		require.NoError(t, err)

		require.NoError(t, trucks.AddTrip(ctx, truck.ID, trip.ID))
		require.NoError(t, trucks.AddTrip(ctx, truck.ID, trip.ID))

		got, err := trucks.FindByID(ctx, truck.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{trip.ID}, got.Trips)

		found, err := trips.Find(ctx, TripFilter{Status: "completed", Month: "MARCH", Year: "2024"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, trip.ID, found[0].ID)

		deleted, err := trips.DeleteByTruck(ctx, truck.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})

	t.Run("expense back-reference", func(t *testing.T) {
		expense, err := monthly.Create(ctx, &models.Expense{Truck: &truck.ID, Year: "2024", Month: "March", Fuel: 10, Total: 10})
		require.NoError(t, err)
		require.NoError(t, trucks.AddExpense(ctx, models.ExpenseMonthly, truck.ID, expense.ID))

		owner, err := trucks.FindByExpense(ctx, models.ExpenseMonthly, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, truck.ID, owner.ID)

		require.NoError(t, trucks.SetExpenses(ctx, models.ExpenseMonthly, truck.ID, nil))
		_, err = trucks.FindByExpense(ctx, models.ExpenseMonthly, expense.ID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("pull named ids only", func(t *testing.T) {
		require.NoError(t, trucks.SetTrips(ctx, truck.ID, nil))
		require.NoError(t, trucks.SetExpenses(ctx, models.ExpenseMonthly, truck.ID, nil))

		stale, live := primitive.NewObjectID(), primitive.NewObjectID()
		require.NoError(t, trucks.AddTrip(ctx, truck.ID, stale))
		require.NoError(t, trucks.AddTrip(ctx, truck.ID, live))
		require.NoError(t, trucks.AddExpense(ctx, models.ExpenseMonthly, truck.ID, stale))
		require.NoError(t, trucks.AddExpense(ctx, models.ExpenseMonthly, truck.ID, live))

		require.NoError(t, trucks.PullTrips(ctx, truck.ID, []primitive.ObjectID{stale}))
		require.NoError(t, trucks.PullExpenses(ctx, models.ExpenseMonthly, truck.ID, []primitive.ObjectID{stale}))

		got, err := trucks.FindByID(ctx, truck.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{live}, got.Trips)
		assert.Equal(t, []primitive.ObjectID{live}, got.Expenses.MonthlyExpenses)

		require.NoError(t, trucks.SetTrips(ctx, truck.ID, nil))
		require.NoError(t, trucks.SetExpenses(ctx, models.ExpenseMonthly, truck.ID, nil))
	})

	t.Run("trip indexes match query collation", func(t *testing.T) {
		db, release, err := conn.Acquire(ctx)
		require.NoError(t, err)
		defer release()

		cursor, err := db.Collection("trips").Indexes().List(ctx)
		require.NoError(t, err)
		var specs []struct {
			Name      string `bson:"name"`
			Collation *struct {
				Locale   string `bson:"locale"`
				Strength int    `bson:"strength"`
			} `bson:"collation"`
		}
		require.NoError(t, cursor.All(ctx, &specs))

		found := 0
		for _, spec := range specs {
			if spec.Name != "status_year_month_ci" && spec.Name != "truck_year_month_ci" {
				continue
			}
			found++
			require.NotNil(t, spec.Collation, spec.Name)
			assert.Equal(t, database.CaseInsensitive.Locale, spec.Collation.Locale)
			assert.Equal(t, database.CaseInsensitive.Strength, spec.Collation.Strength)
		}
		assert.Equal(t, 2, found)
	})

	t.Run("unique usernames", func(t *testing.T) {
		_, err := users.Create(ctx, &models.User{Username: "dispatcher", Password: "hash", Role: models.DefaultRole})
		require.NoError(t, err)

		_, err = users.Create(ctx, &models.User{Username: "dispatcher", Password: "hash", Role: models.DefaultRole})
		assert.ErrorIs(t, err, errs.ErrConflict)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, trucks.Delete(ctx, truck.ID.Hex()))
		assert.ErrorIs(t, trucks.Delete(ctx, truck.ID.Hex()), errs.ErrNotFound)
	})
}
