package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleet-manager/internal/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const defaultDatabase = "fleet_management"

// ReleaseFunc returns a database handle obtained from Acquire. It must be
// called exactly once on every path.
type ReleaseFunc func()

// Connector hands out database handles scoped to a single logical operation.
type Connector interface {
	Acquire(ctx context.Context) (*mongo.Database, ReleaseFunc, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewConnector builds the connector selected by cfg.ConnectMode.
func NewConnector(ctx context.Context, cfg config.MongoConfig) (Connector, error) {
	cs, err := connstring.ParseAndValidate(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URI: %v", err)
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = cs.Database
	}
	if dbName == "" {
		dbName = defaultDatabase
	}

	switch cfg.ConnectMode {
	case "pooled":
		return NewPooledConnector(ctx, cfg.URI, dbName)
	default:
		return NewPerRequestConnector(cfg.URI, dbName), nil
	}
}

// PerRequestConnector dials a fresh client for every Acquire and disconnects
// it on release. No connection outlives the operation that opened it.
type PerRequestConnector struct {
	uri    string
	dbName string
}

func NewPerRequestConnector(uri, dbName string) *PerRequestConnector {
	return &PerRequestConnector{uri: uri, dbName: dbName}
}

func (c *PerRequestConnector) Acquire(ctx context.Context) (*mongo.Database, ReleaseFunc, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	release := func() {
		dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			logrus.WithError(err).Warn("failed to disconnect from MongoDB")
		}
	}

	return client.Database(c.dbName), release, nil
}

func (c *PerRequestConnector) Ping(ctx context.Context) error {
	db, release, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return db.Client().Ping(ctx, nil)
}

func (c *PerRequestConnector) Close(context.Context) error {
	return nil
}

// PooledConnector shares one client across operations. Release is a no-op.
type PooledConnector struct {
	client *mongo.Client
	db     *mongo.Database
	once   sync.Once
}

func NewPooledConnector(ctx context.Context, uri, dbName string) (*PooledConnector, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	logrus.WithField("database", dbName).Info("Successfully connected to MongoDB")

	return &PooledConnector{client: client, db: client.Database(dbName)}, nil
}

func (c *PooledConnector) Acquire(context.Context) (*mongo.Database, ReleaseFunc, error) {
	return c.db, func() {}, nil
}

func (c *PooledConnector) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

func (c *PooledConnector) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		if err = c.client.Disconnect(ctx); err != nil {
			err = fmt.Errorf("failed to disconnect from MongoDB: %v", err)
			return
		}
		logrus.Info("Disconnected from MongoDB")
	})
	return err
}

// EnsureIndexes creates the indexes the repositories rely on. Index creation
// is idempotent.
// CaseInsensitive is the collation of trip status and period queries. Strength
// 2 compares base characters and accents but ignores case. Indexes serving
// those queries must be built with it.
var CaseInsensitive = &options.Collation{Locale: "en", Strength: 2}

func EnsureIndexes(ctx context.Context, conn Connector) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, release, err := conn.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"trucks": {
			{Keys: bson.D{{Key: "trips", Value: 1}}},
			{Keys: bson.D{{Key: "expenses.monthlyExpenses", Value: 1}}},
			{Keys: bson.D{{Key: "expenses.yearlyExpenses", Value: 1}}},
		},
		"trips": {
			{Keys: bson.D{{Key: "truck", Value: 1}}},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}},
				Options: options.Index().SetName("status_year_month_ci").SetCollation(CaseInsensitive),
			},
			{
				Keys:    bson.D{{Key: "truck", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}},
				Options: options.Index().SetName("truck_year_month_ci").SetCollation(CaseInsensitive),
			},
		},
		"monthlyexpenses": {
			{Keys: bson.D{{Key: "truck", Value: 1}}},
		},
		"yearlyexpenses": {
			{Keys: bson.D{{Key: "truck", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}

	logrus.Info("Database indexes created successfully")
	return nil
}
