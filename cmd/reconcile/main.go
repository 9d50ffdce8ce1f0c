package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleet-manager/internal/config"
	"fleet-manager/internal/logger"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/cleanup"
	"fleet-manager/pkg/database"

	"github.com/sirupsen/logrus"
)

func main() {
	interval := flag.Duration("interval", 0, "repeat the sweep on this interval; 0 runs once and exits")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := logger.Setup(cfg.Log); err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnector(ctx, cfg.Mongo)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close(context.Background())

	timeout := cfg.Mongo.Timeout
	sweeper := cleanup.NewSweeper(
		repository.NewTruckRepository(db, timeout),
		repository.NewTripRepository(db, timeout),
		*interval,
		repository.NewExpenseRepository(db, models.ExpenseMonthly, timeout),
		repository.NewExpenseRepository(db, models.ExpenseYearly, timeout),
	)

	if *interval <= 0 {
		start := time.Now()
		report, err := sweeper.Sweep(ctx)
		if err != nil {
			logrus.WithError(err).Fatal("Reference sweep failed")
		}
		logrus.WithFields(logrus.Fields{
			"trucks":              report.TrucksScanned,
			"dangling_trips":      report.DanglingTripRefs,
			"dangling_expenses":   report.DanglingExpenseRef,
			"reattached_trips":    report.ReattachedTrips,
			"reattached_expenses": report.ReattachedExpenses,
			"orphan_trips":        report.OrphanTrips,
			"orphan_expenses":     report.OrphanExpenses,
			"elapsed":             time.Since(start).String(),
		}).Info("Reference sweep finished")
		return
	}

	sweeper.Start(ctx)
	<-ctx.Done()
	sweeper.Stop()
}
