package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	appledger "github.com/erp/tuition/internal/application/ledger"
	"github.com/erp/tuition/internal/infrastructure/config"
	"github.com/erp/tuition/internal/infrastructure/logger"
	"github.com/erp/tuition/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var (
		asOfFlag string
		timeout  time.Duration
	)
	flag.StringVar(&asOfFlag, "as-of", "", "Cut-off date YYYY-MM-DD (default: today)")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Maximum duration of the sweep")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	asOf := time.Now()
	if asOfFlag != "" {
		asOf, err = time.ParseInLocation("2006-01-02", asOfFlag, time.Local)
		if err != nil {
			log.Fatal("Invalid -as-of date", zap.String("value", asOfFlag), zap.Error(err))
		}
	}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithZapLogger(log))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	service := appledger.NewOverdueService(persistence.NewGormInstallmentRepository(db.DB), nil, log)
	result, err := service.MarkOverdue(ctx, asOf)
	if err != nil {
		log.Fatal("Overdue sweep failed", zap.Error(err))
	}

	fmt.Printf("marked %d installment(s) overdue as of %s\n", result.Marked, result.AsOf.Format("2006-01-02"))
}
