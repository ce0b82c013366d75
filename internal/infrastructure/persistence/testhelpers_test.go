package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/erp/tuition/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockGormDB opens GORM over a sqlmock connection using the postgres dialect
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

// setupLedgerTestDB opens an isolated in-memory sqlite database with the ledger tables
func setupLedgerTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the shared-cache database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.InstallmentModel{}, &models.PaymentModel{}))
	return db
}

var testCampusID = uuid.MustParse("7b0e4f7c-4b1e-4c2a-9a35-2d3c1a6f0e11")

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedSchedule creates a payer schedule with one installment per owed amount,
// due on the 5th of consecutive months starting February 2025.
func seedSchedule(t *testing.T, db *gorm.DB, payerID uuid.UUID, owed ...int64) []*ledger.Installment {
	t.Helper()
	repo := NewGormInstallmentRepository(db)
	installments := make([]*ledger.Installment, len(owed))
	for i, amount := range owed {
		inst, err := ledger.NewInstallment(testCampusID, payerID, i+1, day(2025, time.Month(2+i), 5), decimal.NewFromInt(amount))
		require.NoError(t, err)
		require.NoError(t, repo.Create(context.Background(), inst))
		installments[i] = inst
	}
	return installments
}

// seedPayment applies a charge to the installment and records the payment
func seedPayment(t *testing.T, db *gorm.DB, inst *ledger.Installment, amount int64, details ledger.PaymentDetails) *ledger.Payment {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, inst.ApplyCharge(decimal.NewFromInt(amount)))
	require.NoError(t, NewGormInstallmentRepository(db).Save(ctx, inst))

	payment, err := ledger.NewPayment(inst, decimal.NewFromInt(amount), details)
	require.NoError(t, err)
	require.NoError(t, NewGormPaymentRepository(db).Create(ctx, payment))
	return payment
}

func cashDetails(date time.Time, reference string) ledger.PaymentDetails {
	return ledger.PaymentDetails{
		PaymentDate: date,
		Method:      ledger.PaymentMethodCash,
		Reference:   reference,
	}
}
