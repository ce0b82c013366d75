package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	appledger "github.com/erp/tuition/internal/application/ledger"
	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_Commit(t *testing.T) {
	db := setupLedgerTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	payerID := uuid.New()
	inst := seedSchedule(t, db, payerID, 30000)[0]

	err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		locked, err := repos.InstallmentRepo().LockSchedule(ctx, payerID, 1)
		if err != nil {
			return err
		}
		if err := locked[0].ApplyCharge(decimal.NewFromInt(30000)); err != nil {
			return err
		}
		if err := repos.InstallmentRepo().Save(ctx, locked[0]); err != nil {
			return err
		}
		payment, err := ledger.NewPayment(locked[0], decimal.NewFromInt(30000), cashDetails(day(2025, time.February, 1), "R-1"))
		if err != nil {
			return err
		}
		return repos.PaymentRepo().Create(ctx, payment)
	})
	require.NoError(t, err)

	found, err := NewGormInstallmentRepository(db).FindByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InstallmentStatusPaid, found.Status)

	payments, err := NewGormPaymentRepository(db).FindByInstallment(ctx, inst.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestGormTransactionScope_RollbackOnError(t *testing.T) {
	db := setupLedgerTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	payerID := uuid.New()
	schedule := seedSchedule(t, db, payerID, 30000, 50000)
	failure := errors.New("second charge failed")

	err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		locked, err := repos.InstallmentRepo().LockSchedule(ctx, payerID, 2)
		if err != nil {
			return err
		}
		if err := locked[0].ApplyCharge(decimal.NewFromInt(30000)); err != nil {
			return err
		}
		if err := repos.InstallmentRepo().Save(ctx, locked[0]); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)

	found, err := NewGormInstallmentRepository(db).FindByID(ctx, schedule[0].ID)
	require.NoError(t, err)
	assert.True(t, found.AmountPaid.IsZero())
	assert.Equal(t, ledger.InstallmentStatusPending, found.Status)
	assert.Equal(t, 1, found.Version)
}
