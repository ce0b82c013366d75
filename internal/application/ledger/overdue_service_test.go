package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOverdueService_MarkOverdue(t *testing.T) {
	t.Run("truncates to the day and reports the count", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		svc := NewOverdueService(repo, nil, zap.NewNop())
		day := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
		repo.On("MarkOverdue", mock.Anything, day).Return(int64(7), nil).Once()

		result, err := svc.MarkOverdue(context.Background(), day.Add(13*time.Hour))
		require.NoError(t, err)

		assert.Equal(t, int64(7), result.Marked)
		assert.Equal(t, day, result.AsOf)
		repo.AssertExpectations(t)
	})

	t.Run("wraps store failures", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		svc := NewOverdueService(repo, nil, nil)
		repo.On("MarkOverdue", mock.Anything, mock.Anything).Return(int64(0), errors.New("timeout"))

		_, err := svc.MarkOverdue(context.Background(), time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to mark overdue installments")
	})
}
