package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashbox-api/internal/models"
)

func TestMemoryRepositoryCopiesRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	box := &models.CashBox{
		ID:            "b1",
		CollectorID:   "c1",
		WorkDate:      "2025-03-01",
		Status:        models.CashBoxOpen,
		IncomeEntries: []models.IncomeEntry{{ID: "i1", Amount: 100}},
	}
	require.NoError(t, repo.PutCashBox(ctx, box))
	assert.Equal(t, int64(1), box.Version)

	box.IncomeEntries[0].Amount = 999
	got, err := repo.GetCashBox(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.Money(100), got.IncomeEntries[0].Amount)

	got.IncomeEntries[0].Amount = 555
	again, err := repo.GetCashBox(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.Money(100), again.IncomeEntries[0].Amount)
}

func TestMemoryRepositoryVersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.PutCashBox(ctx, &models.CashBox{ID: "b1"}))

	a, err := repo.GetCashBox(ctx, "b1")
	require.NoError(t, err)
	b, err := repo.GetCashBox(ctx, "b1")
	require.NoError(t, err)

	require.NoError(t, repo.PutCashBox(ctx, a))
	assert.ErrorIs(t, repo.PutCashBox(ctx, b), ErrVersionConflict)

	// A second insert of the same id is a conflict too.
	assert.ErrorIs(t, repo.PutCashBox(ctx, &models.CashBox{ID: "b1"}), ErrVersionConflict)

	_, err = repo.GetCashBox(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = repo.GetOpeningRequest(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemoryRepositoryQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for _, b := range []*models.CashBox{
		{ID: "b1", CollectorID: "c1", WorkDate: "2025-03-01", Status: models.CashBoxClosed, RequestID: "r1"},
		{ID: "b2", CollectorID: "c1", WorkDate: "2025-03-02", Status: models.CashBoxOpen, RequestID: "r2"},
		{ID: "b3", CollectorID: "c2", WorkDate: "2025-03-02", Status: models.CashBoxOpen},
	} {
		require.NoError(t, repo.PutCashBox(ctx, b))
	}

	all, err := repo.QueryCashBoxes(ctx, CashBoxFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := repo.QueryCashBoxes(ctx, CashBoxFilter{CollectorID: "c1", Status: models.CashBoxOpen})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "b2", mine[0].ID)

	byReq, err := repo.QueryCashBoxes(ctx, CashBoxFilter{RequestID: "r1"})
	require.NoError(t, err)
	require.Len(t, byReq, 1)
	assert.Equal(t, "b1", byReq[0].ID)

	none, err := repo.QueryCashBoxes(ctx, CashBoxFilter{WorkDate: "1999-01-01"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	require.NoError(t, repo.PutOpeningRequest(ctx, &models.OpeningRequest{ID: "r1", CollectorID: "c1", WorkDate: "2025-03-01", Status: models.RequestApproved}))
	require.NoError(t, repo.PutOpeningRequest(ctx, &models.OpeningRequest{ID: "r3", CollectorID: "c2", WorkDate: "2025-03-03", Status: models.RequestPending}))

	pending, err := repo.QueryOpeningRequests(ctx, RequestFilter{Status: models.RequestPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r3", pending[0].ID)
}
