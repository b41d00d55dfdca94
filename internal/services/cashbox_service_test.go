package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashbox-api/internal/locks"
	"cashbox-api/internal/models"
	"cashbox-api/internal/repositories"
)

type recordedNotice struct {
	kind NotifyKind
	msg  string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
}

func (n *recordingNotifier) Notify(_ context.Context, kind NotifyKind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{kind: kind, msg: msg})
}

func (n *recordingNotifier) last() recordedNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return recordedNotice{}
	}
	return n.notices[len(n.notices)-1]
}

var (
	ana   = models.Principal{ID: "col-1", Name: "Ana", Role: models.RoleCollector}
	luis  = models.Principal{ID: "col-2", Name: "Luis", Role: models.RoleCollector}
	admin = models.Principal{ID: "adm-1", Name: "Marta", Role: models.RoleAdmin}
)

func newTestService(t *testing.T) (*CashBoxService, *recordingNotifier) {
	t.Helper()
	repo := repositories.NewMemoryRepository()
	locker := locks.NewLocal()
	ledger := NewLedger(repo, locker)
	ledger.WithNow(tickingClock())
	workflow := NewRequestWorkflow(repo, locker)
	workflow.WithNow(tickingClock())
	n := &recordingNotifier{}
	return NewCashBoxService(ledger, workflow, locker, n, NewAmountFormatter("en", "S/")), n
}

func approvedOpen(t *testing.T, s *CashBoxService, p models.Principal, cash models.Money) *models.CashBox {
	t.Helper()
	ctx := context.Background()
	req, err := s.RequestOpening(ctx, p, tomorrow, models.OpeningFloat{Cash: cash}, "")
	require.NoError(t, err)
	_, err = s.ApproveRequest(ctx, admin, req.ID)
	require.NoError(t, err)
	box, err := s.OpenCashBox(ctx, p, tomorrow)
	require.NoError(t, err)
	return box
}

func TestServiceRejectResubmitApproveOpen(t *testing.T) {
	ctx := context.Background()
	s, n := newTestService(t)

	req, err := s.RequestOpening(ctx, ana, tomorrow, models.OpeningFloat{Cash: 10000}, "")
	require.NoError(t, err)
	_, err = s.RejectRequest(ctx, admin, req.ID, "amount too high")
	require.NoError(t, err)
	assert.Equal(t, NotifyInfo, n.last().kind)
	assert.Contains(t, n.last().msg, "amount too high")

	view, err := s.CurrentRequest(ctx, ana, tomorrow)
	require.NoError(t, err)
	assert.False(t, view.CanOpen)
	assert.Equal(t, models.RequestRejected, view.Request.Status)

	_, err = s.OpenCashBox(ctx, ana, tomorrow)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, NotifyError, n.last().kind)

	req2, err := s.RequestOpening(ctx, ana, tomorrow, models.OpeningFloat{Cash: 5000}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req2.Status)
	_, err = s.ApproveRequest(ctx, admin, req2.ID)
	require.NoError(t, err)

	view, err = s.CurrentRequest(ctx, ana, tomorrow)
	require.NoError(t, err)
	assert.True(t, view.CanOpen)

	box, err := s.OpenCashBox(ctx, ana, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, models.Money(5000), box.OpeningFloat.Cash)
	assert.Equal(t, req2.ID, box.RequestID)
	assert.Equal(t, "Ana", box.CollectorName)
	assert.Equal(t, NotifySuccess, n.last().kind)

	_, err = s.OpenCashBox(ctx, ana, tomorrow)
	assert.ErrorIs(t, err, ErrAlreadyOpen)

	view, err = s.CurrentRequest(ctx, ana, tomorrow)
	require.NoError(t, err)
	assert.False(t, view.CanOpen)
}

func TestServiceRoleChecks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	_, err := s.RequestOpening(ctx, admin, tomorrow, models.OpeningFloat{}, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	req, err := s.RequestOpening(ctx, ana, tomorrow, models.OpeningFloat{Cash: 100}, "")
	require.NoError(t, err)

	_, err = s.ApproveRequest(ctx, ana, req.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = s.RejectRequest(ctx, luis, req.ID, "no")
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = s.PendingRequests(ctx, ana)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = s.DayOverview(ctx, ana, tomorrow)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	pending, err := s.PendingRequests(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	nobody := models.Principal{ID: "x"}
	_, err = s.History(ctx, nobody, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestServiceOwnership(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	box := approvedOpen(t, s, ana, 5000)

	_, err := s.RecordIncome(ctx, luis, box.ID, "cl", "Client", 100, models.MethodCash)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = s.RecordExpense(ctx, admin, box.ID, "Fuel", 100, models.CategoryGeneral, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = s.CloseCashBox(ctx, luis, box.ID, models.ClosingCounts{}, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = s.Summary(ctx, luis, box.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = s.History(ctx, luis, ana.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = s.Summary(ctx, admin, box.ID)
	assert.NoError(t, err)
	hist, err := s.History(ctx, admin, ana.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
	_, err = s.History(ctx, admin, "")
	assert.ErrorIs(t, err, ErrMissingCollector)

	own, err := s.History(ctx, ana, "")
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestServiceCloseReportsVariance(t *testing.T) {
	ctx := context.Background()
	s, n := newTestService(t)
	box := approvedOpen(t, s, ana, 5000)

	_, err := s.RecordIncome(ctx, ana, box.ID, "cl-1", "Luis", 8000, models.MethodCash)
	require.NoError(t, err)
	_, err = s.RecordIncome(ctx, ana, box.ID, "cl-2", "Rosa", 3000, models.MethodYape)
	require.NoError(t, err)
	_, err = s.RecordExpense(ctx, ana, box.ID, "Fuel", 2000, models.CategoryGeneral, "")
	require.NoError(t, err)

	sum, err := s.Summary(ctx, ana, box.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(14000), sum.Reconciliation.TheoreticalTotal)
	assert.Nil(t, sum.Reconciliation.Variance)

	closed, err := s.CloseCashBox(ctx, ana, box.ID, models.ClosingCounts{Cash: 10800, Digital: 3000}, "")
	require.NoError(t, err)
	assert.Equal(t, models.CashBoxClosed, closed.Status)

	last := n.last()
	assert.Equal(t, NotifyInfo, last.kind)
	assert.True(t, strings.Contains(last.msg, "shortage"), last.msg)
	assert.Contains(t, last.msg, "2.00")

	sum, err = s.Summary(ctx, admin, box.ID)
	require.NoError(t, err)
	require.NotNil(t, sum.Reconciliation.Variance)
	assert.Equal(t, models.Money(-200), *sum.Reconciliation.Variance)

	_, err = s.RecordExpense(ctx, ana, box.ID, "Late", 100, models.CategoryGeneral, "")
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Equal(t, NotifyError, n.last().kind)
}

func TestServiceDayOverview(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	approvedOpen(t, s, luis, 1000)
	approvedOpen(t, s, ana, 2000)

	sums, err := s.DayOverview(ctx, admin, tomorrow)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, ana.ID, sums[0].Box.CollectorID)
	assert.Equal(t, models.Money(2000), sums[0].Reconciliation.TheoreticalTotal)
	assert.Equal(t, luis.ID, sums[1].Box.CollectorID)

	cur, err := s.Current(ctx, ana, tomorrow)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, sums[0].Box.ID, cur.ID)
}

func TestServiceRemoveExpense(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	box := approvedOpen(t, s, ana, 5000)

	box, err := s.RecordExpense(ctx, ana, box.ID, "Fuel", 2000, models.CategoryGeneral, "")
	require.NoError(t, err)
	box, err = s.RemoveExpense(ctx, ana, box.ID, box.ExpenseEntries[0].ID)
	require.NoError(t, err)
	assert.Empty(t, box.ExpenseEntries)
}
