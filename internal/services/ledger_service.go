package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"cashbox-api/internal/locks"
	"cashbox-api/internal/models"
	"cashbox-api/internal/repositories"
)

// OpenCashBoxInput carries the data for a new cash box.
type OpenCashBoxInput struct {
	CollectorID   string
	CollectorName string
	WorkDate      string
	OpeningFloat  models.OpeningFloat
	// RequestID is the approved opening request being consumed, if any.
	RequestID string
}

// Ledger owns every cash box mutation. Writes for one (collector, work date)
// pair are serialized through the locker; reads never lock.
type Ledger struct {
	repo   repositories.CashBoxRepository
	locker locks.Locker
	now    func() time.Time
}

func NewLedger(repo repositories.CashBoxRepository, locker locks.Locker) *Ledger {
	return &Ledger{
		repo:   repo,
		locker: locker,
		now:    time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (l *Ledger) WithNow(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// OpenCashBox creates the open box for the pair. It does not consult the
// opening request workflow; see CashBoxService.OpenCashBox for the guarded path.
func (l *Ledger) OpenCashBox(ctx context.Context, in OpenCashBoxInput) (*models.CashBox, error) {
	if err := validatePair(in.CollectorID, in.WorkDate); err != nil {
		return nil, err
	}
	unlock, err := l.locker.Lock(ctx, locks.PairKey(in.CollectorID, in.WorkDate))
	if err != nil {
		return nil, err
	}
	defer unlock()
	return l.openLocked(ctx, in)
}

// openLocked expects the pair lock to be held.
func (l *Ledger) openLocked(ctx context.Context, in OpenCashBoxInput) (*models.CashBox, error) {
	if in.OpeningFloat.Negative() {
		return nil, fmt.Errorf("opening float: %w", ErrInvalidAmount)
	}
	existing, err := l.CurrentFor(ctx, in.CollectorID, in.WorkDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("collector %s on %s: %w", in.CollectorID, in.WorkDate, ErrAlreadyOpen)
	}

	box := &models.CashBox{
		ID:             uuid.NewString(),
		CollectorID:    in.CollectorID,
		CollectorName:  in.CollectorName,
		WorkDate:       in.WorkDate,
		Status:         models.CashBoxOpen,
		OpeningFloat:   in.OpeningFloat,
		IncomeEntries:  []models.IncomeEntry{},
		ExpenseEntries: []models.ExpenseEntry{},
		OpenedAt:       l.now(),
		RequestID:      in.RequestID,
	}
	if err := l.repo.PutCashBox(ctx, box); err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return nil, fmt.Errorf("collector %s on %s: %w", in.CollectorID, in.WorkDate, ErrAlreadyOpen)
		}
		return nil, fmt.Errorf("ledger: save cash box: %w", err)
	}
	return box, nil
}

func (l *Ledger) RecordIncome(ctx context.Context, cashBoxID, clientID, clientName string, amount models.Money, method models.PaymentMethod) (*models.CashBox, error) {
	return l.mutate(ctx, cashBoxID, func(box *models.CashBox) error {
		if amount <= 0 {
			return fmt.Errorf("income %s: %w", amount, ErrInvalidAmount)
		}
		if !method.Valid() {
			return fmt.Errorf("%q: %w", method, ErrInvalidMethod)
		}
		now := l.now()
		box.IncomeEntries = append(box.IncomeEntries, models.IncomeEntry{
			ID:         l.entryID(now),
			ClientID:   clientID,
			ClientName: clientName,
			Amount:     amount,
			Method:     method,
			Timestamp:  now,
		})
		return nil
	})
}

func (l *Ledger) RecordExpense(ctx context.Context, cashBoxID, concept string, amount models.Money, category models.ServiceCategory, description string) (*models.CashBox, error) {
	return l.mutate(ctx, cashBoxID, func(box *models.CashBox) error {
		if amount <= 0 {
			return fmt.Errorf("expense %s: %w", amount, ErrInvalidAmount)
		}
		if !category.Valid() {
			return fmt.Errorf("%q: %w", category, ErrInvalidCategory)
		}
		now := l.now()
		box.ExpenseEntries = append(box.ExpenseEntries, models.ExpenseEntry{
			ID:              l.entryID(now),
			Concept:         concept,
			Amount:          amount,
			Description:     description,
			ServiceCategory: category,
			Timestamp:       now,
		})
		return nil
	})
}

// RemoveExpense drops one expense entry. Income entries can never be removed.
func (l *Ledger) RemoveExpense(ctx context.Context, cashBoxID, expenseID string) (*models.CashBox, error) {
	return l.mutate(ctx, cashBoxID, func(box *models.CashBox) error {
		idx := slices.IndexFunc(box.ExpenseEntries, func(e models.ExpenseEntry) bool {
			return e.ID == expenseID
		})
		if idx < 0 {
			return fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
		}
		box.ExpenseEntries = slices.Delete(box.ExpenseEntries, idx, idx+1)
		return nil
	})
}

// CloseCashBox reconciles and closes the box in one critical section.
// A non-zero variance is recorded, never rejected.
func (l *Ledger) CloseCashBox(ctx context.Context, cashBoxID string, counts models.ClosingCounts, notes string) (*models.CashBox, error) {
	return l.mutate(ctx, cashBoxID, func(box *models.CashBox) error {
		if counts.Cash < 0 || counts.Digital < 0 {
			return fmt.Errorf("closing counts: %w", ErrInvalidAmount)
		}
		rec := Reconcile(box, &counts)
		now := l.now()
		box.ClosingCounts = &counts
		box.Reconciliation = &rec
		box.ClosedAt = &now
		box.Notes = strings.TrimSpace(notes)
		box.Status = models.CashBoxClosed
		return nil
	})
}

func (l *Ledger) Get(ctx context.Context, cashBoxID string) (*models.CashBox, error) {
	box, err := l.repo.GetCashBox(ctx, cashBoxID)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return nil, fmt.Errorf("cash box %s: %w", cashBoxID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return box, nil
}

// CurrentFor returns the pair's box, or nil when none was opened.
func (l *Ledger) CurrentFor(ctx context.Context, collectorID, workDate string) (*models.CashBox, error) {
	boxes, err := l.repo.QueryCashBoxes(ctx, repositories.CashBoxFilter{
		CollectorID: collectorID,
		WorkDate:    workDate,
	})
	if err != nil {
		return nil, err
	}
	if len(boxes) == 0 {
		return nil, nil
	}
	return &boxes[0], nil
}

// HistoryFor lists a collector's boxes, most recent work date first.
func (l *Ledger) HistoryFor(ctx context.Context, collectorID string) ([]models.CashBox, error) {
	boxes, err := l.repo.QueryCashBoxes(ctx, repositories.CashBoxFilter{CollectorID: collectorID})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(boxes, func(a, b models.CashBox) int {
		if c := cmp.Compare(b.WorkDate, a.WorkDate); c != 0 {
			return c
		}
		return b.OpenedAt.Compare(a.OpenedAt)
	})
	return boxes, nil
}

// BoxesForDate lists every collector's box for a work date, by collector.
func (l *Ledger) BoxesForDate(ctx context.Context, workDate string) ([]models.CashBox, error) {
	if !models.ValidWorkDate(workDate) {
		return nil, fmt.Errorf("%q: %w", workDate, ErrInvalidDate)
	}
	boxes, err := l.repo.QueryCashBoxes(ctx, repositories.CashBoxFilter{WorkDate: workDate})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(boxes, func(a, b models.CashBox) int {
		return cmp.Compare(a.CollectorID, b.CollectorID)
	})
	return boxes, nil
}

// mutate loads the box, takes its pair lock, reloads it and applies fn to an
// open box. Nothing is written when fn fails.
func (l *Ledger) mutate(ctx context.Context, cashBoxID string, fn func(*models.CashBox) error) (*models.CashBox, error) {
	box, err := l.Get(ctx, cashBoxID)
	if err != nil {
		return nil, err
	}
	unlock, err := l.locker.Lock(ctx, locks.PairKey(box.CollectorID, box.WorkDate))
	if err != nil {
		return nil, err
	}
	defer unlock()

	box, err = l.Get(ctx, cashBoxID)
	if err != nil {
		return nil, err
	}
	if !box.IsOpen() {
		return nil, fmt.Errorf("cash box %s: %w", cashBoxID, ErrNotOpen)
	}
	if err := fn(box); err != nil {
		return nil, err
	}
	if err := l.repo.PutCashBox(ctx, box); err != nil {
		return nil, fmt.Errorf("ledger: save cash box: %w", err)
	}
	return box, nil
}

func (l *Ledger) entryID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

func validatePair(collectorID, workDate string) error {
	if strings.TrimSpace(collectorID) == "" {
		return ErrMissingCollector
	}
	if !models.ValidWorkDate(workDate) {
		return fmt.Errorf("%q: %w", workDate, ErrInvalidDate)
	}
	return nil
}
