package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"cashbox-api/internal/locks"
	"cashbox-api/internal/models"
	"cashbox-api/internal/repositories"
)

// SubmitRequestInput carries a collector's opening float request.
type SubmitRequestInput struct {
	CollectorID    string
	CollectorName  string
	WorkDate       string
	RequestedFloat models.OpeningFloat
	Notes          string
}

// RequestWorkflow gates cash box opening behind an administrator decision.
// Approval only authorizes the open; it never creates a box.
type RequestWorkflow struct {
	repo   repositories.CashBoxRepository
	locker locks.Locker
	now    func() time.Time
}

func NewRequestWorkflow(repo repositories.CashBoxRepository, locker locks.Locker) *RequestWorkflow {
	return &RequestWorkflow{
		repo:   repo,
		locker: locker,
		now:    time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (w *RequestWorkflow) WithNow(now func() time.Time) {
	if now != nil {
		w.now = now
	}
}

// SubmitOpeningRequest creates a pending request. Earlier rejected requests
// for the pair are marked superseded.
func (w *RequestWorkflow) SubmitOpeningRequest(ctx context.Context, in SubmitRequestInput) (*models.OpeningRequest, error) {
	if err := validatePair(in.CollectorID, in.WorkDate); err != nil {
		return nil, err
	}
	if in.RequestedFloat.Negative() {
		return nil, fmt.Errorf("requested float: %w", ErrInvalidAmount)
	}

	unlock, err := w.locker.Lock(ctx, locks.PairKey(in.CollectorID, in.WorkDate))
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := w.repo.QueryOpeningRequests(ctx, repositories.RequestFilter{
		CollectorID: in.CollectorID,
		WorkDate:    in.WorkDate,
	})
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.Status != models.RequestRejected {
			return nil, fmt.Errorf("collector %s on %s (%s): %w", in.CollectorID, in.WorkDate, r.Status, ErrDuplicateRequest)
		}
	}
	req := &models.OpeningRequest{
		ID:                    uuid.NewString(),
		CollectorID:           in.CollectorID,
		CollectorName:         in.CollectorName,
		WorkDate:              in.WorkDate,
		RequestedOpeningFloat: in.RequestedFloat,
		Notes:                 strings.TrimSpace(in.Notes),
		Status:                models.RequestPending,
		CreatedAt:             w.now(),
	}
	if err := w.repo.PutOpeningRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("workflow: save request: %w", err)
	}

	// Supersede only after the new request is stored.
	for i := range existing {
		if existing[i].Superseded {
			continue
		}
		existing[i].Superseded = true
		if err := w.repo.PutOpeningRequest(ctx, &existing[i]); err != nil {
			return nil, fmt.Errorf("workflow: supersede request %s: %w", existing[i].ID, err)
		}
	}
	return req, nil
}

func (w *RequestWorkflow) ApproveRequest(ctx context.Context, requestID, decidedBy string) (*models.OpeningRequest, error) {
	return w.decide(ctx, requestID, func(req *models.OpeningRequest) {
		req.Status = models.RequestApproved
		req.DecidedBy = decidedBy
	})
}

func (w *RequestWorkflow) RejectRequest(ctx context.Context, requestID, reason, decidedBy string) (*models.OpeningRequest, error) {
	return w.decide(ctx, requestID, func(req *models.OpeningRequest) {
		req.Status = models.RequestRejected
		req.RejectionReason = strings.TrimSpace(reason)
		req.DecidedBy = decidedBy
	})
}

// CanCollectorOpen is true iff an approved request exists for the pair and no
// cash box has consumed it yet.
func (w *RequestWorkflow) CanCollectorOpen(ctx context.Context, collectorID, workDate string) (bool, error) {
	req, err := w.approvedRequest(ctx, collectorID, workDate)
	if err != nil || req == nil {
		return false, err
	}
	return true, nil
}

// CurrentRequestFor returns the latest non-superseded request, or nil.
func (w *RequestWorkflow) CurrentRequestFor(ctx context.Context, collectorID, workDate string) (*models.OpeningRequest, error) {
	reqs, err := w.repo.QueryOpeningRequests(ctx, repositories.RequestFilter{
		CollectorID: collectorID,
		WorkDate:    workDate,
	})
	if err != nil {
		return nil, err
	}
	var current *models.OpeningRequest
	for i := range reqs {
		r := &reqs[i]
		if r.Superseded {
			continue
		}
		if current == nil || r.CreatedAt.After(current.CreatedAt) {
			current = r
		}
	}
	return current, nil
}

// PendingRequests is the administrator inbox, oldest first.
func (w *RequestWorkflow) PendingRequests(ctx context.Context) ([]models.OpeningRequest, error) {
	reqs, err := w.repo.QueryOpeningRequests(ctx, repositories.RequestFilter{Status: models.RequestPending})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(reqs, func(a, b models.OpeningRequest) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return reqs, nil
}

// approvedRequest returns the unconsumed approved request for the pair, or nil.
func (w *RequestWorkflow) approvedRequest(ctx context.Context, collectorID, workDate string) (*models.OpeningRequest, error) {
	req, err := w.CurrentRequestFor(ctx, collectorID, workDate)
	if err != nil {
		return nil, err
	}
	if req == nil || req.Status != models.RequestApproved {
		return nil, nil
	}
	boxes, err := w.repo.QueryCashBoxes(ctx, repositories.CashBoxFilter{RequestID: req.ID})
	if err != nil {
		return nil, err
	}
	if len(boxes) > 0 {
		return nil, nil
	}
	return req, nil
}

func (w *RequestWorkflow) decide(ctx context.Context, requestID string, apply func(*models.OpeningRequest)) (*models.OpeningRequest, error) {
	req, err := w.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	unlock, err := w.locker.Lock(ctx, locks.PairKey(req.CollectorID, req.WorkDate))
	if err != nil {
		return nil, err
	}
	defer unlock()

	req, err = w.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, req.Status, ErrInvalidState)
	}
	apply(req)
	now := w.now()
	req.DecidedAt = &now
	if err := w.repo.PutOpeningRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("workflow: save request: %w", err)
	}
	return req, nil
}

func (w *RequestWorkflow) get(ctx context.Context, requestID string) (*models.OpeningRequest, error) {
	req, err := w.repo.GetOpeningRequest(ctx, requestID)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return nil, fmt.Errorf("opening request %s: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}
