package services

import (
	"context"
	"errors"
	"fmt"

	"cashbox-api/internal/locks"
	"cashbox-api/internal/models"
)

// BoxSummary pairs a cash box with its reconciliation. For open boxes the
// reconciliation is computed live and has no counted fields.
type BoxSummary struct {
	Box            models.CashBox        `json:"cash_box"`
	Reconciliation models.Reconciliation `json:"reconciliation"`
}

// RequestStatusView is the collector's view of their request for a day.
type RequestStatusView struct {
	Request *models.OpeningRequest `json:"request"`
	CanOpen bool                   `json:"can_open"`
}

// CashBoxService is the entry point used by the transport layer. It checks
// the acting principal's role and ownership, calls the ledger and workflow,
// and reports every outcome to the notifier.
type CashBoxService struct {
	ledger   *Ledger
	workflow *RequestWorkflow
	locker   locks.Locker
	notifier Notifier
	amounts  *AmountFormatter
}

func NewCashBoxService(ledger *Ledger, workflow *RequestWorkflow, locker locks.Locker, notifier Notifier, amounts *AmountFormatter) *CashBoxService {
	if notifier == nil {
		notifier = MultiNotifier(nil)
	}
	if amounts == nil {
		amounts = NewAmountFormatter("es-PE", "S/")
	}
	return &CashBoxService{
		ledger:   ledger,
		workflow: workflow,
		locker:   locker,
		notifier: notifier,
		amounts:  amounts,
	}
}

// --------------------
// Opening requests
// --------------------

func (s *CashBoxService) RequestOpening(ctx context.Context, p models.Principal, workDate string, float models.OpeningFloat, notes string) (*models.OpeningRequest, error) {
	if !p.IsCollector() {
		return nil, s.fail(ctx, "request opening", ErrNotAuthorized)
	}
	req, err := s.workflow.SubmitOpeningRequest(ctx, SubmitRequestInput{
		CollectorID:    p.ID,
		CollectorName:  p.Name,
		WorkDate:       workDate,
		RequestedFloat: float,
		Notes:          notes,
	})
	if err != nil {
		return nil, s.fail(ctx, "request opening", err)
	}
	s.notifier.Notify(ctx, NotifySuccess, fmt.Sprintf("Opening request for %s sent (%s)", workDate, s.amounts.Format(float.Total())))
	return req, nil
}

func (s *CashBoxService) ApproveRequest(ctx context.Context, p models.Principal, requestID string) (*models.OpeningRequest, error) {
	if !p.IsAdmin() {
		return nil, s.fail(ctx, "approve request", ErrNotAuthorized)
	}
	req, err := s.workflow.ApproveRequest(ctx, requestID, p.ID)
	if err != nil {
		return nil, s.fail(ctx, "approve request", err)
	}
	s.notifier.Notify(ctx, NotifySuccess, fmt.Sprintf("Opening request of %s for %s approved", req.CollectorName, req.WorkDate))
	return req, nil
}

func (s *CashBoxService) RejectRequest(ctx context.Context, p models.Principal, requestID, reason string) (*models.OpeningRequest, error) {
	if !p.IsAdmin() {
		return nil, s.fail(ctx, "reject request", ErrNotAuthorized)
	}
	req, err := s.workflow.RejectRequest(ctx, requestID, reason, p.ID)
	if err != nil {
		return nil, s.fail(ctx, "reject request", err)
	}
	s.notifier.Notify(ctx, NotifyInfo, fmt.Sprintf("Opening request of %s for %s rejected: %s", req.CollectorName, req.WorkDate, req.RejectionReason))
	return req, nil
}

// CurrentRequest returns the collector's live request for the day and whether
// it currently authorizes an open.
func (s *CashBoxService) CurrentRequest(ctx context.Context, p models.Principal, workDate string) (*RequestStatusView, error) {
	if !p.IsCollector() {
		return nil, ErrNotAuthorized
	}
	if !models.ValidWorkDate(workDate) {
		return nil, fmt.Errorf("%q: %w", workDate, ErrInvalidDate)
	}
	req, err := s.workflow.CurrentRequestFor(ctx, p.ID, workDate)
	if err != nil {
		return nil, err
	}
	canOpen, err := s.workflow.CanCollectorOpen(ctx, p.ID, workDate)
	if err != nil {
		return nil, err
	}
	return &RequestStatusView{Request: req, CanOpen: canOpen}, nil
}

func (s *CashBoxService) PendingRequests(ctx context.Context, p models.Principal) ([]models.OpeningRequest, error) {
	if !p.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	return s.workflow.PendingRequests(ctx)
}

// --------------------
// Cash box lifecycle
// --------------------

// OpenCashBox opens the collector's box with the approved float. The
// existence check, the authorization check and the insert share one lock.
func (s *CashBoxService) OpenCashBox(ctx context.Context, p models.Principal, workDate string) (*models.CashBox, error) {
	box, err := s.openGuarded(ctx, p, workDate)
	if err != nil {
		return nil, s.fail(ctx, "open cash box", err)
	}
	s.notifier.Notify(ctx, NotifySuccess, fmt.Sprintf("Cash box for %s opened with %s", workDate, s.amounts.Format(box.OpeningFloat.Total())))
	return box, nil
}

func (s *CashBoxService) openGuarded(ctx context.Context, p models.Principal, workDate string) (*models.CashBox, error) {
	if !p.IsCollector() {
		return nil, ErrNotAuthorized
	}
	if err := validatePair(p.ID, workDate); err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, locks.PairKey(p.ID, workDate))
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.ledger.CurrentFor(ctx, p.ID, workDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("collector %s on %s: %w", p.ID, workDate, ErrAlreadyOpen)
	}
	req, err := s.workflow.approvedRequest(ctx, p.ID, workDate)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("no approved opening request for %s: %w", workDate, ErrNotAuthorized)
	}
	return s.ledger.openLocked(ctx, OpenCashBoxInput{
		CollectorID:   p.ID,
		CollectorName: p.Name,
		WorkDate:      workDate,
		OpeningFloat:  req.RequestedOpeningFloat,
		RequestID:     req.ID,
	})
}

func (s *CashBoxService) RecordIncome(ctx context.Context, p models.Principal, cashBoxID, clientID, clientName string, amount models.Money, method models.PaymentMethod) (*models.CashBox, error) {
	if err := s.ensureOwner(ctx, p, cashBoxID); err != nil {
		return nil, s.fail(ctx, "record income", err)
	}
	box, err := s.ledger.RecordIncome(ctx, cashBoxID, clientID, clientName, amount, method)
	if err != nil {
		return nil, s.fail(ctx, "record income", err)
	}
	s.notifier.Notify(ctx, NotifySuccess, fmt.Sprintf("Payment of %s from %s recorded (%s)", s.amounts.Format(amount), clientName, method))
	return box, nil
}

func (s *CashBoxService) RecordExpense(ctx context.Context, p models.Principal, cashBoxID, concept string, amount models.Money, category models.ServiceCategory, description string) (*models.CashBox, error) {
	if err := s.ensureOwner(ctx, p, cashBoxID); err != nil {
		return nil, s.fail(ctx, "record expense", err)
	}
	box, err := s.ledger.RecordExpense(ctx, cashBoxID, concept, amount, category, description)
	if err != nil {
		return nil, s.fail(ctx, "record expense", err)
	}
	s.notifier.Notify(ctx, NotifySuccess, fmt.Sprintf("Expense %q of %s recorded", concept, s.amounts.Format(amount)))
	return box, nil
}

func (s *CashBoxService) RemoveExpense(ctx context.Context, p models.Principal, cashBoxID, expenseID string) (*models.CashBox, error) {
	if err := s.ensureOwner(ctx, p, cashBoxID); err != nil {
		return nil, s.fail(ctx, "remove expense", err)
	}
	box, err := s.ledger.RemoveExpense(ctx, cashBoxID, expenseID)
	if err != nil {
		return nil, s.fail(ctx, "remove expense", err)
	}
	s.notifier.Notify(ctx, NotifySuccess, "Expense removed")
	return box, nil
}

// CloseCashBox closes the box and reports the variance. Shortages and
// surpluses are notified, never blocked.
func (s *CashBoxService) CloseCashBox(ctx context.Context, p models.Principal, cashBoxID string, counts models.ClosingCounts, notes string) (*models.CashBox, error) {
	if err := s.ensureOwner(ctx, p, cashBoxID); err != nil {
		return nil, s.fail(ctx, "close cash box", err)
	}
	box, err := s.ledger.CloseCashBox(ctx, cashBoxID, counts, notes)
	if err != nil {
		return nil, s.fail(ctx, "close cash box", err)
	}
	s.notifier.Notify(ctx, NotifySuccess, fmt.Sprintf("Cash box for %s closed", box.WorkDate))
	if v, ok := Variance(box); ok && v != 0 {
		s.notifier.Notify(ctx, NotifyInfo, fmt.Sprintf("Close of %s has a %s of %s", box.WorkDate, ClassifyVariance(v), s.amounts.Format(v.Abs())))
	}
	return box, nil
}

// --------------------
// Reads
// --------------------

func (s *CashBoxService) Current(ctx context.Context, p models.Principal, workDate string) (*models.CashBox, error) {
	if !p.IsCollector() {
		return nil, ErrNotAuthorized
	}
	if !models.ValidWorkDate(workDate) {
		return nil, fmt.Errorf("%q: %w", workDate, ErrInvalidDate)
	}
	return s.ledger.CurrentFor(ctx, p.ID, workDate)
}

// History lists a collector's boxes. Collectors may only read their own;
// administrators must name the collector.
func (s *CashBoxService) History(ctx context.Context, p models.Principal, collectorID string) ([]models.CashBox, error) {
	switch {
	case p.IsAdmin():
		if collectorID == "" {
			return nil, ErrMissingCollector
		}
	case p.IsCollector():
		if collectorID == "" {
			collectorID = p.ID
		}
		if collectorID != p.ID {
			return nil, ErrNotAuthorized
		}
	default:
		return nil, ErrNotAuthorized
	}
	return s.ledger.HistoryFor(ctx, collectorID)
}

func (s *CashBoxService) Summary(ctx context.Context, p models.Principal, cashBoxID string) (*BoxSummary, error) {
	box, err := s.ledger.Get(ctx, cashBoxID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !(p.IsCollector() && box.CollectorID == p.ID) {
		return nil, ErrNotAuthorized
	}
	sum := summarize(box)
	return &sum, nil
}

// DayOverview lists every box of a work date for administrators.
func (s *CashBoxService) DayOverview(ctx context.Context, p models.Principal, workDate string) ([]BoxSummary, error) {
	if !p.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	boxes, err := s.ledger.BoxesForDate(ctx, workDate)
	if err != nil {
		return nil, err
	}
	out := make([]BoxSummary, 0, len(boxes))
	for i := range boxes {
		out = append(out, summarize(&boxes[i]))
	}
	return out, nil
}

func summarize(box *models.CashBox) BoxSummary {
	if box.Reconciliation != nil {
		return BoxSummary{Box: *box, Reconciliation: *box.Reconciliation}
	}
	return BoxSummary{Box: *box, Reconciliation: Reconcile(box, box.ClosingCounts)}
}

func (s *CashBoxService) ensureOwner(ctx context.Context, p models.Principal, cashBoxID string) error {
	if !p.IsCollector() {
		return ErrNotAuthorized
	}
	box, err := s.ledger.Get(ctx, cashBoxID)
	if err != nil {
		return err
	}
	if box.CollectorID != p.ID {
		return fmt.Errorf("cash box %s belongs to another collector: %w", cashBoxID, ErrNotAuthorized)
	}
	return nil
}

// fail reports err to the notifier and returns it unchanged.
func (s *CashBoxService) fail(ctx context.Context, op string, err error) error {
	s.notifier.Notify(ctx, NotifyError, op+": "+userMessage(err))
	return err
}

func userMessage(err error) string {
	for _, known := range []error{
		ErrAlreadyOpen, ErrNotOpen, ErrNotFound, ErrInvalidAmount, ErrInvalidState,
		ErrDuplicateRequest, ErrNotAuthorized, ErrInvalidMethod, ErrInvalidCategory,
		ErrInvalidDate, ErrMissingCollector,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "unexpected error"
}
