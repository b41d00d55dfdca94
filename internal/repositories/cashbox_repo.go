package repositories

import (
	"context"
	"errors"

	"cashbox-api/internal/models"
)

var (
	// ErrRecordNotFound is returned by Get* when no record has the key.
	ErrRecordNotFound = errors.New("record not found")
	// ErrVersionConflict is returned by Put* when the stored version moved underneath the caller.
	ErrVersionConflict = errors.New("record version conflict")
)

// CashBoxFilter selects cash boxes; zero-valued fields match everything.
type CashBoxFilter struct {
	CollectorID string
	WorkDate    string
	Status      models.CashBoxStatus
	RequestID   string
}

func (f CashBoxFilter) Match(b *models.CashBox) bool {
	if f.CollectorID != "" && b.CollectorID != f.CollectorID {
		return false
	}
	if f.WorkDate != "" && b.WorkDate != f.WorkDate {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.RequestID != "" && b.RequestID != f.RequestID {
		return false
	}
	return true
}

// RequestFilter selects opening requests; zero-valued fields match everything.
type RequestFilter struct {
	CollectorID string
	WorkDate    string
	Status      models.RequestStatus
}

func (f RequestFilter) Match(r *models.OpeningRequest) bool {
	if f.CollectorID != "" && r.CollectorID != f.CollectorID {
		return false
	}
	if f.WorkDate != "" && r.WorkDate != f.WorkDate {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// CashBoxRepository is the keyed store behind the ledger.
//
// Put* writes the whole record. For cash boxes the record's Version must equal
// the stored version (0 for a new box); on success the store increments it.
// Query results are in no particular order.
type CashBoxRepository interface {
	GetCashBox(ctx context.Context, id string) (*models.CashBox, error)
	PutCashBox(ctx context.Context, box *models.CashBox) error
	QueryCashBoxes(ctx context.Context, f CashBoxFilter) ([]models.CashBox, error)

	GetOpeningRequest(ctx context.Context, id string) (*models.OpeningRequest, error)
	PutOpeningRequest(ctx context.Context, req *models.OpeningRequest) error
	QueryOpeningRequests(ctx context.Context, f RequestFilter) ([]models.OpeningRequest, error)
}
