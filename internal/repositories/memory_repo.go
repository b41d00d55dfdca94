package repositories

import (
	"context"
	"sync"

	"cashbox-api/internal/models"
)

// MemoryRepository keeps records in process memory. Records are copied on
// the way in and out so callers never alias stored state.
type MemoryRepository struct {
	mu       sync.RWMutex
	boxes    map[string]*models.CashBox
	requests map[string]*models.OpeningRequest
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		boxes:    make(map[string]*models.CashBox),
		requests: make(map[string]*models.OpeningRequest),
	}
}

func (r *MemoryRepository) GetCashBox(_ context.Context, id string) (*models.CashBox, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.boxes[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return b.Clone(), nil
}

func (r *MemoryRepository) PutCashBox(_ context.Context, box *models.CashBox) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current int64
	if existing, ok := r.boxes[box.ID]; ok {
		current = existing.Version
	}
	if box.Version != current {
		return ErrVersionConflict
	}
	box.Version++
	r.boxes[box.ID] = box.Clone()
	return nil
}

func (r *MemoryRepository) QueryCashBoxes(_ context.Context, f CashBoxFilter) ([]models.CashBox, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.CashBox{}
	for _, b := range r.boxes {
		if f.Match(b) {
			out = append(out, *b.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRepository) GetOpeningRequest(_ context.Context, id string) (*models.OpeningRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return req.Clone(), nil
}

func (r *MemoryRepository) PutOpeningRequest(_ context.Context, req *models.OpeningRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests[req.ID] = req.Clone()
	return nil
}

func (r *MemoryRepository) QueryOpeningRequests(_ context.Context, f RequestFilter) ([]models.OpeningRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.OpeningRequest{}
	for _, req := range r.requests {
		if f.Match(req) {
			out = append(out, *req.Clone())
		}
	}
	return out, nil
}
