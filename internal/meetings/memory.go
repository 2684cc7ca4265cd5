package meetings

import (
	"context"
	"sync"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/models"
)

// MemoryRepository is an in-process Repository for tests and for running
// without Redis.
type MemoryRepository struct {
	mu      sync.Mutex
	records []models.MeetingRecord
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) List(ctx context.Context) ([]models.MeetingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.MeetingRecord, len(r.records))
	copy(out, r.records)
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.MeetingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id {
			record := r.records[i]
			return &record, nil
		}
	}
	return nil, errs.Inputf("meeting %q not found", id)
}

func (r *MemoryRepository) Save(ctx context.Context, record models.MeetingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == record.ID {
			r.records[i] = record
			return nil
		}
	}
	r.records = append([]models.MeetingRecord{record}, r.records...)
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return errs.Inputf("meeting %q not found", id)
}
