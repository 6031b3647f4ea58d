package repository

import (
	"context"
	"sync"

	"github.com/anime-shed/leaf-health-go/pkg/models"
)

// MemoryAnalysisRepository keeps the most recent records in process.
type MemoryAnalysisRepository struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	byID     map[string]*models.AnalysisRecord
}

// NewMemoryAnalysisRepository keeps at most capacity records; older ones are
// evicted first.
func NewMemoryAnalysisRepository(capacity int) *MemoryAnalysisRepository {
	if capacity <= 0 {
		capacity = MaxListLimit
	}
	return &MemoryAnalysisRepository{
		capacity: capacity,
		byID:     make(map[string]*models.AnalysisRecord),
	}
}

func (r *MemoryAnalysisRepository) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepareRecord(record)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[record.ID]; !exists {
		r.order = append(r.order, record.ID)
	}
	r.byID[record.ID] = cloneRecord(record)

	for len(r.order) > r.capacity {
		delete(r.byID, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

func (r *MemoryAnalysisRepository) GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrAnalysisNotFound
	}
	return cloneRecord(rec), nil
}

func (r *MemoryAnalysisRepository) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	limit = normaliseLimit(limit)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.AnalysisRecord, 0, min(limit, len(r.order)))
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, cloneRecord(r.byID[r.order[i]]))
	}
	return out, nil
}

func (r *MemoryAnalysisRepository) Close() error {
	return nil
}
