// internal/repository/memory_repository.go
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"servo-service/internal/model"
)

// memoryOperationRepository keeps the journal in process memory. It is used
// when the database is disabled.
type memoryOperationRepository struct {
	mu         sync.RWMutex
	operations map[uuid.UUID]*model.ServoOperation
}

// NewMemoryOperationRepository creates an in-memory operation repository
func NewMemoryOperationRepository() OperationRepository {
	return &memoryOperationRepository{
		operations: make(map[uuid.UUID]*model.ServoOperation),
	}
}

func (r *memoryOperationRepository) Create(ctx context.Context, operation *model.ServoOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.operations[operation.ID]; exists {
		return fmt.Errorf("operation %s already exists", operation.ID)
	}
	r.operations[operation.ID] = cloneOperation(operation)
	return nil
}

func (r *memoryOperationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ServoOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.operations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	return cloneOperation(op), nil
}

func (r *memoryOperationRepository) Update(ctx context.Context, operation *model.ServoOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.operations[operation.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, operation.ID)
	}
	r.operations[operation.ID] = cloneOperation(operation)
	return nil
}

func (r *memoryOperationRepository) List(ctx context.Context, filter *model.OperationFilter) ([]*model.ServoOperation, int, error) {
	r.mu.RLock()
	matched := make([]*model.ServoOperation, 0, len(r.operations))
	for _, op := range r.operations {
		if matchesFilter(op, filter) {
			matched = append(matched, cloneOperation(op))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit, offset := pageBounds(filter)
	if offset >= total {
		return []*model.ServoOperation{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memoryOperationRepository) GetOperationStats(ctx context.Context, since time.Time) (*OperationStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc := newStatsAccumulator()
	for _, op := range r.operations {
		if op.CreatedAt.Before(since) {
			continue
		}
		var duration float64
		if op.DurationMs != nil {
			duration = float64(*op.DurationMs)
		}
		acc.add(op.OperationType, op.Status, 1, duration)
	}
	return acc.result(), nil
}

func (r *memoryOperationRepository) DeleteOldOperations(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, op := range r.operations {
		if op.CreatedAt.Before(olderThan) {
			delete(r.operations, id)
			deleted++
		}
	}
	return deleted, nil
}

func matchesFilter(op *model.ServoOperation, filter *model.OperationFilter) bool {
	if filter == nil {
		return true
	}
	if filter.OperationType != nil && op.OperationType != *filter.OperationType {
		return false
	}
	if filter.Status != nil && op.Status != *filter.Status {
		return false
	}
	if filter.Since != nil && op.CreatedAt.Before(*filter.Since) {
		return false
	}
	return true
}

// cloneOperation copies the struct so callers cannot mutate stored state.
// The JSON maps are shared; the service never mutates them after Complete.
func cloneOperation(op *model.ServoOperation) *model.ServoOperation {
	c := *op
	return &c
}
