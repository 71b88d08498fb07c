// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"servo-service/internal/model"
)

// ErrOperationNotFound is returned when no operation has the requested ID
var ErrOperationNotFound = errors.New("operation not found")

// OperationRepository journals commands sent to the controller
type OperationRepository interface {
	Create(ctx context.Context, operation *model.ServoOperation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ServoOperation, error)
	Update(ctx context.Context, operation *model.ServoOperation) error

	// List returns a page of operations, newest first, and the total match count
	List(ctx context.Context, filter *model.OperationFilter) ([]*model.ServoOperation, int, error)
	GetOperationStats(ctx context.Context, since time.Time) (*OperationStats, error)

	DeleteOldOperations(ctx context.Context, olderThan time.Time) (int64, error)
}

// OperationStats represents operation statistics
type OperationStats struct {
	TotalOperations int                           `json:"total_operations"`
	SuccessfulOps   int                           `json:"successful_operations"`
	FailedOps       int                           `json:"failed_operations"`
	AvgDurationMs   float64                       `json:"average_duration_ms"`
	ByType          map[model.OperationType]int   `json:"by_type"`
	ByStatus        map[model.OperationStatus]int `json:"by_status"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func pageBounds(filter *model.OperationFilter) (limit, offset int) {
	limit, offset = defaultPageSize, 0
	if filter == nil {
		return limit, offset
	}
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if filter.Offset > 0 {
		offset = filter.Offset
	}
	return limit, offset
}
