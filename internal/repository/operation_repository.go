// internal/repository/operation_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"servo-service/internal/database"
	"servo-service/internal/model"
)

// operationRepository stores operations in PostgreSQL
type operationRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewOperationRepository creates a PostgreSQL backed operation repository
func NewOperationRepository(db *database.DB, logger *zap.Logger) OperationRepository {
	return &operationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new operation
func (r *operationRepository) Create(ctx context.Context, operation *model.ServoOperation) error {
	query := `
		INSERT INTO servo_operations (
			id, operation_type, operation_data, status,
			started_at, request_id, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		operation.ID, operation.OperationType, operation.OperationData,
		operation.Status, operation.StartedAt, operation.RequestID,
		operation.Result, operation.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create operation", zap.Error(err))
		return fmt.Errorf("failed to create operation: %w", err)
	}

	return nil
}

const selectOperationColumns = `
	SELECT id, operation_type, operation_data, status, started_at,
		   completed_at, duration_ms, error_message, request_id, result, created_at
	FROM servo_operations`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOperation(row rowScanner) (*model.ServoOperation, error) {
	op := &model.ServoOperation{}
	err := row.Scan(
		&op.ID, &op.OperationType, &op.OperationData, &op.Status, &op.StartedAt,
		&op.CompletedAt, &op.DurationMs, &op.ErrorMessage, &op.RequestID,
		&op.Result, &op.CreatedAt,
	)
	return op, err
}

// GetByID retrieves an operation by ID
func (r *operationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ServoOperation, error) {
	op, err := scanOperation(r.db.QueryRowContext(ctx, selectOperationColumns+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
		}
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return op, nil
}

// Update stores the outcome of an operation
func (r *operationRepository) Update(ctx context.Context, operation *model.ServoOperation) error {
	query := `
		UPDATE servo_operations SET
			status = $2, completed_at = $3, duration_ms = $4,
			error_message = $5, result = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		operation.ID, operation.Status, operation.CompletedAt,
		operation.DurationMs, operation.ErrorMessage, operation.Result,
	)
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, operation.ID)
	}

	return nil
}

// buildWhere turns a filter into a WHERE clause with numbered placeholders
func buildWhere(filter *model.OperationFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	conditions := []string{}
	args := []interface{}{}

	if filter.OperationType != nil {
		args = append(args, *filter.OperationType)
		conditions = append(conditions, fmt.Sprintf("operation_type = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List retrieves operations with filtering and pagination
func (r *operationRepository) List(ctx context.Context, filter *model.OperationFilter) ([]*model.ServoOperation, int, error) {
	where, args := buildWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM servo_operations"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count operations: %w", err)
	}

	limit, offset := pageBounds(filter)
	query := fmt.Sprintf("%s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		selectOperationColumns, where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	operations := []*model.ServoOperation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan operation: %w", err)
		}
		operations = append(operations, op)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return operations, total, nil
}

// GetOperationStats aggregates operations created since the given time
func (r *operationRepository) GetOperationStats(ctx context.Context, since time.Time) (*OperationStats, error) {
	query := `
		SELECT operation_type, status, COUNT(*), COALESCE(AVG(duration_ms), 0)
		FROM servo_operations
		WHERE created_at >= $1
		GROUP BY operation_type, status
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation stats: %w", err)
	}
	defer rows.Close()

	acc := newStatsAccumulator()
	for rows.Next() {
		var (
			opType model.OperationType
			status model.OperationStatus
			count  int
			avg    float64
		)
		if err := rows.Scan(&opType, &status, &count, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan operation stats: %w", err)
		}
		acc.add(opType, status, count, avg*float64(count))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operation stats: %w", err)
	}

	return acc.result(), nil
}

// DeleteOldOperations removes operations created before olderThan
func (r *operationRepository) DeleteOldOperations(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM servo_operations WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old operations: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// statsAccumulator folds per type/status counts into OperationStats
type statsAccumulator struct {
	stats         *OperationStats
	totalDuration float64
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{
		stats: &OperationStats{
			ByType:   make(map[model.OperationType]int),
			ByStatus: make(map[model.OperationStatus]int),
		},
	}
}

func (a *statsAccumulator) add(opType model.OperationType, status model.OperationStatus, count int, durationMs float64) {
	a.stats.TotalOperations += count
	a.stats.ByType[opType] += count
	a.stats.ByStatus[status] += count
	switch status {
	case model.OperationStatusSuccess:
		a.stats.SuccessfulOps += count
	case model.OperationStatusFailed, model.OperationStatusTimeout:
		a.stats.FailedOps += count
	}
	a.totalDuration += durationMs
}

func (a *statsAccumulator) result() *OperationStats {
	if a.stats.TotalOperations > 0 {
		a.stats.AvgDurationMs = a.totalDuration / float64(a.stats.TotalOperations)
	}
	return a.stats
}
