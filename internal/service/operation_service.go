// internal/service/operation_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"servo-service/internal/model"
	"servo-service/internal/repository"
	"servo-service/internal/utils"
)

type requestIDKey struct{}

// WithRequestID attaches the API request ID to operations started with ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) *string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return &id
	}
	return nil
}

// commandFunc runs with the controller lock held
type commandFunc func(ctx context.Context) (model.JSONObject, error)

// execute journals one controller command and serializes it against every
// other command and poll.
func (s *ServoService) execute(ctx context.Context, opType model.OperationType, data model.JSONObject, fn commandFunc) (*model.ServoOperation, error) {
	operation := model.NewServoOperation(opType, data)
	operation.RequestID = requestIDFrom(ctx)

	// Journal failures are logged, never returned
	if err := s.operationRepo.Create(ctx, operation); err != nil {
		s.logger.Warn("Failed to journal operation", zap.Error(err))
	}

	opLogger := utils.NewOperationLogger(s.logger.Logger, string(opType), operation.ID.String())
	opLogger.Start(zap.Any("data", data))

	s.mu.Lock()
	result, err := fn(ctx)
	s.mu.Unlock()

	status := model.OperationStatusSuccess
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = model.OperationStatusTimeout
	case err != nil:
		status = model.OperationStatusFailed
	}
	operation.Complete(status, result, err)

	if updateErr := s.operationRepo.Update(context.WithoutCancel(ctx), operation); updateErr != nil {
		s.logger.Warn("Failed to update operation", zap.Error(updateErr))
	}
	if s.metrics != nil {
		s.metrics.OperationsTotal.WithLabelValues(string(opType), string(status)).Inc()
	}

	eventType := model.EventOperationCompleted
	severity := model.SeverityInfo
	if err != nil {
		opLogger.Error(err)
		eventType = model.EventOperationFailed
		severity = model.SeverityWarning
	} else {
		opLogger.Success()
	}
	s.publish(eventType, severity, model.ToJSONObject(model.OperationEventData{
		OperationID:   operation.ID,
		OperationType: opType,
		Status:        status,
		Duration:      operation.DurationMs,
		ErrorMessage:  operation.ErrorMessage,
	}))

	return operation, err
}

func commandResult(operation *model.ServoOperation) CommandResult {
	result := CommandResult{
		OperationID: operation.ID,
		Status:      operation.Status,
	}
	if operation.DurationMs != nil {
		result.DurationMs = *operation.DurationMs
	}
	return result
}

// GetOperation retrieves operation details
func (s *ServoService) GetOperation(ctx context.Context, operationID uuid.UUID) (*model.ServoOperation, error) {
	operation, err := s.operationRepo.GetByID(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("operation not found: %w", err)
	}
	return operation, nil
}

// ListOperations lists operations with filtering
func (s *ServoService) ListOperations(ctx context.Context, filter *OperationListFilter) ([]*model.ServoOperation, *PaginationResult, error) {
	filter.normalize()

	operations, total, err := s.operationRepo.List(ctx, filter.toModelFilter())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list operations: %w", err)
	}

	pagination := &PaginationResult{
		Total:      total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: (total + filter.PerPage - 1) / filter.PerPage,
	}

	return operations, pagination, nil
}

// GetOperationStats summarizes operations since the given time
func (s *ServoService) GetOperationStats(ctx context.Context, since time.Time) (*repository.OperationStats, error) {
	stats, err := s.operationRepo.GetOperationStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation stats: %w", err)
	}
	return stats, nil
}

// CleanupOperations removes journal entries older than retention
func (s *ServoService) CleanupOperations(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.operationRepo.DeleteOldOperations(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup operations: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("Old operations removed",
			zap.Int64("deleted", deleted),
			zap.Duration("retention", retention),
		)
	}
	return deleted, nil
}
