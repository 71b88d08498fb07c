package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servo-service/internal/model"
)

func newOp(t *testing.T, repo OperationRepository, opType model.OperationType, createdAt time.Time) *model.ServoOperation {
	t.Helper()
	op := model.NewServoOperation(opType, model.JSONObject{"k": "v"})
	op.CreatedAt = createdAt
	op.StartedAt = createdAt
	require.NoError(t, repo.Create(context.Background(), op))
	return op
}

func TestMemoryRepository_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOperationRepository()

	op := newOp(t, repo, model.OperationTypeBatteryVoltage, time.Now())
	assert.Error(t, repo.Create(ctx, op), "duplicate IDs are rejected")

	got, err := repo.GetByID(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OperationStatusPending, got.Status)

	op.Complete(model.OperationStatusSuccess, model.JSONObject{"millivolts": 5096}, nil)
	require.NoError(t, repo.Update(ctx, op))

	got, err = repo.GetByID(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OperationStatusSuccess, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.True(t, got.IsCompleted())
}

func TestMemoryRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOperationRepository()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrOperationNotFound))

	err = repo.Update(ctx, model.NewServoOperation(model.OperationTypeConnect, nil))
	assert.True(t, errors.Is(err, ErrOperationNotFound))
}

func TestMemoryRepository_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOperationRepository()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		newOp(t, repo, model.OperationTypeMoveServos, base.Add(time.Duration(i)*time.Minute))
	}
	newest := newOp(t, repo, model.OperationTypeReadPositions, base.Add(10*time.Minute))

	all, total, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, all, 6)
	assert.Equal(t, newest.ID, all[0].ID, "newest first")

	moveType := model.OperationTypeMoveServos
	page, total, err := repo.List(ctx, &model.OperationFilter{OperationType: &moveType, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)
	for _, op := range page {
		assert.Equal(t, model.OperationTypeMoveServos, op.OperationType)
	}

	since := base.Add(3 * time.Minute)
	recent, total, err := repo.List(ctx, &model.OperationFilter{Since: &since})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, recent, 3)

	empty, total, err := repo.List(ctx, &model.OperationFilter{Offset: 100})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Empty(t, empty)
}

func TestMemoryRepository_StatsAndCleanup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOperationRepository()
	old := time.Now().Add(-48 * time.Hour)

	newOp(t, repo, model.OperationTypeConnect, old)
	ok := newOp(t, repo, model.OperationTypeMoveServos, time.Now())
	failed := newOp(t, repo, model.OperationTypeMoveServos, time.Now())

	ok.Complete(model.OperationStatusSuccess, nil, nil)
	require.NoError(t, repo.Update(ctx, ok))
	failed.Complete(model.OperationStatusTimeout, nil, errors.New("no reply"))
	require.NoError(t, repo.Update(ctx, failed))

	stats, err := repo.GetOperationStats(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOperations)
	assert.Equal(t, 1, stats.SuccessfulOps)
	assert.Equal(t, 1, stats.FailedOps)
	assert.Equal(t, 2, stats.ByType[model.OperationTypeMoveServos])

	deleted, err := repo.DeleteOldOperations(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(nil)
	assert.Empty(t, where)
	assert.Empty(t, args)

	opType := model.OperationTypeRunActionGroup
	status := model.OperationStatusFailed
	since := time.Now()
	where, args = buildWhere(&model.OperationFilter{OperationType: &opType, Status: &status, Since: &since})
	assert.Equal(t, " WHERE operation_type = $1 AND status = $2 AND created_at >= $3", where)
	assert.Equal(t, []interface{}{opType, status, since}, args)
}

func TestPageBounds(t *testing.T) {
	limit, offset := pageBounds(nil)
	assert.Equal(t, defaultPageSize, limit)
	assert.Equal(t, 0, offset)

	limit, offset = pageBounds(&model.OperationFilter{Limit: 10000, Offset: 7})
	assert.Equal(t, maxPageSize, limit)
	assert.Equal(t, 7, offset)
}
