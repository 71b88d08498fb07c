// internal/handler/operation_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"servo-service/internal/model"
	"servo-service/internal/repository"
	"servo-service/internal/service"
	"servo-service/internal/utils"
)

const defaultStatsWindow = 24 * time.Hour

// OperationHandler serves the operation journal
type OperationHandler struct {
	servoService *service.ServoService
	logger       *utils.ServiceLogger
}

// NewOperationHandler creates a new operation handler
func NewOperationHandler(servoService *service.ServoService, logger *zap.Logger) *OperationHandler {
	return &OperationHandler{
		servoService: servoService,
		logger:       utils.NewServiceLogger(logger, "operation-handler"),
	}
}

// RegisterRoutes registers operation-related routes
func (h *OperationHandler) RegisterRoutes(router *gin.RouterGroup) {
	operations := router.Group("/operations")
	{
		operations.GET("", h.ListOperations)
		operations.GET("/stats", h.GetOperationStats)
		operations.GET("/:operation_id", h.GetOperation)
	}
}

// ListOperations lists journaled operations, newest first
// @Summary List operations
// @Tags Operations
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param operation_type query string false "Operation type" Enums(CONNECT, DISCONNECT, MOVE_SERVOS, READ_POSITIONS, BATTERY_VOLTAGE, POWER_OFF, RUN_ACTION_GROUP, STOP_ACTION_GROUP, SET_ACTION_GROUP_SPEED, POLL_NOTIFICATION)
// @Param status query string false "Operation status" Enums(PENDING, SUCCESS, FAILED, TIMEOUT)
// @Param since query string false "RFC3339 lower bound on created_at"
// @Success 200 {object} utils.APIResponse{data=object{operations=[]model.ServoOperation,pagination=service.PaginationResult}} "Operations retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Router /operations [get]
func (h *OperationHandler) ListOperations(c *gin.Context) {
	filter := &service.OperationListFilter{}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20")); err == nil {
		filter.PerPage = perPage
	}
	if opType := c.Query("operation_type"); opType != "" {
		t := model.OperationType(strings.ToUpper(opType))
		filter.OperationType = &t
	}
	if status := c.Query("status"); status != "" {
		s := model.OperationStatus(strings.ToUpper(status))
		filter.Status = &s
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			utils.ValidationErrorResponse(c, map[string]string{"since": "must be an RFC3339 timestamp"})
			return
		}
		filter.Since = &t
	}

	operations, pagination, err := h.servoService.ListOperations(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list operations", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list operations", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Operations retrieved successfully", gin.H{
		"operations": operations,
		"pagination": pagination,
	})
}

// GetOperation gets one journaled operation
// @Summary Get operation
// @Tags Operations
// @Produce json
// @Param operation_id path string true "Operation ID (UUID)"
// @Success 200 {object} utils.APIResponse{data=model.ServoOperation} "Operation retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid operation ID"
// @Failure 404 {object} utils.APIResponse "Operation not found"
// @Router /operations/{operation_id} [get]
func (h *OperationHandler) GetOperation(c *gin.Context) {
	operationID, err := uuid.Parse(c.Param("operation_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid operation ID", err)
		return
	}

	operation, err := h.servoService.GetOperation(c.Request.Context(), operationID)
	if err != nil {
		if errors.Is(err, repository.ErrOperationNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Operation not found", err)
			return
		}
		h.logger.Error("Failed to get operation", zap.Error(err), zap.String("operation_id", operationID.String()))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get operation", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Operation retrieved successfully", operation)
}

// GetOperationStats summarizes the journal
// @Summary Operation statistics
// @Tags Operations
// @Produce json
// @Param since query string false "RFC3339 start of the window, defaults to the last 24h"
// @Success 200 {object} utils.APIResponse{data=repository.OperationStats} "Statistics retrieved"
// @Router /operations/stats [get]
func (h *OperationHandler) GetOperationStats(c *gin.Context) {
	since := time.Now().Add(-defaultStatsWindow)
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.ValidationErrorResponse(c, map[string]string{"since": "must be an RFC3339 timestamp"})
			return
		}
		since = t
	}

	stats, err := h.servoService.GetOperationStats(c.Request.Context(), since)
	if err != nil {
		h.logger.Error("Failed to get operation stats", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get operation stats", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Operation statistics retrieved", stats)
}
