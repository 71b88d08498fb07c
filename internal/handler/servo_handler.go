// internal/handler/servo_handler.go
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"servo-service/internal/service"
	"servo-service/internal/utils"
	"servo-service/pkg/lsc"
)

// ServoHandler exposes the controller over HTTP
type ServoHandler struct {
	servoService     *service.ServoService
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewServoHandler creates a new servo handler
func NewServoHandler(servoService *service.ServoService, discoveryService *service.DiscoveryService, logger *zap.Logger) *ServoHandler {
	return &ServoHandler{
		servoService:     servoService,
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "servo-handler"),
	}
}

// RegisterRoutes registers controller, servo and action group routes
func (h *ServoHandler) RegisterRoutes(router *gin.RouterGroup) {
	controller := router.Group("/controller")
	{
		controller.POST("/connect", h.Connect)
		controller.POST("/disconnect", h.Disconnect)
		controller.GET("/status", h.Status)
		controller.GET("/discover", h.Discover)
	}

	servos := router.Group("/servos")
	{
		servos.POST("/move", h.MoveServos)
		servos.GET("/positions", h.ReadPositions)
		servos.POST("/power-off", h.PowerOff)
	}

	router.GET("/battery", h.BatteryVoltage)

	groups := router.Group("/action-groups")
	{
		groups.POST("/stop", h.StopActionGroup)
		groups.GET("/notification", h.PollNotification)
		groups.DELETE("/watch", h.StopWatch)
		groups.POST("/:group_id/run", h.RunActionGroup)
		groups.PUT("/:group_id/speed", h.SetActionGroupSpeed)
		groups.POST("/:group_id/watch", h.WatchActionGroup)
	}
}

// Connect opens the controller link
// @Summary Connect to the controller
// @Tags Controller
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.ControllerStatus} "Controller connected"
// @Failure 502 {object} utils.APIResponse "Controller unreachable"
// @Router /controller/connect [post]
func (h *ServoHandler) Connect(c *gin.Context) {
	status, err := h.servoService.Connect(requestContext(c))
	if err != nil {
		h.logger.Error("Failed to connect controller", zap.Error(err))
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to connect to controller", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Controller connected", status)
}

// Disconnect closes the controller link
// @Summary Disconnect from the controller
// @Tags Controller
// @Produce json
// @Success 200 {object} utils.APIResponse "Controller disconnected"
// @Router /controller/disconnect [post]
func (h *ServoHandler) Disconnect(c *gin.Context) {
	if err := h.servoService.Disconnect(requestContext(c)); err != nil {
		h.respondError(c, "Failed to disconnect controller", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Controller disconnected", h.servoService.Status())
}

// Status returns link state and counters
// @Summary Controller status
// @Tags Controller
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.ControllerStatus} "Controller status"
// @Router /controller/status [get]
func (h *ServoHandler) Status(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Controller status retrieved", h.servoService.Status())
}

// Discover lists USB devices and serial ports the board may be attached to
// @Summary Discover controller links
// @Tags Controller
// @Produce json
// @Param type query string false "Scanner type" Enums(usb, serial)
// @Param timeout_ms query int false "Scan timeout in milliseconds"
// @Success 200 {object} utils.APIResponse{data=object{candidates=[]discovery.Candidate,scanners=[]string}} "Discovery completed"
// @Failure 400 {object} utils.APIResponse "Unknown scanner"
// @Router /controller/discover [get]
func (h *ServoHandler) Discover(c *gin.Context) {
	req := &service.ScanRequest{ScannerType: c.Query("type")}
	if timeout, ok := parseTimeoutMs(c); ok {
		req.Timeout = timeout
	}

	candidates, err := h.discoveryService.Scan(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "Controller discovery failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Discovery completed", gin.H{
		"candidates": candidates,
		"scanners":   h.discoveryService.AvailableScanners(),
	})
}

// MoveServos moves servos over a duration
// @Summary Move servos
// @Description Move servos to board positions or angles in radians. wait_reply reads the board echo.
// @Tags Servos
// @Accept json
// @Produce json
// @Param request body service.MoveRequest true "Move request"
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Servos moved"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Controller not connected"
// @Failure 502 {object} utils.APIResponse "Controller error"
// @Router /servos/move [post]
func (h *ServoHandler) MoveServos(c *gin.Context) {
	var req service.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.servoService.MoveServos(requestContext(c), &req)
	if err != nil {
		h.respondError(c, "Failed to move servos", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Servos moved", result)
}

// ReadPositions reads servo positions
// @Summary Read servo positions
// @Description Partial replies return the servos decoded so far with partial=true
// @Tags Servos
// @Produce json
// @Param ids query string true "Comma separated servo IDs"
// @Param unit query string false "Result unit" Enums(position, radian) default(position)
// @Success 200 {object} utils.APIResponse{data=service.PositionsResult} "Positions read"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Controller not connected"
// @Failure 502 {object} utils.APIResponse "Controller error"
// @Router /servos/positions [get]
func (h *ServoHandler) ReadPositions(c *gin.Context) {
	ids, err := parseServoIDs(c.Query("ids"))
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"ids": err.Error()})
		return
	}

	result, err := h.servoService.ReadPositions(requestContext(c), ids, c.DefaultQuery("unit", service.UnitPosition))
	if err != nil {
		h.respondError(c, "Failed to read positions", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Positions read", result)
}

// PowerOff unloads servos
// @Summary Power off servos
// @Tags Servos
// @Accept json
// @Produce json
// @Param request body service.PowerOffRequest true "Servo IDs"
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Servos powered off"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Controller not connected"
// @Router /servos/power-off [post]
func (h *ServoHandler) PowerOff(c *gin.Context) {
	var req service.PowerOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.servoService.PowerOff(requestContext(c), &req)
	if err != nil {
		h.respondError(c, "Failed to power off servos", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Servos powered off", result)
}

// BatteryVoltage reads the supply voltage
// @Summary Battery voltage
// @Tags Controller
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.BatteryResult} "Battery voltage read"
// @Failure 409 {object} utils.APIResponse "Controller not connected"
// @Failure 502 {object} utils.APIResponse "Controller error"
// @Failure 504 {object} utils.APIResponse "Controller timeout"
// @Router /battery [get]
func (h *ServoHandler) BatteryVoltage(c *gin.Context) {
	result, err := h.servoService.BatteryVoltage(requestContext(c))
	if err != nil {
		h.respondError(c, "Failed to read battery voltage", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Battery voltage read", result)
}

// RunActionGroup starts a stored action group
// @Summary Run action group
// @Tags Action Groups
// @Accept json
// @Produce json
// @Param group_id path int true "Action group number"
// @Param request body object{repetitions=int,watch=bool} false "Repetitions (0 loops forever) and background watch"
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Action group started"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Controller not connected"
// @Router /action-groups/{group_id}/run [post]
func (h *ServoHandler) RunActionGroup(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}

	var req service.RunActionGroupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	req.GroupID = groupID

	result, err := h.servoService.RunActionGroup(requestContext(c), &req)
	if err != nil {
		h.respondError(c, "Failed to run action group", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Action group started", result)
}

// StopActionGroup stops the running action group
// @Summary Stop action group
// @Tags Action Groups
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Stop sent"
// @Failure 409 {object} utils.APIResponse "Controller not connected"
// @Router /action-groups/stop [post]
func (h *ServoHandler) StopActionGroup(c *gin.Context) {
	result, err := h.servoService.StopActionGroup(requestContext(c))
	if err != nil {
		h.respondError(c, "Failed to stop action group", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Stop sent", result)
}

// SetActionGroupSpeed sets action group playback speed
// @Summary Set action group speed
// @Tags Action Groups
// @Accept json
// @Produce json
// @Param group_id path int true "Action group number"
// @Param request body object{speed=int,wait_reply=bool} true "Speed"
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Speed set"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Controller not connected"
// @Router /action-groups/{group_id}/speed [put]
func (h *ServoHandler) SetActionGroupSpeed(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}

	var req service.SpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.GroupID = groupID

	result, err := h.servoService.SetActionGroupSpeed(requestContext(c), &req)
	if err != nil {
		h.respondError(c, "Failed to set action group speed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Speed set", result)
}

// WatchActionGroup follows an action group's notifications in the background
// @Summary Watch action group
// @Tags Action Groups
// @Produce json
// @Param group_id path int true "Action group number"
// @Success 202 {object} utils.APIResponse "Watch started"
// @Failure 409 {object} utils.APIResponse "Controller not connected"
// @Router /action-groups/{group_id}/watch [post]
func (h *ServoHandler) WatchActionGroup(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}

	if err := h.servoService.WatchActionGroup(groupID); err != nil {
		h.respondError(c, "Failed to start watch", err)
		return
	}
	utils.SuccessResponse(c, http.StatusAccepted, "Watch started", gin.H{"group_id": groupID})
}

// StopWatch cancels the background watch
// @Summary Stop watching action group
// @Tags Action Groups
// @Produce json
// @Success 200 {object} utils.APIResponse "Watch stopped"
// @Router /action-groups/watch [delete]
func (h *ServoHandler) StopWatch(c *gin.Context) {
	h.servoService.StopWatch()
	utils.SuccessResponse(c, http.StatusOK, "Watch stopped", nil)
}

// PollNotification waits for one frame pushed by the board
// @Summary Poll notification
// @Description Blocks up to timeout_ms for a running, stopped or complete notification
// @Tags Action Groups
// @Produce json
// @Param timeout_ms query int false "Wait in milliseconds, defaults to the read timeout"
// @Success 200 {object} utils.APIResponse{data=service.NotificationResult} "Notification received"
// @Failure 409 {object} utils.APIResponse "Controller not connected or watch active"
// @Failure 504 {object} utils.APIResponse "No notification within timeout"
// @Router /action-groups/notification [get]
func (h *ServoHandler) PollNotification(c *gin.Context) {
	timeout, _ := parseTimeoutMs(c)

	result, err := h.servoService.PollNotification(requestContext(c), timeout)
	if err != nil {
		h.respondError(c, "No notification received", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Notification received", result)
}

// respondError maps service and protocol errors to HTTP status codes
func (h *ServoHandler) respondError(c *gin.Context, message string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	utils.ErrorResponse(c, status, message, err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, lsc.ErrNoServos),
		errors.Is(err, lsc.ErrFrameTooLong):
		return http.StatusBadRequest
	case errors.Is(err, lsc.ErrNotConnected), errors.Is(err, service.ErrWatchActive):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, lsc.ErrReceiveFailure),
		errors.Is(err, lsc.ErrMalformedResponse),
		errors.Is(err, lsc.ErrSendFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func requestContext(c *gin.Context) context.Context {
	return service.WithRequestID(c.Request.Context(), utils.GetRequestID(c))
}

func parseGroupID(c *gin.Context) (uint8, bool) {
	groupID, err := strconv.ParseUint(c.Param("group_id"), 10, 8)
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"group_id": "must be an integer between 0 and 255"})
		return 0, false
	}
	return uint8(groupID), true
}

func parseTimeoutMs(c *gin.Context) (time.Duration, bool) {
	raw := c.Query("timeout_ms")
	if raw == "" {
		return 0, false
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// parseServoIDs parses "1,2,3"
func parseServoIDs(raw string) ([]uint8, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("at least one servo ID is required")
	}

	parts := strings.Split(raw, ",")
	ids := make([]uint8, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid servo ID %q", part)
		}
		ids = append(ids, uint8(id))
	}
	return ids, nil
}
