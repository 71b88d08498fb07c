// internal/service/servo_service.go
package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"servo-service/internal/config"
	"servo-service/internal/metrics"
	"servo-service/internal/model"
	"servo-service/internal/protocol"
	"servo-service/internal/repository"
	"servo-service/internal/utils"
	"servo-service/pkg/lsc"
)

// EventPublisher receives controller events for fan-out
type EventPublisher interface {
	Publish(event *model.ControllerEvent)
}

// ServoService owns the controller and serializes every exchange with it
type ServoService struct {
	controller    *lsc.Controller
	conn          protocol.Connection
	operationRepo repository.OperationRepository
	publisher     EventPublisher
	metrics       *metrics.ServoMetrics
	config        *config.ControllerConfig
	logger        *utils.ServiceLogger
	ctrlLogger    *utils.ControllerLogger

	// mu is held for one full request/response cycle or notification poll
	mu sync.Mutex

	stateMu     sync.RWMutex
	lastBattery *model.BatteryReading
	watch       *actionGroupWatch

	// watchMu serializes starting and stopping watches
	watchMu sync.Mutex

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewServoService creates a servo service over conn. servoMetrics and
// publisher may be nil.
func NewServoService(
	conn protocol.Connection,
	operationRepo repository.OperationRepository,
	publisher EventPublisher,
	servoMetrics *metrics.ServoMetrics,
	cfg *config.ControllerConfig,
	logger *zap.Logger,
) *ServoService {
	opts := []lsc.Option{
		lsc.WithLogger(logger.With(zap.String("component", "lsc"))),
		lsc.WithReadTimeout(cfg.ReadTimeout),
		lsc.WithReportSize(cfg.ReportSize),
	}
	if servoMetrics != nil {
		opts = append(opts, lsc.WithObserver(servoMetrics))
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &ServoService{
		controller:    lsc.NewController(conn, opts...),
		conn:          conn,
		operationRepo: operationRepo,
		publisher:     publisher,
		metrics:       servoMetrics,
		config:        cfg,
		logger:        utils.NewServiceLogger(logger, "servo-service"),
		ctrlLogger:    utils.NewControllerLogger(logger, conn.Kind()),
		baseCtx:       baseCtx,
		baseCancel:    baseCancel,
	}
}

// Connect opens the link to the board
func (s *ServoService) Connect(ctx context.Context) (*model.ControllerStatus, error) {
	_, err := s.execute(ctx, model.OperationTypeConnect, nil, func(ctx context.Context) (model.JSONObject, error) {
		if err := s.controller.Connect(ctx); err != nil {
			return nil, err
		}
		return model.JSONObject{"transport": s.conn.Kind()}, nil
	})
	s.ctrlLogger.LogConnection("connect", err)
	if err != nil {
		s.publish(model.EventControllerError, model.SeverityError, model.JSONObject{
			"action": "connect",
			"error":  err.Error(),
		})
		return nil, err
	}

	s.setConnected(true)
	s.publish(model.EventControllerConnected, model.SeverityInfo, model.JSONObject{"transport": s.conn.Kind()})
	return s.Status(), nil
}

// Disconnect stops any watch and closes the link
func (s *ServoService) Disconnect(ctx context.Context) error {
	s.StopWatch()

	_, err := s.execute(ctx, model.OperationTypeDisconnect, nil, func(ctx context.Context) (model.JSONObject, error) {
		return nil, s.controller.Disconnect()
	})
	s.ctrlLogger.LogConnection("disconnect", err)
	if err != nil {
		return err
	}

	s.setConnected(false)
	s.publish(model.EventControllerDisconnected, model.SeverityInfo, model.JSONObject{"transport": s.conn.Kind()})
	return nil
}

// IsConnected reports whether the link is open
func (s *ServoService) IsConnected() bool {
	return s.controller.IsConnected()
}

// Status returns link state and counters
func (s *ServoService) Status() *model.ControllerStatus {
	stats := s.conn.Stats()
	status := &model.ControllerStatus{
		Connected:    s.controller.IsConnected(),
		Transport:    s.conn.Kind(),
		ReadTimeout:  s.controller.ReadTimeout(),
		BytesWritten: stats.BytesWritten,
		BytesRead:    stats.BytesRead,
		LinkErrors:   stats.ErrorCount,
		LastActivity: stats.LastActivity,
	}

	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.lastBattery != nil {
		battery := *s.lastBattery
		status.LastBattery = &battery
	}
	if s.watch != nil {
		group := s.watch.group
		status.WatchingGroup = &group
	}
	return status
}

// MoveServos moves servos to board positions or angles in radians
func (s *ServoService) MoveServos(ctx context.Context, req *MoveRequest) (*CommandResult, error) {
	if err := validateMove(req); err != nil {
		return nil, err
	}

	opts := s.replyOptions(req.WaitReply)
	operation, err := s.execute(ctx, model.OperationTypeMoveServos, model.ToJSONObject(req), func(ctx context.Context) (model.JSONObject, error) {
		if req.Unit == UnitRadian {
			angles := make([]lsc.ServoAngle, len(req.Servos))
			for i, target := range req.Servos {
				angles[i] = lsc.ServoAngle{ID: target.ID, Radians: *target.Angle}
			}
			return nil, s.controller.MoveServosRadians(ctx, angles, req.TimeMs, opts...)
		}

		positions := make([]lsc.ServoPosition, len(req.Servos))
		for i, target := range req.Servos {
			positions[i] = lsc.ServoPosition{ID: target.ID, Position: *target.Position}
		}
		return nil, s.controller.MoveServos(ctx, positions, req.TimeMs, opts...)
	})
	if err != nil {
		return nil, err
	}

	result := commandResult(operation)
	return &result, nil
}

func validateMove(req *MoveRequest) error {
	if req.Unit == "" {
		req.Unit = UnitPosition
	}
	if req.Unit != UnitPosition && req.Unit != UnitRadian {
		return fmt.Errorf("%w: unit must be %q or %q", ErrInvalidRequest, UnitPosition, UnitRadian)
	}
	if len(req.Servos) == 0 {
		return lsc.ErrNoServos
	}
	if len(req.Servos) > lsc.MaxMoveServos {
		return fmt.Errorf("%w: at most %d servos per move", ErrInvalidRequest, lsc.MaxMoveServos)
	}

	for _, target := range req.Servos {
		switch req.Unit {
		case UnitRadian:
			if target.Angle == nil {
				return fmt.Errorf("%w: servo %d has no angle", ErrInvalidRequest, target.ID)
			}
			if math.IsNaN(*target.Angle) || math.IsInf(*target.Angle, 0) {
				return fmt.Errorf("%w: servo %d angle is not finite", ErrInvalidRequest, target.ID)
			}
		default:
			if target.Position == nil {
				return fmt.Errorf("%w: servo %d has no position", ErrInvalidRequest, target.ID)
			}
		}
	}
	return nil
}

// ReadPositions reads servo positions, converting to radians when asked
func (s *ServoService) ReadPositions(ctx context.Context, ids []uint8, unit string) (*PositionsResult, error) {
	if unit == "" {
		unit = UnitPosition
	}
	if unit != UnitPosition && unit != UnitRadian {
		return nil, fmt.Errorf("%w: unit must be %q or %q", ErrInvalidRequest, UnitPosition, UnitRadian)
	}
	if len(ids) == 0 {
		return nil, lsc.ErrNoServos
	}
	if len(ids) > lsc.MaxReadServos {
		return nil, fmt.Errorf("%w: at most %d servos per read", ErrInvalidRequest, lsc.MaxReadServos)
	}

	var report lsc.PositionReport
	data := model.JSONObject{"ids": idList(ids), "unit": unit}
	operation, err := s.execute(ctx, model.OperationTypeReadPositions, data, func(ctx context.Context) (model.JSONObject, error) {
		var err error
		report, err = s.controller.ReadServoPositionReport(ctx, ids)
		if err != nil {
			return nil, err
		}
		return model.ToJSONObject(report), nil
	})
	if err != nil {
		return nil, err
	}

	result := &PositionsResult{
		CommandResult: commandResult(operation),
		Unit:          unit,
		Declared:      report.Declared,
		Requested:     report.Requested,
		Partial:       report.Partial,
		Missing:       missingIDs(ids, report.Positions),
	}
	if unit == UnitRadian {
		result.Angles = make(map[uint8]float64, len(report.Positions))
		for id, pos := range report.Positions {
			result.Angles[id] = lsc.PositionToRadians(pos)
		}
	} else {
		result.Positions = report.Positions
	}
	return result, nil
}

func missingIDs(requested []uint8, got map[uint8]uint16) []int {
	var missing []int
	seen := make(map[uint8]bool, len(requested))
	for _, id := range requested {
		if _, ok := got[id]; !ok && !seen[id] {
			missing = append(missing, int(id))
		}
		seen[id] = true
	}
	sort.Ints(missing)
	return missing
}

// idList widens ids so they journal as a JSON array rather than base64
func idList(ids []uint8) []int {
	list := make([]int, len(ids))
	for i, id := range ids {
		list[i] = int(id)
	}
	return list
}

// BatteryVoltage reads the supply voltage
func (s *ServoService) BatteryVoltage(ctx context.Context) (*BatteryResult, error) {
	var millivolts uint16
	operation, err := s.execute(ctx, model.OperationTypeBatteryVoltage, nil, func(ctx context.Context) (model.JSONObject, error) {
		var err error
		millivolts, err = s.controller.GetBatteryVoltage(ctx)
		if err != nil {
			return nil, err
		}
		return model.JSONObject{"millivolts": millivolts}, nil
	})
	if err != nil {
		return nil, err
	}

	reading := model.NewBatteryReading(millivolts, time.Now())
	s.stateMu.Lock()
	s.lastBattery = &reading
	s.stateMu.Unlock()

	if s.metrics != nil {
		s.metrics.BatteryMillivolts.Set(float64(millivolts))
	}
	s.publish(model.EventBatteryReading, model.SeverityInfo, model.ToJSONObject(reading))

	return &BatteryResult{
		CommandResult:  commandResult(operation),
		BatteryReading: reading,
	}, nil
}

// PowerOff unloads servos so they can be moved by hand
func (s *ServoService) PowerOff(ctx context.Context, req *PowerOffRequest) (*CommandResult, error) {
	if len(req.IDs) == 0 {
		return nil, lsc.ErrNoServos
	}
	if len(req.IDs) > lsc.MaxUnloadServos {
		return nil, fmt.Errorf("%w: at most %d servos per request", ErrInvalidRequest, lsc.MaxUnloadServos)
	}

	opts := s.replyOptions(req.WaitReply)
	data := model.JSONObject{"ids": idList(req.IDs), "wait_reply": req.WaitReply}
	operation, err := s.execute(ctx, model.OperationTypePowerOff, data, func(ctx context.Context) (model.JSONObject, error) {
		return nil, s.controller.PowerOffServos(ctx, req.IDs, opts...)
	})
	if err != nil {
		return nil, err
	}

	result := commandResult(operation)
	return &result, nil
}

// Shutdown stops background work and closes the link
func (s *ServoService) Shutdown(ctx context.Context) error {
	s.StopWatch()
	s.baseCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for background tasks")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.controller.Close(); err != nil {
		return fmt.Errorf("failed to close controller: %w", err)
	}
	s.setConnected(false)
	return nil
}

func (s *ServoService) replyOptions(waitReply bool) []lsc.CallOption {
	if waitReply {
		return []lsc.CallOption{lsc.WithReply()}
	}
	return nil
}

func (s *ServoService) setConnected(connected bool) {
	if s.metrics != nil {
		s.metrics.SetConnected(connected)
	}
}

func (s *ServoService) publish(eventType model.EventType, severity string, data model.JSONObject) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(model.NewControllerEvent(eventType, severity, data))
}
