// internal/service/action_group.go
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"servo-service/internal/model"
	"servo-service/pkg/lsc"
)

const (
	defaultPollInterval = 200 * time.Millisecond
	pollTimeoutMax      = 30 * time.Second
)

// actionGroupWatch tracks the background notification loop
type actionGroupWatch struct {
	group  uint8
	cancel context.CancelFunc
	done   chan struct{}
}

// RunActionGroup starts a stored action group. Zero repetitions loops
// forever. With Watch set, the board's notifications are followed in the
// background and published as events.
func (s *ServoService) RunActionGroup(ctx context.Context, req *RunActionGroupRequest) (*CommandResult, error) {
	operation, err := s.execute(ctx, model.OperationTypeRunActionGroup, model.ToJSONObject(model.ActionGroupOperationData{
		GroupID:     req.GroupID,
		Repetitions: req.Repetitions,
		Watch:       req.Watch,
	}), func(ctx context.Context) (model.JSONObject, error) {
		return nil, s.controller.RunActionGroup(ctx, req.GroupID, req.Repetitions)
	})
	if err != nil {
		return nil, err
	}

	if req.Watch {
		if err := s.WatchActionGroup(req.GroupID); err != nil {
			s.logger.Warn("Failed to start action group watch",
				zap.Uint8("group_id", req.GroupID),
				zap.Error(err),
			)
		}
	}

	result := commandResult(operation)
	return &result, nil
}

// StopActionGroup stops the running action group. A running watch ends on
// the board's stopped notification.
func (s *ServoService) StopActionGroup(ctx context.Context) (*CommandResult, error) {
	operation, err := s.execute(ctx, model.OperationTypeStopActionGroup, nil, func(ctx context.Context) (model.JSONObject, error) {
		return nil, s.controller.StopActionGroup(ctx)
	})
	if err != nil {
		return nil, err
	}

	result := commandResult(operation)
	return &result, nil
}

// SetActionGroupSpeed sets the playback speed of an action group
func (s *ServoService) SetActionGroupSpeed(ctx context.Context, req *SpeedRequest) (*CommandResult, error) {
	opts := s.replyOptions(req.WaitReply)
	operation, err := s.execute(ctx, model.OperationTypeSetActionGroupSpeed, model.ToJSONObject(model.ActionGroupOperationData{
		GroupID: req.GroupID,
		Speed:   req.Speed,
	}), func(ctx context.Context) (model.JSONObject, error) {
		return nil, s.controller.SetActionGroupSpeed(ctx, req.GroupID, req.Speed, opts...)
	})
	if err != nil {
		return nil, err
	}

	result := commandResult(operation)
	return &result, nil
}

// PollNotification waits up to timeout for one frame pushed by the board
func (s *ServoService) PollNotification(ctx context.Context, timeout time.Duration) (*NotificationResult, error) {
	if timeout > pollTimeoutMax {
		timeout = pollTimeoutMax
	}
	if s.watching() {
		return nil, ErrWatchActive
	}

	var notification lsc.Notification
	data := model.JSONObject{"timeout_ms": timeout.Milliseconds()}
	operation, err := s.execute(ctx, model.OperationTypePollNotification, data, func(ctx context.Context) (model.JSONObject, error) {
		var err error
		notification, err = s.controller.PollNotification(ctx, lsc.WithTimeout(timeout))
		if err != nil {
			return nil, err
		}
		return model.ToJSONObject(notification), nil
	})
	if err != nil {
		return nil, err
	}

	s.publishNotification(notification)
	return &NotificationResult{
		CommandResult: commandResult(operation),
		Notification:  notification,
	}, nil
}

// WatchActionGroup follows notifications for group in the background until
// the group completes or stops, the watch timeout passes, or StopWatch is
// called. A watch for another group is replaced.
func (s *ServoService) WatchActionGroup(group uint8) error {
	if !s.controller.IsConnected() {
		return lsc.ErrNotConnected
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.stopWatchLocked()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.config.WatchTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.baseCtx, s.config.WatchTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.baseCtx)
	}
	w := &actionGroupWatch{group: group, cancel: cancel, done: make(chan struct{})}

	s.stateMu.Lock()
	s.watch = w
	s.stateMu.Unlock()

	s.wg.Add(1)
	go s.runWatch(ctx, w)
	return nil
}

// StopWatch cancels the current watch and waits for it to exit
func (s *ServoService) StopWatch() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.stopWatchLocked()
}

func (s *ServoService) stopWatchLocked() {
	s.stateMu.Lock()
	w := s.watch
	s.watch = nil
	s.stateMu.Unlock()

	if w == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (s *ServoService) watching() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.watch != nil
}

func (s *ServoService) runWatch(ctx context.Context, w *actionGroupWatch) {
	defer s.wg.Done()
	defer close(w.done)
	defer w.cancel()

	interval := s.config.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	logger := s.logger.With(zap.Uint8("group_id", w.group))
	logger.Info("Action group watch started", zap.Duration("poll_interval", interval))

	reason := s.watchLoop(ctx, w.group, interval)

	s.stateMu.Lock()
	if s.watch == w {
		s.watch = nil
	}
	s.stateMu.Unlock()

	logger.Info("Action group watch ended", zap.String("reason", reason))
	s.publish(model.EventActionGroupWatchEnded, model.SeverityInfo, model.JSONObject{
		"group_id": w.group,
		"reason":   reason,
	})
}

// watchLoop polls until a terminal notification or ctx ends and returns why it stopped
func (s *ServoService) watchLoop(ctx context.Context, group uint8, interval time.Duration) string {
	for {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return "timeout"
			}
			return "cancelled"
		}

		s.mu.Lock()
		notification, err := s.controller.PollNotification(ctx, lsc.WithTimeout(interval))
		s.mu.Unlock()

		switch {
		case err == nil:
		case errors.Is(err, lsc.ErrNotConnected):
			return "disconnected"
		case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
			// Nothing arrived within the interval, or ctx ended
			continue
		case errors.Is(err, lsc.ErrReceiveFailure):
			s.logger.Warn("Controller read failed during watch",
				zap.Uint8("group_id", group),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
			continue
		default:
			s.logger.Warn("Discarding unreadable frame during watch", zap.Error(err))
			continue
		}

		s.publishNotification(notification)

		switch notification.Kind {
		case lsc.NotificationComplete:
			if notification.Status == nil || notification.Status.GroupID == group {
				return "complete"
			}
		case lsc.NotificationStopped:
			return "stopped"
		}
	}
}

func (s *ServoService) publishNotification(n lsc.Notification) {
	if s.metrics != nil {
		s.metrics.Notifications.WithLabelValues(string(n.Kind)).Inc()
	}

	var eventType model.EventType
	switch n.Kind {
	case lsc.NotificationRunning:
		eventType = model.EventActionGroupRunning
	case lsc.NotificationComplete:
		eventType = model.EventActionGroupComplete
	case lsc.NotificationStopped:
		eventType = model.EventActionGroupStopped
	default:
		s.logger.Debug("Unclassified frame from controller", zap.Binary("frame", n.Frame))
		return
	}

	data := model.JSONObject{"kind": string(n.Kind)}
	if n.Status != nil {
		data["group_id"] = n.Status.GroupID
		data["repetitions"] = n.Status.Repetitions
		s.ctrlLogger.LogNotification(string(n.Kind), n.Status.GroupID, n.Status.Repetitions)
	} else {
		s.ctrlLogger.LogNotification(string(n.Kind), 0, 0)
	}
	s.publish(eventType, model.SeverityInfo, data)
}
