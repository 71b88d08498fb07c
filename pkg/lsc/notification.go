// pkg/lsc/notification.go
package lsc

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ClassifyNotification decodes a pushed frame by command byte and length only.
func ClassifyNotification(frame []byte) (Notification, error) {
	if !ValidateResponseHeader(frame) {
		return Notification{}, malformed(0, frame, "invalid header")
	}
	if len(frame) < frameOverhead {
		return Notification{}, malformed(0, frame, "frame shorter than %d bytes", frameOverhead)
	}

	n := Notification{Kind: NotificationUnknown, Command: frame[3], Frame: frame}
	switch frame[3] {
	case CmdActionGroupRun, CmdActionGroupComplete:
		if len(frame) < notifyFrameLen {
			return Notification{}, malformed(frame[3], frame, "want at least %d bytes", notifyFrameLen)
		}
		n.Status = &ActionGroupStatus{
			GroupID:     frame[4],
			Repetitions: getUint16(frame[5:]),
		}
		n.Kind = NotificationRunning
		if frame[3] == CmdActionGroupComplete {
			n.Kind = NotificationComplete
		}
	case CmdActionGroupStopped:
		if len(frame) == stoppedFrameLen {
			n.Kind = NotificationStopped
		}
	}
	return n, nil
}

// PollNotification blocks for one frame and classifies it. It never writes.
func (c *Controller) PollNotification(ctx context.Context, opts ...CallOption) (Notification, error) {
	if !c.IsConnected() {
		return Notification{}, ErrNotConnected
	}

	cc := c.callConfig(opts)
	start := time.Now()
	frame, err := c.ReceiveResponse(ctx, cc.timeout)
	var n Notification
	if err == nil {
		n, err = ClassifyNotification(frame)
	}
	var cmd byte
	if err == nil {
		cmd = n.Command
	}
	c.observer.ResponseReceived(cmd, time.Since(start), err)
	if err != nil {
		return Notification{}, err
	}

	c.logger.Debug("Notification received",
		zap.String("kind", string(n.Kind)),
		zap.String("command", CommandName(n.Command)),
	)
	return n, nil
}

// IsActionGroupRunning reads one frame and reports whether it is a running notification.
func (c *Controller) IsActionGroupRunning(ctx context.Context, opts ...CallOption) (ActionGroupStatus, bool, error) {
	return c.pollStatus(ctx, NotificationRunning, opts)
}

// IsActionGroupComplete reads one frame and reports whether it is a complete notification.
func (c *Controller) IsActionGroupComplete(ctx context.Context, opts ...CallOption) (ActionGroupStatus, bool, error) {
	return c.pollStatus(ctx, NotificationComplete, opts)
}

// IsActionGroupStopped reads one frame and reports whether it is a stopped notification.
func (c *Controller) IsActionGroupStopped(ctx context.Context, opts ...CallOption) (bool, error) {
	n, err := c.PollNotification(ctx, opts...)
	if err != nil {
		return false, err
	}
	return n.Kind == NotificationStopped, nil
}

func (c *Controller) pollStatus(ctx context.Context, kind NotificationKind, opts []CallOption) (ActionGroupStatus, bool, error) {
	n, err := c.PollNotification(ctx, opts...)
	if err != nil {
		return ActionGroupStatus{}, false, err
	}
	if n.Kind != kind || n.Status == nil {
		return ActionGroupStatus{}, false, nil
	}
	return *n.Status, true, nil
}
