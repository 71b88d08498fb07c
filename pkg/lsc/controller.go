// pkg/lsc/controller.go
package lsc

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Transport moves raw bytes to and from one controller board.
type Transport interface {
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context, maxBytes int) ([]byte, error)
}

// Controller speaks the LSC protocol over a Transport it exclusively owns.
type Controller struct {
	transport   Transport
	logger      *zap.Logger
	observer    Observer
	readTimeout time.Duration
	reportSize  int
}

// NewController creates a controller bound to transport. It does not connect.
func NewController(transport Transport, opts ...Option) *Controller {
	c := &Controller{
		transport:   transport,
		logger:      zap.NewNop(),
		observer:    nopObserver{},
		readTimeout: DefaultReadTimeout,
		reportSize:  ReportSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the transport
func (c *Controller) Connect(ctx context.Context) error {
	if c.transport.IsOpen() {
		return nil
	}
	if err := c.transport.Open(ctx); err != nil {
		c.logger.Error("Controller connection failed", zap.Error(err))
		return fmt.Errorf("connect: %w", err)
	}
	c.logger.Info("Controller connection established")
	return nil
}

// Disconnect closes the transport
func (c *Controller) Disconnect() error {
	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	c.logger.Info("Controller connection closed")
	return nil
}

// Close releases the transport, disconnecting first when needed.
func (c *Controller) Close() error {
	if !c.transport.IsOpen() {
		return nil
	}
	return c.Disconnect()
}

// IsConnected reports the transport state
func (c *Controller) IsConnected() bool {
	return c.transport.IsOpen()
}

// ReadTimeout returns the default receive timeout
func (c *Controller) ReadTimeout() time.Duration {
	return c.readTimeout
}

// SendCommand frames and writes one command.
func (c *Controller) SendCommand(ctx context.Context, cmd byte, params []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	packet, err := BuildCommandPacket(cmd, params)
	if err != nil {
		c.logger.Warn("Command rejected",
			zap.String("command", CommandName(cmd)),
			zap.Error(err),
		)
		return err
	}

	err = c.transport.Write(ctx, packet)
	c.observer.CommandSent(cmd, err)
	if err != nil {
		c.logger.Error("Failed to send command",
			zap.String("command", CommandName(cmd)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %v", ErrSendFailure, CommandName(cmd), err)
	}

	c.logger.Debug("Command sent",
		zap.String("command", CommandName(cmd)),
		zap.Binary("packet", packet),
	)
	return nil
}

// ReceiveResponse reads one frame within timeout and checks its header.
// Report padding past the declared length is removed.
func (c *Controller) ReceiveResponse(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if timeout <= 0 {
		timeout = c.readTimeout
	}

	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	frame, err := c.transport.Read(readCtx, c.reportSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReceiveFailure, err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty read", ErrReceiveFailure)
	}
	if len(frame) < 2 {
		return nil, fmt.Errorf("%w: response too short (%d bytes)", ErrReceiveFailure, len(frame))
	}
	if !ValidateResponseHeader(frame) {
		return nil, malformed(0, frame, "invalid header")
	}

	return trimReport(frame), nil
}

// exchange sends cmd and, when wait is set, reads back one frame whose command
// byte must match.
func (c *Controller) exchange(ctx context.Context, cmd byte, params []byte, cc callConfig, wait bool) ([]byte, error) {
	if err := c.SendCommand(ctx, cmd, params); err != nil {
		return nil, err
	}
	if !wait {
		return nil, nil
	}

	start := time.Now()
	frame, err := c.ReceiveResponse(ctx, cc.timeout)
	if err == nil {
		err = expectCommand(cmd, frame)
	}
	c.observer.ResponseReceived(cmd, time.Since(start), err)
	if err != nil {
		c.logger.Warn("Invalid response",
			zap.String("command", CommandName(cmd)),
			zap.Error(err),
		)
		return nil, err
	}
	return frame, nil
}

func expectCommand(cmd byte, frame []byte) error {
	if len(frame) < frameOverhead {
		return malformed(cmd, frame, "frame shorter than %d bytes", frameOverhead)
	}
	if frame[3] != cmd {
		return malformed(cmd, frame, "unexpected command byte 0x%02X", frame[3])
	}
	return nil
}

// MoveServos moves each servo to its position over timeMs milliseconds.
func (c *Controller) MoveServos(ctx context.Context, servos []ServoPosition, timeMs uint16, opts ...CallOption) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(servos) == 0 {
		return ErrNoServos
	}

	cc := c.callConfig(opts)
	_, err := c.exchange(ctx, CmdServoMove, encodeServoMove(servos, timeMs), cc, cc.waitReply)
	return err
}

// MoveServosRadians is MoveServos with angles in radians.
func (c *Controller) MoveServosRadians(ctx context.Context, servos []ServoAngle, timeMs uint16, opts ...CallOption) error {
	positions := make([]ServoPosition, len(servos))
	for i, s := range servos {
		positions[i] = ServoPosition{ID: s.ID, Position: RadiansToPosition(s.Radians)}
	}
	return c.MoveServos(ctx, positions, timeMs, opts...)
}

// GetBatteryVoltage returns the supply voltage in millivolts.
func (c *Controller) GetBatteryVoltage(ctx context.Context, opts ...CallOption) (uint16, error) {
	if !c.IsConnected() {
		return 0, ErrNotConnected
	}

	frame, err := c.exchange(ctx, CmdGetBatteryVoltage, nil, c.callConfig(opts), true)
	if err != nil {
		return 0, err
	}
	if len(frame) != batteryFrameLen || frame[2] != 0x04 {
		return 0, malformed(CmdGetBatteryVoltage, frame, "want %d byte frame with length 0x04", batteryFrameLen)
	}

	millivolts := getUint16(frame[4:])
	c.logger.Debug("Battery voltage", zap.Uint16("millivolts", millivolts))
	return millivolts, nil
}

// PowerOffServos unloads the given servos.
func (c *Controller) PowerOffServos(ctx context.Context, ids []uint8, opts ...CallOption) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(ids) == 0 {
		return ErrNoServos
	}

	cc := c.callConfig(opts)
	_, err := c.exchange(ctx, CmdMultServoUnload, encodeServoIDs(ids), cc, cc.waitReply)
	return err
}

// ReadServoPositions returns the board position of each servo that was reported.
func (c *Controller) ReadServoPositions(ctx context.Context, ids []uint8, opts ...CallOption) (map[uint8]uint16, error) {
	report, err := c.ReadServoPositionReport(ctx, ids, opts...)
	if err != nil {
		return nil, err
	}
	return report.Positions, nil
}

// ReadServoAngles returns servo angles in radians.
func (c *Controller) ReadServoAngles(ctx context.Context, ids []uint8, opts ...CallOption) (map[uint8]float64, error) {
	positions, err := c.ReadServoPositions(ctx, ids, opts...)
	if err != nil {
		return nil, err
	}

	angles := make(map[uint8]float64, len(positions))
	for id, pos := range positions {
		angles[id] = PositionToRadians(pos)
	}
	return angles, nil
}

// ReadServoPositionReport reads positions and keeps the decode details.
// A frame that ends early is not an error: the groups read so far are returned
// with Partial set.
func (c *Controller) ReadServoPositionReport(ctx context.Context, ids []uint8, opts ...CallOption) (PositionReport, error) {
	if !c.IsConnected() {
		return PositionReport{}, ErrNotConnected
	}
	if len(ids) == 0 {
		return PositionReport{}, ErrNoServos
	}

	frame, err := c.exchange(ctx, CmdMultServoPosRead, encodeServoIDs(ids), c.callConfig(opts), true)
	if err != nil {
		return PositionReport{}, err
	}
	if len(frame) < positionsOffset {
		return PositionReport{}, malformed(CmdMultServoPosRead, frame, "missing servo count")
	}

	report := decodePositions(frame)
	report.Requested = len(ids)

	if report.Declared != len(ids) {
		c.logger.Warn("Servo count in response does not match request",
			zap.Int("requested", len(ids)),
			zap.Int("reported", report.Declared),
		)
	}
	if report.Partial {
		c.observer.PartialRead(CmdMultServoPosRead, len(report.Positions), report.Declared)
		c.logger.Warn("Incomplete position data",
			zap.Int("parsed", len(report.Positions)),
			zap.Int("declared", report.Declared),
		)
	}
	return report, nil
}

func decodePositions(frame []byte) PositionReport {
	report := PositionReport{
		Positions: make(map[uint8]uint16),
		Declared:  int(frame[4]),
	}

	index := positionsOffset
	for i := 0; i < report.Declared; i++ {
		if index+positionGroupLen > len(frame) {
			report.Partial = true
			break
		}
		report.Positions[frame[index]] = getUint16(frame[index+1:])
		index += positionGroupLen
	}
	return report
}

// RunActionGroup starts a stored action group. Zero repetitions loops forever.
// The board answers with a running notification, read by the poll methods.
func (c *Controller) RunActionGroup(ctx context.Context, group uint8, repetitions uint16) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.SendCommand(ctx, CmdActionGroupRun, encodeGroupValue(group, repetitions))
}

// StopActionGroup stops the running action group.
func (c *Controller) StopActionGroup(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.SendCommand(ctx, CmdActionGroupStop, nil)
}

// SetActionGroupSpeed sets the playback speed of an action group.
func (c *Controller) SetActionGroupSpeed(ctx context.Context, group uint8, speed uint16, opts ...CallOption) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	cc := c.callConfig(opts)
	_, err := c.exchange(ctx, CmdActionGroupSpeed, encodeGroupValue(group, speed), cc, cc.waitReply)
	return err
}
