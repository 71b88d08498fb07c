package lsc

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var badHeader = []byte{0x54, 0x55, 0x04, 0x0F, 0xE8, 0x13}

type recordingObserver struct {
	sent     int
	received int
	commands []byte
	partial  [][2]int
}

func (r *recordingObserver) CommandSent(byte, error) { r.sent++ }

func (r *recordingObserver) ResponseReceived(cmd byte, _ time.Duration, _ error) {
	r.received++
	r.commands = append(r.commands, cmd)
}

func (r *recordingObserver) PartialRead(_ byte, parsed, declared int) {
	r.partial = append(r.partial, [2]int{parsed, declared})
}

func TestControllerLifecycle(t *testing.T) {
	ft := newFakeTransport()
	ft.open = false
	c := NewController(ft)

	assert.False(t, c.IsConnected())
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Close())
}

func TestControllerConnectFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.open = false
	ft.openErr = errBus

	c := NewController(ft)
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, errBus)
	assert.False(t, c.IsConnected())
}

func TestOperationsRequireConnection(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport([]byte{0x55, 0x55, 0x04, 0x0F, 0xE8, 0x13})
	ft.open = false
	c := NewController(ft)

	calls := map[string]func() error{
		"move": func() error {
			return c.MoveServos(ctx, []ServoPosition{{ID: 1, Position: 500}}, 100)
		},
		"move radians": func() error {
			return c.MoveServosRadians(ctx, []ServoAngle{{ID: 1, Radians: 0}}, 100)
		},
		"battery": func() error {
			_, err := c.GetBatteryVoltage(ctx)
			return err
		},
		"power off": func() error {
			return c.PowerOffServos(ctx, []uint8{1})
		},
		"read positions": func() error {
			_, err := c.ReadServoPositions(ctx, []uint8{1})
			return err
		},
		"read angles": func() error {
			_, err := c.ReadServoAngles(ctx, []uint8{1})
			return err
		},
		"run group": func() error {
			return c.RunActionGroup(ctx, 1, 1)
		},
		"stop group": func() error {
			return c.StopActionGroup(ctx)
		},
		"group speed": func() error {
			return c.SetActionGroupSpeed(ctx, 1, 100)
		},
		"poll": func() error {
			_, err := c.PollNotification(ctx)
			return err
		},
		"running": func() error {
			_, _, err := c.IsActionGroupRunning(ctx)
			return err
		},
		"stopped": func() error {
			_, err := c.IsActionGroupStopped(ctx)
			return err
		},
		"complete": func() error {
			_, _, err := c.IsActionGroupComplete(ctx)
			return err
		},
		"send": func() error {
			return c.SendCommand(ctx, CmdServoMove, nil)
		},
		"receive": func() error {
			_, err := c.ReceiveResponse(ctx, 0)
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), ErrNotConnected)
			assert.False(t, ft.touched())
		})
	}
}

func TestMoveServos(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft)

	err := c.MoveServos(context.Background(), []ServoPosition{{ID: 1, Position: 0}, {ID: 6, Position: 1000}}, 500)
	require.NoError(t, err)

	require.Len(t, ft.written, 1)
	assert.Equal(t, []byte{
		0x55, 0x55, 0x0B, 0x03,
		0x02, 0xF4, 0x01,
		0x01, 0x00, 0x00,
		0x06, 0xE8, 0x03,
	}, ft.written[0])
	assert.Zero(t, ft.readCalls)
}

func TestMoveServosRadians(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft)

	require.NoError(t, c.MoveServosRadians(context.Background(), []ServoAngle{{ID: 3, Radians: -math.Pi / 2}}, 0))
	assert.Equal(t, []byte{0x55, 0x55, 0x08, 0x03, 0x01, 0x00, 0x00, 0x03, 0x00, 0x00}, ft.written[0])
}

func TestMoveServosWithReply(t *testing.T) {
	ft := newFakeTransport(padReport([]byte{0x55, 0x55, 0x02, 0x03}))
	c := NewController(ft)

	err := c.MoveServos(context.Background(), []ServoPosition{{ID: 1, Position: 10}}, 0, WithReply())
	require.NoError(t, err)
	assert.Equal(t, 1, ft.readCalls)

	ft.reads = [][]byte{{0x55, 0x55, 0x02, 0x14}}
	err = c.MoveServos(context.Background(), []ServoPosition{{ID: 1, Position: 10}}, 0, WithReply())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestEmptyServoLists(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	c := NewController(ft)

	assert.ErrorIs(t, c.MoveServos(ctx, nil, 100), ErrNoServos)
	assert.ErrorIs(t, c.PowerOffServos(ctx, nil), ErrNoServos)
	_, err := c.ReadServoPositions(ctx, []uint8{})
	assert.ErrorIs(t, err, ErrNoServos)
	assert.False(t, ft.touched())
}

func TestOversizeCommandsRejected(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	c := NewController(ft)

	err := c.MoveServos(ctx, make([]ServoPosition, 100), 0)
	assert.ErrorIs(t, err, ErrFrameTooLong)

	err = c.PowerOffServos(ctx, make([]uint8, 255))
	assert.ErrorIs(t, err, ErrFrameTooLong)

	_, err = c.ReadServoPositions(ctx, make([]uint8, MaxParams))
	assert.ErrorIs(t, err, ErrFrameTooLong)

	assert.False(t, ft.touched())

	require.NoError(t, c.PowerOffServos(ctx, make([]uint8, MaxParams-1)))
	require.Len(t, ft.written, 1)
	assert.Equal(t, byte(0xFF), ft.written[0][2])
	assert.Equal(t, byte(MaxParams-1), ft.written[0][4])
}

func TestSendFailureSkipsRead(t *testing.T) {
	ft := newFakeTransport([]byte{0x55, 0x55, 0x04, 0x0F, 0xE8, 0x13})
	ft.writeErr = errBus
	c := NewController(ft)

	_, err := c.GetBatteryVoltage(context.Background())
	assert.ErrorIs(t, err, ErrSendFailure)
	assert.Zero(t, ft.readCalls)
}

func TestGetBatteryVoltage(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		want    uint16
		wantErr error
	}{
		{"exact frame", []byte{0x55, 0x55, 0x04, 0x0F, 0xE8, 0x13}, 5096, nil},
		{"padded report", padReport([]byte{0x55, 0x55, 0x04, 0x0F, 0xE8, 0x13}), 5096, nil},
		{"wrong command", []byte{0x55, 0x55, 0x04, 0x15, 0xE8, 0x13}, 0, ErrMalformedResponse},
		{"wrong length byte", []byte{0x55, 0x55, 0x05, 0x0F, 0xE8, 0x13, 0x00}, 0, ErrMalformedResponse},
		{"truncated", []byte{0x55, 0x55, 0x04, 0x0F, 0xE8}, 0, ErrMalformedResponse},
		{"bad header", badHeader, 0, ErrMalformedResponse},
		{"one byte", []byte{0x55}, 0, ErrReceiveFailure},
		{"empty", []byte{}, 0, ErrReceiveFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeTransport(tt.frame)
			c := NewController(ft)

			got, err := c.GetBatteryVoltage(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, [][]byte{{0x55, 0x55, 0x02, 0x0F}}, ft.written)
		})
	}
}

func TestReceiveTimeout(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft, WithReadTimeout(time.Second))

	start := time.Now()
	_, err := c.GetBatteryVoltage(context.Background(), WithTimeout(20*time.Millisecond))
	assert.ErrorIs(t, err, ErrReceiveFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReceiveTransportError(t *testing.T) {
	ft := newFakeTransport()
	ft.readErr = errBus
	c := NewController(ft)

	_, err := c.ReceiveResponse(context.Background(), 0)
	assert.ErrorIs(t, err, ErrReceiveFailure)
}

func TestReadServoPositions(t *testing.T) {
	frame := []byte{
		0x55, 0x55, 0x0C, 0x15, 0x03,
		0x01, 0x00, 0x00,
		0x02, 0xF4, 0x01,
		0x03, 0xE8, 0x03,
	}
	ft := newFakeTransport(padReport(frame))
	c := NewController(ft)

	positions, err := c.ReadServoPositions(context.Background(), []uint8{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[uint8]uint16{1: 0, 2: 500, 3: 1000}, positions)
	assert.Equal(t, [][]byte{{0x55, 0x55, 0x06, 0x15, 0x03, 0x01, 0x02, 0x03}}, ft.written)

	ft.reads = [][]byte{frame}
	angles, err := c.ReadServoAngles(context.Background(), []uint8{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, angles, 3)
	assert.Equal(t, 0.0, angles[1])
	assert.InDelta(t, PositionToRadians(500), angles[2], 1e-12)
	assert.InDelta(t, PositionToRadians(1000), angles[3], 1e-12)
}

func TestReadServoPositionsPartial(t *testing.T) {
	frame := []byte{
		0x55, 0x55, 0x0C, 0x15, 0x03,
		0x01, 0x00, 0x00,
		0x02, 0xF4, 0x01,
	}
	obs := &recordingObserver{}
	ft := newFakeTransport(frame)
	c := NewController(ft, WithObserver(obs))

	report, err := c.ReadServoPositionReport(context.Background(), []uint8{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, report.Partial)
	assert.Equal(t, 3, report.Declared)
	assert.Equal(t, map[uint8]uint16{1: 0, 2: 500}, report.Positions)
	assert.Equal(t, [][2]int{{2, 3}}, obs.partial)

	ft.reads = [][]byte{append(append([]byte(nil), frame...), 0x03, 0xE8)}
	positions, err := c.ReadServoPositions(context.Background(), []uint8{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, positions, 2)
}

func TestReadServoPositionsUnderstatedLength(t *testing.T) {
	frame := []byte{0x55, 0x55, 0x08, 0x15, 0x02, 0x01, 0x00, 0x00, 0x02, 0xF4, 0x01}
	ft := newFakeTransport(padReport(frame))
	c := NewController(ft)

	report, err := c.ReadServoPositionReport(context.Background(), []uint8{1, 2})
	require.NoError(t, err)
	assert.False(t, report.Partial)
	assert.Equal(t, map[uint8]uint16{1: 0, 2: 500}, report.Positions)
}

func TestReadServoPositionsCountMismatch(t *testing.T) {
	frame := []byte{0x55, 0x55, 0x06, 0x15, 0x01, 0x02, 0xF4, 0x01}
	ft := newFakeTransport(frame)
	c := NewController(ft)

	report, err := c.ReadServoPositionReport(context.Background(), []uint8{1, 2})
	require.NoError(t, err)
	assert.False(t, report.Partial)
	assert.Equal(t, 1, report.Declared)
	assert.Equal(t, 2, report.Requested)
	assert.Equal(t, map[uint8]uint16{2: 500}, report.Positions)
}

func TestReadServoPositionsMalformed(t *testing.T) {
	tests := map[string][]byte{
		"bad header":    {0x54, 0x54, 0x06, 0x15, 0x01, 0x01, 0x00, 0x00},
		"wrong command": {0x55, 0x55, 0x06, 0x0F, 0x01, 0x01, 0x00, 0x00},
		"no count":      {0x55, 0x55, 0x02, 0x15},
	}

	for name, frame := range tests {
		t.Run(name, func(t *testing.T) {
			c := NewController(newFakeTransport(frame))
			_, err := c.ReadServoPositions(context.Background(), []uint8{1})
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestBadHeaderRejectedOnEveryPath(t *testing.T) {
	ctx := context.Background()
	calls := map[string]func(c *Controller) error{
		"battery": func(c *Controller) error {
			_, err := c.GetBatteryVoltage(ctx)
			return err
		},
		"positions": func(c *Controller) error {
			_, err := c.ReadServoPositions(ctx, []uint8{1})
			return err
		},
		"move reply": func(c *Controller) error {
			return c.MoveServos(ctx, []ServoPosition{{ID: 1}}, 0, WithReply())
		},
		"power off reply": func(c *Controller) error {
			return c.PowerOffServos(ctx, []uint8{1}, WithReply())
		},
		"speed reply": func(c *Controller) error {
			return c.SetActionGroupSpeed(ctx, 1, 50, WithReply())
		},
		"running": func(c *Controller) error {
			_, _, err := c.IsActionGroupRunning(ctx)
			return err
		},
		"stopped": func(c *Controller) error {
			_, err := c.IsActionGroupStopped(ctx)
			return err
		},
		"complete": func(c *Controller) error {
			_, _, err := c.IsActionGroupComplete(ctx)
			return err
		},
	}

	frames := [][]byte{
		{0x00, 0x55, 0x04, 0x0F, 0xE8, 0x13},
		{0x55, 0x00, 0x05, 0x08, 0x01, 0x01, 0x00},
		{0xAA, 0xAA, 0x02, 0x07},
	}

	for name, call := range calls {
		for _, frame := range frames {
			t.Run(name, func(t *testing.T) {
				c := NewController(newFakeTransport(frame))
				assert.ErrorIs(t, call(c), ErrMalformedResponse)
			})
		}
	}
}

func TestActionGroupCommands(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	c := NewController(ft)

	require.NoError(t, c.RunActionGroup(ctx, 2, 0x0102))
	require.NoError(t, c.StopActionGroup(ctx))
	require.NoError(t, c.SetActionGroupSpeed(ctx, 2, 150))

	assert.Equal(t, [][]byte{
		{0x55, 0x55, 0x05, 0x06, 0x02, 0x02, 0x01},
		{0x55, 0x55, 0x02, 0x07},
		{0x55, 0x55, 0x05, 0x0B, 0x02, 0x96, 0x00},
	}, ft.written)
	assert.Zero(t, ft.readCalls)
}

func TestPowerOffServos(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft)

	require.NoError(t, c.PowerOffServos(context.Background(), []uint8{1, 2, 3}))
	assert.Equal(t, [][]byte{{0x55, 0x55, 0x06, 0x14, 0x03, 0x01, 0x02, 0x03}}, ft.written)
	assert.Zero(t, ft.readCalls)
}
