package lsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommandPacket(t *testing.T) {
	tests := []struct {
		name   string
		cmd    byte
		params []byte
		want   []byte
	}{
		{"no params", CmdGetBatteryVoltage, nil, []byte{0x55, 0x55, 0x02, 0x0F}},
		{"stop", CmdActionGroupStop, []byte{}, []byte{0x55, 0x55, 0x02, 0x07}},
		{"run group", CmdActionGroupRun, []byte{0x01, 0x05, 0x00}, []byte{0x55, 0x55, 0x05, 0x06, 0x01, 0x05, 0x00}},
		{"unload", CmdMultServoUnload, []byte{0x02, 0x01, 0x02}, []byte{0x55, 0x55, 0x05, 0x14, 0x02, 0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet, err := BuildCommandPacket(tt.cmd, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, packet)
		})
	}
}

func TestBuildCommandPacketShape(t *testing.T) {
	for n := 0; n <= MaxParams; n++ {
		params := make([]byte, n)
		for i := range params {
			params[i] = byte(i * 7)
		}
		for _, cmd := range []byte{CmdServoMove, CmdMultServoPosRead, 0xFF} {
			packet, err := BuildCommandPacket(cmd, params)
			require.NoError(t, err)
			assert.Len(t, packet, n+4)
			assert.Equal(t, []byte{0x55, 0x55}, packet[:2])
			assert.Equal(t, byte(n+2), packet[2])
			assert.Equal(t, cmd, packet[3])
			assert.Equal(t, params, packet[4:])
		}
	}
}

func TestBuildCommandPacketTooLong(t *testing.T) {
	for _, n := range []int{MaxParams + 1, 254, 300} {
		packet, err := BuildCommandPacket(CmdServoMove, make([]byte, n))
		assert.ErrorIs(t, err, ErrFrameTooLong)
		assert.Nil(t, packet)
	}
}

func TestServoLimitsFitReport(t *testing.T) {
	assert.Equal(t, 19, MaxMoveServos)
	assert.Equal(t, 19, MaxReadServos)
	assert.Equal(t, 59, MaxUnloadServos)

	servos := make([]ServoPosition, MaxMoveServos)
	assert.LessOrEqual(t, frameOverhead+len(encodeServoMove(servos, 0)), ReportSize)
	assert.LessOrEqual(t, frameOverhead+len(encodeServoIDs(make([]uint8, MaxUnloadServos))), ReportSize)
	assert.LessOrEqual(t, positionsOffset+MaxReadServos*positionGroupLen, ReportSize)
}

func TestValidateResponseHeader(t *testing.T) {
	assert.False(t, ValidateResponseHeader(nil))
	assert.False(t, ValidateResponseHeader([]byte{0x55}))
	assert.False(t, ValidateResponseHeader([]byte{0x55, 0x54, 0x04, 0x0F}))
	assert.False(t, ValidateResponseHeader([]byte{0xAA, 0x55}))
	assert.True(t, ValidateResponseHeader([]byte{0x55, 0x55}))
	assert.True(t, ValidateResponseHeader([]byte{0x55, 0x55, 0x02, 0x07}))
}

func TestTrimReport(t *testing.T) {
	frame := []byte{0x55, 0x55, 0x04, 0x0F, 0xE8, 0x13}
	assert.Equal(t, frame, trimReport(padReport(frame)))
	assert.Equal(t, frame, trimReport(frame))

	short := []byte{0x55, 0x55, 0x0C, 0x15, 0x03, 0x01, 0x00, 0x00}
	assert.Equal(t, short, trimReport(short))

	bogus := []byte{0x55, 0x55, 0x00, 0x0F, 0x01}
	assert.Equal(t, bogus, trimReport(bogus))

	understated := []byte{0x55, 0x55, 0x08, 0x15, 0x02, 0x01, 0x00, 0x00, 0x02, 0xF4, 0x01}
	assert.Equal(t, understated, trimReport(understated))
	assert.Equal(t, understated, trimReport(padReport(understated))[:len(understated)])
}

func TestEncodeServoMove(t *testing.T) {
	params := encodeServoMove([]ServoPosition{{ID: 1, Position: 500}, {ID: 2, Position: 1000}}, 1000)
	assert.Equal(t, []byte{0x02, 0xE8, 0x03, 0x01, 0xF4, 0x01, 0x02, 0xE8, 0x03}, params)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "SERVO_MOVE", CommandName(CmdServoMove))
	assert.Equal(t, "ACTION_GROUP_STOP", CommandName(CmdActionGroupStopped))
	assert.Equal(t, "UNKNOWN", CommandName(0xEE))
}
