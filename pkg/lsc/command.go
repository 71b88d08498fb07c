// pkg/lsc/command.go
package lsc

import "time"

// Frame header bytes
const (
	HeaderByte0 byte = 0x55
	HeaderByte1 byte = 0x55
)

// Command bytes understood by the board
const (
	CmdServoMove           byte = 0x03
	CmdActionGroupRun      byte = 0x06
	CmdActionGroupStop     byte = 0x07
	CmdActionGroupComplete byte = 0x08
	CmdActionGroupSpeed    byte = 0x0B
	CmdGetBatteryVoltage   byte = 0x0F
	CmdMultServoUnload     byte = 0x14
	CmdMultServoPosRead    byte = 0x15
)

// CmdActionGroupStopped shares its byte with CmdActionGroupStop. The board
// sends it as a bare 4 byte frame.
const CmdActionGroupStopped = CmdActionGroupStop

// USB identifiers of the controller board
const (
	VendorID  uint16 = 0x0483
	ProductID uint16 = 0x5750
)

const (
	// ReportSize is the size of one HID input report
	ReportSize = 64

	// DefaultReadTimeout bounds a single receive
	DefaultReadTimeout = 500 * time.Millisecond

	// frameOverhead is header + length + command
	frameOverhead = 4

	// MaxParams is the most parameter bytes a length byte can describe
	MaxParams = 0xFF - 2

	batteryFrameLen  = 6
	notifyFrameLen   = 7
	stoppedFrameLen  = 4
	positionGroupLen = 3
	positionsOffset  = 5
)

// Per-request servo limits that keep both the command and its reply inside
// one HID report.
const (
	MaxMoveServos   = (ReportSize - frameOverhead - 3) / positionGroupLen
	MaxReadServos   = (ReportSize - positionsOffset) / positionGroupLen
	MaxUnloadServos = ReportSize - frameOverhead - 1
)

var commandNames = map[byte]string{
	CmdServoMove:           "SERVO_MOVE",
	CmdActionGroupRun:      "ACTION_GROUP_RUN",
	CmdActionGroupStop:     "ACTION_GROUP_STOP",
	CmdActionGroupComplete: "ACTION_GROUP_COMPLETE",
	CmdActionGroupSpeed:    "ACTION_GROUP_SPEED",
	CmdGetBatteryVoltage:   "GET_BATTERY_VOLTAGE",
	CmdMultServoUnload:     "MULT_SERVO_UNLOAD",
	CmdMultServoPosRead:    "MULT_SERVO_POS_READ",
}

// CommandName returns a printable name for a command byte
func CommandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return "UNKNOWN"
}
