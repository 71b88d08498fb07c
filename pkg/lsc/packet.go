// pkg/lsc/packet.go
package lsc

import (
	"encoding/binary"
	"fmt"
)

// BuildCommandPacket frames a command for the wire. The length byte is always
// present, even for commands without parameters. Parameter lists the length
// byte cannot describe are rejected with ErrFrameTooLong.
func BuildCommandPacket(cmd byte, params []byte) ([]byte, error) {
	if len(params) > MaxParams {
		return nil, fmt.Errorf("%w: %s has %d parameter bytes, limit %d",
			ErrFrameTooLong, CommandName(cmd), len(params), MaxParams)
	}
	packet := make([]byte, 0, len(params)+frameOverhead)
	packet = append(packet, HeaderByte0, HeaderByte1)
	packet = append(packet, byte(len(params)+2))
	packet = append(packet, cmd)
	packet = append(packet, params...)
	return packet, nil
}

// ValidateResponseHeader reports whether frame starts with the fixed header.
func ValidateResponseHeader(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	return frame[0] == HeaderByte0 && frame[1] == HeaderByte1
}

// trimReport drops HID report padding past the declared frame length.
// Frames shorter than declared are left alone so callers can decode what
// arrived, and so are frames with non-zero bytes past the declared length.
func trimReport(frame []byte) []byte {
	if len(frame) < 3 {
		return frame
	}
	declared := int(frame[2]) + 2
	if declared < frameOverhead || declared >= len(frame) {
		return frame
	}
	for _, b := range frame[declared:] {
		if b != 0 {
			return frame
		}
	}
	return frame[:declared]
}

func putUint16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

func getUint16(src []byte) uint16 {
	return binary.LittleEndian.Uint16(src)
}

func encodeServoMove(servos []ServoPosition, timeMs uint16) []byte {
	params := make([]byte, 0, 3+len(servos)*positionGroupLen)
	params = append(params, byte(len(servos)))
	params = putUint16(params, timeMs)
	for _, s := range servos {
		params = append(params, s.ID)
		params = putUint16(params, s.Position)
	}
	return params
}

func encodeServoIDs(ids []uint8) []byte {
	params := make([]byte, 0, 1+len(ids))
	params = append(params, byte(len(ids)))
	return append(params, ids...)
}

func encodeGroupValue(group uint8, value uint16) []byte {
	return putUint16([]byte{group}, value)
}
