// pkg/lsc/angle.go
package lsc

import "math"

// The board maps 0..1000 onto a 240 degree mechanical range. The mapping is
// offset by π/2 on the way in only, so 0 rad does not land on 500.
const (
	positionScale = 1000.0 * 180.0
	rangeScale    = 240.0 * math.Pi
)

// RadiansToPosition converts a joint angle to the board's position scale,
// truncating toward zero. Out of range angles are not clamped.
func RadiansToPosition(rad float64) uint16 {
	return uint16(math.Trunc((rad + math.Pi/2) * positionScale / rangeScale))
}

// PositionToRadians converts a board position to radians.
func PositionToRadians(pos uint16) float64 {
	return float64(pos) * rangeScale / positionScale
}

// PositionResolution is the angle covered by one position unit.
func PositionResolution() float64 {
	return rangeScale / positionScale
}
