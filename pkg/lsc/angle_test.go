package lsc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRadiansToPosition(t *testing.T) {
	tests := []struct {
		rad  float64
		want uint16
	}{
		{-math.Pi / 2, 0},
		{0, 375},
		{math.Pi / 2, 750},
		{-math.Pi/2 + 4*math.Pi/3, 1000},
	}

	for _, tt := range tests {
		got := RadiansToPosition(tt.rad)
		assert.InDelta(t, tt.want, got, 1, "rad=%v", tt.rad)
	}
}

func TestRadiansToPositionTruncates(t *testing.T) {
	step := PositionResolution()
	rad := -math.Pi/2 + 10.9*step
	assert.Equal(t, uint16(10), RadiansToPosition(rad))
}

func TestPositionToRadians(t *testing.T) {
	assert.Equal(t, 0.0, PositionToRadians(0))
	assert.InDelta(t, 4*math.Pi/3, PositionToRadians(1000), 1e-12)
	assert.InDelta(t, 2*math.Pi/3, PositionToRadians(500), 1e-12)
}

func TestAngleRoundTrip(t *testing.T) {
	step := PositionResolution()
	for pos := 0; pos <= 1000; pos++ {
		// the forward map carries a π/2 offset the inverse does not remove
		rad := PositionToRadians(uint16(pos)) - math.Pi/2
		back := PositionToRadians(RadiansToPosition(rad)) - math.Pi/2
		assert.InDelta(t, rad, back, step*1.001, "pos=%d", pos)
	}
}
