package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

type stubScanner struct {
	kind       string
	available  bool
	candidates []*Candidate
	err        error
}

func (s *stubScanner) Scan(ctx context.Context) ([]*Candidate, error) { return s.candidates, s.err }
func (s *stubScanner) GetScannerType() string                         { return s.kind }
func (s *stubScanner) IsAvailable() bool                              { return s.available }

func TestManager_ScanAllOrdersByConfidence(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.RegisterScanner(&stubScanner{kind: "serial", available: true, candidates: []*Candidate{
		{Transport: "serial", Port: "/dev/ttyS0", Confidence: 0.1},
		{Transport: "serial", Port: "/dev/ttyUSB0", Confidence: 0.5},
	}})
	m.RegisterScanner(&stubScanner{kind: "usb", available: true, candidates: []*Candidate{
		{Transport: "usb", VendorID: "0x0483", Confidence: 1.0},
	}})
	m.RegisterScanner(&stubScanner{kind: "broken", available: true, err: errors.New("boom")})
	m.RegisterScanner(&stubScanner{kind: "offline", available: false})

	all, err := m.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "usb", all[0].Transport)
	assert.Equal(t, "/dev/ttyUSB0", all[1].Port)

	assert.Equal(t, []string{"broken", "serial", "usb"}, m.GetAvailableScanners())
}

func TestManager_ScanByType(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.RegisterScanner(&stubScanner{kind: "offline", available: false})

	_, err := m.ScanByType(context.Background(), "usb")
	assert.ErrorIs(t, err, ErrScannerUnavailable)
	_, err = m.ScanByType(context.Background(), "offline")
	assert.ErrorIs(t, err, ErrScannerUnavailable)
}

func TestUSBCandidate(t *testing.T) {
	c := usbCandidate(0x0483, 0x5750, gousb.ClassHID, 1, 7, 0x0483, 0x5750)
	require.NotNil(t, c)
	assert.Equal(t, 1.0, c.Confidence)
	assert.Equal(t, "0x0483", c.VendorID)
	assert.Equal(t, "0x5750", c.ProductID)
	assert.Equal(t, "bus 1 address 7", c.Location)

	c = usbCandidate(0x0483, 0x1234, gousb.ClassHID, 1, 8, 0x0483, 0x5750)
	require.NotNil(t, c)
	assert.Equal(t, 0.3, c.Confidence)

	assert.Nil(t, usbCandidate(0x046D, 0xC52B, gousb.ClassHID, 1, 9, 0x0483, 0x5750))
}

func TestSerialScanner_Classify(t *testing.T) {
	s := NewSerialScanner(0x0483, 0x5750, zap.NewNop())
	s.list = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1a86", PID: "7523", Product: "USB Serial"},
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "0483", PID: "5750", SerialNumber: "LSC01"},
		}, nil
	}

	candidates, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, 0.1, candidates[0].Confidence)
	assert.Empty(t, candidates[0].VendorID)

	assert.Equal(t, 0.5, candidates[1].Confidence)
	assert.Equal(t, "0x1A86", candidates[1].VendorID)

	assert.Equal(t, 1.0, candidates[2].Confidence)
	assert.Equal(t, "LSC01", candidates[2].SerialNumber)
}

func TestSerialScanner_ListError(t *testing.T) {
	s := NewSerialScanner(0x0483, 0x5750, zap.NewNop())
	s.list = func() ([]*enumerator.PortDetails, error) { return nil, errors.New("denied") }

	_, err := s.Scan(context.Background())
	assert.Error(t, err)
}
