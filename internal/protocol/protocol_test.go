package protocol

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"servo-service/internal/config"
	"servo-service/pkg/lsc"
)

func TestCreateConnection(t *testing.T) {
	logger := zap.NewNop()

	usb, err := CreateConnection(&config.ControllerConfig{
		Transport:  config.TransportUSB,
		ReportSize: 64,
		USB:        config.USBPortConfig{VendorID: "0x0483", ProductID: "5750", InEndpoint: 1, OutEndpoint: 1},
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "usb", usb.Kind())
	assert.False(t, usb.IsOpen())

	serial, err := CreateConnection(&config.ControllerConfig{
		Transport: config.TransportSerial,
		Serial:    config.SerialPortConfig{Port: "/dev/ttyUSB0", BaudRate: 115200},
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "serial", serial.Kind())

	tcp, err := CreateConnection(&config.ControllerConfig{
		Transport: config.TransportTCP,
		TCP:       config.TCPPortConfig{Host: "127.0.0.1", Port: 4001},
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "tcp", tcp.Kind())
}

func TestCreateConnectionInvalid(t *testing.T) {
	tests := map[string]*config.ControllerConfig{
		"unknown":      {Transport: "bluetooth"},
		"bad vid":      {Transport: config.TransportUSB, USB: config.USBPortConfig{VendorID: "zz", ProductID: "0x5750"}},
		"no port":      {Transport: config.TransportSerial},
		"bad baud":     {Transport: config.TransportSerial, Serial: config.SerialPortConfig{Port: "/dev/ttyS0", BaudRate: 1234}},
		"bad parity":   {Transport: config.TransportSerial, Serial: config.SerialPortConfig{Port: "/dev/ttyS0", Parity: "mark"}},
		"no host":      {Transport: config.TransportTCP, TCP: config.TCPPortConfig{Port: 4001}},
		"bad tcp port": {Transport: config.TransportTCP, TCP: config.TCPPortConfig{Host: "localhost", Port: 70000}},
	}

	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := CreateConnection(cfg, zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestParseHexID(t *testing.T) {
	id, err := parseHexID("0x0483")
	require.NoError(t, err)
	assert.EqualValues(t, 0x0483, id)

	id, err = parseHexID("5750")
	require.NoError(t, err)
	assert.EqualValues(t, 0x5750, id)

	_, err = parseHexID("0x10000")
	assert.Error(t, err)
}

func TestPadReport(t *testing.T) {
	report, err := padReport([]byte{0x55, 0x55, 0x02, 0x07}, 64)
	require.NoError(t, err)
	assert.Len(t, report, 64)
	assert.Equal(t, []byte{0x55, 0x55, 0x02, 0x07, 0x00}, report[:5])

	full, err := padReport(make([]byte, 64), 64)
	require.NoError(t, err)
	assert.Len(t, full, 64)

	_, err = padReport(make([]byte, 70), 64)
	assert.Error(t, err)
}

// chunkReader hands out scripted chunks, then reports idle lines as zero reads
type chunkReader struct {
	chunks [][]byte
	waits  []time.Duration
}

func (r *chunkReader) setTimeout(d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func (r *chunkReader) read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestReadBurst(t *testing.T) {
	r := &chunkReader{chunks: [][]byte{{0x55, 0x55}, {0x04, 0x0F, 0xE8, 0x13}}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	data, err := readBurst(ctx, 64, 5*time.Millisecond, r.setTimeout, r.read)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x55, 0x04, 0x0F, 0xE8, 0x13}, data)
	require.Len(t, r.waits, 3)
	assert.Greater(t, r.waits[0], 5*time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, r.waits[1])
}

func TestReadBurstTimeout(t *testing.T) {
	r := &chunkReader{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := readBurst(ctx, 64, 0, r.setTimeout, r.read)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestReadBurstStopsAtMax(t *testing.T) {
	r := &chunkReader{chunks: [][]byte{{1, 2, 3}, {4, 5, 6}}}
	data, err := readBurst(context.Background(), 4, 0, r.setTimeout, r.read)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

// TestTCPConnectionWithController drives the protocol engine against a fake board
// listening on a local socket.
func TestTCPConnectionWithController(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		received <- append([]byte(nil), buf[:n]...)
		_, _ = conn.Write([]byte{0x55, 0x55, 0x04, 0x0F, 0xE8, 0x13})
		<-done
	}()

	addr := ln.Addr().(*net.TCPAddr)
	conn := NewTCPConnection(&TCPConfig{
		Host:           "127.0.0.1",
		Port:           addr.Port,
		ConnectTimeout: time.Second,
		WriteTimeout:   time.Second,
	}, zap.NewNop())

	controller := lsc.NewController(conn, lsc.WithReadTimeout(2*time.Second))
	require.NoError(t, controller.Connect(context.Background()))
	defer controller.Close()

	millivolts, err := controller.GetBatteryVoltage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(5096), millivolts)
	assert.Equal(t, []byte{0x55, 0x55, 0x02, 0x0F}, <-received)

	stats := conn.Stats()
	assert.True(t, stats.IsConnected)
	assert.Equal(t, int64(4), stats.BytesWritten)
	assert.Equal(t, int64(6), stats.BytesRead)

	require.NoError(t, controller.Close())
	assert.False(t, conn.IsOpen())
	assert.False(t, conn.Stats().IsConnected)
}
