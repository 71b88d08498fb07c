// internal/protocol/tcp_connection.go
package protocol

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TCPConnection reaches the board through a serial-to-TCP bridge (ser2net and similar)
type TCPConnection struct {
	config *TCPConfig
	conn   net.Conn
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  statsRecorder
}

// NewTCPConnection creates a new TCP connection
func NewTCPConnection(config *TCPConfig, logger *zap.Logger) *TCPConnection {
	return &TCPConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "tcp"),
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
		),
	}
}

// Open dials the bridge
func (tc *TCPConnection) Open(ctx context.Context) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.isOpen {
		return nil
	}

	dialer := &net.Dialer{Timeout: tc.config.ConnectTimeout}
	if tc.config.KeepAlive {
		dialer.KeepAlive = 30 * time.Second
	} else {
		dialer.KeepAlive = -1
	}

	address := net.JoinHostPort(tc.config.Host, strconv.Itoa(tc.config.Port))
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		tc.logger.Error("Failed to open TCP connection", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		// frames are tiny, send them immediately
		_ = tcpConn.SetNoDelay(true)
	}

	tc.conn = conn
	tc.isOpen = true
	tc.stats.setConnected(true)

	tc.logger.Info("TCP connection opened")
	return nil
}

// Close closes the TCP connection
func (tc *TCPConnection) Close() error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return nil
	}

	err := tc.conn.Close()
	tc.conn = nil
	tc.isOpen = false
	tc.stats.setConnected(false)

	if err != nil {
		tc.logger.Error("Failed to close TCP connection", zap.Error(err))
		return fmt.Errorf("failed to close TCP connection: %w", err)
	}
	tc.logger.Info("TCP connection closed")
	return nil
}

// IsOpen returns whether the connection is open
func (tc *TCPConnection) IsOpen() bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.isOpen && tc.conn != nil
}

// Write writes data to the TCP connection
func (tc *TCPConnection) Write(ctx context.Context, data []byte) error {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	if !tc.isOpen || tc.conn == nil {
		return fmt.Errorf("TCP connection not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if tc.config.WriteTimeout > 0 {
		_ = tc.conn.SetWriteDeadline(time.Now().Add(tc.config.WriteTimeout))
	}

	startTime := time.Now()
	n, err := tc.conn.Write(data)
	if err != nil {
		tc.stats.recordError()
		tc.logger.Error("TCP write failed", zap.Error(err))
		return fmt.Errorf("failed to write to TCP connection: %w", err)
	}

	tc.stats.recordWrite(n, time.Since(startTime))
	tc.logger.Debug("TCP write completed", zap.Int("bytes", n))
	return nil
}

// Read returns one burst of bytes, waiting at most until ctx expires
func (tc *TCPConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	if !tc.isOpen || tc.conn == nil {
		return nil, fmt.Errorf("TCP connection not open")
	}

	setTimeout := func(d time.Duration) error {
		return tc.conn.SetReadDeadline(time.Now().Add(d))
	}

	data, err := readBurst(ctx, maxBytes, tc.config.ByteGap, setTimeout, tc.conn.Read)
	if err != nil {
		if ctx.Err() == nil && err != context.DeadlineExceeded {
			tc.stats.recordError()
		}
		return nil, err
	}

	tc.stats.recordRead(len(data))
	return data, nil
}

// Kind returns the transport name
func (tc *TCPConnection) Kind() string {
	return "tcp"
}

// Stats returns a snapshot of link counters
func (tc *TCPConnection) Stats() ProtocolStats {
	return tc.stats.snapshot()
}
