// internal/protocol/protocol.go
package protocol

import (
	"sync"
	"time"

	"servo-service/pkg/lsc"
)

// Connection is a raw byte link to the controller board. It satisfies
// lsc.Transport and knows nothing about framing.
type Connection interface {
	lsc.Transport

	// Kind returns the transport name (usb, serial, tcp)
	Kind() string

	// Stats returns a snapshot of link counters
	Stats() ProtocolStats
}

// ProtocolStats provides protocol-level statistics
type ProtocolStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}

// statsRecorder guards ProtocolStats for concurrent readers
type statsRecorder struct {
	mu    sync.Mutex
	stats ProtocolStats
}

func (s *statsRecorder) snapshot() ProtocolStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *statsRecorder) setConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.IsConnected = connected
	s.stats.LastActivity = time.Now()
}

func (s *statsRecorder) recordWrite(n int, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.BytesWritten += int64(n)
	s.stats.OperationCount++
	s.stats.LastActivity = time.Now()
	if s.stats.AverageLatency == 0 {
		s.stats.AverageLatency = latency
	} else {
		s.stats.AverageLatency = (s.stats.AverageLatency + latency) / 2
	}
}

func (s *statsRecorder) recordRead(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.BytesRead += int64(n)
	s.stats.OperationCount++
	s.stats.LastActivity = time.Now()
}

func (s *statsRecorder) recordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ErrorCount++
}
