// pkg/lsc/options.go
package lsc

import (
	"time"

	"go.uber.org/zap"
)

// Observer receives protocol level events, typically to feed metrics.
type Observer interface {
	CommandSent(cmd byte, err error)
	ResponseReceived(cmd byte, elapsed time.Duration, err error)
	PartialRead(cmd byte, parsed, declared int)
}

type nopObserver struct{}

func (nopObserver) CommandSent(byte, error)                     {}
func (nopObserver) ResponseReceived(byte, time.Duration, error) {}
func (nopObserver) PartialRead(byte, int, int)                  {}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger used for protocol diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithReadTimeout sets the default receive timeout
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.readTimeout = timeout
		}
	}
}

// WithReportSize sets the largest frame read from the transport
func WithReportSize(size int) Option {
	return func(c *Controller) {
		if size >= frameOverhead {
			c.reportSize = size
		}
	}
}

// WithObserver attaches an Observer
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// CallOption tunes a single operation
type CallOption func(*callConfig)

type callConfig struct {
	timeout   time.Duration
	waitReply bool
}

// WithTimeout overrides the read timeout for one call
func WithTimeout(timeout time.Duration) CallOption {
	return func(cc *callConfig) {
		if timeout > 0 {
			cc.timeout = timeout
		}
	}
}

// WithReply makes a normally send-only command read and check the board's echo.
// It applies to MoveServos, PowerOffServos and SetActionGroupSpeed.
func WithReply() CallOption {
	return func(cc *callConfig) {
		cc.waitReply = true
	}
}

func (c *Controller) callConfig(opts []CallOption) callConfig {
	cc := callConfig{timeout: c.readTimeout}
	for _, opt := range opts {
		opt(&cc)
	}
	return cc
}
