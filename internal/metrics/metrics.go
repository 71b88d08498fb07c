// internal/metrics/metrics.go
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"servo-service/pkg/lsc"
)

const namespace = "servo"

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler exposing reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ServoMetrics holds controller and API metrics. It implements lsc.Observer.
type ServoMetrics struct {
	CommandsTotal     *prometheus.CounterVec   // labels: command, result
	ResponseLatency   *prometheus.HistogramVec // labels: command
	PartialReads      prometheus.Counter
	Connected         prometheus.Gauge
	BatteryMillivolts prometheus.Gauge
	OperationsTotal   *prometheus.CounterVec // labels: type, status
	Notifications     *prometheus.CounterVec // labels: kind
}

// NewServoMetrics registers and returns the service metrics
func NewServoMetrics(reg prometheus.Registerer) *ServoMetrics {
	m := &ServoMetrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands written to the controller by result.",
		}, []string{"command", "result"}),
		ResponseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_seconds",
			Help:      "Time spent waiting for controller frames.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"command"}),
		PartialReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_position_reads_total",
			Help:      "Position reads that ended before all declared servos were decoded.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_connected",
			Help:      "1 when the controller link is open.",
		}),
		BatteryMillivolts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_millivolts",
			Help:      "Last reported supply voltage.",
		}),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Journaled operations by type and final status.",
		}, []string{"type", "status"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Frames pushed by the controller by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.CommandsTotal, m.ResponseLatency, m.PartialReads, m.Connected,
		m.BatteryMillivolts, m.OperationsTotal, m.Notifications,
	)
	return m
}

// CommandSent implements lsc.Observer
func (m *ServoMetrics) CommandSent(cmd byte, err error) {
	result := "ok"
	if err != nil {
		result = "send_error"
	}
	m.CommandsTotal.WithLabelValues(commandLabel(cmd), result).Inc()
}

// ResponseReceived implements lsc.Observer
func (m *ServoMetrics) ResponseReceived(cmd byte, elapsed time.Duration, err error) {
	label := commandLabel(cmd)
	m.ResponseLatency.WithLabelValues(label).Observe(elapsed.Seconds())
	if err != nil {
		m.CommandsTotal.WithLabelValues(label, responseResult(err)).Inc()
	}
}

// PartialRead implements lsc.Observer
func (m *ServoMetrics) PartialRead(cmd byte, parsed, declared int) {
	m.PartialReads.Inc()
}

// SetConnected updates the link gauge
func (m *ServoMetrics) SetConnected(connected bool) {
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

func commandLabel(cmd byte) string {
	if cmd == 0 {
		return "notification"
	}
	return fmt.Sprintf("0x%02X", cmd)
}

func responseResult(err error) string {
	switch {
	case errors.Is(err, lsc.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, lsc.ErrReceiveFailure):
		return "receive_error"
	default:
		return "error"
	}
}

var _ lsc.Observer = (*ServoMetrics)(nil)
