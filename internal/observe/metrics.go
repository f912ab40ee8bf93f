package observe

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mcpd_active_sessions",
		Help: "Number of active sessions",
	})

	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcpd_messages_total",
			Help: "Total inbound messages by kind",
		},
		[]string{"kind"},
	)

	toolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcpd_tool_executions_total",
			Help: "Total tool executions by status",
		},
		[]string{"status"},
	)

	eventsFannedOutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mcpd_events_fanned_out_total",
		Help: "Total per-subscriber event deliveries",
	})

	droppedFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mcpd_dropped_frames_total",
		Help: "Total outbound frames dropped due to backpressure",
	})

	parseErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mcpd_parse_errors_total",
		Help: "Total inbound frames rejected by the codec",
	})

	bytesInTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mcpd_bytes_in_total",
		Help: "Total bytes read from transports",
	})

	bytesOutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mcpd_bytes_out_total",
		Help: "Total bytes written to transports",
	})

	// 状态快照用的原子副本，避免从 prometheus 读回
	bytesIn  atomic.Int64
	bytesOut atomic.Int64
)

func init() {
	prometheus.MustRegister(
		activeSessions,
		messagesTotal,
		toolExecutionsTotal,
		eventsFannedOutTotal,
		droppedFramesTotal,
		parseErrorsTotal,
		bytesInTotal,
		bytesOutTotal,
	)
}

func AddSessions(delta float64) { activeSessions.Add(delta) }

func IncMessage(kind string) { messagesTotal.WithLabelValues(kind).Inc() }

func IncToolExecution(status string) { toolExecutionsTotal.WithLabelValues(status).Inc() }

func IncEventFanOut() { eventsFannedOutTotal.Inc() }

func IncDropped() { droppedFramesTotal.Inc() }

func IncParseError() { parseErrorsTotal.Inc() }

func AddBytesIn(n int) {
	bytesInTotal.Add(float64(n))
	bytesIn.Add(int64(n))
}

func AddBytesOut(n int) {
	bytesOutTotal.Add(float64(n))
	bytesOut.Add(int64(n))
}

func BytesIn() int64  { return bytesIn.Load() }
func BytesOut() int64 { return bytesOut.Load() }
