package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	channelRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecgpipe",
			Subsystem: "channel",
			Name:      "requests_total",
			Help:      "Requests handled per channel kind and message type.",
		},
		[]string{"channel", "type"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ecgpipe",
			Subsystem: "channel",
			Name:      "request_duration_seconds",
			Help:      "Request handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"channel", "type"},
	)
	activeChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ecgpipe",
			Subsystem: "channel",
			Name:      "active",
			Help:      "Channels currently registered, control channel included.",
		},
	)
	fileBytesServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ecgpipe",
			Subsystem: "file",
			Name:      "bytes_served_total",
			Help:      "File chunk bytes written back to clients.",
		},
	)
	malformedRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ecgpipe",
			Subsystem: "channel",
			Name:      "malformed_requests_total",
			Help:      "Requests dropped because they failed to decode.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(channelRequests, requestDuration, activeChannels,
			fileBytesServed, malformedRequests)
	})
}

func RecordRequest(channel, msgType string, duration time.Duration) {
	RegisterMetrics()
	channelRequests.WithLabelValues(channel, msgType).Inc()
	requestDuration.WithLabelValues(channel, msgType).Observe(duration.Seconds())
}

func RecordChannelOpened() {
	RegisterMetrics()
	activeChannels.Inc()
}

func RecordChannelClosed() {
	RegisterMetrics()
	activeChannels.Dec()
}

func RecordFileBytes(n int) {
	RegisterMetrics()
	fileBytesServed.Add(float64(n))
}

func RecordMalformedRequest() {
	RegisterMetrics()
	malformedRequests.Inc()
}
