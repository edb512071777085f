package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "tracker_"

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	messagesReceived *prometheus.CounterVec
	decodeFailures   prometheus.Counter
	publishes        *prometheus.CounterVec
	alertsRaised     *prometheus.CounterVec
	connectionState  prometheus.Gauge
)

// Init registers the gateway metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		messagesReceived = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "mqtt_messages_received_total",
				Help: "Total MQTT messages received by topic",
			},
			[]string{"topic"},
		)
		decodeFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "mqtt_decode_failures_total",
				Help: "Total inbound payloads stored as raw text after a failed JSON decode",
			},
		)
		publishes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "mqtt_publish_total",
				Help: "Total outbound publish attempts by result",
			},
			[]string{"result"},
		)
		alertsRaised = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_raised_total",
				Help: "Total user-visible alerts raised by severity",
			},
			[]string{"severity"},
		)
		connectionState = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "mqtt_connection_state",
				Help: "Current MQTT connection state (0 idle, 1 connecting, 2 connected, 3 disconnected, 4 error)",
			},
		)

		prometheus.MustRegister(
			messagesReceived,
			decodeFailures,
			publishes,
			alertsRaised,
			connectionState,
		)
	})
}

// IncMessageReceived counts an inbound message on a topic.
func IncMessageReceived(topic string) {
	if messagesReceived != nil {
		messagesReceived.WithLabelValues(topic).Inc()
	}
}

// IncDecodeFailure counts a payload that did not decode as JSON.
func IncDecodeFailure() {
	if decodeFailures != nil {
		decodeFailures.Inc()
	}
}

// IncPublish counts a publish attempt by result.
func IncPublish(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if publishes != nil {
		publishes.WithLabelValues(result).Inc()
	}
}

// IncAlertRaised counts a user-visible alert by severity.
func IncAlertRaised(severity string) {
	if severity == "" {
		severity = "unknown"
	}
	if alertsRaised != nil {
		alertsRaised.WithLabelValues(severity).Inc()
	}
}

// SetConnectionState records the numeric transport state.
func SetConnectionState(state int) {
	if connectionState != nil {
		connectionState.Set(float64(state))
	}
}
