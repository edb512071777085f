// internal/alerting/alerter.go
package alerting

import (
	"log"
	"time"

	"github.com/farhanj21/ArduinoLocationTracker/internal/metrics"
	"github.com/farhanj21/ArduinoLocationTracker/internal/websocket"
)

// Alert severities. The dashboard renders "error" alerts destructively,
// everything else as a plain toast.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Alert is a one-shot user-visible notice (connection timeouts, subscribe
// failures, request-location outcomes). It is transient: broadcast once,
// never stored.
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
}

func Info(title, message string) Alert {
	return Alert{Severity: SeverityInfo, Title: title, Message: message}
}

func Warning(title, message string) Alert {
	return Alert{Severity: SeverityWarning, Title: title, Message: message}
}

func Error(title, message string) Alert {
	return Alert{Severity: SeverityError, Title: title, Message: message}
}

// Sink receives user-visible alerts.
type Sink interface {
	Raise(Alert)
}

// Alerter fans alerts out to the dashboard via the WebSocket hub.
type Alerter struct {
	hub *websocket.Hub
	// Add other notification channels here (e.g., email client, SMS service)
}

func NewAlerter(hub *websocket.Hub) *Alerter {
	return &Alerter{hub: hub}
}

func (a *Alerter) Raise(alert Alert) {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}
	metrics.IncAlertRaised(alert.Severity)
	log.Printf("ALERT [%s] %s: %s", alert.Severity, alert.Title, alert.Message)

	if a.hub != nil {
		a.hub.Broadcast(websocket.EventAlert, alert)
	}
}
