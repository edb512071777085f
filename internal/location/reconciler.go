// Package location reconciles inbound tracker messages into the exposed
// location and device-status state, and implements the request-location
// heuristic.
package location

import (
	"errors"
	"sync"
	"time"

	"github.com/farhanj21/ArduinoLocationTracker/internal/alerting"
	"github.com/farhanj21/ArduinoLocationTracker/internal/data"
	"github.com/farhanj21/ArduinoLocationTracker/internal/geofence"
	"github.com/farhanj21/ArduinoLocationTracker/internal/mqtt"
	"github.com/farhanj21/ArduinoLocationTracker/internal/storage"
	"github.com/farhanj21/ArduinoLocationTracker/internal/websocket"
)

// ErrNotConnected is returned by RequestLocation when the transport is down.
var ErrNotConnected = errors.New("not connected to MQTT broker")

const (
	defaultRequestWait = 3 * time.Second
	defaultFreshness   = 10 * time.Second
)

// Transport is the slice of the MQTT client the reconciler needs.
type Transport interface {
	Status() mqtt.Status
	Publish(topic string, payload any) bool
}

// Broadcaster pushes event envelopes to dashboard clients.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// Topics names the channels the reconciler watches and commands on.
type Topics struct {
	Location string
	Status   string
	Command  string
}

// CoarseStatus collapses the transport status into the three-state indicator
// the dashboard shows: idle and error both read as disconnected.
func CoarseStatus(s mqtt.Status) string {
	switch s {
	case mqtt.StatusConnected:
		return "connected"
	case mqtt.StatusConnecting:
		return "connecting"
	default:
		return "disconnected"
	}
}

// View is the reconciler state as served to the dashboard.
type View struct {
	Location         *data.LocationData `json:"location"`
	Timestamp        *time.Time         `json:"timestamp,omitempty"`
	DeviceStatus     data.DeviceStatus  `json:"deviceStatus"`
	Geofence         data.Geofence      `json:"geofence"`
	InsideGeofence   *bool              `json:"insideGeofence,omitempty"`
	ConnectionStatus string             `json:"connectionStatus"`
	MQTTStatus       string             `json:"mqttStatus"`
	Loading          bool               `json:"loading"`
}

// locationEvent is the payload pushed on location changes. It carries only
// the fields the change affects; clients fetch the full View on attach.
type locationEvent struct {
	Location       data.LocationData `json:"location"`
	Timestamp      time.Time         `json:"timestamp"`
	InsideGeofence bool              `json:"insideGeofence"`
}

// Reconciler owns location, device status and the geofence. It observes
// transport snapshots, skipping any snapshot whose version it has already
// processed.
type Reconciler struct {
	transport   Transport
	alerts      alerting.Sink
	track       *storage.TrackStore // optional
	hub         Broadcaster         // optional
	topics      Topics
	requestWait time.Duration
	freshness   time.Duration

	mu          sync.Mutex
	location    *data.LocationData
	locationAt  time.Time
	status      data.DeviceStatus
	fence       data.Geofence
	lastVersion uint64
	topicSeen   map[string]uint64
	loading     bool
	transportSt mqtt.Status
	pending     []*time.Timer
	closed      bool

	now func() time.Time // test seam
}

// Option tweaks an optional reconciler collaborator.
type Option func(*Reconciler)

// WithTrackStore records every accepted location into a track buffer.
func WithTrackStore(store *storage.TrackStore) Option {
	return func(r *Reconciler) { r.track = store }
}

// WithHub pushes state changes to dashboard clients.
func WithHub(hub Broadcaster) Option {
	return func(r *Reconciler) { r.hub = hub }
}

// WithWindows overrides the request wait window and freshness threshold.
func WithWindows(wait, freshness time.Duration) Option {
	return func(r *Reconciler) {
		if wait > 0 {
			r.requestWait = wait
		}
		if freshness > 0 {
			r.freshness = freshness
		}
	}
}

func NewReconciler(transport Transport, alerts alerting.Sink, topics Topics, fence data.Geofence, opts ...Option) *Reconciler {
	r := &Reconciler{
		transport:   transport,
		alerts:      alerts,
		topics:      topics,
		requestWait: defaultRequestWait,
		freshness:   defaultFreshness,
		fence:       fence,
		// Seed status shown before the first status message arrives
		status: data.DeviceStatus{
			Battery:        85,
			SignalStrength: data.SignalGood,
			DeviceID:       "ESP32-GPS-01",
		},
		topicSeen:   make(map[string]uint64),
		transportSt: mqtt.StatusIdle,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply merges a transport snapshot into the reconciler state. A snapshot
// whose version matches the last processed one is skipped outright.
func (r *Reconciler) Apply(snap mqtt.Snapshot) {
	r.mu.Lock()
	if snap.Version == r.lastVersion {
		r.mu.Unlock()
		return
	}
	r.lastVersion = snap.Version

	posUpdated, speedUpdated := r.applyLocationLocked(snap)
	statusUpdated := r.applyStatusLocked(snap) || speedUpdated

	var locView, statusView any
	var point data.TrackPoint
	if posUpdated {
		locView = locationEvent{
			Location:       *r.location,
			Timestamp:      r.locationAt,
			InsideGeofence: geofence.Contains(r.fence, *r.location),
		}
		point = data.TrackPoint{
			Lat:       r.location.Lat,
			Lng:       r.location.Lng,
			SpeedKmh:  r.status.SpeedKmh,
			Timestamp: r.locationAt,
		}
	}
	if statusUpdated {
		statusView = r.status
	}
	r.mu.Unlock()

	if posUpdated {
		if r.track != nil {
			r.track.Add(point)
		}
		if r.hub != nil {
			r.hub.Broadcast(websocket.EventLocation, locView)
		}
	}
	if statusUpdated && r.hub != nil {
		r.hub.Broadcast(websocket.EventStatus, statusView)
	}
}

// applyLocationLocked folds a new location-topic entry into state. Both
// coordinates must coerce cleanly or the position stays as it was; a speed
// field merges into device status on its own, and may arrive before the
// first fix.
func (r *Reconciler) applyLocationLocked(snap mqtt.Snapshot) (posUpdated, speedUpdated bool) {
	entry, ok := snap.Entry(r.topics.Location)
	if !ok || entry.Version <= r.topicSeen[r.topics.Location] {
		return false, false
	}
	r.topicSeen[r.topics.Location] = entry.Version

	latRaw, okLat := data.Field(entry.Payload, "latitude")
	lngRaw, okLng := data.Field(entry.Payload, "longitude")
	if okLat && okLng {
		lat, latValid := data.Float(latRaw)
		lng, lngValid := data.Float(lngRaw)
		if latValid && lngValid {
			r.location = &data.LocationData{Lat: lat, Lng: lng}
			r.locationAt = entry.ReceivedAt
			if tsRaw, ok := data.Field(entry.Payload, "timestamp"); ok {
				if ts, valid := data.Timestamp(tsRaw); valid {
					r.locationAt = ts
				}
			}
			posUpdated = true
		}
	}

	if spRaw, ok := data.Field(entry.Payload, "speed"); ok {
		if speed, valid := data.Float(spRaw); valid {
			r.status.SpeedKmh = speed
			speedUpdated = true
		}
	}
	return posUpdated, speedUpdated
}

// applyStatusLocked merges present status fields; absent or malformed fields
// keep their previous values.
func (r *Reconciler) applyStatusLocked(snap mqtt.Snapshot) bool {
	entry, ok := snap.Entry(r.topics.Status)
	if !ok || entry.Version <= r.topicSeen[r.topics.Status] {
		return false
	}
	r.topicSeen[r.topics.Status] = entry.Version

	updated := false
	if raw, ok := data.Field(entry.Payload, "battery"); ok {
		if battery, valid := data.Int(raw); valid {
			r.status.Battery = battery
			updated = true
		}
	}
	if raw, ok := data.Field(entry.Payload, "signalStrength"); ok {
		if signal, valid := data.String(raw); valid && validSignal(signal) {
			r.status.SignalStrength = signal
			updated = true
		}
	}
	if raw, ok := data.Field(entry.Payload, "deviceId"); ok {
		if id, valid := data.String(raw); valid {
			r.status.DeviceID = id
			updated = true
		}
	}
	return updated
}

func validSignal(s string) bool {
	return s == data.SignalGood || s == data.SignalMedium || s == data.SignalPoor
}

// OnTransportStatus tracks the transport lifecycle for the coarse dashboard
// indicator.
func (r *Reconciler) OnTransportStatus(s mqtt.Status) {
	r.mu.Lock()
	r.transportSt = s
	r.mu.Unlock()

	if r.hub != nil {
		r.hub.Broadcast(websocket.EventConnection, map[string]string{
			"connectionStatus": CoarseStatus(s),
			"mqttStatus":       s.String(),
		})
	}
}

// RequestLocation publishes a get_location command and reports the outcome
// after the wait window: success when the last known location timestamp is
// within the freshness threshold, failure otherwise. There is no message-ID
// correlation; overlapping calls each evaluate independently.
func (r *Reconciler) RequestLocation() error {
	if r.transport.Status() != mqtt.StatusConnected {
		r.alerts.Raise(alerting.Error("Connection Error",
			"Not connected to MQTT broker. Cannot request location."))
		return ErrNotConnected
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrNotConnected
	}
	r.loading = true
	r.mu.Unlock()

	r.transport.Publish(r.topics.Command, map[string]string{"action": "get_location"})

	timer := time.AfterFunc(r.requestWait, r.evaluateRequest)
	r.mu.Lock()
	r.pending = append(r.pending, timer)
	r.mu.Unlock()
	return nil
}

// evaluateRequest is the deferred half of RequestLocation.
func (r *Reconciler) evaluateRequest() {
	r.mu.Lock()
	last := r.locationAt
	r.loading = false
	r.mu.Unlock()

	if last.IsZero() || r.now().Sub(last) > r.freshness {
		r.alerts.Raise(alerting.Error("Location Request Failed",
			"Device did not respond with location data."))
		return
	}
	r.alerts.Raise(alerting.Info("Location Updated",
		"Successfully received latest location data."))
}

// Loading reports whether a request-location cycle is in flight.
func (r *Reconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// InsideGeofence reports containment of the current position. The second
// result is false while no position is known.
func (r *Reconciler) InsideGeofence() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.location == nil {
		return false, false
	}
	return geofence.Contains(r.fence, *r.location), true
}

// View returns the full reconciler state for the API and initial WS push.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := View{
		DeviceStatus:     r.status,
		Geofence:         r.fence,
		ConnectionStatus: CoarseStatus(r.transportSt),
		MQTTStatus:       r.transportSt.String(),
		Loading:          r.loading,
	}
	if r.location != nil {
		loc := *r.location
		ts := r.locationAt
		inside := geofence.Contains(r.fence, loc)
		v.Location = &loc
		v.Timestamp = &ts
		v.InsideGeofence = &inside
	}
	return v
}

// Close cancels any pending request timers. The reconciler accepts no new
// requests afterwards.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, t := range r.pending {
		t.Stop()
	}
	r.pending = nil
	r.loading = false
}
