// Package notification converts alert-topic messages into the dashboard's
// notification feed and tracks read state.
package notification

import (
	"fmt"
	"sync"
	"time"

	"github.com/farhanj21/ArduinoLocationTracker/internal/data"
	"github.com/farhanj21/ArduinoLocationTracker/internal/mqtt"
	"github.com/farhanj21/ArduinoLocationTracker/internal/websocket"
)

// Notification kinds. Anything else on the wire degrades to info.
const (
	KindAnomaly    = "anomaly"
	KindGeofence   = "geofence"
	KindConnection = "connection"
	KindInfo       = "info"
)

// Notification is one alert surfaced to the user. Ordering in the feed is
// newest-first.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"timestamp"`
}

// Broadcaster pushes event envelopes to dashboard clients.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// Reconciler owns the notification list. It observes transport snapshots and
// converts every new alert-topic entry into an unread notification.
type Reconciler struct {
	hub    Broadcaster // optional
	topics []string

	mu            sync.Mutex
	notifications []Notification // newest first
	lastVersion   uint64
	topicSeen     map[string]uint64
	seq           uint64

	now func() time.Time // test seam
}

// Option tweaks an optional reconciler collaborator.
type Option func(*Reconciler)

// WithHub pushes new notifications to dashboard clients.
func WithHub(hub Broadcaster) Option {
	return func(r *Reconciler) { r.hub = hub }
}

// NewReconciler watches the given alert topics (base topic plus any
// sub-topics such as /geofence and /anomaly).
func NewReconciler(topics []string, opts ...Option) *Reconciler {
	r := &Reconciler{
		topics:    topics,
		topicSeen: make(map[string]uint64),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply folds a transport snapshot into the feed. Snapshots already
// processed (same version) are skipped without touching state.
func (r *Reconciler) Apply(snap mqtt.Snapshot) {
	r.mu.Lock()
	if snap.Version == r.lastVersion {
		r.mu.Unlock()
		return
	}
	r.lastVersion = snap.Version

	var added []Notification
	for _, topic := range r.topics {
		entry, ok := snap.Entry(topic)
		if !ok || entry.Version <= r.topicSeen[topic] {
			continue
		}
		r.topicSeen[topic] = entry.Version
		added = append(added, r.addLocked(fromPayload(entry.Payload)))
	}
	r.mu.Unlock()

	if r.hub != nil {
		for _, n := range added {
			r.hub.Broadcast(websocket.EventNotification, n)
		}
	}
}

// fromPayload builds notification fields from a decoded alert, with defaults
// for anything missing or malformed.
func fromPayload(payload any) (kind, title, message string) {
	kind = KindInfo
	title = "Alert"
	message = "An alert was received."

	if raw, ok := data.Field(payload, "type"); ok {
		if s, valid := data.String(raw); valid {
			switch s {
			case KindAnomaly, KindGeofence, KindConnection, KindInfo:
				kind = s
			}
		}
	}
	if raw, ok := data.Field(payload, "title"); ok {
		if s, valid := data.String(raw); valid {
			title = s
		}
	}
	if raw, ok := data.Field(payload, "message"); ok {
		if s, valid := data.String(raw); valid {
			message = s
		}
	}
	return kind, title, message
}

// Add creates an unread notification at the head of the feed.
func (r *Reconciler) Add(kind, title, message string) Notification {
	r.mu.Lock()
	n := r.addLocked(kind, title, message)
	r.mu.Unlock()

	if r.hub != nil {
		r.hub.Broadcast(websocket.EventNotification, n)
	}
	return n
}

func (r *Reconciler) addLocked(kind, title, message string) Notification {
	r.seq++
	created := r.now()
	n := Notification{
		ID:        fmt.Sprintf("%d-%d", created.UnixMilli(), r.seq),
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: created,
	}
	// Prepend: the feed is newest-first
	next := make([]Notification, 0, len(r.notifications)+1)
	next = append(next, n)
	next = append(next, r.notifications...)
	r.notifications = next
	return n
}

// MarkAsRead flags one notification as read. Unknown ids are a no-op.
func (r *Reconciler) MarkAsRead(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]Notification, len(r.notifications))
	copy(next, r.notifications)
	for i := range next {
		if next[i].ID == id {
			next[i].Read = true
			break
		}
	}
	r.notifications = next
}

// MarkAllAsRead flags every notification as read.
func (r *Reconciler) MarkAllAsRead() {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]Notification, len(r.notifications))
	copy(next, r.notifications)
	for i := range next {
		next[i].Read = true
	}
	r.notifications = next
}

// ClearAll empties the feed irreversibly.
func (r *Reconciler) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = nil
}

// All returns the feed, newest first.
func (r *Reconciler) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Notification, len(r.notifications))
	copy(result, r.notifications)
	return result
}

// Unread counts notifications not yet marked read.
func (r *Reconciler) Unread() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// Seed inserts the demonstration notifications shown on a fresh session,
// back-dated in ten minute steps.
func (r *Reconciler) Seed() {
	samples := []struct {
		kind, title, message string
	}{
		{KindAnomaly, "Anomaly Detected",
			"Unusual movement pattern detected. The device showed a sudden speed increase from 0 to 50 km/h."},
		{KindGeofence, "Geofence Breach",
			"Device has exited the designated safe zone \"Home Area\"."},
		{KindConnection, "Connection Restored",
			"MQTT connection has been restored after a temporary disconnection."},
	}

	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range samples {
		created := now.Add(-time.Duration(i+1) * 10 * time.Minute)
		r.notifications = append(r.notifications, Notification{
			ID:        fmt.Sprintf("sample-%d", i),
			Kind:      s.kind,
			Title:     s.title,
			Message:   s.message,
			CreatedAt: created,
		})
	}
}
