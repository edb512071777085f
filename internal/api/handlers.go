package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict

	"github.com/farhanj21/ArduinoLocationTracker/internal/location"
	"github.com/farhanj21/ArduinoLocationTracker/internal/notification"
	"github.com/farhanj21/ArduinoLocationTracker/internal/storage"
	"github.com/farhanj21/ArduinoLocationTracker/internal/websocket"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Allow all origins for simplicity
}

type APIHandler struct {
	tracker *location.Reconciler
	notifs  *notification.Reconciler
	track   *storage.TrackStore
	hub     *websocket.Hub
}

func NewAPIHandler(tracker *location.Reconciler, notifs *notification.Reconciler, track *storage.TrackStore, hub *websocket.Hub) *APIHandler {
	return &APIHandler{
		tracker: tracker,
		notifs:  notifs,
		track:   track,
		hub:     hub,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// HandleState serves the full tracker state for the dashboard.
func (h *APIHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.View())
}

// HandleTrack serves the recent track points, oldest first. An optional
// ?limit=N caps the result.
func (h *APIHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": h.track.Recent(limit)})
}

// HandleRequestLocation triggers the request-location heuristic. The outcome
// arrives later as an alert event; this only reports whether the command was
// issued.
func (h *APIHandler) HandleRequestLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.RequestLocation(); err != nil {
		if errors.Is(err, location.ErrNotConnected) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

// HandleNotifications lists the feed, newest first.
func (h *APIHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": h.notifs.All(),
		"unread":        h.notifs.Unread(),
	})
}

// HandleMarkRead flags one notification as read. Unknown ids succeed too;
// the operation is a no-op then.
func (h *APIHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	h.notifs.MarkAsRead(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// HandleMarkAllRead flags every notification as read.
func (h *APIHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	h.notifs.MarkAllAsRead()
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearNotifications empties the feed.
func (h *APIHandler) HandleClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.notifs.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth is a plain liveness probe.
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleWebSocket upgrades connections and registers clients with the hub
func (h *APIHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &websocket.Client{Hub: h.hub, Conn: conn, Send: make(chan []byte, 256)}
	client.Hub.RegisterClient(client)

	// Start read/write pumps in separate goroutines
	go client.WritePump()
	go client.ReadPump() // Must run ReadPump to handle control messages (close, pong)
}
