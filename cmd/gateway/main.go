// cmd/gateway/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/farhanj21/ArduinoLocationTracker/internal/alerting"
	"github.com/farhanj21/ArduinoLocationTracker/internal/api"
	"github.com/farhanj21/ArduinoLocationTracker/internal/config"
	"github.com/farhanj21/ArduinoLocationTracker/internal/data"
	"github.com/farhanj21/ArduinoLocationTracker/internal/location"
	"github.com/farhanj21/ArduinoLocationTracker/internal/metrics"
	"github.com/farhanj21/ArduinoLocationTracker/internal/mqtt"
	"github.com/farhanj21/ArduinoLocationTracker/internal/notification"
	"github.com/farhanj21/ArduinoLocationTracker/internal/storage"
	"github.com/farhanj21/ArduinoLocationTracker/internal/websocket"
)

func main() {
	// --- Configuration ---
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Printf("Error loading config, continuing with defaults: %v", err)
	}
	cfg := &config.AppConfig

	metrics.Init()

	// --- Initialize Components ---
	hub := websocket.NewHub()
	alerter := alerting.NewAlerter(hub)
	trackStore := storage.NewTrackStore(cfg.Tracker.TrackBufferSize)

	// Broker requires a unique client identifier per session
	clientID := fmt.Sprintf("%s-%s", cfg.MQTT.ClientIDPrefix, uuid.NewString()[:8])

	client := mqtt.NewClient(mqtt.Options{
		BrokerURL:       cfg.MQTT.BrokerURL,
		ClientID:        clientID,
		Username:        cfg.MQTT.Username,
		Password:        cfg.MQTT.Password,
		Topics:          cfg.MQTT.Topics,
		ConnectTimeout:  cfg.ConnectTimeout(),
		ReconnectPeriod: cfg.ReconnectPeriod(),
	}, alerter)

	fence := data.Geofence{
		Lat:    cfg.Geofence.CenterLat,
		Lng:    cfg.Geofence.CenterLng,
		Radius: cfg.Geofence.RadiusM,
	}

	tracker := location.NewReconciler(client, alerter, location.Topics{
		Location: cfg.Tracker.LocationTopic,
		Status:   cfg.Tracker.StatusTopic,
		Command:  cfg.Tracker.CommandTopic,
	}, fence,
		location.WithTrackStore(trackStore),
		location.WithHub(hub),
		location.WithWindows(cfg.RequestWait(), cfg.Freshness()),
	)

	alertTopics := []string{
		cfg.Tracker.AlertTopic,
		cfg.Tracker.AlertTopic + "/geofence",
		cfg.Tracker.AlertTopic + "/anomaly",
	}
	notifs := notification.NewReconciler(alertTopics, notification.WithHub(hub))
	if cfg.Tracker.SeedNotifs {
		notifs.Seed()
	}

	// Both reconcilers observe the same topic map
	client.OnUpdate(tracker.Apply)
	client.OnUpdate(notifs.Apply)
	client.OnStatusChange(tracker.OnTransportStatus)

	// New dashboard clients get the current state before the live stream
	hub.OnAttach = func() []websocket.Envelope {
		return []websocket.Envelope{
			{Type: websocket.EventSnapshot, Payload: tracker.View()},
			{Type: websocket.EventNotification, Payload: notifs.All()},
		}
	}

	// --- Start WebSocket Hub ---
	go hub.Run()

	// --- Connect to the broker ---
	client.Connect()

	// --- Setup HTTP Server ---
	router := api.SetupRouter(api.NewAPIHandler(tracker, notifs, trackStore, hub))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting tracker gateway server on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server ListenAndServe error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	tracker.Close()
	client.Disconnect()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Gateway stopped.")
}
