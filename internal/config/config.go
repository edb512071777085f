// internal/config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	MQTT struct {
		BrokerURL        string   `mapstructure:"broker_url"`
		ClientIDPrefix   string   `mapstructure:"client_id_prefix"`
		Username         string   `mapstructure:"username"`
		Password         string   `mapstructure:"password"`
		Topics           []string `mapstructure:"topics"`
		ConnectTimeoutS  int      `mapstructure:"connect_timeout_seconds"`
		ReconnectPeriodS int      `mapstructure:"reconnect_period_seconds"`
	} `mapstructure:"mqtt"`
	Tracker struct {
		LocationTopic   string `mapstructure:"location_topic"`
		StatusTopic     string `mapstructure:"status_topic"`
		AlertTopic      string `mapstructure:"alert_topic"`
		CommandTopic    string `mapstructure:"command_topic"`
		RequestWaitS    int    `mapstructure:"request_wait_seconds"`
		FreshnessS      int    `mapstructure:"freshness_seconds"`
		TrackBufferSize int    `mapstructure:"track_buffer_size"`
		SeedNotifs      bool   `mapstructure:"seed_notifications"`
	} `mapstructure:"tracker"`
	Geofence struct {
		CenterLat float64 `mapstructure:"center_lat"`
		CenterLng float64 `mapstructure:"center_lng"`
		RadiusM   float64 `mapstructure:"radius_meters"`
	} `mapstructure:"geofence"`
}

func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.MQTT.ConnectTimeoutS) * time.Second
}

func (c *Config) ReconnectPeriod() time.Duration {
	return time.Duration(c.MQTT.ReconnectPeriodS) * time.Second
}

func (c *Config) RequestWait() time.Duration {
	return time.Duration(c.Tracker.RequestWaitS) * time.Second
}

func (c *Config) Freshness() time.Duration {
	return time.Duration(c.Tracker.FreshnessS) * time.Second
}

var AppConfig Config

func LoadConfig(path string) error {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Error reading config file: %s\n", err)
		// Defaults above keep the gateway runnable without a file
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		log.Printf("Unable to decode config into struct: %v", err)
		return err
	}

	log.Printf("Configuration loaded: %+v", AppConfig)
	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("mqtt.broker_url", "tcp://test.mosquitto.org:1883")
	viper.SetDefault("mqtt.client_id_prefix", "gps-tracker-gateway")
	viper.SetDefault("mqtt.topics", []string{
		"location_tracker/device/location",
		"location_tracker/device/status",
		"location_tracker/device/alerts",
		"location_tracker/device/alerts/geofence",
		"location_tracker/device/alerts/anomaly",
	})
	viper.SetDefault("mqtt.connect_timeout_seconds", 5)
	viper.SetDefault("mqtt.reconnect_period_seconds", 5)

	viper.SetDefault("tracker.location_topic", "location_tracker/device/location")
	viper.SetDefault("tracker.status_topic", "location_tracker/device/status")
	viper.SetDefault("tracker.alert_topic", "location_tracker/device/alerts")
	viper.SetDefault("tracker.command_topic", "location_tracker/device/command")
	viper.SetDefault("tracker.request_wait_seconds", 3)
	viper.SetDefault("tracker.freshness_seconds", 10)
	viper.SetDefault("tracker.track_buffer_size", 100)
	viper.SetDefault("tracker.seed_notifications", true)

	viper.SetDefault("geofence.center_lat", 24.8607)
	viper.SetDefault("geofence.center_lng", 67.0011)
	viper.SetDefault("geofence.radius_meters", 500)
}
