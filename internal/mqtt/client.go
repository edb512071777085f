// Package mqtt wraps the Eclipse Paho client behind the small contract the
// reconcilers need: a connect/disconnect lifecycle, a versioned
// latest-payload-per-topic snapshot, and a guarded publish.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/farhanj21/ArduinoLocationTracker/internal/alerting"
	"github.com/farhanj21/ArduinoLocationTracker/internal/metrics"
)

const (
	defaultConnectTimeout  = 5 * time.Second
	defaultReconnectPeriod = 5 * time.Second
)

// Options configures a single broker connection.
type Options struct {
	BrokerURL       string
	ClientID        string // must be unique per session
	Username        string
	Password        string
	Topics          []string // topic filters subscribed on connect
	ConnectTimeout  time.Duration
	ReconnectPeriod time.Duration // flat retry period, no backoff
}

// Entry is the last message observed on one topic. Payload is the decoded
// JSON value, or the raw text when the payload did not decode.
type Entry struct {
	Topic      string
	Payload    any
	Version    uint64
	ReceivedAt time.Time
}

// Snapshot is a point-in-time copy of the per-topic message map. Version
// advances on every inbound message, so an observer that remembers the last
// version it processed can skip redundant work.
type Snapshot struct {
	Version uint64
	Entries map[string]Entry
}

// Entry returns the last message on a topic, if any.
func (s Snapshot) Entry(topic string) (Entry, bool) {
	e, ok := s.Entries[topic]
	return e, ok
}

// newPahoClient is a seam for tests.
var newPahoClient = func(o *paho.ClientOptions) paho.Client {
	return paho.NewClient(o)
}

// Client holds one broker connection and the topic-message map derived from
// it. All exposed state is replaced wholesale on change, never mutated in
// place, so observers may retain snapshots freely.
type Client struct {
	opts   Options
	alerts alerting.Sink

	mu           sync.Mutex
	pc           paho.Client
	status       Status
	entries      map[string]Entry
	version      uint64
	connectTimer *time.Timer

	observers       []func(Snapshot)
	statusObservers []func(Status)
}

func NewClient(opts Options, alerts alerting.Sink) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.ReconnectPeriod <= 0 {
		opts.ReconnectPeriod = defaultReconnectPeriod
	}
	return &Client{
		opts:    opts,
		alerts:  alerts,
		status:  StatusIdle,
		entries: make(map[string]Entry),
	}
}

// OnUpdate registers an observer called with a fresh snapshot after every
// inbound message. Observers run on the delivery goroutine, in arrival order.
func (c *Client) OnUpdate(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// OnStatusChange registers an observer for connection status transitions.
func (c *Client) OnStatusChange(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusObservers = append(c.statusObservers, fn)
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Snapshot returns the current topic-message map.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Version: c.version, Entries: c.entries}
}

// Connect starts a connection attempt. It is a no-op when a client already
// exists (connected or still trying). The attempt is bounded by the connect
// timeout; expiry flips status to error and raises a single timeout alert.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.pc != nil {
		c.mu.Unlock()
		return
	}

	co := paho.NewClientOptions().
		AddBroker(c.opts.BrokerURL).
		SetClientID(c.opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(c.opts.ReconnectPeriod).
		SetMaxReconnectInterval(c.opts.ReconnectPeriod).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetDefaultPublishHandler(c.onMessage)
	if c.opts.Username != "" {
		co.SetUsername(c.opts.Username)
		co.SetPassword(c.opts.Password)
	}

	pc := newPahoClient(co)
	c.pc = pc
	c.connectTimer = time.AfterFunc(c.opts.ConnectTimeout, c.onConnectTimeout)
	c.mu.Unlock()

	c.setStatus(StatusConnecting)
	log.Printf("Connecting to MQTT broker %s as %s", c.opts.BrokerURL, c.opts.ClientID)

	token := pc.Connect()
	go func() {
		token.Wait()
		err := token.Error()
		if err == nil {
			return
		}
		c.mu.Lock()
		stillConnecting := c.status == StatusConnecting
		if c.connectTimer != nil {
			c.connectTimer.Stop()
			c.connectTimer = nil
		}
		c.mu.Unlock()
		if stillConnecting {
			log.Printf("MQTT connect error: %v", err)
			c.setStatus(StatusError)
			c.alerts.Raise(alerting.Error("Connection Error", "Failed to connect to MQTT broker"))
		}
	}()
}

// Disconnect tears the connection down and releases the client. Safe to call
// when never connected or already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	pc := c.pc
	c.pc = nil
	if c.connectTimer != nil {
		c.connectTimer.Stop()
		c.connectTimer = nil
	}
	c.mu.Unlock()

	if pc == nil {
		return
	}
	pc.Disconnect(250)
	c.setStatus(StatusDisconnected)
}

// Publish sends a message on a topic. Returns false without raising when the
// connection is not up. Structured payloads are serialized to JSON text;
// strings and byte slices pass through unchanged.
func (c *Client) Publish(topic string, payload any) bool {
	c.mu.Lock()
	pc := c.pc
	connected := c.status == StatusConnected
	c.mu.Unlock()

	if pc == nil || !connected {
		log.Printf("Cannot publish to %s: MQTT client not connected", topic)
		metrics.IncPublish(metrics.ResultError)
		return false
	}

	var body []byte
	switch v := payload.(type) {
	case []byte:
		body = v
	case string:
		body = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			log.Printf("Error serializing payload for %s: %v", topic, err)
			metrics.IncPublish(metrics.ResultError)
			return false
		}
		body = b
	}

	pc.Publish(topic, 0, false, body)
	metrics.IncPublish(metrics.ResultSuccess)
	return true
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	if c.status == s {
		c.mu.Unlock()
		return
	}
	c.status = s
	obs := make([]func(Status), len(c.statusObservers))
	copy(obs, c.statusObservers)
	c.mu.Unlock()

	metrics.SetConnectionState(int(s))
	for _, fn := range obs {
		fn(s)
	}
}

func (c *Client) onConnect(pc paho.Client) {
	c.mu.Lock()
	if c.connectTimer != nil {
		c.connectTimer.Stop()
		c.connectTimer = nil
	}
	c.mu.Unlock()

	log.Printf("MQTT connected")
	c.setStatus(StatusConnected)

	// Subscription failures are non-fatal: the connection stays up and the
	// other filters still deliver.
	for _, topic := range c.opts.Topics {
		token := pc.Subscribe(topic, 0, nil)
		go func(topic string, token paho.Token) {
			token.Wait()
			if err := token.Error(); err != nil {
				log.Printf("Error subscribing to %s: %v", topic, err)
				c.alerts.Raise(alerting.Warning("Subscription Error",
					fmt.Sprintf("Failed to subscribe to %s", topic)))
			}
		}(topic, token)
	}

	c.alerts.Raise(alerting.Info("Connected to MQTT broker",
		"Now receiving real-time location updates"))
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	log.Printf("MQTT connection lost: %v", err)
	c.setStatus(StatusDisconnected)
	c.alerts.Raise(alerting.Error("Connection Lost",
		"MQTT connection is offline. Reconnecting..."))
}

func (c *Client) onConnectTimeout() {
	c.mu.Lock()
	expired := c.status == StatusConnecting
	c.connectTimer = nil
	c.mu.Unlock()
	if !expired {
		return
	}

	log.Printf("MQTT connection timeout")
	c.setStatus(StatusError)
	c.alerts.Raise(alerting.Error("Connection Timeout",
		"Failed to connect to MQTT broker in a reasonable time"))
}

func (c *Client) onMessage(_ paho.Client, msg paho.Message) {
	c.handleMessage(msg.Topic(), msg.Payload())
}

// handleMessage decodes one inbound payload and publishes a fresh snapshot.
// A payload that is not valid JSON is stored as raw text, never dropped.
func (c *Client) handleMessage(topic string, raw []byte) {
	metrics.IncMessageReceived(topic)

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("Error decoding message on %s, keeping raw text: %v", topic, err)
		metrics.IncDecodeFailure()
		payload = string(raw)
	}

	now := time.Now()
	c.mu.Lock()
	c.version++
	next := make(map[string]Entry, len(c.entries)+1)
	for k, v := range c.entries {
		next[k] = v
	}
	next[topic] = Entry{Topic: topic, Payload: payload, Version: c.version, ReceivedAt: now}
	c.entries = next
	snap := Snapshot{Version: c.version, Entries: next}
	obs := make([]func(Snapshot), len(c.observers))
	copy(obs, c.observers)
	c.mu.Unlock()

	for _, fn := range obs {
		fn(snap)
	}
}
