package mqtt

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/farhanj21/ArduinoLocationTracker/internal/alerting"
)

type recordingSink struct {
	mu     sync.Mutex
	alerts []alerting.Alert
}

func (s *recordingSink) Raise(a alerting.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

func (s *recordingSink) byTitle(title string) []alerting.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []alerting.Alert
	for _, a := range s.alerts {
		if a.Title == title {
			out = append(out, a)
		}
	}
	return out
}

func newTestClient() (*Client, *recordingSink) {
	sink := &recordingSink{}
	c := NewClient(Options{
		BrokerURL: "tcp://example.invalid:1883",
		ClientID:  "test-client",
		Topics:    []string{"location_tracker/device/location"},
	}, sink)
	return c, sink
}

type fakeToken struct{}

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Error() error                   { return nil }
func (fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakePahoClient struct{}

func (fakePahoClient) IsConnected() bool      { return false }
func (fakePahoClient) IsConnectionOpen() bool { return false }
func (fakePahoClient) Connect() paho.Token    { return fakeToken{} }
func (fakePahoClient) Disconnect(uint)        {}
func (fakePahoClient) Publish(string, byte, bool, interface{}) paho.Token {
	return fakeToken{}
}
func (fakePahoClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return fakeToken{}
}
func (fakePahoClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return fakeToken{}
}
func (fakePahoClient) Unsubscribe(...string) paho.Token     { return fakeToken{} }
func (fakePahoClient) AddRoute(string, paho.MessageHandler) {}
func (fakePahoClient) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}

func TestConnectConfiguresFlatPeriodRetry(t *testing.T) {
	var captured *paho.ClientOptions
	orig := newPahoClient
	newPahoClient = func(o *paho.ClientOptions) paho.Client {
		captured = o
		return fakePahoClient{}
	}
	defer func() { newPahoClient = orig }()

	c, _ := newTestClient()
	c.Connect()
	defer c.Disconnect()

	if captured == nil {
		t.Fatal("Connect never built the broker client")
	}
	// Initial connect failures must keep retrying, not just lost connections.
	if !captured.ConnectRetry {
		t.Error("connect retry not enabled; a failed first connect would never retry")
	}
	if !captured.AutoReconnect {
		t.Error("auto reconnect not enabled")
	}
	period := 5 * time.Second
	if captured.ConnectRetryInterval != period {
		t.Errorf("connect retry interval = %v, want %v", captured.ConnectRetryInterval, period)
	}
	if captured.MaxReconnectInterval != period {
		t.Errorf("max reconnect interval = %v, want flat %v", captured.MaxReconnectInterval, period)
	}
}

func TestHandleMessageDecodesJSON(t *testing.T) {
	c, _ := newTestClient()

	c.handleMessage("device/location", []byte(`{"latitude":24.86,"longitude":67.00}`))

	snap := c.Snapshot()
	entry, ok := snap.Entry("device/location")
	if !ok {
		t.Fatal("expected an entry for device/location")
	}
	obj, ok := entry.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected decoded object payload, got %T", entry.Payload)
	}
	if obj["latitude"] != 24.86 {
		t.Errorf("latitude = %v, want 24.86", obj["latitude"])
	}
	if entry.Version != 1 || snap.Version != 1 {
		t.Errorf("versions = %d/%d, want 1/1", entry.Version, snap.Version)
	}
}

func TestHandleMessageKeepsRawTextOnDecodeFailure(t *testing.T) {
	c, _ := newTestClient()

	c.handleMessage("device/location", []byte("not json at all"))

	entry, ok := c.Snapshot().Entry("device/location")
	if !ok {
		t.Fatal("malformed payload must still be stored")
	}
	if entry.Payload != "not json at all" {
		t.Errorf("payload = %v, want raw text", entry.Payload)
	}
}

func TestSnapshotVersionAdvancesPerMessage(t *testing.T) {
	c, _ := newTestClient()

	c.handleMessage("a", []byte(`{"n":1}`))
	first := c.Snapshot()
	c.handleMessage("b", []byte(`{"n":2}`))
	second := c.Snapshot()

	if first.Version != 1 || second.Version != 2 {
		t.Fatalf("versions = %d, %d; want 1, 2", first.Version, second.Version)
	}
	// Earlier snapshots are never mutated by later messages
	if _, ok := first.Entry("b"); ok {
		t.Error("old snapshot gained an entry from a later message")
	}
	if len(second.Entries) != 2 {
		t.Errorf("second snapshot has %d entries, want 2", len(second.Entries))
	}
}

func TestObserversSeeEveryMessage(t *testing.T) {
	c, _ := newTestClient()

	var got []uint64
	c.OnUpdate(func(s Snapshot) { got = append(got, s.Version) })

	c.handleMessage("a", []byte(`1`))
	c.handleMessage("a", []byte(`2`))

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("observer saw versions %v, want [1 2]", got)
	}
}

func TestPublishFailsWhenNotConnected(t *testing.T) {
	c, _ := newTestClient()

	if c.Publish("device/command", map[string]string{"action": "get_location"}) {
		t.Error("publish must fail while idle")
	}

	c.setStatus(StatusDisconnected)
	if c.Publish("device/command", "x") {
		t.Error("publish must fail while disconnected")
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	c, _ := newTestClient()

	c.Disconnect()
	first := c.Status()
	c.Disconnect()
	second := c.Status()

	if first != second {
		t.Fatalf("status after double disconnect = %v, after single = %v", second, first)
	}
}

func TestConnectTimeoutFlipsToErrorOnce(t *testing.T) {
	c, sink := newTestClient()

	c.setStatus(StatusConnecting)
	c.onConnectTimeout()

	if got := c.Status(); got != StatusError {
		t.Fatalf("status = %v, want error", got)
	}
	if n := len(sink.byTitle("Connection Timeout")); n != 1 {
		t.Fatalf("timeout alerts = %d, want exactly 1", n)
	}

	// A stale timer firing after the status moved on must do nothing
	c.setStatus(StatusConnected)
	c.onConnectTimeout()
	if got := c.Status(); got != StatusConnected {
		t.Errorf("status = %v after stale timeout, want connected", got)
	}
	if n := len(sink.byTitle("Connection Timeout")); n != 1 {
		t.Errorf("timeout alerts = %d after stale timer, want still 1", n)
	}
}

func TestStatusObserverNotifiedOnTransitions(t *testing.T) {
	c, _ := newTestClient()

	var seen []Status
	c.OnStatusChange(func(s Status) { seen = append(seen, s) })

	c.setStatus(StatusConnecting)
	c.setStatus(StatusConnecting) // duplicate, must not re-notify
	c.setStatus(StatusConnected)

	if len(seen) != 2 || seen[0] != StatusConnecting || seen[1] != StatusConnected {
		t.Fatalf("observed transitions %v, want [connecting connected]", seen)
	}
}

func TestStatusStrings(t *testing.T) {
	cases := map[Status]string{
		StatusIdle:         "idle",
		StatusConnecting:   "connecting",
		StatusConnected:    "connected",
		StatusDisconnected: "disconnected",
		StatusError:        "error",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}

func TestEntryReceivedAtSet(t *testing.T) {
	c, _ := newTestClient()
	before := time.Now()
	c.handleMessage("a", []byte(`{}`))
	entry, _ := c.Snapshot().Entry("a")
	if entry.ReceivedAt.Before(before) {
		t.Error("ReceivedAt not stamped at delivery time")
	}
}
