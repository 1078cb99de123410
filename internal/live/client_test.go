package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/regattaflow/trackcore/internal/models"
)

// fakeConn is a scripted stream connection. Tests feed inbound messages,
// inspect the handshake writes, and cut the line to simulate an unexpected
// close.
type fakeConn struct {
	mu      sync.Mutex
	writes  []streamMessage
	inbound chan []byte
	down    chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		down:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.down:
		return nil, errors.New("stream torn down")
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.mu.Lock()
	c.writes = append(c.writes, msg)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.down) })
	return nil
}

func (c *fakeConn) deliver(t *testing.T, msg streamMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal test message: %v", err)
	}
	c.deliverRaw(t, data)
}

func (c *fakeConn) deliverRaw(t *testing.T, data []byte) {
	t.Helper()
	select {
	case c.inbound <- data:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out delivering message to fake conn")
	}
}

func (c *fakeConn) sent() []streamMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]streamMessage, len(c.writes))
	copy(out, c.writes)
	return out
}

// fakeTransport scripts dial outcomes: the first `failures` dials are
// refused (failAll refuses every dial), the rest hand out fake connections.
type fakeTransport struct {
	mu       sync.Mutex
	failures int
	failAll  bool
	dials    int
	opened   chan *fakeConn
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{opened: make(chan *fakeConn, 8)}
}

func (t *fakeTransport) Dial(ctx context.Context, url string, header http.Header) (StreamConn, error) {
	t.mu.Lock()
	t.dials++
	n := t.dials
	refused := t.failAll || n <= t.failures
	t.mu.Unlock()

	if refused {
		return nil, fmt.Errorf("dial %d refused", n)
	}
	conn := newFakeConn()
	select {
	case t.opened <- conn:
	default:
	}
	return conn, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func waitConn(t *testing.T, transport *fakeTransport) *fakeConn {
	t.Helper()
	select {
	case conn := <-transport.opened:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream connection")
		return nil
	}
}

func nextStatus(t *testing.T, ch <-chan models.SessionStatus) models.SessionStatus {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status change")
		return ""
	}
}

func waitStatus(t *testing.T, ch <-chan models.SessionStatus, want models.SessionStatus) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if st == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %q", want)
		}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func nextBoat(t *testing.T, ch <-chan models.LiveBoat) models.LiveBoat {
	t.Helper()
	select {
	case boat := <-ch:
		return boat
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for position update")
		return models.LiveBoat{}
	}
}

func testClient(transport StreamTransport, rest *RestClient, statusCh chan models.SessionStatus, posCh chan models.LiveBoat) *Client {
	return NewClient(Options{
		Config: ClientConfig{
			StreamURL:     "wss://feed.test/stream",
			APIKey:        "test-key",
			MaxReconnects: 3,
			ReconnectBase: 2 * time.Millisecond,
			PollInterval:  5 * time.Millisecond,
			TrailLength:   5,
			DialTimeout:   time.Second,
		},
		Transport: transport,
		Rest:      rest,
		OnStatus: func(st models.SessionStatus) {
			select {
			case statusCh <- st:
			default:
			}
		},
		OnPosition: func(boat models.LiveBoat) {
			select {
			case posCh <- boat:
			default:
			}
		},
	})
}

func TestConnectHandshakeAndPositionFlow(t *testing.T) {
	transport := newFakeTransport()
	statusCh := make(chan models.SessionStatus, 32)
	posCh := make(chan models.LiveBoat, 64)
	client := testClient(transport, nil, statusCh, posCh)

	if err := client.Connect("ev1", "r1"); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer client.Disconnect()

	if st := nextStatus(t, statusCh); st != models.SessionConnecting {
		t.Fatalf("first status = %q, want connecting", st)
	}
	conn := waitConn(t, transport)
	if st := nextStatus(t, statusCh); st != models.SessionConnected {
		t.Fatalf("second status = %q, want connected", st)
	}

	// Auth first (API key configured), then the subscribe scoped to event/race.
	sent := conn.sent()
	if len(sent) != 2 {
		t.Fatalf("handshake wrote %d messages, want 2", len(sent))
	}
	if sent[0].Type != "auth" || sent[0].APIKey != "test-key" {
		t.Errorf("first handshake message = %+v, want auth with api key", sent[0])
	}
	if sent[1].Type != "subscribe" || sent[1].EventID != "ev1" || sent[1].RaceID != "r1" {
		t.Errorf("second handshake message = %+v, want subscribe ev1/r1", sent[1])
	}

	conn.deliver(t, streamMessage{
		Type: "position", BoatID: "b7", Lat: 37.81, Lng: -122.27,
		TimestampMS: 1700000000000, SpeedKn: 6.2, HeadingDeg: 215,
		SailNumber: "USA 7", BoatName: "Valkyrie",
	})

	boat := nextBoat(t, posCh)
	if boat.ID != "b7" || boat.Lat != 37.81 || boat.Lng != -122.27 {
		t.Errorf("position callback boat = %+v", boat)
	}
	if boat.Color == "" {
		t.Error("boat color not assigned on first sight")
	}
	if len(boat.Trail) != 1 {
		t.Errorf("trail length = %d, want 1", len(boat.Trail))
	}

	cached, ok := client.GetBoatPosition("b7")
	if !ok {
		t.Fatal("boat missing from cache")
	}
	if cached.SailNumber != "USA 7" || cached.Name != "Valkyrie" || !cached.Active {
		t.Errorf("cached boat = %+v", cached)
	}

	// boat_status flips the active flag without touching position state.
	conn.deliver(t, streamMessage{Type: "boat_status", BoatID: "b7", IsActive: boolPtr(false)})
	eventually(t, func() bool {
		b, ok := client.GetBoatPosition("b7")
		return ok && !b.Active
	}, "boat_status did not flip the active flag")

	// race_status, unknown types, and garbage must be dropped, never fatal.
	conn.deliver(t, streamMessage{Type: "race_status", EventID: "ev1", RaceID: "r1"})
	conn.deliver(t, streamMessage{Type: "leaderboard_update", BoatID: "b9"})
	conn.deliverRaw(t, []byte("{not json"))

	conn.deliver(t, streamMessage{Type: "position", BoatID: "b7", Lat: 37.82, Lng: -122.28, TimestampMS: 1700000001000})
	boat = nextBoat(t, posCh)
	if boat.Lat != 37.82 {
		t.Errorf("session did not survive bad messages; boat = %+v", boat)
	}
	if got := client.GetBoatPositions(); len(got) != 1 {
		t.Errorf("boat cache has %d entries, want 1 (bad messages must not create boats)", len(got))
	}
}

func TestStreamCloseReconnectsAndKeepsCache(t *testing.T) {
	transport := newFakeTransport()
	statusCh := make(chan models.SessionStatus, 32)
	posCh := make(chan models.LiveBoat, 64)
	client := testClient(transport, nil, statusCh, posCh)

	if err := client.Connect("ev1", ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer client.Disconnect()

	first := waitConn(t, transport)
	waitStatus(t, statusCh, models.SessionConnected)

	first.deliver(t, streamMessage{Type: "position", BoatID: "b1", Lat: 1, Lng: 2, TimestampMS: 1})
	nextBoat(t, posCh)

	// Cut the line: the client must report the outage, keep the cache, and
	// dial again.
	first.Close()
	waitStatus(t, statusCh, models.SessionError)

	if _, ok := client.GetBoatPosition("b1"); !ok {
		t.Fatal("boat cache cleared during outage; last known positions must survive")
	}

	second := waitConn(t, transport)
	waitStatus(t, statusCh, models.SessionConnected)

	if _, ok := client.GetBoatPosition("b1"); !ok {
		t.Fatal("boat cache lost across reconnect")
	}

	// The new connection redoes the full handshake.
	sent := second.sent()
	if len(sent) != 2 || sent[1].Type != "subscribe" {
		t.Errorf("reconnect handshake = %+v", sent)
	}
}

func TestReconnectsExhaustedFallsBackToPolling(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/ev1/races/r1/boats" {
			t.Errorf("unexpected poll path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode([]models.BoatEntry{
			{ID: "b3", SailNumber: "NZL 3", Lat: -36.84, Lng: 174.76, SpeedKn: 8.1, HeadingDeg: 92, Active: true, TimestampMS: 1700000005000},
		})
	}))
	defer upstream.Close()

	transport := newFakeTransport()
	transport.failAll = true
	statusCh := make(chan models.SessionStatus, 32)
	posCh := make(chan models.LiveBoat, 64)
	rest := NewRestClient(upstream.URL, "test-key", time.Second, nil, 0)
	client := testClient(transport, rest, statusCh, posCh)

	if err := client.Connect("ev1", "r1"); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer client.Disconnect()

	// Synthesized updates must arrive in the streamed shape: same callback,
	// same fields, trail and color included.
	boat := nextBoat(t, posCh)
	if boat.ID != "b3" || boat.Lat != -36.84 || boat.SpeedKn != 8.1 {
		t.Errorf("synthesized position = %+v", boat)
	}
	if boat.Color == "" || len(boat.Trail) == 0 {
		t.Errorf("synthesized update missing trail/color: %+v", boat)
	}

	// Initial dial plus the full retry budget, then no further dials.
	eventually(t, func() bool { return transport.dialCount() == 4 }, "expected 1 initial + 3 reconnect dials")
	if client.Status() != models.SessionConnected {
		t.Errorf("status in polling mode = %q, want connected", client.Status())
	}
	time.Sleep(30 * time.Millisecond)
	if got := transport.dialCount(); got != 4 {
		t.Errorf("polling mode kept dialing: %d dials", got)
	}
}

func TestPollingKeepsCacheOnUpstreamFailure(t *testing.T) {
	var mu sync.Mutex
	healthy := true
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ok := healthy
		mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]models.BoatEntry{{ID: "b9", Lat: 59.33, Lng: 18.07, Active: true}})
	}))
	defer upstream.Close()

	transport := newFakeTransport()
	transport.failAll = true
	statusCh := make(chan models.SessionStatus, 32)
	posCh := make(chan models.LiveBoat, 64)
	rest := NewRestClient(upstream.URL, "", time.Second, nil, 0)
	client := testClient(transport, rest, statusCh, posCh)

	if err := client.Connect("ev1", ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer client.Disconnect()

	nextBoat(t, posCh) // polling is delivering

	mu.Lock()
	healthy = false
	mu.Unlock()

	time.Sleep(25 * time.Millisecond)
	if _, ok := client.GetBoatPosition("b9"); !ok {
		t.Error("boat cache cleared while poll upstream was down")
	}
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	transport := newFakeTransport()
	transport.failAll = true
	statusCh := make(chan models.SessionStatus, 32)

	client := NewClient(Options{
		Config: ClientConfig{
			StreamURL:     "wss://feed.test/stream",
			MaxReconnects: 5,
			ReconnectBase: 50 * time.Millisecond,
			PollInterval:  time.Minute,
			DialTimeout:   time.Second,
		},
		Transport: transport,
		OnStatus: func(st models.SessionStatus) {
			select {
			case statusCh <- st:
			default:
			}
		},
	})

	if err := client.Connect("ev1", ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	// Wait for the first dial to fail, leaving a backoff timer pending.
	eventually(t, func() bool { return transport.dialCount() >= 1 }, "initial dial never happened")
	waitStatus(t, statusCh, models.SessionError)

	client.Disconnect()
	if client.Status() != models.SessionDisconnected {
		t.Fatalf("status after Disconnect = %q", client.Status())
	}

	dials := transport.dialCount()
	time.Sleep(150 * time.Millisecond) // several backoff periods
	if got := transport.dialCount(); got != dials {
		t.Errorf("reconnect timer fired after Disconnect: dials %d -> %d", dials, got)
	}
	if client.Status() != models.SessionDisconnected {
		t.Errorf("client resurrected after Disconnect: %q", client.Status())
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	transport := newFakeTransport()
	statusCh := make(chan models.SessionStatus, 32)
	posCh := make(chan models.LiveBoat, 8)
	client := testClient(transport, nil, statusCh, posCh)

	// No session yet: must be a no-op.
	client.Disconnect()

	if err := client.Connect("ev1", ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	waitConn(t, transport)
	waitStatus(t, statusCh, models.SessionConnected)

	client.Disconnect()
	client.Disconnect()

	if client.Status() != models.SessionDisconnected {
		t.Errorf("status = %q, want disconnected", client.Status())
	}
	if boats := client.GetBoatPositions(); len(boats) != 0 {
		t.Errorf("boat cache not cleared on disconnect: %d boats", len(boats))
	}

	// The client is reusable after a full teardown.
	if err := client.Connect("ev2", ""); err != nil {
		t.Fatalf("reconnect after disconnect failed: %v", err)
	}
	waitConn(t, transport)
	waitStatus(t, statusCh, models.SessionConnected)
	client.Disconnect()
}

func TestConnectRejectsSecondSession(t *testing.T) {
	transport := newFakeTransport()
	statusCh := make(chan models.SessionStatus, 8)
	posCh := make(chan models.LiveBoat, 8)
	client := testClient(transport, nil, statusCh, posCh)

	if err := client.Connect("ev1", ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer client.Disconnect()

	if err := client.Connect("ev2", ""); err == nil {
		t.Error("second Connect succeeded while a session was active")
	}
	if err := client.Connect("", ""); err == nil {
		t.Error("Connect accepted an empty event id")
	}
}

func TestTrailNeverExceedsCap(t *testing.T) {
	transport := newFakeTransport()
	statusCh := make(chan models.SessionStatus, 8)
	posCh := make(chan models.LiveBoat, 128)
	client := testClient(transport, nil, statusCh, posCh)

	if err := client.Connect("ev1", ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer client.Disconnect()
	conn := waitConn(t, transport)

	const updates = 40
	for i := 0; i < updates; i++ {
		conn.deliver(t, streamMessage{
			Type: "position", BoatID: "b1",
			Lat: float64(i), Lng: float64(i), TimestampMS: int64(i),
		})
	}

	eventually(t, func() bool {
		b, ok := client.GetBoatPosition("b1")
		return ok && b.LastUpdateMS == updates-1
	}, "not all updates were applied")

	boat, _ := client.GetBoatPosition("b1")
	if len(boat.Trail) != 5 {
		t.Fatalf("trail length = %d, want cap 5", len(boat.Trail))
	}
	// Oldest evicted first: the trail holds the most recent updates.
	if boat.Trail[0].TimestampMS != updates-5 || boat.Trail[4].TimestampMS != updates-1 {
		t.Errorf("trail window = [%d..%d], want [%d..%d]",
			boat.Trail[0].TimestampMS, boat.Trail[4].TimestampMS, updates-5, updates-1)
	}
}

func boolPtr(b bool) *bool { return &b }
