// Package live maintains the connection to the race tracking feed. The
// client holds a persistent streaming connection with reconnect backoff and
// falls back to REST polling when the stream stays down, so downstream
// consumers keep receiving position updates in the same shape regardless of
// transport. All transport failures are recoverable by design: they surface
// through the status callback, never as errors to the caller.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/regattaflow/trackcore/internal/config"
	"github.com/regattaflow/trackcore/internal/logging"
	"github.com/regattaflow/trackcore/internal/metrics"
	"github.com/regattaflow/trackcore/internal/models"
)

// Stream message types. Inbound messages are dispatched on Type; anything
// outside this set is logged and dropped, never fatal.
const (
	msgTypeAuth       = "auth"
	msgTypeSubscribe  = "subscribe"
	msgTypePosition   = "position"
	msgTypeBoatStatus = "boat_status"
	msgTypeRaceStatus = "race_status"
)

// streamMessage is the feed's JSON wire shape, shared by inbound dispatch,
// the outbound auth/subscribe handshake, and synthesized polling updates.
type streamMessage struct {
	Type        string  `json:"type"`
	APIKey      string  `json:"apiKey,omitempty"`
	EventID     string  `json:"eventId,omitempty"`
	RaceID      string  `json:"raceId,omitempty"`
	BoatID      string  `json:"boatId,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
	TimestampMS int64   `json:"timestamp,omitempty"`
	SpeedKn     float64 `json:"speed,omitempty"`
	HeadingDeg  float64 `json:"heading,omitempty"`
	SailNumber  string  `json:"sailNumber,omitempty"`
	BoatName    string  `json:"boatName,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

type eventKind int

// Every change to session state travels through the event loop as one of
// these. The read pump, dialer, reconnect timer, and poller only ever post
// events; they never mutate client state themselves.
const (
	evtOpened eventKind = iota
	evtDialError
	evtMessage
	evtClosed
	evtReconnect
	evtPoll
)

type event struct {
	kind  eventKind
	conn  StreamConn
	data  []byte
	err   error
	boats []models.BoatEntry
}

// ClientConfig tunes one live tracking client.
type ClientConfig struct {
	StreamURL     string
	APIKey        string
	MaxReconnects int
	ReconnectBase time.Duration
	PollInterval  time.Duration
	TrailLength   int
	DialTimeout   time.Duration
}

// ClientConfigFrom maps the loaded service configuration onto client tuning.
func ClientConfigFrom(cfg config.LiveConfig) ClientConfig {
	return ClientConfig{
		StreamURL:     cfg.StreamURL,
		APIKey:        cfg.APIKey,
		MaxReconnects: cfg.MaxReconnects,
		ReconnectBase: time.Duration(cfg.ReconnectBaseMS) * time.Millisecond,
		PollInterval:  time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		TrailLength:   cfg.TrailLength,
		DialTimeout:   time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
	}
}

// Options wires a client together. Transport defaults to the websocket
// transport; Rest is required for the polling fallback and Metrics may be nil.
//
// OnStatus and OnPosition are invoked serially from the client's event loop.
// They must not block (a slow callback stalls message handling) and must not
// call Connect or Disconnect; the snapshot accessors are safe to use.
type Options struct {
	Config     ClientConfig
	Transport  StreamTransport
	Rest       *RestClient
	Metrics    *metrics.MetricsRegistry
	OnStatus   func(models.SessionStatus)
	OnPosition func(models.LiveBoat)
}

// Client is the live tracking client. One session runs at a time: Connect
// starts it, Disconnect tears it down. A single event loop goroutine owns all
// session state, so inbound messages, reconnect scheduling, polling ticks,
// and shutdown are serialized and never observed half-applied.
type Client struct {
	cfg        ClientConfig
	transport  StreamTransport
	rest       *RestClient
	metrics    *metrics.MetricsRegistry
	onStatus   func(models.SessionStatus)
	onPosition func(models.LiveBoat)

	boats *boatCache

	statusMu sync.RWMutex
	status   models.SessionStatus

	mu   sync.Mutex
	sess *session
}

// session is the per-connection-attempt state. It is recreated by every
// Connect; its context doubles as the cancellation flag that keeps late
// timers and dial results from resurrecting a disconnected client.
type session struct {
	eventID string
	raceID  string
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan event
	done    chan struct{}
}

// NewClient builds a client. Missing tuning values fall back to the defaults
// the feed is known to tolerate.
func NewClient(opts Options) *Client {
	cfg := opts.Config
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.TrailLength <= 0 {
		cfg.TrailLength = 50
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	transport := opts.Transport
	if transport == nil {
		transport = NewWebSocketTransport(cfg.DialTimeout)
	}

	return &Client{
		cfg:        cfg,
		transport:  transport,
		rest:       opts.Rest,
		metrics:    opts.Metrics,
		onStatus:   opts.OnStatus,
		onPosition: opts.OnPosition,
		boats:      newBoatCache(cfg.TrailLength),
		status:     models.SessionDisconnected,
	}
}

// Connect opens a live session for an event, optionally scoped to one race.
// It returns immediately; progress is reported through the status callback.
func (c *Client) Connect(eventID, raceID string) error {
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		return fmt.Errorf("live session already active for event %s", c.sess.eventID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		eventID: eventID,
		raceID:  raceID,
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan event, 64),
		done:    make(chan struct{}),
	}
	c.sess = sess
	go c.run(sess)

	logging.Info("live session starting", "event_id", eventID, "race_id", raceID)
	return nil
}

// Disconnect ends the current session: it cancels any pending reconnect and
// polling, closes the stream, clears the boat cache, and reports
// disconnected. Calling it again, or with no session active, is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return
	}

	sess.cancel()
	<-sess.done
}

// Status returns the current session status.
func (c *Client) Status() models.SessionStatus {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Session returns the event and race IDs of the active session.
func (c *Client) Session() (eventID, raceID string, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return "", "", false
	}
	return c.sess.eventID, c.sess.raceID, true
}

// GetBoatPositions returns a snapshot of every cached boat, ordered by ID.
// It never triggers network activity.
func (c *Client) GetBoatPositions() []models.LiveBoat {
	return c.boats.snapshot()
}

// GetBoatPosition returns a snapshot of one boat.
func (c *Client) GetBoatPosition(boatID string) (models.LiveBoat, bool) {
	return c.boats.get(boatID)
}

// Rest exposes the REST accessors of the feed, for callers that want
// snapshot lookups next to the streaming session.
func (c *Client) Rest() *RestClient {
	return c.rest
}

// run is the event loop: the single owner of session state. Everything else
// posts events; only this goroutine acts on them.
func (c *Client) run(sess *session) {
	defer c.finish(sess)

	c.setStatus(models.SessionConnecting)
	c.dial(sess)

	attempts := 0
	polling := false
	var reconnect *time.Timer
	var conn StreamConn

	stop := func() {
		if reconnect != nil {
			reconnect.Stop()
		}
		if conn != nil {
			conn.Close()
		}
	}

	for {
		select {
		case <-sess.ctx.Done():
			stop()
			return

		case ev := <-sess.events:
			// The cancellation check must run before every event, not just
			// rely on timer cancellation: a reconnect timer or dial result
			// racing Disconnect lands here and must not reopen anything.
			if sess.ctx.Err() != nil {
				if ev.kind == evtOpened && ev.conn != nil {
					ev.conn.Close()
				}
				stop()
				return
			}

			switch ev.kind {
			case evtOpened:
				conn = ev.conn
				attempts = 0
				c.setStatus(models.SessionConnected)
				go c.readPump(sess, conn)
				logging.Info("live stream connected", "event_id", sess.eventID, "race_id", sess.raceID)

			case evtDialError:
				if polling {
					break
				}
				logging.Warn("live stream dial failed", "error", ev.err, "attempt", attempts)
				c.setStatus(models.SessionError)
				attempts = c.scheduleRetry(sess, attempts, &reconnect, &polling)

			case evtClosed:
				if conn != nil {
					conn.Close()
					conn = nil
				}
				if polling {
					break
				}
				logging.Warn("live stream closed unexpectedly", "error", ev.err)
				c.setStatus(models.SessionError)
				attempts = c.scheduleRetry(sess, attempts, &reconnect, &polling)

			case evtReconnect:
				c.setStatus(models.SessionConnecting)
				if c.metrics != nil {
					c.metrics.LiveReconnectsTotal.Inc()
				}
				c.dial(sess)

			case evtMessage:
				c.handleMessage(ev.data)

			case evtPoll:
				if ev.boats == nil {
					// Upstream outage: keep the last known-good cache rather
					// than clearing it.
					logging.Warn("poll snapshot unavailable, keeping cached positions", "event_id", sess.eventID)
					break
				}
				c.setStatus(models.SessionConnected)
				for _, entry := range ev.boats {
					c.handlePosition(positionFromEntry(entry), true)
				}
			}
		}
	}
}

// scheduleRetry books the next reconnect attempt with exponential backoff,
// or switches to REST polling once the attempt budget is spent.
func (c *Client) scheduleRetry(sess *session, attempts int, reconnect **time.Timer, polling *bool) int {
	attempts++
	if attempts > c.cfg.MaxReconnects {
		logging.Warn("live stream reconnects exhausted, falling back to REST polling",
			"attempts", attempts-1,
			"poll_interval", c.cfg.PollInterval,
		)
		*polling = true
		go c.pollLoop(sess)
		return attempts
	}

	delay := c.cfg.ReconnectBase * (1 << (attempts - 1))
	logging.Info("scheduling live stream reconnect", "attempt", attempts, "delay", delay)
	*reconnect = time.AfterFunc(delay, func() {
		c.post(sess, event{kind: evtReconnect})
	})
	return attempts
}

// finish is the single teardown path for a session.
func (c *Client) finish(sess *session) {
	c.mu.Lock()
	if c.sess == sess {
		c.sess = nil
	}
	c.mu.Unlock()

	c.boats.clear()
	if c.metrics != nil {
		c.metrics.LiveBoats.Set(0)
	}
	c.setStatus(models.SessionDisconnected)
	logging.Info("live session ended", "event_id", sess.eventID)
	close(sess.done)
}

func (c *Client) setStatus(status models.SessionStatus) {
	c.statusMu.Lock()
	changed := c.status != status
	c.status = status
	c.statusMu.Unlock()

	if changed && c.onStatus != nil {
		c.onStatus(status)
	}
}

// post delivers an event to the loop unless the session is already canceled.
func (c *Client) post(sess *session, ev event) bool {
	select {
	case sess.events <- ev:
		return true
	case <-sess.ctx.Done():
		return false
	}
}

// dial opens the stream asynchronously and runs the auth/subscribe handshake
// before handing the connection to the loop, so the loop itself never blocks
// on I/O.
func (c *Client) dial(sess *session) {
	go func() {
		ctx, cancel := context.WithTimeout(sess.ctx, c.cfg.DialTimeout)
		defer cancel()

		conn, err := c.transport.Dial(ctx, c.cfg.StreamURL, nil)
		if err != nil {
			c.post(sess, event{kind: evtDialError, err: err})
			return
		}
		if err := c.handshake(sess, conn); err != nil {
			conn.Close()
			c.post(sess, event{kind: evtDialError, err: err})
			return
		}
		if !c.post(sess, event{kind: evtOpened, conn: conn}) {
			conn.Close()
		}
	}()
}

func (c *Client) handshake(sess *session, conn StreamConn) error {
	if c.cfg.APIKey != "" {
		if err := conn.WriteJSON(streamMessage{Type: msgTypeAuth, APIKey: c.cfg.APIKey}); err != nil {
			return fmt.Errorf("send auth: %w", err)
		}
	}
	sub := streamMessage{Type: msgTypeSubscribe, EventID: sess.eventID, RaceID: sess.raceID}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	return nil
}

// readPump converts blocking stream reads into loop events. It exits when
// the connection dies or the session is canceled.
func (c *Client) readPump(sess *session, conn StreamConn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.post(sess, event{kind: evtClosed, err: err})
			return
		}
		if !c.post(sess, event{kind: evtMessage, data: data}) {
			return
		}
	}
}

// pollLoop is the REST fallback. The snapshot fetch happens here, outside
// the event loop, so message handling never blocks on it. A nil result marks
// an upstream failure and is distinguished from an empty boat list.
func (c *Client) pollLoop(sess *session) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var boats []models.BoatEntry
		if c.rest != nil {
			boats = c.rest.GetBoats(sess.ctx, sess.eventID, sess.raceID)
		}
		if !c.post(sess, event{kind: evtPoll, boats: boats}) {
			return
		}
		select {
		case <-ticker.C:
		case <-sess.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches one inbound message by its type tag. Malformed or
// unknown messages are logged and dropped; the session continues.
func (c *Client) handleMessage(data []byte) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Warn("dropping malformed stream message", "error", err)
		return
	}

	if c.metrics != nil {
		c.metrics.LiveMessagesTotal.WithLabelValues(messageTypeLabel(msg.Type)).Inc()
	}

	switch msg.Type {
	case msgTypePosition:
		if msg.BoatID == "" {
			logging.Warn("dropping position message without boat id")
			return
		}
		c.handlePosition(msg, false)

	case msgTypeBoatStatus:
		if msg.BoatID == "" || msg.IsActive == nil {
			logging.Warn("dropping incomplete boat_status message", "boat_id", msg.BoatID)
			return
		}
		if !c.boats.setActive(msg.BoatID, *msg.IsActive) {
			logging.Debug("boat_status for unseen boat", "boat_id", msg.BoatID)
		}

	case msgTypeRaceStatus:
		// Observational only; no client state depends on it.
		logging.Debug("race status update", "event_id", msg.EventID, "race_id", msg.RaceID)

	default:
		logging.Debug("ignoring unknown stream message", "type", msg.Type)
	}
}

func (c *Client) handlePosition(msg streamMessage, synthesized bool) {
	boat := c.boats.upsert(msg)

	if c.metrics != nil {
		c.metrics.LiveBoats.Set(float64(c.boats.len()))
		if synthesized {
			c.metrics.LivePollEventsTotal.Inc()
		}
	}
	if c.onPosition != nil {
		c.onPosition(boat)
	}
}

// positionFromEntry synthesizes a position message from a REST boat snapshot
// so polled updates travel the same path, and arrive in the same shape, as
// streamed ones.
func positionFromEntry(entry models.BoatEntry) streamMessage {
	ts := entry.TimestampMS
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	active := entry.Active
	return streamMessage{
		Type:        msgTypePosition,
		BoatID:      entry.ID,
		Lat:         entry.Lat,
		Lng:         entry.Lng,
		TimestampMS: ts,
		SpeedKn:     entry.SpeedKn,
		HeadingDeg:  entry.HeadingDeg,
		SailNumber:  entry.SailNumber,
		BoatName:    entry.Name,
		IsActive:    &active,
	}
}

// messageTypeLabel clamps arbitrary inbound type tags to a fixed label set so
// a misbehaving feed cannot blow up metric cardinality.
func messageTypeLabel(t string) string {
	switch t {
	case msgTypePosition, msgTypeBoatStatus, msgTypeRaceStatus:
		return t
	default:
		return "other"
	}
}
