package transport

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voxchat/voxchat-client/internal/stats"
)

const (
	writeWait            = 10 * time.Second
	heartbeatInterval    = 30 * time.Second
	reconnectDelay       = 3 * time.Second
	maxReconnectAttempts = 5
	presenceTimeout      = 5 * time.Second
)

// Reserved event types. Binary frames are delivered only to EventAudioData
// subscribers; every parsed text envelope additionally fans out to
// EventUnreadUpdate so any inbound activity can refresh unread accounting.
const (
	EventAudioData    = "audio_data"
	EventUnreadUpdate = "unread_update"
)

// Envelope is the JSON frame shape exchanged with the backend.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type pingMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// HandlerFunc receives the raw payload of an event: the JSON of the
// envelope's data field for text frames, the frame bytes for audio frames,
// nil for events with no payload.
type HandlerFunc func(data []byte)

// Subscription is the handle returned by On, used to unsubscribe the exact
// handler it wraps.
type Subscription struct {
	eventType string
	fn        HandlerFunc
}

// PresenceReporter informs the backend of this session's online status.
// Implemented by the REST client.
type PresenceReporter interface {
	SetOnlineStatus(ctx context.Context, status string) error
}

// Client maintains one logical persistent duplex connection to the backend.
// One instance exists per process, owned by main and shared by the call and
// chat list components.
type Client struct {
	wsURL    string
	log      *log.Logger
	stats    stats.StatsProvider
	presence PresenceReporter
	dialer   *websocket.Dialer

	// retryDelay is the linear backoff base, shortened in tests.
	retryDelay time.Duration

	mu                sync.Mutex
	conn              *websocket.Conn
	connecting        bool
	token             string
	handlers          map[string][]*Subscription
	reconnectAttempts int
	manualClose       bool
	generation        int
	heartbeatStop     chan struct{}
	reconnectTimer    *time.Timer

	writeMu sync.Mutex
}

func NewClient(wsURL string, presence PresenceReporter, logger *log.Logger, sp stats.StatsProvider) *Client {
	return &Client{
		wsURL:      wsURL,
		log:        logger,
		stats:      sp,
		presence:   presence,
		dialer:     websocket.DefaultDialer,
		retryDelay: reconnectDelay,
		handlers:   make(map[string][]*Subscription),
	}
}

// Connect opens the socket with the token as a query credential. It is a
// no-op while a connection is already open. Failures are logged, never
// returned; a failed dial counts as an unintentional close and enters the
// reconnect policy.
func (c *Client) Connect(token string) {
	c.mu.Lock()
	if c.conn != nil || c.connecting {
		c.mu.Unlock()
		c.log.Println("websocket already connected")
		return
	}
	c.connecting = true
	c.token = token
	c.manualClose = false
	gen := c.generation
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(c.wsURL+"?token="+url.QueryEscape(token), nil)
	if err != nil {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
		c.log.Printf("websocket dial: %v", err)
		c.scheduleReconnect(gen)
		return
	}

	c.mu.Lock()
	c.connecting = false
	if c.manualClose || gen != c.generation {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.reconnectAttempts = 0
	c.heartbeatStop = make(chan struct{})
	hbStop := c.heartbeatStop
	c.mu.Unlock()

	go c.heartbeat(hbStop)
	go c.reportPresence("online")
	go c.readLoop(conn, gen)
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	defer c.handleClose(gen)

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			c.stats.Incr(stats.MetricAudioFramesIn)
			c.dispatch(EventAudioData, raw)
		case websocket.TextMessage:
			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				c.log.Printf("malformed message: %v", err)
				continue
			}

			c.stats.Incr(stats.MetricMessagesReceived)
			c.dispatch(env.Type, env.Data)
			c.dispatch(EventUnreadUpdate, nil)
		}
	}
}

// handleClose runs once per connection when its read loop exits. An
// unintentional close enters the reconnect policy; Close suppresses it via
// the manual flag and the generation counter.
func (c *Client) handleClose(gen int) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	manual := c.manualClose
	c.mu.Unlock()

	go c.reportPresence("offline")

	if !manual {
		c.scheduleReconnect(gen)
	}
}

// scheduleReconnect arms a linear-backoff retry: delay grows as
// retryDelay × attempt, up to a hard ceiling of attempts, after which the
// client gives up silently.
func (c *Client) scheduleReconnect(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manualClose || gen != c.generation {
		return
	}
	if c.reconnectAttempts >= maxReconnectAttempts {
		return
	}

	c.reconnectAttempts++
	attempt := c.reconnectAttempts
	c.log.Printf("reconnecting (%d/%d)", attempt, maxReconnectAttempts)
	c.stats.Incr(stats.MetricReconnects)

	token := c.token
	c.reconnectTimer = time.AfterFunc(c.retryDelay*time.Duration(attempt), func() {
		c.mu.Lock()
		stale := c.manualClose || gen != c.generation
		c.mu.Unlock()
		if stale {
			return
		}
		c.Connect(token)
	})
}

func (c *Client) heartbeat(stop chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Send(pingMessage{Type: "ping", Timestamp: time.Now().UnixMilli()})
		}
	}
}

// Send serializes v as a text frame. Messages are silently dropped, with a
// logged warning, while the connection is not open; nothing is ever queued.
func (c *Client) Send(v any) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.log.Println("websocket not connected, dropping message")
		c.stats.Incr(stats.MetricDroppedFrames)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.log.Printf("marshal message: %v", err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Printf("write message: %v", err)
		return
	}
	c.stats.Incr(stats.MetricMessagesSent)
}

// SendBinary sends one raw binary frame, used for streaming audio. Same
// drop-when-closed semantics as Send.
func (c *Client) SendBinary(data []byte) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.log.Println("websocket not connected, dropping binary frame")
		c.stats.Incr(stats.MetricDroppedFrames)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		c.log.Printf("write binary frame: %v", err)
		return
	}
	c.stats.Incr(stats.MetricAudioFramesOut)
}

// On subscribes fn to eventType. Handlers for one type run in subscription
// order. The returned handle is the only way to unsubscribe.
func (c *Client) On(eventType string, fn HandlerFunc) *Subscription {
	sub := &Subscription{eventType: eventType, fn: fn}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = append(c.handlers[eventType], sub)
	return sub
}

// Off removes exactly the handler identified by sub; other subscriptions of
// the same type are untouched.
func (c *Client) Off(sub *Subscription) {
	if sub == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.handlers[sub.eventType]
	for i, s := range subs {
		if s == sub {
			c.handlers[sub.eventType] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Trigger synthesizes a locally-originated event so unrelated components can
// react without a network round trip. data is marshaled like an inbound
// envelope's data field; nil means no payload.
func (c *Client) Trigger(eventType string, data any) {
	var raw []byte
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			c.log.Printf("marshal trigger payload: %v", err)
			return
		}
	}

	c.dispatch(eventType, raw)
}

func (c *Client) dispatch(eventType string, data []byte) {
	c.mu.Lock()
	subs := make([]*Subscription, len(c.handlers[eventType]))
	copy(subs, c.handlers[eventType])
	c.mu.Unlock()

	for _, sub := range subs {
		sub.fn(data)
	}
}

// Close marks the closure as intentional, cancels the heartbeat and any
// pending reconnect, best-effort reports offline presence and tears down the
// socket.
func (c *Client) Close() {
	c.mu.Lock()
	c.manualClose = true
	c.generation++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	conn := c.conn
	c.conn = nil
	hasToken := c.token != ""
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		conn.Close()
	}

	if hasToken {
		go c.reportPresence("offline")
	}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) reportPresence(status string) {
	if c.presence == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	if err := c.presence.SetOnlineStatus(ctx, status); err != nil {
		c.log.Printf("set %s status: %v", status, err)
	}
}
