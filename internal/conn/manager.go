// Package conn owns the socket lifecycle for the live event channel:
// connect, detect closure, reconnect after a fixed delay, and a best-effort
// send primitive. At most one live connection exists per manager; the state
// machine is guarded by a mutex since frames, timers and callers arrive on
// different goroutines.
package conn

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/finchley/flowdeck/internal/log"
	"github.com/finchley/flowdeck/internal/pubsub"
)

// State is the connection lifecycle state.
type State int

const (
	// StateIdle means no connection has been requested yet.
	StateIdle State = iota
	// StateConnecting means a dial is in flight.
	StateConnecting
	// StateOpen means the socket is live and serving frames.
	StateOpen
	// StateClosed means the socket dropped and a reconnect is pending.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultReconnectDelay is the fixed wait before a reconnect attempt.
// Deliberately not exponential: the channel is best-effort and node counts
// are low, so a constant interval keeps behavior predictable.
const DefaultReconnectDelay = 3 * time.Second

// FrameHandler processes one raw incoming frame. A handler failure must
// never propagate; handlers log and swallow their own errors.
type FrameHandler func(raw []byte)

// Config configures a Manager.
type Config struct {
	// URL is the socket endpoint (ws:// or wss://), usually from DeriveURL.
	URL string
	// ReconnectDelay overrides DefaultReconnectDelay when positive.
	ReconnectDelay time.Duration
	// HandshakeTimeout bounds the dial. Zero means the dialer default.
	HandshakeTimeout time.Duration
}

// Manager maintains exactly one live connection to the event endpoint.
// Lifecycle: Idle -> Connecting -> Open -> Closed -> Connecting -> ...
// Reconnection is driven solely by the close signal; transport errors are
// logged and left to the close that follows them.
type Manager struct {
	mu        sync.Mutex
	cfg       Config
	dialer    *websocket.Dialer
	state     State
	ws        *websocket.Conn
	active    bool
	reconnect *time.Timer
	gen       int // connection generation; stale read loops are ignored
	handler   FrameHandler
	broker    *pubsub.Broker[State]
}

// NewManager creates a manager. The handler receives every raw frame from
// the live socket; it must not panic (a recovered panic is logged and the
// connection keeps serving).
func NewManager(cfg Config, handler FrameHandler) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	dialer := &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	return &Manager{
		cfg:     cfg,
		dialer:  dialer,
		state:   StateIdle,
		active:  true,
		handler: handler,
		broker:  pubsub.NewBroker[State](),
	}
}

// Broker exposes state transitions for subscribers (the UI's connection
// indicator).
func (m *Manager) Broker() *pubsub.Broker[State] {
	return m.broker
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes the connection. It is an idempotent re-entry guard:
// while a dial is in flight or the socket is open it does nothing, so
// repeated invocations can never produce a second socket.
func (m *Manager) Connect() {
	m.mu.Lock()
	if !m.active || m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateConnecting)
	gen := m.gen
	m.mu.Unlock()

	log.SafeGo("conn.dial", func() { m.dial(gen) })
}

func (m *Manager) dial(gen int) {
	log.Info(log.CatConn, "dialing event endpoint", "url", m.cfg.URL)
	ws, resp, err := m.dialer.Dial(m.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	m.mu.Lock()
	if !m.active || m.gen != gen {
		m.mu.Unlock()
		if ws != nil {
			_ = ws.Close()
		}
		return
	}

	if err != nil {
		// Dial failure behaves like a close: schedule the fixed-delay retry.
		m.setStateLocked(StateClosed)
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		log.ErrorErr(log.CatConn, "dial failed", err, "retryIn", m.cfg.ReconnectDelay)
		return
	}

	m.ws = ws
	m.gen++
	readGen := m.gen
	m.setStateLocked(StateOpen)
	m.mu.Unlock()

	log.Info(log.CatConn, "connection open", "url", m.cfg.URL)
	log.SafeGo("conn.readLoop", func() { m.readLoop(ws, readGen) })
}

// readLoop serves frames until the socket errors or closes. One bad frame
// never ends the loop; only a transport-level read error does.
func (m *Manager) readLoop(ws *websocket.Conn, gen int) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			log.Warn(log.CatConn, "connection closed", "reason", err.Error())
			m.onClosed(gen)
			return
		}
		m.handleFrame(raw)
	}
}

func (m *Manager) handleFrame(raw []byte) {
	if m.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatConn, "frame handler panic", "panic", fmt.Sprintf("%v", r))
		}
	}()
	m.handler(raw)
}

// onClosed runs when the read loop ends. The active flag is re-checked here
// so a teardown that raced the close never arms a reconnect.
func (m *Manager) onClosed(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active || m.gen != gen {
		return
	}
	if m.ws != nil {
		_ = m.ws.Close()
		m.ws = nil
	}
	m.setStateLocked(StateClosed)
	m.scheduleReconnectLocked()
	log.Info(log.CatConn, "reconnect scheduled", "delay", m.cfg.ReconnectDelay)
}

// scheduleReconnectLocked arms the single pending reconnect timer.
// Callers hold m.mu.
func (m *Manager) scheduleReconnectLocked() {
	if m.reconnect != nil {
		m.reconnect.Stop()
	}
	m.reconnect = time.AfterFunc(m.cfg.ReconnectDelay, m.onReconnectTimer)
}

// onReconnectTimer fires after the fixed delay. A torn-down manager turns
// the pending timer into a no-op.
func (m *Manager) onReconnectTimer() {
	m.mu.Lock()
	m.reconnect = nil
	if !m.active || m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.Connect()
}

// Send serializes v and transmits it only while the connection is open;
// otherwise the message is silently dropped. At-most-once, best-effort:
// no queuing, no error surfaced to the caller.
func (m *Manager) Send(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateOpen || m.ws == nil {
		log.Debug(log.CatConn, "send dropped, connection not open", "state", m.state)
		return
	}
	if err := m.ws.WriteJSON(v); err != nil {
		// The read loop will observe the failure and drive reconnection.
		log.ErrorErr(log.CatConn, "send failed", err)
	}
}

// Teardown releases the manager: the pending reconnect timer becomes a
// no-op, the timer is cancelled, and a live socket is closed. Safe to call
// multiple times.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = false
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	if m.ws != nil {
		_ = m.ws.Close()
		m.ws = nil
	}
	m.setStateLocked(StateIdle)
	log.Info(log.CatConn, "connection manager torn down")
}

// setStateLocked updates state and notifies subscribers. Callers hold m.mu.
func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	m.broker.Publish(s)
}
