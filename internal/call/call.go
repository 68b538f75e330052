package call

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxchat/voxchat-client/internal/stats"
	"github.com/voxchat/voxchat-client/internal/transport"
	"github.com/voxchat/voxchat-client/internal/types"
)

type State string

const (
	StateIdle      State = "idle"
	StateCalling   State = "calling"
	StateIncoming  State = "incoming"
	StateConnected State = "connected"
	StateEnded     State = "ended"
)

type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Peer identifies the remote party of a call.
type Peer struct {
	Id     int
	Name   string
	Avatar string
}

// Session tracks one voice call's lifecycle. At most one non-terminal
// session exists per client process; a second incoming request is
// auto-rejected with a busy signal while one is live.
type Session struct {
	Peer      Peer
	Direction Direction
	State     State
	StartedAt time.Time
	Duration  int
	Muted     bool
}

// Signaler is the slice of the transport the call manager depends on.
type Signaler interface {
	Send(v any)
	SendBinary(data []byte)
	On(eventType string, fn transport.HandlerFunc) *transport.Subscription
	Off(sub *transport.Subscription)
}

// Manager drives the call session state machine from transport signals and
// user actions.
type Manager struct {
	ts    Signaler
	audio Audio
	log   *log.Logger
	stats stats.StatsProvider
	self  types.User

	// notify surfaces peer-side terminations (rejected, busy, failed,
	// ended, cancelled) to the UI. Optional.
	notify func(reason string)
	// onChange reports every state transition with a session snapshot.
	// Optional.
	onChange func(Session)

	muted atomic.Bool

	mu           sync.Mutex
	session      *Session
	audioStarted bool
	timerStop    chan struct{}
	subs         []*transport.Subscription
}

func NewManager(ts Signaler, audio Audio, self types.User, logger *log.Logger, sp stats.StatsProvider) *Manager {
	if audio == nil {
		audio = NullAudio{}
	}
	return &Manager{
		ts:    ts,
		audio: audio,
		log:   logger,
		stats: sp,
		self:  self,
	}
}

// SetNotifier installs the callback surfacing peer-side call terminations.
func (m *Manager) SetNotifier(fn func(reason string)) { m.notify = fn }

// SetOnChange installs the state transition callback.
func (m *Manager) SetOnChange(fn func(Session)) { m.onChange = fn }

// Start subscribes the manager to the signaling and audio events it drives
// the state machine with. Stop undoes it.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs = []*transport.Subscription{
		m.ts.On(sigIncoming, m.handleIncoming),
		m.ts.On(sigCancelled, m.handleCancelled),
		m.ts.On(sigConnected, m.handleConnected),
		m.ts.On(sigRejected, m.handleTerminated),
		m.ts.On(sigBusy, m.handleTerminated),
		m.ts.On(sigFailed, m.handleTerminated),
		m.ts.On(sigEnded, m.handleTerminated),
		m.ts.On(transport.EventAudioData, m.handleAudioData),
	}
}

func (m *Manager) Stop() {
	m.mu.Lock()
	subs := m.subs
	m.subs = nil
	active := m.session != nil
	m.mu.Unlock()

	for _, sub := range subs {
		m.ts.Off(sub)
	}

	if active {
		m.Hangup()
	}
}

// Call initiates an outgoing call. The peer id is pinned immediately so a
// concurrent second call cannot start.
func (m *Manager) Call(peer Peer) error {
	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return ErrCallInProgress
	}
	m.session = &Session{
		Peer:      peer,
		Direction: DirectionOutgoing,
		State:     StateCalling,
	}
	snapshot := *m.session
	m.mu.Unlock()

	m.ts.Send(callRequest{
		Type:         sigRequest,
		ToUserId:     peer.Id,
		CallerName:   m.self.Username,
		CallerAvatar: m.self.Avatar,
	})

	m.stateChanged(snapshot)
	return nil
}

// Accept answers an incoming call. The transition to connected happens only
// on the backend's confirmation signal.
func (m *Manager) Accept() {
	m.mu.Lock()
	if m.session == nil || m.session.State != StateIncoming {
		m.mu.Unlock()
		return
	}
	callerId := m.session.Peer.Id
	m.mu.Unlock()

	m.ts.Send(callAccept{
		Type:           sigAccept,
		CallerId:       callerId,
		ReceiverName:   m.self.Username,
		ReceiverAvatar: m.self.Avatar,
	})
}

// Reject declines an incoming call and returns to idle.
func (m *Manager) Reject() {
	m.mu.Lock()
	if m.session == nil || m.session.State != StateIncoming {
		m.mu.Unlock()
		return
	}
	callerId := m.session.Peer.Id
	m.mu.Unlock()

	m.ts.Send(callReject{Type: sigReject, CallerId: callerId})
	m.endCall()
}

// Hangup ends the call from this side: a cancel signal before the call is
// connected, a hangup signal once it is.
func (m *Manager) Hangup() {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	state := m.session.State
	peerId := m.session.Peer.Id
	m.mu.Unlock()

	if state == StateCalling {
		m.ts.Send(callCancel{Type: sigCancel, ReceiverId: peerId})
	} else {
		m.ts.Send(callHangup{Type: sigHangup})
	}
	m.endCall()
}

// ToggleMute flips the mute flag and returns the new value. Muting
// suppresses outbound frames without stopping capture.
func (m *Manager) ToggleMute() bool {
	muted := !m.muted.Load()
	m.muted.Store(muted)

	m.mu.Lock()
	if m.session != nil {
		m.session.Muted = muted
	}
	m.mu.Unlock()

	return muted
}

// Session returns a snapshot of the active session, or false when idle.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

func (m *Manager) handleIncoming(data []byte) {
	var p incomingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		m.log.Printf("bad incoming call payload: %v", err)
		return
	}

	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		// Busy: auto-reject without touching the live session.
		m.log.Printf("rejecting call from %d, call in progress", p.CallerId)
		m.ts.Send(callReject{Type: sigReject, CallerId: p.CallerId})
		return
	}
	m.session = &Session{
		Peer:      Peer{Id: p.CallerId, Name: p.CallerName, Avatar: p.CallerAvatar},
		Direction: DirectionIncoming,
		State:     StateIncoming,
	}
	snapshot := *m.session
	m.mu.Unlock()

	m.stateChanged(snapshot)
}

// handleCancelled is acted on only while a call is ringing locally; a
// cancel for anything else is an unknown signal and is ignored.
func (m *Manager) handleCancelled(data []byte) {
	m.mu.Lock()
	relevant := m.session != nil && m.session.State == StateIncoming
	m.mu.Unlock()
	if !relevant {
		return
	}

	m.notifyReason(data, "call cancelled by peer")
	m.endCall()
}

func (m *Manager) handleConnected(data []byte) {
	m.mu.Lock()
	if m.session == nil || m.session.State == StateConnected {
		m.mu.Unlock()
		return
	}
	m.session.State = StateConnected
	m.session.StartedAt = time.Now()
	m.timerStop = make(chan struct{})
	timerStop := m.timerStop
	snapshot := *m.session
	m.mu.Unlock()

	m.stats.Incr(stats.MetricActiveCalls)

	if err := m.startAudio(); err != nil {
		m.log.Printf("audio setup: %v", err)
		if m.notify != nil {
			m.notify("call failed: audio unavailable")
		}
		m.ts.Send(callHangup{Type: sigHangup})
		m.endCall()
		return
	}

	go m.runTimer(timerStop)
	m.stateChanged(snapshot)
}

func (m *Manager) startAudio() error {
	if err := m.audio.Init(); err != nil {
		return err
	}

	m.mu.Lock()
	m.audioStarted = true
	m.mu.Unlock()

	return m.audio.StartCapture(func(frame []byte) {
		if m.muted.Load() {
			return
		}
		m.ts.SendBinary(frame)
	})
}

func (m *Manager) handleTerminated(data []byte) {
	m.mu.Lock()
	active := m.session != nil
	m.mu.Unlock()
	if !active {
		// A termination signal with no matching session is ignored.
		return
	}

	m.notifyReason(data, "call ended")
	m.endCall()
}

func (m *Manager) handleAudioData(frame []byte) {
	m.mu.Lock()
	connected := m.session != nil && m.session.State == StateConnected
	m.mu.Unlock()
	if !connected {
		return
	}

	if err := m.audio.Play(frame); err != nil {
		m.log.Printf("play audio frame: %v", err)
	}
}

func (m *Manager) runTimer(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.session != nil {
				m.session.Duration++
			}
			m.mu.Unlock()
		}
	}
}

// endCall is the single teardown routine reachable from every terminal
// edge. It stops the duration counter, releases the audio resources exactly
// once and returns the machine to idle.
func (m *Manager) endCall() {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	wasConnected := m.session.State == StateConnected
	releaseAudio := m.audioStarted
	m.audioStarted = false
	if m.timerStop != nil {
		close(m.timerStop)
		m.timerStop = nil
	}
	ended := *m.session
	ended.State = StateEnded
	m.session = nil
	m.mu.Unlock()

	m.muted.Store(false)

	if releaseAudio {
		m.audio.Cleanup()
	}
	if wasConnected {
		m.stats.Decr(stats.MetricActiveCalls)
	}

	m.stateChanged(ended)
}

func (m *Manager) notifyReason(data []byte, fallback string) {
	reason := fallback
	var p reasonPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err == nil && p.Reason != "" {
			reason = p.Reason
		}
	}

	m.log.Println(reason)
	if m.notify != nil {
		m.notify(reason)
	}
}

func (m *Manager) stateChanged(s Session) {
	if m.onChange != nil {
		m.onChange(s)
	}
}
