package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// sinkCapacity bounds each session's outbound queue. A consumer that
// falls this far behind is evicted rather than allowed to block the
// broadcast path.
const sinkCapacity = 64

// Session binds a player identity to its current transport. The sink is
// a queue of pre-serialized frames drained by the connection's write
// pump; the registry only ever enqueues, never blocks.
type Session struct {
	playerID       string
	name           string
	sink           chan []byte
	sinkClosed     bool
	active         bool
	connectedAt    time.Time
	lastActivity   time.Time
	disconnectedAt time.Time
}

// SessionStats summarizes the registry for the /stats endpoint
type SessionStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// SessionRegistry tracks every player's session. A session survives
// transport loss for a grace window so the same identity can re-attach
// and resume mid-game; after the window a sweep purges it.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	grace    time.Duration
	clock    quartz.Clock
	logger   *log.Logger
}

// NewSessionRegistry creates an empty registry with the given reconnect
// grace window.
func NewSessionRegistry(grace time.Duration, clock quartz.Clock, logger *log.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		grace:    grace,
		clock:    clock,
		logger:   logger.WithPrefix("session"),
	}
}

// Grace returns the reconnect grace window
func (r *SessionRegistry) Grace() time.Duration {
	return r.grace
}

// Attach binds a transport sink to an identity. Returns true when this
// is a reconnect: the identity had a session that went inactive within
// the grace window. A stale session past the window is discarded and
// the attach proceeds as first-time. If the identity already has an
// active transport the old sink is closed and replaced, keeping one
// active transport per identity.
func (r *SessionRegistry) Attach(playerID, name string, sink chan []byte) (reconnected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	existing := r.sessions[playerID]

	if existing != nil {
		switch {
		case existing.active:
			r.logger.Info("Replacing active transport", "player_id", playerID)
			r.closeSinkLocked(existing)
		case now.Sub(existing.disconnectedAt) <= r.grace:
			reconnected = true
		default:
			r.logger.Debug("Discarding session past grace", "player_id", playerID)
		}
	}

	r.sessions[playerID] = &Session{
		playerID:     playerID,
		name:         name,
		sink:         sink,
		active:       true,
		connectedAt:  now,
		lastActivity: now,
	}
	r.logger.Info("Session attached", "player_id", playerID, "reconnected", reconnected)
	return reconnected
}

// Detach marks the session inactive and starts its grace window. The
// sink must be the session's current one; a detach from a transport
// that has already been replaced by a reconnect is ignored. Returns the
// other active identities so the caller can broadcast PlayerLeft, and
// whether the detach applied.
func (r *SessionRegistry) Detach(playerID string, sink chan []byte) (others []string, wasCurrent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.sessions[playerID]
	if session == nil || session.sink != sink {
		return nil, false
	}

	session.active = false
	session.disconnectedAt = r.clock.Now()
	r.logger.Info("Session detached", "player_id", playerID)

	for id, s := range r.sessions {
		if id != playerID && s.active {
			others = append(others, id)
		}
	}
	return others, true
}

// Send serializes a message and enqueues it for one player. Absent or
// inactive sessions drop the message with a warning.
func (r *SessionRegistry) Send(playerID string, msg *Message) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enqueueLocked(playerID, msg.Type, frame)
}

// Broadcast serializes a message once and enqueues the frame for each
// recipient. Per-recipient failures are isolated: a dead or slow
// session never affects the others.
func (r *SessionRegistry) Broadcast(playerIDs []string, msg *Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("Failed to serialize broadcast", "type", msg.Type, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range playerIDs {
		if err := r.enqueueLocked(id, msg.Type, frame); err != nil {
			r.logger.Warn("Dropped broadcast for recipient", "player_id", id, "type", msg.Type, "error", err)
		}
	}
}

// enqueueLocked puts a frame on a session's sink without blocking. A
// full sink means the consumer stopped draining; the session is marked
// inactive and its sink closed so the write pump shuts down.
func (r *SessionRegistry) enqueueLocked(playerID string, msgType MessageType, frame []byte) error {
	session := r.sessions[playerID]
	if session == nil || !session.active || session.sinkClosed {
		return ErrTransportClosed
	}

	select {
	case session.sink <- frame:
		return nil
	default:
		r.logger.Warn("Session sink full, evicting slow consumer", "player_id", playerID, "type", msgType)
		r.closeSinkLocked(session)
		session.active = false
		session.disconnectedAt = r.clock.Now()
		return ErrTransportClosed
	}
}

func (r *SessionRegistry) closeSinkLocked(session *Session) {
	if !session.sinkClosed {
		close(session.sink)
		session.sinkClosed = true
	}
}

// Touch bumps the session's last-activity time
func (r *SessionRegistry) Touch(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session := r.sessions[playerID]; session != nil {
		session.lastActivity = r.clock.Now()
	}
}

// Has reports whether the identity still has a session, active or
// within its grace window.
func (r *SessionRegistry) Has(playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[playerID] != nil
}

// Name returns the display name the identity authenticated with
func (r *SessionRegistry) Name(playerID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if session := r.sessions[playerID]; session != nil {
		return session.name
	}
	return ""
}

// ActiveIDs returns every identity with a live transport
func (r *SessionRegistry) ActiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id, s := range r.sessions {
		if s.active {
			ids = append(ids, id)
		}
	}
	return ids
}

// Sweep removes sessions whose grace window elapsed before now and
// returns their identities so the caller can clean up lobby membership
// and abandoned games.
func (r *SessionRegistry) Sweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept []string
	for id, session := range r.sessions {
		if session.active || now.Sub(session.disconnectedAt) <= r.grace {
			continue
		}
		r.closeSinkLocked(session)
		delete(r.sessions, id)
		swept = append(swept, id)
	}
	if len(swept) > 0 {
		r.logger.Info("Swept expired sessions", "count", len(swept))
	}
	return swept
}

// Len returns the number of tracked sessions, used for the connection
// admission cap.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Stats summarizes sessions for diagnostics
func (r *SessionRegistry) Stats() SessionStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := SessionStats{Total: len(r.sessions)}
	for _, s := range r.sessions {
		if s.active {
			stats.Active++
		} else {
			stats.Inactive++
		}
	}
	return stats
}
