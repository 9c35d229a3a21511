package server

import (
	"crypto/rand"
	"encoding/binary"
	rand2 "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/gbridge/internal/audit"
	"github.com/lox/gbridge/internal/game"
	"github.com/lox/gbridge/internal/gameid"
	"github.com/lox/gbridge/internal/randutil"
)

// gameEntry pairs a game with the mutex that serializes all access to
// it. Different games progress in parallel; one game's actions, timer
// expiries, and view reads all run under this lock.
type gameEntry struct {
	mu          sync.Mutex
	id          string
	players     []string
	state       *game.State
	turnTimeout time.Duration
	removed     bool
}

// GameRegistry owns every active game. It serializes mutation per game,
// emits the resulting broadcasts in a fixed order while still holding
// the game's lock (the session sinks are enqueue-only, so this never
// blocks), and arms the turn timer for whoever acts next.
type GameRegistry struct {
	mu       sync.RWMutex
	games    map[string]*gameEntry
	sessions *SessionRegistry
	timers   *TimerService
	recorder *audit.Recorder
	clock    quartz.Clock
	logger   *log.Logger

	defaultTurnTimeout time.Duration

	// newRNG seeds each game's shuffles; tests swap in a fixed seed
	newRNG func() *rand2.Rand
}

// NewGameRegistry creates an empty registry. The recorder may be nil,
// in which case no audit events are written.
func NewGameRegistry(sessions *SessionRegistry, timers *TimerService, recorder *audit.Recorder, clock quartz.Clock, defaultTurnTimeout time.Duration, logger *log.Logger) *GameRegistry {
	return &GameRegistry{
		games:              make(map[string]*gameEntry),
		sessions:           sessions,
		timers:             timers,
		recorder:           recorder,
		clock:              clock,
		logger:             logger.WithPrefix("game"),
		defaultTurnTimeout: defaultTurnTimeout,
		newRNG:             seededRNG,
	}
}

func seededRNG() *rand2.Rand {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("failed to seed game rng: " + err.Error())
	}
	return randutil.New(int64(binary.LittleEndian.Uint64(buf[:])))
}

// CreateGame starts a game for the players in the given turn order:
// deals round 1, broadcasts GameStarting and each player's initial
// view, and arms the first turn timer. A non-positive turnTimeout uses
// the server default.
func (r *GameRegistry) CreateGame(players []string, turnTimeout time.Duration) (string, error) {
	if turnTimeout <= 0 {
		turnTimeout = r.defaultTurnTimeout
	}

	state, err := game.NewState(players, r.newRNG())
	if err != nil {
		return "", err
	}

	entry := &gameEntry{
		id:          gameid.Generate(gameid.KindGame),
		players:     append([]string(nil), players...),
		state:       state,
		turnTimeout: turnTimeout,
	}

	r.mu.Lock()
	r.games[entry.id] = entry
	r.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	r.logger.Info("Game created", "game_id", entry.id, "players", len(players), "max_rounds", state.MaxRounds())
	r.audit(audit.NewEvent(entry.id, audit.EventGameCreated, "", map[string]any{
		"players":    players,
		"max_rounds": state.MaxRounds(),
	}))

	r.broadcastLocked(entry, MessageTypeGameStarting, GameStartingPayload{GameID: entry.id})
	r.sendViewsLocked(entry)
	r.armLocked(entry)

	return entry.id, nil
}

// HandleAction applies a player action to a game. Validation errors
// come back to the caller and leave the game untouched.
func (r *GameRegistry) HandleAction(gameID, player string, action game.Action) error {
	entry := r.lookup(gameID)
	if entry == nil {
		return ErrGameNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return ErrGameNotFound
	}
	return r.applyLocked(entry, player, action)
}

// PlayerView returns the player's current projection of a game
func (r *GameRegistry) PlayerView(gameID, player string) (game.View, error) {
	entry := r.lookup(gameID)
	if entry == nil {
		return game.View{}, ErrGameNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return game.View{}, ErrGameNotFound
	}

	view, err := entry.state.PlayerView(player)
	if err != nil {
		return game.View{}, err
	}
	view.GameID = entry.id
	return view, nil
}

// EndGame removes a game and cancels its timer. Used for cleanup paths;
// normal completion removes the game itself.
func (r *GameRegistry) EndGame(gameID string) {
	r.mu.Lock()
	entry := r.games[gameID]
	delete(r.games, gameID)
	r.mu.Unlock()

	r.timers.Cancel(gameID)
	if entry != nil {
		entry.mu.Lock()
		entry.removed = true
		entry.mu.Unlock()
		r.logger.Info("Game ended", "game_id", gameID)
	}
}

// Abandon ends a game whose players are all gone
func (r *GameRegistry) Abandon(gameID string) {
	r.EndGame(gameID)
	r.audit(audit.NewEvent(gameID, audit.EventGameAbandoned, "", nil))
}

// Players returns a game's participant list
func (r *GameRegistry) Players(gameID string) ([]string, bool) {
	entry := r.lookup(gameID)
	if entry == nil {
		return nil, false
	}
	return append([]string(nil), entry.players...), true
}

// ActiveGames returns the number of games in progress
func (r *GameRegistry) ActiveGames() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

func (r *GameRegistry) lookup(gameID string) *gameEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.games[gameID]
}

// applyLocked runs an action through the state machine and fans out the
// consequences. Broadcasts are enqueued under the entry lock so every
// recipient observes the same order.
func (r *GameRegistry) applyLocked(entry *gameEntry, player string, action game.Action) error {
	summary, err := entry.state.Apply(player, action)
	if err != nil {
		return err
	}

	// Apply cleared the turn deadline, so a concurrent expiry is
	// already a no-op; this just reclaims the timer slot.
	r.timers.Cancel(entry.id)

	r.logger.Info("Action applied", "game_id", entry.id, "player_id", player, "action", action.String(), "phase", summary.Phase, "round", summary.Round)
	r.audit(audit.NewEvent(entry.id, audit.EventAction, player, action))

	r.broadcastLocked(entry, MessageTypePlayerAction, PlayerActionPayload{PlayerID: player, Action: action})

	if summary.TrickWinner != "" {
		r.broadcastLocked(entry, MessageTypeTrickComplete, TrickCompletePayload{Winner: summary.TrickWinner})
		r.audit(audit.NewEvent(entry.id, audit.EventTrickComplete, summary.TrickWinner, nil))
	}
	if summary.RoundComplete {
		r.audit(audit.NewEvent(entry.id, audit.EventRoundComplete, "", map[string]any{
			"round":  summary.Round,
			"scores": summary.RoundScores,
		}))
	}

	if summary.GameComplete() {
		r.broadcastLocked(entry, MessageTypeGameOver, GameOverPayload{FinalScores: summary.FinalScores})
		r.audit(audit.NewEvent(entry.id, audit.EventGameOver, "", summary.FinalScores))

		entry.removed = true
		r.mu.Lock()
		delete(r.games, entry.id)
		r.mu.Unlock()
		r.logger.Info("Game complete", "game_id", entry.id)
		return nil
	}

	// A resolved trick or completed bidding changes what every player
	// sees (new leader, new hands on a fresh round), so push views
	// rather than waiting for clients to ask.
	if summary.BiddingComplete || summary.TrickWinner != "" {
		r.sendViewsLocked(entry)
	}

	r.armLocked(entry)
	return nil
}

// handleExpiry is the timer callback. It re-checks that the turn the
// timer was armed for is still pending; a user action that landed first
// cleared the deadline, making a late fire a no-op.
func (r *GameRegistry) handleExpiry(gameID, player string, deadline time.Time) {
	entry := r.lookup(gameID)
	if entry == nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return
	}
	if entry.state.CurrentPlayer() != player || !entry.state.TurnDeadline().Equal(deadline) {
		r.logger.Debug("Stale turn timer ignored", "game_id", gameID, "player_id", player)
		return
	}

	action := entry.state.AutoAction()
	r.logger.Info("Turn timed out, applying auto action", "game_id", gameID, "player_id", player, "action", action.String())
	if err := r.applyLocked(entry, player, action); err != nil {
		// AutoAction is constructed to always validate
		r.logger.Error("Auto action rejected", "game_id", gameID, "player_id", player, "error", err)
	}
}

// armLocked starts the turn timer for the game's current player
func (r *GameRegistry) armLocked(entry *gameEntry) {
	if entry.state.Phase() == game.PhaseGameComplete {
		return
	}

	player := entry.state.CurrentPlayer()
	deadline := r.clock.Now().Add(entry.turnTimeout)
	entry.state.SetTurnDeadline(deadline)

	gameID := entry.id
	r.timers.Arm(gameID, entry.turnTimeout, func() {
		r.handleExpiry(gameID, player, deadline)
	})
}

func (r *GameRegistry) broadcastLocked(entry *gameEntry, msgType MessageType, payload any) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		r.logger.Error("Failed to build broadcast", "game_id", entry.id, "type", msgType, "error", err)
		return
	}
	r.sessions.Broadcast(entry.players, msg)
}

// sendViewsLocked pushes each player their private view of the game
func (r *GameRegistry) sendViewsLocked(entry *gameEntry) {
	for _, player := range entry.players {
		view, err := entry.state.PlayerView(player)
		if err != nil {
			continue
		}
		view.GameID = entry.id

		msg, err := NewMessage(MessageTypeGameState, view)
		if err != nil {
			r.logger.Error("Failed to build game state message", "game_id", entry.id, "player_id", player, "error", err)
			continue
		}
		_ = r.sessions.Send(player, msg)
	}
}

func (r *GameRegistry) audit(event audit.Event) {
	r.recorder.Enqueue(event)
}
