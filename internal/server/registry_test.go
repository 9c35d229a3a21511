package server

import (
	"context"
	rand "math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/gbridge/internal/game"
	"github.com/lox/gbridge/internal/randutil"
)

type gameFixture struct {
	clock    *quartz.Mock
	sessions *SessionRegistry
	timers   *TimerService
	games    *GameRegistry
	sinks    map[string]chan []byte
}

// newGameFixture wires a registry over attached sessions for the given
// players, with a seeded RNG so deals are reproducible.
func newGameFixture(t *testing.T, players ...string) *gameFixture {
	t.Helper()

	clock := quartz.NewMock(t)
	sessions := NewSessionRegistry(60*time.Second, clock, testLogger())
	timers := NewTimerService(clock, testLogger())
	games := NewGameRegistry(sessions, timers, nil, clock, 30*time.Second, testLogger())
	games.newRNG = func() *rand.Rand { return randutil.New(42) }

	sinks := make(map[string]chan []byte, len(players))
	for _, p := range players {
		sink := make(chan []byte, sinkCapacity)
		sessions.Attach(p, p, sink)
		sinks[p] = sink
	}

	return &gameFixture{
		clock:    clock,
		sessions: sessions,
		timers:   timers,
		games:    games,
		sinks:    sinks,
	}
}

// currentPlayer reads whose turn it is. Tests are single-threaded
// between clock advances, so peeking at the entry is safe.
func (f *gameFixture) currentPlayer(t *testing.T, gameID string) string {
	t.Helper()
	entry := f.games.lookup(gameID)
	require.NotNil(t, entry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state.CurrentPlayer()
}

func (f *gameFixture) autoAction(t *testing.T, gameID string) (string, game.Action) {
	t.Helper()
	entry := f.games.lookup(gameID)
	require.NotNil(t, entry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state.CurrentPlayer(), entry.state.AutoAction()
}

func (f *gameFixture) drainAll(t *testing.T) map[string][]Message {
	t.Helper()
	out := make(map[string][]Message, len(f.sinks))
	for p, sink := range f.sinks {
		out[p] = drainSink(t, sink)
	}
	return out
}

func TestGameRegistryCreateGame(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob", "carol")

	gameID, err := fix.games.CreateGame([]string{"alice", "bob", "carol"}, 0)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gameID, "g_"))
	assert.Equal(t, 1, fix.games.ActiveGames())
	assert.Equal(t, 1, fix.timers.Len(), "first turn timer armed")

	for player, msgs := range fix.drainAll(t) {
		require.Len(t, msgs, 2, "player %s", player)
		assert.Equal(t, MessageTypeGameStarting, msgs[0].Type)
		assert.Equal(t, MessageTypeGameState, msgs[1].Type)

		starting := decodePayload[GameStartingPayload](t, msgs[0])
		assert.Equal(t, gameID, starting.GameID)

		view := decodePayload[game.View](t, msgs[1])
		assert.Equal(t, gameID, view.GameID)
		assert.Equal(t, game.PhaseBidding, view.Phase)
		assert.Equal(t, 1, view.Round)
		assert.Len(t, view.Hand, 1, "round 1 deals one card")
		require.NotNil(t, view.TurnDeadline)
	}
}

func TestGameRegistryDefaultTurnTimeout(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob")

	gameID, err := fix.games.CreateGame([]string{"alice", "bob"}, 0)
	require.NoError(t, err)

	entry := fix.games.lookup(gameID)
	require.NotNil(t, entry)
	assert.Equal(t, 30*time.Second, entry.turnTimeout)

	gameID, err = fix.games.CreateGame([]string{"carol", "dave"}, 10*time.Second)
	require.NoError(t, err)
	entry = fix.games.lookup(gameID)
	require.NotNil(t, entry)
	assert.Equal(t, 10*time.Second, entry.turnTimeout)
}

func TestGameRegistryCreateGameTooFewPlayers(t *testing.T) {
	fix := newGameFixture(t)

	_, err := fix.games.CreateGame([]string{"alice"}, 0)
	assert.Error(t, err)
	assert.Equal(t, 0, fix.games.ActiveGames())
}

func TestGameRegistryHandleActionBroadcasts(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob", "carol")

	gameID, err := fix.games.CreateGame([]string{"alice", "bob", "carol"}, 0)
	require.NoError(t, err)
	fix.drainAll(t)

	bidder := fix.currentPlayer(t, gameID)
	require.NoError(t, fix.games.HandleAction(gameID, bidder, game.Bid(1)))

	for player, msgs := range fix.drainAll(t) {
		require.Len(t, msgs, 1, "player %s", player)
		action := decodePayload[PlayerActionPayload](t, msgs[0])
		assert.Equal(t, bidder, action.PlayerID)
		assert.Equal(t, game.ActionBid, action.Action.Type)
		assert.Equal(t, 1, action.Action.Tricks)
	}
	assert.Equal(t, 1, fix.timers.Len(), "next turn armed")
}

func TestGameRegistryHandleActionValidation(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob", "carol")

	gameID, err := fix.games.CreateGame([]string{"alice", "bob", "carol"}, 0)
	require.NoError(t, err)
	fix.drainAll(t)

	bidder := fix.currentPlayer(t, gameID)
	var outOfTurn string
	for _, p := range []string{"alice", "bob", "carol"} {
		if p != bidder {
			outOfTurn = p
			break
		}
	}

	err = fix.games.HandleAction(gameID, outOfTurn, game.Bid(1))
	assert.ErrorIs(t, err, game.ErrNotPlayerTurn)

	err = fix.games.HandleAction(gameID, "mallory", game.Bid(1))
	assert.ErrorIs(t, err, game.ErrPlayerNotInGame)

	err = fix.games.HandleAction("g_missing", bidder, game.Bid(1))
	assert.ErrorIs(t, err, ErrGameNotFound)

	// A rejected action produces no broadcast and leaves the turn alone
	for player, msgs := range fix.drainAll(t) {
		assert.Empty(t, msgs, "player %s", player)
	}
	assert.Equal(t, bidder, fix.currentPlayer(t, gameID))
}

func TestGameRegistryTurnTimeoutAutoActs(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	gameID, err := fix.games.CreateGame([]string{"alice", "bob", "carol"}, 0)
	require.NoError(t, err)
	fix.drainAll(t)

	bidder, expected := fix.autoAction(t, gameID)

	fix.clock.Advance(30 * time.Second).MustWait(ctx)

	for player, msgs := range fix.drainAll(t) {
		require.Len(t, msgs, 1, "player %s", player)
		action := decodePayload[PlayerActionPayload](t, msgs[0])
		assert.Equal(t, bidder, action.PlayerID)
		assert.Equal(t, expected.Type, action.Action.Type)
		assert.Equal(t, expected.Tricks, action.Action.Tricks)
	}

	assert.NotEqual(t, bidder, fix.currentPlayer(t, gameID), "turn advanced past the absent player")
	assert.Equal(t, 1, fix.timers.Len(), "next turn armed")
}

func TestGameRegistryStaleExpiryIgnored(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob", "carol")

	gameID, err := fix.games.CreateGame([]string{"alice", "bob", "carol"}, 0)
	require.NoError(t, err)
	fix.drainAll(t)

	entry := fix.games.lookup(gameID)
	require.NotNil(t, entry)
	entry.mu.Lock()
	bidder := entry.state.CurrentPlayer()
	deadline := entry.state.TurnDeadline()
	entry.mu.Unlock()

	require.NoError(t, fix.games.HandleAction(gameID, bidder, game.Bid(0)))
	fix.drainAll(t)

	// An expiry that lost the race to the player's own action is a no-op
	fix.games.handleExpiry(gameID, bidder, deadline)

	for player, msgs := range fix.drainAll(t) {
		assert.Empty(t, msgs, "player %s", player)
	}
}

func TestGameRegistryPlayerView(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob", "carol")

	gameID, err := fix.games.CreateGame([]string{"alice", "bob", "carol"}, 0)
	require.NoError(t, err)

	view, err := fix.games.PlayerView(gameID, "alice")
	require.NoError(t, err)
	assert.Equal(t, gameID, view.GameID)
	assert.Equal(t, []string{"alice", "bob", "carol"}, view.Players)

	_, err = fix.games.PlayerView(gameID, "mallory")
	assert.ErrorIs(t, err, game.ErrPlayerNotInGame)

	_, err = fix.games.PlayerView("g_missing", "alice")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestGameRegistryEndGame(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob")

	gameID, err := fix.games.CreateGame([]string{"alice", "bob"}, 0)
	require.NoError(t, err)

	fix.games.EndGame(gameID)

	assert.Equal(t, 0, fix.games.ActiveGames())
	assert.Equal(t, 0, fix.timers.Len())
	assert.ErrorIs(t, fix.games.HandleAction(gameID, "alice", game.Bid(0)), ErrGameNotFound)
}

func TestGameRegistryPlayers(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob")

	gameID, err := fix.games.CreateGame([]string{"alice", "bob"}, 0)
	require.NoError(t, err)

	players, ok := fix.games.Players(gameID)
	require.True(t, ok)
	assert.Equal(t, []string{"alice", "bob"}, players)

	_, ok = fix.games.Players("g_missing")
	assert.False(t, ok)
}

// TestGameRegistryPlaysFullGame drives a two-player game to completion
// with auto actions, checking that the game removes itself and announces
// GameOver at the end.
func TestGameRegistryPlaysFullGame(t *testing.T) {
	fix := newGameFixture(t, "alice", "bob")

	gameID, err := fix.games.CreateGame([]string{"alice", "bob"}, 0)
	require.NoError(t, err)

	fix.drainAll(t)

	sawGameOver := false
	for step := 0; step < 5000 && fix.games.ActiveGames() > 0; step++ {
		player, action := fix.autoAction(t, gameID)
		require.NoError(t, fix.games.HandleAction(gameID, player, action))

		// Drain as we go so the sinks never overflow
		for _, msgs := range fix.drainAll(t) {
			for _, msg := range msgs {
				if msg.Type == MessageTypeGameOver {
					sawGameOver = true
					final := decodePayload[GameOverPayload](t, msg)
					assert.Len(t, final.FinalScores, 2)
					assert.Contains(t, final.FinalScores, "alice")
					assert.Contains(t, final.FinalScores, "bob")
				}
			}
		}
	}

	assert.True(t, sawGameOver, "game should finish and broadcast GameOver")
	assert.Equal(t, 0, fix.games.ActiveGames())
	assert.Equal(t, 0, fix.timers.Len())
	assert.ErrorIs(t, fix.games.HandleAction(gameID, "alice", game.Bid(0)), ErrGameNotFound)
	_, err = fix.games.PlayerView(gameID, "alice")
	assert.ErrorIs(t, err, ErrGameNotFound)
}
