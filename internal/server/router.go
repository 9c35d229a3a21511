package server

import (
	"encoding/json"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/gbridge/internal/game"
)

// Router dispatches decoded client messages for authenticated
// identities. It keeps a player→game index so game messages need no id
// from the client, and confines every handler failure to an Error reply
// for that one client.
type Router struct {
	mu         sync.Mutex
	playerGame map[string]string

	sessions *SessionRegistry
	lobbies  *LobbyRegistry
	games    *GameRegistry
	logger   *log.Logger
}

// NewRouter creates a router over the three registries
func NewRouter(sessions *SessionRegistry, lobbies *LobbyRegistry, games *GameRegistry, logger *log.Logger) *Router {
	return &Router{
		playerGame: make(map[string]string),
		sessions:   sessions,
		lobbies:    lobbies,
		games:      games,
		logger:     logger.WithPrefix("router"),
	}
}

// HandleMessage processes one inbound frame from a player. A panic in
// any handler is recovered here; the process never exits for one bad
// message.
func (r *Router) HandleMessage(playerID string, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Panic in message handler", "player_id", playerID, "panic", rec, "stack", string(debug.Stack()))
			r.send(playerID, MessageTypeError, ErrorPayload{Message: "Internal server error"})
		}
	}()

	r.sessions.Touch(playerID)

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.logger.Debug("Undecodable message", "player_id", playerID, "error", err)
		r.send(playerID, MessageTypeError, ErrorPayload{Message: "Invalid message"})
		return
	}

	r.logger.Debug("Received message", "player_id", playerID, "type", msg.Type)

	switch msg.Type {
	case MessageTypeCreateLobby:
		var payload CreateLobbyPayload
		if !r.decode(playerID, msg.Payload, &payload) {
			return
		}
		r.handleCreateLobby(playerID, payload)

	case MessageTypeJoinLobby:
		var payload JoinLobbyPayload
		if !r.decode(playerID, msg.Payload, &payload) {
			return
		}
		r.handleJoinLobby(playerID, payload)

	case MessageTypeLeaveLobby:
		r.handleLeaveLobby(playerID)

	case MessageTypeStartGame:
		r.handleStartGame(playerID)

	case MessageTypeListLobbies:
		r.send(playerID, MessageTypeLobbyList, LobbyListPayload{Lobbies: r.lobbies.List()})

	case MessageTypePlaceBid:
		var payload PlaceBidPayload
		if !r.decode(playerID, msg.Payload, &payload) {
			return
		}
		r.handleGameAction(playerID, game.Bid(payload.Bid))

	case MessageTypePlayCard:
		var payload PlayCardPayload
		if !r.decode(playerID, msg.Payload, &payload) {
			return
		}
		r.handleGameAction(playerID, game.PlayCard(payload.Card))

	case MessageTypeRequestGameState:
		r.handleRequestGameState(playerID)

	case MessageTypePing:
		r.send(playerID, MessageTypePong, nil)

	default:
		r.sendError(playerID, ErrUnknownMessage)
	}
}

func (r *Router) handleCreateLobby(playerID string, payload CreateLobbyPayload) {
	settings := LobbySettings{
		PlayerCount:     payload.PlayerCount,
		TurnTimeoutSecs: payload.TurnTimeoutSecs,
		AllowReconnect:  payload.AllowReconnect == nil || *payload.AllowReconnect,
	}

	info, err := r.lobbies.Create(playerID, settings)
	if err != nil {
		r.sendError(playerID, err)
		return
	}

	r.send(playerID, MessageTypeLobbyCreated, LobbyCreatedPayload{LobbyID: info.LobbyID})
	r.broadcastLobbyList()
}

func (r *Router) handleJoinLobby(playerID string, payload JoinLobbyPayload) {
	info, err := r.lobbies.Join(payload.LobbyID, playerID)
	if err != nil {
		r.sendError(playerID, err)
		return
	}

	r.send(playerID, MessageTypeLobbyJoined, LobbyJoinedPayload{Lobby: info})
	r.broadcastLobbyUpdated(info, playerID)
}

func (r *Router) handleLeaveLobby(playerID string) {
	info, deleted, err := r.lobbies.Leave(playerID)
	if err != nil {
		r.sendError(playerID, err)
		return
	}

	if !deleted {
		r.broadcastLobbyUpdated(info, playerID)
	}
	r.broadcastLobbyList()
}

func (r *Router) handleStartGame(playerID string) {
	members, settings, err := r.lobbies.StartGame(playerID)
	if err != nil {
		r.sendError(playerID, err)
		return
	}

	gameID, err := r.games.CreateGame(members, time.Duration(settings.TurnTimeoutSecs)*time.Second)
	if err != nil {
		r.logger.Error("Failed to create game from lobby", "host", playerID, "error", err)
		r.sendError(playerID, err)
		return
	}

	r.mu.Lock()
	for _, member := range members {
		r.playerGame[member] = gameID
	}
	r.mu.Unlock()

	r.broadcastLobbyList()
}

func (r *Router) handleGameAction(playerID string, action game.Action) {
	gameID, ok := r.gameFor(playerID)
	if !ok {
		r.sendError(playerID, ErrGameNotFound)
		return
	}

	err := r.games.HandleAction(gameID, playerID, action)
	if errors.Is(err, ErrGameNotFound) {
		r.pruneGame(gameID)
	}
	if err != nil {
		r.sendError(playerID, err)
	}
}

func (r *Router) handleRequestGameState(playerID string) {
	gameID, ok := r.gameFor(playerID)
	if !ok {
		r.sendError(playerID, ErrGameNotFound)
		return
	}

	view, err := r.games.PlayerView(gameID, playerID)
	if errors.Is(err, ErrGameNotFound) {
		r.pruneGame(gameID)
	}
	if err != nil {
		r.sendError(playerID, err)
		return
	}
	r.send(playerID, MessageTypeGameState, view)
}

// HandleDisconnect runs when a player's transport closes. The session
// enters its grace window; other players hear PlayerLeft. Games are not
// aborted, the absent player's turns resolve via the turn timer. A
// lobby that disallows reconnection drops the member immediately.
func (r *Router) HandleDisconnect(playerID string, sink chan []byte) {
	others, wasCurrent := r.sessions.Detach(playerID, sink)
	if !wasCurrent {
		return
	}

	if len(others) > 0 {
		msg, err := NewMessage(MessageTypePlayerLeft, PlayerLeftPayload{PlayerID: playerID})
		if err == nil {
			r.sessions.Broadcast(others, msg)
		}
	}

	if info, ok := r.lobbies.MemberLobby(playerID); ok && !info.AllowReconnect {
		r.handleLeaveLobby(playerID)
	}
}

// HandleSwept cleans up after sessions whose grace window elapsed:
// lobby membership goes away, and a game left with no reachable players
// is abandoned.
func (r *Router) HandleSwept(playerIDs []string) {
	affected := make(map[string]bool)

	for _, playerID := range playerIDs {
		if _, ok := r.lobbies.MemberLobby(playerID); ok {
			info, deleted, err := r.lobbies.Leave(playerID)
			if err == nil && !deleted {
				r.broadcastLobbyUpdated(info, playerID)
			}
		}

		r.mu.Lock()
		if gameID, ok := r.playerGame[playerID]; ok {
			delete(r.playerGame, playerID)
			affected[gameID] = true
		}
		r.mu.Unlock()
	}

	if len(playerIDs) > 0 {
		r.broadcastLobbyList()
	}

	for gameID := range affected {
		players, ok := r.games.Players(gameID)
		if !ok {
			continue
		}
		reachable := false
		for _, p := range players {
			if r.sessions.Has(p) {
				reachable = true
				break
			}
		}
		if !reachable {
			r.logger.Info("Abandoning game with no reachable players", "game_id", gameID)
			r.games.Abandon(gameID)
		}
	}
}

func (r *Router) gameFor(playerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gameID, ok := r.playerGame[playerID]
	return gameID, ok
}

// pruneGame drops stale index entries once a game has been removed
func (r *Router) pruneGame(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for player, id := range r.playerGame {
		if id == gameID {
			delete(r.playerGame, player)
		}
	}
}

// broadcastLobbyList pushes the joinable-lobby list to every active
// session so lobby browsers stay current without polling.
func (r *Router) broadcastLobbyList() {
	msg, err := NewMessage(MessageTypeLobbyList, LobbyListPayload{Lobbies: r.lobbies.List()})
	if err != nil {
		return
	}
	r.sessions.Broadcast(r.sessions.ActiveIDs(), msg)
}

// broadcastLobbyUpdated tells a lobby's other members about a change
func (r *Router) broadcastLobbyUpdated(info LobbyInfo, except string) {
	recipients := make([]string, 0, len(info.Players))
	for _, p := range info.Players {
		if p != except {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return
	}

	msg, err := NewMessage(MessageTypeLobbyUpdated, LobbyUpdatedPayload{Lobby: info})
	if err != nil {
		return
	}
	r.sessions.Broadcast(recipients, msg)
}

func (r *Router) decode(playerID string, payload json.RawMessage, into any) bool {
	if len(payload) == 0 {
		return true
	}
	if err := json.Unmarshal(payload, into); err != nil {
		r.logger.Debug("Undecodable payload", "player_id", playerID, "error", err)
		r.send(playerID, MessageTypeError, ErrorPayload{Message: "Invalid message payload"})
		return false
	}
	return true
}

func (r *Router) send(playerID string, msgType MessageType, payload any) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		r.logger.Error("Failed to build message", "player_id", playerID, "type", msgType, "error", err)
		return
	}
	_ = r.sessions.Send(playerID, msg)
}

func (r *Router) sendError(playerID string, err error) {
	r.send(playerID, MessageTypeError, ErrorPayload{Message: wireMessage(err)})
}
