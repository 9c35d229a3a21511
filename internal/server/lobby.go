package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/gbridge/internal/gameid"
)

const (
	minLobbyPlayers = 3
	maxLobbyPlayers = 4

	minTurnTimeoutSecs = 5
	maxTurnTimeoutSecs = 300
)

// LobbySettings are the host's choices for the game the lobby will
// become. TurnTimeoutSecs of zero means the server default.
type LobbySettings struct {
	PlayerCount     int
	TurnTimeoutSecs int
	AllowReconnect  bool
}

// Lobby groups players waiting for a game to start. The first member is
// the host; only the host may start the game, and hosting transfers to
// the next member if the host leaves.
type Lobby struct {
	id        string
	host      string
	players   []string
	settings  LobbySettings
	createdAt time.Time
}

func (l *Lobby) info() LobbyInfo {
	return LobbyInfo{
		LobbyID:         l.id,
		Host:            l.host,
		Players:         append([]string(nil), l.players...),
		MaxPlayers:      l.settings.PlayerCount,
		TurnTimeoutSecs: l.settings.TurnTimeoutSecs,
		AllowReconnect:  l.settings.AllowReconnect,
	}
}

// LobbyRegistry owns all lobbies and their membership. Players occupy
// at most one lobby at a time; membership is tracked here so leave and
// start need only the player identity.
type LobbyRegistry struct {
	mu       sync.RWMutex
	lobbies  map[string]*Lobby
	byPlayer map[string]string
	clock    quartz.Clock
	logger   *log.Logger
}

// NewLobbyRegistry creates an empty lobby registry
func NewLobbyRegistry(clock quartz.Clock, logger *log.Logger) *LobbyRegistry {
	return &LobbyRegistry{
		lobbies:  make(map[string]*Lobby),
		byPlayer: make(map[string]string),
		clock:    clock,
		logger:   logger.WithPrefix("lobby"),
	}
}

// Create validates the settings and opens a lobby with the host as its
// only member. The host must not already be in a lobby.
func (r *LobbyRegistry) Create(host string, settings LobbySettings) (LobbyInfo, error) {
	if settings.PlayerCount == 0 {
		settings.PlayerCount = maxLobbyPlayers
	}
	if settings.PlayerCount < minLobbyPlayers || settings.PlayerCount > maxLobbyPlayers {
		return LobbyInfo{}, fmt.Errorf("player count must be between %d and %d", minLobbyPlayers, maxLobbyPlayers)
	}
	if settings.TurnTimeoutSecs != 0 {
		if settings.TurnTimeoutSecs < minTurnTimeoutSecs {
			settings.TurnTimeoutSecs = minTurnTimeoutSecs
		}
		if settings.TurnTimeoutSecs > maxTurnTimeoutSecs {
			settings.TurnTimeoutSecs = maxTurnTimeoutSecs
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPlayer[host]; ok {
		return LobbyInfo{}, fmt.Errorf("already in lobby %s", id)
	}

	lobby := &Lobby{
		id:        gameid.Generate(gameid.KindLobby),
		host:      host,
		players:   []string{host},
		settings:  settings,
		createdAt: r.clock.Now(),
	}
	r.lobbies[lobby.id] = lobby
	r.byPlayer[host] = lobby.id

	r.logger.Info("Lobby created", "lobby_id", lobby.id, "host", host, "max_players", settings.PlayerCount)
	return lobby.info(), nil
}

// Join adds a player to a lobby. Joining a lobby the player is already
// in is a no-op that returns the current info.
func (r *LobbyRegistry) Join(lobbyID, player string) (LobbyInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lobby := r.lobbies[lobbyID]
	if lobby == nil {
		return LobbyInfo{}, ErrLobbyNotFound
	}

	if current, ok := r.byPlayer[player]; ok {
		if current == lobbyID {
			return lobby.info(), nil
		}
		return LobbyInfo{}, fmt.Errorf("already in lobby %s", current)
	}

	if len(lobby.players) >= lobby.settings.PlayerCount {
		return LobbyInfo{}, ErrLobbyFull
	}

	lobby.players = append(lobby.players, player)
	r.byPlayer[player] = lobbyID

	r.logger.Info("Player joined lobby", "lobby_id", lobbyID, "player_id", player, "members", len(lobby.players))
	return lobby.info(), nil
}

// Leave removes the player from their lobby. An empty lobby is deleted;
// if the host leaves with others remaining, the first remaining member
// becomes host. Returns the post-leave info and whether the lobby was
// deleted.
func (r *LobbyRegistry) Leave(player string) (LobbyInfo, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lobbyID, ok := r.byPlayer[player]
	if !ok {
		return LobbyInfo{}, false, ErrNotInLobby
	}
	lobby := r.lobbies[lobbyID]
	delete(r.byPlayer, player)

	for i, p := range lobby.players {
		if p == player {
			lobby.players = append(lobby.players[:i], lobby.players[i+1:]...)
			break
		}
	}

	if len(lobby.players) == 0 {
		delete(r.lobbies, lobbyID)
		r.logger.Info("Lobby deleted", "lobby_id", lobbyID)
		return LobbyInfo{LobbyID: lobbyID}, true, nil
	}

	if lobby.host == player {
		lobby.host = lobby.players[0]
		r.logger.Info("Lobby host transferred", "lobby_id", lobbyID, "host", lobby.host)
	}
	r.logger.Info("Player left lobby", "lobby_id", lobbyID, "player_id", player, "members", len(lobby.players))
	return lobby.info(), false, nil
}

// StartGame dissolves the caller's lobby and returns the member
// snapshot the game should be created with. Only the host may start,
// and at least two members must be present.
func (r *LobbyRegistry) StartGame(caller string) ([]string, LobbySettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lobbyID, ok := r.byPlayer[caller]
	if !ok {
		return nil, LobbySettings{}, ErrNotInLobby
	}
	lobby := r.lobbies[lobbyID]

	if lobby.host != caller {
		return nil, LobbySettings{}, ErrNotHost
	}
	if len(lobby.players) < 2 {
		return nil, LobbySettings{}, ErrNotEnoughPlayers
	}

	members := append([]string(nil), lobby.players...)
	delete(r.lobbies, lobbyID)
	for _, p := range members {
		delete(r.byPlayer, p)
	}

	r.logger.Info("Lobby starting game", "lobby_id", lobbyID, "members", len(members))
	return members, lobby.settings, nil
}

// Get returns the info for one lobby
func (r *LobbyRegistry) Get(lobbyID string) (LobbyInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lobby := r.lobbies[lobbyID]
	if lobby == nil {
		return LobbyInfo{}, ErrLobbyNotFound
	}
	return lobby.info(), nil
}

// MemberLobby returns the lobby a player currently occupies, if any
func (r *LobbyRegistry) MemberLobby(player string) (LobbyInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lobbyID, ok := r.byPlayer[player]
	if !ok {
		return LobbyInfo{}, false
	}
	return r.lobbies[lobbyID].info(), true
}

// List returns joinable lobbies: those with space, oldest first
func (r *LobbyRegistry) List() []LobbyInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	open := make([]*Lobby, 0, len(r.lobbies))
	for _, lobby := range r.lobbies {
		if len(lobby.players) < lobby.settings.PlayerCount {
			open = append(open, lobby)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		if open[i].createdAt.Equal(open[j].createdAt) {
			return open[i].id < open[j].id
		}
		return open[i].createdAt.Before(open[j].createdAt)
	})

	infos := make([]LobbyInfo, len(open))
	for i, lobby := range open {
		infos[i] = lobby.info()
	}
	return infos
}
