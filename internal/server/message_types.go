package server

// MessageType discriminates wire messages. The tags are PascalCase on
// the wire and match the payload struct for each type.
type MessageType string

const (
	// Client to server messages
	MessageTypeCreateLobby      MessageType = "CreateLobby"
	MessageTypeJoinLobby        MessageType = "JoinLobby"
	MessageTypeLeaveLobby       MessageType = "LeaveLobby"
	MessageTypeStartGame        MessageType = "StartGame"
	MessageTypeListLobbies      MessageType = "ListLobbies"
	MessageTypePlaceBid         MessageType = "PlaceBid"
	MessageTypePlayCard         MessageType = "PlayCard"
	MessageTypeRequestGameState MessageType = "RequestGameState"
	MessageTypePing             MessageType = "Ping"

	// Server to client messages
	MessageTypeConnected         MessageType = "Connected"
	MessageTypePong              MessageType = "Pong"
	MessageTypeError             MessageType = "Error"
	MessageTypeLobbyCreated      MessageType = "LobbyCreated"
	MessageTypeLobbyJoined       MessageType = "LobbyJoined"
	MessageTypeLobbyUpdated      MessageType = "LobbyUpdated"
	MessageTypeLobbyList         MessageType = "LobbyList"
	MessageTypeGameStarting      MessageType = "GameStarting"
	MessageTypeGameState         MessageType = "GameState"
	MessageTypePlayerAction      MessageType = "PlayerAction"
	MessageTypeTrickComplete     MessageType = "TrickComplete"
	MessageTypeGameOver          MessageType = "GameOver"
	MessageTypePlayerLeft        MessageType = "PlayerLeft"
	MessageTypePlayerReconnected MessageType = "PlayerReconnected"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
