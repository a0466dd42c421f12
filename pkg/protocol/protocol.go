// Package protocol defines the JSON wire messages exchanged between a
// room client and the coordinator. Both the server and pkg/roomclient
// marshal against these types.
package protocol

import "encoding/json"

// Client -> Server message types.
const (
	MsgHello     = "hello"
	MsgClaimHost = "claimHost"
	MsgJoin      = "join"
	MsgStartGame = "startGame"
	MsgEndGame   = "endGame"
	MsgLeave     = "leave"
)

// Server -> Client message types.
const (
	MsgState = "state"
	MsgError = "error"
)

// Roles carried in You.Role while a game is running.
const (
	RoleCitizen  = "citizen"
	RoleImpostor = "impostor"
)

type ClientMessage struct {
	Type string     `json:"type"`
	Data *HelloData `json:"data,omitempty"`
}

// HelloData carries the client's durable session id. When absent the
// coordinator mints one and the client should adopt it.
type HelloData struct {
	SessionID string `json:"sessionId,omitempty"`
}

// ServerMessage is the decode-side envelope: read Type, then unmarshal
// Data into StateData or ErrorData.
type ServerMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type StateMessage struct {
	Type string    `json:"type"`
	Data StateData `json:"data"`
}

// StateData is the individualized room view: Status and You are the
// recipient's own, the rest is identical for every recipient.
type StateData struct {
	Status      string `json:"status"`
	Players     int    `json:"players"`
	MaxPlayers  int    `json:"maxPlayers"`
	GameStarted bool   `json:"gameStarted"`
	You         You    `json:"you"`
}

// You is what only this recipient may see. Word is omitted for the
// impostor; that omission is the whole game.
type You struct {
	IsHost bool   `json:"isHost,omitempty"`
	Role   string `json:"role,omitempty"`
	Word   string `json:"word,omitempty"`
}

type ErrorMessage struct {
	Type string    `json:"type"`
	Data ErrorData `json:"data"`
}

type ErrorData struct {
	Message string `json:"message"`
}
