package game

import (
	"errors"
	"math/rand"
)

var ErrRoomClaimed = errors.New("room already claimed")
var ErrNoRoom = errors.New("no room to join")
var ErrRoomFull = errors.New("room is full")
var ErrGameStarted = errors.New("game already started")
var ErrNotHost = errors.New("only host can start")
var ErrNotEnoughPlayers = errors.New("need at least 3 players")
var ErrNoGame = errors.New("no game in progress")
var ErrUnsupportedCommand = errors.New("unsupported command")

// Phase is the room-wide lifecycle stage. It is the single source of
// truth; everything else (roomClaimed, gameStarted) derives from it.
type Phase string

const (
	PhaseIdle   Phase = "Idle"
	PhaseLobby  Phase = "Lobby"
	PhaseInGame Phase = "InGame"
)

// Status is one player's own lifecycle position. It is tracked per
// session id and survives transport disconnects, so a player who drops
// mid-lobby can reconnect into the same seat.
type Status string

const (
	StatusIdle   Status = "Idle"
	StatusLobby  Status = "Lobby"
	StatusInGame Status = "InGame"
)

// MinPlayers is the smallest room a game can start with: one impostor
// plus at least two citizens who share the word.
const MinPlayers = 3

type Rules struct {
	MaxPlayers int
	Words      []string
}

type State struct {
	Phase      Phase
	HostID     string
	ImpostorID string
	Word       string
	Statuses   map[string]Status
	Rules      Rules
}

func NewState(rules Rules) State {
	return State{
		Phase:    PhaseIdle,
		Statuses: map[string]Status{},
		Rules:    rules,
	}
}

type CommandType string

const (
	CmdClaimHost CommandType = "claimHost"
	CmdJoin      CommandType = "join"
	CmdStartGame CommandType = "startGame"
	CmdEndGame   CommandType = "endGame"
	CmdLeave     CommandType = "leave"
)

type Command struct {
	Type     CommandType
	PlayerID string
}

// RoomClaimed reports whether anyone holds the room.
func (s State) RoomClaimed() bool { return s.Phase != PhaseIdle }

func (s State) GameStarted() bool { return s.Phase == PhaseInGame }

// RoomSize counts players who are both seated (status != Idle) and
// currently connected. A seated player without a live connection does
// not hold capacity; their seat is kept only so a quick reconnect can
// resume it.
func (s State) RoomSize(connected map[string]bool) int {
	n := 0
	for id, st := range s.Statuses {
		if st != StatusIdle && connected[id] {
			n++
		}
	}
	return n
}

// stubbed in tests for deterministic word/impostor selection
var randIntn = rand.Intn

// Apply runs one command against the state and returns the new state.
// connected is the set of session ids with a live channel right now;
// it feeds RoomSize. On a guard failure the returned state is the
// input unchanged and the error names the guard.
func Apply(s State, connected map[string]bool, cmd Command) (State, error) {
	switch cmd.Type {
	case CmdClaimHost:
		if s.Phase != PhaseIdle {
			return s, ErrRoomClaimed
		}
		s.Phase = PhaseLobby
		s.HostID = cmd.PlayerID
		s.Statuses[cmd.PlayerID] = StatusLobby
		return s, nil

	case CmdJoin:
		switch {
		case s.Phase == PhaseIdle:
			return s, ErrNoRoom
		case s.Phase == PhaseInGame:
			return s, ErrGameStarted
		case s.RoomSize(connected) >= s.Rules.MaxPlayers:
			return s, ErrRoomFull
		}
		s.Statuses[cmd.PlayerID] = StatusLobby
		return s, nil

	case CmdStartGame:
		if s.HostID == "" || cmd.PlayerID != s.HostID {
			return s, ErrNotHost
		}
		if s.Phase != PhaseLobby {
			// Nobody is at StatusLobby once a game runs, so starting
			// again would have no pool to draw an impostor from.
			return s, ErrGameStarted
		}
		if s.RoomSize(connected) < MinPlayers {
			return s, ErrNotEnoughPlayers
		}

		lobby := make([]string, 0, len(s.Statuses))
		for id, st := range s.Statuses {
			if st == StatusLobby {
				lobby = append(lobby, id)
			}
		}

		s.Phase = PhaseInGame
		s.Word = s.Rules.Words[randIntn(len(s.Rules.Words))]
		s.ImpostorID = lobby[randIntn(len(lobby))]
		for _, id := range lobby {
			s.Statuses[id] = StatusInGame
		}
		return s, nil

	case CmdEndGame:
		if s.Phase != PhaseInGame {
			return s, ErrNoGame
		}
		return Reset(s), nil

	case CmdLeave:
		return Leave(s, connected, cmd.PlayerID), nil

	default:
		return s, ErrUnsupportedCommand
	}
}

// Leave applies the departure policy. It is shared by the explicit
// leave command and by transport disconnects, which is why it never
// fails: a departure is always processed.
func Leave(s State, connected map[string]bool, pid string) State {
	// Host leaving tears the room down in any phase.
	if s.HostID != "" && pid == s.HostID {
		return Reset(s)
	}

	// Any departure mid-game is fatal to that game; there is no
	// player replacement.
	if s.Phase == PhaseInGame {
		return Reset(s)
	}

	if s.Phase == PhaseLobby {
		s.Statuses[pid] = StatusIdle
		if s.RoomSize(connected) == 0 {
			return Reset(s)
		}
	}
	return s
}

// Reset reinitializes the room in place: back to Idle, no host, no
// impostor, no word, every known player benched at Idle. Seats are
// never deleted, only reset.
func Reset(s State) State {
	s.Phase = PhaseIdle
	s.HostID = ""
	s.ImpostorID = ""
	s.Word = ""
	for id := range s.Statuses {
		s.Statuses[id] = StatusIdle
	}
	return s
}
