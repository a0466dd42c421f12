package room

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/undercover-game/backend/internal/game"
	"github.com/undercover-game/backend/pkg/protocol"
)

type Msg interface{ isRoomMsg() }

// Hello registers a connection's outbox under a session id (minted when
// empty) and answers with the id plus an individual state snapshot on
// the outbox. No broadcast to anyone else.
type Hello struct {
	SessionID string
	Outbox    chan []byte
	Reply     chan string
}

func (Hello) isRoomMsg() {}

// FromClient is a post-hello command from a registered connection.
type FromClient struct {
	SessionID string
	Cmd       game.CommandType
}

func (FromClient) isRoomMsg() {}

// Disconnect reports a closed channel. Outbox identifies which
// registration is going away, so the close of a connection that was
// already replaced by a re-hello does not evict its successor.
type Disconnect struct {
	SessionID string
	Outbox    chan []byte
}

func (Disconnect) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// View is a test/debug copy of the room's internals.
type View struct {
	Phase      game.Phase
	HostID     string
	ImpostorID string
	Word       string
	Statuses   map[string]game.Status
	NumConns   int
	RoomSize   int
}

// Room is the authoritative coordinator for one room name. All inbound
// events from every connection funnel through its inbox and are
// processed one at a time by loop, so state is never touched
// concurrently.
type Room struct {
	name   string
	inbox  chan Msg
	state  game.State
	conns  map[string]chan []byte
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, name string, rules game.Rules, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		name:   name,
		inbox:  make(chan Msg, 64),
		state:  game.NewState(rules),
		conns:  make(map[string]chan []byte),
		log:    log.With(zap.String("room", name)),
		ctx:    ctx,
		cancel: cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Hello:
				r.handleHello(msg)

			case FromClient:
				r.handleCommand(msg)

			case Disconnect:
				if r.conns[msg.SessionID] == msg.Outbox {
					delete(r.conns, msg.SessionID)
					r.applyLeave(msg.SessionID)
					r.log.Debug("disconnect", zap.String("session", msg.SessionID))
				}
				// Either way this channel is done; closing it releases
				// the connection's writer.
				close(msg.Outbox)

			case GetState:
				statuses := make(map[string]game.Status, len(r.state.Statuses))
				for id, st := range r.state.Statuses {
					statuses[id] = st
				}
				msg.Reply <- View{
					Phase:      r.state.Phase,
					HostID:     r.state.HostID,
					ImpostorID: r.state.ImpostorID,
					Word:       r.state.Word,
					Statuses:   statuses,
					NumConns:   len(r.conns),
					RoomSize:   r.state.RoomSize(r.connected()),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleHello(msg Hello) {
	pid := msg.SessionID
	if pid == "" {
		pid = uuid.NewString()
	}

	// Everyone starts benched; a returning player keeps their seat.
	if _, ok := r.state.Statuses[pid]; !ok {
		r.state.Statuses[pid] = game.StatusIdle
	}

	// One table entry per open channel: a re-hello under a new session
	// id drops the channel's previous registration.
	for id, out := range r.conns {
		if out == msg.Outbox && id != pid {
			delete(r.conns, id)
		}
	}
	r.conns[pid] = msg.Outbox

	r.send(msg.Outbox, r.stateFrame(pid))
	msg.Reply <- pid
	r.log.Debug("hello", zap.String("session", pid))
}

func (r *Room) handleCommand(msg FromClient) {
	if msg.Cmd == game.CmdLeave {
		r.applyLeave(msg.SessionID)
		return
	}

	next, err := game.Apply(r.state, r.connected(), game.Command{Type: msg.Cmd, PlayerID: msg.SessionID})
	if err != nil {
		if out, ok := r.conns[msg.SessionID]; ok {
			r.send(out, errorFrame(err))
		}
		r.log.Debug("command rejected",
			zap.String("session", msg.SessionID),
			zap.String("cmd", string(msg.Cmd)),
			zap.Error(err))
		return
	}

	r.state = next
	r.broadcast()
	r.log.Info("transition",
		zap.String("cmd", string(msg.Cmd)),
		zap.String("session", msg.SessionID),
		zap.String("phase", string(r.state.Phase)))
}

// applyLeave runs the shared departure policy. An Idle room stays
// silent: nothing changed, so nobody hears about it.
func (r *Room) applyLeave(pid string) {
	prev := r.state.Phase
	r.state = game.Leave(r.state, r.connected(), pid)
	if prev == game.PhaseIdle {
		return
	}
	r.broadcast()
}

// broadcast sends every connected session its own individualized view.
// Roles and word visibility differ per recipient, so there is no
// shared payload to reuse.
func (r *Room) broadcast() {
	for pid, out := range r.conns {
		r.send(out, r.stateFrame(pid))
	}
}

// send is best-effort: a full outbox drops the frame rather than stall
// the room. A dead connection announces itself through Disconnect.
func (r *Room) send(out chan []byte, frame []byte) {
	if frame == nil {
		return
	}
	select {
	case out <- frame:
	default:
		r.log.Debug("outbox full, frame dropped")
	}
}

func (r *Room) connected() map[string]bool {
	set := make(map[string]bool, len(r.conns))
	for id := range r.conns {
		set[id] = true
	}
	return set
}

func (r *Room) stateFrame(pid string) []byte {
	st := r.state.Statuses[pid]
	if st == "" {
		st = game.StatusIdle
	}

	you := protocol.You{IsHost: r.state.HostID != "" && r.state.HostID == pid}
	if st == game.StatusInGame {
		if r.state.ImpostorID == pid {
			you.Role = protocol.RoleImpostor
		} else {
			you.Role = protocol.RoleCitizen
			you.Word = r.state.Word
		}
	}

	frame, err := json.Marshal(protocol.StateMessage{
		Type: protocol.MsgState,
		Data: protocol.StateData{
			Status:      string(st),
			Players:     r.state.RoomSize(r.connected()),
			MaxPlayers:  r.state.Rules.MaxPlayers,
			GameStarted: r.state.GameStarted(),
			You:         you,
		},
	})
	if err != nil {
		return nil
	}
	return frame
}

// guardText maps guard errors onto the messages clients display.
var guardText = map[error]string{
	game.ErrRoomClaimed:      "Room already claimed",
	game.ErrNoRoom:           "No room to join",
	game.ErrRoomFull:         "Room is full",
	game.ErrGameStarted:      "Game already started",
	game.ErrNotHost:          "Only host can start",
	game.ErrNotEnoughPlayers: "Need at least 3 players",
	game.ErrNoGame:           "No game in progress",
}

func errorFrame(err error) []byte {
	text, ok := guardText[err]
	if !ok {
		text = err.Error()
	}
	frame, merr := json.Marshal(protocol.ErrorMessage{
		Type: protocol.MsgError,
		Data: protocol.ErrorData{Message: text},
	})
	if merr != nil {
		return nil
	}
	return frame
}

func (r *Room) shutdown() {
	for id, out := range r.conns {
		close(out)
		delete(r.conns, id)
	}
	r.cancel()
}
