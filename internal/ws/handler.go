package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/undercover-game/backend/internal/game"
	"github.com/undercover-game/backend/internal/hub"
	"github.com/undercover-game/backend/internal/room"
	"github.com/undercover-game/backend/pkg/protocol"
)

const writeTimeout = 3 * time.Second

// DefaultRoom is used when the connect request carries no room name.
const DefaultRoom = "default"

// Handler upgrades the request to a websocket and bridges it to the
// room named by the "room" query parameter. Rooms come into existence
// on first access.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("room")
		if name == "" {
			name = DefaultRoom
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.EnsureRoom{Name: name, Reply: reply}
		rm := <-reply

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // browser clients connect cross-origin
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan []byte, 8)
		var pid string
		defer func() {
			if pid != "" {
				// The room closes out once it has processed the
				// disconnect, which ends the writer below.
				rm.Inbox() <- room.Disconnect{SessionID: pid, Outbox: out}
				return
			}
			close(out) // never registered, the room won't close it
		}()

		// Writer goroutine: drains the outbox the room broadcasts into.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for frame := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, frame)
				cancel()
			}
		}()

		// Reader loop. No read deadline: a silent client holds its
		// slot until the transport itself closes.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return // Disconnect in defer
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				continue // unparseable frames are dropped, no error back
			}

			if cm.Type == protocol.MsgHello {
				sessionID := ""
				if cm.Data != nil {
					sessionID = cm.Data.SessionID
				}
				idReply := make(chan string, 1)
				rm.Inbox() <- room.Hello{SessionID: sessionID, Outbox: out, Reply: idReply}
				pid = <-idReply
				continue
			}

			// Commands before hello are dropped on the floor.
			if pid == "" {
				continue
			}

			cmd, ok := toCommand(cm.Type)
			if !ok {
				continue
			}
			rm.Inbox() <- room.FromClient{SessionID: pid, Cmd: cmd}
		}
	}
}

func toCommand(msgType string) (game.CommandType, bool) {
	switch msgType {
	case protocol.MsgClaimHost:
		return game.CmdClaimHost, true
	case protocol.MsgJoin:
		return game.CmdJoin, true
	case protocol.MsgStartGame:
		return game.CmdStartGame, true
	case protocol.MsgEndGame:
		return game.CmdEndGame, true
	case protocol.MsgLeave:
		return game.CmdLeave, true
	default:
		return "", false
	}
}
