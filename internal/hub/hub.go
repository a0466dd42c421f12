package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/undercover-game/backend/internal/game"
	"github.com/undercover-game/backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom returns the room for Name, creating it on first access.
type EnsureRoom struct {
	Name  string
	Reply chan *room.Room
}

// GetRoom returns the room for Name, or nil when none exists yet.
type GetRoom struct {
	Name  string
	Reply chan *room.Room
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the room-name -> Room map. Rooms are fully independent of
// each other; the hub only routes lookups, it never touches room state.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	rules  game.Rules
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, rules game.Rules, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		rules:  rules,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if rm := h.rooms[msg.Name]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm := room.New(h.ctx, msg.Name, h.rules, h.log)
				h.rooms[msg.Name] = rm
				h.log.Info("room created", zap.String("room", msg.Name))
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- h.rooms[msg.Name] // may be nil

			case ShutdownHub:
				for _, rm := range h.rooms {
					rm.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}
