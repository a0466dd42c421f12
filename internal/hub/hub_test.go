package hub

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/undercover-game/backend/internal/game"
	"github.com/undercover-game/backend/internal/room"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, game.Rules{MaxPlayers: 8, Words: []string{"ocean"}}, zap.NewNop())
}

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	h := testHub(t)
	reply := make(chan *room.Room, 1)

	h.Inbox() <- EnsureRoom{Name: "alpha", Reply: reply}
	r1 := <-reply

	h.Inbox() <- GetRoom{Name: "alpha", Reply: reply}
	r2 := <-reply

	if r1 == nil || r2 == nil || r1 != r2 {
		t.Fatalf("expected same room pointer")
	}
}

func TestHub_Ensure_Idempotent(t *testing.T) {
	h := testHub(t)
	reply := make(chan *room.Room, 1)

	h.Inbox() <- EnsureRoom{Name: "alpha", Reply: reply}
	r1 := <-reply

	h.Inbox() <- EnsureRoom{Name: "alpha", Reply: reply}
	r2 := <-reply

	if r1 != r2 {
		t.Fatalf("ensure must not replace an existing room")
	}
}

func TestHub_Get_UnknownRoomIsNil(t *testing.T) {
	h := testHub(t)
	reply := make(chan *room.Room, 1)

	h.Inbox() <- GetRoom{Name: "nope", Reply: reply}
	if rm := <-reply; rm != nil {
		t.Fatalf("lookups must not create rooms")
	}
}
