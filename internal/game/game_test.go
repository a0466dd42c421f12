package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() Rules {
	return Rules{MaxPlayers: 8, Words: []string{"ocean", "piano", "galaxy"}}
}

func conns(ids ...string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// lobbyState builds a claimed room with host plus others seated.
func lobbyState(host string, others ...string) State {
	s := NewState(testRules())
	s.Phase = PhaseLobby
	s.HostID = host
	s.Statuses[host] = StatusLobby
	for _, id := range others {
		s.Statuses[id] = StatusLobby
	}
	return s
}

func inGameState(host, impostor string, others ...string) State {
	s := lobbyState(host, others...)
	s.Phase = PhaseInGame
	s.ImpostorID = impostor
	s.Word = "ocean"
	for id := range s.Statuses {
		s.Statuses[id] = StatusInGame
	}
	return s
}

// checkInvariants asserts the cross-field rules that must hold after
// every transition: a host exists exactly when the room is claimed,
// and impostor/word exist exactly when a game is running.
func checkInvariants(t *testing.T, s State) {
	t.Helper()
	assert.Equal(t, s.Phase != PhaseIdle, s.HostID != "", "hostId set iff phase != Idle")
	assert.Equal(t, s.Phase == PhaseInGame, s.ImpostorID != "", "impostorId set iff phase = InGame")
	assert.Equal(t, s.Phase == PhaseInGame, s.Word != "", "word set iff phase = InGame")
}

func TestClaimHost(t *testing.T) {
	s := NewState(testRules())
	s, err := Apply(s, conns("a"), Command{Type: CmdClaimHost, PlayerID: "a"})
	require.NoError(t, err)

	assert.Equal(t, PhaseLobby, s.Phase)
	assert.Equal(t, "a", s.HostID)
	assert.Equal(t, StatusLobby, s.Statuses["a"])
	assert.Equal(t, 1, s.RoomSize(conns("a")))
	checkInvariants(t, s)
}

func TestClaimHost_AlreadyClaimed(t *testing.T) {
	s := lobbyState("a")
	got, err := Apply(s, conns("a", "b"), Command{Type: CmdClaimHost, PlayerID: "b"})
	require.ErrorIs(t, err, ErrRoomClaimed)
	assert.Equal(t, "a", got.HostID)
	assert.Equal(t, PhaseLobby, got.Phase)
}

func TestJoin(t *testing.T) {
	cases := []struct {
		name      string
		setup     State
		connected map[string]bool
		wantErr   error
	}{
		{
			name:      "no room to join before claim",
			setup:     NewState(testRules()),
			connected: conns("b"),
			wantErr:   ErrNoRoom,
		},
		{
			name:      "joining a running game is rejected",
			setup:     inGameState("a", "a", "c", "d"),
			connected: conns("a", "b", "c", "d"),
			wantErr:   ErrGameStarted,
		},
		{
			name: "full room is rejected",
			setup: func() State {
				s := lobbyState("a", "p1", "p2", "p3", "p4", "p5", "p6", "p7")
				return s
			}(),
			connected: conns("a", "b", "p1", "p2", "p3", "p4", "p5", "p6", "p7"),
			wantErr:   ErrRoomFull,
		},
		{
			name:      "lobby with space accepts",
			setup:     lobbyState("a"),
			connected: conns("a", "b"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Apply(tc.setup, tc.connected, Command{Type: CmdJoin, PlayerID: "b"})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.NotEqual(t, StatusLobby, got.Statuses["b"])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusLobby, got.Statuses["b"])
			checkInvariants(t, got)
		})
	}
}

func TestJoin_DisconnectedSeatFreesCapacity(t *testing.T) {
	// Seven seated plus host fills the room, but one of them has no
	// live connection, so a newcomer may still join.
	s := lobbyState("a", "p1", "p2", "p3", "p4", "p5", "p6", "p7")
	connected := conns("a", "b", "p1", "p2", "p3", "p4", "p5", "p6") // p7 dropped

	require.Equal(t, 7, s.RoomSize(connected))
	got, err := Apply(s, connected, Command{Type: CmdJoin, PlayerID: "b"})
	require.NoError(t, err)
	assert.Equal(t, StatusLobby, got.Statuses["b"])
}

func TestStartGame(t *testing.T) {
	t.Run("only host can start", func(t *testing.T) {
		s := lobbyState("a", "b", "c")
		_, err := Apply(s, conns("a", "b", "c"), Command{Type: CmdStartGame, PlayerID: "b"})
		require.ErrorIs(t, err, ErrNotHost)
	})

	t.Run("unclaimed room has no host", func(t *testing.T) {
		s := NewState(testRules())
		_, err := Apply(s, conns("a"), Command{Type: CmdStartGame, PlayerID: "a"})
		require.ErrorIs(t, err, ErrNotHost)
	})

	t.Run("need at least 3 players", func(t *testing.T) {
		s := lobbyState("a", "b")
		got, err := Apply(s, conns("a", "b"), Command{Type: CmdStartGame, PlayerID: "a"})
		require.ErrorIs(t, err, ErrNotEnoughPlayers)
		assert.Equal(t, PhaseLobby, got.Phase)
	})

	t.Run("disconnected players do not count toward the threshold", func(t *testing.T) {
		s := lobbyState("a", "b", "c")
		_, err := Apply(s, conns("a", "b"), Command{Type: CmdStartGame, PlayerID: "a"})
		require.ErrorIs(t, err, ErrNotEnoughPlayers)
	})

	t.Run("starting a running game is rejected", func(t *testing.T) {
		s := lobbyState("a", "b", "c")
		started, err := Apply(s, conns("a", "b", "c"), Command{Type: CmdStartGame, PlayerID: "a"})
		require.NoError(t, err)

		again, err := Apply(started, conns("a", "b", "c"), Command{Type: CmdStartGame, PlayerID: "a"})
		require.ErrorIs(t, err, ErrGameStarted)
		assert.Equal(t, started.Word, again.Word)
		assert.Equal(t, started.ImpostorID, again.ImpostorID)
		checkInvariants(t, again)
	})

	t.Run("assigns word and exactly one impostor", func(t *testing.T) {
		s := lobbyState("a", "b", "c")
		got, err := Apply(s, conns("a", "b", "c"), Command{Type: CmdStartGame, PlayerID: "a"})
		require.NoError(t, err)

		assert.Equal(t, PhaseInGame, got.Phase)
		assert.Contains(t, testRules().Words, got.Word)
		assert.Contains(t, []string{"a", "b", "c"}, got.ImpostorID)
		for _, id := range []string{"a", "b", "c"} {
			assert.Equal(t, StatusInGame, got.Statuses[id])
		}
		checkInvariants(t, got)
	})
}

func TestStartGame_SelectionIsStubbed(t *testing.T) {
	// Pin the random picks: first call selects the word, second the
	// impostor from the lobby slice.
	orig := randIntn
	randIntn = func(n int) int { return n - 1 }
	defer func() { randIntn = orig }()

	s := lobbyState("a", "b", "c")
	got, err := Apply(s, conns("a", "b", "c"), Command{Type: CmdStartGame, PlayerID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "galaxy", got.Word)
	assert.NotEmpty(t, got.ImpostorID)
}

func TestEndGame(t *testing.T) {
	s := inGameState("a", "b", "b", "c")
	got, err := Apply(s, conns("a", "b", "c"), Command{Type: CmdEndGame, PlayerID: "c"})
	require.NoError(t, err)

	assert.Equal(t, PhaseIdle, got.Phase)
	assert.Empty(t, got.HostID)
	assert.Empty(t, got.ImpostorID)
	assert.Empty(t, got.Word)
	for id, st := range got.Statuses {
		assert.Equal(t, StatusIdle, st, "status of %s", id)
	}
	checkInvariants(t, got)

	// Second end in a row: the first already reset the phase.
	_, err = Apply(got, conns("a", "b", "c"), Command{Type: CmdEndGame, PlayerID: "c"})
	require.ErrorIs(t, err, ErrNoGame)
}

func TestLeave(t *testing.T) {
	cases := []struct {
		name      string
		setup     State
		connected map[string]bool
		leaver    string
		wantPhase Phase
	}{
		{
			name:      "host leaving lobby resets",
			setup:     lobbyState("a", "b", "c"),
			connected: conns("a", "b", "c"),
			leaver:    "a",
			wantPhase: PhaseIdle,
		},
		{
			name:      "host leaving mid-game resets",
			setup:     inGameState("a", "b", "b", "c"),
			connected: conns("a", "b", "c"),
			leaver:    "a",
			wantPhase: PhaseIdle,
		},
		{
			name:      "non-host leaving mid-game resets",
			setup:     inGameState("a", "b", "b", "c"),
			connected: conns("a", "b", "c"),
			leaver:    "c",
			wantPhase: PhaseIdle,
		},
		{
			name:      "non-host leaving lobby keeps the room",
			setup:     lobbyState("a", "b", "c"),
			connected: conns("a", "b", "c"),
			leaver:    "b",
			wantPhase: PhaseLobby,
		},
		{
			name:      "leave from idle room is a no-op",
			setup:     NewState(testRules()),
			connected: conns("a"),
			leaver:    "a",
			wantPhase: PhaseIdle,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Leave(tc.setup, tc.connected, tc.leaver)
			assert.Equal(t, tc.wantPhase, got.Phase)
			checkInvariants(t, got)
			if tc.wantPhase == PhaseIdle {
				for id, st := range got.Statuses {
					assert.Equal(t, StatusIdle, st, "status of %s", id)
				}
			} else {
				assert.Equal(t, StatusIdle, got.Statuses[tc.leaver])
			}
		})
	}
}

func TestLeave_HostLeaveResetsPastDisconnectedSeats(t *testing.T) {
	// b's seat survives but has no connection; the host leaving resets
	// regardless of who else is still seated.
	s := lobbyState("a", "b")
	got := Leave(s, conns("a"), "a")
	assert.Equal(t, PhaseIdle, got.Phase)
	assert.Empty(t, got.HostID)
}

func TestLeave_LastConnectedPlayerEmptiesLobby(t *testing.T) {
	// The host's connection already dropped, so b is the last live
	// player; a non-host leave that drives roomSize to zero resets
	// the whole room.
	s := lobbyState("a", "b")
	got := Leave(s, conns("b"), "b")

	assert.Equal(t, PhaseIdle, got.Phase)
	assert.Empty(t, got.HostID)
	for id, st := range got.Statuses {
		assert.Equal(t, StatusIdle, st, "status of %s", id)
	}
	checkInvariants(t, got)
}

func TestRoomSize_ExcludesDisconnected(t *testing.T) {
	s := lobbyState("a", "b", "c")
	assert.Equal(t, 3, s.RoomSize(conns("a", "b", "c")))
	assert.Equal(t, 2, s.RoomSize(conns("a", "c")))
	assert.Equal(t, 0, s.RoomSize(nil))
}
