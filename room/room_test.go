package room

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puzzlehub/relay/session"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	open bool
	sent [][]byte
	mu   sync.Mutex
}

func NewMockConnection() *MockConnection {
	return &MockConnection{open: true}
}

func (m *MockConnection) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return nil
}

func (m *MockConnection) ReadMessage() ([]byte, error) { return nil, nil }
func (m *MockConnection) IsOpen() bool                 { return m.open }
func (m *MockConnection) Close() error                 { m.open = false; return nil }
func (m *MockConnection) RemoteAddr() net.Addr         { return &net.TCPAddr{} }

// newTestSession creates a dummy session for testing purposes.
func newTestSession(id string) *session.Session {
	return session.NewSession(id, NewMockConnection())
}

func TestManager_JoinResolvesSameRoom(t *testing.T) {
	manager := NewManager()

	r1, _, _ := manager.Join("r1", newTestSession("s1"), "p1", "Alice")
	r2, _, _ := manager.Join("r1", newTestSession("s2"), "p2", "Bob")

	require.NotNil(t, r1)
	assert.Same(t, r1, r2, "joins with the same room id must resolve the same instance")
	assert.Equal(t, 2, r1.ConnCount())
	assert.Equal(t, 1, manager.Count())
}

func TestManager_JoinDefaultsRoomID(t *testing.T) {
	manager := NewManager()

	r, _, _ := manager.Join("", newTestSession("s1"), "p1", "Alice")

	assert.Equal(t, DefaultRoomID, r.ID)
}

func TestRoom_JoinReturnsSnapshotAndRoster(t *testing.T) {
	manager := NewManager()

	_, snapshot, roster := manager.Join("r1", newTestSession("s1"), "a1", "Alice")

	assert.Equal(t, "puzzle_state", snapshot.Type)
	assert.JSONEq(t, "[]", string(snapshot.Pieces))

	require.Len(t, roster.Players, 1)
	p := roster.Players[0]
	assert.Equal(t, "a1", p.ID)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, AvatarURL("Alice"), p.Avatar)
	assert.Equal(t, 0, p.Score)
	assert.True(t, p.Online)
}

func TestRoom_RejoinReplacesRosterRecord(t *testing.T) {
	manager := NewManager()

	r, _, _ := manager.Join("r1", newTestSession("s1"), "a1", "Alice")
	manager.Join("r1", newTestSession("s2"), "b1", "Bob")

	// a1 reconnects with a new connection and a new display name.
	sess3 := newTestSession("s3")
	_, _, roster := manager.Join("r1", sess3, "a1", "Alicia")

	require.Len(t, roster.Players, 2)
	// The replaced record moves to the end of the roster.
	assert.Equal(t, "b1", roster.Players[0].ID)
	assert.Equal(t, "a1", roster.Players[1].ID)
	assert.Equal(t, "Alicia", roster.Players[1].Name)
	assert.Equal(t, 0, roster.Players[1].Score)
	assert.True(t, roster.Players[1].Online)

	assert.Equal(t, 3, r.ConnCount())
}

func TestRoom_PieceMoveUpdatesSnapshot(t *testing.T) {
	manager := NewManager()

	r, _, _ := manager.Join("r1", newTestSession("s1"), "a1", "Alice")

	pieces := json.RawMessage(`[{"id":1,"x":5,"y":7}]`)
	payload := r.ApplyPieceMove(pieces)

	assert.Equal(t, "piece_move", payload.Type)
	assert.JSONEq(t, string(pieces), string(payload.Pieces))

	// A later joiner sees the moved pieces in its snapshot.
	_, snapshot, _ := manager.Join("r1", newTestSession("s2"), "b1", "Bob")
	assert.JSONEq(t, string(pieces), string(snapshot.Pieces))
}

func TestRoom_InitPuzzleAnnouncesFullState(t *testing.T) {
	manager := NewManager()

	r, _, _ := manager.Join("r1", newTestSession("s1"), "a1", "Alice")

	pieces := json.RawMessage(`[{"id":1,"x":0,"y":0}]`)
	payload := r.InitPuzzle(pieces)

	assert.Equal(t, "puzzle_state", payload.Type)
	assert.JSONEq(t, string(pieces), string(payload.Pieces))
	assert.JSONEq(t, string(pieces), string(r.Pieces()))
}

func TestRoom_RecordChatGeneratesUniqueIDs(t *testing.T) {
	manager := NewManager()
	r, _, _ := manager.Join("r1", newTestSession("s1"), "a1", "Alice")

	ts := json.RawMessage(`1735689600000`)
	first := r.RecordChat("a1", "Alice", "hello", ts)
	second := r.RecordChat("a1", "Alice", "hello", ts)

	assert.Equal(t, "chat_message", first.Type)
	assert.Equal(t, "message", first.Message.Type)
	assert.Equal(t, "Alice", first.Message.Player)
	assert.Equal(t, "a1", first.Message.PlayerID)
	assert.Equal(t, "hello", first.Message.Message)
	assert.Equal(t, string(ts), string(first.Message.Timestamp))

	assert.NotEmpty(t, first.Message.ID)
	assert.NotEqual(t, first.Message.ID, second.Message.ID)
}

func TestManager_LeaveMarksPlayerOffline(t *testing.T) {
	manager := NewManager()

	sess1 := newTestSession("s1")
	r, _, _ := manager.Join("r1", sess1, "a1", "Alice")
	manager.Join("r1", newTestSession("s2"), "b1", "Bob")

	_, roster, ok := manager.Leave("r1", sess1, "a1")
	require.True(t, ok)

	// The record is retained, only flipped offline.
	require.Len(t, roster.Players, 2)
	assert.Equal(t, "a1", roster.Players[0].ID)
	assert.False(t, roster.Players[0].Online)
	assert.True(t, roster.Players[1].Online)

	// Room still alive: one connection remains.
	assert.Equal(t, 1, r.ConnCount())
	_, exists := manager.Get("r1")
	assert.True(t, exists)
}

func TestManager_LastLeaveDestroysRoom(t *testing.T) {
	manager := NewManager()

	sess := newTestSession("s1")
	r, _, _ := manager.Join("r1", sess, "a1", "Alice")
	r.ApplyPieceMove(json.RawMessage(`[{"id":9}]`))

	_, _, ok := manager.Leave("r1", sess, "a1")
	require.True(t, ok)

	_, exists := manager.Get("r1")
	assert.False(t, exists, "empty room must be destroyed immediately")
	assert.Equal(t, 0, manager.Count())

	// A fresh join gets a brand-new room with no leaked state.
	fresh, snapshot, roster := manager.Join("r1", newTestSession("s2"), "b1", "Bob")
	assert.NotSame(t, r, fresh)
	assert.JSONEq(t, "[]", string(snapshot.Pieces))
	require.Len(t, roster.Players, 1)
	assert.Equal(t, "b1", roster.Players[0].ID)
}

func TestManager_LeaveUnknownRoom(t *testing.T) {
	manager := NewManager()

	_, _, ok := manager.Leave("nope", newTestSession("s1"), "a1")
	assert.False(t, ok)
}

func TestManager_ConcurrentJoinsCreateOneRoom(t *testing.T) {
	manager := NewManager()

	const joiners = 50
	rooms := make([]*Room, joiners)

	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, _, _ := manager.Join("r1", newTestSession(fmt.Sprintf("sess-%d", i)), "p", "Player")
			rooms[i] = r
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, manager.Count())
	for i := 1; i < joiners; i++ {
		assert.Same(t, rooms[0], rooms[i])
	}
}

func TestManager_Snapshot(t *testing.T) {
	manager := NewManager()

	manager.Join("r1", newTestSession("s1"), "a1", "Alice")
	manager.Join("r2", newTestSession("s2"), "b1", "Bob")

	summaries := manager.Snapshot()
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Equal(t, 1, s.Connections)
		assert.Len(t, s.Players, 1)
	}
}

func TestAvatarURL_Deterministic(t *testing.T) {
	assert.Equal(t, AvatarURL("Alice"), AvatarURL("Alice"))
	assert.Contains(t, AvatarURL("Alice"), "seed=Alice")
	assert.NotEqual(t, AvatarURL("Alice"), AvatarURL("Bob"))
}
