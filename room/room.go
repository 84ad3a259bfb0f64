// room/room.go
package room

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzzlehub/relay/models"
	"github.com/puzzlehub/relay/protocol"
	"github.com/puzzlehub/relay/session"
)

// DefaultRoomID is used when a join names no room.
const DefaultRoomID = "default"

const avatarURLFormat = "https://api.dicebear.com/7.x/personas/svg?seed=%s"

// AvatarURL derives a player's avatar deterministically from the
// display name, so the same name always renders the same face.
func AvatarURL(playerName string) string {
	return fmt.Sprintf(avatarURLFormat, url.QueryEscape(playerName))
}

// Room 是协作房间的核心结构: 连接集合 + 拼图状态 + 玩家花名册
//
// All mutation goes through the room mutex. Join and Leave are only
// reached through the Manager, which additionally holds the registry
// lock so that room creation and destruction stay atomic with
// connection membership changes.
type Room struct {
	ID        string
	CreatedAt time.Time

	conns   map[string]*session.Session // sessionID -> session
	pieces  json.RawMessage             // opaque, passed through verbatim
	players []*models.Player            // insertion order = join order
	mutex   sync.Mutex
}

func newRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		conns:     make(map[string]*session.Session),
		pieces:    protocol.EmptyPieces,
	}
}

// Join adds the connection and installs a fresh roster record for
// playerID. A rejoin with the same id replaces the old record
// wholesale, resetting score to 0 and online to true; that reset is
// deliberate, not an accident.
//
// Returns the puzzle snapshot to unicast to the joiner and the roster
// payload to broadcast to the whole room.
func (r *Room) Join(sess *session.Session, playerID, playerName string) (protocol.PuzzleState, protocol.Roster) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.conns[sess.GetID()] = sess

	player := &models.Player{
		ID:     playerID,
		Name:   playerName,
		Avatar: AvatarURL(playerName),
		Score:  0,
		Online: true,
	}

	filtered := make([]*models.Player, 0, len(r.players)+1)
	for _, p := range r.players {
		if p.ID != playerID {
			filtered = append(filtered, p)
		}
	}
	r.players = append(filtered, player)

	return protocol.NewPuzzleState(r.pieces), protocol.NewRoster(r.rosterLocked())
}

// ApplyPieceMove replaces the piece array wholesale. Last write wins;
// there is no merging of concurrent moves.
func (r *Room) ApplyPieceMove(pieces json.RawMessage) protocol.PieceMoveBroadcast {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.replacePiecesLocked(pieces)
	return protocol.NewPieceMoveBroadcast(r.pieces)
}

// InitPuzzle is the same wholesale replacement as ApplyPieceMove but
// announced as a full puzzle_state. Any client may call it at any
// time; there is no leader election.
func (r *Room) InitPuzzle(pieces json.RawMessage) protocol.PuzzleState {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.replacePiecesLocked(pieces)
	return protocol.NewPuzzleState(r.pieces)
}

// replacePiecesLocked is the single mutation point for puzzle state,
// so a future versioned policy only has to touch this.
func (r *Room) replacePiecesLocked(pieces json.RawMessage) {
	if len(pieces) == 0 {
		pieces = protocol.EmptyPieces
	}
	r.pieces = pieces
}

// RecordChat builds a chat broadcast with a fresh message id. The
// player identity, text, and client timestamp are echoed verbatim;
// nothing is stored.
func (r *Room) RecordChat(playerID, playerName, text string, timestamp json.RawMessage) protocol.ChatBroadcast {
	return protocol.NewChatBroadcast(uuid.New().String(), playerName, playerID, text, timestamp)
}

// Leave removes the connection and marks the player's roster record
// offline. The record is retained so scoreboards referencing the id
// stay valid until the room is destroyed. Reports whether the room is
// now empty; the Manager deletes it in the same critical section.
func (r *Room) Leave(sess *session.Session, playerID string) (protocol.Roster, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.conns, sess.GetID())

	for _, p := range r.players {
		if p.ID == playerID {
			p.Online = false
		}
	}

	return protocol.NewRoster(r.rosterLocked()), len(r.conns) == 0
}

// Sessions returns a snapshot of the connections for fanout.
func (r *Room) Sessions() []*session.Session {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sessions := make([]*session.Session, 0, len(r.conns))
	for _, s := range r.conns {
		sessions = append(sessions, s)
	}
	return sessions
}

// Roster returns a copy of the player records in join order.
func (r *Room) Roster() []models.Player {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.rosterLocked()
}

func (r *Room) rosterLocked() []models.Player {
	roster := make([]models.Player, 0, len(r.players))
	for _, p := range r.players {
		roster = append(roster, p.Clone())
	}
	return roster
}

// Pieces returns the current piece array verbatim.
func (r *Room) Pieces() json.RawMessage {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.pieces
}

// ConnCount returns the number of connections currently joined.
func (r *Room) ConnCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.conns)
}

// --- 房间注册表 ---

// Manager owns the process-wide room table. Rooms are created lazily
// on first join and destroyed the instant their last connection
// leaves; both transitions happen under the manager mutex so a join
// can never observe a room being deleted out from under it.
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// Join resolves or lazily creates the room for roomID (empty defaults
// to DefaultRoomID) and registers the connection, all in one critical
// section. Concurrent joins with the same id always observe the same
// Room instance.
func (m *Manager) Join(roomID string, sess *session.Session, playerID, playerName string) (*Room, protocol.PuzzleState, protocol.Roster) {
	if roomID == "" {
		roomID = DefaultRoomID
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, exists := m.rooms[roomID]
	if !exists {
		r = newRoom(roomID)
		m.rooms[roomID] = r
	}

	snapshot, roster := r.Join(sess, playerID, playerName)
	return r, snapshot, roster
}

// Leave removes the connection from its room. The emptiness check and
// the registry deletion share the critical section with the removal,
// so there is no window where an empty room stays visible.
func (m *Manager) Leave(roomID string, sess *session.Session, playerID string) (*Room, protocol.Roster, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, exists := m.rooms[roomID]
	if !exists {
		return nil, protocol.Roster{}, false
	}

	roster, empty := r.Leave(sess, playerID)
	if empty {
		delete(m.rooms, roomID)
	}
	return r, roster, true
}

// Get returns the live room for roomID, if any.
func (m *Manager) Get(roomID string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[roomID]
	return r, exists
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Summary is a read-only view of one room for introspection.
type Summary struct {
	ID          string
	Connections int
	Players     []models.Player
	CreatedAt   time.Time
}

// Snapshot returns a summary of every live room.
func (m *Manager) Snapshot() []Summary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	summaries := make([]Summary, 0, len(m.rooms))
	for _, r := range m.rooms {
		summaries = append(summaries, Summary{
			ID:          r.ID,
			Connections: r.ConnCount(),
			Players:     r.Roster(),
			CreatedAt:   r.CreatedAt,
		})
	}
	return summaries
}
