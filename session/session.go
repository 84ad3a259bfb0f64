// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/puzzlehub/relay/network"
)

// Session binds one transport connection to at most one
// (room, player) pair for its lifetime. A session that never joins a
// room stays inert and cleans up trivially on disconnect.
type Session struct {
	ID         string
	Conn       network.Connection
	RoomID     string
	PlayerID   string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// BindRoom remembers the room and player this connection joined as.
// Rebinding on a later join is allowed; the latest join wins.
func (s *Session) BindRoom(roomID, playerID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.RoomID = roomID
	s.PlayerID = playerID
}

// Binding returns the current (room, player) association. Both are
// empty until the first successful join.
func (s *Session) Binding() (roomID, playerID string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.RoomID, s.PlayerID
}

func (s *Session) Send(data []byte) error {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
	return s.Conn.Send(data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// GetByRoomID returns every session currently bound to roomID.
func (m *Manager) GetByRoomID(roomID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if r, _ := session.Binding(); r == roomID {
			result = append(result, session)
		}
	}
	return result
}
