package session

import (
	"net"
	"testing"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(data []byte) error       { return nil }
func (m *MockConnection) ReadMessage() ([]byte, error) { return nil, nil }
func (m *MockConnection) IsOpen() bool                 { return true }
func (m *MockConnection) Close() error                 { return nil }
func (m *MockConnection) RemoteAddr() net.Addr         { return &net.TCPAddr{} }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	// Test Add
	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	// Test Get
	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestSession_Binding(t *testing.T) {
	sess := NewSession("test_session", &MockConnection{})

	roomID, playerID := sess.Binding()
	if roomID != "" || playerID != "" {
		t.Fatalf("Expected empty binding before join, got (%q, %q)", roomID, playerID)
	}

	sess.BindRoom("r1", "p1")

	roomID, playerID = sess.Binding()
	if roomID != "r1" || playerID != "p1" {
		t.Fatalf("Expected binding (r1, p1), got (%q, %q)", roomID, playerID)
	}

	// A later join rebinds; the latest join wins.
	sess.BindRoom("r2", "p2")
	roomID, playerID = sess.Binding()
	if roomID != "r2" || playerID != "p2" {
		t.Fatalf("Expected binding (r2, p2), got (%q, %q)", roomID, playerID)
	}
}

func TestManager_GetByRoomID(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.BindRoom("r1", "p1")

	sess2 := NewSession("session2", &MockConnection{})
	sess2.BindRoom("r2", "p2")

	sess3 := NewSession("session3", &MockConnection{})
	sess3.BindRoom("r1", "p3")

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)

	r1Sessions := manager.GetByRoomID("r1")
	if len(r1Sessions) != 2 {
		t.Errorf("Expected 2 sessions in room r1, got %d", len(r1Sessions))
	}

	r2Sessions := manager.GetByRoomID("r2")
	if len(r2Sessions) != 1 {
		t.Errorf("Expected 1 session in room r2, got %d", len(r2Sessions))
	}

	r3Sessions := manager.GetByRoomID("r3")
	if len(r3Sessions) != 0 {
		t.Errorf("Expected 0 sessions in room r3, got %d", len(r3Sessions))
	}
}
