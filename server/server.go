package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/puzzlehub/relay/broadcast"
	"github.com/puzzlehub/relay/config"
	"github.com/puzzlehub/relay/logger"
	"github.com/puzzlehub/relay/monitor"
	"github.com/puzzlehub/relay/network"
	"github.com/puzzlehub/relay/protocol"
	"github.com/puzzlehub/relay/room"
	relayrpc "github.com/puzzlehub/relay/rpc"
	"github.com/puzzlehub/relay/session"
	"github.com/puzzlehub/relay/timer"
)

// RelayServer accepts websocket connections and routes each inbound
// frame to the room operations. One goroutine per connection handles
// that connection's frames sequentially; room state is serialized by
// the room and registry locks.
type RelayServer struct {
	addr           string
	maxMessageSize int64
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    room.Broadcaster
	monitor        *monitor.Monitor
	rpcServer      *relayrpc.Server
	timers         *timer.Manager
	shutdownChan   chan struct{}
}

func NewRelayServer(cfg *config.Config, mon *monitor.Monitor) *RelayServer {
	s := &RelayServer{
		addr:           cfg.Server.HTTPAddress,
		maxMessageSize: cfg.Limits.MaxMessageSize,
		roomManager:    room.NewManager(),
		sessionManager: session.NewManager(),
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, mon)

	rpcServer, err := relayrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(relayrpc.NewAdminService(s.roomManager, s.sessionManager))

	// Sample the room gauge on a fixed cadence.
	s.timers = timer.NewManager()
	s.timers.Schedule(5*time.Second, 5*time.Second, func() {
		if s.monitor != nil {
			s.monitor.SetActiveRooms(s.roomManager.Count())
		}
	})

	return s
}

func (s *RelayServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Relay server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *RelayServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.timers.Stop()
}

func (s *RelayServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *RelayServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if s.maxMessageSize > 0 {
		wsConn.SetReadLimit(s.maxMessageSize)
	}

	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncConnectedClients()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.dropSession(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			data, err := wsConn.ReadMessage()
			if err != nil {
				return
			}
			s.handleFrame(sess, data)
		}
	}
}

// dropSession runs the leave path for a closed connection. Sessions
// that never joined a room have nothing to unwind.
func (s *RelayServer) dropSession(sess *session.Session) {
	s.sessionManager.Remove(sess.GetID())
	if s.monitor != nil {
		s.monitor.DecConnectedClients()
	}

	roomID, playerID := sess.Binding()
	if roomID == "" {
		return
	}

	r, roster, ok := s.roomManager.Leave(roomID, sess, playerID)
	if !ok {
		return
	}
	s.broadcaster.Deliver(r, roster)
}

// handleFrame decodes and dispatches one inbound frame. Malformed or
// unknown frames are dropped without a reply; the connection stays open.
func (s *RelayServer) handleFrame(sess *session.Session, data []byte) {
	if s.monitor != nil {
		s.monitor.IncMessagesReceived()
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		if s.monitor != nil {
			s.monitor.IncFramesDropped()
		}
		logger.Log.Debugf("Dropping frame from session %s: %v", sess.GetID(), err)
		return
	}

	switch m := msg.(type) {
	case *protocol.Join:
		s.handleJoin(sess, m)
	case *protocol.PieceMove:
		s.handlePieceMove(sess, m)
	case *protocol.InitPuzzle:
		s.handleInitPuzzle(sess, m)
	case *protocol.ChatMessage:
		s.handleChat(sess, m)
	}
}

func (s *RelayServer) handleJoin(sess *session.Session, m *protocol.Join) {
	r, snapshot, roster := s.roomManager.Join(m.RoomID, sess, m.PlayerID, m.PlayerName)
	sess.BindRoom(r.ID, m.PlayerID)

	// The puzzle snapshot goes to the joiner alone; the roster goes to
	// everyone in the room, the joiner included.
	if data, err := json.Marshal(snapshot); err == nil {
		sess.Send(data)
	}
	s.broadcaster.Deliver(r, roster)

	logger.Log.Infof("Session %s joined room %s as player %q", sess.GetID(), r.ID, m.PlayerID)
}

func (s *RelayServer) handlePieceMove(sess *session.Session, m *protocol.PieceMove) {
	r, ok := s.boundRoom(sess)
	if !ok {
		return
	}
	s.broadcaster.Deliver(r, r.ApplyPieceMove(m.Pieces))
}

func (s *RelayServer) handleInitPuzzle(sess *session.Session, m *protocol.InitPuzzle) {
	r, ok := s.boundRoom(sess)
	if !ok {
		return
	}
	s.broadcaster.Deliver(r, r.InitPuzzle(m.Pieces))
}

func (s *RelayServer) handleChat(sess *session.Session, m *protocol.ChatMessage) {
	r, ok := s.boundRoom(sess)
	if !ok {
		return
	}
	s.broadcaster.Deliver(r, r.RecordChat(m.PlayerID, m.PlayerName, m.Message, m.Timestamp))
}

// boundRoom resolves the session's joined room. Operations arriving
// before the first join are silent no-ops.
func (s *RelayServer) boundRoom(sess *session.Session) (*room.Room, bool) {
	roomID, _ := sess.Binding()
	if roomID == "" {
		return nil, false
	}
	return s.roomManager.Get(roomID)
}
