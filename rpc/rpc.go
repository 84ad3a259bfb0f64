package rpc

import (
	"net"
	"net/rpc"
	"time"

	"github.com/puzzlehub/relay/logger"
	"github.com/puzzlehub/relay/models"
	"github.com/puzzlehub/relay/room"
	"github.com/puzzlehub/relay/session"
)

// Server manages the RPC listener for the read-only admin surface.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes read-only introspection over the live room
// table. Methods follow the net/rpc signature rules.
type AdminService struct {
	rooms    *room.Manager
	sessions *session.Manager
}

func NewAdminService(rooms *room.Manager, sessions *session.Manager) *AdminService {
	return &AdminService{rooms: rooms, sessions: sessions}
}

type StatsArgs struct{}

type StatsReply struct {
	ActiveRooms      int
	ConnectedClients int
}

func (a *AdminService) Stats(args *StatsArgs, reply *StatsReply) error {
	reply.ActiveRooms = a.rooms.Count()
	reply.ConnectedClients = a.sessions.Count()
	return nil
}

type ListRoomsArgs struct{}

type RoomInfo struct {
	ID          string
	Connections int
	Players     []models.Player
	CreatedAt   time.Time
}

type ListRoomsReply struct {
	Rooms []RoomInfo
}

func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	for _, s := range a.rooms.Snapshot() {
		reply.Rooms = append(reply.Rooms, RoomInfo{
			ID:          s.ID,
			Connections: s.Connections,
			Players:     s.Players,
			CreatedAt:   s.CreatedAt,
		})
	}
	return nil
}
