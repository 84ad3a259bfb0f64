// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/puzzlehub/relay/monitor"
	"github.com/puzzlehub/relay/room"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// RoomBroadcaster fans one payload out to every connection in a room.
// The payload is serialized once; every recipient gets the identical
// bytes. Delivery is fire-and-forget: connections that are not open
// are skipped, an individual send failure never aborts the batch, and
// nothing is retried. Connections are only ever removed via leave,
// never here.
type RoomBroadcaster struct {
	roomManager *room.Manager
	monitor     *monitor.Monitor
}

func NewRoomBroadcaster(roomManager *room.Manager, mon *monitor.Monitor) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager: roomManager,
		monitor:     mon,
	}
}

func (b *RoomBroadcaster) Deliver(r *room.Room, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	start := time.Now()
	for _, s := range r.Sessions() {
		if !s.Conn.IsOpen() {
			continue
		}
		if err := s.Send(data); err != nil {
			// Silent drop; the peer will be cleaned up by leave.
			continue
		}
	}
	if b.monitor != nil {
		b.monitor.ObserveBroadcastFanout(time.Since(start))
	}

	return nil
}

func (b *RoomBroadcaster) DeliverToRoom(roomID string, payload any) error {
	r, exists := b.roomManager.Get(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	return b.Deliver(r, payload)
}
