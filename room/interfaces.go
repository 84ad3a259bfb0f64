package room

// Broadcaster defines the interface for fanning a payload out to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	Deliver(r *Room, payload any) error
	DeliverToRoom(roomID string, payload any) error
}
