package models

// Player 房间花名册里的一条玩家记录
//
// Score is initialized to zero and carried on the wire but never
// incremented by the relay; scoring happens client-side.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Score  int    `json:"score"`
	Online bool   `json:"online"`
}

// Clone returns a copy so callers can hand rosters out without
// exposing the room's own records.
func (p *Player) Clone() Player {
	return *p
}
