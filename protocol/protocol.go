// Package protocol defines the JSON wire messages exchanged with
// relay clients: a closed set of inbound kinds produced by a
// validating decode, and builders for everything the server emits.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/puzzlehub/relay/models"
)

const (
	TypeJoin        = "join"
	TypePieceMove   = "piece_move"
	TypeChatMessage = "chat_message"
	TypeInitPuzzle  = "init_puzzle"
	TypePuzzleState = "puzzle_state"
	TypePlayers     = "players"
)

var ErrUnknownType = errors.New("unknown message type")

// EmptyPieces is the canonical zero value for a puzzle piece array.
var EmptyPieces = json.RawMessage("[]")

// Inbound is the closed set of frames a client may send. Anything
// that does not decode into one of these is dropped by the caller.
type Inbound interface {
	inbound()
}

type Join struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// PieceMove carries the full replacement piece array. The relay never
// looks inside it.
type PieceMove struct {
	Pieces json.RawMessage `json:"pieces"`
}

type InitPuzzle struct {
	Pieces json.RawMessage `json:"pieces"`
}

type ChatMessage struct {
	PlayerName string          `json:"playerName"`
	PlayerID   string          `json:"playerId"`
	Message    string          `json:"message"`
	Timestamp  json.RawMessage `json:"timestamp"`
}

func (*Join) inbound()        {}
func (*PieceMove) inbound()   {}
func (*InitPuzzle) inbound()  {}
func (*ChatMessage) inbound() {}

// Decode parses one inbound frame into its tagged variant.
func Decode(data []byte) (Inbound, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch envelope.Type {
	case TypeJoin:
		var m Join
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case TypePieceMove:
		var m PieceMove
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case TypeInitPuzzle:
		var m InitPuzzle
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case TypeChatMessage:
		var m ChatMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}
}

// --- Outbound payloads ---

type PuzzleState struct {
	Type      string          `json:"type"`
	Pieces    json.RawMessage `json:"pieces"`
	GameState struct{}        `json:"gameState"`
}

type Roster struct {
	Type    string          `json:"type"`
	Players []models.Player `json:"players"`
}

type PieceMoveBroadcast struct {
	Type   string          `json:"type"`
	Pieces json.RawMessage `json:"pieces"`
}

type ChatBroadcast struct {
	Type    string   `json:"type"`
	Message ChatBody `json:"message"`
}

type ChatBody struct {
	ID        string          `json:"id"`
	Player    string          `json:"player"`
	PlayerID  string          `json:"playerId"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp"`
	Type      string          `json:"type"`
}

func NewPuzzleState(pieces json.RawMessage) PuzzleState {
	return PuzzleState{Type: TypePuzzleState, Pieces: normalizePieces(pieces)}
}

func NewRoster(players []models.Player) Roster {
	return Roster{Type: TypePlayers, Players: players}
}

func NewPieceMoveBroadcast(pieces json.RawMessage) PieceMoveBroadcast {
	return PieceMoveBroadcast{Type: TypePieceMove, Pieces: normalizePieces(pieces)}
}

func NewChatBroadcast(id, playerName, playerID, text string, timestamp json.RawMessage) ChatBroadcast {
	return ChatBroadcast{
		Type: TypeChatMessage,
		Message: ChatBody{
			ID:        id,
			Player:    playerName,
			PlayerID:  playerID,
			Message:   text,
			Timestamp: timestamp,
			Type:      "message",
		},
	}
}

func normalizePieces(pieces json.RawMessage) json.RawMessage {
	if len(pieces) == 0 {
		return EmptyPieces
	}
	return pieces
}
