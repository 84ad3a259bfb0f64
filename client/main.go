package main

import (
	"bufio"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// send marshals and sends one JSON frame to the relay.
func send(c *websocket.Conn, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	roomID := "default"
	playerName := "guest"
	if len(os.Args) > 1 {
		roomID = os.Args[1]
	}
	if len(os.Args) > 2 {
		playerName = os.Args[2]
	}

	addr := os.Getenv("RELAY_ADDR")
	if addr == "" {
		addr = "localhost:3001"
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- RECV: %s", string(message))
		}
	}()

	playerID := uuid.New().String()
	log.Printf("Joining room %q as %q...", roomID, playerName)
	join := map[string]string{
		"type":       "join",
		"roomId":     roomID,
		"playerId":   playerID,
		"playerName": playerName,
	}
	if err := send(c, join); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Client started. Type a message and press Enter to chat.")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}

			chat := map[string]any{
				"type":       "chat_message",
				"playerName": playerName,
				"playerId":   playerID,
				"message":    text,
				"timestamp":  time.Now().UnixMilli(),
			}
			if err := send(c, chat); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", text)
		}
	}
}
