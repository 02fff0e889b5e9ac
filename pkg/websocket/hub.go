package websocket

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"stampcard/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan roomMessage
	done       chan struct{}
	connected  atomic.Int64
	logger     *logger.Logger
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	UserID    primitive.ObjectID     `json:"user_id"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type roomMessage struct {
	roomID string
	data   []byte
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan roomMessage, 256),
		done:       make(chan struct{}),
		logger:     log,
	}
}

func UserRoom(userID primitive.ObjectID) string {
	return "user_" + userID.Hex()
}

// Run owns the client and room maps; every mutation happens on this goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.removeClient(client)
			}
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.deliver:
			for client := range h.rooms[msg.roomID] {
				select {
				case client.send <- msg.data:
				default:
					// slow consumer; it reconnects and polls
					h.removeClient(client)
				}
			}
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.clients[client] = true
	h.connected.Add(1)

	room := UserRoom(client.UserID)
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.room = room

	h.logger.WithField("user_id", client.UserID.Hex()).Debug("WebSocket client registered")

	welcome, _ := json.Marshal(Message{
		Type:      "welcome",
		UserID:    client.UserID,
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message": "Connected successfully",
		},
	})
	select {
	case client.send <- welcome:
	default:
	}
}

func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	h.connected.Add(-1)
	close(client.send)

	if room, ok := h.rooms[client.room]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.room)
		}
	}

	h.logger.WithField("user_id", client.UserID.Hex()).Debug("WebSocket client unregistered")
}

// SendToUser queues message for every connection of userID on this instance.
// It never blocks once the hub has stopped.
func (h *Hub) SendToUser(userID primitive.ObjectID, message Message) {
	message.RoomID = UserRoom(userID)
	if message.Timestamp == 0 {
		message.Timestamp = getCurrentTimestamp()
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode websocket message")
		return
	}

	select {
	case h.deliver <- roomMessage{roomID: message.RoomID, data: data}:
	case <-h.done:
	}
}

func (h *Hub) ConnectedClients() int {
	return int(h.connected.Load())
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
