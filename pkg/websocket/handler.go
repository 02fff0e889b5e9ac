package websocket

import (
	"net/http"
	"time"

	"stampcard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HandlerConfig struct {
	ReadBufferSize    int
	WriteBufferSize   int
	HandshakeTimeout  time.Duration
	PingInterval      time.Duration
	PongTimeout       time.Duration
	MaxConnections    int
	EnableCompression bool
	AllowedOrigins    []string
}

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	config   *HandlerConfig
	logger   *logger.Logger
}

func NewHandler(hub *Hub, config *HandlerConfig, log *logger.Logger) *Handler {
	return &Handler{
		hub:    hub,
		config: config,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			HandshakeTimeout:  config.HandshakeTimeout,
			EnableCompression: config.EnableCompression,
			CheckOrigin:       originChecker(config.AllowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket upgrades an authenticated request and subscribes the
// connection to the caller's personal room.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	role := c.GetString("user_role")

	if h.config.MaxConnections > 0 && h.hub.ConnectedClients() >= h.config.MaxConnections {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Too many connections"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, userObjectID, role, h.config.PongTimeout, h.config.PingInterval)
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Handler) SendUserNotification(userID primitive.ObjectID, notificationType string, data map[string]interface{}) {
	h.hub.SendToUser(userID, Message{
		Type:   notificationType,
		UserID: userID,
		Data:   data,
	})
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
