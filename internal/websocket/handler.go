package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"harbor-chat/internal/auth"
	"harbor-chat/internal/events"
	"harbor-chat/internal/services"
	"harbor-chat/internal/transport/httpdto"
	"harbor-chat/pkg/logger"
)

const readTimeout = 60 * time.Second

// clientCommand is the inbound control message clients send to manage
// their channel subscriptions.
type clientCommand struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

type Handler struct {
	auth       *auth.Service
	hub        *Hub
	authorizer *ChannelAuthorizer
	presence   *services.PresenceService
	log        *logger.Logger
}

func NewHandler(authService *auth.Service, hub *Hub, authorizer *ChannelAuthorizer, presence *services.PresenceService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{auth: authService, hub: hub, authorizer: authorizer, presence: presence, log: log}
}

// Connect upgrades the request, registers the client, and serves its
// subscription commands until the socket closes. Every client starts out
// subscribed to the global thread-updates channel.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	userID, err := h.auth.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	h.hub.Subscribe(client, events.ChannelThreadUpdates)
	h.presence.Connected(ctx, userID, client.ID)
	go client.WriteLoop(ctx)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.presence.Heartbeat(ctx, userID)
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleCommand(ctx, client, data)
	}

	h.hub.Unregister(client)
	// ctx is about to die with the request; use a fresh one so the
	// offline transition still reaches Redis.
	dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dropCancel()
	h.presence.Disconnected(dropCtx, userID, client.ID)
}

func (h *Handler) handleCommand(ctx context.Context, client *Client, data []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return
	}

	switch cmd.Action {
	case "subscribe":
		ok, err := h.authorizer.CanSubscribe(ctx, client.UserID, cmd.Channel)
		if err != nil {
			h.log.Warnf("authorize %s for %s: %v", cmd.Channel, client.UserID, err)
			return
		}
		if !ok {
			return
		}
		h.hub.Subscribe(client, cmd.Channel)
	case "unsubscribe":
		h.hub.Unsubscribe(client, cmd.Channel)
	}
}
