// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"servo-service/internal/model"
	"servo-service/internal/service"
	"servo-service/internal/utils"
)

const (
	wsReadLimit    = 4096
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = 54 * time.Second
	wsWriteWait    = 10 * time.Second
	wsCommandLimit = 10 * time.Second
)

// WebSocketHandler streams controller events and accepts a few commands
type WebSocketHandler struct {
	upgrader     websocket.Upgrader
	connections  *ConnectionManager
	servoService *service.ServoService
	eventBus     *EventBus
	logger       *utils.ServiceLogger
	done         chan struct{}
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigins empty
// accepts every origin.
func NewWebSocketHandler(
	servoService *service.ServoService,
	eventBus *EventBus,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return &WebSocketHandler{
		upgrader:     upgrader,
		connections:  NewConnectionManager(),
		servoService: servoService,
		eventBus:     eventBus,
		logger:       utils.NewServiceLogger(logger, "websocket-handler"),
		done:         make(chan struct{}),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

// Run forwards bus events to clients until Stop is called
func (h *WebSocketHandler) Run() {
	events := h.eventBus.SubscribeAll()
	for {
		select {
		case event := <-events:
			h.BroadcastEvent(event)
		case <-h.done:
			return
		}
	}
}

// Stop ends Run
func (h *WebSocketHandler) Stop() {
	close(h.done)
}

// HandleEventConnection upgrades a request to an event stream
// @Summary Controller event stream
// @Description WebSocket stream of controller, operation and action group events
// @Tags WebSocket
// @Router /ws/events [get]
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("Event WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      "initial_status",
		Data:      h.servoService.Status(),
		Timestamp: time.Now(),
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
	}()

	client.Connection.SetReadLimit(wsReadLimit)
	client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "invalid message", "")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "subscribe":
		if eventType, ok := topicOf(message); ok {
			client.Subscribe(eventType)
			h.sendMessage(client, &WebSocketMessage{
				Type:      "subscription_confirmed",
				Data:      map[string]interface{}{"topic": eventType},
				Timestamp: time.Now(),
				RequestID: message.RequestID,
			})
		}
	case "unsubscribe":
		if eventType, ok := topicOf(message); ok {
			client.Unsubscribe(eventType)
		}
	case "command":
		go h.executeCommand(client, message)
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	default:
		h.sendError(client, fmt.Sprintf("unknown message type: %s", message.Type), message.RequestID)
	}
}

func topicOf(message *WebSocketMessage) (model.EventType, bool) {
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		return "", false
	}
	topic, ok := data["topic"].(string)
	if !ok || topic == "" {
		return "", false
	}
	return model.EventType(topic), true
}

// executeCommand runs the read-only and stop commands allowed over WebSocket
func (h *WebSocketHandler) executeCommand(client *Client, message *WebSocketMessage) {
	data, _ := message.Data.(map[string]interface{})
	command, _ := data["command"].(string)

	ctx, cancel := context.WithTimeout(context.Background(), wsCommandLimit)
	defer cancel()
	ctx = service.WithRequestID(ctx, message.RequestID)

	var (
		result interface{}
		err    error
	)
	switch command {
	case "status":
		result = h.servoService.Status()
	case "battery":
		result, err = h.servoService.BatteryVoltage(ctx)
	case "stop_action_group":
		result, err = h.servoService.StopActionGroup(ctx)
	default:
		h.sendError(client, fmt.Sprintf("unknown command: %q", command), message.RequestID)
		return
	}

	response := map[string]interface{}{
		"command": command,
		"success": err == nil,
		"result":  result,
	}
	if err != nil {
		response["error"] = err.Error()
	}
	h.sendMessage(client, &WebSocketMessage{
		Type:      "command_response",
		Data:      response,
		Timestamp: time.Now(),
		RequestID: message.RequestID,
	})
}

// BroadcastEvent sends a controller event to every client subscribed to it
func (h *WebSocketHandler) BroadcastEvent(event *model.ControllerEvent) {
	messageBytes, err := json.Marshal(&WebSocketMessage{
		Type:      "event",
		Data:      event,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	dropped := h.connections.Broadcast(messageBytes, func(c *Client) bool {
		return c.Wants(event.EventType)
	})
	if dropped > 0 {
		h.logger.Warn("Client send channel full during broadcast",
			zap.String("event_type", string(event.EventType)),
			zap.Int("dropped", dropped),
		)
	}
}

// sendMessage sends a message to one client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	if dropped := h.connections.Broadcast(messageBytes, func(c *Client) bool { return c == client }); dropped > 0 {
		h.logger.Warn("Client send channel full, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, errorMsg, requestID string) {
	h.sendMessage(client, &WebSocketMessage{
		Type:      "error",
		Data:      map[string]interface{}{"error": errorMsg},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}
