package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"servo-service/internal/config"
	"servo-service/internal/model"
	"servo-service/internal/repository"
	"servo-service/internal/service"
	"servo-service/pkg/lsc"
)

func TestEventBusDelivery(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	go bus.Start()
	defer bus.Stop()

	connected := bus.Subscribe(model.EventControllerConnected)
	all := bus.SubscribeAll()

	bus.Publish(model.NewControllerEvent(model.EventBatteryReading, model.SeverityInfo, nil))
	bus.Publish(model.NewControllerEvent(model.EventControllerConnected, model.SeverityInfo, nil))

	select {
	case event := <-connected:
		assert.Equal(t, model.EventControllerConnected, event.EventType)
	case <-time.After(time.Second):
		t.Fatal("typed subscriber got nothing")
	}

	var seen []model.EventType
	for len(seen) < 2 {
		select {
		case event := <-all:
			seen = append(seen, event.EventType)
		case <-time.After(time.Second):
			t.Fatalf("catch-all subscriber got %v", seen)
		}
	}
	assert.Equal(t, []model.EventType{model.EventBatteryReading, model.EventControllerConnected}, seen)
}

func TestClientSubscriptions(t *testing.T) {
	client := &Client{ID: "c1"}
	assert.True(t, client.Wants(model.EventBatteryReading))

	client.Subscribe(model.EventActionGroupComplete)
	assert.True(t, client.Wants(model.EventActionGroupComplete))
	assert.False(t, client.Wants(model.EventBatteryReading))

	client.Unsubscribe(model.EventActionGroupComplete)
	assert.True(t, client.Wants(model.EventBatteryReading))
}

func TestConnectionManagerBroadcast(t *testing.T) {
	cm := NewConnectionManager()
	a := &Client{ID: "a", Send: make(chan []byte, 1)}
	b := &Client{ID: "b", Send: make(chan []byte, 1)}
	cm.Register(a)
	cm.Register(b)

	dropped := cm.Broadcast([]byte("x"), func(c *Client) bool { return c.ID == "a" })
	assert.Zero(t, dropped)
	assert.Len(t, a.Send, 1)
	assert.Len(t, b.Send, 0)

	// a's buffer is full now
	assert.Equal(t, 1, cm.Broadcast([]byte("y"), nil))

	cm.Unregister(b)
	_, open := <-b.Send
	assert.False(t, open)
	assert.Equal(t, 1, cm.GetStats().TotalConnections)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://panel.local"})

	req := httptest.NewRequest("GET", "/ws/events", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://panel.local")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://other.local")
	assert.False(t, check(req))
}

func TestWebSocketEventStream(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bus := NewEventBus(zap.NewNop())
	go bus.Start()
	defer bus.Stop()

	conn := &fakeConn{reads: make(chan []byte, 1)}
	cfg := &config.ControllerConfig{ReadTimeout: 100 * time.Millisecond, ReportSize: lsc.ReportSize, PollInterval: 10 * time.Millisecond}
	svc := service.NewServoService(conn, repository.NewMemoryOperationRepository(), bus, nil, cfg, zap.NewNop())
	defer svc.Shutdown(context.Background())

	ws := NewWebSocketHandler(svc, bus, nil, zap.NewNop())
	go ws.Run()
	defer ws.Stop()

	router := gin.New()
	router.GET("/ws/events", ws.HandleEventConnection)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	var initial WebSocketMessage
	require.NoError(t, client.ReadJSON(&initial))
	assert.Equal(t, "initial_status", initial.Type)
	assert.Equal(t, 1, ws.GetConnectionStats().TotalConnections)

	require.NoError(t, client.WriteJSON(map[string]interface{}{
		"type": "subscribe",
		"data": map[string]interface{}{"topic": string(model.EventControllerConnected)},
	}))
	var confirmed WebSocketMessage
	require.NoError(t, client.ReadJSON(&confirmed))
	assert.Equal(t, "subscription_confirmed", confirmed.Type)

	_, err = svc.Connect(context.Background())
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event struct {
		Type string                `json:"type"`
		Data model.ControllerEvent `json:"data"`
	}
	require.NoError(t, client.ReadJSON(&event))
	assert.Equal(t, "event", event.Type)
	assert.Equal(t, model.EventControllerConnected, event.Data.EventType)
}
