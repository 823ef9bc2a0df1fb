package rescuehub

import (
	"encoding/json"
	"sync"
	"time"

	"floodrescue/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient streams snapshots to one WebSocket connection as JSON
// text frames. Intents arrive over HTTP; incoming frames are discarded.
type WebSocketClient struct {
	ID     string
	Conn   *websocket.Conn
	Hub    *HubService
	Send   chan models.Snapshot
	logger *zap.Logger

	once        sync.Once
	unsubscribe func()
}

func NewWebSocketClient(hub *HubService, conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{
		ID:     uuid.NewString(),
		Conn:   conn,
		Hub:    hub,
		Send:   NewMailbox(),
		logger: hub.logger,
	}
}

func (c *WebSocketClient) GetClientID() string                  { return c.ID }
func (c *WebSocketClient) GetSendChannel() chan models.Snapshot { return c.Send }

// Run subscribes the client and starts its pumps.
func (c *WebSocketClient) Run() {
	c.unsubscribe = c.Hub.Subscribe(c)
	go c.writePump()
	go c.readPump()
}

// Close closes the mailbox, which makes writePump send a close frame.
func (c *WebSocketClient) Close() {
	c.once.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.unsubscribe()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read failed", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case snap, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				c.logger.Error("Failed to encode snapshot", zap.String("client_id", c.ID), zap.Error(err))
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
