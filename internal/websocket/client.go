package websocket

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yourusername/newedenfaces-api/internal/config"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту молчать до следующего pong.
	pongWait = 60 * time.Second

	// Клиент только слушает; входящие сообщения ограничены по размеру и отбрасываются
	maxMessageSize = 512

	defaultClientBufferSize = 16
)

// ClientConfig содержит настройки для клиента
type ClientConfig struct {
	BufferSize     int
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// DefaultClientConfig возвращает конфигурацию клиента по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BufferSize:     defaultClientBufferSize,
		PingInterval:   (pongWait * 9) / 10,
		PongWait:       pongWait,
		WriteWait:      writeWait,
		MaxMessageSize: maxMessageSize,
	}
}

// ClientConfigFromLimits переводит секунды из конфигурации в ClientConfig
func ClientConfigFromLimits(limits config.LimitsConfig) ClientConfig {
	cfg := DefaultClientConfig()
	if limits.ClientSendBuffer > 0 {
		cfg.BufferSize = limits.ClientSendBuffer
	}
	if limits.PongWait > 0 {
		cfg.PongWait = time.Duration(limits.PongWait) * time.Second
		cfg.PingInterval = (cfg.PongWait * 9) / 10
	}
	if limits.WriteWait > 0 {
		cfg.WriteWait = time.Duration(limits.WriteWait) * time.Second
	}
	if limits.MaxMessageSize > 0 {
		cfg.MaxMessageSize = int64(limits.MaxMessageSize)
	}
	return cfg
}

// Client является посредником между WebSocket соединением и hub.
type Client struct {
	// Уникальный ID для каждого соединения
	ConnectionID string

	hub    *Hub
	conn   *websocket.Conn
	config ClientConfig

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Флаг, указывающий что канал send закрыт (для предотвращения panic)
	sendClosed atomic.Bool
}

// NewClient создает нового клиента
func NewClient(hub *Hub, conn *websocket.Conn, cfg ClientConfig) *Client {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultClientBufferSize
	}
	return &Client{
		ConnectionID: uuid.New().String(),
		hub:          hub,
		conn:         conn,
		config:       cfg,
		send:         make(chan []byte, cfg.BufferSize),
	}
}

// Serve регистрирует клиента в хабе и запускает горутины чтения и записи.
// onClose вызывается один раз после отключения.
func (c *Client) Serve(onClose func()) {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump(onClose)
}

// trySend ставит сообщение в очередь без блокировки
func (c *Client) trySend(message []byte) bool {
	if c.sendClosed.Load() {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend безопасно закрывает канал отправки (вызывается только из хаба)
func (c *Client) closeSend() {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
	}
}

// readPump держит соединение открытым, обрабатывает pong и обнаруживает отключение
func (c *Client) readPump(onClose func()) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		if onClose != nil {
			onClose()
		}
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket Client Read Error (ConnID: %s): %v", c.ConnectionID, err)
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if !ok {
				// Хаб закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket Client Write Error (ConnID: %s): %v", c.ConnectionID, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
