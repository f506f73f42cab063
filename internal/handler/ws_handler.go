package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/newedenfaces-api/internal/handler/dto"
	"github.com/yourusername/newedenfaces-api/internal/websocket"
)

// PresenceTracker учет подключенных посетителей
type PresenceTracker interface {
	Join(ctx context.Context) (int64, error)
	Leave(ctx context.Context) (int64, error)
}

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	hub          *websocket.Hub
	presence     PresenceTracker
	clientConfig websocket.ClientConfig
	upgrader     gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins синхронизирован с настройкой CORS в main.go.
func NewWSHandler(hub *websocket.Hub, presence PresenceTracker, clientConfig websocket.ClientConfig, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:          hub,
		presence:     presence,
		clientConfig: clientConfig,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Пустой Origin - не браузерный клиент
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
		return false
	}
}

// HandleConnection обрабатывает GET /ws. Соединение только получает события онлайна,
// входящие сообщения игнорируются.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	if !gorillaws.IsWebSocketUpgrade(c.Request) {
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "WebSocket upgrade required."})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("[WSHandler] Error upgrading connection: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, h.clientConfig)

	// Leave выполняется только после завершения Join и только если он удался
	joined := make(chan bool, 1)
	client.Serve(func() {
		if !<-joined {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := h.presence.Leave(ctx); err != nil {
			log.Printf("[WSHandler] Ошибка уменьшения счетчика онлайна (conn %s): %v", client.ConnectionID, err)
		}
	})

	// Клиент уже в хабе, поэтому получит и собственное событие подключения
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = h.presence.Join(ctx)
	if err != nil {
		log.Printf("[WSHandler] Ошибка увеличения счетчика онлайна (conn %s): %v", client.ConnectionID, err)
	}
	joined <- err == nil
}
