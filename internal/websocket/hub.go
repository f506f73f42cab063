package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/yourusername/newedenfaces-api/internal/presence"
)

// Hub владеет множеством подключенных клиентов. Все изменения множества
// происходят в горутине Run.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once

	clientCount atomic.Int64
}

// NewHub создает хаб; Run нужно запустить в отдельной горутине
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run запускает цикл обработки событий хаба
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.clientCount.Store(int64(len(h.clients)))
		case client := <-h.unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.handleBroadcast(message)
		case <-h.done:
			for client := range h.clients {
				h.remove(client)
			}
			log.Println("[Hub] Остановлен")
			return
		}
	}
}

// Stop останавливает хаб и закрывает каналы отправки всех клиентов
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register добавляет клиента. Возвращается после того, как хаб принял клиента,
// так что следующая рассылка до него уже дойдет.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.closeSend()
	}
}

// Unregister удаляет клиента
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastBytes отправляет сообщение всем клиентам
func (h *Hub) BroadcastBytes(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// BroadcastJSON сериализует v и рассылает всем клиентам
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.BroadcastBytes(data)
	return nil
}

// OnPresence подписчик presence.Registry: рассылает число посетителей
func (h *Hub) OnPresence(ev presence.Event) {
	if ev.Type != presence.OnlineUsersChanged {
		return
	}
	msg := Message{Type: ONLINE_USERS, Data: OnlineUsersData{OnlineUsers: ev.OnlineUsers}}
	if err := h.BroadcastJSON(msg); err != nil {
		log.Printf("[Hub] Ошибка сериализации %s: %v", ONLINE_USERS, err)
	}
}

// ClientCount число локально подключенных клиентов
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.closeSend()
	h.clientCount.Store(int64(len(h.clients)))
}

// handleBroadcast отправляет сообщение всем клиентам; клиент с переполненным
// буфером отключается
func (h *Hub) handleBroadcast(message []byte) {
	for client := range h.clients {
		if !client.trySend(message) {
			log.Printf("[Hub] Буфер клиента %s переполнен, отключаем", client.ConnectionID)
			h.remove(client)
		}
	}
}
