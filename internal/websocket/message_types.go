package websocket

// Типы сообщений, отправляемых браузеру
const (
	// ONLINE_USERS сообщает текущее число посетителей на сайте
	ONLINE_USERS = "onlineUsers"
)

// Message конверт любого исходящего сообщения
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// OnlineUsersData полезная нагрузка ONLINE_USERS
type OnlineUsersData struct {
	OnlineUsers int64 `json:"onlineUsers"`
}
