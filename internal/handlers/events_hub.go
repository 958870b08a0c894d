package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Для разработки разрешаем все источники
	},
}

// GlobalHub - единственный экземпляр хаба для всего приложения
var GlobalHub = NewHub()

// DocumentEvent - уведомление о смене статуса документа, рассылаемое всем
// подключенным клиентам.
type DocumentEvent struct {
	Type      string    `json:"type"`
	Reference string    `json:"reference"`
	ActorID   uint      `json:"actorId"`
	Timestamp time.Time `json:"timestamp"`
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

type Hub struct {
	clients    map[uint]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uint]*Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("Клиент подключился к ленте событий", "userID", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("Клиент отключился от ленты событий", "userID", client.userID)

		case messageData := <-h.broadcast:
			h.mu.Lock()
			for userID, client := range h.clients {
				select {
				case client.send <- messageData:
				default:
					close(client.send)
					delete(h.clients, userID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent рассылает событие жизненного цикла документа всем клиентам.
// Отправка неблокирующая: если хаб не запущен или клиентов нет, событие
// просто теряется, бизнес-операцию это не задерживает.
func (h *Hub) BroadcastEvent(eventType, reference string, actorID uint) {
	event := DocumentEvent{
		Type:      eventType,
		Reference: reference,
		ActorID:   actorID,
		Timestamp: time.Now(),
	}
	messageBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("Не удалось сериализовать событие", "error", err)
		return
	}
	select {
	case h.broadcast <- messageBytes:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// Клиенты ленты событий только слушают, входящие сообщения
		// игнорируются. Чтение нужно, чтобы заметить разрыв соединения.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Неожиданное закрытие websocket", "error", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Error("Не удалось отправить сообщение в websocket", "error", err)
			return
		}
	}
}

// EventsWSEndpoint подключает клиента к ленте событий по документам.
func EventsWSEndpoint(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Не удалось перевести соединение в WebSocket", "error", err)
		return
	}

	client := &Client{
		hub:    GlobalHub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID.(uint),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
