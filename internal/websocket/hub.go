package websocket

import (
	"sync"

	"github.com/yourusername/studyquest-api/pkg/logger"
)

// Hub хранит локальные соединения по ID пользователя.
// Один пользователь может держать несколько соединений (вкладки, устройства).
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
	log     *logger.Logger
}

// NewHub создает пустой хаб
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[uint]map[*Client]struct{}),
		log:     log.With("component", "ws_hub"),
	}
}

// Register добавляет клиента
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	h.log.Debug("client registered", "user_id", c.UserID, "conn_id", c.ConnectionID, "user_connections", len(set))
}

// Unregister удаляет клиента и закрывает его канал отправки
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()

	c.closeSend()
	h.log.Debug("client unregistered", "user_id", c.UserID, "conn_id", c.ConnectionID)
}

// SendToUser отправляет сообщение всем локальным соединениям пользователя.
// Возвращает количество соединений, принявших сообщение.
func (h *Hub) SendToUser(userID uint, message []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.trySend(message) {
			delivered++
		} else {
			h.log.Warn("client send buffer full, dropping message", "user_id", userID, "conn_id", c.ConnectionID)
		}
	}
	return delivered
}

// ClientCount возвращает количество локальных соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}
