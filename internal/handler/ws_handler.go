package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/yourusername/studyquest-api/internal/config"
	"github.com/yourusername/studyquest-api/internal/handler/helper"
	"github.com/yourusername/studyquest-api/internal/websocket"
	"github.com/yourusername/studyquest-api/pkg/logger"
)

// WSHandler обрабатывает WebSocket соединения для push-уведомлений
type WSHandler struct {
	hub        *websocket.Hub
	upgrader   gorillaws.Upgrader
	bufferSize int
	log        *logger.Logger
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(hub *websocket.Hub, wsCfg config.WebSocketConfig, allowedOrigins []string, log *logger.Logger) *WSHandler {
	h := &WSHandler{
		hub:        hub,
		bufferSize: wsCfg.ClientSendBuffer,
		log:        log.With("component", "ws_handler"),
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   4096,
		EnableCompression: true,
		CheckOrigin:       h.originChecker(allowedOrigins),
	}
	return h
}

// originChecker разрешает пустой Origin (мобильные клиенты, curl) и origin из списка CORS
func (h *WSHandler) originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		h.log.Warn("rejected websocket origin", "origin", origin)
		return false
	}
}

// HandleConnection обновляет соединение до WebSocket и регистрирует клиента.
// Пользователь уже проверен RequireWSAuth.
// GET /ws?token=...
func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID, err := helper.UserIDFromContext(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, userID, h.bufferSize)
	client.Start()
	h.log.Debug("websocket connected", "user_id", userID, "connection_id", client.ConnectionID)
}
