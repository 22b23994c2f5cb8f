package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/yourusername/studyquest-api/internal/config"
	"github.com/yourusername/studyquest-api/pkg/logger"
)

// ClusterMessage - адресное сообщение, пересылаемое между инстансами
type ClusterMessage struct {
	RecipientID uint            `json:"recipient_id"`
	InstanceID  string          `json:"instance_id"`
	Payload     json.RawMessage `json:"payload"`
}

// Notifier доставляет события пользователю.
// В кластерном режиме событие публикуется в Redis, и каждый инстанс
// доставляет его своим локальным соединениям.
type Notifier struct {
	hub        *Hub
	provider   PubSubProvider
	cluster    config.ClusterConfig
	instanceID string
	log        *logger.Logger
}

// NewNotifier создает Notifier. Без провайдера кластерный режим отключается.
func NewNotifier(hub *Hub, provider PubSubProvider, cfg config.ClusterConfig, log *logger.Logger) *Notifier {
	if provider == nil {
		provider = &NoOpPubSub{}
		cfg.Enabled = false
	}
	return &Notifier{
		hub:        hub,
		provider:   provider,
		cluster:    cfg,
		instanceID: uuid.New().String(),
		log:        log.With("component", "ws_notifier"),
	}
}

// NotifyUser отправляет событие всем соединениям пользователя
func (n *Notifier) NotifyUser(userID uint, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}

	if !n.cluster.Enabled {
		n.hub.SendToUser(userID, payload)
		return nil
	}

	msg, err := json.Marshal(ClusterMessage{
		RecipientID: userID,
		InstanceID:  n.instanceID,
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cluster message: %w", err)
	}
	return n.provider.Publish(n.cluster.Channel, msg)
}

// Run слушает канал кластера до отмены ctx.
// В одиночном режиме возвращается сразу.
func (n *Notifier) Run(ctx context.Context) error {
	if !n.cluster.Enabled {
		return nil
	}

	msgCh, err := n.provider.Subscribe(ctx, n.cluster.Channel)
	if err != nil {
		return err
	}
	n.log.Info("cluster delivery started", "channel", n.cluster.Channel, "instance_id", n.instanceID)

	for raw := range msgCh {
		var msg ClusterMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			n.log.Warn("invalid cluster message", "error", err)
			continue
		}
		n.hub.SendToUser(msg.RecipientID, msg.Payload)
	}
	return nil
}
