package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/yourusername/newedenfaces-api/internal/config"
	"github.com/yourusername/newedenfaces-api/internal/presence"
)

// PubSubProvider определяет интерфейс для провайдеров публикации/подписки
type PubSubProvider interface {
	// Publish публикует сообщение в указанный канал
	Publish(ctx context.Context, channel string, message []byte) error

	// Subscribe подписывается на канал; канал сообщений закрывается при отмене ctx
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)

	// Close освобождает подписки
	Close() error
}

// ClusterMessage сообщение между экземплярами приложения
type ClusterMessage struct {
	// MessageType тип сообщения кластера (сейчас только "presence")
	MessageType string `json:"type"`

	// InstanceID содержит ID отправителя для избежания дублирования
	InstanceID string `json:"instance_id"`

	Payload json.RawMessage `json:"payload"`

	Timestamp time.Time `json:"timestamp"`
}

const clusterMessagePresence = "presence"

// NoOpPubSub используется, когда кластерный режим отключен
type NoOpPubSub struct{}

func (p *NoOpPubSub) Publish(context.Context, string, []byte) error {
	return nil
}

func (p *NoOpPubSub) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	msgCh := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(msgCh)
	}()
	return msgCh, nil
}

func (p *NoOpPubSub) Close() error {
	return nil
}

// RedisPubSub реализует PubSubProvider с использованием Redis.
// Клиент Redis общий с остальным приложением и здесь не закрывается.
type RedisPubSub struct {
	client redis.UniversalClient

	mu   sync.Mutex
	subs map[*redis.PubSub]struct{}
}

// NewRedisPubSub создает провайдер поверх существующего UniversalClient
func NewRedisPubSub(client redis.UniversalClient) (*RedisPubSub, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisPubSub")
	}
	return &RedisPubSub{client: client, subs: make(map[*redis.PubSub]struct{})}, nil
}

// Publish публикует сообщение в указанный канал
func (p *RedisPubSub) Publish(ctx context.Context, channel string, message []byte) error {
	if err := p.client.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe подписывается на указанный канал Redis
func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := p.client.Subscribe(ctx, channel)

	// Ждем подтверждения подписки
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to Redis channel %s: %w", channel, err)
	}

	p.mu.Lock()
	p.subs[pubsub] = struct{}{}
	p.mu.Unlock()
	log.Printf("RedisPubSub: Successfully subscribed to channel '%s'", channel)

	msgCh := make(chan []byte, 100)
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.subs, pubsub)
			p.mu.Unlock()
			pubsub.Close()
			close(msgCh)
		}()

		redisCh := pubsub.Channel()
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case msgCh <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgCh, nil
}

// Close закрывает все активные подписки
func (p *RedisPubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for pubsub := range p.subs {
		if err := pubsub.Close(); err != nil {
			lastErr = err
		}
		delete(p.subs, pubsub)
	}
	return lastErr
}

// PresenceRelay синхронизирует события присутствия между экземплярами:
// публикует локальные изменения и передает в реестр изменения соседей.
type PresenceRelay struct {
	provider   PubSubProvider
	registry   *presence.Registry
	channel    string
	instanceID string

	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewPresenceRelay создает реле; пустой InstanceID заменяется сгенерированным
func NewPresenceRelay(provider PubSubProvider, registry *presence.Registry, cfg config.ClusterConfig) *PresenceRelay {
	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = "instance_" + uuid.NewString()
		log.Printf("PresenceRelay: Instance ID не задан, сгенерирован: %s", instanceID)
	}
	if provider == nil {
		provider = &NoOpPubSub{}
	}
	return &PresenceRelay{
		provider:   provider,
		registry:   registry,
		channel:    cfg.PresenceChannel,
		instanceID: instanceID,
	}
}

// InstanceID возвращает ID этого экземпляра
func (r *PresenceRelay) InstanceID() string {
	return r.instanceID
}

// Start подписывается на канал кластера и на локальный реестр
func (r *PresenceRelay) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	msgCh, err := r.provider.Subscribe(ctx, r.channel)
	if err != nil {
		cancel()
		return err
	}
	r.cancel = cancel
	r.unsubscribe = r.registry.Subscribe(r.publishLocal)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.consume(ctx, msgCh)
	}()

	log.Printf("PresenceRelay: запущен, канал %s, экземпляр %s", r.channel, r.instanceID)
	return nil
}

// Stop прекращает обмен событиями
func (r *PresenceRelay) Stop() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *PresenceRelay) publishLocal(ev presence.Event) {
	if ev.Remote {
		return
	}
	payload, err := json.Marshal(OnlineUsersData{OnlineUsers: ev.OnlineUsers})
	if err != nil {
		return
	}
	data, err := json.Marshal(ClusterMessage{
		MessageType: clusterMessagePresence,
		InstanceID:  r.instanceID,
		Payload:     payload,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.provider.Publish(ctx, r.channel, data); err != nil {
		log.Printf("PresenceRelay: ошибка публикации: %v", err)
	}
}

func (r *PresenceRelay) consume(ctx context.Context, msgCh <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				return
			}
			var msg ClusterMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("PresenceRelay: ошибка десериализации сообщения: %v", err)
				continue
			}
			// Пропускаем сообщения от самого себя
			if msg.InstanceID == r.instanceID || msg.MessageType != clusterMessagePresence {
				continue
			}
			var payload OnlineUsersData
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				continue
			}
			r.registry.Notify(presence.Event{
				Type:        presence.OnlineUsersChanged,
				OnlineUsers: payload.OnlineUsers,
				Remote:      true,
			})
		}
	}
}
