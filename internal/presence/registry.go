// Package presence ведет учет подключенных посетителей и уведомляет подписчиков
// о каждом изменении их числа.
package presence

import (
	"context"
	"log"
	"sync"

	"github.com/yourusername/newedenfaces-api/internal/metrics"
)

// EventType тип события присутствия
type EventType string

// OnlineUsersChanged число подключенных посетителей изменилось
const OnlineUsersChanged EventType = "onlineUsers"

// Event уведомление подписчиков
type Event struct {
	Type        EventType
	OnlineUsers int64
	// Remote событие пришло от другого экземпляра приложения
	Remote bool
}

// Listener получает события синхронно; долгую работу следует выносить в горутину
type Listener func(Event)

// Registry реестр сессий присутствия
type Registry struct {
	counter Counter
	metrics *metrics.Metrics

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewRegistry создает реестр поверх выбранного счетчика
func NewRegistry(counter Counter, m *metrics.Metrics) *Registry {
	if counter == nil {
		counter = NewLocalCounter()
	}
	return &Registry{
		counter:   counter,
		metrics:   m,
		listeners: make(map[int]Listener),
	}
}

// Join регистрирует подключение и возвращает новое число посетителей
func (r *Registry) Join(ctx context.Context) (int64, error) {
	n, err := r.counter.Incr(ctx)
	if err != nil {
		return 0, err
	}
	r.Notify(Event{Type: OnlineUsersChanged, OnlineUsers: n})
	return n, nil
}

// Leave снимает подключение с учета
func (r *Registry) Leave(ctx context.Context) (int64, error) {
	n, err := r.counter.Decr(ctx)
	if err != nil {
		return 0, err
	}
	r.Notify(Event{Type: OnlineUsersChanged, OnlineUsers: n})
	return n, nil
}

// Count текущее число посетителей
func (r *Registry) Count(ctx context.Context) (int64, error) {
	return r.counter.Value(ctx)
}

// Subscribe добавляет подписчика; возвращаемая функция отписывает его
func (r *Registry) Subscribe(l Listener) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Notify рассылает событие всем подписчикам. Паника подписчика не мешает остальным.
func (r *Registry) Notify(ev Event) {
	r.metrics.SetOnlineUsers(ev.OnlineUsers)

	r.mu.RLock()
	listeners := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.RUnlock()

	for _, l := range listeners {
		safeNotify(l, ev)
	}
}

func safeNotify(l Listener, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Presence] PANIC в подписчике: %v", rec)
		}
	}()
	l(ev)
}
