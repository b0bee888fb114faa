// Package realtime рассылает изменения коллекций подписчикам по websocket.
//
// Hub держит подписки соединений по ключу тенант + коллекция. События
// проходят через Broker: в памяти для одного экземпляра сервера или через
// NATS, когда экземпляров несколько.
package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/iudanet/livedesk/pkg/api"
)

//go:generate moq -out broker_mock_test.go . Broker

// ErrBrokerClosed брокер уже закрыт
var ErrBrokerClosed = errors.New("broker closed")

// Handler получает события из брокера
type Handler func(event api.Event)

// Broker доставляет опубликованные события всем подписанным обработчикам
type Broker interface {
	// Publish отправляет событие всем подписчикам брокера
	Publish(ctx context.Context, event api.Event) error

	// Subscribe регистрирует обработчик. Возвращенная функция отменяет подписку.
	Subscribe(handler Handler) (func(), error)

	// Close освобождает ресурсы брокера
	Close() error
}

// MemoryBroker синхронно вызывает обработчики в горутине публикации
type MemoryBroker struct {
	handlers map[int]Handler
	next     int
	mu       sync.RWMutex
	closed   bool
}

// NewMemoryBroker создает брокер в памяти процесса
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{handlers: make(map[int]Handler)}
}

// Publish реализует Broker
func (b *MemoryBroker) Publish(ctx context.Context, event api.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Subscribe реализует Broker
func (b *MemoryBroker) Subscribe(handler Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	id := b.next
	b.next++
	b.handlers[id] = handler

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}

// Close реализует Broker
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	clear(b.handlers)
	return nil
}
