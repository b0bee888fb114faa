package listsync

import (
	"slices"
	"sync"
)

// List хранит состояние коллекции и применяет к нему события Reducer.
// Безопасен для конкурентного чтения: рендеринг читает снимки через Items,
// пока цикл синхронизации применяет события.
type List[K comparable, T any] struct {
	reducer Reducer[K, T]
	items   []T
	mu      sync.RWMutex
}

// NewList создает пустую коллекцию с функцией идентичности key.
func NewList[K comparable, T any](key func(T) K) *List[K, T] {
	return &List[K, T]{
		reducer: NewReducer(key),
		items:   []T{},
	}
}

// LoadPage сливает страницу и возвращает количество новых записей.
func (l *List[K, T]) LoadPage(items []T) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.items)
	l.items = l.reducer.LoadPage(l.items, items)
	return len(l.items) - before
}

// Upsert вставляет или обновляет запись.
// Возвращает true, если запись была новой и добавлена в начало.
func (l *List[K, T]) Upsert(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	inserted := l.reducer.IndexOf(l.items, l.reducer.Key(item)) == -1
	l.items = l.reducer.Upsert(l.items, item)
	return inserted
}

// Change обновляет уже известную запись.
// Возвращает true, если запись была найдена и заменена.
func (l *List[K, T]) Change(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	found := l.reducer.IndexOf(l.items, l.reducer.Key(item)) != -1
	l.items = l.reducer.Change(l.items, item)
	return found
}

// Remove удаляет запись. Возвращает true, если запись была в коллекции.
func (l *List[K, T]) Remove(id K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.items)
	l.items = l.reducer.Remove(l.items, id)
	return len(l.items) != before
}

// Reset очищает коллекцию.
func (l *List[K, T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = l.reducer.Reset(l.items)
}

// Move переставляет запись и возвращает новый порядок.
// fix применяется к результату до сохранения (например, перенумерация позиций).
func (l *List[K, T]) Move(from, to int, fix func([]T) []T) []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.reducer.Move(l.items, from, to)
	if fix != nil {
		next = fix(next)
	}
	l.items = next
	return slices.Clone(next)
}

// Apply применяет произвольное событие.
func (l *List[K, T]) Apply(action Action[K, T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = l.reducer.Apply(l.items, action)
}

// Get возвращает запись по ключу.
func (l *List[K, T]) Get(id K) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.reducer.IndexOf(l.items, id); i != -1 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Contains проверяет наличие записи с ключом id.
func (l *List[K, T]) Contains(id K) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.reducer.IndexOf(l.items, id) != -1
}

// Items возвращает копию текущего состояния в порядке отображения.
func (l *List[K, T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return slices.Clone(l.items)
}

// Len возвращает количество записей.
func (l *List[K, T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.items)
}
