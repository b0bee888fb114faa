// Package listsync держит клиентскую коллекцию согласованной с сервером,
// который одновременно отдает постраничные снимки через REST и рассылает
// инкрементальные события create/update/delete через websocket.
//
// Все операции Reducer чистые: они не меняют переданное состояние и
// возвращают новое. Ни одна операция не возвращает ошибку: повторные и
// неизвестные события сводятся к no-op или идемпотентной перезаписи,
// поэтому любой порядок доставки сходится к одному результату.
package listsync

import "slices"

// Kind тип события, применяемого к коллекции
type Kind int

const (
	// KindLoadPage слияние страницы, полученной через REST
	KindLoadPage Kind = iota
	// KindUpsert вставка или обновление записи из realtime события
	KindUpsert
	// KindChange обновление только уже известной записи
	KindChange
	// KindRemove удаление записи по ключу
	KindRemove
	// KindReset очистка коллекции (смена фильтра поиска)
	KindReset
)

// String возвращает имя события для логов
func (k Kind) String() string {
	switch k {
	case KindLoadPage:
		return "load_page"
	case KindUpsert:
		return "upsert"
	case KindChange:
		return "change"
	case KindRemove:
		return "remove"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Action событие для Reducer.Apply. Используются только поля, нужные для Kind.
type Action[K comparable, T any] struct {
	Item  T
	ID    K
	Items []T
	Kind  Kind
}

// Reducer применяет события к упорядоченной, уникальной по ключу коллекции.
type Reducer[K comparable, T any] struct {
	key func(T) K
}

// NewReducer создает Reducer с функцией идентичности key.
func NewReducer[K comparable, T any](key func(T) K) Reducer[K, T] {
	return Reducer[K, T]{key: key}
}

// Key возвращает ключ записи
func (r Reducer[K, T]) Key(item T) K {
	return r.key(item)
}

// IndexOf возвращает позицию записи с ключом id или -1
func (r Reducer[K, T]) IndexOf(state []T, id K) int {
	return slices.IndexFunc(state, func(item T) bool {
		return r.key(item) == id
	})
}

// LoadPage сливает страницу с текущим состоянием.
// Известные записи заменяются на месте, новые добавляются в конец
// в порядке получения. Повтор той же страницы ничего не меняет.
// Дубликаты внутри страницы схлопываются: позиция первого, данные последнего.
func (r Reducer[K, T]) LoadPage(state []T, items []T) []T {
	next := slices.Clone(state)

	known := make(map[K]int, len(next))
	for i, item := range next {
		known[r.key(item)] = i
	}

	var fresh []T
	freshIdx := make(map[K]int)
	for _, item := range items {
		id := r.key(item)
		if i, ok := known[id]; ok {
			next[i] = item
			continue
		}
		if i, ok := freshIdx[id]; ok {
			fresh[i] = item
			continue
		}
		freshIdx[id] = len(fresh)
		fresh = append(fresh, item)
	}

	return append(next, fresh...)
}

// Upsert заменяет запись на ее месте или, если ключ неизвестен,
// добавляет запись в начало коллекции.
func (r Reducer[K, T]) Upsert(state []T, item T) []T {
	if i := r.IndexOf(state, r.key(item)); i != -1 {
		next := slices.Clone(state)
		next[i] = item
		return next
	}

	next := make([]T, 0, len(state)+1)
	next = append(next, item)
	return append(next, state...)
}

// Change заменяет запись только если она уже есть в коллекции.
// Неизвестный ключ оставляет коллекцию без изменений.
func (r Reducer[K, T]) Change(state []T, item T) []T {
	next := slices.Clone(state)
	if i := r.IndexOf(next, r.key(item)); i != -1 {
		next[i] = item
	}
	return next
}

// Remove удаляет запись с ключом id. Отсутствующий ключ не является ошибкой.
func (r Reducer[K, T]) Remove(state []T, id K) []T {
	next := slices.Clone(state)
	if i := r.IndexOf(next, id); i != -1 {
		next = slices.Delete(next, i, i+1)
	}
	return next
}

// Reset возвращает пустую коллекцию
func (r Reducer[K, T]) Reset(_ []T) []T {
	return []T{}
}

// Move переставляет запись с позиции from на позицию to.
// Позиции вне диапазона оставляют коллекцию без изменений.
func (r Reducer[K, T]) Move(state []T, from, to int) []T {
	next := slices.Clone(state)
	if from < 0 || from >= len(next) || to < 0 || to >= len(next) || from == to {
		return next
	}

	item := next[from]
	next = slices.Delete(next, from, from+1)
	return slices.Insert(next, to, item)
}

// Apply применяет событие. Неизвестный Kind оставляет коллекцию без изменений.
func (r Reducer[K, T]) Apply(state []T, action Action[K, T]) []T {
	switch action.Kind {
	case KindLoadPage:
		return r.LoadPage(state, action.Items)
	case KindUpsert:
		return r.Upsert(state, action.Item)
	case KindChange:
		return r.Change(state, action.Item)
	case KindRemove:
		return r.Remove(state, action.ID)
	case KindReset:
		return r.Reset(state)
	default:
		return slices.Clone(state)
	}
}
