// Package sync держит клиентскую коллекцию согласованной с сервером:
// страницы REST сливаются с realtime событиями в одном цикле событий.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"k8s.io/utils/clock"

	"github.com/iudanet/livedesk/internal/client/storage"
	"github.com/iudanet/livedesk/internal/listsync"
	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/pkg/api"
)

const (
	// DefaultDebounce пауза, после которой выполняется последний запрос серии
	DefaultDebounce = 500 * time.Millisecond

	notificationBuffer = 16
)

// ErrDeleteUnsupported лента создана без Deleter
var ErrDeleteUnsupported = errors.New("delete is not supported by this feed")

// Options необязательные зависимости ленты
type Options[T models.Item] struct {
	// Subscriber источник realtime событий. Без него лента работает только по REST.
	Subscriber Subscriber
	// Store сохраняет снимок для теплого старта
	Store SnapshotStore
	// Deleter удаляет записи на сервере
	Deleter Deleter
	// Clock источник таймеров для debounce
	Clock clock.Clock
	// Renumber применяется к порядку записей после Move
	Renumber func([]T) []T
	// Reorder сохраняет новый порядок на сервере
	Reorder func(ctx context.Context, items []T) error
	// OnChange вызывается из цикла после каждого изменения коллекции
	OnChange func(items []T)
	// OnLoad вызывается из цикла после применения страницы
	OnLoad func(state State)
	// Search начальный фильтр
	Search string
	// Debounce по умолчанию DefaultDebounce
	Debounce time.Duration
}

// State состояние курсора и фильтра
type State struct {
	Search     string
	PageNumber int
	HasMore    bool
	Loading    bool
	Subscribed bool
}

type fetchResult[T any] struct {
	err     error
	search  string
	items   []T
	epoch   uint64
	page    int
	hasMore bool
}

type subscribeResult struct {
	sub Subscription
	err error
}

// Feed владеет коллекцией одного типа записей.
// Все изменения выполняются в горутине Run; команды ставятся в очередь.
type Feed[T models.Item] struct {
	fetcher    Fetcher[T]
	subscriber Subscriber
	store      SnapshotStore
	deleter    Deleter
	clock      clock.Clock
	renumber   func([]T) []T
	reorder    func(ctx context.Context, items []T) error
	onChange   func(items []T)
	onLoad     func(state State)
	logger     *slog.Logger
	list       *listsync.List[int64, T]

	commands      chan func()
	results       chan fetchResult[T]
	subscriptions chan subscribeResult
	notifications chan Notification
	done          chan struct{}

	collection models.Collection
	debounce   time.Duration

	// Состояние ниже принадлежит горутине Run
	runCtx      context.Context
	timer       clock.Timer
	sub         Subscription
	events      <-chan api.Event
	search      string
	page        int
	epoch       uint64
	hasMore     bool
	loading     bool
	subscribing bool
	workers     sync.WaitGroup
	// restored id записей снимка, еще не подтвержденных первой страницей
	restored map[int64]struct{}

	stateMu sync.RWMutex
	state   State
}

// NewFeed создает ленту коллекции collection. Загрузка начинается в Run.
func NewFeed[T models.Item](logger *slog.Logger, collection models.Collection, fetcher Fetcher[T], opts Options[T]) *Feed[T] {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	return &Feed[T]{
		fetcher:       fetcher,
		subscriber:    opts.Subscriber,
		store:         opts.Store,
		deleter:       opts.Deleter,
		clock:         opts.Clock,
		renumber:      opts.Renumber,
		reorder:       opts.Reorder,
		onChange:      opts.OnChange,
		onLoad:        opts.OnLoad,
		logger:        logger.With("collection", collection),
		list:          listsync.NewList(models.ItemKey[T]),
		commands:      make(chan func()),
		results:       make(chan fetchResult[T]),
		subscriptions: make(chan subscribeResult),
		notifications: make(chan Notification, notificationBuffer),
		done:          make(chan struct{}),
		collection:    collection,
		debounce:      opts.Debounce,
		search:        opts.Search,
		page:          1,
	}
}

// Notifications канал ошибок для пользователя. Не закрывается.
func (f *Feed[T]) Notifications() <-chan Notification {
	return f.notifications
}

// Items возвращает копию текущей коллекции
func (f *Feed[T]) Items() []T {
	return f.list.Items()
}

// State возвращает фильтр, курсор и признаки загрузки
func (f *Feed[T]) State() State {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	return f.state
}

// Done закрывается, когда Run завершился
func (f *Feed[T]) Done() <-chan struct{} {
	return f.done
}

// Run выполняет цикл событий до отмены ctx.
// При выходе освобождает подписку и сохраняет снимок.
func (f *Feed[T]) Run(ctx context.Context) {
	defer close(f.done)

	f.runCtx = ctx
	f.restore(ctx)
	f.startSubscribe()
	f.loading = true
	f.schedule()
	f.publish()

	for {
		var timerC <-chan time.Time
		if f.timer != nil {
			timerC = f.timer.C()
		}

		select {
		case <-ctx.Done():
			f.shutdown()
			return
		case cmd := <-f.commands:
			cmd()
		case <-timerC:
			f.timer = nil
			f.startFetch()
		case res := <-f.results:
			f.handleResult(res)
		case res := <-f.subscriptions:
			f.handleSubscribed(res)
		case event, ok := <-f.events:
			if !ok {
				f.handleDrop()
				break
			}
			f.applyEvent(event)
		}

		f.publish()
	}
}

// SetSearch меняет фильтр: коллекция очищается, курсор сбрасывается на 1,
// загрузка откладывается на время debounce.
func (f *Feed[T]) SetSearch(search string) {
	f.submit(func() {
		if search == f.search {
			return
		}
		f.search = search
		f.restart(true)
	})
}

// LoadMore запрашивает следующую страницу.
// Игнорируется, если идет загрузка или страниц больше нет.
func (f *Feed[T]) LoadMore() {
	f.submit(func() {
		if f.loading || !f.hasMore {
			f.logger.Debug("Load more ignored", "loading", f.loading, "has_more", f.hasMore)
			return
		}
		f.page++
		f.loading = true
		f.schedule()
	})
}

// Refresh перечитывает коллекцию с первой страницы
func (f *Feed[T]) Refresh() {
	f.submit(func() {
		f.restart(true)
	})
}

// Resubscribe заново открывает realtime подписку после SubscriptionDrop
func (f *Feed[T]) Resubscribe() {
	f.submit(func() {
		f.closeSubscription()
		f.startSubscribe()
	})
}

// Delete удаляет запись на сервере. При успехе запись удаляется локально
// и первая страница перечитывается; при ошибке отправляется NetworkFailure.
func (f *Feed[T]) Delete(ctx context.Context, id int64) error {
	if f.deleter == nil {
		return ErrDeleteUnsupported
	}

	if err := f.deleter.Delete(ctx, id); err != nil {
		f.notify(NetworkFailure, err)
		return fmt.Errorf("failed to delete %s %d: %w", f.collection, id, err)
	}

	f.submit(func() {
		if f.list.Remove(id) {
			f.changed()
		}
		f.restart(false)
	})
	return nil
}

// Move переставляет запись from на позицию to и сохраняет порядок через Reorder
func (f *Feed[T]) Move(from, to int) {
	f.submit(func() {
		items := f.list.Move(from, to, f.renumber)
		f.changed()

		if f.reorder == nil {
			return
		}

		ctx := f.runCtx
		f.workers.Add(1)
		go func() {
			defer f.workers.Done()
			if err := f.reorder(ctx, items); err != nil && ctx.Err() == nil {
				f.notify(NetworkFailure, fmt.Errorf("failed to save order: %w", err))
			}
		}()
	})
}

// submit ставит команду в очередь цикла. После завершения Run команды отбрасываются.
func (f *Feed[T]) submit(cmd func()) {
	select {
	case f.commands <- cmd:
	case <-f.done:
	}
}

// restart начинает выборку заново с первой страницы.
// Устаревшие ответы отбрасываются по смене эпохи.
func (f *Feed[T]) restart(reset bool) {
	f.epoch++
	f.page = 1
	f.hasMore = false
	f.loading = true
	if reset {
		f.restored = nil
		f.list.Reset()
		f.changed()
	}
	f.schedule()
}

// schedule откладывает загрузку; повторный вызов до срабатывания таймера
// заменяет предыдущий запрос.
func (f *Feed[T]) schedule() {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = f.clock.NewTimer(f.debounce)
}

// startFetch читает параметры в момент срабатывания таймера
func (f *Feed[T]) startFetch() {
	ctx := f.runCtx
	req := api.PageRequest{SearchParam: f.search, PageNumber: f.page}
	epoch := f.epoch

	f.logger.Debug("Fetching page", "search", req.SearchParam, "page", req.PageNumber)

	f.workers.Add(1)
	go func() {
		defer f.workers.Done()

		items, hasMore, err := f.fetcher.FetchPage(ctx, req)
		res := fetchResult[T]{
			err:     err,
			search:  req.SearchParam,
			items:   items,
			epoch:   epoch,
			page:    req.PageNumber,
			hasMore: hasMore,
		}

		select {
		case f.results <- res:
		case <-ctx.Done():
		}
	}()
}

func (f *Feed[T]) handleResult(res fetchResult[T]) {
	if res.search != f.search || res.epoch != f.epoch {
		f.logger.Debug("Discarding stale page", "search", res.search, "page", res.page)
		return
	}
	f.loading = false

	if res.err != nil {
		if res.page > 1 {
			f.page = res.page - 1
		}
		f.logger.Error("Failed to fetch page", "page", res.page, "error", res.err)
		f.notify(NetworkFailure, res.err)
		return
	}

	var added int
	if f.restored != nil && res.page == 1 {
		added = f.replaceSnapshot(res.items)
	} else {
		added = f.list.LoadPage(res.items)
	}
	f.hasMore = res.hasMore
	f.logger.Debug("Page loaded", "page", res.page, "received", len(res.items), "added", added, "has_more", res.hasMore)

	f.changed()
	f.saveSnapshot(f.runCtx)

	if f.onLoad != nil {
		f.publish()
		f.onLoad(f.State())
	}
}

// replaceSnapshot заменяет восстановленный снимок первой страницей сервера.
// Записи, пришедшие по realtime после восстановления, остаются сверху.
func (f *Feed[T]) replaceSnapshot(items []T) int {
	var live []T
	for _, item := range f.list.Items() {
		if _, ok := f.restored[item.ItemID()]; !ok {
			live = append(live, item)
		}
	}
	stale := len(f.restored)
	f.restored = nil

	f.list.Reset()
	added := f.list.LoadPage(items)
	for i := len(live) - 1; i >= 0; i-- {
		if !f.list.Contains(live[i].ItemID()) {
			f.list.Upsert(live[i])
		}
	}

	f.logger.Debug("Snapshot replaced by first page", "snapshot_items", stale, "live_items", len(live))
	return added
}

func (f *Feed[T]) startSubscribe() {
	if f.subscriber == nil || f.subscribing {
		return
	}

	ctx := f.runCtx
	f.subscribing = true
	f.workers.Add(1)
	go func() {
		defer f.workers.Done()

		sub, err := f.subscriber.Subscribe(ctx, f.collection)
		select {
		case f.subscriptions <- subscribeResult{sub: sub, err: err}:
		case <-ctx.Done():
			if sub != nil {
				_ = sub.Close()
			}
		}
	}()
}

func (f *Feed[T]) handleSubscribed(res subscribeResult) {
	f.subscribing = false

	if res.err != nil {
		f.logger.Error("Failed to subscribe", "error", res.err)
		f.notify(SubscriptionDrop, res.err)
		return
	}

	f.sub = res.sub
	f.events = res.sub.Events()
	f.logger.Info("Realtime subscription established")
}

func (f *Feed[T]) handleDrop() {
	err := f.sub.Err()
	if err == nil {
		err = errors.New("subscription closed")
	}
	f.logger.Warn("Realtime subscription lost", "error", err)
	f.closeSubscription()
	f.notify(SubscriptionDrop, err)
}

func (f *Feed[T]) closeSubscription() {
	if f.sub == nil {
		return
	}
	if err := f.sub.Close(); err != nil {
		f.logger.Warn("Failed to close subscription", "error", err)
	}
	f.sub = nil
	f.events = nil
}

// applyEvent переводит событие в операцию синхронизатора.
// Некорректные события ничего не меняют.
func (f *Feed[T]) applyEvent(event api.Event) {
	var changed bool

	switch event.Action {
	case api.ActionDelete:
		changed = f.list.Remove(event.ID)
		delete(f.restored, event.ID)
	case api.ActionCreate, api.ActionUpdate, api.ActionPatch:
		var item T
		if err := json.Unmarshal(event.Record, &item); err != nil {
			f.logger.Warn("Ignoring malformed event", "action", event.Action, "id", event.ID, "error", err)
			return
		}
		// null или запись без id декодируются без ошибки
		if id := item.ItemID(); id <= 0 || id != event.ID {
			f.logger.Warn("Ignoring event with invalid record id", "action", event.Action, "id", event.ID, "record_id", id)
			return
		}
		delete(f.restored, event.ID)
		if event.Action == api.ActionPatch {
			changed = f.list.Change(item)
		} else {
			f.list.Upsert(item)
			changed = true
		}
	default:
		f.logger.Debug("Ignoring unknown event action", "action", event.Action)
		return
	}

	if changed {
		f.changed()
	}
}

func (f *Feed[T]) changed() {
	if f.onChange != nil {
		f.onChange(f.list.Items())
	}
}

// notify не блокирует цикл: при переполнении уведомление только логируется
func (f *Feed[T]) notify(kind NotificationKind, err error) {
	n := Notification{Err: err, Collection: f.collection, Kind: kind}
	select {
	case f.notifications <- n:
	default:
		f.logger.Warn("Notification dropped, channel is full", "kind", kind, "error", err)
	}
}

func (f *Feed[T]) publish() {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()

	f.state = State{
		Search:     f.search,
		PageNumber: f.page,
		HasMore:    f.hasMore,
		Loading:    f.loading,
		Subscribed: f.sub != nil,
	}
}

// restore загружает снимок предыдущего запуска. Снимок показывается до первой
// страницы, которая его заменяет: удаленные на сервере записи не переживают старт.
func (f *Feed[T]) restore(ctx context.Context) {
	if f.store == nil {
		return
	}

	snapshot, err := f.store.GetSnapshot(ctx, f.collection)
	if err != nil {
		if !errors.Is(err, storage.ErrSnapshotNotFound) {
			f.logger.Warn("Failed to load snapshot", "error", err)
		}
		return
	}

	if snapshot.Search != f.search {
		f.logger.Debug("Ignoring snapshot of another search", "search", snapshot.Search)
		return
	}

	var items []T
	if err := cbor.Unmarshal(snapshot.Items, &items); err != nil {
		f.logger.Warn("Ignoring corrupted snapshot", "error", err)
		return
	}

	f.list.LoadPage(items)
	f.restored = make(map[int64]struct{}, len(items))
	for _, item := range items {
		f.restored[item.ItemID()] = struct{}{}
	}
	f.logger.Info("Snapshot restored", "items", len(items), "search", snapshot.Search)
	f.changed()
}

func (f *Feed[T]) saveSnapshot(ctx context.Context) {
	if f.store == nil {
		return
	}

	data, err := cbor.Marshal(f.list.Items())
	if err != nil {
		f.logger.Warn("Failed to encode snapshot", "error", err)
		return
	}

	snapshot := &storage.Snapshot{
		Collection: f.collection,
		Search:     f.search,
		Items:      data,
		SavedAt:    f.clock.Now().Unix(),
	}
	if err := f.store.SaveSnapshot(ctx, snapshot); err != nil {
		f.logger.Warn("Failed to save snapshot", "error", err)
	}
}

func (f *Feed[T]) shutdown() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.closeSubscription()
	f.workers.Wait()

	f.saveSnapshot(context.WithoutCancel(f.runCtx))
	f.loading = false
	f.publish()
	f.logger.Info("Feed stopped")
}
