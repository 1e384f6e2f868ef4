package store_adapter

import (
	"sync"

	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"
)

// Размер буфера живого потока одной подписки. Сессия сливает события под
// своим мьютексом, поэтому буфер нужен только на короткие всплески.
const subscriptionBufferSize = 64

// feedSubscription - одна живая подписка поверх общей ленты изменений.
// Реализует port.SubscriptionPort.
type feedSubscription struct {
	id      uint64
	spec    domain.QuerySpec
	initial []domain.ListingRecord

	mu     sync.Mutex
	events chan domain.ChangeEvent
	err    error
	closed bool

	owner  *changeFeedDispatcher
	logger port.LoggerPort
}

func (s *feedSubscription) Initial() []domain.ListingRecord {
	return s.initial
}

func (s *feedSubscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

func (s *feedSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel отписывает от ленты и закрывает канал событий. Идемпотентна;
// после штатной отмены Err() остается nil.
func (s *feedSubscription) Cancel() {
	s.owner.unregister(s.id)
	s.closeWith(nil)
}

// deliver - неблокирующая доставка. Переполненный буфер означает, что
// потребитель безнадежно отстал: подписку обрываем с ошибкой, сессия
// увидит деградацию и сможет переподписаться с чистой страницы.
func (s *feedSubscription) deliver(ev domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("Subscription buffer overflow, dropping subscription", port.Fields{
			"subscription_id": s.id,
		})
		s.err = domain.ErrSubscriptionClosed
		s.closed = true
		close(s.events)
	}
}

func (s *feedSubscription) closeWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.err = err
	s.closed = true
	close(s.events)
}

// changeFeedDispatcher раздает события ленты по открытым подпискам.
//
// added/initial проходят фильтр QuerySpec.Matches здесь: запись, не
// подходящая под запрос, подписке не интересна. updated/removed
// транслируются всем - view-model сама решает, касается ли изменение ее
// записей (обновление могло вывести запись из-под фильтра, а удаление
// значения не несет вовсе).
type changeFeedDispatcher struct {
	mu     sync.Mutex
	subs   map[uint64]*feedSubscription
	nextID uint64
	logger port.LoggerPort
}

func newChangeFeedDispatcher(logger port.LoggerPort) *changeFeedDispatcher {
	return &changeFeedDispatcher{
		subs:   make(map[uint64]*feedSubscription),
		logger: logger,
	}
}

func (d *changeFeedDispatcher) register(spec domain.QuerySpec) *feedSubscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	sub := &feedSubscription{
		id:     d.nextID,
		spec:   spec,
		events: make(chan domain.ChangeEvent, subscriptionBufferSize),
		owner:  d,
		logger: d.logger,
	}
	d.subs[sub.id] = sub
	return sub
}

func (d *changeFeedDispatcher) unregister(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, id)
}

// Dispatch вызывается консьюмером ленты по одному событию за раз, в
// порядке прибытия.
func (d *changeFeedDispatcher) Dispatch(ev domain.ChangeEvent) {
	d.mu.Lock()
	targets := make([]*feedSubscription, 0, len(d.subs))
	for _, sub := range d.subs {
		switch ev.Action {
		case domain.ActionAdded, domain.ActionInitial:
			if ev.Value == nil || !sub.spec.Matches(*ev.Value) {
				continue
			}
		}
		targets = append(targets, sub)
	}
	d.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(ev)
	}
}

// Fail обрывает все подписки: лента мертва, каждая открытая view обязана
// деградировать, а не молча показывать устаревшее.
func (d *changeFeedDispatcher) Fail(err error) {
	d.mu.Lock()
	subs := d.subs
	d.subs = make(map[uint64]*feedSubscription)
	d.mu.Unlock()

	for _, sub := range subs {
		sub.closeWith(err)
	}
}
