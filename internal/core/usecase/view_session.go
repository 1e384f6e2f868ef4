package usecase

import (
	"context"
	"fmt"
	"sync"

	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

// ViewSession - контроллер одной живой view: владеет QuerySpec, курсором,
// активной подпиской и view-model. Никакого process-wide состояния: каждая
// сессия конструируется и разбирается явно, поэтому независимые view (и
// тесты) спокойно живут параллельно.
//
// Модель конкурентности - "одна логическая нить на view": доставки событий
// подписки, сдвиги курсора и смены фильтров сериализуются одним мьютексом.
// Точки приостановки (Subscribe, FetchPage) выполняются под ним же - это и
// есть та самая одна очередь: движок реконсиляции никогда не складывает два
// события одной view одновременно.
//
// Отмена: каждая подписка помечена монотонно растущим поколением. Cancel
// старой подписки и инкремент поколения происходят под мьютексом, поэтому
// после возврата из SetFilters/Close ни одно событие старого поколения в
// view-model уже не попадет - опоздавшие доставки отбрасываются по
// несовпадению поколения.
type ViewSession struct {
	id     uuid.UUID
	store  port.RecordStorePort
	sink   port.ViewSinkPort
	logger port.LoggerPort

	mu         sync.Mutex
	identity   *uuid.UUID
	spec       domain.QuerySpec
	cursor     *domain.Cursor
	vm         *domain.ViewModel
	sub        port.SubscriptionPort
	generation uint64
	closed     bool
	degraded   bool
}

func NewViewSession(store port.RecordStorePort, sink port.ViewSinkPort, identity *uuid.UUID, filters domain.Filters, pageSize int, baseLogger port.LoggerPort) *ViewSession {
	id := uuid.New()
	spec := domain.BuildQuerySpec(filters, pageSize)
	return &ViewSession{
		id:       id,
		store:    store,
		sink:     sink,
		identity: identity,
		spec:     spec,
		cursor:   domain.NewCursor(spec.PageSize),
		vm:       domain.NewViewModel(spec),
		logger:   baseLogger.WithFields(port.Fields{"component": "ViewSession", "view_id": id.String()}),
	}
}

func (s *ViewSession) ID() uuid.UUID {
	return s.id
}

// Open открывает первую подписку и складывает первоначальную страницу.
// Вызывается один раз после конструктора; при ошибке сессия непригодна.
func (s *ViewSession) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrViewClosed
	}
	if err := s.openLocked(ctx); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// openLocked - открытие подписки нового поколения. Вызывать только под
// мьютексом и только после отмены предыдущей подписки.
func (s *ViewSession) openLocked(ctx context.Context) error {
	s.generation++
	gen := s.generation

	sub, err := s.store.Subscribe(ctx, s.spec, s.cursor.Position())
	if err != nil {
		return fmt.Errorf("failed to open subscription: %w", err)
	}
	s.sub = sub
	s.degraded = false

	initial := sub.Initial()
	s.cursor.Advance(initial)
	s.vm.AppendPage(initial, s.cursor.Exhausted())
	s.logger.Debug("Subscription opened", port.Fields{
		"generation":   gen,
		"initial_size": len(initial),
		"exhausted":    s.cursor.Exhausted(),
	})

	// Единственная горутина-форвардер на поколение: перекладывает события
	// из канала подписки в сериализованный apply. Завершается на закрытии
	// канала (отмена или обрыв).
	go func() {
		for ev := range sub.Events() {
			s.apply(gen, ev)
		}
		if err := sub.Err(); err != nil {
			s.degrade(gen, err)
		}
	}()
	return nil
}

// apply складывает одно событие живой подписки в view-model. События не
// активного поколения молча отбрасываются - это опоздавшие доставки уже
// отмененной подписки.
func (s *ViewSession) apply(gen uint64, ev domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		s.logger.Debug("Dropping event from stale subscription generation", port.Fields{
			"event_generation":  gen,
			"active_generation": s.generation,
			"listing_id":        ev.ID.String(),
			"action":            ev.Action,
		})
		return
	}
	if s.vm.Apply(ev) {
		s.notifyLocked()
	}
}

// degrade помечает view деградированной после обрыва потока. Молча
// застывшая view недопустима - потребитель обязан узнать, что данные
// могли устареть.
func (s *ViewSession) degrade(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation || s.degraded {
		return
	}
	s.degraded = true
	s.logger.Error("Live subscription broke, view is degraded", err, port.Fields{"generation": gen})
	s.sink.OnDegraded(err)
}

// LoadMore сдвигает курсор на следующую страницу. Возвращает признак
// исчерпания, по которому UI гасит "load more".
func (s *ViewSession) LoadMore(ctx context.Context) (exhausted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, domain.ErrViewClosed
	}
	if s.cursor.Exhausted() {
		return true, nil
	}

	page, err := s.store.FetchPage(ctx, s.spec, s.cursor.Position())
	if err != nil {
		return false, fmt.Errorf("failed to fetch next page: %w", err)
	}
	s.cursor.Advance(page)
	if s.vm.AppendPage(page, s.cursor.Exhausted()) > 0 {
		s.notifyLocked()
	}
	s.logger.Debug("Loaded next page", port.Fields{
		"page_size": len(page),
		"exhausted": s.cursor.Exhausted(),
	})
	return s.cursor.Exhausted(), nil
}

// SetFilters - смена фильтров: отменить активную подписку, сбросить курсор,
// выбросить view-model и открыть подписку заново под новым QuerySpec.
// Никогда не мутирует спеку на месте: частичное применение новых фильтров
// к старому курсору - ошибка по построению.
func (s *ViewSession) SetFilters(ctx context.Context, filters domain.Filters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrViewClosed
	}

	s.cancelLocked()
	s.spec = domain.BuildQuerySpec(filters, s.spec.PageSize)
	s.cursor = domain.NewCursor(s.spec.PageSize)
	s.vm = domain.NewViewModel(s.spec)

	if err := s.openLocked(ctx); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// SetIdentity - смена текущей identity (логин/логаут во время жизни view).
// Записи те же, меняются только capability - переаннотируем и уведомляем.
func (s *ViewSession) SetIdentity(identity *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.identity = identity
	s.notifyLocked()
}

// Snapshot возвращает текущий аннотированный список вместе с признаками
// исчерпания и деградации.
func (s *ViewSession) Snapshot() (entries []domain.ViewEntry, exhausted bool, degraded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vm.Snapshot(s.identity), s.cursor.Exhausted(), s.degraded
}

// Close разбирает сессию. Идемпотентен; после возврата ни одно событие
// любой прежней подписки в sink не попадет.
func (s *ViewSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelLocked()
	s.logger.Debug("View session closed", nil)
}

func (s *ViewSession) cancelLocked() {
	s.generation++
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
}

func (s *ViewSession) notifyLocked() {
	s.sink.OnViewChange(s.vm.Snapshot(s.identity))
}
