package usecase

import (
	"context"
	"sync"

	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

// ViewRegistry владеет всеми живыми view-сессиями процесса. Это и есть тот
// единственный явный объект с определенным конструированием и teardown'ом
// вместо амбиентных глобалов: несколько независимых view (вкладки, тесты)
// сосуществуют, не зная друг о друге.
type ViewRegistry struct {
	store           port.RecordStorePort
	defaultPageSize int
	logger          port.LoggerPort

	mu       sync.Mutex
	sessions map[uuid.UUID]*ViewSession
	closed   bool
}

func NewViewRegistry(store port.RecordStorePort, defaultPageSize int, baseLogger port.LoggerPort) *ViewRegistry {
	if defaultPageSize <= 0 {
		defaultPageSize = domain.DefaultPageSize
	}
	return &ViewRegistry{
		store:           store,
		defaultPageSize: defaultPageSize,
		logger:          baseLogger.WithFields(port.Fields{"component": "ViewRegistry"}),
		sessions:        make(map[uuid.UUID]*ViewSession),
	}
}

// Create конструирует и открывает новую сессию. Sink приходит от
// вызывающего слоя (SSE-поток, тест) - реестр о транспорте не знает.
func (r *ViewRegistry) Create(ctx context.Context, identity *uuid.UUID, filters domain.Filters, pageSize int, sink port.ViewSinkPort) (*ViewSession, error) {
	if pageSize <= 0 {
		pageSize = r.defaultPageSize
	}
	session := NewViewSession(r.store, sink, identity, filters, pageSize, r.logger)
	if err := session.Open(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		session.Close()
		return nil, domain.ErrViewClosed
	}
	r.sessions[session.ID()] = session
	total := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("View session created", port.Fields{
		"view_id":       session.ID().String(),
		"open_sessions": total,
	})
	return session, nil
}

func (r *ViewRegistry) Get(viewID uuid.UUID) (*ViewSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[viewID]
	if !ok {
		return nil, domain.ErrViewNotFound
	}
	return session, nil
}

// Close разбирает одну сессию. Идемпотентность самой сессии сохраняется;
// повторное закрытие несуществующего ID - ErrViewNotFound.
func (r *ViewRegistry) Close(viewID uuid.UUID) error {
	r.mu.Lock()
	session, ok := r.sessions[viewID]
	if ok {
		delete(r.sessions, viewID)
	}
	r.mu.Unlock()
	if !ok {
		return domain.ErrViewNotFound
	}
	session.Close()
	return nil
}

// CloseAll - teardown при остановке приложения.
func (r *ViewRegistry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*ViewSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[uuid.UUID]*ViewSession)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	r.logger.Info("All view sessions closed", port.Fields{"count": len(sessions)})
}
