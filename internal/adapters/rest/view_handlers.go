package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"
	"catalog-view-service/internal/core/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ViewHandler обслуживает живые view: создание, поток снимков, дозагрузка,
// смена фильтров, закрытие.
type ViewHandler struct {
	registry *usecase.ViewRegistry

	// sinks хранит SSE-раздатчик каждой открытой view. Жизненный цикл
	// совпадает с жизненным циклом сессии в реестре.
	mu    sync.Mutex
	sinks map[uuid.UUID]*ViewStreamSink

	baseLogger port.LoggerPort
}

// NewViewHandler - конструктор.
func NewViewHandler(registry *usecase.ViewRegistry, baseLogger port.LoggerPort) *ViewHandler {
	return &ViewHandler{
		registry:   registry,
		sinks:      make(map[uuid.UUID]*ViewStreamSink),
		baseLogger: baseLogger,
	}
}

func (h *ViewHandler) snapshotResponse(session *usecase.ViewSession) ViewSnapshotResponse {
	entries, exhausted, degraded := session.Snapshot()
	return ViewSnapshotResponse{
		ViewID:    session.ID().String(),
		Data:      toViewEntryResponses(entries),
		Exhausted: exhausted,
		Degraded:  degraded,
	}
}

func (h *ViewHandler) lookupSession(w http.ResponseWriter, r *http.Request, logger port.LoggerPort) (*usecase.ViewSession, bool) {
	viewID, err := uuid.Parse(chi.URLParam(r, "viewID"))
	if err != nil {
		logger.Warn("Invalid view ID format in URL", port.Fields{"provided_id": chi.URLParam(r, "viewID")})
		WriteJSONError(w, http.StatusBadRequest, "Invalid view ID in URL")
		return nil, false
	}

	session, err := h.registry.Get(viewID)
	if err != nil {
		logger.Warn("View not found", port.Fields{"view_id": viewID.String()})
		WriteJSONError(w, http.StatusNotFound, "View not found")
		return nil, false
	}
	return session, true
}

// CreateView обрабатывает POST /api/v1/views
func (h *ViewHandler) CreateView(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateView"})

	var req CreateViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode create view request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := identityFromContext(r.Context())
	sink := NewViewStreamSink(h.baseLogger)

	session, err := h.registry.Create(r.Context(), identity, req.Filters.toDomain(), req.PageSize, sink)
	if err != nil {
		logger.Error("Failed to open view", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to open view")
		return
	}

	h.mu.Lock()
	h.sinks[session.ID()] = sink
	h.mu.Unlock()

	logger.Info("View opened", port.Fields{"view_id": session.ID().String()})
	RespondWithJSON(w, http.StatusCreated, h.snapshotResponse(session))
}

// GetView обрабатывает GET /api/v1/views/{viewID}
func (h *ViewHandler) GetView(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetView"})

	session, ok := h.lookupSession(w, r, logger)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, h.snapshotResponse(session))
}

// StreamView обрабатывает GET /api/v1/views/{viewID}/stream (SSE).
func (h *ViewHandler) StreamView(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "StreamView"})

	session, ok := h.lookupSession(w, r, logger)
	if !ok {
		return
	}

	h.mu.Lock()
	sink := h.sinks[session.ID()]
	h.mu.Unlock()
	if sink == nil {
		WriteJSONError(w, http.StatusNotFound, "View not found")
		return
	}

	handlerLogger := logger.WithFields(port.Fields{"view_id": session.ID().String()})
	handlerLogger.Info("New client subscribing to view stream", nil)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := sink.AddClient()
	defer sink.RemoveClient(clientChan)

	// Отправляем ping для подтверждения установки соединения
	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	// Пустой комментарий каждые 15 секунд держит соединение живым
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case data := <-clientChan:
			if _, err := w.Write(data); err != nil {
				handlerLogger.Error("Error writing to client, closing stream", err, nil)
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}

		case <-r.Context().Done():
			handlerLogger.Info("View stream client disconnected", nil)
			return
		}
	}
}

// LoadMore обрабатывает POST /api/v1/views/{viewID}/load-more
func (h *ViewHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "LoadMore"})

	session, ok := h.lookupSession(w, r, logger)
	if !ok {
		return
	}

	if _, err := session.LoadMore(r.Context()); err != nil {
		if errors.Is(err, domain.ErrViewClosed) {
			WriteJSONError(w, http.StatusGone, "View is closed")
			return
		}
		logger.Error("Load more failed", err, port.Fields{"view_id": session.ID().String()})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load next page")
		return
	}
	RespondWithJSON(w, http.StatusOK, h.snapshotResponse(session))
}

// UpdateFilters обрабатывает PUT /api/v1/views/{viewID}/filters
//
// Смена фильтров переоткрывает подписку синхронно: события старого
// запроса, еще стоящие в очереди, в новую view уже не просочатся.
func (h *ViewHandler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "UpdateFilters"})

	session, ok := h.lookupSession(w, r, logger)
	if !ok {
		return
	}

	var req UpdateFiltersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode update filters request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := session.SetFilters(r.Context(), req.Filters.toDomain()); err != nil {
		if errors.Is(err, domain.ErrViewClosed) {
			WriteJSONError(w, http.StatusGone, "View is closed")
			return
		}
		logger.Error("Failed to update view filters", err, port.Fields{"view_id": session.ID().String()})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to update filters")
		return
	}
	RespondWithJSON(w, http.StatusOK, h.snapshotResponse(session))
}

// UpdateIdentity обрабатывает PUT /api/v1/views/{viewID}/identity
//
// Вызывается клиентом после логина/логаута: список переаннотируется под
// текущую identity без переоткрытия подписки.
func (h *ViewHandler) UpdateIdentity(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "UpdateIdentity"})

	session, ok := h.lookupSession(w, r, logger)
	if !ok {
		return
	}

	session.SetIdentity(identityFromContext(r.Context()))
	RespondWithJSON(w, http.StatusOK, h.snapshotResponse(session))
}

// CloseView обрабатывает DELETE /api/v1/views/{viewID}
func (h *ViewHandler) CloseView(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CloseView"})

	viewID, err := uuid.Parse(chi.URLParam(r, "viewID"))
	if err != nil {
		logger.Warn("Invalid view ID format in URL", port.Fields{"provided_id": chi.URLParam(r, "viewID")})
		WriteJSONError(w, http.StatusBadRequest, "Invalid view ID in URL")
		return
	}

	if err := h.registry.Close(viewID); err != nil {
		WriteJSONError(w, http.StatusNotFound, "View not found")
		return
	}

	h.mu.Lock()
	delete(h.sinks, viewID)
	h.mu.Unlock()

	logger.Info("View closed", port.Fields{"view_id": viewID.String()})
	w.WriteHeader(http.StatusNoContent)
}
