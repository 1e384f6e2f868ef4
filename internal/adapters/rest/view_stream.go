package rest

import (
	"encoding/json"
	"fmt"
	"sync"

	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"
)

// clientChannel - канал, через который мы отправляем SSE-сообщения одному
// конкретному клиенту (браузеру).
type clientChannel chan []byte

// ViewStreamSink - реализация ViewSinkPort для одной view: превращает
// снимки view-model в SSE-сообщения и раздает их всем подключенным
// клиентам (пользователь может открыть несколько вкладок одной view).
//
// Последний снимок хранится, чтобы свежеподключенный клиент сразу получил
// текущее состояние, а не ждал следующего события ленты.
type ViewStreamSink struct {
	mu       sync.Mutex
	clients  []clientChannel
	latest   []byte
	degraded []byte
	logger   port.LoggerPort
}

func NewViewStreamSink(baseLogger port.LoggerPort) *ViewStreamSink {
	return &ViewStreamSink{
		logger: baseLogger.WithFields(port.Fields{"component": "ViewStreamSink"}),
	}
}

// OnViewChange вызывается сессией после каждого сложенного события,
// строго последовательно, поэтому порядок снимков сохраняется.
func (s *ViewStreamSink) OnViewChange(entries []domain.ViewEntry) {
	payload, err := json.Marshal(toViewEntryResponses(entries))
	if err != nil {
		s.logger.Error("Failed to marshal view snapshot", err, nil)
		return
	}
	msg := []byte(fmt.Sprintf("event: snapshot\ndata: %s\n\n", payload))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = msg
	s.broadcastLocked(msg)
}

// OnDegraded сообщает клиентам, что живой поток оборван и view устарела.
// Сообщение запоминается: клиент, подключившийся после обрыва, тоже обязан
// его увидеть.
func (s *ViewStreamSink) OnDegraded(err error) {
	body, _ := json.Marshal(map[string]string{"reason": err.Error()})
	msg := []byte(fmt.Sprintf("event: degraded\ndata: %s\n\n", body))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = msg
	s.broadcastLocked(msg)
}

func (s *ViewStreamSink) broadcastLocked(msg []byte) {
	for _, ch := range s.clients {
		// select с default, чтобы не заблокироваться на отставшем клиенте:
		// пропущенный снимок не страшен, следующий все равно полный
		select {
		case ch <- msg:
		default:
			s.logger.Warn("Client channel is full, skipping snapshot", nil)
		}
	}
}

// AddClient регистрирует новое SSE-соединение и сразу кладет в его канал
// текущее состояние view.
func (s *ViewStreamSink) AddClient() clientChannel {
	ch := make(clientChannel, 16)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append(s.clients, ch)
	if s.latest != nil {
		ch <- s.latest
	}
	if s.degraded != nil {
		ch <- s.degraded
	}
	return ch
}

// RemoveClient удаляет канал клиента при отключении.
func (s *ViewStreamSink) RemoveClient(ch clientChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.clients {
		if c == ch {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
}
