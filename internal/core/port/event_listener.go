package port

import "context"

// EventListenerPort - контракт фонового слушателя (консьюмер ленты
// изменений). Start блокируется до отмены контекста или фатальной ошибки.
type EventListenerPort interface {
	Start(ctx context.Context) error
	Close() error
}
