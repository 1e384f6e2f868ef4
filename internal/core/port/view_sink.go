package port

import "catalog-view-service/internal/core/domain"

// ViewSinkPort - контракт потребителя view-model (рендерера). Вызывается
// после каждого сложенного ChangeEvent из одной горутины сессии, так что
// реализация может не синхронизироваться с самой сессией.
type ViewSinkPort interface {
	// OnViewChange - свежий упорядоченный снимок аннотированного списка.
	OnViewChange(entries []domain.ViewEntry)

	// OnDegraded - живой поток оборван; view устарела и обязана это
	// показать, а не молча застыть. Повторная подписка - решение
	// потребителя (пересоздать view или сменить фильтры).
	OnDegraded(err error)
}
