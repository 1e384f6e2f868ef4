package port

import (
	"context"

	"catalog-view-service/internal/core/domain"

	"github.com/google/uuid"
)

// SubscriptionPort - живой хендл, привязанный к одному QuerySpec.
//
// Initial() - материализованная первая страница (упорядочена по QuerySpec).
// Events() - неограниченная последовательность событий в порядке прибытия;
// канал закрывается при Cancel или при обрыве потока со стороны хранилища.
// Err() после закрытия канала: nil - штатная отмена, иначе причина обрыва
// (ErrSubscriptionClosed или обернутая транспортная ошибка).
// Cancel() идемпотентна.
type SubscriptionPort interface {
	Initial() []domain.ListingRecord
	Events() <-chan domain.ChangeEvent
	Err() error
	Cancel()
}

// RecordStorePort - SPI внешнего реплицированного хранилища. Ядро не знает,
// как записи ходят между пирами и как проверяются подписи - только этот
// контракт.
type RecordStorePort interface {
	// Get возвращает текущую запись или ErrListingNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.ListingRecord, error)

	// Subscribe открывает подписку: первая страница по (spec, cursor) плюс
	// живой поток событий. cursor == nil - с начала упорядочивания.
	Subscribe(ctx context.Context, spec domain.QuerySpec, cursor *domain.CursorPosition) (SubscriptionPort, error)

	// FetchPage дозагружает следующую страницу под тем же упорядочиванием.
	// Используется load-more: подписка при этом не переоткрывается.
	FetchPage(ctx context.Context, spec domain.QuerySpec, cursor *domain.CursorPosition) ([]domain.ListingRecord, error)

	// Write - полная перезапись существующей записи. Может вернуть
	// ErrPermissionDenied (авторитетная проверка - здесь, а не в локальном
	// резолвере) или ErrListingNotFound.
	Write(ctx context.Context, actor *uuid.UUID, rec domain.ListingRecord) error

	// Create - создание новой записи.
	Create(ctx context.Context, actor *uuid.UUID, rec domain.ListingRecord) error

	// Delete логически изымает запись (tombstone). Реплики узнают об этом
	// событием removed; жесткое это удаление или tombstone - ядру все равно.
	Delete(ctx context.Context, actor *uuid.UUID, id uuid.UUID) error

	// Grant / Revoke - авторитетный ACL-слой хранилища (шаг (a)
	// двухфазного шаринга).
	Grant(ctx context.Context, actor *uuid.UUID, id uuid.UUID, grantee uuid.UUID, level domain.PermissionLevel) error
	Revoke(ctx context.Context, actor *uuid.UUID, id uuid.UUID, grantee uuid.UUID) error
}
