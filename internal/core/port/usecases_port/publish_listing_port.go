package usecases_port

import (
	"context"

	"catalog-view-service/internal/core/domain"

	"github.com/google/uuid"
)

type PublishListingUseCasePort interface {
	// Execute возвращает ID созданной записи. "Успех" означает "принято
	// хранилищем": сама запись в view придет обратно событием ленты.
	Execute(ctx context.Context, actor *uuid.UUID, form domain.ListingForm) (uuid.UUID, error)
}
