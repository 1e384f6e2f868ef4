package usecases_port

import (
	"context"

	"catalog-view-service/internal/core/domain"

	"github.com/google/uuid"
)

type EditListingUseCasePort interface {
	Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID, form domain.ListingForm) error
}
