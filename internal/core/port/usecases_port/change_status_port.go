package usecases_port

import (
	"context"

	"catalog-view-service/internal/core/domain"

	"github.com/google/uuid"
)

type ChangeStatusUseCasePort interface {
	Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID, newStatus domain.Status) error
}
