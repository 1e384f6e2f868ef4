package usecases_port

import (
	"context"

	"catalog-view-service/internal/core/domain"

	"github.com/google/uuid"
)

type GrantAccessUseCasePort interface {
	Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID, grantee uuid.UUID, level domain.PermissionLevel) error
}

type RevokeAccessUseCasePort interface {
	Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID, grantee uuid.UUID) error
}
