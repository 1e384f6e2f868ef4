package usecases_port

import (
	"context"

	"github.com/google/uuid"
)

type DeleteListingUseCasePort interface {
	Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID) error
}
