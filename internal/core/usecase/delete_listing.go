package usecase

import (
	"context"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

// DeleteListingUseCase - логическое изъятие объявления. Из view-model
// запись уйдет событием removed, когда его вернет лента; локально ничего
// не выкидываем.
type DeleteListingUseCase struct {
	store port.RecordStorePort
}

func NewDeleteListingUseCase(store port.RecordStorePort) *DeleteListingUseCase {
	return &DeleteListingUseCase{store: store}
}

func (uc *DeleteListingUseCase) Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "DeleteListing",
		"listing_id": listingID.String(),
	})
	ucLogger.Info("Use case started", nil)

	if err := uc.store.Delete(ctx, actor, listingID); err != nil {
		ucLogger.Warn("Store rejected delete", port.Fields{"error": err.Error()})
		return err
	}

	ucLogger.Info("Use case finished successfully", nil)
	return nil
}
