package usecase

import (
	"context"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

// RevokeAccessUseCase - зеркало GrantAccessUseCase: отзыв в ACL-слое,
// затем удаление grantee из денормализованной карты. Та же двухфазная
// семантика и та же PartialShareError при провале второго шага.
type RevokeAccessUseCase struct {
	store port.RecordStorePort
}

func NewRevokeAccessUseCase(store port.RecordStorePort) *RevokeAccessUseCase {
	return &RevokeAccessUseCase{store: store}
}

func (uc *RevokeAccessUseCase) Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID, grantee uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "RevokeAccess",
		"listing_id": listingID.String(),
		"grantee":    grantee.String(),
	})
	ucLogger.Info("Use case started", nil)

	if err := uc.store.Revoke(ctx, actor, listingID, grantee); err != nil {
		ucLogger.Warn("Store rejected revoke", port.Fields{"error": err.Error()})
		return err
	}

	grant := &GrantAccessUseCase{store: uc.store}
	if err := grant.denormalize(ctx, actor, listingID, grantee, nil); err != nil {
		ucLogger.Error("Revoke accepted but denormalization failed", err, nil)
		return &domain.PartialShareError{Err: err}
	}

	ucLogger.Info("Use case finished successfully", nil)
	return nil
}
