package usecase

import (
	"context"
	"time"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

// PublishListingUseCase - публикация нового объявления. Запись собирается
// с нуля: owner = текущая identity, status = available, пустая карта
// коллабораторов, created_at = сейчас.
type PublishListingUseCase struct {
	store     port.RecordStorePort
	validator FormValidator
	// now вынесено в поле, чтобы тесты могли зафиксировать время создания.
	now func() time.Time
}

func NewPublishListingUseCase(store port.RecordStorePort, validator FormValidator) *PublishListingUseCase {
	return &PublishListingUseCase{
		store:     store,
		validator: validator,
		now:       time.Now,
	}
}

func (uc *PublishListingUseCase) Execute(ctx context.Context, actor *uuid.UUID, form domain.ListingForm) (uuid.UUID, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "PublishListing"})
	ucLogger.Info("Use case started", nil)

	if actor == nil {
		ucLogger.Warn("Anonymous publish attempt", nil)
		return uuid.Nil, domain.ErrPermissionDenied
	}

	// partial=false: обязательные поля формы должны присутствовать.
	if err := uc.validator.ValidateForm(form, false); err != nil {
		ucLogger.Warn("Form validation failed", port.Fields{"error": err.Error()})
		return uuid.Nil, err
	}

	rec := form.Overlay(domain.ListingRecord{})
	rec.ID = uuid.New()
	rec.Owner = *actor
	rec.Status = domain.StatusAvailable
	rec.Collaborators = nil
	rec.CreatedAt = uc.now().UTC()

	if err := uc.store.Create(ctx, actor, rec); err != nil {
		ucLogger.Error("Store rejected create", err, nil)
		return uuid.Nil, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"listing_id": rec.ID.String()})
	return rec.ID, nil
}
