package usecase

import (
	"context"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

// EditListingUseCase - редактирование полей объявления. Поля формы
// накладываются поверх текущей записи, после чего created_at и owner
// принудительно восстанавливаются из до-правочной записи - что бы ни
// прислал вызывающий. Неизменяемость этих двух полей - инвариант модели
// данных, и обеспечивается он только здесь, централизованно.
type EditListingUseCase struct {
	store     port.RecordStorePort
	validator FormValidator
}

// FormValidator - контракт валидации формы (реализация - в contracts,
// поверх JSON Schema). Ошибки валидации ловятся до отправки и никогда
// не уходят в хранилище.
type FormValidator interface {
	ValidateForm(form domain.ListingForm, partial bool) error
}

func NewEditListingUseCase(store port.RecordStorePort, validator FormValidator) *EditListingUseCase {
	return &EditListingUseCase{store: store, validator: validator}
}

func (uc *EditListingUseCase) Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID, form domain.ListingForm) error {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "EditListing",
		"listing_id": listingID.String(),
	})
	ucLogger.Info("Use case started", nil)

	// partial=true: при редактировании отсутствующее поле означает
	// "оставить как есть", обязательность не проверяется.
	if err := uc.validator.ValidateForm(form, true); err != nil {
		ucLogger.Warn("Form validation failed", port.Fields{"error": err.Error()})
		return err
	}

	current, err := uc.store.Get(ctx, listingID)
	if err != nil {
		ucLogger.Warn("Could not read current record", port.Fields{"error": err.Error()})
		return err
	}

	updated := form.Overlay(*current)

	// Принудительное восстановление неизменяемых полей. Форма их и так не
	// несет, но восстановление здесь - единственная точка, от которой
	// зависит инвариант, а не свойство конкретного DTO.
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.Owner = current.Owner
	updated.Collaborators = current.Clone().Collaborators

	if err := uc.store.Write(ctx, actor, updated); err != nil {
		ucLogger.Warn("Store rejected edit", port.Fields{"error": err.Error()})
		return err
	}

	ucLogger.Info("Use case finished successfully", nil)
	return nil
}
