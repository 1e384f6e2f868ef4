package usecase

import (
	"context"
	"fmt"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

// ChangeStatusUseCase - смена статуса объявления: читаем текущую запись,
// накладываем только поле status и отправляем полную перезапись. Все
// остальные поля (в первую очередь created_at, owner и коллабораторы)
// уходят в хранилище дословно какими были.
//
// Локальная capability перед отправкой НЕ проверяется: UI и так не покажет
// действие без write-уровня, а если запрос все же пришел - авторитетную
// проверку делает хранилище и возвращает ErrPermissionDenied.
type ChangeStatusUseCase struct {
	store port.RecordStorePort
}

func NewChangeStatusUseCase(store port.RecordStorePort) *ChangeStatusUseCase {
	return &ChangeStatusUseCase{store: store}
}

func (uc *ChangeStatusUseCase) Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID, newStatus domain.Status) error {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "ChangeStatus",
		"listing_id": listingID.String(),
		"new_status": newStatus,
	})
	ucLogger.Info("Use case started", nil)

	if !newStatus.IsValid() {
		return &domain.ValidationError{Fields: map[string]string{
			"status": fmt.Sprintf("must be one of available/reserved/sold, got %q", newStatus),
		}}
	}

	current, err := uc.store.Get(ctx, listingID)
	if err != nil {
		// ErrListingNotFound здесь штатен: запись могли удалить, пока
		// пользователь смотрел на кнопку.
		ucLogger.Warn("Could not read current record", port.Fields{"error": err.Error()})
		return err
	}

	updated := current.Clone()
	updated.Status = newStatus

	if err := uc.store.Write(ctx, actor, updated); err != nil {
		ucLogger.Warn("Store rejected status change", port.Fields{"error": err.Error()})
		return err
	}

	// Никакой локальной мутации view-model: результат вернется событием
	// подписки, иначе запись отрисуется дважды.
	ucLogger.Info("Use case finished successfully", nil)
	return nil
}
