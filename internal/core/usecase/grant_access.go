package usecase

import (
	"context"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

// GrantAccessUseCase - двухфазный, НЕатомарный шаринг:
//
//	(a) авторитетный грант в ACL-слое хранилища;
//	(b) чтение записи, дописывание grantee в карту коллабораторов и полная
//	    перезапись.
//
// Шаг (b) существует только ради денормализации: локальный резолвер
// capability (ResolveCapability) работает по самой записи, без отдельного
// запроса прав на каждую строку списка. Если (a) прошел, а (b) - нет,
// grantee уже имеет долговечный write-доступ, но карта в записи устарела
// до следующей успешной перезаписи. Это известная щель консистентности
// исходной системы; она сознательно не "чинится" транзакцией, а выносится
// наружу отличимой ошибкой PartialShareError - повтор только шага (b)
// безопасен и идемпотентен.
type GrantAccessUseCase struct {
	store port.RecordStorePort
}

func NewGrantAccessUseCase(store port.RecordStorePort) *GrantAccessUseCase {
	return &GrantAccessUseCase{store: store}
}

func (uc *GrantAccessUseCase) Execute(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID, grantee uuid.UUID, level domain.PermissionLevel) error {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "GrantAccess",
		"listing_id": listingID.String(),
		"grantee":    grantee.String(),
		"level":      level,
	})
	ucLogger.Info("Use case started", nil)

	if !level.IsValid() {
		return &domain.ValidationError{Fields: map[string]string{
			"level": "must be read or write",
		}}
	}

	// Шаг (a): авторитетный грант.
	if err := uc.store.Grant(ctx, actor, listingID, grantee, level); err != nil {
		ucLogger.Warn("Store rejected grant", port.Fields{"error": err.Error()})
		return err
	}

	// Шаг (b): денормализация карты коллабораторов в саму запись.
	if err := uc.denormalize(ctx, actor, listingID, grantee, &level); err != nil {
		ucLogger.Error("Grant accepted but denormalization failed", err, nil)
		return &domain.PartialShareError{Err: err}
	}

	ucLogger.Info("Use case finished successfully", nil)
	return nil
}

// denormalize - шаг (b), общий для гранта и отзыва: читаем текущую запись,
// правим карту коллабораторов, перезаписываем. level == nil - удаление.
func (uc *GrantAccessUseCase) denormalize(ctx context.Context, actor *uuid.UUID, listingID uuid.UUID, grantee uuid.UUID, level *domain.PermissionLevel) error {
	current, err := uc.store.Get(ctx, listingID)
	if err != nil {
		return err
	}

	updated := current.Clone()
	if level != nil {
		if updated.Collaborators == nil {
			updated.Collaborators = make(map[uuid.UUID]domain.PermissionLevel, 1)
		}
		updated.Collaborators[grantee] = *level
	} else {
		delete(updated.Collaborators, grantee)
	}

	return uc.store.Write(ctx, actor, updated)
}
