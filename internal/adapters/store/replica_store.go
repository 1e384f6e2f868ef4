package store_adapter

import (
	"context"
	"fmt"

	postgres_adapter "catalog-view-service/internal/adapters/postgres"
	rabbitmq_adapter "catalog-view-service/internal/adapters/rabbitmq"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
)

// ReplicaStoreAdapter - реализация RecordStorePort поверх локальной
// postgres-реплики и общей ленты изменений в RabbitMQ.
//
// Важное свойство записи: принятая мутация НЕ применяется к локальным
// view напрямую. Она публикуется в ленту и возвращается собственным
// событием через консьюмер - тем же путем, что и чужие изменения. Так
// все реплики сходятся через один и тот же механизм свертки.
type ReplicaStoreAdapter struct {
	listings   *postgres_adapter.ListingRepository
	acl        *postgres_adapter.ACLRepository
	publisher  *rabbitmq_adapter.ChangeEventPublisher
	dispatcher *changeFeedDispatcher
	logger     port.LoggerPort
}

func NewReplicaStoreAdapter(
	listings *postgres_adapter.ListingRepository,
	acl *postgres_adapter.ACLRepository,
	publisher *rabbitmq_adapter.ChangeEventPublisher,
	logger port.LoggerPort,
) *ReplicaStoreAdapter {
	componentLogger := logger.WithFields(port.Fields{"component": "ReplicaStoreAdapter"})
	return &ReplicaStoreAdapter{
		listings:   listings,
		acl:        acl,
		publisher:  publisher,
		dispatcher: newChangeFeedDispatcher(componentLogger),
		logger:     componentLogger,
	}
}

// Dispatch передает событие ленты открытым подпискам. Вызывается
// консьюмером в порядке прибытия.
func (a *ReplicaStoreAdapter) Dispatch(ev domain.ChangeEvent) {
	a.dispatcher.Dispatch(ev)
}

// Fail обрывает все подписки при потере ленты.
func (a *ReplicaStoreAdapter) Fail(err error) {
	a.dispatcher.Fail(fmt.Errorf("%w: %v", domain.ErrSubscriptionClosed, err))
}

func (a *ReplicaStoreAdapter) Get(ctx context.Context, id uuid.UUID) (*domain.ListingRecord, error) {
	return a.listings.Get(ctx, id)
}

func (a *ReplicaStoreAdapter) FetchPage(ctx context.Context, spec domain.QuerySpec, cursor *domain.CursorPosition) ([]domain.ListingRecord, error) {
	return a.listings.FetchPage(ctx, spec, cursor)
}

// Subscribe регистрирует подписку ДО чтения первой страницы: событие,
// пришедшее между чтением и регистрацией, потерялось бы навсегда, а
// дубликат (запись и на странице, и в событии) свертка view-model
// поглощает идемпотентно.
func (a *ReplicaStoreAdapter) Subscribe(ctx context.Context, spec domain.QuerySpec, cursor *domain.CursorPosition) (port.SubscriptionPort, error) {
	sub := a.dispatcher.register(spec)

	page, err := a.listings.FetchPage(ctx, spec, cursor)
	if err != nil {
		sub.Cancel()
		return nil, fmt.Errorf("failed to load initial page: %w", err)
	}
	sub.initial = page
	return sub, nil
}

// canWrite - авторитетная проверка права записи: владелец или явная
// write-запись в ACL. Денормализованная карта Collaborators в самой
// записи здесь НЕ учитывается: она подсказка для аннотации, а не
// источник истины.
func (a *ReplicaStoreAdapter) canWrite(ctx context.Context, actor *uuid.UUID, rec *domain.ListingRecord) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if rec.Owner == *actor {
		return true, nil
	}
	return a.acl.HasWrite(ctx, rec.ID, *actor)
}

func (a *ReplicaStoreAdapter) Write(ctx context.Context, actor *uuid.UUID, rec domain.ListingRecord) error {
	current, err := a.listings.Get(ctx, rec.ID)
	if err != nil {
		return err
	}

	ok, err := a.canWrite(ctx, actor, current)
	if err != nil {
		return fmt.Errorf("failed to check write permission: %w", err)
	}
	if !ok {
		return domain.ErrPermissionDenied
	}

	// Владелец и время создания неизменяемы, чем бы ни пришла запись.
	rec.Owner = current.Owner
	rec.CreatedAt = current.CreatedAt

	if err := a.listings.Update(ctx, rec); err != nil {
		return err
	}
	return a.publish(ctx, domain.ChangeEvent{
		ID:     rec.ID,
		Action: domain.ActionUpdated,
		Value:  &rec,
	})
}

func (a *ReplicaStoreAdapter) Create(ctx context.Context, actor *uuid.UUID, rec domain.ListingRecord) error {
	if actor == nil || rec.Owner != *actor {
		return domain.ErrPermissionDenied
	}

	if err := a.listings.Insert(ctx, rec); err != nil {
		return err
	}
	return a.publish(ctx, domain.ChangeEvent{
		ID:     rec.ID,
		Action: domain.ActionAdded,
		Value:  &rec,
	})
}

func (a *ReplicaStoreAdapter) Delete(ctx context.Context, actor *uuid.UUID, id uuid.UUID) error {
	current, err := a.listings.Get(ctx, id)
	if err != nil {
		return err
	}
	// Изъятие записи - прерогатива владельца, write-коллабораторам оно
	// недоступно.
	if actor == nil || current.Owner != *actor {
		return domain.ErrPermissionDenied
	}

	if err := a.listings.SoftDelete(ctx, id); err != nil {
		return err
	}
	return a.publish(ctx, domain.ChangeEvent{
		ID:     id,
		Action: domain.ActionRemoved,
	})
}

func (a *ReplicaStoreAdapter) Grant(ctx context.Context, actor *uuid.UUID, id uuid.UUID, grantee uuid.UUID, level domain.PermissionLevel) error {
	current, err := a.listings.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor == nil || current.Owner != *actor {
		return domain.ErrPermissionDenied
	}
	if !level.IsValid() {
		return &domain.ValidationError{Fields: map[string]string{"level": "unknown permission level"}}
	}
	return a.acl.Upsert(ctx, id, grantee, level)
}

func (a *ReplicaStoreAdapter) Revoke(ctx context.Context, actor *uuid.UUID, id uuid.UUID, grantee uuid.UUID) error {
	current, err := a.listings.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor == nil || current.Owner != *actor {
		return domain.ErrPermissionDenied
	}
	return a.acl.Remove(ctx, id, grantee)
}

// publish отправляет событие в ленту. Запись в реплику уже принята:
// ошибка публикации значит, что остальные (и собственные view) изменение
// не увидят, поэтому она возвращается вызывающему как ошибка мутации.
func (a *ReplicaStoreAdapter) publish(ctx context.Context, ev domain.ChangeEvent) error {
	if err := a.publisher.PublishChange(ctx, ev); err != nil {
		a.logger.Error("Failed to publish change event", err, port.Fields{
			"listing_id": ev.ID.String(),
			"action":     string(ev.Action),
		})
		return fmt.Errorf("change accepted locally but not propagated: %w", err)
	}
	return nil
}
