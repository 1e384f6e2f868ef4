package postgres_adapter

import (
	"context"
	"fmt"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ACLRepository - авторитетный слой прав доступа хранилища (таблица
// listing_acl). Именно он, а не денормализованная карта в записи, решает,
// пройдет ли запись.
type ACLRepository struct {
	pool *pgxpool.Pool
}

func NewACLRepository(pool *pgxpool.Pool) (*ACLRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &ACLRepository{pool: pool}, nil
}

// Upsert выдает (или повышает/понижает) уровень. Повторный грант того же
// уровня - штатный no-op.
func (r *ACLRepository) Upsert(ctx context.Context, listingID, identity uuid.UUID, level domain.PermissionLevel) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "ACLRepository",
		"method":     "Upsert",
		"listing_id": listingID.String(),
		"identity":   identity.String(),
	})

	query := `INSERT INTO listing_acl (listing_id, identity, level)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, identity) DO UPDATE SET level = EXCLUDED.level`

	if _, err := r.pool.Exec(ctx, query, listingID, identity, string(level)); err != nil {
		logger.Error("Failed to upsert ACL entry", err, nil)
		return fmt.Errorf("failed to upsert ACL entry: %w", err)
	}
	logger.Debug("ACL entry upserted", port.Fields{"level": level})
	return nil
}

// Remove снимает запись ACL. Отсутствие записи - no-op.
func (r *ACLRepository) Remove(ctx context.Context, listingID, identity uuid.UUID) error {
	query := `DELETE FROM listing_acl WHERE listing_id = $1 AND identity = $2`
	if _, err := r.pool.Exec(ctx, query, listingID, identity); err != nil {
		return fmt.Errorf("failed to remove ACL entry: %w", err)
	}
	return nil
}

// HasWrite - есть ли у identity write-уровень на запись.
func (r *ACLRepository) HasWrite(ctx context.Context, listingID, identity uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM listing_acl
		WHERE listing_id = $1 AND identity = $2 AND level = 'write'
	)`
	var has bool
	if err := r.pool.QueryRow(ctx, query, listingID, identity).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check ACL entry: %w", err)
	}
	return has, nil
}
