package postgres_adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListingRepository - реплицированный набор записей каталога в PostgreSQL.
// Удаление логическое (deleted_at): tombstone и жесткое удаление ядро все
// равно не различает, а tombstone дешевле для сверки реплик.
type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) (*ListingRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &ListingRepository{pool: pool}, nil
}

const listingColumns = `l.id, l.title, l.operation, l.property_type,
	l.price_amount, l.price_currency,
	l.country, l.city, l.zone, l.address, l.lat, l.lng,
	l.image_ref, l.status, l.created_at, l.owner_id, l.collaborators`

// Get возвращает запись или domain.ErrListingNotFound. Tombstone считается
// отсутствием.
func (r *ListingRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ListingRecord, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "ListingRepository",
		"method":     "Get",
		"listing_id": id.String(),
	})

	query := `SELECT ` + listingColumns + ` FROM listings l WHERE l.id = $1 AND l.deleted_at IS NULL`
	row := r.pool.QueryRow(ctx, query, id)

	rec, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		logger.Error("Failed to read listing", err, nil)
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	return rec, nil
}

// FetchPage выбирает страницу под QuerySpec: предикат + keyset-курсор +
// упорядочивание, LIMIT = pageSize.
func (r *ListingRepository) FetchPage(ctx context.Context, spec domain.QuerySpec, cursor *domain.CursorPosition) ([]domain.ListingRecord, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "ListingRepository",
		"method":    "FetchPage",
	})

	whereClause, orderClause, args := applyFilters(spec, cursor)
	args = append(args, spec.PageSize)
	query := fmt.Sprintf(
		"SELECT %s FROM listings l %s %s LIMIT $%d",
		listingColumns, whereClause, orderClause, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to query listings page", err, port.Fields{"query": query})
		return nil, fmt.Errorf("failed to query listings page: %w", err)
	}
	defer rows.Close()

	page := make([]domain.ListingRecord, 0, spec.PageSize)
	for rows.Next() {
		rec, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		page = append(page, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listings page iteration failed: %w", err)
	}

	logger.Debug("Fetched listings page", port.Fields{"size": len(page)})
	return page, nil
}

// Insert - создание новой записи.
func (r *ListingRepository) Insert(ctx context.Context, rec domain.ListingRecord) error {
	collaborators, err := marshalCollaborators(rec.Collaborators)
	if err != nil {
		return err
	}

	query := `INSERT INTO listings
		(id, title, operation, property_type, price_amount, price_currency,
		 country, city, zone, address, lat, lng, image_ref, status,
		 created_at, owner_id, collaborators, location_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Title, string(rec.Operation), rec.PropertyType,
		rec.Price.Amount, rec.Price.Currency,
		rec.Location.Country, rec.Location.City, rec.Location.Zone, rec.Location.Address,
		rec.Location.Lat, rec.Location.Lng,
		rec.ImageRef, string(rec.Status), rec.CreatedAt, rec.Owner, collaborators,
		locationHash(rec),
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// Update - полная перезапись записи. created_at и owner_id тоже пишутся:
// координатор мутаций уже восстановил их из до-правочной записи, хранилище
// это соглашение не дублирует.
func (r *ListingRepository) Update(ctx context.Context, rec domain.ListingRecord) error {
	collaborators, err := marshalCollaborators(rec.Collaborators)
	if err != nil {
		return err
	}

	query := `UPDATE listings SET
		title = $2, operation = $3, property_type = $4,
		price_amount = $5, price_currency = $6,
		country = $7, city = $8, zone = $9, address = $10, lat = $11, lng = $12,
		image_ref = $13, status = $14, created_at = $15, owner_id = $16,
		collaborators = $17, location_hash = $18
		WHERE id = $1 AND deleted_at IS NULL`

	cmdTag, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Title, string(rec.Operation), rec.PropertyType,
		rec.Price.Amount, rec.Price.Currency,
		rec.Location.Country, rec.Location.City, rec.Location.Zone, rec.Location.Address,
		rec.Location.Lat, rec.Location.Lng,
		rec.ImageRef, string(rec.Status), rec.CreatedAt, rec.Owner, collaborators,
		locationHash(rec),
	)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

// SoftDelete помечает запись tombstone'ом. Идемпотентен: повторное
// удаление уже удаленной записи - ErrListingNotFound, вызывающий слой
// решает, считать ли это ошибкой.
func (r *ListingRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE listings SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	cmdTag, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

// scanTarget покрывает и pgx.Row, и pgx.Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

func scanListing(row scanTarget) (*domain.ListingRecord, error) {
	var (
		rec           domain.ListingRecord
		operation     string
		status        string
		collaborators []byte
	)
	err := row.Scan(
		&rec.ID, &rec.Title, &operation, &rec.PropertyType,
		&rec.Price.Amount, &rec.Price.Currency,
		&rec.Location.Country, &rec.Location.City, &rec.Location.Zone, &rec.Location.Address,
		&rec.Location.Lat, &rec.Location.Lng,
		&rec.ImageRef, &status, &rec.CreatedAt, &rec.Owner, &collaborators,
	)
	if err != nil {
		return nil, err
	}
	rec.Operation = domain.Operation(operation)
	rec.Status = domain.Status(status)
	if len(collaborators) > 0 {
		if err := json.Unmarshal(collaborators, &rec.Collaborators); err != nil {
			return nil, fmt.Errorf("failed to decode collaborators: %w", err)
		}
	}
	return &rec, nil
}

func marshalCollaborators(m map[uuid.UUID]domain.PermissionLevel) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collaborators: %w", err)
	}
	return data, nil
}
