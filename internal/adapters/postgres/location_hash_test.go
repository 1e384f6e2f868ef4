package postgres_adapter

import (
	"strings"
	"testing"
	"time"

	"catalog-view-service/internal/core/domain"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
)

func floatField(v float64) *float64 { return &v }

func hashRec(city string, lat, lng *float64) domain.ListingRecord {
	return domain.ListingRecord{
		ID:           uuid.New(),
		Title:        "Listing",
		Operation:    domain.OperationSale,
		PropertyType: "apartment",
		Price:        domain.Price{Amount: 75000, Currency: "USD"},
		Location: domain.Location{
			Country: "BY",
			City:    city,
			Lat:     lat,
			Lng:     lng,
		},
		Status:    domain.StatusAvailable,
		CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Owner:     uuid.New(),
	}
}

func TestLocationHashIgnoresNonLocationFields(t *testing.T) {
	first := hashRec("Minsk", floatField(53.9), floatField(27.5667))
	second := hashRec("Minsk", floatField(53.9), floatField(27.5667))
	second.Title = "Completely different title"
	second.Price.Amount = 1
	second.Status = domain.StatusSold

	// Разные объявления об одном и том же физическом объекте дают один хэш.
	assert.Equal(t, locationHash(first), locationHash(second))
}

func TestLocationHashDistinguishesObjects(t *testing.T) {
	minsk := hashRec("Minsk", floatField(53.9), floatField(27.5667))
	brest := hashRec("Brest", floatField(52.0976), floatField(23.7341))
	assert.NotEqual(t, locationHash(minsk), locationHash(brest))

	house := hashRec("Minsk", floatField(53.9), floatField(27.5667))
	house.PropertyType = "house"
	assert.NotEqual(t, locationHash(minsk), locationHash(house))

	rent := hashRec("Minsk", floatField(53.9), floatField(27.5667))
	rent.Operation = domain.OperationRent
	assert.NotEqual(t, locationHash(minsk), locationHash(rent))
}

func TestLocationHashNormalizesStrings(t *testing.T) {
	plain := hashRec("Minsk", nil, nil)
	noisy := hashRec("  MINSK ", nil, nil)
	assert.Equal(t, locationHash(plain), locationHash(noisy))
}

func TestLocationHashWithoutCoordinates(t *testing.T) {
	rec := hashRec("Minsk", nil, nil)

	payload := buildLocationPayload(rec)
	assert.Equal(t, true, strings.HasPrefix(payload, "null|"))

	// Хэш детерминирован и по формату пригоден для TEXT-колонки.
	hash := locationHash(rec)
	assert.Equal(t, 64, len(hash))
	assert.Equal(t, hash, locationHash(rec))
}

func TestLocationHashGeohashPrecision(t *testing.T) {
	rec := hashRec("Minsk", floatField(53.9), floatField(27.5667))

	payload := buildLocationPayload(rec)
	cell := strings.SplitN(payload, "|", 2)[0]
	// В payload уходит огрубленная ячейка, а не точная точка.
	assert.Equal(t, geohashPrecision, len(cell))
	assert.NotEqual(t, "null", cell)
}
