package postgres_adapter

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"catalog-view-service/internal/core/domain"

	"github.com/mmcloughlin/geohash"
)

const geohashPrecision = 5

// buildLocationPayload создает стабильную строку из географии и ключевых
// полей записи. Геохэш огрубляется до 5 символов (ячейка порядка 5 км):
// повторная публикация того же объекта с чуть сдвинутой точкой на карте
// попадает в ту же ячейку и дает тот же payload.
func buildLocationPayload(rec domain.ListingRecord) string {
	parts := make([]string, 0, 6)

	if rec.Location.Lat != nil && rec.Location.Lng != nil {
		geohsh := geohash.Encode(*rec.Location.Lat, *rec.Location.Lng)
		parts = append(parts, geohsh[:geohashPrecision])
	} else {
		parts = append(parts, "null")
	}

	// Нормализуем строки: нижний регистр и убираем лишние пробелы
	addString := func(val string) {
		if val != "" {
			parts = append(parts, strings.ToLower(strings.TrimSpace(val)))
		} else {
			parts = append(parts, "null")
		}
	}
	addString(rec.Location.Country)
	addString(rec.Location.City)
	addString(rec.Location.Zone)
	addString(rec.PropertyType)
	parts = append(parts, string(rec.Operation))

	return strings.Join(parts, "|")
}

// locationHash вычисляет SHA256 хэш географического payload'а записи.
// Хэш пишется в колонку location_hash при каждой вставке и перезаписи:
// по нему ищутся повторные публикации одного и того же физического
// объекта без сравнения всех полей записи.
func locationHash(rec domain.ListingRecord) string {
	h := sha256.New()
	h.Write([]byte(buildLocationPayload(rec)))
	return fmt.Sprintf("%x", h.Sum(nil))
}
