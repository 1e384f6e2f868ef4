package domain

import "strings"

// OrderingField - поле, по которому упорядочена view-model.
type OrderingField string

const (
	OrderByCreatedAt OrderingField = "created_at"
	OrderByPrice     OrderingField = "price"
)

// OrderingDirection - направление сортировки.
type OrderingDirection string

const (
	OrderDesc OrderingDirection = "desc"
	OrderAsc  OrderingDirection = "asc"
)

const DefaultPageSize = 20

// Filters - сырые поля фильтра из UI. Все опциональны; отсутствующий фильтр
// просто не попадает в предикат (никаких "match everything"-заглушек,
// которые ломали бы индексацию на стороне хранилища).
type Filters struct {
	Operation    *Operation
	PropertyType *string
	// City - регистронезависимый поиск подстроки.
	City     *string
	PriceMin *float64
	PriceMax *float64
}

// QuerySpec - канонический предикат + дескриптор упорядочивания. Создается
// через BuildQuerySpec и дальше не мутирует: смена фильтров означает новый
// QuerySpec, сброс курсора и переоткрытие подписки.
type QuerySpec struct {
	Filters   Filters
	OrderBy   OrderingField
	Direction OrderingDirection
	PageSize  int
}

// BuildQuerySpec нормализует сырые фильтры в QuerySpec. Пустые строки и
// нулевые указатели отбрасываются; упорядочивание по умолчанию -
// created_at DESC (новые сверху).
func BuildQuerySpec(f Filters, pageSize int) QuerySpec {
	spec := QuerySpec{
		OrderBy:   OrderByCreatedAt,
		Direction: OrderDesc,
		PageSize:  pageSize,
	}
	if spec.PageSize <= 0 {
		spec.PageSize = DefaultPageSize
	}

	if f.Operation != nil && f.Operation.IsValid() {
		spec.Filters.Operation = f.Operation
	}
	if f.PropertyType != nil && *f.PropertyType != "" {
		spec.Filters.PropertyType = f.PropertyType
	}
	if f.City != nil && strings.TrimSpace(*f.City) != "" {
		city := strings.TrimSpace(*f.City)
		spec.Filters.City = &city
	}
	spec.Filters.PriceMin = f.PriceMin
	spec.Filters.PriceMax = f.PriceMax

	return spec
}

// Matches локально вычисляет предикат для записи. Нужен живой ленте
// (фильтрация событий added) и движку реконсиляции (правило "updated,
// которого нет в view, но теперь подходит под предикат - считать added").
func (s QuerySpec) Matches(rec ListingRecord) bool {
	f := s.Filters
	if f.Operation != nil && rec.Operation != *f.Operation {
		return false
	}
	if f.PropertyType != nil && rec.PropertyType != *f.PropertyType {
		return false
	}
	if f.City != nil && !strings.Contains(strings.ToLower(rec.Location.City), strings.ToLower(*f.City)) {
		return false
	}
	if f.PriceMin != nil && rec.Price.Amount < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && rec.Price.Amount > *f.PriceMax {
		return false
	}
	return true
}

// Before сообщает, стоит ли запись a раньше записи b в порядке этого
// QuerySpec. Тай-брейк - по ID, чтобы порядок был тотальным и курсорная
// пагинация не теряла записи с одинаковым ключом сортировки.
func (s QuerySpec) Before(a, b ListingRecord) bool {
	var cmp int
	switch s.OrderBy {
	case OrderByPrice:
		switch {
		case a.Price.Amount < b.Price.Amount:
			cmp = -1
		case a.Price.Amount > b.Price.Amount:
			cmp = 1
		}
	default: // OrderByCreatedAt
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			cmp = -1
		case a.CreatedAt.After(b.CreatedAt):
			cmp = 1
		}
	}
	if cmp == 0 {
		cmp = strings.Compare(a.ID.String(), b.ID.String())
	}
	if s.Direction == OrderAsc {
		return cmp < 0
	}
	return cmp > 0
}
