package postgres_adapter

import (
	"fmt"
	"strings"

	"catalog-view-service/internal/core/domain"
)

type queryBuilder struct {
	conditions []string
	args       []interface{}
	argId      int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{
		argId:      1,
		conditions: []string{"l.deleted_at IS NULL"},
		args:       make([]interface{}, 0),
	}
}

func (qb *queryBuilder) addCondition(condition string, fieldName string, arg interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(condition, fieldName, qb.argId))
	qb.args = append(qb.args, arg)
	qb.argId++
}

func (qb *queryBuilder) build() (string, []interface{}) {
	return "WHERE " + strings.Join(qb.conditions, " AND "), qb.args
}

// orderingColumn - колонка под активное поле сортировки.
func orderingColumn(spec domain.QuerySpec) string {
	if spec.OrderBy == domain.OrderByPrice {
		return "l.price_amount"
	}
	return "l.created_at"
}

// applyFilters разбирает предикат QuerySpec в список условий. Отсутствующий
// фильтр не добавляет условия вовсе - никаких "match everything"-заглушек.
func applyFilters(spec domain.QuerySpec, cursor *domain.CursorPosition) (string, string, []interface{}) {
	qb := newQueryBuilder()
	f := spec.Filters

	if f.Operation != nil {
		qb.addCondition("%s = $%d", "l.operation", string(*f.Operation))
	}
	if f.PropertyType != nil {
		qb.addCondition("%s = $%d", "l.property_type", *f.PropertyType)
	}
	// Город - регистронезависимый поиск подстроки.
	if f.City != nil {
		qb.addCondition("%s ILIKE $%d", "l.city", "%"+*f.City+"%")
	}
	if f.PriceMin != nil {
		qb.addCondition("%s >= $%d", "l.price_amount", *f.PriceMin)
	}
	if f.PriceMax != nil {
		qb.addCondition("%s <= $%d", "l.price_amount", *f.PriceMax)
	}

	// Keyset-пагинация: строго "старее" позиции курсора под активным
	// упорядочиванием, с ID как тай-брейком. Запись на границе или новее
	// нее повторно не выбирается.
	if cursor != nil {
		op := "<"
		if spec.Direction == domain.OrderAsc {
			op = ">"
		}
		var key interface{} = cursor.CreatedAt
		if spec.OrderBy == domain.OrderByPrice {
			key = cursor.Price
		}
		qb.conditions = append(qb.conditions, fmt.Sprintf(
			"(%s, l.id) %s ($%d, $%d)", orderingColumn(spec), op, qb.argId, qb.argId+1,
		))
		qb.args = append(qb.args, key, cursor.ID)
		qb.argId += 2
	}

	direction := "DESC"
	if spec.Direction == domain.OrderAsc {
		direction = "ASC"
	}
	orderClause := fmt.Sprintf("ORDER BY %s %s, l.id %s", orderingColumn(spec), direction, direction)

	whereClause, args := qb.build()
	return whereClause, orderClause, args
}
