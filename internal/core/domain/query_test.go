package domain

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestBuildQuerySpecDefaults(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 0)
	assert.Equal(t, OrderByCreatedAt, spec.OrderBy)
	assert.Equal(t, OrderDesc, spec.Direction)
	assert.Equal(t, DefaultPageSize, spec.PageSize)
}

func TestBuildQuerySpecNormalization(t *testing.T) {
	badOp := Operation("barter")
	emptyType := ""
	blankCity := "   "
	spec := BuildQuerySpec(Filters{
		Operation:    &badOp,
		PropertyType: &emptyType,
		City:         &blankCity,
	}, 10)

	// Мусорные значения отбрасываются, а не превращаются в предикат,
	// который не совпадет ни с чем.
	assert.Equal(t, (*Operation)(nil), spec.Filters.Operation)
	assert.Equal(t, (*string)(nil), spec.Filters.PropertyType)
	assert.Equal(t, (*string)(nil), spec.Filters.City)

	city := "  Minsk "
	spec = BuildQuerySpec(Filters{City: &city}, 10)
	assert.Equal(t, "Minsk", *spec.Filters.City)
}

func TestQuerySpecMatches(t *testing.T) {
	op := OperationRent
	city := "minsk"
	priceMin := 150.0
	priceMax := 350.0
	spec := BuildQuerySpec(Filters{
		Operation: &op,
		City:      &city,
		PriceMin:  &priceMin,
		PriceMax:  &priceMax,
	}, 10)

	rec := testRec(1, 200)
	rec.Operation = OperationRent
	assert.Equal(t, true, spec.Matches(rec))

	sale := rec
	sale.Operation = OperationSale
	assert.Equal(t, false, spec.Matches(sale))

	cheap := rec
	cheap.Price.Amount = 100
	assert.Equal(t, false, spec.Matches(cheap))

	expensive := rec
	expensive.Price.Amount = 400
	assert.Equal(t, false, spec.Matches(expensive))

	elsewhere := rec
	elsewhere.Location.City = "Brest"
	assert.Equal(t, false, spec.Matches(elsewhere))
}

func TestQuerySpecBefore(t *testing.T) {
	spec := BuildQuerySpec(Filters{}, 10)

	newer, older := testRec(1, 100), testRec(2, 200)
	// created_at DESC: свежее раньше.
	assert.Equal(t, true, spec.Before(newer, older))
	assert.Equal(t, false, spec.Before(older, newer))

	// Одинаковый ключ сортировки - тотальный порядок дает тай-брейк по ID.
	twinA, twinB := testRec(3, 100), testRec(3, 100)
	assert.Equal(t, spec.Before(twinA, twinB), !spec.Before(twinB, twinA))

	priceSpec := QuerySpec{OrderBy: OrderByPrice, Direction: OrderAsc, PageSize: 10}
	assert.Equal(t, true, priceSpec.Before(newer, older))
	assert.Equal(t, false, priceSpec.Before(older, newer))
}

func TestListingFormOverlayImmutableFields(t *testing.T) {
	base := testRec(1, 100)

	title := "New title"
	price := Price{Amount: 500, Currency: "EUR"}
	out := ListingForm{Title: &title, Price: &price}.Overlay(base)

	assert.Equal(t, "New title", out.Title)
	assert.Equal(t, 500.0, out.Price.Amount)
	// Непереданные поля сохраняются.
	assert.Equal(t, base.Operation, out.Operation)
	// Неизменяемые поля недостижимы для формы по построению.
	assert.Equal(t, base.ID, out.ID)
	assert.Equal(t, base.Owner, out.Owner)
	assert.Equal(t, base.CreatedAt, out.CreatedAt)
	// Приемник не мутируется.
	assert.Equal(t, "Test listing", base.Title)
}
