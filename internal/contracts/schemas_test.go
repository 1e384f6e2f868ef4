package contracts

import (
	"errors"
	"fmt"
	"testing"

	"catalog-view-service/internal/core/domain"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
)

func formField(s string) *string { return &s }

func fullForm() domain.ListingForm {
	op := domain.OperationRent
	return domain.ListingForm{
		Title:        formField("Studio near the center"),
		Operation:    &op,
		PropertyType: formField("apartment"),
		Price:        &domain.Price{Amount: 450, Currency: "USD"},
		Location:     &domain.Location{Country: "BY", City: "Minsk"},
	}
}

func TestValidateFormCreate(t *testing.T) {
	v := NewSchemaValidator()
	assert.Equal(t, nil, v.ValidateForm(fullForm(), false))
}

func TestValidateFormCreateMissingRequired(t *testing.T) {
	v := NewSchemaValidator()
	form := fullForm()
	form.Title = nil
	form.Price = nil

	err := v.ValidateForm(form, false)

	var validationErr *domain.ValidationError
	assert.Equal(t, true, errors.As(err, &validationErr))
}

func TestValidateFormEditAllowsPartial(t *testing.T) {
	v := NewSchemaValidator()
	// При редактировании отсутствующие поля означают "оставить как есть".
	assert.Equal(t, nil, v.ValidateForm(domain.ListingForm{}, true))
	assert.Equal(t, nil, v.ValidateForm(domain.ListingForm{Title: formField("New title")}, true))
}

func TestValidateFormEditRejectsBadValues(t *testing.T) {
	v := NewSchemaValidator()
	form := domain.ListingForm{Price: &domain.Price{Amount: -10, Currency: "usd"}}

	err := v.ValidateForm(form, true)

	var validationErr *domain.ValidationError
	assert.Equal(t, true, errors.As(err, &validationErr))
	_, hasAmount := validationErr.Fields["price.amount"]
	assert.Equal(t, true, hasAmount)
}

func changeEventJSON(action string, withValue bool) []byte {
	value := ""
	if withValue {
		value = fmt.Sprintf(`, "value": {
			"id": %q,
			"title": "Studio",
			"operation": "rent",
			"property_type": "apartment",
			"price": {"amount": 450, "currency": "USD"},
			"location": {"country": "BY", "city": "Minsk"},
			"status": "available",
			"created_at": "2026-05-01T10:00:00Z",
			"owner": %q
		}`, uuid.New().String(), uuid.New().String())
	}
	return []byte(fmt.Sprintf(`{"id": %q, "action": %q%s}`, uuid.New().String(), action, value))
}

func TestValidateChangeEvent(t *testing.T) {
	v := NewSchemaValidator()

	assert.Equal(t, nil, v.ValidateChangeEvent(changeEventJSON("added", true)))
	assert.Equal(t, nil, v.ValidateChangeEvent(changeEventJSON("updated", true)))
	// removed - единственное действие без значения.
	assert.Equal(t, nil, v.ValidateChangeEvent(changeEventJSON("removed", false)))
}

func TestValidateChangeEventRejectsMalformed(t *testing.T) {
	v := NewSchemaValidator()

	// added без значения применить невозможно.
	assert.NotEqual(t, nil, v.ValidateChangeEvent(changeEventJSON("added", false)))
	// removed со значением - признак рассинхронизированного продюсера.
	assert.NotEqual(t, nil, v.ValidateChangeEvent(changeEventJSON("removed", true)))
	assert.NotEqual(t, nil, v.ValidateChangeEvent(changeEventJSON("archived", true)))
	assert.NotEqual(t, nil, v.ValidateChangeEvent([]byte("not json")))
	assert.NotEqual(t, nil, v.ValidateChangeEvent([]byte(`{"action": "added"}`)))
}
