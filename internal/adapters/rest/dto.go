package rest

import (
	"time"

	"catalog-view-service/internal/core/domain"
)

// FiltersDTO - фильтры запроса. Все поля опциональны: nil означает
// "не фильтровать по этому признаку".
type FiltersDTO struct {
	Operation    *string  `json:"operation,omitempty"`
	PropertyType *string  `json:"property_type,omitempty"`
	City         *string  `json:"city,omitempty"`
	PriceMin     *float64 `json:"price_min,omitempty"`
	PriceMax     *float64 `json:"price_max,omitempty"`
}

func (f FiltersDTO) toDomain() domain.Filters {
	out := domain.Filters{
		City:     f.City,
		PriceMin: f.PriceMin,
		PriceMax: f.PriceMax,
	}
	if f.Operation != nil {
		op := domain.Operation(*f.Operation)
		out.Operation = &op
	}
	if f.PropertyType != nil {
		out.PropertyType = f.PropertyType
	}
	return out
}

// CreateViewRequest - тело запроса на открытие живой view.
type CreateViewRequest struct {
	Filters  FiltersDTO `json:"filters"`
	PageSize int        `json:"page_size,omitempty"`
}

// UpdateFiltersRequest - тело запроса на смену фильтров открытой view.
type UpdateFiltersRequest struct {
	Filters FiltersDTO `json:"filters"`
}

// ViewEntryResponse - одна карточка аннотированного списка.
type ViewEntryResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Operation    string          `json:"operation"`
	PropertyType string          `json:"property_type"`
	Price        domain.Price    `json:"price"`
	Location     domain.Location `json:"location"`
	ImageRef     string          `json:"image_ref,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	Owner        string          `json:"owner"`
	Capability   string          `json:"capability"`
}

func toViewEntryResponse(entry domain.ViewEntry) ViewEntryResponse {
	return ViewEntryResponse{
		ID:           entry.Record.ID.String(),
		Title:        entry.Record.Title,
		Operation:    string(entry.Record.Operation),
		PropertyType: entry.Record.PropertyType,
		Price:        entry.Record.Price,
		Location:     entry.Record.Location,
		ImageRef:     entry.Record.ImageRef,
		Status:       string(entry.Record.Status),
		CreatedAt:    entry.Record.CreatedAt,
		Owner:        entry.Record.Owner.String(),
		Capability:   string(entry.Capability),
	}
}

func toViewEntryResponses(entries []domain.ViewEntry) []ViewEntryResponse {
	out := make([]ViewEntryResponse, len(entries))
	for i, entry := range entries {
		out[i] = toViewEntryResponse(entry)
	}
	return out
}

// ViewSnapshotResponse - текущее состояние view: упорядоченный список,
// признак исчерпанности набора и признак деградации живого потока.
type ViewSnapshotResponse struct {
	ViewID    string              `json:"view_id"`
	Data      []ViewEntryResponse `json:"data"`
	Exhausted bool                `json:"exhausted"`
	Degraded  bool                `json:"degraded"`
}

// PublishListingRequest - форма публикации нового объявления.
type PublishListingRequest struct {
	Title        *string          `json:"title,omitempty"`
	Operation    *string          `json:"operation,omitempty"`
	PropertyType *string          `json:"property_type,omitempty"`
	Price        *domain.Price    `json:"price,omitempty"`
	Location     *domain.Location `json:"location,omitempty"`
	ImageRef     *string          `json:"image_ref,omitempty"`
}

func (r PublishListingRequest) toForm() domain.ListingForm {
	form := domain.ListingForm{
		Title:        r.Title,
		PropertyType: r.PropertyType,
		Price:        r.Price,
		Location:     r.Location,
		ImageRef:     r.ImageRef,
	}
	if r.Operation != nil {
		op := domain.Operation(*r.Operation)
		form.Operation = &op
	}
	return form
}

// PublishListingResponse - идентификатор созданного объявления.
type PublishListingResponse struct {
	ID string `json:"id"`
}

// ChangeStatusRequest - тело запроса на смену статуса.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// GrantAccessRequest - тело запроса на выдачу доступа коллаборатору.
type GrantAccessRequest struct {
	UserID string `json:"user_id"`
	Level  string `json:"level"`
}

// ErrorResponse - стандартная структура для ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
	// Partial выставляется, когда мутация завершилась частично: право в
	// авторитетном ACL уже выдано/отозвано, а денормализованная запись не
	// обновилась.
	Partial bool `json:"partial,omitempty"`
	// Fields - пофакторная расшифровка ошибок валидации формы.
	Fields map[string]string `json:"fields,omitempty"`
}
