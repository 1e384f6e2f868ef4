package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status - статус объявления. Всегда одно из трех значений.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusSold      Status = "sold"
)

// IsValid проверяет, что статус входит в перечисление.
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold:
		return true
	}
	return false
}

// Operation - тип сделки.
type Operation string

const (
	OperationRent Operation = "rent"
	OperationSale Operation = "sale"
)

func (o Operation) IsValid() bool {
	return o == OperationRent || o == OperationSale
}

// PermissionLevel - уровень доступа в карте коллабораторов и в ACL хранилища.
// На практике в карту записываются только write-уровни, но тип общий.
type PermissionLevel string

const (
	PermissionRead  PermissionLevel = "read"
	PermissionWrite PermissionLevel = "write"
)

func (p PermissionLevel) IsValid() bool {
	return p == PermissionRead || p == PermissionWrite
}

// Price - цена с кодом валюты (ISO 4217).
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Location - адрес объекта. Координаты опциональны.
type Location struct {
	Country string   `json:"country"`
	City    string   `json:"city"`
	Zone    string   `json:"zone,omitempty"`
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// ListingRecord - запись каталога, какой ее отдает внешнее хранилище.
//
// Два поля неизменяемы после первой записи: CreatedAt и Owner.
// Неизменяемость обеспечивается централизованно в use case редактирования,
// а не соглашением на каждом месте вызова.
type ListingRecord struct {
	ID            uuid.UUID                     `json:"id"`
	Title         string                        `json:"title"`
	Operation     Operation                     `json:"operation"`
	PropertyType  string                        `json:"property_type"`
	Price         Price                         `json:"price"`
	Location      Location                      `json:"location"`
	ImageRef      string                        `json:"image_ref,omitempty"`
	Status        Status                        `json:"status"`
	CreatedAt     time.Time                     `json:"created_at"`
	Owner         uuid.UUID                     `json:"owner"`
	Collaborators map[uuid.UUID]PermissionLevel `json:"collaborators,omitempty"`
}

// Clone возвращает глубокую копию записи. Карта коллабораторов копируется,
// чтобы view-model и use cases не делили один и тот же map.
func (r ListingRecord) Clone() ListingRecord {
	out := r
	if r.Collaborators != nil {
		out.Collaborators = make(map[uuid.UUID]PermissionLevel, len(r.Collaborators))
		for k, v := range r.Collaborators {
			out.Collaborators[k] = v
		}
	}
	return out
}

// ListingForm - поля формы публикации/редактирования. Все указатели:
// nil означает "поле не передано" (при редактировании сохраняется старое
// значение).
type ListingForm struct {
	Title        *string    `json:"title,omitempty"`
	Operation    *Operation `json:"operation,omitempty"`
	PropertyType *string    `json:"property_type,omitempty"`
	Price        *Price     `json:"price,omitempty"`
	Location     *Location  `json:"location,omitempty"`
	ImageRef     *string    `json:"image_ref,omitempty"`
	Status       *Status    `json:"status,omitempty"`
}

// Overlay накладывает переданные поля формы поверх записи и возвращает
// результат. Запись-приемник не модифицируется.
//
// CreatedAt и Owner эта функция не трогает в принципе - у формы просто нет
// таких полей, так что подделать их через этот путь нельзя.
func (f ListingForm) Overlay(base ListingRecord) ListingRecord {
	out := base.Clone()
	if f.Title != nil {
		out.Title = *f.Title
	}
	if f.Operation != nil {
		out.Operation = *f.Operation
	}
	if f.PropertyType != nil {
		out.PropertyType = *f.PropertyType
	}
	if f.Price != nil {
		out.Price = *f.Price
	}
	if f.Location != nil {
		out.Location = *f.Location
	}
	if f.ImageRef != nil {
		out.ImageRef = *f.ImageRef
	}
	if f.Status != nil {
		out.Status = *f.Status
	}
	return out
}
