package domain

import (
	"time"

	"github.com/google/uuid"
)

// CursorPosition - ключ последней записи предыдущей страницы под активным
// упорядочиванием. Для потребителя позиция непрозрачна; внутри несет ключи
// обоих поддерживаемых полей сортировки плюс ID как тай-брейк.
type CursorPosition struct {
	CreatedAt time.Time `json:"created_at"`
	Price     float64   `json:"price"`
	ID        uuid.UUID `json:"id"`
}

// Cursor отслеживает границу уже загруженного окна и монотонно двигает ее
// "в старое" при каждом load-more. Привязан к одному QuerySpec: смена
// фильтров обязана сбросить курсор (Reset), частичное применение новых
// фильтров к старому курсору - ошибка по определению.
type Cursor struct {
	position  *CursorPosition
	pageSize  int
	exhausted bool
}

func NewCursor(pageSize int) *Cursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Cursor{pageSize: pageSize}
}

// Position возвращает текущую границу, nil - если еще не загружено ни одной
// полной страницы.
func (c *Cursor) Position() *CursorPosition {
	return c.position
}

func (c *Cursor) PageSize() int {
	return c.pageSize
}

// Exhausted - хранилищу больше нечего отдавать; потребитель гасит
// кнопку "load more".
func (c *Cursor) Exhausted() bool {
	return c.exhausted
}

// Reset обнуляет позицию. Используется при смене фильтров.
func (c *Cursor) Reset() {
	c.position = nil
	c.exhausted = false
}

// Advance двигает границу на ключ последней записи страницы. Если страница
// пришла короче pageSize - набор исчерпан, позиция не двигается (больше
// нечего дозапрашивать, и записи на границе или новее нее не должны быть
// запрошены повторно).
func (c *Cursor) Advance(page []ListingRecord) {
	if len(page) < c.pageSize {
		c.exhausted = true
		return
	}
	last := page[len(page)-1]
	c.position = &CursorPosition{
		CreatedAt: last.CreatedAt,
		Price:     last.Price.Amount,
		ID:        last.ID,
	}
}
