package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Определяем переменные-ошибки, которые могут быть возвращены из Use Cases.
var (
	// ErrPermissionDenied - хранилище отклонило запись, хотя локальная
	// проверка способностей ее пропустила. Нормальный, ожидаемый путь
	// (локальный снимок коллабораторов мог устареть), не повторяется
	// автоматически.
	ErrPermissionDenied = errors.New("permission denied by store")

	// ErrListingNotFound - запись исчезла между чтением и операцией
	// (конкурентное удаление). Операция не повторяется.
	ErrListingNotFound = errors.New("listing not found")

	// ErrSubscriptionClosed - живой поток событий оборван со стороны
	// хранилища. View обязан показать деградированное состояние.
	ErrSubscriptionClosed = errors.New("subscription closed by store")

	// ErrViewNotFound - обращение к несуществующей/закрытой view-сессии.
	ErrViewNotFound = errors.New("view session not found")

	// ErrViewClosed - операция над уже закрытой сессией.
	ErrViewClosed = errors.New("view session is closed")
)

// PartialShareError - шаг (a) двухфазного гранта прошел, шаг (b)
// (денормализация карты коллабораторов в запись) - нет. Грант в ACL
// хранилища при этом долговечен, так что ошибку нужно отличать от
// PermissionDenied: повтор только шага (b) безопасен и идемпотентен.
type PartialShareError struct {
	Err error // причина провала шага (b)
}

func (e *PartialShareError) Error() string {
	return fmt.Sprintf("grant accepted by store, but collaborator denormalization failed: %v", e.Err)
}

func (e *PartialShareError) Unwrap() error {
	return e.Err
}

// ValidationError - ошибки валидации формы по полям. Отлавливается до
// отправки в хранилище и никогда туда не уходит.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
