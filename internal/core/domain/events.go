package domain

import "github.com/google/uuid"

// ChangeAction - тип изменения, о котором сообщает хранилище.
type ChangeAction string

const (
	// ActionInitial - запись из первоначально материализованной страницы.
	ActionInitial ChangeAction = "initial"
	// ActionAdded - новая запись, появившаяся после открытия подписки.
	ActionAdded ChangeAction = "added"
	// ActionUpdated - изменение существующей записи.
	ActionUpdated ChangeAction = "updated"
	// ActionRemoved - удаление. Жесткое удаление и логический tombstone
	// хранилище сворачивает в одно и то же действие, ядро их не различает.
	ActionRemoved ChangeAction = "removed"
)

func (a ChangeAction) IsValid() bool {
	switch a {
	case ActionInitial, ActionAdded, ActionUpdated, ActionRemoved:
		return true
	}
	return false
}

// ChangeEvent - одно уведомление об изменении реплицированного набора.
// Value отсутствует (nil) только для ActionRemoved.
//
// Гарантия упорядоченности действует только в пределах одного ID внутри
// одной подписки. Между разными ID никакого порядка нет, и алгоритм
// реконсиляции его не требует.
type ChangeEvent struct {
	ID     uuid.UUID      `json:"id"`
	Action ChangeAction   `json:"action"`
	Value  *ListingRecord `json:"value,omitempty"`
}
