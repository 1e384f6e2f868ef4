package domain

import "github.com/google/uuid"

// Capability - локально выведенный, сугубо рекомендательный уровень доступа
// текущей identity к записи. Используется рендерером, чтобы решать, какие
// действия показывать. Авторитетом НЕ является: запись может быть отклонена
// хранилищем даже если здесь вышло write (устаревший снимок коллабораторов -
// штатная ситуация, см. ErrPermissionDenied).
type Capability string

const (
	CapabilityNone              Capability = "none"
	CapabilityRead              Capability = "read"
	CapabilityWriteCollaborator Capability = "write-collaborator"
	CapabilityWriteOwner        Capability = "write-owner"
)

// CanWrite - удобство для потребителей: оба write-уровня.
func (c Capability) CanWrite() bool {
	return c == CapabilityWriteOwner || c == CapabilityWriteCollaborator
}

// ResolveCapability - чистая функция (identity, owner, collaborators) -> capability.
// identity == nil означает неаутентифицированного пользователя.
func ResolveCapability(identity *uuid.UUID, rec ListingRecord) Capability {
	if identity == nil {
		return CapabilityNone
	}
	if *identity == rec.Owner {
		return CapabilityWriteOwner
	}
	if level, ok := rec.Collaborators[*identity]; ok && level == PermissionWrite {
		return CapabilityWriteCollaborator
	}
	return CapabilityRead
}

// ViewEntry - один элемент аннотированной view-model: запись плюс
// capability, вычисленная для identity владельца сессии.
type ViewEntry struct {
	Record     ListingRecord `json:"record"`
	Capability Capability    `json:"capability"`
}
