package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"catalog-view-service/internal/contextkeys"
	"catalog-view-service/internal/core/domain"
	"catalog-view-service/internal/core/port"
	"catalog-view-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ListingHandler обслуживает мутации каталога. Чтений здесь нет: читают
// через view, мутируют через эти ручки, а результат мутации возвращается
// в view событием ленты.
type ListingHandler struct {
	publishUC usecases_port.PublishListingUseCasePort
	editUC    usecases_port.EditListingUseCasePort
	statusUC  usecases_port.ChangeStatusUseCasePort
	deleteUC  usecases_port.DeleteListingUseCasePort
	grantUC   usecases_port.GrantAccessUseCasePort
	revokeUC  usecases_port.RevokeAccessUseCasePort
}

// NewListingHandler - конструктор.
func NewListingHandler(
	publishUC usecases_port.PublishListingUseCasePort,
	editUC usecases_port.EditListingUseCasePort,
	statusUC usecases_port.ChangeStatusUseCasePort,
	deleteUC usecases_port.DeleteListingUseCasePort,
	grantUC usecases_port.GrantAccessUseCasePort,
	revokeUC usecases_port.RevokeAccessUseCasePort,
) *ListingHandler {
	return &ListingHandler{
		publishUC: publishUC,
		editUC:    editUC,
		statusUC:  statusUC,
		deleteUC:  deleteUC,
		grantUC:   grantUC,
		revokeUC:  revokeUC,
	}
}

// writeMutationError маппит доменные ошибки мутаций в HTTP-статусы.
func writeMutationError(w http.ResponseWriter, logger port.LoggerPort, err error) {
	var validationErr *domain.ValidationError
	var partialErr *domain.PartialShareError

	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		logger.Warn("Mutation rejected by store: permission denied", nil)
		WriteJSONError(w, http.StatusForbidden, "Permission denied")

	case errors.Is(err, domain.ErrListingNotFound):
		logger.Warn("Mutation failed: listing not found", nil)
		WriteJSONError(w, http.StatusNotFound, "Listing not found")

	case errors.As(err, &validationErr):
		logger.Warn("Mutation failed validation", port.Fields{"fields": validationErr.Fields})
		RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Fields: validationErr.Fields,
		})

	case errors.As(err, &partialErr):
		// Право в ACL уже изменено, денормализованная запись - нет.
		// Клиент должен знать, что операция прошла наполовину.
		logger.Error("Share mutation completed partially", err, nil)
		RespondWithJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "Access changed but listing record was not updated",
			Partial: true,
		})

	default:
		logger.Error("Mutation failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Mutation failed")
	}
}

func listingIDFromURL(w http.ResponseWriter, r *http.Request, logger port.LoggerPort) (uuid.UUID, bool) {
	listingID, err := uuid.Parse(chi.URLParam(r, "listingID"))
	if err != nil {
		logger.Warn("Invalid listing ID format in URL", port.Fields{"provided_id": chi.URLParam(r, "listingID")})
		WriteJSONError(w, http.StatusBadRequest, "Invalid listing ID in URL")
		return uuid.Nil, false
	}
	return listingID, true
}

// PublishListing обрабатывает POST /api/v1/listings
func (h *ListingHandler) PublishListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "PublishListing"})

	var req PublishListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode publish request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := identityFromContext(r.Context())
	logger.Info("Processing request to publish listing", nil)

	listingID, err := h.publishUC.Execute(r.Context(), identity, req.toForm())
	if err != nil {
		writeMutationError(w, logger, err)
		return
	}

	logger.Info("Listing published", port.Fields{"listing_id": listingID.String()})
	RespondWithJSON(w, http.StatusCreated, PublishListingResponse{ID: listingID.String()})
}

// EditListing обрабатывает PUT /api/v1/listings/{listingID}
func (h *ListingHandler) EditListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "EditListing"})

	listingID, ok := listingIDFromURL(w, r, logger)
	if !ok {
		return
	}

	var req PublishListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode edit request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	handlerLogger := logger.WithFields(port.Fields{"listing_id": listingID.String()})
	handlerLogger.Info("Processing request to edit listing", nil)

	if err := h.editUC.Execute(r.Context(), identityFromContext(r.Context()), listingID, req.toForm()); err != nil {
		writeMutationError(w, handlerLogger, err)
		return
	}

	handlerLogger.Info("Listing edit accepted", nil)
	w.WriteHeader(http.StatusNoContent)
}

// ChangeStatus обрабатывает PATCH /api/v1/listings/{listingID}/status
func (h *ListingHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ChangeStatus"})

	listingID, ok := listingIDFromURL(w, r, logger)
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode change status request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	handlerLogger := logger.WithFields(port.Fields{
		"listing_id": listingID.String(),
		"new_status": req.Status,
	})
	handlerLogger.Info("Processing request to change listing status", nil)

	if err := h.statusUC.Execute(r.Context(), identityFromContext(r.Context()), listingID, domain.Status(req.Status)); err != nil {
		writeMutationError(w, handlerLogger, err)
		return
	}

	handlerLogger.Info("Status change accepted", nil)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteListing обрабатывает DELETE /api/v1/listings/{listingID}
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "DeleteListing"})

	listingID, ok := listingIDFromURL(w, r, logger)
	if !ok {
		return
	}

	handlerLogger := logger.WithFields(port.Fields{"listing_id": listingID.String()})
	handlerLogger.Info("Processing request to delete listing", nil)

	if err := h.deleteUC.Execute(r.Context(), identityFromContext(r.Context()), listingID); err != nil {
		writeMutationError(w, handlerLogger, err)
		return
	}

	handlerLogger.Info("Listing delete accepted", nil)
	w.WriteHeader(http.StatusNoContent)
}

// GrantAccess обрабатывает POST /api/v1/listings/{listingID}/collaborators
func (h *ListingHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GrantAccess"})

	listingID, ok := listingIDFromURL(w, r, logger)
	if !ok {
		return
	}

	var req GrantAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode grant access request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	grantee, err := uuid.Parse(req.UserID)
	if err != nil {
		logger.Warn("Invalid user_id format in request", port.Fields{"provided_id": req.UserID})
		WriteJSONError(w, http.StatusBadRequest, "Invalid user_id format")
		return
	}

	handlerLogger := logger.WithFields(port.Fields{
		"listing_id": listingID.String(),
		"grantee":    grantee.String(),
		"level":      req.Level,
	})
	handlerLogger.Info("Processing request to grant access", nil)

	if err := h.grantUC.Execute(r.Context(), identityFromContext(r.Context()), listingID, grantee, domain.PermissionLevel(req.Level)); err != nil {
		writeMutationError(w, handlerLogger, err)
		return
	}

	handlerLogger.Info("Access granted", nil)
	w.WriteHeader(http.StatusNoContent)
}

// RevokeAccess обрабатывает DELETE /api/v1/listings/{listingID}/collaborators/{userID}
func (h *ListingHandler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "RevokeAccess"})

	listingID, ok := listingIDFromURL(w, r, logger)
	if !ok {
		return
	}

	grantee, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		logger.Warn("Invalid userID in URL", port.Fields{"provided_id": chi.URLParam(r, "userID")})
		WriteJSONError(w, http.StatusBadRequest, "Invalid userID in URL")
		return
	}

	handlerLogger := logger.WithFields(port.Fields{
		"listing_id": listingID.String(),
		"grantee":    grantee.String(),
	})
	handlerLogger.Info("Processing request to revoke access", nil)

	if err := h.revokeUC.Execute(r.Context(), identityFromContext(r.Context()), listingID, grantee); err != nil {
		writeMutationError(w, handlerLogger, err)
		return
	}

	handlerLogger.Info("Access revoked", nil)
	w.WriteHeader(http.StatusNoContent)
}
