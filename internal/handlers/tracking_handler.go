package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shelterfund/backend/internal/services"
)

type TrackingHandler struct {
	service   *services.TrackingService
	validator *services.ValidationHelper
}

func NewTrackingHandler(service *services.TrackingService) *TrackingHandler {
	return &TrackingHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GenerateCode mints a shareable tracking code for one of the caller's applications
// @Summary Generate tracking code
// @Description Generate a tracking code and QR image for a submitted application
// @Tags tracking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{applicationId=string} true "Tracking code request"
// @Success 200 {object} object{trackingCode=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /tracking/generate [post]
func (h *TrackingHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		ApplicationID string `json:"applicationId" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	code, qrImage, err := h.service.GenerateTrackingCode(r.Context(), userID, req.ApplicationID)
	if err != nil {
		if err == services.ErrNotFound {
			services.SendErrorResponse(w, "Application not found", http.StatusNotFound, nil)
			return
		}
		if err == services.ErrTrackingUnavailable {
			services.SendErrorResponse(w, "Tracking temporarily unavailable", http.StatusServiceUnavailable, nil)
			return
		}
		services.SendErrorResponse(w, "Failed to generate tracking code", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":      true,
		"trackingCode": code,
		"qrImage":      qrImage,
	})
}

// ResolveCode resolves a tracking code to a status snapshot
// @Summary Resolve tracking code
// @Description Look up the current status behind a tracking code
// @Tags tracking
// @Accept json
// @Produce json
// @Param request body object{trackingCode=string} true "Tracking lookup request"
// @Success 200 {object} services.TrackingSnapshot
// @Failure 400 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /tracking/resolve [post]
func (h *TrackingHandler) ResolveCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackingCode string `json:"trackingCode" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	snapshot, err := h.service.ResolveTrackingCode(r.Context(), req.TrackingCode)
	if err != nil {
		if err == services.ErrTrackingUnavailable {
			services.SendErrorResponse(w, "Tracking temporarily unavailable", http.StatusServiceUnavailable, nil)
			return
		}
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    snapshot,
	})
}
