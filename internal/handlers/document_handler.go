package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shelterfund/backend/internal/config"
	"github.com/shelterfund/backend/internal/models"
	"github.com/shelterfund/backend/internal/services"
)

// DocumentHandler manages uploads against a draft's document registry.
// Files land in storage first; the draft row only ever references a file
// that was fully written.
type DocumentHandler struct {
	drafts   *services.DraftService
	registry *services.DocumentRegistry
	storage  services.DocumentStorage
	config   *config.LoanConfig
}

func NewDocumentHandler(drafts *services.DraftService, storage services.DocumentStorage, cfg *config.LoanConfig) *DocumentHandler {
	return &DocumentHandler{
		drafts:   drafts,
		registry: services.NewDocumentRegistry(cfg),
		storage:  storage,
		config:   cfg,
	}
}

// Upload attaches a document to a draft
// @Summary Upload draft document
// @Description Upload a file for one of the purpose's required document types; re-uploading a type replaces the previous file
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param draftId path string true "Draft ID"
// @Param documentType formData string true "Document type"
// @Param file formData file true "Document file"
// @Success 200 {object} models.Document
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /drafts/{draftId}/documents [post]
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	draftID := chi.URLParam(r, "draftId")

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		services.SendErrorResponse(w, "Upload too large or malformed", http.StatusBadRequest, nil)
		return
	}

	docType := r.FormValue("documentType")
	if docType == "" {
		services.SendErrorResponse(w, "documentType is required", http.StatusBadRequest, nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		services.SendErrorResponse(w, "file is required", http.StatusBadRequest, nil)
		return
	}
	defer file.Close()

	// Store before touching the draft. A storage failure leaves the draft
	// exactly as it was.
	stored, err := h.storage.Store(r.Context(), header.Filename, file)
	if err != nil {
		log.Printf("[DOCS] Storage failed for draft %s type %s: %v", draftID, docType, err)
		services.SendErrorResponse(w, "Document storage unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	var attached models.Document
	var replaced *models.Document
	_, err = h.drafts.MutateDocuments(r.Context(), draftID, userID, func(draft *models.Draft) error {
		attached, replaced, err = h.registry.Attach(draft, docType, header.Filename, stored)
		return err
	})
	if err != nil {
		// The stored file is orphaned once the draft update fails.
		if rmErr := h.storage.Remove(context.Background(), stored.URL); rmErr != nil {
			log.Printf("[DOCS] Orphan cleanup failed for %s: %v", stored.URL, rmErr)
		}
		h.sendDocumentError(w, err)
		return
	}

	if attached.DocumentURL != stored.URL {
		// A newer upload already holds this slot; the fresh file was never
		// recorded and must not linger on disk.
		if rmErr := h.storage.Remove(context.Background(), stored.URL); rmErr != nil {
			log.Printf("[DOCS] Failed to remove superseded file %s: %v", stored.URL, rmErr)
		}
	} else if replaced != nil && replaced.DocumentURL != stored.URL {
		if rmErr := h.storage.Remove(context.Background(), replaced.DocumentURL); rmErr != nil {
			log.Printf("[DOCS] Failed to remove replaced file %s: %v", replaced.DocumentURL, rmErr)
		}
	}

	log.Printf("[DOCS] Attached %s to draft %s", docType, draftID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(attached)
}

// Remove detaches a document from a draft
// @Summary Remove draft document
// @Description Detach a document type from the draft; removing an absent type succeeds
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param draftId path string true "Draft ID"
// @Param documentType path string true "Document type"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /drafts/{draftId}/documents/{documentType} [delete]
func (h *DocumentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	draftID := chi.URLParam(r, "draftId")
	docType := chi.URLParam(r, "documentType")

	var removed *models.Document
	_, err := h.drafts.MutateDocuments(r.Context(), draftID, userID, func(draft *models.Draft) error {
		removed = h.registry.Detach(draft, docType)
		return nil
	})
	if err != nil {
		h.sendDocumentError(w, err)
		return
	}

	if removed != nil {
		if rmErr := h.storage.Remove(context.Background(), removed.DocumentURL); rmErr != nil {
			log.Printf("[DOCS] Failed to remove detached file %s: %v", removed.DocumentURL, rmErr)
		}
		log.Printf("[DOCS] Detached %s from draft %s", docType, draftID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Document removed"})
}

func (h *DocumentHandler) sendDocumentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		services.SendErrorResponse(w, "Draft not found", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrAlreadySubmitted):
		services.SendErrorResponse(w, "Draft has already been submitted", http.StatusConflict, nil)
	case errors.Is(err, services.ErrUnsupportedDocumentType):
		services.SendErrorResponse(w, "Unsupported document type for this loan purpose", http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrStorageUnavailable):
		services.SendErrorResponse(w, "Document storage unavailable", http.StatusServiceUnavailable, nil)
	default:
		log.Printf("[DOCS] Document operation failed: %v", err)
		services.SendErrorResponse(w, "Failed to update documents", http.StatusInternalServerError, nil)
	}
}
