package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/shelterfund/backend/internal/config"
	"github.com/shelterfund/backend/internal/models"
)

// ErrUnsupportedDocumentType is returned when an upload names a document type
// outside the required set for the draft's loan purpose.
var ErrUnsupportedDocumentType = errors.New("unsupported document type for loan purpose")

// DocumentRegistry associates stored file references with semantic document
// types on a draft. It performs no uploads itself; the storage collaborator
// runs first and only confirmed references are recorded.
type DocumentRegistry struct {
	config *config.LoanConfig
}

func NewDocumentRegistry(cfg *config.LoanConfig) *DocumentRegistry {
	return &DocumentRegistry{config: cfg}
}

// Attach records a confirmed upload under its document type, replacing any
// prior entry for that type. The replaced document, if any, is returned so
// the caller can release its backing file.
func (dr *DocumentRegistry) Attach(draft *models.Draft, docType, fileName string, stored *StoredFile) (models.Document, *models.Document, error) {
	if !dr.config.IsRequiredDocument(string(draft.LoanPurpose), docType) {
		return models.Document{}, nil, ErrUnsupportedDocumentType
	}

	var replaced *models.Document
	if prev, ok := draft.Documents[docType]; ok {
		// Last write wins on uploadedAt; never keep a stale entry that would
		// outrank the confirmed one.
		if !stored.StoredAt.Before(prev.UploadedAt) {
			replaced = &prev
		} else {
			log.Printf("[DOCUMENT] Ignoring stale upload for type %s on draft %s", docType, draft.DraftID)
			return prev, nil, nil
		}
	}

	doc := models.Document{
		DocumentID:   uuid.New().String(),
		DocumentType: docType,
		DocumentURL:  stored.URL,
		FileName:     fileName,
		UploadedAt:   stored.StoredAt,
	}

	if draft.Documents == nil {
		draft.Documents = make(map[string]models.Document)
	}
	draft.Documents[docType] = doc
	return doc, replaced, nil
}

// Detach removes the entry for a type. Removing an absent type is a no-op,
// which keeps the "Replace" flow safe to retry.
func (dr *DocumentRegistry) Detach(draft *models.Draft, docType string) *models.Document {
	prev, ok := draft.Documents[docType]
	if !ok {
		return nil
	}
	delete(draft.Documents, docType)
	return &prev
}
