package models

import "time"

// Document records an uploaded file reference for one document type. At most
// one Document exists per type per application; a re-upload replaces the
// prior entry.
type Document struct {
	DocumentID   string    `json:"documentId" example:"b7e3d9f0-5a21-4c8e-8d4f-1a2b3c4d5e6f"`
	DocumentType string    `json:"documentType" example:"government_id"`
	DocumentURL  string    `json:"documentUrl" example:"/static/documents/b7e3d9f0.pdf"`
	FileName     string    `json:"fileName,omitempty" example:"national_id.pdf"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
