package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/shelterfund/backend/internal/config"
	"github.com/shelterfund/backend/internal/models"
	"github.com/shelterfund/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUploaderID = "42"

func uploadLoanConfig() *config.LoanConfig {
	return &config.LoanConfig{
		RentMinAmount:        500_000,
		RentMaxAmount:        5_000_000,
		LandMinAmount:        2_000_000,
		LandMaxAmount:        10_000_000,
		AllowedRentDurations: []int{6, 12, 18, 24},
		RentDocuments:        []string{"government_id", "proof_of_income", "bank_statement", "tenancy_agreement"},
		LandDocuments:        []string{"government_id", "proof_of_income", "bank_statement", "land_title_document"},
		MaxUploadBytes:       5 * 1024 * 1024,
		DocumentStoreDir:     "./storage/documents",
	}
}

// stubStorage hands back a fixed stored file and records removals.
type stubStorage struct {
	stored  *services.StoredFile
	removed []string
}

func (s *stubStorage) Store(ctx context.Context, fileName string, content io.Reader) (*services.StoredFile, error) {
	return s.stored, nil
}

func (s *stubStorage) Remove(ctx context.Context, url string) error {
	s.removed = append(s.removed, url)
	return nil
}

func documentRouter(h *DocumentHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), "userID", testUploaderID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Post("/drafts/{draftId}/documents", h.Upload)
	r.Delete("/drafts/{draftId}/documents/{documentType}", h.Remove)
	return r
}

func multipartUpload(t *testing.T, docType, fileName string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("documentType", docType))
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte("file contents"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func lockedDraftRow(t *testing.T, draftID string, documents map[string]models.Document) *sqlmock.Rows {
	t.Helper()

	documentsJSON, err := json.Marshal(documents)
	require.NoError(t, err)

	now := time.Now()
	return sqlmock.NewRows([]string{
		"draft_id", "owner_id", "loan_purpose", "current_step", "personal_info", "employment",
		"loan_details", "documents", "terms_accepted", "declaration_accepted", "consumed",
		"created_at", "updated_at",
	}).AddRow(
		draftID, testUploaderID, "rent", 4, nil, nil, nil, documentsJSON, false, false, false, now, now,
	)
}

func TestDocumentHandler_Upload_Replacement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	draftID := "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	existing := map[string]models.Document{
		"government_id": {
			DocumentID:   "doc-1",
			DocumentType: "government_id",
			DocumentURL:  "/static/documents/old.png",
			FileName:     "id-old.png",
			UploadedAt:   time.Now().Add(-time.Hour),
		},
	}

	storage := &stubStorage{stored: &services.StoredFile{
		URL:      "/static/documents/new.png",
		StoredAt: time.Now(),
	}}
	drafts := services.NewDraftService(db, nil, uploadLoanConfig(), services.LogNotifier{})
	router := documentRouter(NewDocumentHandler(drafts, storage, uploadLoanConfig()))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM drafts\s+WHERE draft_id`).
		WithArgs(draftID, testUploaderID).
		WillReturnRows(lockedDraftRow(t, draftID, existing))
	mock.ExpectQuery("UPDATE drafts SET documents").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	body, contentType := multipartUpload(t, "government_id", "id-new.png")
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+draftID+"/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var attached models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attached))
	assert.Equal(t, "/static/documents/new.png", attached.DocumentURL)

	// The superseded file is released; the fresh one stays.
	assert.Equal(t, []string{"/static/documents/old.png"}, storage.removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentHandler_Upload_StaleUploadDiscarded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	draftID := "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	existing := map[string]models.Document{
		"government_id": {
			DocumentID:   "doc-1",
			DocumentType: "government_id",
			DocumentURL:  "/static/documents/winner.png",
			FileName:     "id-winner.png",
			UploadedAt:   time.Now().Add(time.Hour),
		},
	}

	storage := &stubStorage{stored: &services.StoredFile{
		URL:      "/static/documents/loser.png",
		StoredAt: time.Now(),
	}}
	drafts := services.NewDraftService(db, nil, uploadLoanConfig(), services.LogNotifier{})
	router := documentRouter(NewDocumentHandler(drafts, storage, uploadLoanConfig()))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM drafts\s+WHERE draft_id`).
		WithArgs(draftID, testUploaderID).
		WillReturnRows(lockedDraftRow(t, draftID, existing))
	mock.ExpectQuery("UPDATE drafts SET documents").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	body, contentType := multipartUpload(t, "government_id", "id-late.png")
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+draftID+"/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// The newer entry keeps the slot and the unrecorded file does not linger.
	var attached models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attached))
	assert.Equal(t, "/static/documents/winner.png", attached.DocumentURL)
	assert.Equal(t, []string{"/static/documents/loser.png"}, storage.removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
