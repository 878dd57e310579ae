package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shelterfund/backend/internal/audit"
	"github.com/shelterfund/backend/internal/config"
	"github.com/shelterfund/backend/internal/models"
)

type DraftService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
	sections  *SectionValidators
	audit     *audit.Logger
	notifier  Notifier
	config    *config.LoanConfig
}

// SaveDraftRequest carries a partial draft: only the sections present in the
// request are written, so two tabs editing different sections never clobber
// each other.
type SaveDraftRequest struct {
	DraftID             string                  `json:"draftId,omitempty" validate:"omitempty,uuid4"`
	LoanPurpose         string                  `json:"loanPurpose,omitempty" validate:"omitempty,oneof=rent land"`
	CurrentStep         *int                    `json:"currentStep,omitempty" validate:"omitempty,min=1,max=5"`
	PersonalInfo        *models.PersonalInfo    `json:"personalInfo,omitempty"`
	Employment          *models.Employment      `json:"employment,omitempty"`
	RentLoanDetails     *models.RentLoanDetails `json:"rentLoanDetails,omitempty"`
	LandLoanDetails     *models.LandLoanDetails `json:"landLoanDetails,omitempty"`
	TermsAccepted       *bool                   `json:"termsAccepted,omitempty"`
	DeclarationAccepted *bool                   `json:"declarationAccepted,omitempty"`
}

func NewDraftService(db *sql.DB, redisClient *redis.Client, cfg *config.LoanConfig, notifier Notifier) *DraftService {
	return &DraftService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
		sections:  NewSectionValidators(cfg),
		audit:     audit.NewLogger(),
		notifier:  notifier,
		config:    cfg,
	}
}

// Sections exposes the validators for handlers that gate step navigation.
func (s *DraftService) Sections() *SectionValidators {
	return s.sections
}

// SaveDraft creates a draft or merges sections into an existing one
// @Summary Save a loan application draft
// @Description Create a new draft or merge the provided sections into an existing one. Merging is per section: absent sections are left untouched.
// @Tags drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SaveDraftRequest true "Partial draft sections"
// @Success 200 {object} object{draftId=string,currentStep=int,updatedAt=string}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /drafts [post]
func (s *DraftService) SaveDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req SaveDraftRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[DRAFT] Save failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := s.checkSaveRateLimit(r.Context(), userID); err != nil {
		SendErrorResponse(w, "Too many save requests", http.StatusTooManyRequests, nil)
		return
	}

	var draft *models.Draft
	var err error
	if req.DraftID == "" {
		draft, err = s.createDraft(r.Context(), userID, &req)
	} else {
		draft, err = s.mergeDraft(r.Context(), req.DraftID, userID, &req)
	}

	if err != nil {
		s.sendDraftError(w, err, "Failed to save draft")
		return
	}

	log.Printf("[DRAFT] Saved draft %s for user %s (step %d)", draft.DraftID, userID, draft.CurrentStep)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"draftId":     draft.DraftID,
		"currentStep": draft.CurrentStep,
		"updatedAt":   draft.UpdatedAt,
	})
}

// GetDraft returns the full draft for resumption
// @Summary Fetch a draft
// @Description Retrieve the full draft by id. Consumed or discarded drafts report not found.
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param draftId path string true "Draft ID"
// @Success 200 {object} models.Draft
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{draftId} [get]
func (s *DraftService) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	draftID := chi.URLParam(r, "draftId")
	draft, err := s.FetchDraft(r.Context(), draftID, userID)
	if err != nil {
		s.sendDraftError(w, err, "Failed to fetch draft")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(draft)
}

// DiscardDraft deletes a draft explicitly
// @Summary Discard a draft
// @Description Permanently remove an unsubmitted draft.
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param draftId path string true "Draft ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{draftId} [delete]
func (s *DraftService) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	draftID := chi.URLParam(r, "draftId")
	result, err := s.db.ExecContext(r.Context(), `
		DELETE FROM drafts
		WHERE draft_id = $1 AND owner_id = $2 AND consumed = FALSE
	`, draftID, userID)
	if err != nil {
		log.Printf("[DRAFT] Discard failed for %s: %v", draftID, err)
		SendErrorResponse(w, "Failed to discard draft", http.StatusInternalServerError, nil)
		return
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Draft not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[DRAFT] Discarded draft %s for user %s", draftID, userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Draft discarded"})
}

// Submit promotes a valid draft into an immutable application
// @Summary Submit a draft for review
// @Description Re-validates every section server-side, then atomically freezes the draft into a submitted application. The draft is consumed; a second submit reports the conflict.
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param draftId path string true "Draft ID"
// @Success 201 {object} object{applicationId=string,status=string}
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ValidationFailedResponse
// @Router /drafts/{draftId}/submit [post]
func (s *DraftService) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	draftID := chi.URLParam(r, "draftId")
	log.Printf("[SUBMIT] Submission attempt for draft %s by user %s", draftID, userID)

	app, err := s.promote(r.Context(), draftID, userID)
	if err != nil {
		var vErr *ValidationFailedError
		if errors.As(err, &vErr) {
			log.Printf("[SUBMIT] Draft %s incomplete: %v", draftID, vErr)
			SendValidationFailed(w, vErr.Sections)
			return
		}
		s.audit.LogError(draftID, userID, err)
		s.sendDraftError(w, err, "Failed to submit application")
		return
	}

	s.audit.LogSubmission(app.ApplicationID, app.OwnerID, string(app.LoanPurpose))
	go s.notifySubmitted(app)

	log.Printf("[SUBMIT] Draft %s promoted to application %s", draftID, app.ApplicationID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"applicationId": app.ApplicationID,
		"status":        app.Status,
	})
}

// Store operations

func (s *DraftService) createDraft(ctx context.Context, ownerID string, req *SaveDraftRequest) (*models.Draft, error) {
	if req.LoanPurpose == "" {
		return nil, fmt.Errorf("%w: loanPurpose is required on create", errBadRequest)
	}

	draft := &models.Draft{
		DraftID:     uuid.New().String(),
		OwnerID:     ownerID,
		LoanPurpose: models.LoanPurpose(req.LoanPurpose),
		CurrentStep: 1,
		Documents:   map[string]models.Document{},
	}
	applySections(draft, req)

	personalJSON, employmentJSON, detailsJSON, documentsJSON, err := marshalSections(draft)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO drafts
		(draft_id, owner_id, loan_purpose, current_step, personal_info, employment, loan_details, documents, terms_accepted, declaration_accepted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING updated_at
	`, draft.DraftID, draft.OwnerID, string(draft.LoanPurpose), draft.CurrentStep,
		personalJSON, employmentJSON, detailsJSON, documentsJSON,
		draft.TermsAccepted, draft.DeclarationAccepted).Scan(&draft.UpdatedAt)
	if err != nil {
		log.Printf("[DRAFT] Create failed for user %s: %v", ownerID, err)
		return nil, err
	}

	return draft, nil
}

// mergeDraft applies a per-section last-write-wins merge under a row lock. A
// concurrent save touching other sections is preserved, not overwritten.
func (s *DraftService) mergeDraft(ctx context.Context, draftID, ownerID string, req *SaveDraftRequest) (*models.Draft, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	draft, consumed, err := s.lockDraft(ctx, tx, draftID, ownerID)
	if err != nil {
		return nil, err
	}
	if consumed {
		return nil, ErrAlreadySubmitted
	}

	if req.LoanPurpose != "" && models.LoanPurpose(req.LoanPurpose) != draft.LoanPurpose {
		return nil, fmt.Errorf("%w: loanPurpose is fixed at creation", errBadRequest)
	}

	applySections(draft, req)

	personalJSON, employmentJSON, detailsJSON, documentsJSON, err := marshalSections(draft)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE drafts
		SET current_step = $1, personal_info = $2, employment = $3, loan_details = $4,
		    documents = $5, terms_accepted = $6, declaration_accepted = $7, updated_at = NOW()
		WHERE draft_id = $8
		RETURNING updated_at
	`, draft.CurrentStep, personalJSON, employmentJSON, detailsJSON, documentsJSON,
		draft.TermsAccepted, draft.DeclarationAccepted, draftID).Scan(&draft.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return draft, nil
}

// FetchDraft loads a live draft owned by ownerID. Consumed drafts are gone
// from the applicant's point of view.
func (s *DraftService) FetchDraft(ctx context.Context, draftID, ownerID string) (*models.Draft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT draft_id, owner_id, loan_purpose, current_step, personal_info, employment,
		       loan_details, documents, terms_accepted, declaration_accepted, consumed, created_at, updated_at
		FROM drafts
		WHERE draft_id = $1 AND owner_id = $2
	`, draftID, ownerID)

	draft, consumed, err := scanDraft(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if consumed {
		return nil, ErrNotFound
	}
	return draft, nil
}

// MutateDocuments runs fn against the draft's document map under a row lock
// and persists the result. The document upload and detach flows use it so
// concurrent attachments of different types never drop each other.
func (s *DraftService) MutateDocuments(ctx context.Context, draftID, ownerID string, fn func(*models.Draft) error) (*models.Draft, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	draft, consumed, err := s.lockDraft(ctx, tx, draftID, ownerID)
	if err != nil {
		return nil, err
	}
	if consumed {
		return nil, ErrAlreadySubmitted
	}

	if err := fn(draft); err != nil {
		return nil, err
	}

	documentsJSON, err := json.Marshal(draft.Documents)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE drafts SET documents = $1, updated_at = NOW()
		WHERE draft_id = $2
		RETURNING updated_at
	`, documentsJSON, draftID).Scan(&draft.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return draft, nil
}

// promote is the one-way conversion of a valid draft into an application.
// Inserting the application and consuming the draft commit together, so two
// racing submits yield exactly one application.
func (s *DraftService) promote(ctx context.Context, draftID, ownerID string) (*models.Application, error) {
	ownerEmail, err := s.fetchOwnerEmail(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	draft, consumed, err := s.lockDraft(ctx, tx, draftID, ownerID)
	if err != nil {
		return nil, err
	}
	if consumed {
		return nil, ErrAlreadySubmitted
	}

	app, err := PromoteDraft(s.sections, draft, ownerEmail, time.Now())
	if err != nil {
		return nil, err
	}

	personalJSON, err := json.Marshal(app.PersonalInfo)
	if err != nil {
		return nil, err
	}
	employmentJSON, err := json.Marshal(app.Employment)
	if err != nil {
		return nil, err
	}
	detailsJSON, err := marshalLoanDetails(app)
	if err != nil {
		return nil, err
	}
	documentsJSON, err := json.Marshal(app.Documents)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications
		(application_id, owner_id, loan_purpose, personal_info, employment, loan_details, documents, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, app.ApplicationID, app.OwnerID, string(app.LoanPurpose),
		personalJSON, employmentJSON, detailsJSON, documentsJSON,
		string(app.Status), app.SubmittedAt)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE drafts SET consumed = TRUE, updated_at = NOW()
		WHERE draft_id = $1 AND consumed = FALSE
	`, draftID)
	if err != nil {
		return nil, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, ErrAlreadySubmitted
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *DraftService) lockDraft(ctx context.Context, tx *sql.Tx, draftID, ownerID string) (*models.Draft, bool, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT draft_id, owner_id, loan_purpose, current_step, personal_info, employment,
		       loan_details, documents, terms_accepted, declaration_accepted, consumed, created_at, updated_at
		FROM drafts
		WHERE draft_id = $1 AND owner_id = $2
		FOR UPDATE
	`, draftID, ownerID)

	draft, consumed, err := scanDraft(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}
	return draft, consumed, nil
}

func (s *DraftService) fetchOwnerEmail(ctx context.Context, ownerID string) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1::integer`, ownerID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

func (s *DraftService) notifySubmitted(app *models.Application) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ApplicationSubmitted(context.Background(), app); err != nil {
		log.Printf("[NOTIFY] Submission notification failed for %s: %v", app.ApplicationID, err)
	}
}

func (s *DraftService) checkSaveRateLimit(ctx context.Context, userID string) error {
	if s.redis == nil {
		return nil
	}

	key := fmt.Sprintf("draft:ratelimit:%s", userID)
	count, err := s.redis.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return nil
	}
	if count >= 60 {
		return errors.New("rate limit exceeded")
	}

	pipe := s.redis.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Minute)
	pipe.Exec(ctx)
	return nil
}

var errBadRequest = errors.New("bad request")

func (s *DraftService) sendDraftError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		SendErrorResponse(w, "Draft not found", http.StatusNotFound, nil)
	case errors.Is(err, ErrAlreadySubmitted):
		SendErrorResponse(w, "Draft already submitted", http.StatusConflict, nil)
	case errors.Is(err, errBadRequest):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		log.Printf("[DRAFT] %s: %v", fallback, err)
		SendErrorResponse(w, fallback, http.StatusInternalServerError, nil)
	}
}

// Merge helpers

func applySections(draft *models.Draft, req *SaveDraftRequest) {
	if req.CurrentStep != nil {
		draft.CurrentStep = *req.CurrentStep
	}
	if req.PersonalInfo != nil {
		draft.PersonalInfo = req.PersonalInfo
	}
	if req.Employment != nil {
		draft.Employment = req.Employment
	}
	// The loan-detail variants are mutually exclusive; only the variant
	// matching the draft's purpose is ever stored.
	if req.RentLoanDetails != nil && draft.LoanPurpose == models.PurposeRent {
		draft.RentLoanDetails = req.RentLoanDetails
	}
	if req.LandLoanDetails != nil && draft.LoanPurpose == models.PurposeLand {
		draft.LandLoanDetails = req.LandLoanDetails
	}
	if req.TermsAccepted != nil {
		draft.TermsAccepted = *req.TermsAccepted
	}
	if req.DeclarationAccepted != nil {
		draft.DeclarationAccepted = *req.DeclarationAccepted
	}
}

func marshalSections(draft *models.Draft) ([]byte, []byte, []byte, []byte, error) {
	var personalJSON, employmentJSON, detailsJSON []byte
	var err error

	if draft.PersonalInfo != nil {
		if personalJSON, err = json.Marshal(draft.PersonalInfo); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if draft.Employment != nil {
		if employmentJSON, err = json.Marshal(draft.Employment); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	switch {
	case draft.RentLoanDetails != nil:
		if detailsJSON, err = json.Marshal(draft.RentLoanDetails); err != nil {
			return nil, nil, nil, nil, err
		}
	case draft.LandLoanDetails != nil:
		if detailsJSON, err = json.Marshal(draft.LandLoanDetails); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	documentsJSON, err := json.Marshal(draft.Documents)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return personalJSON, employmentJSON, detailsJSON, documentsJSON, nil
}

func marshalLoanDetails(app *models.Application) ([]byte, error) {
	if app.RentDetails != nil {
		return json.Marshal(app.RentDetails)
	}
	return json.Marshal(app.LandDetails)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*models.Draft, bool, error) {
	draft := &models.Draft{Documents: map[string]models.Document{}}
	var purpose string
	var personalJSON, employmentJSON, detailsJSON, documentsJSON []byte
	var consumed bool

	err := row.Scan(
		&draft.DraftID, &draft.OwnerID, &purpose, &draft.CurrentStep,
		&personalJSON, &employmentJSON, &detailsJSON, &documentsJSON,
		&draft.TermsAccepted, &draft.DeclarationAccepted, &consumed,
		&draft.CreatedAt, &draft.UpdatedAt,
	)
	if err != nil {
		return nil, false, err
	}

	draft.LoanPurpose = models.LoanPurpose(purpose)

	if len(personalJSON) > 0 {
		draft.PersonalInfo = &models.PersonalInfo{}
		if err := json.Unmarshal(personalJSON, draft.PersonalInfo); err != nil {
			return nil, false, err
		}
	}
	if len(employmentJSON) > 0 {
		draft.Employment = &models.Employment{}
		if err := json.Unmarshal(employmentJSON, draft.Employment); err != nil {
			return nil, false, err
		}
	}
	if len(detailsJSON) > 0 {
		switch draft.LoanPurpose {
		case models.PurposeRent:
			draft.RentLoanDetails = &models.RentLoanDetails{}
			err = json.Unmarshal(detailsJSON, draft.RentLoanDetails)
		case models.PurposeLand:
			draft.LandLoanDetails = &models.LandLoanDetails{}
			err = json.Unmarshal(detailsJSON, draft.LandLoanDetails)
		}
		if err != nil {
			return nil, false, err
		}
	}
	if len(documentsJSON) > 0 {
		if err := json.Unmarshal(documentsJSON, &draft.Documents); err != nil {
			return nil, false, err
		}
	}

	return draft, consumed, nil
}
