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
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shelterfund/backend/internal/audit"
	"github.com/shelterfund/backend/internal/models"
)

// ReviewService drives submitted applications through the administrative
// lifecycle. Every successful transition is audited and notified exactly
// once; the stored status is the source of truth.
type ReviewService struct {
	db        *sql.DB
	validator *ValidationHelper
	audit     *audit.Logger
	notifier  Notifier
}

// Pagination is the metadata block returned with every application page.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewReviewService(db *sql.DB, notifier Notifier) *ReviewService {
	return &ReviewService{
		db:        db,
		validator: NewValidationHelper(),
		audit:     audit.NewLogger(),
		notifier:  notifier,
	}
}

// ListApplications returns a filtered page of submissions
// @Summary List applications
// @Description Page through submissions with optional status, purpose and free-text filters
// @Tags review
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param loanPurpose query string false "Filter by loan purpose"
// @Param search query string false "Free-text search over id, applicant name and email"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} object{applications=[]models.Application,pagination=Pagination}
// @Failure 400 {object} ErrorResponse
// @Router /applications [get]
func (rs *ReviewService) ListApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	limit := 20
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	var conditions []string
	var args []any
	argIndex := 1

	if raw := q.Get("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			SendErrorResponse(w, "Unknown status filter", http.StatusBadRequest, nil)
			return
		}
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(status))
		argIndex++
	}

	if purpose := q.Get("loanPurpose"); purpose != "" {
		if !models.LoanPurpose(purpose).Valid() {
			SendErrorResponse(w, "Unknown loanPurpose filter", http.StatusBadRequest, nil)
			return
		}
		conditions = append(conditions, fmt.Sprintf("loan_purpose = $%d", argIndex))
		args = append(args, purpose)
		argIndex++
	}

	if search := strings.TrimSpace(q.Get("search")); search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(application_id ILIKE $%d OR personal_info->>'fullName' ILIKE $%d OR personal_info->>'email' ILIKE $%d)",
			argIndex, argIndex, argIndex))
		args = append(args, "%"+search+"%")
		argIndex++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := rs.db.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM applications"+where, args...).Scan(&total); err != nil {
		log.Printf("[REVIEW] Count query failed: %v", err)
		SendErrorResponse(w, "Failed to list applications", http.StatusInternalServerError, nil)
		return
	}

	query := selectApplicationColumns + where +
		fmt.Sprintf(" ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := rs.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		log.Printf("[REVIEW] List query failed: %v", err)
		SendErrorResponse(w, "Failed to list applications", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	applications := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			log.Printf("[REVIEW] Row scan failed: %v", err)
			SendErrorResponse(w, "Failed to list applications", http.StatusInternalServerError, nil)
			return
		}
		applications = append(applications, *app)
	}

	totalPages := (total + limit - 1) / limit

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"applications": applications,
		"pagination": Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// GetApplication returns one submission
// @Summary Get application by ID
// @Tags review
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} models.Application
// @Failure 404 {object} ErrorResponse
// @Router /applications/{id} [get]
func (rs *ReviewService) GetApplication(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "id")

	app, err := rs.fetchApplication(r.Context(), appID)
	if err != nil {
		rs.sendReviewError(w, err, "Failed to fetch application")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(app)
}

// ListMyApplications returns the caller's own submissions
// @Summary List own applications
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{applications=[]models.Application,count=int}
// @Router /applications/mine [get]
func (rs *ReviewService) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := rs.db.QueryContext(r.Context(),
		selectApplicationColumns+" WHERE owner_id = $1 ORDER BY submitted_at DESC", userID)
	if err != nil {
		log.Printf("[REVIEW] Own-applications query failed for user %s: %v", userID, err)
		SendErrorResponse(w, "Failed to list applications", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	applications := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			SendErrorResponse(w, "Failed to list applications", http.StatusInternalServerError, nil)
			return
		}
		applications = append(applications, *app)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"applications": applications,
		"count":        len(applications),
	})
}

// UpdateStatus moves a submitted application under review
// @Summary Mark application under review
// @Description Advisory marker; allowed only from the submitted status
// @Tags review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body object{status=string} true "Target status (only under_review accepted)"
// @Success 200 {object} models.Application
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /applications/{id}/status [patch]
func (rs *ReviewService) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value("userID").(string)
	appID := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status" validate:"required,oneof=under_review"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := rs.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	app, err := rs.markUnderReview(r.Context(), appID, adminID)
	if err != nil {
		rs.sendReviewError(w, err, "Failed to update application status")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(app)
}

// Approve decides an application in the applicant's favour
// @Summary Approve application
// @Description Terminal decision; an optional note may be attached
// @Tags review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body object{note=string} false "Optional decision note"
// @Success 200 {object} models.Application
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /applications/{id}/approve [post]
func (rs *ReviewService) Approve(w http.ResponseWriter, r *http.Request) {
	rs.decideHandler(w, r, models.StatusApproved)
}

// Reject decides an application against the applicant
// @Summary Reject application
// @Description Terminal decision; a non-empty note is mandatory
// @Tags review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body object{note=string} true "Mandatory decision note"
// @Success 200 {object} models.Application
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /applications/{id}/reject [post]
func (rs *ReviewService) Reject(w http.ResponseWriter, r *http.Request) {
	rs.decideHandler(w, r, models.StatusRejected)
}

func (rs *ReviewService) decideHandler(w http.ResponseWriter, r *http.Request, outcome models.Status) {
	adminID, _ := r.Context().Value("userID").(string)
	appID := chi.URLParam(r, "id")

	var req struct {
		Note string `json:"note"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil && err != io.EOF {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if outcome == models.StatusRejected && strings.TrimSpace(req.Note) == "" {
		SendErrorResponse(w, "A rejection note is required", http.StatusBadRequest, nil)
		return
	}

	app, err := rs.decide(r.Context(), appID, outcome, strings.TrimSpace(req.Note), adminID)
	if err != nil {
		rs.sendReviewError(w, err, "Failed to decide application")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(app)
}

// State transitions

// markUnderReview is a guarded update: only a currently submitted application
// gains the advisory marker. A concurrent decision wins the race and this
// caller sees InvalidTransition.
func (rs *ReviewService) markUnderReview(ctx context.Context, appID, adminID string) (*models.Application, error) {
	result, err := rs.db.ExecContext(ctx, `
		UPDATE applications SET status = $1
		WHERE application_id = $2 AND status = $3
	`, string(models.StatusUnderReview), appID, string(models.StatusSubmitted))
	if err != nil {
		return nil, err
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, rs.transitionConflict(ctx, appID)
	}

	app, err := rs.fetchApplication(ctx, appID)
	if err != nil {
		return nil, err
	}

	rs.audit.LogTransition(appID, adminID, string(models.StatusSubmitted), string(models.StatusUnderReview), "")
	go rs.notifyStatus(app, "")
	log.Printf("[REVIEW] Application %s marked under review by %s", appID, adminID)
	return app, nil
}

// decide writes a terminal status. Concurrent decisions race to the first
// terminal write; the guarded WHERE clause makes the loser observe
// InvalidTransition and leaves the stored decision untouched.
func (rs *ReviewService) decide(ctx context.Context, appID string, outcome models.Status, note, adminID string) (*models.Application, error) {
	if !outcome.Terminal() {
		return nil, ErrInvalidTransition
	}

	result, err := rs.db.ExecContext(ctx, `
		UPDATE applications
		SET status = $1, decision_note = $2, decided_at = $3, decided_by = $4
		WHERE application_id = $5 AND status IN ($6, $7)
	`, string(outcome), note, time.Now(), adminID, appID,
		string(models.StatusSubmitted), string(models.StatusUnderReview))
	if err != nil {
		return nil, err
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, rs.transitionConflict(ctx, appID)
	}

	app, err := rs.fetchApplication(ctx, appID)
	if err != nil {
		return nil, err
	}

	rs.audit.LogTransition(appID, adminID, "", string(outcome), note)
	go rs.notifyStatus(app, note)
	log.Printf("[REVIEW] Application %s decided %s by %s", appID, outcome, adminID)
	return app, nil
}

// transitionConflict distinguishes a missing application from one whose
// current status forbids the transition.
func (rs *ReviewService) transitionConflict(ctx context.Context, appID string) error {
	var status string
	err := rs.db.QueryRowContext(ctx,
		`SELECT status FROM applications WHERE application_id = $1`, appID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInvalidTransition
}

func (rs *ReviewService) notifyStatus(app *models.Application, note string) {
	if rs.notifier == nil {
		return
	}
	if err := rs.notifier.StatusChanged(context.Background(), app, note); err != nil {
		// Best-effort by contract: the transition already committed.
		log.Printf("[NOTIFY] Status notification failed for %s: %v", app.ApplicationID, err)
	}
}

const selectApplicationColumns = `
	SELECT application_id, owner_id, loan_purpose, personal_info, employment,
	       loan_details, documents, status, submitted_at,
	       COALESCE(decision_note, ''), decided_at, COALESCE(decided_by, '')
	FROM applications`

func (rs *ReviewService) fetchApplication(ctx context.Context, appID string) (*models.Application, error) {
	row := rs.db.QueryRowContext(ctx, selectApplicationColumns+" WHERE application_id = $1", appID)
	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return app, err
}

func scanApplication(row rowScanner) (*models.Application, error) {
	app := &models.Application{}
	var purpose, status string
	var personalJSON, employmentJSON, detailsJSON, documentsJSON []byte
	var decidedAt sql.NullTime

	err := row.Scan(
		&app.ApplicationID, &app.OwnerID, &purpose,
		&personalJSON, &employmentJSON, &detailsJSON, &documentsJSON,
		&status, &app.SubmittedAt, &app.DecisionNote, &decidedAt, &app.DecidedBy,
	)
	if err != nil {
		return nil, err
	}

	app.LoanPurpose = models.LoanPurpose(purpose)
	app.Status = models.Status(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		app.DecidedAt = &t
	}

	if err := json.Unmarshal(personalJSON, &app.PersonalInfo); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(employmentJSON, &app.Employment); err != nil {
		return nil, err
	}
	switch app.LoanPurpose {
	case models.PurposeRent:
		app.RentDetails = &models.RentLoanDetails{}
		err = json.Unmarshal(detailsJSON, app.RentDetails)
	case models.PurposeLand:
		app.LandDetails = &models.LandLoanDetails{}
		err = json.Unmarshal(detailsJSON, app.LandDetails)
	}
	if err != nil {
		return nil, err
	}
	if len(documentsJSON) > 0 {
		if err := json.Unmarshal(documentsJSON, &app.Documents); err != nil {
			return nil, err
		}
	}

	return app, nil
}

func (rs *ReviewService) sendReviewError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		SendErrorResponse(w, "Application not found", http.StatusNotFound, nil)
	case errors.Is(err, ErrInvalidTransition):
		SendErrorResponse(w, "Invalid status transition", http.StatusConflict, nil)
	default:
		log.Printf("[REVIEW] %s: %v", fallback, err)
		SendErrorResponse(w, fallback, http.StatusInternalServerError, nil)
	}
}
