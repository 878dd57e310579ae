package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shelterfund/backend/internal/models"
)

// Lifecycle errors. These are the only failure modes the origination engine
// reports to callers; none of them is swallowed or retried internally.
var (
	ErrNotFound           = errors.New("record not found")
	ErrAlreadySubmitted   = errors.New("draft already submitted")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrStorageUnavailable = errors.New("document storage unavailable")
)

// ValidationFailedError carries the per-section missing/invalid field names
// that block a promotion.
type ValidationFailedError struct {
	Sections map[string][]string
}

func (e *ValidationFailedError) Error() string {
	var parts []string
	for section, fields := range e.Sections {
		parts = append(parts, fmt.Sprintf("%s: %s", section, strings.Join(fields, ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PromoteDraft freezes a validated draft into an immutable application with
// status submitted. It is pure: the caller is responsible for persisting the
// application and retiring the draft in one storage transaction. The draft's
// document map becomes an ordered list, sorted by document type.
func PromoteDraft(sv *SectionValidators, draft *models.Draft, ownerEmail string, now time.Time) (*models.Application, error) {
	if result := sv.Validate(draft, ownerEmail); !result.Complete() {
		return nil, &ValidationFailedError{Sections: result.Sections}
	}

	app := &models.Application{
		ApplicationID: newApplicationID(),
		OwnerID:       draft.OwnerID,
		LoanPurpose:   draft.LoanPurpose,
		PersonalInfo:  *draft.PersonalInfo,
		Employment:    *draft.Employment,
		Documents:     orderedDocuments(draft.Documents),
		Status:        models.StatusSubmitted,
		SubmittedAt:   now,
	}

	switch draft.LoanPurpose {
	case models.PurposeRent:
		details := *draft.RentLoanDetails
		app.RentDetails = &details
	case models.PurposeLand:
		details := *draft.LandLoanDetails
		app.LandDetails = &details
	}

	return app, nil
}

// Transition validates and applies an administrative status change in memory.
// The caller persists the result; races are resolved by the store's guarded
// update, not here.
func Transition(app *models.Application, next models.Status, note, adminID string, now time.Time) error {
	if !app.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}

	if next == models.StatusRejected && strings.TrimSpace(note) == "" {
		return fmt.Errorf("%w: rejection requires a note", ErrInvalidTransition)
	}

	app.Status = next
	if next.Terminal() {
		app.DecisionNote = note
		app.DecidedAt = &now
		app.DecidedBy = adminID
	}
	return nil
}

func newApplicationID() string {
	id := uuid.New().String()
	return "APP-" + strings.ToUpper(id[:8])
}

func orderedDocuments(docs map[string]models.Document) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DocumentType < out[j].DocumentType
	})
	return out
}
