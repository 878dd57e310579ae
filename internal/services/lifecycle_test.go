package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shelterfund/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoteDraft(t *testing.T) {
	sv := NewSectionValidators(testLoanConfig())
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	t.Run("valid rent draft promotes to submitted application", func(t *testing.T) {
		draft := completeRentDraft()

		app, err := PromoteDraft(sv, draft, testOwnerEmail, now)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(app.ApplicationID, "APP-"))
		assert.Len(t, app.ApplicationID, 12)
		assert.Equal(t, draft.OwnerID, app.OwnerID)
		assert.Equal(t, models.StatusSubmitted, app.Status)
		assert.Equal(t, now, app.SubmittedAt)
		assert.Equal(t, *draft.PersonalInfo, app.PersonalInfo)
		require.NotNil(t, app.RentDetails)
		assert.Nil(t, app.LandDetails)
		assert.Equal(t, int64(1_500_000), app.DesiredLoanAmount())
	})

	t.Run("valid land draft carries land details", func(t *testing.T) {
		app, err := PromoteDraft(sv, completeLandDraft(), testOwnerEmail, now)
		require.NoError(t, err)

		require.NotNil(t, app.LandDetails)
		assert.Nil(t, app.RentDetails)
		assert.Equal(t, int64(4_000_000), app.DesiredLoanAmount())
	})

	t.Run("documents become a deterministically ordered list", func(t *testing.T) {
		app, err := PromoteDraft(sv, completeRentDraft(), testOwnerEmail, now)
		require.NoError(t, err)

		require.Len(t, app.Documents, 4)
		types := make([]string, len(app.Documents))
		for i, d := range app.Documents {
			types[i] = d.DocumentType
		}
		assert.Equal(t, []string{"bank_statement", "government_id", "proof_of_income", "tenancy_agreement"}, types)
	})

	t.Run("incomplete draft yields validation failure", func(t *testing.T) {
		draft := completeRentDraft()
		draft.TermsAccepted = false
		draft.RentLoanDetails.DesiredLoanAmount = 6_000_000

		app, err := PromoteDraft(sv, draft, testOwnerEmail, now)
		assert.Nil(t, app)

		var vfe *ValidationFailedError
		require.ErrorAs(t, err, &vfe)
		assert.Contains(t, vfe.Sections[SectionConsent], "termsAccepted")
		assert.Contains(t, vfe.Sections[SectionLoanDetails], "loanDetails.desiredLoanAmount")
	})

	t.Run("application is detached from the draft", func(t *testing.T) {
		draft := completeRentDraft()
		app, err := PromoteDraft(sv, draft, testOwnerEmail, now)
		require.NoError(t, err)

		draft.PersonalInfo.FullName = "Changed After Promotion"
		draft.RentLoanDetails.DesiredLoanAmount = 999

		assert.Equal(t, "Adaeze Okafor", app.PersonalInfo.FullName)
		assert.Equal(t, int64(1_500_000), app.RentDetails.DesiredLoanAmount)
	})
}

func TestTransition(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	newApp := func(status models.Status) *models.Application {
		return &models.Application{
			ApplicationID: "APP-9F2C1B3A",
			OwnerID:       "42",
			Status:        status,
		}
	}

	t.Run("submitted to under_review", func(t *testing.T) {
		app := newApp(models.StatusSubmitted)
		require.NoError(t, Transition(app, models.StatusUnderReview, "", "admin-1", now))
		assert.Equal(t, models.StatusUnderReview, app.Status)
		assert.Nil(t, app.DecidedAt)
	})

	t.Run("under_review to approved records decision fields", func(t *testing.T) {
		app := newApp(models.StatusUnderReview)
		require.NoError(t, Transition(app, models.StatusApproved, "income verified", "admin-1", now))
		assert.Equal(t, models.StatusApproved, app.Status)
		assert.Equal(t, "income verified", app.DecisionNote)
		require.NotNil(t, app.DecidedAt)
		assert.Equal(t, now, *app.DecidedAt)
		assert.Equal(t, "admin-1", app.DecidedBy)
	})

	t.Run("direct rejection from submitted", func(t *testing.T) {
		app := newApp(models.StatusSubmitted)
		require.NoError(t, Transition(app, models.StatusRejected, "income below threshold", "admin-2", now))
		assert.Equal(t, models.StatusRejected, app.Status)
	})

	t.Run("rejection requires a note", func(t *testing.T) {
		app := newApp(models.StatusUnderReview)
		err := Transition(app, models.StatusRejected, "   ", "admin-2", now)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
		assert.Equal(t, models.StatusUnderReview, app.Status)
	})

	t.Run("approval note is optional", func(t *testing.T) {
		app := newApp(models.StatusSubmitted)
		require.NoError(t, Transition(app, models.StatusApproved, "", "admin-1", now))
		assert.Equal(t, models.StatusApproved, app.Status)
		assert.Empty(t, app.DecisionNote)
	})

	t.Run("terminal states admit nothing", func(t *testing.T) {
		for _, terminal := range []models.Status{models.StatusApproved, models.StatusRejected} {
			for _, next := range []models.Status{models.StatusSubmitted, models.StatusUnderReview, models.StatusApproved, models.StatusRejected} {
				app := newApp(terminal)
				err := Transition(app, next, "note", "admin-1", now)
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s should be rejected", terminal, next)
				assert.Equal(t, terminal, app.Status)
			}
		}
	})

	t.Run("under_review cannot go back to submitted", func(t *testing.T) {
		app := newApp(models.StatusUnderReview)
		assert.ErrorIs(t, Transition(app, models.StatusSubmitted, "", "admin-1", now), ErrInvalidTransition)
	})
}

func TestStatusEnum(t *testing.T) {
	t.Run("parse accepts only known states", func(t *testing.T) {
		for _, valid := range []string{"submitted", "under_review", "approved", "rejected"} {
			status, ok := models.ParseStatus(valid)
			assert.True(t, ok)
			assert.Equal(t, valid, string(status))
		}

		_, ok := models.ParseStatus("draft")
		assert.False(t, ok)
		_, ok = models.ParseStatus("")
		assert.False(t, ok)
	})

	t.Run("terminal detection", func(t *testing.T) {
		assert.False(t, models.StatusSubmitted.Terminal())
		assert.False(t, models.StatusUnderReview.Terminal())
		assert.True(t, models.StatusApproved.Terminal())
		assert.True(t, models.StatusRejected.Terminal())
	})
}
