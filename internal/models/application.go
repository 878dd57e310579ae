package models

import "time"

// Status is the closed set of application states. Transitions are validated
// through CanTransitionTo; handlers and UI layers read the enum and never
// branch on raw strings.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo encodes the full lifecycle:
// submitted -> under_review -> {approved, rejected}, with decisions also
// allowed directly from submitted. Terminal states admit nothing.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusSubmitted:
		return next == StatusUnderReview || next == StatusApproved || next == StatusRejected
	case StatusUnderReview:
		return next == StatusApproved || next == StatusRejected
	default:
		return false
	}
}

// Application is an immutable submission produced by promoting a valid draft.
// Only Status and the decision fields change after creation.
type Application struct {
	ApplicationID string          `json:"applicationId" example:"APP-9F2C1B3A"`
	OwnerID       string          `json:"ownerId" example:"42"`
	LoanPurpose   LoanPurpose     `json:"loanPurpose" example:"rent"`
	PersonalInfo  PersonalInfo    `json:"personalInfo"`
	Employment    Employment      `json:"employment"`
	RentDetails   *RentLoanDetails `json:"rentLoanDetails,omitempty"`
	LandDetails   *LandLoanDetails `json:"landLoanDetails,omitempty"`
	Documents     []Document      `json:"documents"`
	Status        Status          `json:"status" example:"submitted"`
	SubmittedAt   time.Time       `json:"submittedAt"`
	DecisionNote  string          `json:"decisionNote,omitempty"`
	DecidedAt     *time.Time      `json:"decidedAt,omitempty"`
	DecidedBy     string          `json:"decidedBy,omitempty"`
}

// DesiredLoanAmount returns the requested amount from whichever loan-detail
// variant is present.
func (a *Application) DesiredLoanAmount() int64 {
	if a.RentDetails != nil {
		return a.RentDetails.DesiredLoanAmount
	}
	if a.LandDetails != nil {
		return a.LandDetails.DesiredLoanAmount
	}
	return 0
}
