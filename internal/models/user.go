package models

import "time"

const (
	RoleApplicant = "applicant"
	RoleAdmin     = "admin"
)

type User struct {
	ID          int    `json:"id" example:"1"`                       // User ID
	Email       string `json:"email" example:"user@example.com"`     // Canonical account email
	FirstName   string `json:"firstName" example:"Adaeze"`           // User first name
	LastName    string `json:"lastName" example:"Okafor"`            // User last name
	PhoneNumber string `json:"phoneNumber" example:"+2348012345678"` // Phone number
	BVN         string `json:"bvn" example:"22123456789"`            // Bank Verification Number
	NIN         string `json:"nin" example:"12345678901"`            // National Identification Number
	Role        string `json:"role" example:"applicant"`             // applicant or admin
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}
