package models

import "time"

// LoanPurpose selects which loan-detail schema and document set apply.
// Fixed at draft creation, never changed by a merge.
type LoanPurpose string

const (
	PurposeRent LoanPurpose = "rent"
	PurposeLand LoanPurpose = "land"
)

func (p LoanPurpose) Valid() bool {
	return p == PurposeRent || p == PurposeLand
}

// PersonalInfo is the applicant identity section of a draft.
type PersonalInfo struct {
	FullName           string `json:"fullName" example:"Adaeze Okafor"`
	Email              string `json:"email" example:"adaeze@example.com"`
	PhoneNumber        string `json:"phoneNumber" example:"+2348012345678"`
	DateOfBirth        string `json:"dateOfBirth" example:"1992-04-15"`
	Gender             string `json:"gender" example:"female"`
	MaritalStatus      string `json:"maritalStatus" example:"married"`
	NumberOfDependents int    `json:"numberOfDependents" example:"2"`
	NIN                string `json:"nin" example:"12345678901"`
	BVN                string `json:"bvn" example:"22123456789"`
}

// Employment is the income section of a draft.
type Employment struct {
	EmploymentStatus string  `json:"employmentStatus" example:"employed"`
	Employer         string  `json:"employer" example:"Zenith Bank Plc"`
	JobTitle         string  `json:"jobTitle" example:"Operations Analyst"`
	MonthlyIncome    float64 `json:"monthlyIncome" example:"450000"`
	YearsEmployed    float64 `json:"yearsEmployed" example:"3.5"`
	OfficeAddress    string  `json:"officeAddress" example:"84 Adeola Odeku St, Victoria Island, Lagos"`
	EmployerPhone    string  `json:"employerPhone,omitempty" example:"+2349087654321"`
}

// PartyInfo identifies a landlord or a developer/seller.
type PartyInfo struct {
	Name  string `json:"name" example:"Chief E. Balogun"`
	Phone string `json:"phone" example:"+2348023456789"`
	Email string `json:"email" example:"ebalogun@example.com"`
}

// BankDetails is the payout account of a landlord or developer/seller.
type BankDetails struct {
	AccountNumber string `json:"accountNumber" example:"0123456789"`
	BankName      string `json:"bankName" example:"GTBank"`
	AccountName   string `json:"accountName" example:"E. Balogun"`
}

// RentLoanDetails is the purpose-specific section for rent advance loans.
// Amounts are in naira.
type RentLoanDetails struct {
	DesiredLoanAmount           int64       `json:"desiredLoanAmount" example:"1500000"`
	AnnualRentAmount            int64       `json:"annualRentAmount" example:"1800000"`
	PropertyAddress             string      `json:"propertyAddress" example:"12 Allen Avenue, Ikeja, Lagos"`
	LandlordInfo                PartyInfo   `json:"landlordInfo"`
	LandlordBankDetails         BankDetails `json:"landlordBankDetails"`
	RentDurationMonths          int         `json:"rentDuration" example:"12"`
	PreferredRepaymentStartDate string      `json:"preferredRepaymentStartDate" example:"2026-10-01"`
}

// LandLoanDetails is the purpose-specific section for land purchase loans.
type LandLoanDetails struct {
	DesiredLoanAmount           int64       `json:"desiredLoanAmount" example:"4000000"`
	TotalLandCost               int64       `json:"totalLandCost" example:"6500000"`
	LandLocation                string      `json:"landLocation" example:"Epe, Lagos State"`
	LandSize                    string      `json:"landSize" example:"600sqm"`
	PurchaseTimeline            string      `json:"purchaseTimeline" example:"3 months"`
	PreferredRepaymentStartDate string      `json:"preferredRepaymentStartDate" example:"2026-11-01"`
	DeveloperSellerInfo         PartyInfo   `json:"developerSellerInfo"`
	DeveloperSellerBankDetails  BankDetails `json:"developerSellerBankDetails"`
}

// Draft is a mutable, partially complete loan application. Sections are
// pointers: nil means the applicant has not saved that section yet. A draft is
// never required to be internally consistent before submission time.
type Draft struct {
	DraftID             string              `json:"draftId" example:"6f1c2a7e-0b9d-4e53-9a6b-2f8d4c1e7a90"`
	OwnerID             string              `json:"ownerId" example:"42"`
	LoanPurpose         LoanPurpose         `json:"loanPurpose" example:"rent"`
	CurrentStep         int                 `json:"currentStep" example:"3"`
	PersonalInfo        *PersonalInfo       `json:"personalInfo,omitempty"`
	Employment          *Employment         `json:"employment,omitempty"`
	RentLoanDetails     *RentLoanDetails    `json:"rentLoanDetails,omitempty"`
	LandLoanDetails     *LandLoanDetails    `json:"landLoanDetails,omitempty"`
	Documents           map[string]Document `json:"documents"`
	TermsAccepted       bool                `json:"termsAccepted"`
	DeclarationAccepted bool                `json:"declarationAccepted"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}
