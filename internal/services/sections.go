package services

import (
	"regexp"
	"strings"

	"github.com/shelterfund/backend/internal/config"
	"github.com/shelterfund/backend/internal/models"
)

// Section keys used in validation results and ValidationFailed payloads.
const (
	SectionPersonalInfo = "personalInfo"
	SectionEmployment   = "employment"
	SectionLoanDetails  = "loanDetails"
	SectionDocuments    = "documents"
	SectionConsent      = "consent"
)

var (
	emailRegex    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	ngPhoneRegex  = regexp.MustCompile(`^(?:\+234|0)[789][01][0-9]{8}$`)
	digits11Regex = regexp.MustCompile(`^[0-9]{11}$`)
)

// SectionValidators holds the pure completeness predicates that gate step
// progression and final submission. Every predicate tolerates a nil or
// partial section and returns the missing/invalid dotted field names instead
// of erroring.
type SectionValidators struct {
	config *config.LoanConfig
}

func NewSectionValidators(cfg *config.LoanConfig) *SectionValidators {
	return &SectionValidators{config: cfg}
}

// ValidationResult maps section key to the fields still missing or invalid.
// Complete sections are absent from the map.
type ValidationResult struct {
	Sections map[string][]string
}

func (r ValidationResult) Complete() bool {
	return len(r.Sections) == 0
}

// Validate runs all five section validators. ownerEmail, when non-empty, is
// the account's canonical email: a draft whose personal info diverges from it
// can never be submitted, no matter what the client sent.
func (sv *SectionValidators) Validate(draft *models.Draft, ownerEmail string) ValidationResult {
	result := ValidationResult{Sections: make(map[string][]string)}

	checks := map[string][]string{
		SectionPersonalInfo: sv.PersonalInfoComplete(draft, ownerEmail),
		SectionEmployment:   sv.EmploymentComplete(draft),
		SectionLoanDetails:  sv.LoanDetailsComplete(draft),
		SectionDocuments:    sv.DocumentsComplete(draft),
		SectionConsent:      sv.ConsentComplete(draft),
	}

	for section, missing := range checks {
		if len(missing) > 0 {
			result.Sections[section] = missing
		}
	}
	return result
}

// IsSubmittable is the single gate checked before promotion.
func (sv *SectionValidators) IsSubmittable(draft *models.Draft, ownerEmail string) bool {
	return sv.Validate(draft, ownerEmail).Complete()
}

func (sv *SectionValidators) PersonalInfoComplete(draft *models.Draft, ownerEmail string) []string {
	var missing []string

	info := draft.PersonalInfo
	if info == nil {
		return []string{
			"personalInfo.fullName", "personalInfo.email", "personalInfo.phoneNumber",
			"personalInfo.dateOfBirth", "personalInfo.gender", "personalInfo.maritalStatus",
		}
	}

	if strings.TrimSpace(info.FullName) == "" {
		missing = append(missing, "personalInfo.fullName")
	}
	if !emailRegex.MatchString(info.Email) {
		missing = append(missing, "personalInfo.email")
	} else if ownerEmail != "" && !strings.EqualFold(info.Email, ownerEmail) {
		// The account's verified email is canonical; a diverging draft email
		// is rejected at submission even if the UI never allowed the edit.
		missing = append(missing, "personalInfo.email")
	}
	if !ngPhoneRegex.MatchString(info.PhoneNumber) {
		missing = append(missing, "personalInfo.phoneNumber")
	}
	if strings.TrimSpace(info.DateOfBirth) == "" {
		missing = append(missing, "personalInfo.dateOfBirth")
	}
	if strings.TrimSpace(info.Gender) == "" {
		missing = append(missing, "personalInfo.gender")
	}
	if strings.TrimSpace(info.MaritalStatus) == "" {
		missing = append(missing, "personalInfo.maritalStatus")
	}

	return missing
}

func (sv *SectionValidators) EmploymentComplete(draft *models.Draft) []string {
	var missing []string

	emp := draft.Employment
	if emp == nil {
		return []string{
			"employment.employmentStatus", "employment.employer", "employment.jobTitle",
			"employment.monthlyIncome", "employment.yearsEmployed", "employment.officeAddress",
		}
	}

	if strings.TrimSpace(emp.EmploymentStatus) == "" {
		missing = append(missing, "employment.employmentStatus")
	}
	if strings.TrimSpace(emp.Employer) == "" {
		missing = append(missing, "employment.employer")
	}
	if strings.TrimSpace(emp.JobTitle) == "" {
		missing = append(missing, "employment.jobTitle")
	}
	if emp.MonthlyIncome <= 0 {
		missing = append(missing, "employment.monthlyIncome")
	}
	if emp.YearsEmployed < 0 {
		missing = append(missing, "employment.yearsEmployed")
	}
	if strings.TrimSpace(emp.OfficeAddress) == "" {
		missing = append(missing, "employment.officeAddress")
	}

	return missing
}

func (sv *SectionValidators) LoanDetailsComplete(draft *models.Draft) []string {
	switch draft.LoanPurpose {
	case models.PurposeRent:
		return sv.rentDetailsComplete(draft.RentLoanDetails)
	case models.PurposeLand:
		return sv.landDetailsComplete(draft.LandLoanDetails)
	}
	return []string{"loanDetails"}
}

func (sv *SectionValidators) rentDetailsComplete(d *models.RentLoanDetails) []string {
	if d == nil {
		return []string{"loanDetails"}
	}

	var missing []string
	if d.DesiredLoanAmount < sv.config.RentMinAmount || d.DesiredLoanAmount > sv.config.RentMaxAmount {
		missing = append(missing, "loanDetails.desiredLoanAmount")
	}
	if d.AnnualRentAmount <= 0 {
		missing = append(missing, "loanDetails.annualRentAmount")
	}
	if strings.TrimSpace(d.PropertyAddress) == "" {
		missing = append(missing, "loanDetails.propertyAddress")
	}
	missing = append(missing, partyFields("loanDetails.landlordInfo", d.LandlordInfo)...)
	missing = append(missing, bankFields("loanDetails.landlordBankDetails", d.LandlordBankDetails)...)
	if !sv.config.IsAllowedRentDuration(d.RentDurationMonths) {
		missing = append(missing, "loanDetails.rentDuration")
	}
	if strings.TrimSpace(d.PreferredRepaymentStartDate) == "" {
		missing = append(missing, "loanDetails.preferredRepaymentStartDate")
	}
	return missing
}

func (sv *SectionValidators) landDetailsComplete(d *models.LandLoanDetails) []string {
	if d == nil {
		return []string{"loanDetails"}
	}

	var missing []string
	if d.DesiredLoanAmount < sv.config.LandMinAmount || d.DesiredLoanAmount > sv.config.LandMaxAmount {
		missing = append(missing, "loanDetails.desiredLoanAmount")
	}
	if d.TotalLandCost <= 0 {
		missing = append(missing, "loanDetails.totalLandCost")
	}
	if strings.TrimSpace(d.LandLocation) == "" {
		missing = append(missing, "loanDetails.landLocation")
	}
	if strings.TrimSpace(d.LandSize) == "" {
		missing = append(missing, "loanDetails.landSize")
	}
	if strings.TrimSpace(d.PurchaseTimeline) == "" {
		missing = append(missing, "loanDetails.purchaseTimeline")
	}
	if strings.TrimSpace(d.PreferredRepaymentStartDate) == "" {
		missing = append(missing, "loanDetails.preferredRepaymentStartDate")
	}
	missing = append(missing, partyFields("loanDetails.developerSellerInfo", d.DeveloperSellerInfo)...)
	missing = append(missing, bankFields("loanDetails.developerSellerBankDetails", d.DeveloperSellerBankDetails)...)
	return missing
}

func (sv *SectionValidators) DocumentsComplete(draft *models.Draft) []string {
	var missing []string

	for _, docType := range sv.config.RequiredDocuments(string(draft.LoanPurpose)) {
		doc, ok := draft.Documents[docType]
		if !ok || doc.DocumentURL == "" {
			missing = append(missing, "documents."+docType)
		}
	}

	// Identity numbers are verified alongside the KYC documents.
	if draft.PersonalInfo == nil || !digits11Regex.MatchString(draft.PersonalInfo.BVN) {
		missing = append(missing, "personalInfo.bvn")
	}
	if draft.PersonalInfo == nil || !digits11Regex.MatchString(draft.PersonalInfo.NIN) {
		missing = append(missing, "personalInfo.nin")
	}

	return missing
}

func (sv *SectionValidators) ConsentComplete(draft *models.Draft) []string {
	var missing []string
	if !draft.TermsAccepted {
		missing = append(missing, "termsAccepted")
	}
	if !draft.DeclarationAccepted {
		missing = append(missing, "declarationAccepted")
	}
	return missing
}

func partyFields(prefix string, p models.PartyInfo) []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, prefix+".name")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, prefix+".phone")
	}
	if !emailRegex.MatchString(p.Email) {
		missing = append(missing, prefix+".email")
	}
	return missing
}

func bankFields(prefix string, b models.BankDetails) []string {
	var missing []string
	if strings.TrimSpace(b.AccountNumber) == "" {
		missing = append(missing, prefix+".accountNumber")
	}
	if strings.TrimSpace(b.BankName) == "" {
		missing = append(missing, prefix+".bankName")
	}
	if strings.TrimSpace(b.AccountName) == "" {
		missing = append(missing, prefix+".accountName")
	}
	return missing
}
