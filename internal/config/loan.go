package config

import (
	"os"
	"strconv"
	"strings"
)

// LoanConfig carries the published product rules: amount bounds per purpose,
// the allowed rent durations, and the required KYC document set per purpose.
type LoanConfig struct {
	RentMinAmount        int64
	RentMaxAmount        int64
	LandMinAmount        int64
	LandMaxAmount        int64
	AllowedRentDurations []int
	RentDocuments        []string
	LandDocuments        []string
	MaxUploadBytes       int64
	DocumentStoreDir     string
}

func LoadLoanConfig() *LoanConfig {
	return &LoanConfig{
		RentMinAmount:        getEnvAsInt64("LOAN_RENT_MIN_AMOUNT", 500_000),
		RentMaxAmount:        getEnvAsInt64("LOAN_RENT_MAX_AMOUNT", 5_000_000),
		LandMinAmount:        getEnvAsInt64("LOAN_LAND_MIN_AMOUNT", 2_000_000),
		LandMaxAmount:        getEnvAsInt64("LOAN_LAND_MAX_AMOUNT", 10_000_000),
		AllowedRentDurations: getEnvAsIntList("LOAN_RENT_DURATIONS", []int{6, 12, 18, 24}),
		RentDocuments: getEnvAsList("LOAN_RENT_DOCUMENTS", []string{
			"government_id", "proof_of_income", "bank_statement", "tenancy_agreement",
		}),
		LandDocuments: getEnvAsList("LOAN_LAND_DOCUMENTS", []string{
			"government_id", "proof_of_income", "bank_statement", "land_title_document",
		}),
		MaxUploadBytes:   getEnvAsInt64("DOCUMENT_MAX_UPLOAD_BYTES", 5*1024*1024),
		DocumentStoreDir: getEnv("DOCUMENT_STORE_DIR", "./storage/documents"),
	}
}

// RequiredDocuments returns the document-type set for a purpose. Unknown
// purposes get an empty set so validators report every upload as unexpected.
func (c *LoanConfig) RequiredDocuments(purpose string) []string {
	switch purpose {
	case "rent":
		return c.RentDocuments
	case "land":
		return c.LandDocuments
	}
	return nil
}

func (c *LoanConfig) IsRequiredDocument(purpose, docType string) bool {
	for _, d := range c.RequiredDocuments(purpose) {
		if d == docType {
			return true
		}
	}
	return false
}

func (c *LoanConfig) IsAllowedRentDuration(months int) bool {
	for _, d := range c.AllowedRentDurations {
		if d == months {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}

func getEnvAsIntList(key string, defaultVal []int) []int {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]int, 0, len(parts))
		for _, p := range parts {
			if intVal, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
				out = append(out, intVal)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}
