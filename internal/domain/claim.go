// Package domain defines the core types and interfaces for Egret.
package domain

import (
	"time"
)

// Category classifies an OPD claim for sub-limit purposes.
type Category string

const (
	CategoryConsultation        Category = "consultation"
	CategoryDiagnostic          Category = "diagnostic"
	CategoryPharmacy            Category = "pharmacy"
	CategoryDental              Category = "dental"
	CategoryVision              Category = "vision"
	CategoryAlternativeMedicine Category = "alternative_medicine"
)

// ClaimRequest is a claim submission ready for adjudication.
// Dates are ISO strings (YYYY-MM-DD); unparseable dates are a terminal
// input error handled by the eligibility stage, not a panic.
type ClaimRequest struct {
	MemberID      string  `json:"memberId"`
	MemberName    string  `json:"memberName"`
	TreatmentDate string  `json:"treatmentDate"`
	ClaimAmount   float64 `json:"claimAmount"`
	Hospital      string  `json:"hospital,omitempty"`

	// CashlessRequest asks for direct settlement with the provider.
	CashlessRequest bool `json:"cashlessRequest"`

	// Category is optional; inferred by the coverage stage when empty.
	Category Category `json:"category,omitempty"`

	// PreAuthObtained indicates insurer pre-authorization was granted
	// before treatment.
	PreAuthObtained bool `json:"preAuthObtained"`

	// Extracted holds the structured output of the upstream document
	// extraction service. The pipeline never parses raw documents.
	Extracted ExtractedDocumentData `json:"extracted"`

	// MemberJoinDate is optional; defaults to one year before the
	// treatment date when absent (long-standing member assumption).
	MemberJoinDate string `json:"memberJoinDate,omitempty"`

	// Prior-claims counters, supplied by the caller or filled in from
	// the member history service.
	PriorSameDayClaims int     `json:"priorSameDayClaims"`
	PriorApprovedYTD   float64 `json:"priorApprovedYtd"`
}

// ExtractedDocumentData is the structured extraction result for the
// prescription and bill attached to a claim.
type ExtractedDocumentData struct {
	Diagnosis  string   `json:"diagnosis"`
	Medicines  []string `json:"medicines,omitempty"`
	Tests      []string `json:"tests,omitempty"`
	Procedures []string `json:"procedures,omitempty"`
	Treatments []string `json:"treatments,omitempty"`

	// Per-category billed amounts.
	ConsultationFee  float64 `json:"consultationFee"`
	DiagnosticAmount float64 `json:"diagnosticAmount"`
	PharmacyAmount   float64 `json:"pharmacyAmount"`
	ProcedureAmount  float64 `json:"procedureAmount"`

	// LineItems maps bill line descriptions to billed amounts. Used to
	// price excluded items when computing the eligible amount.
	LineItems map[string]float64 `json:"lineItems,omitempty"`

	DoctorName         string `json:"doctorName,omitempty"`
	DoctorRegistration string `json:"doctorRegistration,omitempty"`
	HospitalName       string `json:"hospitalName,omitempty"`

	HasPrescription bool `json:"hasPrescription"`
	HasBill         bool `json:"hasBill"`

	// Confidence reported by the extraction service; 0 means unknown
	// and the synthesizer substitutes its default.
	Confidence float64 `json:"confidence,omitempty"`
}

// Claim is the persisted record of a submitted claim.
type Claim struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`

	Request ClaimRequest `json:"request"`

	Status    Decision  `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusSubmitted is the claim status before adjudication completes.
// Replaced by the decision once the pipeline rules on the claim.
const StatusSubmitted Decision = "SUBMITTED"

// Appeal is a member request to re-open a decided claim.
type Appeal struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	ClaimID   string    `json:"claimId"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"` // "PENDING", "UNDER_REVIEW", "RESOLVED"
	CreatedAt time.Time `json:"createdAt"`
}

// Appeal status values.
const (
	AppealPending     = "PENDING"
	AppealUnderReview = "UNDER_REVIEW"
	AppealResolved    = "RESOLVED"
)

// DefaultJoinDate returns the join date to assume when a submission
// omits one: one year before the treatment date.
func DefaultJoinDate(treatment time.Time) time.Time {
	return treatment.AddDate(-1, 0, 0)
}
