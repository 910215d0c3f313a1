// Package feedback stores clinician feedback on drug risk assessments. A
// reviewing clinician records whether they agreed with the reported risk
// label for a patient-drug pair; disagreements feed guideline-table review.
package feedback

import (
	"context"
	"io"
	"time"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

// Feedback is one clinician review of a risk assessment.
type Feedback struct {
	ID            int64                `json:"id,omitempty"`
	PatientID     string               `json:"patient_id"`
	Drug          string               `json:"drug"` // normalized (uppercase)
	Gene          string               `json:"gene"`
	Diplotype     string               `json:"diplotype"`
	Phenotype     domain.PhenotypeCode `json:"phenotype_code"`
	ReportedRisk  domain.RiskLabel     `json:"reported_risk"`  // system's label
	ClinicianRisk domain.RiskLabel     `json:"clinician_risk"` // reviewer's call
	Agreed        bool                 `json:"agreed"`
	Notes         string               `json:"notes,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Validate checks the fields a review must carry before storage.
func (f *Feedback) Validate() error {
	if f.PatientID == "" || f.Drug == "" {
		return errMissingKey
	}
	if !f.ReportedRisk.IsValid() || !f.ClinicianRisk.IsValid() {
		return domain.ErrInvalidRiskLabel
	}
	return nil
}

// Store defines feedback storage operations.
type Store interface {
	// Save stores or updates a review. One review per (patient, drug):
	// resubmitting replaces the earlier one.
	Save(ctx context.Context, fb *Feedback) error

	// Get retrieves the review for a patient-drug pair, nil when absent.
	Get(ctx context.Context, patientID, drug string) (*Feedback, error)

	// List returns reviews newest-first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of stored reviews.
	Count(ctx context.Context) (int64, error)

	// Delete removes a review by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON writes every review as a versioned JSON document.
	ExportJSON(ctx context.Context, w io.Writer) error

	// ImportJSON loads reviews from an export, skipping pairs already stored.
	ImportJSON(ctx context.Context, r io.Reader) (imported, skipped int, err error)

	// Close releases the underlying database.
	Close() error
}

// Export is the versioned JSON export envelope.
type Export struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}
