package domain

import (
	"errors"
	"fmt"
)

// HaplotypeCall is one resolved allele on one chromosomal copy of a gene.
type HaplotypeCall struct {
	StarAllele    string           `json:"star_allele"`
	FunctionClass FunctionClass    `json:"function_class"`
	Activity      float64          `json:"activity"`
	Source        ResolutionSource `json:"source"`
	RSID          string           `json:"rsid,omitempty"`
}

// GeneDiplotype is the pair of resolved alleles for one gene in one patient,
// with the combined activity score and inferred phenotype. Built fresh per
// request; never persisted.
type GeneDiplotype struct {
	Gene          string        `json:"gene"`
	Haplotype0    HaplotypeCall `json:"haplotype_0"`
	Haplotype1    HaplotypeCall `json:"haplotype_1"`
	ActivityScore float64       `json:"activity_score"`
	Phenotype     PhenotypeCode `json:"phenotype_code"`

	// Detected holds every PGx-relevant variant that contributed evidence
	// for this gene, with its resolution provenance intact.
	Detected []AnnotatedVariant `json:"detected_variants,omitempty"`
}

// String renders the conventional diplotype notation, e.g. "*1/*4".
func (d *GeneDiplotype) String() string {
	return fmt.Sprintf("%s/%s", d.Haplotype0.StarAllele, d.Haplotype1.StarAllele)
}

// HasModelEvidence reports whether either allele was resolved by the neural
// classifier rather than the curated table. Model-derived evidence must
// provably reduce reported confidence downstream.
func (d *GeneDiplotype) HasModelEvidence() bool {
	return d.Haplotype0.Source == ResolvedByModel || d.Haplotype1.Source == ResolvedByModel
}

// Validate enforces the two-allele diploid invariant.
func (d *GeneDiplotype) Validate() error {
	if d.Gene == "" {
		return fmt.Errorf("diplotype validation: %w", errors.New("gene symbol is required"))
	}
	if d.Haplotype0.StarAllele == "" || d.Haplotype1.StarAllele == "" {
		return fmt.Errorf("diplotype validation: %w", errors.New("exactly two alleles are required"))
	}
	if !d.Haplotype0.FunctionClass.IsValid() || !d.Haplotype1.FunctionClass.IsValid() {
		return fmt.Errorf("diplotype validation: %w", ErrInvalidFunctionClass)
	}
	if d.Phenotype != "" && !d.Phenotype.IsValid() {
		return fmt.Errorf("diplotype validation: %w", ErrInvalidPhenotype)
	}
	return nil
}

// RiskAssessment is the per-(patient, drug) risk classification output.
type RiskAssessment struct {
	Drug            string        `json:"drug"`
	Gene            string        `json:"gene"`
	Diplotype       string        `json:"diplotype"`
	Phenotype       PhenotypeCode `json:"phenotype_code"`
	RiskLabel       RiskLabel     `json:"risk_label"`
	Severity        Severity      `json:"severity"`
	Confidence      float64       `json:"confidence_score"` // in [0,1]
	GuidelineSource string        `json:"guideline_source"`
	GuidelineAbsent bool          `json:"guideline_absent"` // no curated rule matched; label defaulted, not asserted
	Recommendation  string        `json:"recommendation"`
}

// Validate ensures the assessment satisfies the output contract.
func (ra *RiskAssessment) Validate() error {
	if !ra.RiskLabel.IsValid() {
		return fmt.Errorf("risk assessment validation: %w", ErrInvalidRiskLabel)
	}
	if !ra.Severity.IsValid() {
		return fmt.Errorf("risk assessment validation: %w", ErrInvalidSeverity)
	}
	if ra.Confidence < 0 || ra.Confidence > 1 {
		return fmt.Errorf("risk assessment validation: confidence %.4f out of [0,1]", ra.Confidence)
	}
	return nil
}
