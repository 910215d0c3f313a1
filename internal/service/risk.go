package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/reference"
)

const (
	// MLEvidencePenalty is subtracted from the base confidence whenever any
	// diplotype allele was resolved by the classifier instead of the curated
	// table. Model-derived evidence must report strictly lower confidence
	// than the equivalent curated call.
	MLEvidencePenalty = 0.10

	// guidelineAbsentConfidence is reported when no decision-table row covers
	// the (drug, gene, phenotype) combination. The label defaults to Safe but
	// is explicitly flagged as not guideline-asserted.
	guidelineAbsentConfidence = 0.30

	// minConfidence keeps the reported score inside (0, 1] after penalties.
	minConfidence = 0.05

	// criticalThreshold escalates Toxic/Ineffective calls to critical.
	criticalThreshold = 0.80
)

// RiskClassifier maps a gene diplotype's phenotype to a per-drug risk
// assessment via the curated decision table.
type RiskClassifier struct {
	store  *reference.Store
	logger *logrus.Logger
}

// NewRiskClassifier creates a classifier over the shared store.
func NewRiskClassifier(store *reference.Store, logger *logrus.Logger) *RiskClassifier {
	return &RiskClassifier{store: store, logger: logger}
}

// Assess produces the risk assessment for one drug against an assembled,
// phenotyped diplotype. A missing decision-table row is never fatal: the
// assessment defaults to Safe at reduced confidence with GuidelineAbsent set.
func (c *RiskClassifier) Assess(drug string, d *domain.GeneDiplotype) *domain.RiskAssessment {
	ra := &domain.RiskAssessment{
		Drug:      domain.NormalizeDrug(drug),
		Gene:      d.Gene,
		Diplotype: d.String(),
		Phenotype: d.Phenotype,
	}

	rule := c.store.Rule(drug, d.Gene, d.Phenotype)
	if rule == nil {
		ra.RiskLabel = domain.RiskSafe
		ra.Confidence = guidelineAbsentConfidence
		ra.GuidelineAbsent = true
		ra.Recommendation = fmt.Sprintf(
			"No curated guideline covers %s with %s %s (%s). Standard dosing with routine clinical monitoring.",
			domain.DisplayDrug(drug), d.Gene, d.Phenotype.Description(), d.String())
		c.logger.WithFields(logrus.Fields{
			"drug":      ra.Drug,
			"gene":      d.Gene,
			"phenotype": d.Phenotype,
		}).Warn("No decision-table rule matched, defaulting to Safe with reduced confidence")
	} else {
		ra.RiskLabel = rule.Label
		ra.Confidence = rule.Confidence
		ra.GuidelineSource = reference.GuidelineCPIC
		ra.Recommendation = rule.Recommendation
	}

	if d.HasModelEvidence() {
		ra.Confidence -= MLEvidencePenalty
	}
	if ra.Confidence < minConfidence {
		ra.Confidence = minConfidence
	}

	ra.Severity = severityFor(ra.RiskLabel, ra.Confidence)
	return ra
}

// severityFor derives clinical urgency from the label and final confidence.
func severityFor(label domain.RiskLabel, confidence float64) domain.Severity {
	switch label {
	case domain.RiskToxic, domain.RiskIneffective:
		if confidence >= criticalThreshold {
			return domain.SeverityCritical
		}
		return domain.SeverityHigh
	case domain.RiskAdjust:
		return domain.SeverityModerate
	default:
		return domain.SeverityLow
	}
}
