package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/reference"
)

func testRiskClassifier() *RiskClassifier {
	return NewRiskClassifier(reference.NewDefaultStore(), testLogger())
}

func curatedDiplotype(gene, allele0, allele1 string, activity float64, phenotype domain.PhenotypeCode) *domain.GeneDiplotype {
	return &domain.GeneDiplotype{
		Gene: gene,
		Haplotype0: domain.HaplotypeCall{
			StarAllele: allele0, FunctionClass: domain.NormalFunction,
			Activity: activity / 2, Source: domain.WildTypeDefault,
		},
		Haplotype1: domain.HaplotypeCall{
			StarAllele: allele1, FunctionClass: domain.NormalFunction,
			Activity: activity / 2, Source: domain.WildTypeDefault,
		},
		ActivityScore: activity,
		Phenotype:     phenotype,
	}
}

func TestRiskClassifier_GuidelineHit(t *testing.T) {
	c := testRiskClassifier()

	tests := []struct {
		name      string
		drug      string
		diplotype *domain.GeneDiplotype
		wantLabel domain.RiskLabel
		wantConf  float64
		wantSev   domain.Severity
	}{
		{
			name:      "codeine poor metabolizer is ineffective",
			drug:      "codeine",
			diplotype: curatedDiplotype("CYP2D6", "*4", "*4", 0.0, domain.PoorMetabolizer),
			wantLabel: domain.RiskIneffective,
			wantConf:  0.97,
			wantSev:   domain.SeverityCritical,
		},
		{
			name:      "codeine normal metabolizer is safe",
			drug:      "CODEINE",
			diplotype: curatedDiplotype("CYP2D6", "*1", "*1", 2.0, domain.NormalMetabolizer),
			wantLabel: domain.RiskSafe,
			wantConf:  0.95,
			wantSev:   domain.SeverityLow,
		},
		{
			name:      "warfarin intermediate metabolizer needs adjustment",
			drug:      "warfarin",
			diplotype: curatedDiplotype("CYP2C9", "*1", "*3", 1.0, domain.IntermediateMetabolizer),
			wantLabel: domain.RiskAdjust,
			wantConf:  0.90,
			wantSev:   domain.SeverityModerate,
		},
		{
			name:      "azathioprine poor metabolizer is toxic",
			drug:      "azathioprine",
			diplotype: curatedDiplotype("TPMT", "*3A", "*3A", 0.0, domain.PoorMetabolizer),
			wantLabel: domain.RiskToxic,
			wantConf:  0.98,
			wantSev:   domain.SeverityCritical,
		},
		{
			name:      "simvastatin poor function is toxic",
			drug:      "simvastatin",
			diplotype: curatedDiplotype("SLCO1B1", "*5", "*5", 0.0, domain.PoorFunction),
			wantLabel: domain.RiskToxic,
			wantConf:  0.96,
			wantSev:   domain.SeverityCritical,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra := c.Assess(tt.drug, tt.diplotype)
			require.NoError(t, ra.Validate())

			assert.Equal(t, tt.wantLabel, ra.RiskLabel)
			assert.InDelta(t, tt.wantConf, ra.Confidence, 1e-9)
			assert.Equal(t, tt.wantSev, ra.Severity)
			assert.Equal(t, reference.GuidelineCPIC, ra.GuidelineSource)
			assert.False(t, ra.GuidelineAbsent)
			assert.NotEmpty(t, ra.Recommendation)
			assert.Equal(t, domain.NormalizeDrug(tt.drug), ra.Drug)
			assert.Equal(t, tt.diplotype.String(), ra.Diplotype)
		})
	}
}

func TestRiskClassifier_GuidelineAbsentDefaultsToSafe(t *testing.T) {
	c := testRiskClassifier()

	// No curated row covers simvastatin with an enzyme-style phenotype code.
	d := curatedDiplotype("SLCO1B1", "*1", "*1", 2.0, domain.NormalTransport)
	d.Phenotype = domain.UltrarapidMetabolizer

	ra := c.Assess("simvastatin", d)
	require.NoError(t, ra.Validate())

	assert.Equal(t, domain.RiskSafe, ra.RiskLabel)
	assert.True(t, ra.GuidelineAbsent)
	assert.InDelta(t, guidelineAbsentConfidence, ra.Confidence, 1e-9)
	assert.Empty(t, ra.GuidelineSource)
	assert.Equal(t, domain.SeverityLow, ra.Severity)
	assert.Contains(t, ra.Recommendation, "No curated guideline")
}

func TestRiskClassifier_ModelEvidenceLowersConfidence(t *testing.T) {
	c := testRiskClassifier()

	curated := curatedDiplotype("CYP2D6", "*4", "*4", 0.0, domain.PoorMetabolizer)
	raCurated := c.Assess("codeine", curated)

	withModel := curatedDiplotype("CYP2D6", NovelAllele, "*4", 0.0, domain.PoorMetabolizer)
	withModel.Haplotype0.Source = domain.ResolvedByModel
	raModel := c.Assess("codeine", withModel)

	assert.Less(t, raModel.Confidence, raCurated.Confidence)
	assert.InDelta(t, raCurated.Confidence-MLEvidencePenalty, raModel.Confidence, 1e-9)
	// Same label either way; only the confidence moves.
	assert.Equal(t, raCurated.RiskLabel, raModel.RiskLabel)
}

func TestRiskClassifier_SeverityUsesPenalizedConfidence(t *testing.T) {
	c := testRiskClassifier()

	// Clopidogrel IM is Ineffective at 0.88; the model penalty takes the
	// final confidence to 0.78, under the critical threshold.
	d := curatedDiplotype("CYP2C19", NovelAllele, "*1", 1.0, domain.IntermediateMetabolizer)
	d.Haplotype0.Source = domain.ResolvedByModel

	ra := c.Assess("clopidogrel", d)
	assert.Equal(t, domain.RiskIneffective, ra.RiskLabel)
	assert.InDelta(t, 0.78, ra.Confidence, 1e-9)
	assert.Equal(t, domain.SeverityHigh, ra.Severity)
}

func TestRiskClassifier_ConfidenceFloor(t *testing.T) {
	c := testRiskClassifier()

	d := curatedDiplotype("CYP2D6", NovelAllele, "*1", 2.0, domain.NormalMetabolizer)
	d.Phenotype = domain.PhenotypeCode("XX") // force a rule miss
	d.Haplotype0.Source = domain.ResolvedByModel

	ra := c.Assess("codeine", d)
	assert.InDelta(t, guidelineAbsentConfidence-MLEvidencePenalty, ra.Confidence, 1e-9)
	assert.GreaterOrEqual(t, ra.Confidence, minConfidence)
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		label      domain.RiskLabel
		confidence float64
		want       domain.Severity
	}{
		{domain.RiskToxic, 0.98, domain.SeverityCritical},
		{domain.RiskToxic, 0.80, domain.SeverityCritical},
		{domain.RiskToxic, 0.79, domain.SeverityHigh},
		{domain.RiskIneffective, 0.97, domain.SeverityCritical},
		{domain.RiskIneffective, 0.50, domain.SeverityHigh},
		{domain.RiskAdjust, 0.99, domain.SeverityModerate},
		{domain.RiskSafe, 0.99, domain.SeverityLow},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, severityFor(tt.label, tt.confidence),
			"%s @ %.2f", tt.label, tt.confidence)
	}
}
