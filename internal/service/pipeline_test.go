package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/ml"
	"github.com/pharmaguard/pgx-server/internal/reference"
)

type stubPredictor struct {
	prediction ml.Prediction
	err        error
	calls      int
	demo       bool
}

func (s *stubPredictor) Predict(ctx context.Context, v *domain.Variant) (ml.Prediction, error) {
	s.calls++
	if s.err != nil {
		return ml.Prediction{}, s.err
	}
	return s.prediction, nil
}

func (s *stubPredictor) DemoMode() bool { return s.demo }

type stubExplainer struct {
	enabled bool
	summary string
	err     error
}

func (s *stubExplainer) Enabled() bool { return s.enabled }

func (s *stubExplainer) Generate(ctx context.Context, report *domain.DrugReport) (domain.Explanation, error) {
	if s.err != nil {
		return domain.Explanation{}, s.err
	}
	return domain.Explanation{Summary: s.summary}, nil
}

func testPipeline(predictor ClassPredictor, explainer Explainer) *Pipeline {
	return NewPipeline(reference.NewDefaultStore(), predictor, explainer, testLogger())
}

const cyp2d6StarFourVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
chr22	42524947	rs3892097	C	T	99	PASS	.	GT	1/1
chr1	12345	.	A	G	50	PASS	.	GT	0/0
`

const wildTypeVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
chr22	42524947	rs3892097	C	T	99	PASS	.	GT	0/0
`

const novelRegionVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
chr22	42520000	.	A	G	70	PASS	.	GT	0/1
`

func TestPipeline_PoorMetabolizerReport(t *testing.T) {
	p := testPipeline(&stubPredictor{}, nil)

	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		PatientID: "patient-001",
		Drugs:     []string{"codeine"},
		VCF:       strings.NewReader(cyp2d6StarFourVCF),
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	require.Nil(t, r.Error)
	assert.Equal(t, "patient-001", r.PatientID)
	assert.Equal(t, "Codeine", r.Drug)
	assert.NotEmpty(t, r.Timestamp)
	assert.Equal(t, domain.AdvisoryNotice, r.Advisory)

	assert.Equal(t, domain.RiskIneffective, r.RiskAssessment.RiskLabel)
	assert.InDelta(t, 0.97, r.RiskAssessment.ConfidenceScore, 1e-9)
	assert.Equal(t, domain.SeverityCritical, r.RiskAssessment.Severity)
	assert.False(t, r.RiskAssessment.GuidelineAbsent)

	assert.Equal(t, "CYP2D6", r.PharmacogenomicProfile.PrimaryGene)
	assert.Equal(t, "*4/*4", r.PharmacogenomicProfile.Diplotype)
	assert.Equal(t, domain.PoorMetabolizer, r.PharmacogenomicProfile.PhenotypeCode)
	assert.InDelta(t, 0.0, r.PharmacogenomicProfile.ActivityScore, 1e-9)
	require.Len(t, r.PharmacogenomicProfile.DetectedVariants, 1)
	dv := r.PharmacogenomicProfile.DetectedVariants[0]
	require.NotNil(t, dv.StarAllele)
	assert.Equal(t, "*4", *dv.StarAllele)
	assert.Equal(t, domain.ResolvedByReference, dv.Resolution)
	assert.Nil(t, dv.MLConfidence)

	assert.Equal(t, reference.GuidelineCPIC, r.ClinicalRecommendation.GuidelineSource)
	assert.NotEmpty(t, r.ClinicalRecommendation.Recommendation)
	assert.NotEmpty(t, r.Explanation.Summary)

	qm := r.QualityMetrics
	assert.True(t, qm.VCFParsingSuccess)
	assert.Equal(t, 2, qm.TotalVariantsParsed)
	assert.Equal(t, 1, qm.PGxVariantsFound)
	assert.Equal(t, 1, qm.ReferenceResolved)
	assert.Equal(t, 0, qm.MLPredictionsMade)
	assert.True(t, qm.ExplanationSuccess)
	assert.False(t, qm.DemoMode)
}

func TestPipeline_NoEvidenceIsWildTypeSafe(t *testing.T) {
	p := testPipeline(&stubPredictor{}, nil)

	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		PatientID: "patient-002",
		Drugs:     []string{"codeine"},
		VCF:       strings.NewReader(wildTypeVCF),
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, domain.RiskSafe, r.RiskAssessment.RiskLabel)
	assert.Equal(t, "*1/*1", r.PharmacogenomicProfile.Diplotype)
	assert.Equal(t, domain.NormalMetabolizer, r.PharmacogenomicProfile.PhenotypeCode)
	assert.InDelta(t, 2.0, r.PharmacogenomicProfile.ActivityScore, 1e-9)
	assert.Equal(t, 0, r.QualityMetrics.PGxVariantsFound)
	assert.Empty(t, r.PharmacogenomicProfile.DetectedVariants)
}

func TestPipeline_ModelFallback(t *testing.T) {
	predictor := &stubPredictor{
		prediction: ml.Prediction{Class: domain.NoFunction, Confidence: 0.42, DemoMode: true},
		demo:       true,
	}
	p := testPipeline(predictor, nil)

	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		PatientID: "patient-003",
		Drugs:     []string{"codeine"},
		VCF:       strings.NewReader(novelRegionVCF),
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, predictor.calls)

	r := reports[0]
	assert.Equal(t, "*1/"+NovelAllele, r.PharmacogenomicProfile.Diplotype)
	assert.Equal(t, domain.IntermediateMetabolizer, r.PharmacogenomicProfile.PhenotypeCode)

	// Codeine IM is Adjust at 0.90; model evidence takes it to 0.80.
	assert.Equal(t, domain.RiskAdjust, r.RiskAssessment.RiskLabel)
	assert.InDelta(t, 0.80, r.RiskAssessment.ConfidenceScore, 1e-9)

	require.Len(t, r.PharmacogenomicProfile.DetectedVariants, 1)
	dv := r.PharmacogenomicProfile.DetectedVariants[0]
	assert.Equal(t, domain.ResolvedByModel, dv.Resolution)
	assert.Nil(t, dv.StarAllele)
	require.NotNil(t, dv.MLConfidence)
	assert.InDelta(t, 0.42, *dv.MLConfidence, 1e-9)

	qm := r.QualityMetrics
	assert.Equal(t, 1, qm.MLPredictionsMade)
	assert.Equal(t, 0, qm.ReferenceResolved)
	assert.True(t, qm.DemoMode)
}

func TestPipeline_NoDrugsSpecified(t *testing.T) {
	p := testPipeline(&stubPredictor{}, nil)

	for _, drugs := range [][]string{nil, {}, {"", "  "}} {
		_, err := p.Analyze(context.Background(), &AnalyzeRequest{
			Drugs: drugs,
			VCF:   strings.NewReader(wildTypeVCF),
		})
		var ndErr *domain.NoDrugsSpecifiedError
		assert.ErrorAs(t, err, &ndErr)
	}
}

func TestPipeline_UnsupportedDrugIsIsolated(t *testing.T) {
	p := testPipeline(&stubPredictor{}, nil)

	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		PatientID: "patient-004",
		Drugs:     []string{"aspirin", "codeine"},
		VCF:       strings.NewReader(cyp2d6StarFourVCF),
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	bad := reports[0]
	require.NotNil(t, bad.Error)
	assert.Equal(t, domain.ErrCodeUnsupportedGene, bad.Error.Code)
	assert.Contains(t, bad.Error.Details, "supported drugs")
	assert.Empty(t, bad.PharmacogenomicProfile.PrimaryGene)
	assert.Equal(t, domain.AdvisoryNotice, bad.Advisory)

	good := reports[1]
	assert.Nil(t, good.Error)
	assert.Equal(t, domain.RiskIneffective, good.RiskAssessment.RiskLabel)
}

func TestPipeline_DrugOrderPreserved(t *testing.T) {
	p := testPipeline(&stubPredictor{}, nil)

	drugs := []string{"warfarin", "codeine", "simvastatin", "azathioprine"}
	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		PatientID: "patient-005",
		Drugs:     drugs,
		VCF:       strings.NewReader(wildTypeVCF),
	})
	require.NoError(t, err)
	require.Len(t, reports, len(drugs))
	for i, drug := range drugs {
		assert.Equal(t, domain.DisplayDrug(drug), reports[i].Drug)
	}
}

func TestPipeline_AnonymousPatientID(t *testing.T) {
	p := testPipeline(&stubPredictor{}, nil)

	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		Drugs: []string{"codeine"},
		VCF:   strings.NewReader(wildTypeVCF),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reports[0].PatientID, "anon-"))
}

func TestPipeline_MalformedVCFIsFatal(t *testing.T) {
	p := testPipeline(&stubPredictor{}, nil)

	_, err := p.Analyze(context.Background(), &AnalyzeRequest{
		Drugs: []string{"codeine"},
		VCF:   strings.NewReader("not a vcf\n"),
	})
	var fmtErr *domain.FormatError
	require.ErrorAs(t, err, &fmtErr)
}

func TestPipeline_ExplainerOverridesLocalSummary(t *testing.T) {
	p := testPipeline(&stubPredictor{}, &stubExplainer{enabled: true, summary: "external summary"})

	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		PatientID: "patient-006",
		Drugs:     []string{"codeine"},
		VCF:       strings.NewReader(wildTypeVCF),
	})
	require.NoError(t, err)
	assert.Equal(t, "external summary", reports[0].Explanation.Summary)
	assert.True(t, reports[0].QualityMetrics.ExplanationSuccess)
}

func TestPipeline_ExplainerFailureKeepsLocalSummary(t *testing.T) {
	p := testPipeline(&stubPredictor{}, &stubExplainer{enabled: true, err: errors.New("upstream down")})

	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		PatientID: "patient-007",
		Drugs:     []string{"codeine"},
		VCF:       strings.NewReader(wildTypeVCF),
	})
	require.NoError(t, err)

	r := reports[0]
	assert.False(t, r.QualityMetrics.ExplanationSuccess)
	assert.NotEmpty(t, r.Explanation.Summary)
	// The report is otherwise complete.
	assert.Equal(t, domain.RiskSafe, r.RiskAssessment.RiskLabel)
}

func TestPipeline_DisabledExplainerNeverCalled(t *testing.T) {
	ex := &stubExplainer{enabled: false, err: errors.New("must not be called")}
	p := testPipeline(&stubPredictor{}, ex)

	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		Drugs: []string{"codeine"},
		VCF:   strings.NewReader(wildTypeVCF),
	})
	require.NoError(t, err)
	assert.True(t, reports[0].QualityMetrics.ExplanationSuccess)
	assert.NotEmpty(t, reports[0].Explanation.Summary)
}

func TestPipeline_PredictorErrorLeavesVariantUnresolved(t *testing.T) {
	predictor := &stubPredictor{err: &domain.InferenceError{Reason: "malformed tensor shape"}}
	p := testPipeline(predictor, nil)

	reports, err := p.Analyze(context.Background(), &AnalyzeRequest{
		PatientID: "patient-008",
		Drugs:     []string{"codeine"},
		VCF:       strings.NewReader(novelRegionVCF),
	})
	require.NoError(t, err)

	r := reports[0]
	require.Len(t, r.PharmacogenomicProfile.DetectedVariants, 1)
	dv := r.PharmacogenomicProfile.DetectedVariants[0]
	assert.Equal(t, domain.Unresolved, dv.Resolution)
	assert.Nil(t, dv.StarAllele)
	assert.Nil(t, dv.MLConfidence)

	// Unresolved evidence does not move the diplotype off wild-type.
	assert.Equal(t, "*1/*1", r.PharmacogenomicProfile.Diplotype)
	assert.Equal(t, 0, r.QualityMetrics.MLPredictionsMade)
}
