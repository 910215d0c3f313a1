package domain

import "time"

// DetectedVariant is the per-variant block in the response schema. The same
// fields are populated on every code path: curated matches carry star allele
// and activity score, ML-resolved variants carry the predicted class and
// confidence, unresolved variants carry nulls.
type DetectedVariant struct {
	RSID          string           `json:"rsid"`
	Chromosome    string           `json:"chrom"`
	Position      int64            `json:"pos"`
	Reference     string           `json:"ref"`
	Alternate     string           `json:"alt"`
	Zygosity      Zygosity         `json:"zygosity"`
	StarAllele    *string          `json:"star_allele"`
	FunctionClass *FunctionClass   `json:"function_class"`
	ActivityScore *float64         `json:"activity_score"`
	Resolution    ResolutionSource `json:"resolution"`
	MLConfidence  *float64         `json:"ml_confidence"`
}

// RiskAssessmentBlock is the risk section of the response schema.
type RiskAssessmentBlock struct {
	RiskLabel       RiskLabel `json:"risk_label"`
	ConfidenceScore float64   `json:"confidence_score"`
	Severity        Severity  `json:"severity"`
	GuidelineAbsent bool      `json:"guideline_absent"`
}

// PharmacogenomicProfile is the gene-level section of the response schema.
type PharmacogenomicProfile struct {
	PrimaryGene      string            `json:"primary_gene"`
	Diplotype        string            `json:"diplotype"`
	Phenotype        string            `json:"phenotype"`
	PhenotypeCode    PhenotypeCode     `json:"phenotype_code"`
	ActivityScore    float64           `json:"activity_score"`
	DetectedVariants []DetectedVariant `json:"detected_variants"`
}

// ClinicalRecommendation carries the guideline-derived dosing guidance.
type ClinicalRecommendation struct {
	GuidelineSource string `json:"guideline_source"`
	Recommendation  string `json:"recommendation"`
}

// Explanation is the free-text guidance returned by the external
// explanation-generation collaborator. The core treats it as opaque.
type Explanation struct {
	Summary string `json:"summary"`
}

// QualityMetrics is the per-request pipeline provenance block. Counters are
// strictly additive within a request; no component may decrement one.
type QualityMetrics struct {
	VCFParsingSuccess   bool `json:"vcf_parsing_success"`
	TotalVariantsParsed int  `json:"total_variants_parsed"`
	PGxVariantsFound    int  `json:"pgx_variants_found"`
	ReferenceResolved   int  `json:"reference_resolved"`
	MLPredictionsMade   int  `json:"ml_predictions_made"`
	ExplanationSuccess  bool `json:"explanation_success"`
	DemoMode            bool `json:"demo_mode"`
}

// DrugReport is the externally visible per-drug response. This is the
// contract the front end and other consumers depend on; its shape must not
// change across code paths. Outputs are advisory only, never diagnostic.
type DrugReport struct {
	PatientID              string                 `json:"patient_id"`
	Drug                   string                 `json:"drug"`
	Timestamp              string                 `json:"timestamp"`
	Advisory               string                 `json:"advisory"`
	RiskAssessment         RiskAssessmentBlock    `json:"risk_assessment"`
	PharmacogenomicProfile PharmacogenomicProfile `json:"pharmacogenomic_profile"`
	ClinicalRecommendation ClinicalRecommendation `json:"clinical_recommendation"`
	Explanation            Explanation            `json:"explanation"`
	QualityMetrics         QualityMetrics         `json:"quality_metrics"`

	// Error is populated instead of the assessment sections when the drug
	// failed individually (e.g. unsupported gene); other drugs in the same
	// request are unaffected.
	Error *APIError `json:"error,omitempty"`
}

// AdvisoryNotice is attached to every report. Outputs are research-grade and
// must not be used as a substitute for clinical judgement.
const AdvisoryNotice = "Advisory only: pharmacogenomic risk estimates are not a clinical diagnosis. Confirm with a certified laboratory before acting on this report."

// UTCTimestamp renders t in the response timestamp format (RFC 3339, UTC,
// second precision).
func UTCTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
