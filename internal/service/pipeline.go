package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/reference"
	"github.com/pharmaguard/pgx-server/internal/vcf"
)

// Explainer generates the free-text explanation block from an external
// collaborator. Failure is absorbed into quality metrics, never surfaced as
// a request error.
type Explainer interface {
	Enabled() bool
	Generate(ctx context.Context, report *domain.DrugReport) (domain.Explanation, error)
}

// AnalyzeRequest is one analysis submission.
type AnalyzeRequest struct {
	PatientID string
	Drugs     []string
	VCF       io.Reader
}

// Pipeline wires the full analysis path: parse, annotate, assemble
// diplotypes, map phenotypes, classify risk per drug, attach explanations.
type Pipeline struct {
	parser     *vcf.Parser
	store      *reference.Store
	annotator  *Annotator
	assembler  *Assembler
	phenotypes *PhenotypeMapper
	risk       *RiskClassifier
	explainer  Explainer
	logger     *logrus.Logger
}

// NewPipeline assembles the pipeline over the shared read-only store and
// classifier. explainer may be nil when the collaborator is not configured.
func NewPipeline(store *reference.Store, predictor ClassPredictor, explainer Explainer, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		parser:     vcf.NewParser(logger),
		store:      store,
		annotator:  NewAnnotator(store, predictor, logger),
		assembler:  NewAssembler(store, logger),
		phenotypes: NewPhenotypeMapper(store),
		risk:       NewRiskClassifier(store, logger),
		explainer:  explainer,
		logger:     logger,
	}
}

// Analyze runs the pipeline and returns one report per requested drug, in
// the caller's drug order. Request-fatal failures (malformed file, empty
// drug list) return an error with zero reports; per-drug failures produce a
// report carrying an error block while the other drugs complete normally.
func (p *Pipeline) Analyze(ctx context.Context, req *AnalyzeRequest) ([]domain.DrugReport, error) {
	drugs := make([]string, 0, len(req.Drugs))
	for _, d := range req.Drugs {
		if trimmed := strings.TrimSpace(d); trimmed != "" {
			drugs = append(drugs, trimmed)
		}
	}
	if len(drugs) == 0 {
		return nil, &domain.NoDrugsSpecifiedError{}
	}

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		patientID = "anon-" + uuid.NewString()
	}

	parsed, err := p.parser.Parse(req.VCF)
	if err != nil {
		return nil, err
	}

	tracker := NewQualityTracker()
	tracker.MarkParseSuccess(parsed.Total)

	annotated, err := p.annotator.Annotate(ctx, parsed.Variants, tracker)
	if err != nil {
		return nil, err
	}

	diplotypes := p.assembler.AssembleAll(annotated)
	for gene, d := range diplotypes {
		code, perr := p.phenotypes.Map(gene, d.ActivityScore)
		if perr != nil {
			return nil, perr
		}
		d.Phenotype = code
	}

	p.logger.WithFields(logrus.Fields{
		"patient_id":   patientID,
		"drugs":        len(drugs),
		"variants":     parsed.Total,
		"pgx_variants": len(annotated),
		"skipped":      parsed.Skipped,
	}).Info("Variant annotation complete")

	now := time.Now()
	reports := make([]domain.DrugReport, len(drugs))
	g, gctx := errgroup.WithContext(ctx)
	for i, drug := range drugs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = p.drugReport(gctx, patientID, drug, diplotypes, tracker, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// drugReport builds one per-drug report. The response shape is identical on
// every code path; an unsupported drug fills the error block only.
func (p *Pipeline) drugReport(
	ctx context.Context,
	patientID, drug string,
	diplotypes map[string]*domain.GeneDiplotype,
	tracker *QualityTracker,
	now time.Time,
) domain.DrugReport {
	report := domain.DrugReport{
		PatientID:      patientID,
		Drug:           domain.DisplayDrug(drug),
		Timestamp:      domain.UTCTimestamp(now),
		Advisory:       domain.AdvisoryNotice,
		QualityMetrics: tracker.Snapshot(),
	}

	gene := p.store.GeneForDrug(drug)
	if gene == "" {
		ugErr := &domain.UnsupportedGeneError{Drug: domain.NormalizeDrug(drug)}
		report.Error = domain.NewAPIError(domain.ErrCodeUnsupportedGene, ugErr.Error(),
			fmt.Sprintf("supported drugs: %s", strings.Join(p.store.SupportedDrugs(), ", ")), "")
		return report
	}

	d := diplotypes[gene]
	assessment := p.risk.Assess(drug, d)

	report.RiskAssessment = domain.RiskAssessmentBlock{
		RiskLabel:       assessment.RiskLabel,
		ConfidenceScore: assessment.Confidence,
		Severity:        assessment.Severity,
		GuidelineAbsent: assessment.GuidelineAbsent,
	}
	report.PharmacogenomicProfile = domain.PharmacogenomicProfile{
		PrimaryGene:      gene,
		Diplotype:        d.String(),
		Phenotype:        d.Phenotype.Description(),
		PhenotypeCode:    d.Phenotype,
		ActivityScore:    d.ActivityScore,
		DetectedVariants: detectedVariants(d.Detected),
	}
	report.ClinicalRecommendation = domain.ClinicalRecommendation{
		GuidelineSource: assessment.GuidelineSource,
		Recommendation:  assessment.Recommendation,
	}
	report.Explanation = domain.Explanation{Summary: localSummary(assessment, d)}

	if p.explainer != nil && p.explainer.Enabled() {
		if ext, err := p.explainer.Generate(ctx, &report); err != nil {
			report.QualityMetrics.ExplanationSuccess = false
			p.logger.WithError(err).WithField("drug", report.Drug).Warn("Explanation service unavailable, using local summary")
		} else if ext.Summary != "" {
			report.Explanation = ext
		}
	}

	p.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"drug":       report.Drug,
		"gene":       gene,
		"diplotype":  d.String(),
		"risk_label": assessment.RiskLabel,
		"confidence": assessment.Confidence,
		"severity":   assessment.Severity,
	}).Info("Risk assessment complete")

	return report
}

// detectedVariants renders the annotated evidence into response rows.
// Curated matches carry star allele and activity score; model-resolved rows
// carry the predicted class and confidence; unresolved rows carry nulls.
func detectedVariants(annotated []domain.AnnotatedVariant) []domain.DetectedVariant {
	out := make([]domain.DetectedVariant, 0, len(annotated))
	for i := range annotated {
		av := annotated[i]
		row := domain.DetectedVariant{
			RSID:       av.RSID(),
			Chromosome: av.Chromosome,
			Position:   av.Position,
			Reference:  av.Reference,
			Alternate:  av.Alternate,
			Zygosity:   av.Zygosity,
			Resolution: av.Source,
		}
		switch av.Source {
		case domain.ResolvedByReference:
			row.StarAllele = ptr(av.Entry.StarAllele)
			row.FunctionClass = ptr(av.Entry.FunctionClass)
			row.ActivityScore = ptr(av.Entry.ActivityScore)
		case domain.ResolvedByModel:
			row.FunctionClass = ptr(av.PredictedClass)
			row.MLConfidence = ptr(av.MLConfidence)
		}
		out = append(out, row)
	}
	return out
}

// localSummary is the deterministic explanation fallback used when the
// external collaborator is disabled or unavailable.
func localSummary(ra *domain.RiskAssessment, d *domain.GeneDiplotype) string {
	return fmt.Sprintf("%s %s classifies this patient as %s (activity score %.2f). Predicted response to %s: %s. %s",
		d.Gene, d.String(), d.Phenotype.Description(), d.ActivityScore,
		domain.DisplayDrug(ra.Drug), ra.RiskLabel, ra.Recommendation)
}

func ptr[T any](v T) *T {
	return &v
}
