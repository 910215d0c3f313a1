// Package service implements the analysis pipeline stages that sit between
// the parsed variant records and the per-drug reports: annotation against the
// curated reference, neural fallback classification, diplotype assembly,
// phenotype mapping, risk classification, and quality tracking.
package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/ml"
	"github.com/pharmaguard/pgx-server/internal/reference"
)

// ClassPredictor is the neural fallback classifier surface the annotator
// depends on. *ml.Predictor satisfies it.
type ClassPredictor interface {
	Predict(ctx context.Context, v *domain.Variant) (ml.Prediction, error)
	DemoMode() bool
}

// Annotator resolves each parsed variant against the curated reference table
// first, then the neural classifier for unmatched variants inside monitored
// gene regions. Variants outside every monitored region are dropped.
type Annotator struct {
	store     *reference.Store
	predictor ClassPredictor
	logger    *logrus.Logger
}

// NewAnnotator creates an annotator over the shared read-only store and
// classifier.
func NewAnnotator(store *reference.Store, predictor ClassPredictor, logger *logrus.Logger) *Annotator {
	return &Annotator{store: store, predictor: predictor, logger: logger}
}

// Annotate resolves every PGx-relevant variant and fills the tracker's
// resolution counters. Homozygous-reference and missing calls carry no
// alternate-allele evidence and are skipped. An inference failure downgrades
// that single variant to unresolved; it never fails the request.
func (a *Annotator) Annotate(ctx context.Context, variants []domain.Variant, tracker *QualityTracker) ([]domain.AnnotatedVariant, error) {
	tracker.SetDemoMode(a.predictor.DemoMode())

	annotated := make([]domain.AnnotatedVariant, 0, len(variants))
	for i := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := variants[i]
		if v.Zygosity == domain.HomozygousRef || v.Zygosity == domain.MissingCall {
			continue
		}

		if entry := a.store.Lookup(v.Chromosome, v.Position, v.Reference, v.Alternate); entry != nil {
			tracker.AddPGxVariant()
			tracker.AddReferenceResolved()
			annotated = append(annotated, domain.AnnotatedVariant{
				Variant: v,
				Gene:    entry.Gene,
				Entry:   entry,
				Source:  domain.ResolvedByReference,
			})
			continue
		}

		gene := a.store.RegionFor(v.Chromosome, v.Position)
		if gene == "" {
			continue
		}
		tracker.AddPGxVariant()
		annotated = append(annotated, a.classify(ctx, v, gene, tracker))
	}
	return annotated, nil
}

func (a *Annotator) classify(ctx context.Context, v domain.Variant, gene string, tracker *QualityTracker) domain.AnnotatedVariant {
	av := domain.AnnotatedVariant{
		Variant: v,
		Gene:    gene,
		Source:  domain.Unresolved,
	}

	pred, err := a.predictor.Predict(ctx, &v)
	if err != nil {
		var infErr *domain.InferenceError
		if errors.As(err, &infErr) {
			a.logger.WithFields(logrus.Fields{
				"variant": v.Key(),
				"gene":    gene,
				"error":   infErr.Reason,
			}).Warn("Inference failed, treating variant as unresolved")
			return av
		}
		a.logger.WithError(err).WithField("variant", v.Key()).Warn("Prediction unavailable, treating variant as unresolved")
		return av
	}

	tracker.AddMLPrediction()
	av.Source = domain.ResolvedByModel
	av.PredictedClass = pred.Class
	av.MLConfidence = pred.Confidence
	av.DemoMode = pred.DemoMode
	return av
}
