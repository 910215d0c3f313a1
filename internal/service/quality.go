package service

import "github.com/pharmaguard/pgx-server/internal/domain"

// QualityTracker accumulates per-request pipeline provenance. Counters are
// strictly additive; nothing ever decrements one. A tracker is built fresh
// per request and filled before the per-drug fan-out, so it needs no
// synchronization; goroutines receive value snapshots.
type QualityTracker struct {
	parseSuccess      bool
	totalParsed       int
	pgxFound          int
	referenceResolved int
	mlPredictions     int
	demoMode          bool
}

// NewQualityTracker creates an empty tracker.
func NewQualityTracker() *QualityTracker {
	return &QualityTracker{}
}

// MarkParseSuccess records that the variant file parsed successfully.
func (t *QualityTracker) MarkParseSuccess(total int) {
	t.parseSuccess = true
	t.totalParsed = total
}

// AddPGxVariant counts a variant that fell inside a monitored gene region.
func (t *QualityTracker) AddPGxVariant() {
	t.pgxFound++
}

// AddReferenceResolved counts a curated-table match.
func (t *QualityTracker) AddReferenceResolved() {
	t.referenceResolved++
}

// AddMLPrediction counts a neural-classifier resolution.
func (t *QualityTracker) AddMLPrediction() {
	t.mlPredictions++
}

// SetDemoMode records whether the classifier served demo-mode predictions.
func (t *QualityTracker) SetDemoMode(demo bool) {
	t.demoMode = demo
}

// Snapshot returns the metrics block for one drug report. ExplanationSuccess
// starts true and is cleared per drug by the caller when the explanation
// collaborator fails.
func (t *QualityTracker) Snapshot() domain.QualityMetrics {
	return domain.QualityMetrics{
		VCFParsingSuccess:   t.parseSuccess,
		TotalVariantsParsed: t.totalParsed,
		PGxVariantsFound:    t.pgxFound,
		ReferenceResolved:   t.referenceResolved,
		MLPredictionsMade:   t.mlPredictions,
		ExplanationSuccess:  true,
		DemoMode:            t.demoMode,
	}
}
