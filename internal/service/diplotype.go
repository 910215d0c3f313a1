package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/reference"
)

// NovelAllele is the provisional star-allele label assigned to variants the
// curated table does not name but the classifier characterized.
const NovelAllele = "*Novel"

// Activity scores assumed for model-resolved alleles, by predicted function
// class. Matches the curated scale: 1.0 is one fully functional copy.
var modelActivity = map[domain.FunctionClass]float64{
	domain.NoFunction:        0.0,
	domain.DecreasedFunction: 0.5,
	domain.NormalFunction:    1.0,
	domain.IncreasedFunction: 1.5,
}

// Assembler builds the two-allele diplotype for each monitored gene from the
// annotated variant evidence.
type Assembler struct {
	store  *reference.Store
	logger *logrus.Logger
}

// NewAssembler creates a diplotype assembler over the shared store.
func NewAssembler(store *reference.Store, logger *logrus.Logger) *Assembler {
	return &Assembler{store: store, logger: logger}
}

// AssembleAll builds one diplotype per monitored gene. Genes with no variant
// evidence come out as homozygous wild-type.
func (a *Assembler) AssembleAll(annotated []domain.AnnotatedVariant) map[string]*domain.GeneDiplotype {
	byGene := make(map[string][]domain.AnnotatedVariant)
	for i := range annotated {
		av := annotated[i]
		byGene[av.Gene] = append(byGene[av.Gene], av)
	}

	out := make(map[string]*domain.GeneDiplotype)
	for _, gene := range a.store.TargetGenes() {
		out[gene] = a.Assemble(gene, byGene[gene])
	}
	return out
}

// Assemble builds the diplotype for one gene. Every patient carries exactly
// two alleles: observed variant alleles fill chromosomal copies per genotype,
// wild-type defaults fill the rest. Two distinct unphased heterozygous
// variants are placed in trans (one per copy), the conservative compound-het
// reading. When several variants land on the same copy, the most deleterious
// one (lowest activity) defines that copy's allele.
func (a *Assembler) Assemble(gene string, evidence []domain.AnnotatedVariant) *domain.GeneDiplotype {
	info := a.store.Gene(gene)

	var bins [2][]domain.HaplotypeCall
	var unphased []domain.HaplotypeCall
	detected := make([]domain.AnnotatedVariant, 0, len(evidence))

	for i := range evidence {
		av := evidence[i]
		detected = append(detected, av)

		call, ok := haplotypeCall(&av)
		if !ok {
			// Unresolved evidence: recorded in the report but treated as
			// wild-type for allele assignment.
			continue
		}

		switch av.Zygosity {
		case domain.HomozygousAlt:
			bins[0] = append(bins[0], call)
			bins[1] = append(bins[1], call)
		case domain.Heterozygous:
			if av.Phased {
				for _, copyIdx := range av.AltHaplotypes() {
					bins[copyIdx] = append(bins[copyIdx], call)
				}
			} else {
				unphased = append(unphased, call)
			}
		}
	}

	// Distribute unphased het alleles across copies in trans.
	for i, call := range unphased {
		bins[i%2] = append(bins[i%2], call)
	}

	h0 := resolveCopy(bins[0], info)
	h1 := resolveCopy(bins[1], info)
	if less(h1, h0) {
		h0, h1 = h1, h0
	}

	d := &domain.GeneDiplotype{
		Gene:          gene,
		Haplotype0:    h0,
		Haplotype1:    h1,
		ActivityScore: combine(info.Combiner, h0.Activity, h1.Activity),
		Detected:      detected,
	}

	a.logger.WithFields(logrus.Fields{
		"gene":           gene,
		"diplotype":      d.String(),
		"activity_score": d.ActivityScore,
		"variants":       len(detected),
	}).Debug("Assembled diplotype")

	return d
}

// haplotypeCall converts one annotated variant into allele evidence. Returns
// false for unresolved variants, which contribute nothing.
func haplotypeCall(av *domain.AnnotatedVariant) (domain.HaplotypeCall, bool) {
	switch av.Source {
	case domain.ResolvedByReference:
		return domain.HaplotypeCall{
			StarAllele:    av.Entry.StarAllele,
			FunctionClass: av.Entry.FunctionClass,
			Activity:      av.Entry.ActivityScore,
			Source:        domain.ResolvedByReference,
			RSID:          av.RSID(),
		}, true
	case domain.ResolvedByModel:
		return domain.HaplotypeCall{
			StarAllele:    NovelAllele,
			FunctionClass: av.PredictedClass,
			Activity:      modelActivity[av.PredictedClass],
			Source:        domain.ResolvedByModel,
			RSID:          av.RSID(),
		}, true
	default:
		return domain.HaplotypeCall{}, false
	}
}

// resolveCopy picks the defining allele for one chromosomal copy: the
// wild-type default when no variant landed there, otherwise the candidate
// with the lowest activity.
func resolveCopy(candidates []domain.HaplotypeCall, info *reference.GeneInfo) domain.HaplotypeCall {
	if len(candidates) == 0 {
		wt := info.WildType
		return domain.HaplotypeCall{
			StarAllele:    wt.StarAllele,
			FunctionClass: wt.FunctionClass,
			Activity:      wt.ActivityScore,
			Source:        domain.WildTypeDefault,
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Activity != candidates[j].Activity {
			return candidates[i].Activity < candidates[j].Activity
		}
		return candidates[i].StarAllele < candidates[j].StarAllele
	})
	return candidates[0]
}

// less orders haplotypes for display: higher activity first, then name.
// Produces the conventional "*1/*4" rendering.
func less(a, b domain.HaplotypeCall) bool {
	if a.Activity != b.Activity {
		return a.Activity > b.Activity
	}
	return a.StarAllele < b.StarAllele
}

func combine(kind reference.CombinerKind, a, b float64) float64 {
	switch kind {
	case reference.CombineSum:
		return a + b
	default:
		return a + b
	}
}
