// Package reference implements the static curated PGx knowledge base: the
// coordinate-keyed star-allele table, monitored gene regions, per-gene
// wild-type defaults and phenotype threshold bands, the drug-to-gene map,
// and the CPIC drug-gene-phenotype decision table.
//
// A Store is built once at process start and is read-only afterwards, so it
// is safe for unsynchronized concurrent reads from any number of in-flight
// requests.
package reference

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

// CombinerKind names the activity-score combination function for a gene.
// All currently shipped genes use arithmetic sum, matching CPIC activity
// scoring; the field exists so a gene using a different curated rule can be
// configured without code changes.
type CombinerKind string

const (
	CombineSum CombinerKind = "sum"
)

// PhenotypeBand is one upper-bound-inclusive threshold band. Bands are
// ordered ascending by Max; a score exactly equal to Max maps into this
// band (the lower, more conservative one).
type PhenotypeBand struct {
	Max  float64              `yaml:"max"`
	Code domain.PhenotypeCode `yaml:"code"`
}

// GeneInfo is the per-gene configuration block.
type GeneInfo struct {
	Symbol   string                `yaml:"symbol"`
	Chrom    string                `yaml:"chrom"`
	Start    int64                 `yaml:"start"`
	End      int64                 `yaml:"end"`
	Combiner CombinerKind          `yaml:"combiner"`
	Bands    []PhenotypeBand       `yaml:"bands"`
	WildType domain.ReferenceEntry `yaml:"wild_type"`
}

// GuidelineRule is one row of the drug-gene-phenotype decision table.
type GuidelineRule struct {
	Drug           string               `yaml:"drug"`
	Gene           string               `yaml:"gene"`
	Phenotype      domain.PhenotypeCode `yaml:"phenotype"`
	Label          domain.RiskLabel     `yaml:"label"`
	Confidence     float64              `yaml:"confidence"`
	Recommendation string               `yaml:"recommendation"`
}

// tableEntry pairs a coordinate key with its curated annotation.
type tableEntry struct {
	Chrom string                `yaml:"chrom"`
	Pos   int64                 `yaml:"pos"`
	Ref   string                `yaml:"ref"`
	Alt   string                `yaml:"alt"`
	Entry domain.ReferenceEntry `yaml:"entry"`
}

type coordKey struct {
	chrom string
	pos   int64
	ref   string
	alt   string
}

type ruleKey struct {
	drug      string
	gene      string
	phenotype domain.PhenotypeCode
}

// Store is the read-only PGx knowledge base.
type Store struct {
	entries   map[coordKey]*domain.ReferenceEntry
	genes     map[string]*GeneInfo
	geneOrder []string
	drugGenes map[string]string
	rules     map[ruleKey]*GuidelineRule
}

// NewStore builds a Store from the embedded default tables, applying any
// YAML overrides named in cfg.
func NewStore(cfg *domain.ReferenceConfig, logger *logrus.Logger) (*Store, error) {
	entries := defaultEntries()
	genes := defaultGenes()
	rules := defaultRules()
	drugGenes := defaultDrugGenes()

	if cfg != nil && cfg.TablePath != "" {
		loaded, err := loadVariantTable(cfg.TablePath)
		if err != nil {
			return nil, fmt.Errorf("loading variant table %s: %w", cfg.TablePath, err)
		}
		entries = loaded
		logger.WithFields(logrus.Fields{
			"path":    cfg.TablePath,
			"entries": len(entries),
		}).Info("Loaded curated variant table override")
	}
	if cfg != nil && cfg.GuidelinePath != "" {
		loadedRules, loadedDrugs, err := loadGuidelineTable(cfg.GuidelinePath)
		if err != nil {
			return nil, fmt.Errorf("loading guideline table %s: %w", cfg.GuidelinePath, err)
		}
		rules = loadedRules
		if len(loadedDrugs) > 0 {
			drugGenes = loadedDrugs
		}
		logger.WithFields(logrus.Fields{
			"path":  cfg.GuidelinePath,
			"rules": len(rules),
		}).Info("Loaded guideline decision table override")
	}

	return buildStore(entries, genes, rules, drugGenes)
}

// NewDefaultStore builds a Store from the embedded tables only. Used by
// tests and by callers that do not carry configuration.
func NewDefaultStore() *Store {
	s, err := buildStore(defaultEntries(), defaultGenes(), defaultRules(), defaultDrugGenes())
	if err != nil {
		// Embedded tables are compile-time data; a build failure here is a
		// programming error.
		panic(err)
	}
	return s
}

func buildStore(entries []tableEntry, genes []GeneInfo, rules []GuidelineRule, drugGenes map[string]string) (*Store, error) {
	s := &Store{
		entries:   make(map[coordKey]*domain.ReferenceEntry, len(entries)),
		genes:     make(map[string]*GeneInfo, len(genes)),
		drugGenes: make(map[string]string, len(drugGenes)),
		rules:     make(map[ruleKey]*GuidelineRule, len(rules)),
	}

	for i := range genes {
		g := genes[i]
		if g.Symbol == "" || len(g.Bands) == 0 {
			return nil, fmt.Errorf("gene config %q: symbol and bands are required", g.Symbol)
		}
		if !sort.SliceIsSorted(g.Bands, func(a, b int) bool { return g.Bands[a].Max < g.Bands[b].Max }) {
			return nil, fmt.Errorf("gene config %s: phenotype bands must be ordered ascending", g.Symbol)
		}
		if g.Combiner == "" {
			g.Combiner = CombineSum
		}
		s.genes[g.Symbol] = &g
		s.geneOrder = append(s.geneOrder, g.Symbol)
	}

	for i := range entries {
		e := entries[i]
		if _, ok := s.genes[e.Entry.Gene]; !ok {
			return nil, fmt.Errorf("variant table entry %s:%d references unknown gene %s", e.Chrom, e.Pos, e.Entry.Gene)
		}
		if !e.Entry.FunctionClass.IsValid() {
			return nil, fmt.Errorf("variant table entry %s:%d: %w", e.Chrom, e.Pos, domain.ErrInvalidFunctionClass)
		}
		s.entries[coordKey{e.Chrom, e.Pos, e.Ref, e.Alt}] = &e.Entry
	}

	for drug, gene := range drugGenes {
		if _, ok := s.genes[gene]; !ok {
			return nil, fmt.Errorf("drug map: %s references unknown gene %s", drug, gene)
		}
		s.drugGenes[domain.NormalizeDrug(drug)] = gene
	}

	for i := range rules {
		r := rules[i]
		if !r.Label.IsValid() {
			return nil, fmt.Errorf("guideline rule %s/%s: %w", r.Drug, r.Gene, domain.ErrInvalidRiskLabel)
		}
		if !r.Phenotype.IsValid() {
			return nil, fmt.Errorf("guideline rule %s/%s: %w", r.Drug, r.Gene, domain.ErrInvalidPhenotype)
		}
		s.rules[ruleKey{domain.NormalizeDrug(r.Drug), r.Gene, r.Phenotype}] = &r
	}

	return s, nil
}

// Lookup performs an exact match on (chrom, pos, ref, alt). No fuzzy
// matching: a miss returns nil.
func (s *Store) Lookup(chrom string, pos int64, ref, alt string) *domain.ReferenceEntry {
	return s.entries[coordKey{chrom, pos, ref, alt}]
}

// RegionFor returns the monitored gene whose coordinates contain
// (chrom, pos), or "" when the position is outside every monitored region.
func (s *Store) RegionFor(chrom string, pos int64) string {
	for _, sym := range s.geneOrder {
		g := s.genes[sym]
		if g.Chrom == chrom && pos >= g.Start && pos <= g.End {
			return g.Symbol
		}
	}
	return ""
}

// Gene returns the configuration block for a gene, or nil if unknown.
func (s *Store) Gene(symbol string) *GeneInfo {
	return s.genes[symbol]
}

// TargetGenes lists monitored gene symbols in their configured order.
func (s *Store) TargetGenes() []string {
	out := make([]string, len(s.geneOrder))
	copy(out, s.geneOrder)
	return out
}

// GeneForDrug maps a normalized drug name to its primary pharmacogene.
// Unknown drugs return "".
func (s *Store) GeneForDrug(drug string) string {
	return s.drugGenes[domain.NormalizeDrug(drug)]
}

// SupportedDrugs lists the normalized drug names present in the drug map,
// sorted for stable output.
func (s *Store) SupportedDrugs() []string {
	out := make([]string, 0, len(s.drugGenes))
	for d := range s.drugGenes {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Rule performs an exact lookup in the drug-gene-phenotype decision table.
// A miss returns nil; the caller decides the guideline-absent fallback.
func (s *Store) Rule(drug, gene string, phenotype domain.PhenotypeCode) *GuidelineRule {
	return s.rules[ruleKey{domain.NormalizeDrug(drug), gene, phenotype}]
}
