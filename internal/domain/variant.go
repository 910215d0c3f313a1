package domain

import (
	"errors"
	"fmt"
)

// Variant is a single parsed variant-call record. Immutable once created by
// the loader; downstream stages only read it.
type Variant struct {
	Chromosome  string   `json:"chrom"`
	Position    int64    `json:"pos"` // 1-based genomic position
	Reference   string   `json:"ref"`
	Alternate   string   `json:"alt"`        // primary ALT allele (multi-allelic sites split to first ALT)
	VariantID   string   `json:"variant_id"` // rsID from the ID column, or "."
	GenotypeRaw string   `json:"gt_raw"`     // raw genotype string e.g. "0|1"
	Phased      bool     `json:"phased"`
	Allele1     int      `json:"allele1"` // copy-1 allele index (0=ref, 1=alt, -1=missing)
	Allele2     int      `json:"allele2"` // copy-2 allele index
	Zygosity    Zygosity `json:"zygosity"`
}

// Key returns the coordinate tuple used for reference-table lookups and
// prediction cache keys.
func (v *Variant) Key() string {
	return fmt.Sprintf("%s:%d:%s:%s", v.Chromosome, v.Position, v.Reference, v.Alternate)
}

// AltHaplotypes returns the 0-indexed haplotype copies that carry the ALT
// allele, derived from the genotype allele indexes.
func (v *Variant) AltHaplotypes() []int {
	var copies []int
	if v.Allele1 == 1 {
		copies = append(copies, 0)
	}
	if v.Allele2 == 1 {
		copies = append(copies, 1)
	}
	return copies
}

// Validate ensures the variant record meets pipeline requirements.
func (v *Variant) Validate() error {
	if v.Chromosome == "" {
		return fmt.Errorf("variant validation: %w", errors.New("chromosome is required"))
	}
	if v.Position <= 0 {
		return fmt.Errorf("variant validation: %w", errors.New("position must be positive"))
	}
	if v.Reference == "" || v.Alternate == "" {
		return fmt.Errorf("variant validation: %w", errors.New("reference and alternate alleles are required"))
	}
	if !v.Zygosity.IsValid() {
		return fmt.Errorf("variant validation: %w", ErrInvalidZygosity)
	}
	return nil
}

// ReferenceEntry is a curated record from the PGx reference table keyed by
// (gene, position, ref, alt). Loaded once at process start; read-only for
// the lifetime of the process.
type ReferenceEntry struct {
	Gene          string        `json:"gene" yaml:"gene"`
	StarAllele    string        `json:"star_allele" yaml:"star"`
	RSID          string        `json:"rsid" yaml:"rsid"`
	FunctionClass FunctionClass `json:"function_class" yaml:"function"`
	ActivityScore float64       `json:"activity_score" yaml:"activity"`
	Guideline     string        `json:"guideline_source" yaml:"guideline"`
}

// AnnotatedVariant is a Variant plus its resolution outcome. Exactly one of
// the three outcomes holds: a reference-table match (Entry != nil), an ML
// prediction (Source == ResolvedByModel), or unresolved wild-type treatment.
type AnnotatedVariant struct {
	Variant

	// Gene is set whenever the variant lies inside a monitored gene region,
	// whether or not the reference lookup matched.
	Gene string `json:"gene,omitempty"`

	// Entry carries the curated annotation when Source == ResolvedByReference.
	Entry *ReferenceEntry `json:"reference_entry,omitempty"`

	// Source records the resolution provenance and is never dropped.
	Source ResolutionSource `json:"resolution"`

	// Model-derived fields, set only when Source == ResolvedByModel.
	PredictedClass FunctionClass `json:"ml_function_class,omitempty"`
	MLConfidence   float64       `json:"ml_confidence,omitempty"`
	DemoMode       bool          `json:"ml_demo_mode,omitempty"`
}

// FunctionClassOrDefault returns the resolved function class, falling back
// to normal function for unresolved variants (assumed wild-type).
func (av *AnnotatedVariant) FunctionClassOrDefault() FunctionClass {
	switch av.Source {
	case ResolvedByReference:
		if av.Entry != nil {
			return av.Entry.FunctionClass
		}
	case ResolvedByModel:
		return av.PredictedClass
	}
	return NormalFunction
}

// RSID returns the best-known rsID for the variant: the curated entry's,
// then the VCF ID column, then ".".
func (av *AnnotatedVariant) RSID() string {
	if av.Entry != nil && av.Entry.RSID != "" {
		return av.Entry.RSID
	}
	if av.VariantID != "" {
		return av.VariantID
	}
	return "."
}
