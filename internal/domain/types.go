// Package domain contains core business entities and types for pharmacogenomic
// risk assessment following CPIC (Clinical Pharmacogenetics Implementation
// Consortium) guidelines.
//
// Reference: Caudle et al. (2017) Standardizing terms for clinical
// pharmacogenetic test results. Genet Med. 19(2):215-223. doi: 10.1038/gim.2016.87
package domain

import (
	"errors"
	"strings"
)

// FunctionClass represents the functional category assigned to a star allele
// by PharmVar/CPIC. These four classes drive activity-score assignment and
// are also the output classes of the neural fallback classifier.
type FunctionClass string

const (
	NormalFunction    FunctionClass = "normal_function"
	DecreasedFunction FunctionClass = "decreased_function"
	IncreasedFunction FunctionClass = "increased_function"
	NoFunction        FunctionClass = "no_function"
)

// FunctionClasses lists all valid function classes in model output order.
// The index of each class must stay fixed: it is the class index produced by
// the neural classifier's output layer.
var FunctionClasses = []FunctionClass{
	NormalFunction,
	DecreasedFunction,
	IncreasedFunction,
	NoFunction,
}

// Zygosity represents the genotype state at a single position.
type Zygosity string

const (
	HomozygousRef Zygosity = "hom_ref"
	Heterozygous  Zygosity = "het"
	HomozygousAlt Zygosity = "hom_alt"
	MissingCall   Zygosity = "missing"
)

// RiskLabel represents the pharmacogenomic risk category for a drug.
type RiskLabel string

const (
	RiskSafe        RiskLabel = "Safe"
	RiskAdjust      RiskLabel = "Adjust Dosage"
	RiskToxic       RiskLabel = "Toxic"
	RiskIneffective RiskLabel = "Ineffective"
)

// Severity represents the clinical urgency attached to a risk label.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// PhenotypeCode is the short metabolizer/transporter phenotype code used in
// JSON output ("PM", "IM", "NM", "UM" for metabolic enzymes; "PF", "DF", "NF"
// for transporters such as SLCO1B1).
type PhenotypeCode string

const (
	PoorMetabolizer         PhenotypeCode = "PM"
	IntermediateMetabolizer PhenotypeCode = "IM"
	NormalMetabolizer       PhenotypeCode = "NM"
	UltrarapidMetabolizer   PhenotypeCode = "UM"
	PoorFunction            PhenotypeCode = "PF"
	DecreasedTransport      PhenotypeCode = "DF"
	NormalTransport         PhenotypeCode = "NF"
)

// ResolutionSource records how a variant's function class was determined.
// Downstream consumers must always be able to distinguish curated evidence
// from model-derived evidence from assumed wild-type.
type ResolutionSource string

const (
	ResolvedByReference ResolutionSource = "reference"
	ResolvedByModel     ResolutionSource = "ml_prediction"
	Unresolved          ResolutionSource = "unresolved"
	WildTypeDefault     ResolutionSource = "default"
)

// Validation errors for phenotype and risk data integrity.
var (
	ErrInvalidFunctionClass = errors.New("invalid function class")
	ErrInvalidZygosity      = errors.New("invalid zygosity")
	ErrInvalidRiskLabel     = errors.New("invalid risk label")
	ErrInvalidSeverity      = errors.New("invalid severity")
	ErrInvalidPhenotype     = errors.New("invalid phenotype code")
)

// IsValid validates the function class against the CPIC vocabulary.
func (fc FunctionClass) IsValid() bool {
	switch fc {
	case NormalFunction, DecreasedFunction, IncreasedFunction, NoFunction:
		return true
	default:
		return false
	}
}

// String returns the string representation of the function class.
func (fc FunctionClass) String() string {
	return string(fc)
}

// IsValid validates the zygosity state for the two-allele diploid model.
func (z Zygosity) IsValid() bool {
	switch z {
	case HomozygousRef, Heterozygous, HomozygousAlt, MissingCall:
		return true
	default:
		return false
	}
}

// String returns the string representation of the zygosity.
func (z Zygosity) String() string {
	return string(z)
}

// IsValid validates the risk label.
func (rl RiskLabel) IsValid() bool {
	switch rl {
	case RiskSafe, RiskAdjust, RiskToxic, RiskIneffective:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk label.
func (rl RiskLabel) String() string {
	return string(rl)
}

// RequiresClinicalAction reports whether the risk label demands prescriber
// follow-up before the drug is dispensed.
func (rl RiskLabel) RequiresClinicalAction() bool {
	switch rl {
	case RiskToxic, RiskIneffective, RiskAdjust:
		return true
	case RiskSafe:
		return false
	default:
		return true // Conservative approach for unknown labels
	}
}

// LogFields returns structured logging fields for audit trails.
// Returns strongly-typed fields to prevent logging errors in medical contexts.
func (rl RiskLabel) LogFields() map[string]any {
	return map[string]any{
		"risk_label":      string(rl),
		"is_valid":        rl.IsValid(),
		"requires_action": rl.RequiresClinicalAction(),
	}
}

// IsValid validates the severity level.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid validates the phenotype code.
func (pc PhenotypeCode) IsValid() bool {
	switch pc {
	case PoorMetabolizer, IntermediateMetabolizer, NormalMetabolizer, UltrarapidMetabolizer,
		PoorFunction, DecreasedTransport, NormalTransport:
		return true
	default:
		return false
	}
}

// String returns the string representation of the phenotype code.
func (pc PhenotypeCode) String() string {
	return string(pc)
}

// Description returns the long-form phenotype name used in clinical reporting.
func (pc PhenotypeCode) Description() string {
	switch pc {
	case PoorMetabolizer:
		return "Poor Metabolizer"
	case IntermediateMetabolizer:
		return "Intermediate Metabolizer"
	case NormalMetabolizer:
		return "Normal Metabolizer"
	case UltrarapidMetabolizer:
		return "Ultra-Rapid Metabolizer"
	case PoorFunction:
		return "Poor Function"
	case DecreasedTransport:
		return "Decreased Function"
	case NormalTransport:
		return "Normal Function"
	default:
		return "Unknown Phenotype"
	}
}

// IsValid validates the resolution source tag.
func (rs ResolutionSource) IsValid() bool {
	switch rs {
	case ResolvedByReference, ResolvedByModel, Unresolved, WildTypeDefault:
		return true
	default:
		return false
	}
}

// String returns the string representation of the resolution source.
func (rs ResolutionSource) String() string {
	return string(rs)
}

// NormalizeDrug canonicalizes a drug name for decision-table lookup.
// Table keys are uppercase; display names are produced by DisplayDrug.
func NormalizeDrug(drug string) string {
	return strings.ToUpper(strings.TrimSpace(drug))
}

// DisplayDrug returns the title-cased display form of a drug name.
func DisplayDrug(drug string) string {
	d := strings.ToLower(strings.TrimSpace(drug))
	if d == "" {
		return ""
	}
	return strings.ToUpper(d[:1]) + d[1:]
}
