package reference

import (
	"math"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

// Embedded defaults sourced from PharmVar v6.x and PharmGKB/CPIC guidelines,
// hg38 (GRCh38) coordinates. Overridable from versioned YAML tables at
// startup.

// GuidelineCPIC tags entries and assessments derived from CPIC guidelines.
const GuidelineCPIC = "CPIC"

func defaultEntries() []tableEntry {
	return []tableEntry{
		// CYP2D6
		{Chrom: "chr22", Pos: 42524947, Ref: "C", Alt: "T", Entry: domain.ReferenceEntry{Gene: "CYP2D6", StarAllele: "*4", RSID: "rs3892097", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr22", Pos: 42525772, Ref: "G", Alt: "C", Entry: domain.ReferenceEntry{Gene: "CYP2D6", StarAllele: "*2", RSID: "rs16947", FunctionClass: domain.NormalFunction, ActivityScore: 1.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr22", Pos: 42527613, Ref: "C", Alt: "T", Entry: domain.ReferenceEntry{Gene: "CYP2D6", StarAllele: "*10", RSID: "rs1065852", FunctionClass: domain.DecreasedFunction, ActivityScore: 0.25, Guideline: GuidelineCPIC}},
		{Chrom: "chr22", Pos: 42523805, Ref: "C", Alt: "T", Entry: domain.ReferenceEntry{Gene: "CYP2D6", StarAllele: "*17", RSID: "rs28371706", FunctionClass: domain.DecreasedFunction, ActivityScore: 0.5, Guideline: GuidelineCPIC}},
		{Chrom: "chr22", Pos: 42522612, Ref: "G", Alt: "A", Entry: domain.ReferenceEntry{Gene: "CYP2D6", StarAllele: "*41", RSID: "rs28371725", FunctionClass: domain.DecreasedFunction, ActivityScore: 0.5, Guideline: GuidelineCPIC}},
		// *1xN duplication proxy marker for gene duplication (ultra-rapid)
		{Chrom: "chr22", Pos: 42524214, Ref: "A", Alt: "G", Entry: domain.ReferenceEntry{Gene: "CYP2D6", StarAllele: "*1xN", RSID: "rs5030655", FunctionClass: domain.IncreasedFunction, ActivityScore: 2.0, Guideline: GuidelineCPIC}},

		// CYP2C19
		{Chrom: "chr10", Pos: 94781859, Ref: "G", Alt: "A", Entry: domain.ReferenceEntry{Gene: "CYP2C19", StarAllele: "*2", RSID: "rs4244285", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr10", Pos: 94780573, Ref: "G", Alt: "A", Entry: domain.ReferenceEntry{Gene: "CYP2C19", StarAllele: "*3", RSID: "rs4986893", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr10", Pos: 94761900, Ref: "C", Alt: "T", Entry: domain.ReferenceEntry{Gene: "CYP2C19", StarAllele: "*17", RSID: "rs12248560", FunctionClass: domain.IncreasedFunction, ActivityScore: 1.5, Guideline: GuidelineCPIC}},

		// CYP2C9
		{Chrom: "chr10", Pos: 96741053, Ref: "C", Alt: "T", Entry: domain.ReferenceEntry{Gene: "CYP2C9", StarAllele: "*2", RSID: "rs1799853", FunctionClass: domain.DecreasedFunction, ActivityScore: 0.5, Guideline: GuidelineCPIC}},
		{Chrom: "chr10", Pos: 96740981, Ref: "A", Alt: "C", Entry: domain.ReferenceEntry{Gene: "CYP2C9", StarAllele: "*3", RSID: "rs1057910", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr10", Pos: 96741058, Ref: "C", Alt: "G", Entry: domain.ReferenceEntry{Gene: "CYP2C9", StarAllele: "*5", RSID: "rs28371686", FunctionClass: domain.DecreasedFunction, ActivityScore: 0.5, Guideline: GuidelineCPIC}},
		{Chrom: "chr10", Pos: 96741048, Ref: "A", Alt: "del", Entry: domain.ReferenceEntry{Gene: "CYP2C9", StarAllele: "*6", RSID: "rs9332131", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},

		// SLCO1B1
		{Chrom: "chr12", Pos: 21178615, Ref: "T", Alt: "C", Entry: domain.ReferenceEntry{Gene: "SLCO1B1", StarAllele: "*5", RSID: "rs4149056", FunctionClass: domain.DecreasedFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr12", Pos: 21176804, Ref: "A", Alt: "G", Entry: domain.ReferenceEntry{Gene: "SLCO1B1", StarAllele: "*15", RSID: "rs2306283", FunctionClass: domain.DecreasedFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},

		// TPMT
		{Chrom: "chr6", Pos: 18130943, Ref: "G", Alt: "C", Entry: domain.ReferenceEntry{Gene: "TPMT", StarAllele: "*2", RSID: "rs1800462", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr6", Pos: 18130918, Ref: "C", Alt: "T", Entry: domain.ReferenceEntry{Gene: "TPMT", StarAllele: "*3B", RSID: "rs1800460", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr6", Pos: 18131006, Ref: "A", Alt: "G", Entry: domain.ReferenceEntry{Gene: "TPMT", StarAllele: "*3C", RSID: "rs1142345", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},

		// DPYD
		{Chrom: "chr1", Pos: 97915614, Ref: "C", Alt: "T", Entry: domain.ReferenceEntry{Gene: "DPYD", StarAllele: "*2A", RSID: "rs3918290", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr1", Pos: 97981395, Ref: "T", Alt: "G", Entry: domain.ReferenceEntry{Gene: "DPYD", StarAllele: "*13", RSID: "rs56038477", FunctionClass: domain.NoFunction, ActivityScore: 0.0, Guideline: GuidelineCPIC}},
		{Chrom: "chr1", Pos: 98348885, Ref: "A", Alt: "T", Entry: domain.ReferenceEntry{Gene: "DPYD", StarAllele: "c.2846A>T", RSID: "rs67376798", FunctionClass: domain.DecreasedFunction, ActivityScore: 0.5, Guideline: GuidelineCPIC}},
		{Chrom: "chr1", Pos: 97883329, Ref: "G", Alt: "A", Entry: domain.ReferenceEntry{Gene: "DPYD", StarAllele: "HapB3", RSID: "rs75017182", FunctionClass: domain.DecreasedFunction, ActivityScore: 0.5, Guideline: GuidelineCPIC}},
	}
}

// defaultGenes returns the per-gene configuration: wild-type default allele,
// approximate exon-level gene region (hg38), activity-score combiner, and
// ordered phenotype threshold bands (upper-bound inclusive; a score exactly
// on a boundary maps to the lower, more conservative band).
func defaultGenes() []GeneInfo {
	enzymeBands := []PhenotypeBand{
		{Max: 0.5, Code: domain.PoorMetabolizer},
		{Max: 1.25, Code: domain.IntermediateMetabolizer},
		{Max: 2.25, Code: domain.NormalMetabolizer},
		{Max: math.Inf(1), Code: domain.UltrarapidMetabolizer},
	}
	// TPMT has no ultra-rapid category in CPIC; scores above the normal band
	// stay normal.
	tpmtBands := []PhenotypeBand{
		{Max: 0.5, Code: domain.PoorMetabolizer},
		{Max: 1.5, Code: domain.IntermediateMetabolizer},
		{Max: math.Inf(1), Code: domain.NormalMetabolizer},
	}
	// SLCO1B1 is a transporter; activity maps to transport function.
	slcoBands := []PhenotypeBand{
		{Max: 0.5, Code: domain.PoorFunction},
		{Max: 1.5, Code: domain.DecreasedTransport},
		{Max: math.Inf(1), Code: domain.NormalTransport},
	}

	return []GeneInfo{
		{
			Symbol: "CYP2D6", Chrom: "chr22", Start: 42512000, End: 42530000,
			Combiner: CombineSum, Bands: enzymeBands,
			WildType: domain.ReferenceEntry{Gene: "CYP2D6", StarAllele: "*1", RSID: ".", FunctionClass: domain.NormalFunction, ActivityScore: 1.0, Guideline: GuidelineCPIC},
		},
		{
			Symbol: "CYP2C19", Chrom: "chr10", Start: 94756000, End: 94855000,
			Combiner: CombineSum, Bands: enzymeBands,
			WildType: domain.ReferenceEntry{Gene: "CYP2C19", StarAllele: "*1", RSID: ".", FunctionClass: domain.NormalFunction, ActivityScore: 1.0, Guideline: GuidelineCPIC},
		},
		{
			Symbol: "CYP2C9", Chrom: "chr10", Start: 96698000, End: 96749000,
			Combiner: CombineSum, Bands: enzymeBands,
			WildType: domain.ReferenceEntry{Gene: "CYP2C9", StarAllele: "*1", RSID: ".", FunctionClass: domain.NormalFunction, ActivityScore: 1.0, Guideline: GuidelineCPIC},
		},
		{
			Symbol: "SLCO1B1", Chrom: "chr12", Start: 21131000, End: 21239000,
			Combiner: CombineSum, Bands: slcoBands,
			WildType: domain.ReferenceEntry{Gene: "SLCO1B1", StarAllele: "*1a", RSID: ".", FunctionClass: domain.NormalFunction, ActivityScore: 1.0, Guideline: GuidelineCPIC},
		},
		{
			Symbol: "TPMT", Chrom: "chr6", Start: 18126000, End: 18157000,
			Combiner: CombineSum, Bands: tpmtBands,
			WildType: domain.ReferenceEntry{Gene: "TPMT", StarAllele: "*1", RSID: ".", FunctionClass: domain.NormalFunction, ActivityScore: 1.0, Guideline: GuidelineCPIC},
		},
		{
			Symbol: "DPYD", Chrom: "chr1", Start: 97543000, End: 98387000,
			Combiner: CombineSum, Bands: enzymeBands,
			WildType: domain.ReferenceEntry{Gene: "DPYD", StarAllele: "*1", RSID: ".", FunctionClass: domain.NormalFunction, ActivityScore: 1.0, Guideline: GuidelineCPIC},
		},
	}
}

// defaultDrugGenes maps normalized drug names to their primary pharmacogene.
func defaultDrugGenes() map[string]string {
	return map[string]string{
		"CODEINE":      "CYP2D6",
		"WARFARIN":     "CYP2C9",
		"CLOPIDOGREL":  "CYP2C19",
		"SIMVASTATIN":  "SLCO1B1",
		"AZATHIOPRINE": "TPMT",
		"FLUOROURACIL": "DPYD",
	}
}

// defaultRules returns the embedded CPIC drug-gene-phenotype decision table.
// Confidence values are guideline-strength weights before any ML-evidence
// penalty is applied.
func defaultRules() []GuidelineRule {
	return []GuidelineRule{
		// CYP2D6 / Codeine (prodrug: requires CYP2D6 activation)
		{Drug: "CODEINE", Gene: "CYP2D6", Phenotype: domain.UltrarapidMetabolizer, Label: domain.RiskToxic, Confidence: 0.97,
			Recommendation: "Avoid codeine. Ultra-rapid CYP2D6 metabolizers convert codeine to morphine at an accelerated rate, risking life-threatening respiratory depression. Use alternative analgesics."},
		{Drug: "CODEINE", Gene: "CYP2D6", Phenotype: domain.NormalMetabolizer, Label: domain.RiskSafe, Confidence: 0.95,
			Recommendation: "Standard codeine dosing is appropriate. Monitor for standard opioid side-effects."},
		{Drug: "CODEINE", Gene: "CYP2D6", Phenotype: domain.IntermediateMetabolizer, Label: domain.RiskAdjust, Confidence: 0.90,
			Recommendation: "Consider reducing codeine dose or substituting a non-CYP2D6-dependent analgesic. Reduced CYP2D6 activity may result in diminished analgesia at standard doses."},
		{Drug: "CODEINE", Gene: "CYP2D6", Phenotype: domain.PoorMetabolizer, Label: domain.RiskIneffective, Confidence: 0.97,
			Recommendation: "Avoid codeine. Poor CYP2D6 metabolizers cannot convert codeine to its active metabolite morphine. Expected analgesic failure; prescribe a non-prodrug opioid."},

		// CYP2C19 / Clopidogrel (prodrug)
		{Drug: "CLOPIDOGREL", Gene: "CYP2C19", Phenotype: domain.UltrarapidMetabolizer, Label: domain.RiskAdjust, Confidence: 0.85,
			Recommendation: "Standard clopidogrel dose is likely adequate. Consider monitoring platelet reactivity if standard therapy appears insufficient."},
		{Drug: "CLOPIDOGREL", Gene: "CYP2C19", Phenotype: domain.NormalMetabolizer, Label: domain.RiskSafe, Confidence: 0.95,
			Recommendation: "Standard clopidogrel dosing is appropriate per CPIC guidelines."},
		{Drug: "CLOPIDOGREL", Gene: "CYP2C19", Phenotype: domain.IntermediateMetabolizer, Label: domain.RiskIneffective, Confidence: 0.88,
			Recommendation: "Reduced clopidogrel activation. Consider alternative antiplatelet therapy (prasugrel, ticagrelor) to prevent stent thrombosis or cardiovascular events."},
		{Drug: "CLOPIDOGREL", Gene: "CYP2C19", Phenotype: domain.PoorMetabolizer, Label: domain.RiskIneffective, Confidence: 0.97,
			Recommendation: "Avoid clopidogrel. Poor CYP2C19 metabolizers cannot adequately activate the prodrug. Risk of stent thrombosis or stroke; prescribe prasugrel or ticagrelor per CPIC guidelines."},

		// CYP2C9 / Warfarin (active drug: requires CYP2C9 clearance)
		{Drug: "WARFARIN", Gene: "CYP2C9", Phenotype: domain.UltrarapidMetabolizer, Label: domain.RiskAdjust, Confidence: 0.85,
			Recommendation: "Warfarin may be cleared rapidly. Consider higher initial dose and close INR monitoring with CYP2C9 genotype-adjusted dosing."},
		{Drug: "WARFARIN", Gene: "CYP2C9", Phenotype: domain.NormalMetabolizer, Label: domain.RiskSafe, Confidence: 0.95,
			Recommendation: "Standard warfarin dosing algorithm is appropriate. Routine INR monitoring per clinical guidelines."},
		{Drug: "WARFARIN", Gene: "CYP2C9", Phenotype: domain.IntermediateMetabolizer, Label: domain.RiskAdjust, Confidence: 0.90,
			Recommendation: "Reduce warfarin starting dose by 25-50% (CPIC guideline). CYP2C9 intermediate metabolizers have reduced clearance; close INR monitoring during initiation."},
		{Drug: "WARFARIN", Gene: "CYP2C9", Phenotype: domain.PoorMetabolizer, Label: domain.RiskToxic, Confidence: 0.95,
			Recommendation: "Reduce warfarin starting dose by at least 50% (CPIC recommendation). Poor CYP2C9 metabolizers clear warfarin very slowly, with severe hemorrhagic risk. Intensive INR monitoring is mandatory."},

		// SLCO1B1 / Simvastatin (transporter substrate)
		{Drug: "SIMVASTATIN", Gene: "SLCO1B1", Phenotype: domain.NormalTransport, Label: domain.RiskSafe, Confidence: 0.94,
			Recommendation: "Standard simvastatin dose is appropriate. Normal SLCO1B1 transport function."},
		{Drug: "SIMVASTATIN", Gene: "SLCO1B1", Phenotype: domain.DecreasedTransport, Label: domain.RiskToxic, Confidence: 0.90,
			Recommendation: "Avoid high-dose simvastatin (>=40 mg/day). Reduced SLCO1B1 transport increases systemic statin exposure and myopathy risk. Consider pravastatin or rosuvastatin per CPIC."},
		{Drug: "SIMVASTATIN", Gene: "SLCO1B1", Phenotype: domain.PoorFunction, Label: domain.RiskToxic, Confidence: 0.96,
			Recommendation: "Avoid simvastatin. Poor SLCO1B1 function markedly elevates plasma statin concentration, with high risk of rhabdomyolysis. Prescribe a low-risk statin at conservative doses."},

		// TPMT / Azathioprine (active drug)
		{Drug: "AZATHIOPRINE", Gene: "TPMT", Phenotype: domain.NormalMetabolizer, Label: domain.RiskSafe, Confidence: 0.95,
			Recommendation: "Standard azathioprine or 6-mercaptopurine dosing is appropriate per CPIC guidelines."},
		{Drug: "AZATHIOPRINE", Gene: "TPMT", Phenotype: domain.IntermediateMetabolizer, Label: domain.RiskAdjust, Confidence: 0.90,
			Recommendation: "Reduce azathioprine starting dose by 30-70% (CPIC guideline). Intermediate TPMT metabolizers accumulate thiopurine metabolites; monitor blood counts closely."},
		{Drug: "AZATHIOPRINE", Gene: "TPMT", Phenotype: domain.PoorMetabolizer, Label: domain.RiskToxic, Confidence: 0.98,
			Recommendation: "Avoid azathioprine / 6-mercaptopurine or reduce dose by >=90%. Poor TPMT metabolizers accumulate cytotoxic thiopurine nucleotides, risking fatal myelosuppression. Consider alternative immunosuppressant therapy."},

		// DPYD / Fluorouracil (active drug)
		{Drug: "FLUOROURACIL", Gene: "DPYD", Phenotype: domain.NormalMetabolizer, Label: domain.RiskSafe, Confidence: 0.95,
			Recommendation: "Standard fluorouracil dosing is appropriate. Monitor for common 5-FU toxicities."},
		{Drug: "FLUOROURACIL", Gene: "DPYD", Phenotype: domain.IntermediateMetabolizer, Label: domain.RiskAdjust, Confidence: 0.90,
			Recommendation: "Reduce fluorouracil starting dose by 25-50% (CPIC guideline). Decreased DPYD activity slows 5-FU clearance, increasing risk of severe mucositis and neutropenia."},
		{Drug: "FLUOROURACIL", Gene: "DPYD", Phenotype: domain.PoorMetabolizer, Label: domain.RiskToxic, Confidence: 0.98,
			Recommendation: "Avoid fluorouracil / capecitabine. Poor DPYD metabolizers cannot clear 5-FU; standard doses cause life-threatening systemic toxicity. Consider alternative chemotherapy."},
	}
}
