package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

func TestStore_Lookup(t *testing.T) {
	store := NewDefaultStore()

	entry := store.Lookup("chr22", 42524947, "C", "T")
	require.NotNil(t, entry)
	assert.Equal(t, "CYP2D6", entry.Gene)
	assert.Equal(t, "*4", entry.StarAllele)
	assert.Equal(t, "rs3892097", entry.RSID)
	assert.Equal(t, domain.NoFunction, entry.FunctionClass)
	assert.Equal(t, 0.0, entry.ActivityScore)

	// Exact matching only: same position, different alt.
	assert.Nil(t, store.Lookup("chr22", 42524947, "C", "G"))
	assert.Nil(t, store.Lookup("chr22", 42524948, "C", "T"))
}

func TestStore_RegionFor(t *testing.T) {
	store := NewDefaultStore()

	assert.Equal(t, "CYP2D6", store.RegionFor("chr22", 42520000))
	assert.Equal(t, "DPYD", store.RegionFor("chr1", 98000000))
	assert.Equal(t, "", store.RegionFor("chr22", 1000))
	assert.Equal(t, "", store.RegionFor("chrX", 42520000))
}

func TestStore_GeneForDrug(t *testing.T) {
	store := NewDefaultStore()

	tests := []struct {
		drug string
		gene string
	}{
		{"codeine", "CYP2D6"},
		{"CODEINE", "CYP2D6"},
		{"  Warfarin  ", "CYP2C9"},
		{"clopidogrel", "CYP2C19"},
		{"simvastatin", "SLCO1B1"},
		{"azathioprine", "TPMT"},
		{"fluorouracil", "DPYD"},
		{"aspirin", ""},
	}

	for _, tt := range tests {
		t.Run(tt.drug, func(t *testing.T) {
			assert.Equal(t, tt.gene, store.GeneForDrug(tt.drug))
		})
	}
}

func TestStore_Rule(t *testing.T) {
	store := NewDefaultStore()

	rule := store.Rule("codeine", "CYP2D6", domain.PoorMetabolizer)
	require.NotNil(t, rule)
	assert.Equal(t, domain.RiskIneffective, rule.Label)
	assert.InDelta(t, 0.97, rule.Confidence, 1e-9)
	assert.NotEmpty(t, rule.Recommendation)

	// No curated combination.
	assert.Nil(t, store.Rule("codeine", "CYP2D6", domain.NormalTransport))
	assert.Nil(t, store.Rule("ibuprofen", "CYP2D6", domain.PoorMetabolizer))
}

func TestStore_TargetGenes(t *testing.T) {
	store := NewDefaultStore()
	genes := store.TargetGenes()

	assert.ElementsMatch(t,
		[]string{"CYP2D6", "CYP2C19", "CYP2C9", "SLCO1B1", "TPMT", "DPYD"}, genes)

	for _, g := range genes {
		info := store.Gene(g)
		require.NotNil(t, info, g)
		assert.NotEmpty(t, info.Bands, g)
		assert.Equal(t, CombineSum, info.Combiner, g)
		assert.NotEmpty(t, info.WildType.StarAllele, g)
		assert.InDelta(t, 1.0, info.WildType.ActivityScore, 1e-9, g)
	}
}

func TestStore_SupportedDrugs(t *testing.T) {
	store := NewDefaultStore()
	assert.Equal(t,
		[]string{"AZATHIOPRINE", "CLOPIDOGREL", "CODEINE", "FLUOROURACIL", "SIMVASTATIN", "WARFARIN"},
		store.SupportedDrugs())
}

func TestNewStore_YAMLOverride(t *testing.T) {
	tmpDir := t.TempDir()
	tablePath := filepath.Join(tmpDir, "variants.yaml")

	table := `version: "2026.1"
variants:
  - chrom: chr22
    pos: 42524947
    ref: C
    alt: T
    entry:
      gene: CYP2D6
      star: "*4"
      rsid: rs3892097
      function: no_function
      activity: 0.0
      guideline: CPIC
`
	require.NoError(t, os.WriteFile(tablePath, []byte(table), 0644))

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store, err := NewStore(&domain.ReferenceConfig{TablePath: tablePath}, logger)
	require.NoError(t, err)

	// Only the override's single entry survives.
	require.NotNil(t, store.Lookup("chr22", 42524947, "C", "T"))
	assert.Nil(t, store.Lookup("chr10", 94781859, "G", "A"))

	// Gene configs and rules still come from the embedded defaults.
	assert.NotNil(t, store.Gene("CYP2C19"))
	assert.NotNil(t, store.Rule("warfarin", "CYP2C9", domain.PoorMetabolizer))
}

func TestNewStore_BadOverridePath(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	_, err := NewStore(&domain.ReferenceConfig{TablePath: "/does/not/exist.yaml"}, logger)
	require.Error(t, err)
}

func TestBuildStore_RejectsUnknownGene(t *testing.T) {
	entries := []tableEntry{
		{Chrom: "chr1", Pos: 1, Ref: "A", Alt: "T", Entry: domain.ReferenceEntry{Gene: "NOPE", FunctionClass: domain.NormalFunction}},
	}
	_, err := buildStore(entries, defaultGenes(), defaultRules(), defaultDrugGenes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown gene")
}

func TestBuildStore_RejectsUnsortedBands(t *testing.T) {
	genes := defaultGenes()
	genes[0].Bands = []PhenotypeBand{
		{Max: 2.0, Code: domain.NormalMetabolizer},
		{Max: 0.5, Code: domain.PoorMetabolizer},
	}
	_, err := buildStore(nil, genes, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ascending")
}
