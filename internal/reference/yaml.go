package reference

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

// variantTableFile is the on-disk YAML layout for curated variant tables.
// Versioned guideline data ships in this format so table updates never
// require a code change.
type variantTableFile struct {
	Version  string       `yaml:"version"`
	Variants []tableEntry `yaml:"variants"`
}

// guidelineTableFile is the on-disk YAML layout for the decision table and
// the drug-to-gene map.
type guidelineTableFile struct {
	Version   string            `yaml:"version"`
	DrugGenes map[string]string `yaml:"drug_genes"`
	Rules     []GuidelineRule   `yaml:"rules"`
}

func loadVariantTable(path string) ([]tableEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading variant table: %w", err)
	}

	var file variantTableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing variant table: %w", err)
	}
	if len(file.Variants) == 0 {
		return nil, fmt.Errorf("variant table %s contains no variants", path)
	}
	return file.Variants, nil
}

func loadGuidelineTable(path string) ([]GuidelineRule, map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading guideline table: %w", err)
	}

	var file guidelineTableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("parsing guideline table: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, nil, fmt.Errorf("guideline table %s contains no rules", path)
	}

	drugGenes := make(map[string]string, len(file.DrugGenes))
	for drug, gene := range file.DrugGenes {
		drugGenes[domain.NormalizeDrug(drug)] = gene
	}
	return file.Rules, drugGenes, nil
}
