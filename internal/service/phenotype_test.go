package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/reference"
)

func TestPhenotypeMapper_EnzymeBands(t *testing.T) {
	m := NewPhenotypeMapper(reference.NewDefaultStore())

	tests := []struct {
		name     string
		gene     string
		activity float64
		want     domain.PhenotypeCode
	}{
		{"zero activity is poor", "CYP2D6", 0.0, domain.PoorMetabolizer},
		{"boundary 0.5 stays poor", "CYP2D6", 0.5, domain.PoorMetabolizer},
		{"just above 0.5 is intermediate", "CYP2D6", 0.51, domain.IntermediateMetabolizer},
		{"boundary 1.25 stays intermediate", "CYP2D6", 1.25, domain.IntermediateMetabolizer},
		{"wild-type 2.0 is normal", "CYP2D6", 2.0, domain.NormalMetabolizer},
		{"boundary 2.25 stays normal", "CYP2D6", 2.25, domain.NormalMetabolizer},
		{"above 2.25 is ultrarapid", "CYP2D6", 2.26, domain.UltrarapidMetabolizer},
		{"gene duplication 3.0 is ultrarapid", "CYP2C19", 3.0, domain.UltrarapidMetabolizer},
		{"dpyd follows enzyme bands", "DPYD", 1.0, domain.IntermediateMetabolizer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Map(tt.gene, tt.activity)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhenotypeMapper_TPMTBands(t *testing.T) {
	m := NewPhenotypeMapper(reference.NewDefaultStore())

	tests := []struct {
		activity float64
		want     domain.PhenotypeCode
	}{
		{0.0, domain.PoorMetabolizer},
		{0.5, domain.PoorMetabolizer},
		{1.0, domain.IntermediateMetabolizer},
		{1.5, domain.IntermediateMetabolizer},
		{2.0, domain.NormalMetabolizer},
	}
	for _, tt := range tests {
		got, err := m.Map("TPMT", tt.activity)
		require.NoError(t, err)
		assert.Equalf(t, tt.want, got, "activity %.2f", tt.activity)
	}
}

func TestPhenotypeMapper_TransporterBands(t *testing.T) {
	m := NewPhenotypeMapper(reference.NewDefaultStore())

	tests := []struct {
		activity float64
		want     domain.PhenotypeCode
	}{
		{0.0, domain.PoorFunction},
		{0.5, domain.PoorFunction},
		{1.0, domain.DecreasedTransport},
		{1.5, domain.DecreasedTransport},
		{2.0, domain.NormalTransport},
	}
	for _, tt := range tests {
		got, err := m.Map("SLCO1B1", tt.activity)
		require.NoError(t, err)
		assert.Equalf(t, tt.want, got, "activity %.2f", tt.activity)
	}
}

func TestPhenotypeMapper_UnknownGene(t *testing.T) {
	m := NewPhenotypeMapper(reference.NewDefaultStore())

	_, err := m.Map("BRCA1", 1.0)
	var ugErr *domain.UnsupportedGeneError
	require.ErrorAs(t, err, &ugErr)
	assert.Equal(t, "BRCA1", ugErr.Gene)
}
