package service

import (
	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/reference"
)

// PhenotypeMapper translates a combined activity score into the gene's
// phenotype code using the store's ordered threshold bands.
type PhenotypeMapper struct {
	store *reference.Store
}

// NewPhenotypeMapper creates a mapper over the shared store.
func NewPhenotypeMapper(store *reference.Store) *PhenotypeMapper {
	return &PhenotypeMapper{store: store}
}

// Map returns the phenotype code for the activity score. Bands are
// upper-bound inclusive and ordered ascending, so a score exactly on a
// boundary falls into the lower (more conservative) band. An unknown gene is
// an UnsupportedGeneError.
func (m *PhenotypeMapper) Map(gene string, activity float64) (domain.PhenotypeCode, error) {
	info := m.store.Gene(gene)
	if info == nil {
		return "", &domain.UnsupportedGeneError{Gene: gene}
	}
	for _, band := range info.Bands {
		if activity <= band.Max {
			return band.Code, nil
		}
	}
	// The last band carries +Inf as its bound, so this is unreachable for a
	// well-formed table.
	return info.Bands[len(info.Bands)-1].Code, nil
}
