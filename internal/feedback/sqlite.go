package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pharmaguard/pgx-server/internal/domain"

	_ "modernc.org/sqlite"
)

var errMissingKey = errors.New("feedback requires patient_id and drug")

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the feedback database and its
// schema. WAL mode keeps concurrent reads cheap while reviews trickle in.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS risk_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT NOT NULL,
		drug TEXT NOT NULL,
		gene TEXT DEFAULT '',
		diplotype TEXT DEFAULT '',
		phenotype_code TEXT DEFAULT '',
		reported_risk TEXT NOT NULL,
		clinician_risk TEXT NOT NULL,
		agreed INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(patient_id, drug)
	);

	CREATE INDEX IF NOT EXISTS idx_risk_feedback_drug ON risk_feedback(drug);
	CREATE INDEX IF NOT EXISTS idx_risk_feedback_gene ON risk_feedback(gene);
	CREATE INDEX IF NOT EXISTS idx_risk_feedback_created_at ON risk_feedback(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// scanner covers sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var phenotype, reported, clinician string

	err := s.Scan(
		&fb.ID, &fb.PatientID, &fb.Drug, &fb.Gene, &fb.Diplotype,
		&phenotype, &reported, &clinician, &fb.Agreed,
		&fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.Phenotype = domain.PhenotypeCode(phenotype)
	fb.ReportedRisk = domain.RiskLabel(reported)
	fb.ClinicianRisk = domain.RiskLabel(clinician)
	return fb, nil
}

// Save stores or updates the review for a patient-drug pair.
func (s *SQLiteStore) Save(ctx context.Context, fb *Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	fb.Drug = domain.NormalizeDrug(fb.Drug)
	now := time.Now()

	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM risk_feedback WHERE patient_id = ? AND drug = ?",
		fb.PatientID, fb.Drug,
	).Scan(&existingID)

	if err == nil {
		fb.ID = existingID
		fb.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE risk_feedback SET
				gene = ?,
				diplotype = ?,
				phenotype_code = ?,
				reported_risk = ?,
				clinician_risk = ?,
				agreed = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			fb.Gene,
			fb.Diplotype,
			string(fb.Phenotype),
			string(fb.ReportedRisk),
			string(fb.ClinicianRisk),
			fb.Agreed,
			fb.Notes,
			now,
			existingID,
		)
		return err
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	fb.CreatedAt = now
	fb.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_feedback (
			patient_id, drug, gene, diplotype, phenotype_code,
			reported_risk, clinician_risk, agreed, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fb.PatientID,
		fb.Drug,
		fb.Gene,
		fb.Diplotype,
		string(fb.Phenotype),
		string(fb.ReportedRisk),
		string(fb.ClinicianRisk),
		fb.Agreed,
		fb.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	fb.ID = id

	return nil
}

// Get retrieves the review for a patient-drug pair, nil when absent.
func (s *SQLiteStore) Get(ctx context.Context, patientID, drug string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, drug, gene, diplotype,
			phenotype_code, reported_risk, clinician_risk, agreed,
			notes, created_at, updated_at
		FROM risk_feedback
		WHERE patient_id = ? AND drug = ?
		LIMIT 1
	`, patientID, domain.NormalizeDrug(drug))

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return fb, nil
}

// List returns reviews newest-first with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, drug, gene, diplotype,
			phenotype_code, reported_risk, clinician_risk, agreed,
			notes, created_at, updated_at
		FROM risk_feedback
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Count returns the total number of stored reviews.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM risk_feedback").Scan(&count)
	return count, err
}

// Delete removes a review by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM risk_feedback WHERE id = ?", id)
	return err
}

// maxExportLimit bounds a single export.
const maxExportLimit = 1000000

// ExportJSON writes every review as a versioned JSON document.
func (s *SQLiteStore) ExportJSON(ctx context.Context, w io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON loads reviews from an export, skipping pairs already stored.
func (s *SQLiteStore) ImportJSON(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		existing, err := s.Get(ctx, fb.PatientID, fb.Drug)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
