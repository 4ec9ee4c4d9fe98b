package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hwelland/qcflow/internal/core/domain"
)

type InspectionRepository struct {
	db *sql.DB
}

func NewInspectionRepository(db *sql.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *InspectionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across recorder startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS inspections (
	id TEXT PRIMARY KEY,
	inspection_type TEXT NOT NULL,
	source_filename TEXT,
	analytics JSONB NOT NULL DEFAULT '{}'::jsonb,
	submitted_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS inspection_defects (
	id BIGSERIAL PRIMARY KEY,
	inspection_id TEXT NOT NULL REFERENCES inspections(id) ON DELETE CASCADE,
	description TEXT NOT NULL,
	location TEXT,
	severity TEXT NOT NULL,
	category TEXT NOT NULL,
	department TEXT NOT NULL,
	assignee TEXT,
	status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inspections_created_at ON inspections(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_inspection_defects_inspection ON inspection_defects(inspection_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// CreateInspection writes the inspection row and its defect entries in one
// transaction; a failed defect insert rolls back the whole record.
func (r *InspectionRepository) CreateInspection(ctx context.Context, recordID string, draft domain.InspectionDraft) error {
	analyticsJSON, err := json.Marshal(draft.Analytics)
	if err != nil {
		return fmt.Errorf("marshal analytics: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin inspection tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO inspections (id, inspection_type, source_filename, analytics, submitted_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		recordID, string(draft.InspectionType), draft.SourceFilename, analyticsJSON,
		draft.SubmittedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert inspection: %w", err)
	}

	for _, defect := range draft.Defects {
		_, err = tx.ExecContext(ctx, `
INSERT INTO inspection_defects (inspection_id, description, location, severity, category, department, assignee, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
			recordID, defect.Description, defect.Location, string(defect.Severity),
			string(defect.Category), defect.Department, defect.Assignee, defect.Status,
		)
		if err != nil {
			return fmt.Errorf("insert defect: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit inspection tx: %w", err)
	}
	return nil
}
