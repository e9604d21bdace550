package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
)

type AnalysisRepository struct{ db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

// Save insert/update Analysis record
func (r *AnalysisRepository) Save(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO seo_analyses
(id, target_url, keywords, locale, state, failure_reason,
 overall_score, coverage, report_doc, submitted_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,
        $7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
 state = EXCLUDED.state,
 failure_reason = EXCLUDED.failure_reason,
 overall_score = EXCLUDED.overall_score,
 coverage = EXCLUDED.coverage,
 report_doc = EXCLUDED.report_doc,
 updated_at = EXCLUDED.updated_at;`

	locale := stringOrDash(rec.Request.Locale)
	state := stringOrDash(string(rec.State))

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	var score float64
	var coverage string
	var reportDoc sql.NullString
	if rec.Report != nil {
		score = rec.Report.OverallScore
		coverage = string(rec.Report.Coverage)
		b, err := json.Marshal(rec.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		reportDoc = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.Request.TargetURL, strings.Join(rec.Request.Keywords, ","), locale,
		state, rec.FailureReason,
		score, coverage, reportDoc,
		rec.Request.SubmittedAt, created, updated,
	)
	return err
}

// Get by ID
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Record, error) {
	const q = `
SELECT id, target_url, keywords, locale, state, failure_reason,
       report_doc, submitted_at, created_at, updated_at
FROM seo_analyses
WHERE id=$1
LIMIT 1;`
	return scanRecord(r.db.QueryRowContext(ctx, q, id))
}

// Latest analyses untuk satu target
func (r *AnalysisRepository) Latest(ctx context.Context, targetURL string, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, target_url, keywords, locale, state, failure_reason,
       report_doc, submitted_at, created_at, updated_at
FROM seo_analyses
WHERE target_url=$1 ORDER BY submitted_at DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, targetURL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateState update kolom state + failure_reason saja
func (r *AnalysisRepository) UpdateState(ctx context.Context, id domain.AnalysisID, state domain.State, reason string) error {
	const q = `
UPDATE seo_analyses
SET state = $1, failure_reason = $2, updated_at = $3
WHERE id = $4;`
	_, err := r.db.ExecContext(ctx, q, state, reason, time.Now(), id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// stringOrDash returns "-" when the input is empty/whitespace, the summary
// columns are NOT NULL
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var rec domain.Record
	var keywords string
	var reportDoc sql.NullString
	if err := row.Scan(
		&rec.ID, &rec.Request.TargetURL, &keywords, &rec.Request.Locale,
		&rec.State, &rec.FailureReason,
		&reportDoc, &rec.Request.SubmittedAt, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Request.ID = rec.ID
	if keywords != "" {
		rec.Request.Keywords = strings.Split(keywords, ",")
	}
	if reportDoc.Valid && reportDoc.String != "" {
		var rep domain.Report
		if err := json.Unmarshal([]byte(reportDoc.String), &rep); err != nil {
			return nil, fmt.Errorf("unmarshal report doc: %w", err)
		}
		rec.Report = &rep
	}
	return &rec, nil
}
