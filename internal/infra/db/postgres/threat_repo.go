package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	domain "github.com/shieldhq/threatwatch/internal/domain/threats"
)

const pqUniqueViolation = "23505"

type ThreatRepository struct {
	db *sql.DB
}

var _ domain.Repository = (*ThreatRepository)(nil)

func NewThreatRepository(db *sql.DB) *ThreatRepository {
	return &ThreatRepository{db: db}
}

const threatColumns = `
id, title, description, source, source_url, published_at,
ai_threat_level, ai_category, ai_summary, ai_confidence, ai_keywords, ai_reason,
location, human_threat_level, human_category, human_notes, reviewed_by, reviewed_at,
requires_review, created_at, updated_at`

func (r *ThreatRepository) Insert(ctx context.Context, t *domain.Record) error {
	const q = `
INSERT INTO threats
(title, description, source, source_url, published_at,
 ai_threat_level, ai_category, ai_summary, ai_confidence, ai_keywords, ai_reason,
 location, requires_review, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id;`

	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	keywords := t.AIKeywords
	if keywords == nil {
		keywords = []string{}
	}
	kw, err := json.Marshal(keywords)
	if err != nil {
		return err
	}

	var id int64
	err = r.db.QueryRowContext(ctx, q,
		t.Title, t.Description, t.Source, t.SourceURL, t.PublishedAt,
		t.AIThreatLevel, t.AICategory, t.AISummary, t.AIConfidence, kw, t.AIReason,
		t.Location, t.RequiresReview, created, created,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateURL, t.SourceURL)
		}
		return err
	}

	t.ID = domain.ThreatID(id)
	t.CreatedAt = created
	t.UpdatedAt = created
	return nil
}

func (r *ThreatRepository) Get(ctx context.Context, id domain.ThreatID) (*domain.Record, error) {
	q := `SELECT ` + threatColumns + ` FROM threats WHERE id=$1 LIMIT 1;`
	rec, err := scanThreat(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return rec, err
}

func (r *ThreatRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	const q = `SELECT COUNT(*) FROM threats WHERE source_url=$1;`
	var n int
	if err := r.db.QueryRowContext(ctx, q, url).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ThreatRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Record, error) {
	query := `SELECT ` + threatColumns + ` FROM threats WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.MinLevel != nil {
		query += ` AND COALESCE(human_threat_level, ai_threat_level) >= ` + arg(*f.MinLevel)
	}
	if f.Since != nil {
		query += ` AND created_at >= ` + arg(*f.Since)
	}
	if f.Query != "" {
		pattern := "%" + escapeLikePattern(f.Query) + "%"
		query += ` AND (title LIKE ` + arg(pattern) + ` OR ai_summary LIKE ` + arg(pattern) + `)`
	}
	if f.RequiresReview != nil {
		query += ` AND requires_review = ` + arg(*f.RequiresReview)
	}
	query += ` ORDER BY created_at DESC, id DESC;`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		rec, err := scanThreat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *ThreatRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threats;`).Scan(&n)
	return n, err
}

func (r *ThreatRepository) ApplyReview(ctx context.Context, id domain.ThreatID, o domain.Override, reviewedAt time.Time) (*domain.Record, error) {
	const q = `
UPDATE threats
SET human_threat_level = $1,
    human_category = $2,
    human_notes = $3,
    reviewed_by = $4,
    reviewed_at = $5,
    updated_at = $6
WHERE id = $7;`
	res, err := r.db.ExecContext(ctx, q,
		o.HumanThreatLevel, o.HumanCategory, o.HumanNotes,
		o.Reviewer, reviewedAt, reviewedAt, id,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return r.Get(ctx, id)
}

func (r *ThreatRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM threats WHERE created_at < $1;`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThreat(row rowScanner) (*domain.Record, error) {
	var (
		t          domain.Record
		desc       sql.NullString
		published  sql.NullTime
		keywords   []byte
		location   sql.NullString
		humanLevel sql.NullInt64
		humanCat   sql.NullString
		humanNotes sql.NullString
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.Title, &desc, &t.Source, &t.SourceURL, &published,
		&t.AIThreatLevel, &t.AICategory, &t.AISummary, &t.AIConfidence, &keywords, &t.AIReason,
		&location, &humanLevel, &humanCat, &humanNotes, &reviewedBy, &reviewedAt,
		&t.RequiresReview, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	t.Description = desc.String
	t.Location = location.String
	if published.Valid {
		t.PublishedAt = &published.Time
	}
	if humanLevel.Valid {
		v := int(humanLevel.Int64)
		t.HumanThreatLevel = &v
	}
	if humanCat.Valid {
		t.HumanCategory = &humanCat.String
	}
	if humanNotes.Valid {
		t.HumanNotes = &humanNotes.String
	}
	if reviewedBy.Valid {
		t.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		t.ReviewedAt = &reviewedAt.Time
	}

	if len(keywords) == 0 {
		t.AIKeywords = []string{}
	} else if err := json.Unmarshal(keywords, &t.AIKeywords); err != nil {
		return nil, err
	}
	if t.AIKeywords == nil {
		t.AIKeywords = []string{}
	}
	return &t, nil
}

func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
