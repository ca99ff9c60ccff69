package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	domain "github.com/shieldhq/threatwatch/internal/domain/threats"
)

const mysqlDuplicateEntry = 1062

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

// Insert stores a new record; the source_url unique key maps collisions to
// ErrDuplicateURL rather than upserting, so a repeat never overwrites.
func (r *ThreatRepository) Insert(ctx context.Context, t *domain.Record) error {
	const q = `
INSERT INTO threats
(title, description, source, source_url, published_at,
 ai_threat_level, ai_category, ai_summary, ai_confidence, ai_keywords, ai_reason,
 location, requires_review, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`

	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	keywords, err := marshalKeywords(t.AIKeywords)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, q,
		t.Title, t.Description, t.Source, t.SourceURL, t.PublishedAt,
		t.AIThreatLevel, t.AICategory, t.AISummary, t.AIConfidence, keywords, t.AIReason,
		t.Location, t.RequiresReview, created, created,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateURL, t.SourceURL)
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = domain.ThreatID(id)
	t.CreatedAt = created
	t.UpdatedAt = created
	return nil
}

func (r *ThreatRepository) Get(ctx context.Context, id domain.ThreatID) (*domain.Record, error) {
	q := `SELECT ` + threatColumns + ` FROM threats WHERE id=? LIMIT 1;`
	rec, err := scanThreat(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return rec, err
}

func (r *ThreatRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	const q = `SELECT COUNT(*) FROM threats WHERE source_url=?;`
	var n int
	if err := r.db.QueryRowContext(ctx, q, url).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ThreatRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Record, error) {
	query := `SELECT ` + threatColumns + ` FROM threats WHERE 1=1`
	var args []any

	if f.MinLevel != nil {
		query += ` AND COALESCE(human_threat_level, ai_threat_level) >= ?`
		args = append(args, *f.MinLevel)
	}
	if f.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *f.Since)
	}
	if f.Query != "" {
		pattern := "%" + escapeLikePattern(f.Query) + "%"
		query += ` AND (title LIKE ? OR ai_summary LIKE ?)`
		args = append(args, pattern, pattern)
	}
	if f.RequiresReview != nil {
		query += ` AND requires_review = ?`
		args = append(args, *f.RequiresReview)
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

// ApplyReview writes the human override and stamps the reviewer.
func (r *ThreatRepository) ApplyReview(ctx context.Context, id domain.ThreatID, o domain.Override, reviewedAt time.Time) (*domain.Record, error) {
	const q = `
UPDATE threats
SET human_threat_level = ?,
    human_category = ?,
    human_notes = ?,
    reviewed_by = ?,
    reviewed_at = ?,
    updated_at = ?
WHERE id = ?;`
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
		// RowsAffected is 0 both for a missing row and for a no-op update;
		// distinguish with a lookup.
		if _, gerr := r.Get(ctx, id); gerr != nil {
			return nil, gerr
		}
	}
	return r.Get(ctx, id)
}

func (r *ThreatRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM threats WHERE created_at < ?;`, cutoff)
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
		keywords   string
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

	var err error
	t.AIKeywords, err = unmarshalKeywords(keywords)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
