package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/clearledger/taxintake/internal/core/domain"
)

// EngagementRepository stores the whole engagement aggregate as one JSONB row.
// The record column is the single consistency boundary; status and
// last_activity_at are duplicated as columns only for listing.
type EngagementRepository struct {
	db *sql.DB
}

func NewEngagementRepository(db *sql.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
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

func (r *EngagementRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker/poller startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS engagements (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	record JSONB NOT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	last_activity_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_engagements_status ON engagements(status);
CREATE INDEX IF NOT EXISTS idx_engagements_last_activity ON engagements(last_activity_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *EngagementRepository) Create(ctx context.Context, e *domain.Engagement) error {
	record, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal engagement: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO engagements (id, status, record, version, last_activity_at, created_at, updated_at)
VALUES ($1,$2,$3,1,$4,$5,$6)
`,
		e.ID, string(e.Status), record, e.LastActivityAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert engagement: %w", err)
	}
	e.Version = 1
	return nil
}

func (r *EngagementRepository) GetByID(ctx context.Context, id string) (*domain.Engagement, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT record, version
FROM engagements
WHERE id = $1
`, id)

	var record []byte
	var version int64
	if err := row.Scan(&record, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEngagementNotFound, "get engagement", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan engagement: %w", err)
	}

	var e domain.Engagement
	if err := json.Unmarshal(record, &e); err != nil {
		return nil, fmt.Errorf("unmarshal engagement: %w", err)
	}
	e.Version = version
	return &e, nil
}

// Update writes the whole aggregate back with a compare-and-swap on version.
// Zero rows affected means either a concurrent writer won or the row is gone;
// the two cases map to distinct error kinds.
func (r *EngagementRepository) Update(ctx context.Context, e *domain.Engagement) error {
	record, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal engagement: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE engagements
SET status = $3, record = $4, version = version + 1, last_activity_at = $5, updated_at = $6
WHERE id = $1 AND version = $2
`,
		e.ID, e.Version, string(e.Status), record, e.LastActivityAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update engagement: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update engagement rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM engagements WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check engagement existence: %w", err)
		}
		if !exists {
			return domain.WrapError(domain.ErrEngagementNotFound, "update engagement", fmt.Errorf("id %s", e.ID))
		}
		return domain.WrapError(domain.ErrVersionConflict, "update engagement",
			fmt.Errorf("id %s version %d", e.ID, e.Version))
	}

	e.Version++
	return nil
}

func (r *EngagementRepository) ListByStatus(ctx context.Context, statuses ...domain.EngagementStatus) ([]domain.Engagement, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(s)
	}

	query := fmt.Sprintf(`
SELECT record, version
FROM engagements
WHERE status IN (%s)
ORDER BY created_at
`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list engagements: %w", err)
	}
	defer rows.Close()

	var out []domain.Engagement
	for rows.Next() {
		var record []byte
		var version int64
		if err := rows.Scan(&record, &version); err != nil {
			return nil, fmt.Errorf("scan engagement row: %w", err)
		}
		var e domain.Engagement
		if err := json.Unmarshal(record, &e); err != nil {
			return nil, fmt.Errorf("unmarshal engagement row: %w", err)
		}
		e.Version = version
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engagements: %w", err)
	}
	return out, nil
}
