package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJobStore keeps jobs in the jobs table.
type PostgresJobStore struct {
	pool *pgxpool.Pool
}

// NewPostgresJobStore wraps a connection pool. Run Migrate first.
func NewPostgresJobStore(pool *pgxpool.Pool) *PostgresJobStore {
	return &PostgresJobStore{pool: pool}
}

const insertJobSQL = `
INSERT INTO jobs (
    id, created_at, original_filename, rows_count, cols_count, changelog,
    import_warning, repaired_rows, near_dupes_mode, ignored_columns,
    near_dupes_count, near_dupe_examples, delimiter, encoding, header
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const selectJobSQL = `
SELECT id, created_at, original_filename, rows_count, cols_count, changelog,
       import_warning, repaired_rows, near_dupes_mode, ignored_columns,
       near_dupes_count, near_dupe_examples, delimiter, encoding, header,
       paid, paid_at, stripe_session_id, stripe_event_id
FROM jobs WHERE id = $1`

// jsonColumns holds the JSONB encodings of a job.
type jsonColumns struct {
	changelog, repaired, ignored, examples, header []byte
}

func encodeJSONColumns(j *Job) (jsonColumns, error) {
	var (
		c   jsonColumns
		err error
	)
	enc := func(v any) []byte {
		if err != nil {
			return nil
		}
		var b []byte
		b, err = json.Marshal(v)
		return b
	}
	c.changelog = enc(nonNil(j.Changelog))
	c.repaired = enc(nonNil(j.RepairedRows))
	c.ignored = enc(nonNil(j.IgnoredColumns))
	c.examples = enc(nonNil(j.NearDupeExamples))
	c.header = enc(j.Header)
	return c, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *PostgresJobStore) Create(ctx context.Context, job *Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	c, err := encodeJSONColumns(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	_, err = s.pool.Exec(ctx, insertJobSQL,
		job.ID, job.CreatedAt, job.OriginalFilename, job.Rows, job.Cols, c.changelog,
		job.ImportWarning, c.repaired, job.NearDupesMode, c.ignored,
		job.NearDupesCount, c.examples, job.Delimiter, job.Encoding, c.header,
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (*Job, error) {
	var (
		j Job
		c jsonColumns
	)
	err := s.pool.QueryRow(ctx, selectJobSQL, id).Scan(
		&j.ID, &j.CreatedAt, &j.OriginalFilename, &j.Rows, &j.Cols, &c.changelog,
		&j.ImportWarning, &c.repaired, &j.NearDupesMode, &c.ignored,
		&j.NearDupesCount, &c.examples, &j.Delimiter, &j.Encoding, &c.header,
		&j.Paid, &j.PaidAt, &j.StripeSessionID, &j.StripeEventID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job %s: %w", id, err)
	}

	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{c.changelog, &j.Changelog},
		{c.repaired, &j.RepairedRows},
		{c.ignored, &j.IgnoredColumns},
		{c.examples, &j.NearDupeExamples},
		{c.header, &j.Header},
	} {
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decode job %s: %w", id, err)
		}
	}
	return &j, nil
}

func (s *PostgresJobStore) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE jobs SET stripe_session_id = $2 WHERE id = $1`, id, sessionID)
	if err != nil {
		return fmt.Errorf("set checkout session for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

const markPaidSQL = `
UPDATE jobs SET
    paid = true,
    paid_at = COALESCE(paid_at, now()),
    stripe_session_id = CASE WHEN $2::text <> '' THEN $2::text ELSE stripe_session_id END,
    stripe_event_id = CASE WHEN $3::text <> '' THEN $3::text ELSE stripe_event_id END
WHERE id = $1 AND ($3::text = '' OR stripe_event_id <> $3::text)`

func (s *PostgresJobStore) MarkPaid(ctx context.Context, id, sessionID, eventID string) error {
	tag, err := s.pool.Exec(ctx, markPaidSQL, id, sessionID, eventID)
	if err != nil {
		return fmt.Errorf("mark job %s paid: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check job %s: %w", id, err)
	}
	if !exists {
		return ErrJobNotFound
	}
	return ErrDuplicateEvent
}

func (s *PostgresJobStore) ListExpired(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM jobs WHERE created_at < $1 ORDER BY created_at`, before)
	if err != nil {
		return nil, fmt.Errorf("list expired jobs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan expired jobs: %w", err)
	}
	return ids, nil
}

func (s *PostgresJobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}
