package session

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"ordercloud-storefront/internal/domain"
)

// PostgresRepo is the Postgres-backed Repository.
type PostgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	ttl    time.Duration
}

// NewPostgres stores session values in the session_values table. A positive ttl
// makes every write expire after that long.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger, ttl time.Duration) *PostgresRepo {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &PostgresRepo{pool: pool, logger: logger, ttl: ttl}
}

func (r *PostgresRepo) Get(ctx context.Context, key string) (Entry, error) {
	const q = `
SELECT value, version
FROM session_values
WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
`
	var e Entry
	if err := r.pool.QueryRow(ctx, q, key).Scan(&e.Value, &e.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, domain.ErrNotFound
		}
		r.logger.Printf("session repo: get key=%s error=%v", key, err)
		return Entry{}, err
	}
	return e, nil
}

func (r *PostgresRepo) Set(ctx context.Context, key, value string) (int64, error) {
	const q = `
INSERT INTO session_values (key, value, version, updated_at, expires_at)
VALUES ($1, $2, 1, now(), $3)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value,
    version = session_values.version + 1,
    updated_at = now(),
    expires_at = EXCLUDED.expires_at
RETURNING version
`
	var version int64
	if err := r.pool.QueryRow(ctx, q, key, value, r.expiresAt()).Scan(&version); err != nil {
		r.logger.Printf("session repo: set key=%s error=%v", key, err)
		return 0, err
	}
	return version, nil
}

func (r *PostgresRepo) CompareAndSet(ctx context.Context, key, value string, expectVersion int64) (int64, bool, error) {
	q := `
UPDATE session_values
SET value = $2,
    version = version + 1,
    updated_at = now(),
    expires_at = $4
WHERE key = $1 AND version = $3 AND (expires_at IS NULL OR expires_at > now())
RETURNING version
`
	args := []any{key, value, expectVersion, r.expiresAt()}
	if expectVersion == 0 {
		// Absent also covers a row that has expired but not yet been purged.
		q = `
INSERT INTO session_values (key, value, version, updated_at, expires_at)
VALUES ($1, $2, 1, now(), $3)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value,
    version = session_values.version + 1,
    updated_at = now(),
    expires_at = EXCLUDED.expires_at
WHERE session_values.expires_at IS NOT NULL AND session_values.expires_at <= now()
RETURNING version
`
		args = []any{key, value, r.expiresAt()}
	}

	var version int64
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		r.logger.Printf("session repo: cas key=%s version=%d error=%v", key, expectVersion, err)
		return 0, false, err
	}
	return version, true, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, key string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM session_values WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PurgeExpired removes rows whose expiry has passed and returns how many were removed.
func (r *PostgresRepo) PurgeExpired(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM session_values WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	if n := cmd.RowsAffected(); n > 0 {
		r.logger.Printf("session repo: purged expired=%d", n)
	}
	return cmd.RowsAffected(), nil
}

func (r *PostgresRepo) expiresAt() *time.Time {
	if r.ttl <= 0 {
		return nil
	}
	t := time.Now().Add(r.ttl).UTC()
	return &t
}
