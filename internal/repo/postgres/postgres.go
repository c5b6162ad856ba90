package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arifmahmud/uptimebot/internal/domain"
	"github.com/arifmahmud/uptimebot/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Store is the postgres adapter, selected when DATABASE_URL is set.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &Store{pool: pool, log: log}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS targets (
	id               TEXT PRIMARY KEY,
	owner_id         BIGINT NOT NULL,
	url              TEXT NOT NULL,
	interval_minutes INT NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'UNKNOWN',
	fail_count       INT NOT NULL DEFAULT 0,
	last_check       TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_targets_owner ON targets (owner_id);

CREATE TABLE IF NOT EXISTS history (
	id         BIGSERIAL PRIMARY KEY,
	target_id  TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	up         BOOLEAN NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	checked_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_target_id ON history (target_id, id);

CREATE TABLE IF NOT EXISTS access_codes (
	code     TEXT PRIMARY KEY,
	consumed BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS users (
	id       BIGINT PRIMARY KEY,
	verified BOOLEAN NOT NULL DEFAULT FALSE
);`)
	return err
}

// ---- TargetStore ----

func (s *Store) CreateTarget(ctx context.Context, t *domain.Target) error {
	if t.ID == "" {
		t.ID = domain.TargetID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = domain.StatusUnknown
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO targets (id, owner_id, url, interval_minutes, status, fail_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(t.ID), t.OwnerID, t.URL, t.IntervalMinutes, string(t.Status), t.FailCount, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	return nil
}

func (s *Store) GetTarget(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, url, interval_minutes, status, fail_count, last_check, created_at
		   FROM targets WHERE id = $1`, string(id))
	t, err := scanTarget(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	return t, nil
}

func (s *Store) ListTargetsByOwner(ctx context.Context, ownerID int64) ([]domain.Target, error) {
	return s.listTargets(ctx,
		`SELECT id, owner_id, url, interval_minutes, status, fail_count, last_check, created_at
		   FROM targets WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
}

func (s *Store) ListActiveTargets(ctx context.Context) ([]domain.Target, error) {
	return s.listTargets(ctx,
		`SELECT id, owner_id, url, interval_minutes, status, fail_count, last_check, created_at
		   FROM targets WHERE interval_minutes >= 1 ORDER BY created_at, id`)
}

func (s *Store) listTargets(ctx context.Context, query string, args ...any) ([]domain.Target, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var out []domain.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) SetTargetInterval(ctx context.Context, id domain.TargetID, minutes int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE targets SET interval_minutes = $1 WHERE id = $2`, minutes, string(id))
	if err != nil {
		return fmt.Errorf("set interval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAfterProbe(ctx context.Context, id domain.TargetID, failCount int, status domain.Status, checkedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE targets SET fail_count = $1, status = $2, last_check = $3 WHERE id = $4`,
		failCount, string(status), checkedAt.UTC(), string(id))
	if err != nil {
		return fmt.Errorf("update after probe: %w", err)
	}
	return nil
}

func (s *Store) DeleteTarget(ctx context.Context, id domain.TargetID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM targets WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ---- HistoryStore ----

func (s *Store) AppendHistory(ctx context.Context, e *domain.HistoryEntry) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO history (target_id, up, detail, checked_at)
		 SELECT $1, $2, $3, $4 WHERE EXISTS (SELECT 1 FROM targets WHERE id = $1)
		 RETURNING id`,
		string(e.TargetID), e.Up, e.Detail, e.CheckedAt.UTC()).Scan(&e.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// target deleted mid-cycle
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *Store) RecentHistory(ctx context.Context, id domain.TargetID, limit int) ([]domain.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, target_id, up, detail, checked_at FROM
		   (SELECT * FROM history WHERE target_id = $1 ORDER BY id DESC LIMIT $2) h
		  ORDER BY id`,
		string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		var (
			e   domain.HistoryEntry
			tid string
		)
		if err := rows.Scan(&e.ID, &tid, &e.Up, &e.Detail, &e.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.TargetID = domain.TargetID(tid)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- AccessStore ----

func (s *Store) EnsureUser(ctx context.Context, userID int64) (*domain.User, error) {
	var verified bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id) VALUES ($1)
		 ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		 RETURNING verified`, userID).Scan(&verified)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return &domain.User{ID: userID, Verified: verified}, nil
}

func (s *Store) IsVerified(ctx context.Context, userID int64) (bool, error) {
	var verified bool
	err := s.pool.QueryRow(ctx,
		`SELECT verified FROM users WHERE id = $1`, userID).Scan(&verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read user: %w", err)
	}
	return verified, nil
}

func (s *Store) CreateCode(ctx context.Context, code string) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO access_codes (code) VALUES ($1)`, code); err != nil {
		return fmt.Errorf("insert code: %w", err)
	}
	return nil
}

func (s *Store) RedeemCode(ctx context.Context, userID int64, code string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin redeem: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE access_codes SET consumed = TRUE WHERE code = $1 AND consumed = FALSE`, code)
	if err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO users (id, verified) VALUES ($1, TRUE)
		 ON CONFLICT (id) DO UPDATE SET verified = TRUE`, userID); err != nil {
		return false, fmt.Errorf("verify user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit redeem: %w", err)
	}
	return true, nil
}

func scanTarget(row pgx.Row) (*domain.Target, error) {
	var (
		t         domain.Target
		id        string
		status    string
		lastCheck *time.Time
	)
	if err := row.Scan(&id, &t.OwnerID, &t.URL, &t.IntervalMinutes, &status, &t.FailCount, &lastCheck, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ID = domain.TargetID(id)
	t.Status = domain.Status(status)
	if lastCheck != nil {
		t.LastCheck = *lastCheck
	}
	return &t, nil
}
