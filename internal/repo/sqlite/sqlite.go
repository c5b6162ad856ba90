package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/arifmahmud/uptimebot/internal/domain"
	"github.com/arifmahmud/uptimebot/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Store is the default persistence adapter, backed by an embedded sqlite
// database file.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database file and runs migrations.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// the driver serializes writes anyway; one connection avoids
	// SQLITE_BUSY under concurrent probe cycles
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS targets (
	id               TEXT PRIMARY KEY,
	owner_id         INTEGER NOT NULL,
	url              TEXT NOT NULL,
	interval_minutes INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'UNKNOWN',
	fail_count       INTEGER NOT NULL DEFAULT 0,
	last_check       TEXT,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_targets_owner ON targets (owner_id);

CREATE TABLE IF NOT EXISTS history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id  TEXT NOT NULL,
	up         INTEGER NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	checked_at TEXT NOT NULL,
	FOREIGN KEY(target_id) REFERENCES targets(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_history_target_id ON history (target_id, id);

CREATE TABLE IF NOT EXISTS access_codes (
	code     TEXT PRIMARY KEY,
	consumed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
	id       INTEGER PRIMARY KEY,
	verified INTEGER NOT NULL DEFAULT 0
);
`
	_, err := s.db.ExecContext(ctx, schema)
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO targets (id, owner_id, url, interval_minutes, status, fail_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), t.OwnerID, t.URL, t.IntervalMinutes, string(t.Status), t.FailCount,
		t.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	return nil
}

func (s *Store) GetTarget(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, url, interval_minutes, status, fail_count, last_check, created_at
		   FROM targets WHERE id = ?`, string(id))
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
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
		   FROM targets WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
}

func (s *Store) ListActiveTargets(ctx context.Context) ([]domain.Target, error) {
	return s.listTargets(ctx,
		`SELECT id, owner_id, url, interval_minutes, status, fail_count, last_check, created_at
		   FROM targets WHERE interval_minutes >= 1 ORDER BY created_at, id`)
}

func (s *Store) listTargets(ctx context.Context, query string, args ...any) ([]domain.Target, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
	res, err := s.db.ExecContext(ctx,
		`UPDATE targets SET interval_minutes = ? WHERE id = ?`, minutes, string(id))
	if err != nil {
		return fmt.Errorf("set interval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAfterProbe(ctx context.Context, id domain.TargetID, failCount int, status domain.Status, checkedAt time.Time) error {
	// a vanished row simply affects zero rows, which is the wanted no-op
	_, err := s.db.ExecContext(ctx,
		`UPDATE targets SET fail_count = ?, status = ?, last_check = ? WHERE id = ?`,
		failCount, string(status), checkedAt.UTC().Format(time.RFC3339Nano), string(id))
	if err != nil {
		return fmt.Errorf("update after probe: %w", err)
	}
	return nil
}

func (s *Store) DeleteTarget(ctx context.Context, id domain.TargetID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	// explicit cascade; foreign_keys pragma support varies per connection
	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE target_id = ?`, string(id)); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return tx.Commit()
}

// ---- HistoryStore ----

func (s *Store) AppendHistory(ctx context.Context, e *domain.HistoryEntry) error {
	// insert only while the owning target exists, so a cycle racing a
	// delete cannot leave orphan entries
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO history (target_id, up, detail, checked_at)
		 SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM targets WHERE id = ?)`,
		string(e.TargetID), boolToInt(e.Up), e.Detail,
		e.CheckedAt.UTC().Format(time.RFC3339Nano), string(e.TargetID))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (s *Store) RecentHistory(ctx context.Context, id domain.TargetID, limit int) ([]domain.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target_id, up, detail, checked_at
		   FROM (SELECT * FROM history WHERE target_id = ? ORDER BY id DESC LIMIT ?)
		  ORDER BY id`,
		string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		var (
			e       domain.HistoryEntry
			tid     string
			up      int
			checked string
		)
		if err := rows.Scan(&e.ID, &tid, &up, &e.Detail, &checked); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.TargetID = domain.TargetID(tid)
		e.Up = up != 0
		e.CheckedAt, _ = time.Parse(time.RFC3339Nano, checked)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- AccessStore ----

func (s *Store) EnsureUser(ctx context.Context, userID int64) (*domain.User, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	var verified int
	if err := s.db.QueryRowContext(ctx,
		`SELECT verified FROM users WHERE id = ?`, userID).Scan(&verified); err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	return &domain.User{ID: userID, Verified: verified != 0}, nil
}

func (s *Store) IsVerified(ctx context.Context, userID int64) (bool, error) {
	var verified int
	err := s.db.QueryRowContext(ctx,
		`SELECT verified FROM users WHERE id = ?`, userID).Scan(&verified)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read user: %w", err)
	}
	return verified != 0, nil
}

func (s *Store) CreateCode(ctx context.Context, code string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO access_codes (code) VALUES (?)`, code); err != nil {
		return fmt.Errorf("insert code: %w", err)
	}
	return nil
}

func (s *Store) RedeemCode(ctx context.Context, userID int64, code string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin redeem: %w", err)
	}
	defer tx.Rollback()

	// the guarded UPDATE is the consumption point: of two concurrent
	// redemptions only one affects a row
	res, err := tx.ExecContext(ctx,
		`UPDATE access_codes SET consumed = 1 WHERE code = ? AND consumed = 0`, code)
	if err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, verified) VALUES (?, 1)
		 ON CONFLICT(id) DO UPDATE SET verified = 1`, userID); err != nil {
		return false, fmt.Errorf("verify user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit redeem: %w", err)
	}
	return true, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTarget(row scannable) (*domain.Target, error) {
	var (
		t         domain.Target
		id        string
		status    string
		lastCheck sql.NullString
		createdAt string
	)
	if err := row.Scan(&id, &t.OwnerID, &t.URL, &t.IntervalMinutes, &status, &t.FailCount, &lastCheck, &createdAt); err != nil {
		return nil, err
	}
	t.ID = domain.TargetID(id)
	t.Status = domain.Status(status)
	if lastCheck.Valid {
		t.LastCheck, _ = time.Parse(time.RFC3339Nano, lastCheck.String)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
