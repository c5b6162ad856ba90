package repo

import (
	"context"
	"errors"
	"time"

	"github.com/arifmahmud/uptimebot/internal/domain"
)

// ErrNotFound is returned by lookups and deletes for a record that does
// not exist. Note that UpdateAfterProbe deliberately does NOT return it.
var ErrNotFound = errors.New("not found")

// Ports (interfaces) — swap in any DB adapter later.

type TargetStore interface {
	CreateTarget(ctx context.Context, t *domain.Target) error
	GetTarget(ctx context.Context, id domain.TargetID) (*domain.Target, error)
	ListTargetsByOwner(ctx context.Context, ownerID int64) ([]domain.Target, error)
	// ListActiveTargets returns every target with interval >= 1. Used by
	// the scheduler to rebuild its jobs on startup.
	ListActiveTargets(ctx context.Context) ([]domain.Target, error)
	SetTargetInterval(ctx context.Context, id domain.TargetID, minutes int) error
	// UpdateAfterProbe persists the outcome of one probe cycle. If the
	// target was deleted mid-cycle this is a silent no-op, never an error.
	UpdateAfterProbe(ctx context.Context, id domain.TargetID, failCount int, status domain.Status, checkedAt time.Time) error
	// DeleteTarget removes the target and cascades to its history.
	DeleteTarget(ctx context.Context, id domain.TargetID) error
}

type HistoryStore interface {
	AppendHistory(ctx context.Context, e *domain.HistoryEntry) error
	// RecentHistory returns up to limit entries, oldest-first.
	RecentHistory(ctx context.Context, id domain.TargetID, limit int) ([]domain.HistoryEntry, error)
}

// AccessStore holds users and one-time access codes.
type AccessStore interface {
	EnsureUser(ctx context.Context, userID int64) (*domain.User, error)
	IsVerified(ctx context.Context, userID int64) (bool, error)
	CreateCode(ctx context.Context, code string) error
	// RedeemCode consumes an unused code and marks the user verified.
	// Consumption is atomic: of two concurrent redemptions of the same
	// code exactly one returns true.
	RedeemCode(ctx context.Context, userID int64, code string) (bool, error)
}

// Store is the full persistence capability the engine needs.
type Store interface {
	TargetStore
	HistoryStore
	AccessStore
}
