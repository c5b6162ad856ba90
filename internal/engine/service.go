package engine

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arifmahmud/uptimebot/internal/domain"
	"github.com/arifmahmud/uptimebot/internal/repo"
)

var (
	ErrInvalidURL      = errors.New("url must start with http:// or https://")
	ErrInvalidInterval = errors.New("interval must be a positive number of minutes")
	ErrForbidden       = errors.New("forbidden")
)

// Jobs is the slice of the scheduler the registry needs: activating a
// target registers its recurring probe, deleting one cancels it.
type Jobs interface {
	Register(t domain.Target)
	Cancel(id domain.TargetID)
}

// Service owns target lifecycle and access grants. It is the boundary the
// bot front-end and the HTTP API talk to.
type Service struct {
	store   repo.Store
	jobs    Jobs
	adminID int64
	log     *zap.Logger
}

func NewService(store repo.Store, jobs Jobs, adminID int64, log *zap.Logger) *Service {
	return &Service{store: store, jobs: jobs, adminID: adminID, log: log}
}

// CreateTarget registers a new endpoint for ownerID. The target starts
// with interval 0 and is not scheduled until SetInterval is called.
func (s *Service) CreateTarget(ctx context.Context, ownerID int64, url string) (*domain.Target, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, ErrInvalidURL
	}
	t := &domain.Target{OwnerID: ownerID, URL: url, Status: domain.StatusUnknown}
	if err := s.store.CreateTarget(ctx, t); err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	s.log.Info("target_created",
		zap.String("target_id", string(t.ID)),
		zap.Int64("owner_id", ownerID),
		zap.String("url", url),
	)
	return t, nil
}

// SetInterval activates the target and registers its recurring job.
func (s *Service) SetInterval(ctx context.Context, id domain.TargetID, minutes int) error {
	if minutes < 1 {
		return ErrInvalidInterval
	}
	if err := s.store.SetTargetInterval(ctx, id, minutes); err != nil {
		return err
	}
	t, err := s.store.GetTarget(ctx, id)
	if err != nil {
		return err
	}
	s.jobs.Register(*t)
	s.log.Info("target_activated",
		zap.String("target_id", string(id)),
		zap.Int("interval_minutes", minutes),
	)
	return nil
}

// DeleteTarget removes the target, its history and its recurring job.
// Targets owned by someone else read as not found.
func (s *Service) DeleteTarget(ctx context.Context, id domain.TargetID, requestingOwner int64) error {
	t, err := s.store.GetTarget(ctx, id)
	if err != nil {
		return err
	}
	if t.OwnerID != requestingOwner {
		return repo.ErrNotFound
	}
	if err := s.store.DeleteTarget(ctx, id); err != nil {
		return err
	}
	s.jobs.Cancel(id)
	s.log.Info("target_deleted", zap.String("target_id", string(id)))
	return nil
}

func (s *Service) ListTargets(ctx context.Context, ownerID int64) ([]domain.Target, error) {
	return s.store.ListTargetsByOwner(ctx, ownerID)
}

func (s *Service) GetTarget(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	return s.store.GetTarget(ctx, id)
}

// EnsureUser records the user on first contact; a fresh user starts
// unverified.
func (s *Service) EnsureUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.store.EnsureUser(ctx, userID)
}

func (s *Service) IsVerified(ctx context.Context, userID int64) (bool, error) {
	if userID == s.adminID {
		return true, nil
	}
	return s.store.IsVerified(ctx, userID)
}

// RedeemAccessCode consumes a one-time code; the first successful
// redemption wins, every later attempt is invalid.
func (s *Service) RedeemAccessCode(ctx context.Context, userID int64, code string) (bool, error) {
	ok, err := s.store.RedeemCode(ctx, userID, code)
	if err != nil {
		return false, err
	}
	if ok {
		s.log.Info("access_granted", zap.Int64("user_id", userID))
	}
	return ok, nil
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateAccessCode mints a fresh one-time code. Only the admin may call
// this.
func (s *Service) GenerateAccessCode(ctx context.Context, requestingUserID int64) (string, error) {
	if requestingUserID != s.adminID {
		return "", ErrForbidden
	}
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	code := "AC-" + string(b)
	if err := s.store.CreateCode(ctx, code); err != nil {
		return "", err
	}
	s.log.Info("access_code_generated", zap.Int64("admin_id", requestingUserID))
	return code, nil
}
