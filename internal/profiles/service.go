package profiles

import (
	"context"
	"errors"

	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Service wraps the repository with identity-aware operations.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("profiles: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	return s.repo.Get(ctx, id)
}

// Me returns the caller's profile, or an empty incomplete one if none is stored yet.
func (s *Service) Me(ctx context.Context, who identity.Identity) (Profile, error) {
	p, err := s.repo.Get(ctx, who.UserID)
	if errors.Is(err, ErrNotFound) {
		return Profile{ID: who.UserID, Type: who.Type, FirmID: who.FirmID, ChatEnabled: true}, nil
	}
	return p, err
}

// UpdateMe validates and stores the caller's profile.
func (s *Service) UpdateMe(ctx context.Context, who identity.Identity, req UpdateRequest) (Profile, error) {
	current, err := s.Me(ctx, who)
	if err != nil {
		return Profile{}, err
	}
	next, err := req.Apply(current, who)
	if err != nil {
		return Profile{}, err
	}
	saved, err := s.repo.Upsert(ctx, next)
	if err != nil {
		return Profile{}, err
	}
	s.logger.Info("profile updated", "user_id", saved.ID, "user_type", saved.Type, "complete", saved.Complete)
	return saved, nil
}

func (s *Service) ListAdvisors(ctx context.Context, query string) ([]Profile, error) {
	return s.repo.ListAdvisors(ctx, query)
}

// FirmOf returns the firm an advisor belongs to.
func (s *Service) FirmOf(ctx context.Context, advisorID string) (string, error) {
	p, err := s.repo.Get(ctx, advisorID)
	if err != nil {
		return "", err
	}
	if p.Type != identity.Advisor {
		return "", ErrNotFound
	}
	return p.FirmID, nil
}

// Advisor returns the profile only if it belongs to an advisor.
func (s *Service) Advisor(ctx context.Context, advisorID string) (Profile, error) {
	p, err := s.repo.Get(ctx, advisorID)
	if err != nil {
		return Profile{}, err
	}
	if p.Type != identity.Advisor {
		return Profile{}, ErrNotFound
	}
	return p, nil
}
