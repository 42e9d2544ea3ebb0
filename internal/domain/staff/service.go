package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrStaffNotFound is returned when no staff role matches the lookup.
var ErrStaffNotFound = errors.New("staff role not found")

var validRoles = map[string]bool{
	RoleDoctor: true,
	RoleNurse:  true,
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateStaffRole(ctx context.Context, sr *StaffRole) error {
	if sr.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	if !validRoles[sr.Role] {
		return fmt.Errorf("invalid role: %s", sr.Role)
	}
	sr.Active = true
	return s.repo.Create(ctx, sr)
}

func (s *Service) GetStaffRole(ctx context.Context, id uuid.UUID) (*StaffRole, error) {
	sr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrStaffNotFound
	}
	return sr, nil
}

func (s *Service) ListStaffRoles(ctx context.Context, role string, limit, offset int) ([]*StaffRole, int, error) {
	if role != "" && !validRoles[role] {
		return nil, 0, fmt.Errorf("invalid role: %s", role)
	}
	return s.repo.List(ctx, role, limit, offset)
}

func (s *Service) DeactivateStaffRole(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return ErrStaffNotFound
	}
	return s.repo.Deactivate(ctx, id)
}

// Resolve turns a caller-supplied staff reference into a staff role id.
// The reference is tried first as a person id, then as a role id. A
// reference that matches neither resolves to nil rather than failing the
// caller's request; intake forms routinely carry stale doctor references
// and an assignment is still valid without one.
func (s *Service) Resolve(ctx context.Context, ref uuid.UUID) (*uuid.UUID, error) {
	if sr, err := s.repo.GetByPersonID(ctx, ref); err == nil {
		return &sr.ID, nil
	}
	if sr, err := s.repo.GetByID(ctx, ref); err == nil {
		return &sr.ID, nil
	}
	s.logger.Debug().Str("ref", ref.String()).Msg("staff reference did not resolve, dropping")
	return nil, nil
}
