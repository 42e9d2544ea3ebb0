package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/wardd/internal/platform/metrics"
)

// PatientDirectory is the slice of the patient service the lifecycle
// manager consults.
type PatientDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	DisplayName(ctx context.Context, id uuid.UUID) (string, error)
}

// StaffResolver normalizes a caller-supplied staff reference into a staff
// role id, or nil when the reference does not resolve.
type StaffResolver interface {
	Resolve(ctx context.Context, ref uuid.UUID) (*uuid.UUID, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	staff    StaffResolver
	logger   zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, staff StaffResolver, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, staff: staff, logger: logger}
}

// CreateRequest carries the assignBed inputs. BedID is optional: when
// absent the room's first AVAILABLE bed is picked.
type CreateRequest struct {
	RoomID    uuid.UUID  `json:"room_id"`
	PatientID uuid.UUID  `json:"patient_id"`
	BedID     *uuid.UUID `json:"bed_id,omitempty"`
	DoctorRef *uuid.UUID `json:"doctor_id,omitempty"`
	NurseID   *uuid.UUID `json:"nurse_id,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// Create runs the assignBed preconditions in order, each failing with its
// own error, then claims the bed and writes the assignment atomically.
// The pre-checks are advisory; the transaction re-validates via the
// conditional bed update and the partial unique indexes.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Detail, error) {
	if req.RoomID == uuid.Nil {
		return nil, fmt.Errorf("room_id is required")
	}
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}

	exists, err := s.repo.RoomExists(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	ok, err := s.patients.Exists(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPatientNotFound
	}

	active, err := s.repo.GetActiveByPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrPatientAlreadyAssigned
	}

	var doctorID *uuid.UUID
	if req.DoctorRef != nil {
		doctorID, err = s.staff.Resolve(ctx, *req.DoctorRef)
		if err != nil {
			return nil, err
		}
	}

	a := &Assignment{
		RoomID:    req.RoomID,
		PatientID: req.PatientID,
		DoctorID:  doctorID,
		NurseID:   req.NurseID,
		Notes:     req.Notes,
	}
	bed, err := s.repo.Create(ctx, a, req.BedID)
	if err != nil {
		return nil, err
	}
	metrics.AssignmentsCreated.Inc()

	name, err := s.patients.DisplayName(ctx, a.PatientID)
	if err != nil {
		name = ""
	}
	return &Detail{Assignment: *a, BedLabel: bed.Label, PatientName: name}, nil
}

// ReleaseRequest identifies the assignment to finish, by assignment id or
// by the bed currently holding it.
type ReleaseRequest struct {
	AssignmentID *uuid.UUID `json:"assignment_id,omitempty"`
	BedID        *uuid.UUID `json:"bed_id,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

// Release completes the assignment and sends the bed to CLEANING. A
// repeat release finds no ACTIVE assignment and fails with
// ErrAssignmentNotFound rather than silently succeeding.
func (s *Service) Release(ctx context.Context, req ReleaseRequest) (*Bed, error) {
	var id uuid.UUID
	switch {
	case req.AssignmentID != nil:
		id = *req.AssignmentID
	case req.BedID != nil:
		active, err := s.repo.GetActiveByBed(ctx, *req.BedID)
		if err != nil {
			return nil, err
		}
		id = active.ID
	default:
		return nil, fmt.Errorf("assignment_id or bed_id is required")
	}

	bed, err := s.repo.Complete(ctx, id, req.Notes, "CLEANING")
	if err != nil {
		return nil, err
	}
	metrics.AssignmentsReleased.Inc()
	return bed, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	return s.repo.GetByID(ctx, id)
}

// ReleaseExpired force-releases ACTIVE assignments older than maxHold.
// Beds go straight back to AVAILABLE; the abandoned-hold policy does not
// route them through CLEANING. Each assignment is its own transaction and
// a failure on one does not stop the rest.
func (s *Service) ReleaseExpired(ctx context.Context, maxHold time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxHold)
	ids, err := s.repo.ListExpiredActive(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	note := AutoReleaseNote
	released := 0
	var lastErr error
	for _, id := range ids {
		if _, err := s.repo.Complete(ctx, id, &note, "AVAILABLE"); err != nil {
			// Raced with a manual release or a concurrent sweep; either
			// way the assignment is already finished.
			if err == ErrAssignmentNotFound {
				continue
			}
			s.logger.Warn().Err(err).Str("assignment_id", id.String()).Msg("expiry release failed")
			lastErr = err
			continue
		}
		released++
		metrics.AssignmentsExpired.Inc()
	}
	return released, lastErr
}

// History returns a room's assignments newest-first with bed and patient
// identity attached. Read-only.
func (s *Service) History(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*Detail, int, error) {
	exists, err := s.repo.RoomExists(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrRoomNotFound
	}
	return s.repo.ListByRoom(ctx, roomID, limit, offset)
}
