package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors mapped to HTTP statuses in the handler.
var (
	ErrRoomNotFound           = errors.New("room not found")
	ErrPatientNotFound        = errors.New("patient not found")
	ErrBedNotInRoom           = errors.New("bed not found in room")
	ErrAssignmentNotFound     = errors.New("assignment not found")
	ErrPatientAlreadyAssigned = errors.New("patient already holds an active assignment")
	ErrBedUnavailable         = errors.New("bed is not available")
	ErrNoAvailableBeds        = errors.New("no available beds in room")
)

type Repository interface {
	RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error)
	// GetActiveByPatient returns nil without error when the patient holds
	// no active assignment.
	GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Assignment, error)
	GetActiveByBed(ctx context.Context, bedID uuid.UUID) (*Assignment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error)

	// Create claims a bed and writes the ACTIVE assignment in one
	// transaction. When bedID is nil the lowest-labelled AVAILABLE bed in
	// the room is picked. The bed claim is a conditional update; losing a
	// race surfaces as ErrBedUnavailable or ErrNoAvailableBeds, and the
	// partial unique indexes re-check patient/bed exclusivity at commit.
	Create(ctx context.Context, a *Assignment, bedID *uuid.UUID) (*Bed, error)

	// Complete finishes an ACTIVE assignment and moves its bed to
	// bedStatus in one transaction. A second call for the same assignment
	// finds no ACTIVE row and returns ErrAssignmentNotFound.
	Complete(ctx context.Context, id uuid.UUID, notes *string, bedStatus string) (*Bed, error)

	// ListExpiredActive returns ids of ACTIVE assignments assigned before
	// the cutoff.
	ListExpiredActive(ctx context.Context, before time.Time) ([]uuid.UUID, error)

	ListByRoom(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*Detail, int, error)
}
