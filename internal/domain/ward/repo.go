package ward

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors shared by the repository implementations and mapped to
// HTTP statuses in the handler.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrBedNotFound       = errors.New("bed not found")
	ErrDuplicateRoom     = errors.New("room label already in use")
	ErrDuplicateBedLabel = errors.New("bed label already in use in this room")
	ErrBedOccupied       = errors.New("bed has an active assignment")
)

type Repository interface {
	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	// GetRoomDetail loads a room with its beds and each bed's active
	// assignment in one read.
	GetRoomDetail(ctx context.Context, id uuid.UUID) (*RoomDetail, error)
	ListRooms(ctx context.Context, limit, offset int) ([]*RoomDetail, int, error)
	UpdateRoomStatus(ctx context.Context, id uuid.UUID, status string, notes *string) (*Room, error)

	// CreateBed inserts the bed and bumps the room's capacity counter in
	// one transaction.
	CreateBed(ctx context.Context, bed *Bed) error
	GetBed(ctx context.Context, id uuid.UUID) (*Bed, error)
	// DeleteBed removes the bed, decrements the room's capacity (floored
	// at zero) and recomputes the room status, all in one transaction.
	// Fails with ErrBedOccupied while an ACTIVE assignment references it.
	DeleteBed(ctx context.Context, id uuid.UUID) error

	AddHousekeepingLog(ctx context.Context, hk *HousekeepingLog) error
	ListHousekeeping(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*HousekeepingLog, int, error)
}
