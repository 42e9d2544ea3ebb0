package ward

import (
	"time"

	"github.com/google/uuid"
)

// Bed statuses. CLEANING is advisory: a CLEANING bed is still assignable
// and is promoted to AVAILABLE when an assignment claims it.
const (
	BedAvailable = "AVAILABLE"
	BedOccupied  = "OCCUPIED"
	BedCleaning  = "CLEANING"
)

// Room statuses. AVAILABLE and OCCUPIED are maintained by the recompute
// that runs inside every bed-status transaction; CLEANING and MAINTENANCE
// are only ever set by operators through updateRoomStatus.
const (
	RoomAvailable   = "AVAILABLE"
	RoomOccupied    = "OCCUPIED"
	RoomCleaning    = "CLEANING"
	RoomMaintenance = "MAINTENANCE"
)

// Room maps to the room table. Capacity is a bookkeeping counter adjusted
// by bed creation and deletion, advisory rather than enforced.
type Room struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Status    string    `db:"status" json:"status"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Bed maps to the bed table. Labels are unique within a room,
// case-sensitive.
type Bed struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RoomID    uuid.UUID `db:"room_id" json:"room_id"`
	Label     string    `db:"label" json:"label"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HousekeepingLog maps to the housekeeping_log table. Append-only.
type HousekeepingLog struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	RoomID      uuid.UUID  `db:"room_id" json:"room_id"`
	Status      string     `db:"status" json:"status"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Occupant is the active assignment attached to a bed on detail reads.
type Occupant struct {
	AssignmentID uuid.UUID  `json:"assignment_id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	DoctorID     *uuid.UUID `json:"doctor_id,omitempty"`
	NurseID      *uuid.UUID `json:"nurse_id,omitempty"`
	AssignedAt   time.Time  `json:"assigned_at"`
}

// BedDetail is a bed with its current occupant, if any.
type BedDetail struct {
	Bed
	Occupant *Occupant `json:"occupant,omitempty"`
}

// RoomDetail is a room with its beds eagerly attached.
type RoomDetail struct {
	Room
	Beds []*BedDetail `json:"beds"`
}
