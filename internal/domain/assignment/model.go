package assignment

import (
	"time"

	"github.com/google/uuid"
)

// Assignment statuses. The lifecycle is ACTIVE then COMPLETED, nothing
// else; a COMPLETED assignment is immutable history.
const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
)

// AutoReleaseNote marks assignments the sweeper force-released.
const AutoReleaseNote = "auto-released: exceeded maximum holding duration"

// Assignment maps to the assignment table.
type Assignment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	RoomID     uuid.UUID  `db:"room_id" json:"room_id"`
	BedID      uuid.UUID  `db:"bed_id" json:"bed_id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID   *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	NurseID    *uuid.UUID `db:"nurse_id" json:"nurse_id,omitempty"`
	Status     string     `db:"status" json:"status"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	AssignedAt time.Time  `db:"assigned_at" json:"assigned_at"`
	ReleasedAt *time.Time `db:"released_at" json:"released_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Bed is the slice of bed state this package reads and writes. The full
// bed record lives in the ward package; assignment transactions touch only
// these columns.
type Bed struct {
	ID     uuid.UUID `json:"id"`
	RoomID uuid.UUID `json:"room_id"`
	Label  string    `json:"label"`
	Status string    `json:"status"`
}

// Detail is an assignment with bed and patient identity attached, the
// shape occupancy views and the create response use.
type Detail struct {
	Assignment
	BedLabel    string `json:"bed_label"`
	PatientName string `json:"patient_name"`
}
