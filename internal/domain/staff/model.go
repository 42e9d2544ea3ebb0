package staff

import (
	"time"

	"github.com/google/uuid"
)

// Roles recognised by the ward service.
const (
	RoleDoctor = "doctor"
	RoleNurse  = "nurse"
)

// StaffRole maps to the staff_role table. A staff role is the unit
// assignments reference: one person can hold several roles, and callers may
// hand us either a role id or the person id behind it.
type StaffRole struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PersonID    *uuid.UUID `db:"person_id" json:"person_id,omitempty"`
	Role        string     `db:"role" json:"role"`
	DisplayName string     `db:"display_name" json:"display_name"`
	Specialty   *string    `db:"specialty" json:"specialty,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
