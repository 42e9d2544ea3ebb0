package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/wardd/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Same derivation the ward package applies: a room is OCCUPIED only when
// it has beds and none is assignable. Runs inside the claiming/releasing
// transaction so readers never see the bed and the room disagree.
const recomputeRoomStatusSQL = `
	UPDATE room SET status = CASE
		WHEN NOT EXISTS (SELECT 1 FROM bed WHERE room_id = $1) THEN 'AVAILABLE'
		WHEN EXISTS (SELECT 1 FROM bed WHERE room_id = $1 AND status <> 'OCCUPIED') THEN 'AVAILABLE'
		ELSE 'OCCUPIED'
	END, updated_at = NOW()
	WHERE id = $1 AND status IN ('AVAILABLE','OCCUPIED')`

const assignCols = `id, room_id, bed_id, patient_id, doctor_id, nurse_id, status, notes, assigned_at, released_at, created_at, updated_at`

func (r *repoPG) RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM room WHERE id = $1)`, roomID).Scan(&exists)
	return exists, err
}

func (r *repoPG) GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Assignment, error) {
	a, err := scanAssignment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+assignCols+` FROM assignment WHERE patient_id = $1 AND status = 'ACTIVE'`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *repoPG) GetActiveByBed(ctx context.Context, bedID uuid.UUID) (*Assignment, error) {
	a, err := scanAssignment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+assignCols+` FROM assignment WHERE bed_id = $1 AND status = 'ACTIVE'`, bedID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	return a, err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	a, err := scanAssignment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+assignCols+` FROM assignment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	return a, err
}

func (r *repoPG) Create(ctx context.Context, a *Assignment, bedID *uuid.UUID) (*Bed, error) {
	var bed *Bed
	err := db.InTx(ctx, r.pool, func(ctx context.Context) error {
		var err error
		if bedID != nil {
			bed, err = r.claimBed(ctx, a.RoomID, *bedID)
		} else {
			bed, err = r.claimFirstAvailable(ctx, a.RoomID)
		}
		if err != nil {
			return err
		}

		a.ID = uuid.New()
		a.BedID = bed.ID
		a.Status = StatusActive
		if a.AssignedAt.IsZero() {
			a.AssignedAt = time.Now().UTC()
		}
		_, err = r.conn(ctx).Exec(ctx, `
			INSERT INTO assignment (id, room_id, bed_id, patient_id, doctor_id, nurse_id, status, notes, assigned_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			a.ID, a.RoomID, a.BedID, a.PatientID, a.DoctorID, a.NurseID, a.Status, a.Notes, a.AssignedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				// The partial unique indexes are the backstop for races
				// the earlier advisory checks could not see.
				if pgErr.ConstraintName == "uq_assignment_active_patient" {
					return ErrPatientAlreadyAssigned
				}
				return ErrBedUnavailable
			}
			return err
		}

		_, err = r.conn(ctx).Exec(ctx, recomputeRoomStatusSQL, a.RoomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bed, nil
}

// claimBed flips the named bed to OCCUPIED only while it is still
// assignable and still in the expected room. Zero rows affected means a
// concurrent writer got there first, or the bed never was in the room.
func (r *repoPG) claimBed(ctx context.Context, roomID, bedID uuid.UUID) (*Bed, error) {
	bed, err := scanClaimedBed(r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET status = 'OCCUPIED', updated_at = NOW()
		WHERE id = $1 AND room_id = $2 AND status IN ('AVAILABLE','CLEANING')
		RETURNING id, room_id, label, status`, bedID, roomID))
	if err == nil {
		return bed, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var inRoom bool
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bed WHERE id = $1 AND room_id = $2)`, bedID, roomID).Scan(&inRoom); err != nil {
		return nil, err
	}
	if !inRoom {
		return nil, ErrBedNotInRoom
	}
	return nil, ErrBedUnavailable
}

// claimFirstAvailable deterministically picks the lowest-labelled
// AVAILABLE bed. SKIP LOCKED lets two concurrent auto-picks land on
// different beds instead of serializing on the first one.
func (r *repoPG) claimFirstAvailable(ctx context.Context, roomID uuid.UUID) (*Bed, error) {
	bed, err := scanClaimedBed(r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET status = 'OCCUPIED', updated_at = NOW()
		WHERE id = (
			SELECT id FROM bed
			WHERE room_id = $1 AND status = 'AVAILABLE'
			ORDER BY label LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, room_id, label, status`, roomID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoAvailableBeds
	}
	return bed, err
}

func (r *repoPG) Complete(ctx context.Context, id uuid.UUID, notes *string, bedStatus string) (*Bed, error) {
	var bed *Bed
	err := db.InTx(ctx, r.pool, func(ctx context.Context) error {
		var bedID, roomID uuid.UUID
		err := r.conn(ctx).QueryRow(ctx, `
			UPDATE assignment SET
				status = 'COMPLETED',
				released_at = NOW(),
				notes = CASE
					WHEN $2::text IS NULL THEN notes
					WHEN notes IS NULL OR notes = '' THEN $2
					ELSE notes || E'\n' || $2
				END,
				updated_at = NOW()
			WHERE id = $1 AND status = 'ACTIVE'
			RETURNING bed_id, room_id`, id, notes).Scan(&bedID, &roomID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAssignmentNotFound
		}
		if err != nil {
			return err
		}

		bed, err = scanClaimedBed(r.conn(ctx).QueryRow(ctx, `
			UPDATE bed SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING id, room_id, label, status`, bedID, bedStatus))
		if errors.Is(err, pgx.ErrNoRows) {
			// Bed deleted since: the assignment still completes, there is
			// just no bed state left to move.
			bed = &Bed{ID: bedID, RoomID: roomID, Status: bedStatus}
		} else if err != nil {
			return err
		}

		_, err = r.conn(ctx).Exec(ctx, recomputeRoomStatusSQL, roomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bed, nil
}

func (r *repoPG) ListExpiredActive(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id FROM assignment WHERE status = 'ACTIVE' AND assigned_at < $1 ORDER BY assigned_at`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) ListByRoom(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*Detail, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM assignment WHERE room_id = $1`, roomID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.room_id, a.bed_id, a.patient_id, a.doctor_id, a.nurse_id,
		       a.status, a.notes, a.assigned_at, a.released_at, a.created_at, a.updated_at,
		       COALESCE(b.label, ''), TRIM(p.given_name || ' ' || p.family_name)
		FROM assignment a
		LEFT JOIN bed b ON b.id = a.bed_id
		JOIN patient p ON p.id = a.patient_id
		WHERE a.room_id = $1
		ORDER BY a.assigned_at DESC
		LIMIT $2 OFFSET $3`, roomID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var details []*Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.RoomID, &d.BedID, &d.PatientID, &d.DoctorID, &d.NurseID,
			&d.Status, &d.Notes, &d.AssignedAt, &d.ReleasedAt, &d.CreatedAt, &d.UpdatedAt,
			&d.BedLabel, &d.PatientName); err != nil {
			return nil, 0, err
		}
		details = append(details, &d)
	}
	return details, total, rows.Err()
}

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.RoomID, &a.BedID, &a.PatientID, &a.DoctorID, &a.NurseID,
		&a.Status, &a.Notes, &a.AssignedAt, &a.ReleasedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanClaimedBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.RoomID, &b.Label, &b.Status)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
