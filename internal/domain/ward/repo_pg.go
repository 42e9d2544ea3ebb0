package ward

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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// recomputeRoomStatusSQL derives the cached room status from its beds: a
// room is OCCUPIED only when it has beds and none of them is assignable
// (AVAILABLE or CLEANING). Must run inside the same transaction as the bed
// mutation that triggered it.
const recomputeRoomStatusSQL = `
	UPDATE room SET status = CASE
		WHEN NOT EXISTS (SELECT 1 FROM bed WHERE room_id = $1) THEN 'AVAILABLE'
		WHEN EXISTS (SELECT 1 FROM bed WHERE room_id = $1 AND status <> 'OCCUPIED') THEN 'AVAILABLE'
		ELSE 'OCCUPIED'
	END, updated_at = NOW()
	WHERE id = $1 AND status IN ('AVAILABLE','OCCUPIED')`

const roomCols = `id, label, capacity, status, notes, created_at, updated_at`
const bedCols = `id, room_id, label, status, created_at, updated_at`

func (r *repoPG) CreateRoom(ctx context.Context, room *Room) error {
	room.ID = uuid.New()
	if room.Status == "" {
		room.Status = RoomAvailable
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO room (id, label, capacity, status, notes)
		VALUES ($1,$2,$3,$4,$5)`,
		room.ID, room.Label, room.Capacity, room.Status, room.Notes,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateRoom
	}
	return err
}

func (r *repoPG) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	room, err := scanRoom(r.conn(ctx).QueryRow(ctx, `SELECT `+roomCols+` FROM room WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return room, err
}

func (r *repoPG) GetRoomDetail(ctx context.Context, id uuid.UUID) (*RoomDetail, error) {
	room, err := r.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	beds, err := r.bedsWithOccupants(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	detail := &RoomDetail{Room: *room, Beds: beds[id]}
	if detail.Beds == nil {
		detail.Beds = []*BedDetail{}
	}
	return detail, nil
}

func (r *repoPG) ListRooms(ctx context.Context, limit, offset int) ([]*RoomDetail, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM room`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+roomCols+` FROM room ORDER BY label LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var details []*RoomDetail
	var ids []uuid.UUID
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Label, &room.Capacity, &room.Status, &room.Notes, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, 0, err
		}
		details = append(details, &RoomDetail{Room: room, Beds: []*BedDetail{}})
		ids = append(ids, room.ID)
	}
	rows.Close()

	if len(ids) > 0 {
		byRoom, err := r.bedsWithOccupants(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, d := range details {
			if beds, ok := byRoom[d.Room.ID]; ok {
				d.Beds = beds
			}
		}
	}
	return details, total, nil
}

func (r *repoPG) bedsWithOccupants(ctx context.Context, roomIDs []uuid.UUID) (map[uuid.UUID][]*BedDetail, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT b.id, b.room_id, b.label, b.status, b.created_at, b.updated_at,
		       a.id, a.patient_id, a.doctor_id, a.nurse_id, a.assigned_at
		FROM bed b
		LEFT JOIN assignment a ON a.bed_id = b.id AND a.status = 'ACTIVE'
		WHERE b.room_id = ANY($1)
		ORDER BY b.room_id, b.label`, roomIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byRoom := make(map[uuid.UUID][]*BedDetail)
	for rows.Next() {
		var bd BedDetail
		var assignmentID, patientID *uuid.UUID
		var doctorID, nurseID *uuid.UUID
		var assignedAt *time.Time
		if err := rows.Scan(&bd.ID, &bd.RoomID, &bd.Label, &bd.Status, &bd.CreatedAt, &bd.UpdatedAt,
			&assignmentID, &patientID, &doctorID, &nurseID, &assignedAt); err != nil {
			return nil, err
		}
		if assignmentID != nil {
			bd.Occupant = &Occupant{
				AssignmentID: *assignmentID,
				PatientID:    *patientID,
				DoctorID:     doctorID,
				NurseID:      nurseID,
				AssignedAt:   *assignedAt,
			}
		}
		byRoom[bd.RoomID] = append(byRoom[bd.RoomID], &bd)
	}
	return byRoom, rows.Err()
}

func (r *repoPG) UpdateRoomStatus(ctx context.Context, id uuid.UUID, status string, notes *string) (*Room, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE room SET status = $2, notes = COALESCE($3, notes), updated_at = NOW()
		WHERE id = $1
		RETURNING `+roomCols, id, status, notes)
	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return room, err
}

func (r *repoPG) CreateBed(ctx context.Context, bed *Bed) error {
	bed.ID = uuid.New()
	if bed.Status == "" {
		bed.Status = BedAvailable
	}
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := r.conn(ctx).Exec(ctx,
			`UPDATE room SET capacity = capacity + 1, updated_at = NOW() WHERE id = $1`, bed.RoomID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrRoomNotFound
		}
		_, err = r.conn(ctx).Exec(ctx, `
			INSERT INTO bed (id, room_id, label, status)
			VALUES ($1,$2,$3,$4)`,
			bed.ID, bed.RoomID, bed.Label, bed.Status,
		)
		if isUniqueViolation(err) {
			return ErrDuplicateBedLabel
		}
		if err != nil {
			return err
		}
		_, err = r.conn(ctx).Exec(ctx, recomputeRoomStatusSQL, bed.RoomID)
		return err
	})
}

func (r *repoPG) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	bed, err := scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBedNotFound
	}
	return bed, err
}

func (r *repoPG) DeleteBed(ctx context.Context, id uuid.UUID) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		var roomID uuid.UUID
		err := r.conn(ctx).QueryRow(ctx,
			`SELECT room_id FROM bed WHERE id = $1 FOR UPDATE`, id).Scan(&roomID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBedNotFound
		}
		if err != nil {
			return err
		}

		var occupied bool
		if err := r.conn(ctx).QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM assignment WHERE bed_id = $1 AND status = 'ACTIVE')`, id).Scan(&occupied); err != nil {
			return err
		}
		if occupied {
			return ErrBedOccupied
		}

		if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM bed WHERE id = $1`, id); err != nil {
			return err
		}
		if _, err := r.conn(ctx).Exec(ctx,
			`UPDATE room SET capacity = GREATEST(capacity - 1, 0), updated_at = NOW() WHERE id = $1`, roomID); err != nil {
			return err
		}
		_, err = r.conn(ctx).Exec(ctx, recomputeRoomStatusSQL, roomID)
		return err
	})
}

func (r *repoPG) AddHousekeepingLog(ctx context.Context, hk *HousekeepingLog) error {
	hk.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO housekeeping_log (id, room_id, status, notes, completed_at)
		VALUES ($1,$2,$3,$4,$5)`,
		hk.ID, hk.RoomID, hk.Status, hk.Notes, hk.CompletedAt,
	)
	return err
}

func (r *repoPG) ListHousekeeping(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*HousekeepingLog, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM housekeeping_log WHERE room_id = $1`, roomID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, room_id, status, notes, completed_at, created_at
		FROM housekeeping_log WHERE room_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, roomID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []*HousekeepingLog
	for rows.Next() {
		var hk HousekeepingLog
		if err := rows.Scan(&hk.ID, &hk.RoomID, &hk.Status, &hk.Notes, &hk.CompletedAt, &hk.CreatedAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, &hk)
	}
	return logs, total, nil
}

func scanRoom(row pgx.Row) (*Room, error) {
	var room Room
	err := row.Scan(&room.ID, &room.Label, &room.Capacity, &room.Status, &room.Notes, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func scanBed(row pgx.Row) (*Bed, error) {
	var bed Bed
	err := row.Scan(&bed.ID, &bed.RoomID, &bed.Label, &bed.Status, &bed.CreatedAt, &bed.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &bed, nil
}
