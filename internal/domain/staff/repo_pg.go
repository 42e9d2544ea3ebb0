package staff

import (
	"context"
	"strconv"

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

const staffCols = `id, person_id, role, display_name, specialty, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, sr *StaffRole) error {
	sr.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO staff_role (id, person_id, role, display_name, specialty, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sr.ID, sr.PersonID, sr.Role, sr.DisplayName, sr.Specialty, sr.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*StaffRole, error) {
	return scanStaff(r.conn(ctx).QueryRow(ctx, `SELECT `+staffCols+` FROM staff_role WHERE id = $1`, id))
}

func (r *repoPG) GetByPersonID(ctx context.Context, personID uuid.UUID) (*StaffRole, error) {
	return scanStaff(r.conn(ctx).QueryRow(ctx, `
		SELECT `+staffCols+` FROM staff_role
		WHERE person_id = $1 AND active
		ORDER BY created_at DESC LIMIT 1`, personID))
}

func (r *repoPG) List(ctx context.Context, role string, limit, offset int) ([]*StaffRole, int, error) {
	where := ``
	args := []interface{}{}
	if role != "" {
		where = ` WHERE role = $1`
		args = append(args, role)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM staff_role`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + staffCols + ` FROM staff_role` + where +
		` ORDER BY display_name LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var roles []*StaffRole
	for rows.Next() {
		var sr StaffRole
		if err := rows.Scan(&sr.ID, &sr.PersonID, &sr.Role, &sr.DisplayName, &sr.Specialty, &sr.Active, &sr.CreatedAt, &sr.UpdatedAt); err != nil {
			return nil, 0, err
		}
		roles = append(roles, &sr)
	}
	return roles, total, nil
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE staff_role SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func scanStaff(row pgx.Row) (*StaffRole, error) {
	var sr StaffRole
	err := row.Scan(&sr.ID, &sr.PersonID, &sr.Role, &sr.DisplayName, &sr.Specialty, &sr.Active, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sr, nil
}
