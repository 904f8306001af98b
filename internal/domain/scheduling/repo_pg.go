package scheduling

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/carepilot/carepilot/internal/platform/db"
)

const appointmentTable = "userAppointmentScheduled_table"

type appointmentRepoPG struct{ pools db.PoolSource }

func NewAppointmentRepoPG(pools db.PoolSource) AppointmentRepository {
	return &appointmentRepoPG{pools: pools}
}

const apptCols = `id, user_email, doctor_id, appointment_date, appointment_time,
	appointment_type, status, reason, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.UserEmail, &a.DoctorID, &a.AppointmentDate, &a.AppointmentTime,
		&a.AppointmentType, &a.Status, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return db.Wrap("create appointment", err)
	}
	err = q.QueryRow(ctx, `
		INSERT INTO `+db.Ident(appointmentTable)+` (id, user_email, doctor_id, appointment_date,
			appointment_time, appointment_type, status, reason, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		a.ID, a.UserEmail, a.DoctorID, a.AppointmentDate,
		a.AppointmentTime, a.AppointmentType, a.Status, a.Reason, a.Notes).Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.Wrap("create appointment", err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id string) (*Appointment, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, db.Wrap("get appointment", err)
	}
	a, err := scanAppointment(q.QueryRow(ctx, `SELECT `+apptCols+` FROM `+db.Ident(appointmentTable)+` WHERE id = $1`, id))
	if err != nil {
		return nil, db.Wrap("get appointment", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, 0, db.Wrap("list appointments", err)
	}

	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.UserEmail != "" {
		where += fmt.Sprintf(` AND LOWER(TRIM(user_email)) = LOWER(TRIM($%d))`, idx)
		args = append(args, f.UserEmail)
		idx++
	}
	if f.DoctorID != "" {
		where += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, f.DoctorID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Date != "" {
		where += fmt.Sprintf(` AND appointment_date = $%d`, idx)
		args = append(args, f.Date)
		idx++
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM `+db.Ident(appointmentTable)+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Wrap("list appointments", err)
	}

	query := `SELECT ` + apptCols + ` FROM ` + db.Ident(appointmentTable) + where +
		fmt.Sprintf(` ORDER BY appointment_date, appointment_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Wrap("list appointments", err)
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, db.Wrap("list appointments", err)
		}
		items = append(items, a)
	}
	return items, total, db.Wrap("list appointments", rows.Err())
}

func (r *appointmentRepoPG) Update(ctx context.Context, id string, patch *AppointmentPatch) (*Appointment, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, db.Wrap("update appointment", err)
	}

	sql, args := appointmentUpdate(patch).Where("id", id)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return nil, db.Wrap("update appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, db.Wrap("update appointment", pgx.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

// appointmentUpdate sets the present patch fields in a fixed column order.
func appointmentUpdate(patch *AppointmentPatch) *db.UpdateBuilder {
	b := db.NewUpdate(appointmentTable)
	for _, f := range []struct {
		col string
		val *string
	}{
		{"appointment_date", patch.AppointmentDate},
		{"appointment_time", patch.AppointmentTime},
		{"appointment_type", patch.AppointmentType},
		{"status", patch.Status},
		{"reason", patch.Reason},
		{"notes", patch.Notes},
	} {
		if f.val != nil {
			b.Set(f.col, *f.val)
		}
	}
	return b
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id string) error {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return db.Wrap("delete appointment", err)
	}
	tag, err := q.Exec(ctx, `DELETE FROM `+db.Ident(appointmentTable)+` WHERE id = $1`, id)
	if err != nil {
		return db.Wrap("delete appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return db.Wrap("delete appointment", pgx.ErrNoRows)
	}
	return nil
}

func (r *appointmentRepoPG) CountActiveAt(ctx context.Context, doctorID, date, tm, excludeID string) (int, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return 0, db.Wrap("count active appointments", err)
	}
	var n int
	err = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM `+db.Ident(appointmentTable)+`
		WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_time = $3
			AND status = ANY($4) AND id <> $5`,
		doctorID, date, tm, activeStatuses, excludeID).Scan(&n)
	return n, db.Wrap("count active appointments", err)
}
