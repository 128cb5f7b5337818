package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rollcall/internal/event"
	"rollcall/internal/model"
	"rollcall/internal/store"
)

// Repository persists assignment flags and attendance logs in Postgres.
type Repository struct {
	events *event.Repository
	db     *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{events: event.NewRepository(db), db: db}
}

const logColumns = `l.id, l.student_id, l.event_id, s.id_num, l.time_in, l.time_out, l.credited`

func scanLog(sc interface{ Scan(...any) error }) (model.AttendanceLog, error) {
	var (
		l       model.AttendanceLog
		timeOut sql.NullTime
	)
	if err := sc.Scan(&l.ID, &l.StudentID, &l.EventID, &l.IDNum, &l.TimeIn, &timeOut, &l.Credited); err != nil {
		return model.AttendanceLog{}, err
	}
	if timeOut.Valid {
		t := timeOut.Time
		l.TimeOut = &t
	}
	return l, nil
}

// OwnedEvent returns the event when govID owns it.
func (r *Repository) OwnedEvent(ctx context.Context, govID string, eventID int64) (*model.Event, error) {
	return r.events.OwnedEvent(ctx, govID, eventID)
}

// ToggleAssignment flips the flag in one statement, scoped to events govID owns.
func (r *Repository) ToggleAssignment(ctx context.Context, govID, idNum string, eventID int64) (*model.Student, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students s SET is_assigned = NOT s.is_assigned
		FROM events e
		WHERE s.event_id = e.id AND s.id_num = $1 AND s.event_id = $2 AND e.gov_id = $3
		RETURNING s.id, s.id_num, s.name, s.program, s.is_assigned, s.event_id, s.assigned_by, s.hours_render, s.created_at
	`, idNum, eventID, govID)
	var (
		st         model.Student
		evID       int64
		assignedBy sql.NullString
	)
	if err := row.Scan(&st.ID, &st.IDNum, &st.Name, &st.Program, &st.IsAssigned, &evID, &assignedBy, &st.HoursRender, &st.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	st.EventID = &evID
	st.AssignedBy = assignedBy.String
	return &st, nil
}

// FindStudents returns every row for idNum with its event, oldest first.
func (r *Repository) FindStudents(ctx context.Context, idNum string) ([]model.StudentEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.id_num, s.name, s.program, s.is_assigned, s.event_id, s.assigned_by, s.hours_render, s.created_at,
		       e.id, e.event_code, e.gov_id, e.name, e.date, e.created_at
		FROM students s
		LEFT JOIN events e ON e.id = s.event_id
		WHERE s.id_num = $1
		ORDER BY s.id
	`, idNum)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.StudentEvent
	for rows.Next() {
		var (
			st                            model.Student
			stEventID                     sql.NullInt64
			assignedBy                    sql.NullString
			evID                          sql.NullInt64
			evCode, evGov, evName, evDate sql.NullString
			evCreated                     sql.NullTime
		)
		if err := rows.Scan(&st.ID, &st.IDNum, &st.Name, &st.Program, &st.IsAssigned, &stEventID, &assignedBy, &st.HoursRender, &st.CreatedAt,
			&evID, &evCode, &evGov, &evName, &evDate, &evCreated); err != nil {
			return nil, err
		}
		st.AssignedBy = assignedBy.String
		se := model.StudentEvent{Student: st}
		if stEventID.Valid {
			id := stEventID.Int64
			se.Student.EventID = &id
		}
		if evID.Valid {
			se.Event = &model.Event{
				ID:        evID.Int64,
				EventCode: evCode.String,
				GovID:     evGov.String,
				Name:      evName.String,
				Date:      evDate.String,
				CreatedAt: evCreated.Time,
			}
		}
		res = append(res, se)
	}
	return res, rows.Err()
}

// OpenLog returns the student's log for the event that has no time_out yet.
func (r *Repository) OpenLog(ctx context.Context, studentID, eventID int64) (*model.AttendanceLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+logColumns+`
		FROM attendance_logs l JOIN students s ON s.id = l.student_id
		WHERE l.student_id = $1 AND l.event_id = $2 AND l.time_out IS NULL
		ORDER BY l.id
		LIMIT 1
	`, studentID, eventID)
	l, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// InsertLog opens a new log.
func (r *Repository) InsertLog(ctx context.Context, l model.AttendanceLog) (model.AttendanceLog, error) {
	row := r.db.QueryRowContext(ctx, `
		WITH l AS (
			INSERT INTO attendance_logs (student_id, event_id, time_in)
			VALUES ($1, $2, $3)
			RETURNING id, student_id, event_id, time_in, time_out, credited
		)
		SELECT `+logColumns+`
		FROM l JOIN students s ON s.id = l.student_id
	`, l.StudentID, l.EventID, l.TimeIn)
	inserted, err := scanLog(row)
	if err != nil {
		return model.AttendanceLog{}, store.Classify(err)
	}
	return inserted, nil
}

// CloseLog stamps time_out on an open log.
func (r *Repository) CloseLog(ctx context.Context, logID int64, at time.Time) (*model.AttendanceLog, error) {
	row := r.db.QueryRowContext(ctx, `
		WITH l AS (
			UPDATE attendance_logs SET time_out = $2
			WHERE id = $1 AND time_out IS NULL
			RETURNING id, student_id, event_id, time_in, time_out, credited
		)
		SELECT `+logColumns+`
		FROM l JOIN students s ON s.id = l.student_id
	`, logID, at)
	l, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// ListLogs returns an event's logs in creation order.
func (r *Repository) ListLogs(ctx context.Context, eventID int64) ([]model.AttendanceLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+logColumns+`
		FROM attendance_logs l JOIN students s ON s.id = l.student_id
		WHERE l.event_id = $1
		ORDER BY l.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.AttendanceLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// CreditLog adds the log's duration to the student's rendered hours. The
// credited flag makes it a no-op on redelivery.
func (r *Repository) CreditLog(ctx context.Context, logID int64) (float64, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		WITH credited AS (
			UPDATE attendance_logs SET credited = TRUE
			WHERE id = $1 AND credited = FALSE AND time_out IS NOT NULL
			RETURNING student_id, (EXTRACT(EPOCH FROM (time_out - time_in)) / 3600.0)::float8 AS hours
		)
		UPDATE students s SET hours_render = s.hours_render + c.hours
		FROM credited c
		WHERE s.id = c.student_id
		RETURNING c.hours
	`, logID)
	var hours float64
	if err := row.Scan(&hours); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return hours, true, nil
}
