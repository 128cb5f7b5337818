package roster

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rollcall/internal/event"
	"rollcall/internal/model"
	"rollcall/internal/store"
)

// insertChunk keeps each INSERT well under the Postgres parameter limit.
const insertChunk = 1000

const studentColumns = `id, id_num, name, program, is_assigned, event_id, assigned_by, hours_render, created_at`

// Repository persists students in Postgres.
type Repository struct {
	*event.Repository
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{Repository: event.NewRepository(db), db: db}
}

func scanStudent(sc interface{ Scan(...any) error }) (model.Student, error) {
	var (
		s          model.Student
		eventID    sql.NullInt64
		assignedBy sql.NullString
	)
	if err := sc.Scan(&s.ID, &s.IDNum, &s.Name, &s.Program, &s.IsAssigned, &eventID, &assignedBy, &s.HoursRender, &s.CreatedAt); err != nil {
		return model.Student{}, err
	}
	if eventID.Valid {
		id := eventID.Int64
		s.EventID = &id
	}
	s.AssignedBy = assignedBy.String
	return s, nil
}

// EventStudentIDs returns the identity numbers already linked to an event.
func (r *Repository) EventStudentIDs(ctx context.Context, eventID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id_num FROM students WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertStudents writes all rows in one transaction; any violation rolls
// back the whole batch.
func (r *Repository) InsertStudents(ctx context.Context, students []model.Student) ([]model.Student, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]model.Student, 0, len(students))
	for start := 0; start < len(students); start += insertChunk {
		end := min(start+insertChunk, len(students))
		inserted, err := insertBatch(ctx, tx, students[start:end])
		if err != nil {
			return nil, store.Classify(err)
		}
		out = append(out, inserted...)
	}
	if err := tx.Commit(); err != nil {
		return nil, store.Classify(err)
	}
	return out, nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, batch []model.Student) ([]model.Student, error) {
	var (
		sb   strings.Builder
		args = make([]any, 0, len(batch)*6)
	)
	sb.WriteString(`INSERT INTO students (id_num, name, program, event_id, assigned_by, is_assigned) VALUES `)
	for i, s := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, FALSE)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, s.IDNum, s.Name, s.Program, s.EventID, nullString(s.AssignedBy))
	}
	sb.WriteString(` RETURNING ` + studentColumns)

	rows, err := tx.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make([]model.Student, 0, len(batch))
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListStudents returns the event's students imported by govID.
func (r *Repository) ListStudents(ctx context.Context, govID string, eventID int64) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE event_id = $1 AND assigned_by = $2
		ORDER BY id
	`, eventID, govID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
