package event

import (
	"context"
	"database/sql"
	"errors"

	"rollcall/internal/model"
	"rollcall/internal/store"
)

// Repository persists events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const eventColumns = `id, event_code, gov_id, name, date, created_at`

func scanEvent(sc interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := sc.Scan(&e.ID, &e.EventCode, &e.GovID, &e.Name, &e.Date, &e.CreatedAt)
	return e, err
}

// ListEvents returns a governor's events in creation order.
func (r *Repository) ListEvents(ctx context.Context, govID string) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events WHERE gov_id = $1
		ORDER BY id
	`, govID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// CreateEvent inserts an event.
func (r *Repository) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO events (event_code, gov_id, name, date)
		VALUES ($1, $2, $3, $4)
		RETURNING `+eventColumns, e.EventCode, e.GovID, e.Name, e.Date)
	created, err := scanEvent(row)
	if err != nil {
		return model.Event{}, store.Classify(err)
	}
	return created, nil
}

// UpdateEvent changes name and date when the governor owns the event.
func (r *Repository) UpdateEvent(ctx context.Context, govID string, id int64, name, date string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE events SET name = $3, date = $4
		WHERE id = $1 AND gov_id = $2
		RETURNING `+eventColumns, id, govID, name, date)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// DeleteEvent removes an owned event. Students and logs cascade.
func (r *Repository) DeleteEvent(ctx context.Context, govID string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1 AND gov_id = $2`, id, govID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OwnedEvent returns the event when govID owns it, nil otherwise.
func (r *Repository) OwnedEvent(ctx context.Context, govID string, eventID int64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events WHERE id = $1 AND gov_id = $2
	`, eventID, govID)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
