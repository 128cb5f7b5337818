package auth

import (
	"context"
	"database/sql"
	"errors"

	"rollcall/internal/model"
	"rollcall/internal/store"
)

// Repository persists governors in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateGovernor inserts a governor row.
func (r *Repository) CreateGovernor(ctx context.Context, g model.Governor) (model.Governor, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO governors (id_num, name, college_dep, password)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, g.IDNum, g.Name, g.CollegeDep, g.Password)
	if err := row.Scan(&g.CreatedAt); err != nil {
		return model.Governor{}, store.Classify(err)
	}
	return g, nil
}

// GetGovernor returns a governor by identity number.
func (r *Repository) GetGovernor(ctx context.Context, idNum string) (*model.Governor, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id_num, name, college_dep, password, created_at
		FROM governors WHERE id_num = $1
	`, idNum)
	var g model.Governor
	if err := row.Scan(&g.IDNum, &g.Name, &g.CollegeDep, &g.Password, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}
