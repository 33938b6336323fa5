package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/space-booking/internal/model"
)

const userColumns = `id, username, email, password_hash, group_name, location_id, floor, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var loc sql.NullInt64
	var floor sql.NullInt32
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Group, &loc, &floor, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if loc.Valid {
		id := uint64(loc.Int64)
		u.LocationID = &id
	}
	if floor.Valid {
		f := int(floor.Int32)
		u.Floor = &f
	}
	return u, nil
}

// GetUser fetches a user by id.
func (r *sqlRepo) GetUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, mapError(err)
}

// GetUserByUsername fetches a user by login handle.
func (r *sqlRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username)))
	return u, mapError(err)
}

func (r *sqlRepo) ListUsers(ctx context.Context, f UserFilter) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	if f.ActiveOnly {
		q += " WHERE is_active = TRUE"
	}
	rows, err := r.q.QueryContext(ctx, q+" ORDER BY username")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// InsertUser stores u and sets its ID. The password must already be hashed.
func (r *sqlRepo) InsertUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, group_name, location_id, floor, is_active)
		 VALUES (?,?,?,?,?,?,?)`,
		u.Username, u.Email, u.PasswordHash, u.Group, nullUint(u.LocationID), nullInt(u.Floor), u.IsActive)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// UpdateUser writes the editable account fields: email, group, home
// location and floor, and the active flag.
func (r *sqlRepo) UpdateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET email=?, group_name=?, location_id=?, floor=?, is_active=? WHERE id=?`,
		u.Email, u.Group, nullUint(u.LocationID), nullInt(u.Floor), u.IsActive, u.ID)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetUser(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUser removes a user. Its reservations go with it through ON DELETE
// CASCADE; reservations it reviewed keep a NULL approved_by.
func (r *sqlRepo) DeleteUser(ctx context.Context, id uint64) error {
	if err := affectedOne(r.q.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)); err != nil {
		return fmt.Errorf("user %d: %w", id, err)
	}
	return nil
}
