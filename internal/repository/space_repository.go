package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/space-booking/internal/model"
)

// GetLocation fetches a location by id.
func (r *sqlRepo) GetLocation(ctx context.Context, id uint64) (model.Location, error) {
	var l model.Location
	err := r.q.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM locations WHERE id=?", id).Scan(&l.ID, &l.Name, &l.CreatedAt)
	return l, mapError(err)
}

func (r *sqlRepo) ListLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, name, created_at FROM locations ORDER BY name")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *sqlRepo) InsertLocation(ctx context.Context, l *model.Location) error {
	res, err := r.q.ExecContext(ctx, "INSERT INTO locations (name) VALUES (?)", l.Name)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// DeleteLocation removes a location; spaces and their reservations go with
// it through ON DELETE CASCADE.
func (r *sqlRepo) DeleteLocation(ctx context.Context, id uint64) error {
	return affectedOne(r.q.ExecContext(ctx, "DELETE FROM locations WHERE id=?", id))
}

const spaceSelect = `SELECT s.id, s.name, s.location_id, l.name, s.floor, s.capacity, s.type,
       s.available, s.description, s.created_at, s.updated_at
  FROM spaces s
  JOIN locations l ON l.id = s.location_id`

func scanSpace(row interface{ Scan(...any) error }) (model.Space, error) {
	var s model.Space
	var typ string
	err := row.Scan(&s.ID, &s.Name, &s.LocationID, &s.LocationName, &s.Floor, &s.Capacity, &typ,
		&s.Available, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	s.Type = model.SpaceType(typ)
	return s, err
}

func (r *sqlRepo) GetSpace(ctx context.Context, id uint64) (model.Space, error) {
	s, err := scanSpace(r.q.QueryRowContext(ctx, spaceSelect+" WHERE s.id=?", id))
	return s, mapError(err)
}

// LockSpace reads the space row with FOR UPDATE. Every reservation write
// takes this lock first, so writers of one space run one at a time.
func (r *sqlRepo) LockSpace(ctx context.Context, id uint64) (model.Space, error) {
	s, err := scanSpace(r.q.QueryRowContext(ctx, spaceSelect+" WHERE s.id=? FOR UPDATE", id))
	return s, mapError(err)
}

func (r *sqlRepo) ListSpaces(ctx context.Context, f SpaceFilter) ([]model.Space, error) {
	var where []string
	var args []any
	if f.AvailableOnly {
		where = append(where, "s.available = TRUE")
	}
	if f.LocationID != nil {
		where = append(where, "s.location_id = ?")
		args = append(args, *f.LocationID)
	}
	if f.Floor != nil {
		where = append(where, "s.floor = ?")
		args = append(args, *f.Floor)
	}
	if f.Name != "" {
		where = append(where, "s.name LIKE ?")
		args = append(args, likeContains(f.Name))
	}
	q := spaceSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.q.QueryContext(ctx, q+" ORDER BY s.name", args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []model.Space
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sqlRepo) InsertSpace(ctx context.Context, s *model.Space) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO spaces (name, location_id, floor, capacity, type, available, description)
		 VALUES (?,?,?,?,?,?,?)`,
		s.Name, s.LocationID, s.Floor, s.Capacity, string(s.Type), s.Available, s.Description)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (r *sqlRepo) UpdateSpace(ctx context.Context, s *model.Space) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE spaces SET name=?, location_id=?, floor=?, capacity=?, type=?, available=?, description=?
		 WHERE id=?`,
		s.Name, s.LocationID, s.Floor, s.Capacity, string(s.Type), s.Available, s.Description, s.ID)
	if err != nil {
		return mapError(err)
	}
	// MySQL reports zero affected rows for a no-op update, so confirm existence.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetSpace(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSpace removes a space and, through ON DELETE CASCADE, its
// reservations.
func (r *sqlRepo) DeleteSpace(ctx context.Context, id uint64) error {
	if err := affectedOne(r.q.ExecContext(ctx, "DELETE FROM spaces WHERE id=?", id)); err != nil {
		return fmt.Errorf("space %d: %w", id, err)
	}
	return nil
}

// likeContains escapes LIKE metacharacters and wraps s for a substring
// match. The default collation makes the match case-insensitive.
func likeContains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
