package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/scope"
)

const reservationSelect = `SELECT r.id, r.user_id, r.space_id, r.use_date, r.start_time, r.end_time,
       r.state, r.reason, r.admin_reason, r.approved_by, r.created_at, r.updated_at,
       u.username, s.name, s.location_id, s.floor
  FROM reservations r
  JOIN users u  ON u.id = r.user_id
  JOIN spaces s ON s.id = r.space_id`

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var res model.Reservation
	var state string
	var adminReason sql.NullString
	var approvedBy sql.NullInt64
	err := row.Scan(&res.ID, &res.UserID, &res.SpaceID, &res.UseDate, &res.StartTime, &res.EndTime,
		&state, &res.Reason, &adminReason, &approvedBy, &res.CreatedAt, &res.UpdatedAt,
		&res.Username, &res.SpaceName, &res.LocationID, &res.Floor)
	if err != nil {
		return model.Reservation{}, err
	}
	res.UseDate = model.Day(res.UseDate)
	res.State = model.State(state)
	res.AdminReason = adminReason.String
	if approvedBy.Valid {
		id := uint64(approvedBy.Int64)
		res.ApprovedBy = &id
	}
	return res, nil
}

func (r *sqlRepo) queryReservations(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetReservation fetches one reservation with its joined columns.
func (r *sqlRepo) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.q.QueryRowContext(ctx, reservationSelect+" WHERE r.id=?", id))
	return res, mapError(err)
}

// visibilityClause renders a scope.Visibility as a WHERE fragment. It is
// the SQL twin of Visibility.Allows.
func visibilityClause(v scope.Visibility) (string, []any) {
	if v.All {
		return "", nil
	}
	var parts []string
	var args []any
	if v.OwnerID != 0 {
		parts = append(parts, "r.user_id = ?")
		args = append(args, v.OwnerID)
	}
	if v.ReviewerID != 0 {
		parts = append(parts, "r.approved_by = ?")
		args = append(args, v.ReviewerID)
	}
	if v.HasLocation() {
		parts = append(parts, "(s.location_id = ? AND s.floor = ?)")
		args = append(args, *v.LocationID, *v.Floor)
	}
	if len(parts) == 0 {
		return "1 = 0", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// buildReservationWhere renders the full query: visibility first, then
// the optional filters.
func buildReservationWhere(q ReservationQuery) (string, []any) {
	var where []string
	var args []any
	if clause, a := visibilityClause(q.Visibility); clause != "" {
		where = append(where, clause)
		args = append(args, a...)
	}
	if q.From != nil {
		where = append(where, "r.use_date >= ?")
		args = append(args, model.Day(*q.From).Format(model.DateLayout))
	}
	if q.To != nil {
		where = append(where, "r.use_date <= ?")
		args = append(args, model.Day(*q.To).Format(model.DateLayout))
	}
	if q.State != "" {
		where = append(where, "r.state = ?")
		args = append(args, string(q.State))
	}
	if q.SpaceID != 0 {
		where = append(where, "r.space_id = ?")
		args = append(args, q.SpaceID)
	}
	if q.SpaceName != "" {
		where = append(where, "s.name LIKE ?")
		args = append(args, likeContains(q.SpaceName))
	}
	if q.LocationID != nil {
		where = append(where, "s.location_id = ?")
		args = append(args, *q.LocationID)
	}
	if q.Floor != nil {
		where = append(where, "s.floor = ?")
		args = append(args, *q.Floor)
	}
	if q.Username != "" {
		where = append(where, "u.username LIKE ?")
		args = append(args, likeContains(q.Username))
	}
	if q.StartsFrom != nil {
		where = append(where, "r.start_time >= ?")
		args = append(args, *q.StartsFrom)
	}
	if q.EndsBy != nil {
		where = append(where, "r.end_time <= ?")
		args = append(args, *q.EndsBy)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListReservations returns the reservations matching q ordered by date,
// start time and id.
func (r *sqlRepo) ListReservations(ctx context.Context, q ReservationQuery) ([]model.Reservation, error) {
	where, args := buildReservationWhere(q)
	return r.queryReservations(ctx, reservationSelect+where+" ORDER BY r.use_date, r.start_time, r.id", args...)
}

// ApprovedOn lists the approved reservations of one (space, day) partition.
func (r *sqlRepo) ApprovedOn(ctx context.Context, spaceID uint64, day time.Time, excludeID uint64) ([]model.Reservation, error) {
	return r.queryReservations(ctx,
		reservationSelect+` WHERE r.space_id = ? AND r.use_date = ? AND r.state = 'approved' AND r.id <> ?
		 ORDER BY r.start_time`,
		spaceID, model.Day(day).Format(model.DateLayout), excludeID)
}

func (r *sqlRepo) ReservationExists(ctx context.Context, userID, spaceID uint64, day time.Time, excludeID uint64) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE user_id = ? AND space_id = ? AND use_date = ? AND id <> ?`,
		userID, spaceID, model.Day(day).Format(model.DateLayout), excludeID).Scan(&n)
	if err != nil {
		return false, mapError(err)
	}
	return n > 0, nil
}

func (r *sqlRepo) OpenReservationsFrom(ctx context.Context, spaceID uint64, from time.Time) ([]model.Reservation, error) {
	return r.queryReservations(ctx,
		reservationSelect+` WHERE r.space_id = ? AND r.use_date >= ? AND r.state IN ('pending','approved')
		 ORDER BY r.use_date, r.start_time, r.id`,
		spaceID, model.Day(from).Format(model.DateLayout))
}

// InsertReservation stores res and reloads it so timestamps and joined
// columns are populated.
func (r *sqlRepo) InsertReservation(ctx context.Context, res *model.Reservation) error {
	out, err := r.q.ExecContext(ctx,
		`INSERT INTO reservations (user_id, space_id, use_date, start_time, end_time, state, reason, admin_reason, approved_by)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		res.UserID, res.SpaceID, model.Day(res.UseDate).Format(model.DateLayout), res.StartTime, res.EndTime,
		string(res.State), res.Reason, nullString(res.AdminReason), nullUint(res.ApprovedBy))
	if err != nil {
		return mapError(err)
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetReservation(ctx, uint64(id))
	if err != nil {
		return err
	}
	*res = stored
	return nil
}

// UpdateReservation writes every mutable column of res and reloads it.
func (r *sqlRepo) UpdateReservation(ctx context.Context, res *model.Reservation) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE reservations
		    SET space_id=?, use_date=?, start_time=?, end_time=?, state=?, reason=?, admin_reason=?, approved_by=?
		  WHERE id=?`,
		res.SpaceID, model.Day(res.UseDate).Format(model.DateLayout), res.StartTime, res.EndTime,
		string(res.State), res.Reason, nullString(res.AdminReason), nullUint(res.ApprovedBy), res.ID)
	if err != nil {
		return mapError(err)
	}
	stored, err := r.GetReservation(ctx, res.ID)
	if err != nil {
		return err
	}
	*res = stored
	return nil
}

func (r *sqlRepo) DeleteReservation(ctx context.Context, id uint64) error {
	return affectedOne(r.q.ExecContext(ctx, "DELETE FROM reservations WHERE id=?", id))
}
