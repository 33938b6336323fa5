package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/queue"
	"github.com/iliyamo/space-booking/internal/repository"
	"github.com/iliyamo/space-booking/internal/scope"
)

// SpaceUnavailableReason is the admin reason written on reservations
// rejected because their space was switched off.
const SpaceUnavailableReason = "space not available"

// maxCalendarDays bounds DailyCounts ranges.
const maxCalendarDays = 366

// ReservationService owns the reservation state machine.
type ReservationService struct {
	base
}

func NewReservationService(d Deps) *ReservationService {
	return &ReservationService{base: newBase(d)}
}

// CreateReservationInput is a booking request. A zero UserID books for the
// actor.
type CreateReservationInput struct {
	UserID    uint64
	SpaceID   uint64
	UseDate   time.Time
	StartTime model.TimeOfDay
	EndTime   model.TimeOfDay
	Reason    string
}

// RescheduleInput holds the fields to change; nil fields keep their value.
type RescheduleInput struct {
	UseDate   *time.Time
	StartTime *model.TimeOfDay
	EndTime   *model.TimeOfDay
	Reason    *string
}

// ReservationFilter narrows ListVisibleReservations. It is applied after
// the actor's visibility.
type ReservationFilter struct {
	From       *time.Time
	To         *time.Time
	State      model.State
	SpaceID    uint64
	SpaceName  string
	LocationID *uint64
	Floor      *int
	Username   string
	StartsFrom *model.TimeOfDay
	EndsBy     *model.TimeOfDay
}

// DayCount is one row of DailyCounts.
type DayCount struct {
	Date     time.Time
	Pending  int
	Approved int
	Rejected int
}

// validateFields checks the request-level rules that do not need storage.
func validateFields(r *model.Reservation) error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return invalid(CodeReasonRequired, "reason is required")
	}
	if !r.Window().Valid() {
		return invalid(CodeInvalidTimeRange, "start time must be before end time")
	}
	return nil
}

// validateWrite runs the ordered checks every reservation write must pass
// before it is persisted:
//  1. the space is available, unless the write belongs to the cascade
//  2. the use date is not in the past
//  3. an approved reservation overlaps no other approved one
//  4. a reviewed reservation names a reviewer allowed to review the space
func (s *ReservationService) validateWrite(ctx context.Context, tx repository.Tx, space model.Space, r *model.Reservation, cascade bool) error {
	if !cascade && !space.Available {
		return invalid(CodeSpaceUnavailable, "space %q is not available", space.Name)
	}
	if r.UseDate.Before(s.today()) {
		return invalid(CodePastDate, "use date %s is in the past", r.UseDate.Format(model.DateLayout))
	}
	if r.State == model.StateApproved {
		hit, err := findOverlap(ctx, tx, space.ID, r.UseDate, r.Window(), r.ID)
		if err != nil {
			return err
		}
		if hit != nil {
			return invalid(CodeOverlap, "overlaps approved reservation %d (%s-%s)", hit.ID, hit.StartTime, hit.EndTime)
		}
	}
	if r.State.Reviewed() {
		if r.ApprovedBy == nil {
			return invalid(CodeApproverRequired, "a reviewer is required to %s a reservation", verb(r.State))
		}
		reviewer, err := tx.GetUser(ctx, *r.ApprovedBy)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid(CodeApproverRequired, "reviewer %d does not exist", *r.ApprovedBy)
			}
			return err
		}
		if !scope.CanReview(reviewer, space) {
			return invalid(CodeApproverScope, "%s may not review reservations of space %q", reviewer.Username, space.Name)
		}
	}
	return nil
}

func verb(st model.State) string {
	if st == model.StateApproved {
		return "approve"
	}
	return "reject"
}

// CreateReservation books a space as pending. Overlap with approved
// reservations is not checked here; it is checked when the reservation is
// approved.
func (s *ReservationService) CreateReservation(ctx context.Context, actor model.User, in CreateReservationInput) (*model.Reservation, error) {
	res := model.Reservation{
		UserID:    in.UserID,
		SpaceID:   in.SpaceID,
		UseDate:   model.Day(in.UseDate),
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		State:     model.StatePending,
		Reason:    in.Reason,
	}
	if res.UserID == 0 {
		res.UserID = actor.ID
	}
	if err := validateFields(&res); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		owner, err := tx.GetUser(ctx, res.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid(CodeInvalidField, "user %d does not exist", res.UserID)
			}
			return err
		}
		if !scope.CanAssign(actor, owner) {
			return fmt.Errorf("%w: cannot book on behalf of %s", ErrForbidden, owner.Username)
		}
		space, err := tx.LockSpace(ctx, res.SpaceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid(CodeInvalidField, "space %d does not exist", res.SpaceID)
			}
			return err
		}
		dup, err := tx.ReservationExists(ctx, owner.ID, space.ID, res.UseDate, 0)
		if err != nil {
			return err
		}
		if dup {
			return invalid(CodeDuplicate, "%s already has a reservation of %q on %s",
				owner.Username, space.Name, res.UseDate.Format(model.DateLayout))
		}
		if err := s.validateWrite(ctx, tx, space, &res, false); err != nil {
			return err
		}
		return tx.InsertReservation(ctx, &res)
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("reservation created",
		zap.Uint64("reservation_id", res.ID),
		zap.Uint64("actor_id", actor.ID),
		zap.Uint64("user_id", res.UserID),
		zap.Uint64("space_id", res.SpaceID),
		zap.String("use_date", res.UseDate.Format(model.DateLayout)))
	s.emit(ctx, reservationEvent(queue.ActionReservationCreated, actor, res))
	return &res, nil
}

// loadForWrite reads a reservation, checks it is visible to actor, locks
// its space and reads the reservation again under the lock. A reservation
// outside the visible set is reported as not found, except that a
// reviewing moderator gets ErrForbidden for spaces outside their scope.
func (s *ReservationService) loadForWrite(ctx context.Context, tx repository.Tx, actor model.User, id uint64, reviewing bool) (model.Reservation, model.Space, error) {
	res, err := tx.GetReservation(ctx, id)
	if err != nil {
		return res, model.Space{}, err
	}
	visible := scope.For(actor).Allows(res)
	if !visible && !(reviewing && actor.IsModerator()) {
		return res, model.Space{}, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}
	space, err := tx.LockSpace(ctx, res.SpaceID)
	if err != nil {
		return res, model.Space{}, err
	}
	res, err = tx.GetReservation(ctx, id)
	if err != nil {
		return res, model.Space{}, err
	}
	if !visible && !scope.CanReview(actor, space) {
		return res, space, fmt.Errorf("%w: reservation %d is outside your scope", ErrForbidden, id)
	}
	return res, space, nil
}

// TransitionReservation moves a pending reservation to approved or
// rejected on behalf of a reviewer.
func (s *ReservationService) TransitionReservation(ctx context.Context, actor model.User, id uint64, target model.State, adminReason string) (*model.Reservation, error) {
	var res model.Reservation
	var prev model.State
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, space, err := s.loadForWrite(ctx, tx, actor, id, true)
		if err != nil {
			return err
		}
		if !scope.CanReview(actor, space) {
			return fmt.Errorf("%w: %s may not review reservations of %q", ErrForbidden, actor.Username, space.Name)
		}
		if !target.Reviewed() || cur.State != model.StatePending {
			return invalid(CodeInvalidTransition, "cannot move reservation from %s to %s", cur.State, target)
		}
		prev = cur.State
		reviewer := actor.ID
		cur.State = target
		cur.ApprovedBy = &reviewer
		cur.AdminReason = strings.TrimSpace(adminReason)
		if err := s.validateWrite(ctx, tx, space, &cur, false); err != nil {
			return err
		}
		if err := tx.UpdateReservation(ctx, &cur); err != nil {
			return err
		}
		res = cur
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("reservation transitioned",
		zap.Uint64("reservation_id", res.ID),
		zap.Uint64("actor_id", actor.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(res.State)))
	action := queue.ActionReservationApproved
	if res.State == model.StateRejected {
		action = queue.ActionReservationRejected
	}
	ev := reservationEvent(action, actor, res)
	ev.PreviousState = string(prev)
	s.emit(ctx, ev)
	return &res, nil
}

// RescheduleReservation changes the date, window or reason of a
// reservation. The full write validation runs again, so moving an approved
// reservation onto an occupied window fails.
func (s *ReservationService) RescheduleReservation(ctx context.Context, actor model.User, id uint64, in RescheduleInput) (*model.Reservation, error) {
	var res model.Reservation
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, space, err := s.loadForWrite(ctx, tx, actor, id, false)
		if err != nil {
			return err
		}
		if !scope.CanReschedule(actor, cur, space) {
			return fmt.Errorf("%w: reservation %d cannot be edited", ErrForbidden, id)
		}
		if in.UseDate != nil {
			cur.UseDate = model.Day(*in.UseDate)
		}
		if in.StartTime != nil {
			cur.StartTime = *in.StartTime
		}
		if in.EndTime != nil {
			cur.EndTime = *in.EndTime
		}
		if in.Reason != nil {
			cur.Reason = *in.Reason
		}
		if err := validateFields(&cur); err != nil {
			return err
		}
		dup, err := tx.ReservationExists(ctx, cur.UserID, cur.SpaceID, cur.UseDate, cur.ID)
		if err != nil {
			return err
		}
		if dup {
			return invalid(CodeDuplicate, "%s already has a reservation of %q on %s",
				cur.Username, space.Name, cur.UseDate.Format(model.DateLayout))
		}
		if err := s.validateWrite(ctx, tx, space, &cur, false); err != nil {
			return err
		}
		if err := tx.UpdateReservation(ctx, &cur); err != nil {
			return err
		}
		res = cur
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	s.logger.Info("reservation rescheduled",
		zap.Uint64("reservation_id", res.ID),
		zap.Uint64("actor_id", actor.ID),
		zap.String("use_date", res.UseDate.Format(model.DateLayout)))
	s.emit(ctx, reservationEvent(queue.ActionReservationRescheduled, actor, res))
	return &res, nil
}

// DeleteReservation removes a reservation. Owners may delete their own
// pending requests; administrators may delete anything.
func (s *ReservationService) DeleteReservation(ctx context.Context, actor model.User, id uint64) error {
	var res model.Reservation
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if !scope.For(actor).Allows(cur) {
			return fmt.Errorf("%w: reservation %d", ErrNotFound, id)
		}
		if !scope.CanDelete(actor, cur) {
			return fmt.Errorf("%w: reservation %d cannot be deleted", ErrForbidden, id)
		}
		res = cur
		return tx.DeleteReservation(ctx, id)
	})
	if err != nil {
		return storageError(err)
	}
	s.logger.Info("reservation deleted", zap.Uint64("reservation_id", id), zap.Uint64("actor_id", actor.ID))
	s.emit(ctx, reservationEvent(queue.ActionReservationDeleted, actor, res))
	return nil
}

// GetReservation returns a reservation visible to actor.
func (s *ReservationService) GetReservation(ctx context.Context, actor model.User, id uint64) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if !scope.For(actor).Allows(res) {
		return nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}
	return &res, nil
}

// ListVisibleReservations returns the reservations actor may see, narrowed
// by f.
func (s *ReservationService) ListVisibleReservations(ctx context.Context, actor model.User, f ReservationFilter) ([]model.Reservation, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, invalid(CodeInvalidField, "end date precedes start date")
	}
	out, err := s.store.ListReservations(ctx, repository.ReservationQuery{
		Visibility: scope.For(actor),
		From:       f.From,
		To:         f.To,
		State:      f.State,
		SpaceID:    f.SpaceID,
		SpaceName:  f.SpaceName,
		LocationID: f.LocationID,
		Floor:      f.Floor,
		Username:   f.Username,
		StartsFrom: f.StartsFrom,
		EndsBy:     f.EndsBy,
	})
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

// DailyCounts tallies the visible reservations per state for every day of
// [from, to]. Days without reservations are included with zero counts.
func (s *ReservationService) DailyCounts(ctx context.Context, actor model.User, from, to time.Time, state model.State) ([]DayCount, error) {
	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return nil, invalid(CodeInvalidField, "end date precedes start date")
	}
	if to.Sub(from) > maxCalendarDays*24*time.Hour {
		return nil, invalid(CodeInvalidField, "range is limited to %d days", maxCalendarDays)
	}
	list, err := s.ListVisibleReservations(ctx, actor, ReservationFilter{From: &from, To: &to, State: state})
	if err != nil {
		return nil, err
	}
	var out []DayCount
	index := map[time.Time]int{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		index[d] = len(out)
		out = append(out, DayCount{Date: d})
	}
	for _, r := range list {
		i, ok := index[r.UseDate]
		if !ok {
			continue
		}
		switch r.State {
		case model.StatePending:
			out[i].Pending++
		case model.StateApproved:
			out[i].Approved++
		case model.StateRejected:
			out[i].Rejected++
		}
	}
	return out, nil
}

// AssignableUsers lists the users actor may book for.
func (s *ReservationService) AssignableUsers(ctx context.Context, actor model.User) ([]model.User, error) {
	if actor.IsRegularUser() {
		return []model.User{actor}, nil
	}
	users, err := s.store.ListUsers(ctx, repository.UserFilter{ActiveOnly: true})
	if err != nil {
		return nil, storageError(err)
	}
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if scope.CanAssign(actor, u) {
			out = append(out, u)
		}
	}
	return out, nil
}

// rejectForUnavailableSpace rejects every open reservation of space dated
// today or later, one transaction per reservation. Failures are logged and
// skipped. It returns the ids that were rejected.
func (s *ReservationService) rejectForUnavailableSpace(ctx context.Context, actor model.User, spaceID uint64) []uint64 {
	today := s.today()
	open, err := s.store.OpenReservationsFrom(ctx, spaceID, today)
	if err != nil {
		s.logger.Error("cascade: list open reservations failed", zap.Uint64("space_id", spaceID), zap.Error(err))
		return nil
	}
	var done []uint64
	for _, r := range open {
		res, err := s.cascadeReject(ctx, actor, r.ID, today)
		if err != nil {
			s.logger.Warn("cascade: reject failed",
				zap.Uint64("space_id", spaceID),
				zap.Uint64("reservation_id", r.ID),
				zap.Error(err))
			continue
		}
		if res != nil {
			done = append(done, res.ID)
		}
	}
	s.logger.Info("cascade finished",
		zap.Uint64("space_id", spaceID),
		zap.Int("candidates", len(open)),
		zap.Int("rejected", len(done)))
	return done
}

// cascadeReject rejects one reservation through the regular write path.
// It returns nil when the reservation no longer qualifies.
func (s *ReservationService) cascadeReject(ctx context.Context, actor model.User, id uint64, today time.Time) (*model.Reservation, error) {
	var res *model.Reservation
	var prev model.State
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		space, err := tx.LockSpace(ctx, cur.SpaceID)
		if err != nil {
			return err
		}
		cur, err = tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if cur.UseDate.Before(today) || cur.State == model.StateRejected {
			return nil
		}
		prev = cur.State
		reviewer := actor.ID
		cur.State = model.StateRejected
		cur.ApprovedBy = &reviewer
		cur.AdminReason = SpaceUnavailableReason
		if err := s.validateWrite(ctx, tx, space, &cur, true); err != nil {
			return err
		}
		if err := tx.UpdateReservation(ctx, &cur); err != nil {
			return err
		}
		res = &cur
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	if res != nil {
		ev := reservationEvent(queue.ActionReservationRejected, actor, *res)
		ev.PreviousState = string(prev)
		ev.Cascade = true
		s.emit(ctx, ev)
	}
	return res, nil
}
