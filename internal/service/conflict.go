package service

import (
	"context"
	"time"

	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/repository"
)

// findOverlap returns the first approved reservation of (space, day) whose
// window intersects w, ignoring excludeID. Only approved reservations hold
// a slot; pending and rejected ones never block.
func findOverlap(ctx context.Context, r repository.Reader, spaceID uint64, day time.Time, w model.Interval, excludeID uint64) (*model.Reservation, error) {
	approved, err := r.ApprovedOn(ctx, spaceID, day, excludeID)
	if err != nil {
		return nil, err
	}
	for i := range approved {
		if approved[i].Window().Overlaps(w) {
			return &approved[i], nil
		}
	}
	return nil, nil
}

// HasOverlap reports whether [start, end) on useDate intersects an approved
// reservation of the space other than excludeID. start must precede end.
func (s *ReservationService) HasOverlap(ctx context.Context, spaceID uint64, useDate time.Time, start, end model.TimeOfDay, excludeID uint64) (bool, error) {
	w := model.Interval{Start: start, End: end}
	if !w.Valid() {
		return false, invalid(CodeInvalidTimeRange, "start time must be before end time")
	}
	hit, err := findOverlap(ctx, s.store, spaceID, model.Day(useDate), w, excludeID)
	if err != nil {
		return false, storageError(err)
	}
	return hit != nil, nil
}
