package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/queue"
	"github.com/iliyamo/space-booking/internal/repository"
	"github.com/iliyamo/space-booking/internal/scope"
)

// SpaceService manages locations and spaces. Turning a space off runs the
// reservation cascade through the ReservationService.
type SpaceService struct {
	base
	reservations *ReservationService
}

func NewSpaceService(d Deps, reservations *ReservationService) *SpaceService {
	return &SpaceService{base: newBase(d), reservations: reservations}
}

// SpaceInput describes a space to create or the full new state of one to
// update. A nil Available keeps the current flag (true on create).
type SpaceInput struct {
	Name        string
	LocationID  uint64
	Floor       int
	Capacity    int
	Type        model.SpaceType
	Available   *bool
	Description string
}

func (in SpaceInput) validate() error {
	if err := ValidateSpaceName(in.Name); err != nil {
		return err
	}
	if in.LocationID == 0 {
		return invalid(CodeInvalidField, "location is required")
	}
	if err := validateFloor(in.Floor); err != nil {
		return err
	}
	if in.Capacity < model.MinCapacity || in.Capacity > model.MaxCapacity {
		return invalid(CodeInvalidField, "capacity must be between %d and %d", model.MinCapacity, model.MaxCapacity)
	}
	if !in.Type.Valid() {
		return invalid(CodeInvalidField, "unknown space type %q", in.Type)
	}
	return nil
}

func requireManager(actor model.User) error {
	if !scope.CanManageSpaces(actor) {
		return fmt.Errorf("%w: only administrators manage spaces", ErrForbidden)
	}
	return nil
}

func (s *SpaceService) CreateLocation(ctx context.Context, actor model.User, name string) (*model.Location, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := ValidateSpaceName(name); err != nil {
		return nil, err
	}
	loc := model.Location{Name: name}
	if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.InsertLocation(ctx, &loc)
	}); err != nil {
		return nil, storageError(err)
	}
	s.emit(ctx, queue.AuditEvent{Action: queue.ActionLocationCreated, ActorID: actor.ID, Entity: queue.EntityLocation, EntityID: loc.ID})
	return &loc, nil
}

func (s *SpaceService) ListLocations(ctx context.Context) ([]model.Location, error) {
	out, err := s.store.ListLocations(ctx)
	return out, storageError(err)
}

// DeleteLocation removes a location with its spaces and their reservations.
func (s *SpaceService) DeleteLocation(ctx context.Context, actor model.User, id uint64) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteLocation(ctx, id)
	}); err != nil {
		return storageError(err)
	}
	s.logger.Info("location deleted", zap.Uint64("location_id", id), zap.Uint64("actor_id", actor.ID))
	s.emit(ctx, queue.AuditEvent{Action: queue.ActionLocationDeleted, ActorID: actor.ID, Entity: queue.EntityLocation, EntityID: id})
	return nil
}

func (s *SpaceService) CreateSpace(ctx context.Context, actor model.User, in SpaceInput) (*model.Space, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := in.validate(); err != nil {
		return nil, err
	}
	sp := model.Space{
		Name:        in.Name,
		LocationID:  in.LocationID,
		Floor:       in.Floor,
		Capacity:    in.Capacity,
		Type:        in.Type,
		Available:   in.Available == nil || *in.Available,
		Description: strings.TrimSpace(in.Description),
	}
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetLocation(ctx, sp.LocationID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid(CodeInvalidField, "location %d does not exist", sp.LocationID)
			}
			return err
		}
		if err := tx.InsertSpace(ctx, &sp); err != nil {
			return err
		}
		stored, err := tx.GetSpace(ctx, sp.ID)
		if err != nil {
			return err
		}
		sp = stored
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	s.emit(ctx, queue.AuditEvent{Action: queue.ActionSpaceCreated, ActorID: actor.ID, Entity: queue.EntitySpace, EntityID: sp.ID})
	return &sp, nil
}

// UpdateSpace replaces the editable fields of a space. When the update
// switches the space from available to unavailable, its open reservations
// are rejected afterwards.
func (s *SpaceService) UpdateSpace(ctx context.Context, actor model.User, id uint64, in SpaceInput) (*model.Space, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.applySpaceUpdate(ctx, actor, id, func(sp *model.Space) {
		sp.Name = in.Name
		sp.LocationID = in.LocationID
		sp.Floor = in.Floor
		sp.Capacity = in.Capacity
		sp.Type = in.Type
		sp.Description = strings.TrimSpace(in.Description)
		if in.Available != nil {
			sp.Available = *in.Available
		}
	})
}

// SetSpaceAvailability flips the availability flag of a space. Turning it
// off rejects every pending or approved reservation of the space dated
// today or later; failures there are logged and never returned.
func (s *SpaceService) SetSpaceAvailability(ctx context.Context, actor model.User, id uint64, available bool) (*model.Space, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	return s.applySpaceUpdate(ctx, actor, id, func(sp *model.Space) { sp.Available = available })
}

// applySpaceUpdate locks, mutates and stores a space. Callers check that
// actor manages spaces.
func (s *SpaceService) applySpaceUpdate(ctx context.Context, actor model.User, id uint64, mutate func(*model.Space)) (*model.Space, error) {
	var before, after model.Space
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.LockSpace(ctx, id)
		if err != nil {
			return err
		}
		before = cur
		mutate(&cur)
		if err := tx.UpdateSpace(ctx, &cur); err != nil {
			return err
		}
		after, err = tx.GetSpace(ctx, id)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("space updated",
		zap.Uint64("space_id", id),
		zap.Uint64("actor_id", actor.ID),
		zap.Bool("available_before", before.Available),
		zap.Bool("available_after", after.Available))
	s.emit(ctx, queue.AuditEvent{
		Action:        queue.ActionSpaceUpdated,
		ActorID:       actor.ID,
		Entity:        queue.EntitySpace,
		EntityID:      id,
		State:         availability(after.Available),
		PreviousState: availability(before.Available),
	})

	if before.Available && !after.Available && s.reservations != nil {
		s.reservations.rejectForUnavailableSpace(ctx, actor, id)
	}
	return &after, nil
}

func availability(on bool) string {
	if on {
		return "available"
	}
	return "unavailable"
}

// DeleteSpace removes a space and its reservations.
func (s *SpaceService) DeleteSpace(ctx context.Context, actor model.User, id uint64) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteSpace(ctx, id)
	}); err != nil {
		return storageError(err)
	}
	s.logger.Info("space deleted", zap.Uint64("space_id", id), zap.Uint64("actor_id", actor.ID))
	s.emit(ctx, queue.AuditEvent{Action: queue.ActionSpaceDeleted, ActorID: actor.ID, Entity: queue.EntitySpace, EntityID: id})
	return nil
}

func (s *SpaceService) GetSpace(ctx context.Context, id uint64) (*model.Space, error) {
	sp, err := s.store.GetSpace(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	return &sp, nil
}

// ListSpaces returns every space matching f.
func (s *SpaceService) ListSpaces(ctx context.Context, f repository.SpaceFilter) ([]model.Space, error) {
	out, err := s.store.ListSpaces(ctx, f)
	return out, storageError(err)
}

// TargetSpaces lists the spaces offered for booking: every available
// space, for every role. Moderator scope applies at review time.
func (s *SpaceService) TargetSpaces(ctx context.Context) ([]model.Space, error) {
	return s.ListSpaces(ctx, repository.SpaceFilter{AvailableOnly: true})
}
