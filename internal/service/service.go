// Package service implements the booking engine: the conflict detector,
// the reservation state machine, the availability cascade and the
// account and space operations the HTTP layer calls into.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/queue"
	"github.com/iliyamo/space-booking/internal/repository"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Auditor receives one event per committed mutation.
type Auditor interface {
	Publish(ctx context.Context, ev queue.AuditEvent) error
}

type nopAuditor struct{}

func (nopAuditor) Publish(context.Context, queue.AuditEvent) error { return nil }

// Deps bundles what every service needs. Zero fields get defaults: no-op
// audit, no-op logger, wall clock, UTC.
type Deps struct {
	Store    repository.Store
	Audit    Auditor
	Logger   *zap.Logger
	Clock    Clock
	Location *time.Location
}

type base struct {
	store  repository.Store
	audit  Auditor
	logger *zap.Logger
	clock  Clock
	loc    *time.Location
}

func newBase(d Deps) base {
	b := base{store: d.Store, audit: d.Audit, logger: d.Logger, clock: d.Clock, loc: d.Location}
	if b.audit == nil {
		b.audit = nopAuditor{}
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.clock == nil {
		b.clock = ClockFunc(time.Now)
	}
	if b.loc == nil {
		b.loc = time.UTC
	}
	return b
}

// today is the current civil date in the configured zone.
func (b base) today() time.Time {
	return model.Day(b.clock.Now().In(b.loc))
}

// emit stamps and publishes ev. Publishing never fails the caller.
func (b base) emit(ctx context.Context, ev queue.AuditEvent) {
	ev.ID = uuid.NewString()
	ev.OccurredAt = b.clock.Now().UTC().Format(time.RFC3339)
	if err := b.audit.Publish(ctx, ev); err != nil {
		b.logger.Warn("audit publish failed",
			zap.String("action", ev.Action),
			zap.Uint64("entity_id", ev.EntityID),
			zap.Error(err))
	}
}

func reservationEvent(action string, actor model.User, r model.Reservation) queue.AuditEvent {
	return queue.AuditEvent{
		Action:   action,
		ActorID:  actor.ID,
		Entity:   queue.EntityReservation,
		EntityID: r.ID,
		OwnerID:  r.UserID,
		SpaceID:  r.SpaceID,
		UseDate:  r.UseDate.Format(model.DateLayout),
		Window:   r.StartTime.String() + "-" + r.EndTime.String(),
		State:    string(r.State),
		Reason:   r.AdminReason,
	}
}
