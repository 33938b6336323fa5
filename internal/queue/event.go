// Package queue carries audit events over RabbitMQ: the publisher used by
// the services and the background consumer that appends them to the audit
// log file.
package queue

// Entity kinds of an AuditEvent.
const (
	EntityReservation = "reservation"
	EntitySpace       = "space"
	EntityLocation    = "location"
	EntityUser        = "user"
)

// Actions of an AuditEvent.
const (
	ActionReservationCreated     = "reservation.created"
	ActionReservationApproved    = "reservation.approved"
	ActionReservationRejected    = "reservation.rejected"
	ActionReservationRescheduled = "reservation.rescheduled"
	ActionReservationDeleted     = "reservation.deleted"
	ActionSpaceCreated           = "space.created"
	ActionSpaceUpdated           = "space.updated"
	ActionSpaceDeleted           = "space.deleted"
	ActionLocationCreated        = "location.created"
	ActionLocationDeleted        = "location.deleted"
	ActionUserCreated            = "user.created"
	ActionUserUpdated            = "user.updated"
	ActionUserDeleted            = "user.deleted"
)

// AuditEvent is published after every committed mutation. Each reservation
// touched by an availability cascade gets its own event with Cascade set.
type AuditEvent struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	ActorID       uint64 `json:"actor_id"`
	Entity        string `json:"entity"`
	EntityID      uint64 `json:"entity_id"`
	OwnerID       uint64 `json:"owner_id,omitempty"`
	SpaceID       uint64 `json:"space_id,omitempty"`
	UseDate       string `json:"use_date,omitempty"`
	Window        string `json:"window,omitempty"`
	State         string `json:"state,omitempty"`
	PreviousState string `json:"previous_state,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Cascade       bool   `json:"cascade,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
