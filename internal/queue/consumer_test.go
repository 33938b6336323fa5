package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	line := FormatLine(AuditEvent{
		ID:            "e1",
		Action:        ActionReservationRejected,
		ActorID:       1,
		Entity:        EntityReservation,
		EntityID:      9,
		OwnerID:       3,
		SpaceID:       2,
		UseDate:       "2025-06-02",
		Window:        "09:00-10:00",
		State:         "rejected",
		PreviousState: "pending",
		Reason:        "space not available",
		Cascade:       true,
		OccurredAt:    "2025-06-01T08:00:00Z",
	})
	assert.Equal(t, `[2025-06-01T08:00:00Z] reservation.rejected | id=e1 | actor_id=1 | reservation_id=9 | owner_id=3 | space_id=2 | date=2025-06-02 | window=09:00-10:00 | state=pending->rejected | reason="space not available" | cascade=true`+"\n", line)

	line = FormatLine(AuditEvent{ID: "e2", Action: ActionSpaceDeleted, ActorID: 1, Entity: EntitySpace, EntityID: 4, OccurredAt: "t"})
	assert.Equal(t, "[t] space.deleted | id=e2 | actor_id=1 | space_id=4\n", line)
}

func TestConsumerHandleMessageAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	c := NewConsumer("amqp://unused", "", dir, nil)

	for _, id := range []string{"a", "b"} {
		body, err := json.Marshal(AuditEvent{ID: id, Action: ActionReservationCreated, Entity: EntityReservation, EntityID: 1, OccurredAt: "t"})
		require.NoError(t, err)
		require.NoError(t, c.handleMessage(body))
	}

	raw, err := os.ReadFile(filepath.Join(dir, AuditLogFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "id=a")
	assert.Contains(t, lines[1], "id=b")
}

func TestConsumerRejectsBadPayload(t *testing.T) {
	c := NewConsumer("amqp://unused", "", t.TempDir(), nil)
	assert.Error(t, c.handleMessage([]byte("{")))
	assert.Error(t, c.handleMessage([]byte(`{"id":"x"}`)))
}
