package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

func evt(user string, t domain.EventType) domain.Event {
	return domain.Event{Type: t, UserID: id.UserID(user)}
}

func TestQueue(t *testing.T) {
	t.Run("drain preserves enqueue order", func(t *testing.T) {
		q := newQueue(10)
		q.push(evt("a", domain.EventXPAwarded))
		q.push(evt("b", domain.EventTrustUpdated))
		q.push(evt("a", domain.EventBadgeEarned))

		drained := q.drain()
		assert.Len(t, drained, 3)
		assert.Equal(t, domain.EventXPAwarded, drained[0].Type)
		assert.Equal(t, domain.EventBadgeEarned, drained[2].Type)
		assert.Zero(t, q.depth())
	})

	t.Run("overflow evicts the oldest", func(t *testing.T) {
		q := newQueue(2)
		q.push(evt("a", domain.EventXPAwarded))
		q.push(evt("b", domain.EventXPAwarded))
		evicted := q.push(evt("c", domain.EventXPAwarded))

		assert.Len(t, evicted, 1)
		assert.Equal(t, id.UserID("a"), evicted[0].UserID)

		drained := q.drain()
		assert.Len(t, drained, 2)
		assert.Equal(t, id.UserID("b"), drained[0].UserID)
		assert.Equal(t, id.UserID("c"), drained[1].UserID)
	})

	t.Run("push after drain starts fresh", func(t *testing.T) {
		q := newQueue(2)
		q.push(evt("a", domain.EventXPAwarded))
		q.drain()
		assert.Empty(t, q.push(evt("b", domain.EventXPAwarded)))
		assert.Equal(t, 1, q.depth())
	})
}
