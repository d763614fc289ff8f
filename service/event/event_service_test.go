package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techintel-service/service/models"
)

func TestEventService_SendAndBroadcast(t *testing.T) {
	s := NewEventService()
	a1 := s.AddSSEConnection("alice", "c1", "10.0.0.1")
	a2 := s.AddSSEConnection("alice", "c2", "10.0.0.2")
	b := s.AddSSEConnection("bob", "c3", "10.0.0.3")
	assert.Equal(t, 3, s.ConnectionCount())

	require.NoError(t, s.SendEventToClient("alice", models.NewSSEEvent("ping", nil)))
	assert.Len(t, a1.Channel, 1)
	assert.Len(t, a2.Channel, 1)
	assert.Len(t, b.Channel, 0)

	err := s.SendEventToClient("carol", models.NewSSEEvent("ping", nil))
	assert.ErrorIs(t, err, ErrNoConnection)

	delivered := s.BroadcastEvent(models.NewSSEEvent(models.EventTypeDatasetReloaded, nil))
	assert.Equal(t, 3, delivered)

	got := <-b.Channel
	assert.Equal(t, "bob", got.ClientName)
	assert.Equal(t, models.EventTypeDatasetReloaded, got.EventType)
}

func TestEventService_RemoveConnection(t *testing.T) {
	s := NewEventService()
	c := s.AddSSEConnection("alice", "c1", "")

	s.RemoveSSEConnection("alice", "c1")
	s.RemoveSSEConnection("alice", "c1")
	s.RemoveSSEConnection("nobody", "x")

	_, open := <-c.Done
	assert.False(t, open, "移除后Done通道关闭")
	assert.Equal(t, 0, s.ConnectionCount())
	assert.Empty(t, s.GetSSEConnectionList())
}

func TestEventService_FullQueueDrops(t *testing.T) {
	s := NewEventService()
	c := s.AddSSEConnection("slow", "c1", "")

	for i := 0; i < clientQueueSize; i++ {
		s.BroadcastEvent(models.NewSSEEvent("ping", nil))
	}
	assert.Equal(t, 0, s.BroadcastEvent(models.NewSSEEvent("ping", nil)))
	assert.Len(t, c.Channel, clientQueueSize)

	list := s.GetSSEConnectionList()
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].Dropped)
}

func TestEventService_Stop(t *testing.T) {
	s := NewEventService()
	c := s.AddSSEConnection("alice", "c1", "")
	s.Stop()

	_, open := <-c.Done
	assert.False(t, open)
	assert.Equal(t, 0, s.ConnectionCount())
}
