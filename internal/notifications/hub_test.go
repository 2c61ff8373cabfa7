package notifications

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterUnregister(t *testing.T) {
	h := NewHub()

	c1, err := h.Register("demo", nil)
	require.NoError(t, err)
	c2, err := h.Register("demo", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, h.ConnectionCount())

	h.Unregister(c1)
	assert.Equal(t, 1, h.ConnectionCount())

	// Unregistering twice is harmless.
	h.Unregister(c1)
	assert.Equal(t, 1, h.ConnectionCount())

	h.Unregister(c2)
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestHubPerUserConnectionLimit(t *testing.T) {
	h := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := h.Register("demo", nil)
		require.NoError(t, err)
	}
	_, err := h.Register("demo", nil)
	assert.Error(t, err)

	// A different identity is unaffected.
	_, err = h.Register("other", nil)
	assert.NoError(t, err)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h := NewHub()
	var clients []*Client
	for i := 0; i < 3; i++ {
		c, err := h.Register(fmt.Sprintf("user-%d", i), nil)
		require.NoError(t, err)
		clients = append(clients, c)
	}

	ev := FeedEvent{Action: ActionComment, PostID: "7"}
	h.Broadcast(ev)

	for _, c := range clients {
		select {
		case payload := <-c.send:
			var got FeedEvent
			require.NoError(t, json.Unmarshal(payload, &got))
			assert.Equal(t, ev, got)
		default:
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHubBroadcastSkipsSaturatedClients(t *testing.T) {
	h := NewHub()
	c, err := h.Register("demo", nil)
	require.NoError(t, err)

	for i := 0; i < cap(c.send); i++ {
		c.send <- []byte("x")
	}

	// Must not block even though the client queue is full.
	h.Broadcast(FeedEvent{Action: ActionReload})
	assert.Equal(t, cap(c.send), len(c.send))
}
