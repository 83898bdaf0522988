package service

import (
	"testing"

	"gamevault/internal/domain/checkout/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcast(t *testing.T) {
	t.Run("Full view drops ticks", func(t *testing.T) {
		h := newHub()
		ch, _ := h.attach()
		for i := 0; i < viewBuffer+4; i++ {
			h.broadcast(model.Event{Type: model.EventTick, Seconds: i})
		}
		require.Len(t, ch, viewBuffer)
		assert.Equal(t, 0, (<-ch).Seconds)
	})

	t.Run("Full view still gets terminal event", func(t *testing.T) {
		h := newHub()
		ch, _ := h.attach()
		for i := 0; i < viewBuffer; i++ {
			h.broadcast(model.Event{Type: model.EventTick, Seconds: i})
		}
		h.broadcast(model.Event{Type: model.EventExpired, State: model.StateExpired})
		h.broadcast(model.Event{Type: model.EventRedirect, Redirect: "/"})
		require.Len(t, ch, viewBuffer)

		got := make([]model.Event, 0, viewBuffer)
		for len(ch) > 0 {
			got = append(got, <-ch)
		}
		assert.Equal(t, 2, got[0].Seconds)
		assert.Equal(t, model.EventExpired, got[len(got)-2].Type)
		assert.Equal(t, model.EventRedirect, got[len(got)-1].Type)
	})

	t.Run("Detached view is closed", func(t *testing.T) {
		h := newHub()
		ch, n := h.attach()
		require.Equal(t, 1, n)
		assert.Equal(t, 0, h.detach(ch))
		_, ok := <-ch
		assert.False(t, ok)
		h.broadcast(model.Event{Type: model.EventCancelled})
		assert.Equal(t, 0, h.count())
	})
}
