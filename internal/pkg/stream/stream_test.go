package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tick struct {
	N int `json:"n"`
}

func TestPump(t *testing.T) {
	events := make(chan tick, 3)
	done := make(chan error, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		done <- Pump(conn, events)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	events <- tick{N: 1}
	events <- tick{N: 2}
	close(events)

	var got tick
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 1, got.N)
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 2, got.N)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return")
	}
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://shop.example.com/"}

	cases := []struct {
		name   string
		origin string
		want   bool
	}{
		{"No origin header", "", true},
		{"Listed origin", "https://shop.example.com", true},
		{"Same host", "http://api.example.com", true},
		{"Foreign origin", "https://evil.example.net", false},
		{"Malformed origin", "://", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://api.example.com/checkout/events", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.want, OriginAllowed(r, allowed))
		})
	}

	r := httptest.NewRequest(http.MethodGet, "http://api.example.com/checkout/events", nil)
	r.Header.Set("Origin", "https://anything.test")
	assert.True(t, OriginAllowed(r, []string{"*"}))
}
