package telemetry

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHubBroadcastsFrames(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	require.NoError(t, hub.Send(Frame{Tick: 7, Vehicles: []VehicleFrame{{Name: "car1"}}}))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	frame, err := Decode[Frame](msg)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), frame.Tick)
	assert.Equal(t, "car1", frame.Vehicles[0].Name)
}

func TestHubCollectsCommands(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	_, ok := hub.Read()
	assert.False(t, ok)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pause"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"respawn","vehicle":"car2"}`)))

	var got []Command
	require.Eventually(t, func() bool {
		if cmd, ok := hub.Read(); ok {
			got = append(got, cmd)
		}
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Command{{Type: Pause}, {Type: Respawn, Vehicle: "car2"}}, got)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

type sendFunc func(Frame) error

func (f sendFunc) Send(v Frame) error { return f(v) }

type queue []Command

func (q *queue) Read() (Command, bool) {
	if len(*q) == 0 {
		return Command{}, false
	}
	cmd := (*q)[0]
	*q = (*q)[1:]
	return cmd, true
}

func TestFanoutAndMerge(t *testing.T) {
	calls := 0
	ok := sendFunc(func(Frame) error { calls++; return nil })
	bad := sendFunc(func(Frame) error { calls++; return errors.New("down") })

	assert.NoError(t, Fanout[Frame]{ok, ok}.Send(Frame{}))
	assert.EqualError(t, Fanout[Frame]{bad, ok}.Send(Frame{}), "down")
	assert.Equal(t, 4, calls)

	a := &queue{{Type: Pause}}
	b := &queue{{Type: Resume}, {Type: Respawn}}
	m := Merge[Command]{a, b}
	for _, want := range []CommandType{Pause, Resume, Respawn} {
		cmd, ok := m.Read()
		require.True(t, ok)
		assert.Equal(t, want, cmd.Type)
	}
	_, found := m.Read()
	assert.False(t, found)
}
