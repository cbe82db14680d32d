package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/krshsl/praxis/interviewer/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve upgrades one connection, hands it to fn as a Conn and returns the
// client side.
func serve(t *testing.T, fn func(c *Conn)) *websocket.Conn {
	t.Helper()

	done := make(chan struct{})
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		ws, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		opts := DefaultOptions()
		opts.CloseGrace = 200 * time.Millisecond
		fn(NewConn(ws, opts))
	}))

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	client.SetReadDeadline(time.Now().Add(5 * time.Second))

	t.Cleanup(func() {
		client.Close()
		<-done
		ts.Close()
	})
	return client
}

func TestConnSendsInOrderAndCloses(t *testing.T) {
	client := serve(t, func(c *Conn) {
		ctx := context.Background()
		assert.NoError(t, c.SendJSON(ctx, map[string]string{"type": "question"}))
		assert.NoError(t, c.SendBinary(ctx, []byte{1, 2, 3}))
		assert.NoError(t, c.Close(session.ClosePolicyViolation, "answer-timeout"))
		assert.NoError(t, c.Close(session.CloseNormalClosure, "ignored"), "later closes are no-ops")
		assert.ErrorIs(t, c.SendJSON(ctx, "late"), session.ErrChannelClosed)
	})

	kind, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `{"type":"question"}`, string(data))

	kind, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, _, err = client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, session.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, "answer-timeout", closeErr.Text)
}

func TestConnReceive(t *testing.T) {
	received := make(chan session.Inbound, 2)
	client := serve(t, func(c *Conn) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := 0; i < 2; i++ {
			in, err := c.Receive(ctx)
			if !assert.NoError(t, err) {
				return
			}
			received <- in
		}
		_, err := c.Receive(ctx)
		assert.ErrorIs(t, err, session.ErrChannelClosed, "peer closed")
		c.Close(session.CloseGoingAway, "disconnected")
	})

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte("audio")))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"audio":"YQ=="}`)))

	first := <-received
	assert.True(t, first.Binary)
	assert.Equal(t, []byte("audio"), first.Data)
	second := <-received
	assert.False(t, second.Binary)

	require.NoError(t, client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
}

func TestConnReceiveHonoursContext(t *testing.T) {
	client := serve(t, func(c *Conn) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := c.Receive(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		c.Close(session.ClosePolicyViolation, "answer-timeout")
	})

	_, _, err := client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, "answer-timeout", closeErr.Text)
}
