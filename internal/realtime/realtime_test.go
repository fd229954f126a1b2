package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func startHubServer(t *testing.T, hub *Hub) (*httptest.Server, func(profileID string) *websocket.Conn) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("as"))
	}))
	dial := func(profileID string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?as=" + profileID
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return ws
	}
	return srv, dial
}

func TestHub_DeliversToConnectedMembers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(zap.NewNop())
	srv, dial := startHubServer(t, hub)
	defer srv.Close()

	ws := dial("p1")
	require.Eventually(t, func() bool { return hub.Online("p1") }, time.Second, 10*time.Millisecond)

	env, err := NewEnvelope(EventMessageCreated, []string{"p1", "offline"}, map[string]string{"body": "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Deliver(env))

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, EventMessageCreated, f.Type)
	assert.JSONEq(t, `{"body":"hi"}`, string(f.Data))

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_SecondSocketReplacesFirst(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(zap.NewNop())
	srv, dial := startHubServer(t, hub)
	defer srv.Close()

	first := dial("p1")
	require.Eventually(t, func() bool { return hub.Online("p1") }, time.Second, 10*time.Millisecond)
	second := dial("p1")

	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := first.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr))
	assert.Equal(t, 4001, closeErr.Code)
	_ = first.Close()

	assert.Equal(t, 1, hub.Count())
	hub.Close()
	_ = second.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestLocalBroadcaster_NoSocketsIsFine(t *testing.T) {
	b := NewLocalBroadcaster(NewHub(zap.NewNop()))
	env, err := NewEnvelope(EventConversationRead, []string{"p1"}, map[string]string{})
	require.NoError(t, err)
	assert.NoError(t, b.Publish(context.Background(), env))
}

func TestStreams_FanOutToEveryInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	got := make(chan string, 4)
	newConsumer := func(instance string) *StreamConsumer {
		c := NewStreamConsumer(client, "test:messages", instance, NewHub(zap.NewNop()), zap.NewNop())
		c.block = 50 * time.Millisecond
		c.deliver = func(env Envelope) int {
			got <- instance + ":" + env.Type
			return len(env.Recipients)
		}
		return c
	}
	a, b := newConsumer("a"), newConsumer("b")
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(ctx))

	env, err := NewEnvelope(EventMessageCreated, []string{"p1"}, map[string]string{"body": "hi"})
	require.NoError(t, err)
	require.NoError(t, NewStreamBroadcaster(client, "test:messages").Publish(ctx, env))

	seen := map[string]bool{}
	timeout := time.After(3 * time.Second)
	for len(seen) < 2 {
		select {
		case s := <-got:
			seen[s] = true
		case <-timeout:
			t.Fatalf("only saw %v", seen)
		}
	}
	assert.True(t, seen["a:"+EventMessageCreated])
	assert.True(t, seen["b:"+EventMessageCreated])

	a.Stop(ctx)
	b.Stop(ctx)
}
