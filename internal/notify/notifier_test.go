package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookNotifier_SignsBody(t *testing.T) {
	var gotSig string
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, Sign([]byte("s3cret"), body), gotSig)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "s3cret", zap.NewNop())
	err := n.Notify(context.Background(), Notification{Kind: KindMemberSignedUp, ProfileID: "p1", Subject: "Welcome"})
	require.NoError(t, err)
	assert.NotEmpty(t, gotSig)
	assert.Equal(t, KindMemberSignedUp, got.Kind)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestWebhookNotifier_NoSecretNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookNotifier(srv.URL, "", zap.NewNop()).Notify(context.Background(), Notification{Kind: "x"}))
}

func TestWebhookNotifier_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "", zap.NewNop())
	n.httpClient.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)
	require.NoError(t, n.Notify(context.Background(), Notification{Kind: KindEventReminder}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookNotifier_ClientErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, "", zap.NewNop()).Notify(context.Background(), Notification{Kind: "x"})
	assert.Error(t, err)
}

func TestNew_EmptyURLIsNoop(t *testing.T) {
	n := New("", "secret", zap.NewNop())
	assert.IsType(t, Noop{}, n)
	assert.NoError(t, n.Notify(context.Background(), Notification{}))
}
