package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *PushRequest) {
	t.Helper()
	got := &PushRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loki/api/v1/push", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestPushEntryJSON_LabelsAndTimestamp(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	raw := []byte(`{"entity_table":"contracts","action":"update","occurred_at":"2024-05-02T08:00:00Z"}`)

	require.NoError(t, NewClient(srv.URL+"/", nil).PushEntryJSON(context.Background(), raw))
	require.Len(t, got.Streams, 1)
	s := got.Streams[0]
	assert.Equal(t, map[string]string{"job": Job, "entity_table": "contracts", "action": "update"}, s.Stream)
	require.Len(t, s.Values, 1)
	assert.Equal(t, []string{"1714636800000000000", string(raw)}, s.Values[0])
}

func TestPushEntryJSON_UnparsablePayload(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	require.NoError(t, NewClient(srv.URL, nil).PushEntryJSON(context.Background(), []byte("not json")))
	require.Len(t, got.Streams, 1)
	assert.Equal(t, map[string]string{"job": Job}, got.Streams[0].Stream)
	assert.Equal(t, "not json", got.Streams[0].Values[0][1])
}

func TestPush_SanitizesLabels(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	err := NewClient(srv.URL, nil).Push(context.Background(), time.Now(), "line", map[string]string{"entity_table": "a b/c", "empty": "  "})
	require.NoError(t, err)
	assert.Equal(t, "a_b_c", got.Streams[0].Stream["entity_table"])
	assert.NotContains(t, got.Streams[0].Stream, "empty")
}

func TestPush_Non2xx(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	err := NewClient(srv.URL, nil).Push(context.Background(), time.Now(), "line", nil)
	assert.ErrorContains(t, err, "400")
}

func TestPush_EmptyBaseURL(t *testing.T) {
	assert.Error(t, NewClient("", nil).Push(context.Background(), time.Now(), "line", nil))
}
