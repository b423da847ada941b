package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_PushSendsEnvelopeAndBearer(t *testing.T) {
	var gotBody map[string]json.RawMessage
	var gotAuth string
	serverTime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sync/herds/push", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))

		w.Header().Set(common.SyncTimeHeaderName, serverTime.Format(time.RFC3339Nano))
		_, _ = w.Write([]byte(`{"data":[{"id":7,"clientRef":"ref-1"}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", time.Second)
	c.SetToken("tok")

	batch := models.HerdBatch{{ClientRef: "ref-1", Name: "North", Active: true}}
	ack, err := c.Push(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.JSONEq(t, `[{"id":null,"clientRef":"ref-1","name":"North","active":true}]`, string(gotBody["data"]))
	assert.Equal(t, []models.AckItem{{ID: 7, ClientRef: "ref-1"}}, ack.Items)
}

func TestHTTPClient_PushEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ack, err := NewHTTPClient(srv.URL, time.Second).Push(context.Background(), models.HerdBatch{})
	require.NoError(t, err)
	assert.Empty(t, ack.Items)
}

func TestHTTPClient_PullSince(t *testing.T) {
	since := time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC)
	var gotSince string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sync/bovines/pull", r.URL.Path)
		gotSince = r.URL.Query().Get("since")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Bessie"}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	res, err := c.Pull(context.Background(), models.EntityBovines, &since)
	require.NoError(t, err)
	assert.Equal(t, since.Format(time.RFC3339Nano), gotSince)
	assert.JSONEq(t, `[{"id":1,"name":"Bessie"}]`, string(res.Data))

	_, err = c.Pull(context.Background(), models.EntityBovines, nil)
	require.NoError(t, err)
	assert.Empty(t, gotSince)
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusUnprocessableEntity, ErrRejected},
		{http.StatusNotFound, ErrRejected},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusServiceUnavailable, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			_, err := NewHTTPClient(srv.URL, time.Second).Pull(context.Background(), models.EntityHerds, nil)
			require.ErrorIs(t, err, tt.want)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, "nope", se.Message)
		})
	}
}

func TestHTTPClient_NetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewHTTPClient(url, time.Second).Ping(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_Authenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/authenticate", r.URL.Path)
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a@b.c", in["email"])
		_, _ = w.Write([]byte(`{"token":"jwt"}`))
	}))
	defer srv.Close()

	tok, err := NewHTTPClient(srv.URL, time.Second).Authenticate(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt", tok)
}
