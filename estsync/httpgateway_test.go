package estsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/klmalviya77/site-work-simplifier-pro/estimate"
)

func staticToken(token string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return token, nil }
}

func testRecord(t *testing.T) *Record {
	t.Helper()
	e := estimate.New(estimate.KindElectrical)
	e.AddLineItem("Copper Wire 2.5mm", "Wiring", "m", decimal.NewFromInt(10), decimal.NewFromInt(28))
	rec, err := RecordFromEstimate(e, "u1")
	require.NoError(t, err)
	return rec
}

func TestHTTPGatewayUpsert(t *testing.T) {
	rec := testRecord(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v1/estimates/"+rec.ID, r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, rec.ID, got.ID)
		require.True(t, got.TotalAmount.Equal(decimal.NewFromInt(280)))

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, staticToken("tok-1"))
	require.NoError(t, g.Upsert(context.Background(), rec, "u1"))
}

func TestHTTPGatewayUpsertConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"owner_mismatch"}`, http.StatusConflict)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, staticToken("tok-1"))
	err := g.Upsert(context.Background(), testRecord(t), "u1")
	require.ErrorIs(t, err, ErrRemoteConflict)
	require.NotErrorIs(t, err, ErrRemoteUnavailable)
}

func TestHTTPGatewayServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, staticToken("tok-1"))
	err := g.Upsert(context.Background(), testRecord(t), "u1")
	require.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestHTTPGatewayConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	g := NewHTTPGateway(base, staticToken("tok-1"))
	err := g.Upsert(context.Background(), testRecord(t), "u1")
	require.ErrorIs(t, err, ErrRemoteUnavailable)

	_, err = g.ListByOwner(context.Background(), "u1")
	require.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestHTTPGatewayDeleteMissingIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, staticToken("tok-1"))
	require.NoError(t, g.Delete(context.Background(), "gone-already", "u1"))
}

func TestHTTPGatewayListByOwner(t *testing.T) {
	rec := testRecord(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "u1", r.URL.Query().Get("owner"))
		require.NoError(t, json.NewEncoder(w).Encode([]Record{*rec}))
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, staticToken("tok-1"))
	recs, err := g.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, rec.ID, recs[0].ID)
	require.True(t, recs[0].TotalAmount.Equal(decimal.NewFromInt(280)))
}

func TestHTTPGatewayListTimeoutBounded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g := NewHTTPGateway(srv.URL, staticToken("tok-1"))
	g.ListTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := g.ListByOwner(context.Background(), "u1")
	require.ErrorIs(t, err, ErrRemoteUnavailable)
	require.Less(t, time.Since(start), 5*time.Second, "list must not hang on a dead remote")
}
