package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchspy/internal/domain"
)

func TestHTTPAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":{"code":"SESSION_EXPIRED","message":"session expired"}}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{"player":{"id":"bob","name":"bob","isAdmin":false,"joinedAt":1},"roomCode":"ABCDEF","expiresAt":2}}`))
	})
	mux.HandleFunc("GET /api/rooms/{code}/state", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": lobbySnapshot(3, "ann", "bob")})
	})
	mux.HandleFunc("POST /api/room/leave-game", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"error":{"code":"NOT_IN_ROUND","message":"nope"}}`))
	})
	mux.HandleFunc("POST /api/rooms/{code}/join", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bob", body["name"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"data":{"player":{"id":"bob","name":"bob","isAdmin":false,"joinedAt":1},"roomCode":"` + r.PathValue("code") + `","sessionToken":"good","expiresAt":2}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	api := NewHTTPAPI(srv.URL+"/", srv.Client())

	joined, err := api.Join(ctx, "ABCDEF", "bob", "")
	require.NoError(t, err)
	assert.Equal(t, "good", joined.SessionToken)
	assert.Equal(t, "ABCDEF", joined.RoomCode)

	me, err := api.Me(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "bob", me.Player.ID)

	_, err = api.Me(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	snap, err := api.Snapshot(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Seq)
	assert.Len(t, snap.Players, 2)

	assert.ErrorIs(t, api.LeaveGame(ctx, "good"), domain.ErrNotInRound)
}
