package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wfunc/gombiful/session"
	"github.com/wfunc/gombiful/store"
)

func TestRemoteStoreGet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rooms/ABCD-EFGH":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"session":{"roomCode":"ABCD-EFGH","status":"lobby","djId":"dj","players":{"p1":{"name":"Ann","timeline":[],"placementIndex":null}}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	rs := &remoteStore{base: ts.URL, client: ts.Client()}
	ctx := context.Background()

	doc, err := rs.Get(ctx, "ABCD-EFGH")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := doc.Players["p1"]; !ok {
		t.Errorf("players = %+v", doc.Players)
	}
	if _, err := rs.Get(ctx, "ZZZZ-ZZZZ"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing room err = %v", err)
	}
	if err := rs.Delete(ctx, "ABCD-EFGH"); !errors.Is(err, errReadOnly) {
		t.Errorf("Delete err = %v", err)
	}

	// the resumer discards a cached seat once the room is gone
	cache := &session.MemoryCache{}
	r := session.NewResumer(cache, rs, time.Hour)
	if err := r.Remember(session.RolePlayer, "ZZZZ-ZZZZ", "p1", "Ann"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resume(ctx); !errors.Is(err, session.ErrSessionGone) {
		t.Errorf("Resume err = %v", err)
	}
	if err := r.Remember(session.RolePlayer, "ABCD-EFGH", "p1", "Ann"); err != nil {
		t.Fatal(err)
	}
	if id, err := r.Resume(ctx); err != nil || id.PlayerID != "p1" {
		t.Errorf("Resume = %+v, %v", id, err)
	}
}
