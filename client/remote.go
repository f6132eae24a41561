package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/store"
)

var errReadOnly = errors.New("remote store is read-only")

// remoteStore reads session documents from the server's /rooms endpoint so
// the resumer can check a cached identity before reconnecting.
type remoteStore struct {
	base   string
	client *http.Client
}

func (r *remoteStore) Get(ctx context.Context, code string) (*models.GameSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(r.base, "/")+"/rooms/"+code, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, store.ErrNotFound
	default:
		return nil, fmt.Errorf("GET /rooms/%s: %s", code, resp.Status)
	}
	var body struct {
		Session *models.GameSession `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Session == nil {
		return nil, store.ErrNotFound
	}
	return body.Session, nil
}

func (r *remoteStore) Create(context.Context, *models.GameSession) error { return errReadOnly }

func (r *remoteStore) Update(context.Context, string, store.Patch) error { return errReadOnly }

func (r *remoteStore) Delete(context.Context, string) error { return errReadOnly }

func (r *remoteStore) Subscribe(context.Context, string) (<-chan store.Snapshot, error) {
	return nil, errReadOnly
}
