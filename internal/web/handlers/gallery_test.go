package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-match/internal/embedding"
)

func TestGalleryRegister_JSON(t *testing.T) {
	env := newTestEnv(t)
	handler := NewGalleryHandler(env.store, env.provider, testDim)

	payload, _ := json.Marshal(registerRequest{Embedding: []float32{0.1, 0.2, 0.3, 0.4}})
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPost, "/api/v1/gallery/Alice", bytes.NewReader(payload)),
		map[string]string{"identityId": "Alice"})
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Register(recorder, req)
	assertStatusCode(t, recorder, http.StatusCreated)

	var resp map[string]string
	parseJSONResponse(t, recorder, &resp)
	if resp["identity_id"] != "alice" {
		t.Errorf("expected normalized id alice, got %s", resp["identity_id"])
	}

	count, err := env.store.Count(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 identity, got %d", count)
	}
}

func TestGalleryRegister_JSON_WrongDimension(t *testing.T) {
	env := newTestEnv(t)
	handler := NewGalleryHandler(env.store, env.provider, testDim)

	payload, _ := json.Marshal(registerRequest{Embedding: []float32{0.1, 0.2}})
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPost, "/api/v1/gallery/alice", bytes.NewReader(payload)),
		map[string]string{"identityId": "alice"})
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Register(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestGalleryRegister_Photo(t *testing.T) {
	env := newTestEnv(t)
	env.provider.byWidth[10] = []embedding.Face{{FaceIndex: 0, Embedding: []float32{1, 0, 0, 0}}}
	handler := NewGalleryHandler(env.store, env.provider, testDim)

	body, contentType := multipartBody(t,
		[]uploadFile{{field: "image", filename: "alice.jpg", data: makeJPEG(t, 10)}}, nil)
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPost, "/api/v1/gallery/alice", body),
		map[string]string{"identityId": "alice"})
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()

	handler.Register(recorder, req)
	assertStatusCode(t, recorder, http.StatusCreated)

	snap, err := env.store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	alice, ok := snap.Get("alice")
	if !ok || len(alice.References) != 1 {
		t.Fatalf("expected alice with 1 reference, got %+v", alice)
	}
}

func TestGalleryRegister_Photo_MultipleFaces(t *testing.T) {
	env := newTestEnv(t)
	env.provider.byWidth[10] = []embedding.Face{
		{FaceIndex: 0, Embedding: []float32{1, 0, 0, 0}},
		{FaceIndex: 1, Embedding: []float32{0, 1, 0, 0}},
	}
	handler := NewGalleryHandler(env.store, env.provider, testDim)

	body, contentType := multipartBody(t,
		[]uploadFile{{field: "image", filename: "group.jpg", data: makeJPEG(t, 10)}}, nil)
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPost, "/api/v1/gallery/alice", body),
		map[string]string{"identityId": "alice"})
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()

	handler.Register(recorder, req)
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "reference photo must contain exactly one face")
}

func TestGalleryList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, reg := range []struct {
		id  string
		ref []float32
	}{
		{"alice", []float32{1, 0, 0, 0}},
		{"bob", []float32{0, 1, 0, 0}},
		{"alice", []float32{0.9, 0, 0, 0}},
	} {
		if err := env.store.Register(ctx, reg.id, reg.ref); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	handler := NewGalleryHandler(env.store, env.provider, testDim)
	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/gallery", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Identities []identityInfo `json:"identities"`
		Count      int            `json:"count"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.Count != 2 {
		t.Fatalf("expected 2 identities, got %d", resp.Count)
	}
	if resp.Identities[0].ID != "alice" || resp.Identities[0].References != 2 {
		t.Errorf("unexpected first identity: %+v", resp.Identities[0])
	}
	if resp.Identities[1].ID != "bob" || resp.Identities[1].References != 1 {
		t.Errorf("unexpected second identity: %+v", resp.Identities[1])
	}
}

func TestGalleryRemove(t *testing.T) {
	env := newTestEnv(t)
	if err := env.store.Register(context.Background(), "alice", []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	handler := NewGalleryHandler(env.store, env.provider, testDim)
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodDelete, "/api/v1/gallery/alice", nil),
		map[string]string{"identityId": "alice"})
	recorder := httptest.NewRecorder()

	handler.Remove(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	// Second remove fails, removal is not idempotent.
	recorder = httptest.NewRecorder()
	handler.Remove(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}
