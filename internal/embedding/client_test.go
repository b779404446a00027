package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeDetectServer serves a canned /embed/face response
func fakeDetectServer(t *testing.T, resp DetectResponse, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/embed/face", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("server could not parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	})
	return httptest.NewServer(mux)
}

func TestDetectFaces(t *testing.T) {
	resp := DetectResponse{
		FacesCount: 2,
		Model:      "dlib",
		Faces: []Face{
			{FaceIndex: 0, Dim: 4, Embedding: []float32{1, 2, 3, 4}, BBox: []float64{10, 10, 50, 50}, DetScore: 0.99},
			{FaceIndex: 1, Dim: 4, Embedding: []float32{5, 6, 7, 8}, BBox: []float64{60, 10, 90, 50}, DetScore: 0.87},
		},
	}
	server := fakeDetectServer(t, resp, http.StatusOK)
	defer server.Close()

	client := NewClient(server.URL, "dlib")
	faces, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}

	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	if faces[0].Embedding[0] != 1 || faces[1].Embedding[0] != 5 {
		t.Error("embeddings not preserved")
	}
	if faces[1].DetScore != 0.87 {
		t.Errorf("det score not preserved: %v", faces[1].DetScore)
	}
}

func TestDetectFaces_NoFaces(t *testing.T) {
	server := fakeDetectServer(t, DetectResponse{FacesCount: 0, Faces: nil, Model: "dlib"}, http.StatusOK)
	defer server.Close()

	client := NewClient(server.URL, "dlib")
	faces, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("expected no faces, got %d", len(faces))
	}
}

func TestDetectFaces_ServerError(t *testing.T) {
	server := fakeDetectServer(t, DetectResponse{}, http.StatusInternalServerError)
	defer server.Close()

	client := NewClient(server.URL, "dlib")
	_, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0})
	if err == nil {
		t.Fatal("expected error for server failure")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error should carry status code, got: %v", err)
	}
}

func TestDetectFaces_CountMismatch(t *testing.T) {
	resp := DetectResponse{
		FacesCount: 3,
		Faces:      []Face{{FaceIndex: 0, Embedding: []float32{1}}},
	}
	server := fakeDetectServer(t, resp, http.StatusOK)
	defer server.Close()

	client := NewClient(server.URL, "dlib")
	if _, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}); err == nil {
		t.Error("expected error for faces_count mismatch")
	}
}

func TestDetectFaces_ContextCancelled(t *testing.T) {
	server := fakeDetectServer(t, DetectResponse{}, http.StatusOK)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, "dlib")
	if _, err := client.DetectFaces(ctx, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestNewClient_DefaultURL(t *testing.T) {
	client := NewClient("", "dlib")
	if client.baseURL != defaultServerURL {
		t.Errorf("expected default URL, got %q", client.baseURL)
	}
	if client.Model() != "dlib" {
		t.Errorf("expected model dlib, got %q", client.Model())
	}
}
