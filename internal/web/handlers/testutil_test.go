package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-match/internal/embedding"
	"github.com/kozaktomas/face-match/internal/gallery"
	"github.com/kozaktomas/face-match/internal/matcher"
	"github.com/kozaktomas/face-match/internal/pipeline"
	"github.com/kozaktomas/face-match/internal/results"
)

const testDim = 4

// makeJPEG encodes a solid-color JPEG of the given width. The width acts
// as an image fingerprint the fake provider keys canned responses on.
func makeJPEG(t *testing.T, width int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 90, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// fakeProvider keys canned detection responses on decoded image width.
type fakeProvider struct {
	mu      sync.Mutex
	byWidth map[int][]embedding.Face
	err     error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{byWidth: make(map[int][]embedding.Face)}
}

func (f *fakeProvider) DetectFaces(ctx context.Context, imageData []byte) ([]embedding.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, err
	}
	return f.byWidth[cfg.Width], nil
}

// testEnv bundles the service components handler tests exercise.
type testEnv struct {
	provider *fakeProvider
	store    *gallery.MemoryStore
	results  *results.FilesystemStore
	single   *pipeline.Single
	bulk     *pipeline.Bulk
	jobs     *pipeline.JobManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	provider := newFakeProvider()
	store := gallery.NewMemoryStore(testDim)

	resultStore, err := results.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create result store: %v", err)
	}

	single := pipeline.NewSingle(provider, store, matcher.New(0.4))
	jobs := pipeline.NewJobManager()
	bulk := pipeline.NewBulk(single, resultStore, jobs, 2)

	return &testEnv{
		provider: provider,
		store:    store,
		results:  resultStore,
		single:   single,
		bulk:     bulk,
		jobs:     jobs,
	}
}

// multipartBody builds a multipart body with image files and form values.
type uploadFile struct {
	field    string
	filename string
	data     []byte
}

func multipartBody(t *testing.T, files []uploadFile, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	for key, value := range values {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
