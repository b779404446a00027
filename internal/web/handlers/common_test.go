package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string]string
	parseJSONResponse(t, recorder, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestIsAllowedImage(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"photo.png", true},
		{"photo.gif", false},
		{"photo.bmp", true},
		{"archive.zip", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := isAllowedImage(tt.filename); got != tt.want {
			t.Errorf("isAllowedImage(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("line1\nline2\rend"); got != "line1line2end" {
		t.Errorf("unexpected sanitized value: %q", got)
	}
}
