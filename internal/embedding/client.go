// Package embedding talks to the external embedding server that detects
// faces and maps each face region to a fixed-length vector. The server is
// treated as a pretrained black box; this package only moves bytes.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const defaultServerURL = "http://localhost:8000"

// Face represents a single detected face with its embedding
type Face struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels
	DetScore  float64   `json:"det_score"`
}

// DetectResponse represents the response from the face detection endpoint
type DetectResponse struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// Provider detects faces in an image and returns one embedding per face.
// Implementations may block on network or native inference; all methods
// honor the passed context.
type Provider interface {
	DetectFaces(ctx context.Context, imageData []byte) ([]Face, error)
}

// Client is an HTTP Provider backed by the embedding server
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a new embedding server client
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultServerURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

// postMultipartImage constructs a multipart form with the image data and posts
// it to the given endpoint. The part carries an explicit Content-Type header
// based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectFaces detects faces in the image and computes their embeddings.
// An image with no faces is not an error: it returns an empty slice.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var detectResp DetectResponse
	if err := json.Unmarshal(body, &detectResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if detectResp.FacesCount != len(detectResp.Faces) {
		return nil, errors.New("faces_count does not match returned faces")
	}

	return detectResp.Faces, nil
}

// Model returns the model name being used
func (c *Client) Model() string {
	return c.model
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// BMP: 42 4D
	if data[0] == 0x42 && data[1] == 0x4D {
		return "image/bmp"
	}
	return "application/octet-stream"
}
