// Package pipeline orchestrates face recognition over single images and
// bulk submissions: detection, matching, and per-image result management.
package pipeline

// Status is the terminal state of one (image, face) recognition attempt.
type Status string

// Status values. NoFaceDetected is a valid outcome, not an error.
const (
	StatusMatched         Status = "matched"
	StatusNoMatch         Status = "no_match"
	StatusNoFaceDetected  Status = "no_face_detected"
	StatusProcessingError Status = "processing_error"
)

// Result is the outcome for one detected face within an image. Matched
// results carry the identity and its distance; every other status carries
// an empty identity. Distance is retained on no_match so callers can see
// how close the nearest miss was.
type Result struct {
	ImageID    string    `json:"image_id"`
	FaceIndex  int       `json:"face_index"`
	BBox       []float64 `json:"bbox,omitempty"` // [x1, y1, x2, y2] in pixels
	IdentityID string    `json:"identity_id,omitempty"`
	Distance   float64   `json:"distance,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Group is the ordered result set for one source image. An image always
// produces at least one result, even when it fails or holds no faces.
type Group struct {
	ImageID string   `json:"image_id"`
	Name    string   `json:"name,omitempty"`
	Results []Result `json:"results"`
}

// errorGroup builds the single-result group recorded for an image that
// failed before face detection could run.
func errorGroup(imageID, name, msg string) Group {
	return Group{
		ImageID: imageID,
		Name:    name,
		Results: []Result{{
			ImageID: imageID,
			Status:  StatusProcessingError,
			Error:   msg,
		}},
	}
}
