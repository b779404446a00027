package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/face-match/internal/constants"
	"github.com/kozaktomas/face-match/internal/embedding"
	"github.com/kozaktomas/face-match/internal/gallery"
	"github.com/kozaktomas/face-match/internal/matcher"
)

// ErrUnreadableImage is returned when image bytes cannot be decoded.
var ErrUnreadableImage = errors.New("unreadable image")

// Single runs detection, embedding, and matching for one image
// synchronously. It is safe for concurrent use across requests.
type Single struct {
	provider embedding.Provider
	store    gallery.Store
	matcher  *matcher.Matcher
	maxSize  int
}

// NewSingle creates a single-image pipeline.
func NewSingle(provider embedding.Provider, store gallery.Store, m *matcher.Matcher) *Single {
	return &Single{
		provider: provider,
		store:    store,
		matcher:  m,
		maxSize:  constants.MaxImageSize,
	}
}

// Process recognizes all faces in one image. It returns after every
// detected face has been resolved; a bad embedding on one face isolates to
// that face only. Decode failures return ErrUnreadableImage; detection
// failures return the provider error. Both leave result handling to the
// caller.
func (p *Single) Process(ctx context.Context, imageID string, data []byte) ([]Result, error) {
	normalized, err := embedding.Normalize(data, p.maxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	faces, err := p.provider.DetectFaces(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	if len(faces) == 0 {
		return []Result{{
			ImageID: imageID,
			Status:  StatusNoFaceDetected,
		}}, nil
	}

	snap, err := p.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("gallery snapshot failed: %w", err)
	}

	results := make([]Result, 0, len(faces))
	for i, face := range faces {
		results = append(results, p.matchFace(snap, imageID, i, face))
	}
	return results, nil
}

// matchFace resolves one detected face to a result. Embedding problems on
// this face do not abort processing of sibling faces.
func (p *Single) matchFace(snap *gallery.Snapshot, imageID string, index int, face embedding.Face) Result {
	result := Result{
		ImageID:   imageID,
		FaceIndex: index,
		BBox:      face.BBox,
	}

	if len(face.Embedding) != snap.Dim() {
		result.Status = StatusProcessingError
		result.Error = fmt.Sprintf("embedding dimension mismatch: got %d, want %d", len(face.Embedding), snap.Dim())
		return result
	}

	match := p.matcher.Match(face.Embedding, snap)
	if !math.IsInf(match.Distance, 1) {
		result.Distance = match.Distance
	}
	if match.Matched {
		result.Status = StatusMatched
		result.IdentityID = match.IdentityID
		result.Confidence = matcher.Confidence(match.Distance)
	} else {
		result.Status = StatusNoMatch
	}
	return result
}
