package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/face-match/internal/pipeline"
)

// FilesystemStore keeps result groups as JSON documents under a data
// directory, one file per (namespace, imageID). Writes go through a temp
// file and rename, so readers never observe a partially written record.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates a store rooted at dataDir, creating the
// directory if needed.
func NewFilesystemStore(dataDir string) (*FilesystemStore, error) {
	if dataDir == "" {
		return nil, errors.New("data directory must not be empty")
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FilesystemStore{root: dataDir}, nil
}

// Persist writes the result group for one image, replacing any previous
// record for the same key.
func (s *FilesystemStore) Persist(_ context.Context, namespace, imageID string, results []pipeline.Result) error {
	path, err := s.recordPath(namespace, imageID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".result-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to finalize results file: %w", err)
	}
	return nil
}

// Load retrieves the result group for one image. Loading is idempotent;
// repeated loads return the same data.
func (s *FilesystemStore) Load(_ context.Context, namespace, imageID string) ([]pipeline.Result, error) {
	path, err := s.recordPath(namespace, imageID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	var results []pipeline.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results file %s: %w", filepath.Base(path), err)
	}
	return results, nil
}

// List returns all image keys recorded under a namespace, sorted.
func (s *FilesystemStore) List(_ context.Context, namespace string) ([]string, error) {
	nsDir, err := s.namespacePath(namespace)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = filepath.WalkDir(nsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(nsDir, path)
		if err != nil {
			return err
		}
		keys = append(keys, strings.TrimSuffix(filepath.ToSlash(rel), ".json"))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list namespace %s: %w", namespace, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Delete removes the record for one image. Deleting a missing record
// returns ErrNotFound.
func (s *FilesystemStore) Delete(_ context.Context, namespace, imageID string) error {
	path, err := s.recordPath(namespace, imageID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete results: %w", err)
	}
	return nil
}

// namespacePath validates a namespace and returns its directory.
func (s *FilesystemStore) namespacePath(namespace string) (string, error) {
	if namespace == "" || strings.ContainsAny(namespace, "/\\") || namespace == "." || namespace == ".." {
		return "", fmt.Errorf("invalid namespace %q", namespace)
	}
	return filepath.Join(s.root, namespace), nil
}

// recordPath maps (namespace, imageID) to a file path. Image ids may hold
// "/" separators (bulk keys are jobID/imageID) but never traversal
// segments.
func (s *FilesystemStore) recordPath(namespace, imageID string) (string, error) {
	nsDir, err := s.namespacePath(namespace)
	if err != nil {
		return "", err
	}
	if imageID == "" {
		return "", errors.New("image id must not be empty")
	}
	for _, segment := range strings.Split(imageID, "/") {
		if segment == "" || segment == "." || segment == ".." || strings.ContainsAny(segment, "\\") {
			return "", fmt.Errorf("invalid image id %q", imageID)
		}
	}
	return filepath.Join(nsDir, filepath.FromSlash(imageID)+".json"), nil
}
