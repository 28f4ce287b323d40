package store

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// FileSystemStore keeps artifacts as flat files under one directory per
// category, the layout the original datasets use. The identifier index is
// built by a single directory scan at open and maintained on every write, so
// queries never touch the filesystem for existence checks.
type FileSystemStore struct {
	root   string
	logger *logger.Logger

	mu    sync.RWMutex
	index map[Category]map[string]struct{}
}

// NewFileSystemStore opens (creating if needed) a store rooted at the given
// directory.
func NewFileSystemStore(root string, logger *logger.Logger) (*FileSystemStore, error) {
	s := &FileSystemStore{
		root:   root,
		logger: logger,
		index:  make(map[Category]map[string]struct{}),
	}

	for _, category := range AllCategories {
		dir := s.categoryDir(category)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err,
				"failed to create category directory %s", dir)
		}

		ids := make(map[string]struct{})

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err,
				"failed to scan category directory %s", dir)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			if _, err := types.ParseArtifactID(entry.Name()); err != nil {
				// Legacy files with unparsable timestamps stay listable,
				// sorted first as 0.
				logger.Warn("Artifact identifier has unparsable timestamp",
					zap.String("category", string(category)),
					zap.String("id", entry.Name()),
				)
			}

			ids[entry.Name()] = struct{}{}
		}

		s.index[category] = ids
	}

	return s, nil
}

func (s *FileSystemStore) categoryDir(category Category) string {
	return filepath.Join(s.root, string(category))
}

// List implements ArtifactStore.
func (s *FileSystemStore) List(category Category) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.index[category]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown category %q", category)
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}

	return types.SortIdentifiers(out), nil
}

// Has implements ArtifactStore.
func (s *FileSystemStore) Has(category Category, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.index[category]
	if !ok {
		return false, errors.Newf(errors.ErrCodeInvalidParameter, "unknown category %q", category)
	}

	_, exists := ids[id]

	return exists, nil
}

// Read implements ArtifactStore.
func (s *FileSystemStore) Read(category Category, id string) (*types.Artifact, error) {
	data, err := s.ReadRaw(category, id)
	if err != nil {
		return nil, err
	}

	return decodeCSV(data)
}

// ReadRaw implements ArtifactStore.
func (s *FileSystemStore) ReadRaw(category Category, id string) ([]byte, error) {
	exists, err := s.Has(category, id)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, errors.Newf(errors.ErrCodeArtifactNotFound, "artifact %s not found in %s", id, category)
	}

	data, err := os.ReadFile(filepath.Join(s.categoryDir(category), id))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreReadFailed, err, "failed to read artifact %s", id)
	}

	return data, nil
}

// Write implements ArtifactStore.
func (s *FileSystemStore) Write(category Category, id string, artifact *types.Artifact) error {
	var buf bytes.Buffer
	if err := encodeCSV(&buf, artifact); err != nil {
		return err
	}

	return s.WriteRaw(category, id, buf.Bytes())
}

// WriteRaw implements ArtifactStore. The file is staged with a temporary name
// and renamed into place, so readers never observe a partial artifact.
func (s *FileSystemStore) WriteRaw(category Category, id string, data []byte) error {
	if _, err := types.ParseArtifactID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.index[category]
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown category %q", category)
	}

	if _, exists := ids[id]; exists {
		return errors.Newf(errors.ErrCodeArtifactExists, "artifact %s already exists in %s", id, category)
	}

	dir := s.categoryDir(category)

	tmp, err := os.CreateTemp(dir, "."+id+".tmp-*")
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to stage artifact %s", id)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to stage artifact %s", id)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to stage artifact %s", id)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, id)); err != nil {
		os.Remove(tmpName)

		return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to publish artifact %s", id)
	}

	ids[id] = struct{}{}

	s.logger.Debug("Artifact written",
		zap.String("category", string(category)),
		zap.String("id", id),
		zap.Int("bytes", len(data)),
	)

	return nil
}

// Close implements ArtifactStore.
func (s *FileSystemStore) Close() error {
	return nil
}
