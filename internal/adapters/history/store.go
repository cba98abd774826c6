// Package history persists benchmark sessions so they can be analyzed later.
package history

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

const sessionExt = ".json"

// Store implements ports.SessionStore using a file-per-session strategy.
type Store struct{}

// NewStore creates a new session store.
func NewStore() *Store {
	return &Store{}
}

// Put stores the session under root's history directory, keyed by its id.
func (s *Store) Put(root string, session *domain.Session) error {
	if session.ID == "" {
		return zerr.Wrap(domain.ErrStoreWriteFailed, "session has no id")
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	dir := filepath.Join(root, domain.DefaultHistoryPath())
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	filename := filepath.Join(dir, session.ID+sessionExt)
	if err := os.WriteFile(filename, data, domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}

	return nil
}

// Get retrieves a session by id, or by path to a session file.
func (s *Store) Get(root, ref string) (*domain.Session, error) {
	filename := ref
	if !strings.HasSuffix(ref, sessionExt) {
		filename = filepath.Join(root, domain.DefaultHistoryPath(), ref+sessionExt)
	}
	return readSession(filename)
}

// Latest returns the session with the most recent creation time.
func (s *Store) Latest(root string) (*domain.Session, error) {
	dir := filepath.Join(root, domain.DefaultHistoryPath())
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var latest *domain.Session
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != sessionExt {
			continue
		}
		session, err := readSession(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
		}
	}

	if latest == nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrSessionNotFound, "history is empty"), "dir", dir)
	}
	return latest, nil
}

func readSession(filename string) (*domain.Session, error) {
	//nolint:gosec // Path is either user supplied on purpose or built from the history directory
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrSessionNotFound, "no such session"), "path", filename)
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "path", filename)
	}

	return &session, nil
}
