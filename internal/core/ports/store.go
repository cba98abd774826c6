package ports

import "go.trai.ch/oxidizer/internal/core/domain"

// SessionStore persists completed benchmark sessions.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type SessionStore interface {
	// Put stores the session under root.
	Put(root string, session *domain.Session) error

	// Get retrieves a session by id, or by path to a session file.
	// It returns an error wrapping domain.ErrSessionNotFound if none exists.
	Get(root, ref string) (*domain.Session, error)

	// Latest returns the most recent session under root.
	Latest(root string) (*domain.Session, error)
}
