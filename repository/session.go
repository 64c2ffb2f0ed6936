package repository

import (
	"encoding/json"
	"errors"

	"dag-console/apperr"
	"dag-console/models"
)

const sessionKey = "session:current"

// SessionRepository persists the single active session.
type SessionRepository struct {
	store Store
}

func NewSessionRepository(store Store) *SessionRepository {
	return &SessionRepository{store: store}
}

// Save stores the session.
func (r *SessionRepository) Save(s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.store.Set(sessionKey, data)
}

// Load returns the stored session, or nil when none is stored.
// A blob that does not decode yields a MALFORMED_DATA error.
func (r *SessionRepository) Load() (*models.Session, error) {
	data, err := r.store.Get(sessionKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperr.NewMalformedData("stored session is corrupted").WithCause(err)
	}
	return &s, nil
}

// Clear removes the stored session.
func (r *SessionRepository) Clear() error {
	return r.store.Delete(sessionKey)
}
