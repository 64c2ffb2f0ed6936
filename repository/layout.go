package repository

import (
	"encoding/json"
	"errors"

	"dag-console/apperr"
	"dag-console/models"
)

const layoutPrefix = "layout:"

// LayoutRepository persists dashboard layouts per user.
type LayoutRepository struct {
	store Store
}

func NewLayoutRepository(store Store) *LayoutRepository {
	return &LayoutRepository{store: store}
}

// Put stores the layout under its user id.
func (r *LayoutRepository) Put(l *models.Layout) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return r.store.Set(layoutPrefix+l.UserID, data)
}

// Get returns the user's layout, or nil when none is stored.
func (r *LayoutRepository) Get(userID string) (*models.Layout, error) {
	data, err := r.store.Get(layoutPrefix + userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var l models.Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, apperr.NewMalformedData("stored layout is corrupted").WithCause(err)
	}
	return &l, nil
}

// Delete removes the user's layout.
func (r *LayoutRepository) Delete(userID string) error {
	return r.store.Delete(layoutPrefix + userID)
}
