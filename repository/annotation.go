package repository

import (
	"errors"
)

const annotationPrefix = "annotations:"

// AnnotationRepository stores serialized annotation sets by name.
type AnnotationRepository struct {
	store Store
}

func NewAnnotationRepository(store Store) *AnnotationRepository {
	return &AnnotationRepository{store: store}
}

// Save stores the serialized set.
func (r *AnnotationRepository) Save(set string, data []byte) error {
	return r.store.Set(annotationPrefix+set, data)
}

// Load returns the serialized set, or nil when the set was never saved.
func (r *AnnotationRepository) Load(set string) ([]byte, error) {
	data, err := r.store.Get(annotationPrefix + set)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// Discard removes a stored set.
func (r *AnnotationRepository) Discard(set string) error {
	return r.store.Delete(annotationPrefix + set)
}
