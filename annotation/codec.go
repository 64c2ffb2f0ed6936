package annotation

import (
	"encoding/json"
	"fmt"

	"dag-console/apperr"
	"dag-console/models"
)

const formatVersion = 1

type document struct {
	Version     int                 `json:"version"`
	Annotations []models.Annotation `json:"annotations"`
}

// Serialize encodes the whole set as versioned JSON.
func (e *Engine) Serialize() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return encode(e.items)
}

// Deserialize replaces the whole set with the decoded data. On any failure the
// current set is left untouched.
func (e *Engine) Deserialize(data []byte) error {
	items, err := decode(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = items
	e.persistLocked()
	return nil
}

func encode(items []models.Annotation) ([]byte, error) {
	doc := document{Version: formatVersion, Annotations: items}
	if doc.Annotations == nil {
		doc.Annotations = []models.Annotation{}
	}
	return json.Marshal(doc)
}

func decode(data []byte) ([]models.Annotation, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.NewMalformedData("annotation data is not valid JSON").WithCause(err)
	}
	if doc.Version != formatVersion {
		return nil, apperr.NewMalformedData(fmt.Sprintf("unsupported annotation format version %d", doc.Version))
	}

	seen := make(map[string]bool, len(doc.Annotations))
	items := make([]models.Annotation, 0, len(doc.Annotations))
	for i, a := range doc.Annotations {
		if a.ID == "" {
			return nil, apperr.NewMalformedData(fmt.Sprintf("annotation %d has no id", i))
		}
		if seen[a.ID] {
			return nil, apperr.NewMalformedData("duplicate annotation id " + a.ID)
		}
		seen[a.ID] = true
		if err := validate(a); err != nil {
			return nil, apperr.NewMalformedData(fmt.Sprintf("annotation %s: %v", a.ID, err)).WithCause(err)
		}
		items = append(items, clone(a))
	}
	return items, nil
}
