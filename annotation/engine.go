// Package annotation keeps the user-drawn overlay shapes of a chart: creation,
// partial updates, per-vertex hit-testing and a portable serialized form.
package annotation

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"dag-console/apperr"
	"dag-console/logger"
	"dag-console/models"
)

// DefaultStyle is applied when Add receives a zero Style.
var DefaultStyle = models.Style{Color: "#2962ff", StrokeWidth: 2, Opacity: 1}

// Persister stores the serialized annotation set.
type Persister interface {
	Save(set string, data []byte) error
	Load(set string) ([]byte, error)
	Discard(set string) error
}

// Patch carries the fields of a partial update. Nil fields are left unchanged.
type Patch struct {
	Points      []models.Point `json:"points,omitempty"`
	Text        *string        `json:"text,omitempty"`
	Color       *string        `json:"color,omitempty"`
	StrokeWidth *float64       `json:"stroke_width,omitempty"`
	Opacity     *float64       `json:"opacity,omitempty"`
}

// Engine holds the annotation set in insertion order.
type Engine struct {
	mu      sync.RWMutex
	items   []models.Annotation
	now     func() time.Time
	entropy io.Reader

	store Persister
	set   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for creation timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPersister saves the set under name after every successful mutation.
func WithPersister(p Persister, name string) Option {
	return func(e *Engine) {
		e.store = p
		e.set = name
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add validates and inserts a new annotation.
func (e *Engine) Add(kind Kind, points []models.Point, style models.Style, text string) (models.Annotation, error) {
	if style == (models.Style{}) {
		style = DefaultStyle
	}
	if style.Color == "" {
		style.Color = DefaultStyle.Color
	}
	if style.StrokeWidth <= 0 {
		style.StrokeWidth = DefaultStyle.StrokeWidth
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	a := models.Annotation{
		Kind:      string(kind),
		Points:    append([]models.Point(nil), points...),
		Text:      text,
		Style:     style,
		CreatedAt: now,
	}
	if err := validate(a); err != nil {
		return models.Annotation{}, err
	}
	a.ID = ulid.MustNew(ulid.Timestamp(now), e.entropy).String()

	e.items = append(e.items, a)
	e.persistLocked()
	return clone(a), nil
}

// Update merges patch into the annotation with the given id.
func (e *Engine) Update(id string, patch Patch) (models.Annotation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return models.Annotation{}, apperr.NewNotFound("annotation", id)
	}

	a := clone(e.items[i])
	if patch.Points != nil {
		want := Kind(a.Kind).PointCount()
		if len(patch.Points) != want {
			return models.Annotation{}, apperr.NewInvalidPointCount(a.Kind, want, len(patch.Points))
		}
		a.Points = append([]models.Point(nil), patch.Points...)
	}
	if patch.Text != nil {
		a.Text = *patch.Text
	}
	if patch.Color != nil {
		a.Style.Color = *patch.Color
	}
	if patch.StrokeWidth != nil {
		a.Style.StrokeWidth = *patch.StrokeWidth
	}
	if patch.Opacity != nil {
		a.Style.Opacity = *patch.Opacity
	}
	if err := validate(a); err != nil {
		return models.Annotation{}, err
	}

	e.items[i] = a
	e.persistLocked()
	return clone(a), nil
}

func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return apperr.NewNotFound("annotation", id)
	}
	e.items = append(e.items[:i:i], e.items[i+1:]...)
	e.persistLocked()
	return nil
}

// ClearAll empties the set. There is no undo.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = nil
	e.persistLocked()
}

// Get returns a copy of one annotation.
func (e *Engine) Get(id string) (models.Annotation, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	i := e.indexLocked(id)
	if i < 0 {
		return models.Annotation{}, apperr.NewNotFound("annotation", id)
	}
	return clone(e.items[i]), nil
}

// List returns a copy of the set in insertion order.
func (e *Engine) List() []models.Annotation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.Annotation, len(e.items))
	for i, a := range e.items {
		out[i] = clone(a)
	}
	return out
}

func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// HitTest returns the first annotation, in insertion order, within tol of pos.
func (e *Engine) HitTest(pos models.Point, tol float64) (models.Annotation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, a := range e.items {
		s, ok := shapeOf(Kind(a.Kind))
		if !ok {
			continue
		}
		if s.hit(a.Points, pos, tol) {
			return clone(a), true
		}
	}
	return models.Annotation{}, false
}

// Save writes the current set through the persister and reports failures.
// Mutations already persist on their own; Save is for explicit flushes.
func (e *Engine) Save() error {
	if e.store == nil {
		return nil
	}
	e.mu.RLock()
	data, err := encode(e.items)
	e.mu.RUnlock()
	if err != nil {
		return apperr.NewInternal(err)
	}
	return e.store.Save(e.set, data)
}

// Load replaces the set with the persisted one. A missing set leaves the engine
// empty; a corrupted blob is discarded and the engine starts empty.
func (e *Engine) Load() error {
	if e.store == nil {
		return nil
	}
	data, err := e.store.Load(e.set)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	if err := e.Deserialize(data); err != nil {
		logger.Logger.Warn("Discarding corrupted annotation set",
			zap.String("set", e.set), zap.Error(err))
		if derr := e.store.Discard(e.set); derr != nil {
			logger.Logger.Warn("Failed discarding annotation set", zap.String("set", e.set), zap.Error(derr))
		}
		e.mu.Lock()
		e.items = nil
		e.mu.Unlock()
	}
	return nil
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.items {
		if e.items[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the set through the persister. The in-memory set stays
// authoritative when the write fails.
func (e *Engine) persistLocked() {
	if e.store == nil {
		return
	}
	data, err := encode(e.items)
	if err == nil {
		err = e.store.Save(e.set, data)
	}
	if err != nil {
		logger.Logger.Error("Failed persisting annotations", zap.String("set", e.set), zap.Error(err))
	}
}

func validate(a models.Annotation) error {
	kind := Kind(a.Kind)
	s, ok := shapeOf(kind)
	if !ok {
		return apperr.NewValidation("unknown annotation kind: " + a.Kind)
	}
	if len(a.Points) != s.pointCount() {
		return apperr.NewInvalidPointCount(a.Kind, s.pointCount(), len(a.Points))
	}
	if s.needsText() && strings.TrimSpace(a.Text) == "" {
		return apperr.NewValidation(a.Kind + " requires text")
	}
	if a.Style.Opacity < 0 || a.Style.Opacity > 1 {
		return apperr.NewValidation("opacity must be within [0,1]")
	}
	return nil
}

func clone(a models.Annotation) models.Annotation {
	a.Points = append([]models.Point(nil), a.Points...)
	return a
}
