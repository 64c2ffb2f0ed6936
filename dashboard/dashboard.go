// Package dashboard arranges the widgets a user sees on the landing screen.
package dashboard

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"dag-console/apperr"
	"dag-console/logger"
	"dag-console/models"
)

// Widget types the surface knows how to render.
const (
	WidgetDAG        = "dag"
	WidgetStats      = "dag-stats"
	WidgetTips       = "tips"
	WidgetWallet     = "wallet"
	WidgetTrading    = "trading"
	WidgetNetwork    = "network"
	WidgetValidators = "validators"
	WidgetCompliance = "compliance"
)

var widgetTypes = map[string]bool{
	WidgetDAG: true, WidgetStats: true, WidgetTips: true, WidgetWallet: true,
	WidgetTrading: true, WidgetNetwork: true, WidgetValidators: true, WidgetCompliance: true,
}

var defaults = map[models.Role][]models.Widget{
	models.RoleAdmin: {
		{ID: "dag", Type: WidgetDAG, X: 0, Y: 0, W: 8, H: 6},
		{ID: "stats", Type: WidgetStats, X: 8, Y: 0, W: 4, H: 3},
		{ID: "network", Type: WidgetNetwork, X: 8, Y: 3, W: 4, H: 3},
		{ID: "compliance", Type: WidgetCompliance, X: 0, Y: 6, W: 12, H: 4},
	},
	models.RoleValidator: {
		{ID: "dag", Type: WidgetDAG, X: 0, Y: 0, W: 8, H: 6},
		{ID: "validators", Type: WidgetValidators, X: 8, Y: 0, W: 4, H: 6},
		{ID: "tips", Type: WidgetTips, X: 0, Y: 6, W: 12, H: 3},
	},
	models.RoleUser: {
		{ID: "wallet", Type: WidgetWallet, X: 0, Y: 0, W: 6, H: 4},
		{ID: "trading", Type: WidgetTrading, X: 6, Y: 0, W: 6, H: 4},
		{ID: "dag", Type: WidgetDAG, X: 0, Y: 4, W: 12, H: 5},
	},
}

// LayoutStore persists layouts per user.
type LayoutStore interface {
	Put(l *models.Layout) error
	Get(userID string) (*models.Layout, error)
	Delete(userID string) error
}

type Service struct {
	store LayoutStore
	now   func() time.Time
}

func NewService(store LayoutStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Get returns the stored layout, or the role's default when nothing usable is stored.
func (s *Service) Get(userID string, role models.Role) (models.Layout, error) {
	if userID == "" {
		return models.Layout{}, apperr.NewValidation("user id is required")
	}
	l, err := s.store.Get(userID)
	if apperr.Is(err, apperr.CodeMalformedData) {
		logger.Logger.Warn("Discarding stored layout", zap.String("user_id", userID), zap.Error(err))
		if derr := s.store.Delete(userID); derr != nil {
			logger.Logger.Warn("Failed deleting layout", zap.String("user_id", userID), zap.Error(derr))
		}
		l, err = nil, nil
	}
	if err != nil {
		return models.Layout{}, apperr.From(err)
	}
	if l != nil {
		return *l, nil
	}
	return Default(userID, role), nil
}

// Default is the layout a role starts with.
func Default(userID string, role models.Role) models.Layout {
	w, ok := defaults[role]
	if !ok {
		w = defaults[models.RoleUser]
	}
	return models.Layout{UserID: userID, Widgets: append([]models.Widget(nil), w...)}
}

// Save validates and stores l, stamping UpdatedAt.
func (s *Service) Save(l models.Layout) (models.Layout, error) {
	if err := Validate(l); err != nil {
		return models.Layout{}, err
	}
	l.Widgets = append([]models.Widget(nil), l.Widgets...)
	l.UpdatedAt = s.now().UTC()
	if err := s.store.Put(&l); err != nil {
		return models.Layout{}, apperr.NewInternal(err)
	}
	logger.Logger.Info("Layout saved", zap.String("user_id", l.UserID), zap.Int("widgets", len(l.Widgets)))
	return l, nil
}

// Reset drops the stored layout so the default applies again.
func (s *Service) Reset(userID string) error {
	if userID == "" {
		return apperr.NewValidation("user id is required")
	}
	if err := s.store.Delete(userID); err != nil {
		return apperr.NewInternal(err)
	}
	return nil
}

func Validate(l models.Layout) error {
	if l.UserID == "" {
		return apperr.NewValidation("user id is required")
	}
	seen := make(map[string]bool, len(l.Widgets))
	for i, w := range l.Widgets {
		switch {
		case w.ID == "":
			return apperr.NewValidation(fmt.Sprintf("widget %d has no id", i))
		case seen[w.ID]:
			return apperr.NewValidation("duplicate widget id " + w.ID)
		case !widgetTypes[w.Type]:
			return apperr.NewValidation(fmt.Sprintf("widget %s has unknown type %q", w.ID, w.Type))
		case w.W <= 0 || w.H <= 0:
			return apperr.NewValidation(fmt.Sprintf("widget %s must have a positive size", w.ID))
		case w.X < 0 || w.Y < 0:
			return apperr.NewValidation(fmt.Sprintf("widget %s has a negative position", w.ID))
		}
		seen[w.ID] = true
	}
	return nil
}
