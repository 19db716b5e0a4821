package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"delivery-console/internal/enum"
	"delivery-console/internal/fulfillment"
	"delivery-console/internal/pricing"
	"delivery-console/internal/schedule"
	"delivery-console/internal/zone"
)

const calendarDays = 7

// Errors returned by the session service.
var (
	// ErrDataUnavailable means zones, calendar or settings could not be
	// loaded. The page cannot offer a consistent booking experience and
	// must redirect away instead of operating on partial configuration.
	ErrDataUnavailable = errors.New("fulfillment configuration unavailable")
	ErrSessionNotFound = errors.New("draft session not found")
)

// ConfigStore loads the read-only fulfillment configuration snapshots.
// Satisfied by *database.Queries.
type ConfigStore interface {
	ListDeliveryZones(ctx context.Context) ([]zone.DeliveryZone, error)
	ListWorkDays(ctx context.Context, from time.Time, limit int) ([]schedule.WorkDay, error)
	GetOrderSettings(ctx context.Context) (pricing.Settings, error)
}

// Broadcaster pushes coordinator events to the clients watching a draft.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToDraft(draftID uuid.UUID, eventType string, payload any)
}

// Session is one operator's draft-editing page session. Mode is
// enum.DraftModeEdit when the session wraps a persisted order.
type Session struct {
	ID          uuid.UUID
	OperatorID  uuid.UUID
	Mode        string
	Coordinator *fulfillment.Coordinator
	Settings    pricing.Settings
	CreatedAt   time.Time
}

// SessionService creates and tracks draft sessions. Drafts live in memory
// for the duration of the page session only; submitting never persists the
// order here.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	store    ConfigStore
	geocoder fulfillment.Geocoder
	hub      Broadcaster
	debounce time.Duration
	log      *zap.Logger
}

// NewSessionService creates a SessionService. debounce is the quiet period
// for address searches; zero means the coordinator default.
func NewSessionService(store ConfigStore, geocoder fulfillment.Geocoder, hub Broadcaster, debounce time.Duration, log *zap.Logger) *SessionService {
	return &SessionService{
		sessions: make(map[uuid.UUID]*Session),
		store:    store,
		geocoder: geocoder,
		hub:      hub,
		debounce: debounce,
		log:      log,
	}
}

// Create opens a new draft session. original is the persisted order being
// edited, nil for a brand-new order. Every configuration load failure is
// page-fatal and reported as ErrDataUnavailable.
func (s *SessionService) Create(ctx context.Context, operatorID uuid.UUID, original *fulfillment.OrderDraft) (*Session, error) {
	zones, err := s.store.ListDeliveryZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	settings, err := s.store.GetOrderSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	days, err := s.store.ListWorkDays(ctx, settings.ServerTime, calendarDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	id := uuid.New()
	coordinator := fulfillment.New(fulfillment.Config{
		Log:      s.log.With(zap.String("draft_id", id.String())),
		Geocoder: s.geocoder,
		Zones:    zones,
		Days:     days,
		Settings: settings,
		Original: original,
		Emit: func(e fulfillment.Event) {
			s.hub.BroadcastToDraft(id, e.Type, e.Payload)
		},
		Debounce: s.debounce,
		Now:      time.Now,
	})

	mode := enum.DraftModeAdd
	if original != nil {
		mode = enum.DraftModeEdit
	}

	session := &Session{
		ID:          id,
		OperatorID:  operatorID,
		Mode:        mode,
		Coordinator: coordinator,
		Settings:    settings,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	s.log.Info("draft session opened",
		zap.String("draft_id", id.String()),
		zap.String("operator_id", operatorID.String()),
		zap.String("mode", mode))
	return session, nil
}

// Get looks up a live session.
func (s *SessionService) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close discards a session and reports whether the draft had unsaved
// changes, so the caller can warn about abandoned edits.
func (s *SessionService) Close(id uuid.UUID) (dirty bool, err error) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return false, ErrSessionNotFound
	}
	dirty = session.Coordinator.Dirty()
	session.Coordinator.Close()
	s.log.Info("draft session closed",
		zap.String("draft_id", id.String()), zap.Bool("dirty", dirty))
	return dirty, nil
}

// Submit validates the session's draft; an empty error list means success
// and the session is retired.
func (s *SessionService) Submit(id uuid.UUID) ([]fulfillment.FieldError, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	errs := session.Coordinator.Submit()
	if len(errs) > 0 {
		return errs, nil
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.log.Info("draft submitted", zap.String("draft_id", id.String()))
	return nil, nil
}
