package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"delivery-console/internal/auth"
	"delivery-console/internal/enum"
	"delivery-console/internal/fulfillment"
	"delivery-console/internal/geo"
	"delivery-console/internal/middleware"
	"delivery-console/internal/pricing"
	"delivery-console/internal/schedule"
	"delivery-console/internal/service"
	"delivery-console/internal/zone"
)

const testSecret = "test-secret"

type mockDraftService struct {
	createFn func(ctx context.Context, operatorID uuid.UUID, original *fulfillment.OrderDraft) (*service.Session, error)
	getFn    func(id uuid.UUID) (*service.Session, error)
	closeFn  func(id uuid.UUID) (bool, error)
	submitFn func(id uuid.UUID) ([]fulfillment.FieldError, error)
}

func (m *mockDraftService) Create(ctx context.Context, operatorID uuid.UUID, original *fulfillment.OrderDraft) (*service.Session, error) {
	return m.createFn(ctx, operatorID, original)
}

func (m *mockDraftService) Get(id uuid.UUID) (*service.Session, error) {
	return m.getFn(id)
}

func (m *mockDraftService) Close(id uuid.UUID) (bool, error) {
	return m.closeFn(id)
}

func (m *mockDraftService) Submit(id uuid.UUID) ([]fulfillment.FieldError, error) {
	return m.submitFn(id)
}

// newTestSession builds a live session around a real coordinator so handler
// tests exercise actual draft state transitions.
func newTestSession() *service.Session {
	settings := pricing.Settings{
		DefaultPrice:    decimal.NewFromInt(250),
		FreeDelivery:    true,
		FreeThreshold:   decimal.NewFromInt(1000),
		IntervalMinutes: 60,
		ServerTime:      time.Date(2024, 1, 4, 8, 0, 0, 0, time.UTC),
	}
	c := fulfillment.New(fulfillment.Config{
		Log: zap.NewNop(),
		Zones: []zone.DeliveryZone{{
			ID:   uuid.New(),
			Name: "center",
			Polygon: []geo.Coordinate{
				{Lat: 9, Lng: 19}, {Lat: 9, Lng: 21}, {Lat: 11, Lng: 21}, {Lat: 11, Lng: 19},
			},
			Price: decimal.NewFromInt(100),
		}},
		Days: []schedule.WorkDay{
			{Date: "2024-01-04", IsWorking: true, Start: "09:00", End: "18:00"},
		},
		Settings: settings,
		Now:      func() time.Time { return settings.ServerTime },
	})
	return &service.Session{
		ID:          uuid.New(),
		OperatorID:  uuid.New(),
		Mode:        enum.DraftModeAdd,
		Coordinator: c,
		Settings:    settings,
		CreatedAt:   time.Now(),
	}
}

func newDraftRouter(svc DraftService) *chi.Mux {
	h := NewDraftHandler(svc, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/drafts", func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		h.RegisterRoutes(r)
	})
	return r
}

func authedRequest(t *testing.T, method, path string, body []byte) *http.Request {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, uuid.New(), enum.UserRoleManager)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestCreateDraft(t *testing.T) {
	session := newTestSession()
	svc := &mockDraftService{
		createFn: func(ctx context.Context, operatorID uuid.UUID, original *fulfillment.OrderDraft) (*service.Session, error) {
			if original != nil {
				t.Error("expected nil original for a new order")
			}
			return session, nil
		},
	}
	r := newDraftRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/drafts/", []byte(`{}`)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var state draftState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.ID != session.ID {
		t.Errorf("session ID mismatch")
	}
	if state.Mode != enum.DraftModeAdd {
		t.Errorf("mode: got %q, want %q", state.Mode, enum.DraftModeAdd)
	}
	if state.Draft.PricingMode != enum.PricingModeAuto {
		t.Errorf("new draft must start in auto pricing, got %q", state.Draft.PricingMode)
	}
	if len(state.Calendar) == 0 {
		t.Error("expected a calendar in the state payload")
	}
}

func TestCreateDraftEditMode(t *testing.T) {
	session := newTestSession()
	var gotOriginal *fulfillment.OrderDraft
	svc := &mockDraftService{
		createFn: func(ctx context.Context, operatorID uuid.UUID, original *fulfillment.OrderDraft) (*service.Session, error) {
			gotOriginal = original
			return session, nil
		},
	}
	r := newDraftRouter(svc)

	body := []byte(`{"original": {
		"recipient_name": "Anna",
		"phone": "89123456789",
		"coordinate": {"lat": 10, "lng": 20},
		"cart": [{"dish_id": "` + uuid.NewString() + `", "name": "Pizza", "unit_price": "450", "quantity": 2}],
		"delivery_date": "2024-01-04",
		"delivery_time": "10:00 — 11:00",
		"pricing_mode": "AUTO",
		"payment_method": "CARD"
	}}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/drafts/", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if gotOriginal == nil {
		t.Fatal("expected the original order to reach the service")
	}
	if gotOriginal.RecipientName != "Anna" || len(gotOriginal.Cart) != 1 {
		t.Errorf("original not carried over: %+v", gotOriginal)
	}
	if !gotOriginal.Cart[0].UnitPrice.Equal(decimal.NewFromInt(450)) {
		t.Errorf("unit price: got %s, want 450", gotOriginal.Cart[0].UnitPrice)
	}
}

func TestCreateDraftConfigUnavailable(t *testing.T) {
	svc := &mockDraftService{
		createFn: func(ctx context.Context, operatorID uuid.UUID, original *fulfillment.OrderDraft) (*service.Session, error) {
			return nil, fmt.Errorf("loading zones: %w", service.ErrDataUnavailable)
		},
	}
	r := newDraftRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/drafts/", []byte(`{}`)))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rec.Code)
	}
}

func TestCreateDraftRequiresAuth(t *testing.T) {
	r := newDraftRouter(&mockDraftService{})

	req := httptest.NewRequest(http.MethodPost, "/drafts/", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestGetDraftNotFound(t *testing.T) {
	svc := &mockDraftService{
		getFn: func(id uuid.UUID) (*service.Session, error) {
			return nil, service.ErrSessionNotFound
		},
	}
	r := newDraftRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/drafts/"+uuid.NewString()+"/", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestPatchAddressDirectPick(t *testing.T) {
	session := newTestSession()
	svc := &mockDraftService{
		getFn: func(id uuid.UUID) (*service.Session, error) { return session, nil },
	}
	r := newDraftRouter(svc)

	body := []byte(`{"coordinate": {"lat": 10, "lng": 20}, "address_text": "Lenina 5"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPatch, "/drafts/"+session.ID.String()+"/address", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var state draftState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Zone == nil || !state.Zone.Valid {
		t.Fatalf("expected a valid zone match, got %+v", state.Zone)
	}
	if state.Draft.AddressText != "Lenina 5" {
		t.Errorf("address text: got %q", state.Draft.AddressText)
	}
}

func TestPatchCartRecomputesPricing(t *testing.T) {
	session := newTestSession()
	session.Coordinator.OnAddressResolved(geo.Coordinate{Lat: 10, Lng: 20}, "Lenina 5")
	svc := &mockDraftService{
		getFn: func(id uuid.UUID) (*service.Session, error) { return session, nil },
	}
	r := newDraftRouter(svc)

	body := []byte(`{"lines": [{"dish_id": "` + uuid.NewString() + `", "name": "Pizza", "unit_price": "600", "quantity": 2}]}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPatch, "/drafts/"+session.ID.String()+"/cart", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var state draftState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 1200 subtotal crosses the 1000 free-delivery threshold
	if !state.Quote.Cost.IsZero() {
		t.Errorf("cost: got %s, want 0", state.Quote.Cost)
	}
	if !state.Dirty {
		t.Error("cart change must mark the draft dirty")
	}
}

func TestPatchSchedule(t *testing.T) {
	session := newTestSession()
	svc := &mockDraftService{
		getFn: func(id uuid.UUID) (*service.Session, error) { return session, nil },
	}
	r := newDraftRouter(svc)

	body := []byte(`{"date": "2024-01-04", "slot": "10:00 — 11:00"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPatch, "/drafts/"+session.ID.String()+"/schedule", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var state draftState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Draft.DeliveryDate != "2024-01-04" || state.Draft.DeliveryTime != "10:00 — 11:00" {
		t.Errorf("schedule not applied: %q %q", state.Draft.DeliveryDate, state.Draft.DeliveryTime)
	}
}

func TestPatchPricingModeToggleResetsCost(t *testing.T) {
	session := newTestSession()
	session.Coordinator.OnAddressResolved(geo.Coordinate{Lat: 10, Lng: 20}, "Lenina 5")
	svc := &mockDraftService{
		getFn: func(id uuid.UUID) (*service.Session, error) { return session, nil },
	}
	r := newDraftRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPatch, "/drafts/"+session.ID.String()+"/pricing",
		[]byte(`{"mode": "MANUAL"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var state draftState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !state.Draft.DeliveryCost.IsZero() {
		t.Errorf("mode toggle must reset cost to zero, got %s", state.Draft.DeliveryCost)
	}
}

func TestSubmitDraftValidationErrors(t *testing.T) {
	svc := &mockDraftService{
		submitFn: func(id uuid.UUID) ([]fulfillment.FieldError, error) {
			return []fulfillment.FieldError{{Field: "cart", Message: "cart is empty"}}, nil
		},
	}
	r := newDraftRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/drafts/"+uuid.NewString()+"/submit", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Errors []fulfillment.FieldError `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Field != "cart" {
		t.Errorf("unexpected errors: %+v", resp.Errors)
	}
}

func TestCloseDraftReportsDirty(t *testing.T) {
	svc := &mockDraftService{
		closeFn: func(id uuid.UUID) (bool, error) { return true, nil },
	}
	r := newDraftRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodDelete, "/drafts/"+uuid.NewString()+"/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["dirty"] {
		t.Error("expected dirty=true")
	}
}

func TestDraftSlots(t *testing.T) {
	session := newTestSession()
	svc := &mockDraftService{
		getFn: func(id uuid.UUID) (*service.Session, error) { return session, nil },
	}
	r := newDraftRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/drafts/"+session.ID.String()+"/slots?date=2024-01-04", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Slots []schedule.Slot `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// working day 09:00-18:00 at 08:00 server time: the 09:00 slot falls
	// inside the one hour lead window, the rest remain
	if len(resp.Slots) != 8 {
		t.Errorf("slots: got %d, want 8", len(resp.Slots))
	}
}
