package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"delivery-console/internal/fulfillment"
	"delivery-console/internal/geo"
	"delivery-console/internal/middleware"
	"delivery-console/internal/pricing"
	"delivery-console/internal/schedule"
	"delivery-console/internal/service"
	"delivery-console/internal/zone"
)

// DraftService is the session lifecycle surface the draft endpoints need.
// Satisfied by *service.SessionService.
type DraftService interface {
	Create(ctx context.Context, operatorID uuid.UUID, original *fulfillment.OrderDraft) (*service.Session, error)
	Get(id uuid.UUID) (*service.Session, error)
	Close(id uuid.UUID) (bool, error)
	Submit(id uuid.UUID) ([]fulfillment.FieldError, error)
}

// DraftHandler exposes the draft session lifecycle and its mutations over
// REST. Every state change goes through the session's coordinator.
type DraftHandler struct {
	service DraftService
	log     *zap.Logger
}

// NewDraftHandler creates a new DraftHandler.
func NewDraftHandler(service DraftService, log *zap.Logger) *DraftHandler {
	return &DraftHandler{service: service, log: log}
}

// RegisterRoutes registers draft endpoints; mounted at /drafts.
func (h *DraftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Close)
		r.Get("/slots", h.Slots)
		r.Patch("/address", h.PatchAddress)
		r.Patch("/cart", h.PatchCart)
		r.Patch("/schedule", h.PatchSchedule)
		r.Patch("/pricing", h.PatchPricing)
		r.Patch("/recipient", h.PatchRecipient)
		r.Post("/submit", h.Submit)
	})
}

type createDraftRequest struct {
	// Original is the persisted order being edited; omit for a new order.
	Original *originalOrder `json:"original"`
}

type originalOrder struct {
	RecipientName string              `json:"recipient_name"`
	Phone         string              `json:"phone"`
	Comment       string              `json:"comment"`
	AddressText   string              `json:"address_text"`
	Coordinate    *geo.Coordinate     `json:"coordinate"`
	Cart          []cartLineRequest   `json:"cart"`
	DeliveryDate  string              `json:"delivery_date"`
	DeliveryTime  string              `json:"delivery_time"`
	PricingMode   string              `json:"pricing_mode"`
	ManualCost    string              `json:"manual_cost"`
	PaymentMethod string              `json:"payment_method"`
	ChangeFrom    *string             `json:"change_from"`
}

type cartLineRequest struct {
	DishID    uuid.UUID `json:"dish_id"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int32     `json:"quantity"`
}

// draftState is the full console view of one session: the draft plus every
// derived value the page renders from.
type draftState struct {
	ID       uuid.UUID               `json:"id"`
	Mode     string                  `json:"mode"`
	Draft    fulfillment.OrderDraft  `json:"draft"`
	Zone     *zone.Resolution        `json:"zone,omitempty"`
	Quote    pricing.Quote           `json:"quote"`
	Calendar []schedule.CalendarDay  `json:"calendar"`
	Dirty    bool                    `json:"dirty"`
	Errors   []fulfillment.FieldError `json:"errors,omitempty"`
}

// Create handles POST /drafts: opens a session for a new or edited order.
func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createDraftRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var original *fulfillment.OrderDraft
	if req.Original != nil {
		draft, err := req.Original.toDraft()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		original = draft
	}

	session, err := h.service.Create(r.Context(), claims.OperatorID, original)
	if err != nil {
		if errors.Is(err, service.ErrDataUnavailable) {
			h.log.Error("draft session refused", zap.Error(err))
			// the console redirects to the order list on 503
			writeError(w, http.StatusServiceUnavailable, "delivery configuration unavailable")
			return
		}
		h.log.Error("failed to create draft session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create draft")
		return
	}

	writeJSON(w, http.StatusCreated, stateOf(session))
}

// Get handles GET /drafts/{id}.
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(session))
}

// Close handles DELETE /drafts/{id}: discards the session and reports
// whether edits were abandoned.
func (h *DraftHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft ID")
		return
	}

	dirty, err := h.service.Close(id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "draft not found")
			return
		}
		h.log.Error("failed to close draft session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to close draft")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"dirty": dirty})
}

// Slots handles GET /drafts/{id}/slots?date=YYYY-MM-DD.
func (h *DraftHandler) Slots(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"slots": session.Coordinator.SlotsFor(date),
	})
}

type patchAddressRequest struct {
	// Query triggers a debounced geocode search.
	Query string `json:"query"`
	// Coordinate applies a direct pick (map pin, chosen suggestion).
	Coordinate  *geo.Coordinate `json:"coordinate"`
	AddressText string          `json:"address_text"`
}

// PatchAddress handles PATCH /drafts/{id}/address.
func (h *DraftHandler) PatchAddress(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req patchAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Coordinate != nil:
		session.Coordinator.OnAddressResolved(*req.Coordinate, req.AddressText)
	case req.Query != "":
		session.Coordinator.SearchAddress(req.Query)
	default:
		writeError(w, http.StatusBadRequest, "either query or coordinate is required")
		return
	}
	writeJSON(w, http.StatusOK, stateOf(session))
}

type patchCartRequest struct {
	Lines []cartLineRequest `json:"lines"`
}

// PatchCart handles PATCH /drafts/{id}/cart: replaces the cart wholesale.
func (h *DraftHandler) PatchCart(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req patchCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]fulfillment.CartLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid unit_price")
			return
		}
		lines = append(lines, fulfillment.CartLine{
			DishID:    l.DishID,
			Name:      l.Name,
			UnitPrice: price,
			Quantity:  l.Quantity,
		})
	}

	session.Coordinator.OnCartChanged(lines)
	writeJSON(w, http.StatusOK, stateOf(session))
}

type patchScheduleRequest struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

// PatchSchedule handles PATCH /drafts/{id}/schedule.
func (h *DraftHandler) PatchSchedule(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req patchScheduleRequest
	if err := decodeJSON(r, &req); err != nil || req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	session.Coordinator.OnScheduleSelected(req.Date, req.Slot)
	writeJSON(w, http.StatusOK, stateOf(session))
}

type patchPricingRequest struct {
	Mode        string `json:"mode"`
	ManualValue string `json:"manual_value"`
}

// PatchPricing handles PATCH /drafts/{id}/pricing: mode toggles and manual
// cost entry.
func (h *DraftHandler) PatchPricing(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req patchPricingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Mode != "" {
		session.Coordinator.SetPricingMode(req.Mode)
	}
	if req.ManualValue != "" {
		v, err := decimal.NewFromString(req.ManualValue)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid manual_value")
			return
		}
		session.Coordinator.SetManualCost(v)
	}
	writeJSON(w, http.StatusOK, stateOf(session))
}

type patchRecipientRequest struct {
	RecipientName string  `json:"recipient_name"`
	Phone         string  `json:"phone"`
	Comment       string  `json:"comment"`
	PaymentMethod string  `json:"payment_method"`
	ChangeFrom    *string `json:"change_from"`
}

// PatchRecipient handles PATCH /drafts/{id}/recipient.
func (h *DraftHandler) PatchRecipient(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req patchRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	changeFrom, err := parseOptionalDecimal(req.ChangeFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid change_from")
		return
	}

	session.Coordinator.UpdateRecipient(req.RecipientName, req.Phone, req.Comment, req.PaymentMethod, changeFrom)
	writeJSON(w, http.StatusOK, stateOf(session))
}

// Submit handles POST /drafts/{id}/submit. Validation failures come back as
// 422 with a field error list; a clean draft retires the session.
func (h *DraftHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft ID")
		return
	}

	errs, err := h.service.Submit(id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "draft not found")
			return
		}
		h.log.Error("failed to submit draft", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to submit draft")
		return
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "submitted"})
}

func (h *DraftHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft ID")
		return nil, false
	}

	session, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "draft not found")
			return nil, false
		}
		h.log.Error("failed to load draft session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load draft")
		return nil, false
	}
	return session, true
}

func stateOf(session *service.Session) draftState {
	c := session.Coordinator
	return draftState{
		ID:       session.ID,
		Mode:     session.Mode,
		Draft:    c.Draft(),
		Zone:     c.ZoneResolution(),
		Quote:    c.Quote(),
		Calendar: c.Calendar(),
		Dirty:    c.Dirty(),
		Errors:   c.Validate(),
	}
}

func (o *originalOrder) toDraft() (*fulfillment.OrderDraft, error) {
	draft := &fulfillment.OrderDraft{
		RecipientName: o.RecipientName,
		Phone:         o.Phone,
		Comment:       o.Comment,
		AddressText:   o.AddressText,
		Coordinate:    o.Coordinate,
		DeliveryDate:  o.DeliveryDate,
		DeliveryTime:  o.DeliveryTime,
		PricingMode:   o.PricingMode,
		PaymentMethod: o.PaymentMethod,
	}
	if o.ManualCost != "" {
		v, err := decimal.NewFromString(o.ManualCost)
		if err != nil {
			return nil, errors.New("invalid manual_cost")
		}
		draft.ManualCost = v
	}
	changeFrom, err := parseOptionalDecimal(o.ChangeFrom)
	if err != nil {
		return nil, errors.New("invalid change_from")
	}
	draft.ChangeFrom = changeFrom
	for _, l := range o.Cart {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, errors.New("invalid unit_price in cart")
		}
		draft.Cart = append(draft.Cart, fulfillment.CartLine{
			DishID:    l.DishID,
			Name:      l.Name,
			UnitPrice: price,
			Quantity:  l.Quantity,
		})
	}
	return draft, nil
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
