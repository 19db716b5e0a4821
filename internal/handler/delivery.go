package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"delivery-console/internal/geo"
	"delivery-console/internal/pricing"
	"delivery-console/internal/schedule"
	"delivery-console/internal/zone"
)

// DeliveryConfigStore defines the configuration reads needed by delivery
// endpoints. Satisfied by *database.Queries.
type DeliveryConfigStore interface {
	ListDeliveryZones(ctx context.Context) ([]zone.DeliveryZone, error)
	ListWorkDays(ctx context.Context, from time.Time, limit int) ([]schedule.WorkDay, error)
	GetOrderSettings(ctx context.Context) (pricing.Settings, error)
}

// DeliveryHandler serves the read-only fulfillment configuration plus an
// ad-hoc quote preview.
type DeliveryHandler struct {
	store    DeliveryConfigStore
	resolver *zone.Resolver
	log      *zap.Logger
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(store DeliveryConfigStore, log *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{store: store, resolver: zone.NewResolver(log), log: log}
}

// RegisterRoutes registers delivery endpoints; mounted at /delivery.
func (h *DeliveryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/zones", h.Zones)
	r.Get("/schedule", h.Schedule)
	r.Get("/settings", h.Settings)
	r.Post("/quote", h.Quote)
}

// Zones handles GET /delivery/zones. Zones come back in resolution
// priority order.
func (h *DeliveryHandler) Zones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.store.ListDeliveryZones(r.Context())
	if err != nil {
		h.log.Error("failed to list delivery zones", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load delivery zones")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": zones})
}

// Schedule handles GET /delivery/schedule: the rolling 7-day work calendar.
func (h *DeliveryHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetOrderSettings(r.Context())
	if err != nil {
		h.log.Error("failed to load order settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	days, err := h.store.ListWorkDays(r.Context(), settings.ServerTime, 7)
	if err != nil {
		h.log.Error("failed to list work days", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

// Settings handles GET /delivery/settings.
func (h *DeliveryHandler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetOrderSettings(r.Context())
	if err != nil {
		h.log.Error("failed to load order settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type quoteRequest struct {
	Subtotal    string          `json:"subtotal"`
	Coordinate  *geo.Coordinate `json:"coordinate"`
	Mode        string          `json:"mode"`
	ManualValue string          `json:"manual_value"`
}

// Quote handles POST /delivery/quote: a stateless delivery cost preview for
// the given cart subtotal and coordinate.
func (h *DeliveryHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil || subtotal.IsNegative() {
		writeError(w, http.StatusBadRequest, "subtotal must be a non-negative number")
		return
	}

	manual := decimal.Zero
	if req.ManualValue != "" {
		if manual, err = decimal.NewFromString(req.ManualValue); err != nil {
			writeError(w, http.StatusBadRequest, "invalid manual_value")
			return
		}
	}

	settings, err := h.store.GetOrderSettings(r.Context())
	if err != nil {
		h.log.Error("failed to load order settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	var res *zone.Resolution
	if req.Coordinate != nil {
		zones, err := h.store.ListDeliveryZones(r.Context())
		if err != nil {
			h.log.Error("failed to list delivery zones", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load delivery zones")
			return
		}
		resolved := h.resolver.Resolve(*req.Coordinate, zones, settings.DefaultPrice)
		res = &resolved
	}

	quote := pricing.ComputeCost(subtotal, res, settings, req.Mode, manual)
	writeJSON(w, http.StatusOK, map[string]any{"quote": quote, "zone": res})
}
