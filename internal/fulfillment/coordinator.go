package fulfillment

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"delivery-console/internal/enum"
	"delivery-console/internal/geo"
	"delivery-console/internal/geocode"
	"delivery-console/internal/pricing"
	"delivery-console/internal/schedule"
	"delivery-console/internal/zone"
)

const (
	defaultDebounce = 500 * time.Millisecond
	searchTimeout   = 10 * time.Second
)

// Geocoder is the geocoding gateway the coordinator resolves addresses with.
// Satisfied by *geocode.Client.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]geocode.Place, error)
	Reverse(ctx context.Context, coord geo.Coordinate) (geocode.AddressParts, error)
}

// Event is a recomputation notice pushed to the host UI.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Config wires a Coordinator. Zones, Days and Settings are the read-only
// snapshots loaded at session start. Original is the persisted order when
// editing, nil for a new order.
type Config struct {
	Log      *zap.Logger
	Geocoder Geocoder
	Zones    []zone.DeliveryZone
	Days     []schedule.WorkDay
	Settings pricing.Settings
	Original *OrderDraft
	Emit     func(Event)
	Debounce time.Duration
	Now      func() time.Time
}

// Coordinator owns the live OrderDraft and wires the zone resolver, slot
// scheduler and pricing calculator together. All mutation goes through it;
// the engines themselves stay pure functions over snapshots.
type Coordinator struct {
	mu       sync.Mutex
	log      *zap.Logger
	resolver *zone.Resolver
	geocoder Geocoder
	zones    []zone.DeliveryZone
	days     []schedule.WorkDay
	settings pricing.Settings
	emit     func(Event)
	debounce time.Duration
	now      func() time.Time

	draft    OrderDraft
	initial  OrderDraft
	original *schedule.Booking
	sel      *schedule.Selection
	zoneRes  *zone.Resolution
	quote    pricing.Quote

	// geocode ordering guard: responses apply only when their sequence
	// number is still the latest issued
	seq     atomic.Uint64
	pending *time.Timer
}

// New creates a Coordinator. In edit mode the draft is hydrated from
// cfg.Original and its address, zone and pricing state are recomputed so
// the console opens consistent.
func New(cfg Config) *Coordinator {
	c := &Coordinator{
		log:      cfg.Log,
		resolver: zone.NewResolver(cfg.Log),
		geocoder: cfg.Geocoder,
		zones:    cfg.Zones,
		days:     cfg.Days,
		settings: cfg.Settings,
		emit:     cfg.Emit,
		debounce: cfg.Debounce,
		now:      cfg.Now,
	}
	if c.emit == nil {
		c.emit = func(Event) {}
	}
	if c.debounce <= 0 {
		c.debounce = defaultDebounce
	}
	if c.now == nil {
		c.now = time.Now
	}

	if cfg.Original != nil {
		c.draft = cfg.Original.Clone()
		if c.draft.DeliveryDate != "" {
			c.original = &schedule.Booking{Date: c.draft.DeliveryDate, Slot: c.draft.DeliveryTime}
		}
	}
	if c.draft.PricingMode == "" {
		c.draft.PricingMode = enum.PricingModeAuto
	}
	if c.draft.Status == "" {
		c.draft.Status = enum.DraftStatusEditing
	}

	c.sel = schedule.NewSelection(c.original)
	if c.draft.DeliveryDate != "" {
		c.sel.SelectDate(c.draft.DeliveryDate)
		c.sel.SelectTime(c.draft.DeliveryTime)
	}

	if c.draft.Coordinate != nil {
		res := c.resolver.Resolve(*c.draft.Coordinate, c.zones, c.settings.DefaultPrice)
		c.zoneRes = &res
	}
	c.recompute()

	c.initial = c.draft.Clone()
	return c
}

// OnAddressResolved applies a directly chosen coordinate (map pin, picked
// suggestion), resolves its zone and recomputes pricing. Any in-flight text
// search is superseded. A pin drop without address text is reverse-geocoded
// in the background to fill the address field.
func (c *Coordinator) OnAddressResolved(coord geo.Coordinate, addressText string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seqno := c.seq.Add(1)
	c.draft.Coordinate = &coord
	if addressText != "" {
		c.draft.AddressText = addressText
	} else if c.geocoder != nil {
		go c.reverseLookup(seqno, coord)
	}
	c.resolveZoneLocked()
	c.recompute()
	c.emitStateLocked()
}

func (c *Coordinator) reverseLookup(seqno uint64, coord geo.Coordinate) {
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()
	parts, err := c.geocoder.Reverse(ctx, coord)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seqno != c.seq.Load() {
		return
	}
	if err != nil {
		// non-fatal, the pin itself already resolved the zone
		c.log.Warn("reverse geocode failed", zap.Error(err))
		return
	}
	if text := parts.DisplayText(); text != "" {
		c.draft.AddressText = text
		c.emit(Event{Type: enum.EventDraftDirty, Payload: Dirty(&c.draft, &c.initial)})
	}
}

// SearchAddress registers free-text address input. The geocode request is
// only issued after the input has been quiet for the debounce period, and
// its response is discarded if a newer request was issued meanwhile.
func (c *Coordinator) SearchAddress(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft.AddressText = query
	if c.pending != nil {
		c.pending.Stop()
	}
	c.pending = time.AfterFunc(c.debounce, func() { c.runSearch(query) })
	c.emit(Event{Type: enum.EventDraftDirty, Payload: Dirty(&c.draft, &c.initial)})
}

func (c *Coordinator) runSearch(query string) {
	seqno := c.seq.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()
	places, err := c.geocoder.Search(ctx, query, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seqno != c.seq.Load() {
		c.log.Debug("discarding stale geocode response", zap.String("query", query))
		return
	}
	if err != nil {
		// non-fatal: prior resolved address and zone stay untouched
		c.log.Warn("geocode search failed", zap.String("query", query), zap.Error(err))
		c.emit(Event{Type: enum.EventGeocodeFailed, Payload: err.Error()})
		return
	}
	if len(places) == 0 {
		c.emit(Event{Type: enum.EventGeocodeFailed, Payload: "no matches for address"})
		return
	}

	place := places[0]
	coord := place.Coordinate
	c.draft.AddressText = place.DisplayName
	c.draft.Coordinate = &coord
	c.resolveZoneLocked()
	c.recompute()
	c.emitStateLocked()
}

// OnCartChanged replaces the cart lines and recomputes pricing.
func (c *Coordinator) OnCartChanged(lines []CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft.Cart = make([]CartLine, len(lines))
	copy(c.draft.Cart, lines)
	c.recompute()
	c.emitStateLocked()
}

// OnScheduleSelected stores a date/time pick. Only dates and slots the
// scheduler offered (generated or injected for the original booking) are
// accepted; anything else is ignored.
func (c *Coordinator) OnScheduleSelected(date, slot string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	day, ok := c.calendarDayLocked(date)
	if !ok || !day.Selectable {
		c.log.Warn("ignoring unselectable delivery date", zap.String("date", date))
		return
	}
	c.sel.SelectDate(date)

	if slot != "" {
		if !c.slotOfferedLocked(day, slot) {
			c.log.Warn("ignoring unoffered delivery slot",
				zap.String("date", date), zap.String("slot", slot))
		} else {
			c.sel.SelectTime(slot)
		}
	}

	c.draft.DeliveryDate = c.sel.Date()
	c.draft.DeliveryTime = c.sel.Slot()
	c.emit(Event{Type: enum.EventDraftDirty, Payload: Dirty(&c.draft, &c.initial)})
}

// SetPricingMode switches between automatic and manual delivery pricing.
// Any toggle resets the cost to zero; the next recomputation (or manual
// entry) establishes the new value. Historical console behavior, kept.
func (c *Coordinator) SetPricingMode(mode string) {
	if mode != enum.PricingModeAuto && mode != enum.PricingModeManual {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft.PricingMode == mode {
		return
	}
	c.draft.PricingMode = mode
	c.draft.ManualCost = decimal.Zero
	c.draft.DeliveryCost = decimal.Zero
	c.quote = pricing.Quote{Cost: decimal.Zero}
	c.emitStateLocked()
}

// SetManualCost stores an operator-entered delivery cost. Only effective in
// manual mode; negative input is clamped to zero.
func (c *Coordinator) SetManualCost(v decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft.PricingMode != enum.PricingModeManual {
		return
	}
	if v.IsNegative() {
		v = decimal.Zero
	}
	c.draft.ManualCost = v
	c.recompute()
	c.emitStateLocked()
}

// UpdateRecipient sets name, phone, comment, payment method and the cash
// change-from amount.
func (c *Coordinator) UpdateRecipient(name, phone, comment, paymentMethod string, changeFrom *decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft.RecipientName = name
	c.draft.Phone = phone
	c.draft.Comment = comment
	c.draft.PaymentMethod = paymentMethod
	if changeFrom != nil {
		v := changeFrom.Copy()
		c.draft.ChangeFrom = &v
	} else {
		c.draft.ChangeFrom = nil
	}
	c.emit(Event{Type: enum.EventDraftDirty, Payload: Dirty(&c.draft, &c.initial)})
}

// Draft returns a copy of the live draft.
func (c *Coordinator) Draft() OrderDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// ZoneResolution returns the current zone match, nil while unresolved.
func (c *Coordinator) ZoneResolution() *zone.Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.zoneRes == nil {
		return nil
	}
	res := *c.zoneRes
	return &res
}

// Quote returns the current delivery cost quote.
func (c *Coordinator) Quote() pricing.Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quote
}

// Calendar returns the selectable day list for this session.
func (c *Coordinator) Calendar() []schedule.CalendarDay {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schedule.BuildCalendar(c.days, c.original)
}

// SlotsFor returns the offered slots for a calendar date.
func (c *Coordinator) SlotsFor(date string) []schedule.Slot {
	c.mu.Lock()
	defer c.mu.Unlock()

	day, ok := c.calendarDayLocked(date)
	if !ok {
		return nil
	}
	now := c.now()
	return schedule.SlotsForDay(day.WorkDay, c.settings.IntervalMinutes, &now, c.original)
}

// Dirty reports whether the draft differs from its initial snapshot.
func (c *Coordinator) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Dirty(&c.draft, &c.initial)
}

// Validate runs submission checks without submitting.
func (c *Coordinator) Validate() []FieldError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ValidateForSubmit(&c.draft)
}

// Submit validates the draft and, when clean, marks it submitted. The
// returned errors are empty on success.
func (c *Coordinator) Submit() []FieldError {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := ValidateForSubmit(&c.draft)
	if len(errs) > 0 {
		return errs
	}
	c.draft.Status = enum.DraftStatusSubmitted
	c.emit(Event{Type: enum.EventDraftSubmitted, Payload: c.draft.Clone()})
	return nil
}

// Close cancels any pending address search and discards the draft.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		c.pending.Stop()
	}
	c.seq.Add(1)
	if c.draft.Status == enum.DraftStatusEditing {
		c.draft.Status = enum.DraftStatusDiscarded
	}
}

// --- internals (all require c.mu held) ---

func (c *Coordinator) resolveZoneLocked() {
	res := c.resolver.Resolve(*c.draft.Coordinate, c.zones, c.settings.DefaultPrice)
	c.zoneRes = &res
}

func (c *Coordinator) recompute() {
	c.quote = pricing.ComputeCost(c.draft.Subtotal(), c.zoneRes, c.settings, c.draft.PricingMode, c.draft.ManualCost)
	c.draft.DeliveryCost = c.quote.Cost
}

func (c *Coordinator) emitStateLocked() {
	if c.zoneRes != nil {
		c.emit(Event{Type: enum.EventZoneResolved, Payload: *c.zoneRes})
	}
	c.emit(Event{Type: enum.EventPricingUpdated, Payload: c.quote})
	c.emit(Event{Type: enum.EventDraftDirty, Payload: Dirty(&c.draft, &c.initial)})
}

func (c *Coordinator) calendarDayLocked(date string) (schedule.CalendarDay, bool) {
	for _, d := range schedule.BuildCalendar(c.days, c.original) {
		if d.Date == date {
			return d, true
		}
	}
	return schedule.CalendarDay{}, false
}

func (c *Coordinator) slotOfferedLocked(day schedule.CalendarDay, slot string) bool {
	now := c.now()
	for _, s := range schedule.SlotsForDay(day.WorkDay, c.settings.IntervalMinutes, &now, c.original) {
		if s.Label == slot {
			return true
		}
	}
	return false
}
