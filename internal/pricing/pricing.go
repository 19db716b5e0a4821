package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"delivery-console/internal/enum"
	"delivery-console/internal/zone"
)

// Settings is the delivery pricing configuration snapshot, fetched once per
// page session. ServerTime anchors "today" for slot generation.
type Settings struct {
	DefaultPrice    decimal.Decimal `json:"default_price"`
	FreeDelivery    bool            `json:"free_delivery"`
	FreeThreshold   decimal.Decimal `json:"free_threshold"`
	IntervalMinutes int             `json:"interval_minutes"`
	ServerTime      time.Time       `json:"server_time"`
}

// Quote is the computed delivery cost plus an operator-facing message.
type Quote struct {
	Cost    decimal.Decimal `json:"cost"`
	Message string          `json:"message"`
}

// ComputeCost derives the delivery cost for the current cart and address.
//
// zoneRes nil means no address has been resolved yet; the quote is zero
// regardless of mode. In auto mode the base cost comes from the matched zone
// (or the default price outside all zones) and the free-delivery threshold
// may waive it. In manual mode the operator-entered value wins and zone
// validity is surfaced only as advisory text.
func ComputeCost(subtotal decimal.Decimal, zoneRes *zone.Resolution, settings Settings, mode string, manual decimal.Decimal) Quote {
	if zoneRes == nil {
		return Quote{Cost: decimal.Zero}
	}

	if mode == enum.PricingModeManual {
		q := Quote{Cost: manual}
		if manual.IsNegative() {
			q.Cost = decimal.Zero
		}
		if !zoneRes.Valid {
			q.Message = "address is outside all delivery zones"
		}
		return q
	}

	base := settings.DefaultPrice
	if zoneRes.Valid {
		base = zoneRes.BaseCost
	}

	if settings.FreeDelivery {
		if subtotal.GreaterThanOrEqual(settings.FreeThreshold) {
			return Quote{Cost: decimal.Zero}
		}
		remaining := settings.FreeThreshold.Sub(subtotal)
		return Quote{
			Cost:    base,
			Message: fmt.Sprintf("add %s more for free delivery", remaining),
		}
	}

	return Quote{Cost: base}
}
