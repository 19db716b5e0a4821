package pricing

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"delivery-console/internal/enum"
	"delivery-console/internal/zone"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func settings(free bool, threshold string) Settings {
	return Settings{
		DefaultPrice:  dec("250"),
		FreeDelivery:  free,
		FreeThreshold: dec(threshold),
	}
}

func inZone(base string) *zone.Resolution {
	return &zone.Resolution{Valid: true, BaseCost: dec(base)}
}

func outsideZones() *zone.Resolution {
	return &zone.Resolution{Valid: false, BaseCost: dec("250")}
}

func TestComputeCostUnresolvedAddress(t *testing.T) {
	for _, mode := range []string{enum.PricingModeAuto, enum.PricingModeManual} {
		q := ComputeCost(dec("700"), nil, settings(true, "1000"), mode, dec("99"))
		if !q.Cost.IsZero() || q.Message != "" {
			t.Errorf("mode %s: unresolved address must quote zero, got %+v", mode, q)
		}
	}
}

func TestComputeCostAuto(t *testing.T) {
	tests := []struct {
		name        string
		subtotal    string
		zoneRes     *zone.Resolution
		settings    Settings
		wantCost    string
		wantMsgPart string
	}{
		{
			name:        "below free threshold",
			subtotal:    "700",
			zoneRes:     inZone("100"),
			settings:    settings(true, "1000"),
			wantCost:    "100",
			wantMsgPart: "300",
		},
		{
			name:     "at free threshold",
			subtotal: "1000",
			zoneRes:  inZone("100"),
			settings: settings(true, "1000"),
			wantCost: "0",
		},
		{
			name:     "above free threshold",
			subtotal: "1500",
			zoneRes:  inZone("100"),
			settings: settings(true, "1000"),
			wantCost: "0",
		},
		{
			name:     "free delivery disabled",
			subtotal: "5000",
			zoneRes:  inZone("100"),
			settings: settings(false, "1000"),
			wantCost: "100",
		},
		{
			name:        "outside zones falls back to default price",
			subtotal:    "700",
			zoneRes:     outsideZones(),
			settings:    settings(true, "1000"),
			wantCost:    "250",
			wantMsgPart: "300",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ComputeCost(dec(tt.subtotal), tt.zoneRes, tt.settings, enum.PricingModeAuto, decimal.Zero)
			if !q.Cost.Equal(dec(tt.wantCost)) {
				t.Errorf("cost: got %s, want %s", q.Cost, tt.wantCost)
			}
			if tt.wantMsgPart == "" && q.Message != "" {
				t.Errorf("message: got %q, want empty", q.Message)
			}
			if tt.wantMsgPart != "" && !strings.Contains(q.Message, tt.wantMsgPart) {
				t.Errorf("message %q does not mention %q", q.Message, tt.wantMsgPart)
			}
		})
	}
}

func TestComputeCostManual(t *testing.T) {
	q := ComputeCost(dec("700"), inZone("100"), settings(true, "1000"), enum.PricingModeManual, dec("80"))
	if !q.Cost.Equal(dec("80")) {
		t.Errorf("manual cost: got %s, want 80", q.Cost)
	}
	if q.Message != "" {
		t.Errorf("manual inside zone: unexpected message %q", q.Message)
	}

	// zone validity stays advisory in manual mode, the cost is untouched
	q = ComputeCost(dec("700"), outsideZones(), settings(true, "1000"), enum.PricingModeManual, dec("80"))
	if !q.Cost.Equal(dec("80")) {
		t.Errorf("manual outside zone: got %s, want 80", q.Cost)
	}
	if q.Message == "" {
		t.Error("manual outside zone: expected advisory message")
	}

	// negative input is clamped
	q = ComputeCost(dec("700"), inZone("100"), settings(false, "0"), enum.PricingModeManual, dec("-5"))
	if !q.Cost.IsZero() {
		t.Errorf("negative manual value: got %s, want 0", q.Cost)
	}
}
