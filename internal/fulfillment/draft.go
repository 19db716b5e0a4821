package fulfillment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"delivery-console/internal/geo"
)

// CartLine is one dish position in the order cart.
type CartLine struct {
	DishID    uuid.UUID       `json:"dish_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity"`
}

// OrderDraft is the live order being composed or edited. The coordinator
// owns it exclusively; everything else sees copies.
type OrderDraft struct {
	RecipientName string           `json:"recipient_name"`
	Phone         string           `json:"phone"`
	Comment       string           `json:"comment"`
	AddressText   string           `json:"address_text"`
	Coordinate    *geo.Coordinate  `json:"coordinate,omitempty"`
	Cart          []CartLine       `json:"cart"`
	DeliveryDate  string           `json:"delivery_date"`
	DeliveryTime  string           `json:"delivery_time"`
	DeliveryCost  decimal.Decimal  `json:"delivery_cost"`
	PricingMode   string           `json:"pricing_mode"`
	ManualCost    decimal.Decimal  `json:"manual_cost"`
	PaymentMethod string           `json:"payment_method"`
	ChangeFrom    *decimal.Decimal `json:"change_from,omitempty"`
	Status        string           `json:"status"`
}

// Subtotal sums unit price times quantity over the cart.
func (d *OrderDraft) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Cart {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity)))
	}
	return total
}

// Clone returns a deep copy, used for the initial snapshot the dirty check
// compares against.
func (d *OrderDraft) Clone() OrderDraft {
	out := *d
	if d.Coordinate != nil {
		c := *d.Coordinate
		out.Coordinate = &c
	}
	if d.ChangeFrom != nil {
		v := d.ChangeFrom.Copy()
		out.ChangeFrom = &v
	}
	if d.Cart != nil {
		out.Cart = make([]CartLine, len(d.Cart))
		copy(out.Cart, d.Cart)
	}
	return out
}
