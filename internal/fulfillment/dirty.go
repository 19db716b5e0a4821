package fulfillment

import "github.com/shopspring/decimal"

// Dirty reports whether the draft differs from its initial snapshot. The
// comparison is an explicit field-by-field walk over OrderDraft rather than
// a generic deep-equal, so the rules for optional fields are spelled out
// here: a nil pointer only equals another nil, and decimals compare by
// numeric value, not representation.
func Dirty(draft, initial *OrderDraft) bool {
	if draft == nil || initial == nil {
		return draft != initial
	}

	if draft.RecipientName != initial.RecipientName ||
		draft.Phone != initial.Phone ||
		draft.Comment != initial.Comment ||
		draft.AddressText != initial.AddressText ||
		draft.DeliveryDate != initial.DeliveryDate ||
		draft.DeliveryTime != initial.DeliveryTime ||
		draft.PricingMode != initial.PricingMode ||
		draft.PaymentMethod != initial.PaymentMethod ||
		draft.Status != initial.Status {
		return true
	}

	if !draft.DeliveryCost.Equal(initial.DeliveryCost) ||
		!draft.ManualCost.Equal(initial.ManualCost) {
		return true
	}

	if (draft.Coordinate == nil) != (initial.Coordinate == nil) {
		return true
	}
	if draft.Coordinate != nil && *draft.Coordinate != *initial.Coordinate {
		return true
	}

	if !decimalPtrEqual(draft.ChangeFrom, initial.ChangeFrom) {
		return true
	}

	if len(draft.Cart) != len(initial.Cart) {
		return true
	}
	for i := range draft.Cart {
		a, b := draft.Cart[i], initial.Cart[i]
		if a.DishID != b.DishID || a.Name != b.Name || a.Quantity != b.Quantity || !a.UnitPrice.Equal(b.UnitPrice) {
			return true
		}
	}

	return false
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Equal(*b)
}
