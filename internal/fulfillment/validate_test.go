package fulfillment

import (
	"testing"

	"github.com/shopspring/decimal"

	"delivery-console/internal/enum"
)

func fieldNames(errs []FieldError) map[string]bool {
	out := make(map[string]bool, len(errs))
	for _, e := range errs {
		out[e.Field] = true
	}
	return out
}

func TestValidateForSubmitValidDraft(t *testing.T) {
	d := baseDraft()
	if errs := ValidateForSubmit(&d); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateForSubmitRequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*OrderDraft)
		wantField string
	}{
		{"blank name", func(d *OrderDraft) { d.RecipientName = "   " }, "recipient_name"},
		{"short phone", func(d *OrderDraft) { d.Phone = "12345" }, "phone"},
		{"long phone", func(d *OrderDraft) { d.Phone = "890123456789" }, "phone"},
		{"unresolved address", func(d *OrderDraft) { d.Coordinate = nil }, "address"},
		{"no date", func(d *OrderDraft) { d.DeliveryDate = "" }, "delivery_date"},
		{"no time", func(d *OrderDraft) { d.DeliveryTime = "" }, "delivery_time"},
		{"no payment method", func(d *OrderDraft) { d.PaymentMethod = "" }, "payment_method"},
		{"empty cart", func(d *OrderDraft) { d.Cart = nil }, "cart"},
		{"zero quantity line", func(d *OrderDraft) { d.Cart[0].Quantity = 0 }, "cart[0].quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := baseDraft()
			tt.mutate(&d)
			errs := ValidateForSubmit(&d)
			if !fieldNames(errs)[tt.wantField] {
				t.Errorf("expected error on %s, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidateForSubmitPhoneFormats(t *testing.T) {
	d := baseDraft()
	// formatting characters are stripped before counting digits
	for _, phone := range []string{"89123456789", "+7 (912) 345-67-89", "8-912-345-67-89"} {
		d.Phone = phone
		if errs := ValidateForSubmit(&d); fieldNames(errs)["phone"] {
			t.Errorf("phone %q should be accepted", phone)
		}
	}
}

func TestValidateForSubmitCashChange(t *testing.T) {
	d := baseDraft() // subtotal 900 + delivery 100 = 1000 due

	low := decimal.NewFromInt(999)
	d.ChangeFrom = &low
	if errs := ValidateForSubmit(&d); !fieldNames(errs)["change_from"] {
		t.Error("change below the order total must be rejected")
	}

	exact := decimal.NewFromInt(1000)
	d.ChangeFrom = &exact
	if errs := ValidateForSubmit(&d); fieldNames(errs)["change_from"] {
		t.Error("change equal to the order total is fine")
	}

	// change-from is optional for cash
	d.ChangeFrom = nil
	if errs := ValidateForSubmit(&d); fieldNames(errs)["change_from"] {
		t.Error("missing change-from must not block submission")
	}

	// and irrelevant for card payments
	d.PaymentMethod = enum.PaymentMethodCard
	d.ChangeFrom = &low
	if errs := ValidateForSubmit(&d); fieldNames(errs)["change_from"] {
		t.Error("change-from must be ignored for non-cash payments")
	}
}

func TestValidateForSubmitCollectsAllErrors(t *testing.T) {
	d := OrderDraft{}
	errs := ValidateForSubmit(&d)
	want := []string{"recipient_name", "phone", "address", "delivery_date", "delivery_time", "payment_method", "cart"}
	got := fieldNames(errs)
	for _, f := range want {
		if !got[f] {
			t.Errorf("empty draft must report %s, got %v", f, errs)
		}
	}
}
