package fulfillment

import (
	"fmt"
	"strings"

	"delivery-console/internal/enum"
)

const phoneDigits = 11

// FieldError names a field that blocks submission.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateForSubmit runs the required-field checks and returns every
// violation as data. An empty slice means the draft is submittable.
func ValidateForSubmit(d *OrderDraft) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(d.RecipientName) == "" {
		errs = append(errs, FieldError{Field: "recipient_name", Message: "recipient name is required"})
	}

	if n := countDigits(d.Phone); n != phoneDigits {
		errs = append(errs, FieldError{
			Field:   "phone",
			Message: fmt.Sprintf("phone number must contain exactly %d digits", phoneDigits),
		})
	}

	if d.Coordinate == nil {
		errs = append(errs, FieldError{Field: "address", Message: "delivery address is not resolved"})
	}

	if d.DeliveryDate == "" {
		errs = append(errs, FieldError{Field: "delivery_date", Message: "delivery date is required"})
	}
	if d.DeliveryTime == "" {
		errs = append(errs, FieldError{Field: "delivery_time", Message: "delivery time is required"})
	}

	if d.PaymentMethod == "" {
		errs = append(errs, FieldError{Field: "payment_method", Message: "payment method is required"})
	}

	if len(d.Cart) == 0 {
		errs = append(errs, FieldError{Field: "cart", Message: "cart is empty"})
	}
	for i, line := range d.Cart {
		if line.Quantity <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("cart[%d].quantity", i),
				Message: "quantity must be greater than 0",
			})
		}
	}

	if d.PaymentMethod == enum.PaymentMethodCash && d.ChangeFrom != nil {
		due := d.Subtotal().Add(d.DeliveryCost)
		if d.ChangeFrom.LessThan(due) {
			errs = append(errs, FieldError{
				Field:   "change_from",
				Message: fmt.Sprintf("change amount must cover the order total %s", due),
			})
		}
	}

	return errs
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
