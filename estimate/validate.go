package estimate

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalid marks caller-supplied estimates that are rejected before they
// touch any storage.
var ErrInvalid = errors.New("invalid estimate")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Expose decimal fields to numeric tags (gt, gte) as float64.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate checks structural validity (ids, kind, positive quantities,
// non-negative rates) and the totals invariant: TotalAmount must equal the
// sum of the line items' extended amounts.
func (e *Estimate) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	sum := decimal.Zero
	for i := range e.LineItems {
		li := &e.LineItems[i]
		if !li.ExtendedAmount.Equal(li.Quantity.Mul(li.UnitRate)) {
			return fmt.Errorf("%w: line %s extended amount does not match quantity*rate", ErrInvalid, li.ID)
		}
		sum = sum.Add(li.ExtendedAmount)
	}
	if !e.TotalAmount.Equal(sum) {
		return fmt.Errorf("%w: total %s does not match line items sum %s", ErrInvalid, e.TotalAmount, sum)
	}
	return nil
}
