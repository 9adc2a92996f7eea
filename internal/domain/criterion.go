package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidCriterion is returned when an alert criterion carries an unknown kind.
var ErrInvalidCriterion = errors.New("invalid alert criterion")

// CriterionKind selects how a registration-time alert criterion is interpreted.
type CriterionKind string

const (
	// CriterionPercentChange sets the target relative to the price observed at
	// registration: target = current * (1 + value/100).
	CriterionPercentChange CriterionKind = "percentChange"
	// CriterionDesiredPrice sets the target to the literal value.
	CriterionDesiredPrice CriterionKind = "desiredPrice"
)

// AlertCriterion is the rule used once, at registration, to compute a
// product's absolute target price. It is not persisted; the store only ever
// holds the resolved target.
type AlertCriterion struct {
	Kind  CriterionKind
	Value decimal.Decimal
}

// ResolveTarget computes the absolute target price from the criterion and the
// product's current price. Fails with ErrInvalidCriterion for an unknown kind.
func (c AlertCriterion) ResolveTarget(current decimal.Decimal) (decimal.Decimal, error) {
	switch c.Kind {
	case CriterionPercentChange:
		delta := c.Value.Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1))
		return current.Mul(delta), nil
	case CriterionDesiredPrice:
		return c.Value, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidCriterion, c.Kind)
	}
}
