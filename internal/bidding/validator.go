package bidding

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
)

// Increment tiers applied when the catalog feed supplies no explicit
// minimum increment for a vehicle. Bands follow auction-house convention:
// finer steps at low prices, coarser steps above.
var (
	tierOneCeiling = decimal.NewFromInt(1_000_000)
	tierTwoCeiling = decimal.NewFromInt(5_000_000)

	tierOneIncrement   = decimal.NewFromInt(10_000)
	tierTwoIncrement   = decimal.NewFromInt(50_000)
	tierThreeIncrement = decimal.NewFromInt(100_000)
)

// MinIncrement resolves the minimum bid increment for the current price.
// A positive catalog increment always wins; otherwise the tier table applies.
func MinIncrement(currentHighest, catalogIncrement decimal.Decimal) decimal.Decimal {
	if catalogIncrement.IsPositive() {
		return catalogIncrement
	}
	switch {
	case currentHighest.LessThan(tierOneCeiling):
		return tierOneIncrement
	case currentHighest.LessThan(tierTwoCeiling):
		return tierTwoIncrement
	default:
		return tierThreeIncrement
	}
}

// ValidateBid runs the synchronous pre-submission checks. It has no side
// effects and returns a typed validation error naming the violated rule.
func ValidateBid(amount, currentHighest, catalogIncrement decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive")
	}
	if amount.LessThanOrEqual(currentHighest) {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid must exceed current highest bid").
			WithDetails(map[string]any{
				"currentHighestBid": currentHighest.String(),
			})
	}
	increment := MinIncrement(currentHighest, catalogIncrement)
	if amount.Sub(currentHighest).LessThan(increment) {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum bid increment not met").
			WithDetails(map[string]any{
				"currentHighestBid": currentHighest.String(),
				"minIncrement":      increment.String(),
			})
	}
	return nil
}
