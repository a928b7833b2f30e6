package bidding

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
)

func yen(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestMinIncrementTiers(t *testing.T) {
	cases := []struct {
		name    string
		highest int64
		want    int64
	}{
		{"low band", 500_000, 10_000},
		{"just below mid band", 999_999, 10_000},
		{"mid band", 1_000_000, 50_000},
		{"just below high band", 4_999_999, 50_000},
		{"high band", 5_000_000, 100_000},
		{"luxury", 12_000_000, 100_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MinIncrement(yen(tc.highest), decimal.Zero)
			assert.True(t, got.Equal(yen(tc.want)), "got %s, want %d", got, tc.want)
		})
	}
}

func TestMinIncrementCatalogOverride(t *testing.T) {
	got := MinIncrement(yen(500_000), yen(25_000))
	assert.True(t, got.Equal(yen(25_000)))
}

func TestValidateBidRejectsNonPositiveAmount(t *testing.T) {
	err := ValidateBid(decimal.Zero, yen(1_000_000), decimal.Zero)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestValidateBidRejectsAmountAtOrBelowHighest(t *testing.T) {
	err := ValidateBid(yen(1_000_000), yen(1_000_000), yen(50_000))
	require.Error(t, err)

	err = ValidateBid(yen(900_000), yen(1_000_000), yen(50_000))
	require.Error(t, err)
}

func TestValidateBidRejectsIncrementViolation(t *testing.T) {
	// highest 1,000,000 with increment 50,000: 1,020,000 is too small a step
	err := ValidateBid(yen(1_020_000), yen(1_000_000), yen(50_000))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Message(), "increment")
}

func TestValidateBidAcceptsExactIncrement(t *testing.T) {
	require.NoError(t, ValidateBid(yen(1_050_000), yen(1_000_000), yen(50_000)))
	require.NoError(t, ValidateBid(yen(2_600_000), yen(2_500_000), decimal.Zero))
}
