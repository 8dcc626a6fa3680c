package utils

import (
	"math"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestFloat64ToLegacyDec(t *testing.T) {
	dec, err := Float64ToLegacyDec(1234.56789)
	require.NoError(t, err)
	require.Equal(t, "1234.567890000000000000", dec.String())

	zero, err := Float64ToLegacyDec(0)
	require.NoError(t, err)
	require.True(t, zero.IsZero())

	// 0.1 is not exactly representable in binary; string conversion keeps the
	// decimal value instead of the float artifact.
	tenth, err := Float64ToLegacyDec(0.1)
	require.NoError(t, err)
	require.Equal(t, "0.100000000000000000", tenth.String())

	_, err = Float64ToLegacyDec(-1)
	require.ErrorIs(t, err, ErrAmountNegative)
	_, err = Float64ToLegacyDec(math.NaN())
	require.ErrorIs(t, err, ErrNotFinite)
	_, err = Float64ToLegacyDec(math.Inf(1))
	require.ErrorIs(t, err, ErrNotFinite)
}

func TestLegacyDecToFloat64(t *testing.T) {
	dec := sdkmath.LegacyMustNewDecFromStr("42.5")
	value, err := LegacyDecToFloat64(dec)
	require.NoError(t, err)
	require.InDelta(t, 42.5, value, 1e-12)

	_, err = LegacyDecToFloat64(sdkmath.LegacyDec{})
	require.ErrorIs(t, err, ErrConversionFailed)
}

func TestRoundTripTruncatesToBudgetPrecision(t *testing.T) {
	dec, err := Float64ToLegacyDec(1.123456789123)
	require.NoError(t, err)
	value, err := LegacyDecToFloat64(dec)
	require.NoError(t, err)
	require.InDelta(t, 1.12345679, value, 1e-9)
}
