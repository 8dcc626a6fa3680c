/*
This file contains utility functions for converting between float64 amounts and
SDK legacy decimals, used by the ledger's budget accounting.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// BudgetPrecision is the number of decimal places budget amounts are carried
// at. USD amounts beyond this precision are economically meaningless here.
const BudgetPrecision = 8

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// Float64ToLegacyDec converts a non-negative float64 into a LegacyDec,
// truncating to BudgetPrecision decimal places.
func Float64ToLegacyDec(amount float64) (sdkmath.LegacyDec, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return sdkmath.LegacyZeroDec(), ErrAmountNegative
	}
	if amount == 0 {
		return sdkmath.LegacyZeroDec(), nil
	}

	// String conversion avoids binary floating point artifacts.
	amountStr := fmt.Sprintf("%.*f", BudgetPrecision, amount)
	dec, err := sdkmath.LegacyNewDecFromStr(amountStr)
	if err != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	return dec, nil
}

// LegacyDecToFloat64 converts a LegacyDec back to float64, rejecting
// non-finite results.
func LegacyDecToFloat64(amount sdkmath.LegacyDec) (float64, error) {
	if amount.IsNil() {
		return 0, fmt.Errorf("%w: amount is nil", ErrConversionFailed)
	}
	result, err := amount.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}
	return result, nil
}
