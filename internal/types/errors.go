package types

import "errors"

// Error taxonomy for the simulation core.
//
// ErrBudgetExceeded is an invariant guard: reward allocation pre-clamps payouts
// to the remaining budget, so seeing this error means a defect. The orchestrator
// treats it as fatal and halts the run.
//
// The rejection errors (ErrUnknownAsset, ErrPoolDeleted,
// ErrInvalidLifecycleTransition) are expected in normal operation when schedules
// reference pools deleted earlier in the same run. They are logged, counted in
// the step diagnostics, and otherwise no-ops.
var (
	ErrBudgetExceeded              = errors.New("budget exceeded")
	ErrInsufficientUnlockedBalance = errors.New("insufficient unlocked balance")
	ErrInvalidLockPeriod           = errors.New("invalid lock period")
	ErrUnknownAsset                = errors.New("unknown asset")
	ErrPoolDeleted                 = errors.New("pool deleted")
	ErrInvalidLifecycleTransition  = errors.New("invalid lifecycle transition")
)
