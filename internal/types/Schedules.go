package types

// AdminActionType enumerates the lifecycle operations an admin schedule can
// request.
type AdminActionType string

const (
	AdminActivate AdminActionType = "activate"
	AdminPause    AdminActionType = "pause"
	AdminResume   AdminActionType = "resume"
	AdminDelete   AdminActionType = "delete"
)

// AdminAction is one scheduled lifecycle operation against a pool.
type AdminAction struct {
	Action AdminActionType `json:"action" yaml:"action"`
	Asset  Asset           `json:"asset" yaml:"asset"`
}

// Schedule holds the three timestep-keyed external event tables. Schedules are
// read-only: the orchestrator consults each table once per matching timestep
// and never mutates them. Entries referencing pools that were deleted earlier
// in the run are rejected with a diagnostic, not an error.
type Schedule struct {
	// Replenishments adds to a pool's allocated budget on the given day.
	Replenishments map[int]map[Asset]float64 `json:"replenishments" yaml:"replenishments"`

	// TargetYields sets a pool's target APY effective from the given day forward.
	TargetYields map[int]map[Asset]float64 `json:"target_yields" yaml:"target_yields"`

	// AdminActions applies lifecycle transitions on the given day, in slice order.
	AdminActions map[int][]AdminAction `json:"admin_actions" yaml:"admin_actions"`
}

// ReplenishmentsAt returns the budget grants due at the timestep, nil if none.
func (s Schedule) ReplenishmentsAt(timestep int) map[Asset]float64 {
	if s.Replenishments == nil {
		return nil
	}
	return s.Replenishments[timestep]
}

// TargetYieldsAt returns the yield-target changes due at the timestep, nil if none.
func (s Schedule) TargetYieldsAt(timestep int) map[Asset]float64 {
	if s.TargetYields == nil {
		return nil
	}
	return s.TargetYields[timestep]
}

// AdminActionsAt returns the lifecycle actions due at the timestep, nil if none.
func (s Schedule) AdminActionsAt(timestep int) []AdminAction {
	if s.AdminActions == nil {
		return nil
	}
	return s.AdminActions[timestep]
}
