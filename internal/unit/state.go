package unit

// State is the lifecycle position of a unit within one invocation.
//
//	Unconfigured → Configuring → Configured → OperationsRegistered → {OperationExecuting → OperationComplete}*
type State int

const (
	StateUnconfigured State = iota
	StateConfiguring
	StateConfigured
	StateOperationsRegistered
	StateOperationExecuting
	StateOperationComplete
)

var stateNames = map[State]string{
	StateUnconfigured:         "unconfigured",
	StateConfiguring:          "configuring",
	StateConfigured:           "configured",
	StateOperationsRegistered: "operations-registered",
	StateOperationExecuting:   "operation-executing",
	StateOperationComplete:    "operation-complete",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Evaluated reports whether configuration (including after-evaluation hooks) has finished.
func (s State) Evaluated() bool {
	return s >= StateOperationsRegistered
}

// State returns the unit's lifecycle state.
func (u *Unit) State() State { return u.state }

// SetState moves the unit to s. Only the executor adapter drives transitions.
func (u *Unit) SetState(s State) { u.state = s }
