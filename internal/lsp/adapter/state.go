package adapter

import "github.com/corvid-dev/lspcore/internal/lsp"

// State is an adapter's lifecycle state, a superset of lsp.ServerStatus
// that distinguishes "not yet launched" from "launched but not yet past
// the adapter's OnStart settling period".
type State int

const (
	StateUninitialized State = iota
	StateStarting
	StateInitialized
	StateReady
	StateShuttingDown
	StateStopped
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateInitialized:
		return "initialized"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting down"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateFor derives an adapter State from the underlying Server's
// ServerStatus. ServerStatusError maps to StateFailed and an unrecognized
// status to StateUninitialized. StateInitialized (OnStart's settling
// window, strictly between Starting and Ready) is never returned here,
// since ServerStatus has no value for it.
func StateFor(status lsp.ServerStatus) State {
	switch status {
	case lsp.ServerStatusStopped:
		return StateStopped
	case lsp.ServerStatusStarting, lsp.ServerStatusInitializing:
		return StateStarting
	case lsp.ServerStatusReady:
		return StateReady
	case lsp.ServerStatusShuttingDown:
		return StateShuttingDown
	case lsp.ServerStatusError:
		return StateFailed
	default:
		return StateUninitialized
	}
}
