package rpcclient

import (
	"context"
)

// Mode selects the strategy used to execute RPC calls.
type Mode int32

const (
	// ModeAuto resolves the strategy per call by probing the call's context.
	ModeAuto Mode = iota
	// ModeSync performs the whole round-trip on the calling goroutine, the
	// returned Result is already settled.
	ModeSync
	// ModeAsync dispatches the round-trip in the background, the returned
	// Result settles once the response arrives.
	ModeAsync
)

// String implements the Stringer interface.
func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return "auto"
	}
}

// detectMode probes the call site's execution style. A context that can be
// cancelled marks a suspend-style caller and selects ModeAsync, a context
// without a Done channel (Background, TODO) marks a blocking caller. The
// probe is side-effect-free and never fails, anything ambiguous resolves to
// ModeSync. Callers that want a fixed answer pin the mode on the Client
// instead.
func detectMode(ctx context.Context) Mode {
	if ctx != nil && ctx.Done() != nil {
		return ModeAsync
	}
	return ModeSync
}
