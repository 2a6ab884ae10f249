package rpcclient

import (
	"fmt"
)

// ConnectionError is returned when a session to the RPC endpoint can not be
// established. It is transient as far as the client is concerned: the failed
// slot stays empty and the next call retries establishment from scratch.
type ConnectionError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %s", e.Endpoint, e.Err)
}

// Unwrap returns the underlying network error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransportError wraps a send/receive failure of one in-flight call. It is
// delivered to that call's consumer only and never affects the session other
// calls share.
type TransportError struct {
	// Op is the stage that failed, "send" or "receive".
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure (%s): %s", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
