package rpcclient

import (
	"context"
	"encoding/json"
)

// Result represents the outcome of a single RPC call. It is returned from
// Call immediately and can be consumed either by blocking (Wait) or by
// suspending until completion (Await), without declaring the style up
// front. The call resolves exactly once, the settled value or error is
// cached on the Result, so applying both styles to the same Result observes
// the identical outcome and never refetches from the network.
type Result struct {
	done  chan struct{}
	value json.RawMessage
	err   error
}

func newPendingResult() *Result {
	return &Result{done: make(chan struct{})}
}

func newSettledResult(value json.RawMessage, err error) *Result {
	r := newPendingResult()
	r.settle(value, err)
	return r
}

// settle records the outcome and releases all consumers. It must be called
// exactly once, by the goroutine that performed the call.
func (r *Result) settle(value json.RawMessage, err error) {
	r.value = value
	r.err = err
	close(r.done)
}

// Wait blocks the calling goroutine until the call completes and returns
// the raw result or the call's error.
func (r *Result) Wait() (json.RawMessage, error) {
	<-r.done
	return r.value, r.err
}

// Await yields until the call completes or ctx is cancelled. Cancellation
// abandons this wait only: the Result can still be consumed later and the
// shared session is unaffected. The in-flight request itself is bound to
// the context it was issued with.
func (r *Result) Await(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done returns a channel that is closed once the call has settled. It can
// be combined with other channels in a select.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// WaitInto blocks until completion and unmarshals the result into v.
func (r *Result) WaitInto(v any) error {
	raw, err := r.Wait()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// AwaitInto yields until completion and unmarshals the result into v.
func (r *Result) AwaitInto(ctx context.Context, v any) error {
	raw, err := r.Await(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
