package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evr-dev/evr-go/pkg/evrrpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// startTestServer runs a mock RPC endpoint that answers every request via
// handler, echoing the request ID back as a real node does.
func startTestServer(t *testing.T, handler func(r *evrrpc.Request) (any, *evrrpc.Error)) (*httptest.Server, *atomic.Int64) {
	requests := atomic.NewInt64(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requests.Inc()
		var r evrrpc.Request
		require.NoError(t, json.NewDecoder(req.Body).Decode(&r))
		result, rpcErr := handler(&r)
		resp := map[string]any{
			"jsonrpc": evrrpc.JSONRPCVersion,
			"id":      r.ID,
			"result":  result,
			"error":   rpcErr,
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func newTestClient(t *testing.T, endpoint string) *Client {
	c, err := New(context.Background(), endpoint, Options{})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCallBothConsumptionStyles(t *testing.T) {
	srv, _ := startTestServer(t, func(r *evrrpc.Request) (any, *evrrpc.Error) {
		require.Equal(t, "getblockcount", r.Method)
		return 42, nil
	})
	c := newTestClient(t, srv.URL)

	// Blocking style: background context routes through the sync session.
	raw, err := c.Call(context.Background(), "getblockcount").Wait()
	require.NoError(t, err)
	require.Equal(t, "42", string(raw))
	require.True(t, c.conns.active(ModeSync))
	require.False(t, c.conns.active(ModeAsync))

	// Suspend style: a cancellable context routes through the async session.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	raw, err = c.Call(ctx, "getblockcount").Await(ctx)
	require.NoError(t, err)
	require.Equal(t, "42", string(raw))
	require.True(t, c.conns.active(ModeAsync))

	// Typed wrapper gives the same answer either way.
	n, err := c.GetBlockCount(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 42, n)
	n, err = c.GetBlockCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 42, n)
}

func TestRPCErrorBothConsumptionStyles(t *testing.T) {
	srv, _ := startTestServer(t, func(r *evrrpc.Request) (any, *evrrpc.Error) {
		return nil, evrrpc.NewError(evrrpc.InvalidAddressOrKeyCode, "Invalid parameter", "")
	})
	c := newTestClient(t, srv.URL)

	_, errWait := c.Call(context.Background(), "getblockcount").Wait()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, errAwait := c.Call(ctx, "getblockcount").Await(ctx)

	for _, err := range []error{errWait, errAwait} {
		var rpcErr *evrrpc.Error
		require.ErrorAs(t, err, &rpcErr)
		require.EqualValues(t, -5, rpcErr.Code)
		require.Equal(t, "Invalid parameter", rpcErr.Message)
	}
	require.Equal(t, errWait.Error(), errAwait.Error())
}

func TestModeDetection(t *testing.T) {
	require.Equal(t, ModeSync, detectMode(context.Background()))
	require.Equal(t, ModeSync, detectMode(context.TODO()))
	require.Equal(t, ModeSync, detectMode(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.Equal(t, ModeAsync, detectMode(ctx))

	tctx, tcancel := context.WithTimeout(context.Background(), time.Minute)
	defer tcancel()
	require.Equal(t, ModeAsync, detectMode(tctx))
}

func TestForcedModeOverridesDetection(t *testing.T) {
	srv, _ := startTestServer(t, func(r *evrrpc.Request) (any, *evrrpc.Error) {
		return 1, nil
	})
	c := newTestClient(t, srv.URL)

	var seen []Mode
	inner := c.requestF
	c.requestF = func(ctx context.Context, s *session, r *evrrpc.Request) (*evrrpc.Response, error) {
		seen = append(seen, s.mode)
		return inner(ctx, s, r)
	}

	// Pinned async, called in blocking style: ModeAsync must win and the
	// sync session must never be established.
	c.ForceAsync()
	_, err := c.Call(context.Background(), "getblockcount").Wait()
	require.NoError(t, err)
	require.Equal(t, []Mode{ModeAsync}, seen)
	require.False(t, c.conns.active(ModeSync))

	// Pinned sync, called with a cancellable context: the symmetric case.
	c.Reset()
	c.ForceSync()
	seen = nil
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = c.Call(ctx, "getblockcount").Await(ctx)
	require.NoError(t, err)
	require.Equal(t, []Mode{ModeSync}, seen)
	require.False(t, c.conns.active(ModeAsync))
}

func TestResetReestablishesCleanly(t *testing.T) {
	srv, _ := startTestServer(t, func(r *evrrpc.Request) (any, *evrrpc.Error) {
		return 7, nil
	})
	c := newTestClient(t, srv.URL)

	c.ForceAsync()
	_, err := c.Call(context.Background(), "getblockcount").Wait()
	require.NoError(t, err)
	require.True(t, c.conns.active(ModeAsync))

	c.Reset()
	require.False(t, c.conns.active(ModeSync))
	require.False(t, c.conns.active(ModeAsync))

	// A blocking-style call after Reset builds a fresh sync session rather
	// than reusing the discarded async one.
	raw, err := c.Call(context.Background(), "getblockcount").Wait()
	require.NoError(t, err)
	require.Equal(t, "7", string(raw))
	require.True(t, c.conns.active(ModeSync))
	require.False(t, c.conns.active(ModeAsync))
}

func TestConnectionErrorSurfacesAndRetries(t *testing.T) {
	// Nothing listens on port 1.
	c, err := New(context.Background(), "http://127.0.0.1:1", Options{DialTimeout: 100 * time.Millisecond})
	require.NoError(t, err)

	for i := 0; i < 2; i++ { // the failed slot must retry cleanly
		_, err = c.Call(context.Background(), "getblockcount").Wait()
		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
		require.False(t, c.conns.active(ModeSync))
	}
}

func TestAwaitCancellationLeavesSessionUsable(t *testing.T) {
	release := make(chan struct{})
	srv, _ := startTestServer(t, func(r *evrrpc.Request) (any, *evrrpc.Error) {
		if r.Method == "slow" {
			<-release
		}
		return "ok", nil
	})
	defer close(release)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	res := c.Call(ctx, "slow")
	cancel()
	_, err := res.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// Cancellation was local to that pending call, the shared session still
	// serves others.
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	raw, err := c.Call(ctx2, "fast").Await(ctx2)
	require.NoError(t, err)
	require.Equal(t, `"ok"`, string(raw))
}

func TestResponseIDCorrelation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Deliberately answer with a foreign ID.
		fmt.Fprintln(w, `{"jsonrpc": "2.0", "id": 9999, "result": 42, "error": null}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.Call(context.Background(), "getblockcount").Wait()
	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
	require.Contains(t, err.Error(), "ID mismatch")
}

func TestTypedWrappers(t *testing.T) {
	srv, _ := startTestServer(t, func(r *evrrpc.Request) (any, *evrrpc.Error) {
		switch r.Method {
		case "getbestblockhash":
			return "00000000000000000009", nil
		case "getblockchaininfo":
			return map[string]any{"chain": "main", "blocks": 100, "headers": 100, "bestblockhash": "beef", "difficulty": 1.5}, nil
		case "getassetdata":
			require.Equal(t, []any{"EVRCOIN"}, r.Params)
			return map[string]any{"name": "EVRCOIN", "amount": 1000.0, "units": 0, "reissuable": 1, "has_ipfs": 0}, nil
		case "uptime":
			return 90, nil
		case "getrawmempool":
			return []string{"aa", "bb"}, nil
		default:
			return nil, evrrpc.NewError(evrrpc.MethodNotFoundCode, "Method not found", "")
		}
	})
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	hash, err := c.GetBestBlockHash(ctx)
	require.NoError(t, err)
	require.Equal(t, "00000000000000000009", hash)

	info, err := c.GetBlockchainInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "main", info.Chain)
	require.EqualValues(t, 100, info.Blocks)

	asset, err := c.GetAssetData(ctx, "EVRCOIN")
	require.NoError(t, err)
	require.Equal(t, "EVRCOIN", asset.Name)
	require.EqualValues(t, 1000, asset.Amount)

	up, err := c.Uptime(ctx)
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, up)

	pool, err := c.GetRawMempool(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"aa", "bb"}, pool)

	_, err = c.GetBlockHash(ctx, 1)
	require.True(t, errors.Is(err, evrrpc.NewError(evrrpc.MethodNotFoundCode, "", "")))
}

func TestStress(t *testing.T) {
	srv, requests := startTestServer(t, func(r *evrrpc.Request) (any, *evrrpc.Error) {
		return 42, nil
	})
	c := newTestClient(t, srv.URL)

	res, err := c.Stress(context.Background(), "getblockcount", 20, 4)
	require.NoError(t, err)
	require.Equal(t, 20, res.Calls)
	require.Equal(t, 0, res.Failures)
	require.EqualValues(t, 20, requests.Load())
	require.Positive(t, res.CallsPerSec)
}
