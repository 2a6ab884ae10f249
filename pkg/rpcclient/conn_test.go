package rpcclient

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConnManager(t *testing.T, endpoint string) *connManager {
	u, err := url.Parse(endpoint)
	require.NoError(t, err)
	return newConnManager(u, Options{
		DialTimeout:     time.Second,
		RequestTimeout:  time.Second,
		MaxConnsPerHost: 4,
	}, zap.NewNop())
}

func TestEnsureSessionCoalesces(t *testing.T) {
	srv, _ := startTestServer(t, nil)
	cm := newTestConnManager(t, srv.URL)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sessions = make(map[*session]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := cm.ensureSession(ModeSync)
			require.NoError(t, err)
			mu.Lock()
			sessions[s] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	// All concurrent first-use requests observed one establishment.
	require.Len(t, sessions, 1)
}

func TestSessionsAreIndependent(t *testing.T) {
	srv, _ := startTestServer(t, nil)
	cm := newTestConnManager(t, srv.URL)

	syncSess, err := cm.ensureSession(ModeSync)
	require.NoError(t, err)
	asyncSess, err := cm.ensureSession(ModeAsync)
	require.NoError(t, err)
	require.NotSame(t, syncSess, asyncSess)
	require.Equal(t, ModeSync, syncSess.mode)
	require.Equal(t, ModeAsync, asyncSess.mode)

	// Closing one never invalidates the other.
	cm.closeMode(ModeSync)
	require.False(t, cm.active(ModeSync))
	require.True(t, cm.active(ModeAsync))

	// The closed slot recreates lazily.
	again, err := cm.ensureSession(ModeSync)
	require.NoError(t, err)
	require.NotSame(t, syncSess, again)
}

func TestCloseIsIdempotent(t *testing.T) {
	srv, _ := startTestServer(t, nil)
	cm := newTestConnManager(t, srv.URL)

	_, err := cm.ensureSession(ModeSync)
	require.NoError(t, err)
	cm.closeAll()
	cm.closeAll()
	cm.closeMode(ModeAsync)
	require.False(t, cm.active(ModeSync))
	require.False(t, cm.active(ModeAsync))
}

func TestEstablishFailureLeavesSlotEmpty(t *testing.T) {
	cm := newTestConnManager(t, "http://127.0.0.1:1")
	cm.opts.DialTimeout = 100 * time.Millisecond

	_, err := cm.ensureSession(ModeAsync)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.False(t, cm.active(ModeAsync))
}
