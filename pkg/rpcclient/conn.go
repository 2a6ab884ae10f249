package rpcclient

import (
	"net"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
)

// session is an open transport handle bound to exactly one mode. The two
// sessions of a client are independent, closing one never invalidates the
// other.
type session struct {
	mode Mode
	cli  *http.Client
}

func (s *session) close() {
	s.cli.CloseIdleConnections()
}

// connManager lazily creates and caches one session per mode. Establishment
// of a session is guarded by the manager lock, so concurrent first-use
// requests for the same mode coalesce into a single connection attempt.
type connManager struct {
	endpoint *url.URL
	opts     Options
	log      *zap.Logger

	mu sync.Mutex
	// Session slots indexed by sessionSlot(mode).
	sessions [2]*session
}

func sessionSlot(mode Mode) int {
	if mode == ModeAsync {
		return 1
	}
	return 0
}

func newConnManager(endpoint *url.URL, opts Options, log *zap.Logger) *connManager {
	return &connManager{
		endpoint: endpoint,
		opts:     opts,
		log:      log,
	}
}

// ensureSession returns the cached session for the mode, establishing it on
// the first call. On establishment failure the slot is left empty, so a
// later call retries cleanly.
func (cm *connManager) ensureSession(mode Mode) (*session, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	slot := sessionSlot(mode)
	if s := cm.sessions[slot]; s != nil {
		return s, nil
	}
	s, err := cm.establish(mode)
	if err != nil {
		return nil, err
	}
	cm.sessions[slot] = s
	cm.log.Debug("session established",
		zap.Stringer("mode", mode),
		zap.String("endpoint", cm.endpoint.String()))
	return s, nil
}

// establish probes endpoint reachability and builds the HTTP client for the
// mode. The blocking session serves one round-trip at a time, the suspend
// session pools connections for concurrent in-flight calls.
func (cm *connManager) establish(mode Mode) (*session, error) {
	conn, err := net.DialTimeout("tcp", cm.endpoint.Host, cm.opts.DialTimeout)
	if err != nil {
		return nil, &ConnectionError{Endpoint: cm.endpoint.String(), Err: err}
	}
	_ = conn.Close()

	maxConns := 1
	if mode == ModeAsync {
		maxConns = cm.opts.MaxConnsPerHost
	}
	return &session{
		mode: mode,
		cli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cm.opts.DialTimeout,
				}).DialContext,
				MaxConnsPerHost: maxConns,
			},
			Timeout: cm.opts.RequestTimeout,
		},
	}, nil
}

// closeMode releases the session of one mode. Safe to call multiple times.
func (cm *connManager) closeMode(mode Mode) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.dropLocked(sessionSlot(mode))
}

// closeAll releases both sessions. Safe to call multiple times and from
// either mode's context, subsequent ensureSession calls recreate lazily.
func (cm *connManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for slot := range cm.sessions {
		cm.dropLocked(slot)
	}
}

func (cm *connManager) dropLocked(slot int) {
	if s := cm.sessions[slot]; s != nil {
		s.close()
		cm.sessions[slot] = nil
	}
}

// active reports which session slots currently hold a live session, it's
// used by tests and diagnostics.
func (cm *connManager) active(mode Mode) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.sessions[sessionSlot(mode)] != nil
}
