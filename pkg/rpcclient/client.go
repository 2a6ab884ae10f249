/*
Package rpcclient implements a dual-mode JSON-RPC client for Evrmore nodes.

One Client serves both blocking and suspend-style call sites: every Call
returns a *Result that is valid as an immediately consumable value (Wait)
and as a suspendable handle (Await). The execution strategy is picked per
call, either from a pinned mode (ForceSync/ForceAsync) or by probing the
call's context, and each strategy gets its own lazily established transport
session.
*/
package rpcclient

import (
	"context"
	"net/url"
	"time"

	"github.com/evr-dev/evr-go/pkg/config"
	"github.com/evr-dev/evr-go/pkg/evrrpc"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	defaultDialTimeout    = 4 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultMaxConnsAsync  = 16
)

// Client is the middleman for executing JSON-RPC calls against a remote
// Evrmore node. It is safe for use from multiple goroutines, blocking and
// suspend-style callers included, concurrently with an active notification
// client.
type Client struct {
	ctx      context.Context
	endpoint *url.URL
	opts     Options
	log      *zap.Logger
	conns    *connManager
	requestF func(context.Context, *session, *evrrpc.Request) (*evrrpc.Response, error)

	// pinned holds the forced mode, ModeAuto when unpinned.
	pinned *atomic.Int32

	latestReqID *atomic.Uint64
	// getNextRequestID returns an ID to be used for the subsequent request
	// creation. It is defined on Client so that testing code can override it
	// for more predictable request ID generation.
	getNextRequestID func() uint64
}

// Options defines options for the RPC client. All values are optional.
type Options struct {
	// User and Password ride as HTTP basic auth on every request.
	User     string
	Password string

	DialTimeout    time.Duration
	RequestTimeout time.Duration
	// MaxConnsPerHost limits the connection pool of the suspend-mode
	// session. The blocking session always runs one round-trip at a time.
	MaxConnsPerHost int

	// Logger accepts structured log output, zap.NewNop() when unset.
	Logger *zap.Logger
}

// New returns a Client ready to use. No connection is made at this point,
// sessions are established lazily by the first call of each mode. The
// endpoint may carry credentials in its userinfo part, explicit Options
// credentials take precedence.
func New(ctx context.Context, endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.User != nil && opts.User == "" {
		opts.User = u.User.Username()
		opts.Password, _ = u.User.Password()
		u.User = nil
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.MaxConnsPerHost <= 0 {
		opts.MaxConnsPerHost = defaultMaxConnsAsync
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cl := &Client{
		ctx:         ctx,
		endpoint:    u,
		opts:        opts,
		log:         opts.Logger,
		pinned:      atomic.NewInt32(int32(ModeAuto)),
		latestReqID: atomic.NewUint64(0),
	}
	cl.conns = newConnManager(u, opts, cl.log)
	cl.getNextRequestID = cl.getRequestID
	cl.requestF = cl.makeHTTPRequest
	return cl, nil
}

// NewFromConfig builds a Client from a resolved configuration.
func NewFromConfig(ctx context.Context, cfg config.Config, opts Options) (*Client, error) {
	if opts.User == "" {
		opts.User = cfg.User
		opts.Password = cfg.Password
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = cfg.Timeout
	}
	return New(ctx, cfg.Endpoint(), opts)
}

func (c *Client) getRequestID() uint64 {
	return c.latestReqID.Inc()
}

// Endpoint returns the client's RPC endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Call dispatches an RPC method with positional parameters and returns its
// Result. The execution strategy is the pinned mode if one is set,
// otherwise it is detected from ctx (see detectMode). In sync mode the
// round-trip happens before Call returns and the Result is settled, in
// async mode the round-trip runs in the background bound to ctx. A nil ctx
// is taken as the client's base context.
func (c *Client) Call(ctx context.Context, method string, params ...any) *Result {
	if ctx == nil {
		ctx = c.ctx
	}
	mode := c.resolveMode(ctx)
	s, err := c.conns.ensureSession(mode)
	if err != nil {
		return newSettledResult(nil, err)
	}
	incCounter(method)

	if mode == ModeSync {
		raw, err := c.invoke(ctx, s, method, params)
		return newSettledResult(raw, err)
	}
	res := newPendingResult()
	go func() {
		raw, err := c.invoke(ctx, s, method, params)
		res.settle(raw, err)
	}()
	return res
}

func (c *Client) resolveMode(ctx context.Context) Mode {
	if m := Mode(c.pinned.Load()); m != ModeAuto {
		return m
	}
	return detectMode(ctx)
}

// ForceSync pins the blocking strategy for all subsequent calls until
// ForceAsync or Reset.
func (c *Client) ForceSync() {
	c.pinned.Store(int32(ModeSync))
}

// ForceAsync pins the suspend strategy for all subsequent calls until
// ForceSync or Reset.
func (c *Client) ForceAsync() {
	c.pinned.Store(int32(ModeAsync))
}

// Reset clears the mode pin, returning to per-call detection, and discards
// both cached sessions so that the next call re-establishes cleanly in
// whichever mode is active then. This is how one Client is carried across a
// mode switch without leaking stale connections.
func (c *Client) Reset() {
	c.pinned.Store(int32(ModeAuto))
	c.conns.closeAll()
}

// Close releases both sessions. The Client stays usable, a subsequent call
// re-establishes its session lazily. Safe to call multiple times and from
// either mode's context.
func (c *Client) Close() {
	c.conns.closeAll()
}
