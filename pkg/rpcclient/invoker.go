package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/evr-dev/evr-go/pkg/evrrpc"
)

// invoke runs one request/response exchange over the given session. A
// node-level error object is unwrapped into *evrrpc.Error, transport
// failures come back as *TransportError. The response is correlated to the
// request by ID, a mismatched ID is treated as a transport failure since it
// means the answer belongs to someone else.
func (c *Client) invoke(ctx context.Context, s *session, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	var r = evrrpc.Request{
		JSONRPC: evrrpc.JSONRPCVersion,
		Method:  method,
		Params:  params,
		ID:      c.getNextRequestID(),
	}

	raw, err := c.requestF(ctx, s, &r)
	if err != nil {
		return nil, err
	}
	if raw.Error != nil {
		return nil, raw.Error
	}
	if err := checkID(raw, r.ID); err != nil {
		return nil, &TransportError{Op: "receive", Err: err}
	}
	if raw.Result == nil {
		return nil, errors.New("no result returned")
	}
	return raw.Result, nil
}

func checkID(resp *evrrpc.Response, want uint64) error {
	var got uint64
	if err := json.Unmarshal(resp.ID, &got); err != nil {
		return fmt.Errorf("unparseable response ID %s: %w", string(resp.ID), err)
	}
	if got != want {
		return fmt.Errorf("response ID mismatch: expected %d, got %d", want, got)
	}
	return nil
}

// makeHTTPRequest is the default requestF. Tests override requestF to
// substitute the transport.
func (c *Client) makeHTTPRequest(ctx context.Context, s *session, r *evrrpc.Request) (*evrrpc.Response, error) {
	var (
		buf = new(bytes.Buffer)
		raw = new(evrrpc.Response)
	)

	if err := json.NewEncoder(buf).Encode(r); err != nil {
		return nil, fmt.Errorf("unable to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.User != "" {
		req.SetBasicAuth(c.opts.User, c.opts.Password)
	}
	resp, err := s.cli.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	// The node might send a proper JSON error body anyway, so look there
	// first: if it parses, it has more relevant data than the HTTP code.
	err = json.NewDecoder(resp.Body).Decode(raw)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			err = fmt.Errorf("HTTP %d/%s", resp.StatusCode, http.StatusText(resp.StatusCode))
		} else {
			err = fmt.Errorf("JSON decoding: %w", err)
		}
		return nil, &TransportError{Op: "receive", Err: err}
	}
	return raw, nil
}
