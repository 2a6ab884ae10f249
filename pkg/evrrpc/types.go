/*
Package evrrpc contains a set of types used for JSON-RPC communication with
Evrmore servers. It defines basic request/response envelope types and the
node-level error object. Typed interpretation of results is left to the
callers, the envelope treats them as raw JSON.
*/
package evrrpc

import (
	"encoding/json"
)

const (
	// JSONRPCVersion is the JSON-RPC protocol version sent with every request.
	JSONRPCVersion = "2.0"
)

type (
	// Request represents a JSON-RPC request sent to an Evrmore node. Params
	// can be anything that marshals to a JSON array, Evrmore nodes expect
	// positional parameters only.
	Request struct {
		// JSONRPC is the protocol version, only valid when it contains JSONRPCVersion.
		JSONRPC string `json:"jsonrpc"`
		// Method is the method being called.
		Method string `json:"method"`
		// Params is a set of method-specific positional parameters.
		Params []any `json:"params"`
		// ID is an identifier associated with this request. The node echoes
		// it back in the response, which is how responses are correlated to
		// requests.
		ID uint64 `json:"id"`
	}

	// Header is a generic JSON-RPC response header (ID and JSON-RPC version).
	Header struct {
		ID      json.RawMessage `json:"id"`
		JSONRPC string          `json:"jsonrpc"`
	}

	// HeaderAndError adds an Error (that can be empty) to the Header, it's
	// used to construct type-specific responses.
	HeaderAndError struct {
		Header
		Error *Error `json:"error,omitempty"`
	}

	// Response represents a standard raw JSON-RPC response:
	// http://www.jsonrpc.org/specification#response_object.
	Response struct {
		HeaderAndError
		Result json.RawMessage `json:"result,omitempty"`
	}
)
