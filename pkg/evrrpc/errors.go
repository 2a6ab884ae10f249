package evrrpc

import (
	"fmt"
)

// Error object is returned by an Evrmore node in case of a semantic failure
// of an RPC call. It carries the node's numeric code and a human-readable
// message. Codes follow the Bitcoin Core convention.
type Error struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Error codes the nodes are known to return.
const (
	// InternalErrorCode is returned for internal node errors.
	InternalErrorCode = -32603
	// MethodNotFoundCode is returned for unknown methods.
	MethodNotFoundCode = -32601
	// InvalidAddressOrKeyCode is returned for invalid addresses or keys.
	InvalidAddressOrKeyCode = -5
	// InvalidParameterCode is returned for invalid, missing or duplicate
	// parameters.
	InvalidParameterCode = -8
	// WalletErrorCode is returned for unspecified wallet problems.
	WalletErrorCode = -4
)

// NewError is an Error constructor that takes Error contents from its
// parameters.
func NewError(code int64, message string, data string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("RPC error: %s (%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("RPC error: %s (%d) - %s", e.Message, e.Code, e.Data)
}

// Is denotes whether the error matches the target one.
func (e *Error) Is(target error) bool {
	clTarget, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == clTarget.Code
}
