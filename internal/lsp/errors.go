package lsp

import (
	"errors"
	"fmt"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
	// ErrTransport reports broken framing; the session cannot continue.
	ErrTransport = errors.New("lsp transport error")
	// ErrClosed is returned to server-to-client calls once the session ends.
	ErrClosed = errors.New("lsp session closed")
)

// JSON-RPC and LSP error codes.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeRequestCancelled = -32800
	CodeContentModified  = -32801
)

// ProtocolError is a well-framed message whose body is not a usable
// JSON-RPC message. It is logged and the message dropped.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("lsp protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func errInvalidParams(err error) *rpcError {
	return &rpcError{Code: CodeInvalidParams, Message: "invalid params: " + err.Error()}
}

var errContentModified = &rpcError{Code: CodeContentModified, Message: "content modified"}
