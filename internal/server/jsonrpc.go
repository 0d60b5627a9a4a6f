package server

import (
	"encoding/json"
	"errors"

	"github.com/vk/typedrpc/internal/bind"
	"github.com/vk/typedrpc/internal/call"
	"github.com/vk/typedrpc/internal/registry"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// request is one incoming JSON-RPC 2.0 call. A nil ID marks a notification:
// the caller expects no response, success or failure.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *errorObject    `json:"error,omitempty"`
}

type errorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func errorResponse(id json.RawMessage, code int, message string) response {
	return response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errorObject{Code: code, Message: message},
	}
}

// errorCode maps a dispatch failure onto its JSON-RPC error code: unknown
// method, bad call (binding failures), or broken procedure / server side.
func errorCode(err error) int {
	if errors.Is(err, registry.ErrNotFound) {
		return codeMethodNotFound
	}
	var appErr *bind.ApplicationError
	var tooLarge *call.ResponseTooLargeError
	if errors.As(err, &appErr) || errors.As(err, &tooLarge) {
		return codeInternalError
	}
	return codeInvalidParams
}
