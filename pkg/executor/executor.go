// Package executor invokes user-supplied operation handlers and normalizes
// whatever they return into a single HTTP response descriptor. Handler
// failures are contained here: a panicking or erroring handler produces a
// 500 response and never crashes dispatch for other routes.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/websublime/vite-open-api-server-sub004/pkg/faker"
	"github.com/websublime/vite-open-api-server-sub004/pkg/security"
	"github.com/websublime/vite-open-api-server-sub004/pkg/store"
)

// ResultKind discriminates the three handler return shapes.
type ResultKind string

const (
	// KindRaw is body only; the response status defaults to 200.
	KindRaw ResultKind = "raw"
	// KindStatus is body plus an explicit status code.
	KindStatus ResultKind = "status"
	// KindFull is body, status, and response headers.
	KindFull ResultKind = "full"
)

// Result is the discriminated handler return value.
type Result struct {
	Kind    ResultKind
	Status  int
	Data    any
	Headers map[string]string
}

// Raw wraps a body-only return (implies status 200).
func Raw(data any) *Result {
	return &Result{Kind: KindRaw, Data: data}
}

// WithStatus wraps a body plus explicit status.
func WithStatus(status int, data any) *Result {
	return &Result{Kind: KindStatus, Status: status, Data: data}
}

// Full wraps body, status, and response headers.
func Full(status int, data any, headers map[string]string) *Result {
	return &Result{Kind: KindFull, Status: status, Data: data, Headers: headers}
}

// Response is the normalized response descriptor all three result shapes
// collapse into.
type Response struct {
	Status  int               `json:"status"`
	Data    any               `json:"data"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Request exposes the inbound request to a handler.
type Request struct {
	Method     string
	Path       string
	PathParams map[string]string
	Query      map[string]string
	Headers    map[string]string
	Body       any
}

// ResponseStub lets a handler pre-seed response metadata before returning.
// A raw result picks up a pre-seeded status; stub headers are merged under
// any headers the result itself carries.
type ResponseStub struct {
	Status  int
	Headers map[string]string
}

// Context is the capability surface a handler runs against.
type Context struct {
	Ctx      context.Context
	Request  *Request
	Response *ResponseStub
	Store    *store.Store
	Faker    *faker.Faker
	Security *security.Context
	Log      *slog.Logger
}

// HandlerFunc is the signature of an operation handler.
type HandlerFunc func(ctx *Context) (*Result, error)

// ExecutionError marks a failure that originated inside user handler code,
// so callers can distinguish it from the executor's own errors without
// string-matching.
type ExecutionError struct {
	OperationID string
	Cause       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("handler for operation %q failed: %v", e.OperationID, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// failureMessage is the stable error marker in contained 500 responses.
const failureMessage = "Handler execution failed"

// Execute runs a handler and always returns a usable response. Panics and
// returned errors are converted to a 500 response carrying the failure
// message; they are logged but never propagated to the caller.
func Execute(hctx *Context, operationID string, fn HandlerFunc) (resp *Response) {
	log := hctx.Log
	if log == nil {
		log = slog.Default()
	}

	defer func() {
		if r := recover(); r != nil {
			err := &ExecutionError{OperationID: operationID, Cause: fmt.Errorf("panic: %v", r)}
			log.Error("handler panicked", "operation", operationID, "error", err.Cause)
			resp = failureResponse(r)
		}
	}()

	if hctx.Response == nil {
		hctx.Response = &ResponseStub{}
	}

	result, err := fn(hctx)
	if err != nil {
		execErr := &ExecutionError{OperationID: operationID, Cause: err}
		log.Error("handler failed", "operation", operationID, "error", err)
		return failureResponse(execErr.Cause)
	}

	return Normalize(result, hctx.Response, log)
}

// Normalize collapses the three result shapes into a Response. The switch
// has defined behavior for unknown kinds (treat as raw) because results
// produced from JS modules cross a dynamic boundary and cannot be
// exhaustively guaranteed. An explicit status outside 100-599 is downgraded
// to a warning and substituted with 500, preserving data and headers.
func Normalize(result *Result, stub *ResponseStub, log *slog.Logger) *Response {
	if log == nil {
		log = slog.Default()
	}
	if stub == nil {
		stub = &ResponseStub{}
	}
	if result == nil {
		result = Raw(nil)
	}

	resp := &Response{Data: result.Data}

	switch result.Kind {
	case KindRaw:
		resp.Status = 200
		if stub.Status != 0 {
			resp.Status = clampStatus(stub.Status, log)
		}
	case KindStatus:
		resp.Status = clampStatus(result.Status, log)
	case KindFull:
		resp.Status = clampStatus(result.Status, log)
		resp.Headers = result.Headers
	default:
		resp.Status = 200
	}

	resp.Headers = mergeHeaders(stub.Headers, resp.Headers)
	return resp
}

// clampStatus validates an explicit status code, substituting 500 for
// anything outside the inclusive 100-599 range.
func clampStatus(status int, log *slog.Logger) int {
	if status < 100 || status > 599 {
		log.Warn("handler returned invalid status code, substituting 500", "status", status)
		return 500
	}
	return status
}

// mergeHeaders overlays result headers onto stub headers; result wins on
// conflicts.
func mergeHeaders(stub, result map[string]string) map[string]string {
	if len(stub) == 0 {
		return result
	}
	merged := make(map[string]string, len(stub)+len(result))
	for k, v := range stub {
		merged[k] = v
	}
	for k, v := range result {
		merged[k] = v
	}
	return merged
}

// failureResponse builds the contained 500 response for a failed handler.
func failureResponse(cause any) *Response {
	msg := fmt.Sprintf("%v", cause)
	if err, ok := cause.(error); ok {
		msg = err.Error()
	}
	return &Response{
		Status: 500,
		Data: map[string]any{
			"error":   failureMessage,
			"message": msg,
		},
	}
}
