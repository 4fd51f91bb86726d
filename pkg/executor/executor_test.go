package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websublime/vite-open-api-server-sub004/pkg/store"
)

func testContext() *Context {
	return &Context{
		Ctx:     context.Background(),
		Request: &Request{Method: "GET", Path: "/pets"},
		Store:   store.New(nil),
		Log:     slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)),
	}
}

func TestNormalizeRaw(t *testing.T) {
	resp := Normalize(Raw(map[string]any{"ok": true}), nil, nil)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, map[string]any{"ok": true}, resp.Data)
	assert.Nil(t, resp.Headers)
}

func TestNormalizeStatus(t *testing.T) {
	resp := Normalize(WithStatus(404, "missing"), nil, nil)
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "missing", resp.Data)
}

func TestNormalizeFull(t *testing.T) {
	headers := map[string]string{"X-Custom": "yes"}
	resp := Normalize(Full(201, "created", headers), nil, nil)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, "created", resp.Data)
	assert.Equal(t, "yes", resp.Headers["X-Custom"])
}

func TestStatusClamp(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   int
	}{
		{"too high", 999, 500},
		{"too low", 42, 500},
		{"zero", 0, 500},
		{"negative", -1, 500},
		{"valid 404", 404, 404},
		{"boundary 100", 100, 100},
		{"boundary 599", 599, 599},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Normalize(WithStatus(tt.status, "payload"), nil, nil)
			assert.Equal(t, tt.want, resp.Status)
			// Data survives clamping.
			assert.Equal(t, "payload", resp.Data)
		})
	}
}

func TestStatusClampPreservesHeaders(t *testing.T) {
	resp := Normalize(Full(999, "d", map[string]string{"X-Keep": "1"}), nil, nil)
	assert.Equal(t, 500, resp.Status)
	assert.Equal(t, "d", resp.Data)
	assert.Equal(t, "1", resp.Headers["X-Keep"])
}

func TestNormalizeUnknownKind(t *testing.T) {
	resp := Normalize(&Result{Kind: "mystery", Data: "v"}, nil, nil)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "v", resp.Data)
}

func TestStubPreseed(t *testing.T) {
	stub := &ResponseStub{Status: 201, Headers: map[string]string{"X-Stub": "a"}}
	resp := Normalize(Raw("body"), stub, nil)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, "a", resp.Headers["X-Stub"])

	// Result headers win over stub headers.
	resp = Normalize(Full(200, "b", map[string]string{"X-Stub": "b"}), stub, nil)
	assert.Equal(t, "b", resp.Headers["X-Stub"])
}

func TestExecuteError(t *testing.T) {
	resp := Execute(testContext(), "getPets", func(*Context) (*Result, error) {
		return nil, errors.New("boom")
	})
	require.Equal(t, 500, resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Handler execution failed", data["error"])
	assert.Equal(t, "boom", data["message"])
}

func TestExecutePanic(t *testing.T) {
	resp := Execute(testContext(), "getPets", func(*Context) (*Result, error) {
		panic("handler exploded")
	})
	require.Equal(t, 500, resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "Handler execution failed", data["error"])
	assert.Contains(t, data["message"], "handler exploded")
}

func TestExecuteSuccess(t *testing.T) {
	hctx := testContext()
	_, err := hctx.Store.Create("Pet", store.Record{"id": "p1", "name": "Rex"})
	require.NoError(t, err)

	resp := Execute(hctx, "listPets", func(c *Context) (*Result, error) {
		return Raw(c.Store.List("Pet")), nil
	})
	assert.Equal(t, 200, resp.Status)
	records := resp.Data.([]store.Record)
	require.Len(t, records, 1)
	assert.Equal(t, "Rex", records[0]["name"])
}

func TestExecutionErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ExecutionError{OperationID: "op", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "op")
}
