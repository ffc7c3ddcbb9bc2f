package mcp

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/Bigsy/mcp-gateway/internal/mcptest/fakeserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPipeDriver wires a CommandDriver directly to an in-process fakeserver.Serve
// goroutine via io.Pipe, avoiding a subprocess for fast unit tests.
func newPipeDriver(t *testing.T, cfg fakeserver.Config) *CommandDriver {
	t.Helper()

	clientReader, serverWriter := io.Pipe()
	serverReader, clientWriter := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fakeserver.Serve(ctx, serverReader, serverWriter, cfg)
	}()
	t.Cleanup(func() {
		cancel()
		_ = clientWriter.Close()
		_ = clientReader.Close()
		<-done
	})

	transport := NewStdioTransport("echo", clientWriter, clientReader)
	return NewCommandDriver("echo", transport)
}

func TestCommandDriverListTools(t *testing.T) {
	driver := newPipeDriver(t, fakeserver.Config{
		Tools: []fakeserver.Tool{{Name: "noop", Description: "does nothing"}},
	})

	tools, err := driver.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "noop", tools[0].Name)
}

func TestCommandDriverCallTool(t *testing.T) {
	driver := newPipeDriver(t, fakeserver.Config{EchoToolCalls: true})

	result, err := driver.CallTool(context.Background(), "noop", map[string]any{"x": 1})
	require.NoError(t, err)

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(result, &parsed))
	require.Len(t, parsed.Content, 1)
	assert.JSONEq(t, `{"x":1}`, parsed.Content[0].Text)
}

func TestCommandDriverRemoteError(t *testing.T) {
	driver := newPipeDriver(t, fakeserver.Config{
		Errors: map[string]fakeserver.JSONRPCError{
			"tools/call": {Code: -32000, Message: "boom"},
		},
	})

	_, err := driver.CallTool(context.Background(), "noop", nil)
	require.Error(t, err)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, ErrRemote, upErr.Kind)
	assert.Equal(t, "boom", upErr.Message)
}

func TestCommandDriverTimeout(t *testing.T) {
	driver := newPipeDriver(t, fakeserver.Config{
		Delays: map[string]time.Duration{"tools/list": 200 * time.Millisecond},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := driver.ListTools(ctx)
	require.Error(t, err)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, ErrTimeout, upErr.Kind)
}

func TestCommandDriverMalformedResponse(t *testing.T) {
	driver := newPipeDriver(t, fakeserver.Config{Malformed: true})

	_, err := driver.ListTools(context.Background())
	require.Error(t, err)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, ErrProtocol, upErr.Kind)
}
