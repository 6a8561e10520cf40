package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakwip/mcp-gateway/internal/gateway/mcp"
)

func TestValidateMethod(t *testing.T) {
	allowed := []string{
		"initialize",
		"notifications/initialized",
		"tools/list",
		"tools/call",
		"prompts/list",
		"prompts/get",
		"resources/list",
		"resources/read",
	}
	for _, m := range allowed {
		assert.NoError(t, mcp.ValidateMethod(m), m)
	}

	t.Run("unknown method", func(t *testing.T) {
		err := mcp.ValidateMethod("tools/delete")
		require.Error(t, err)
		var rpcErr *mcp.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, mcp.CodeMethodNotFound, rpcErr.Code)
	})

	t.Run("empty method", func(t *testing.T) {
		var rpcErr *mcp.Error
		require.ErrorAs(t, mcp.ValidateMethod(""), &rpcErr)
		assert.Equal(t, mcp.CodeInvalidRequest, rpcErr.Code)
	})

	t.Run("oversized method name", func(t *testing.T) {
		var rpcErr *mcp.Error
		require.ErrorAs(t, mcp.ValidateMethod(strings.Repeat("a", 101)), &rpcErr)
		assert.Equal(t, mcp.CodeValidationError, rpcErr.Code)
	})

	t.Run("control characters never echoed", func(t *testing.T) {
		var rpcErr *mcp.Error
		require.ErrorAs(t, mcp.ValidateMethod("tools/\x00\x1bevil"), &rpcErr)
		assert.NotContains(t, rpcErr.Message, "\x00")
		assert.NotContains(t, rpcErr.Message, "\x1b")
	})
}

func TestRequestIsNotification(t *testing.T) {
	var req mcp.Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`), &req))
	assert.True(t, req.IsNotification())

	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`), &req))
	assert.False(t, req.IsNotification())
}

func TestResponseFraming(t *testing.T) {
	t.Run("result echoes id", func(t *testing.T) {
		resp := mcp.NewResult(json.RawMessage(`"abc"`), map[string]string{"ok": "yes"})
		b, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{"jsonrpc":"2.0","id":"abc","result":{"ok":"yes"}}`, string(b))
	})

	t.Run("missing id becomes null", func(t *testing.T) {
		resp := mcp.NewError(nil, mcp.CodeParseError, "parse error")
		b, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error"}}`, string(b))
	})
}

func TestRegistry(t *testing.T) {
	reg := mcp.NewRegistry(mcp.EchoTool{}, mcp.AddTool{})

	t.Run("lookup", func(t *testing.T) {
		tool, ok := reg.Get("echo")
		require.True(t, ok)
		assert.Equal(t, "tools:read", tool.RequiredScope())

		_, ok = reg.Get("nope")
		assert.False(t, ok)
	})

	t.Run("list is sorted and complete", func(t *testing.T) {
		infos := reg.List()
		require.Len(t, infos, 2)
		assert.Equal(t, "add", infos[0].Name)
		assert.Equal(t, "echo", infos[1].Name)
		assert.NotEmpty(t, infos[0].InputSchema)
	})
}

func TestEchoTool(t *testing.T) {
	ctx := context.Background()
	var tool mcp.EchoTool

	t.Run("round trip", func(t *testing.T) {
		res, err := tool.Call(ctx, json.RawMessage(`{"message":"hello"}`))
		require.NoError(t, err)
		require.Len(t, res.Content, 1)
		assert.Equal(t, "text", res.Content[0].Type)
		assert.Equal(t, "Echo: hello", res.Content[0].Text)
	})

	t.Run("control characters stripped", func(t *testing.T) {
		res, err := tool.Call(ctx, json.RawMessage(`{"message":"a\u0000b\u001bc"}`))
		require.NoError(t, err)
		assert.Equal(t, "Echo: abc", res.Content[0].Text)
	})

	t.Run("long message capped", func(t *testing.T) {
		msg := strings.Repeat("x", 5000)
		args, _ := json.Marshal(map[string]string{"message": msg})
		res, err := tool.Call(ctx, args)
		require.NoError(t, err)
		assert.Len(t, res.Content[0].Text, len("Echo: ")+1000)
	})

	t.Run("missing message", func(t *testing.T) {
		_, err := tool.Call(ctx, json.RawMessage(`{}`))
		var rpcErr *mcp.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, mcp.CodeInvalidParams, rpcErr.Code)
	})
}

func TestAddTool(t *testing.T) {
	ctx := context.Background()
	var tool mcp.AddTool

	t.Run("sum", func(t *testing.T) {
		res, err := tool.Call(ctx, json.RawMessage(`{"a":2,"b":3.5}`))
		require.NoError(t, err)
		assert.Equal(t, "Sum: 5.5", res.Content[0].Text)
	})

	t.Run("non-numeric input", func(t *testing.T) {
		_, err := tool.Call(ctx, json.RawMessage(`{"a":"two","b":3}`))
		var rpcErr *mcp.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, mcp.CodeInvalidParams, rpcErr.Code)
	})

	t.Run("missing operand", func(t *testing.T) {
		_, err := tool.Call(ctx, json.RawMessage(`{"a":2}`))
		var rpcErr *mcp.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, mcp.CodeInvalidParams, rpcErr.Code)
	})

	t.Run("overflow to infinity rejected", func(t *testing.T) {
		_, err := tool.Call(ctx, json.RawMessage(`{"a":1.7e308,"b":1.7e308}`))
		var rpcErr *mcp.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, mcp.CodeValidationError, rpcErr.Code)
	})
}
