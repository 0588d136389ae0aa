package toolexec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgahlot/signalctx/internal/types"
)

func echoTool() (types.Tool, Handler) {
	return types.Tool{Name: "echo", Description: "Echo the text argument"},
		func(_ context.Context, args map[string]interface{}) (string, error) {
			text, _ := args["text"].(string)
			if text == "" {
				return "", InvalidInput("text is required", "Pass a non-empty text.")
			}
			return text, nil
		}
}

func TestRegistry_CallTool(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoTool()))

	got, err := r.CallTool(context.Background(), "echo", map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = r.CallTool(context.Background(), "echo", nil)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))

	_, err = r.CallTool(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoTool()))
	assert.Error(t, r.Register(echoTool()), "duplicate name")
	assert.Error(t, r.Register(types.Tool{}, func(context.Context, map[string]interface{}) (string, error) { return "", nil }))
	assert.Error(t, r.Register(types.Tool{Name: "nil"}, nil))
}

func TestRegistry_ListAndGet(t *testing.T) {
	r := NewRegistry(nil)
	noop := func(context.Context, map[string]interface{}) (string, error) { return "", nil }
	require.NoError(t, r.Register(types.Tool{Name: "b"}, noop))
	require.NoError(t, r.Register(types.Tool{Name: "a"}, noop))

	tools, err := r.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "b", tools[0].Name, "registration order is kept")

	tool, ok, err := r.GetTool(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", tool.Name)

	_, ok, err = r.GetTool(context.Background(), "zzz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_RecoversPanics(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(types.Tool{Name: "boom"}, func(context.Context, map[string]interface{}) (string, error) {
		panic("nil map")
	}))

	_, err := r.CallTool(context.Background(), "boom", nil)
	require.Error(t, err)
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestErrors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Unavailable("korrel8r unreachable", "Check the URL.", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "RESOURCE_UNAVAILABLE: korrel8r unreachable: dial tcp: connection refused", err.Error())

	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeInternal, AsError(errors.New("plain")).Code)
	assert.Same(t, err, AsError(err))

	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}
