package provider

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolgate/toolgate/internal/domain"
)

func TestLocalProviderRegisterAndCall(t *testing.T) {
	p := NewLocalProvider("local")
	p.MustRegister(domain.ToolDescriptor{Name: "echo"},
		func(ctx context.Context, args domain.Params) (json.RawMessage, error) {
			text, _ := args.GetString("text")
			out, _ := json.Marshal(map[string]string{"text": text})
			return out, nil
		})

	tools, err := p.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name)
	assert.Equal(t, "local", tools[0].Server)

	args := domain.NewParams()
	args.Set("text", "hello")
	raw, err := p.CallTool(context.Background(), "echo", args)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hello"}`, string(raw))
}

func TestLocalProviderRejectsDuplicates(t *testing.T) {
	p := NewLocalProvider("local")
	exec := func(ctx context.Context, args domain.Params) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}

	require.NoError(t, p.Register(domain.ToolDescriptor{Name: "echo"}, exec))
	assert.Error(t, p.Register(domain.ToolDescriptor{Name: "echo"}, exec))
	assert.Error(t, p.Register(domain.ToolDescriptor{}, exec))
	assert.Error(t, p.Register(domain.ToolDescriptor{Name: "other"}, nil))
}

func TestLocalProviderUnknownTool(t *testing.T) {
	p := NewLocalProvider("local")

	_, err := p.CallTool(context.Background(), "missing", domain.NewParams())
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeToolNotAvailable))
}

func TestBuiltinProvider(t *testing.T) {
	p := NewBuiltinProvider()

	tools, err := p.ListTools(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tools)

	args := domain.NewParams()
	args.Set("text", "ping")
	raw, err := p.CallTool(context.Background(), "echo", args)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ping")
}
