package provider

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolgate/toolgate/internal/domain"
)

func TestCallToolArgumentsPreserveKeyOrder(t *testing.T) {
	args := domain.NewParams()
	args.Set("to", "bob@example.com")
	args.Set("cc", "carol@example.com")
	args.Set("bcc", "dave@example.com")
	args.Set("subject", "Hi")
	args.Set("body", "Hello")

	req := mcp.CallToolRequest{}
	req.Params.Name = "draft_email"
	req.Params.Arguments = args

	data, err := json.Marshal(req.Params)
	require.NoError(t, err)
	assert.Contains(t, string(data),
		`"arguments":{"to":"bob@example.com","cc":"carol@example.com","bcc":"dave@example.com","subject":"Hi","body":"Hello"}`,
		"wire bytes must carry keys in insertion order")
}
