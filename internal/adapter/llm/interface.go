// Package llm provides the client used for secondary language-model calls
// (result summarization). The wire format is OpenAI-compatible chat
// completions.
package llm

import "context"

// Client performs one short completion.
type Client interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
