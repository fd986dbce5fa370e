// Package normalize converts heterogeneous raw provider payloads into the
// uniform {content, isError} shape presented to the user. Normalization
// never fails outright and never produces empty content.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/toolgate/toolgate/internal/adapter/llm"
	"github.com/toolgate/toolgate/internal/category"
	"github.com/toolgate/toolgate/internal/domain"
)

const (
	// maxListedItems caps deterministic bulk listings.
	maxListedItems = 10

	// summarizeItemThreshold is the item count above which the secondary
	// language-model summary is attempted.
	summarizeItemThreshold = 5

	// summarizeTimeout bounds the secondary call; the deterministic
	// fallback takes over when it is exceeded.
	summarizeTimeout = 8 * time.Second

	emptyResultMessage = "The tool completed but returned no content."
)

// Normalizer shapes raw results. The llm client is optional; without it
// bulk results fall back to deterministic truncation directly.
type Normalizer struct {
	llm llm.Client
}

// New creates a normalizer.
func New(client llm.Client) *Normalizer {
	return &Normalizer{llm: client}
}

// Normalize reduces a raw payload to presentable content. It never returns
// an error and never returns empty content.
func (n *Normalizer) Normalize(ctx context.Context, toolName string, raw json.RawMessage) domain.NormalizedResult {
	payload, ok := decode(raw)
	if !ok {
		// Malformed JSON still has to surface something readable.
		return textResult(strings.TrimSpace(string(raw)), false)
	}

	if res, handled := providerError(payload); handled {
		return res
	}

	var result domain.NormalizedResult
	switch category.Classify(toolName) {
	case category.Create:
		result = n.formatCreate(toolName, payload)
	case category.Search:
		result = n.formatSearch(ctx, toolName, payload)
	case category.Communicate:
		result = n.formatCommunicate(payload)
	case category.Upload:
		result = n.formatUpload(payload)
	default:
		result = formatGeneric(payload)
	}

	if len(result.Content) == 0 || allEmpty(result.Content) {
		return textResult(emptyResultMessage, result.IsError)
	}
	return result
}

func decode(raw json.RawMessage) (interface{}, bool) {
	if len(raw) == 0 {
		return nil, true
	}
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// providerError propagates payloads that already signal an error verbatim.
func providerError(payload interface{}) (domain.NormalizedResult, bool) {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return domain.NormalizedResult{}, false
	}

	if isErr, ok := obj["isError"].(bool); ok && isErr {
		text := flattenContent(obj["content"])
		if text == "" {
			text = "The tool reported an error without details."
		}
		return textResult(text, true), true
	}

	if errVal, ok := obj["error"]; ok && errVal != nil {
		switch e := errVal.(type) {
		case string:
			if e != "" {
				return textResult(e, true), true
			}
		case map[string]interface{}:
			if msg, _ := e["message"].(string); msg != "" {
				return textResult(msg, true), true
			}
			data, _ := json.Marshal(e)
			return textResult(string(data), true), true
		}
	}
	return domain.NormalizedResult{}, false
}

// formatCreate produces a short human-readable confirmation rather than
// echoing structured data.
func (n *Normalizer) formatCreate(toolName string, payload interface{}) domain.NormalizedResult {
	verb := "Created"
	name := strings.ToLower(toolName)
	switch {
	case strings.Contains(name, "send"):
		verb = "Sent"
	case strings.Contains(name, "schedule"):
		verb = "Scheduled"
	case strings.Contains(name, "draft"):
		verb = "Created a draft"
	}

	noun := ""
	switch {
	case strings.Contains(name, "email") || strings.Contains(name, "mail"):
		noun = "email"
	case strings.Contains(name, "event") || strings.Contains(name, "calendar") || strings.Contains(name, "meeting"):
		noun = "event"
	case strings.Contains(name, "message"):
		noun = "message"
	}

	parts := []string{verb}
	if noun != "" && verb != "Created a draft" {
		parts = append(parts, "the "+noun)
	}
	sentence := strings.Join(parts, " ")

	if subject := findString(payload, "subject", "title", "name", "summary"); subject != "" {
		sentence += fmt.Sprintf(" with subject %q", subject)
	}
	if id := findString(payload, "id", "draft_id", "event_id", "message_id"); id != "" {
		sentence += fmt.Sprintf(" (id %s)", id)
	}
	return textResult(sentence+".", false)
}

// formatSearch digests bulk results: cap the listing, and summarize via the
// secondary model when the result set is large. The deterministic listing
// is the fallback for every summarizer failure.
func (n *Normalizer) formatSearch(ctx context.Context, toolName string, payload interface{}) domain.NormalizedResult {
	items := findItems(payload)
	if items == nil {
		return formatGeneric(payload)
	}
	if len(items) == 0 {
		return textResult("No matching items were found.", false)
	}

	if n.llm != nil && len(items) > summarizeItemThreshold {
		if summary, err := n.summarize(ctx, toolName, items); err == nil && summary != "" {
			return textResult(summary, false)
		} else if err != nil {
			log.Printf("WARN: result summarization failed for %s, falling back to listing: %v", toolName, err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d items", len(items))
	if len(items) > maxListedItems {
		fmt.Fprintf(&b, " (showing first %d)", maxListedItems)
	}
	b.WriteString(":")
	for i, item := range items {
		if i == maxListedItems {
			break
		}
		b.WriteString("\n- ")
		b.WriteString(itemLine(item))
	}
	return textResult(b.String(), false)
}

func (n *Normalizer) summarize(ctx context.Context, toolName string, items []interface{}) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	sample := items
	if len(sample) > 20 {
		sample = sample[:20]
	}
	data, err := json.Marshal(sample)
	if err != nil {
		return "", fmt.Errorf("failed to marshal items: %w", err)
	}

	system := "You summarize tool results for a chat user. Reply with two or three plain sentences, no markdown."
	prompt := fmt.Sprintf("The tool %s returned %d items. Summarize what was found:\n%s", toolName, len(items), string(data))
	return n.llm.Complete(sctx, system, prompt)
}

func (n *Normalizer) formatCommunicate(payload interface{}) domain.NormalizedResult {
	sentence := "Message sent."
	if id := findString(payload, "message_id", "id"); id != "" {
		sentence = fmt.Sprintf("Message sent (id %s).", id)
	}
	return textResult(sentence, false)
}

func (n *Normalizer) formatUpload(payload interface{}) domain.NormalizedResult {
	if u := findString(payload, "url", "file_url", "link"); u != "" {
		return textResult("Uploaded the file: "+u, false)
	}
	if name := findString(payload, "name", "file_name", "filename"); name != "" {
		return textResult(fmt.Sprintf("Uploaded %s.", name), false)
	}
	return textResult("Uploaded the file.", false)
}

// formatGeneric is the universal fallback: strip known technical wrappers
// and return whatever remains as readable text, so unrecognized tools stay
// useful.
func formatGeneric(payload interface{}) domain.NormalizedResult {
	text := renderReadable(unwrap(payload))
	return textResult(text, false)
}

// unwrap peels metadata envelopes (content, result, data, output,
// response) until a presentable value remains.
func unwrap(payload interface{}) interface{} {
	for i := 0; i < 5; i++ {
		obj, ok := payload.(map[string]interface{})
		if !ok {
			return payload
		}
		if text := flattenContent(obj["content"]); text != "" {
			return text
		}
		unwrapped := false
		for _, key := range []string{"result", "data", "output", "response"} {
			if inner, ok := obj[key]; ok && inner != nil {
				payload = inner
				unwrapped = true
				break
			}
		}
		if !unwrapped {
			return payload
		}
	}
	return payload
}

// flattenContent joins MCP-style content blocks into one text blob.
func flattenContent(v interface{}) string {
	blocks, ok := v.([]interface{})
	if !ok {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		obj, ok := b.(map[string]interface{})
		if !ok {
			continue
		}
		if text, _ := obj["text"].(string); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func renderReadable(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprintf("%v", t)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// findItems locates the result list in a bulk payload.
func findItems(payload interface{}) []interface{} {
	if list, ok := payload.([]interface{}); ok {
		return list
	}
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return nil
	}
	for _, key := range []string{"items", "results", "emails", "messages", "events", "files", "entries", "data"} {
		if list, ok := obj[key].([]interface{}); ok {
			return list
		}
	}
	return nil
}

// itemLine renders one bulk item as a single line.
func itemLine(item interface{}) string {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return renderReadable(item)
	}
	var parts []string
	if s := findString(obj, "subject", "title", "name", "summary"); s != "" {
		parts = append(parts, s)
	}
	if s := findString(obj, "from", "sender", "author"); s != "" {
		parts = append(parts, "from "+s)
	}
	if s := findString(obj, "date", "time", "created_at"); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		data, err := json.Marshal(obj)
		if err != nil {
			return fmt.Sprintf("%v", obj)
		}
		line := string(data)
		if len(line) > 120 {
			line = line[:117] + "..."
		}
		return line
	}
	return strings.Join(parts, ", ")
}

// findString searches the payload (top level, then one level down) for the
// first non-empty string under any of the keys.
func findString(payload interface{}, keys ...string) string {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return ""
	}
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	for _, v := range obj {
		if inner, ok := v.(map[string]interface{}); ok {
			for _, key := range keys {
				if s, ok := inner[key].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func textResult(text string, isError bool) domain.NormalizedResult {
	if strings.TrimSpace(text) == "" {
		text = emptyResultMessage
	}
	return domain.NormalizedResult{
		Content: []domain.ContentPart{{Type: "text", Text: text}},
		IsError: isError,
	}
}

func allEmpty(parts []domain.ContentPart) bool {
	for _, p := range parts {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}
