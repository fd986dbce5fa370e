// Package transform rewrites the generic argument bag the model produced
// into the exact shape the target tool's category expects. The transformer
// is pure with respect to its explicit inputs; its only lookup is the
// ephemeral session media context.
package transform

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/toolgate/toolgate/internal/category"
	"github.com/toolgate/toolgate/internal/domain"
	"github.com/toolgate/toolgate/internal/media"
)

// Uploader materializes embedded media into a durable URL.
type Uploader interface {
	Upload(ctx context.Context, contentType, base64Data string) (string, error)
}

// Transformer applies the category strategy for a tool to its parameters.
type Transformer struct {
	media    *media.Context
	uploader Uploader
}

// New creates a transformer over the session media context and uploader.
func New(mediaCtx *media.Context, uploader Uploader) *Transformer {
	return &Transformer{media: mediaCtx, uploader: uploader}
}

// Transform finalizes the parameters for a tool. Input already in the
// expected shape passes through unchanged. Missing information is never
// fabricated; the minimal best-effort payload is forwarded so the provider
// can fail informatively.
func (t *Transformer) Transform(ctx context.Context, toolName string, params domain.Params, sessionID string) (domain.Params, error) {
	prof := category.ProfileFor(category.Classify(toolName))
	out := params.Clone()

	t.remapGenericKeys(prof, &out)

	if err := t.materializeDataURIs(ctx, toolName, &out); err != nil {
		return domain.Params{}, err
	}

	t.injectMedia(prof, &out, sessionID)

	if err := checkURLCompatibility(toolName, out); err != nil {
		return domain.Params{}, err
	}

	if err := validateShape(toolName, prof, out); err != nil {
		return domain.Params{}, err
	}

	if len(prof.KeyOrder) > 0 {
		out = out.Reorder(prof.KeyOrder)
	}
	return out, nil
}

// validateShape type-checks the category's well-known fields so execution
// never receives a value the provider cannot parse. Absent fields pass; the
// transformer never fabricates content for them.
func validateShape(toolName string, prof category.Profile, out domain.Params) error {
	stringKeys := []string{prof.PrimaryKey, prof.MediaKey}
	for _, key := range stringKeys {
		if key == "" || !out.Has(key) {
			continue
		}
		if _, ok := out.GetString(key); !ok {
			return &domain.PipelineError{
				Code:     domain.ErrCodeValidation,
				ToolName: toolName,
				Message:  fmt.Sprintf("parameter %q must be a string", key),
			}
		}
	}

	if prof.MediaListKey != "" && out.Has(prof.MediaListKey) {
		v, _ := out.Get(prof.MediaListKey)
		switch list := v.(type) {
		case []string:
		case []interface{}:
			for _, item := range list {
				if _, ok := item.(string); !ok {
					return &domain.PipelineError{
						Code:     domain.ErrCodeValidation,
						ToolName: toolName,
						Message:  fmt.Sprintf("parameter %q must be a list of URLs", prof.MediaListKey),
					}
				}
			}
		default:
			return &domain.PipelineError{
				Code:     domain.ErrCodeValidation,
				ToolName: toolName,
				Message:  fmt.Sprintf("parameter %q must be a list of URLs", prof.MediaListKey),
			}
		}
	}
	return nil
}

// remapGenericKeys renames a generic free-text key to the category-specific
// key when the latter is absent.
func (t *Transformer) remapGenericKeys(prof category.Profile, out *domain.Params) {
	if prof.PrimaryKey == "" || out.Has(prof.PrimaryKey) {
		return
	}
	for _, src := range prof.GenericKeys {
		if v, ok := out.Get(src); ok {
			out.Set(prof.PrimaryKey, v)
			out.Delete(src)
			return
		}
	}
}

// materializeDataURIs replaces embedded base64 payloads with durable URLs.
// Remote tool servers cannot dereference data URIs.
func (t *Transformer) materializeDataURIs(ctx context.Context, toolName string, out *domain.Params) error {
	for _, key := range out.Keys() {
		s, ok := out.GetString(key)
		if !ok || !strings.HasPrefix(s, "data:") {
			continue
		}

		contentType, data, err := parseDataURI(s)
		if err != nil {
			return &domain.PipelineError{
				Code:     domain.ErrCodeInvalidMedia,
				ToolName: toolName,
				Message:  fmt.Sprintf("parameter %q holds a malformed data URI", key),
				Err:      err,
			}
		}
		if t.uploader == nil {
			return &domain.PipelineError{
				Code:     domain.ErrCodeInvalidMedia,
				ToolName: toolName,
				Message:  fmt.Sprintf("parameter %q holds embedded media but no upload service is configured", key),
			}
		}
		durable, err := t.uploader.Upload(ctx, contentType, data)
		if err != nil {
			return &domain.PipelineError{
				Code:     domain.ErrCodeInvalidMedia,
				ToolName: toolName,
				Message:  fmt.Sprintf("failed to materialize embedded media in parameter %q", key),
				Err:      err,
			}
		}
		out.Set(key, durable)
	}
	return nil
}

// injectMedia resolves session media and fills the category's file fields
// when they are absent.
func (t *Transformer) injectMedia(prof category.Profile, out *domain.Params, sessionID string) {
	if prof.MediaKey == "" || out.Has(prof.MediaKey) || t.media == nil {
		return
	}
	urls := t.media.Resolve(sessionID)
	if len(urls) == 0 {
		return
	}
	out.Set(prof.MediaKey, urls[0])
	if len(urls) > 1 && prof.MediaListKey != "" {
		out.Set(prof.MediaListKey, urls)
	}
}

// parseDataURI splits "data:<type>;base64,<payload>".
func parseDataURI(s string) (contentType, data string, err error) {
	rest := strings.TrimPrefix(s, "data:")
	idx := strings.Index(rest, ",")
	if idx < 0 {
		return "", "", fmt.Errorf("data URI has no payload separator")
	}
	meta, payload := rest[:idx], rest[idx+1:]
	if payload == "" {
		return "", "", fmt.Errorf("data URI has an empty payload")
	}
	contentType = strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType, payload, nil
}

// checkURLCompatibility rejects URL parameters a remote provider cannot
// dereference. Ephemeral browser and local URLs require a prior upload
// step; passing them through would make the provider fail opaquely.
func checkURLCompatibility(toolName string, params domain.Params) error {
	for _, key := range params.Keys() {
		s, ok := params.GetString(key)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(s, "blob:"), strings.HasPrefix(s, "file:"):
			return &domain.PipelineError{
				Code:     domain.ErrCodeInvalidMedia,
				ToolName: toolName,
				Message:  fmt.Sprintf("parameter %q is an ephemeral URL that requires a prior upload step", key),
			}
		case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
			u, err := url.Parse(s)
			if err != nil {
				return &domain.PipelineError{
					Code:     domain.ErrCodeInvalidMedia,
					ToolName: toolName,
					Message:  fmt.Sprintf("parameter %q is not a valid URL", key),
					Err:      err,
				}
			}
			host := u.Hostname()
			if host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" || strings.HasSuffix(host, ".local") {
				return &domain.PipelineError{
					Code:     domain.ErrCodeInvalidMedia,
					ToolName: toolName,
					Message:  fmt.Sprintf("parameter %q points at %s, which the remote provider cannot reach", key, host),
				}
			}
		}
	}
	return nil
}
