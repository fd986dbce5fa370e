// Package category classifies tool names into transformation and
// normalization categories. The tool catalog is provided by third parties
// and unknown in advance, so classification is an open pattern match over
// the name rather than a closed enum.
package category

import (
	"strings"
	"time"
)

// Category groups tools that share parameter shape and result formatting.
type Category string

const (
	Search      Category = "search"
	Create      Category = "create"
	Communicate Category = "communicate"
	Upload      Category = "upload"
	Generic     Category = "generic"
)

// Profile describes how one category's parameters are shaped.
type Profile struct {
	Category Category

	// PrimaryKey is the category-specific field a generic free-text key is
	// remapped into.
	PrimaryKey string

	// GenericKeys are remap sources, checked in order.
	GenericKeys []string

	// MediaKey receives an injected session media URL; MediaListKey receives
	// all resolved URLs when more than one is available.
	MediaKey     string
	MediaListKey string

	// KeyOrder, when set, is the strict key order the provider expects.
	KeyOrder []string

	// Timeout is the execution ceiling for the category.
	Timeout time.Duration
}

var profiles = map[Category]Profile{
	Search: {
		Category:    Search,
		PrimaryKey:  "query",
		GenericKeys: []string{"instruction", "text", "prompt"},
		Timeout:     30 * time.Second,
	},
	Create: {
		Category:    Create,
		PrimaryKey:  "body",
		GenericKeys: []string{"instruction", "content", "text"},
		// At least one mail provider rejects bodies whose keys arrive out
		// of order.
		KeyOrder: []string{"to", "cc", "bcc", "subject", "body"},
		Timeout:  30 * time.Second,
	},
	Communicate: {
		Category:    Communicate,
		PrimaryKey:  "message",
		GenericKeys: []string{"instruction", "text"},
		MediaKey:    "media_url",
		Timeout:     30 * time.Second,
	},
	Upload: {
		Category:     Upload,
		MediaKey:     "file_url",
		MediaListKey: "file_urls",
		Timeout:      35 * time.Second,
	},
	Generic: {
		Category: Generic,
		Timeout:  30 * time.Second,
	},
}

// Pattern tables checked in precedence order. Upload wins over search so
// "upload_found_files" style names land on the attachment path.
var patterns = []struct {
	category Category
	words    []string
}{
	{Upload, []string{"upload", "attach", "import_file", "file_upload"}},
	{Search, []string{"search", "find", "list", "query", "lookup", "fetch"}},
	{Communicate, []string{"message", "chat", "notify", "reply", "post", "communicate"}},
	{Create, []string{"create", "send", "draft", "compose", "add", "schedule", "write"}},
}

// Classify maps a tool name onto a category by substring match.
func Classify(toolName string) Category {
	name := strings.ToLower(toolName)
	for _, p := range patterns {
		for _, w := range p.words {
			if strings.Contains(name, w) {
				return p.category
			}
		}
	}
	return Generic
}

// ProfileFor returns the category's profile.
func ProfileFor(c Category) Profile {
	if p, ok := profiles[c]; ok {
		return p
	}
	return profiles[Generic]
}

// TimeoutFor returns the execution ceiling for the tool.
func TimeoutFor(toolName string) time.Duration {
	return ProfileFor(Classify(toolName)).Timeout
}
