package content

import (
	"bytes"
	"errors"
	"log/slog"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	policy = bluemonday.UGCPolicy()

	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	)

	nameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// Sanitize removes unsafe HTML from the input string using a strict policy.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// Render converts a raw message body to sanitized HTML. The stored body is
// never modified; rendering happens at enrichment time so policy changes
// reflow old messages.
func Render(input string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(input), &buf); err != nil {
		slog.Warn("markdown render failed, falling back to sanitized input", "error", err)
		return Sanitize(input)
	}
	return policy.Sanitize(buf.String())
}

// ValidateName checks that a display name contains only allowed characters
// (alphanumeric, dot, dash, underscore) and is not empty.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if !nameRegex.MatchString(name) {
		return errors.New("name contains invalid characters (allowed: alphanumeric, dot, dash, underscore)")
	}
	return nil
}
