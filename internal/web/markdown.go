package web

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
	),
)

// markdownToHTML renders a blob's text content as HTML for the object
// inspector, falling back to the unmodified text if rendering fails
// input (goldmark accepts any text, so this only fails on I/O errors).
func markdownToHTML(s string) string {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(s), &buf); err != nil {
		return s
	}
	return buf.String()
}
