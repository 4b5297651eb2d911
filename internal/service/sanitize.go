// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	plainText       = bluemonday.StrictPolicy()
	descriptionHTML = bluemonday.UGCPolicy()
)

// StripTags removes all markup from s and trims surrounding space.
// Entities produced by the sanitizer are decoded so the value is stored as
// plain text and escaped once on output.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

// RenderDescription converts a venue description from Markdown to sanitized
// HTML. On conversion failure the escaped source is returned.
func RenderDescription(src string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src)) //nolint:gosec // escaped above
	}
	return template.HTML(descriptionHTML.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitized by UGC policy
}
