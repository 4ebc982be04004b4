// Package textextract converts ingestable files to plain text.
// Markdown and HTML markup is stripped so chunk content and embeddings
// reflect prose, not syntax; everything else passes through unchanged.
package textextract

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
)

// Extract returns the document title and plain-text body for a file.
// The title comes from the content where the format carries one (first
// H1 heading, <title> tag), otherwise from the file name.
func Extract(path string, data []byte) (title, text string) {
	content := string(data)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return markdownTitle(content, path), stripMarkdown(content)
	case ".html", ".htm":
		return htmlTitle(content, path), stripHTML(content)
	default:
		return nameTitle(path), content
	}
}

// nameTitle derives a readable title from a file name.
func nameTitle(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

func markdownTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return nameTitle(path)
}

var (
	codeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode   = regexp.MustCompile("`[^`]+`")
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote = regexp.MustCompile(`(?m)^>\s*`)
	mdRule       = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdBullet     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumbered   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
)

// stripMarkdown reduces common markdown constructs to their text.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdBullet.ReplaceAllString(content, "")
	content = mdNumbered.ReplaceAllString(content, "")
	content = collapseNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

var (
	titleTag         = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	invisibleTag     = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg)[^>]*>.*?</(script|style|noscript|head|svg)>`)
	htmlComment      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockTag         = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	lineBreakTag     = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	anyTag           = regexp.MustCompile(`<[^>]+>`)
	runSpaces        = regexp.MustCompile(`[ \t]+`)
	collapseNewlines = regexp.MustCompile(`\n{3,}`)
)

func htmlTitle(content, path string) string {
	if m := titleTag.FindStringSubmatch(content); len(m) > 1 {
		if t := strings.TrimSpace(html.UnescapeString(m[1])); t != "" {
			return t
		}
	}
	return nameTitle(path)
}

// stripHTML removes markup and keeps readable text, one block per line.
func stripHTML(content string) string {
	content = invisibleTag.ReplaceAllString(content, "")
	content = htmlComment.ReplaceAllString(content, "")
	content = blockTag.ReplaceAllString(content, "\n")
	content = lineBreakTag.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = runSpaces.ReplaceAllString(content, " ")
	content = collapseNewlines.ReplaceAllString(content, "\n\n")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
