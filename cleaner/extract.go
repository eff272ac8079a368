// Package cleaner turns raw rendered HTML into a structured extraction
// and renders it into the requested output format.
//
// Stage 1 (isolation): the Mozilla Readability algorithm locates the
// dominant article subtree; a structural cleanup pass strips boilerplate
// elements either as a fallback or as a post-filter.
// Stage 2 (rendering): pure functions convert the extraction into one of
// markdown, json, xml, csv, html or text.
package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// minContentLength is the minimum extracted-text length (in characters)
// for readability output to be considered valid. Below this threshold we
// assume the algorithm failed to locate the main content and fall back
// to structural cleanup of the full document.
const minContentLength = 50

// Result is the full extractor output: the serializable extraction plus
// the cleaned HTML fragment that the markdown and html renderers consume.
type Result struct {
	models.ContentExtraction

	// ContentHTML is the cleaned article fragment (absolute URLs,
	// attributes limited to href/src/alt/title).
	ContentHTML string
}

// Cleaner owns the reusable, goroutine-safe markdown converter.
type Cleaner struct {
	mdConverter mdConverter
}

// New initialises a Cleaner with a pre-configured markdown converter.
func New() *Cleaner {
	return &Cleaner{mdConverter: newMarkdownConverter()}
}

// Extract runs main-content isolation plus metadata harvest on rawHTML.
//
// Fallback behaviour (extraction must never fail the pipeline):
//   - invalid source URL          → structural cleanup of the full document
//   - readability error           → structural cleanup of the full document
//   - extracted text < 50 chars   → structural cleanup of the full document
//   - cleanup itself failing      → stub extraction with explanatory content
func (c *Cleaner) Extract(rawHTML, sourceURL string) Result {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("cleaner: invalid source URL, using structural cleanup",
			"url", sourceURL, "error", err)
		return c.cleanupResult(rawHTML, sourceURL)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("cleaner: readability failed, using structural cleanup",
			"url", sourceURL, "error", err)
		return c.cleanupResult(rawHTML, sourceURL)
	}
	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("cleaner: readability output too short, using structural cleanup",
			"url", sourceURL, "length", len(article.TextContent))
		return c.cleanupResult(rawHTML, sourceURL)
	}

	// Run the structural cleanup over readability's fragment too: it
	// enforces the attribute allow-list and resolves relative URLs.
	contentHTML, text := Sanitize(article.Content, sourceURL)
	if strings.TrimSpace(text) == "" {
		contentHTML = article.Content
		text = collapseWhitespace(article.TextContent)
	}

	res := Result{
		ContentExtraction: models.ContentExtraction{
			Title:       article.Title,
			MainContent: text,
			Author:      article.Byline,
			Language:    article.Language,
			WordCount:   len(strings.Fields(text)),
		},
		ContentHTML: contentHTML,
	}
	mergeMetadata(&res.ContentExtraction, rawHTML)
	res.FillReadingTime()
	return res
}

// cleanupResult builds a Result from structural cleanup alone.
func (c *Cleaner) cleanupResult(rawHTML, sourceURL string) Result {
	contentHTML, text := Sanitize(rawHTML, sourceURL)
	if strings.TrimSpace(text) == "" {
		// Unparseable or empty input: explanatory stub, never empty output.
		res := Result{
			ContentExtraction: models.ContentExtraction{
				MainContent: "No readable content could be extracted from this page.",
				WordCount:   0,
			},
		}
		res.FillReadingTime()
		return res
	}

	res := Result{
		ContentExtraction: models.ContentExtraction{
			MainContent: text,
			WordCount:   len(strings.Fields(text)),
		},
		ContentHTML: contentHTML,
	}
	mergeMetadata(&res.ContentExtraction, rawHTML)
	res.FillReadingTime()
	return res
}

// collapseWhitespace joins all whitespace runs into single spaces while
// preserving paragraph breaks (blank lines).
func collapseWhitespace(s string) string {
	paragraphs := strings.Split(s, "\n\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
