package cleaner

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

type mdConverter = *converter.Converter

// newMarkdownConverter creates a reusable, goroutine-safe converter.
// The base plugin strips residual noise (script, style, comments), the
// commonmark plugin renders standard Markdown, and the table plugin
// preserves tabular structure with minimal cell padding.
func newMarkdownConverter() mdConverter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// Render produces the final artifact in the requested format. Renderers
// are pure over (extraction, page data); any renderer failure falls back
// to the text form.
func (c *Cleaner) Render(res Result, page *models.PageData, format models.OutputFormat) string {
	var (
		out string
		err error
	)

	switch format {
	case models.FormatMarkdown, "":
		out, err = c.renderMarkdown(res, page)
	case models.FormatJSON:
		out, err = renderJSON(res, page)
	case models.FormatXML:
		out, err = renderXML(res, page)
	case models.FormatCSV:
		out, err = renderCSV(res)
	case models.FormatHTML:
		out, err = renderHTML(res)
	case models.FormatText:
		return res.MainContent
	default:
		return res.MainContent
	}

	if err != nil {
		slog.Warn("cleaner: renderer failed, falling back to text",
			"format", format, "error", err)
		return res.MainContent
	}
	return out
}

// renderMarkdown produces an H1 title, bold-prefixed metadata lines, a
// word/reading-time summary, a horizontal rule, then the content body.
func (c *Cleaner) renderMarkdown(res Result, page *models.PageData) (string, error) {
	var b strings.Builder

	title := res.Title
	if title == "" && page != nil {
		title = page.Title
	}
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if res.Author != "" {
		fmt.Fprintf(&b, "**Author:** %s\n", res.Author)
	}
	if res.PublicationDate != "" {
		fmt.Fprintf(&b, "**Published:** %s\n", res.PublicationDate)
	}
	if res.Language != "" {
		fmt.Fprintf(&b, "**Language:** %s\n", res.Language)
	}
	if len(res.Tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(res.Tags, ", "))
	}
	fmt.Fprintf(&b, "\n*%d words · %d min read*\n\n---\n\n", res.WordCount, res.ReadingTimeMin)

	body := res.MainContent
	if res.ContentHTML != "" {
		converted, err := c.mdConverter.ConvertString(res.ContentHTML)
		if err == nil && strings.TrimSpace(converted) != "" {
			body = converted
		}
	}
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String(), nil
}

// renderJSON produces a single pretty-printed object mirroring the
// extraction plus url and extracted_at.
func renderJSON(res Result, page *models.PageData) (string, error) {
	url := ""
	if page != nil {
		url = page.FinalURL
	}
	doc := struct {
		Title           string   `json:"title"`
		Content         string   `json:"content"`
		Author          string   `json:"author,omitempty"`
		PublicationDate string   `json:"publication_date,omitempty"`
		Tags            []string `json:"tags,omitempty"`
		Language        string   `json:"language,omitempty"`
		WordCount       int      `json:"word_count"`
		ReadingTimeMin  int      `json:"reading_time_minutes"`
		URL             string   `json:"url"`
		ExtractedAt     string   `json:"extracted_at"`
	}{
		Title:           res.Title,
		Content:         res.MainContent,
		Author:          res.Author,
		PublicationDate: res.PublicationDate,
		Tags:            res.Tags,
		Language:        res.Language,
		WordCount:       res.WordCount,
		ReadingTimeMin:  res.ReadingTimeMin,
		URL:             url,
		ExtractedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type xmlTags struct {
	Tag []string `xml:"tag"`
}

type xmlArticle struct {
	XMLName         xml.Name `xml:"article"`
	Title           string   `xml:"title"`
	Author          string   `xml:"author,omitempty"`
	PublicationDate string   `xml:"publication_date,omitempty"`
	Language        string   `xml:"language,omitempty"`
	WordCount       int      `xml:"word_count"`
	ReadingTimeMin  int      `xml:"reading_time_minutes"`
	URL             string   `xml:"url,omitempty"`
	Tags            *xmlTags `xml:"tags,omitempty"`
	Content         string   `xml:"content"`
}

// renderXML mirrors the JSON schema under an <article> root with a
// <tags><tag>…</tag></tags> collection.
func renderXML(res Result, page *models.PageData) (string, error) {
	doc := xmlArticle{
		Title:           res.Title,
		Author:          res.Author,
		PublicationDate: res.PublicationDate,
		Language:        res.Language,
		WordCount:       res.WordCount,
		ReadingTimeMin:  res.ReadingTimeMin,
		Content:         res.MainContent,
	}
	if page != nil {
		doc.URL = page.FinalURL
	}
	if len(res.Tags) > 0 {
		doc.Tags = &xmlTags{Tag: res.Tags}
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(data) + "\n", nil
}

// renderCSV produces one header row and one data row. Newlines inside
// content collapse to spaces; tags join with "; ".
func renderCSV(res Result) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	header := []string{
		"title", "author", "publication_date", "language",
		"word_count", "reading_time_minutes", "tags", "content",
	}
	content := strings.Join(strings.Fields(res.MainContent), " ")
	row := []string{
		res.Title,
		res.Author,
		res.PublicationDate,
		res.Language,
		fmt.Sprintf("%d", res.WordCount),
		fmt.Sprintf("%d", res.ReadingTimeMin),
		strings.Join(res.Tags, "; "),
		content,
	}

	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.Write(row); err != nil {
		return "", err
	}
	w.Flush()
	return b.String(), w.Error()
}

// renderHTML wraps the content in a minimal HTML5 document with
// semantic tags. Paragraphs split on blank lines.
func renderHTML(res Result) (string, error) {
	var b strings.Builder

	title := res.Title
	if title == "" {
		title = "Untitled"
	}

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n<article>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(title))

	if res.Author != "" || res.PublicationDate != "" {
		b.WriteString("<header>\n")
		if res.Author != "" {
			fmt.Fprintf(&b, "<p class=\"author\">%s</p>\n", html.EscapeString(res.Author))
		}
		if res.PublicationDate != "" {
			fmt.Fprintf(&b, "<time>%s</time>\n", html.EscapeString(res.PublicationDate))
		}
		b.WriteString("</header>\n")
	}

	for _, para := range strings.Split(res.MainContent, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(para))
	}

	b.WriteString("</article>\n</body>\n</html>\n")
	return b.String(), nil
}
