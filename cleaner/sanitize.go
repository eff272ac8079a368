package cleaner

import (
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// strippedElements are removed wholesale during structural cleanup.
var strippedElements = []string{
	"script", "style", "nav", "header", "footer", "aside", "iframe",
	"object", "embed", "form", "input", "button", "select", "textarea",
	"noscript", "canvas",
}

// noiseMarkers flag boilerplate containers by class or id substring.
var noiseMarkers = []string{
	"comment", "sidebar", "footer", "header", "navigation", "menu",
	"ad", "advertisement", "popup",
}

// keptAttributes is the attribute allow-list after cleanup.
var keptAttributes = map[string]struct{}{
	"href":  {},
	"src":   {},
	"alt":   {},
	"title": {},
}

// Sanitize runs the structural cleanup pass over an HTML document or
// fragment: boilerplate elements and noise-marked containers are removed,
// attributes are reduced to the allow-list, relative href/src are
// resolved against the base URL. It returns the cleaned fragment and a
// plain-text projection with collapsed whitespace.
func Sanitize(rawHTML, baseURL string) (cleanHTML, text string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", ""
	}

	doc.Find(strings.Join(strippedElements, ", ")).Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if isNoise(s) {
			s.Remove()
			return
		}
		stripAttributes(s, baseURL)
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	cleanHTML, err = body.Html()
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(cleanHTML), textProjection(body)
}

// isNoise reports whether the element's class or id contains one of the
// noise markers.
func isNoise(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	if class == "" && id == "" {
		return false
	}
	haystack := strings.ToLower(class + " " + id)
	for _, marker := range noiseMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}

// stripAttributes drops every attribute outside the allow-list and
// resolves relative href/src values against the base URL.
func stripAttributes(s *goquery.Selection, baseURL string) {
	base, baseErr := nurl.Parse(baseURL)

	for _, node := range s.Nodes {
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if _, ok := keptAttributes[attr.Key]; !ok {
				continue
			}
			if baseErr == nil && (attr.Key == "href" || attr.Key == "src") {
				if resolved, err := base.Parse(attr.Val); err == nil {
					attr.Val = resolved.String()
				}
			}
			kept = append(kept, attr)
		}
		node.Attr = kept
	}
}

// textProjection walks remaining text nodes, collapsing whitespace and
// inserting paragraph breaks at block boundaries.
func textProjection(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		walkText(node, &b)
	}
	return collapseWhitespace(b.String())
}

// blockElements force a paragraph break in the text projection.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "article": {}, "section": {}, "li": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"blockquote": {}, "pre": {}, "tr": {}, "br": {},
}

func walkText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	isBlock := false
	if n.Type == html.ElementNode {
		_, isBlock = blockElements[n.Data]
	}
	if isBlock {
		b.WriteString("\n\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b)
	}
	if isBlock {
		b.WriteString("\n\n")
	}
}
