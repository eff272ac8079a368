package cleaner

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// ExtractStructured harvests machine-readable annotations from the page:
// every JSON-LD block, the Open Graph map and the Twitter Card map.
// Malformed JSON-LD blocks are skipped silently; each block parses
// independently so one bad block never hides the others.
func ExtractStructured(rawHTML string) *models.StructuredData {
	sd := &models.StructuredData{
		OpenGraph:   map[string]string{},
		TwitterCard: map[string]string{},
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return sd
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			sd.JSONLD = append(sd.JSONLD, obj)
			return
		}
		// A top-level array of objects is also valid JSON-LD.
		var arr []map[string]any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			sd.JSONLD = append(sd.JSONLD, arr...)
		}
	})

	doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if content != "" && strings.HasPrefix(prop, "og:") {
			sd.OpenGraph[strings.TrimPrefix(prop, "og:")] = content
		}
	})

	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		if content != "" && strings.HasPrefix(name, "twitter:") {
			sd.TwitterCard[strings.TrimPrefix(name, "twitter:")] = content
		}
	})

	return sd
}
