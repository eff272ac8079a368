package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// HarvestMeta extracts the <title>, every <meta name=…> pair, every
// <meta property> pair with an "og:" or "article:" prefix and the
// <html lang> attribute into a flat map. Name keys are lowercased;
// property keys keep their prefix.
func HarvestMeta(rawHTML string) map[string]string {
	meta := make(map[string]string)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return meta
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}
	if lang, ok := doc.Find("html").Attr("lang"); ok && lang != "" {
		meta["lang"] = lang
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		if name, ok := s.Attr("name"); ok && name != "" {
			meta[strings.ToLower(name)] = content
			return
		}
		if prop, ok := s.Attr("property"); ok &&
			(strings.HasPrefix(prop, "og:") || strings.HasPrefix(prop, "article:")) {
			meta[prop] = content
		}
	})

	return meta
}

// mergeMetadata fills empty extraction fields from the page's meta tags:
// author, description-derived tags, language and publication date.
func mergeMetadata(e *models.ContentExtraction, rawHTML string) {
	meta := HarvestMeta(rawHTML)

	if e.Title == "" {
		if t := meta["og:title"]; t != "" {
			e.Title = t
		} else {
			e.Title = meta["title"]
		}
	}
	if e.Author == "" {
		for _, key := range []string{"author", "article:author", "og:author"} {
			if v := meta[key]; v != "" {
				e.Author = v
				break
			}
		}
	}
	if e.Language == "" {
		if v := meta["lang"]; v != "" {
			e.Language = v
		} else if v := meta["og:locale"]; v != "" {
			e.Language = v
		}
	}
	if e.PublicationDate == "" {
		for _, key := range []string{"article:published_time", "date", "publish-date", "og:published_time"} {
			if v := meta[key]; v != "" {
				e.PublicationDate = v
				break
			}
		}
	}
	if len(e.Tags) == 0 {
		if kw := meta["keywords"]; kw != "" {
			for _, tag := range strings.Split(kw, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					e.Tags = append(e.Tags, tag)
				}
			}
		}
	}
}
