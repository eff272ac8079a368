package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// HarvestLinks parses the raw HTML and returns up to max deduplicated
// links with absolute URLs. Non-http(s) schemes are skipped.
func HarvestLinks(rawHTML, sourceURL string, max int) []models.Link {
	links := []models.Link{}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return links
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if href == "" {
			return true
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return true
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		abs := resolved.String()
		if _, ok := seen[abs]; ok {
			return true
		}
		seen[abs] = struct{}{}

		links = append(links, models.Link{
			Href: abs,
			Text: strings.TrimSpace(s.Text()),
		})
		return len(links) < max
	})

	return links
}

// HarvestImages parses the raw HTML and returns up to max deduplicated
// images with absolute URLs. Data URIs are skipped.
func HarvestImages(rawHTML, sourceURL string, max int) []models.Image {
	images := []models.Image{}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return images
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return images
	}

	seen := make(map[string]struct{})
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if src == "" {
			return true
		}
		resolved, err := base.Parse(src)
		if err != nil || resolved.Scheme == "data" {
			return true
		}
		abs := resolved.String()
		if _, ok := seen[abs]; ok {
			return true
		}
		seen[abs] = struct{}{}

		alt, _ := s.Attr("alt")
		images = append(images, models.Image{
			Src: abs,
			Alt: strings.TrimSpace(alt),
		})
		return len(images) < max
	})

	return images
}
