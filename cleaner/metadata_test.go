package cleaner

import (
	"testing"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

const articleMetaHTML = `<html lang="fr"><head>
<title>Page title</title>
<meta property="article:published_time" content="2024-03-01T10:00:00Z">
<meta property="article:author" content="Jane Roe">
<meta property="og:site_name" content="Example Press">
<meta name="keywords" content="go, scraping">
</head><body><p>body</p></body></html>`

func TestHarvestMeta_ArticleProperties(t *testing.T) {
	meta := HarvestMeta(articleMetaHTML)

	if got := meta["article:published_time"]; got != "2024-03-01T10:00:00Z" {
		t.Errorf("article:published_time = %q", got)
	}
	if got := meta["article:author"]; got != "Jane Roe" {
		t.Errorf("article:author = %q", got)
	}
	if got := meta["og:site_name"]; got != "Example Press" {
		t.Errorf("og:site_name = %q", got)
	}
	if got := meta["lang"]; got != "fr" {
		t.Errorf("lang = %q", got)
	}
}

func TestMergeMetadata_FillsFromArticleProperties(t *testing.T) {
	e := &models.ContentExtraction{}
	mergeMetadata(e, articleMetaHTML)

	if e.PublicationDate != "2024-03-01T10:00:00Z" {
		t.Errorf("publication date = %q", e.PublicationDate)
	}
	if e.Author != "Jane Roe" {
		t.Errorf("author = %q", e.Author)
	}
	if e.Language != "fr" {
		t.Errorf("language = %q", e.Language)
	}
	if len(e.Tags) != 2 || e.Tags[0] != "go" {
		t.Errorf("tags = %v", e.Tags)
	}
}

func TestMergeMetadata_KeepsExtractedValues(t *testing.T) {
	e := &models.ContentExtraction{
		Author:          "Extracted Author",
		PublicationDate: "2020-01-01",
	}
	mergeMetadata(e, articleMetaHTML)

	if e.Author != "Extracted Author" {
		t.Errorf("author overwritten: %q", e.Author)
	}
	if e.PublicationDate != "2020-01-01" {
		t.Errorf("publication date overwritten: %q", e.PublicationDate)
	}
}
