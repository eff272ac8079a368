package cleaner

import (
	"fmt"
	"strings"
	"testing"
)

func TestHarvestLinks_AbsoluteAndDeduplicated(t *testing.T) {
	html := `<body>
<a href="/about">About</a>
<a href="/about">About again</a>
<a href="https://other.example/page">Other</a>
<a href="mailto:x@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
</body>`

	links := HarvestLinks(html, "https://example.com/base/", 10)
	if len(links) != 2 {
		t.Fatalf("links = %d, want 2 (dedupe + scheme filter)", len(links))
	}
	if links[0].Href != "https://example.com/about" {
		t.Errorf("first href = %q", links[0].Href)
	}
	if links[0].Text != "About" {
		t.Errorf("first text = %q", links[0].Text)
	}
}

func TestHarvestLinks_Cap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, `<a href="/p%d">p%d</a>`, i, i)
	}

	links := HarvestLinks(b.String(), "https://example.com/", 5)
	if len(links) != 5 {
		t.Errorf("links = %d, want cap of 5", len(links))
	}
}

func TestHarvestLinks_InvalidBaseURL(t *testing.T) {
	if got := HarvestLinks(`<a href="/x">x</a>`, "://bad", 10); len(got) != 0 {
		t.Errorf("links = %d, want 0", len(got))
	}
}

func TestHarvestImages_FiltersDataURIs(t *testing.T) {
	html := `<body>
<img src="/logo.png" alt="Logo">
<img src="data:image/png;base64,AAAA" alt="Inline">
<img src="/logo.png" alt="Dup">
</body>`

	images := HarvestImages(html, "https://example.com/", 10)
	if len(images) != 1 {
		t.Fatalf("images = %d, want 1", len(images))
	}
	if images[0].Src != "https://example.com/logo.png" {
		t.Errorf("src = %q", images[0].Src)
	}
	if images[0].Alt != "Logo" {
		t.Errorf("alt = %q", images[0].Alt)
	}
}
