package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageDocument is the normalized representation of one fetched page: a
// markdown-like flattened text the parser scans line by line, plus metadata.
type PageDocument struct {
	URL         string
	Title       string
	Description string
	StatusCode  int
	Markdown    string
	HTML        string
}

// flattenDocument converts parsed markup into the flattened text form:
// headings become "#"-prefixed lines, list items become "- " lines, and
// block text becomes plain lines.
func flattenDocument(doc *goquery.Document) (markdown, title, description string) {
	title = strings.TrimSpace(doc.Find("title").First().Text())
	if meta, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		description = strings.TrimSpace(meta)
	}

	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	body.Find("h1, h2, h3, h4, h5, h6, p, li, td, figcaption, blockquote").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return
		}
		switch goquery.NodeName(sel) {
		case "h1":
			b.WriteString("# " + text + "\n")
		case "h2":
			b.WriteString("## " + text + "\n")
		case "h3":
			b.WriteString("### " + text + "\n")
		case "h4", "h5", "h6":
			b.WriteString("#### " + text + "\n")
		case "li":
			b.WriteString("- " + text + "\n")
		default:
			b.WriteString(text + "\n")
		}
	})

	return b.String(), title, description
}
