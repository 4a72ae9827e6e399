package extract

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy     = bluemonday.StrictPolicy()
	whitespaceRe   = regexp.MustCompile(`[ \t]+`)
	blankLinesRe   = regexp.MustCompile(`\n{3,}`)
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
)

// ExtractHTMLText reduces an HTML page to readable plain text. Navigation
// chrome and scripts are removed before text is taken, so keyword matching
// sees page content rather than menus.
func ExtractHTMLText(body []byte) (string, *goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}

	content := doc.Clone()
	content.Find("script, style, noscript, iframe, svg, nav, header, footer, form").Remove()

	// One line per block element keeps "Closing Date: ..." on its own line,
	// which the date extractor relies on as a segment boundary.
	var b strings.Builder
	content.Find("h1, h2, h3, h4, h5, h6, p, li, td, th, dt, dd").Each(func(_ int, n *goquery.Selection) {
		t := strings.TrimSpace(n.Text())
		if t == "" {
			return
		}
		b.WriteString(t)
		b.WriteString("\n")
	})

	text := b.String()
	if strings.TrimSpace(text) == "" {
		text = content.Find("body").Text()
	}

	return NormalizeText(text), doc, nil
}

// NormalizeText collapses runs of whitespace and strips any markup remnants
// so downstream keyword and date scans work on clean text.
func NormalizeText(text string) string {
	text = html.UnescapeString(textPolicy.Sanitize(text))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = trailingSpaces.ReplaceAllString(text, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// PageTitle returns the best title for an HTML page: the first h1, else the
// document title.
func PageTitle(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
