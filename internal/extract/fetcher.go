package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/logger"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/models"
)

// FetchError wraps any failure while fetching or extracting one document.
// It skips that document only, never the whole task.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Document is a fetched page or file reduced to plain text, plus any
// same-origin sub-links worth following one hop deeper.
type Document struct {
	URL      string
	Format   models.DocumentFormat
	Title    string
	Text     string
	SubLinks []string
}

const (
	maxBodyBytes      = 20 * 1024 * 1024
	maxSubLinkPool    = 15
	maxSubLinksKept   = 3
	defaultFetchLimit = 8 * time.Second
)

// Fetcher retrieves a destination URL within a bounded timeout and extracts
// its text by format. Format is decided by URL suffix first, then by the
// response Content-Type when the suffix is ambiguous.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchLimit
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		timeout: timeout,
	}
}

// FormatFor classifies a URL by its path suffix.
func FormatFor(pageURL string) models.DocumentFormat {
	u, err := url.Parse(pageURL)
	if err != nil {
		return models.FormatHTML
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".pdf":
		return models.FormatPDF
	case ".doc", ".docx":
		return models.FormatDOC
	default:
		return models.FormatHTML
	}
}

// Fetch downloads pageURL and returns its extracted text. HTML documents
// also carry up to three same-origin sub-links worth one extra hop; PDF and
// DOC documents never do.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Cause: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/pdf,application/msword,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: pageURL, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Cause: err}
	}

	format := FormatFor(pageURL)
	if format == models.FormatHTML {
		// A suffix-less URL can still serve a binary document.
		switch {
		case strings.Contains(resp.Header.Get("Content-Type"), "application/pdf"):
			format = models.FormatPDF
		case strings.Contains(resp.Header.Get("Content-Type"), "application/msword"),
			strings.Contains(resp.Header.Get("Content-Type"), "officedocument.wordprocessingml"):
			format = models.FormatDOC
		}
	}

	doc := &Document{URL: pageURL, Format: format}

	switch format {
	case models.FormatPDF:
		doc.Text, err = ExtractPDFText(body)
	case models.FormatDOC:
		doc.Text, err = ExtractDocText(body, pageURL)
	default:
		var page *goquery.Document
		doc.Text, page, err = ExtractHTMLText(body)
		if err == nil {
			doc.Title = PageTitle(page)
			doc.SubLinks = discoverSubLinks(page, pageURL)
		}
	}
	if err != nil {
		return nil, &FetchError{URL: pageURL, Cause: err}
	}

	logger.ForComponent("fetcher").Debug().
		Str("url", pageURL).
		Str("format", string(format)).
		Int("text_len", len(doc.Text)).
		Int("sub_links", len(doc.SubLinks)).
		Msg("document fetched")

	return doc, nil
}

var skipLinkWords = []string{
	"login", "signin", "sign-in", "signup", "sign-up", "register",
	"contact", "about", "privacy", "terms", "cookie", "faq",
}

var followLinkWords = []string{
	"tender", "bid", "rfp", "rfq", "eoi", "procurement", "proposal",
	"advert", "notice", "opportunit",
}

// discoverSubLinks collects same-origin links from an HTML page that look
// like they lead to the tender document itself. At most 15 candidates are
// considered and at most 3 survive; the follow-up hop is always depth one.
func discoverSubLinks(page *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := map[string]bool{pageURL: true}
	var candidates []string

	page.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return true
		}

		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(u)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		if !strings.EqualFold(resolved.Hostname(), base.Hostname()) {
			return true
		}
		resolved.Fragment = ""

		link := resolved.String()
		if seen[link] {
			return true
		}
		seen[link] = true
		candidates = append(candidates, link)
		return len(candidates) < maxSubLinkPool
	})

	var kept []string
	for _, link := range candidates {
		lower := strings.ToLower(link)
		if containsAny(lower, skipLinkWords) {
			continue
		}
		binary := FormatFor(link) != models.FormatHTML
		if !binary && !containsAny(lower, followLinkWords) {
			continue
		}
		kept = append(kept, link)
		if len(kept) == maxSubLinksKept {
			break
		}
	}
	return kept
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
