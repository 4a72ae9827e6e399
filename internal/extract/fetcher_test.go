package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/models"
)

func TestFormatFor(t *testing.T) {
	cases := map[string]models.DocumentFormat{
		"https://example.com/tender":              models.FormatHTML,
		"https://example.com/docs/notice.pdf":     models.FormatPDF,
		"https://example.com/docs/Notice.PDF?v=2": models.FormatPDF,
		"https://example.com/docs/notice.docx":    models.FormatDOC,
		"https://example.com/docs/notice.doc":     models.FormatDOC,
		"https://example.com/notice.php":          models.FormatHTML,
	}
	for url, want := range cases {
		assert.Equal(t, want, FormatFor(url), url)
	}
}

func TestFetchHTMLWithSubLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tenders", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<h1>Open Tenders</h1>
			<p>Closing date: 25 March 2025</p>
			<a href="/tenders/notice-14.pdf">Tender Notice 14</a>
			<a href="/tenders/rfp-supply-of-laptops">RFP: Supply of Laptops</a>
			<a href="/about">About us</a>
			<a href="/login">Login</a>
			<a href="https://other.example.org/tender">External tender</a>
			<a href="/news/weather-update">Weather update</a>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	doc, err := f.Fetch(context.Background(), srv.URL+"/tenders")
	require.NoError(t, err)

	assert.Equal(t, models.FormatHTML, doc.Format)
	assert.Equal(t, "Open Tenders", doc.Title)
	assert.Contains(t, doc.Text, "Closing date: 25 March 2025")

	// Same origin only, login/about filtered, off-topic filtered.
	assert.Equal(t, []string{
		srv.URL + "/tenders/notice-14.pdf",
		srv.URL + "/tenders/rfp-supply-of-laptops",
	}, doc.SubLinks)
}

func TestFetchSubLinkCap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<a href="/tender-1">t1</a><a href="/tender-2">t2</a>
			<a href="/tender-3">t3</a><a href="/tender-4">t4</a>
			<a href="/tender-5">t5</a>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	doc, err := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Len(t, doc.SubLinks, 3)
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, srv.URL+"/missing", fetchErr.URL)
}

func TestFetchContentTypeOverridesSuffix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 garbage"))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL+"/download")

	// Classified as PDF by Content-Type; the broken body then fails PDF
	// extraction rather than being mistaken for HTML.
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewFetcher(50 * time.Millisecond)
	_, err := f.Fetch(context.Background(), srv.URL+"/slow")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}
