package search

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/backoff"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/cache"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/config"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/logger"
)

// Result is one raw entry harvested from an engine's results page.
type Result struct {
	Href  string
	Title string
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

const engineBlockKeyPrefix = "engine_block:"

// Harvester fetches one engine's results page and extracts (href, title)
// pairs. Engines are fetched politely: randomized user agent, 1-3s jittered
// delay per request, and a cool-down block after a failed harvest.
type Harvester struct {
	registry *config.Registry
	browser  Browser
	blockSvc cache.Service
	retry    backoff.Policy

	fetchTimeout time.Duration
	blockTime    time.Duration

	// fetch is swappable in tests.
	fetch func(ctx context.Context, pageURL string) (string, error)
	// delay is swappable in tests to avoid real sleeps.
	delay func(ctx context.Context)
}

func NewHarvester(registry *config.Registry, browser Browser, blockSvc cache.Service, fetchTimeout time.Duration) *Harvester {
	h := &Harvester{
		registry:     registry,
		browser:      browser,
		blockSvc:     blockSvc,
		retry:        backoff.Default,
		fetchTimeout: fetchTimeout,
		blockTime:    5 * time.Minute,
	}
	h.fetch = h.fetchHTTP
	h.delay = func(ctx context.Context) {
		jitter := time.Second + time.Duration(rand.Int63n(int64(2*time.Second)))
		select {
		case <-ctx.Done():
		case <-time.After(jitter):
		}
	}
	return h
}

// Harvest returns the ordered result entries from one engine for the given
// results-page URL. All failures come back as *HarvestError and abort this
// engine only.
func (h *Harvester) Harvest(ctx context.Context, engineID, queryURL string) ([]Result, error) {
	eng, ok := h.registry.Engine(engineID)
	if !ok {
		return nil, &HarvestError{Engine: engineID, Cause: fmt.Errorf("%w: %s", ErrUnsupportedEngine, engineID)}
	}

	log := logger.ForEngine(engineID)

	if h.blocked(engineID) {
		return nil, &HarvestError{Engine: engineID, Cause: fmt.Errorf("engine on cool-down after previous failure")}
	}

	h.delay(ctx)
	if ctx.Err() != nil {
		return nil, &HarvestError{Engine: engineID, Cause: ctx.Err()}
	}

	var html string
	err := h.retry.Do(ctx, func() error {
		var fetchErr error
		switch eng.Strategy {
		case "browser":
			html, fetchErr = h.browser.Navigate(ctx, queryURL, eng.WaitSelector)
		default:
			html, fetchErr = h.fetch(ctx, queryURL)
		}
		return fetchErr
	})
	if err != nil {
		h.block(engineID)
		log.WithError(err).Error().Str("url", queryURL).Msg("results page fetch failed")
		return nil, &HarvestError{Engine: engineID, Cause: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &HarvestError{Engine: engineID, Cause: fmt.Errorf("results page parse failed: %w", err)}
	}

	results := h.extract(doc, eng.Selectors.Results, eng.Selectors.Link, eng.Selectors.Title)
	if len(results) == 0 && eng.Selectors.FallbackResults != "" {
		log.Debug().Str("selector", eng.Selectors.FallbackResults).Msg("primary selector empty, trying fallback")
		results = h.extract(doc, eng.Selectors.FallbackResults, eng.Selectors.Link, eng.Selectors.Title)
	}

	log.Info().Int("results", len(results)).Msg("harvest finished")
	return results, nil
}

func (h *Harvester) extract(doc *goquery.Document, containerSel, linkSel, titleSel string) []Result {
	var results []Result
	doc.Find(containerSel).Each(func(_ int, s *goquery.Selection) {
		linkNode := s.Find(linkSel).First()
		href, exists := linkNode.Attr("href")
		if !exists || strings.TrimSpace(href) == "" {
			return
		}

		title := strings.TrimSpace(s.Find(titleSel).First().Text())
		if title == "" {
			title = strings.TrimSpace(linkNode.Text())
		}
		if title == "" {
			return
		}

		results = append(results, Result{Href: strings.TrimSpace(href), Title: title})
	})
	return results
}

// fetchHTTP retrieves a results page over plain HTTP via colly.
func (h *Harvester) fetchHTTP(ctx context.Context, pageURL string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(randomUserAgent()),
		colly.MaxBodySize(10*1024*1024),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(h.fetchTimeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var body []byte
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return "", err
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if len(body) == 0 {
		return "", fmt.Errorf("empty response from %s", pageURL)
	}
	return string(body), nil
}

func (h *Harvester) blocked(engineID string) bool {
	if h.blockSvc == nil {
		return false
	}
	_, err := h.blockSvc.Get(engineBlockKeyPrefix + engineID)
	return err == nil
}

func (h *Harvester) block(engineID string) {
	if h.blockSvc == nil {
		return
	}
	if err := h.blockSvc.Set(engineBlockKeyPrefix+engineID, []byte("1"), h.blockTime); err != nil {
		logger.ForEngine(engineID).WithError(err).Warn().Msg("failed to set engine block")
	}
}
