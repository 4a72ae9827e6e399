package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/extract"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/logger"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/models"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/search"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/task"
)

// TenderStore persists discovered tenders.
type TenderStore interface {
	Upsert(ctx context.Context, t models.Tender) error
}

// KeywordSource supplies the keyword configuration for one run.
type KeywordSource interface {
	Snapshot(ctx context.Context) (models.KeywordSet, error)
}

// QueryBuilder builds one results-page URL per engine.
type QueryBuilder interface {
	Build(engineID string, terms []string, filters search.QueryFilters) (string, error)
}

// Harvester fetches an engine's results page.
type Harvester interface {
	Harvest(ctx context.Context, engineID, queryURL string) ([]search.Result, error)
}

// Resolver normalizes harvested hrefs.
type Resolver interface {
	Resolve(rawHref, engineID, pageURL string, visited map[string]bool) (string, *search.LinkRejected)
}

// Fetcher retrieves destination documents.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*extract.Document, error)
}

// Params are the inputs of one discovery run.
type Params struct {
	Terms   []string
	Engines []string
	Filters search.QueryFilters
}

// Pipeline runs one discovery task end to end: query, harvest, resolve,
// fetch, classify, date-extract, persist. Engines run sequentially; a
// failure at any stage is scoped to the narrowest unit that can absorb it
// (one link, one engine) and only configuration problems fail the task.
type Pipeline struct {
	builder   QueryBuilder
	harvester Harvester
	resolver  Resolver
	fetcher   Fetcher
	tenders   TenderStore
	keywords  KeywordSource
	now       func() time.Time
}

func New(builder QueryBuilder, harvester Harvester, resolver Resolver, fetcher Fetcher, tenders TenderStore, keywords KeywordSource) *Pipeline {
	return &Pipeline{
		builder:   builder,
		harvester: harvester,
		resolver:  resolver,
		fetcher:   fetcher,
		tenders:   tenders,
		keywords:  keywords,
		now:       time.Now,
	}
}

// Run executes one task under the given controller. Cancellation is
// cooperative: the flag is polled before each engine and before each link,
// and nowhere else.
func (p *Pipeline) Run(ctx context.Context, ctrl *task.Controller, params Params) {
	log := logger.ForTask(ctrl.TaskID())

	// Every task passes through running, even one that fails on
	// configuration before its first fetch.
	if err := ctrl.Start(ctx); err != nil {
		log.WithError(err).Error().Msg("task start rejected")
		return
	}

	kwSet, err := p.keywords.Snapshot(ctx)
	if err != nil {
		ctrl.Fail(ctx, err)
		return
	}

	classifier, err := extract.NewClassifier(kwSet.RelevantKeywords)
	if err != nil {
		// Nothing to match against means every document would be dropped;
		// surfacing a misconfiguration beats silently finding nothing.
		ctrl.Fail(ctx, err)
		return
	}
	dates := extract.NewDateExtractor(kwSet.ClosingKeywords)

	for _, engineID := range params.Engines {
		if ctrl.Canceled() {
			break
		}

		queryURL, err := p.builder.Build(engineID, params.Terms, params.Filters)
		if err != nil {
			log.WithError(err).Warn().Str("engine", engineID).Msg("engine skipped")
			continue
		}

		results, err := p.harvester.Harvest(ctx, engineID, queryURL)
		if err != nil {
			var harvestErr *search.HarvestError
			if errors.As(err, &harvestErr) {
				log.WithError(err).Warn().Str("engine", engineID).Msg("engine harvest failed, continuing")
				continue
			}
			ctrl.Fail(ctx, err)
			return
		}

		for _, result := range results {
			if ctrl.Canceled() {
				break
			}

			resolved, rejected := p.resolver.Resolve(result.Href, engineID, queryURL, ctrl.Visited())
			if rejected != nil {
				log.Debug().Str("href", rejected.Href).Str("reason", string(rejected.Reason)).Msg("link rejected")
				continue
			}

			ctrl.MarkVisited(ctx, resolved)
			p.processLink(ctx, ctrl, log, classifier, dates, resolved, result.Title, params.Filters.Region)
		}
	}

	ctrl.Complete(ctx)
}

// processLink fetches one resolved URL and persists a tender if the document
// is relevant. When the page itself is not the tender, its sub-links get one
// extra hop; sub-link documents never hop further.
func (p *Pipeline) processLink(ctx context.Context, ctrl *task.Controller, log *logger.Logger, classifier *extract.Classifier, dates *extract.DateExtractor, pageURL, title, location string) {
	doc, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		log.WithError(err).Debug().Str("url", pageURL).Msg("document skipped")
		return
	}

	if p.persistIfRelevant(ctx, ctrl, log, classifier, dates, doc, title, location) {
		return
	}

	for _, subLink := range doc.SubLinks {
		if ctrl.Visited()[subLink] {
			continue
		}
		subDoc, err := p.fetcher.Fetch(ctx, subLink)
		if err != nil {
			log.WithError(err).Debug().Str("url", subLink).Msg("sub-link skipped")
			continue
		}
		ctrl.MarkVisited(ctx, subLink)
		p.persistIfRelevant(ctx, ctrl, log, classifier, dates, subDoc, "", location)
	}
}

func (p *Pipeline) persistIfRelevant(ctx context.Context, ctrl *task.Controller, log *logger.Logger, classifier *extract.Classifier, dates *extract.DateExtractor, doc *extract.Document, title, location string) bool {
	pageURL := doc.URL

	relevant, matched := classifier.Classify(doc.Text)
	if !relevant {
		log.Debug().Str("url", pageURL).Msg("document not relevant")
		return false
	}

	closing, ok := dates.Extract(doc.Text)
	if !ok {
		// No usable closing date means the candidate is dropped, not
		// persisted as a guess.
		log.Debug().Str("url", pageURL).Msg("no parsable closing date, candidate dropped")
		return false
	}

	if title == "" {
		title = doc.Title
	}
	if title == "" {
		title = firstLine(doc.Text)
	}

	tender := models.Tender{
		Title:       title,
		Description: snippet(doc.Text, 500),
		ClosingDate: closing,
		SourceURL:   pageURL,
		Format:      doc.Format,
		ScrapedAt:   p.now().UTC(),
		TenderType:  tenderTypeFor(title + " " + doc.Text[:min(len(doc.Text), 200)]),
		// Location comes from the search scope, not from the document.
		Location: location,
		Keywords: matched,
	}
	// Status is derived at write time, never carried over.
	tender.Status = models.ComputeStatus(tender.ClosingDate, p.now())

	if err := p.tenders.Upsert(ctx, tender); err != nil {
		log.WithError(err).Error().Str("url", pageURL).Msg("tender persist failed")
		return false
	}

	ctrl.AddResult(ctx, tender)
	return true
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return snippet(line, 200)
		}
	}
	return ""
}

func snippet(text string, max int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut
}

func tenderTypeFor(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "expression of interest"), strings.Contains(lower, "eoi"):
		return "EOI"
	case strings.Contains(lower, "request for proposal"), strings.Contains(lower, "rfp"):
		return "RFP"
	case strings.Contains(lower, "request for quotation"), strings.Contains(lower, "rfq"):
		return "RFQ"
	case strings.Contains(lower, "prequalification"), strings.Contains(lower, "pre-qualification"):
		return "Prequalification"
	default:
		return "Tender"
	}
}
