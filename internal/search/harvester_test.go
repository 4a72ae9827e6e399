package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/config"
)

const resultsPage = `<html><body>
<div class="g">
  <a href="/url?q=https%3A%2F%2Fexample.com%2Ftender-1"><h3>Supply of Office Equipment</h3></a>
</div>
<div class="g">
  <a href="/url?q=https%3A%2F%2Fexample.org%2Frfp-2"><h3>Request for Proposal: ICT Services</h3></a>
</div>
<div class="g">
  <a href=""><h3>Broken entry</h3></a>
</div>
</body></html>`

const fallbackPage = `<html><body>
<div class="MjjYud">
  <a href="https://example.com/tender-3"><h3>Construction Works Tender</h3></a>
</div>
</body></html>`

type fakeBlockCache struct {
	data map[string][]byte
}

func newFakeBlockCache() *fakeBlockCache {
	return &fakeBlockCache{data: make(map[string][]byte)}
}

func (c *fakeBlockCache) Get(key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *fakeBlockCache) Set(key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *fakeBlockCache) Delete(key string) error {
	delete(c.data, key)
	return nil
}

func newTestHarvester(t *testing.T, fetch func(ctx context.Context, pageURL string) (string, error)) (*Harvester, *fakeBlockCache) {
	t.Helper()
	reg, err := config.LoadRegistry("")
	require.NoError(t, err)

	blockCache := newFakeBlockCache()
	h := NewHarvester(reg, nil, blockCache, 5*time.Second)
	h.fetch = fetch
	h.delay = func(context.Context) {}
	return h, blockCache
}

func TestHarvestExtractsResults(t *testing.T) {
	h, _ := newTestHarvester(t, func(context.Context, string) (string, error) {
		return resultsPage, nil
	})

	results, err := h.Harvest(context.Background(), "google", "https://www.google.com/search?q=tender")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "Supply of Office Equipment", results[0].Title)
	assert.Equal(t, "/url?q=https%3A%2F%2Fexample.com%2Ftender-1", results[0].Href)
	assert.Equal(t, "Request for Proposal: ICT Services", results[1].Title)
}

func TestHarvestFallbackSelector(t *testing.T) {
	h, _ := newTestHarvester(t, func(context.Context, string) (string, error) {
		return fallbackPage, nil
	})

	results, err := h.Harvest(context.Background(), "google", "https://www.google.com/search?q=tender")
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "Construction Works Tender", results[0].Title)
	assert.Equal(t, "https://example.com/tender-3", results[0].Href)
}

func TestHarvestFetchFailureBlocksEngine(t *testing.T) {
	h, blockCache := newTestHarvester(t, func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	})
	h.retry.BaseDelay = time.Millisecond
	h.retry.MaxJitter = 0

	_, err := h.Harvest(context.Background(), "google", "https://www.google.com/search?q=tender")

	var harvestErr *HarvestError
	require.ErrorAs(t, err, &harvestErr)
	assert.Equal(t, "google", harvestErr.Engine)

	_, blocked := blockCache.data[engineBlockKeyPrefix+"google"]
	assert.True(t, blocked)

	// The cool-down short-circuits the next harvest without fetching.
	_, err = h.Harvest(context.Background(), "google", "https://www.google.com/search?q=tender")
	require.ErrorAs(t, err, &harvestErr)
}

func TestHarvestUnknownEngine(t *testing.T) {
	h, _ := newTestHarvester(t, func(context.Context, string) (string, error) {
		return resultsPage, nil
	})

	_, err := h.Harvest(context.Background(), "altavista", "https://altavista.example/search")

	var harvestErr *HarvestError
	require.ErrorAs(t, err, &harvestErr)
	assert.ErrorIs(t, err, ErrUnsupportedEngine)
}

func TestHarvestCanceledContext(t *testing.T) {
	h, _ := newTestHarvester(t, func(context.Context, string) (string, error) {
		return resultsPage, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Harvest(ctx, "google", "https://www.google.com/search?q=tender")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
