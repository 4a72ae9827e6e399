package search

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Browser renders a page in a headless browser and returns its HTML. Every
// session is scoped to one Navigate call and released on all exit paths;
// leaking a browser process is a correctness bug.
type Browser interface {
	Navigate(ctx context.Context, pageURL, waitSelector string) (string, error)
}

// ChromeBrowser implements Browser with chromedp. Used for engines whose
// results markup requires JS execution.
type ChromeBrowser struct {
	Headless bool
	Timeout  time.Duration
}

func NewChromeBrowser(headless bool, timeout time.Duration) *ChromeBrowser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeBrowser{Headless: headless, Timeout: timeout}
}

// Navigate loads pageURL, waits for waitSelector to appear (when set), and
// returns the rendered document HTML.
func (b *ChromeBrowser) Navigate(ctx context.Context, pageURL, waitSelector string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(randomUserAgent()),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, b.Timeout)
	defer cancelRun()

	actions := []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		}),
		chromedp.Navigate(pageURL),
	}
	if waitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	} else {
		actions = append(actions, chromedp.Sleep(2*time.Second))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return "", fmt.Errorf("browser navigation failed for %s: %w", pageURL, err)
	}

	return html, nil
}
