package crawl

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeFetcher renders pages in a headless Chrome instance via chromedp
// before extracting the DOM, for sites whose main content is populated by
// client-side JavaScript.
type ChromeFetcher struct {
	execPath string
}

// NewChromeFetcher builds a JS-rendering fetcher, optionally pinned to a
// specific Chrome/Chromium binary via the CHROME_PATH environment variable.
func NewChromeFetcher() *ChromeFetcher {
	return &ChromeFetcher{execPath: os.Getenv("CHROME_PATH")}
}

func (f *ChromeFetcher) Fetch(ctx context.Context, rawURL string, js bool, timeout time.Duration, userAgent string) (FetchResult, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	var finalURL, outerHTML string
	tasks := chromedp.Tasks{
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &outerHTML, chromedp.ByQuery),
	}
	if err := chromedp.Run(runCtx, tasks); err != nil {
		return FetchResult{}, fmt.Errorf("crawl: render %s: %w", rawURL, err)
	}
	return FetchResult{StatusCode: 200, HTML: outerHTML, FinalURL: finalURL}, nil
}
