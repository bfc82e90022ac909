package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"doc-harvester/pkg/utils"
)

// networkQuietPeriod is how long the page must go without any request in
// flight, after the load event, before its DOM is considered settled.
const networkQuietPeriod = 500 * time.Millisecond

// RenderedDownloader fetches a page by driving a headless browser session and
// serializing the rendered DOM. Used for pages whose content is built up by
// client-side scripts and invisible to a plain HTTP fetch.
type RenderedDownloader struct {
	robots       *RobotsCache
	rateLimiter  *RateLimiter
	hostSems     *HostSemaphorePool
	userAgent    string
	delayPerHost time.Duration
	log          *logrus.Entry
}

// NewRenderedDownloader creates a RenderedDownloader
func NewRenderedDownloader(
	robots *RobotsCache,
	rateLimiter *RateLimiter,
	hostSems *HostSemaphorePool,
	userAgent string,
	delayPerHost time.Duration,
	log *logrus.Entry,
) *RenderedDownloader {
	return &RenderedDownloader{
		robots:       robots,
		rateLimiter:  rateLimiter,
		hostSems:     hostSems,
		userAgent:    userAgent,
		delayPerHost: delayPerHost,
		log:          log,
	}
}

// Fetch navigates a headless browser to rawURL, waits for the load event plus
// a quiet period with no network requests in flight, and writes the rendered
// HTML to destPath. The browser session is torn down on every exit path; the
// supplied ctx bounds total wait time.
func (d *RenderedDownloader) Fetch(ctx context.Context, rawURL, destPath string) (*Outcome, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrRequestCreation, err)
	}

	if !d.robots.CanFetch(ctx, parsed, d.userAgent) {
		return nil, fmt.Errorf("%w: %s", utils.ErrRobotsDisallowed, rawURL)
	}

	host := parsed.Host
	if err := d.hostSems.Acquire(ctx, host); err != nil {
		return nil, fmt.Errorf("acquiring host semaphore: %w", err)
	}
	defer d.hostSems.Release(host)

	d.rateLimiter.ApplyDelay(host, d.delayPerHost)
	defer d.rateLimiter.UpdateLastRequestTime(host)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(d.userAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	tracker := newIdleTracker(networkQuietPeriod)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			tracker.start(string(e.RequestID))
		case *network.EventLoadingFinished:
			tracker.finish(string(e.RequestID))
		case *network.EventLoadingFailed:
			tracker.finish(string(e.RequestID))
		}
	})

	var renderedHTML, finalURL string
	err = chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return tracker.wait(ctx)
		}),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &renderedHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrRenderFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating destination dir: %v", utils.ErrFilesystem, err)
	}
	if err := os.WriteFile(destPath, []byte(renderedHTML), 0o644); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("%w: writing rendered page: %v", utils.ErrFilesystem, err)
	}

	d.log.WithFields(logrus.Fields{"url": rawURL, "final_url": finalURL, "path": destPath}).Debug("Rendered and saved page")
	return &Outcome{
		FinalURL:     finalURL,
		BytesWritten: int64(len(renderedHTML)),
	}, nil
}

// idleTracker watches request start/finish events and signals once no request
// has been in flight for a quiet interval.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	quiet    time.Duration
	timer    *time.Timer
	idle     chan struct{}
}

func newIdleTracker(quiet time.Duration) *idleTracker {
	t := &idleTracker{
		inflight: make(map[string]struct{}),
		quiet:    quiet,
		idle:     make(chan struct{}, 1),
	}
	t.timer = time.AfterFunc(quiet, t.signal)
	return t
}

func (t *idleTracker) signal() {
	select {
	case t.idle <- struct{}{}:
	default:
	}
}

// start records a request going in flight and suspends the quiet timer.
func (t *idleTracker) start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.timer.Stop()
}

// finish records a request leaving flight; the quiet timer restarts once
// nothing is in flight.
func (t *idleTracker) finish(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
	if len(t.inflight) == 0 {
		t.timer.Reset(t.quiet)
	}
}

// wait blocks until a quiet interval has elapsed with nothing in flight, or
// ctx ends. Stale signals raced by a new request are discarded.
func (t *idleTracker) wait(ctx context.Context) error {
	for {
		select {
		case <-t.idle:
			t.mu.Lock()
			quiet := len(t.inflight) == 0
			t.mu.Unlock()
			if quiet {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
