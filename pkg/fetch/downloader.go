package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"doc-harvester/pkg/utils"
)

// Outcome describes a completed fetch: the effective URL after redirects and
// the number of bytes written to the destination file.
type Outcome struct {
	FinalURL     string
	BytesWritten int64
}

// Downloader is the fetch capability. Implementations consult the robots
// cache before any network I/O and convert every internal failure into an
// error return; a robots denial is reported as utils.ErrRobotsDisallowed.
type Downloader interface {
	Fetch(ctx context.Context, rawURL, destPath string) (*Outcome, error)
}

// HTTPDownloader streams a single HTTP response to disk through the retrying
// fetcher.
type HTTPDownloader struct {
	fetcher      *Fetcher
	robots       *RobotsCache
	rateLimiter  *RateLimiter
	hostSems     *HostSemaphorePool
	userAgent    string
	delayPerHost time.Duration
	log          *logrus.Entry
}

// NewHTTPDownloader creates an HTTPDownloader
func NewHTTPDownloader(
	fetcher *Fetcher,
	robots *RobotsCache,
	rateLimiter *RateLimiter,
	hostSems *HostSemaphorePool,
	userAgent string,
	delayPerHost time.Duration,
	log *logrus.Entry,
) *HTTPDownloader {
	return &HTTPDownloader{
		fetcher:      fetcher,
		robots:       robots,
		rateLimiter:  rateLimiter,
		hostSems:     hostSems,
		userAgent:    userAgent,
		delayPerHost: delayPerHost,
		log:          log,
	}
}

// Fetch downloads rawURL to destPath. The destination directory is created if
// absent; a partial file is removed on every failure path.
func (d *HTTPDownloader) Fetch(ctx context.Context, rawURL, destPath string) (*Outcome, error) {
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

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.fetcher.FetchWithRetry(ctx, req)
	d.rateLimiter.UpdateLastRequestTime(host)
	if err != nil {
		if resp != nil {
			drainAndClose(resp)
		}
		return nil, err
	}
	defer resp.Body.Close()

	written, err := streamToFile(resp.Body, destPath)
	if err != nil {
		return nil, err
	}

	d.log.WithFields(logrus.Fields{"url": rawURL, "path": destPath, "bytes": written}).Debug("Downloaded")
	return &Outcome{
		FinalURL:     resp.Request.URL.String(),
		BytesWritten: written,
	}, nil
}

// streamToFile writes r to destPath, creating parent directories on demand.
// The partial file is removed if the copy fails.
func streamToFile(r io.Reader, destPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("%w: creating destination dir: %v", utils.ErrFilesystem, err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("%w: creating destination file: %v", utils.ErrFilesystem, err)
	}

	written, err := io.Copy(out, r)
	closeErr := out.Close()
	if err != nil {
		os.Remove(destPath)
		return 0, fmt.Errorf("writing response body: %w", err)
	}
	if closeErr != nil {
		os.Remove(destPath)
		return 0, fmt.Errorf("%w: closing destination file: %v", utils.ErrFilesystem, closeErr)
	}
	return written, nil
}
