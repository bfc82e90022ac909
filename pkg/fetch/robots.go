package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"doc-harvester/pkg/utils"
)

// RobotsCache caches parsed robots.txt data per origin (scheme+host) for the
// lifetime of one pipeline run. A nil cached value is the "no policy" sentinel:
// unreachable or unparsable robots.txt means everything is allowed. Concurrent
// first-time lookups for the same origin collapse into a single fetch.
type RobotsCache struct {
	fetcher     *Fetcher
	rateLimiter *RateLimiter
	userAgent   string

	cache   map[string]*robotstxt.RobotsData
	cacheMu sync.Mutex
	group   singleflight.Group

	log *logrus.Entry
}

// NewRobotsCache creates a RobotsCache
func NewRobotsCache(fetcher *Fetcher, rateLimiter *RateLimiter, userAgent string, log *logrus.Entry) *RobotsCache {
	return &RobotsCache{
		fetcher:     fetcher,
		rateLimiter: rateLimiter,
		userAgent:   userAgent,
		cache:       make(map[string]*robotstxt.RobotsData),
		log:         log,
	}
}

// CanFetch reports whether the agent may fetch the URL according to the
// origin's robots.txt. Missing, unreachable, or unparsable policy means allow.
func (rc *RobotsCache) CanFetch(ctx context.Context, targetURL *url.URL, agent string) bool {
	data := rc.robotsData(ctx, targetURL)
	if data == nil {
		return true
	}
	return data.TestAgent(targetURL.RequestURI(), agent)
}

// robotsData returns the parsed robots.txt for the URL's origin, fetching it
// at most once per origin per run.
func (rc *RobotsCache) robotsData(ctx context.Context, targetURL *url.URL) *robotstxt.RobotsData {
	origin := utils.Origin(targetURL)

	rc.cacheMu.Lock()
	data, found := rc.cache[origin]
	rc.cacheMu.Unlock()
	if found {
		return data
	}

	// Collapse concurrent first-queries for the same origin into one fetch.
	v, _, _ := rc.group.Do(origin, func() (interface{}, error) {
		rc.cacheMu.Lock()
		if cached, ok := rc.cache[origin]; ok {
			rc.cacheMu.Unlock()
			return cached, nil
		}
		rc.cacheMu.Unlock()

		fetched := rc.fetchRobots(ctx, targetURL, origin)

		rc.cacheMu.Lock()
		rc.cache[origin] = fetched
		rc.cacheMu.Unlock()
		return fetched, nil
	})
	data, _ = v.(*robotstxt.RobotsData)
	return data
}

// fetchRobots retrieves and parses <origin>/robots.txt. Any failure returns
// nil, which callers treat as "no policy".
func (rc *RobotsCache) fetchRobots(ctx context.Context, targetURL *url.URL, origin string) *robotstxt.RobotsData {
	host := targetURL.Host
	robotsURL := &url.URL{Scheme: targetURL.Scheme, Host: host, Path: "/robots.txt"}
	if targetURL.Scheme != "http" && targetURL.Scheme != "https" {
		robotsURL.Scheme = "https"
	}

	robotsLog := rc.log.WithFields(logrus.Fields{"origin": origin, "robots_url": robotsURL.String()})
	robotsLog.Info("Fetching robots.txt...")

	rc.rateLimiter.ApplyDelay(host, 0)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		robotsLog.Errorf("Error creating request: %v", err)
		return nil
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, fetchErr := rc.fetcher.FetchWithRetry(ctx, req)
	rc.rateLimiter.UpdateLastRequestTime(host)
	if fetchErr != nil {
		if resp != nil {
			drainAndClose(resp)
		}
		robotsLog.Warnf("Fetching robots.txt failed, assuming allowed: %v", fetchErr)
		return nil
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		robotsLog.Errorf("Error reading robots.txt body: %v", err)
		return nil
	}

	data, err := robotstxt.FromBytes(bodyBytes)
	if err != nil {
		robotsLog.Errorf("Error parsing robots.txt: %v", err)
		return nil
	}

	robotsLog.Info("Successfully fetched and parsed robots.txt")
	return data
}
