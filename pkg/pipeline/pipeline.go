// Package pipeline drives every input URL through classify, fetch, and
// extract, recording one terminal outcome per URL. Records are independent
// units of work; stages within one record run strictly in order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"doc-harvester/pkg/classify"
	"doc-harvester/pkg/config"
	"doc-harvester/pkg/extract"
	"doc-harvester/pkg/fetch"
	"doc-harvester/pkg/models"
	"doc-harvester/pkg/utils"
)

// Pipeline owns the dispatch tables mapping classification to a downloader
// and resolved extension to an extractor, plus the shared politeness state
// (robots cache, rate limiter, host semaphores) scoped to one run.
type Pipeline struct {
	cfg         *config.AppConfig
	log         *logrus.Entry
	classifier  *classify.Classifier
	downloaders map[models.Kind]fetch.Downloader
	extractors  map[string]extract.Extractor
}

// New wires up a Pipeline from configuration.
func New(cfg *config.AppConfig, log *logrus.Entry) *Pipeline {
	client := fetch.NewClient(cfg.HTTPClientSettings, log)
	fetcher := fetch.NewFetcher(client, cfg, log)
	rateLimiter := fetch.NewRateLimiter(cfg.DelayPerHost, log)
	hostSems := fetch.NewHostSemaphorePool(cfg.MaxRequestsPerHost, log)
	robots := fetch.NewRobotsCache(fetcher, rateLimiter, cfg.UserAgent, log)

	httpDownloader := fetch.NewHTTPDownloader(fetcher, robots, rateLimiter, hostSems, cfg.UserAgent, cfg.DelayPerHost, log)
	var pageDownloader fetch.Downloader = httpDownloader
	if cfg.RenderPages {
		pageDownloader = fetch.NewRenderedDownloader(robots, rateLimiter, hostSems, cfg.UserAgent, cfg.DelayPerHost, log)
	}

	htmlExtractor := extract.NewHTMLExtractor(log)
	return &Pipeline{
		cfg:        cfg,
		log:        log,
		classifier: classify.NewClassifier(client, cfg.UserAgent, cfg.ProbeTimeout, log),
		downloaders: map[models.Kind]fetch.Downloader{
			models.KindDocument: httpDownloader,
			models.KindPage:     pageDownloader,
		},
		extractors: map[string]extract.Extractor{
			".pdf":  extract.NewPDFExtractor(log),
			".docx": extract.NewDocxExtractor(log),
			".xlsx": extract.NewXLSXExtractor(log),
			".html": htmlExtractor,
			".htm":  htmlExtractor,
		},
	}
}

// Run normalizes the input URLs, creates one record per URL, and processes
// the records with a bounded worker pool. The returned slice preserves input
// order and always has one entry per input URL.
func (p *Pipeline) Run(ctx context.Context, rawURLs []string) []*models.Record {
	records := make([]*models.Record, len(rawURLs))
	for i, raw := range rawURLs {
		normalized, err := utils.NormalizeURL(raw)
		if err != nil {
			rec := models.NewRecord(raw)
			rec.MarkDownloadFailed(fmt.Sprintf("invalid URL: %v", err))
			records[i] = rec
			continue
		}
		records[i] = models.NewRecord(normalized)
	}

	workers := p.cfg.NumWorkers
	if workers <= 0 {
		workers = 1
		p.log.Warnf("num_workers invalid or zero, defaulting to %d", workers)
	}

	jobs := make(chan *models.Record)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerLog := p.log.WithField("worker", workerID)
			for rec := range jobs {
				p.process(ctx, rec, workerLog)
			}
		}(i)
	}

	for _, rec := range records {
		if rec.Status.IsTerminal() {
			continue
		}
		jobs <- rec
	}
	close(jobs)
	wg.Wait()

	return records
}

// process drives one record through the state machine. Every exit leaves the
// record in a definite status; failure statuses carry a non-empty cause.
func (p *Pipeline) process(ctx context.Context, rec *models.Record, log *logrus.Entry) {
	recLog := log.WithFields(logrus.Fields{"record": rec.ID, "url": rec.SourceURL})

	if err := ctx.Err(); err != nil {
		rec.MarkDownloadFailed(fmt.Sprintf("run cancelled: %v", err))
		return
	}

	// Stage 1: classify. Unknown classification is terminal; no fetch happens.
	kind, ext := p.classifier.Classify(ctx, rec.SourceURL)
	rec.MarkClassified(kind, ext)
	if kind != models.KindPage && kind != models.KindDocument {
		recLog.Warn("Could not classify URL content type")
		rec.MarkDownloadFailed("could not resolve content type")
		return
	}
	recLog = recLog.WithFields(logrus.Fields{"kind": kind, "ext": ext})

	// Stage 2: fetch via the downloader keyed by classification.
	downloader := p.downloaders[kind]
	rawPath := filepath.Join(p.cfg.RawDir, kindSubdir(kind), rec.ID+ext)

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	outcome, err := downloader.Fetch(fetchCtx, rec.SourceURL, rawPath)
	cancel()
	if err != nil {
		if errors.Is(err, utils.ErrRobotsDisallowed) {
			recLog.Info("Skipping URL disallowed by robots.txt")
			rec.MarkSkippedRobots()
			return
		}
		recLog.WithField("category", utils.CategorizeError(err)).Warnf("Fetch failed: %v", err)
		rec.MarkDownloadFailed(err.Error())
		return
	}
	rec.MarkFetched(outcome.FinalURL, rawPath, outcome.BytesWritten)

	// Stage 3: extract via the extractor keyed by the resolved extension.
	extractor, ok := p.extractors[rec.Ext]
	if !ok {
		recLog.Warnf("No extractor for format %q", rec.Ext)
		rec.MarkProcessingFailed(fmt.Sprintf("%v: %s", utils.ErrUnsupportedFormat, rec.Ext))
		return
	}
	processedPath := filepath.Join(p.cfg.ProcessedDir, kindSubdir(rec.Kind), rec.ID+".txt")
	extractCtx, cancelExtract := context.WithTimeout(ctx, p.cfg.ExtractTimeout)
	result, err := extractor.Extract(extractCtx, rec.RawPath, processedPath)
	cancelExtract()
	if err != nil {
		recLog.WithField("category", utils.CategorizeError(err)).Warnf("Extraction failed: %v", err)
		rec.MarkProcessingFailed(err.Error())
		return
	}
	rec.MarkExtracted(processedPath, result.Metadata)

	recLog.WithFields(logrus.Fields{
		"bytes": rec.SizeBytes, "language": rec.Metadata.Language,
	}).Info("Record processed successfully")
}

// kindSubdir partitions artifact directories by classified kind.
func kindSubdir(kind models.Kind) string {
	if kind == models.KindPage {
		return "pages"
	}
	return "documents"
}
