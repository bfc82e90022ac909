package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-harvester/pkg/config"
	"doc-harvester/pkg/extract"
	"doc-harvester/pkg/models"
)

func pipelineTestLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestPipeline(t *testing.T) (*Pipeline, *config.AppConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		UserAgent:          "harvester-test",
		NumWorkers:         2,
		MaxRequestsPerHost: 2,
		RawDir:             filepath.Join(dir, "raw"),
		ProcessedDir:       filepath.Join(dir, "processed"),
		ReportPath:         filepath.Join(dir, "report.csv"),
		FetchTimeout:       10 * time.Second,
		ProbeTimeout:       5 * time.Second,
		ExtractTimeout:     10 * time.Second,
		InitialRetryDelay:  10 * time.Millisecond,
		MaxRetryDelay:      20 * time.Millisecond,
	}
	return New(cfg, pipelineTestLogger()), cfg
}

// recordingExtractor counts calls so tests can prove a stage never ran.
type recordingExtractor struct {
	calls atomic.Int32
}

func (r *recordingExtractor) Extract(ctx context.Context, rawPath, destPath string) (*extract.Result, error) {
	r.calls.Add(1)
	return &extract.Result{}, nil
}

const articleHTML = `<html><head><title>Budget</title></head>
<body><p>The council approved the budget for the coming fiscal year.</p></body></html>`

func TestPipeline_HTMLPageEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, articleHTML)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	p, _ := newTestPipeline(t)
	records := p.Run(context.Background(), []string{server.URL + "/article?utm_source=news&ref=1"})
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, models.StatusSuccess, rec.Status)
	assert.Equal(t, server.URL+"/article?ref=1", rec.SourceURL, "tracking parameters are stripped up front")
	assert.Equal(t, models.KindPage, rec.Kind)
	assert.Equal(t, ".html", rec.Ext)
	assert.NotEmpty(t, rec.FinalURL)
	assert.Empty(t, rec.ErrorMessage)
	assert.Equal(t, "en", rec.Metadata.Language)
	assert.False(t, rec.FetchedAt.IsZero())
	assert.Greater(t, rec.SizeBytes, int64(0))

	assert.Contains(t, rec.RawPath, filepath.Join("raw", "pages"))
	raw, err := os.ReadFile(rec.RawPath)
	require.NoError(t, err)
	assert.Equal(t, articleHTML, string(raw))

	processed, err := os.ReadFile(rec.ProcessedPath)
	require.NoError(t, err)
	assert.Contains(t, string(processed), "The council approved the budget")
}

func TestPipeline_RobotsDisallowed(t *testing.T) {
	var pageRequests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			io.WriteString(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		if r.Method != http.MethodHead {
			pageRequests.Add(1)
		}
		w.Header().Set("Content-Type", "application/pdf")
	}))
	t.Cleanup(server.Close)

	p, _ := newTestPipeline(t)
	stub := &recordingExtractor{}
	for ext := range p.extractors {
		p.extractors[ext] = stub
	}

	records := p.Run(context.Background(), []string{server.URL + "/private/doc.pdf"})
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, models.StatusSkippedRobots, rec.Status)
	assert.Empty(t, rec.ErrorMessage, "a policy skip carries no error message")
	assert.Empty(t, rec.RawPath)
	assert.True(t, rec.FetchedAt.IsZero())
	assert.Equal(t, int32(0), pageRequests.Load(), "the resource itself must not be downloaded")
	assert.Equal(t, int32(0), stub.calls.Load(), "no extraction after a policy skip")
}

func TestPipeline_DownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodHead:
			w.Header().Set("Content-Type", "application/pdf")
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	p, _ := newTestPipeline(t)
	records := p.Run(context.Background(), []string{server.URL + "/doc.pdf"})
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, models.StatusFailedDownload, rec.Status)
	assert.NotEmpty(t, rec.ErrorMessage, "failure statuses carry a cause")
	assert.True(t, rec.FetchedAt.IsZero())
}

func TestPipeline_CorruptDocumentFailsProcessing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "application/pdf")
			io.WriteString(w, "%PDF-1.4 truncated garbage")
		}
	}))
	t.Cleanup(server.Close)

	p, _ := newTestPipeline(t)
	records := p.Run(context.Background(), []string{server.URL + "/doc.pdf"})
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, models.StatusFailedProcessing, rec.Status)
	assert.NotEmpty(t, rec.ErrorMessage)
	assert.NotEmpty(t, rec.RawPath, "the raw artifact survives a processing failure")
	_, err := os.Stat(rec.RawPath)
	assert.NoError(t, err)
	assert.Empty(t, rec.ProcessedPath)
}

func TestPipeline_UnclassifiableURLNeverFetched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	p, _ := newTestPipeline(t)
	records := p.Run(context.Background(), []string{base + "/api/v2/items"})
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, models.StatusFailedDownload, rec.Status)
	assert.Equal(t, "could not resolve content type", rec.ErrorMessage)
	assert.Equal(t, models.KindUnknown, rec.Kind)
	assert.Empty(t, rec.RawPath)
}

// stallingExtractor blocks until its context ends.
type stallingExtractor struct{}

func (s *stallingExtractor) Extract(ctx context.Context, rawPath, destPath string) (*extract.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPipeline_ExtractionTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "application/pdf")
			io.WriteString(w, "%PDF-1.4 content")
		}
	}))
	t.Cleanup(server.Close)

	p, cfg := newTestPipeline(t)
	cfg.ExtractTimeout = 50 * time.Millisecond
	for ext := range p.extractors {
		p.extractors[ext] = &stallingExtractor{}
	}

	done := make(chan []*models.Record, 1)
	go func() { done <- p.Run(context.Background(), []string{server.URL + "/doc.pdf"}) }()

	select {
	case records := <-done:
		require.Len(t, records, 1)
		rec := records[0]
		assert.Equal(t, models.StatusFailedProcessing, rec.Status)
		assert.NotEmpty(t, rec.ErrorMessage)
	case <-time.After(5 * time.Second):
		t.Fatal("extraction was not bounded by the configured timeout")
	}
}

func TestPipeline_ZeroWorkersStillRuns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, articleHTML)
		}
	}))
	t.Cleanup(server.Close)

	p, cfg := newTestPipeline(t)
	cfg.NumWorkers = 0

	done := make(chan []*models.Record, 1)
	go func() { done <- p.Run(context.Background(), []string{server.URL + "/page"}) }()

	select {
	case records := <-done:
		require.Len(t, records, 1)
		assert.Equal(t, models.StatusSuccess, records[0].Status)
	case <-time.After(10 * time.Second):
		t.Fatal("run with an unvalidated worker count never completed")
	}
}

func TestPipeline_InvalidInputURL(t *testing.T) {
	p, _ := newTestPipeline(t)
	records := p.Run(context.Background(), []string{"http://exa mple.com/a", "://missing-scheme"})
	require.Len(t, records, 2)

	for _, rec := range records {
		assert.Equal(t, models.StatusFailedDownload, rec.Status)
		assert.True(t, strings.HasPrefix(rec.ErrorMessage, "invalid URL:"), "got %q", rec.ErrorMessage)
	}
}

func TestPipeline_PreservesInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, articleHTML)
		}
	}))
	t.Cleanup(server.Close)

	inputs := []string{
		server.URL + "/a",
		"://broken",
		server.URL + "/b",
	}
	p, _ := newTestPipeline(t)
	records := p.Run(context.Background(), inputs)
	require.Len(t, records, 3)

	assert.Equal(t, inputs[0], records[0].SourceURL)
	assert.Equal(t, inputs[1], records[1].SourceURL)
	assert.Equal(t, inputs[2], records[2].SourceURL)
	assert.Equal(t, models.StatusSuccess, records[0].Status)
	assert.Equal(t, models.StatusFailedDownload, records[1].Status)
	assert.Equal(t, models.StatusSuccess, records[2].Status)
}
