// Package classify decides whether a URL points at a markup page or a binary
// document, and with which file extension, using a header-only probe.
package classify

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"doc-harvester/pkg/models"
)

// knownExtensions maps the media types this pipeline handles to canonical
// extensions. Looked up before the stdlib mime tables so the dispatch key is
// stable across platforms.
var knownExtensions = map[string]string{
	"application/pdf": ".pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       ".xlsx",
	"application/msword":       ".doc",
	"application/vnd.ms-excel": ".xls",
	"text/html":                ".html",
	"application/xhtml+xml":    ".html",
	"text/plain":               ".txt",
}

// Classifier resolves a URL's content kind via a HEAD probe that follows
// redirects. Probe failures are swallowed: the result is simply KindUnknown.
type Classifier struct {
	client       *http.Client
	userAgent    string
	probeTimeout time.Duration
	log          *logrus.Entry
}

// NewClassifier creates a Classifier sharing the pipeline's HTTP client.
func NewClassifier(client *http.Client, userAgent string, probeTimeout time.Duration, log *logrus.Entry) *Classifier {
	return &Classifier{
		client:       client,
		userAgent:    userAgent,
		probeTimeout: probeTimeout,
		log:          log,
	}
}

// Classify issues a header-only probe against rawURL and maps the declared
// media type (or, when the probe answered without a usable header, the URL's
// path suffix) to a (kind, extension) pair. Extension ".html"/".htm" means
// page, any other resolvable extension means document, anything else is
// unknown. A probe that fails outright (network error, timeout) is a terminal
// classification failure: the result is unknown and no fallback is consulted.
func (c *Classifier) Classify(ctx context.Context, rawURL string) (models.Kind, string) {
	mediaType, ok := c.probeMediaType(ctx, rawURL)
	if !ok {
		return models.KindUnknown, ""
	}

	var ext string
	if mediaType != "" {
		ext = extensionForMediaType(mediaType)
	} else {
		ext = extensionFromPath(rawURL)
	}

	switch {
	case ext == ".html" || ext == ".htm":
		return models.KindPage, ".html"
	case ext != "":
		return models.KindDocument, ext
	default:
		return models.KindUnknown, ""
	}
}

// probeMediaType performs the HEAD request. ok is false when the probe itself
// failed; a probe that answered without a usable Content-Type returns ("", true).
func (c *Classifier) probeMediaType(ctx context.Context, rawURL string) (mediaType string, ok bool) {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		c.log.WithField("url", rawURL).Debugf("Probe request creation failed: %v", err)
		return "", false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.WithField("url", rawURL).Debugf("Probe failed: %v", err)
		return "", false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return "", true
	}
	mediaType, _, err = mime.ParseMediaType(contentType)
	if err != nil {
		// Fall back to the bare prefix when parameters are malformed.
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mediaType, true
}

// extensionForMediaType resolves a media type to an extension, preferring the
// pipeline's canonical table over the platform mime registry.
func extensionForMediaType(mediaType string) string {
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	sort.Strings(exts) // registry order varies by platform
	return exts[0]
}

// extensionFromPath guesses an extension from the URL path suffix, accepting
// it only when it maps back to a known media type.
func extensionFromPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if ext == "" {
		return ""
	}
	for _, known := range knownExtensions {
		if known == ext || (ext == ".htm" && known == ".html") {
			return ext
		}
	}
	if mime.TypeByExtension(ext) != "" {
		return ext
	}
	return ""
}
