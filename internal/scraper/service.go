package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"mikabot/internal/domain"
)

const (
	DefaultFetchTimeout = 10 * time.Second

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36 MikaBot/1.0"
	acceptLanguage   = "en-US,en;q=0.9"
	maxDocumentBytes = 5 << 20
	probeConcurrency = 4
)

// HTTPExtractor implements the Extractor interface with a plain HTTP fetch and goquery.
// Pages are not rendered; only the served HTML is inspected.
type HTTPExtractor struct {
	client *http.Client
	prober Prober
	log    logrus.FieldLogger
}

// NewHTTPExtractor creates an extractor whose fetches are bounded by timeout.
// prober may be nil, in which case inline images are never considered as thumbnails.
func NewHTTPExtractor(timeout time.Duration, prober Prober, logger logrus.FieldLogger) *HTTPExtractor {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPExtractor{
		client: &http.Client{Timeout: timeout},
		prober: prober,
		log:    logger.WithField("component", "scraper"),
	}
}

// Extract fetches rawURL once and resolves its metadata. There are no retries.
func (e *HTTPExtractor) Extract(ctx context.Context, rawURL string) (domain.LinkMetadata, error) {
	log := e.log.WithField("url", rawURL)
	log.Debug("Attempting to extract metadata")

	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		if err == nil {
			err = fmt.Errorf("unsupported scheme %q", pageURL.Scheme)
		}
		return domain.LinkMetadata{}, &ExtractionError{URL: rawURL, Kind: FailureInvalidURL, Err: err}
	}

	doc, finalURL, err := e.fetchDocument(ctx, rawURL)
	if err != nil {
		log.WithError(err).Warn("Metadata extraction failed")
		return domain.LinkMetadata{}, err
	}

	candidates := allResolved(doc, imageResolvers)
	if len(candidates) == 0 {
		candidates = e.probeInlineImages(ctx, doc)
	}

	meta := domain.LinkMetadata{
		SourceURL:    rawURL,
		Title:        resolveTitle(doc, pageURL),
		Description:  resolveDescription(doc),
		ThumbnailURL: selectThumbnail(candidates, finalURL),
		SiteDomain:   pageURL.Host,
	}

	log.WithFields(logrus.Fields{
		"title":         meta.Title,
		"has_thumbnail": meta.HasThumbnail(),
	}).Info("Metadata extraction completed")
	return meta, nil
}

// fetchDocument GETs rawURL, following redirects, and parses the body as HTML.
// It returns the URL of the final response for resolving relative references.
func (e *HTTPExtractor) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, &ExtractionError{URL: rawURL, Kind: FailureInvalidURL, Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, &ExtractionError{URL: rawURL, Kind: FailureTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &ExtractionError{
			URL:        rawURL,
			Kind:       FailureStatus,
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, nil, &ExtractionError{URL: rawURL, Kind: FailureTransport, Err: fmt.Errorf("read body: %w", err)}
	}

	reader, err := charset.NewReader(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, &ExtractionError{URL: rawURL, Kind: FailureParse, Err: fmt.Errorf("decode charset: %w", err)}
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, nil, &ExtractionError{URL: rawURL, Kind: FailureParse, Err: fmt.Errorf("parse html: %w", err)}
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}
	return doc, finalURL, nil
}

// probeInlineImages returns absolute <img> sources with an image extension whose probed
// size exceeds the minimum on both sides, in document order.
func (e *HTTPExtractor) probeInlineImages(ctx context.Context, doc *goquery.Document) []string {
	if e.prober == nil {
		return nil
	}

	var sources []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if isAbsoluteHTTP(src) && hasImageExtension(src) {
			sources = append(sources, src)
		}
	})
	if len(sources) == 0 {
		return nil
	}

	keep := make([]bool, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			dims, ok := e.prober.ProbeDimensions(gctx, src)
			keep[i] = ok && dims.Exceeds(minThumbnailSidePixels)
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for i, src := range sources {
		if keep[i] {
			out = append(out, src)
		}
	}
	e.log.WithFields(logrus.Fields{
		"inline_images": len(sources),
		"usable":        len(out),
	}).Debug("Probed inline images")
	return out
}
