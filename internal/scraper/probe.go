package scraper

import (
	"context"
	"image"
	"io"
	"net/http"
	"time"

	// Registered decoders for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"mikabot/internal/domain"
)

const (
	DefaultProbeTimeout = 5 * time.Second

	probeUserAgent = "MikaBotImageFetcher/1.0"
	// Image headers sit at the start of the file; nothing past this is read.
	maxProbeBytes = 1 << 20
)

// HTTPProber implements the Prober interface by decoding only the image header.
type HTTPProber struct {
	client *http.Client
	log    logrus.FieldLogger
}

// NewHTTPProber creates a prober whose requests are bounded by timeout.
func NewHTTPProber(timeout time.Duration, logger logrus.FieldLogger) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPProber{
		client: &http.Client{Timeout: timeout},
		log:    logger.WithField("component", "image_probe"),
	}
}

// ProbeDimensions never fails loudly: any network, status or decode error yields false.
func (p *HTTPProber) ProbeDimensions(ctx context.Context, url string) (domain.ImageDimensions, bool) {
	log := p.log.WithField("url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.WithError(err).Debug("Invalid image url")
		return domain.ImageDimensions{}, false
	}
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		log.WithError(err).Debug("Image fetch failed")
		return domain.ImageDimensions{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Debug("Image fetch returned non-2xx status")
		return domain.ImageDimensions{}, false
	}

	cfg, format, err := image.DecodeConfig(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		log.WithError(err).Debug("Image header could not be decoded")
		return domain.ImageDimensions{}, false
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.ImageDimensions{}, false
	}

	log.WithFields(logrus.Fields{
		"format": format,
		"width":  cfg.Width,
		"height": cfg.Height,
	}).Debug("Image probed")
	return domain.ImageDimensions{Width: cfg.Width, Height: cfg.Height}, true
}
