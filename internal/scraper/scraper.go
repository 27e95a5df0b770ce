package scraper

import (
	"context"
	"errors"
	"fmt"

	"mikabot/internal/domain"
)

// Extractor defines the interface for deriving link metadata from a URL.
type Extractor interface {
	// Extract fetches url and resolves its title, description, thumbnail and domain.
	// Every failure is reported as an *ExtractionError; no partial metadata is returned.
	Extract(ctx context.Context, url string) (domain.LinkMetadata, error)
}

// Prober reads the pixel dimensions of a remote image.
type Prober interface {
	// ProbeDimensions returns false if the image cannot be fetched or decoded.
	ProbeDimensions(ctx context.Context, url string) (domain.ImageDimensions, bool)
}

// ErrExtractionFailed matches every *ExtractionError via errors.Is.
var ErrExtractionFailed = errors.New("link metadata extraction failed")

// FailureKind classifies why an extraction failed.
type FailureKind int

const (
	FailureInvalidURL FailureKind = iota + 1
	FailureTransport
	FailureStatus
	FailureParse
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvalidURL:
		return "invalid_url"
	case FailureTransport:
		return "transport"
	case FailureStatus:
		return "http_status"
	case FailureParse:
		return "parse"
	default:
		return "unknown"
	}
}

// ExtractionError is the single failure outcome of Extract.
type ExtractionError struct {
	URL  string
	Kind FailureKind
	// StatusCode is set for FailureStatus.
	StatusCode int
	Err        error
}

func (e *ExtractionError) Error() string {
	if e.Kind == FailureStatus {
		return fmt.Sprintf("extract %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtractionFailed }
