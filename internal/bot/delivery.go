package bot

import (
	"context"
	"errors"
	"fmt"

	"mikabot/internal/domain"
)

// Delivery sends composed output back to the chat platform.
type Delivery interface {
	SendPreviewCard(ctx context.Context, channelID string, card domain.PreviewCard) error
	SendText(ctx context.Context, channelID, text string) error
}

// ErrForbidden matches delivery failures caused by missing platform permissions.
var ErrForbidden = errors.New("delivery forbidden")

// DeliveryError wraps a platform send failure.
type DeliveryError struct {
	Platform  string
	Op        string
	Forbidden bool
	Err       error
}

func (e *DeliveryError) Error() string {
	if e.Forbidden {
		return fmt.Sprintf("%s %s: forbidden: %v", e.Platform, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return e.Forbidden && target == ErrForbidden }
