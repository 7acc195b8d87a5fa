// Package delivery is the boundary to the external message-delivery
// collaborator. Payloads are plain text; everything past Send is someone
// else's system.
package delivery

import (
	"context"
	"errors"
	"strconv"
)

// ErrInvalidTarget marks a subscriber id that cannot be delivered to.
var ErrInvalidTarget = errors.New("delivery: invalid target id")

type Provider interface {
	Send(ctx context.Context, subscriberID string, text string) error
}

// TargetID parses a subscriber id into the numeric chat id the delivery
// channel expects.
func TargetID(subscriberID string) (int64, error) {
	id, err := strconv.ParseInt(subscriberID, 10, 64)
	if err != nil {
		return 0, ErrInvalidTarget
	}
	return id, nil
}

// NoOpProvider drops every message.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, subscriberID string, text string) error {
	return nil
}
