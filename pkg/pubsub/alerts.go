package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// OpsAlert describes something an operator should follow up on by hand.
type OpsAlert struct {
	Event      string         `json:"event"`
	Reference  string         `json:"reference"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type publisher interface {
	Publish(context.Context, *pubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// AlertPublisher sends OpsAlerts to the ops topic and waits for the server ack.
type AlertPublisher struct {
	pub publisher
	now func() time.Time
}

// NewAlertPublisher wraps a Pub/Sub publisher. A nil publisher yields nil.
func NewAlertPublisher(p *pubsub.Publisher) *AlertPublisher {
	if p == nil {
		return nil
	}
	return &AlertPublisher{pub: &gcpPublisher{Publisher: p}, now: time.Now}
}

// PublishAlert marshals the alert and blocks until Pub/Sub acknowledges it.
func (a *AlertPublisher) PublishAlert(ctx context.Context, alert OpsAlert) error {
	if a == nil || a.pub == nil {
		return errors.New("alert publisher not initialized")
	}
	if alert.Event == "" {
		return errors.New("alert event is required")
	}
	if alert.OccurredAt.IsZero() {
		alert.OccurredAt = a.now().UTC()
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	result := a.pub.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event":     alert.Event,
			"reference": alert.Reference,
		},
	})
	if result == nil {
		return errors.New("publish returned no result")
	}
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
