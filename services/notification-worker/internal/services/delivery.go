package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"go.uber.org/zap"
)

// Deliverer hands a bank event to the outbound channel (the email function).
type Deliverer interface {
	Deliver(ctx context.Context, ev views.BankEvent) error
}

// EmailRequest is the body accepted by the send-notification function.
type EmailRequest struct {
	EventID    uuid.UUID         `json:"eventId"`
	UserID     uuid.UUID         `json:"userId"`
	Type       string            `json:"type"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type FunctionDeliverer struct {
	logger     *zap.Logger
	url        string
	client     *http.Client
	maxElapsed time.Duration
}

func NewFunctionDeliverer(logger *zap.Logger, url string, timeout, maxElapsed time.Duration) *FunctionDeliverer {
	return &FunctionDeliverer{
		logger:     logger,
		url:        url,
		client:     utils.NewHTTPClient(utils.WithClientTimeout(timeout), utils.WithResponseHeaderTimeout(timeout)),
		maxElapsed: maxElapsed,
	}
}

// Deliver POSTs the event with exponential backoff. 4xx responses are
// permanent and not retried.
func (d *FunctionDeliverer) Deliver(ctx context.Context, ev views.BankEvent) error {
	if utils.IsEmpty(d.url) {
		d.logger.Debug("notify_function_not_configured", zap.String("event_id", ev.ID.String()))
		return nil
	}
	body, err := json.Marshal(EmailRequest{
		EventID:    ev.ID,
		UserID:     ev.UserID,
		Type:       ev.Type,
		Subject:    ev.Title,
		Body:       ev.Message,
		Attributes: ev.Attributes,
	})
	if err != nil {
		return backoff.Permanent(err)
	}

	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(pkg.HeaderTraceId, ev.TraceID)
		req.Header.Set(pkg.HeaderIdempotencyKey, ev.ID.String())

		resp, err := d.client.Do(req)
		if err != nil {
			d.logger.Warn("notify_function_unreachable", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			d.logger.Warn("notify_function_retryable_status", zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
			return fmt.Errorf("notify function returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("notify function rejected event: %d", resp.StatusCode))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = d.maxElapsed
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
