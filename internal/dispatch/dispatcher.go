// Package dispatch implements the notification fan-out engine.
//
// After a durable object mutation the dispatcher matches the namespace's
// subscriptions against the mutated object, builds a metadata-only payload,
// mints a short-lived service token per subscription and delivers to every
// subscribed URL. Failures are recorded in the audit log, never surfaced to
// the caller whose mutation triggered the run.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"

	auditDomain "github.com/allisson/registry/internal/audit/domain"
	apperrors "github.com/allisson/registry/internal/errors"
	eventsDomain "github.com/allisson/registry/internal/events/domain"
	"github.com/allisson/registry/internal/metrics"
)

// Mutation actions carried in notification payloads.
const (
	ActionPut    = "put"
	ActionDelete = "delete"
)

// MutationEvent describes one durable mutation of an object. It carries
// metadata only; object bytes never travel through the dispatcher.
type MutationEvent struct {
	Namespace   string            `json:"namespace"`
	Object      string            `json:"object"`
	Action      string            `json:"action"`
	Checksum    string            `json:"checksum,omitempty"`
	Size        int64             `json:"size,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Version     *string           `json:"version,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// SubscriptionReader resolves the subscriptions registered for a namespace.
type SubscriptionReader interface {
	ListByNamespace(ctx context.Context, namespace string) ([]*eventsDomain.Subscription, error)
}

// TokenMinter mints a delivery token for a subscription's audience.
type TokenMinter interface {
	MintTokenFor(audience string) (string, error)
}

// AuditAppender records dispatch outcomes.
type AuditAppender interface {
	Append(ctx context.Context, entry auditDomain.AuditLog) (uuid.UUID, error)
}

// Config holds dispatcher configuration.
type Config struct {
	// Subject is recorded as the audit subject of delivery attempts.
	Subject string
	// WebhookTimeout bounds each delivery call.
	WebhookTimeout time.Duration
	// DispatchTimeout bounds a whole asynchronous dispatch run.
	DispatchTimeout time.Duration
}

// Dispatcher fans out mutation notifications to matching subscriptions.
type Dispatcher struct {
	config          Config
	subscriptions   SubscriptionReader
	tokens          TokenMinter
	audit           AuditAppender
	client          *retryablehttp.Client
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// NewDispatcher creates a new Dispatcher. Deliveries are best-effort: the
// HTTP client does not retry, and each call is bounded by the webhook timeout.
func NewDispatcher(
	config Config,
	subscriptions SubscriptionReader,
	tokens TokenMinter,
	audit AuditAppender,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Dispatcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.HTTPClient.Timeout = config.WebhookTimeout
	client.Logger = nil

	return &Dispatcher{
		config:          config,
		subscriptions:   subscriptions,
		tokens:          tokens,
		audit:           audit,
		client:          client,
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}

// DispatchAsync runs Dispatch on its own goroutine with a bounded timeout,
// detached from the request context that triggered the mutation.
func (d *Dispatcher) DispatchAsync(event MutationEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.DispatchTimeout)
		defer cancel()

		if err := d.Dispatch(ctx, event); err != nil {
			d.logger.Error("dispatch run failed",
				slog.String("namespace", event.Namespace),
				slog.String("object", event.Object),
				slog.Any("error", err))
		}
	}()
}

// Dispatch notifies every matching subscription about one mutation. A failure
// preparing one subscription (token minting) aborts only that subscription;
// delivery failures are audited and never returned. The returned error exists
// for observability and must not be propagated to the mutating caller.
func (d *Dispatcher) Dispatch(ctx context.Context, event MutationEvent) error {
	subscriptions, err := d.subscriptions.ListByNamespace(ctx, event.Namespace)
	if err != nil {
		return apperrors.Wrap(err, "failed to list subscriptions")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal notification payload")
	}

	var subscriptionErrs []error
	for _, subscription := range subscriptions {
		if !subscription.Matches(event.Object) {
			continue
		}

		switch subscription.Notify.Kind {
		case eventsDomain.NotifyKindHTTP:
			if err := d.deliverToSubscription(ctx, subscription, event, payload); err != nil {
				subscriptionErrs = append(subscriptionErrs, err)
			}
		default:
			// Stored but not understood by this build. Skipping is the
			// contract; an error here would wedge the whole namespace.
			d.logger.Warn("skipping subscription with unknown notify kind",
				slog.String("namespace", subscription.Namespace),
				slog.String("subscription_id", subscription.ID))
		}
	}
	return errors.Join(subscriptionErrs...)
}

// DispatchBatch processes a set of mutation events, isolating failures per
// item: one event failing to dispatch never blocks the rest of the batch.
func (d *Dispatcher) DispatchBatch(ctx context.Context, events []MutationEvent) error {
	var batchErrs []error
	for _, event := range events {
		if err := d.Dispatch(ctx, event); err != nil {
			batchErrs = append(batchErrs, fmt.Errorf("dispatch %s/%s: %w", event.Namespace, event.Object, err))
		}
	}
	return errors.Join(batchErrs...)
}

func (d *Dispatcher) deliverToSubscription(
	ctx context.Context,
	subscription *eventsDomain.Subscription,
	event MutationEvent,
	payload []byte,
) error {
	token, err := d.tokens.MintTokenFor(subscription.Audience)
	if err != nil {
		d.logger.Error("failed to mint delivery token",
			slog.String("namespace", subscription.Namespace),
			slog.String("subscription_id", subscription.ID),
			slog.Any("error", err))
		return apperrors.Wrap(err, "failed to mint delivery token")
	}

	// Deliveries within one subscription are independent and unordered.
	group, groupCtx := errgroup.WithContext(ctx)
	for _, url := range subscription.Notify.URLs {
		group.Go(func() error {
			d.deliver(groupCtx, subscription, event, url, token, payload)
			return nil
		})
	}
	return group.Wait()
}

// deliver performs one webhook call and audits the outcome. It never returns
// an error: the audit entry is the failure record.
func (d *Dispatcher) deliver(
	ctx context.Context,
	subscription *eventsDomain.Subscription,
	event MutationEvent,
	url, token string,
	payload []byte,
) {
	details := map[string]string{
		"subscription_id": subscription.ID,
		"url":             url,
		"method":          subscription.Notify.Method,
	}

	status := "failure"
	callCtx, cancel := context.WithTimeout(ctx, d.config.WebhookTimeout)
	defer cancel()

	request, err := retryablehttp.NewRequestWithContext(
		callCtx, subscription.Notify.Method, url, bytes.NewReader(payload),
	)
	if err != nil {
		details["error"] = err.Error()
	} else {
		request.Header.Set("Content-Type", "application/json")
		request.Header.Set("Authorization", "Bearer "+token)

		response, err := d.client.Do(request)
		if err != nil {
			details["error"] = err.Error()
		} else {
			details["status_code"] = fmt.Sprintf("%d", response.StatusCode)
			if response.StatusCode >= 200 && response.StatusCode < 300 {
				status = "success"
			}
			_ = response.Body.Close()
		}
	}

	d.businessMetrics.RecordOperation(ctx, "dispatch", "webhook_delivery", status)
	if status != "success" {
		d.logger.Warn("webhook delivery failed",
			slog.String("namespace", subscription.Namespace),
			slog.String("subscription_id", subscription.ID),
			slog.String("url", url))
	}

	details["delivery_status"] = status
	objectKey := event.Namespace + "/" + event.Object
	entry := auditDomain.AuditLog{
		Action:    auditDomain.ActionNotify,
		Subject:   d.config.Subject,
		Namespace: &subscription.Namespace,
		ObjectKey: &objectKey,
		Details:   details,
	}
	if _, err := d.audit.Append(ctx, entry); err != nil {
		d.logger.Error("failed to audit delivery attempt",
			slog.String("subscription_id", subscription.ID),
			slog.Any("error", err))
	}
}
