package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/pkg/ctxlog"
)

// RouterConfig bounds the dispatch fan-out.
type RouterConfig struct {
	// MaxConcurrent caps in-flight sends across one Dispatch call.
	MaxConcurrent int
	// SendTimeout bounds a single delivery attempt.
	SendTimeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryBackoff is the base backoff, doubled per attempt.
	RetryBackoff time.Duration
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 8
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}

// Router fans a batch of notification requests out to channel senders. One
// failing channel never blocks or cancels the others; every request yields
// exactly one result.
type Router struct {
	cfg     RouterConfig
	senders map[domain.ChannelType]Sender
}

// NewRouter builds a router over the given senders. Registering two senders
// for the same channel type keeps the last one.
func NewRouter(cfg RouterConfig, senders ...Sender) *Router {
	byType := make(map[domain.ChannelType]Sender, len(senders))
	for _, s := range senders {
		byType[s.Type()] = s
	}
	return &Router{cfg: cfg.withDefaults(), senders: byType}
}

// Dispatch delivers every request concurrently and returns one result per
// request, in request order. The whole batch is validated before anything
// is sent; a validation error means nothing was dispatched.
func (r *Router) Dispatch(ctx context.Context, requests []domain.NotificationRequest) ([]domain.NotificationResult, error) {
	if len(requests) == 0 {
		return nil, ErrEmptyDispatch
	}
	for i, req := range requests {
		if !req.Channel.IsValid() {
			return nil, fmt.Errorf("%w: %q (request %d)", ErrUnknownChannel, req.Channel, i)
		}
		if req.Target == "" {
			return nil, fmt.Errorf("%w: channel %s (request %d)", ErrMissingTarget, req.Channel, i)
		}
		if _, ok := r.senders[req.Channel]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoSender, req.Channel)
		}
	}

	results := make([]domain.NotificationResult, len(requests))
	sem := make(chan struct{}, r.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req domain.NotificationRequest) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = failedResult(req, "timeout", 0)
				return
			}
			results[i] = r.deliver(ctx, req)
		}(i, req)
	}
	wg.Wait()
	return results, nil
}

func (r *Router) deliver(ctx context.Context, req domain.NotificationRequest) domain.NotificationResult {
	logger := ctxlog.FromContext(ctx)
	sender := r.senders[req.Channel]
	notification := Notification{
		To:       req.Target,
		Subject:  req.Subject,
		Body:     req.Payload,
		Severity: req.Severity,
		Fields:   req.Fields,
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			sendRetries.WithLabelValues(string(req.Channel)).Inc()
			if !sleepCtx(ctx, r.cfg.RetryBackoff<<(attempt-1)) {
				lastErr = ctx.Err()
				break
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.SendTimeout)
		err := sender.Send(attemptCtx, notification)
		cancel()
		if err == nil {
			elapsed := time.Since(start)
			sentTotal.WithLabelValues(string(req.Channel), string(domain.OutcomeDelivered)).Inc()
			sendDuration.WithLabelValues(string(req.Channel)).Observe(elapsed.Seconds())
			return domain.NotificationResult{
				Channel: req.Channel,
				Target:  req.Target,
				Outcome: domain.OutcomeDelivered,
				Latency: elapsed,
			}
		}

		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			break
		}
		logger.WarnContext(ctx, "notification send failed, retrying",
			"channel", req.Channel,
			"target", req.Target,
			"attempt", attempt+1,
			"error", err)
	}

	elapsed := time.Since(start)
	reason := "delivery failed"
	if errors.Is(lastErr, context.DeadlineExceeded) || errors.Is(lastErr, context.Canceled) || ctx.Err() != nil {
		reason = "timeout"
	} else if lastErr != nil {
		reason = lastErr.Error()
	}
	logger.ErrorContext(ctx, "notification delivery failed",
		"channel", req.Channel,
		"target", req.Target,
		"error", lastErr)
	return failedResult(req, reason, elapsed)
}

func failedResult(req domain.NotificationRequest, reason string, latency time.Duration) domain.NotificationResult {
	sentTotal.WithLabelValues(string(req.Channel), string(domain.OutcomeFailed)).Inc()
	sendDuration.WithLabelValues(string(req.Channel)).Observe(latency.Seconds())
	return domain.NotificationResult{
		Channel: req.Channel,
		Target:  req.Target,
		Outcome: domain.OutcomeFailed,
		Reason:  reason,
		Latency: latency,
	}
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
