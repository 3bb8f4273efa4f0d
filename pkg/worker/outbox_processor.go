package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/pkg/logger"
	"github.com/zencounsel/counsel-api/pkg/messaging"
	"github.com/zencounsel/counsel-api/pkg/metrics"
	"github.com/zencounsel/counsel-api/pkg/repository"
)

type OutboxProcessorConfig struct {
	Channel       string
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// Lease hides claimed events from other relays while they are published.
	Lease time.Duration
	// MaxFailures is how many failed rounds an event gets before it is
	// parked as failed.
	MaxFailures int
}

type OutboxProcessor struct {
	repo    repository.OutboxStore
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	sleep   func(context.Context, time.Duration) error
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxStore,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.Channel == "" {
		return nil, fmt.Errorf("channel is required")
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		return nil, fmt.Errorf("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		return nil, fmt.Errorf("RetryDelay must be greater than 0")
	}
	if config.Lease <= 0 {
		return nil, fmt.Errorf("Lease must be greater than 0")
	}
	if config.MaxFailures <= 0 {
		return nil, fmt.Errorf("MaxFailures must be greater than 0")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		sleep:   sleepContext,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch relays one batch of due events and returns how many were
// published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize, p.config.Lease)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "error").Inc()
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "success").Inc()

	published := 0
	for _, event := range events {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			continue
		}
		published++
	}

	return published, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	attempt := 0
	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, p.sleep, func() error {
		if attempt > 0 {
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
		attempt++
		return p.broker.Publish(ctx, p.config.Channel, event.Envelope())
	})

	if err != nil {
		if ctx.Err() != nil {
			// Shutting down: leave the claim to expire so another relay
			// retries the event without spending one of its failures.
			return err
		}
		p.metrics.OutboxEventsFailed.Inc()
		if updateErr := p.repo.MarkFailed(ctx, event.ID, err.Error(), p.nextAttempt(event)); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status", "event_id", event.ID.String())
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("mark_processed", "error").Inc()
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}

	return nil
}

// nextAttempt backs off exponentially from RetryDelay and returns nil once
// the event has used up MaxFailures rounds.
func (p *OutboxProcessor) nextAttempt(event *model.OutboxEvent) *time.Time {
	if event.RetryCount+1 >= p.config.MaxFailures {
		return nil
	}
	at := p.now().Add(p.config.RetryDelay << uint(event.RetryCount+1))
	return &at
}

// retry runs fn up to attempts times, pausing delay between tries. A
// cancelled ctx ends the pauses early with ctx.Err().
func retry(ctx context.Context, attempts int, delay time.Duration, sleep func(context.Context, time.Duration) error, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
