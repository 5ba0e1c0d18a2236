package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in RefreshMessage.JobType.
const (
	JobRecommendationRefresh = "recommendation_refresh"
	JobHealthCheck           = "health_check"
)

// ErrUnknownJobType is returned for messages with an unsupported job type.
// Such messages are acked so they are not redelivered.
var ErrUnknownJobType = errors.New("unknown job type")

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	jobs             *JobRunner
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// RefreshMessage represents a worker job message.
type RefreshMessage struct {
	JobType string `json:"job_type"`
	// Locations overrides the configured targets for one refresh.
	Locations []string `json:"locations,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		jobs:             NewJobRunner(cfg.RefreshJob, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	err := h.jobs.Process(ctx, msg.Data)
	switch {
	case err == nil, errors.Is(err, ErrUnknownJobType):
		msg.Ack()
	default:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
	}
}

// JobRunner decodes and runs worker jobs independent of the transport.
type JobRunner struct {
	refreshJob *RefreshJob
	logger     zerolog.Logger
}

// NewJobRunner creates a JobRunner for refreshJob.
func NewJobRunner(refreshJob *RefreshJob, logger zerolog.Logger) *JobRunner {
	return &JobRunner{refreshJob: refreshJob, logger: logger}
}

// Process runs the job encoded in data. Malformed payloads are returned as
// errors so the message is redelivered to a dead-letter policy.
func (r *JobRunner) Process(ctx context.Context, data []byte) error {
	startTime := time.Now()

	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("parsing message: %w", err)
	}

	var err error
	switch msg.JobType {
	case JobRecommendationRefresh:
		err = r.handleRefresh(ctx, msg)
	case JobHealthCheck:
		err = r.handleHealthCheck(ctx)
	default:
		r.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
	if err != nil {
		return err
	}

	r.logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return nil
}

// RunScheduled runs a full refresh. Used by the interval ticker when no
// subscription is configured.
func (r *JobRunner) RunScheduled(ctx context.Context) error {
	return r.handleRefresh(ctx, RefreshMessage{JobType: JobRecommendationRefresh})
}

func (r *JobRunner) handleRefresh(ctx context.Context, msg RefreshMessage) error {
	targets := r.refreshJob.Config().Ordered()
	if len(msg.Locations) > 0 {
		targets = nil
		for i, loc := range msg.Locations {
			targets = append(targets, RefreshTarget{Location: loc, Priority: i + 1})
		}
	}

	result := r.refreshJob.RunTargets(ctx, targets)

	// Consider it successful if at least half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalTargets)
	}
	return nil
}

func (r *JobRunner) handleHealthCheck(ctx context.Context) error {
	r.logger.Debug().Msg("running health check")

	targets := r.refreshJob.Config().Ordered()
	if len(targets) == 0 {
		return nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := r.refreshJob.RunTargets(checkCtx, targets[:1])
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}

	r.logger.Debug().Msg("health check passed")
	return nil
}
