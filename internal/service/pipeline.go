package service

import (
	"context"
	"time"

	"clinicdesk/internal/metrics"
	"clinicdesk/internal/models"
	"clinicdesk/internal/privacy"
	"clinicdesk/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Stage is one step of the ingestion chain. A stage returns the partial
// state it computed; returning a nil delta is a valid "nothing to add".
type Stage interface {
	Name() string
	Run(ctx context.Context, state *models.PipelineState) (*models.StageDelta, error)
}

// Pipeline sequences the ingestion stages over a shared per-event state.
// Stages are strictly sequential within one event; concurrency exists only
// across events.
type Pipeline struct {
	stages []Stage
	logger *logrus.Logger
}

func NewPipeline(logger *logrus.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages: stages,
		logger: logger,
	}
}

// Process runs the event through every stage, merging each stage's delta
// into the state. A stage error aborts the remaining stages; writes already
// committed by earlier stages are not rolled back, because persistence is
// additive and idempotent and a redelivery converges.
func (p *Pipeline) Process(ctx context.Context, event *models.IncomingWebhookEvent) (*models.PipelineState, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline_process",
		attribute.String("message.id", privacy.MaskMessageID(event.Key.ID)),
		attribute.Bool("message.from_me", event.Key.FromMe),
	)
	defer span.End()

	start := time.Now()
	state := models.NewPipelineState(event)

	metrics.IncrementCounter("pipeline_events_total", nil, "Webhook events entering the pipeline")

	for _, stage := range p.stages {
		if !state.ShouldContinue {
			break
		}

		stageCtx, stageSpan := tracing.StartSpan(ctx, "pipeline_stage",
			attribute.String("stage.name", stage.Name()),
		)
		stageStart := time.Now()

		delta, err := stage.Run(stageCtx, state)

		metrics.RecordTimer("pipeline_stage_duration", time.Since(stageStart), map[string]string{
			"stage": stage.Name(),
		}, "Per-stage processing duration")

		if err != nil {
			tracing.RecordError(stageCtx, err)
			stageSpan.End()

			metrics.IncrementCounter("pipeline_stage_errors_total", map[string]string{
				"stage": stage.Name(),
			}, "Stage failures that aborted an event")

			p.logger.WithFields(logrus.Fields{
				"stage":      stage.Name(),
				"message_id": privacy.MaskMessageID(event.Key.ID),
			}).WithError(err).Error("Pipeline stage failed, aborting event")
			return state, err
		}

		state.Apply(delta)
		stageSpan.End()
	}

	metrics.RecordTimer("pipeline_duration", time.Since(start), nil, "End-to-end event processing duration")

	p.logger.WithFields(logrus.Fields{
		"message_id":  privacy.MaskMessageID(event.Key.ID),
		"chat_id":     state.ChatID,
		"type":        state.MessageType,
		"strategy":    state.ResolverStrategy,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Pipeline completed")

	return state, nil
}
