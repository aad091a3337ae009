// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/common/metrics"
	"lead-intake/internal/common/observability"
	"lead-intake/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Scorer returns a qualification score for a profile.
type Scorer interface {
	Score(ctx context.Context, profile models.CustomerProfile) (*models.ScoreResult, error)
}

// Persister stores the lead and its document and returns the record id.
// score is nil when scoring failed and the run was configured to continue.
type Persister interface {
	Save(ctx context.Context, profile models.CustomerProfile, doc *models.Document, score *models.ScoreResult) (string, error)
}

// Notifier alerts brokerage staff. The returned deep link may be empty.
type Notifier interface {
	Notify(ctx context.Context, profile models.CustomerProfile, score *models.ScoreResult, recordID string) (string, error)
}

type SubmissionRequest struct {
	SessionID string
	Profile   models.CustomerProfile
	Document  *models.Document
}

// Outcome is the terminal result of one run.
type Outcome struct {
	Stage       models.SubmissionStage // StageDone or StageFailed
	FailedStage models.SubmissionStage
	Score       *models.ScoreResult
	RecordID    string
	DeepLink    string
	Err         error
}

func (o Outcome) Succeeded() bool { return o.Stage == models.StageDone }

type Config struct {
	ContinueOnScoringFailure bool
}

type Orchestrator struct {
	config    Config
	scorer    Scorer
	persister Persister
	notifier  Notifier
	obs       *observability.Observability
	logger    logger.Logger
}

func NewOrchestrator(cfg Config, scorer Scorer, persister Persister, notifier Notifier, obs *observability.Observability, log logger.Logger) *Orchestrator {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Orchestrator{
		config:    cfg,
		scorer:    scorer,
		persister: persister,
		notifier:  notifier,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// Run executes scoring, persistence and notification strictly in sequence.
// The first failure ends the run, except that a scoring failure may be
// carried through persistence and notification when configured. Run never
// panics and always returns an Outcome. onStage may be nil.
func (o *Orchestrator) Run(ctx context.Context, req SubmissionRequest, onStage func(models.SubmissionStage)) Outcome {
	if onStage == nil {
		onStage = func(models.SubmissionStage) {}
	}
	log := o.logger.WithFields(map[string]interface{}{"sessionId": req.SessionID})
	ctx, span := o.obs.StartSpan(ctx, "submission", attribute.String("session.id", req.SessionID))
	defer span.End()

	out := Outcome{Stage: models.StageFailed}

	err := o.runStage(ctx, models.StageScoring, apperrors.ErrScoringFailed, onStage, func(ctx context.Context) error {
		score, err := o.scorer.Score(ctx, req.Profile)
		if err != nil {
			return err
		}
		if score == nil {
			return errors.New("empty score result")
		}
		out.Score = score
		return nil
	})
	if err != nil {
		out = o.fail(log, out, models.StageScoring, err)
		if !o.config.ContinueOnScoringFailure || errors.Is(err, apperrors.ErrSubmissionCancelled) {
			return o.finish(span, out)
		}
	}

	err = o.runStage(ctx, models.StagePersisting, apperrors.ErrPersistFailed, onStage, func(ctx context.Context) error {
		id, err := o.persister.Save(ctx, req.Profile, req.Document, out.Score)
		if err != nil {
			return err
		}
		out.RecordID = id
		return nil
	})
	if err != nil {
		if out.Err == nil {
			out = o.fail(log, out, models.StagePersisting, err)
		}
		return o.finish(span, out)
	}

	err = o.runStage(ctx, models.StageNotifying, apperrors.ErrNotifyFailed, onStage, func(ctx context.Context) error {
		link, err := o.notifier.Notify(ctx, req.Profile, out.Score, out.RecordID)
		if err != nil {
			return err
		}
		out.DeepLink = link
		return nil
	})
	if err != nil {
		if out.Err == nil {
			out = o.fail(log, out, models.StageNotifying, err)
		}
		return o.finish(span, out)
	}

	if out.Err == nil {
		out.Stage = models.StageDone
		log.Info("submission completed", map[string]interface{}{
			"recordId": out.RecordID,
			"score":    out.Score.Score,
		})
	}
	return o.finish(span, out)
}

// runStage checks for cancellation at the stage boundary, then runs fn with
// panics converted to errors. Returned errors wrap sentinel, or
// ErrSubmissionCancelled when ctx ended.
func (o *Orchestrator) runStage(ctx context.Context, stage models.SubmissionStage, sentinel error,
	onStage func(models.SubmissionStage), fn func(context.Context) error) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: before %s: %w", apperrors.ErrSubmissionCancelled, stage, ctxErr)
	}
	onStage(stage)

	stageCtx, span := o.obs.StartSpan(ctx, "submission."+string(stage))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", sentinel, r)
		}
		elapsed := time.Since(start)
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.StageFailures.WithLabelValues(string(stage), string(apperrors.NewSubmissionFailedError(string(stage), err).Code)).Inc()
		}
		metrics.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
		o.obs.RecordStage(ctx, string(stage), status, elapsed)
		span.End()
	}()

	if err := fn(stageCtx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: during %s: %w", apperrors.ErrSubmissionCancelled, stage, err)
		}
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

func (o *Orchestrator) fail(log logger.Logger, out Outcome, stage models.SubmissionStage, err error) Outcome {
	out.Stage = models.StageFailed
	out.FailedStage = stage
	out.Err = err
	log.WithError(err).Warn("submission stage failed", map[string]interface{}{
		"stage": string(stage),
	})
	return out
}

func (o *Orchestrator) finish(span trace.Span, out Outcome) Outcome {
	label := string(out.Stage)
	if errors.Is(out.Err, apperrors.ErrSubmissionCancelled) {
		label = "cancelled"
	}
	if out.Err != nil {
		span.SetStatus(codes.Error, out.Err.Error())
	}
	metrics.SubmissionsTotal.WithLabelValues(label).Inc()
	return out
}
