// internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(map[string]interface{}) logger.Logger { return tl }

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl.WithFields(map[string]interface{}{"error": err})
}

type fakeScorer struct {
	result *models.ScoreResult
	err    error
	panics bool
	calls  int
}

func (f *fakeScorer) Score(context.Context, models.CustomerProfile) (*models.ScoreResult, error) {
	f.calls++
	if f.panics {
		panic("model client exploded")
	}
	return f.result, f.err
}

type fakePersister struct {
	id        string
	err       error
	calls     int
	lastScore *models.ScoreResult
	lastDoc   *models.Document
	onSave    func()
}

func (f *fakePersister) Save(_ context.Context, _ models.CustomerProfile, doc *models.Document, score *models.ScoreResult) (string, error) {
	f.calls++
	f.lastScore = score
	f.lastDoc = doc
	if f.onSave != nil {
		f.onSave()
	}
	return f.id, f.err
}

type fakeNotifier struct {
	link  string
	err   error
	calls int
}

func (f *fakeNotifier) Notify(context.Context, models.CustomerProfile, *models.ScoreResult, string) (string, error) {
	f.calls++
	return f.link, f.err
}

type stageRecorder struct {
	mu     sync.Mutex
	stages []models.SubmissionStage
}

func (r *stageRecorder) record(s models.SubmissionStage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, s)
}

func goodScore() *models.ScoreResult {
	return &models.ScoreResult{
		Score:          87,
		Analysis:       "Strong income, clear intent.",
		Recommendation: models.RecommendImmediateScheduling,
		NextSteps:      []string{"Call the client", "Confirm visit"},
	}
}

func newRequest() SubmissionRequest {
	p := models.DefaultProfile()
	p.FullName = "Ana Silva"
	p.PaymentMethod = models.PaymentCash
	return SubmissionRequest{
		SessionID: "sess-1",
		Profile:   p,
		Document:  &models.Document{FileName: "cnh.jpg", Data: []byte{1, 2, 3}},
	}
}

func newOrchestrator(t *testing.T, cfg Config, s Scorer, p Persister, n Notifier) *Orchestrator {
	return NewOrchestrator(cfg, s, p, n, nil, &testLogger{t: t})
}

// ==========================
// Core Functionality Tests
// ==========================

func TestRun_Success(t *testing.T) {
	scorer := &fakeScorer{result: goodScore()}
	persister := &fakePersister{id: "lead-1"}
	notifier := &fakeNotifier{link: "https://wa.me/5521997250515?text=x"}
	rec := &stageRecorder{}

	out := newOrchestrator(t, Config{}, scorer, persister, notifier).Run(context.Background(), newRequest(), rec.record)

	assert.True(t, out.Succeeded())
	assert.NoError(t, out.Err)
	assert.Equal(t, "lead-1", out.RecordID)
	assert.Equal(t, "https://wa.me/5521997250515?text=x", out.DeepLink)
	assert.Equal(t, 87, out.Score.Score)
	assert.Equal(t, []models.SubmissionStage{models.StageScoring, models.StagePersisting, models.StageNotifying}, rec.stages)
	assert.Equal(t, "cnh.jpg", persister.lastDoc.FileName)
}

func TestRun_ScoringFailureShortCircuits(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("model timeout")}
	persister := &fakePersister{id: "lead-1"}
	notifier := &fakeNotifier{}

	out := newOrchestrator(t, Config{}, scorer, persister, notifier).Run(context.Background(), newRequest(), nil)

	assert.False(t, out.Succeeded())
	assert.Equal(t, models.StageScoring, out.FailedStage)
	assert.ErrorIs(t, out.Err, apperrors.ErrScoringFailed)
	assert.Nil(t, out.Score)
	assert.Zero(t, persister.calls)
	assert.Zero(t, notifier.calls)
}

func TestRun_ScoringFailureContinuesWhenConfigured(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("bad json")}
	persister := &fakePersister{id: "lead-2"}
	notifier := &fakeNotifier{link: "https://wa.me/x"}

	out := newOrchestrator(t, Config{ContinueOnScoringFailure: true}, scorer, persister, notifier).
		Run(context.Background(), newRequest(), nil)

	assert.False(t, out.Succeeded())
	assert.ErrorIs(t, out.Err, apperrors.ErrScoringFailed)
	assert.Equal(t, 1, persister.calls)
	assert.Nil(t, persister.lastScore)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "lead-2", out.RecordID)
}

func TestRun_PersistFailureKeepsScore(t *testing.T) {
	scorer := &fakeScorer{result: goodScore()}
	persister := &fakePersister{err: errors.New("connection refused")}
	notifier := &fakeNotifier{}

	out := newOrchestrator(t, Config{}, scorer, persister, notifier).Run(context.Background(), newRequest(), nil)

	assert.False(t, out.Succeeded())
	assert.Equal(t, models.StagePersisting, out.FailedStage)
	assert.ErrorIs(t, out.Err, apperrors.ErrPersistFailed)
	require.NotNil(t, out.Score)
	assert.Equal(t, 87, out.Score.Score)
	assert.Zero(t, notifier.calls)
}

func TestRun_NotifyFailure(t *testing.T) {
	out := newOrchestrator(t, Config{},
		&fakeScorer{result: goodScore()},
		&fakePersister{id: "lead-3"},
		&fakeNotifier{err: errors.New("ses throttled")},
	).Run(context.Background(), newRequest(), nil)

	assert.False(t, out.Succeeded())
	assert.Equal(t, models.StageNotifying, out.FailedStage)
	assert.ErrorIs(t, out.Err, apperrors.ErrNotifyFailed)
	assert.Equal(t, "lead-3", out.RecordID)
}

func TestRun_PanicIsReportedAsStageFailure(t *testing.T) {
	out := newOrchestrator(t, Config{}, &fakeScorer{panics: true}, &fakePersister{}, &fakeNotifier{}).
		Run(context.Background(), newRequest(), nil)

	assert.False(t, out.Succeeded())
	assert.ErrorIs(t, out.Err, apperrors.ErrScoringFailed)
	assert.Contains(t, out.Err.Error(), "model client exploded")
}

func TestRun_NilScoreIsScoringFailure(t *testing.T) {
	out := newOrchestrator(t, Config{}, &fakeScorer{}, &fakePersister{}, &fakeNotifier{}).
		Run(context.Background(), newRequest(), nil)

	assert.ErrorIs(t, out.Err, apperrors.ErrScoringFailed)
}

// ==========================
// Cancellation Tests
// ==========================

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scorer := &fakeScorer{result: goodScore()}

	out := newOrchestrator(t, Config{ContinueOnScoringFailure: true}, scorer, &fakePersister{}, &fakeNotifier{}).
		Run(ctx, newRequest(), nil)

	assert.ErrorIs(t, out.Err, apperrors.ErrSubmissionCancelled)
	assert.Zero(t, scorer.calls)
}

func TestRun_CancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	persister := &fakePersister{id: "lead-4", onSave: cancel}
	notifier := &fakeNotifier{}

	out := newOrchestrator(t, Config{}, &fakeScorer{result: goodScore()}, persister, notifier).
		Run(ctx, newRequest(), nil)

	assert.False(t, out.Succeeded())
	assert.ErrorIs(t, out.Err, apperrors.ErrSubmissionCancelled)
	assert.Equal(t, models.StageNotifying, out.FailedStage)
	assert.Zero(t, notifier.calls)
}
