package wizard

import (
	"errors"
	"testing"

	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/models"
	"lead-intake/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAndBack(t *testing.T) {
	s := models.NewWizardSession()

	s, err := Next(s)
	require.NoError(t, err)
	assert.Equal(t, models.StepPropertyFinancial, s.Step)

	s, err = Next(s)
	require.NoError(t, err)
	assert.Equal(t, models.StepVerification, s.Step)

	_, err = Next(s)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	s, err = Back(s)
	require.NoError(t, err)
	assert.Equal(t, models.StepPropertyFinancial, s.Step)

	s.Step = models.StepIdentity
	_, err = Back(s)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	s.Step = models.StepResult
	got, err := Back(s)
	assert.Error(t, err)
	assert.Equal(t, models.StepResult, got.Step)
}

func TestBeginSubmit(t *testing.T) {
	s := models.NewWizardSession()
	_, err := BeginSubmit(s)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	s.Step = models.StepVerification
	s.ScoreResult = &models.ScoreResult{Score: 10}
	s.Error = "old"
	s, err = BeginSubmit(s)
	require.NoError(t, err)
	assert.Equal(t, models.StepScoring, s.Step)
	assert.Nil(t, s.ScoreResult)
	assert.Empty(t, s.Error)
	assert.Equal(t, models.StageScoring, s.Submission)

	_, err = BeginSubmit(s)
	assert.ErrorIs(t, err, apperrors.ErrSubmissionInFlight)
}

func TestCompleteSubmit(t *testing.T) {
	s := models.NewWizardSession()
	s.Step = models.StepScoring

	done := CompleteSubmit(s, pipeline.Outcome{
		Stage:    models.StageDone,
		Score:    &models.ScoreResult{Score: 90},
		RecordID: "lead-1",
	})
	assert.Equal(t, models.StepResult, done.Step)
	assert.Empty(t, done.Error)
	assert.Equal(t, "lead-1", done.RecordID)

	failed := CompleteSubmit(s, pipeline.Outcome{
		Stage: models.StageFailed,
		Score: &models.ScoreResult{Score: 90},
		Err:   errors.New("persist"),
	})
	assert.Equal(t, models.StepResult, failed.Step)
	assert.Equal(t, apperrors.SubmissionFailedMessage, failed.Error)
	assert.Equal(t, 90, failed.ScoreResult.Score)
	assert.Equal(t, models.StageFailed, failed.Submission)
}

func TestRestart(t *testing.T) {
	s := Restart()
	assert.Equal(t, models.StepIdentity, s.Step)
	assert.Equal(t, models.DefaultProfile(), s.Profile)
}
