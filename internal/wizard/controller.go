// internal/wizard/controller.go
package wizard

import (
	"fmt"

	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/models"
	"lead-intake/internal/pipeline"
)

// The functions below are pure transitions over a session value. Gating by
// the step validators is left to the caller.

// Next moves from an interactive form step to the following one.
func Next(s models.WizardSession) (models.WizardSession, error) {
	if s.Step != models.StepIdentity && s.Step != models.StepPropertyFinancial {
		return s, fmt.Errorf("%w: next from step %d", apperrors.ErrInvalidTransition, s.Step)
	}
	s.Step++
	return s, nil
}

func Back(s models.WizardSession) (models.WizardSession, error) {
	if s.Step != models.StepPropertyFinancial && s.Step != models.StepVerification {
		return s, fmt.Errorf("%w: back from step %d", apperrors.ErrInvalidTransition, s.Step)
	}
	s.Step--
	return s, nil
}

// BeginSubmit is the optimistic half of a submission: the session shows the
// scoring step before any collaborator has been called.
func BeginSubmit(s models.WizardSession) (models.WizardSession, error) {
	switch s.Step {
	case models.StepVerification:
	case models.StepScoring:
		return s, apperrors.ErrSubmissionInFlight
	default:
		return s, fmt.Errorf("%w: submit from step %d", apperrors.ErrInvalidTransition, s.Step)
	}
	s.Step = models.StepScoring
	s.ScoreResult = nil
	s.Error = ""
	s.RecordID = ""
	s.DeepLink = ""
	s.Submission = models.StageScoring
	return s, nil
}

// CompleteSubmit always lands on the result step. Any failure replaces the
// cause with the single customer-facing message.
func CompleteSubmit(s models.WizardSession, out pipeline.Outcome) models.WizardSession {
	s.Step = models.StepResult
	s.ScoreResult = out.Score.Clone()
	s.RecordID = out.RecordID
	s.DeepLink = out.DeepLink
	if out.Succeeded() {
		s.Error = ""
		s.Submission = models.StageDone
	} else {
		s.Error = apperrors.SubmissionFailedMessage
		s.Submission = models.StageFailed
	}
	return s
}

func Restart() models.WizardSession {
	return models.NewWizardSession()
}
