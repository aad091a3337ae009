// internal/models/session.go
package models

import "time"

type Step int

const (
	StepIdentity          Step = 1
	StepPropertyFinancial Step = 2
	StepVerification      Step = 3
	StepScoring           Step = 4
	StepResult            Step = 5
)

func (s Step) Valid() bool { return s >= StepIdentity && s <= StepResult }

// SubmissionStage mirrors the orchestrator state for the current or last run.
type SubmissionStage string

const (
	StageIdle       SubmissionStage = "idle"
	StageScoring    SubmissionStage = "scoring"
	StagePersisting SubmissionStage = "persisting"
	StageNotifying  SubmissionStage = "notifying"
	StageDone       SubmissionStage = "done"
	StageFailed     SubmissionStage = "failed"
)

type Notification struct {
	Message   string    `json:"message"`
	Visible   bool      `json:"visible"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// WizardSession is the whole state of one customer's pass through the wizard.
type WizardSession struct {
	Step         Step            `json:"step"`
	Profile      CustomerProfile `json:"profile"`
	Document     *Document       `json:"-"`
	ScoreResult  *ScoreResult    `json:"scoreResult"`
	Error        string          `json:"error,omitempty"`
	Notification Notification    `json:"notification"`
	Submission   SubmissionStage `json:"submission"`
	RecordID     string          `json:"recordId,omitempty"`
	DeepLink     string          `json:"deepLink,omitempty"`
}

func NewWizardSession() WizardSession {
	return WizardSession{
		Step:       StepIdentity,
		Profile:    DefaultProfile(),
		Submission: StageIdle,
	}
}

func (s WizardSession) HasDocument() bool {
	return s.Document != nil && len(s.Document.Data) > 0
}

// Clone copies the session so a snapshot can leave the owning goroutine.
// The document bytes are shared; they are never mutated in place.
func (s WizardSession) Clone() WizardSession {
	out := s
	out.ScoreResult = s.ScoreResult.Clone()
	if s.Document != nil {
		doc := *s.Document
		out.Document = &doc
	}
	return out
}
