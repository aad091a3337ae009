// internal/models/score.go
package models

type Recommendation string

const (
	RecommendImmediateScheduling Recommendation = "immediate_scheduling"
	RecommendNeedsMoreReview     Recommendation = "needs_more_review"
	RecommendLowPriority         Recommendation = "low_priority"
)

func (r Recommendation) Label() string {
	switch r {
	case RecommendImmediateScheduling:
		return "Immediate scheduling"
	case RecommendNeedsMoreReview:
		return "Needs more review"
	case RecommendLowPriority:
		return "Low priority"
	}
	return string(r)
}

// ScoreResult is produced once per submission and never mutated afterwards.
type ScoreResult struct {
	Score          int            `json:"score"`
	Analysis       string         `json:"analysis"`
	Recommendation Recommendation `json:"recommendation"`
	NextSteps      []string       `json:"nextSteps"`
}

func (s *ScoreResult) Clone() *ScoreResult {
	if s == nil {
		return nil
	}
	out := *s
	out.NextSteps = append([]string(nil), s.NextSteps...)
	return &out
}
