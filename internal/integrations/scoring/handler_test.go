// internal/integrations/scoring/handler_test.go
package scoring

import (
	"context"
	"errors"
	"testing"

	"lead-intake/internal/common/llm"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func (tl *testLogger) WithError(error) logger.Logger { return tl }

type fakeGenerator struct {
	reply string
	err   error
	last  llm.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	f.last = req
	return f.reply, f.err
}

func financingProfile() models.CustomerProfile {
	p := models.DefaultProfile()
	p.FullName = "Ana Souza"
	p.FamilyMonthlyIncome = "45.000,00"
	p.HasProofOfIncome = true
	p.PropertyIdentifier = "Golden Green"
	p.FinancingAmount = "2.000.000"
	p.HasPreApprovedCredit = models.Yes
	p.FinancialInstitution = "Itaú"
	p.TradeInAddress = "should not appear"
	return p
}

func TestHandler_Score(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
		want    *models.ScoreResult
	}{
		{
			name:  "plain json",
			reply: `{"score":85,"analysis":"Strong","recommendation":"immediate_scheduling","nextSteps":["Call"]}`,
			want: &models.ScoreResult{
				Score: 85, Analysis: "Strong",
				Recommendation: models.RecommendImmediateScheduling, NextSteps: []string{"Call"},
			},
		},
		{
			name:  "fenced json",
			reply: "```json\n{\"score\":40,\"analysis\":\"Thin\",\"recommendation\":\"needs_more_review\",\"nextSteps\":[]}\n```",
			want: &models.ScoreResult{
				Score: 40, Analysis: "Thin",
				Recommendation: models.RecommendNeedsMoreReview, NextSteps: []string{},
			},
		},
		{
			name:    "not json",
			reply:   "I think this lead is great",
			wantErr: true,
		},
		{
			name:    "score out of range",
			reply:   `{"score":140,"analysis":"x","recommendation":"low_priority","nextSteps":[]}`,
			wantErr: true,
		},
		{
			name:    "unknown recommendation",
			reply:   `{"score":10,"analysis":"x","recommendation":"maybe","nextSteps":[]}`,
			wantErr: true,
		},
		{
			name:    "missing nextSteps",
			reply:   `{"score":10,"analysis":"x","recommendation":"low_priority"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: tt.reply}
			h := NewHandler(nil, gen, &testLogger{t: t})

			got, err := h.Score(context.Background(), financingProfile())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedResponse)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandler_ScoreGeneratorError(t *testing.T) {
	boom := errors.New("quota exceeded")
	h := NewHandler(nil, &fakeGenerator{err: boom}, &testLogger{t: t})

	_, err := h.Score(context.Background(), financingProfile())
	assert.ErrorIs(t, err, boom)
}

func TestHandler_RequestShape(t *testing.T) {
	gen := &fakeGenerator{reply: `{"score":1,"analysis":"a","recommendation":"low_priority","nextSteps":[]}`}
	h := NewHandler(nil, gen, &testLogger{t: t})

	_, err := h.Score(context.Background(), financingProfile())
	require.NoError(t, err)

	assert.True(t, gen.last.JSON)
	assert.Same(t, responseSchema, gen.last.Schema)
	assert.Nil(t, gen.last.Audio)
	assert.Contains(t, gen.last.Prompt, "Golden Green")
	assert.Contains(t, gen.last.Prompt, "Amount to finance: 2.000.000")
	assert.NotContains(t, gen.last.Prompt, "should not appear")
}

func TestBuildPrompt_TradeInBranch(t *testing.T) {
	p := financingProfile()
	p.PaymentMethod = models.PaymentTradeIn
	p.TradeInNeighborhood = "Leblon"

	prompt := buildPrompt(p)
	assert.Contains(t, prompt, "tradeInNeighborhood: Leblon")
	assert.NotContains(t, prompt, "Amount to finance")
}
