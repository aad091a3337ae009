// internal/integrations/scoring/handler.go
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lead-intake/internal/common/llm"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/common/validation"
	"lead-intake/internal/models"
)

const Component = "lead-scoring"

var ErrMalformedResponse = errors.New("SCORE_MALFORMED_RESPONSE")

var validator = validation.MustValidator(resultSchema)

// Handler scores a customer profile with a generative model.
type Handler struct {
	config    *Config
	generator llm.Generator
	logger    logger.Logger
}

func NewHandler(config *Config, generator llm.Generator, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config:    config,
		generator: generator,
		logger:    log.WithFields(map[string]interface{}{"component": Component}),
	}
}

func (h *Handler) Score(ctx context.Context, profile models.CustomerProfile) (*models.ScoreResult, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	temp := h.config.Temperature
	raw, err := h.generator.Generate(ctx, llm.Request{
		Prompt:      buildPrompt(profile),
		JSON:        true,
		Schema:      responseSchema,
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("generate score: %w", err)
	}

	result, err := parseResult(raw)
	if err != nil {
		h.logger.Warn("discarding malformed score response", map[string]interface{}{
			"error":  err.Error(),
			"length": len(raw),
		})
		return nil, err
	}

	h.logger.Info("lead scored", map[string]interface{}{
		"score":          result.Score,
		"recommendation": string(result.Recommendation),
	})
	return result, nil
}

func parseResult(raw string) (*models.ScoreResult, error) {
	body := []byte(llm.StripFences(raw))
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: not valid json", ErrMalformedResponse)
	}

	check, err := validator.ValidateBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !check.Valid {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(check.GetErrorMessages(), "; "))
	}

	var result models.ScoreResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.NextSteps == nil {
		result.NextSteps = []string{}
	}
	return &result, nil
}

func buildPrompt(p models.CustomerProfile) string {
	var parts []string

	parts = append(parts, "You are a senior broker at a luxury real-estate agency in Barra da Tijuca, Rio de Janeiro.")
	parts = append(parts, "Assess how qualified this lead is to visit the property and how urgently the team should follow up.")

	parts = append(parts, "\nCustomer:")
	parts = append(parts, fmt.Sprintf("- Name: %s", p.FullName))
	parts = append(parts, fmt.Sprintf("- Family monthly income: %s", p.FamilyMonthlyIncome))
	parts = append(parts, fmt.Sprintf("- Proof of income available: %s", yesNo(p.HasProofOfIncome)))

	parts = append(parts, "\nProperty:")
	parts = append(parts, fmt.Sprintf("- Identifier: %s", p.PropertyIdentifier))
	parts = append(parts, fmt.Sprintf("- Category: %s", p.PropertyOfInterest.Label()))

	parts = append(parts, fmt.Sprintf("\nPayment method: %s", p.PaymentMethod.Label()))
	switch plan := p.Plan().(type) {
	case models.FinancingPlan:
		parts = append(parts, fmt.Sprintf("- Amount to finance: %s", plan.FinancingAmount))
		parts = append(parts, fmt.Sprintf("- Pre-approved credit: %s", plan.HasPreApprovedCredit))
		if plan.FinancialInstitution != "" {
			parts = append(parts, fmt.Sprintf("- Institution: %s", plan.FinancialInstitution))
		}
	case models.TradeInPlan:
		for _, f := range plan.Fields() {
			parts = append(parts, fmt.Sprintf("- %s: %s", f.Key, f.Value))
		}
	}

	if p.VisitDate1 != "" || p.VisitDate2 != "" {
		parts = append(parts, "\nPreferred visit slots:")
		parts = append(parts, fmt.Sprintf("- %s %s", p.VisitDate1, p.VisitTime1))
		parts = append(parts, fmt.Sprintf("- %s %s", p.VisitDate2, p.VisitTime2))
	}

	parts = append(parts, "\nReturn JSON only with the keys score (0-100), analysis, recommendation "+
		"(immediate_scheduling, needs_more_review or low_priority) and nextSteps (list of short actions).")

	return strings.Join(parts, "\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
