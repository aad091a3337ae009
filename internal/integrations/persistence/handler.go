// internal/integrations/persistence/handler.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lead-intake/internal/common/database"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const Component = "lead-persistence"

var ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")

// Indexer is satisfied by *database.ElasticsearchClient.
type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

type Handler struct {
	config  *Config
	db      *database.PostgresClient
	indexer Indexer
	logger  logger.Logger
	now     func() time.Time
}

// NewHandler stores leads in db. indexer may be nil.
func NewHandler(config *Config, db *database.PostgresClient, indexer Indexer, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config:  config,
		db:      db,
		indexer: indexer,
		logger:  log.WithFields(map[string]interface{}{"component": Component}),
		now:     time.Now,
	}
}

const insertLead = `
	INSERT INTO leads (
		id, full_name, email, phone,
		family_monthly_income, family_monthly_income_value, has_proof_of_income,
		property_identifier, property_of_interest, payment_method,
		financing_amount, financing_amount_value, has_preapproved_credit, financial_institution,
		tradein_property_value, tradein_property_value_amount, tradein_type, tradein_bedrooms,
		tradein_size, tradein_neighborhood, tradein_address,
		visit_date1, visit_time1, visit_date2, visit_time2, has_accepted_terms,
		score, analysis, recommendation, next_steps, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31
	)`

const insertDocument = `
	INSERT INTO lead_documents (lead_id, file_name, content_type, size_bytes, data, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

const insertAudit = `
	INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
	VALUES ($1, $2, $3, $4, $5)`

// Save writes the lead and its document in one transaction and returns the
// new record id. Audit and search indexing are best effort.
func (h *Handler) Save(ctx context.Context, profile models.CustomerProfile, doc *models.Document, score *models.ScoreResult) (string, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	id := uuid.New().String()
	createdAt := h.now().UTC()

	err := h.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertLead, leadArgs(id, profile, score, createdAt)...); err != nil {
			return fmt.Errorf("%w: insert lead: %v", ErrDatabaseInsertFailed, err)
		}
		if doc == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, insertDocument,
			id, doc.FileName, doc.ContentType, doc.Size(), doc.Data, createdAt,
		); err != nil {
			return fmt.Errorf("%w: insert document: %v", ErrDatabaseInsertFailed, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	h.audit(ctx, id, profile, score, createdAt)
	h.index(ctx, id, profile, doc, score, createdAt)

	fields := map[string]interface{}{
		"leadId":        id,
		"paymentMethod": string(profile.PaymentMethod),
		"hasDocument":   doc != nil,
	}
	if score != nil {
		fields["score"] = score.Score
	}
	h.logger.Info("lead stored", fields)
	return id, nil
}

func leadArgs(id string, p models.CustomerProfile, score *models.ScoreResult, createdAt time.Time) []interface{} {
	var (
		financingAmount, preApproved, institution sql.NullString
		financingValue                            decimal.NullDecimal
		tradeIn                                   [6]sql.NullString
		tradeInValue                              decimal.NullDecimal
	)

	switch plan := p.Plan().(type) {
	case models.FinancingPlan:
		financingAmount = nullString(plan.FinancingAmount)
		financingValue = ParseAmount(plan.FinancingAmount)
		preApproved = nullString(string(plan.HasPreApprovedCredit))
		institution = nullString(plan.FinancialInstitution)
	case models.TradeInPlan:
		for i, f := range plan.Fields() {
			tradeIn[i] = nullString(f.Value)
		}
		tradeInValue = ParseAmount(plan.TradeInPropertyValue)
	}

	var (
		scoreVal       sql.NullInt64
		analysis       sql.NullString
		recommendation sql.NullString
		nextSteps      interface{}
	)
	if score != nil {
		scoreVal = sql.NullInt64{Int64: int64(score.Score), Valid: true}
		analysis = nullString(score.Analysis)
		recommendation = nullString(string(score.Recommendation))
		nextSteps = pq.Array(score.NextSteps)
	}

	return []interface{}{
		id, p.FullName, p.Email, p.PhoneDigits(),
		p.FamilyMonthlyIncome, ParseAmount(p.FamilyMonthlyIncome), p.HasProofOfIncome,
		p.PropertyIdentifier, string(p.PropertyOfInterest), string(p.PaymentMethod),
		financingAmount, financingValue, preApproved, institution,
		tradeIn[0], tradeInValue, tradeIn[1], tradeIn[2],
		tradeIn[3], tradeIn[4], tradeIn[5],
		p.VisitDate1, p.VisitTime1, p.VisitDate2, p.VisitTime2, p.HasAcceptedTerms,
		scoreVal, analysis, recommendation, nextSteps, createdAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (h *Handler) audit(ctx context.Context, id string, p models.CustomerProfile, score *models.ScoreResult, createdAt time.Time) {
	details := map[string]interface{}{
		"propertyIdentifier": p.PropertyIdentifier,
		"paymentMethod":      p.PaymentMethod,
		"scored":             score != nil,
	}
	if score != nil {
		details["recommendation"] = score.Recommendation
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	if _, err := h.db.Exec(ctx, insertAudit, "lead_created", "lead", id, detailsJSON, createdAt); err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":  err.Error(),
			"leadId": id,
		})
	}
}

func (h *Handler) index(ctx context.Context, id string, p models.CustomerProfile, doc *models.Document, score *models.ScoreResult, createdAt time.Time) {
	if h.indexer == nil || h.config.SearchIndex == "" {
		return
	}

	lead := LeadDocument{
		ID:                 id,
		FullName:           p.FullName,
		Email:              p.Email,
		Phone:              p.PhoneDigits(),
		PropertyIdentifier: p.PropertyIdentifier,
		PropertyOfInterest: string(p.PropertyOfInterest),
		PaymentMethod:      string(p.PaymentMethod),
		HasDocument:        doc != nil,
		CreatedAt:          createdAt.Format(time.RFC3339),
	}
	if income := ParseAmount(p.FamilyMonthlyIncome); income.Valid {
		f := income.Decimal.InexactFloat64()
		lead.MonthlyIncome = &f
	}
	if score != nil {
		s := score.Score
		lead.Score = &s
		lead.Recommendation = string(score.Recommendation)
	}

	if err := h.indexer.IndexDocument(ctx, h.config.SearchIndex, id, lead); err != nil {
		h.logger.Warn("lead indexing failed", map[string]interface{}{
			"error":  err.Error(),
			"leadId": id,
		})
	}
}
