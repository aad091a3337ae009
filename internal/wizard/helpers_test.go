// internal/wizard/helpers_test.go
package wizard

import (
	"context"
	"testing"

	"lead-intake/internal/common/database"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/models"
	"lead-intake/internal/pipeline"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
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

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl.WithFields(map[string]interface{}{"error": err})
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "intake", 0, &testLogger{t: t}), mr
}

// completeProfile passes every step validator for the given payment method.
func completeProfile(method models.PaymentMethod) models.CustomerProfile {
	p := models.DefaultProfile()
	p.FullName = "Ana Silva"
	p.Email = "ana@example.com"
	p.Phone = "21999998888"
	p.FamilyMonthlyIncome = "45.000,00"
	p.PropertyIdentifier = "CO1234"
	p.PaymentMethod = method
	p.FinancingAmount = "1.200.000"
	p.TradeInDetails = models.TradeInDetails{
		TradeInPropertyValue: "800.000",
		TradeInType:          "apartment",
		TradeInBedrooms:      "3",
		TradeInSize:          "100-150",
		TradeInNeighborhood:  "Recreio",
		TradeInAddress:       "Rua A, 10",
	}
	p.HasProofOfIncome = true
	p.HasAcceptedTerms = true
	return p
}

func testDocument() models.Document {
	return models.Document{FileName: "cnh.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}

// fakeSubmitter blocks each run until release receives an outcome, or the
// run context ends.
type fakeSubmitter struct {
	started chan pipeline.SubmissionRequest
	release chan pipeline.Outcome
	stages  []models.SubmissionStage
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{
		started: make(chan pipeline.SubmissionRequest, 4),
		release: make(chan pipeline.Outcome),
	}
}

func (f *fakeSubmitter) Run(ctx context.Context, req pipeline.SubmissionRequest, onStage func(models.SubmissionStage)) pipeline.Outcome {
	f.started <- req
	for _, s := range f.stages {
		onStage(s)
	}
	select {
	case out := <-f.release:
		return out
	case <-ctx.Done():
		return pipeline.Outcome{Stage: models.StageFailed, Err: ctx.Err()}
	}
}

// instantSubmitter returns a fixed outcome immediately.
type instantSubmitter struct {
	out pipeline.Outcome
}

func (s instantSubmitter) Run(context.Context, pipeline.SubmissionRequest, func(models.SubmissionStage)) pipeline.Outcome {
	return s.out
}
