//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lead-intake/internal/api"
	"lead-intake/internal/common/config"
	"lead-intake/internal/common/database"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/common/observability"
	"lead-intake/internal/integrations/notification"
	"lead-intake/internal/integrations/persistence"
	"lead-intake/internal/models"
	"lead-intake/internal/pipeline"
	"lead-intake/internal/wizard"
)

// Run with: go test -tags e2e ./test/e2e/ (needs Postgres and Redis on localhost)

var zapLog *zap.Logger

func TestMain(m *testing.M) {
	zapLog, _ = zap.NewDevelopment()
	code := m.Run()
	_ = zapLog.Sync()
	os.Exit(code)
}

// fixedScorer stands in for Gemini so the run does not need an API key.
type fixedScorer struct{}

func (fixedScorer) Score(context.Context, models.CustomerProfile) (*models.ScoreResult, error) {
	return &models.ScoreResult{
		Score:          87,
		Analysis:       "Income covers the financing comfortably.",
		Recommendation: models.RecommendImmediateScheduling,
		NextSteps:      []string{"Call the customer", "Confirm the first visit slot"},
	}, nil
}

func loadConfig(t *testing.T) *config.Config {
	cfg, err := config.Load()
	require.NoError(t, err)

	// force localhost for e2e runs
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	return cfg
}

func TestFullE2E(t *testing.T) {
	cfg := loadConfig(t)
	log := logger.NewZapAdapter(zapLog)
	ctx := context.Background()

	t.Log("🔍 Checking service connectivity...")
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "❌ PostgreSQL connection failed")
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx), "❌ PostgreSQL ping failed")
	t.Log("✅ PostgreSQL connected")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "❌ Redis client creation failed")
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx), "❌ Redis ping failed")
	t.Log("✅ Redis connected")

	applyMigrations(t, pg)

	persister := persistence.NewHandler(persistence.LoadConfig(), pg, nil, log)
	notifierCfg := notification.LoadConfig()
	notifierCfg.EmailEnabled = false
	notifier := notification.NewHandler(notifierCfg, notification.Channels{}, log)
	orchestrator := pipeline.NewOrchestrator(pipeline.Config{}, fixedScorer{}, persister, notifier, observability.NewNoop(), log)

	store := wizard.NewStore(rdb, "intake-e2e", time.Hour, log)
	manager, err := wizard.NewManager(wizard.ManagerConfig{
		MaxLiveSessions: 8,
		Options:         wizard.Options{StrictNavigation: true},
	}, store, orchestrator, wizard.NewRecorder(false, 0), nil, log)
	require.NoError(t, err)
	defer manager.Shutdown()

	srv := httptest.NewServer(api.NewServer(api.Config{}, manager, nil, map[string]api.Checker{
		"redis":    rdb,
		"postgres": pg,
	}, log).Routes())
	defer srv.Close()

	t.Log("🚀 Walking through the wizard...")
	var session map[string]interface{}
	call(t, srv, http.MethodPost, "/v1/sessions", nil, "", http.StatusCreated, &session)
	id := session["id"].(string)

	call(t, srv, http.MethodPatch, "/v1/sessions/"+id+"/profile",
		[]byte(`{"fullName":"Ana Silva","email":"ana@example.com","phone":"(21) 99999-8888"}`), "application/json", http.StatusOK, nil)
	call(t, srv, http.MethodPost, "/v1/sessions/"+id+"/next", nil, "", http.StatusOK, nil)
	call(t, srv, http.MethodPatch, "/v1/sessions/"+id+"/profile",
		[]byte(`{"propertyIdentifier":"Golden Green","familyMonthlyIncome":"45.000,00","financingAmount":"2.000.000"}`), "application/json", http.StatusOK, nil)
	call(t, srv, http.MethodPost, "/v1/sessions/"+id+"/next", nil, "", http.StatusOK, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cnh.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.4 e2e"))
	require.NoError(t, mw.Close())
	call(t, srv, http.MethodPut, "/v1/sessions/"+id+"/document", buf.Bytes(), mw.FormDataContentType(), http.StatusOK, nil)

	call(t, srv, http.MethodPatch, "/v1/sessions/"+id+"/profile",
		[]byte(`{"hasProofOfIncome":true,"hasAcceptedTerms":true}`), "application/json", http.StatusOK, nil)
	call(t, srv, http.MethodPost, "/v1/sessions/"+id+"/submit", nil, "", http.StatusOK, nil)

	require.Eventually(t, func() bool {
		call(t, srv, http.MethodGet, "/v1/sessions/"+id, nil, "", http.StatusOK, &session)
		return session["step"].(float64) == float64(models.StepResult)
	}, 30*time.Second, 200*time.Millisecond)
	assert.Equal(t, "done", session["submission"])

	recordID, _ := session["recordId"].(string)
	require.NotEmpty(t, recordID)
	t.Logf("✅ Lead stored as %s", recordID)

	var (
		name  string
		score int
		docs  int
	)
	row := pg.DB.QueryRowContext(ctx, `SELECT full_name, score FROM leads WHERE id = $1`, recordID)
	require.NoError(t, row.Scan(&name, &score))
	assert.Equal(t, "Ana Silva", name)
	assert.Equal(t, 87, score)

	require.NoError(t, pg.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM lead_documents WHERE lead_id = $1`, recordID).Scan(&docs))
	assert.Equal(t, 1, docs)

	t.Log("✅ ALL TESTS PASSED: full E2E workflow successful!")
}

func applyMigrations(t *testing.T, pg *database.PostgresClient) {
	t.Log("🔧 Applying migrations...")
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "migrations", "001_init.sql")
	ddl, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = pg.DB.ExecContext(context.Background(), string(ddl))
	require.NoError(t, err, "❌ migrations failed")
}

func call(t *testing.T, srv *httptest.Server, method, path string, body []byte, contentType string, wantStatus int, out interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, wantStatus, resp.StatusCode, "%s %s", method, path)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}
