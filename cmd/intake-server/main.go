// cmd/intake-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lead-intake/internal/api"
	commonaws "lead-intake/internal/common/aws"
	"lead-intake/internal/common/config"
	"lead-intake/internal/common/database"
	commonhttp "lead-intake/internal/common/http"
	"lead-intake/internal/common/llm"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/common/observability"
	"lead-intake/internal/integrations/location"
	"lead-intake/internal/integrations/notification"
	"lead-intake/internal/integrations/persistence"
	"lead-intake/internal/integrations/scoring"
	"lead-intake/internal/integrations/transcription"
	"lead-intake/internal/pipeline"
	"lead-intake/internal/wizard"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting intake server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Warn("observability init failed, tracing disabled", zap.Error(err))
		obs = observability.NewNoop()
	}
	defer obs.Shutdown(context.Background())

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) ---
	var indexer persistence.Indexer
	if cfg.Database.Elasticsearch.Enabled() {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, leads will not be indexed", zap.Error(err))
		} else {
			indexer = esClient
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Init Gemini ---
	genTimeout := config.GetDuration(cfg.APIs.GenAI.Timeout)
	gemini, err := llm.NewClient(ctx, cfg.APIs.GenAI.APIKey, cfg.APIs.GenAI.Model, genTimeout)
	if err != nil {
		zapLog.Fatal("genai client failed", zap.Error(err))
	}
	defer gemini.Close()

	// --- Submission pipeline ---
	scorer := scoring.NewHandler(&scoring.Config{Timeout: genTimeout, Temperature: 0.2}, gemini, log)

	searchIndex := ""
	if indexer != nil {
		searchIndex = cfg.Database.Elasticsearch.Index
	}
	persister := persistence.NewHandler(&persistence.Config{
		Timeout:     10 * time.Second,
		SearchIndex: searchIndex,
	}, pg, indexer, log)

	notifier := notification.NewHandler(notificationConfig(cfg), buildChannels(ctx, cfg, zapLog), log)

	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		ContinueOnScoringFailure: cfg.Pipeline.ContinueOnScoringFailure,
	}, scorer, persister, notifier, obs, log)

	// --- Wizard sessions ---
	store := wizard.NewStore(redis, cfg.Wizard.KeyPrefix, time.Duration(cfg.Wizard.SessionTTL)*time.Second, log)
	extractor := transcription.NewHandler(&transcription.Config{Timeout: genTimeout, DefaultMIMEType: "audio/webm"}, gemini, log)
	manager, err := wizard.NewManager(wizard.ManagerConfig{
		MaxLiveSessions: cfg.Wizard.MaxLiveSessions,
		Options: wizard.Options{
			StrictNavigation: cfg.Wizard.StrictNavigation,
			NotificationTTL:  config.GetDuration(cfg.Wizard.NotificationTTL),
		},
	}, store, orchestrator, wizard.NewRecorder(cfg.Voice.Enabled, cfg.Voice.MaxBytes), extractor, log)
	if err != nil {
		zapLog.Fatal("session manager init failed", zap.Error(err))
	}

	locator := location.NewHandler(&location.Config{
		Region:    cfg.Location.Region,
		CacheTTL:  time.Duration(cfg.Location.CacheTTL) * time.Second,
		KeyPrefix: cfg.Wizard.KeyPrefix + ":location",
		Timeout:   genTimeout,
	}, gemini, redis, log)

	// --- HTTP API ---
	server := api.NewServer(api.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, manager, locator, map[string]api.Checker{
		"redis":    redis,
		"postgres": pg,
	}, log)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownGrace))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	manager.Shutdown()

	zapLog.Info("Intake server stopped gracefully")
}

func notificationConfig(cfg *config.Config) *notification.Config {
	n := notification.LoadConfig()
	nc := cfg.Notifications

	n.BrandName = nc.BrandName
	n.EmailEnabled = nc.Email.Enabled
	n.SendCustomerEmail = nc.Email.SendCustomer
	if nc.Email.BrokerageTo != "" {
		n.BrokerageEmail = nc.Email.BrokerageTo
	}
	n.SMSEnabled = nc.SMS.Enabled
	n.StaffSMSTo = nc.SMS.StaffTo
	n.WhatsAppEnabled = nc.WhatsApp.Enabled
	if nc.WhatsApp.StaffNumber != "" {
		n.StaffWhatsApp = nc.WhatsApp.StaffNumber
	}
	n.WebhookURL = nc.Webhook.URL
	n.DefaultRegion = nc.DefaultCountry
	return n
}

// buildChannels creates the configured senders. A provider that cannot be
// set up is left nil and its channel is skipped.
func buildChannels(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) notification.Channels {
	var ch notification.Channels
	integ := cfg.Integrations

	needAWS := (cfg.Notifications.Email.Provider == "ses" && integ.AWS.SES.Enabled) || integ.AWS.SNS.Enabled
	if needAWS {
		awsCfg, err := commonaws.LoadConfig(ctx, integ.AWS.Region)
		if err != nil {
			zapLog.Error("aws config load failed, SES and SNS disabled", zap.Error(err))
		} else {
			if cfg.Notifications.Email.Provider == "ses" && integ.AWS.SES.Enabled {
				ch.Mailer = commonaws.NewSESClient(awsCfg, integ.AWS.SES.FromEmail)
			}
			if integ.AWS.SNS.Enabled {
				ch.SMS = commonaws.NewSNSClient(awsCfg, integ.AWS.SNS.DefaultSMSSenderID)
			}
		}
	}

	if cfg.Notifications.Email.Provider == "sendgrid" && integ.SendGrid.Enabled {
		mailer, err := notification.NewSendGridMailer(integ.SendGrid.APIKey, integ.SendGrid.FromEmail)
		if err != nil {
			zapLog.Error("sendgrid init failed", zap.Error(err))
		} else {
			ch.Mailer = mailer
		}
	}

	if integ.Twilio.Enabled {
		wa, err := notification.NewTwilioWhatsApp(integ.Twilio.AccountSID, integ.Twilio.AuthToken, integ.Twilio.FromNumber)
		if err != nil {
			zapLog.Error("twilio init failed", zap.Error(err))
		} else {
			ch.WhatsApp = wa
		}
	}

	if cfg.Notifications.Webhook.URL != "" {
		ch.Webhook = commonhttp.NewClient(config.GetDuration(cfg.Notifications.Webhook.Timeout))
	}

	if ch.Mailer == nil && cfg.Notifications.Email.Enabled {
		zapLog.Warn("no e-mail provider configured, brokerage e-mails are disabled")
	}
	return ch
}
