// internal/wizard/manager.go
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/common/metrics"
	"lead-intake/internal/models"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Extractor turns a voice note into a partial profile encoded as a JSON
// object keyed by profile field names.
type Extractor interface {
	Extract(ctx context.Context, audio Audio) ([]byte, error)
}

type ManagerConfig struct {
	MaxLiveSessions int
	Options         Options
}

// Manager keeps a bounded set of live session machines. A session that is
// not live is restored from the store on first use; evicting one closes its
// machine and cancels whatever it had in flight.
type Manager struct {
	mu        sync.Mutex
	live      *lru.Cache[string, *Machine]
	store     *Store
	submitter Submitter
	recorder  *Recorder
	extractor Extractor
	opts      Options
	logger    logger.Logger
}

func NewManager(cfg ManagerConfig, store *Store, submitter Submitter, recorder *Recorder, extractor Extractor, log logger.Logger) (*Manager, error) {
	if cfg.MaxLiveSessions <= 0 {
		cfg.MaxLiveSessions = 1024
	}
	if cfg.Options.NotificationTTL <= 0 {
		cfg.Options.NotificationTTL = 4 * time.Second
	}

	mg := &Manager{
		store:     store,
		submitter: submitter,
		recorder:  recorder,
		extractor: extractor,
		opts:      cfg.Options,
		logger:    log.WithFields(map[string]interface{}{"component": "session-manager"}),
	}

	cache, err := lru.NewWithEvict(cfg.MaxLiveSessions, func(id string, m *Machine) {
		m.Close()
		mg.recorder.Discard(id)
		metrics.SessionsActive.Dec()
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	mg.live = cache
	return mg, nil
}

// Create starts a new session with default state and stores it.
func (mg *Manager) Create(ctx context.Context) (models.WizardSession, string, error) {
	id := uuid.New().String()
	session := models.NewWizardSession()
	if err := mg.store.Save(ctx, id, session.Step, session.Profile); err != nil {
		return models.WizardSession{}, "", fmt.Errorf("store new session: %w", err)
	}

	mg.mu.Lock()
	mg.add(id, session)
	mg.mu.Unlock()

	mg.logger.Info("session created", map[string]interface{}{"sessionId": id})
	return session, id, nil
}

// Machine returns the live machine for id, restoring it when needed.
func (mg *Manager) Machine(ctx context.Context, id string) (*Machine, error) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if m, ok := mg.live.Get(id); ok {
		return m, nil
	}

	session, found := mg.store.Load(ctx, id)
	if !found {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return mg.add(id, session), nil
}

func (mg *Manager) add(id string, session models.WizardSession) *Machine {
	m := newMachine(id, session, mg.store, mg.submitter, mg.opts, mg.logger)
	mg.live.Add(id, m)
	metrics.SessionsActive.Inc()
	return m
}

// With runs fn against the session's machine. A machine evicted between
// lookup and use is restored once more.
func (mg *Manager) With(ctx context.Context, id string, fn func(*Machine) (models.WizardSession, error)) (models.WizardSession, error) {
	for attempt := 0; ; attempt++ {
		m, err := mg.Machine(ctx, id)
		if err != nil {
			return models.WizardSession{}, err
		}
		s, err := fn(m)
		if errors.Is(err, apperrors.ErrSessionClosed) && attempt == 0 {
			continue
		}
		return s, err
	}
}

func (mg *Manager) StartVoice(ctx context.Context, id, mimeType string) error {
	if _, err := mg.Machine(ctx, id); err != nil {
		return err
	}
	return mg.recorder.Start(id, mimeType)
}

func (mg *Manager) AppendVoice(id string, chunk []byte) error {
	return mg.recorder.Append(id, chunk)
}

// StopVoice ends the recording, extracts fields from it and merges them. A
// failed extraction leaves the profile untouched.
func (mg *Manager) StopVoice(ctx context.Context, id string) (models.WizardSession, []string, error) {
	audio, err := mg.recorder.Stop(id)
	if err != nil {
		if errors.Is(err, apperrors.ErrTranscriptionFailed) {
			metrics.VoiceMerges.WithLabelValues("empty").Inc()
		}
		return models.WizardSession{}, nil, err
	}

	raw, err := mg.extractor.Extract(ctx, audio)
	if err != nil {
		metrics.VoiceMerges.WithLabelValues("failed").Inc()
		mg.logger.WithError(err).Warn("voice extraction failed", map[string]interface{}{"sessionId": id})
		return models.WizardSession{}, nil, fmt.Errorf("%w: %w", apperrors.ErrTranscriptionFailed, err)
	}

	var merged []string
	s, err := mg.With(ctx, id, func(m *Machine) (models.WizardSession, error) {
		s, keys, err := m.ApplyVoiceFields(ctx, raw)
		merged = keys
		return s, err
	})
	if err != nil {
		return models.WizardSession{}, nil, err
	}

	result := "merged"
	if len(merged) == 0 {
		result = "empty"
	}
	metrics.VoiceMerges.WithLabelValues(result).Inc()
	return s, merged, nil
}

// Remove closes a live session without touching the store.
func (mg *Manager) Remove(id string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	mg.live.Remove(id)
}

// Shutdown closes every live machine.
func (mg *Manager) Shutdown() {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	mg.live.Purge()
}

func (mg *Manager) Len() int {
	return mg.live.Len()
}
