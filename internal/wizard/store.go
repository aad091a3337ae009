// internal/wizard/store.go
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"lead-intake/internal/common/database"
	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/models"
)

// KV is the subset of database.RedisClient the store needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Store keeps wizard progress under two independent keys per session: the
// step and the serialized profile. The document is never written.
type Store struct {
	kv     KV
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(kv KV, prefix string, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		kv:     kv,
		prefix: prefix,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "form-store"}),
	}
}

func (s *Store) stepKey(sessionID string) string {
	return fmt.Sprintf("%s:%s:step", s.prefix, sessionID)
}

func (s *Store) profileKey(sessionID string) string {
	return fmt.Sprintf("%s:%s:profile", s.prefix, sessionID)
}

// Load restores a session. It never fails: any unreadable key falls back to
// its default. found is false when neither key exists.
func (s *Store) Load(ctx context.Context, sessionID string) (session models.WizardSession, found bool) {
	session = models.NewWizardSession()

	step, stepFound := s.loadStep(ctx, sessionID)
	profile, profileFound := s.loadProfile(ctx, sessionID)

	session.Step = step
	session.Profile = profile
	session.Document = nil
	return session, stepFound || profileFound
}

func (s *Store) loadStep(ctx context.Context, sessionID string) (models.Step, bool) {
	raw, err := s.kv.Get(ctx, s.stepKey(sessionID))
	if errors.Is(err, database.ErrKeyNotFound) {
		return models.StepIdentity, false
	}
	if err != nil {
		s.corrupt(sessionID, "step", err)
		return models.StepIdentity, false
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		s.corrupt(sessionID, "step", err)
		return models.StepIdentity, true
	}
	step := models.Step(n)
	switch {
	case step == models.StepScoring:
		// A stored scoring step has no run behind it anymore.
		return models.StepVerification, true
	case !step.Valid():
		s.corrupt(sessionID, "step", fmt.Errorf("step %d out of range", n))
		return models.StepIdentity, true
	}
	return step, true
}

func (s *Store) loadProfile(ctx context.Context, sessionID string) (models.CustomerProfile, bool) {
	raw, err := s.kv.Get(ctx, s.profileKey(sessionID))
	if errors.Is(err, database.ErrKeyNotFound) {
		return models.DefaultProfile(), false
	}
	if err != nil {
		s.corrupt(sessionID, "profile", err)
		return models.DefaultProfile(), false
	}

	profile := models.DefaultProfile()
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		s.corrupt(sessionID, "profile", err)
		return models.DefaultProfile(), true
	}
	if err := checkEnums(profile); err != nil {
		s.corrupt(sessionID, "profile", err)
		return models.DefaultProfile(), true
	}
	return profile, true
}

func (s *Store) corrupt(sessionID, key string, err error) {
	s.logger.Warn("stored wizard state unreadable, using defaults", map[string]interface{}{
		"code":      string(apperrors.ErrCodeStorageCorrupt),
		"sessionId": sessionID,
		"key":       key,
		"error":     err,
	})
}

// Save overwrites both keys. Each SET is atomic on its own.
func (s *Store) Save(ctx context.Context, sessionID string, step models.Step, profile models.CustomerProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := s.kv.Set(ctx, s.stepKey(sessionID), strconv.Itoa(int(step)), s.ttl); err != nil {
		return fmt.Errorf("save step: %w", err)
	}
	if err := s.kv.Set(ctx, s.profileKey(sessionID), data, s.ttl); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.kv.Del(ctx, s.stepKey(sessionID), s.profileKey(sessionID)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func checkEnums(p models.CustomerProfile) error {
	if !p.PropertyOfInterest.Valid() {
		return fmt.Errorf("invalid propertyOfInterest %q", p.PropertyOfInterest)
	}
	if !p.PaymentMethod.Valid() {
		return fmt.Errorf("invalid paymentMethod %q", p.PaymentMethod)
	}
	if !p.HasPreApprovedCredit.Valid() {
		return fmt.Errorf("invalid hasPreApprovedCredit %q", p.HasPreApprovedCredit)
	}
	return nil
}
