// internal/wizard/machine.go
package wizard

import (
	"context"
	"time"

	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/models"
	"lead-intake/internal/pipeline"
)

// Submitter runs the submission pipeline. *pipeline.Orchestrator satisfies it.
type Submitter interface {
	Run(ctx context.Context, req pipeline.SubmissionRequest, onStage func(models.SubmissionStage)) pipeline.Outcome
}

type Options struct {
	StrictNavigation bool
	NotificationTTL  time.Duration
}

// Machine owns one wizard session. All state changes run on its loop
// goroutine; other goroutines post closures and wait for a snapshot.
type Machine struct {
	id        string
	store     *Store
	submitter Submitter
	opts      Options
	logger    logger.Logger

	events  chan func()
	quit    chan struct{}
	stopped chan struct{}

	// loop goroutine only
	session   models.WizardSession
	runID     uint64
	cancelRun context.CancelFunc
	noticeSeq uint64
	notice    *time.Timer
}

func newMachine(id string, initial models.WizardSession, store *Store, submitter Submitter, opts Options, log logger.Logger) *Machine {
	m := &Machine{
		id:        id,
		store:     store,
		submitter: submitter,
		opts:      opts,
		logger:    log.WithFields(map[string]interface{}{"sessionId": id}),
		events:    make(chan func()),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
		session:   initial,
	}
	go m.loop()
	return m
}

func (m *Machine) ID() string { return m.id }

func (m *Machine) loop() {
	defer close(m.stopped)
	for {
		select {
		case fn := <-m.events:
			fn()
		case <-m.quit:
			m.cancelSubmission()
			m.stopNotice()
			return
		}
	}
}

// Close stops the loop and cancels any in-flight submission. Safe to call
// more than once.
func (m *Machine) Close() {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
	<-m.stopped
}

type reply struct {
	session models.WizardSession
	err     error
}

// do runs fn on the loop and returns the resulting snapshot.
func (m *Machine) do(ctx context.Context, fn func() error) (models.WizardSession, error) {
	done := make(chan reply, 1)
	task := func() {
		err := fn()
		done <- reply{session: m.session.Clone(), err: err}
	}

	select {
	case m.events <- task:
	case <-m.quit:
		return models.WizardSession{}, apperrors.ErrSessionClosed
	case <-ctx.Done():
		return models.WizardSession{}, ctx.Err()
	}

	select {
	case r := <-done:
		return r.session, r.err
	case <-m.stopped:
		return models.WizardSession{}, apperrors.ErrSessionClosed
	}
}

// post queues fn from a background goroutine. Dropped once the loop is gone.
func (m *Machine) post(fn func()) {
	select {
	case m.events <- fn:
	case <-m.quit:
	}
}

func (m *Machine) Snapshot(ctx context.Context) (models.WizardSession, error) {
	return m.do(ctx, func() error { return nil })
}

// UpdateProfile applies manual field edits.
func (m *Machine) UpdateProfile(ctx context.Context, fields []byte) (models.WizardSession, error) {
	return m.do(ctx, func() error {
		profile, keys, err := MergeFields(m.session.Profile, fields)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		m.session.Profile = profile
		m.persist(ctx)
		return nil
	})
}

// ApplyVoiceFields merges fields extracted from a voice note and raises the
// transient notice. Malformed input merges nothing and is not an error.
func (m *Machine) ApplyVoiceFields(ctx context.Context, fields []byte) (models.WizardSession, []string, error) {
	var merged []string
	s, err := m.do(ctx, func() error {
		profile, keys, err := MergeFields(m.session.Profile, fields)
		if err != nil {
			m.logger.Warn("discarding malformed voice fields", map[string]interface{}{"error": err})
			return nil
		}
		if len(keys) == 0 {
			return nil
		}
		m.session.Profile = profile
		merged = keys
		m.raiseNotice(MergeNotice(len(keys)))
		m.persist(ctx)
		return nil
	})
	return s, merged, err
}

func (m *Machine) AttachDocument(ctx context.Context, doc models.Document) (models.WizardSession, error) {
	return m.do(ctx, func() error {
		if len(doc.Data) == 0 {
			return apperrors.NewInvalidRequestError("document is empty")
		}
		m.session.Document = &doc
		return nil
	})
}

func (m *Machine) RemoveDocument(ctx context.Context) (models.WizardSession, error) {
	return m.do(ctx, func() error {
		m.session.Document = nil
		return nil
	})
}

func (m *Machine) Next(ctx context.Context) (models.WizardSession, error) {
	return m.do(ctx, func() error {
		if m.opts.StrictNavigation && m.session.Step < models.StepVerification && !CanAdvance(m.session) {
			return apperrors.NewValidationBlockedError(int(m.session.Step), FieldIssues(m.session))
		}
		next, err := Next(m.session)
		if err != nil {
			return err
		}
		m.session = next
		m.persist(ctx)
		return nil
	})
}

func (m *Machine) Back(ctx context.Context) (models.WizardSession, error) {
	return m.do(ctx, func() error {
		prev, err := Back(m.session)
		if err != nil {
			return err
		}
		m.session = prev
		m.persist(ctx)
		return nil
	})
}

// Submit moves to the scoring step at once and starts the pipeline in the
// background. Its result arrives later as a loop event.
func (m *Machine) Submit(ctx context.Context) (models.WizardSession, error) {
	return m.do(ctx, func() error {
		if m.opts.StrictNavigation && m.session.Step == models.StepVerification && !CanAdvance(m.session) {
			return apperrors.NewValidationBlockedError(int(m.session.Step), FieldIssues(m.session))
		}
		started, err := BeginSubmit(m.session)
		if err != nil {
			return err
		}
		m.session = started
		m.persist(ctx)
		m.startSubmission()
		return nil
	})
}

// Restart abandons any in-flight submission and returns to a fresh session.
func (m *Machine) Restart(ctx context.Context) (models.WizardSession, error) {
	return m.do(ctx, func() error {
		m.cancelSubmission()
		m.stopNotice()
		m.session = Restart()
		if err := m.store.Clear(ctx, m.id); err != nil {
			m.logger.Error("failed to clear stored session", map[string]interface{}{"error": err})
		}
		m.persist(ctx)
		return nil
	})
}

func (m *Machine) startSubmission() {
	m.cancelSubmission()
	m.runID++
	runID := m.runID

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel

	req := pipeline.SubmissionRequest{
		SessionID: m.id,
		Profile:   m.session.Profile,
		Document:  m.session.Document,
	}
	onStage := func(stage models.SubmissionStage) {
		m.post(func() {
			if runID == m.runID && m.session.Step == models.StepScoring {
				m.session.Submission = stage
			}
		})
	}

	go func() {
		defer cancel()
		out := m.submitter.Run(ctx, req, onStage)
		m.post(func() { m.completeSubmission(runID, out) })
	}()
}

func (m *Machine) completeSubmission(runID uint64, out pipeline.Outcome) {
	if runID != m.runID || m.session.Step != models.StepScoring {
		m.logger.Debug("discarding result of superseded submission", map[string]interface{}{"runId": runID})
		return
	}
	m.cancelRun = nil
	m.session = CompleteSubmit(m.session, out)
	if out.Err != nil {
		m.logger.WithError(out.Err).Warn("submission failed", map[string]interface{}{
			"stage": string(out.FailedStage),
		})
	}
	m.persist(context.Background())
}

func (m *Machine) cancelSubmission() {
	if m.cancelRun != nil {
		m.cancelRun()
		m.cancelRun = nil
	}
	// results still in flight carry the old id and will be ignored
	m.runID++
}

func (m *Machine) raiseNotice(msg string) {
	m.stopNotice()
	m.noticeSeq++
	seq := m.noticeSeq
	m.session.Notification = models.Notification{
		Message:   msg,
		Visible:   true,
		ExpiresAt: time.Now().Add(m.opts.NotificationTTL),
	}
	m.notice = time.AfterFunc(m.opts.NotificationTTL, func() {
		m.post(func() {
			if seq == m.noticeSeq {
				m.session.Notification = models.Notification{}
			}
		})
	})
}

func (m *Machine) stopNotice() {
	if m.notice != nil {
		m.notice.Stop()
		m.notice = nil
	}
	m.noticeSeq++
	m.session.Notification = models.Notification{}
}

func (m *Machine) persist(ctx context.Context) {
	if err := m.store.Save(ctx, m.id, m.session.Step, m.session.Profile); err != nil {
		m.logger.Error("failed to persist wizard state", map[string]interface{}{"error": err})
	}
}
