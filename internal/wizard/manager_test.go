package wizard

import (
	"context"
	"errors"
	"testing"

	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	fields []byte
	err    error
	got    Audio
}

func (f *fakeExtractor) Extract(_ context.Context, audio Audio) ([]byte, error) {
	f.got = audio
	return f.fields, f.err
}

func newTestManager(t *testing.T, maxLive int, ext Extractor) (*Manager, *Store) {
	t.Helper()
	store, _ := newTestStore(t)
	mg, err := NewManager(ManagerConfig{MaxLiveSessions: maxLive}, store, instantSubmitter{}, NewRecorder(true, 1<<20), ext, &testLogger{t: t})
	require.NoError(t, err)
	t.Cleanup(mg.Shutdown)
	return mg, store
}

func TestManager_CreateAndLookup(t *testing.T) {
	mg, _ := newTestManager(t, 8, &fakeExtractor{})
	ctx := context.Background()

	s, id, err := mg.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, models.StepIdentity, s.Step)

	m, err := mg.Machine(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, m.ID())

	_, err = mg.Machine(ctx, "does-not-exist")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestManager_EvictedSessionIsRestoredFromStore(t *testing.T) {
	mg, _ := newTestManager(t, 1, &fakeExtractor{})
	ctx := context.Background()

	_, first, err := mg.Create(ctx)
	require.NoError(t, err)
	_, err = mg.With(ctx, first, func(m *Machine) (models.WizardSession, error) {
		return m.UpdateProfile(ctx, []byte(`{"fullName":"Ana"}`))
	})
	require.NoError(t, err)
	firstMachine, _ := mg.Machine(ctx, first)

	_, _, err = mg.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, mg.Len())

	_, err = firstMachine.Snapshot(ctx)
	assert.ErrorIs(t, err, apperrors.ErrSessionClosed)

	s, err := mg.With(ctx, first, func(m *Machine) (models.WizardSession, error) {
		return m.Snapshot(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", s.Profile.FullName)
}

func TestManager_VoiceFlowMergesExtractedFields(t *testing.T) {
	ext := &fakeExtractor{fields: []byte(`{"fullName":"Ana Silva","email":"ana@x.com"}`)}
	mg, _ := newTestManager(t, 8, ext)
	ctx := context.Background()
	_, id, err := mg.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, mg.StartVoice(ctx, id, "audio/webm"))
	assert.ErrorIs(t, mg.StartVoice(ctx, id, "audio/webm"), apperrors.ErrRecordingActive)
	require.NoError(t, mg.AppendVoice(id, []byte("voice-bytes")))

	s, keys, err := mg.StopVoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "fullName"}, keys)
	assert.Equal(t, "Ana Silva", s.Profile.FullName)
	assert.Equal(t, "AI filled 2 field(s).", s.Notification.Message)
	assert.Equal(t, []byte("voice-bytes"), ext.got.Data)
}

func TestManager_VoiceExtractionFailureLeavesProfile(t *testing.T) {
	ext := &fakeExtractor{err: errors.New("model unavailable")}
	mg, _ := newTestManager(t, 8, ext)
	ctx := context.Background()
	_, id, err := mg.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, mg.StartVoice(ctx, id, ""))
	require.NoError(t, mg.AppendVoice(id, []byte("x")))

	_, _, err = mg.StopVoice(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrTranscriptionFailed)

	// recorder released despite the failure
	require.NoError(t, mg.StartVoice(ctx, id, ""))

	s, err := mg.With(ctx, id, func(m *Machine) (models.WizardSession, error) { return m.Snapshot(ctx) })
	require.NoError(t, err)
	assert.Equal(t, models.DefaultProfile(), s.Profile)
}

func TestManager_StartVoiceUnknownSession(t *testing.T) {
	mg, _ := newTestManager(t, 8, &fakeExtractor{})
	assert.ErrorIs(t, mg.StartVoice(context.Background(), "ghost", ""), apperrors.ErrSessionNotFound)
}
