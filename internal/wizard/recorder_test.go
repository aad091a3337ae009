package wizard

import (
	"testing"

	apperrors "lead-intake/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_SingleActiveRecording(t *testing.T) {
	r := NewRecorder(true, 1024)

	require.NoError(t, r.Start("s1", ""))
	assert.ErrorIs(t, r.Start("s1", ""), apperrors.ErrRecordingActive)
	require.NoError(t, r.Start("s2", "audio/ogg"))

	require.NoError(t, r.Append("s1", []byte("abc")))
	require.NoError(t, r.Append("s1", []byte("def")))

	audio, err := r.Stop("s1")
	require.NoError(t, err)
	assert.Equal(t, "audio/webm", audio.MIMEType)
	assert.Equal(t, []byte("abcdef"), audio.Data)
	assert.False(t, r.Active("s1"))
	assert.True(t, r.Active("s2"))

	require.NoError(t, r.Start("s1", ""))
}

func TestRecorder_Disabled(t *testing.T) {
	r := NewRecorder(false, 1024)
	assert.ErrorIs(t, r.Start("s1", ""), apperrors.ErrMicrophoneUnavailable)
}

func TestRecorder_ReleasedOnEveryStop(t *testing.T) {
	r := NewRecorder(true, 1024)

	require.NoError(t, r.Start("s1", ""))
	_, err := r.Stop("s1")
	assert.ErrorIs(t, err, apperrors.ErrTranscriptionFailed)
	assert.False(t, r.Active("s1"))

	_, err = r.Stop("s1")
	assert.ErrorIs(t, err, apperrors.ErrRecordingNotStarted)
	assert.ErrorIs(t, r.Append("s1", []byte("x")), apperrors.ErrRecordingNotStarted)
}

func TestRecorder_TooLarge(t *testing.T) {
	r := NewRecorder(true, 4)

	require.NoError(t, r.Start("s1", ""))
	require.NoError(t, r.Append("s1", []byte("abcd")))
	assert.ErrorIs(t, r.Append("s1", []byte("e")), apperrors.ErrRecordingTooLarge)
	assert.False(t, r.Active("s1"))
}
