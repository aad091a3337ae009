// internal/wizard/recorder.go
package wizard

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	apperrors "lead-intake/internal/common/errors"
)

// Audio is a finished voice note.
type Audio struct {
	MIMEType string
	Data     []byte
	Duration time.Duration
}

type recording struct {
	mimeType string
	buf      bytes.Buffer
	started  time.Time
}

// Recorder buffers streamed audio chunks. Each session holds at most one
// active recording.
type Recorder struct {
	mu       sync.Mutex
	enabled  bool
	maxBytes int64
	active   map[string]*recording
	now      func() time.Time
}

func NewRecorder(enabled bool, maxBytes int64) *Recorder {
	return &Recorder{
		enabled:  enabled,
		maxBytes: maxBytes,
		active:   make(map[string]*recording),
		now:      time.Now,
	}
}

func (r *Recorder) Start(sessionID, mimeType string) error {
	if !r.enabled {
		return apperrors.ErrMicrophoneUnavailable
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[sessionID]; busy {
		return apperrors.ErrRecordingActive
	}
	r.active[sessionID] = &recording{mimeType: mimeType, started: r.now()}
	return nil
}

// Append adds a chunk. Exceeding the size limit drops the recording.
func (r *Recorder) Append(sessionID string, chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.active[sessionID]
	if !ok {
		return apperrors.ErrRecordingNotStarted
	}
	if r.maxBytes > 0 && int64(rec.buf.Len()+len(chunk)) > r.maxBytes {
		delete(r.active, sessionID)
		return fmt.Errorf("%w: limit is %d bytes", apperrors.ErrRecordingTooLarge, r.maxBytes)
	}
	rec.buf.Write(chunk)
	return nil
}

// Stop ends the recording and hands back its audio. The recording is
// released on every path, so a new Start is possible right after.
func (r *Recorder) Stop(sessionID string) (Audio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.active[sessionID]
	if !ok {
		return Audio{}, apperrors.ErrRecordingNotStarted
	}
	defer delete(r.active, sessionID)

	if rec.buf.Len() == 0 {
		return Audio{}, fmt.Errorf("%w: empty recording", apperrors.ErrTranscriptionFailed)
	}
	return Audio{
		MIMEType: rec.mimeType,
		Data:     bytes.Clone(rec.buf.Bytes()),
		Duration: r.now().Sub(rec.started),
	}, nil
}

// Discard drops any recording without returning it.
func (r *Recorder) Discard(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, sessionID)
}

func (r *Recorder) Active(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[sessionID]
	return ok
}
