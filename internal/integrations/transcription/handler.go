// internal/integrations/transcription/handler.go
package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lead-intake/internal/common/llm"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/wizard"
)

const Component = "voice-extraction"

var (
	ErrEmptyAudio        = errors.New("EMPTY_AUDIO")
	ErrMalformedResponse = errors.New("EXTRACTION_MALFORMED_RESPONSE")
)

// Handler turns a voice note into profile fields. It satisfies wizard.Extractor.
type Handler struct {
	config    *Config
	generator llm.Generator
	logger    logger.Logger
}

func NewHandler(config *Config, generator llm.Generator, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config:    config,
		generator: generator,
		logger:    log.WithFields(map[string]interface{}{"component": Component}),
	}
}

func (h *Handler) Extract(ctx context.Context, audio wizard.Audio) ([]byte, error) {
	if len(audio.Data) == 0 {
		return nil, ErrEmptyAudio
	}
	mime := audio.MIMEType
	if mime == "" {
		mime = h.config.DefaultMIMEType
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	raw, err := h.generator.Generate(ctx, llm.Request{
		Prompt: extractPrompt,
		Audio:  &llm.Blob{MIMEType: mime, Data: audio.Data},
		JSON:   true,
		Schema: fieldSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("extract fields: %w", err)
	}

	fields, err := cleanFields(raw)
	if err != nil {
		return nil, err
	}

	h.logger.Info("voice note processed", map[string]interface{}{
		"bytes":    len(audio.Data),
		"duration": audio.Duration.String(),
		"fields":   len(fields),
	})
	return json.Marshal(fields)
}

// cleanFields keeps the non-blank values of a JSON object reply. Blank
// strings mean the speaker never mentioned the field.
func cleanFields(raw string) (map[string]interface{}, error) {
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make(map[string]interface{}, len(decoded))
	for k, v := range decoded {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(val) == "" {
				continue
			}
		}
		out[k] = v
	}
	return out, nil
}
