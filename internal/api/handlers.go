// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/models"
	"lead-intake/internal/wizard"

	"github.com/go-chi/chi/v5"
)

type documentView struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// sessionView is the session as the client sees it, plus the derived
// navigation state the client needs to enable its buttons.
type sessionView struct {
	ID string `json:"id"`
	models.WizardSession
	CanAdvance bool          `json:"canAdvance"`
	Issues     []string      `json:"issues"`
	Document   *documentView `json:"document,omitempty"`
	Merged     []string      `json:"merged,omitempty"`
}

func newSessionView(id string, s models.WizardSession) sessionView {
	v := sessionView{
		ID:            id,
		WizardSession: s,
		CanAdvance:    wizard.CanAdvance(s),
		Issues:        wizard.FieldIssues(s),
	}
	if v.Issues == nil {
		v.Issues = []string{}
	}
	if s.HasDocument() {
		v.Document = &documentView{
			FileName:    s.Document.FileName,
			ContentType: s.Document.ContentType,
			Size:        s.Document.Size(),
		}
	}
	return v
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.Normalize(err)
	fields := map[string]interface{}{
		"code":   stdErr.Code,
		"path":   r.URL.Path,
		"detail": stdErr.Details,
	}
	if statusFor(stdErr.Code) >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields)
	} else {
		s.logger.Debug("request rejected", fields)
	}
	writeError(w, stdErr)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	session, id, err := s.sessions.Create(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(id, session))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withMachine(w, r, func(ctx context.Context, m *wizard.Machine) (models.WizardSession, error) {
		return m.Snapshot(ctx)
	})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		s.fail(w, r, apperrors.NewInvalidRequestError("cannot read body"))
		return
	}
	s.withMachine(w, r, func(ctx context.Context, m *wizard.Machine) (models.WizardSession, error) {
		return m.UpdateProfile(ctx, body)
	})
}

func (s *Server) attachDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.fail(w, r, apperrors.NewInvalidRequestError(fmt.Sprintf("multipart form: %v", err)))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, apperrors.NewInvalidRequestError("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.config.MaxUploadBytes+1))
	if err != nil {
		s.fail(w, r, apperrors.NewInvalidRequestError("cannot read file"))
		return
	}
	if int64(len(data)) > s.config.MaxUploadBytes {
		s.fail(w, r, apperrors.NewInvalidRequestError("file is too large"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	doc := models.Document{FileName: header.Filename, ContentType: contentType, Data: data}
	s.withMachine(w, r, func(ctx context.Context, m *wizard.Machine) (models.WizardSession, error) {
		return m.AttachDocument(ctx, doc)
	})
}

func (s *Server) removeDocument(w http.ResponseWriter, r *http.Request) {
	s.withMachine(w, r, func(ctx context.Context, m *wizard.Machine) (models.WizardSession, error) {
		return m.RemoveDocument(ctx)
	})
}

func (s *Server) transition(fn func(context.Context, *wizard.Machine) (models.WizardSession, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.withMachine(w, r, fn)
	}
}

// withMachine runs fn on the session named in the URL and renders the result.
func (s *Server) withMachine(w http.ResponseWriter, r *http.Request, fn func(context.Context, *wizard.Machine) (models.WizardSession, error)) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	session, err := s.sessions.With(ctx, id, func(m *wizard.Machine) (models.WizardSession, error) {
		return fn(ctx, m)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(id, session))
}

type startVoiceRequest struct {
	MIMEType string `json:"mimeType"`
}

func (s *Server) startVoice(w http.ResponseWriter, r *http.Request) {
	var req startVoiceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.fail(w, r, apperrors.NewInvalidRequestError("body must be a JSON object"))
			return
		}
	}
	if err := s.sessions.StartVoice(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.MIMEType)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recording"})
}

func (s *Server) appendVoice(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxChunkBytes+1))
	if err != nil {
		s.fail(w, r, apperrors.NewInvalidRequestError("cannot read chunk"))
		return
	}
	if int64(len(chunk)) > s.config.MaxChunkBytes {
		s.fail(w, r, apperrors.NewInvalidRequestError("chunk is too large"))
		return
	}
	if err := s.sessions.AppendVoice(chi.URLParam(r, "id"), chunk); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stopVoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, merged, err := s.sessions.StopVoice(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view := newSessionView(id, session)
	view.Merged = merged
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) lookupLocation(w http.ResponseWriter, r *http.Request) {
	if s.location == nil {
		s.fail(w, r, apperrors.NewInvalidRequestError("location lookup is disabled"))
		return
	}
	info, err := s.location.Lookup(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
