package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"gemchat/internal/chat"
	"gemchat/internal/transcript"
	"gemchat/internal/version"
	"gemchat/pkg/chattypes"

	"github.com/go-chi/chi/v5"
)

// maxImportBytes bounds uploaded collections.
const maxImportBytes = 32 << 20

type stateResponse struct {
	Session  string              `json:"session"`
	State    string              `json:"state"`
	Settings settingsResponse    `json:"settings"`
	History  []chattypes.Message `json:"history"`
}

type settingsResponse struct {
	CurrentSession string `json:"current_session"`
	ContextLength  int    `json:"context_length"`
	Model          string `json:"model"`
	HasAPIKey      bool   `json:"has_api_key"`
}

func (s *Server) settings() settingsResponse {
	settings := s.store.Settings()
	return settingsResponse{
		CurrentSession: settings.CurrentSession,
		ContextLength:  settings.ContextLength,
		Model:          settings.Model,
		HasAPIKey:      settings.HasAPIKey(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	info, err := version.GetInfo()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, chattypes.ModelCatalog)
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.ctrl.History())
}

type contentRequest struct {
	Content string `json:"content"`
}

type replyResponse struct {
	Reply   chattypes.Message   `json:"reply"`
	History []chattypes.Message `json:"history"`
}

func (s *Server) completionContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(r.Context(), s.timeout)
	}
	return context.WithCancel(r.Context())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload contentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := s.completionContext(r)
	defer cancel()

	reply, err := s.ctrl.Submit(ctx, payload.Content)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, replyResponse{Reply: reply, History: s.ctrl.History()})
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	index, ok := messageIndex(w, r)
	if !ok {
		return
	}
	history := s.ctrl.History()
	if index >= len(history) {
		s.respondErr(w, fmt.Errorf("%w: %d", chat.ErrIndexOutOfRange, index))
		return
	}

	ctx, cancel := s.completionContext(r)
	defer cancel()

	reply, err := s.ctrl.Resend(ctx, history[index].Content)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, replyResponse{Reply: reply, History: s.ctrl.History()})
}

func messageIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	index, ok := messageIndex(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.Apply(chat.DecideDeleteMessage(true, index)); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.Apply(chat.DecideClear(true)); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	infos, err := s.store.List()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, infos)
}

type nameRequest struct {
	Name string `json:"name"`
}

func decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload nameRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if payload.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return "", false
	}
	return payload.Name, true
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	name, ok := decodeName(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.NewSession(name); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondState(w, http.StatusCreated)
}

func (s *Server) handleSwitchSession(w http.ResponseWriter, r *http.Request) {
	name, ok := decodeName(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.SwitchSession(name); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	name, ok := decodeName(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.Rename(name); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.Apply(chat.DecideReset(true)); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Apply(chat.DecideDeleteSession(true, chi.URLParam(r, "name"))); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) respondState(w http.ResponseWriter, status int) {
	respondJSON(w, status, stateResponse{
		Session:  s.ctrl.SessionName(),
		State:    s.ctrl.State().String(),
		Settings: s.settings(),
		History:  s.ctrl.History(),
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "md"
	}
	exporter, err := transcript.NewExporter(format)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.store.Load(chi.URLParam(r, "name"))
	if err != nil {
		s.respondErr(w, err)
		return
	}

	s.writeTranscript(w, sess, exporter)
}

// writeTranscript renders into a buffer first so a failed export still gets a clean error response.
func (s *Server) writeTranscript(w http.ResponseWriter, sess chattypes.Session, exporter transcript.Exporter) {
	var buf bytes.Buffer
	if err := exporter.Export(sess, &buf); err != nil {
		s.respondErr(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transcript.FileName(sess, exporter)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.settings())
}

type settingsUpdate struct {
	Model         *string `json:"model"`
	ContextLength *int    `json:"context_length"`
	APIKey        *string `json:"api_key"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.ContextLength != nil {
		if err := s.store.SetContextLength(*payload.ContextLength); err != nil {
			s.respondErr(w, err)
			return
		}
	}
	if payload.Model != nil {
		if err := s.store.SetModel(*payload.Model); err != nil {
			s.respondErr(w, err)
			return
		}
	}
	if payload.APIKey != nil {
		if err := s.store.SetAPIKey(*payload.APIKey); err != nil {
			s.respondErr(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, s.settings())
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	blob, err := s.store.Export()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.store.ExportFileName()))
	_, _ = w.Write(blob)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(blob) == 0 {
		respondError(w, http.StatusBadRequest, "request body is empty")
		return
	}
	if err := s.ctrl.Apply(chat.DecideImport(true, blob)); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondState(w, http.StatusOK)
}
