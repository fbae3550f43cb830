// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the framing pipeline and the guided chat engine
// over a REST API, with an optional static frontend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/framingbot/internal/chat"
	"github.com/pdiddy/framingbot/internal/notion"
	"github.com/pdiddy/framingbot/internal/pipeline"
	"github.com/pdiddy/framingbot/pkg/types"
)

// SessionStore is the persistence surface the server needs beyond the chat
// engine's own store access.
type SessionStore interface {
	chat.SessionStore
	LoadObservations(ctx context.Context) ([]types.KeywordObservation, error)
}

// NotionClient is the Notion surface used by the sync and save endpoints.
type NotionClient interface {
	WriteFraming(ctx context.Context, f types.Framing) (notion.PageRef, error)
	ReadFraming(ctx context.Context, pageID string) (types.Framing, error)
}

// Server routes API requests to the pipeline runner and chat engine.
type Server struct {
	Pipeline  *pipeline.Runner
	Chat      *chat.Engine
	Store     SessionStore
	Notion    NotionClient
	StaticDir string
}

// Handler builds the HTTP route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("POST /notion-run", s.handleNotionRun)
	mux.HandleFunc("POST /chat/start", s.handleChatStart)
	mux.HandleFunc("POST /chat/message", s.handleChatMessage)
	mux.HandleFunc("POST /chat/logic-check", s.handleLogicCheck)
	mux.HandleFunc("POST /chat/generate-abstract", s.handleGenerateAbstract)
	mux.HandleFunc("POST /chat/update-profile", s.handleUpdateProfile)
	mux.HandleFunc("POST /chat/save-notion", s.handleSaveNotion)
	mux.HandleFunc("POST /notion-sync", s.handleNotionSync)
	mux.HandleFunc("GET /", s.handleIndex)

	return mux
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.Handler())
}

// --- responses ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

// writeServiceError maps chat engine errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, chat.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "%v", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "%v", err)
}

// requireNotion reports whether the Notion client is configured, writing a
// 503 when it is not.
func (s *Server) requireNotion(w http.ResponseWriter) bool {
	if s.Notion == nil {
		writeError(w, http.StatusServiceUnavailable, "Notion integration is not configured")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}

// --- frontend ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		if s.StaticDir != "" && strings.HasPrefix(r.URL.Path, "/static/") {
			http.StripPrefix("/static/", http.FileServer(http.Dir(s.StaticDir))).ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}

	if s.StaticDir != "" {
		index := filepath.Join(s.StaticDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			http.ServeFile(w, r, index)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "frontend not found; place index.html in the static directory",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- pipeline endpoints ---

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RawInput string `json:"raw_input"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RawInput) == "" {
		writeError(w, http.StatusBadRequest, "raw_input cannot be empty")
		return
	}

	observations, err := s.Store.LoadObservations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading keyword library: %v", err)
		return
	}

	state, err := s.Pipeline.Run(r.Context(), req.RawInput, observations, io.Discard)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleNotionRun(w http.ResponseWriter, r *http.Request) {
	req := struct {
		RawInput      string `json:"raw_input"`
		Owner         string `json:"owner"`
		WriteToNotion *bool  `json:"write_to_notion"`
	}{}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RawInput) == "" {
		writeError(w, http.StatusBadRequest, "raw_input cannot be empty")
		return
	}
	write := req.WriteToNotion == nil || *req.WriteToNotion

	framing, err := s.Pipeline.RunNotion(r.Context(), req.RawInput, req.Owner, io.Discard)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	resp := map[string]any{
		"framing_output": framing,
		"notion":         map[string]any{"written": false},
	}
	if write {
		if !s.requireNotion(w) {
			return
		}
		ref, err := s.Notion.WriteFraming(r.Context(), *framing)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "writing to Notion: %v", err)
			return
		}
		resp["notion"] = map[string]any{"written": true, "page_id": ref.ID, "url": ref.URL}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- chat endpoints ---

func (s *Server) handleChatStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.Chat.Start(r.Context(), req.Owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    session.ID,
		"phase":         session.Phase,
		"agent_message": session.Messages[0].Content,
	})
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	result, err := s.Chat.Message(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLogicCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	notes, err := s.Chat.LogicCheck(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleGenerateAbstract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	en, zh, err := s.Chat.Abstract(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"abstract_en": en, "abstract_zh": zh})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID        string                 `json:"session_id"`
		EpistemicProfile types.EpistemicProfile `json:"epistemic_profile"`
		KeywordMap       types.KeywordMap       `json:"keyword_map"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.Chat.ApplyProfile(r.Context(), req.SessionID, req.EpistemicProfile, req.KeywordMap)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"epistemic_profile": session.Profile,
		"keyword_map":       session.KeywordMap,
		"rule_output":       session.RuleOutput,
		"framing":           session.Framing,
	})
}

func (s *Server) handleSaveNotion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.requireNotion(w) {
		return
	}

	session, err := s.Store.LoadSession(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ref, err := s.Notion.WriteFraming(r.Context(), session.Framing)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "writing to Notion: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "saved",
		"page_id": ref.ID,
		"url":     ref.URL,
	})
}

func (s *Server) handleNotionSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID    string `json:"session_id"`
		NotionPageID string `json:"notion_page_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.requireNotion(w) {
		return
	}

	framing, err := s.Notion.ReadFraming(r.Context(), req.NotionPageID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading Notion page: %v", err)
		return
	}

	session, err := s.Chat.SyncFraming(r.Context(), req.SessionID, framing)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "synced",
		"framing": session.Framing,
	})
}
