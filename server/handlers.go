package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/chat"
	"github.com/hupe1980/webdevchat/core"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	// Persona targets a specific persona instead of the entry persona.
	Persona string `json:"persona,omitempty"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Persona   string `json:"persona"`
}

type personasResponse struct {
	Entry    string             `json:"entry"`
	Personas []chat.PersonaInfo `json:"personas"`
}

type eventView struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	ErrorCode string    `json:"error_code,omitempty"`
}

type historyResponse struct {
	SessionID string      `json:"session_id"`
	Events    []eventView `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := s.ask(r, req)
	if err != nil {
		s.writeAskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(reply))
}

func (s *Server) ask(r *http.Request, req chatRequest) (chat.Reply, error) {
	if req.Persona != "" {
		return s.chat.AskPersona(r.Context(), req.SessionID, req.Persona, req.Message)
	}
	return s.chat.Ask(r.Context(), req.SessionID, req.Message)
}

func (s *Server) writeAskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, agent.ErrUnknownPersona):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("server.chat.failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func toChatResponse(reply chat.Reply) chatResponse {
	return chatResponse{SessionID: reply.SessionID, Response: reply.Text, Persona: reply.Persona}
}

func (s *Server) handlePersonas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, personasResponse{Entry: s.chat.Entry(), Personas: s.chat.Personas()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, err := s.chat.History(id)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toEventView(ev))
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: id, Events: views})
}

func toEventView(ev core.Event) eventView {
	v := eventView{ID: ev.ID, Author: ev.Author, Text: ev.Text(), Timestamp: ev.Timestamp}
	if ev.Content != nil {
		v.Role = ev.Content.Role
	}
	if ev.ErrorCode != nil {
		v.ErrorCode = *ev.ErrorCode
	}
	return v
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Reset(r.PathValue("id")); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
