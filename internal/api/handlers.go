package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/parley/pkg/domain"
)

// ChatRequest is one inbound message.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse carries the reply. Silent is true when the engine chose
// not to answer; Reply is empty in that case.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply,omitempty"`
	Silent    bool   `json:"silent"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	reply, ok, err := s.bot.Converse(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("chat turn failed", "session", req.SessionID, "err", err)
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: req.SessionID,
		Reply:     reply,
		Silent:    !ok,
	})
}

// ExchangeRequest is an exchange row plus its keyword table.
type ExchangeRequest struct {
	Prompt   string            `json:"prompt"`
	Default  string            `json:"default,omitempty"`
	Rank     int               `json:"rank,omitempty"`
	Type     string            `json:"type,omitempty"`
	Keywords map[string]string `json:"keywords,omitempty"`
}

// ExchangeResponse is the admin view of one exchange.
type ExchangeResponse struct {
	domain.Exchange
	Keywords map[string]string `json:"keywords"`
}

func (s *Server) listExchanges(w http.ResponseWriter, r *http.Request) {
	exchanges, err := s.bot.Stores().Prompts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, exchanges)
}

func (s *Server) getExchange(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ex, err := s.bot.Stores().Prompts.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrExchangeNotFound) {
			writeError(w, http.StatusNotFound, "exchange not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	kw, err := s.bot.Stores().Keywords.Mapping(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ExchangeResponse{Exchange: ex, Keywords: kw})
}

func (s *Server) putExchange(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ex := domain.Exchange{
		Name:    name,
		Prompt:  req.Prompt,
		Default: req.Default,
		Rank:    req.Rank,
		Type:    domain.ExchangeType(req.Type).Normalize(),
	}
	if err := s.bot.Stores().Prompts.Set(r.Context(), ex); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(req.Keywords) > 0 {
		if err := s.bot.Stores().Keywords.SetMany(r.Context(), name, req.Keywords); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, ExchangeResponse{Exchange: ex, Keywords: req.Keywords})
}

func (s *Server) deleteExchange(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.bot.Stores().Prompts.Delete(r.Context(), name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.bot.Stores().Keywords.Delete(r.Context(), name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTangents(w http.ResponseWriter, r *http.Request) {
	tangents, err := s.bot.Stores().Tangents.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tangents)
}

func (s *Server) postTangent(w http.ResponseWriter, r *http.Request) {
	var t domain.Tangent
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if t.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	id, err := s.bot.Stores().Tangents.Set(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	t.ID = id
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) deleteTangent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tangent id")
		return
	}
	if err := s.bot.Stores().Tangents.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.bot.Stores().Sessions.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// SessionResponse is the admin view of one live session.
type SessionResponse struct {
	SessionID string            `json:"session_id"`
	Exchange  string            `json:"exchange"`
	Data      map[string]string `json:"data"`
	Queued    bool              `json:"queued"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.bot.Stores().Sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID: id,
		Exchange:  state.Exchange,
		Data:      state.Data,
		Queued:    state.Queued(),
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.bot.ClearSession(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JumpRequest names the exchange an operator moves a session to.
type JumpRequest struct {
	Exchange string `json:"exchange"`
}

func (s *Server) jumpSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req JumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Exchange == "" {
		writeError(w, http.StatusBadRequest, "exchange is required")
		return
	}

	reply, ok, err := s.bot.Jump(r.Context(), id, req.Exchange)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: id,
		Reply:     reply,
		Silent:    !ok,
	})
}

// TranscriptEntry is one transcript line in API form.
type TranscriptEntry struct {
	Message  string    `json:"message"`
	FromUser bool      `json:"from_user"`
	At       time.Time `json:"at"`
}

func (s *Server) transcript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history, err := s.bot.Stores().Log.History(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]TranscriptEntry, 0, len(history))
	for _, entry := range history {
		out = append(out, TranscriptEntry{
			Message:  entry.Message,
			FromUser: entry.FromUser,
			At:       entry.At,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
