// Package api provides HTTP handlers for DeskPipe endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/BTreeMap/DeskPipe/internal/models"
	"github.com/BTreeMap/DeskPipe/internal/respond"
	"github.com/BTreeMap/DeskPipe/internal/session"
	"github.com/BTreeMap/DeskPipe/internal/solution"
	"github.com/BTreeMap/DeskPipe/internal/util"
)

// DefaultEscalationWaitMinutes is the wait estimate quoted in escalation
// responses.
const DefaultEscalationWaitMinutes = 15

type startSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

type messageRequest struct {
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`
}

type startSolutionRequest struct {
	UserID    string `json:"user_id,omitempty"`
	ArticleID string `json:"article_id"`
	Mode      string `json:"mode,omitempty"`
}

type startDiagnosticRequest struct {
	UserID    string                      `json:"user_id,omitempty"`
	Category  string                      `json:"category"`
	Questions []models.DiagnosticQuestion `json:"questions"`
}

type escalateRequest struct {
	UserID string `json:"user_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type searchRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
}

func (s *Server) startSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.startSessionHandler: processing request", "method", r.Method, "path", r.URL.Path)

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.startSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	if err := s.orchestrator.StartSession(req.SessionID, req.UserID); err != nil {
		if err == session.ErrDuplicateSession {
			slog.Warn("Server.startSessionHandler: duplicate session", "session_id", req.SessionID)
			writeJSONResponse(w, http.StatusConflict, models.Error("Session already active"))
			return
		}
		slog.Error("Server.startSessionHandler: failed to start session", "error", err, "session_id", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start session"))
		return
	}

	slog.Info("Server.startSessionHandler: session started", "session_id", req.SessionID, "user_id", req.UserID)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]string{"session_id": req.SessionID}))
}

func (s *Server) sessionSummaryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	slog.Debug("Server.sessionSummaryHandler invoked", "session_id", sessionID)

	summary, ok := s.orchestrator.Registry().Summary(sessionID)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(summary))
}

func (s *Server) sessionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	slog.Debug("Server.sessionHistoryHandler invoked", "session_id", sessionID)

	if _, ok := s.orchestrator.Registry().State(sessionID); !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}

	lastN := 0
	if raw := r.URL.Query().Get("last"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid last parameter"))
			return
		}
		lastN = n
	}

	turns := s.orchestrator.Registry().History(sessionID, lastN)
	writeJSONResponse(w, http.StatusOK, models.Success(turns))
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := r.PathValue("id")
	slog.Debug("Server.messageHandler invoked", "session_id", sessionID)

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Message == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Message must not be empty"))
		return
	}

	result := s.orchestrator.HandleUserInput(sessionID, req.UserID, req.Message)
	s.notifyIfEscalating(result)

	slog.Debug("Server.messageHandler succeeded", "session_id", sessionID, "kind", result.Kind)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) startSolutionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := r.PathValue("id")
	slog.Debug("Server.startSolutionHandler invoked", "session_id", sessionID)

	var req startSolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.startSolutionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Mode == "" {
		req.Mode = solution.ModeProgressive
	}

	article, err := s.content.Article(req.ArticleID)
	if err != nil {
		slog.Error("Server.startSolutionHandler: article lookup failed", "error", err, "article_id", req.ArticleID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load article"))
		return
	}
	if article == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Article not found"))
		return
	}

	result := s.orchestrator.StartSolution(sessionID, req.UserID, *article, req.Mode)
	s.notifyIfEscalating(result)

	slog.Info("Server.startSolutionHandler: solution started", "session_id", sessionID, "article_id", req.ArticleID, "mode", req.Mode)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) startDiagnosticHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := r.PathValue("id")
	slog.Debug("Server.startDiagnosticHandler invoked", "session_id", sessionID)

	var req startDiagnosticRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.startDiagnosticHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	for _, q := range req.Questions {
		if err := q.Validate(); err != nil {
			slog.Warn("Server.startDiagnosticHandler: invalid question", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
	}

	result := s.orchestrator.StartDiagnostic(sessionID, req.UserID, req.Questions, req.Category)
	s.notifyIfEscalating(result)

	slog.Info("Server.startDiagnosticHandler: diagnostic started", "session_id", sessionID, "category", req.Category)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) escalateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := r.PathValue("id")
	slog.Debug("Server.escalateHandler invoked", "session_id", sessionID)

	var req escalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.escalateHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Reason == "" {
		req.Reason = models.ReasonUserRequest
	}

	ticket := util.GenerateTicketID()
	result := s.orchestrator.Generate(sessionID, req.UserID, models.KindEscalation, respond.Payload{
		Reason:      req.Reason,
		Ticket:      ticket,
		WaitMinutes: DefaultEscalationWaitMinutes,
	})

	go s.notifyEscalation(result.SessionID, req.Reason, "ticket "+ticket)

	slog.Info("Server.escalateHandler: session escalated", "session_id", sessionID, "reason", req.Reason, "ticket", ticket)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) completeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := r.PathValue("id")
	slog.Debug("Server.completeHandler invoked", "session_id", sessionID)

	if _, ok := s.orchestrator.Registry().State(sessionID); !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}

	var req messageRequest
	// Body is optional for completion.
	_ = json.NewDecoder(r.Body).Decode(&req)

	result := s.orchestrator.Complete(sessionID, req.UserID)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.searchHandler: processing request", "method", r.Method, "path", r.URL.Path)

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.searchHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Query == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Query must not be empty"))
		return
	}

	results, err := s.content.Search(req.Query, req.Limit)
	if err != nil {
		slog.Error("Server.searchHandler: search failed", "error", err, "query", req.Query)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Search failed"))
		return
	}

	if len(results) == 0 && req.SessionID != "" {
		// Nothing matched; answer through the no-results response path, with
		// model-generated rephrasings when a suggester is configured.
		var suggestions []string
		if s.suggester != nil {
			suggested, err := s.suggester.SuggestQueries(r.Context(), req.Query)
			if err != nil {
				slog.Warn("Server.searchHandler: suggestions unavailable", "error", err)
			} else {
				suggestions = suggested
			}
		}
		result := s.orchestrator.Generate(req.SessionID, req.UserID, models.KindNoResults, respond.Payload{
			Query:       req.Query,
			Suggestions: suggestions,
		})
		writeJSONResponse(w, http.StatusOK, models.Success(result))
		return
	}

	slog.Debug("Server.searchHandler succeeded", "query", req.Query, "hits", len(results))
	writeJSONResponse(w, http.StatusOK, models.Success(results))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}

// notifyIfEscalating fires a best-effort escalation alert when a generated
// result crossed an escalation trigger.
func (s *Server) notifyIfEscalating(result respond.Result) {
	if !result.ShouldEscalate {
		return
	}
	go s.notifyEscalation(result.SessionID, result.EscalationReason, result.Text)
}

// notifyEscalation delivers one alert; failures are logged, never returned.
func (s *Server) notifyEscalation(sessionID, reason, summary string) {
	if err := s.notifier.NotifyEscalation(context.Background(), sessionID, reason, summary); err != nil {
		slog.Error("Server escalation alert failed", "error", err, "session_id", sessionID, "reason", reason)
	}
}
