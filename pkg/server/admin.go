package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lumenhq/sentinel/pkg/tokens"
)

// handleListTokens returns every issued token, newest first.
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	records, err := s.tokens.List(r.Context())
	if err != nil {
		s.logger.Error("list tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*tokens.Record{"tokens": records})
}

// handleCreateToken issues a token for an email address. The token
// value appears only in this response.
func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusUnprocessableEntity, "Missing email field")
		return
	}

	record, err := s.tokens.Issue(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		s.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.logger.Info("token issued",
		"email", record.Email,
		"token_id", record.ID,
		"admin", adminUser(r))
	writeJSON(w, http.StatusCreated, record)
}

// handleToggleToken flips a token between active and disabled.
// Route shape: POST /admin/tokens/{id}/toggle
func (s *Server) handleToggleToken(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid token id")
		return
	}

	record, err := s.tokens.Toggle(r.Context(), id)
	if err != nil {
		if errors.Is(err, tokens.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		s.logger.Error("toggle token", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.logger.Info("token toggled",
		"token_id", record.ID,
		"active", record.Active,
		"admin", adminUser(r))
	writeJSON(w, http.StatusOK, record)
}
