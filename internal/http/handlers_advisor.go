package http

import (
	"log/slog"
	"net/http"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleAdvisorChat(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		writeError(w, http.StatusServiceUnavailable, "advisor not configured")
		return
	}

	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "empty message")
		return
	}

	result, err := s.bridge.Chat(r.Context(), userID(r), req.Message)
	if err != nil {
		slog.ErrorContext(r.Context(), "Advisor exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "advisor unavailable")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
