package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"modelchat/internal/config"
	"modelchat/internal/domain"
	"modelchat/internal/usecase/chat"
)

type submitRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type modelsResponse struct {
	Default string         `json:"default"`
	Models  []config.Model `json:"models"`
}

type messagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modelsResponse{
		Default: s.chat.DefaultModel(),
		Models:  s.chat.Models(),
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.Status())
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be a non-negative integer", r))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: s.chat.Recent(limit)})
}

const maxSubmitBytes = 64 << 10

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	// The reply belongs to the shared conversation, so it is kept even if this client goes away.
	res, err := s.chat.Submit(context.WithoutCancel(r.Context()), req.Prompt, req.Model)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, chat.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
	case errors.Is(err, chat.ErrUnknownModel):
		writeJSON(w, http.StatusBadRequest, errorResp("UNKNOWN_MODEL", err.Error(), r))
	case errors.Is(err, chat.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResp("BUSY", "Still answering the previous message", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to handle message", r))
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) errorResponse {
	return errorResponse{
		Error: apiError{
			Code:      code,
			Message:   message,
			RequestID: chimiddleware.GetReqID(r.Context()),
		},
	}
}
