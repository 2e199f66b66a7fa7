package http

import (
	"encoding/json"
	"net/http"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
)

// SessionHandler exposes session creation and lookup over plain HTTP.
type SessionHandler struct {
	service *app.QuizService
}

func NewSessionHandler(service *app.QuizService) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	QuizID flexID `json:"quiz_id"`
}

type createSessionResponse struct {
	SessionCode string `json:"session_code"`
}

// Create handles POST /sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := h.service.CreateSession(r.Context(), string(req.QuizID), identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionCode: code})
}

// Get handles GET /sessions/{code}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Lookup(r.PathValue("code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		writeJSONError(w, http.StatusNotFound, errorMessage(err))
	case domain.KindForbidden:
		writeJSONError(w, http.StatusForbidden, "You do not have permission to create a session for this quiz.")
	case domain.KindInternal:
		writeJSONError(w, http.StatusInternalServerError, errorMessage(err))
	default:
		writeJSONError(w, http.StatusBadRequest, errorMessage(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
