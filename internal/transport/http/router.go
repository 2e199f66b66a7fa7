package http

import (
	"net/http"

	"quiz-session-engine/internal/app"
)

// NewRouter wires the HTTP and websocket endpoints.
func NewRouter(service *app.QuizService, hub *Hub, auth Authenticator) http.Handler {
	ws := NewWSHandler(service, hub)
	sessions := NewSessionHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /ws", RequireIdentity(auth, http.HandlerFunc(ws.ServeWS)))
	mux.Handle("POST /sessions", RequireIdentity(auth, http.HandlerFunc(sessions.Create)))
	mux.Handle("GET /sessions/{code}", RequireIdentity(auth, http.HandlerFunc(sessions.Get)))
	return mux
}
