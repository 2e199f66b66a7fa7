package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/auth"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/infra/memory"
)

const testSecret = "test-secret"

func TestWebSocketQuizFlow(t *testing.T) {
	env := newTestServer(t)
	code := env.createSession(t, "host", "quiz-1")

	hostConn := env.dial(t, "host", "Hana")
	send(t, hostConn, cmdJoinSession, map[string]any{"session_code": code})
	update := readUntil(t, hostConn, domain.EventSessionUpdate)
	if update["host"] != "Hana" {
		t.Fatalf("expected host name in roster, got %v", update)
	}

	alice := env.dial(t, "u1", "Alice")
	send(t, alice, cmdJoinSession, map[string]any{"session_code": code})
	readUntil(t, alice, domain.EventSessionUpdate)
	update = readUntil(t, hostConn, domain.EventSessionUpdate)
	if names, _ := update["participants"].([]any); len(names) != 1 || names[0] != "Alice" {
		t.Fatalf("expected Alice in roster, got %v", update["participants"])
	}

	send(t, hostConn, cmdStartQuiz, map[string]any{"session_code": code})
	question := readUntil(t, alice, domain.EventNextQuestion)
	if question["question_id"] != "101" || question["total"] != float64(2) {
		t.Fatalf("unexpected first question %v", question)
	}
	readUntil(t, hostConn, domain.EventNextQuestion)

	// Numeric identifiers are accepted alongside strings.
	send(t, alice, cmdSubmitAnswer, map[string]any{"session_code": code, "question_id": 101, "option_id": 2})
	question = readUntil(t, alice, domain.EventNextQuestion)
	if question["question_id"] != "102" {
		t.Fatalf("expected second question, got %v", question)
	}

	send(t, alice, cmdSubmitAnswer, map[string]any{"session_code": code, "question_id": "102", "option_id": "3"})
	end := readUntil(t, hostConn, domain.EventQuizEnd)
	board, _ := end["leaderboard"].([]any)
	if len(board) != 1 {
		t.Fatalf("expected one leaderboard row, got %v", end)
	}
	row := board[0].(map[string]any)
	if row["username"] != "Alice" || row["score"] != float64(1) {
		t.Fatalf("unexpected leaderboard row %v", row)
	}
	readUntil(t, alice, domain.EventQuizEnd)
}

func TestWebSocketErrorsGoToSenderOnly(t *testing.T) {
	env := newTestServer(t)
	code := env.createSession(t, "host", "quiz-1")

	hostConn := env.dial(t, "host", "Hana")
	send(t, hostConn, cmdJoinSession, map[string]any{"session_code": code})
	readUntil(t, hostConn, domain.EventSessionUpdate)

	alice := env.dial(t, "u1", "Alice")
	send(t, alice, cmdJoinSession, map[string]any{"session_code": code})
	readUntil(t, alice, domain.EventSessionUpdate)
	readUntil(t, hostConn, domain.EventSessionUpdate)

	send(t, alice, cmdStartQuiz, map[string]any{"session_code": code})
	if msg := readUntil(t, alice, domain.EventError); msg["message"] != "Only the host can start the session." {
		t.Fatalf("unexpected error %v", msg)
	}

	send(t, alice, "dance", nil)
	if msg := readUntil(t, alice, domain.EventError); msg["message"] != "unsupported message type" {
		t.Fatalf("unexpected error %v", msg)
	}

	send(t, alice, cmdJoinSession, map[string]any{"session_code": "ZZZZZZ"})
	if msg := readUntil(t, alice, domain.EventError); msg["message"] != "Session not found." {
		t.Fatalf("unexpected error %v", msg)
	}

	send(t, hostConn, cmdStartQuiz, map[string]any{"session_code": code})
	readUntil(t, alice, domain.EventNextQuestion)

	// The host only sees the question; none of Alice's errors were broadcast.
	if typ := nextType(t, hostConn); typ != domain.EventNextQuestion {
		t.Fatalf("expected next_question on host connection, got %s", typ)
	}

	send(t, alice, cmdSubmitAnswer, map[string]any{"session_code": code, "question_id": "102", "option_id": "3"})
	if msg := readUntil(t, alice, domain.EventError); msg["message"] != "Invalid question_id" {
		t.Fatalf("unexpected error %v", msg)
	}

	bob := env.dial(t, "u2", "Bob")
	send(t, bob, cmdJoinSession, map[string]any{"session_code": code})
	if msg := readUntil(t, bob, domain.EventError); msg["message"] != "Session has already started. You cannot join now." {
		t.Fatalf("unexpected error %v", msg)
	}
}

func TestWebSocketDisconnectDetachesUser(t *testing.T) {
	env := newTestServer(t)
	code := env.createSession(t, "host", "quiz-1")

	hostConn := env.dial(t, "host", "Hana")
	send(t, hostConn, cmdJoinSession, map[string]any{"session_code": code})
	readUntil(t, hostConn, domain.EventSessionUpdate)

	alice := env.dial(t, "u1", "Alice")
	send(t, alice, cmdJoinSession, map[string]any{"session_code": code})
	readUntil(t, alice, domain.EventSessionUpdate)
	if got := env.hub.Members(code); got != 2 {
		t.Fatalf("expected 2 room members, got %d", got)
	}

	alice.Close()
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Members(code) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected disconnect to detach Alice, members=%d", env.hub.Members(code))
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap, err := env.service.Lookup(code)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(snap.Participants) != 1 {
		t.Fatalf("disconnect must not remove the participant, got %v", snap.Participants)
	}
}

func TestWebSocketRejoinCatchesUp(t *testing.T) {
	env := newTestServer(t)
	code := env.createSession(t, "host", "quiz-1")

	hostConn := env.dial(t, "host", "Hana")
	send(t, hostConn, cmdJoinSession, map[string]any{"session_code": code})
	readUntil(t, hostConn, domain.EventSessionUpdate)

	alice := env.dial(t, "u1", "Alice")
	send(t, alice, cmdJoinSession, map[string]any{"session_code": code})
	readUntil(t, alice, domain.EventSessionUpdate)
	readUntil(t, hostConn, domain.EventSessionUpdate)

	send(t, hostConn, cmdStartQuiz, map[string]any{"session_code": code})
	readUntil(t, alice, domain.EventNextQuestion)

	send(t, alice, cmdQuitSession, map[string]any{"session_code": code})
	send(t, alice, cmdRejoinSession, map[string]any{"session_code": code})
	readUntil(t, alice, domain.EventSessionUpdate)
	question := readUntil(t, alice, domain.EventNextQuestion)
	if question["question_id"] != "101" {
		t.Fatalf("expected the current question on rejoin, got %v", question)
	}

	send(t, alice, cmdSubmitAnswer, map[string]any{"session_code": code, "question_id": "101", "option_id": "2"})
	if question := readUntil(t, alice, domain.EventNextQuestion); question["question_id"] != "102" {
		t.Fatalf("expected rejoined participant to receive the next question, got %v", question)
	}
}

func TestWebSocketOldConnectionCloseKeepsNewOne(t *testing.T) {
	env := newTestServer(t)
	code := env.createSession(t, "host", "quiz-1")

	hostConn := env.dial(t, "host", "Hana")
	send(t, hostConn, cmdJoinSession, map[string]any{"session_code": code})
	readUntil(t, hostConn, domain.EventSessionUpdate)

	oldConn := env.dial(t, "u1", "Alice")
	send(t, oldConn, cmdJoinSession, map[string]any{"session_code": code})
	readUntil(t, oldConn, domain.EventSessionUpdate)

	newConn := env.dial(t, "u1", "Alice")
	send(t, newConn, cmdRejoinSession, map[string]any{"session_code": code})
	readUntil(t, newConn, domain.EventSessionUpdate)

	oldConn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for env.connections("u1") != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("old connection was not unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := env.hub.Members(code); got != 2 {
		t.Fatalf("expected Alice to stay attached through her new connection, members=%d", got)
	}

	send(t, hostConn, cmdStartQuiz, map[string]any{"session_code": code})
	readUntil(t, newConn, domain.EventNextQuestion)
}

func TestWebSocketRequiresToken(t *testing.T) {
	env := newTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(""), nil)
	if err == nil {
		t.Fatalf("expected dial without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

// --- helpers ---

type testServer struct {
	server   *httptest.Server
	service  *app.QuizService
	hub      *Hub
	verifier *auth.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	hub := NewHub()
	service := app.NewQuizService(memory.NewSessionStore(), quizzes, memory.NewLedger(), hub, app.Options{})
	verifier := auth.NewVerifier(testSecret)
	server := httptest.NewServer(NewRouter(service, hub, verifier))
	t.Cleanup(server.Close)
	return &testServer{server: server, service: service, hub: hub, verifier: verifier}
}

func (e *testServer) connections(userID string) int {
	e.hub.mu.RLock()
	defer e.hub.mu.RUnlock()
	return len(e.hub.conns[userID])
}

func (e *testServer) token(t *testing.T, userID, username string) string {
	t.Helper()
	token, err := e.verifier.Issue(userID, username, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testServer) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (e *testServer) dial(t *testing.T, userID, username string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL(e.token(t, userID, username)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (e *testServer) createSession(t *testing.T, userID, quizID string) string {
	t.Helper()
	resp := e.post(t, e.token(t, userID, ""), map[string]any{"quiz_id": quizID})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d", resp.StatusCode)
	}
	var body struct {
		SessionCode string `json:"session_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return body.SessionCode
}

func (e *testServer) post(t *testing.T, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/sessions", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post /sessions: %v", err)
	}
	return resp
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

type wireMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func read(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	var msg wireMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

func nextType(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	return read(t, conn).Type
}

// readUntil skips events until one of the given type arrives and returns its payload.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := read(t, conn)
		if msg.Type == typ {
			return msg.Payload
		}
	}
	t.Fatalf("no %s event received", typ)
	return nil
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:      "quiz-1",
			OwnerID: "host",
			Questions: []domain.Question{
				{
					ID:   "101",
					Text: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "1", Text: "3"},
						{ID: "2", Text: "4", IsCorrect: true},
					},
				},
				{
					ID:   "102",
					Text: "Capital of France?",
					Options: []domain.Option{
						{ID: "3", Text: "Lyon"},
						{ID: "4", Text: "Paris", IsCorrect: true},
					},
				},
			},
		},
	}
}
