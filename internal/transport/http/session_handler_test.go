package http

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestCreateSessionHTTP(t *testing.T) {
	env := newTestServer(t)

	resp := env.post(t, "", map[string]any{"quiz_id": "quiz-1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = env.post(t, "not-a-jwt", map[string]any{"quiz_id": "quiz-1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}

	resp = env.post(t, env.token(t, "u1", "Alice"), map[string]any{"quiz_id": "quiz-1"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	resp.Body.Close()
	if body["error"] != "You do not have permission to create a session for this quiz." {
		t.Fatalf("unexpected error body %v", body)
	}

	resp = env.post(t, env.token(t, "host", "Hana"), map[string]any{"quiz_id": "missing"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown quiz, got %d", resp.StatusCode)
	}

	resp = env.post(t, env.token(t, "host", "Hana"), map[string]any{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing quiz_id, got %d", resp.StatusCode)
	}

	code := env.createSession(t, "host", "quiz-1")
	if len(code) != 6 {
		t.Fatalf("expected 6 character code, got %q", code)
	}
}

func TestGetSessionHTTP(t *testing.T) {
	env := newTestServer(t)
	code := env.createSession(t, "host", "quiz-1")

	get := func(code string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, env.server.URL+"/sessions/"+code, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+env.token(t, "host", "Hana"))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		return resp
	}

	resp := get(code)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var snap struct {
		Code  string `json:"code"`
		State string `json:"state"`
		Total int    `json:"total_questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Code != code || snap.State != "lobby" || snap.Total != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	missing := get("ZZZZZZ")
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}
