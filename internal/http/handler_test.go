package httpapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/xcc-relay/internal/logger"
	"github.com/cesargomez89/xcc-relay/internal/push"
	"github.com/cesargomez89/xcc-relay/internal/store"
)

func setupTestServer(t *testing.T, secret string) (*httptest.Server, *store.DB, func()) {
	t.Helper()
	tmpFile := t.Name() + ".db"
	db, err := store.NewSQLiteDB(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	log := logger.Default()
	dispatcher := push.NewDispatcher(db, nil, log)
	h := NewHandler(db, dispatcher, secret, log)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	server := httptest.NewServer(r)

	cleanup := func() {
		server.Close()
		db.Close()
		os.Remove(tmpFile)
	}
	return server, db, cleanup
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	return resp, decodeBody(t, resp)
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return body
}

func TestWebhook_EndToEndLifecycle(t *testing.T) {
	server, _, cleanup := setupTestServer(t, "")
	defer cleanup()

	// Build starts
	resp, body := postJSON(t, server.URL+"/webhook", `{
		"metadata": {"attributes": {"eventType": "BUILD_STARTED"}},
		"ciBuildRun": {"id": "b1"},
		"app": {"id": "a1"}
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["state"] != "running" {
		t.Errorf("Expected state running, got %v", body["state"])
	}

	// Status shows one running build with a start time
	resp, body = getJSON(t, server.URL+"/status?appId=a1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["buildsRunning"] != true {
		t.Errorf("Expected buildsRunning true, got %v", body["buildsRunning"])
	}
	if body["runningCount"] != float64(1) {
		t.Errorf("Expected runningCount 1, got %v", body["runningCount"])
	}
	if body["singleBuildStartedAt"] == nil {
		t.Error("Expected singleBuildStartedAt for a single build")
	}

	// Build finishes
	resp, body = postJSON(t, server.URL+"/webhook", `{
		"metadata": {"attributes": {"eventType": "BUILD_COMPLETED"}},
		"ciBuildRun": {"id": "b1"},
		"app": {"id": "a1"}
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["state"] != "completed" {
		t.Errorf("Expected state completed, got %v", body["state"])
	}

	// Status is back to idle
	resp, body = getJSON(t, server.URL+"/status?appId=a1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["buildsRunning"] != false {
		t.Errorf("Expected buildsRunning false, got %v", body["buildsRunning"])
	}
	if body["runningCount"] != float64(0) {
		t.Errorf("Expected runningCount 0, got %v", body["runningCount"])
	}
	if body["singleBuildStartedAt"] != nil {
		t.Errorf("Expected null singleBuildStartedAt, got %v", body["singleBuildStartedAt"])
	}
}

func TestWebhook_IgnoredEvent(t *testing.T) {
	server, _, cleanup := setupTestServer(t, "")
	defer cleanup()

	resp, body := postJSON(t, server.URL+"/webhook", `{
		"metadata": {"attributes": {"eventType": "WORKFLOW_UPDATED"}},
		"ciBuildRun": {"id": "b1"},
		"app": {"id": "a1"}
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["ignored"] != true {
		t.Errorf("Expected ignored true, got %v", body["ignored"])
	}
}

func TestWebhook_BadRequests(t *testing.T) {
	server, _, cleanup := setupTestServer(t, "")
	defer cleanup()

	// Empty body
	resp, _ := postJSON(t, server.URL+"/webhook", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty body, got %d", resp.StatusCode)
	}

	// Malformed JSON
	resp, _ = postJSON(t, server.URL+"/webhook", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", resp.StatusCode)
	}

	// Missing required fields
	resp, _ = postJSON(t, server.URL+"/webhook", `{"metadata": {"attributes": {"eventType": "BUILD_STARTED"}}}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for missing fields, got %d", resp.StatusCode)
	}
}

func TestWebhook_SignatureEnforcement(t *testing.T) {
	secret := "shh"
	server, _, cleanup := setupTestServer(t, secret)
	defer cleanup()

	payload := `{"metadata": {"attributes": {"eventType": "BUILD_STARTED"}}, "ciBuildRun": {"id": "b1"}, "app": {"id": "a1"}}`

	// No signature header fails closed
	resp, err := http.Post(server.URL+"/webhook", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without signature, got %d", resp.StatusCode)
	}

	// Valid signature passes
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/webhook", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Apple-Signature", "hmacsha256="+hex.EncodeToString(mac.Sum(nil)))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with valid signature, got %d", resp.StatusCode)
	}

	// Tampered body fails
	req, _ = http.NewRequest(http.MethodPost, server.URL+"/webhook", strings.NewReader(payload+" "))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Apple-Signature", "hmacsha256="+hex.EncodeToString(mac.Sum(nil)))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for tampered body, got %d", resp.StatusCode)
	}
}

func TestRegisterDevice(t *testing.T) {
	server, db, cleanup := setupTestServer(t, "")
	defer cleanup()

	token := strings.Repeat("AB", 32) // uppercase normalizes to lowercase
	resp, body := postJSON(t, server.URL+"/register",
		`{"appId": "a1", "deviceToken": "`+token+`", "appBundleId": "com.example.app"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Errorf("Expected ok true, got %v", body["ok"])
	}

	subs, err := db.ListSubscriptionsForApp(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ListSubscriptionsForApp failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("Expected 1 subscription, got %d", len(subs))
	}
	if subs[0].DeviceToken != strings.ToLower(token) {
		t.Errorf("Expected lowercased token, got %s", subs[0].DeviceToken)
	}
}

func TestRegisterDevice_Validation(t *testing.T) {
	server, _, cleanup := setupTestServer(t, "")
	defer cleanup()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing app id", `{"deviceToken": "` + strings.Repeat("a", 64) + `", "appBundleId": "com.example.app"}`, http.StatusUnprocessableEntity},
		{"token too short", `{"appId": "a1", "deviceToken": "` + strings.Repeat("a", 63) + `", "appBundleId": "com.example.app"}`, http.StatusUnprocessableEntity},
		{"token not hex", `{"appId": "a1", "deviceToken": "` + strings.Repeat("g", 64) + `", "appBundleId": "com.example.app"}`, http.StatusUnprocessableEntity},
		{"token too long", `{"appId": "a1", "deviceToken": "` + strings.Repeat("a", 201) + `", "appBundleId": "com.example.app"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := postJSON(t, server.URL+"/register", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	server, _, cleanup := setupTestServer(t, "")
	defer cleanup()

	resp, body := getJSON(t, server.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Errorf("Expected ok true, got %v", body["ok"])
	}
}
