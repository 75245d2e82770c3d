//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("ELLI_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

// TestStudyJourneyIntegration walks a participant through consent, a full
// chatbot interview, and a researcher export, against a running server.
func TestStudyJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 10 * time.Second}
	base := baseURL()

	var consent struct {
		Condition        string `json:"condition"`
		URL              string `json:"url"`
		ParticipantToken string `json:"participant_token"`
	}
	doPost(t, client, base+"/api/consent", "", map[string]string{}, &consent)
	if consent.Condition != "chatbot" && consent.Condition != "static" {
		t.Fatalf("unexpected condition %q", consent.Condition)
	}

	var again struct {
		Condition string `json:"condition"`
	}
	doPost(t, client, base+"/api/consent", "", map[string]string{
		"participant_token": consent.ParticipantToken,
	}, &again)
	if again.Condition != consent.Condition {
		t.Fatalf("assignment not sticky: %q then %q", consent.Condition, again.Condition)
	}

	var created struct {
		SessionID string `json:"session_id"`
		Messages  []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	doPost(t, client, base+"/api/sessions", "", map[string]string{}, &created)
	if created.SessionID == "" || len(created.Messages) == 0 {
		t.Fatalf("unexpected session response: %+v", created)
	}

	turnURL := base + "/api/sessions/" + created.SessionID + "/turns"
	turn := func(text string) (step string, done bool) {
		t.Helper()
		var resp struct {
			Step string `json:"step"`
			Done bool   `json:"done"`
		}
		doPost(t, client, turnURL, "", map[string]string{"text": text}, &resp)
		return resp.Step, resp.Done
	}

	turn("I'm Alex")
	turn("I've been a bit tired")
	turn("29")
	if step, _ := turn("female"); step != "phq" {
		t.Fatalf("expected questionnaire phase, got %q", step)
	}
	for i := 0; i < 9; i++ {
		turn("1")
	}
	for i := 0; i < 7; i++ {
		turn("0")
	}
	turn("4")
	turn("5")
	turn("4")
	if _, done := turn("It was fine"); !done {
		t.Fatal("interview did not finish")
	}

	email := fmt.Sprintf("integration_%d@example.com", time.Now().UnixNano())
	var auth struct {
		Token string `json:"token"`
	}
	doPost(t, client, base+"/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "Secret123!",
	}, &auth)
	if auth.Token == "" {
		t.Fatal("register did not return a token")
	}

	req, err := http.NewRequest(http.MethodGet, base+"/api/export", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "chatbot") {
		t.Fatal("export does not contain the interview row")
	}
}

func doPost(t *testing.T, client *http.Client, url, token string, body any, out any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http post %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response: %v", err)
		}
	}
}
