//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("SURVEYFORGE_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:8000"
}

func TestSurveyJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 10 * time.Second}
	base := baseURL()
	suffix := time.Now().UnixNano()
	alice := fmt.Sprintf("alice_%d", suffix)
	bob := fmt.Sprintf("bob_%d", suffix)

	doJSON(t, client, http.MethodPost, base+"/register", "", map[string]string{"username": alice, "password": "pw1"}, http.StatusOK, nil)
	doJSON(t, client, http.MethodPost, base+"/register", "", map[string]string{"username": alice, "password": "pw1"}, http.StatusBadRequest, nil)
	aliceToken := login(t, client, base, alice, "pw1")

	var created struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	doJSON(t, client, http.MethodPost, base+"/surveys", aliceToken, map[string]any{
		"title":       "Q1",
		"description": "integration",
		"questions": []map[string]any{
			{"text": "Like it?", "type": "yes/no", "options": []string{"yes", "no"}, "required": true},
		},
	}, http.StatusOK, &created)
	if created.ID == "" {
		t.Fatalf("expected survey id, got %+v", created)
	}

	doJSON(t, client, http.MethodPost, base+"/register", "", map[string]string{"username": bob, "password": "pw2"}, http.StatusOK, nil)
	bobToken := login(t, client, base, bob, "pw2")

	var others []struct {
		ID        string `json:"_id"`
		CreatedBy string `json:"createdBy"`
	}
	doJSON(t, client, http.MethodGet, base+"/all-surveys", bobToken, nil, http.StatusOK, &others)
	found := false
	for _, sv := range others {
		if sv.ID == created.ID && sv.CreatedBy == alice {
			found = true
		}
	}
	if !found {
		t.Fatalf("bob's /all-surveys did not include %s", created.ID)
	}

	doJSON(t, client, http.MethodPost, base+"/responses/"+created.ID, bobToken,
		map[string]any{"answers": map[string]any{"Like it?": "yes"}}, http.StatusOK, nil)
	doJSON(t, client, http.MethodGet, base+"/getresponses/"+created.ID, bobToken, nil, http.StatusForbidden, nil)

	var listed struct {
		Survey struct {
			ID string `json:"_id"`
		} `json:"survey"`
		Responses []struct {
			RespondedBy string         `json:"respondedBy"`
			Answers     map[string]any `json:"answers"`
		} `json:"responses"`
	}
	doJSON(t, client, http.MethodGet, base+"/getresponses/"+created.ID, aliceToken, nil, http.StatusOK, &listed)
	if listed.Survey.ID != created.ID || len(listed.Responses) != 1 || listed.Responses[0].RespondedBy != bob {
		t.Fatalf("unexpected responses payload: %+v", listed)
	}
	if listed.Responses[0].Answers["Like it?"] != "yes" {
		t.Fatalf("answers did not round-trip: %+v", listed.Responses[0].Answers)
	}

	doJSON(t, client, http.MethodDelete, base+"/surveys/"+created.ID, bobToken, nil, http.StatusForbidden, nil)
	doJSON(t, client, http.MethodDelete, base+"/surveys/"+created.ID, aliceToken, nil, http.StatusOK, nil)
	doJSON(t, client, http.MethodGet, base+"/survey/"+created.ID, aliceToken, nil, http.StatusNotFound, nil)
}

func login(t *testing.T, client *http.Client, base, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	resp, err := client.PostForm(base+"/login", form)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("login status %d body %s", resp.StatusCode, string(body))
	}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if out.AccessToken == "" || out.TokenType != "bearer" {
		t.Fatalf("unexpected login response: %+v", out)
	}
	return out.AccessToken
}

func doJSON(t *testing.T, client *http.Client, method, target, token string, body any, wantStatus int, out any) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, target, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http %s %s failed: %v", method, target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d (want %d) for %s %s: %s", resp.StatusCode, wantStatus, method, target, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", target, err)
		}
	}
}
