// Command smoke drives a deployed instance end to end over HTTP: password
// login, review queue fetch and health probes. Intended for post-deploy
// verification, not CI.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	base := os.Getenv("SMOKE_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	email := os.Getenv("SMOKE_EMAIL")
	password := os.Getenv("SMOKE_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("SMOKE_EMAIL and SMOKE_PASSWORD must be set (a password account)")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	mustGet(client, base+"/healthz", http.StatusOK).Body.Close()
	mustGet(client, base+"/readyz", http.StatusOK).Body.Close()

	// anonymous requests bounce to /login
	resp := mustGet(client, base+"/", http.StatusFound)
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "/login" {
		log.Fatalf("expected anonymous redirect to /login, got %q", loc)
	}

	resp, err = client.PostForm(base+"/login-password", url.Values{
		"email":    {email},
		"password": {password},
	})
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		log.Fatalf("login: expected 302, got %d", resp.StatusCode)
	}

	resp = mustGet(client, base+"/", http.StatusOK)
	var home struct {
		AllCaughtUp bool `json:"allCaughtUp"`
		Transcript  struct {
			ID       string `json:"id"`
			AudioURL string `json:"audioUrl"`
		} `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&home); err != nil {
		log.Fatalf("decode home: %v", err)
	}
	resp.Body.Close()

	switch {
	case home.AllCaughtUp:
		fmt.Println("✅ smoke test passed: logged in, queue empty")
	case home.Transcript.ID != "" && strings.TrimSpace(home.Transcript.AudioURL) != "":
		fmt.Printf("✅ smoke test passed: next transcript %s\n", home.Transcript.ID)
	default:
		log.Fatalf("unexpected home payload: %+v", home)
	}
}

func mustGet(client *http.Client, url string, want int) *http.Response {
	resp, err := client.Get(url)
	if err != nil {
		log.Fatalf("GET %s: %v", url, err)
	}
	if resp.StatusCode != want {
		log.Fatalf("GET %s: expected %d, got %d", url, want, resp.StatusCode)
	}
	return resp
}
