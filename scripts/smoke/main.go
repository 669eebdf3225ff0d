// Command smoke probes a running API instance and reports per-endpoint
// status and latency. Intended for post-deploy checks:
//
//	go run ./scripts/smoke -base http://localhost:8080 -email admin@example.com -password secret
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type probe struct {
	Method   string
	Path     string
	Auth     bool
	Critical bool
}

var probes = []probe{
	{Method: http.MethodGet, Path: "/health", Critical: true},
	{Method: http.MethodGet, Path: "/ready", Critical: true},
	{Method: http.MethodGet, Path: "/metrics"},
	{Method: http.MethodGet, Path: "/api/v1/auth/me", Auth: true, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/skills", Auth: true},
	{Method: http.MethodGet, Path: "/api/v1/children", Auth: true},
	{Method: http.MethodGet, Path: "/api/v1/announcements", Auth: true},
	{Method: http.MethodGet, Path: "/api/v1/dashboard/admin", Auth: true},
}

func main() {
	var (
		base     string
		email    string
		password string
		timeout  time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&email, "email", "", "login email for authenticated probes")
	flag.StringVar(&password, "password", "", "login password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	var token string
	if email != "" {
		var err error
		token, err = login(client, base, email, password)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
	}

	failedCritical := false
	for _, p := range probes {
		if p.Auth && token == "" {
			fmt.Printf("SKIP %-6s %-40s (no credentials)\n", p.Method, p.Path)
			continue
		}
		status, elapsed, err := run(client, base, p, token)
		switch {
		case err != nil:
			fmt.Printf("FAIL %-6s %-40s %v\n", p.Method, p.Path, err)
			failedCritical = failedCritical || p.Critical
		case status >= 400:
			fmt.Printf("FAIL %-6s %-40s %d in %s\n", p.Method, p.Path, status, elapsed.Round(time.Millisecond))
			failedCritical = failedCritical || p.Critical
		default:
			fmt.Printf("OK   %-6s %-40s %d in %s\n", p.Method, p.Path, status, elapsed.Round(time.Millisecond))
		}
	}

	if failedCritical {
		os.Exit(1)
	}
}

func login(client *http.Client, base, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(base+"/api/v1/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("login response carried no access token")
	}
	return envelope.Data.AccessToken, nil
}

func run(client *http.Client, base string, p probe, token string) (int, time.Duration, error) {
	req, err := http.NewRequest(p.Method, base+p.Path, nil)
	if err != nil {
		return 0, 0, err
	}
	if p.Auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return 0, elapsed, err
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, elapsed, nil
}
