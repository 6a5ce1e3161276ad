package hooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// serverClient is the thin HTTP surface hooks need from a running
// keepsake server: fetch session-start context, save a session summary.
// Every failure is survivable; callers fall back to the store directly.
type serverClient struct {
	base string
	http *http.Client
}

func newServerClient(base string) *serverClient {
	return &serverClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

// SessionContext fetches the framed brief from the server. ok is false
// on any failure, including a server that is simply not running.
func (c *serverClient) SessionContext(project string) (string, bool) {
	u := c.base + "/api/context"
	if project != "" {
		u += "?project=" + url.QueryEscape(project)
	}

	resp, err := c.http.Get(u)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var body struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false
	}
	return body.Context, true
}

// SaveSession posts a finished session's summary.
func (c *serverClient) SaveSession(p sessionPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	resp, err := c.http.Post(c.base+"/api/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("POST /api/sessions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("POST /api/sessions: status %d", resp.StatusCode)
	}
	return nil
}
