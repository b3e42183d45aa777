// Package client is a Go client for the recording API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/cliptag/backend/internal/models"
)

// APIError is a non-2xx response. Message is the server's "error" field when present.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// CreateSessionInput is the body of CreateSession.
type CreateSessionInput struct {
	UserID        string  `json:"user_id"`
	ClipStartTime string  `json:"clip_start_time,omitempty"`
	StudyID       *string `json:"study_id,omitempty"`
	ParticipantID *string `json:"participant_id,omitempty"`
}

// StoredEvent is the server's acknowledgement of AddEvent.
type StoredEvent struct {
	ID          string  `json:"id"`
	TimeSeconds float64 `json:"time_seconds"`
}

// Token is an admin bearer token.
type Token struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// Client talks to a cliptag server.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New creates a client for baseURL; a trailing "/" is ignored. A nil httpClient uses a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) { c.token = token }

// CreateSession creates a session and returns its id.
func (c *Client) CreateSession(ctx context.Context, in CreateSessionInput) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sessions", in, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// AddEvent records an event at timeSeconds.
func (c *Client) AddEvent(ctx context.Context, sessionID string, timeSeconds float64) (*StoredEvent, error) {
	var out StoredEvent
	body := map[string]float64{"time_seconds": timeSeconds}
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/events", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns all sessions with their events.
func (c *Client) ListSessions(ctx context.Context) ([]models.Session, error) {
	var out []models.Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEvents returns a session's events.
func (c *Client) ListEvents(ctx context.Context, sessionID string) ([]models.Event, error) {
	var out []models.Event
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/events", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportCSVURL is the download address of the CSV export.
func (c *Client) ExportCSVURL() string { return c.baseURL + "/api/export/csv" }

// VideoURL is the address of the video relay.
func (c *Client) VideoURL() string { return c.baseURL + "/api/video" }

// ExportCSV copies the CSV export to w.
func (c *Client) ExportCSV(ctx context.Context, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/export/csv", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

// Clear deletes every session and event.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/clear", nil, nil)
}

// Login exchanges the admin password for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, password string) (*Token, error) {
	var out Token
	if err := c.do(ctx, http.MethodPost, "/api/admin/login", map[string]string{"password": password}, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
	var eb struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		apiErr.Message = eb.Error
		apiErr.Detail = eb.Detail
	}
	return nil, apiErr
}
