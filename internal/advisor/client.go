// Package advisor provides the HTTP client for the multi-agent advisory
// backend. Server-side behavior is out of scope here; the client only
// depends on the request and response shapes of each endpoint.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trogers1052/portfolio-advisor/internal/models"
)

// Client talks to the advisory backend
type Client struct {
	baseURL string
	// unary client carries the request timeout; the stream client must
	// not, because its body is read for the lifetime of a chat turn
	unary  *http.Client
	stream *http.Client
}

// NewClient creates a new Client for the backend at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		unary:   &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

// ValidateTicker checks one ticker symbol against the backend. Empty input
// resolves to false without a network call. Transport failures and non-2xx
// responses also resolve to false: an unreachable validator is deliberately
// indistinguishable from an unknown ticker.
func (c *Client) ValidateTicker(ctx context.Context, ticker string) bool {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return false
	}

	endpoint := c.baseURL + "/validate-ticker/" + url.PathEscape(ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := c.unary.Do(req)
	if err != nil {
		log.Printf("ticker validation request failed for %s: %v", ticker, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("ticker validation for %s returned status %d", ticker, resp.StatusCode)
		return false
	}

	var result struct {
		Valid bool     `json:"valid"`
		Price *float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("ticker validation response for %s unreadable: %v", ticker, err)
		return false
	}
	return result.Valid
}

// InitSession registers a new advisory session with the backend
func (c *Client) InitSession(ctx context.Context, sessionID string) error {
	body := map[string]string{"session_id": sessionID}

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.postJSON(ctx, "/init-session", body, &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("backend rejected session init: %s", result.Message)
	}
	return nil
}

// SubmitQuestionnaire delivers a finalized questionnaire payload. Errors
// returned here are transport errors; payload validation happens before
// the payload is built.
func (c *Client) SubmitQuestionnaire(ctx context.Context, sessionID string, payload *models.SubmissionPayload) error {
	responses, err := payload.WireResponses()
	if err != nil {
		return fmt.Errorf("failed to encode questionnaire responses: %w", err)
	}

	body := struct {
		SessionID string            `json:"session_id"`
		Responses map[string]string `json:"responses"`
	}{SessionID: sessionID, Responses: responses}

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.postJSON(ctx, "/submit-questionnaire", body, &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("backend rejected questionnaire: %s", result.Message)
	}
	return nil
}

// FetchSession hydrates previously submitted questionnaire responses,
// used to give the chat page its context
func (c *Client) FetchSession(ctx context.Context, sessionID string) (map[string]string, error) {
	endpoint := c.baseURL + "/agent/session/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}

	resp, err := c.unary.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("session fetch returned status %d", resp.StatusCode)
	}

	var result struct {
		QuestionnaireResponses map[string]string `json:"questionnaire_responses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return result.QuestionnaireResponses, nil
}

// Intake sends one turn of the non-streamed intake dialogue
func (c *Client) Intake(ctx context.Context, sessionID, userInput string) (string, error) {
	body := map[string]string{"session_id": sessionID, "user_input": userInput}

	var result struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/agent/intake", body, &result); err != nil {
		return "", err
	}
	return result.Response, nil
}

// Recommend asks the backend for a one-shot portfolio recommendation
func (c *Client) Recommend(ctx context.Context, sessionID string) (string, error) {
	body := map[string]string{"session_id": sessionID}

	var result struct {
		Recommendation string `json:"recommendation"`
	}
	if err := c.postJSON(ctx, "/agent/recommend", body, &result); err != nil {
		return "", err
	}
	return result.Recommendation, nil
}

// OpenChatStream starts a streamed chat turn and returns the raw event
// body. The caller owns the reader and must close it.
func (c *Client) OpenChatStream(ctx context.Context, sessionID, userMessage string) (io.ReadCloser, error) {
	body, err := json.Marshal(map[string]string{
		"session_id":   sessionID,
		"user_message": userMessage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/agent/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("chat stream returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.unary.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
